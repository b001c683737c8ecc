package filesystem

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// memoryFileInfo implements fs.FileInfo for in-memory files
type memoryFileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (f *memoryFileInfo) Name() string       { return f.name }
func (f *memoryFileInfo) Size() int64        { return f.size }
func (f *memoryFileInfo) Mode() fs.FileMode  { return 0o644 }
func (f *memoryFileInfo) ModTime() time.Time { return f.modTime }
func (f *memoryFileInfo) IsDir() bool        { return false }
func (f *memoryFileInfo) Sys() interface{}   { return nil }

type memoryFile struct {
	content []byte
	modTime time.Time
}

// MemoryFileSystem implements FileSystemProvider in memory for tests.
// Relative paths resolve against root. Safe for concurrent use.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string]*memoryFile
	root  string
}

// NewMemoryFileSystem creates an empty in-memory filesystem.
// The root path is normalized to forward slashes.
func NewMemoryFileSystem(root string) *MemoryFileSystem {
	return &MemoryFileSystem{
		files: make(map[string]*memoryFile),
		root:  path.Clean(filepath.ToSlash(root)),
	}
}

func (m *MemoryFileSystem) resolve(p string) string {
	p = filepath.ToSlash(p)
	if !path.IsAbs(p) {
		p = path.Join(m.root, p)
	}
	return path.Clean(p)
}

// AddFile stores content at p.
func (m *MemoryFileSystem) AddFile(p string, content string) {
	m.AddBytes(p, []byte(content))
}

// AddBytes stores binary content at p, such as a compressed CSV.
func (m *MemoryFileSystem) AddBytes(p string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[m.resolve(p)] = &memoryFile{content: content, modTime: time.Now()}
}

// Files lists stored absolute paths in sorted order.
func (m *MemoryFileSystem) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (m *MemoryFileSystem) lookup(op, p string) (*memoryFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[m.resolve(p)]
	if !ok {
		return nil, &fs.PathError{Op: op, Path: p, Err: fs.ErrNotExist}
	}
	return f, nil
}

func (m *MemoryFileSystem) ReadFile(p string) ([]byte, error) {
	f, err := m.lookup("read", p)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(f.content), nil
}

func (m *MemoryFileSystem) Open(p string) (io.ReadCloser, error) {
	f, err := m.lookup("open", p)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(f.content)), nil
}

func (m *MemoryFileSystem) Create(p string) (io.WriteCloser, error) {
	return &memoryWriter{fs: m, path: p}, nil
}

func (m *MemoryFileSystem) Stat(p string) (FileInfo, error) {
	f, err := m.lookup("stat", p)
	if err != nil {
		return nil, err
	}
	return &memoryFileInfo{name: path.Base(m.resolve(p)), size: int64(len(f.content)), modTime: f.modTime}, nil
}

// memoryWriter buffers writes and stores them on Close.
type memoryWriter struct {
	fs   *MemoryFileSystem
	path string
	buf  bytes.Buffer
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *memoryWriter) Close() error {
	w.fs.AddBytes(w.path, w.buf.Bytes())
	return nil
}

var _ FileSystemProvider = (*MemoryFileSystem)(nil)
