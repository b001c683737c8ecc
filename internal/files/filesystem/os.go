package filesystem

import (
	"io"
	"os"
	"path/filepath"
)

// OSFileSystemProvider implements FileSystemProvider on the real filesystem.
type OSFileSystemProvider struct{}

// NewOSFileSystemProvider creates a new OS filesystem provider.
func NewOSFileSystemProvider() *OSFileSystemProvider {
	return &OSFileSystemProvider{}
}

func (p *OSFileSystemProvider) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (p *OSFileSystemProvider) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Create makes missing parent directories before creating the file.
func (p *OSFileSystemProvider) Create(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

func (p *OSFileSystemProvider) Stat(path string) (FileInfo, error) {
	return os.Stat(path)
}

var _ FileSystemProvider = (*OSFileSystemProvider)(nil)
