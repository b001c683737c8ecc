package filesystem

import (
	"io"
	"io/fs"
)

// FileInfo is an alias for fs.FileInfo from the standard library.
type FileInfo = fs.FileInfo

// FileSystemProvider is the file access pgdal needs: SQL templates are read
// whole, CSV files are streamed in and out.
//
// Missing files are reported with errors matching fs.ErrNotExist.
type FileSystemProvider interface {
	// ReadFile reads a whole file, typically a SQL template.
	ReadFile(path string) ([]byte, error)

	// Open opens a file for streaming. The caller must Close it.
	Open(path string) (io.ReadCloser, error)

	// Create creates or truncates a file for writing. The caller must Close it;
	// with the in-memory provider content becomes visible on Close.
	Create(path string) (io.WriteCloser, error)

	// Stat returns file information for the given path.
	Stat(path string) (FileInfo, error)
}
