// Package compression picks a codec from a file name and wraps streams with it.
package compression

import (
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Type identifies a compression codec.
type Type int

const (
	None Type = iota
	Gzip
	Bzip2
	XZ
	Zstd
)

var extensions = map[Type]string{
	Gzip:  ".gz",
	Bzip2: ".bz2",
	XZ:    ".xz",
	Zstd:  ".zst",
}

// ErrUnsupported is returned for codecs that cannot be used in the requested direction.
var ErrUnsupported = errors.New("unsupported compression")

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Bzip2:
		return "bzip2"
	case XZ:
		return "xz"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// Extension returns the file suffix of t, empty for None.
func (t Type) Extension() string {
	return extensions[t]
}

// Detect returns the codec implied by path's last extension (case-insensitive).
func Detect(path string) Type {
	ext := strings.ToLower(filepath.Ext(path))
	for t, e := range extensions {
		if ext == e {
			return t
		}
	}
	return None
}

// TrimExtension removes the compression suffix, so "a.csv.gz" becomes "a.csv".
func TrimExtension(path string) string {
	if t := Detect(path); t != None {
		return path[:len(path)-len(filepath.Ext(path))]
	}
	return path
}

// NewReader wraps r with a decompressor for t.
// Closing the returned reader releases decoder resources; it never closes r.
func NewReader(r io.Reader, t Type) (io.ReadCloser, error) {
	switch t {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, nil
	case Bzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case XZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return io.NopCloser(xr), nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
	}
}

// NewWriter wraps w with a compressor for t.
// Close flushes the compressor; it never closes w.
func NewWriter(w io.Writer, t Type) (io.WriteCloser, error) {
	switch t {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case XZ:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		return xw, nil
	case Zstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return enc, nil
	default:
		// compress/bzip2 only decompresses
		return nil, fmt.Errorf("%w for writing: %s", ErrUnsupported, t)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
