// Package filesystem abstracts the file access pgdal performs so services can
// be tested without touching disk.
//
// Implementations:
//   - OSFileSystemProvider: production implementation using the OS filesystem
//   - MemoryFileSystem: in-memory implementation for testing
package filesystem
