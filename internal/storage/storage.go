package storage

import (
	"context"
	"errors"
)

// Package storage contains the filesystem collaborator used by the storage engine.
// Paths are physical paths already resolved against a host and node root.

var (
	// ErrNotFound indicates the file does not exist.
	ErrNotFound = errors.New("storage: file not found")
	// ErrInvalidPath indicates an empty path.
	ErrInvalidPath = errors.New("storage: invalid path")
)

// FileSystem is the directory/file I/O the engine needs.
// Implementations must be safe for concurrent use by multiple goroutines.
type FileSystem interface {
	// MkdirAll creates a directory and any missing parents.
	MkdirAll(ctx context.Context, dir string) error
	// WriteFile writes data to path, replacing any existing file. A reader never sees a partial file.
	WriteFile(ctx context.Context, path string, data []byte) error
	// ReadFile returns the whole file. Returns ErrNotFound if it does not exist.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// Exists reports whether path exists.
	Exists(ctx context.Context, path string) (bool, error)
	// Remove deletes a file. Returns nil if it does not exist.
	Remove(ctx context.Context, path string) error
}
