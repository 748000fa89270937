package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

// aferoFS implements FileSystem on top of an afero.Fs.
type aferoFS struct {
	fs afero.Fs
}

// New wraps an afero filesystem.
func New(fsys afero.Fs) FileSystem {
	return &aferoFS{fs: fsys}
}

// NewOS returns a FileSystem backed by the real operating system filesystem.
func NewOS() FileSystem {
	return New(afero.NewOsFs())
}

// NewMemory returns an in-memory FileSystem, used by tests.
func NewMemory() FileSystem {
	return New(afero.NewMemMapFs())
}

func (a *aferoFS) MkdirAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir == "" {
		return ErrInvalidPath
	}
	if err := a.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return nil
}

// WriteFile writes to a temporary sibling and renames it into place.
func (a *aferoFS) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return ErrInvalidPath
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(a.fs, tmp, data, 0o644); err != nil {
		_ = a.fs.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := a.fs.Rename(tmp, path); err != nil {
		_ = a.fs.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (a *aferoFS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, ErrInvalidPath
	}
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func (a *aferoFS) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return afero.Exists(a.fs, path)
}

func (a *aferoFS) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return ErrInvalidPath
	}
	if err := a.fs.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
