package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAferoFS_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fsys := NewMemory()
	dir := filepath.Join("data", "W", "RPT", "2024", "03")
	path := filepath.Join(dir, "1.pdf")

	require.NoError(t, fsys.MkdirAll(ctx, dir))
	require.NoError(t, fsys.WriteFile(ctx, path, []byte("hello")))

	ok, err := fsys.Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := fsys.ReadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	tmp, err := fsys.Exists(ctx, path+".tmp")
	require.NoError(t, err)
	assert.False(t, tmp, "temp file must not survive a successful write")

	require.NoError(t, fsys.Remove(ctx, path))
	ok, err = fsys.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAferoFS_ReadMissing(t *testing.T) {
	_, err := NewMemory().ReadFile(context.Background(), "nope.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAferoFS_RemoveMissingIsNoop(t *testing.T) {
	assert.NoError(t, NewMemory().Remove(context.Background(), "nope.pdf"))
}

func TestAferoFS_EmptyPath(t *testing.T) {
	ctx := context.Background()
	fsys := NewMemory()
	assert.ErrorIs(t, fsys.WriteFile(ctx, "", nil), ErrInvalidPath)
	assert.ErrorIs(t, fsys.MkdirAll(ctx, ""), ErrInvalidPath)
	_, err := fsys.ReadFile(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestAferoFS_ReadOnlyWriteFails(t *testing.T) {
	fsys := New(afero.NewReadOnlyFs(afero.NewMemMapFs()))
	err := fsys.WriteFile(context.Background(), "a.pdf", []byte("x"))
	assert.Error(t, err)
}

func TestAferoFS_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewMemory().WriteFile(ctx, "a.pdf", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
