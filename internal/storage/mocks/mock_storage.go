package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docstore/internal/storage"
)

type MockFileSystem struct {
	mock.Mock
}

var _ storage.FileSystem = (*MockFileSystem)(nil)

func (m *MockFileSystem) MkdirAll(ctx context.Context, dir string) error {
	args := m.Called(ctx, dir)
	return args.Error(0)
}

func (m *MockFileSystem) WriteFile(ctx context.Context, path string, data []byte) error {
	args := m.Called(ctx, path, data)
	return args.Error(0)
}

func (m *MockFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockFileSystem) Exists(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

func (m *MockFileSystem) Remove(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}
