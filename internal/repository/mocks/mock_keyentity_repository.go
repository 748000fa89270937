package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docstore/internal/model"
	"docstore/internal/repository"
)

// MockKeyEntityWriter mocks repository.KeyEntityWriter.
type MockKeyEntityWriter struct {
	mock.Mock
}

var _ repository.KeyEntityWriter = (*MockKeyEntityWriter)(nil)

func (m *MockKeyEntityWriter) GetApplication(ctx context.Context, id int64) (*model.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Application), args.Error(1)
}

func (m *MockKeyEntityWriter) CreateApplication(ctx context.Context, app *model.Application) (*model.Application, error) {
	args := m.Called(ctx, app)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Application), args.Error(1)
}

func (m *MockKeyEntityWriter) UpdateApplication(ctx context.Context, app *model.Application) error {
	return m.Called(ctx, app).Error(0)
}

func (m *MockKeyEntityWriter) GetRootObject(ctx context.Context, id int64) (*model.RootObject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RootObject), args.Error(1)
}

func (m *MockKeyEntityWriter) CreateRootObject(ctx context.Context, ro *model.RootObject) (*model.RootObject, error) {
	args := m.Called(ctx, ro)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RootObject), args.Error(1)
}

func (m *MockKeyEntityWriter) UpdateRootObject(ctx context.Context, ro *model.RootObject) error {
	return m.Called(ctx, ro).Error(0)
}

func (m *MockKeyEntityWriter) GetDocumentType(ctx context.Context, id int64) (*model.DocumentType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentType), args.Error(1)
}

func (m *MockKeyEntityWriter) CreateDocumentType(ctx context.Context, dt *model.DocumentType) (*model.DocumentType, error) {
	args := m.Called(ctx, dt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentType), args.Error(1)
}

func (m *MockKeyEntityWriter) UpdateDocumentType(ctx context.Context, dt *model.DocumentType) error {
	return m.Called(ctx, dt).Error(0)
}

func (m *MockKeyEntityWriter) GetStorageNode(ctx context.Context, id int64) (*model.StorageNode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StorageNode), args.Error(1)
}

func (m *MockKeyEntityWriter) CreateStorageNode(ctx context.Context, n *model.StorageNode) (*model.StorageNode, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StorageNode), args.Error(1)
}

func (m *MockKeyEntityWriter) UpdateStorageNode(ctx context.Context, n *model.StorageNode) error {
	return m.Called(ctx, n).Error(0)
}
