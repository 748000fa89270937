package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docstore/internal/model"
	"docstore/internal/service"
)

// MockKeyEntityAdmin is a testify mock for service.KeyEntityAdmin.
type MockKeyEntityAdmin struct {
	mock.Mock
}

var _ service.KeyEntityAdmin = (*MockKeyEntityAdmin)(nil)

func (m *MockKeyEntityAdmin) CreateApplication(ctx context.Context, app *model.Application) (*model.Application, error) {
	args := m.Called(ctx, app)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Application), args.Error(1)
}

func (m *MockKeyEntityAdmin) UpdateApplication(ctx context.Context, app *model.Application) error {
	return m.Called(ctx, app).Error(0)
}

func (m *MockKeyEntityAdmin) CreateRootObject(ctx context.Context, ro *model.RootObject) (*model.RootObject, error) {
	args := m.Called(ctx, ro)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RootObject), args.Error(1)
}

func (m *MockKeyEntityAdmin) UpdateRootObject(ctx context.Context, ro *model.RootObject) error {
	return m.Called(ctx, ro).Error(0)
}

func (m *MockKeyEntityAdmin) CreateDocumentType(ctx context.Context, dt *model.DocumentType) (*model.DocumentType, error) {
	args := m.Called(ctx, dt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentType), args.Error(1)
}

func (m *MockKeyEntityAdmin) UpdateDocumentType(ctx context.Context, dt *model.DocumentType) error {
	return m.Called(ctx, dt).Error(0)
}

func (m *MockKeyEntityAdmin) CreateStorageNode(ctx context.Context, n *model.StorageNode) (*model.StorageNode, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StorageNode), args.Error(1)
}

func (m *MockKeyEntityAdmin) UpdateStorageNode(ctx context.Context, n *model.StorageNode) error {
	return m.Called(ctx, n).Error(0)
}
