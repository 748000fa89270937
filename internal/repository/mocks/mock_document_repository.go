package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"docstore/internal/model"
	"docstore/internal/repository"
)

type MockDocumentRepository struct {
	mock.Mock
}

var _ repository.DocumentRepository = (*MockDocumentRepository)(nil)

func (m *MockDocumentRepository) Create(ctx context.Context, doc *model.StoredDocument) (*model.StoredDocument, error) {
	args := m.Called(ctx, doc)
	if f, ok := args.Get(0).(func(*model.StoredDocument) *model.StoredDocument); ok {
		return f(doc), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredDocument), args.Error(1)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id int64) (*model.StoredDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredDocument), args.Error(1)
}

func (m *MockDocumentRepository) Update(ctx context.Context, doc *model.StoredDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) ExistsLive(ctx context.Context, documentTypeID int64, rootObjectKey, docTypeKey string) (bool, error) {
	args := m.Called(ctx, documentTypeID, rootObjectKey, docTypeKey)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) RecordAccess(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
