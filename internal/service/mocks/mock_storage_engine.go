package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docstore/internal/model"
	"docstore/internal/service"
)

// MockStorageEngine is a testify mock for service.StorageEngine.
type MockStorageEngine struct {
	mock.Mock
}

var _ service.StorageEngine = (*MockStorageEngine)(nil)

func (m *MockStorageEngine) StoreNew(ctx context.Context, upload model.Upload, appToken string) (*model.StoredDocument, error) {
	args := m.Called(ctx, upload, appToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredDocument), args.Error(1)
}

func (m *MockStorageEngine) Replace(ctx context.Context, req model.ReplaceRequest, appToken string) (*model.StoredDocument, error) {
	args := m.Called(ctx, req, appToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredDocument), args.Error(1)
}

func (m *MockStorageEngine) Get(ctx context.Context, id int64, appToken string) (*model.RetrievedDocument, error) {
	args := m.Called(ctx, id, appToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RetrievedDocument), args.Error(1)
}

func (m *MockStorageEngine) WriteToNode(ctx context.Context, doc *model.StoredDocument, dt *model.DocumentType, storageNodeID int64, data []byte) error {
	return m.Called(ctx, doc, dt, storageNodeID, data).Error(0)
}

func (m *MockStorageEngine) ReceiveFromPeer(ctx context.Context, t model.PeerTransfer) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockStorageEngine) ReadForPeer(ctx context.Context, t model.PeerTransfer) ([]byte, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorageEngine) DeleteForPeer(ctx context.Context, t model.PeerTransfer) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockStorageEngine) RetrievalPath(doc *model.StoredDocument) (string, error) {
	args := m.Called(doc)
	return args.String(0), args.Error(1)
}
