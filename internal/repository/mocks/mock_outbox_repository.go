package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docstore/internal/model"
	"docstore/internal/repository"
)

type MockExpiringDocumentRepository struct {
	mock.Mock
}

var _ repository.ExpiringDocumentRepository = (*MockExpiringDocumentRepository)(nil)

func (m *MockExpiringDocumentRepository) Create(ctx context.Context, exp *model.ExpiringDocument) error {
	args := m.Called(ctx, exp)
	return args.Error(0)
}

type MockReplicationTaskRepository struct {
	mock.Mock
}

var _ repository.ReplicationTaskRepository = (*MockReplicationTaskRepository)(nil)

func (m *MockReplicationTaskRepository) Enqueue(ctx context.Context, task *model.ReplicationTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}
