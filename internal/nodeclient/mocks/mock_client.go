package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docstore/internal/model"
)

// MockClient is a testify mock for nodeclient.Client.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Alive(ctx context.Context, host *model.ServerHost) error {
	args := m.Called(ctx, host)
	return args.Error(0)
}

func (m *MockClient) Push(ctx context.Context, host *model.ServerHost, appToken string, t model.PeerTransfer) error {
	args := m.Called(ctx, host, appToken, t)
	return args.Error(0)
}

func (m *MockClient) Fetch(ctx context.Context, host *model.ServerHost, appToken string, t model.PeerTransfer) ([]byte, error) {
	args := m.Called(ctx, host, appToken, t)
	var data []byte
	if v := args.Get(0); v != nil {
		data = v.([]byte)
	}
	return data, args.Error(1)
}

func (m *MockClient) Delete(ctx context.Context, host *model.ServerHost, appToken string, t model.PeerTransfer) error {
	args := m.Called(ctx, host, appToken, t)
	return args.Error(0)
}
