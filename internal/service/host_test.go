package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstore/internal/model"
)

func TestResolveLocalHost(t *testing.T) {
	hosts := []model.ServerHost{
		{ID: 1, NameDNS: "docs-a", FQDN: "docs-a.corp.local"},
		{ID: 2, NameDNS: "DOCS-B", FQDN: "docs-b.corp.local"},
		{ID: 3, NameDNS: "docs-c"},
	}

	tests := []struct {
		name     string
		hostName string
		wantID   int64
		wantErr  bool
	}{
		{name: "fqdn", hostName: "docs-a.corp.local", wantID: 1},
		{name: "dns name case insensitive", hostName: "docs-b", wantID: 2},
		{name: "trailing dot", hostName: "docs-b.corp.local.", wantID: 2},
		{name: "fqdn matches short dns name", hostName: "docs-c.other.local", wantID: 3},
		{name: "no match", hostName: "build-agent-7", wantErr: true},
		{name: "empty", hostName: "  ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ResolveLocalHost(hosts, tt.hostName)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoLocalHost)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, h.ID)
		})
	}
}
