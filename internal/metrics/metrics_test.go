package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.DocumentStored("WriteOnceReadMany")
	m.DocumentStored("WriteOnceReadMany")
	m.ReplicationFailed()
	m.CacheEntities("document_types", 4)
	m.CacheReloaded("success")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.stored.WithLabelValues("WriteOnceReadMany")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.replicationFailures))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.cacheEntities.WithLabelValues("document_types")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheReloads.WithLabelValues("success")))
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.DocumentStored("x")
		m.DocumentReplaced("x")
		m.DocumentRetrieved("primary")
		m.ReplicationFailed()
		m.CacheReloaded("error")
		m.CacheEntities("applications", 1)
	})
}
