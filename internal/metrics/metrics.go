// Package metrics holds the Prometheus collectors for the storage engine and the key-entity cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the domain collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	stored              *prometheus.CounterVec
	replaced            *prometheus.CounterVec
	retrieved           *prometheus.CounterVec
	replicationFailures prometheus.Counter
	cacheReloads        *prometheus.CounterVec
	cacheEntities       *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		stored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docstore_documents_stored_total",
			Help: "Documents stored, by storage mode.",
		}, []string{"mode"}),
		replaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docstore_documents_replaced_total",
			Help: "Documents replaced, by storage mode.",
		}, []string{"mode"}),
		retrieved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docstore_documents_retrieved_total",
			Help: "Documents read, by the node that served them.",
		}, []string{"source"}),
		replicationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docstore_replication_failures_total",
			Help: "Secondary-node writes that failed and were queued for retry.",
		}),
		cacheReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docstore_cache_reloads_total",
			Help: "Key-entity cache reloads, by result.",
		}, []string{"result"}),
		cacheEntities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "docstore_cache_entities",
			Help: "Entities held by the key-entity cache, by kind.",
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{
		m.stored, m.replaced, m.retrieved, m.replicationFailures, m.cacheReloads, m.cacheEntities,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) DocumentStored(mode string) {
	if m == nil {
		return
	}
	m.stored.WithLabelValues(mode).Inc()
}

func (m *Metrics) DocumentReplaced(mode string) {
	if m == nil {
		return
	}
	m.replaced.WithLabelValues(mode).Inc()
}

// DocumentRetrieved records a read; source is "primary" or "secondary".
func (m *Metrics) DocumentRetrieved(source string) {
	if m == nil {
		return
	}
	m.retrieved.WithLabelValues(source).Inc()
}

func (m *Metrics) ReplicationFailed() {
	if m == nil {
		return
	}
	m.replicationFailures.Inc()
}

// CacheReloaded records a reload attempt; result is "success" or "error".
func (m *Metrics) CacheReloaded(result string) {
	if m == nil {
		return
	}
	m.cacheReloads.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheEntities(kind string, n int) {
	if m == nil {
		return
	}
	m.cacheEntities.WithLabelValues(kind).Set(float64(n))
}
