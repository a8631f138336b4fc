// Package metrics exposes Prometheus instrumentation for the sync engine
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's collectors on a private registry, so tests and
// embedding applications never collide on the global default registry.
type Metrics struct {
	registry *prometheus.Registry

	ReadingsFetched  prometheus.Counter
	ReadingsInserted prometheus.Counter
	ReadingsRejected prometheus.Counter
	FetchFailures    *prometheus.CounterVec
	SyncDuration     prometheus.Histogram
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ReadingsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boostt1d_readings_fetched_total",
			Help: "Glucose entries received from the upstream feed.",
		}),
		ReadingsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boostt1d_readings_inserted_total",
			Help: "New readings persisted by sync runs.",
		}),
		ReadingsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boostt1d_readings_rejected_total",
			Help: "Fetched entries dropped by validation.",
		}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boostt1d_fetch_failures_total",
			Help: "Upstream fetch failures by kind.",
		}, []string{"kind"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "boostt1d_sync_duration_seconds",
			Help:    "Wall-clock duration of sync runs.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.ReadingsFetched,
		m.ReadingsInserted,
		m.ReadingsRejected,
		m.FetchFailures,
		m.SyncDuration,
	)
	return m
}

// Handler returns the scrape endpoint for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
