// Package metrics provides the injected metrics sink. Collectors live on an
// explicit registry owned by the caller; there are no package-level globals,
// so tests and multiple service instances never collide.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the sink handed to the service, repository wrapper, and
// provider clients.
type Metrics struct {
	registry *prometheus.Registry

	Operations        *prometheus.CounterVec
	OperationErrors   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	DuplicateEmails   prometheus.Counter
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	ActiveRequests    prometheus.Gauge
	BreakerState      *prometheus.GaugeVec
	SyncedEmails      *prometheus.CounterVec
}

// New creates a Metrics sink backed by a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailsync_operations_total",
			Help: "Operations attempted, by logical operation name.",
		}, []string{"operation"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailsync_operation_errors_total",
			Help: "Failed operations, by operation name and error class.",
		}, []string{"operation", "class"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mailsync_operation_duration_seconds",
			Help:    "Operation latency, by logical operation name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		DuplicateEmails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailsync_duplicate_emails_total",
			Help: "Ingestion attempts that hit an already stored message id.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailsync_cache_hits_total",
			Help: "Email cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailsync_cache_misses_total",
			Help: "Email cache misses.",
		}),
		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mailsync_active_requests",
			Help: "Requests currently in flight through the service.",
		}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mailsync_breaker_state",
			Help: "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
		}, []string{"operation"}),
		SyncedEmails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailsync_synced_emails_total",
			Help: "Emails pulled from providers, by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}

	registry.MustRegister(
		m.Operations,
		m.OperationErrors,
		m.OperationDuration,
		m.DuplicateEmails,
		m.CacheHits,
		m.CacheMisses,
		m.ActiveRequests,
		m.BreakerState,
		m.SyncedEmails,
	)

	return m
}

// ObserveOperation records one attempt of a named operation
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error, classify func(error) string) {
	m.Operations.WithLabelValues(operation).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.OperationErrors.WithLabelValues(operation, classify(err)).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
