// Package metrics exposes Prometheus collectors for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors shared by HTTP middleware and domain systems.
// Each instance owns its registry, so independent instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Analyses     *prometheus.CounterVec
	Records      *prometheus.CounterVec
	PendingSaves *prometheus.CounterVec
	PendingSync  *prometheus.CounterVec
	EventPublish *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rancoqc",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "status"}),

		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rancoqc",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rancoqc",
			Name:      "analyses_total",
			Help:      "Analyses processed, by profile and source.",
		}, []string{"profile", "source"}),

		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rancoqc",
			Name:      "records_total",
			Help:      "Analysis records written to the store, by outcome.",
		}, []string{"outcome"}),

		PendingSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rancoqc",
			Name:      "pending_saves_total",
			Help:      "Payloads written to the degraded-mode cache, by outcome.",
		}, []string{"outcome"}),

		PendingSync: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rancoqc",
			Name:      "pending_sync_total",
			Help:      "Pending cache entries processed by sync, by result.",
		}, []string{"result"}),

		EventPublish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rancoqc",
			Name:      "event_publish_total",
			Help:      "Events published, by subject and outcome.",
		}, []string{"subject", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.Analyses,
		m.Records,
		m.PendingSaves,
		m.PendingSync,
		m.EventPublish,
	)

	return m
}

// Registry returns the underlying registry, for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Outcome returns "success" or "failure" for use as a label value.
func Outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
