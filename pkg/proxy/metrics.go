package proxy

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/issuebridge/issuebridge/pkg/domain"
	"github.com/issuebridge/issuebridge/pkg/route"
)

// Metrics holds all Prometheus metrics for the proxy
type Metrics struct {
	// Request metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Error metrics
	errorsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics instance with all proxy metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "issuebridge_requests_total",
				Help: "Total number of proxied requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "issuebridge_request_duration_seconds",
				Help:    "Request handling duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "issuebridge_errors_total",
				Help: "Total number of classified errors by kind",
			},
			[]string{"kind"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.errorsTotal,
	)

	return m
}

// RecordRequest records metrics for a handled request
func (m *Metrics) RecordRequest(op route.Operation, outcome string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(string(op), outcome).Inc()
	m.requestDuration.WithLabelValues(string(op)).Observe(duration.Seconds())
}

// RecordError records a classified error
func (m *Metrics) RecordError(kind domain.ErrorKind) {
	m.errorsTotal.WithLabelValues(string(kind)).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
