// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// GenerationsTotal tracks generation calls by kind and outcome.
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generations_total",
			Help: "Total code generation requests",
		},
		[]string{"kind", "status"},
	)

	// GenerationDuration tracks end-to-end generation latency including polling.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_duration_seconds",
			Help:    "End-to-end generation duration including polling",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120, 180},
		},
		[]string{"kind", "model"},
	)

	// PollAttempts tracks how many poll rounds a generation needed.
	PollAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "generation_poll_attempts",
			Help:    "Poll attempts before a generation reached a terminal state",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 45},
		},
	)

	// V0RequestsTotal tracks calls to the v0 Platform API.
	V0RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "v0_requests_total",
			Help: "Total requests to the v0 Platform API",
		},
		[]string{"operation", "status"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// DeploymentsTotal tracks Vercel deployment triggers.
	DeploymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployments_total",
			Help: "Total deployment triggers",
		},
		[]string{"status"},
	)

	// MediaUploadsTotal tracks media library uploads.
	MediaUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_uploads_total",
			Help: "Total media library uploads",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordGeneration records metrics for a completed generation attempt.
func RecordGeneration(kind, model, status string, duration float64) {
	GenerationsTotal.WithLabelValues(kind, status).Inc()
	GenerationDuration.WithLabelValues(kind, model).Observe(duration)
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
