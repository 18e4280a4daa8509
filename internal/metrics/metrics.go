// Package metrics registers Prometheus collectors for the server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the server.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP request totals by method, route pattern and status.
	HTTPRequests *prometheus.CounterVec

	// HTTP latency by route pattern.
	HTTPLatency *prometheus.HistogramVec

	// Failed login attempts, including rate-limited ones.
	LoginFailures prometheus.Counter

	// Encrypted share envelopes accepted for delivery.
	SharesStored prometheus.Counter

	// Blob writes rejected on version mismatch.
	BlobConflicts prometheus.Counter
}

// New creates and registers all collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "whereabouts_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "whereabouts_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),

		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "whereabouts_login_failures_total",
			Help: "Total failed login attempts",
		}),

		SharesStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "whereabouts_shares_stored_total",
			Help: "Total encrypted share envelopes stored",
		}),

		BlobConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "whereabouts_blob_version_conflicts_total",
			Help: "Total blob writes rejected on version mismatch",
		}),
	}
}

// ObserveHTTP records one completed request.
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(method, route, status).Inc()
		m.HTTPLatency.WithLabelValues(route).Observe(d.Seconds())
	}
}

// IncrementLoginFailures records one failed login.
func (m *Metrics) IncrementLoginFailures() {
	if m != nil {
		m.LoginFailures.Inc()
	}
}

// AddSharesStored records accepted share envelopes.
func (m *Metrics) AddSharesStored(n int) {
	if m != nil {
		m.SharesStored.Add(float64(n))
	}
}

// IncrementBlobConflicts records one rejected blob write.
func (m *Metrics) IncrementBlobConflicts() {
	if m != nil {
		m.BlobConflicts.Inc()
	}
}
