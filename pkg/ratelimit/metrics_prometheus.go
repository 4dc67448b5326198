package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for admission control, registered once at package
// load on the default registry.
var (
	admissionAllowedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_allowed_total",
			Help: "Total number of admitted rate limit checks",
		},
		[]string{"limiter"},
	)

	admissionDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_denied_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"limiter"},
	)

	admissionCheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ratelimit_check_duration_seconds",
			Help:    "Duration of rate limit checks",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"limiter"},
	)

	admissionActiveKeys = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ratelimit_active_keys",
			Help: "Number of identities currently tracked by the rate limiter",
		},
		[]string{"limiter"},
	)
)

// PrometheusMetrics records admission outcomes as Prometheus metrics.
type PrometheusMetrics struct{}

// NewPrometheusMetrics returns a Prometheus-backed Metrics collector.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{}
}

// RecordAllowed implements Metrics.
func (m *PrometheusMetrics) RecordAllowed(limiter string) {
	admissionAllowedTotal.WithLabelValues(limiter).Inc()
}

// RecordDenied implements Metrics.
func (m *PrometheusMetrics) RecordDenied(limiter string) {
	admissionDeniedTotal.WithLabelValues(limiter).Inc()
}

// RecordCheckDuration implements Metrics.
func (m *PrometheusMetrics) RecordCheckDuration(limiter string, d time.Duration) {
	admissionCheckDuration.WithLabelValues(limiter).Observe(d.Seconds())
}

// SetActiveKeys implements Metrics.
func (m *PrometheusMetrics) SetActiveKeys(limiter string, count int) {
	admissionActiveKeys.WithLabelValues(limiter).Set(float64(count))
}
