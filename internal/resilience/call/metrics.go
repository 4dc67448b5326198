package call

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records wrapper outcomes per stage.
type Metrics interface {
	RecordCacheHit(stage string)
	RecordCacheMiss(stage string)
	RecordCallDuration(stage string, d time.Duration)
	RecordFailure(stage string)
}

// NoopMetrics is a Metrics collector that records nothing.
type NoopMetrics struct{}

// RecordCacheHit implements Metrics.
func (m *NoopMetrics) RecordCacheHit(string) {}

// RecordCacheMiss implements Metrics.
func (m *NoopMetrics) RecordCacheMiss(string) {}

// RecordCallDuration implements Metrics.
func (m *NoopMetrics) RecordCallDuration(string, time.Duration) {}

// RecordFailure implements Metrics.
func (m *NoopMetrics) RecordFailure(string) {}

var (
	cacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilient_call_cache_hits_total",
			Help: "Total number of calls served from the result cache",
		},
		[]string{"stage"},
	)

	cacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilient_call_cache_misses_total",
			Help: "Total number of cache lookups that missed",
		},
		[]string{"stage"},
	)

	callDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resilient_call_duration_seconds",
			Help:    "Duration of wrapped calls including retries",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	callFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilient_call_failures_total",
			Help: "Total number of wrapped calls that failed after all retries",
		},
		[]string{"stage"},
	)
)

// PrometheusMetrics publishes wrapper outcomes to the default
// Prometheus registry.
type PrometheusMetrics struct{}

// RecordCacheHit implements Metrics.
func (m *PrometheusMetrics) RecordCacheHit(stage string) {
	cacheHitsTotal.WithLabelValues(stage).Inc()
}

// RecordCacheMiss implements Metrics.
func (m *PrometheusMetrics) RecordCacheMiss(stage string) {
	cacheMissesTotal.WithLabelValues(stage).Inc()
}

// RecordCallDuration implements Metrics.
func (m *PrometheusMetrics) RecordCallDuration(stage string, d time.Duration) {
	callDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordFailure implements Metrics.
func (m *PrometheusMetrics) RecordFailure(stage string) {
	callFailuresTotal.WithLabelValues(stage).Inc()
}
