// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - HTTP request metrics (duration, count, size)
//   - Pipeline metrics (requests, stage durations, article sizes)
//   - Upstream provider metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "medlens/internal/observability/metrics"
//
//	func runStage(stage string) {
//	    start := time.Now()
//	    // ... run the stage ...
//
//	    metrics.RecordStageDuration(stage, time.Since(start))
//	}
package metrics
