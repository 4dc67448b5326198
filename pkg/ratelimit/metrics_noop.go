package ratelimit

import "time"

// NoopMetrics is a Metrics collector that records nothing. It is the
// default when no collector is configured and keeps tests quiet.
type NoopMetrics struct{}

// RecordAllowed implements Metrics.
func (m *NoopMetrics) RecordAllowed(string) {}

// RecordDenied implements Metrics.
func (m *NoopMetrics) RecordDenied(string) {}

// RecordCheckDuration implements Metrics.
func (m *NoopMetrics) RecordCheckDuration(string, time.Duration) {}

// SetActiveKeys implements Metrics.
func (m *NoopMetrics) SetActiveKeys(string, int) {}
