// Package ratelimit provides framework-agnostic sliding-window admission
// control over pluggable storage backends.
//
// The Limiter decides whether a caller identified by an opaque key may
// proceed under a per-window request quota. State lives in a Store, which
// can be in-memory (single instance, tests) or Redis (shared by all
// service instances).
package ratelimit

import (
	"context"
	"time"
)

// Store holds sliding-window state for the limiter.
//
// Implementations must be safe for concurrent use and must execute the
// purge/count/insert/expire sequence of Reserve as one atomic unit per
// key, so two overlapping checks cannot both slip past the quota.
type Store interface {
	// Reserve atomically purges entries for key older than cutoff, counts
	// the remainder, and, only when the count is below limit, records a
	// new entry at now and refreshes the key's expiry to window.
	//
	// Returns whether the request was admitted, the entry count inside the
	// window after the operation, and a retry-after hint derived from the
	// key's remaining expiry when denied (zero when admitted or unknown).
	Reserve(ctx context.Context, key string, now, cutoff time.Time, limit int, window time.Duration) (allowed bool, count int, retryAfter time.Duration, err error)

	// Cleanup removes entries older than cutoff across all keys. Backends
	// with native expiry may implement this as a no-op.
	Cleanup(ctx context.Context, cutoff time.Time) error

	// KeyCount returns the number of identities currently tracked.
	KeyCount(ctx context.Context) (int, error)
}

// Metrics records admission outcomes. Implementations can use
// Prometheus or a no-op collector.
type Metrics interface {
	// RecordAllowed records an admitted check for the given limiter name.
	RecordAllowed(limiter string)

	// RecordDenied records a quota rejection for the given limiter name.
	RecordDenied(limiter string)

	// RecordCheckDuration records how long one admission check took.
	RecordCheckDuration(limiter string, d time.Duration)

	// SetActiveKeys records the number of identities currently tracked.
	SetActiveKeys(limiter string, count int)
}

// Clock abstracts time for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock backed by the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
