// Package cache provides fingerprint-keyed memoization of expensive
// call results over pluggable storage backends.
//
// The cache is an optimization layer, never a source of truth: a lookup
// that fails for any reason (including a corrupted entry) degrades to
// a miss, and concurrent writers for the same fingerprint resolve
// last-writer-wins because their results are assumed equivalent.
package cache

import (
	"context"
	"time"
)

// DefaultKeyPrefix namespaces cache keys in the shared store.
const DefaultKeyPrefix = "cache:"

// Cache stores serialized call results under deterministic fingerprints.
//
// All implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value stored under key, or ok=false on a miss.
	// Store failures and undecodable entries are treated as misses, not
	// errors; a degraded cache must never fail the wrapped call.
	Get(ctx context.Context, key string) (value []byte, ok bool)

	// Set stores value under key with the given TTL. A ttl <= 0 applies
	// the implementation's configured default. Overwriting an existing
	// key is permitted and silent.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the entry for key, if present.
	Delete(ctx context.Context, key string) error
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
