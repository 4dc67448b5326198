package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory Store.
//
// It tracks request timestamps per identity in a map guarded by a
// mutex, which makes the whole Reserve sequence naturally atomic. It
// caps the number of tracked identities and evicts the least recently
// used key when the cap is reached, so memory stays bounded even under
// identity churn. Suitable for tests and single-instance deployments;
// multi-instance deployments share a RedisStore instead.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	maxKeys int
	clock   Clock
}

// window holds the admitted timestamps for one identity.
type window struct {
	entries    []time.Time
	lastAccess time.Time
}

// MemoryStoreConfig holds configuration for MemoryStore.
type MemoryStoreConfig struct {
	// MaxKeys caps the number of identities tracked in memory.
	// Default: 10000.
	MaxKeys int

	// Clock provides time operations for testing. Default: SystemClock.
	Clock Clock
}

// NewMemoryStore creates an in-memory store with the given configuration.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	if cfg.Clock == nil {
		cfg.Clock = &SystemClock{}
	}
	return &MemoryStore{
		windows: make(map[string]*window),
		maxKeys: cfg.MaxKeys,
		clock:   cfg.Clock,
	}
}

// Reserve implements Store. The mutex makes purge, count, insert, and
// the implicit expiry refresh a single atomic unit per store.
func (s *MemoryStore) Reserve(_ context.Context, key string, now, cutoff time.Time, limit int, windowLen time.Duration) (bool, int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, exists := s.windows[key]
	if !exists {
		if len(s.windows) >= s.maxKeys {
			s.evictLocked(cutoff)
		}
		w = &window{entries: make([]time.Time, 0, limit)}
		s.windows[key] = w
	}
	w.lastAccess = now

	// Purge entries that fell out of the window.
	kept := w.entries[:0]
	for _, ts := range w.entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.entries = kept

	if len(w.entries) >= limit {
		// The caller may retry once the oldest blocking entry expires.
		retryAfter := w.entries[0].Add(windowLen).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, len(w.entries), retryAfter, nil
	}

	w.entries = append(w.entries, now)
	return true, len(w.entries), 0, nil
}

// Cleanup removes identities whose every entry predates cutoff.
func (s *MemoryStore) Cleanup(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, w := range s.windows {
		if allBefore(w.entries, cutoff) {
			delete(s.windows, key)
		}
	}
	return nil
}

// KeyCount returns the number of identities currently tracked.
func (s *MemoryStore) KeyCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows), nil
}

// evictLocked frees capacity for a new identity. Fully expired windows
// go first; if none qualify, the least recently used identity goes.
// Caller must hold s.mu.
func (s *MemoryStore) evictLocked(cutoff time.Time) {
	for key, w := range s.windows {
		if allBefore(w.entries, cutoff) {
			delete(s.windows, key)
			return
		}
	}

	var oldestKey string
	var oldestAccess time.Time
	for key, w := range s.windows {
		if oldestKey == "" || w.lastAccess.Before(oldestAccess) {
			oldestKey = key
			oldestAccess = w.lastAccess
		}
	}
	if oldestKey != "" {
		delete(s.windows, oldestKey)
	}
}

// allBefore reports whether every timestamp is at or before cutoff.
func allBefore(entries []time.Time, cutoff time.Time) bool {
	for _, ts := range entries {
		if ts.After(cutoff) {
			return false
		}
	}
	return true
}
