package cache

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultTTL applies when Set is called with a non-positive TTL.
	DefaultTTL = 1 * time.Hour

	// DefaultMaxEntries caps in-memory cache growth.
	DefaultMaxEntries = 10000
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Cache for single-instance deployments
// and tests. Entries expire lazily on read and are evicted when the
// entry cap is reached, expired entries first.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	defaultTTL time.Duration
	clock      Clock
}

// MemoryStoreConfig configures a MemoryStore. Zero values fall back to
// the package defaults.
type MemoryStoreConfig struct {
	MaxEntries int
	DefaultTTL time.Duration
	Clock      Clock
}

// NewMemoryStore creates an in-memory Cache.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = &SystemClock{}
	}
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		maxEntries: cfg.MaxEntries,
		defaultTTL: cfg.DefaultTTL,
		clock:      cfg.Clock,
	}
}

// Get implements Cache.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !s.clock.Now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Set implements Cache.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictLocked()
	}
	s.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: s.clock.Now().Add(ttl),
	}
	return nil
}

// Delete implements Cache.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns the number of stored entries, including any not yet
// lazily expired.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// evictLocked removes expired entries, falling back to the entry
// closest to expiry when nothing has expired yet. Caller holds mu.
func (s *MemoryStore) evictLocked() {
	now := s.clock.Now()
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
	if len(s.entries) < s.maxEntries {
		return
	}

	var victim string
	var soonest time.Time
	for key, entry := range s.entries {
		if victim == "" || entry.expiresAt.Before(soonest) {
			victim = key
			soonest = entry.expiresAt
		}
	}
	if victim != "" {
		delete(s.entries, victim)
	}
}
