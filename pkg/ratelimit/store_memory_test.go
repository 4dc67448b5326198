package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// MockClock is a controllable Clock for tests.
type MockClock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func TestMemoryStore_Reserve(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := 1 * time.Minute

	tests := []struct {
		name        string
		prefill     int
		prefillAge  time.Duration
		limit       int
		wantAllowed bool
		wantCount   int
	}{
		{
			name:        "first request admitted",
			limit:       3,
			wantAllowed: true,
			wantCount:   1,
		},
		{
			name:        "under limit admitted",
			prefill:     2,
			limit:       3,
			wantAllowed: true,
			wantCount:   3,
		},
		{
			name:        "at limit denied",
			prefill:     3,
			limit:       3,
			wantAllowed: false,
			wantCount:   3,
		},
		{
			name:        "expired entries do not count",
			prefill:     3,
			prefillAge:  2 * time.Minute,
			limit:       3,
			wantAllowed: true,
			wantCount:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(MemoryStoreConfig{MaxKeys: 10})
			cutoff := now.Add(-window)

			for i := 0; i < tt.prefill; i++ {
				ts := now.Add(-tt.prefillAge).Add(time.Duration(i) * time.Second)
				allowed, _, _, err := store.Reserve(ctx, "caller-1", ts, ts.Add(-window), tt.limit+tt.prefill, window)
				if err != nil {
					t.Fatalf("prefill Reserve() error = %v", err)
				}
				if !allowed {
					t.Fatalf("prefill Reserve() unexpectedly denied")
				}
			}

			allowed, count, retryAfter, err := store.Reserve(ctx, "caller-1", now, cutoff, tt.limit, window)
			if err != nil {
				t.Fatalf("Reserve() error = %v", err)
			}
			if allowed != tt.wantAllowed {
				t.Errorf("Reserve() allowed = %v, want %v", allowed, tt.wantAllowed)
			}
			if count != tt.wantCount {
				t.Errorf("Reserve() count = %d, want %d", count, tt.wantCount)
			}
			if !allowed && retryAfter <= 0 {
				t.Errorf("denied Reserve() should return a positive retry-after hint, got %v", retryAfter)
			}
			if allowed && retryAfter != 0 {
				t.Errorf("admitted Reserve() retryAfter = %v, want 0", retryAfter)
			}
		})
	}
}

func TestMemoryStore_Reserve_RetryAfterHint(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := 60 * time.Second
	store := NewMemoryStore(MemoryStoreConfig{MaxKeys: 10})

	// Fill the quota at t+0s and t+10s.
	for _, offset := range []time.Duration{0, 10 * time.Second} {
		ts := start.Add(offset)
		allowed, _, _, err := store.Reserve(ctx, "caller-1", ts, ts.Add(-window), 2, window)
		if err != nil {
			t.Fatalf("Reserve() error = %v", err)
		}
		if !allowed {
			t.Fatalf("Reserve() at +%v unexpectedly denied", offset)
		}
	}

	// At t+20s the oldest entry frees its slot at t+60s, so the hint
	// must be the 40s until then, not the full window.
	now := start.Add(20 * time.Second)
	allowed, _, retryAfter, err := store.Reserve(ctx, "caller-1", now, now.Add(-window), 2, window)
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if allowed {
		t.Fatal("Reserve() over quota should be denied")
	}
	if retryAfter != 40*time.Second {
		t.Errorf("retryAfter = %v, want 40s", retryAfter)
	}

	// Once the oldest entry has slid out, the caller is admitted again.
	later := start.Add(61 * time.Second)
	allowed, _, _, err = store.Reserve(ctx, "caller-1", later, later.Add(-window), 2, window)
	if err != nil {
		t.Fatalf("Reserve() after window error = %v", err)
	}
	if !allowed {
		t.Error("Reserve() after oldest entry expired should be admitted")
	}
}

func TestMemoryStore_ReserveConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(MemoryStoreConfig{MaxKeys: 10})
	now := time.Now()
	window := 1 * time.Minute
	limit := 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, _, _, err := store.Reserve(ctx, "hot-key", now, now.Add(-window), limit, window)
			if err != nil {
				t.Errorf("Reserve() error = %v", err)
				return
			}
			if allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != limit {
		t.Errorf("admitted %d concurrent requests, want exactly %d", admitted, limit)
	}
}

func TestMemoryStore_Eviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(MemoryStoreConfig{MaxKeys: 3})
	now := time.Now()
	window := 1 * time.Minute

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("caller-%d", i)
		ts := now.Add(time.Duration(i) * time.Second)
		if _, _, _, err := store.Reserve(ctx, key, ts, ts.Add(-window), 10, window); err != nil {
			t.Fatalf("Reserve() error = %v", err)
		}
	}

	count, err := store.KeyCount(ctx)
	if err != nil {
		t.Fatalf("KeyCount() error = %v", err)
	}
	if count > 3 {
		t.Errorf("KeyCount() = %d, want at most 3 after eviction", count)
	}
}

func TestMemoryStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(MemoryStoreConfig{MaxKeys: 10})
	now := time.Now()
	window := 1 * time.Minute

	old := now.Add(-5 * time.Minute)
	if _, _, _, err := store.Reserve(ctx, "stale", old, old.Add(-window), 10, window); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if _, _, _, err := store.Reserve(ctx, "fresh", now, now.Add(-window), 10, window); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}

	if err := store.Cleanup(ctx, now.Add(-window)); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	count, err := store.KeyCount(ctx)
	if err != nil {
		t.Fatalf("KeyCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("KeyCount() after cleanup = %d, want 1", count)
	}
}
