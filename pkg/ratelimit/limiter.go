package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Limiter is a sliding-window-log admission controller.
//
// Each accepted call leaves one timestamped entry under the caller's
// key; a check purges entries older than the window, counts the rest,
// and admits only while the count stays below the limit. The purge,
// count, insert, and expiry refresh run atomically inside the Store.
type Limiter struct {
	name    string
	store   Store
	limit   int
	window  time.Duration
	clock   Clock
	metrics Metrics
}

// Config holds Limiter construction parameters.
type Config struct {
	// Name identifies this limiter in logs and metrics (e.g. "workflow").
	Name string

	// Limit is the maximum number of admitted calls per window.
	Limit int

	// Window is the sliding window length.
	Window time.Duration

	// Clock provides time operations; defaults to SystemClock.
	Clock Clock

	// Metrics records admission outcomes; defaults to a no-op collector.
	Metrics Metrics
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", c.Limit)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %v", c.Window)
	}
	return nil
}

// NewLimiter creates a Limiter over the given store.
func NewLimiter(store Store, cfg Config) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("store must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid limiter config: %w", err)
	}
	if cfg.Clock == nil {
		cfg.Clock = &SystemClock{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &NoopMetrics{}
	}
	name := cfg.Name
	if name == "" {
		name = "default"
	}

	return &Limiter{
		name:    name,
		store:   store,
		limit:   cfg.Limit,
		window:  cfg.Window,
		clock:   cfg.Clock,
		metrics: cfg.Metrics,
	}, nil
}

// Check decides whether the caller identified by identity may proceed.
//
// On admission it returns an allowed Decision and has already recorded
// the call in the window. On rejection it returns a *QuotaExceededError
// whose RetryAfter hint comes from the store's remaining key expiry.
// A rejection is a final answer for this check; callers must not retry
// before the hinted duration has passed.
func (l *Limiter) Check(ctx context.Context, identity string) (*Decision, error) {
	if identity == "" {
		return nil, fmt.Errorf("identity must not be empty")
	}

	start := l.clock.Now()
	cutoff := start.Add(-l.window)

	allowed, count, retryAfter, err := l.store.Reserve(ctx, identity, start, cutoff, l.limit, l.window)
	l.metrics.RecordCheckDuration(l.name, l.clock.Now().Sub(start))
	if err != nil {
		return nil, fmt.Errorf("admission check for %q failed: %w", identity, err)
	}

	if !allowed {
		if retryAfter <= 0 {
			retryAfter = l.window
		}
		l.metrics.RecordDenied(l.name)
		slog.Debug("admission denied",
			slog.String("limiter", l.name),
			slog.String("key", identity),
			slog.Int("limit", l.limit),
			slog.Duration("retry_after", retryAfter))
		return &Decision{
				Key:        identity,
				Allowed:    false,
				Limit:      l.limit,
				Remaining:  0,
				ResetAt:    start.Add(retryAfter),
				RetryAfter: retryAfter,
			}, &QuotaExceededError{
				Key:        identity,
				Limit:      l.limit,
				RetryAfter: retryAfter,
			}
	}

	l.metrics.RecordAllowed(l.name)
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &Decision{
		Key:       identity,
		Allowed:   true,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   start.Add(l.window),
	}, nil
}

// Window returns the configured sliding window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Limit returns the configured per-window quota.
func (l *Limiter) Limit() int {
	return l.limit
}

// StartCleanup runs periodic store cleanup until ctx is cancelled.
// Backends with native key expiry treat Cleanup as a no-op, but the
// in-memory store relies on it to bound memory for idle identities.
func (l *Limiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := l.clock.Now().Add(-l.window)
			if err := l.store.Cleanup(ctx, cutoff); err != nil {
				slog.Warn("rate limit cleanup failed",
					slog.String("limiter", l.name),
					slog.Any("error", err))
				continue
			}
			if count, err := l.store.KeyCount(ctx); err == nil {
				l.metrics.SetActiveKeys(l.name, count)
			}
		}
	}
}
