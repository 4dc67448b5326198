// Package call provides the resilient call wrapper, composing admission
// control, result memoization, and retry with backoff around a single
// expensive operation such as a model invocation or an article fetch.
//
// The composition order is fixed: admission first, then cache lookup,
// then the retried call, then the cache write. AdmitOnMissOnly flips
// the first two steps so cache hits are served without spending quota.
package call

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"medlens/internal/resilience/retry"
	"medlens/pkg/cache"
	"medlens/pkg/ratelimit"
)

// StageFunc is the expensive operation being wrapped. Inputs are the
// named arguments of the call and double as its cache identity.
type StageFunc func(ctx context.Context, inputs map[string]string) (string, error)

// Limiter is the admission controller consulted before each call.
type Limiter interface {
	Check(ctx context.Context, identity string) (*ratelimit.Decision, error)
}

// Config holds the configuration for a Wrapper.
type Config struct {
	// Stage names the wrapped operation. It prefixes cache fingerprints
	// and labels logs and metrics.
	Stage string

	// CacheTTL bounds result freshness. Zero applies the cache default.
	CacheTTL time.Duration

	// Retry governs the backoff loop around the wrapped function.
	Retry retry.Config

	// AdmitOnMissOnly serves cache hits before consulting the limiter,
	// so memoized results cost no quota. The default consults the
	// limiter first, which keeps admission accounting independent of
	// cache state.
	AdmitOnMissOnly bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics defaults to NoopMetrics.
	Metrics Metrics
}

// Wrapper executes a StageFunc under admission control with memoized
// results and retried transient failures. A nil limiter disables
// admission; a nil cache disables memoization.
type Wrapper struct {
	fn      StageFunc
	limiter Limiter
	cache   cache.Cache
	cfg     Config
}

// New creates a resilient call wrapper around fn.
func New(fn StageFunc, limiter Limiter, c cache.Cache, cfg Config) (*Wrapper, error) {
	if fn == nil {
		return nil, fmt.Errorf("call: fn must not be nil")
	}
	if cfg.Stage == "" {
		return nil, fmt.Errorf("call: stage name must not be empty")
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &NoopMetrics{}
	}
	return &Wrapper{fn: fn, limiter: limiter, cache: c, cfg: cfg}, nil
}

// Do runs the wrapped call for the given caller identity.
//
// A limiter denial surfaces as *ratelimit.QuotaExceededError without
// invoking the wrapped function. Within the cache TTL, repeated calls
// with identical inputs return the memoized result and invoke the
// function at most once.
func (w *Wrapper) Do(ctx context.Context, identity string, inputs map[string]string) (string, error) {
	key := cache.Fingerprint(w.cfg.Stage, inputs)

	if w.cfg.AdmitOnMissOnly {
		if result, ok := w.lookup(ctx, key); ok {
			return result, nil
		}
		if err := w.admit(ctx, identity); err != nil {
			return "", err
		}
	} else {
		if err := w.admit(ctx, identity); err != nil {
			return "", err
		}
		if result, ok := w.lookup(ctx, key); ok {
			return result, nil
		}
	}

	start := time.Now()
	var result string
	err := retry.WithBackoff(ctx, w.cfg.Retry, func() error {
		value, fnErr := w.fn(ctx, inputs)
		if fnErr != nil {
			return fnErr
		}
		result = value
		return nil
	})
	w.cfg.Metrics.RecordCallDuration(w.cfg.Stage, time.Since(start))
	if err != nil {
		w.cfg.Metrics.RecordFailure(w.cfg.Stage)
		return "", fmt.Errorf("stage %s: %w", w.cfg.Stage, err)
	}

	w.store(ctx, key, result)
	return result, nil
}

func (w *Wrapper) admit(ctx context.Context, identity string) error {
	if w.limiter == nil || identity == "" {
		return nil
	}
	decision, err := w.limiter.Check(ctx, identity)
	if err != nil {
		return err
	}
	w.cfg.Logger.DebugContext(ctx, "call admitted",
		slog.String("stage", w.cfg.Stage),
		slog.Int("remaining", decision.Remaining),
	)
	return nil
}

func (w *Wrapper) lookup(ctx context.Context, key string) (string, bool) {
	if w.cache == nil {
		return "", false
	}
	value, ok := w.cache.Get(ctx, key)
	if !ok {
		w.cfg.Metrics.RecordCacheMiss(w.cfg.Stage)
		return "", false
	}
	w.cfg.Metrics.RecordCacheHit(w.cfg.Stage)
	w.cfg.Logger.DebugContext(ctx, "serving memoized result",
		slog.String("stage", w.cfg.Stage),
		slog.String("fingerprint", key),
	)
	return string(value), true
}

// store writes the result back to the cache. A write failure costs a
// future recomputation, never the call that just succeeded.
func (w *Wrapper) store(ctx context.Context, key, result string) {
	if w.cache == nil {
		return
	}
	if err := w.cache.Set(ctx, key, []byte(result), w.cfg.CacheTTL); err != nil {
		w.cfg.Logger.WarnContext(ctx, "failed to memoize result",
			slog.String("stage", w.cfg.Stage),
			slog.String("error", err.Error()),
		)
	}
}
