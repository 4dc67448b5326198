package config

import (
	"log/slog"
	"time"

	"medlens/pkg/ratelimit"
)

// Default resilience settings, used when the environment does not
// override them.
const (
	DefaultRequestQuota    = 10
	DefaultWindow          = 60 * time.Second
	DefaultCleanupInterval = 5 * time.Minute
	DefaultFetchCacheTTL   = 1 * time.Hour
	DefaultStageCacheTTL   = 6 * time.Hour

	// Budget cap: no retry profile may back off longer than this.
	maxRetryDelay = 10 * time.Minute
)

// RetryBudget is the externally supplied attempt and delay budget for
// one stage's retry loop.
type RetryBudget struct {
	// MaxAttempts is the number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration
}

// Default retry budgets: fetching retries more aggressively than the
// model calls, which cost money per attempt.
var (
	defaultFetchRetry = RetryBudget{MaxAttempts: 4, InitialDelay: 1 * time.Second, MaxDelay: 15 * time.Second}
	defaultStageRetry = RetryBudget{MaxAttempts: 3, InitialDelay: 1 * time.Second, MaxDelay: 10 * time.Second}
)

// ResilienceConfig groups the settings for the admission controller,
// the per-stage result caches, and the per-stage retry budgets.
type ResilienceConfig struct {
	// RateLimit configures the sliding-window admission controller.
	RateLimit ratelimit.Config

	// CleanupInterval is how often expired rate-limit entries are purged.
	CleanupInterval time.Duration

	// FetchCacheTTL is the result cache TTL for fetched article text.
	FetchCacheTTL time.Duration

	// StageCacheTTL is the result cache TTL for analysis stage outputs.
	StageCacheTTL time.Duration

	// FetchRetry is the retry budget for the article fetch stage.
	FetchRetry RetryBudget

	// StageRetry is the retry budget for the three analysis stages.
	StageRetry RetryBudget

	// AdmitOnMissOnly, when true, consults the cache before spending
	// admission quota, so repeated identical requests served from cache
	// do not count against the caller's window.
	AdmitOnMissOnly bool
}

// LoadResilienceConfig loads resilience configuration from environment
// variables, logging warnings and falling back to defaults on invalid
// values.
//
// Environment variables:
//   - REQUEST_QUOTA: admitted requests per window per identity (default: 10)
//   - WINDOW_SECONDS: sliding window length in seconds (default: 60)
//   - RATELIMIT_CLEANUP_INTERVAL: store cleanup interval (default: 5m)
//   - CACHE_FETCH_TTL: article text cache TTL (default: 1h)
//   - CACHE_STAGE_TTL: analysis output cache TTL (default: 6h)
//   - RETRY_FETCH_MAX_ATTEMPTS / _INITIAL_DELAY / _MAX_DELAY:
//     fetch stage retry budget (default: 4 / 1s / 15s)
//   - RETRY_STAGE_MAX_ATTEMPTS / _INITIAL_DELAY / _MAX_DELAY:
//     analysis stage retry budget (default: 3 / 1s / 10s)
//   - ADMIT_ON_MISS_ONLY: check cache before admission (default: false)
func LoadResilienceConfig() ResilienceConfig {
	cfg := ResilienceConfig{
		RateLimit: ratelimit.Config{
			Name:   "workflow",
			Limit:  GetEnvInt("REQUEST_QUOTA", DefaultRequestQuota),
			Window: time.Duration(GetEnvInt("WINDOW_SECONDS", int(DefaultWindow/time.Second))) * time.Second,
		},
		CleanupInterval: GetEnvDuration("RATELIMIT_CLEANUP_INTERVAL", DefaultCleanupInterval),
		FetchCacheTTL:   GetEnvDuration("CACHE_FETCH_TTL", DefaultFetchCacheTTL),
		StageCacheTTL:   GetEnvDuration("CACHE_STAGE_TTL", DefaultStageCacheTTL),
		FetchRetry:      loadRetryBudget("RETRY_FETCH", defaultFetchRetry),
		StageRetry:      loadRetryBudget("RETRY_STAGE", defaultStageRetry),
		AdmitOnMissOnly: GetEnvBool("ADMIT_ON_MISS_ONLY", false),
	}

	if err := cfg.RateLimit.Validate(); err != nil {
		slog.Warn("Invalid rate limit configuration, using defaults",
			slog.Any("error", err))
		cfg.RateLimit.Limit = DefaultRequestQuota
		cfg.RateLimit.Window = DefaultWindow
	}

	if err := ValidatePositiveDuration(cfg.CleanupInterval); err != nil {
		slog.Warn("Invalid cleanup interval, using default",
			slog.Any("error", err))
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if err := ValidatePositiveDuration(cfg.FetchCacheTTL); err != nil {
		slog.Warn("Invalid fetch cache TTL, using default",
			slog.Any("error", err))
		cfg.FetchCacheTTL = DefaultFetchCacheTTL
	}
	if err := ValidatePositiveDuration(cfg.StageCacheTTL); err != nil {
		slog.Warn("Invalid stage cache TTL, using default",
			slog.Any("error", err))
		cfg.StageCacheTTL = DefaultStageCacheTTL
	}

	return cfg
}

// loadRetryBudget reads one stage's retry budget from
// <prefix>_MAX_ATTEMPTS, <prefix>_INITIAL_DELAY, and <prefix>_MAX_DELAY,
// falling back to the given defaults on invalid values.
func loadRetryBudget(prefix string, def RetryBudget) RetryBudget {
	budget := RetryBudget{
		MaxAttempts:  GetEnvInt(prefix+"_MAX_ATTEMPTS", def.MaxAttempts),
		InitialDelay: GetEnvDuration(prefix+"_INITIAL_DELAY", def.InitialDelay),
		MaxDelay:     GetEnvDuration(prefix+"_MAX_DELAY", def.MaxDelay),
	}

	if budget.MaxAttempts < 1 {
		slog.Warn("Invalid retry attempt count, using default",
			slog.String("prefix", prefix),
			slog.Int("value", budget.MaxAttempts))
		budget.MaxAttempts = def.MaxAttempts
	}
	if err := ValidatePositiveDuration(budget.InitialDelay); err != nil {
		slog.Warn("Invalid retry initial delay, using default",
			slog.String("prefix", prefix),
			slog.Any("error", err))
		budget.InitialDelay = def.InitialDelay
	}
	if err := ValidateDurationRange(budget.MaxDelay, budget.InitialDelay, maxRetryDelay); err != nil {
		slog.Warn("Invalid retry max delay, using default",
			slog.String("prefix", prefix),
			slog.Any("error", err))
		budget.MaxDelay = def.MaxDelay
	}

	return budget
}
