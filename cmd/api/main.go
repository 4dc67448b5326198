// Package main runs the medlens API server: an HTTP front end over the
// article analysis pipeline with Redis-backed admission control and
// result caching.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	hhttp "medlens/internal/handler/http"
	"medlens/internal/handler/http/requestid"
	"medlens/internal/handler/http/workflow"
	"medlens/internal/infra/analyst"
	"medlens/internal/infra/fetcher"
	"medlens/internal/infra/store"
	"medlens/internal/observability/logging"
	"medlens/internal/observability/tracing"
	"medlens/internal/resilience/call"
	"medlens/internal/resilience/retry"
	"medlens/internal/usecase/analyze"
	"medlens/pkg/cache"
	"medlens/pkg/config"
	"medlens/pkg/ratelimit"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	version := getVersion()

	client := store.Open()
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}()

	resilienceCfg := config.LoadResilienceConfig()
	limiter, rlStore := initLimiter(logger, client, resilienceCfg)
	resultCache := cache.NewRedisStore(client, cache.RedisStoreConfig{Logger: logger})

	svc := buildPipeline(logger, limiter, resultCache, resilienceCfg)

	handler := setupRoutes(logger, client, limiter, rlStore, svc, version)

	runServer(logger, handler, limiter, resilienceCfg, version)
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// initLimiter builds the Redis-backed sliding-window admission controller.
func initLimiter(logger *slog.Logger, client redis.UniversalClient, cfg config.ResilienceConfig) (*ratelimit.Limiter, ratelimit.Store) {
	rlStore := ratelimit.NewRedisStore(client, "rate_limit:")

	limiterCfg := cfg.RateLimit
	limiterCfg.Metrics = ratelimit.NewPrometheusMetrics()

	limiter, err := ratelimit.NewLimiter(rlStore, limiterCfg)
	if err != nil {
		logger.Error("failed to create rate limiter", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("admission control initialized",
		slog.Int("limit", limiterCfg.Limit),
		slog.Duration("window", limiterCfg.Window),
		slog.Bool("admit_on_miss_only", cfg.AdmitOnMissOnly))

	return limiter, rlStore
}

// selectAnalyst picks the model provider from the environment:
// Anthropic if ANTHROPIC_API_KEY is set, otherwise OpenAI if
// OPENAI_API_KEY is set, otherwise a no-op analyst with a warning.
func selectAnalyst(logger *slog.Logger) analyze.Analyst {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return analyst.NewClaude(key)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return analyst.NewOpenAI(key)
	}
	logger.Warn("no provider API key set, analysis runs in no-op mode")
	return analyst.NewNoOp()
}

// buildPipeline wires the fetcher and analyst into resilient stage
// executors and creates the pipeline orchestrator.
func buildPipeline(logger *slog.Logger, limiter *ratelimit.Limiter, resultCache cache.Cache, cfg config.ResilienceConfig) *analyze.Service {
	fetchCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Error("invalid article fetcher configuration", slog.Any("error", err))
		os.Exit(1)
	}
	var articleFetcher analyze.ContentFetcher = fetcher.NewArticleFetcher(fetchCfg)
	modelAnalyst := selectAnalyst(logger)

	fetchRetry := applyRetryBudget(retry.ArticleFetchConfig(), cfg.FetchRetry)
	stageRetry := applyRetryBudget(retry.AIAPIConfig(), cfg.StageRetry)

	callMetrics := &call.PrometheusMetrics{}

	newStage := func(stage string, ttl time.Duration, retryCfg retry.Config, fn call.StageFunc) analyze.Stage {
		wrapper, err := call.New(fn, limiter, resultCache, call.Config{
			Stage:           stage,
			CacheTTL:        ttl,
			Retry:           retryCfg,
			AdmitOnMissOnly: cfg.AdmitOnMissOnly,
			Logger:          logger,
			Metrics:         callMetrics,
		})
		if err != nil {
			logger.Error("failed to create stage wrapper",
				slog.String("stage", stage),
				slog.Any("error", err))
			os.Exit(1)
		}
		return wrapper
	}

	stages := analyze.Stages{
		Fetch: newStage(analyze.StageFetchArticle, cfg.FetchCacheTTL, fetchRetry,
			func(ctx context.Context, inputs map[string]string) (string, error) {
				return articleFetcher.FetchArticle(ctx, inputs["url"])
			}),
		Summarize: newStage(analyze.StageSummarize, cfg.StageCacheTTL, stageRetry,
			func(ctx context.Context, inputs map[string]string) (string, error) {
				return modelAnalyst.Summarize(ctx, inputs["article_text"])
			}),
		Terminology: newStage(analyze.StageExplainTerminology, cfg.StageCacheTTL, stageRetry,
			func(ctx context.Context, inputs map[string]string) (string, error) {
				return modelAnalyst.ExplainTerminology(ctx, inputs["article_text"])
			}),
		Quality: newStage(analyze.StageAssessQuality, cfg.StageCacheTTL, stageRetry,
			func(ctx context.Context, inputs map[string]string) (string, error) {
				return modelAnalyst.AssessQuality(ctx, inputs["article_text"])
			}),
	}

	svc, err := analyze.NewService(stages)
	if err != nil {
		logger.Error("failed to create pipeline", slog.Any("error", err))
		os.Exit(1)
	}
	return svc
}

// applyRetryBudget overlays the externally supplied attempt and delay
// budget onto a stage's retry profile, keeping the profile's backoff
// multiplier and jitter.
func applyRetryBudget(base retry.Config, budget config.RetryBudget) retry.Config {
	base.MaxAttempts = budget.MaxAttempts
	base.InitialDelay = budget.InitialDelay
	base.MaxDelay = budget.MaxDelay
	return base
}

// setupRoutes registers all HTTP routes and applies the middleware chain.
func setupRoutes(
	logger *slog.Logger,
	client redis.UniversalClient,
	limiter *ratelimit.Limiter,
	rlStore ratelimit.Store,
	svc *analyze.Service,
	version string,
) http.Handler {
	mux := http.NewServeMux()

	workflow.Register(mux, svc)

	mux.Handle("/health", &hhttp.HealthHandler{
		Redis:          client,
		Version:        version,
		RateLimitStore: rlStore,
		Limiter:        limiter,
	})
	mux.Handle("/ready", &hhttp.ReadyHandler{Redis: client})
	mux.Handle("/live", &hhttp.LiveHandler{})
	mux.Handle("/metrics", hhttp.MetricsHandler())

	// Middleware chain, applied in reverse order (innermost first):
	// request ID, tracing, recover, logging, body limit, metrics
	var handler http.Handler = mux
	handler = hhttp.MetricsMiddleware(handler)
	handler = hhttp.LimitRequestBody(1 << 20)(handler) // 1MB limit
	handler = hhttp.Logging(logger)(handler)
	handler = hhttp.Recover(logger)(handler)
	handler = tracing.Middleware(handler)
	handler = requestid.Middleware(handler)

	return handler
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, handler http.Handler, limiter *ratelimit.Limiter, cfg config.ResilienceConfig, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background purge of expired rate-limit entries. The Redis store
	// expires keys natively; this bounds memory for in-memory stores.
	go limiter.StartCleanup(ctx, cfg.CleanupInterval)

	addr := ":" + config.GetEnvString("PORT", "8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	// Stop background goroutines before draining connections
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
