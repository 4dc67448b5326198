// Package main provides a CLI command for one-shot article analysis.
// Usage: medlens-analyze --url URL [--output json] [--timeout 2m]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"medlens/internal/infra/analyst"
	"medlens/internal/infra/fetcher"
	"medlens/internal/observability/logging"
	"medlens/internal/resilience/call"
	"medlens/internal/resilience/retry"
	"medlens/internal/usecase/analyze"
	"medlens/pkg/cache"
)

func main() {
	var (
		url          string
		outputFormat string
		timeout      time.Duration
	)

	flag.StringVar(&url, "url", "", "Article URL to analyze")
	flag.StringVar(&outputFormat, "output", "text", "Output format: text or json")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Overall analysis timeout")
	flag.Parse()

	if url == "" {
		fmt.Fprintln(os.Stderr, "Error: --url is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: medlens-analyze --url URL [--output json] [--timeout 2m]")
		os.Exit(2)
	}

	logger := logging.NewTextLogger()
	slog.SetDefault(logger)

	svc := buildPipeline(logger)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := svc.Analyze(ctx, "cli", "", url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: analysis failed: %v\n", err)
		os.Exit(1)
	}

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to encode result: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printText(result)
}

// buildPipeline wires a single-process pipeline: in-memory result cache,
// no admission control, provider selected from the environment.
func buildPipeline(logger *slog.Logger) *analyze.Service {
	fetchCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid fetcher configuration: %v\n", err)
		os.Exit(1)
	}
	var articleFetcher analyze.ContentFetcher = fetcher.NewArticleFetcher(fetchCfg)

	var modelAnalyst analyze.Analyst
	switch {
	case os.Getenv("ANTHROPIC_API_KEY") != "":
		modelAnalyst = analyst.NewClaude(os.Getenv("ANTHROPIC_API_KEY"))
	case os.Getenv("OPENAI_API_KEY") != "":
		modelAnalyst = analyst.NewOpenAI(os.Getenv("OPENAI_API_KEY"))
	default:
		logger.Warn("no provider API key set, analysis runs in no-op mode")
		modelAnalyst = analyst.NewNoOp()
	}

	resultCache := cache.NewMemoryStore(cache.MemoryStoreConfig{})

	newStage := func(stage string, retryCfg retry.Config, fn call.StageFunc) analyze.Stage {
		wrapper, err := call.New(fn, nil, resultCache, call.Config{
			Stage:  stage,
			Retry:  retryCfg,
			Logger: logger,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create stage %s: %v\n", stage, err)
			os.Exit(1)
		}
		return wrapper
	}

	stages := analyze.Stages{
		Fetch: newStage(analyze.StageFetchArticle, retry.ArticleFetchConfig(),
			func(ctx context.Context, inputs map[string]string) (string, error) {
				return articleFetcher.FetchArticle(ctx, inputs["url"])
			}),
		Summarize: newStage(analyze.StageSummarize, retry.AIAPIConfig(),
			func(ctx context.Context, inputs map[string]string) (string, error) {
				return modelAnalyst.Summarize(ctx, inputs["article_text"])
			}),
		Terminology: newStage(analyze.StageExplainTerminology, retry.AIAPIConfig(),
			func(ctx context.Context, inputs map[string]string) (string, error) {
				return modelAnalyst.ExplainTerminology(ctx, inputs["article_text"])
			}),
		Quality: newStage(analyze.StageAssessQuality, retry.AIAPIConfig(),
			func(ctx context.Context, inputs map[string]string) (string, error) {
				return modelAnalyst.AssessQuality(ctx, inputs["article_text"])
			}),
	}

	svc, err := analyze.NewService(stages)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create pipeline: %v\n", err)
		os.Exit(1)
	}
	return svc
}

// printText writes a human-readable report to stdout.
func printText(result *analyze.Result) {
	fmt.Printf("Article: %s\n\n", result.URL)
	fmt.Println("Summary")
	fmt.Println("-------")
	fmt.Println(result.Summary)

	if len(result.Terminology) > 0 {
		fmt.Println()
		fmt.Println("Terminology")
		fmt.Println("-----------")
		for term, explanation := range result.Terminology {
			fmt.Printf("  %s: %s\n", term, explanation)
		}
	}

	if len(result.QualityAssessment) > 0 {
		fmt.Println()
		fmt.Println("Study Quality")
		fmt.Println("-------------")
		for field, value := range result.QualityAssessment {
			fmt.Printf("  %s: %v\n", field, value)
		}
	}
}
