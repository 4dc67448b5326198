package analyst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"medlens/internal/domain/entity"
	"medlens/internal/observability/metrics"
	"medlens/internal/resilience/circuitbreaker"
)

// DefaultClaudeModel is the model used when ANALYST_MODEL is unset.
var DefaultClaudeModel = "claude-sonnet-4-5-20250929"

// Claude implements the Analyst interface using Anthropic's Claude API.
// A token bucket paces provider calls and a circuit breaker sheds load
// during outages. Retrying is deliberately left to the caller so a
// single backoff policy governs each pipeline stage.
type Claude struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	pacer          *rate.Limiter
	config         Config
}

// NewClaude creates a new Claude analyst with the given API key.
func NewClaude(apiKey string) *Claude {
	config := LoadConfig(DefaultClaudeModel)

	slog.Info("Initialized Claude analyst with configuration",
		slog.String("model", config.Model),
		slog.Float64("rps", config.RequestsPerSecond),
		slog.Int("max_tokens", config.MaxTokens))

	return &Claude{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		pacer:          rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		config:         config,
	}
}

// Summarize implements the Analyst interface.
func (c *Claude) Summarize(ctx context.Context, articleText string) (string, error) {
	return c.complete(ctx, opSummarize, summarizeSystemPrompt, articleText)
}

// ExplainTerminology implements the Analyst interface.
func (c *Claude) ExplainTerminology(ctx context.Context, articleText string) (string, error) {
	return c.complete(ctx, opTerminology, terminologySystemPrompt, articleText)
}

// AssessQuality implements the Analyst interface.
func (c *Claude) AssessQuality(ctx context.Context, articleText string) (string, error) {
	return c.complete(ctx, opQuality, qualitySystemPrompt, articleText)
}

// complete paces, breaks, and executes one model call, classifying
// failures into the domain taxonomy.
func (c *Claude) complete(ctx context.Context, operation, systemPrompt, articleText string) (string, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doComplete(ctx, operation, systemPrompt, articleText)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			slog.Warn("claude api circuit breaker open, request rejected",
				slog.String("service", "claude-api"),
				slog.String("operation", operation),
				slog.String("state", c.circuitBreaker.State().String()))
			return "", &entity.RetryableError{Op: operation, Err: err}
		}
		return "", err
	}

	return result.(string), nil
}

// doComplete performs the actual API call without breaker protection.
func (c *Claude) doComplete(ctx context.Context, operation, systemPrompt, articleText string) (interface{}, error) {
	requestID := uuid.New().String()
	input := truncate(articleText, c.config.MaxInputChars)

	slog.InfoContext(ctx, "Starting analysis call",
		slog.String("request_id", requestID),
		slog.String("provider", "anthropic"),
		slog.String("operation", operation),
		slog.Int("input_length", len(input)))

	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(input),
			),
		},
	})
	duration := time.Since(start)

	if err != nil {
		metrics.RecordProviderRequest("anthropic", operation, false, duration)
		slog.ErrorContext(ctx, "Analysis call failed",
			slog.String("request_id", requestID),
			slog.String("operation", operation),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", classifyClaudeError(operation, err)
	}

	if len(message.Content) == 0 {
		metrics.RecordProviderRequest("anthropic", operation, false, duration)
		return "", &entity.AnalysisError{
			Stage: operation,
			Err:   fmt.Errorf("claude api returned empty response"),
		}
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		metrics.RecordProviderRequest("anthropic", operation, false, duration)
		return "", &entity.AnalysisError{
			Stage: operation,
			Err:   fmt.Errorf("claude api returned unexpected content type"),
		}
	}

	metrics.RecordProviderRequest("anthropic", operation, true, duration)
	slog.InfoContext(ctx, "Analysis call completed",
		slog.String("request_id", requestID),
		slog.String("operation", operation),
		slog.Int("output_length", len(textBlock.Text)),
		slog.Duration("duration", duration))

	return textBlock.Text, nil
}

// classifyClaudeError maps Anthropic API errors into the domain
// taxonomy: 429 carries a quota hint, 5xx and 408 are transient, and
// anything else is a terminal analysis failure.
func classifyClaudeError(operation string, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return &entity.QuotaExceededError{
				Service:    "anthropic",
				RetryAfter: 0,
				Err:        err,
			}
		case apiErr.StatusCode >= 500 || apiErr.StatusCode == 408:
			return &entity.RetryableError{Op: operation, Err: err}
		default:
			return &entity.AnalysisError{Stage: operation, Err: err}
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	// Transport-level failures without a status are worth retrying.
	return &entity.RetryableError{Op: operation, Err: err}
}
