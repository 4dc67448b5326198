package analyst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"medlens/internal/domain/entity"
	"medlens/internal/observability/metrics"
	"medlens/internal/resilience/circuitbreaker"
)

// DefaultOpenAIModel is the model used when ANALYST_MODEL is unset.
const DefaultOpenAIModel = "gpt-4o"

// OpenAI implements the Analyst interface using OpenAI's chat API.
// The terminology and quality operations request JSON response format
// so the pipeline can parse the output mechanically.
type OpenAI struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	pacer          *rate.Limiter
	config         Config
}

// NewOpenAI creates a new OpenAI analyst with the given API key.
func NewOpenAI(apiKey string) *OpenAI {
	config := LoadConfig(DefaultOpenAIModel)

	slog.Info("Initialized OpenAI analyst with configuration",
		slog.String("model", config.Model),
		slog.Float64("rps", config.RequestsPerSecond),
		slog.Int("max_tokens", config.MaxTokens))

	return &OpenAI{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		pacer:          rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		config:         config,
	}
}

// Summarize implements the Analyst interface.
func (o *OpenAI) Summarize(ctx context.Context, articleText string) (string, error) {
	return o.complete(ctx, opSummarize, summarizeSystemPrompt, articleText, false)
}

// ExplainTerminology implements the Analyst interface.
func (o *OpenAI) ExplainTerminology(ctx context.Context, articleText string) (string, error) {
	return o.complete(ctx, opTerminology, terminologySystemPrompt, articleText, true)
}

// AssessQuality implements the Analyst interface.
func (o *OpenAI) AssessQuality(ctx context.Context, articleText string) (string, error) {
	return o.complete(ctx, opQuality, qualitySystemPrompt, articleText, true)
}

func (o *OpenAI) complete(ctx context.Context, operation, systemPrompt, articleText string, wantJSON bool) (string, error) {
	if err := o.pacer.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	result, err := o.circuitBreaker.Execute(func() (interface{}, error) {
		return o.doComplete(ctx, operation, systemPrompt, articleText, wantJSON)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			slog.Warn("openai api circuit breaker open, request rejected",
				slog.String("service", "openai-api"),
				slog.String("operation", operation),
				slog.String("state", o.circuitBreaker.State().String()))
			return "", &entity.RetryableError{Op: operation, Err: err}
		}
		return "", err
	}

	return result.(string), nil
}

// doComplete performs the actual API call without breaker protection.
func (o *OpenAI) doComplete(ctx context.Context, operation, systemPrompt, articleText string, wantJSON bool) (interface{}, error) {
	input := truncate(articleText, o.config.MaxInputChars)

	slog.InfoContext(ctx, "Starting analysis call",
		slog.String("provider", "openai"),
		slog.String("operation", operation),
		slog.Int("input_length", len(input)))

	req := openai.ChatCompletionRequest{
		Model:     o.config.Model,
		MaxTokens: o.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: input},
		},
	}
	if wantJSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.RecordProviderRequest("openai", operation, false, duration)
		slog.ErrorContext(ctx, "Analysis call failed",
			slog.String("operation", operation),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", classifyOpenAIError(operation, err)
	}

	if len(resp.Choices) == 0 {
		metrics.RecordProviderRequest("openai", operation, false, duration)
		return "", &entity.AnalysisError{
			Stage: operation,
			Err:   fmt.Errorf("openai api returned empty response"),
		}
	}

	output := resp.Choices[0].Message.Content
	metrics.RecordProviderRequest("openai", operation, true, duration)
	slog.InfoContext(ctx, "Analysis call completed",
		slog.String("operation", operation),
		slog.Int("output_length", len(output)),
		slog.Duration("duration", duration))

	return output, nil
}

// classifyOpenAIError maps OpenAI API errors into the domain taxonomy.
func classifyOpenAIError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return &entity.QuotaExceededError{
				Service: "openai",
				Err:     err,
			}
		case apiErr.HTTPStatusCode >= 500 || apiErr.HTTPStatusCode == 408:
			return &entity.RetryableError{Op: operation, Err: err}
		default:
			return &entity.AnalysisError{Stage: operation, Err: err}
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &entity.RetryableError{Op: operation, Err: err}
}
