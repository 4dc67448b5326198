package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"

	"medlens/internal/domain/entity"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig("test-model")

	if err := cfg.Validate(); err != nil {
		t.Errorf("LoadConfig() default Validate() error = %v", err)
	}
	if cfg.Model != "test-model" {
		t.Errorf("Model = %q, want provider default", cfg.Model)
	}
	if cfg.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want 1024", cfg.MaxTokens)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("ANALYST_MODEL", "custom-model")
	t.Setenv("ANALYST_MAX_TOKENS", "2048")
	t.Setenv("ANALYST_TIMEOUT", "30s")
	t.Setenv("ANALYST_RPS", "0.5")

	cfg := LoadConfig("default-model")

	if cfg.Model != "custom-model" {
		t.Errorf("Model = %q, want env override", cfg.Model)
	}
	if cfg.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, want 2048", cfg.MaxTokens)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.RequestsPerSecond != 0.5 {
		t.Errorf("RequestsPerSecond = %f, want 0.5", cfg.RequestsPerSecond)
	}
}

func TestLoadConfig_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("ANALYST_MAX_TOKENS", "not-a-number")
	t.Setenv("ANALYST_TIMEOUT", "-5s")

	cfg := LoadConfig("default-model")

	if cfg.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want default on invalid env", cfg.MaxTokens)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want default on invalid env", cfg.Timeout)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty model", func(c *Config) { c.Model = "" }, true},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }, true},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"tiny input limit", func(c *Config) { c.MaxInputChars = 10 }, true},
		{"zero rps", func(c *Config) { c.RequestsPerSecond = 0 }, true},
		{"zero burst", func(c *Config) { c.Burst = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig("model")
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	short := "short article"
	if got := truncate(short, 100); got != short {
		t.Errorf("truncate() modified text under the limit")
	}

	long := strings.Repeat("x", 200)
	got := truncate(long, 100)
	if !strings.HasPrefix(got, strings.Repeat("x", 100)) {
		t.Error("truncate() should keep the leading text")
	}
	if !strings.Contains(got, "truncated") {
		t.Error("truncate() should mark the cut")
	}
}

func TestClassifyClaudeError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "429 is quota",
			status: 429,
			check: func(t *testing.T, err error) {
				var quotaErr *entity.QuotaExceededError
				if !errors.As(err, &quotaErr) {
					t.Errorf("error = %T, want *entity.QuotaExceededError", err)
				}
			},
		},
		{
			name:   "529 is retryable",
			status: 529,
			check: func(t *testing.T, err error) {
				var retryable *entity.RetryableError
				if !errors.As(err, &retryable) {
					t.Errorf("error = %T, want *entity.RetryableError", err)
				}
			},
		},
		{
			name:   "400 is terminal",
			status: 400,
			check: func(t *testing.T, err error) {
				var analysisErr *entity.AnalysisError
				if !errors.As(err, &analysisErr) {
					t.Errorf("error = %T, want *entity.AnalysisError", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyClaudeError(opSummarize, &anthropic.Error{StatusCode: tt.status})
			tt.check(t, err)
		})
	}
}

func TestClassifyOpenAIError(t *testing.T) {
	quota := classifyOpenAIError(opTerminology, &openai.APIError{HTTPStatusCode: 429})
	var quotaErr *entity.QuotaExceededError
	if !errors.As(quota, &quotaErr) {
		t.Errorf("429 classified as %T, want *entity.QuotaExceededError", quota)
	}

	transient := classifyOpenAIError(opTerminology, &openai.APIError{HTTPStatusCode: 503})
	var retryable *entity.RetryableError
	if !errors.As(transient, &retryable) {
		t.Errorf("503 classified as %T, want *entity.RetryableError", transient)
	}

	terminal := classifyOpenAIError(opTerminology, &openai.APIError{HTTPStatusCode: 401})
	var analysisErr *entity.AnalysisError
	if !errors.As(terminal, &analysisErr) {
		t.Errorf("401 classified as %T, want *entity.AnalysisError", terminal)
	}

	canceled := classifyOpenAIError(opTerminology, context.Canceled)
	if !errors.Is(canceled, context.Canceled) {
		t.Errorf("context.Canceled should pass through, got %v", canceled)
	}

	network := classifyOpenAIError(opTerminology, errors.New("connection reset"))
	if !errors.As(network, &retryable) {
		t.Errorf("transport error classified as %T, want *entity.RetryableError", network)
	}
}

func TestNoOp(t *testing.T) {
	ctx := context.Background()
	noop := NewNoOp()

	summary, err := noop.Summarize(ctx, "A short clinical note.")
	if err != nil || summary != "A short clinical note." {
		t.Errorf("Summarize() = %q, %v", summary, err)
	}

	long := strings.Repeat("a", 600)
	summary, _ = noop.Summarize(ctx, long)
	if len(summary) > 510 {
		t.Errorf("Summarize() should truncate, got %d chars", len(summary))
	}

	terms, err := noop.ExplainTerminology(ctx, "text")
	if err != nil {
		t.Fatalf("ExplainTerminology() error = %v", err)
	}
	var parsed map[string]string
	if jsonErr := json.Unmarshal([]byte(terms), &parsed); jsonErr != nil {
		t.Errorf("ExplainTerminology() output not valid JSON: %v", jsonErr)
	}

	quality, err := noop.AssessQuality(ctx, "text")
	if err != nil {
		t.Fatalf("AssessQuality() error = %v", err)
	}
	var assessment map[string]any
	if jsonErr := json.Unmarshal([]byte(quality), &assessment); jsonErr != nil {
		t.Errorf("AssessQuality() output not valid JSON: %v", jsonErr)
	}
	if assessment["study_type"] != "unknown" {
		t.Errorf("AssessQuality() study_type = %v, want unknown", assessment["study_type"])
	}
}
