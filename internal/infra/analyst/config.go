// Package analyst provides model-backed implementations of the three
// article analysis operations: plain-language summarization, medical
// terminology explanation, and study quality assessment. It includes
// adapters for Claude (Anthropic) and OpenAI APIs with reliability
// patterns.
package analyst

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds configuration parameters shared by the analyst
// implementations. Configuration is loaded from environment variables
// with fallback to defaults.
type Config struct {
	// Model is the provider model identifier.
	Model string

	// MaxTokens is the maximum number of tokens for the API response.
	MaxTokens int

	// Timeout is the maximum duration for a single analysis API call.
	Timeout time.Duration

	// MaxInputChars truncates article text before prompting to stay
	// well inside provider token limits.
	MaxInputChars int

	// RequestsPerSecond is the sustained provider call rate. Calls
	// beyond the rate block until a token is available.
	RequestsPerSecond float64

	// Burst is the token bucket burst capacity.
	Burst int
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxInputChars < 1000 {
		return fmt.Errorf("max input chars must be at least 1000, got %d", c.MaxInputChars)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive, got %f", c.RequestsPerSecond)
	}
	if c.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", c.Burst)
	}
	return nil
}

// LoadConfig loads analyst configuration from environment variables.
// Invalid values fall back to the default with a warning log.
//
// Environment variables:
//   - ANALYST_MODEL: model identifier (default: provider-specific)
//   - ANALYST_MAX_TOKENS: response token cap (default: 1024)
//   - ANALYST_TIMEOUT: per-call timeout (default: 60s)
//   - ANALYST_MAX_INPUT_CHARS: article truncation limit (default: 10000)
//   - ANALYST_RPS: sustained provider call rate (default: 2.0)
//   - ANALYST_BURST: token bucket burst (default: 5)
func LoadConfig(defaultModel string) Config {
	cfg := Config{
		Model:             defaultModel,
		MaxTokens:         1024,
		Timeout:           60 * time.Second,
		MaxInputChars:     10000,
		RequestsPerSecond: 2.0,
		Burst:             5,
	}

	if val := os.Getenv("ANALYST_MODEL"); val != "" {
		cfg.Model = val
	}
	if val := os.Getenv("ANALYST_MAX_TOKENS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			cfg.MaxTokens = parsed
		} else {
			slog.Warn("Invalid ANALYST_MAX_TOKENS, using default",
				slog.String("value", val),
				slog.Int("default", cfg.MaxTokens))
		}
	}
	if val := os.Getenv("ANALYST_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil && parsed > 0 {
			cfg.Timeout = parsed
		} else {
			slog.Warn("Invalid ANALYST_TIMEOUT, using default",
				slog.String("value", val),
				slog.Duration("default", cfg.Timeout))
		}
	}
	if val := os.Getenv("ANALYST_MAX_INPUT_CHARS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 1000 {
			cfg.MaxInputChars = parsed
		} else {
			slog.Warn("Invalid ANALYST_MAX_INPUT_CHARS, using default",
				slog.String("value", val),
				slog.Int("default", cfg.MaxInputChars))
		}
	}
	if val := os.Getenv("ANALYST_RPS"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed > 0 {
			cfg.RequestsPerSecond = parsed
		} else {
			slog.Warn("Invalid ANALYST_RPS, using default",
				slog.String("value", val),
				slog.Float64("default", cfg.RequestsPerSecond))
		}
	}
	if val := os.Getenv("ANALYST_BURST"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 1 {
			cfg.Burst = parsed
		} else {
			slog.Warn("Invalid ANALYST_BURST, using default",
				slog.String("value", val),
				slog.Int("default", cfg.Burst))
		}
	}

	return cfg
}

// truncate limits article text to max characters, marking the cut so
// the model knows the input is partial.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "...\n(article truncated due to length)"
}
