package retry

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"medlens/internal/domain/entity"
	"medlens/pkg/ratelimit"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0,
	}
}

func TestWithBackoff_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("WithBackoff() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestWithBackoff_RecoversAfterTransientFailure(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return &entity.RetryableError{Op: "summarize", Err: errors.New("upstream flake")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithBackoff() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestWithBackoff_ExhaustsAttempts(t *testing.T) {
	calls := 0
	transient := &entity.RetryableError{Op: "fetch", Err: errors.New("always failing")}
	err := WithBackoff(context.Background(), fastConfig(), func() error {
		calls++
		return transient
	})
	if err == nil {
		t.Fatal("WithBackoff() should fail after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want exactly MaxAttempts", calls)
	}
	if !errors.Is(err, transient) {
		t.Errorf("WithBackoff() error = %v, want wrapped last error", err)
	}
}

func TestWithBackoff_NonRetryableAbortsImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"validation error", &entity.ValidationError{Field: "url", Message: "empty"}},
		{"not found", &entity.NotFoundError{Resource: "article"}},
		{"admission denied", &ratelimit.QuotaExceededError{Key: "caller", Limit: 10, RetryAfter: time.Minute}},
		{"context canceled", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithBackoff(context.Background(), fastConfig(), func() error {
				calls++
				return tt.err
			})
			if err == nil {
				t.Fatal("WithBackoff() should return the error")
			}
			if calls != 1 {
				t.Errorf("fn called %d times, want 1 for non-retryable error", calls)
			}
		})
	}
}

func TestWithBackoff_ContextCancelAbortsSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- WithBackoff(ctx, cfg, func() error {
			calls++
			return &entity.RetryableError{Op: "fetch", Err: errors.New("flake")}
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("WithBackoff() error = %v, want context.Canceled", err)
		}
		if calls != 1 {
			t.Errorf("fn called %d times, want 1 before cancellation", calls)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WithBackoff() did not abort the backoff sleep on cancellation")
	}
}

func TestWithBackoff_HonorsQuotaRetryAfter(t *testing.T) {
	cfg := Config{
		MaxAttempts:  2,
		InitialDelay: 1 * time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}

	calls := 0
	start := time.Now()
	err := WithBackoff(context.Background(), cfg, func() error {
		calls++
		if calls == 1 {
			return &entity.QuotaExceededError{
				Service:    "anthropic",
				RetryAfter: 50 * time.Millisecond,
				Err:        errors.New("rate limited"),
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithBackoff() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("retry slept %v, want at least the upstream retry-after hint", elapsed)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"validation error", &entity.ValidationError{Field: "url", Message: "bad"}, false},
		{"not found", &entity.NotFoundError{Resource: "article"}, false},
		{"domain retryable", &entity.RetryableError{Op: "fetch", Err: errors.New("x")}, true},
		{"upstream quota", &entity.QuotaExceededError{Service: "openai", Err: errors.New("429")}, true},
		{"admission denied", &ratelimit.QuotaExceededError{Key: "caller", Limit: 5}, false},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"http 503", &HTTPError{StatusCode: 503, Message: "unavailable"}, true},
		{"http 429", &HTTPError{StatusCode: 429, Message: "slow down"}, true},
		{"http 400", &HTTPError{StatusCode: 400, Message: "bad request"}, false},
		{"plain error", errors.New("mystery"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
