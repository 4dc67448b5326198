package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medlens/internal/domain/entity"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Exercise and Cardiovascular Risk</title></head>
<body>
<article>
<h1>Exercise and Cardiovascular Risk</h1>
<p>A randomized cohort of 2,000 adults was followed for five years to measure
the effect of regular aerobic exercise on cardiovascular outcomes. Participants
who exercised at least 150 minutes per week showed a 31 percent reduction in
major adverse cardiac events compared with the sedentary control group.</p>
<p>The study controlled for age, smoking status, and baseline blood pressure.
Researchers noted that adherence declined in the final year, which may bias
the effect estimate toward the null.</p>
</article>
</body>
</html>`

// testConfig permits the httptest loopback server.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AllowedDomains = nil
	cfg.DenyPrivateIPs = false
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestArticleFetcher_FetchArticle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articleHTML)
	}))
	defer server.Close()

	fetcher := NewArticleFetcher(testConfig())
	text, err := fetcher.FetchArticle(context.Background(), server.URL+"/article")
	if err != nil {
		t.Fatalf("FetchArticle() error = %v", err)
	}
	if !strings.Contains(text, "randomized cohort") {
		t.Errorf("FetchArticle() text missing article body, got %q", text[:min(len(text), 120)])
	}
	if strings.Contains(text, "<p>") {
		t.Error("FetchArticle() should strip HTML tags")
	}
}

func TestArticleFetcher_StructuralFallback(t *testing.T) {
	// A page too bare for Readability still has an <article> element.
	bare := `<html><body><article>Short clinical note about statins.</article></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, bare)
	}))
	defer server.Close()

	fetcher := NewArticleFetcher(testConfig())
	text, err := fetcher.FetchArticle(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchArticle() error = %v", err)
	}
	if !strings.Contains(text, "statins") {
		t.Errorf("FetchArticle() = %q, want article element text", text)
	}
}

func TestArticleFetcher_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "404 is not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, entity.ErrNotFound) {
					t.Errorf("error = %v, want not-found", err)
				}
			},
		},
		{
			name:   "410 is not found",
			status: http.StatusGone,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, entity.ErrNotFound) {
					t.Errorf("error = %v, want not-found", err)
				}
			},
		},
		{
			name:   "503 is retryable",
			status: http.StatusServiceUnavailable,
			check: func(t *testing.T, err error) {
				var retryable *entity.RetryableError
				if !errors.As(err, &retryable) {
					t.Errorf("error = %v, want *entity.RetryableError", err)
				}
			},
		},
		{
			name:   "403 is terminal",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				var retryable *entity.RetryableError
				if errors.As(err, &retryable) {
					t.Errorf("error = %v, 403 must not be retryable", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			fetcher := NewArticleFetcher(testConfig())
			_, err := fetcher.FetchArticle(context.Background(), server.URL)
			if err == nil {
				t.Fatal("FetchArticle() should fail")
			}
			tt.check(t, err)
		})
	}
}

func TestArticleFetcher_RateLimitedUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	fetcher := NewArticleFetcher(testConfig())
	_, err := fetcher.FetchArticle(context.Background(), server.URL)

	var quotaErr *entity.QuotaExceededError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("FetchArticle() error = %v, want *entity.QuotaExceededError", err)
	}
	if quotaErr.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s from header", quotaErr.RetryAfter)
	}
}

func TestArticleFetcher_BodySizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><article>%s</article></body></html>",
			strings.Repeat("x", 64*1024))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxBodySize = 4 * 1024
	fetcher := NewArticleFetcher(cfg)

	_, err := fetcher.FetchArticle(context.Background(), server.URL)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("FetchArticle() error = %v, want ErrBodyTooLarge", err)
	}
}

func TestArticleFetcher_NoReadableContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body></body></html>`)
	}))
	defer server.Close()

	fetcher := NewArticleFetcher(testConfig())
	_, err := fetcher.FetchArticle(context.Background(), server.URL)
	if !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("FetchArticle() error = %v, want not-found for empty page", err)
	}
}

func TestArticleFetcher_RejectsDisallowedURLBeforeRequest(t *testing.T) {
	requested := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = true
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.AllowedDomains = []string{"nejm.org"}
	fetcher := NewArticleFetcher(cfg)

	_, err := fetcher.FetchArticle(context.Background(), server.URL)
	if !errors.Is(err, entity.ErrInvalidInput) {
		t.Errorf("FetchArticle() error = %v, want validation error", err)
	}
	if requested {
		t.Error("request must not be sent for a disallowed URL")
	}
}

func TestArticleFetcher_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Timeout = 100 * time.Millisecond
	fetcher := NewArticleFetcher(cfg)

	_, err := fetcher.FetchArticle(context.Background(), server.URL)
	var retryable *entity.RetryableError
	if !errors.As(err, &retryable) {
		t.Errorf("FetchArticle() timeout error = %v, want *entity.RetryableError", err)
	}
}
