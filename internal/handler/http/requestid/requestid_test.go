package requestid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFromContext_Missing(t *testing.T) {
	if id := FromContext(context.Background()); id != "" {
		t.Errorf("FromContext() = %q, want empty for bare context", id)
	}
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc-123")
	if id := FromContext(ctx); id != "abc-123" {
		t.Errorf("FromContext() = %q, want abc-123", id)
	}
}

func TestMiddleware_GeneratesID(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Error("middleware should inject a generated request ID")
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("response header %q = %q, want %q", RequestIDHeader, got, seen)
	}
}

func TestMiddleware_PropagatesExistingID(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "client-supplied" {
		t.Errorf("request ID = %q, want client-supplied", seen)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "client-supplied" {
		t.Errorf("response header = %q, want client-supplied", got)
	}
}
