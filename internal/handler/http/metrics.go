package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medlens/internal/handler/http/responsewriter"
	"medlens/internal/observability/metrics"
)

// knownRoutes lists the routes recorded verbatim in metric labels.
// Anything else collapses to "/other" to prevent label cardinality
// explosion from probe traffic and scanners.
var knownRoutes = map[string]struct{}{
	"/workflow/process": {},
	"/health":           {},
	"/ready":            {},
	"/live":             {},
	"/metrics":          {},
}

// normalizePath maps a request path to a bounded metric label.
func normalizePath(path string) string {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		path = "/"
	}
	if _, ok := knownRoutes[path]; ok || path == "/" {
		return path
	}
	return "/other"
}

// MetricsMiddleware records HTTP request metrics including duration,
// size, and status codes. Paths are normalized to a fixed route set
// before being used as labels.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.ActiveConnections.Inc()
		defer metrics.ActiveConnections.Dec()

		path := normalizePath(r.URL.Path)

		requestSize := 0
		if r.ContentLength > 0 {
			requestSize = int(r.ContentLength)
		}

		wrapped := responsewriter.Wrap(w)

		start := time.Now()
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start)

		status := strconv.Itoa(wrapped.StatusCode())
		metrics.RecordHTTPRequest(r.Method, path, status, duration, requestSize, wrapped.BytesWritten())
	})
}

// MetricsHandler returns an HTTP handler for the Prometheus metrics endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
