// Package tracing provides OpenTelemetry tracing integration.
//
// The HTTP middleware extracts W3C Trace Context headers from incoming
// requests, creates a server span per request, and echoes the trace ID
// in the X-Trace-Id response header so clients and logs can be
// correlated with traces.
//
// Example usage:
//
//	import "medlens/internal/observability/tracing"
//
//	func processRequest(ctx context.Context) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "process-request")
//	    defer span.End()
//	    // ... process request ...
//	}
package tracing
