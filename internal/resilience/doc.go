// Package resilience provides reliability and fault tolerance patterns for the application.
// It includes implementations of circuit breakers, retry logic, and the resilient call
// wrapper that composes admission control, caching, and retries around expensive calls.
//
// The package supports:
//   - Circuit breakers for external API calls (Claude, OpenAI, article fetching)
//   - Retry logic with exponential backoff and jitter
//   - A call wrapper combining rate limiting, result memoization, and retries
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.DefaultConfig("my-service"))
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return callExternalService()
//	})
//
//	retryConfig := retry.DefaultConfig()
//	err := retry.WithBackoff(ctx, retryConfig, func() error {
//	    return performOperation()
//	})
package resilience
