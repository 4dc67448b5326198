package entity

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that referenced upstream content does not exist.
	ErrNotFound = errors.New("content not found")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedPayload indicates a message kind the current stage
	// does not accept.
	ErrUnsupportedPayload = errors.New("unsupported payload type")
)

// ValidationError reports malformed or disallowed input. It is never
// retried and surfaces to the caller as a client error.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Is reports whether target is the ErrInvalidInput sentinel, so callers
// can branch with errors.Is without knowing the concrete type.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NotFoundError reports that upstream content is absent. Non-retryable.
type NotFoundError struct {
	Resource string
	Err      error
}

// Error returns a formatted error message for the not-found error.
func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s not found: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Unwrap returns the underlying error.
func (e *NotFoundError) Unwrap() error { return e.Err }

// Is reports whether target is the ErrNotFound sentinel.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// RetryableError marks a transient failure (network, timeout, upstream
// rate limit) that the resilient call wrapper is allowed to re-attempt.
type RetryableError struct {
	Op  string
	Err error
}

// Error returns a formatted error message for the retryable error.
func (e *RetryableError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *RetryableError) Unwrap() error { return e.Err }

// QuotaExceededError is the retryable subtype raised when an upstream
// service reports rate limiting. RetryAfter, when positive, is the
// minimum time to wait before the next attempt.
type QuotaExceededError struct {
	Service    string
	RetryAfter time.Duration
	Err        error
}

// Error returns a formatted error message for the quota error.
func (e *QuotaExceededError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry after %s", e.Service, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Service)
}

// Unwrap returns the underlying error.
func (e *QuotaExceededError) Unwrap() error { return e.Err }

// AnalysisError reports that a generative-text stage failed in a way
// that re-attempting with the same inputs cannot fix (for example an
// unparsable model response). Non-retryable.
type AnalysisError struct {
	Stage string
	Err   error
}

// Error returns a formatted error message for the analysis error.
func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis stage %s failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *AnalysisError) Unwrap() error { return e.Err }
