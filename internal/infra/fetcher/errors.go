// Package fetcher provides article content fetching and extraction for
// the analysis pipeline.
package fetcher

import "errors"

// Sentinel errors for fetch operations. FetchArticle wraps these in the
// domain error taxonomy so callers can classify without importing this
// package.
var (
	// ErrInvalidURL indicates the URL is malformed or uses a disallowed scheme.
	ErrInvalidURL = errors.New("invalid article URL")

	// ErrDomainNotAllowed indicates the URL's host is outside the configured allowlist.
	ErrDomainNotAllowed = errors.New("domain not in allowlist")

	// ErrPrivateIP indicates the hostname resolves to a private or loopback address.
	ErrPrivateIP = errors.New("URL resolves to private IP address")

	// ErrTooManyRedirects indicates the redirect limit was exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response exceeded the configured size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrExtractionFailed indicates no readable article text could be extracted.
	ErrExtractionFailed = errors.New("no readable content found")
)
