package fetcher

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"medlens/pkg/config"
)

// Config holds the configuration for article fetching operations.
//
// Security settings:
//   - AllowedDomains: Restricts fetching to trusted medical publishers
//   - DenyPrivateIPs: Prevents SSRF attacks by blocking private IP addresses
//   - MaxBodySize: Prevents memory exhaustion from oversized responses
//   - MaxRedirects: Prevents infinite redirect loops
//   - Timeout: Prevents resource starvation from slow servers
type Config struct {
	// AllowedDomains restricts article URLs to these domains and their
	// subdomains. An empty list disables the allowlist entirely, which
	// is intended for tests only.
	// Default: the trusted medical publisher list.
	AllowedDomains []string

	// Timeout is the maximum duration for a single HTTP request.
	// Default: 10s
	Timeout time.Duration

	// MaxBodySize is the maximum HTTP response body size in bytes.
	// Responses exceeding this limit are rejected to prevent memory
	// exhaustion. Enforced while reading, not from Content-Length.
	// Default: 10485760 (10MB)
	MaxBodySize int64

	// MaxRedirects is the maximum number of HTTP redirects to follow.
	// Each redirect target is re-validated against the URL policy.
	// Default: 5
	MaxRedirects int

	// DenyPrivateIPs controls whether to block access to private IP
	// addresses. Should always be true in production.
	// Default: true
	DenyPrivateIPs bool

	// UserAgent identifies the fetcher to publisher sites.
	// Default: "MedLensBot/1.0"
	UserAgent string
}

// DefaultAllowedDomains is the trusted medical publisher allowlist.
// Subdomains of each entry are accepted.
func DefaultAllowedDomains() []string {
	return []string{
		"pubmed.ncbi.nlm.nih.gov",
		"www.ncbi.nlm.nih.gov",
		"nejm.org",
		"jamanetwork.com",
		"thelancet.com",
		"bmj.com",
		"nature.com",
		"sciencedirect.com",
		"cdc.gov",
		"who.int",
		"nih.gov",
		"mayoclinic.org",
		"medlineplus.gov",
	}
}

// DefaultConfig returns the default configuration for article fetching.
func DefaultConfig() Config {
	return Config{
		AllowedDomains: DefaultAllowedDomains(),
		Timeout:        10 * time.Second,
		MaxBodySize:    10 * 1024 * 1024, // 10MB
		MaxRedirects:   5,
		DenyPrivateIPs: true,
		UserAgent:      "MedLensBot/1.0",
	}
}

// Validate checks if the configuration values are valid and safe.
//
// Validation rules:
//   - Timeout: > 0 (must have timeout)
//   - MaxBodySize: 1KB-100MB (prevent memory issues)
//   - MaxRedirects: 0-10 (reasonable redirect limit)
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	minBodySize := int64(1024)              // 1KB
	maxBodySize := int64(100 * 1024 * 1024) // 100MB
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}

	return nil
}

// LoadConfigFromEnv loads configuration from environment variables.
// If a variable is not set or invalid, the default value is used.
// After loading, the configuration is validated.
//
// Environment variables:
//   - ARTICLE_FETCH_ALLOWED_DOMAINS: comma-separated domains (default: medical publisher list)
//   - ARTICLE_FETCH_TIMEOUT: duration string, e.g., "10s" (default: 10s)
//   - ARTICLE_FETCH_MAX_BODY_SIZE: integer in bytes (default: 10485760)
//   - ARTICLE_FETCH_MAX_REDIRECTS: integer (default: 5)
//   - ARTICLE_FETCH_DENY_PRIVATE_IPS: "true" or "false" (default: true)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	domains := config.GetEnvStringList("ARTICLE_FETCH_ALLOWED_DOMAINS", cfg.AllowedDomains)
	for i, d := range domains {
		domains[i] = strings.ToLower(d)
	}
	cfg.AllowedDomains = domains

	if val := os.Getenv("ARTICLE_FETCH_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			cfg.Timeout = parsed
		} else {
			return cfg, fmt.Errorf("invalid ARTICLE_FETCH_TIMEOUT: %v (expected format: '10s', '1m')", err)
		}
	}

	if val := os.Getenv("ARTICLE_FETCH_MAX_BODY_SIZE"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.MaxBodySize = parsed
		} else {
			return cfg, fmt.Errorf("invalid ARTICLE_FETCH_MAX_BODY_SIZE: %v", err)
		}
	}

	if val := os.Getenv("ARTICLE_FETCH_MAX_REDIRECTS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.MaxRedirects = parsed
		} else {
			return cfg, fmt.Errorf("invalid ARTICLE_FETCH_MAX_REDIRECTS: %v", err)
		}
	}

	if val := os.Getenv("ARTICLE_FETCH_DENY_PRIVATE_IPS"); val != "" {
		cfg.DenyPrivateIPs = val == "true"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
