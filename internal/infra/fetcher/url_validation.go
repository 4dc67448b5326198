package fetcher

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// validateURL validates an article URL before making an HTTP request.
// This enforces the URL policy:
//   - Only http/https schemes
//   - No embedded credentials
//   - Host must be on the domain allowlist (when configured)
//   - Host must not resolve to a private IP (SSRF prevention)
//
// Blocked IP ranges (when denyPrivateIPs is true):
//   - 127.0.0.0/8 (loopback)
//   - 10.0.0.0/8 (private)
//   - 172.16.0.0/12 (private)
//   - 192.168.0.0/16 (private)
//   - 169.254.0.0/16 (link-local)
//   - ::1 (IPv6 loopback)
//   - fc00::/7 (IPv6 private)
//   - fe80::/10 (IPv6 link-local)
func validateURL(urlStr string, cfg Config) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("%w: parse error: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme '%s' not allowed (only http/https)", ErrInvalidURL, u.Scheme)
	}

	// Embedded credentials are a classic SSRF/phishing vector.
	if u.User != nil {
		return fmt.Errorf("%w: credentials in URL not allowed", ErrInvalidURL)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("%w: empty hostname", ErrInvalidURL)
	}

	if len(cfg.AllowedDomains) > 0 && !domainAllowed(hostname, cfg.AllowedDomains) {
		return fmt.Errorf("%w: %s", ErrDomainNotAllowed, hostname)
	}

	if !cfg.DenyPrivateIPs {
		return nil
	}

	// DNS resolution to check for private IPs. This prevents SSRF
	// where an allowlisted-looking hostname points into our network.
	ips, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("%w: DNS lookup failed for %s: %v", ErrInvalidURL, hostname, err)
	}

	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("%w: hostname '%s' resolves to %s", ErrPrivateIP, hostname, ip.String())
		}
	}

	return nil
}

// domainAllowed reports whether hostname matches an allowlisted domain
// or is a subdomain of one. Matching is case-insensitive.
func domainAllowed(hostname string, allowed []string) bool {
	hostname = strings.ToLower(hostname)
	for _, domain := range allowed {
		domain = strings.ToLower(domain)
		if hostname == domain || strings.HasSuffix(hostname, "."+domain) {
			return true
		}
	}
	return false
}

// isPrivateIP checks if an IP address is in a private, loopback, or
// link-local range. Supports both IPv4 and IPv6.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() {
		return true
	}
	if ip.IsPrivate() {
		return true
	}
	if ip.IsLinkLocalUnicast() {
		return true
	}
	return false
}
