package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL performs comprehensive URL validation
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ResolveURL resolves a possibly-relative href against a base URL and returns a string
func ResolveURL(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(u).String()
}

// IsSiteRelative reports whether href is a same-site path reference
// (leading slash, no scheme or host of its own).
func IsSiteRelative(href string) bool {
	if !strings.HasPrefix(href, "/") {
		return false
	}
	// Protocol-relative URLs point at arbitrary hosts.
	return !strings.HasPrefix(href, "//")
}

// Host extracts the hostname from a URL, or "" if it cannot be parsed.
func Host(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// PathSegmentAfter returns the path segment immediately following marker
// in the URL path. Trailing slashes are ignored. Returns "" when the
// marker is absent or nothing follows it.
func PathSegmentAfter(urlStr, marker string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	path := u.Path
	idx := strings.Index(path, marker)
	if idx < 0 {
		return ""
	}
	rest := strings.Trim(path[idx+len(marker):], "/")
	if rest == "" {
		return ""
	}
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}
