package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// CanonicalDomain extracts the lowercase hostname of link without a leading "www.".
// Bare hostnames ("example.com/path") are accepted. Returns false when no host can be found.
func CanonicalDomain(link string) (string, bool) {
	s := strings.TrimSpace(link)
	if s == "" {
		return "", false
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	host = strings.TrimPrefix(host, "www.")
	if host == "" || !strings.Contains(host, ".") || strings.ContainsAny(host, " _") {
		return "", false
	}
	return host, true
}

// MatchesDomain reports whether host equals parent or is a subdomain of it.
func MatchesDomain(host, parent string) bool {
	host = strings.ToLower(host)
	parent = strings.ToLower(strings.TrimPrefix(parent, "www."))
	return host == parent || strings.HasSuffix(host, "."+parent)
}

// NormalizeTargetURL parses a caller supplied page URL, defaulting the scheme to https.
// Only http and https URLs with a canonical host are accepted.
func NormalizeTargetURL(raw string) (*url.URL, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("%w: empty url", ErrInvalidURL)
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if _, ok := CanonicalDomain(u.Host); !ok {
		return nil, fmt.Errorf("%w: no usable host in %q", ErrInvalidURL, raw)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}
