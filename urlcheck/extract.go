package urlcheck

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// SchemeConstraint restricts which URL schemes a caller accepts.
type SchemeConstraint int

const (
	// HTTPSOnly permits only https:// URLs (browser-open policy).
	HTTPSOnly SchemeConstraint = iota
	// HTTPOrHTTPS permits http:// and https:// URLs (generic fetch policy).
	HTTPOrHTTPS
)

// Host extraction failure reasons. ExtractHost wraps these with a
// human-readable message; callers distinguish them with errors.Is.
var (
	ErrEmptyURL           = errors.New("empty URL")
	ErrWhitespaceInURL    = errors.New("whitespace in URL")
	ErrInvalidScheme      = errors.New("invalid scheme")
	ErrMissingHost        = errors.New("missing host")
	ErrUserinfoNotAllowed = errors.New("userinfo not allowed")
	ErrIPv6NotSupported   = errors.New("IPv6 hosts not supported")
)

// ExtractHost parses a raw URL under a restrictive grammar and returns
// its lowercase host, stripped of port and trailing dots.
//
// Scheme, userinfo, and IPv6-literal rejection happen before the host is
// extracted: partial extraction followed by ad-hoc cleanup is exactly the
// class of parsing inconsistency that produces SSRF bypasses, so each
// rule is an unconditional gate. No DNS resolution is performed.
func ExtractHost(rawURL string, constraint SchemeConstraint) (string, error) {
	u := strings.TrimSpace(rawURL)

	if u == "" {
		return "", fmt.Errorf("URL cannot be empty: %w", ErrEmptyURL)
	}

	if strings.IndexFunc(u, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("URL cannot contain whitespace: %w", ErrWhitespaceInURL)
	}

	var rest string
	switch constraint {
	case HTTPSOnly:
		if !strings.HasPrefix(u, "https://") {
			return "", fmt.Errorf("only https:// URLs are allowed: %w", ErrInvalidScheme)
		}
		rest = strings.TrimPrefix(u, "https://")
	case HTTPOrHTTPS:
		switch {
		case strings.HasPrefix(u, "http://"):
			rest = strings.TrimPrefix(u, "http://")
		case strings.HasPrefix(u, "https://"):
			rest = strings.TrimPrefix(u, "https://")
		default:
			return "", fmt.Errorf("only http:// and https:// URLs are allowed: %w", ErrInvalidScheme)
		}
	default:
		return "", fmt.Errorf("unknown scheme constraint %d: %w", constraint, ErrInvalidScheme)
	}

	// Authority runs to the first path, query, or fragment delimiter.
	authority := rest
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		authority = rest[:i]
	}

	if authority == "" {
		return "", fmt.Errorf("URL must include a host: %w", ErrMissingHost)
	}

	// Reject user@host forms outright rather than parsing past the @;
	// attempting to is itself a common SSRF bypass vector.
	if strings.Contains(authority, "@") {
		return "", fmt.Errorf("URL userinfo is not allowed: %w", ErrUserinfoNotAllowed)
	}

	if strings.HasPrefix(authority, "[") {
		return "", fmt.Errorf("IPv6 literal hosts are not supported: %w", ErrIPv6NotSupported)
	}

	host := authority
	if i := strings.Index(authority, ":"); i >= 0 {
		host = authority[:i]
	}
	host = strings.ToLower(strings.TrimRight(strings.TrimSpace(host), "."))

	if host == "" {
		return "", fmt.Errorf("URL must include a valid host: %w", ErrMissingHost)
	}

	return host, nil
}
