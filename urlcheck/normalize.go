package urlcheck

import (
	"sort"
	"strings"
	"unicode"
)

// NormalizeDomain canonicalizes a single allowlist entry.
//
//   - Trims whitespace and converts to lowercase
//   - Strips an https:// or http:// prefix
//   - Strips path components
//   - Strips leading/trailing dots
//   - Strips a port suffix
//
// The boolean is false when the result is empty or still contains
// whitespace. Wildcard entries ("*", "*.example.com") pass through
// unchanged.
func NormalizeDomain(raw string) (string, bool) {
	d := strings.ToLower(strings.TrimSpace(raw))
	if d == "" {
		return "", false
	}

	if strings.HasPrefix(d, "https://") {
		d = strings.TrimPrefix(d, "https://")
	} else if strings.HasPrefix(d, "http://") {
		d = strings.TrimPrefix(d, "http://")
	}

	if i := strings.Index(d, "/"); i >= 0 {
		d = d[:i]
	}

	d = strings.Trim(d, ".")

	if i := strings.Index(d, ":"); i >= 0 {
		d = d[:i]
	}

	if d == "" || strings.IndexFunc(d, unicode.IsSpace) >= 0 {
		return "", false
	}

	return d, true
}

// NormalizeAllowedDomains normalizes a list of allowlist entries via
// NormalizeDomain, drops invalid ones, and returns the result sorted and
// deduplicated. Invalid entries are dropped rather than rejected because
// allowlist configuration is operator-trusted; failing hard there would
// be an availability hazard.
func NormalizeAllowedDomains(domains []string) []string {
	seen := make(map[string]bool, len(domains))
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		n, ok := NormalizeDomain(d)
		if !ok || seen[n] {
			continue
		}
		seen[n] = true
		normalized = append(normalized, n)
	}
	sort.Strings(normalized)
	return normalized
}
