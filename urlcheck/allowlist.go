package urlcheck

import "strings"

// HostMatchesAllowlist reports whether host matches any pattern in the
// allowlist. Three pattern forms are supported:
//
//   - "*" matches every host (still subject to the private-host check)
//   - "*.example.com" matches example.com and all of its subdomains
//   - "example.com" matches the exact domain and all of its subdomains
//
// Subdomain matching is label-boundary safe: "example.com" never matches
// "evilexample.com". No normalization is performed here; callers must
// pass patterns from NormalizeAllowedDomains and a host from ExtractHost,
// or mismatched casing and unstripped ports will silently fail to match.
func HostMatchesAllowlist(host string, allowedDomains []string) bool {
	for _, pattern := range allowedDomains {
		if pattern == "*" {
			return true
		}
		if strings.HasPrefix(pattern, "*.") {
			// ".example.com" as a suffix, or the bare domain itself.
			if strings.HasSuffix(host, pattern[1:]) || host == pattern[2:] {
				return true
			}
			continue
		}
		if host == pattern || strings.HasSuffix(host, "."+pattern) {
			return true
		}
	}
	return false
}
