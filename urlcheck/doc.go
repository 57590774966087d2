// Package urlcheck provides host validation for outbound web requests.
//
// # Overview
//
// This package implements the validation pipeline that guards every
// outbound HTTP request against SSRF (Server-Side Request Forgery):
// strict host extraction from a raw URL, allowlist matching, and
// classification of private/local destinations.
//
// # Validation Pipeline
//
// A typical caller normalizes its configured allowlist once at startup,
// then runs every request URL through extraction, matching, and
// classification:
//
//	allowed := urlcheck.NormalizeAllowedDomains(cfg.Allowlist)
//
//	host, err := urlcheck.ExtractHost(rawURL, urlcheck.HTTPOrHTTPS)
//	if err != nil {
//	    return err
//	}
//	if !urlcheck.HostMatchesAllowlist(host, allowed) {
//	    return errNotAllowed
//	}
//	if urlcheck.IsPrivateOrLocalHost(host) {
//	    return errPrivateHost
//	}
//
// Guard bundles the pipeline for callers with a fixed policy:
//
//	guard := urlcheck.NewGuard(cfg.Allowlist, urlcheck.HTTPSOnly)
//	host, err := guard.Check(rawURL)
//
// Both checks are mandatory and independent: allowlisting a domain does
// not exempt it from the private-address check.
//
// # Host Extraction
//
// ExtractHost enforces a restrictive URL grammar. Scheme, userinfo, and
// IPv6-literal rejection happen before any host is extracted; each rule
// is an unconditional gate. Failures are sentinel errors (ErrEmptyURL,
// ErrInvalidScheme, ...) distinguishable with errors.Is.
//
// # Non-Global Classification
//
// IsPrivateOrLocalHost blocks localhost variants, the .local mDNS TLD,
// and every non-globally-routable IPv4/IPv6 range (loopback, RFC 1918,
// link-local, CGNAT, multicast, reserved, documentation, benchmarking),
// including IPv4-mapped IPv6 forms. CIDRs are pre-compiled at package
// initialization.
//
// The classifier does not normalize non-canonical numeric encodings
// (octal, hex, bare decimal, zero-padded octets); those fall through as
// ordinary hostnames and return false. Callers that resolve DNS must
// re-validate the resolved literal with IsNonGlobalIP to close the
// DNS-rebinding gap.
//
// # Concurrency
//
// All functions are pure and stateless; they may be called concurrently
// without coordination.
package urlcheck
