package urlcheck

import (
	"net"
	"strings"
)

// Pre-compiled CIDR networks for non-globally-routable address space.
// These are parsed once at package initialization. The list is
// enumerated explicitly rather than delegating to net.IP helpers,
// because several required ranges (shared address space, benchmarking,
// documentation, IETF special-purpose) are absent from the built-ins.
var (
	v4NonGlobal []*net.IPNet
	v6NonGlobal []*net.IPNet
)

func init() {
	v4NonGlobal = mustCIDRs(
		"127.0.0.0/8",        // loopback
		"10.0.0.0/8",         // private (RFC 1918)
		"172.16.0.0/12",      // private (RFC 1918)
		"192.168.0.0/16",     // private (RFC 1918)
		"169.254.0.0/16",     // link-local
		"0.0.0.0/32",         // unspecified
		"255.255.255.255/32", // broadcast
		"224.0.0.0/4",        // multicast
		"100.64.0.0/10",      // shared address space / CGNAT (RFC 6598)
		"240.0.0.0/4",        // reserved (subsumes broadcast)
		"192.0.0.0/24",       // IETF protocol assignments
		"192.0.2.0/24",       // documentation TEST-NET-1
		"198.51.100.0/24",    // documentation TEST-NET-2
		"203.0.113.0/24",     // documentation TEST-NET-3
		"198.18.0.0/15",      // benchmarking (RFC 2544)
	)
	v6NonGlobal = mustCIDRs(
		"::1/128",       // loopback
		"::/128",        // unspecified
		"ff00::/8",      // multicast
		"fc00::/7",      // unique local
		"fe80::/10",     // link-local
		"2001:db8::/32", // documentation
	)
}

func mustCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid non-global CIDR " + cidr + ": " + err.Error())
		}
		nets = append(nets, n)
	}
	return nets
}

// IsPrivateOrLocalHost reports whether host denotes a private, loopback,
// link-local, or otherwise non-globally-routable destination that must
// be blocked for SSRF protection.
//
// Lexical checks (localhost variants, the .local mDNS TLD) run before IP
// parsing because those names never parse as IP literals but are a
// primary SSRF target. A host that is neither a local name nor an IP
// literal returns false: it is an ordinary hostname whose resolution is
// the caller's responsibility, and the caller must re-check the resolved
// address with IsNonGlobalIP.
//
// Non-canonical numeric encodings (octal 0177.0.0.1, hex 0x7f000001,
// bare decimal 2130706433, zero-padded octets) are rejected by the IP
// parser and therefore return false here. A downstream resolver that
// accepts such forms is not covered by this check alone.
func IsPrivateOrLocalHost(host string) bool {
	// Strip a bracket pair from forms like [::1]; ExtractHost rejects
	// these at the URL layer, but classify defensively for callers that
	// pass bare hosts.
	bare := host
	if strings.HasPrefix(bare, "[") && strings.HasSuffix(bare, "]") {
		bare = bare[1 : len(bare)-1]
	}

	lower := strings.ToLower(bare)

	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return true
	}
	// Block the .local mDNS TLD: last dot-separated label equals "local".
	if lower == "local" || strings.HasSuffix(lower, ".local") {
		return true
	}

	if ip := net.ParseIP(bare); ip != nil {
		return IsNonGlobalIP(ip)
	}

	return false
}

// IsNonGlobalIP reports whether an already-parsed IP address falls in
// non-globally-routable space. Callers that resolve a validated hostname
// to an IP before connecting must run every resolved address through
// this check to close the DNS-rebinding gap.
//
// IPv4-mapped IPv6 addresses (::ffff:a.b.c.d) are classified by their
// embedded IPv4 address.
func IsNonGlobalIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if v4 := ip.To4(); v4 != nil {
		for _, n := range v4NonGlobal {
			if n.Contains(v4) {
				return true
			}
		}
		return false
	}
	for _, n := range v6NonGlobal {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
