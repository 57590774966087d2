package urlcheck

import (
	"errors"
	"fmt"
)

// Policy rejection reasons reported by Guard.Check, distinguishable with
// errors.Is alongside the extraction errors.
var (
	ErrHostNotAllowed = errors.New("host not in allowlist")
	ErrPrivateHost    = errors.New("private or local host")
)

// Guard bundles the validation pipeline behind a fixed policy: a
// normalized allowlist and a scheme constraint. It holds no mutable
// state and is safe for concurrent use.
type Guard struct {
	allowed    []string
	constraint SchemeConstraint
}

// NewGuard creates a guard from raw allowlist entries (normalized and
// deduplicated here) and the caller's scheme constraint.
func NewGuard(allowedDomains []string, constraint SchemeConstraint) *Guard {
	return &Guard{
		allowed:    NormalizeAllowedDomains(allowedDomains),
		constraint: constraint,
	}
}

// AllowedDomains returns a copy of the normalized pattern set.
func (g *Guard) AllowedDomains() []string {
	out := make([]string, len(g.allowed))
	copy(out, g.allowed)
	return out
}

// Constraint returns the guard's scheme constraint.
func (g *Guard) Constraint() SchemeConstraint {
	return g.constraint
}

// Check runs the full pipeline on a raw URL: host extraction, allowlist
// matching, and non-global classification. It returns the extracted host
// on success and the first failure otherwise. A failure is terminal, not
// transient; callers must abort the request.
func (g *Guard) Check(rawURL string) (string, error) {
	host, err := ExtractHost(rawURL, g.constraint)
	if err != nil {
		return "", err
	}

	if !HostMatchesAllowlist(host, g.allowed) {
		return "", fmt.Errorf("host %q is not an allowed domain: %w", host, ErrHostNotAllowed)
	}

	if IsPrivateOrLocalHost(host) {
		return "", fmt.Errorf("host %q denotes a private or local address: %w", host, ErrPrivateHost)
	}

	return host, nil
}
