package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/c360studio/webguard/config"
	"github.com/c360studio/webguard/urlcheck"
)

func testFetcher(allowed []string, constraint urlcheck.SchemeConstraint) *Fetcher {
	return NewFetcher(urlcheck.NewGuard(allowed, constraint), config.DefaultConfig().Fetch)
}

// Validation failures must abort before any network activity; these
// tests never open a connection.
func TestFetchRejectsBeforeNetwork(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		url     string
		wantErr error
	}{
		{
			name:    "unlisted host",
			allowed: []string{"example.com"},
			url:     "https://evil.com/payload",
			wantErr: urlcheck.ErrHostNotAllowed,
		},
		{
			name:    "private host despite wildcard",
			allowed: []string{"*"},
			url:     "https://127.0.0.1/admin",
			wantErr: urlcheck.ErrPrivateHost,
		},
		{
			name:    "metadata endpoint blocked",
			allowed: []string{"*"},
			url:     "https://169.254.169.254/latest/meta-data/",
			wantErr: urlcheck.ErrPrivateHost,
		},
		{
			name:    "userinfo blocked",
			allowed: []string{"example.com"},
			url:     "https://user@example.com/",
			wantErr: urlcheck.ErrUserinfoNotAllowed,
		},
		{
			name:    "ipv6 literal blocked",
			allowed: []string{"*"},
			url:     "https://[::1]:8080/",
			wantErr: urlcheck.ErrIPv6NotSupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testFetcher(tt.allowed, urlcheck.HTTPOrHTTPS)
			_, err := f.Fetch(context.Background(), tt.url)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Fetch(%q) error = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestFetchHTTPSOnlyConstraint(t *testing.T) {
	f := testFetcher([]string{"example.com"}, urlcheck.HTTPSOnly)
	_, err := f.Fetch(context.Background(), "http://example.com")
	if !errors.Is(err, urlcheck.ErrInvalidScheme) {
		t.Errorf("Fetch(http) with HTTPSOnly error = %v, want ErrInvalidScheme", err)
	}
}

func TestDoRejectsUnknownMethod(t *testing.T) {
	f := testFetcher([]string{"example.com"}, urlcheck.HTTPOrHTTPS)
	_, err := f.Do(context.Background(), "TRACE", "https://example.com", nil, "")
	if err == nil || !strings.Contains(err.Error(), "not allowed") {
		t.Errorf("Do(TRACE) error = %v, want method rejection", err)
	}
}

func TestDoValidatesBeforeMethodDispatch(t *testing.T) {
	f := testFetcher([]string{"example.com"}, urlcheck.HTTPOrHTTPS)
	_, err := f.Do(context.Background(), "POST", "https://evil.com", nil, `{"k":"v"}`)
	if !errors.Is(err, urlcheck.ErrHostNotAllowed) {
		t.Errorf("Do on unlisted host error = %v, want ErrHostNotAllowed", err)
	}
}
