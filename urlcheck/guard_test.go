package urlcheck

import (
	"errors"
	"reflect"
	"testing"
)

func TestGuardCheck(t *testing.T) {
	guard := NewGuard([]string{"example.com", "*.docs.org"}, HTTPSOnly)

	tests := []struct {
		name    string
		url     string
		want    string
		wantErr error
	}{
		{
			name: "allowed domain",
			url:  "https://example.com/path",
			want: "example.com",
		},
		{
			name: "allowed subdomain",
			url:  "https://api.example.com",
			want: "api.example.com",
		},
		{
			name: "wildcard pattern",
			url:  "https://en.docs.org",
			want: "en.docs.org",
		},
		{
			name:    "http rejected by constraint",
			url:     "http://example.com",
			wantErr: ErrInvalidScheme,
		},
		{
			name:    "unlisted domain rejected",
			url:     "https://evil.com",
			wantErr: ErrHostNotAllowed,
		},
		{
			name:    "substring lookalike rejected",
			url:     "https://evilexample.com",
			wantErr: ErrHostNotAllowed,
		},
		{
			name:    "userinfo rejected",
			url:     "https://user@example.com",
			wantErr: ErrUserinfoNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := guard.Check(tt.url)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Check(%q) error = %v, want %v", tt.url, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Check(%q) unexpected error: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("Check(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

// Allowlisting a host never exempts it from the private-address check.
func TestGuardCheckPrivateHostDespiteAllowlist(t *testing.T) {
	guard := NewGuard([]string{"*"}, HTTPOrHTTPS)

	for _, url := range []string{
		"http://localhost:8080",
		"https://127.0.0.1/admin",
		"http://192.168.1.1",
		"https://metadata.local",
		"http://169.254.169.254/latest/meta-data/",
	} {
		if _, err := guard.Check(url); !errors.Is(err, ErrPrivateHost) {
			t.Errorf("Check(%q) error = %v, want ErrPrivateHost", url, err)
		}
	}
}

func TestGuardNormalizesAllowlist(t *testing.T) {
	guard := NewGuard([]string{"HTTPS://Example.com/", "example.com", "bad entry"}, HTTPSOnly)
	want := []string{"example.com"}
	if got := guard.AllowedDomains(); !reflect.DeepEqual(got, want) {
		t.Errorf("AllowedDomains = %v, want %v", got, want)
	}
	if guard.Constraint() != HTTPSOnly {
		t.Errorf("Constraint = %v, want HTTPSOnly", guard.Constraint())
	}
}
