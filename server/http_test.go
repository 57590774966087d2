package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/c360studio/webguard/urlcheck"
)

func testServer(allowed ...string) (*Server, *http.ServeMux) {
	srv := New(urlcheck.NewGuard(allowed, urlcheck.HTTPOrHTTPS), nil, nil)
	mux := http.NewServeMux()
	srv.RegisterHTTPHandlers(mux)
	return srv, mux
}

func postCheck(t *testing.T, mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/check", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCheckAllowed(t *testing.T) {
	_, mux := testServer("example.com")

	rec := postCheck(t, mux, `{"url":"https://docs.example.com/page"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp CheckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Allowed {
		t.Errorf("Allowed = false, want true (detail %q)", resp.Detail)
	}
	if resp.Host != "docs.example.com" {
		t.Errorf("Host = %q, want docs.example.com", resp.Host)
	}
	if resp.Reason != "ok" {
		t.Errorf("Reason = %q, want ok", resp.Reason)
	}
	if resp.RequestID == "" {
		t.Error("expected a request ID")
	}
}

func TestCheckBlocked(t *testing.T) {
	_, mux := testServer("example.com")

	tests := []struct {
		name   string
		url    string
		reason string
	}{
		{"unlisted host", "https://evil.com", "host_not_allowed"},
		{"private despite wildcard entry", "https://192.168.1.1", "host_not_allowed"},
		{"userinfo", "https://user@example.com", "userinfo_not_allowed"},
		{"bad scheme", "ftp://example.com", "invalid_scheme"},
		{"empty url", "", "empty_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postCheck(t, mux, `{"url":`+mustJSON(t, tt.url)+`}`)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}

			var resp CheckResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Allowed {
				t.Error("Allowed = true, want false")
			}
			if resp.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", resp.Reason, tt.reason)
			}
			if resp.Detail == "" {
				t.Error("expected a detail message")
			}
		})
	}
}

func TestCheckPrivateHostWithOpenAllowlist(t *testing.T) {
	_, mux := testServer("*")

	rec := postCheck(t, mux, `{"url":"https://169.254.169.254/latest/meta-data/"}`)

	var resp CheckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Allowed {
		t.Error("metadata endpoint must be blocked even with an open allowlist")
	}
	if resp.Reason != "private_host" {
		t.Errorf("Reason = %q, want private_host", resp.Reason)
	}
}

func TestCheckRejectsBadRequests(t *testing.T) {
	_, mux := testServer("example.com")

	rec := postCheck(t, mux, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON: status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/check", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: status = %d, want 405", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	_, mux := testServer()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want ok status", rec.Body.String())
	}
}

func TestSetGuardSwapsPolicy(t *testing.T) {
	srv, mux := testServer("example.com")

	rec := postCheck(t, mux, `{"url":"https://other.org"}`)
	var resp CheckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Allowed {
		t.Fatal("other.org should be blocked before the swap")
	}

	srv.SetGuard(urlcheck.NewGuard([]string{"other.org"}, urlcheck.HTTPOrHTTPS))

	rec = postCheck(t, mux, `{"url":"https://other.org"}`)
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Allowed {
		t.Errorf("other.org should be allowed after the swap (detail %q)", resp.Detail)
	}
}

func mustJSON(t *testing.T, s string) string {
	t.Helper()
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}
