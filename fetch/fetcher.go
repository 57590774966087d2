// Package fetch provides guarded outbound HTTP fetching with
// HTML-to-markdown conversion. Every request, including each redirect
// hop and every DNS-resolved address, is validated through the urlcheck
// pipeline before a connection is made.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/webguard/config"
	"github.com/c360studio/webguard/urlcheck"
)

// Result contains the result of an outbound request.
type Result struct {
	Body         []byte
	ContentType  string
	ETag         string
	LastModified time.Time
	StatusCode   int
	// Host is the validated host the request was issued to.
	Host string
}

// Fetcher issues outbound HTTP requests behind a Guard.
type Fetcher struct {
	guard          *urlcheck.Guard
	client         *http.Client
	userAgent      string
	maxContentSize int64
}

// allowedMethods enumerates the request methods the generic client
// accepts; anything else is refused before validation.
var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// NewFetcher creates a fetcher enforcing the given guard's policy.
func NewFetcher(guard *urlcheck.Guard, cfg config.FetchConfig) *Fetcher {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	// Resolve DNS here and re-validate every address before connecting.
	// Validating only the hostname would leave the DNS-rebinding gap
	// open: a name can resolve to a safe address at check time and a
	// private one at connect time.
	safeDialContext := func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}

		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("DNS lookup failed: %w", err)
		}

		for _, ipAddr := range ips {
			if urlcheck.IsNonGlobalIP(ipAddr.IP) {
				return nil, fmt.Errorf("connection to non-global IP %s is not allowed", ipAddr.IP)
			}
		}

		for _, ipAddr := range ips {
			connAddr := net.JoinHostPort(ipAddr.IP.String(), port)
			conn, err := dialer.DialContext(ctx, network, connAddr)
			if err == nil {
				return conn, nil
			}
		}

		return nil, fmt.Errorf("failed to connect to any resolved IP")
	}

	transport := &http.Transport{
		DialContext:           safeDialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	maxRedirects := cfg.MaxRedirects

	return &Fetcher{
		guard: guard,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (max %d)", maxRedirects)
				}
				// Redirect targets get the full pipeline, not just the
				// private-host check: a listed domain may not bounce the
				// client to an unlisted one.
				if _, err := guard.Check(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		userAgent:      cfg.UserAgent,
		maxContentSize: cfg.MaxContentSize,
	}
}

// Guard returns the guard this fetcher enforces.
func (f *Fetcher) Guard() *urlcheck.Guard {
	return f.guard
}

// Fetch retrieves content from the given URL with a GET request.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*Result, error) {
	return f.FetchWithETag(ctx, urlStr, "")
}

// FetchWithETag retrieves content with conditional fetch support. If
// etag is non-empty and the content is unchanged, the result carries
// StatusCode 304 and no body.
func (f *Fetcher) FetchWithETag(ctx context.Context, urlStr string, etag string) (*Result, error) {
	host, err := f.guard.Check(urlStr)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	result := &Result{
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        resp.Header.Get("ETag"),
		StatusCode:  resp.StatusCode,
		Host:        host,
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			result.LastModified = t
		}
	}

	if resp.StatusCode == http.StatusNotModified {
		return result, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}

	result.Body = body
	return result, nil
}

// Do issues a generic request (for the http_request tool). Unlike
// Fetch, non-2xx status codes are not errors; the caller reports them.
func (f *Fetcher) Do(ctx context.Context, method, urlStr string, headers map[string]string, body string) (*Result, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	if !allowedMethods[method] {
		return nil, fmt.Errorf("method %q is not allowed", method)
	}

	host, err := f.guard.Check(urlStr)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range headers {
		// Host overrides would desynchronize the validated host from
		// the one the server routes on.
		if strings.EqualFold(k, "Host") {
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Result{
		Body:        respBody,
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        resp.Header.Get("ETag"),
		StatusCode:  resp.StatusCode,
		Host:        host,
	}, nil
}

// readLimited reads a response body up to the configured size cap.
func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	limitReader := io.LimitReader(r, f.maxContentSize+1)
	body, err := io.ReadAll(limitReader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxContentSize {
		return nil, fmt.Errorf("content too large (exceeds %d bytes)", f.maxContentSize)
	}
	return body, nil
}
