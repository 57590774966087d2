// Package web provides guarded web access tools for agent use.
//
// Three tools share one allowlist but carry different scheme policies:
// web_fetch and http_request accept http and https, browser_open is
// https-only. Every call runs the full urlcheck pipeline before any
// network activity.
package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/c360studio/semstreams/agentic"

	"github.com/c360studio/webguard/config"
	"github.com/c360studio/webguard/fetch"
	"github.com/c360studio/webguard/metrics"
	"github.com/c360studio/webguard/urlcheck"
)

// Executor implements the web access tools.
type Executor struct {
	fetcher   *fetch.Fetcher
	browser   *urlcheck.Guard
	converter *fetch.Converter
}

// NewExecutor creates a web tool executor over the given allowlist.
func NewExecutor(allowedDomains []string, fetchCfg config.FetchConfig) *Executor {
	return &Executor{
		fetcher:   fetch.NewFetcher(urlcheck.NewGuard(allowedDomains, urlcheck.HTTPOrHTTPS), fetchCfg),
		browser:   urlcheck.NewGuard(allowedDomains, urlcheck.HTTPSOnly),
		converter: fetch.NewConverter(),
	}
}

// Execute executes a web tool call
func (e *Executor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	switch call.Name {
	case "web_fetch":
		return e.webFetch(ctx, call)
	case "http_request":
		return e.httpRequest(ctx, call)
	case "browser_open":
		return e.browserOpen(ctx, call)
	default:
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("unknown tool: %s", call.Name),
		}, fmt.Errorf("unknown tool: %s", call.Name)
	}
}

// ListTools returns the tool definitions for web operations
func (e *Executor) ListTools() []agentic.ToolDefinition {
	return []agentic.ToolDefinition{
		{
			Name:        "web_fetch",
			Description: "Fetch a web page over HTTP/HTTPS and convert it to markdown",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "URL of the page to fetch (http or https)",
					},
				},
				"required": []string{"url"},
			},
		},
		{
			Name:        "http_request",
			Description: "Issue a generic HTTP/HTTPS request and return the raw response",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "Request URL (http or https)",
					},
					"method": map[string]any{
						"type":        "string",
						"description": "Request method (GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS; default GET)",
					},
					"headers": map[string]any{
						"type":        "object",
						"description": "Optional request headers",
					},
					"body": map[string]any{
						"type":        "string",
						"description": "Optional request body",
					},
				},
				"required": []string{"url"},
			},
		},
		{
			Name:        "browser_open",
			Description: "Validate an HTTPS URL for opening in a browser; returns the approved URL",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "HTTPS URL to open",
					},
				},
				"required": []string{"url"},
			},
		},
	}
}

// webFetch fetches a page and converts it to markdown
func (e *Executor) webFetch(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	urlStr, ok := call.Arguments["url"].(string)
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "url argument is required",
		}, nil
	}

	result, err := e.fetcher.Fetch(ctx, urlStr)
	metrics.RecordDecision(classify(err))
	if err != nil {
		metrics.RecordFetch(fetchOutcome(err))
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  err.Error(),
		}, nil
	}
	metrics.RecordFetch("ok")

	if !strings.Contains(result.ContentType, "html") {
		return agentic.ToolResult{
			CallID:  call.ID,
			Content: string(result.Body),
		}, nil
	}

	converted, err := e.converter.Convert(result.Body, urlStr)
	if err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to convert page: %s", err.Error()),
		}, nil
	}

	content := converted.Markdown
	if converted.Title != "" {
		content = "# " + converted.Title + "\n\n" + content
	}

	return agentic.ToolResult{
		CallID:  call.ID,
		Content: content,
	}, nil
}

// httpRequest issues a generic request and returns the raw response
func (e *Executor) httpRequest(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	urlStr, ok := call.Arguments["url"].(string)
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "url argument is required",
		}, nil
	}

	method, _ := call.Arguments["method"].(string)
	body, _ := call.Arguments["body"].(string)

	headers := make(map[string]string)
	if raw, ok := call.Arguments["headers"].(map[string]any); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}

	result, err := e.fetcher.Do(ctx, method, urlStr, headers, body)
	metrics.RecordDecision(classify(err))
	if err != nil {
		metrics.RecordFetch(fetchOutcome(err))
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  err.Error(),
		}, nil
	}
	metrics.RecordFetch("ok")

	content := fmt.Sprintf("HTTP %d %s\n\n%s",
		result.StatusCode, http.StatusText(result.StatusCode), string(result.Body))

	return agentic.ToolResult{
		CallID:  call.ID,
		Content: content,
	}, nil
}

// browserOpen validates an HTTPS URL without fetching it
func (e *Executor) browserOpen(_ context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	urlStr, ok := call.Arguments["url"].(string)
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "url argument is required",
		}, nil
	}

	host, err := e.browser.Check(urlStr)
	metrics.RecordDecision(err)
	if err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  err.Error(),
		}, nil
	}

	return agentic.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("approved: %s (host %s)", urlStr, host),
	}, nil
}

// classify returns err when it is a validation failure, nil otherwise,
// so transport errors are not counted as blocked decisions.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if metrics.Reason(err) == "error" {
		return nil
	}
	return err
}

// fetchOutcome maps a fetch error to a metric outcome label.
func fetchOutcome(err error) string {
	if metrics.Reason(err) != "error" {
		return "blocked"
	}
	if strings.HasPrefix(err.Error(), "HTTP ") {
		return "http_error"
	}
	return "transport_error"
}
