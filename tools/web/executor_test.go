package web

import (
	"context"
	"strings"
	"testing"

	"github.com/c360studio/semstreams/agentic"

	"github.com/c360studio/webguard/config"
)

func testExecutor(allowed ...string) *Executor {
	return NewExecutor(allowed, config.DefaultConfig().Fetch)
}

func TestListTools(t *testing.T) {
	exec := testExecutor("example.com")

	tools := exec.ListTools()
	if len(tools) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(tools))
	}

	names := make(map[string]bool)
	for _, tool := range tools {
		names[tool.Name] = true
		if tool.Description == "" {
			t.Errorf("tool %s has no description", tool.Name)
		}
	}
	for _, want := range []string{"web_fetch", "http_request", "browser_open"} {
		if !names[want] {
			t.Errorf("missing tool %s", want)
		}
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	exec := testExecutor("example.com")

	result, err := exec.Execute(context.Background(), agentic.ToolCall{
		ID:   "call-1",
		Name: "file_read",
	})
	if err == nil {
		t.Error("expected error for unknown tool")
	}
	if result.Error == "" {
		t.Error("expected error message in result")
	}
}

func TestBrowserOpenRequiresHTTPS(t *testing.T) {
	exec := testExecutor("example.com")

	result, err := exec.Execute(context.Background(), agentic.ToolCall{
		ID:        "call-1",
		Name:      "browser_open",
		Arguments: map[string]any{"url": "http://example.com"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(result.Error, "https://") {
		t.Errorf("expected https-only rejection, got %q", result.Error)
	}
}

func TestBrowserOpenApprovesAllowedURL(t *testing.T) {
	exec := testExecutor("example.com")

	result, err := exec.Execute(context.Background(), agentic.ToolCall{
		ID:        "call-1",
		Name:      "browser_open",
		Arguments: map[string]any{"url": "https://docs.example.com/page"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("unexpected tool error: %s", result.Error)
	}
	if !strings.Contains(result.Content, "docs.example.com") {
		t.Errorf("expected approved host in content, got %q", result.Content)
	}
}

func TestBrowserOpenBlocksPrivateHost(t *testing.T) {
	exec := testExecutor("*")

	result, err := exec.Execute(context.Background(), agentic.ToolCall{
		ID:        "call-1",
		Name:      "browser_open",
		Arguments: map[string]any{"url": "https://localhost/admin"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(result.Error, "private or local") {
		t.Errorf("expected private-host rejection, got %q", result.Error)
	}
}

func TestWebFetchMissingURLArgument(t *testing.T) {
	exec := testExecutor("example.com")

	result, err := exec.Execute(context.Background(), agentic.ToolCall{
		ID:        "call-1",
		Name:      "web_fetch",
		Arguments: map[string]any{},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(result.Error, "url argument") {
		t.Errorf("expected missing-argument error, got %q", result.Error)
	}
}

func TestWebFetchBlocksUnlistedHost(t *testing.T) {
	exec := testExecutor("example.com")

	result, err := exec.Execute(context.Background(), agentic.ToolCall{
		ID:        "call-1",
		Name:      "web_fetch",
		Arguments: map[string]any{"url": "https://evil.com"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(result.Error, "not an allowed domain") {
		t.Errorf("expected allowlist rejection, got %q", result.Error)
	}
}

func TestHTTPRequestRejectsBadMethod(t *testing.T) {
	exec := testExecutor("example.com")

	result, err := exec.Execute(context.Background(), agentic.ToolCall{
		ID:   "call-1",
		Name: "http_request",
		Arguments: map[string]any{
			"url":    "https://example.com",
			"method": "TRACE",
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(result.Error, "not allowed") {
		t.Errorf("expected method rejection, got %q", result.Error)
	}
}
