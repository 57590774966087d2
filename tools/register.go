// Package tools registers webguard's web access tools for agent use.
// Tools are registered globally via init() for use by agentic-tools.
package tools

import (
	"os"
	"strings"

	agentictools "github.com/c360studio/semstreams/processor/agentic-tools"

	"github.com/c360studio/webguard/config"
	"github.com/c360studio/webguard/tools/web"
)

func init() {
	// The allowlist comes from the environment at registration time;
	// unset means nothing is permitted (the tools still load, every
	// call is refused).
	var allowed []string
	if raw := os.Getenv("WEBGUARD_ALLOWED_DOMAINS"); raw != "" {
		for _, entry := range strings.Split(raw, ",") {
			if entry = strings.TrimSpace(entry); entry != "" {
				allowed = append(allowed, entry)
			}
		}
	}

	exec := web.NewExecutor(allowed, config.DefaultConfig().Fetch)

	for _, tool := range exec.ListTools() {
		if err := agentictools.RegisterTool(tool.Name, exec); err != nil {
			// Tool might already be registered
			continue
		}
	}
}
