// Package main provides the webguard binary entry point.
// Webguard validates outbound URLs against a domain allowlist and
// blocks requests that would reach private or local network addresses.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/webguard/config"
	"github.com/c360studio/webguard/metrics"
	"github.com/c360studio/webguard/urlcheck"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "webguard"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "webguard",
		Short: "Outbound URL validation guard",
		Long: `Webguard validates outbound URLs against a domain allowlist and
blocks requests that would reach private or local network addresses.

It provides:
- URL validation (allowlist matching, private-host rejection)
- Guarded fetching with HTML-to-markdown conversion
- An HTTP validation service with hot-reloaded configuration`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(checkCmd(&configPath, &logLevel))
	cmd.AddCommand(fetchCmd(&configPath, &logLevel))
	cmd.AddCommand(serveCmd(&configPath, &logLevel))
	cmd.AddCommand(configCmd(&logLevel))

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// checkVerdict is the per-URL result printed by `webguard check --json`.
type checkVerdict struct {
	URL     string `json:"url"`
	Host    string `json:"host,omitempty"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail,omitempty"`
}

func checkCmd(configPath, logLevel *string) *cobra.Command {
	var (
		httpsOnly  bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "check URL [URL...]",
		Short: "Validate URLs against the configured allowlist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(*logLevel)

			guard, _, err := buildGuard(*configPath, httpsOnly, logger)
			if err != nil {
				return err
			}

			blocked := 0
			for _, rawURL := range args {
				host, err := guard.Check(rawURL)
				verdict := checkVerdict{
					URL:     rawURL,
					Host:    host,
					Allowed: err == nil,
					Reason:  metrics.Reason(err),
				}
				if err != nil {
					blocked++
					verdict.Detail = err.Error()
				}

				if jsonOutput {
					data, merr := json.Marshal(verdict)
					if merr != nil {
						return fmt.Errorf("marshal verdict: %w", merr)
					}
					fmt.Println(string(data))
					continue
				}

				if verdict.Allowed {
					fmt.Printf("ALLOWED  %s (host %s)\n", rawURL, host)
				} else {
					fmt.Printf("BLOCKED  %s: %s\n", rawURL, verdict.Detail)
				}
			}

			if blocked > 0 {
				return fmt.Errorf("%d of %d URLs blocked", blocked, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&httpsOnly, "https-only", false, "Require https:// URLs")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print one JSON verdict per line")

	return cmd
}

func configCmd(logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage webguard configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the user config file with defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(*logLevel)
			loader := config.NewLoader(logger)
			if err := loader.EnsureUserConfig(); err != nil {
				return fmt.Errorf("create user config: %w", err)
			}
			return nil
		},
	})

	return cmd
}

// setupLogging configures the default slog logger and returns it.
func setupLogging(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads configuration from an explicit path when given,
// otherwise through the layered loader. It returns the config and the
// directory relative allowlist fragment globs resolve against.
func loadConfig(configPath string, logger *slog.Logger) (*config.Config, string, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, "", err
		}
		if err := cfg.Validate(); err != nil {
			return nil, "", fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, filepath.Dir(configPath), nil
	}

	loader := config.NewLoader(logger)
	cfg, err := loader.Load()
	if err != nil {
		return nil, "", err
	}

	baseDir := "."
	if projectPath := loader.ProjectConfigPath(); projectPath != "" {
		baseDir = filepath.Dir(projectPath)
	}
	return cfg, baseDir, nil
}

// buildGuard loads configuration and constructs a guard over the
// expanded allowlist.
func buildGuard(configPath string, httpsOnly bool, logger *slog.Logger) (*urlcheck.Guard, *config.Config, error) {
	cfg, baseDir, err := loadConfig(configPath, logger)
	if err != nil {
		return nil, nil, err
	}

	allowlist, err := cfg.ExpandAllowlist(baseDir)
	if err != nil {
		return nil, nil, err
	}

	constraint := urlcheck.HTTPOrHTTPS
	if httpsOnly {
		constraint = urlcheck.HTTPSOnly
	}

	guard := urlcheck.NewGuard(allowlist, constraint)
	logger.Debug("Guard configured",
		"allowlist_entries", len(guard.AllowedDomains()),
		"https_only", httpsOnly)

	return guard, cfg, nil
}
