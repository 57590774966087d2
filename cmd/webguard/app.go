package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/webguard/audit"
	"github.com/c360studio/webguard/config"
	"github.com/c360studio/webguard/fetch"
	"github.com/c360studio/webguard/server"
	"github.com/c360studio/webguard/urlcheck"
)

func fetchCmd(configPath, logLevel *string) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Fetch an allowed URL and print it as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(*logLevel)

			guard, cfg, err := buildGuard(*configPath, false, logger)
			if err != nil {
				return err
			}

			fetcher := fetch.NewFetcher(guard, cfg.Fetch)
			result, err := fetcher.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if raw || !strings.Contains(result.ContentType, "html") {
				fmt.Print(string(result.Body))
				return nil
			}

			converted, err := fetch.NewConverter().Convert(result.Body, args[0])
			if err != nil {
				return fmt.Errorf("convert page: %w", err)
			}

			if converted.Title != "" {
				fmt.Printf("# %s\n\n", converted.Title)
			}
			fmt.Println(converted.Markdown)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the response body without conversion")

	return cmd
}

func serveCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP validation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(*logLevel)
			return runServe(*configPath, logger)
		},
	}
}

func runServe(configPath string, logger *slog.Logger) error {
	cfg, baseDir, err := loadConfig(configPath, logger)
	if err != nil {
		return err
	}

	allowlist, err := cfg.ExpandAllowlist(baseDir)
	if err != nil {
		return err
	}
	guard := urlcheck.NewGuard(allowlist, urlcheck.HTTPOrHTTPS)

	var auditPub *audit.Publisher
	if cfg.Audit.URL != "" {
		auditPub, err = audit.NewPublisher(cfg.Audit.URL, cfg.Audit.Subject)
		if err != nil {
			return fmt.Errorf("connect audit publisher: %w", err)
		}
		defer auditPub.Close()
		logger.Info("Audit publishing enabled",
			"url", cfg.Audit.URL,
			"subject", cfg.Audit.Subject)
	}

	srv := server.New(guard, auditPub, logger)
	mux := http.NewServeMux()
	srv.RegisterHTTPHandlers(mux)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Hot-reload the allowlist when the config file changes. Only an
	// explicit or discoverable file can be watched; with pure defaults
	// there is nothing to watch.
	watchPath := configPath
	if watchPath == "" {
		watchPath = config.NewLoader(logger).ProjectConfigPath()
	}
	if watchPath != "" {
		watcher, err := config.NewWatcher(watchPath, 0, logger)
		if err != nil {
			return fmt.Errorf("create config watcher: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("start config watcher: %w", err)
		}
		defer func() { _ = watcher.Stop() }()

		go reloadLoop(ctx, watcher, watchPath, srv, logger)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Validation service listening",
			"addr", cfg.Server.Addr,
			"allowlist_entries", len(guard.AllowedDomains()))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down http server", "error", err)
	}

	logger.Info("Webguard shutdown complete")
	return nil
}

// reloadLoop rebuilds the guard whenever the watcher reports a config
// change. A broken edit keeps the previous guard in place.
func reloadLoop(ctx context.Context, watcher *config.Watcher, path string, srv *server.Server, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-watcher.Events():
			if !ok {
				return
			}

			cfg, err := config.LoadFromFile(path)
			if err != nil {
				logger.Error("Config reload failed, keeping previous allowlist",
					"path", path, "error", err)
				continue
			}
			if err := cfg.Validate(); err != nil {
				logger.Error("Reloaded config invalid, keeping previous allowlist",
					"path", path, "error", err)
				continue
			}

			allowlist, err := cfg.ExpandAllowlist(filepath.Dir(path))
			if err != nil {
				logger.Error("Allowlist expansion failed, keeping previous allowlist",
					"path", path, "error", err)
				continue
			}

			guard := urlcheck.NewGuard(allowlist, urlcheck.HTTPOrHTTPS)
			srv.SetGuard(guard)
			logger.Info("Allowlist reloaded",
				"path", path,
				"allowlist_entries", len(guard.AllowedDomains()))
		}
	}
}
