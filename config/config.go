// Package config provides configuration loading and management for webguard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Config represents the complete webguard configuration
type Config struct {
	// Allowlist is the set of domains outbound requests may target.
	// Entries are normalized (scheme, path, port, and casing stripped)
	// before matching; "*" and "*.domain" wildcard forms are supported.
	Allowlist []string `yaml:"allowlist"`
	// AllowlistFiles lists glob patterns (doublestar syntax, relative to
	// the config file) of YAML fragment files that contribute additional
	// allowlist entries. Each fragment is a YAML list of strings.
	AllowlistFiles []string `yaml:"allowlist_files"`
	// Fetch configures the outbound HTTP client.
	Fetch FetchConfig `yaml:"fetch"`
	// Audit configures decision-event publishing.
	Audit AuditConfig `yaml:"audit"`
	// Server configures the validation HTTP service.
	Server ServerConfig `yaml:"server"`
}

// FetchConfig configures the outbound HTTP client
type FetchConfig struct {
	// Timeout is the maximum time to wait for a response
	Timeout time.Duration `yaml:"timeout"`
	// UserAgent is sent with every outbound request
	UserAgent string `yaml:"user_agent"`
	// MaxContentSize caps the response body size in bytes
	MaxContentSize int64 `yaml:"max_content_size"`
	// MaxRedirects caps the redirect chain length; every redirect target
	// is re-validated against the allowlist and private-host rules
	MaxRedirects int `yaml:"max_redirects"`
}

// AuditConfig configures decision-event publishing over NATS
type AuditConfig struct {
	// URL is the NATS server URL (empty = auditing disabled)
	URL string `yaml:"url"`
	// Subject is the NATS subject decision events are published on
	Subject string `yaml:"subject"`
}

// ServerConfig configures the validation HTTP service
type ServerConfig struct {
	// Addr is the listen address for `webguard serve`
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults. The allowlist
// starts empty: nothing is permitted until the operator lists domains.
func DefaultConfig() *Config {
	return &Config{
		Allowlist:      nil,
		AllowlistFiles: nil,
		Fetch: FetchConfig{
			Timeout:        30 * time.Second,
			UserAgent:      "webguard/0.1",
			MaxContentSize: 10 * 1024 * 1024,
			MaxRedirects:   5,
		},
		Audit: AuditConfig{
			URL:     "",
			Subject: "webguard.audit.decision",
		},
		Server: ServerConfig{
			Addr: ":8880",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.MaxContentSize <= 0 {
		return fmt.Errorf("fetch.max_content_size must be positive")
	}
	if c.Fetch.MaxRedirects < 0 {
		return fmt.Errorf("fetch.max_redirects must not be negative")
	}
	if c.Fetch.UserAgent == "" {
		return fmt.Errorf("fetch.user_agent is required")
	}
	if c.Audit.URL != "" && c.Audit.Subject == "" {
		return fmt.Errorf("audit.subject is required when audit.url is set")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Allowlist) > 0 {
		c.Allowlist = other.Allowlist
	}
	if len(other.AllowlistFiles) > 0 {
		c.AllowlistFiles = other.AllowlistFiles
	}

	// Fetch
	if other.Fetch.Timeout != 0 {
		c.Fetch.Timeout = other.Fetch.Timeout
	}
	if other.Fetch.UserAgent != "" {
		c.Fetch.UserAgent = other.Fetch.UserAgent
	}
	if other.Fetch.MaxContentSize != 0 {
		c.Fetch.MaxContentSize = other.Fetch.MaxContentSize
	}
	if other.Fetch.MaxRedirects != 0 {
		c.Fetch.MaxRedirects = other.Fetch.MaxRedirects
	}

	// Audit
	if other.Audit.URL != "" {
		c.Audit.URL = other.Audit.URL
	}
	if other.Audit.Subject != "" {
		c.Audit.Subject = other.Audit.Subject
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
}

// ExpandAllowlist returns the configured allowlist entries plus the
// contents of every fragment file matched by AllowlistFiles. Relative
// glob patterns are resolved against baseDir (the directory of the
// config file). Entries are returned raw; normalization happens in the
// urlcheck package.
func (c *Config) ExpandAllowlist(baseDir string) ([]string, error) {
	entries := make([]string, 0, len(c.Allowlist))
	entries = append(entries, c.Allowlist...)

	for _, pattern := range c.AllowlistFiles {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(baseDir, pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowlist_files pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			data, err := os.ReadFile(match)
			if err != nil {
				return nil, fmt.Errorf("failed to read allowlist fragment %s: %w", match, err)
			}
			var fragment []string
			if err := yaml.Unmarshal(data, &fragment); err != nil {
				return nil, fmt.Errorf("failed to parse allowlist fragment %s: %w", match, err)
			}
			entries = append(entries, fragment...)
		}
	}

	return entries, nil
}
