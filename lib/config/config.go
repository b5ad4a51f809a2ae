// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for Courier binaries.
type Config struct {
	// API configures how requests reach the Bot API server.
	API APIConfig `yaml:"api"`

	// Poll configures the update long-poll loop.
	Poll PollConfig `yaml:"poll"`

	// Rate configures outbound send throttling.
	Rate RateConfig `yaml:"rate"`

	// Log configures diagnostic output.
	Log LogConfig `yaml:"log"`
}

// APIConfig configures the Bot API endpoint.
type APIConfig struct {
	// BaseURL is the API server root, without a trailing slash.
	// Default: https://api.telegram.org. Point it at a local
	// bot-api-server instance for self-hosted deployments.
	BaseURL string `yaml:"base_url"`

	// RequestTimeout bounds a single non-polling API call, as a
	// Go duration string. The poll loop derives its own deadline
	// from the long-poll timeout instead.
	// Default: 30s
	RequestTimeout string `yaml:"request_timeout"`
}

// PollConfig configures update acquisition.
type PollConfig struct {
	// TimeoutSeconds is the long-poll hold time requested from the
	// server. Zero falls back to the poller default of 50.
	// Default: 50
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// Limit caps the number of updates per batch, 1-100.
	// Zero lets the server apply its own default.
	Limit int `yaml:"limit"`

	// AllowedUpdates restricts which update kinds the server delivers
	// (e.g. "message", "callback_query"). Empty keeps the server's
	// previous setting. Values are passed through verbatim; the server
	// rejects names it does not recognize.
	AllowedUpdates []string `yaml:"allowed_updates"`

	// CursorFile is where the update offset checkpoint is persisted
	// between runs.
	// Default: ${HOME}/.cache/courier/cursor.cbor
	CursorFile string `yaml:"cursor_file"`
}

// RateConfig configures outbound throttling. The Bot API enforces
// roughly 30 messages per second overall and one message per second
// per chat; exceeding either earns 429 responses.
type RateConfig struct {
	// GlobalPerSecond is the overall send rate across all chats.
	// Default: 30
	GlobalPerSecond float64 `yaml:"global_per_second"`

	// PerChatPerSecond is the send rate within a single chat.
	// Default: 1
	PerChatPerSecond float64 `yaml:"per_chat_per_second"`
}

// LogConfig configures diagnostic output.
type LogConfig struct {
	// Level is the minimum severity: debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// Format selects the handler: text or json.
	// Default: text
	Format string `yaml:"format"`
}

// Default returns the default configuration. These defaults describe a
// standalone bot against the public API server; a config file is only
// needed to deviate from them.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		API: APIConfig{
			BaseURL:        "https://api.telegram.org",
			RequestTimeout: "30s",
		},
		Poll: PollConfig{
			TimeoutSeconds: 50,
			Limit:          0,
			CursorFile:     filepath.Join(homeDir, ".cache", "courier", "cursor.cbor"),
		},
		Rate: RateConfig{
			GlobalPerSecond:  30,
			PerChatPerSecond: 1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the COURIER_CONFIG environment
// variable. Unlike [LoadFile], a missing variable is not an error:
// the defaults describe a working standalone bot, so binaries run
// without any config file at all.
func Load() (*Config, error) {
	configPath := os.Getenv("COURIER_CONFIG")
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values. The only expansion performed is
// ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.expandVariables()

	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Poll.CursorFile = expandVars(c.Poll.CursorFile, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, fmt.Errorf("api.base_url is required"))
	} else if parsed, err := url.Parse(c.API.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("api.base_url: %w", err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, fmt.Errorf("api.base_url must be http or https, got %q", c.API.BaseURL))
	}

	if c.API.RequestTimeout == "" {
		errs = append(errs, fmt.Errorf("api.request_timeout is required"))
	} else if d, err := time.ParseDuration(c.API.RequestTimeout); err != nil {
		errs = append(errs, fmt.Errorf("api.request_timeout: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("api.request_timeout must be positive, got %s", d))
	}

	if c.Poll.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("poll.timeout_seconds must be >= 0, got %d", c.Poll.TimeoutSeconds))
	}
	if c.Poll.Limit < 0 || c.Poll.Limit > 100 {
		errs = append(errs, fmt.Errorf("poll.limit must be 0-100, got %d", c.Poll.Limit))
	}
	if c.Poll.CursorFile == "" {
		errs = append(errs, fmt.Errorf("poll.cursor_file is required"))
	}

	if c.Rate.GlobalPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("rate.global_per_second must be positive, got %g", c.Rate.GlobalPerSecond))
	}
	if c.Rate.PerChatPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("rate.per_chat_per_second must be positive, got %g", c.Rate.PerChatPerSecond))
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !contains(levels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", levels))
	}
	formats := []string{"text", "json"}
	if !contains(formats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", formats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// RequestTimeout returns api.request_timeout as a duration. Call
// Validate first; an unparseable value falls back to 30 seconds here.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.API.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// SlogLevel maps log.level to a slog.Level. Unknown values map to
// Info.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
