// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the statesync binaries.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Service configures the state authority.
	Service ServiceConfig `yaml:"service"`

	// Client configures the selector and any other state consumer.
	Client ClientConfig `yaml:"client"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Service *ServiceConfig `yaml:"service,omitempty"`
	Client  *ClientConfig  `yaml:"client,omitempty"`
	Log     *LogConfig     `yaml:"log,omitempty"`
}

// ServiceConfig configures statesync-service.
type ServiceConfig struct {
	// SocketPath is the Unix socket the service listens on.
	// Default: /run/statesync/service.sock
	SocketPath string `yaml:"socket_path"`

	// CatalogFile is a commented-JSON colormap catalog. Empty means
	// the built-in catalog.
	CatalogFile string `yaml:"catalog_file"`

	// HeartbeatInterval is how often idle subscribe streams receive a
	// heartbeat frame.
	// Default: 30s
	HeartbeatInterval string `yaml:"heartbeat_interval"`

	// Objects are the colormap objects created at startup.
	Objects []ObjectConfig `yaml:"objects"`
}

// ObjectConfig declares one colormap object and its initial intensity
// bounds.
type ObjectConfig struct {
	ID           string  `yaml:"id"`
	IntensityMin float64 `yaml:"intensity_min"`
	IntensityMax float64 `yaml:"intensity_max"`
}

// ClientConfig configures statesync-selector.
type ClientConfig struct {
	// SocketPath is the service socket to subscribe and send commands to.
	// Default: /run/statesync/service.sock
	SocketPath string `yaml:"socket_path"`

	// Target is the object id the selector binds at startup. Empty
	// leaves the selector unbound until a "target" line arrives.
	Target string `yaml:"target"`

	// OverdueAfter is how long a command outcome may be missing before
	// it is logged as overdue.
	// Default: 30s
	OverdueAfter string `yaml:"overdue_after"`

	// ReconnectDelay is the first delay before resubscribing after the
	// stream drops.
	// Default: 1s
	ReconnectDelay string `yaml:"reconnect_delay"`

	// MaxReconnectDelay caps the backoff between resubscribe attempts.
	// Default: 30s
	MaxReconnectDelay string `yaml:"max_reconnect_delay"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: debug (development), info (production)
	Level string `yaml:"level"`

	// Format is text or json.
	// Default: text (development), json (production)
	Format string `yaml:"format"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	return &Config{
		Environment: Development,
		Service: ServiceConfig{
			SocketPath:        "/run/statesync/service.sock",
			HeartbeatInterval: "30s",
		},
		Client: ClientConfig{
			SocketPath:        "/run/statesync/service.sock",
			OverdueAfter:      "30s",
			ReconnectDelay:    "1s",
			MaxReconnectDelay: "30s",
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
		},
	}
}

// Load loads configuration from the STATESYNC_CONFIG environment variable.
//
// There are no fallbacks or defaults - if STATESYNC_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("STATESYNC_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("STATESYNC_CONFIG environment variable not set; " +
			"set it to the path of your statesync.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values; the only expansion performed is
// ${VAR} and ${VAR:-default} in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: machine-readable logs, no debug traffic.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Log: &LogConfig{
					Level:  "info",
					Format: "json",
				},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Service != nil {
		if overrides.Service.SocketPath != "" {
			c.Service.SocketPath = overrides.Service.SocketPath
		}
		if overrides.Service.CatalogFile != "" {
			c.Service.CatalogFile = overrides.Service.CatalogFile
		}
		if overrides.Service.HeartbeatInterval != "" {
			c.Service.HeartbeatInterval = overrides.Service.HeartbeatInterval
		}
		// Objects replace wholesale: merging lists by id would hide
		// which file declared an object.
		if overrides.Service.Objects != nil {
			c.Service.Objects = overrides.Service.Objects
		}
	}

	if overrides.Client != nil {
		if overrides.Client.SocketPath != "" {
			c.Client.SocketPath = overrides.Client.SocketPath
		}
		if overrides.Client.Target != "" {
			c.Client.Target = overrides.Client.Target
		}
		if overrides.Client.OverdueAfter != "" {
			c.Client.OverdueAfter = overrides.Client.OverdueAfter
		}
		if overrides.Client.ReconnectDelay != "" {
			c.Client.ReconnectDelay = overrides.Client.ReconnectDelay
		}
		if overrides.Client.MaxReconnectDelay != "" {
			c.Client.MaxReconnectDelay = overrides.Client.MaxReconnectDelay
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Service.SocketPath = expandVars(c.Service.SocketPath, vars)
	c.Service.CatalogFile = expandVars(c.Service.CatalogFile, vars)
	c.Client.SocketPath = expandVars(c.Client.SocketPath, vars)
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

// Validate checks the configuration for errors. Every problem is
// reported, joined with errors.Join.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Service.SocketPath == "" {
		errs = append(errs, fmt.Errorf("service.socket_path is required"))
	}
	if c.Client.SocketPath == "" {
		errs = append(errs, fmt.Errorf("client.socket_path is required"))
	}

	durations := []struct {
		name  string
		value string
	}{
		{"service.heartbeat_interval", c.Service.HeartbeatInterval},
		{"client.overdue_after", c.Client.OverdueAfter},
		{"client.reconnect_delay", c.Client.ReconnectDelay},
		{"client.max_reconnect_delay", c.Client.MaxReconnectDelay},
	}
	for _, duration := range durations {
		if _, err := parsePositiveDuration(duration.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", duration.name, err))
		}
	}

	seen := make(map[string]bool, len(c.Service.Objects))
	for index, object := range c.Service.Objects {
		if object.ID == "" {
			errs = append(errs, fmt.Errorf("service.objects[%d].id is required", index))
			continue
		}
		if seen[object.ID] {
			errs = append(errs, fmt.Errorf("service.objects[%d]: duplicate id %q", index, object.ID))
		}
		seen[object.ID] = true
		if object.IntensityMin > object.IntensityMax {
			errs = append(errs, fmt.Errorf("service.objects[%d] (%s): intensity_min %v exceeds intensity_max %v",
				index, object.ID, object.IntensityMin, object.IntensityMax))
		}
	}

	if !contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: debug, info, warn, error"))
	}
	if !contains([]string{"text", "json"}, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: text, json"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsureSocketDir creates the directory holding the service socket.
func (c *Config) EnsureSocketDir() error {
	dir := filepath.Dir(c.Service.SocketPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}

// HeartbeatInterval returns Service.HeartbeatInterval parsed. Call
// Validate first; an unparseable value yields zero.
func (c *Config) HeartbeatInterval() time.Duration {
	return mustDuration(c.Service.HeartbeatInterval)
}

// OverdueAfter returns Client.OverdueAfter parsed.
func (c *Config) OverdueAfter() time.Duration { return mustDuration(c.Client.OverdueAfter) }

// ReconnectDelay returns Client.ReconnectDelay parsed.
func (c *Config) ReconnectDelay() time.Duration { return mustDuration(c.Client.ReconnectDelay) }

// MaxReconnectDelay returns Client.MaxReconnectDelay parsed.
func (c *Config) MaxReconnectDelay() time.Duration {
	return mustDuration(c.Client.MaxReconnectDelay)
}

func parsePositiveDuration(value string) (time.Duration, error) {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if duration <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", value)
	}
	return duration, nil
}

func mustDuration(value string) time.Duration {
	duration, err := parsePositiveDuration(value)
	if err != nil {
		return 0
	}
	return duration
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
