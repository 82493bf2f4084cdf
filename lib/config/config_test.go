// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "statesync.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}

	if cfg.Service.SocketPath != "/run/statesync/service.sock" {
		t.Errorf("expected socket_path=/run/statesync/service.sock, got %s", cfg.Service.SocketPath)
	}

	if cfg.Client.SocketPath != cfg.Service.SocketPath {
		t.Errorf("client socket %s differs from service socket %s", cfg.Client.SocketPath, cfg.Service.SocketPath)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresStatesyncConfig(t *testing.T) {
	t.Setenv("STATESYNC_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when STATESYNC_CONFIG not set, got nil")
	}

	expectedMsg := "STATESYNC_CONFIG environment variable not set"
	if !strings.HasPrefix(err.Error(), expectedMsg) {
		t.Errorf("expected error message to start with %q, got %q", expectedMsg, err.Error())
	}
}

func TestLoad_WithStatesyncConfig(t *testing.T) {
	configPath := writeConfig(t, `
environment: staging
service:
  socket_path: /test/service.sock
`)
	t.Setenv("STATESYNC_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}

	if cfg.Service.SocketPath != "/test/service.sock" {
		t.Errorf("expected socket_path=/test/service.sock, got %s", cfg.Service.SocketPath)
	}
}

func TestLoadFile(t *testing.T) {
	configPath := writeConfig(t, `
environment: staging

service:
  socket_path: /custom/service.sock
  catalog_file: /custom/catalog.jsonc
  heartbeat_interval: 5s
  objects:
    - id: img1
      intensity_min: -0.5
      intensity_max: 12.75
    - id: img2
      intensity_max: 1

client:
  target: img1
  overdue_after: 2m

log:
  level: warn
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Service.SocketPath != "/custom/service.sock" {
		t.Errorf("expected socket_path=/custom/service.sock, got %s", cfg.Service.SocketPath)
	}

	if cfg.Service.CatalogFile != "/custom/catalog.jsonc" {
		t.Errorf("expected catalog_file=/custom/catalog.jsonc, got %s", cfg.Service.CatalogFile)
	}

	if cfg.HeartbeatInterval() != 5*time.Second {
		t.Errorf("expected heartbeat 5s, got %v", cfg.HeartbeatInterval())
	}

	if len(cfg.Service.Objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(cfg.Service.Objects))
	}
	first := cfg.Service.Objects[0]
	if first.ID != "img1" || first.IntensityMin != -0.5 || first.IntensityMax != 12.75 {
		t.Errorf("objects[0] = %+v", first)
	}

	if cfg.Client.Target != "img1" {
		t.Errorf("expected target=img1, got %s", cfg.Client.Target)
	}

	if cfg.OverdueAfter() != 2*time.Minute {
		t.Errorf("expected overdue_after 2m, got %v", cfg.OverdueAfter())
	}

	// Fields absent from the file keep their defaults.
	if cfg.ReconnectDelay() != time.Second {
		t.Errorf("expected default reconnect_delay 1s, got %v", cfg.ReconnectDelay())
	}

	if cfg.Log.Level != "warn" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v, want warn/text", cfg.Log)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	configPath := writeConfig(t, "service: [not, a, mapping\n")
	if _, err := LoadFile(configPath); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	configPath := writeConfig(t, `
environment: production

service:
  socket_path: /default/service.sock
  objects:
    - id: dev1

log:
  level: debug

production:
  service:
    socket_path: /prod/service.sock
    objects:
      - id: prod1
      - id: prod2
  log:
    format: json
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Service.SocketPath != "/prod/service.sock" {
		t.Errorf("expected socket_path=/prod/service.sock, got %s", cfg.Service.SocketPath)
	}

	if len(cfg.Service.Objects) != 2 || cfg.Service.Objects[0].ID != "prod1" {
		t.Errorf("expected production objects to replace base list, got %+v", cfg.Service.Objects)
	}

	// An explicit production section replaces the built-in production
	// logging defaults, so the base level survives.
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v, want debug/json", cfg.Log)
	}
}

func TestProductionDefaults(t *testing.T) {
	configPath := writeConfig(t, "environment: production\n")

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v, want info/json", cfg.Log)
	}
}

func TestOtherEnvironmentSectionsIgnored(t *testing.T) {
	configPath := writeConfig(t, `
environment: development
staging:
  client:
    target: staged
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Client.Target != "" {
		t.Errorf("staging override applied in development: target=%s", cfg.Client.Target)
	}
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	t.Setenv("STATESYNC_SOCKET", "/env/service.sock")
	t.Setenv("STATESYNC_ENVIRONMENT", "staging")

	configPath := writeConfig(t, `
environment: development
service:
  socket_path: /file/service.sock
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Environment != Development {
		t.Errorf("expected environment=development from file, got %s (env vars should not override)", cfg.Environment)
	}

	if cfg.Service.SocketPath != "/file/service.sock" {
		t.Errorf("expected socket_path=/file/service.sock from file, got %s (env vars should not override)", cfg.Service.SocketPath)
	}
}

func TestPathExpansion(t *testing.T) {
	t.Setenv("HOME", "/home/operator")
	t.Setenv("STATESYNC_RUN", "")

	configPath := writeConfig(t, `
service:
  socket_path: ${STATESYNC_RUN:-/tmp/statesync}/service.sock
  catalog_file: ${HOME}/catalog.jsonc
client:
  socket_path: ${HOME}/service.sock
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Service.SocketPath != "/tmp/statesync/service.sock" {
		t.Errorf("service socket = %s", cfg.Service.SocketPath)
	}
	if cfg.Service.CatalogFile != "/home/operator/catalog.jsonc" {
		t.Errorf("catalog file = %s", cfg.Service.CatalogFile)
	}
	if cfg.Client.SocketPath != "/home/operator/service.sock" {
		t.Errorf("client socket = %s", cfg.Client.SocketPath)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/statesync",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/statesync",
		},
		{
			input:    "${STATESYNC_TEST_MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name: "invalid environment",
			modify: func(c *Config) {
				c.Environment = "invalid"
			},
			wantErr: "invalid environment",
		},
		{
			name: "empty service socket path",
			modify: func(c *Config) {
				c.Service.SocketPath = ""
			},
			wantErr: "service.socket_path is required",
		},
		{
			name: "unparseable duration",
			modify: func(c *Config) {
				c.Client.OverdueAfter = "soon"
			},
			wantErr: "client.overdue_after",
		},
		{
			name: "negative duration",
			modify: func(c *Config) {
				c.Service.HeartbeatInterval = "-1s"
			},
			wantErr: "must be positive",
		},
		{
			name: "object without id",
			modify: func(c *Config) {
				c.Service.Objects = []ObjectConfig{{IntensityMax: 1}}
			},
			wantErr: "service.objects[0].id is required",
		},
		{
			name: "duplicate object",
			modify: func(c *Config) {
				c.Service.Objects = []ObjectConfig{{ID: "img1"}, {ID: "img1"}}
			},
			wantErr: `duplicate id "img1"`,
		},
		{
			name: "inverted bounds",
			modify: func(c *Config) {
				c.Service.Objects = []ObjectConfig{{ID: "img1", IntensityMin: 2, IntensityMax: 1}}
			},
			wantErr: "exceeds intensity_max",
		},
		{
			name: "invalid log format",
			modify: func(c *Config) {
				c.Log.Format = "xml"
			},
			wantErr: "log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Environment = "invalid"
	cfg.Client.SocketPath = ""
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	for _, want := range []string{"invalid environment", "client.socket_path", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestEnsureSocketDir(t *testing.T) {
	cfg := Default()
	cfg.Service.SocketPath = filepath.Join(t.TempDir(), "run", "statesync", "service.sock")

	if err := cfg.EnsureSocketDir(); err != nil {
		t.Fatalf("EnsureSocketDir failed: %v", err)
	}

	info, err := os.Stat(filepath.Dir(cfg.Service.SocketPath))
	if err != nil {
		t.Fatalf("socket dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("socket dir is not a directory")
	}
}
