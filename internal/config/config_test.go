// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8090 {
		t.Errorf("Expected default port 8090, got %d", cfg.Server.Port)
	}
	if cfg.Ingest.BatchSize != 500 {
		t.Errorf("Expected default batch size 500, got %d", cfg.Ingest.BatchSize)
	}
	if cfg.RateLimit.BulkPerWindow >= cfg.RateLimit.ReadPerWindow {
		t.Errorf("Expected bulk budget stricter than read budget, got %d >= %d",
			cfg.RateLimit.BulkPerWindow, cfg.RateLimit.ReadPerWindow)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Unexpected default logging config: %+v", cfg.Logging)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PITWALL_SERVER_PORT", "9999")
	t.Setenv("PITWALL_OAUTH_CLIENT_ID", "pw-client")
	t.Setenv("PITWALL_OAUTH_CLIENT_SECRET", "pw-secret")
	t.Setenv("PITWALL_UPSTREAM_TIMEOUT", "10s")
	t.Setenv("PITWALL_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Expected port override 9999, got %d", cfg.Server.Port)
	}
	if cfg.OAuth.ClientID != "pw-client" {
		t.Errorf("Expected client id override, got %q", cfg.OAuth.ClientID)
	}
	if cfg.Upstream.Timeout != 10*time.Second {
		t.Errorf("Expected timeout override 10s, got %v", cfg.Upstream.Timeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %q", cfg.Logging.Level)
	}
}

func TestLoadIgnoresUnknownEnvVars(t *testing.T) {
	t.Setenv("PITWALL_NOT_A_SETTING", "whatever")

	if _, err := Load(); err != nil {
		t.Errorf("Expected unknown variables to be ignored, got %v", err)
	}
}

func TestLoadSliceFieldsFromEnv(t *testing.T) {
	t.Setenv("PITWALL_SERVER_TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{"10.0.0.0/8", "172.16.0.1"}
	got := cfg.Server.TrustedProxies
	if len(got) != len(want) {
		t.Fatalf("Expected %d trusted proxies, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Proxy %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 7070\ningest:\n  batch_size: 1000\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Expected file port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Ingest.BatchSize != 1000 {
		t.Errorf("Expected file batch size 1000, got %d", cfg.Ingest.BatchSize)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PITWALL_SERVER_PORT", "6060")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 6060 {
		t.Errorf("Expected env to beat file, got port %d", cfg.Server.Port)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("PITWALL_LOG_LEVEL", "shouty")

	if _, err := Load(); err == nil {
		t.Error("Expected validation failure for bad log level")
	}
}

func TestMockActive(t *testing.T) {
	cases := []struct {
		name string
		cfg  OAuthConfig
		want bool
	}{
		{"forced", OAuthConfig{MockMode: true, ClientID: "a", ClientSecret: "b"}, true},
		{"credentials present", OAuthConfig{ClientID: "a", ClientSecret: "b"}, false},
		{"missing secret", OAuthConfig{ClientID: "a"}, true},
		{"missing both", OAuthConfig{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.MockActive(); got != tc.want {
				t.Errorf("MockActive() = %v, want %v", got, tc.want)
			}
		})
	}
}
