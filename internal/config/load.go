// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/pitwall/config.yaml",
	"/etc/pitwall/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces all environment overrides.
const envPrefix = "PITWALL_"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8090,
			Timeout:        30 * time.Second,
			CORSOrigins:    []string{"*"},
			TrustedProxies: []string{},
		},
		OAuth: OAuthConfig{
			TokenURL:  "https://oauth.iracing.com/oauth2/token",
			Scope:     "iracing.auth",
			Timeout:   15 * time.Second,
			MockMode:  false,
			StorePath: "/data/credentials",
		},
		Upstream: UpstreamConfig{
			BaseURL:       "https://members-ng.iracing.com",
			Timeout:       30 * time.Second,
			OutboundRPS:   5,
			OutboundBurst: 5,
		},
		RateLimit: RateLimitConfig{
			ReadPerWindow: 60,
			BulkPerWindow: 10,
			Window:        time.Minute,
			HTTPPerMinute: 120,
		},
		Ingest: IngestConfig{
			BatchSize:  500,
			MaxSamples: 10000,
		},
		Database: DatabaseConfig{
			Path:      "/data/pitwall.duckdb",
			Threads:   0,
			MaxMemory: "1GB",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from layered sources: defaults, then an
// optional YAML file, then PITWALL_* environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps PITWALL_* variable names to koanf paths. Keys that
// are not listed are ignored, so unrelated environment noise cannot
// leak into the configuration.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	mappings := map[string]string{
		"server_host":            "server.host",
		"server_port":            "server.port",
		"server_timeout":         "server.timeout",
		"server_cors_origins":    "server.cors_origins",
		"server_trusted_proxies": "server.trusted_proxies",

		"oauth_token_url":     "oauth.token_url",
		"oauth_client_id":     "oauth.client_id",
		"oauth_client_secret": "oauth.client_secret",
		"oauth_username":      "oauth.username",
		"oauth_password":      "oauth.password",
		"oauth_scope":         "oauth.scope",
		"oauth_timeout":       "oauth.timeout",
		"oauth_mock_mode":     "oauth.mock_mode",
		"oauth_store_path":    "oauth.store_path",

		"upstream_base_url":       "upstream.base_url",
		"upstream_timeout":        "upstream.timeout",
		"upstream_outbound_rps":   "upstream.outbound_rps",
		"upstream_outbound_burst": "upstream.outbound_burst",

		"rate_limit_read_per_window": "rate_limit.read_per_window",
		"rate_limit_bulk_per_window": "rate_limit.bulk_per_window",
		"rate_limit_window":          "rate_limit.window",
		"rate_limit_http_per_minute": "rate_limit.http_per_minute",

		"ingest_batch_size":  "ingest.batch_size",
		"ingest_max_samples": "ingest.max_samples",

		"database_path":       "database.path",
		"database_threads":    "database.threads",
		"database_max_memory": "database.max_memory",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}
	if path, ok := mappings[key]; ok {
		return path
	}
	return ""
}

// sliceConfigPaths lists paths that arrive from the environment as
// comma-separated strings but unmarshal into slices.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"server.trusted_proxies",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}
