// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

// Package config loads layered service configuration: built-in
// defaults, then an optional YAML file, then environment variables.
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	OAuth     OAuthConfig     `koanf:"oauth"`
	Upstream  UpstreamConfig  `koanf:"upstream"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Database  DatabaseConfig  `koanf:"database"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout        time.Duration `koanf:"timeout"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	TrustedProxies []string      `koanf:"trusted_proxies"`
}

// OAuthConfig holds the machine identity used against the upstream
// token endpoint. When MockMode is set, or ClientID/ClientSecret are
// absent, the service serves deterministic synthetic data instead of
// calling the upstream.
type OAuthConfig struct {
	TokenURL     string        `koanf:"token_url"`
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	Username     string        `koanf:"username"`
	Password     string        `koanf:"password"`
	Scope        string        `koanf:"scope"`
	Timeout      time.Duration `koanf:"timeout"`
	MockMode     bool          `koanf:"mock_mode"`
	StorePath    string        `koanf:"store_path"`
}

// MockActive reports whether the service must run against synthetic
// data: either forced, or real credentials are not configured.
func (c OAuthConfig) MockActive() bool {
	return c.MockMode || c.ClientID == "" || c.ClientSecret == ""
}

// UpstreamConfig controls the data API gateway.
type UpstreamConfig struct {
	BaseURL       string        `koanf:"base_url"`
	Timeout       time.Duration `koanf:"timeout"`
	OutboundRPS   float64       `koanf:"outbound_rps" validate:"gt=0"`
	OutboundBurst int           `koanf:"outbound_burst" validate:"gte=1"`
}

// RateLimitConfig carries per-client-IP admission budgets. Bulk covers
// session-collection reads and gets a stricter budget than plain reads.
type RateLimitConfig struct {
	ReadPerWindow int           `koanf:"read_per_window" validate:"gte=1"`
	BulkPerWindow int           `koanf:"bulk_per_window" validate:"gte=1"`
	Window        time.Duration `koanf:"window"`
	HTTPPerMinute int           `koanf:"http_per_minute" validate:"gte=1"`
}

// IngestConfig controls telemetry batch ingestion.
type IngestConfig struct {
	BatchSize  int `koanf:"batch_size" validate:"gte=100"`
	MaxSamples int `koanf:"max_samples" validate:"gte=1"`
}

// DatabaseConfig holds the DuckDB settings for the telemetry store.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	Threads   int    `koanf:"threads"`
	MaxMemory string `koanf:"max_memory"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints across the whole configuration.
func (c *Config) Validate() error {
	return validate.Struct(c)
}
