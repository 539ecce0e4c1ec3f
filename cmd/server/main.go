// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

// Package main is the entry point for the Pitwall server.
//
// Pitwall integrates with an OAuth-protected racing telemetry API and
// turns the driver and session statistics it returns into performance
// scores, ranks, and race strategy recommendations. Telemetry batches
// are ingested into an embedded DuckDB store for analytical queries.
//
// Startup order:
//
//  1. Configuration: layered load via Koanf (defaults, YAML file, env)
//  2. Logging: zerolog, JSON or console format
//  3. Credential store: BadgerDB for the machine OAuth credential
//  4. Upstream gateway: token manager, TTL cache, per-IP admission
//     limiters, outbound pacer, circuit breaker (or the deterministic
//     mock when credentials are absent or mock mode is forced)
//  5. Telemetry store: DuckDB with the sample schema applied
//  6. HTTP server: chi router with graceful shutdown on SIGINT/SIGTERM
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/pitwall-dev/pitwall/internal/api"
	"github.com/pitwall-dev/pitwall/internal/cache"
	"github.com/pitwall-dev/pitwall/internal/config"
	"github.com/pitwall-dev/pitwall/internal/ingest"
	"github.com/pitwall-dev/pitwall/internal/iracing"
	"github.com/pitwall-dev/pitwall/internal/logging"
	"github.com/pitwall-dev/pitwall/internal/oauth"
	"github.com/pitwall-dev/pitwall/internal/ratelimit"
	"github.com/pitwall-dev/pitwall/internal/scoring"
	"github.com/pitwall-dev/pitwall/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Bool("mock_mode", cfg.OAuth.MockActive()).
		Str("db_path", cfg.Database.Path).
		Int("port", cfg.Server.Port).
		Msg("Starting Pitwall")

	// Upstream data source: real gateway stack or deterministic mock.
	var data iracing.DataAPI
	var cleanup []func()
	if cfg.OAuth.MockActive() {
		logging.Info().Msg("Serving synthetic upstream data (mock mode)")
		data = iracing.NewMockClient()
	} else {
		data, cleanup, err = buildGateway(cfg, logger)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to build upstream gateway")
		}
	}
	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	store, err := telemetry.Open(telemetry.Config{
		Path:      cfg.Database.Path,
		Threads:   cfg.Database.Threads,
		MaxMemory: cfg.Database.MaxMemory,
	}, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open telemetry store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close telemetry store")
		}
	}()

	ingestor := ingest.New(store, cfg.Ingest.BatchSize, logger)
	engine := scoring.NewEngine()

	server := api.NewServer(cfg, data, ingestor, store, engine, logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		logging.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// buildGateway wires the authenticated upstream stack: Badger-backed
// credential store, token manager, TTL cache, admission limiters,
// outbound pacer, and the circuit breaker on top. The returned cleanup
// funcs run in order on shutdown.
func buildGateway(cfg *config.Config, logger zerolog.Logger) (iracing.DataAPI, []func(), error) {
	var cleanup []func()

	badgerOpts := badger.DefaultOptions(cfg.OAuth.StorePath).
		WithLogger(nil)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	cleanup = append(cleanup, func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close credential store")
		}
	})

	manager := oauth.NewManager(oauth.Config{
		TokenURL:     cfg.OAuth.TokenURL,
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		Username:     cfg.OAuth.Username,
		Password:     cfg.OAuth.Password,
		Scope:        cfg.OAuth.Scope,
		Timeout:      cfg.OAuth.Timeout,
	}, oauth.NewBadgerCredentialStore(db), logger)

	responseCache := cache.New(30 * time.Minute)
	readLimiter := ratelimit.New(cfg.RateLimit.ReadPerWindow, cfg.RateLimit.Window)
	bulkLimiter := ratelimit.New(cfg.RateLimit.BulkPerWindow, cfg.RateLimit.Window)
	cleanup = append(cleanup, responseCache.Stop, readLimiter.Stop, bulkLimiter.Stop)

	client := iracing.New(iracing.Config{
		BaseURL:       cfg.Upstream.BaseURL,
		Timeout:       cfg.Upstream.Timeout,
		OutboundRPS:   cfg.Upstream.OutboundRPS,
		OutboundBurst: cfg.Upstream.OutboundBurst,
	}, manager, responseCache, readLimiter, bulkLimiter, logger)

	return iracing.NewCircuitBreakerClient(client), cleanup, nil
}
