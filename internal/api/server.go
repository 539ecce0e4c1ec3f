// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pitwall-dev/pitwall/internal/config"
	"github.com/pitwall-dev/pitwall/internal/ingest"
	"github.com/pitwall-dev/pitwall/internal/iracing"
	"github.com/pitwall-dev/pitwall/internal/scoring"
	"github.com/pitwall-dev/pitwall/internal/telemetry"
)

// Server wires the HTTP surface to the gateway, ingestor, telemetry
// store, and scoring engine.
type Server struct {
	cfg      *config.Config
	logger   zerolog.Logger
	data     iracing.DataAPI
	ingestor *ingest.Ingestor
	store    *telemetry.Store
	engine   *scoring.Engine
	resolver *ClientIPResolver
}

// NewServer creates the HTTP server composition.
func NewServer(
	cfg *config.Config,
	data iracing.DataAPI,
	ingestor *ingest.Ingestor,
	store *telemetry.Store,
	engine *scoring.Engine,
	logger zerolog.Logger,
) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger.With().Str("component", "api").Logger(),
		data:     data,
		ingestor: ingestor,
		store:    store,
		engine:   engine,
		resolver: NewClientIPResolver(cfg.Server.TrustedProxies),
	}
}

// Routes builds the router with the full middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Observe)
		r.Use(httprate.Limit(
			s.cfg.RateLimit.HTTPPerMinute,
			time.Minute,
			httprate.WithKeyFuncs(func(req *http.Request) (string, error) {
				return s.resolver.ClientIP(req), nil
			}),
		))

		r.Get("/drivers/{custID}", s.handleDriverProfile)
		r.Get("/analysis/session/{sessionID}", s.handleSessionAnalysis)
		r.Get("/analysis/strategy/{custID}", s.handleStrategy)
		r.Post("/telemetry", s.handleTelemetryIngest)
		r.Get("/telemetry/{sessionID}/{custID}", s.handleTelemetrySummary)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"}, time.Now())
}
