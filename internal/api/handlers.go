// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/pitwall-dev/pitwall/internal/ingest"
	"github.com/pitwall-dev/pitwall/internal/iracing"
	"github.com/pitwall-dev/pitwall/internal/logging"
	"github.com/pitwall-dev/pitwall/internal/scoring"
)

// DriverProfileResponse bundles a driver's upstream profile with the
// derived performance score.
type DriverProfileResponse struct {
	Profile     *iracing.MemberProfile     `json:"profile"`
	RecentRaces *iracing.MemberRecentRaces `json:"recent_races,omitempty"`
	Score       scoring.PerformanceScore   `json:"score"`
}

func (s *Server) handleDriverProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	custID := chi.URLParam(r, "custID")
	clientIP := s.resolver.ClientIP(r)
	ctx := r.Context()

	profile, err := s.data.MemberProfile(ctx, clientIP, custID)
	if err != nil {
		s.logDomainError(r, "driver profile", err)
		respondDomainError(w, err)
		return
	}

	// Recent races and chart data enrich the score but their absence
	// must not fail the profile read.
	recent, err := s.data.MemberRecentRaces(ctx, clientIP, custID)
	if err != nil {
		if iracing.IsRateLimited(err) {
			respondDomainError(w, err)
			return
		}
		logging.Ctx(ctx).Warn().Err(err).Str("cust_id", custID).Msg("recent races unavailable")
		recent = nil
	}
	chart, err := s.data.MemberChartData(ctx, clientIP, custID)
	if err != nil {
		if iracing.IsRateLimited(err) {
			respondDomainError(w, err)
			return
		}
		logging.Ctx(ctx).Warn().Err(err).Str("cust_id", custID).Msg("chart data unavailable")
		chart = nil
	}

	features := scoring.BuildFeatureSet(profile, recent, chart, nil)
	scores := s.engine.Score([]scoring.FeatureSet{features})

	respondData(w, http.StatusOK, &DriverProfileResponse{
		Profile:     profile,
		RecentRaces: recent,
		Score:       scores[0],
	}, start)
}

// SessionAnalysisResponse carries the scored field for one session.
type SessionAnalysisResponse struct {
	SessionID        string                     `json:"session_id"`
	TrackName        string                     `json:"track_name,omitempty"`
	StrengthOfField  *float64                   `json:"strength_of_field,omitempty"`
	ParticipantCount int                        `json:"participant_count"`
	Scores           []scoring.PerformanceScore `json:"scores"`
}

func (s *Server) handleSessionAnalysis(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sessionID := chi.URLParam(r, "sessionID")
	clientIP := s.resolver.ClientIP(r)

	session, err := s.data.SessionResult(r.Context(), clientIP, sessionID)
	if err != nil {
		s.logDomainError(r, "session analysis", err)
		respondDomainError(w, err)
		return
	}

	features := sessionFeatures(session)
	scores := s.engine.Score(features)

	respondData(w, http.StatusOK, &SessionAnalysisResponse{
		SessionID:        session.SessionID,
		TrackName:        session.TrackName,
		StrengthOfField:  session.StrengthOfField,
		ParticipantCount: session.ParticipantCount,
		Scores:           scores,
	}, start)
}

// StrategyResponse carries the recommendation for one driver in a
// session, alongside the projected score it was derived from.
type StrategyResponse struct {
	CustID         string                         `json:"cust_id"`
	SessionID      string                         `json:"session_id"`
	Recommendation scoring.StrategyRecommendation `json:"recommendation"`
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	custID := chi.URLParam(r, "custID")
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"session query parameter is required")
		return
	}

	clientIP := s.resolver.ClientIP(r)
	ctx := r.Context()

	session, err := s.data.SessionResult(ctx, clientIP, sessionID)
	if err != nil {
		s.logDomainError(r, "strategy", err)
		respondDomainError(w, err)
		return
	}

	profile, err := s.data.MemberProfile(ctx, clientIP, custID)
	if err != nil {
		s.logDomainError(r, "strategy", err)
		respondDomainError(w, err)
		return
	}
	recent, err := s.data.MemberRecentRaces(ctx, clientIP, custID)
	if err != nil {
		if iracing.IsRateLimited(err) {
			respondDomainError(w, err)
			return
		}
		recent = nil
	}
	chart, err := s.data.MemberChartData(ctx, clientIP, custID)
	if err != nil {
		if iracing.IsRateLimited(err) {
			respondDomainError(w, err)
			return
		}
		chart = nil
	}

	subject := scoring.BuildFeatureSet(profile, recent, chart, session)
	var opponents []scoring.FeatureSet
	for _, fs := range sessionFeatures(session) {
		if fs.CustID != custID {
			opponents = append(opponents, fs)
		}
	}

	respondData(w, http.StatusOK, &StrategyResponse{
		CustID:         custID,
		SessionID:      sessionID,
		Recommendation: s.engine.Recommend(subject, opponents),
	}, start)
}

// TelemetryRequest is the batch-ingest payload.
type TelemetryRequest struct {
	Samples []ingest.Sample `json:"samples"`
}

func (s *Server) handleTelemetryIngest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req TelemetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"request body is not valid JSON")
		return
	}
	if len(req.Samples) == 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"samples must not be empty")
		return
	}
	if len(req.Samples) > s.cfg.Ingest.MaxSamples {
		respondError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
			"sample count exceeds the per-request maximum")
		return
	}

	result, err := s.ingestor.Insert(r.Context(), req.Samples)
	if err != nil {
		s.logDomainError(r, "telemetry ingest", err)
		respondDomainError(w, err)
		return
	}

	respondData(w, http.StatusOK, result, start)
}

func (s *Server) handleTelemetrySummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sessionID := chi.URLParam(r, "sessionID")
	custID := chi.URLParam(r, "custID")

	summary, err := s.store.SessionSummary(r.Context(), sessionID, custID)
	if err != nil {
		s.logDomainError(r, "telemetry summary", err)
		respondDomainError(w, err)
		return
	}
	respondData(w, http.StatusOK, summary, start)
}

// sessionFeatures builds one feature set per session entry. Entries
// carry only a session-local slice of each driver's statistics, so most
// fields stay unknown and confidence reflects that.
func sessionFeatures(session *iracing.SessionResult) []scoring.FeatureSet {
	features := make([]scoring.FeatureSet, 0, len(session.Entries))
	for i := range session.Entries {
		entry := &session.Entries[i]
		features = append(features, scoring.FeatureSet{
			CustID:              entry.CustID,
			IRating:             scoring.FromPtr(entry.IRating),
			AvgIncidentsPerRace: scoring.FromIntPtr(entry.Incidents),
			StartingPosition:    scoring.FromIntPtr(entry.StartingPosition),
			StrengthOfField:     scoring.FromPtr(session.StrengthOfField),
			TotalParticipants:   session.ParticipantCount,
		})
	}
	return features
}

func (s *Server) logDomainError(r *http.Request, op string, err error) {
	logging.Ctx(r.Context()).Error().
		Err(err).
		Str("op", op).
		Str("path", r.URL.Path).
		Msg("request failed")
}
