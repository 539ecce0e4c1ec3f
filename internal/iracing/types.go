// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package iracing

import (
	"context"
	"time"
)

// Optional numeric fields are pointers throughout: the upstream omits
// fields it has no data for, and 0 is a valid value for several of them
// (win counts, incident counts), so absence must stay distinguishable.

// MemberProfile is a driver's relatively static career profile.
type MemberProfile struct {
	CustID       string   `json:"cust_id"`
	DisplayName  string   `json:"display_name"`
	IRating      *float64 `json:"irating,omitempty"`
	SafetyRating *float64 `json:"safety_rating,omitempty"`
	Starts       *int     `json:"starts,omitempty"`
	Wins         *int     `json:"wins,omitempty"`
	Top5         *int     `json:"top5,omitempty"`
	Top10        *int     `json:"top10,omitempty"`
	AvgIncidents *float64 `json:"avg_incidents,omitempty"`
}

// RecentRace is one row of a driver's recent race history.
type RecentRace struct {
	SessionID        string   `json:"session_id"`
	SeriesName       string   `json:"series_name"`
	StartPosition    *int     `json:"start_position,omitempty"`
	FinishPosition   *int     `json:"finish_position,omitempty"`
	Incidents        *int     `json:"incidents,omitempty"`
	StrengthOfField  *float64 `json:"strength_of_field,omitempty"`
	ParticipantCount int      `json:"participant_count"`
	DNF              bool     `json:"dnf"`
	Won              bool     `json:"won"`
}

// MemberRecentRaces is a driver's recent race history, newest first.
type MemberRecentRaces struct {
	CustID string       `json:"cust_id"`
	Races  []RecentRace `json:"races"`
}

// ChartPoint is one sample of a rating-over-time series.
type ChartPoint struct {
	When  time.Time `json:"when"`
	Value float64   `json:"value"`
}

// MemberChartData is a driver's iRating history, oldest first.
type MemberChartData struct {
	CustID   string       `json:"cust_id"`
	Category string       `json:"category"`
	Points   []ChartPoint `json:"points"`
}

// SessionEntry is one competitor's line in a session result.
type SessionEntry struct {
	CustID           string   `json:"cust_id"`
	DisplayName      string   `json:"display_name"`
	StartingPosition *int     `json:"starting_position,omitempty"`
	FinishPosition   *int     `json:"finish_position,omitempty"`
	Incidents        *int     `json:"incidents,omitempty"`
	IRating          *float64 `json:"irating,omitempty"`
}

// SessionResult is the full classification of one session.
type SessionResult struct {
	SessionID        string         `json:"session_id"`
	TrackName        string         `json:"track_name"`
	StrengthOfField  *float64       `json:"strength_of_field,omitempty"`
	ParticipantCount int            `json:"participant_count"`
	Entries          []SessionEntry `json:"entries"`
}

// DataAPI is the upstream surface the rest of the service consumes.
// Implemented by Client for real traffic, by CircuitBreakerClient as a
// resilience wrapper, and by MockClient for mock mode and tests.
//
// clientIP identifies the inbound caller for admission control; an empty
// clientIP bypasses the per-IP gate (internal background work).
type DataAPI interface {
	MemberProfile(ctx context.Context, clientIP, custID string) (*MemberProfile, error)
	MemberRecentRaces(ctx context.Context, clientIP, custID string) (*MemberRecentRaces, error)
	MemberChartData(ctx context.Context, clientIP, custID string) (*MemberChartData, error)
	SessionResult(ctx context.Context, clientIP, sessionID string) (*SessionResult, error)
}
