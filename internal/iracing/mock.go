// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package iracing

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"
)

// MockClient serves deterministic synthetic data derived from an FNV-1a
// hash of the requested identifier. It is active when mock mode is
// forced or when no client credentials are configured, so a deployment
// without upstream access still answers every read with stable values
// instead of failing.
type MockClient struct{}

// NewMockClient creates a mock upstream client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// seed hashes an identifier into a stable 64-bit value.
func seed(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

// MemberProfile returns a synthetic driver profile.
func (m *MockClient) MemberProfile(_ context.Context, _, custID string) (*MemberProfile, error) {
	h := seed(custID)
	starts := int(50 + h%400)
	wins := starts * int(h%20) / 100

	return &MemberProfile{
		CustID:       custID,
		DisplayName:  fmt.Sprintf("Driver %s", custID),
		IRating:      floatPtr(float64(1350 + h%3500)),
		SafetyRating: floatPtr(1.5 + float64(h%250)/100),
		Starts:       intPtr(starts),
		Wins:         intPtr(wins),
		Top5:         intPtr(starts * int(10+h%25) / 100),
		Top10:        intPtr(starts * int(30+h%40) / 100),
		AvgIncidents: floatPtr(float64(h%80) / 10),
	}, nil
}

// MemberRecentRaces returns a synthetic recent-race history.
func (m *MockClient) MemberRecentRaces(_ context.Context, _, custID string) (*MemberRecentRaces, error) {
	races := make([]RecentRace, 0, 8)
	for i := 0; i < 8; i++ {
		rh := seed(fmt.Sprintf("%s/race/%d", custID, i))
		participants := int(14 + rh%10)
		finish := int(1 + rh%uint64(participants))
		races = append(races, RecentRace{
			SessionID:        fmt.Sprintf("%d", 48000000+rh%1000000),
			SeriesName:       "Grand Touring Cup",
			StartPosition:    intPtr(int(1 + (rh>>8)%uint64(participants))),
			FinishPosition:   intPtr(finish),
			Incidents:        intPtr(int(rh % 9)),
			StrengthOfField:  floatPtr(float64(1400 + rh%2800)),
			ParticipantCount: participants,
			DNF:              rh%10 == 0,
			Won:              finish == 1,
		})
	}
	return &MemberRecentRaces{CustID: custID, Races: races}, nil
}

// MemberChartData returns a synthetic iRating history with a stable
// per-driver trend.
func (m *MockClient) MemberChartData(_ context.Context, _, custID string) (*MemberChartData, error) {
	h := seed(custID)
	base := float64(1350 + h%3500)
	slope := float64(int64(h%200) - 100) // between -100 and +99 per step

	points := make([]ChartPoint, 0, 12)
	when := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		points = append(points, ChartPoint{
			When:  when.AddDate(0, 0, 7*i),
			Value: base + slope*float64(i)/11,
		})
	}

	return &MemberChartData{CustID: custID, Category: "irating", Points: points}, nil
}

// SessionResult returns a synthetic session classification.
func (m *MockClient) SessionResult(_ context.Context, _, sessionID string) (*SessionResult, error) {
	h := seed(sessionID)
	participants := int(12 + h%12)

	var sof float64
	entries := make([]SessionEntry, 0, participants)
	for i := 0; i < participants; i++ {
		eh := seed(fmt.Sprintf("%s/entry/%d", sessionID, i))
		custID := fmt.Sprintf("%d", 100000+eh%900000)
		ir := float64(1350 + eh%3500)
		sof += ir
		entries = append(entries, SessionEntry{
			CustID:           custID,
			DisplayName:      fmt.Sprintf("Driver %s", custID),
			StartingPosition: intPtr(i + 1),
			FinishPosition:   intPtr(int(1+(eh>>4)%uint64(participants))),
			Incidents:        intPtr(int(eh % 9)),
			IRating:          floatPtr(ir),
		})
	}
	sof /= float64(participants)

	return &SessionResult{
		SessionID:        sessionID,
		TrackName:        "Silverstone Circuit",
		StrengthOfField:  floatPtr(sof),
		ParticipantCount: participants,
		Entries:          entries,
	}, nil
}
