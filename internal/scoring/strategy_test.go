// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package scoring

import (
	"strings"
	"testing"
)

// strongOpponents builds n opponents that will outrank a weak subject.
func strongOpponents(n int) []FeatureSet {
	opponents := make([]FeatureSet, n)
	for i := range opponents {
		opponents[i] = FeatureSet{
			CustID:          string(rune('a' + i)),
			IRating:         Known(3500),
			StrengthOfField: Known(2500),
			RecentAvgFinish: Known(3),
		}
	}
	return opponents
}

// weakOpponents builds n opponents a strong subject will outrank.
func weakOpponents(n int) []FeatureSet {
	opponents := make([]FeatureSet, n)
	for i := range opponents {
		opponents[i] = FeatureSet{
			CustID:  string(rune('a' + i)),
			IRating: Known(1400),
		}
	}
	return opponents
}

func TestRecommendSurvival(t *testing.T) {
	engine := NewEngine()

	subject := FeatureSet{
		CustID:          "168966",
		IRating:         Known(1500),
		StrengthOfField: Known(2500),
		DNFRate:         Known(0.4),
	}

	rec := engine.Recommend(subject, strongOpponents(4))
	if rec.Strategy != StrategySurvival {
		t.Errorf("Expected survival for a high-DNF backmarker, got %s", rec.Strategy)
	}
}

func TestRecommendDefensive(t *testing.T) {
	engine := NewEngine()

	subject := FeatureSet{
		CustID:              "168966",
		IRating:             Known(3800),
		StrengthOfField:     Known(2000),
		AvgIncidentsPerRace: Known(6),
		DNFRate:             Known(0.1),
	}

	rec := engine.Recommend(subject, weakOpponents(5))
	if rec.Strategy != StrategyDefensive {
		t.Errorf("Expected defensive for an incident-prone front-runner, got %s", rec.Strategy)
	}
}

func TestRecommendAggressive(t *testing.T) {
	engine := NewEngine()

	// Mid-pack, trending up, clean.
	subject := FeatureSet{
		CustID:              "168966",
		IRating:             Known(2600),
		StrengthOfField:     Known(2500),
		IRatingTrend:        Known(80),
		AvgIncidentsPerRace: Known(2),
		DNFRate:             Known(0.05),
	}
	opponents := []FeatureSet{
		{CustID: "a", IRating: Known(3600), StrengthOfField: Known(2500)},
		{CustID: "b", IRating: Known(3400), StrengthOfField: Known(2500)},
		{CustID: "c", IRating: Known(1600), StrengthOfField: Known(2500)},
		{CustID: "d", IRating: Known(1500), StrengthOfField: Known(2500)},
		{CustID: "e", IRating: Known(1400), StrengthOfField: Known(2500)},
	}

	rec := engine.Recommend(subject, opponents)
	if rec.Strategy != StrategyAggressive {
		t.Errorf("Expected aggressive for a clean mid-pack driver trending up, got %s", rec.Strategy)
	}
}

func TestRecommendBalancedFallback(t *testing.T) {
	engine := NewEngine()

	subject := FeatureSet{CustID: "168966", IRating: Known(2000)}

	rec := engine.Recommend(subject, nil)
	if rec.Strategy != StrategyBalanced {
		t.Errorf("Expected balanced when no rule fires, got %s", rec.Strategy)
	}
}

func TestRecommendShape(t *testing.T) {
	engine := NewEngine()

	subject := FeatureSet{
		CustID:              "168966",
		IRating:             Known(2600),
		StrengthOfField:     Known(2500),
		RecentAvgFinish:     Known(6),
		AvgIncidentsPerRace: Known(3),
		DNFRate:             Known(0.1),
		IRatingTrend:        Known(40),
		TotalParticipants:   20,
	}

	rec := engine.Recommend(subject, strongOpponents(3))

	if len(rec.Reasoning) != 3 {
		t.Fatalf("Expected one reasoning entry per race phase, got %d", len(rec.Reasoning))
	}
	for i, prefix := range []string{"start:", "mid:", "end:"} {
		if !strings.HasPrefix(rec.Reasoning[i], prefix) {
			t.Errorf("Reasoning %d: expected %q prefix, got %q", i, prefix, rec.Reasoning[i])
		}
	}
	if len(rec.KeyFactors) == 0 {
		t.Error("Expected key factors for a fully populated feature set")
	}
	if len(rec.ActionItems) == 0 {
		t.Error("Expected action items")
	}
	if rec.Confidence < 0.4 || rec.Confidence > 0.9 {
		t.Errorf("Confidence %v escapes [0.4, 0.9]", rec.Confidence)
	}
}
