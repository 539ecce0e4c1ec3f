// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package scoring

import (
	"math"
	"sort"
)

// Scoring weights and bounds. These constants are part of the public
// contract with downstream consumers; changing them changes every rank
// and prediction the service emits.
const (
	weightIRating   = 0.40
	weightRecent    = 0.30
	weightIncidents = 0.15
	weightDNF       = 0.10
	weightTrend     = 0.05

	incidentCeiling = 10.0
	trendDivisor    = 100.0

	confidenceFloor   = 0.4
	confidenceCeiling = 0.9
)

// PerformanceScore is one competitor's normalized score and rank within
// a scored field. Ranks are 1-based and dense; ties are broken by
// ascending customer ID so output never depends on input order.
type PerformanceScore struct {
	CustID     string  `json:"cust_id"`
	RawScore   float64 `json:"raw_score"`
	Rank       int     `json:"rank"`
	Confidence float64 `json:"confidence"`
}

// Engine computes performance scores and strategy recommendations from
// extracted feature sets. It is stateless and safe for concurrent use.
type Engine struct{}

// NewEngine creates a scoring engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Score computes a normalized score, rank, and confidence for every
// competitor in the field. Competitors without an iRating are unscored
// and rank below every scored competitor, even one whose composite is
// negative. The input is not modified.
func (e *Engine) Score(features []FeatureSet) []PerformanceScore {
	type entry struct {
		score PerformanceScore
		rated bool
	}
	entries := make([]entry, len(features))
	for i := range features {
		entries[i] = entry{
			score: PerformanceScore{
				CustID:     features[i].CustID,
				RawScore:   e.rawScore(&features[i]),
				Confidence: e.confidence(&features[i]),
			},
			rated: features[i].IRating.IsKnown(),
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].rated != entries[j].rated {
			return entries[i].rated
		}
		if entries[i].score.RawScore != entries[j].score.RawScore {
			return entries[i].score.RawScore > entries[j].score.RawScore
		}
		return entries[i].score.CustID < entries[j].score.CustID
	})

	scores := make([]PerformanceScore, len(entries))
	for i := range entries {
		entries[i].score.Rank = i + 1
		scores[i] = entries[i].score
	}
	return scores
}

// rawScore computes the weighted composite score. A competitor with no
// iRating scores zero outright; individual missing terms contribute
// zero without failing the whole computation.
func (e *Engine) rawScore(fs *FeatureSet) float64 {
	if !fs.IRating.IsKnown() {
		return 0
	}

	irScore := term2(fs.IRating, fs.StrengthOfField, func(ir, sof float64) float64 {
		return (ir - sof) / 100
	})
	recentScore := term(fs.RecentAvgFinish, func(avgFinish float64) float64 {
		if fs.TotalParticipants == 0 {
			return 0
		}
		return (1 - avgFinish/float64(fs.TotalParticipants)) * 2
	})
	incidentScore := term(fs.AvgIncidentsPerRace, func(incidents float64) float64 {
		return math.Max(0, 1-incidents/incidentCeiling)
	})
	dnfScore := term(fs.DNFRate, func(dnfRate float64) float64 {
		return 1 - dnfRate
	})
	trendScore := term(fs.IRatingTrend, func(trend float64) float64 {
		return clamp(trend/trendDivisor, -1, 1)
	})

	return weightIRating*irScore +
		weightRecent*recentScore +
		weightIncidents*incidentScore +
		weightDNF*dnfScore +
		weightTrend*trendScore
}

// confidence maps data completeness over the three highest-signal
// features onto [confidenceFloor, confidenceCeiling]. It is never
// exactly 0 or 1.
func (e *Engine) confidence(fs *FeatureSet) float64 {
	known := 0
	for _, s := range []Stat{fs.IRating, fs.RecentAvgFinish, fs.AvgIncidentsPerRace} {
		if s.IsKnown() {
			known++
		}
	}
	completeness := float64(known) / 3
	return clamp(completeness, confidenceFloor, confidenceCeiling)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
