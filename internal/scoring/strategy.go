// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package scoring

import "fmt"

// Strategy classifies the recommended race approach.
type Strategy string

const (
	StrategyAggressive Strategy = "aggressive"
	StrategyDefensive  Strategy = "defensive"
	StrategySurvival   Strategy = "survival"
	StrategyBalanced   Strategy = "balanced"
)

// Classification thresholds. Evaluated in order: survival first, then
// defensive, then aggressive, with balanced as the fallback.
const (
	survivalDNFRate      = 0.25
	survivalRankFraction = 0.60
	defensiveIncidents   = 4.0
)

// StrategyRecommendation is the derived race plan for one competitor
// relative to the scored field. Reasoning entries are ordered by race
// phase.
type StrategyRecommendation struct {
	Strategy    Strategy `json:"strategy"`
	Confidence  float64  `json:"confidence"`
	Reasoning   []string `json:"reasoning"`
	KeyFactors  []string `json:"key_factors"`
	ActionItems []string `json:"action_items"`
}

// Recommend classifies the subject's race strategy against the given
// opponents and explains the classification phase by phase.
func (e *Engine) Recommend(subject FeatureSet, opponents []FeatureSet) StrategyRecommendation {
	field := make([]FeatureSet, 0, len(opponents)+1)
	field = append(field, subject)
	field = append(field, opponents...)

	scores := e.Score(field)
	fieldSize := len(scores)

	var subjectScore PerformanceScore
	for _, sc := range scores {
		if sc.CustID == subject.CustID {
			subjectScore = sc
			break
		}
	}

	rankFraction := float64(subjectScore.Rank) / float64(fieldSize)
	dnfRate := subject.DNFRate.Or(0)
	incidents := subject.AvgIncidentsPerRace.Or(0)
	trend := subject.IRatingTrend.Or(0)

	strategy := StrategyBalanced
	switch {
	case dnfRate > survivalDNFRate && rankFraction > survivalRankFraction:
		strategy = StrategySurvival
	case rankFraction <= 1.0/3 && incidents > defensiveIncidents:
		strategy = StrategyDefensive
	case trend > 0 && rankFraction <= 0.5:
		strategy = StrategyAggressive
	}

	rec := StrategyRecommendation{
		Strategy:   strategy,
		Confidence: subjectScore.Confidence,
		KeyFactors: keyFactors(&subject, subjectScore, fieldSize),
	}
	rec.Reasoning = reasoning(strategy, subjectScore, fieldSize, dnfRate, incidents, trend)
	rec.ActionItems = actionItems(strategy)
	return rec
}

// keyFactors lists the known features that drove the classification.
func keyFactors(fs *FeatureSet, score PerformanceScore, fieldSize int) []string {
	factors := []string{
		fmt.Sprintf("projected rank %d of %d", score.Rank, fieldSize),
	}
	if ir, ok := fs.IRating.Get(); ok {
		factors = append(factors, fmt.Sprintf("iRating %.0f", ir))
	}
	if sof, ok := fs.StrengthOfField.Get(); ok {
		factors = append(factors, fmt.Sprintf("strength of field %.0f", sof))
	}
	if dnf, ok := fs.DNFRate.Get(); ok {
		factors = append(factors, fmt.Sprintf("DNF rate %.0f%%", dnf*100))
	}
	if inc, ok := fs.AvgIncidentsPerRace.Get(); ok {
		factors = append(factors, fmt.Sprintf("%.1f incidents per race", inc))
	}
	if trend, ok := fs.IRatingTrend.Get(); ok {
		factors = append(factors, fmt.Sprintf("iRating trend %+.0f", trend))
	}
	return factors
}

// reasoning emits one explanation per race phase, in start/mid/end
// order.
func reasoning(strategy Strategy, score PerformanceScore, fieldSize int, dnfRate, incidents, trend float64) []string {
	switch strategy {
	case StrategySurvival:
		return []string{
			fmt.Sprintf("start: projected P%d of %d with a %.0f%% DNF rate, so the opening laps are about avoiding trouble", score.Rank, fieldSize, dnfRate*100),
			"mid: hold a clean pace and let attrition do the work",
			"end: a finish beats a heroic retirement, bank the points",
		}
	case StrategyDefensive:
		return []string{
			fmt.Sprintf("start: projected P%d of %d, track position is yours to lose", score.Rank, fieldSize),
			fmt.Sprintf("mid: %.1f incidents per race says contact is the main threat to this result", incidents),
			"end: cover the inside line and force attackers to go the long way around",
		}
	case StrategyAggressive:
		return []string{
			fmt.Sprintf("start: projected P%d of %d with form trending %+.0f, there are positions on the table", score.Rank, fieldSize, trend),
			"mid: target the cars ahead one at a time while the pace advantage holds",
			"end: spend the remaining tire life, this is the race to push",
		}
	default:
		return []string{
			fmt.Sprintf("start: projected P%d of %d, no single factor dominates", score.Rank, fieldSize),
			"mid: race the conditions, take positions when offered but do not force them",
			"end: reassess with five laps left and commit either way",
		}
	}
}

func actionItems(strategy Strategy) []string {
	switch strategy {
	case StrategySurvival:
		return []string{
			"lift early into traffic for the first three laps",
			"give way in 50/50 battles",
			"target a finish, not a position",
		}
	case StrategyDefensive:
		return []string{
			"prioritize exit speed over entry speed",
			"defend the inside into heavy braking zones",
			"avoid three-wide situations entirely",
		}
	case StrategyAggressive:
		return []string{
			"attack on the opening lap while the field is compressed",
			"set up passes over two corners, not one",
			"use every clear-air lap to build a gap",
		}
	default:
		return []string{
			"run the first stint to a target lap time",
			"keep tires and fuel in hand until the final third",
			"take low-risk positions as they appear",
		}
	}
}
