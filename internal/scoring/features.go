// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

// Package scoring turns partial, noisy per-driver statistics into one
// comparable performance score per competitor, with relative ranks,
// a confidence value, and a race strategy recommendation.
package scoring

import (
	"github.com/pitwall-dev/pitwall/internal/iracing"
)

// Stat is an optional numeric statistic. Upstream data is routinely
// incomplete, and zero is a legitimate value for several fields (win
// rate, incidents), so absence must stay distinguishable from zero.
type Stat struct {
	val   float64
	known bool
}

// Known wraps a known value.
func Known(v float64) Stat {
	return Stat{val: v, known: true}
}

// Unknown is the absent statistic.
func Unknown() Stat {
	return Stat{}
}

// FromPtr converts an optional upstream field. nil maps to Unknown.
func FromPtr(p *float64) Stat {
	if p == nil {
		return Unknown()
	}
	return Known(*p)
}

// FromIntPtr converts an optional integer upstream field.
func FromIntPtr(p *int) Stat {
	if p == nil {
		return Unknown()
	}
	return Known(float64(*p))
}

// Get returns the value and whether it is known.
func (s Stat) Get() (float64, bool) {
	return s.val, s.known
}

// IsKnown reports whether the statistic carries a value.
func (s Stat) IsKnown() bool {
	return s.known
}

// Or returns the value when known, else the fallback.
func (s Stat) Or(fallback float64) float64 {
	if !s.known {
		return fallback
	}
	return s.val
}

// term evaluates one score contribution: zero when the stat is absent,
// f(value) when known. Every derived score term goes through this so
// the unknown-is-not-zero rule lives in one place.
func term(s Stat, f func(float64) float64) float64 {
	if !s.known {
		return 0
	}
	return f(s.val)
}

// term2 is term over two stats; both must be known to contribute.
func term2(a, b Stat, f func(a, b float64) float64) float64 {
	if !a.known || !b.known {
		return 0
	}
	return f(a.val, b.val)
}

// FeatureSet is one competitor's extracted statistics for a session
// snapshot. All fields except CustID and TotalParticipants are
// optional.
type FeatureSet struct {
	CustID              string
	IRating             Stat
	SafetyRating        Stat
	AvgIncidentsPerRace Stat
	DNFRate             Stat
	RecentAvgFinish     Stat
	WinRate             Stat
	Top5Rate            Stat
	Top10Rate           Stat
	IRatingTrend        Stat
	SafetyRatingTrend   Stat
	StrengthOfField     Stat
	StartingPosition    Stat
	TotalParticipants   int
}

// BuildFeatureSet extracts a competitor's feature set from the upstream
// resources. Any argument may be nil; missing sources leave their
// features unknown.
func BuildFeatureSet(
	profile *iracing.MemberProfile,
	recent *iracing.MemberRecentRaces,
	chart *iracing.MemberChartData,
	session *iracing.SessionResult,
) FeatureSet {
	fs := FeatureSet{}

	if profile != nil {
		fs.CustID = profile.CustID
		fs.IRating = FromPtr(profile.IRating)
		fs.SafetyRating = FromPtr(profile.SafetyRating)
		fs.AvgIncidentsPerRace = FromPtr(profile.AvgIncidents)
		fs.WinRate = careerRate(profile.Wins, profile.Starts)
		fs.Top5Rate = careerRate(profile.Top5, profile.Starts)
		fs.Top10Rate = careerRate(profile.Top10, profile.Starts)
	}

	if recent != nil && len(recent.Races) > 0 {
		if fs.CustID == "" {
			fs.CustID = recent.CustID
		}
		applyRecentRaces(&fs, recent.Races)
	}

	if chart != nil && len(chart.Points) >= 2 {
		first := chart.Points[0].Value
		last := chart.Points[len(chart.Points)-1].Value
		switch chart.Category {
		case "safety":
			fs.SafetyRatingTrend = Known(last - first)
		default:
			fs.IRatingTrend = Known(last - first)
		}
	}

	if session != nil {
		fs.TotalParticipants = session.ParticipantCount
		if !fs.StrengthOfField.IsKnown() {
			fs.StrengthOfField = FromPtr(session.StrengthOfField)
		}
		for i := range session.Entries {
			if session.Entries[i].CustID == fs.CustID {
				fs.StartingPosition = FromIntPtr(session.Entries[i].StartingPosition)
				break
			}
		}
	}

	return fs
}

// careerRate divides two optional career counters.
func careerRate(count, starts *int) Stat {
	if count == nil || starts == nil || *starts == 0 {
		return Unknown()
	}
	return Known(float64(*count) / float64(*starts))
}

// applyRecentRaces derives recent-form features, filling only the
// fields the profile did not already supply.
func applyRecentRaces(fs *FeatureSet, races []iracing.RecentRace) {
	var (
		finishSum, finishN     float64
		incidentSum, incidentN float64
		sofSum, sofN           float64
		dnfs                   int
		participantSum         int
		participantN           int
	)
	for i := range races {
		r := &races[i]
		if r.FinishPosition != nil {
			finishSum += float64(*r.FinishPosition)
			finishN++
		}
		if r.Incidents != nil {
			incidentSum += float64(*r.Incidents)
			incidentN++
		}
		if r.StrengthOfField != nil {
			sofSum += *r.StrengthOfField
			sofN++
		}
		if r.DNF {
			dnfs++
		}
		if r.ParticipantCount > 0 {
			participantSum += r.ParticipantCount
			participantN++
		}
	}

	if finishN > 0 {
		fs.RecentAvgFinish = Known(finishSum / finishN)
	}
	if incidentN > 0 && !fs.AvgIncidentsPerRace.IsKnown() {
		fs.AvgIncidentsPerRace = Known(incidentSum / incidentN)
	}
	if sofN > 0 {
		fs.StrengthOfField = Known(sofSum / sofN)
	}
	fs.DNFRate = Known(float64(dnfs) / float64(len(races)))
	if fs.TotalParticipants == 0 && participantN > 0 {
		fs.TotalParticipants = participantSum / participantN
	}
}
