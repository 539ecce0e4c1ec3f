// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package ingest

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Sample is one telemetry row destined for the analytical store.
// Ratio fields are expressed in [0,1]; sensor noise occasionally pushes
// them out of range and is clamped rather than rejected.
type Sample struct {
	SessionID     string    `json:"session_id" validate:"required"`
	CustID        string    `json:"cust_id" validate:"required"`
	Lap           int       `json:"lap" validate:"gte=0"`
	RecordedAt    time.Time `json:"recorded_at" validate:"required"`
	SpeedKPH      float64   `json:"speed_kph" validate:"gte=0"`
	ThrottlePct   float64   `json:"throttle_pct"`
	BrakePct      float64   `json:"brake_pct"`
	FuelLevelPct  float64   `json:"fuel_level_pct"`
	SteeringAngle float64   `json:"steering_angle"`
	Gear          int       `json:"gear" validate:"gte=-1,lte=8"`
	RPM           float64   `json:"rpm" validate:"gte=0"`
	TrackTempC    float64   `json:"track_temp_c"`
}

func clampRatio(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampRange(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Normalize clamps all bounded numeric fields to their valid ranges.
func (s *Sample) Normalize() {
	s.ThrottlePct = clampRatio(s.ThrottlePct)
	s.BrakePct = clampRatio(s.BrakePct)
	s.FuelLevelPct = clampRatio(s.FuelLevelPct)
	s.SteeringAngle = clampRange(s.SteeringAngle, -1, 1)
	s.TrackTempC = clampRange(s.TrackTempC, -30, 80)
}

// ValidationError reports a sample that is still malformed after
// normalization. The index refers to the caller's original slice.
type ValidationError struct {
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sample %d invalid: %v", e.Index, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
