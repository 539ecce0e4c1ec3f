// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package iracing

import (
	"context"
	"reflect"
	"testing"
)

func TestMockClientDeterministic(t *testing.T) {
	mock := NewMockClient()
	ctx := context.Background()

	first, err := mock.MemberProfile(ctx, "", "168966")
	if err != nil {
		t.Fatalf("MemberProfile failed: %v", err)
	}
	second, err := mock.MemberProfile(ctx, "", "168966")
	if err != nil {
		t.Fatalf("MemberProfile failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical profiles for the same identifier, got %+v vs %+v", first, second)
	}

	other, err := mock.MemberProfile(ctx, "", "42")
	if err != nil {
		t.Fatalf("MemberProfile failed: %v", err)
	}
	if first.IRating == nil || other.IRating == nil {
		t.Fatal("Expected synthetic iRating to be populated")
	}
	if *first.IRating == *other.IRating {
		t.Errorf("Expected distinct identifiers to hash to distinct ratings")
	}
}

func TestMockClientProfileBounds(t *testing.T) {
	mock := NewMockClient()

	for _, custID := range []string{"1", "42", "168966", "999999"} {
		profile, err := mock.MemberProfile(context.Background(), "", custID)
		if err != nil {
			t.Fatalf("MemberProfile(%s) failed: %v", custID, err)
		}
		if ir := *profile.IRating; ir < 1350 || ir >= 4850 {
			t.Errorf("cust %s: iRating %v out of synthetic range", custID, ir)
		}
		if sr := *profile.SafetyRating; sr < 1.5 || sr > 4.0 {
			t.Errorf("cust %s: safety rating %v out of synthetic range", custID, sr)
		}
		if *profile.Wins > *profile.Starts {
			t.Errorf("cust %s: wins %d exceed starts %d", custID, *profile.Wins, *profile.Starts)
		}
	}
}

func TestMockClientRecentRacesConsistency(t *testing.T) {
	mock := NewMockClient()

	recent, err := mock.MemberRecentRaces(context.Background(), "", "168966")
	if err != nil {
		t.Fatalf("MemberRecentRaces failed: %v", err)
	}
	if len(recent.Races) != 8 {
		t.Fatalf("Expected 8 synthetic races, got %d", len(recent.Races))
	}
	for i, race := range recent.Races {
		if race.FinishPosition == nil || *race.FinishPosition < 1 || *race.FinishPosition > race.ParticipantCount {
			t.Errorf("race %d: finish position %v out of field of %d", i, race.FinishPosition, race.ParticipantCount)
		}
		if race.Won != (*race.FinishPosition == 1) {
			t.Errorf("race %d: win flag disagrees with finish position", i)
		}
	}
}

func TestMockClientSessionResult(t *testing.T) {
	mock := NewMockClient()

	result, err := mock.SessionResult(context.Background(), "", "48123456")
	if err != nil {
		t.Fatalf("SessionResult failed: %v", err)
	}
	if n := len(result.Entries); n < 12 || n >= 24 {
		t.Errorf("Expected between 12 and 23 entries, got %d", n)
	}
	if result.StrengthOfField == nil || *result.StrengthOfField <= 0 {
		t.Errorf("Expected a computed strength of field, got %v", result.StrengthOfField)
	}

	again, err := mock.SessionResult(context.Background(), "", "48123456")
	if err != nil {
		t.Fatalf("SessionResult failed: %v", err)
	}
	if !reflect.DeepEqual(result, again) {
		t.Error("Expected identical session results for the same identifier")
	}
}
