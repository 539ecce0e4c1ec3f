// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package oauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("opening in-memory badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBadgerCredentialStoreRoundTrip(t *testing.T) {
	store := NewBadgerCredentialStore(openTestDB(t))
	ctx := context.Background()

	cred := &Credential{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		Scope:        "telemetry",
		TokenType:    "Bearer",
	}
	if err := store.Save(ctx, cred); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.AccessToken != cred.AccessToken || got.RefreshToken != cred.RefreshToken {
		t.Errorf("Loaded credential differs: %+v", got)
	}
	if !got.ExpiresAt.Equal(cred.ExpiresAt) {
		t.Errorf("Expected expiry %v, got %v", cred.ExpiresAt, got.ExpiresAt)
	}
}

func TestBadgerCredentialStoreUpsert(t *testing.T) {
	store := NewBadgerCredentialStore(openTestDB(t))
	ctx := context.Background()

	if err := store.Save(ctx, &Credential{AccessToken: "first"}); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := store.Save(ctx, &Credential{AccessToken: "second"}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.AccessToken != "second" {
		t.Errorf("Expected overwrite semantics, got %q", got.AccessToken)
	}
}

func TestBadgerCredentialStoreNotFound(t *testing.T) {
	store := NewBadgerCredentialStore(openTestDB(t))

	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("Expected ErrCredentialNotFound, got %v", err)
	}
}
