// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// credentialKey is the fixed key for the single machine-identity
// credential row. One deployment has exactly one machine identity.
const credentialKey = "credential:machine"

// ErrCredentialNotFound indicates no credential has been persisted yet.
var ErrCredentialNotFound = errors.New("credential not found")

// Credential is the persisted OAuth credential set for the machine
// identity. A zero ExpiresAt means the upstream reported no expiry.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	TokenType    string    `json:"token_type"`
}

// CredentialStore is durable storage for the singleton credential.
// Save is an upsert; the credential is never deleted, only overwritten.
type CredentialStore interface {
	Load(ctx context.Context) (*Credential, error)
	Save(ctx context.Context, cred *Credential) error
}

// BadgerCredentialStore implements CredentialStore on BadgerDB so the
// credential survives process restarts.
type BadgerCredentialStore struct {
	db *badger.DB
}

// NewBadgerCredentialStore creates a BadgerDB-backed credential store.
func NewBadgerCredentialStore(db *badger.DB) *BadgerCredentialStore {
	return &BadgerCredentialStore{db: db}
}

// Load retrieves the persisted credential.
func (s *BadgerCredentialStore) Load(ctx context.Context) (*Credential, error) {
	var cred Credential

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(credentialKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrCredentialNotFound
		}
		if err != nil {
			return fmt.Errorf("get credential: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cred)
		})
	})
	if err != nil {
		return nil, err
	}

	return &cred, nil
}

// Save upserts the credential.
func (s *BadgerCredentialStore) Save(ctx context.Context, cred *Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(credentialKey), data)
	})
}
