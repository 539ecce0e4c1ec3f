// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

// Package oauth keeps a valid machine-to-machine access token for the
// upstream racing API without any user present.
//
// Token acquisition is an ordered chain of tiers, each returning a tagged
// attempt result:
//
//  1. process-memory token valid for at least 30 seconds
//  2. durable credential store
//  3. refresh_token grant
//  4. password_limited grant with masked secrets
//
// The first success wins; tiers 2-4 write through to the durable store
// before returning. Concurrent refreshes are tolerated (last writer wins
// in the store) because a duplicate refresh is harmless and rare.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/pitwall-dev/pitwall/internal/metrics"
)

// expirySkew is the minimum remaining validity before a cached token is
// considered usable; anything closer to expiry is refreshed eagerly.
const expirySkew = 30 * time.Second

// maxErrorBodySize limits how much of an error response body is read.
const maxErrorBodySize = 64 * 1024

// Config holds the machine identity and token endpoint settings.
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Scope        string
	Timeout      time.Duration
}

// Manager obtains and caches the machine access token.
// Safe for concurrent use.
type Manager struct {
	cfg    Config
	store  CredentialStore
	client *http.Client
	logger zerolog.Logger
	now    func() time.Time

	mu         sync.Mutex
	memToken   string
	memExpires time.Time
}

// NewManager creates a token lifecycle manager.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewManager(cfg Config, store CredentialStore, logger zerolog.Logger) *Manager {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Manager{
		cfg:    cfg,
		store:  store,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "oauth").Logger(),
		now:    time.Now,
	}
}

// attemptOutcome tags the result of one tier of the fallback chain.
type attemptOutcome int

const (
	// attemptSuccess carries a usable token.
	attemptSuccess attemptOutcome = iota
	// attemptSkip means the tier's preconditions were not met.
	attemptSkip
	// attemptRetry means the tier failed but the next tier may succeed.
	attemptRetry
	// attemptFatal aborts the chain with the carried error.
	attemptFatal
)

// attempt is the tagged result of running one tier.
type attempt struct {
	outcome attemptOutcome
	token   string
	err     error
}

// AccessToken returns a valid access token, walking the tier chain in
// order. It fails with *AuthError only when every tier is exhausted or a
// tier reports a fatal condition.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	tiers := []struct {
		name string
		run  func(ctx context.Context) attempt
	}{
		{"memory", m.fromMemory},
		{"store", m.fromStore},
		{"refresh_token", m.fromRefreshGrant},
		{"password_limited", m.fromPasswordGrant},
	}

	var lastErr error
	for _, tier := range tiers {
		res := tier.run(ctx)
		switch res.outcome {
		case attemptSuccess:
			return res.token, nil
		case attemptSkip:
			m.logger.Debug().Str("tier", tier.name).Msg("tier skipped")
		case attemptRetry:
			lastErr = res.err
			m.logger.Warn().Str("tier", tier.name).Err(res.err).Msg("tier failed, falling through")
		case attemptFatal:
			m.logger.Error().Str("tier", tier.name).Err(res.err).Msg("tier failed fatally")
			return "", res.err
		}
	}

	if lastErr != nil {
		var authErr *AuthError
		if errors.As(lastErr, &authErr) {
			return "", lastErr
		}
		return "", &AuthError{Reason: ReasonNetwork, Op: "token", Err: lastErr}
	}
	return "", &AuthError{Reason: ReasonMissingConfig, Op: "token"}
}

// fromMemory serves the in-process cached token when it is still valid
// for at least expirySkew. No I/O.
func (m *Manager) fromMemory(_ context.Context) attempt {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.memToken == "" {
		return attempt{outcome: attemptSkip}
	}
	if !m.memExpires.IsZero() && !m.memExpires.After(m.now().Add(expirySkew)) {
		return attempt{outcome: attemptSkip}
	}
	return attempt{outcome: attemptSuccess, token: m.memToken}
}

// fromStore adopts the durably stored credential when its access token
// is present and not about to expire.
func (m *Manager) fromStore(ctx context.Context) attempt {
	cred, err := m.store.Load(ctx)
	if errors.Is(err, ErrCredentialNotFound) {
		return attempt{outcome: attemptSkip}
	}
	if err != nil {
		return attempt{outcome: attemptRetry, err: fmt.Errorf("load credential: %w", err)}
	}

	if cred.AccessToken == "" {
		return attempt{outcome: attemptSkip}
	}
	if !cred.ExpiresAt.IsZero() && !cred.ExpiresAt.After(m.now().Add(expirySkew)) {
		return attempt{outcome: attemptSkip}
	}

	m.adopt(cred)
	return attempt{outcome: attemptSuccess, token: cred.AccessToken}
}

// fromRefreshGrant exchanges the stored refresh token for a new access
// token. Any failure falls through to the password_limited grant.
func (m *Manager) fromRefreshGrant(ctx context.Context) attempt {
	cred, err := m.store.Load(ctx)
	if err != nil || cred.RefreshToken == "" {
		return attempt{outcome: attemptSkip}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", cred.RefreshToken)
	form.Set("client_id", m.cfg.ClientID)
	form.Set("client_secret", MaskSecret(m.cfg.ClientSecret, m.cfg.ClientID))

	fresh, err := m.exchange(ctx, "refresh_token", form)
	if err != nil {
		// The refresh tier never aborts the chain; a stale or revoked
		// refresh token is recovered by the password grant.
		return attempt{outcome: attemptRetry, err: err}
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = cred.RefreshToken
	}
	m.persist(ctx, fresh)
	m.adopt(fresh)
	return attempt{outcome: attemptSuccess, token: fresh.AccessToken}
}

// fromPasswordGrant exchanges the machine username/password, with both
// client_secret and password masked per the upstream contract.
func (m *Manager) fromPasswordGrant(ctx context.Context) attempt {
	if m.cfg.ClientID == "" || m.cfg.ClientSecret == "" || m.cfg.Username == "" || m.cfg.Password == "" {
		return attempt{outcome: attemptFatal, err: &AuthError{Reason: ReasonMissingConfig, Op: "password_limited"}}
	}

	form := url.Values{}
	form.Set("grant_type", "password_limited")
	form.Set("client_id", m.cfg.ClientID)
	form.Set("client_secret", MaskSecret(m.cfg.ClientSecret, m.cfg.ClientID))
	form.Set("username", m.cfg.Username)
	form.Set("password", MaskSecret(m.cfg.Password, m.cfg.Username))
	if m.cfg.Scope != "" {
		form.Set("scope", m.cfg.Scope)
	}

	cred, err := m.exchange(ctx, "password_limited", form)
	if err != nil {
		if IsUnsupportedGrant(err) {
			// The environment is not authorized for this grant; retrying
			// cannot help and hides a configuration problem.
			return attempt{outcome: attemptFatal, err: err}
		}
		return attempt{outcome: attemptRetry, err: err}
	}

	m.persist(ctx, cred)
	m.adopt(cred)
	return attempt{outcome: attemptSuccess, token: cred.AccessToken}
}

// tokenResponse is the token endpoint's JSON payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ErrorCode    string `json:"error"`
}

// exchange POSTs a form-encoded grant to the token endpoint and maps the
// response into a Credential.
func (m *Manager) exchange(ctx context.Context, grant string, form url.Values) (cred *Credential, err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		metrics.TokenExchanges.WithLabelValues(grant, outcome).Inc()
	}()

	return m.doExchange(ctx, grant, form)
}

// doExchange performs the actual token endpoint round trip.
func (m *Manager) doExchange(ctx context.Context, grant string, form url.Values) (*Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthError{Reason: ReasonNetwork, Op: grant, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &AuthError{Reason: ReasonNetwork, Op: grant, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return nil, &AuthError{Reason: ReasonNetwork, Op: grant, Err: err}
	}

	var tr tokenResponse
	if jsonErr := json.Unmarshal(body, &tr); jsonErr != nil && resp.StatusCode < 300 {
		return nil, &AuthError{Reason: ReasonInvalidResponse, Op: grant, Err: jsonErr}
	}

	if resp.StatusCode >= 300 {
		if tr.ErrorCode == "unsupported_grant_type" || strings.Contains(string(body), "unsupported_grant_type") {
			return nil, &AuthError{Reason: ReasonUnsupportedGrant, Op: grant}
		}
		return nil, &AuthError{
			Reason: ReasonNetwork,
			Op:     grant,
			Err:    fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	if tr.AccessToken == "" {
		return nil, &AuthError{Reason: ReasonInvalidResponse, Op: grant, Err: errors.New("response missing access_token")}
	}

	cred := &Credential{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		Scope:        tr.Scope,
		TokenType:    tr.TokenType,
	}
	if cred.TokenType == "" {
		cred.TokenType = "Bearer"
	}
	switch {
	case tr.ExpiresIn > 0:
		cred.ExpiresAt = m.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	default:
		// Some responses omit expires_in; recover expiry from the access
		// token's exp claim when it is a JWT.
		cred.ExpiresAt = jwtExpiry(tr.AccessToken)
	}

	return cred, nil
}

// adopt installs a credential as the in-memory token.
func (m *Manager) adopt(cred *Credential) {
	m.mu.Lock()
	m.memToken = cred.AccessToken
	m.memExpires = cred.ExpiresAt
	m.mu.Unlock()
}

// persist writes a credential through to the durable store. A store
// failure is logged but does not fail the call: the token itself is
// valid, only its durability is degraded.
func (m *Manager) persist(ctx context.Context, cred *Credential) {
	if err := m.store.Save(ctx, cred); err != nil {
		m.logger.Warn().Err(err).Msg("failed to persist credential")
	}
}

// jwtExpiry extracts the exp claim from a JWT access token without
// verifying the signature. Returns the zero time when the token is not a
// JWT or carries no expiry.
func jwtExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
