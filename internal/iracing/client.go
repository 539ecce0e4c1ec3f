// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

/*
client.go - Authenticated gateway to the upstream racing data API

Every read goes through the same pipeline:

  1. per-client-IP admission control (fail fast, nothing else is touched)
  2. TTL cache lookup keyed on path + normalized query
  3. outbound pacing toward the upstream
  4. bearer-authenticated GET
  5. one level of {"link": url} indirection via an unauthenticated GET
  6. cache write with a per-resource TTL

The gateway maps failures to typed errors (UpstreamError, TimeoutError,
RateLimitError) and never retries internally.
*/
package iracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pitwall-dev/pitwall/internal/cache"
	"github.com/pitwall-dev/pitwall/internal/metrics"
	"github.com/pitwall-dev/pitwall/internal/ratelimit"
)

// Per-resource cache TTLs: volatile per-session data stays fresh, career
// profile data is relatively static.
const (
	profileTTL     = 1 * time.Hour
	chartTTL       = 30 * time.Minute
	recentRacesTTL = 5 * time.Minute
	sessionTTL     = 1 * time.Minute
)

// maxResponseSize bounds how much of an upstream body is read.
const maxResponseSize = 16 << 20 // 16MB

// maxErrorBodySize limits response body reads for error reporting.
const maxErrorBodySize = 64 * 1024

// TokenSource supplies a valid bearer token for upstream calls.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Config holds gateway settings.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	OutboundRPS   float64
	OutboundBurst int
}

// Client is the authenticated upstream gateway. Safe for concurrent use;
// the cache and limiters it holds are process-wide singletons injected by
// the composition root.
type Client struct {
	baseURL     string
	tokens      TokenSource
	cache       *cache.Cache
	readLimiter *ratelimit.Limiter
	bulkLimiter *ratelimit.Limiter
	pacer       *rate.Limiter
	client      *http.Client
	logger      zerolog.Logger
}

// New creates a gateway client. readLimiter admits profile/chart reads;
// bulkLimiter carries the stricter budget for session-collection reads.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg Config, tokens TokenSource, c *cache.Cache, readLimiter, bulkLimiter *ratelimit.Limiter, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.OutboundRPS
	if rps == 0 {
		rps = 5
	}
	burst := cfg.OutboundBurst
	if burst == 0 {
		burst = 5
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		tokens:      tokens,
		cache:       c,
		readLimiter: readLimiter,
		bulkLimiter: bulkLimiter,
		pacer:       rate.NewLimiter(rate.Limit(rps), burst),
		client:      &http.Client{Timeout: timeout},
		logger:      logger.With().Str("component", "gateway").Logger(),
	}
}

// MemberProfile fetches a driver's career profile.
func (c *Client) MemberProfile(ctx context.Context, clientIP, custID string) (*MemberProfile, error) {
	params := url.Values{}
	setParam(params, "cust_id", custID)

	var out MemberProfile
	if err := c.get(ctx, c.readLimiter, clientIP, "/data/member/profile", params, profileTTL, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MemberRecentRaces fetches a driver's recent race history.
func (c *Client) MemberRecentRaces(ctx context.Context, clientIP, custID string) (*MemberRecentRaces, error) {
	params := url.Values{}
	setParam(params, "cust_id", custID)

	var out MemberRecentRaces
	if err := c.get(ctx, c.readLimiter, clientIP, "/data/stats/member_recent_races", params, recentRacesTTL, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MemberChartData fetches a driver's iRating history.
func (c *Client) MemberChartData(ctx context.Context, clientIP, custID string) (*MemberChartData, error) {
	params := url.Values{}
	setParam(params, "cust_id", custID)
	setParam(params, "chart_type", "irating")

	var out MemberChartData
	if err := c.get(ctx, c.readLimiter, clientIP, "/data/member/chart_data", params, chartTTL, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SessionResult fetches a full session classification. This is a
// bulk-collection endpoint and carries the stricter admission budget.
func (c *Client) SessionResult(ctx context.Context, clientIP, sessionID string) (*SessionResult, error) {
	params := url.Values{}
	setParam(params, "subsession_id", sessionID)

	var out SessionResult
	if err := c.get(ctx, c.bulkLimiter, clientIP, "/data/results/get", params, sessionTTL, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get runs the gateway pipeline for one resource.
func (c *Client) get(ctx context.Context, lim *ratelimit.Limiter, clientIP, path string, params url.Values, ttl time.Duration, out interface{}) error {
	resource := path

	if lim != nil && clientIP != "" && !lim.Allow(clientIP) {
		metrics.RateLimitRejections.WithLabelValues(resource).Inc()
		return &RateLimitError{Key: clientIP}
	}

	key := cache.GenerateKey(path, params)
	if cached, ok := c.cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues(resource).Inc()
		raw, ok := cached.([]byte)
		if !ok {
			return fmt.Errorf("unexpected cache entry type %T for %s", cached, key)
		}
		return json.Unmarshal(raw, out)
	}
	metrics.CacheMisses.WithLabelValues(resource).Inc()

	if err := c.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("outbound pacing: %w", err)
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	start := time.Now()
	body, err := c.doGet(ctx, reqURL, token)
	metrics.UpstreamRequestDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(resource, "failure").Inc()
		return err
	}

	// The upstream sometimes answers {"link": url} instead of data; the
	// real payload lives behind one unauthenticated follow-up GET.
	if linkURL, ok := indirectionLink(body); ok {
		c.logger.Debug().Str("resource", resource).Msg("following link indirection")
		body, err = c.doGet(ctx, linkURL, "")
		if err != nil {
			metrics.UpstreamRequests.WithLabelValues(resource, "failure").Inc()
			return err
		}
	}
	metrics.UpstreamRequests.WithLabelValues(resource, "success").Inc()

	c.cache.SetWithTTL(key, body, ttl)

	return json.Unmarshal(body, out)
}

// doGet issues one GET. An empty token sends an unauthenticated request.
func (c *Client) doGet(ctx context.Context, reqURL, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{URL: reqURL, Err: err}
		}
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			Status: resp.StatusCode,
			Body:   string(readBodyForError(resp.Body)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{URL: reqURL, Err: err}
		}
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// indirectionLink reports whether body is a {"link": url} redirect
// payload rather than resource data.
func indirectionLink(body []byte) (string, bool) {
	var envelope struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", false
	}
	return envelope.Link, envelope.Link != ""
}

// setParam adds a query parameter, omitting empty values so optional
// filters never reach the upstream as blank strings (which it rejects
// with HTTP 400).
func setParam(params url.Values, key, value string) {
	if value == "" {
		return
	}
	params.Set(key, value)
}

// isTimeout reports whether err is a deadline failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// readBodyForError reads the response body for error reporting (max
// 64KB) so a large error page cannot balloon memory.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}
