// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package iracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pitwall-dev/pitwall/internal/cache"
	"github.com/pitwall-dev/pitwall/internal/ratelimit"
)

// staticTokens is a TokenSource stub.
type staticTokens struct{ token string }

func (s *staticTokens) AccessToken(_ context.Context) (string, error) {
	return s.token, nil
}

func newTestClient(t *testing.T, baseURL string, readLimit, bulkLimit int) *Client {
	t.Helper()

	c := cache.New(1 * time.Minute)
	t.Cleanup(c.Stop)
	readLim := ratelimit.New(readLimit, time.Minute)
	t.Cleanup(readLim.Stop)
	bulkLim := ratelimit.New(bulkLimit, time.Minute)
	t.Cleanup(bulkLim.Stop)

	return New(Config{
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		OutboundRPS: 1000,
	}, &staticTokens{token: "test-token"}, c, readLim, bulkLim, zerolog.Nop())
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"cust_id":"42","display_name":"Driver 42"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 100, 100)
	profile, err := client.MemberProfile(context.Background(), "10.0.0.1", "42")
	if err != nil {
		t.Fatalf("MemberProfile failed: %v", err)
	}
	if profile.CustID != "42" {
		t.Errorf("Expected cust_id 42, got %q", profile.CustID)
	}
	if gotAuth.Load() != "Bearer test-token" {
		t.Errorf("Expected bearer token header, got %v", gotAuth.Load())
	}
}

func TestClientFollowsLinkIndirectionOnce(t *testing.T) {
	var dataHits, linkHits atomic.Int64
	var linkAuth atomic.Value

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/data/member/profile", func(w http.ResponseWriter, r *http.Request) {
		dataHits.Add(1)
		_, _ = w.Write([]byte(`{"link":"` + srv.URL + `/signed/profile"}`))
	})
	mux.HandleFunc("/signed/profile", func(w http.ResponseWriter, r *http.Request) {
		linkHits.Add(1)
		linkAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"cust_id":"42","irating":2100}`))
	})

	client := newTestClient(t, srv.URL, 100, 100)
	profile, err := client.MemberProfile(context.Background(), "10.0.0.1", "42")
	if err != nil {
		t.Fatalf("MemberProfile failed: %v", err)
	}

	if profile.IRating == nil || *profile.IRating != 2100 {
		t.Errorf("Expected the indirection target's payload, got %+v", profile)
	}
	if dataHits.Load() != 1 || linkHits.Load() != 1 {
		t.Errorf("Expected exactly one GET per hop, got data=%d link=%d", dataHits.Load(), linkHits.Load())
	}
	if linkAuth.Load() != "" {
		t.Errorf("Expected unauthenticated follow-up GET, got auth %v", linkAuth.Load())
	}
}

func TestClientUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("maintenance window"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 100, 100)
	_, err := client.MemberProfile(context.Background(), "10.0.0.1", "42")

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("Expected *UpstreamError, got %v", err)
	}
	if upstreamErr.Status != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", upstreamErr.Status)
	}
	if upstreamErr.Body != "maintenance window" {
		t.Errorf("Expected response body in error, got %q", upstreamErr.Body)
	}
}

func TestClientRateLimitRefusalMakesNoNetworkCall(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"cust_id":"42"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 1, 100)

	if _, err := client.MemberProfile(context.Background(), "10.0.0.1", "42"); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	_, err := client.MemberProfile(context.Background(), "10.0.0.1", "43")
	if !IsRateLimited(err) {
		t.Fatalf("Expected RateLimitError, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected refused request to make no network call, got %d hits", hits.Load())
	}

	// A different caller is an independent admission key.
	if _, err := client.MemberProfile(context.Background(), "10.0.0.2", "43"); err != nil {
		t.Errorf("Expected independent key to be admitted, got %v", err)
	}
}

func TestClientCachesResponses(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"cust_id":"42","irating":1900}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 100, 100)
	for i := 0; i < 3; i++ {
		profile, err := client.MemberProfile(context.Background(), "10.0.0.1", "42")
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if profile.IRating == nil || *profile.IRating != 1900 {
			t.Errorf("call %d returned wrong payload: %+v", i, profile)
		}
	}

	if hits.Load() != 1 {
		t.Errorf("Expected one upstream hit and two cache hits, got %d", hits.Load())
	}
}

func TestClientOmitsEmptyQueryParams(t *testing.T) {
	var query atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"cust_id":""}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 100, 100)
	if _, err := client.MemberProfile(context.Background(), "10.0.0.1", ""); err != nil {
		t.Fatalf("MemberProfile failed: %v", err)
	}

	if q := query.Load(); q != "" {
		t.Errorf("Expected empty optional params to be omitted, got query %q", q)
	}
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := cache.New(1 * time.Minute)
	t.Cleanup(c.Stop)
	lim := ratelimit.New(100, time.Minute)
	t.Cleanup(lim.Stop)

	client := New(Config{
		BaseURL:     srv.URL,
		Timeout:     50 * time.Millisecond,
		OutboundRPS: 1000,
	}, &staticTokens{token: "test-token"}, c, lim, lim, zerolog.Nop())

	_, err := client.MemberProfile(context.Background(), "10.0.0.1", "42")
	if !IsTimeout(err) {
		t.Errorf("Expected TimeoutError, got %v", err)
	}
}
