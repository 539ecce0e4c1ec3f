// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package iracing

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pitwall-dev/pitwall/internal/logging"
	"github.com/pitwall-dev/pitwall/internal/metrics"
)

// CircuitBreakerClient wraps a DataAPI with a circuit breaker so a dead
// or degraded upstream fails fast instead of tying up every inbound
// request for a full timeout. An open circuit is a fail-fast refusal,
// not a retry, so the gateway's no-internal-retry contract holds.
type CircuitBreakerClient struct {
	inner DataAPI
	cb    *gobreaker.CircuitBreaker[interface{}]
	name  string
}

// NewCircuitBreakerClient wraps inner with circuit breaker protection.
// The circuit opens after a 60% failure rate over at least 10 requests,
// stays open for 2 minutes, and allows 3 probes in half-open state.
func NewCircuitBreakerClient(inner DataAPI) *CircuitBreakerClient {
	cbName := "racing-data-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := breakerStateString(from)
			toStr := breakerStateString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},

		// Admission refusals are the caller's fault, not the upstream's;
		// they must not push the circuit toward open.
		IsSuccessful: func(err error) bool {
			return err == nil || IsRateLimited(err)
		},
	})

	return &CircuitBreakerClient{inner: inner, cb: cb, name: cbName}
}

// execute wraps one upstream call with circuit breaker protection.
func (c *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := c.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
			return nil, &UpstreamError{Status: 0, Body: "circuit open: " + err.Error()}
		}
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	return result, nil
}

// castResult safely type-casts the circuit breaker result.
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// MemberProfile fetches a driver profile with circuit breaker protection.
func (c *CircuitBreakerClient) MemberProfile(ctx context.Context, clientIP, custID string) (*MemberProfile, error) {
	return castResult[MemberProfile](c.execute(func() (interface{}, error) {
		return c.inner.MemberProfile(ctx, clientIP, custID)
	}))
}

// MemberRecentRaces fetches recent races with circuit breaker protection.
func (c *CircuitBreakerClient) MemberRecentRaces(ctx context.Context, clientIP, custID string) (*MemberRecentRaces, error) {
	return castResult[MemberRecentRaces](c.execute(func() (interface{}, error) {
		return c.inner.MemberRecentRaces(ctx, clientIP, custID)
	}))
}

// MemberChartData fetches rating history with circuit breaker protection.
func (c *CircuitBreakerClient) MemberChartData(ctx context.Context, clientIP, custID string) (*MemberChartData, error) {
	return castResult[MemberChartData](c.execute(func() (interface{}, error) {
		return c.inner.MemberChartData(ctx, clientIP, custID)
	}))
}

// SessionResult fetches a session classification with circuit breaker protection.
func (c *CircuitBreakerClient) SessionResult(ctx context.Context, clientIP, sessionID string) (*SessionResult, error) {
	return castResult[SessionResult](c.execute(func() (interface{}, error) {
		return c.inner.SessionResult(ctx, clientIP, sessionID)
	}))
}

// breakerStateValue converts breaker state to a metric value.
func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// breakerStateString converts breaker state to a label value.
func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
