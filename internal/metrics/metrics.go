// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

// Package metrics provides Prometheus instrumentation for:
//   - upstream API request volume and latency
//   - cache efficiency and rate-limit pressure
//   - circuit breaker state
//   - telemetry batch ingestion
//   - token lifecycle activity
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream API metrics

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitwall_upstream_requests_total",
			Help: "Total upstream API requests by resource and outcome",
		},
		[]string{"resource", "outcome"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pitwall_upstream_request_duration_seconds",
			Help:    "Duration of upstream API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	// Cache metrics

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitwall_cache_hits_total",
			Help: "Total cache hits by resource",
		},
		[]string{"resource"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitwall_cache_misses_total",
			Help: "Total cache misses by resource",
		},
		[]string{"resource"},
	)

	// Rate limiting metrics

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitwall_ratelimit_rejections_total",
			Help: "Total requests refused by admission control",
		},
		[]string{"resource"},
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pitwall_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"breaker"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitwall_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"breaker", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitwall_circuit_breaker_requests_total",
			Help: "Total requests through the circuit breaker by outcome",
		},
		[]string{"breaker", "outcome"},
	)

	// Ingestion metrics

	IngestSamplesInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pitwall_ingest_samples_inserted_total",
			Help: "Total telemetry samples successfully inserted",
		},
	)

	IngestBatchSplits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pitwall_ingest_batch_splits_total",
			Help: "Total times a failing batch was split and retried",
		},
	)

	IngestBatchesFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pitwall_ingest_batches_failed_total",
			Help: "Total sub-batches that failed at the minimum batch size",
		},
	)

	// Token lifecycle metrics

	TokenExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitwall_token_exchanges_total",
			Help: "Total token endpoint exchanges by grant and outcome",
		},
		[]string{"grant", "outcome"},
	)

	// HTTP surface metrics

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pitwall_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
