// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package api

import (
	"errors"
	"net/http"

	"github.com/pitwall-dev/pitwall/internal/iracing"
	"github.com/pitwall-dev/pitwall/internal/oauth"
)

// respondDomainError maps the error taxonomy onto HTTP statuses. An
// unsupported grant is surfaced distinctly because it means the
// deployment is not authorized for its configured grant and needs
// operator action, not a retry.
func respondDomainError(w http.ResponseWriter, err error) {
	var (
		rateErr     *iracing.RateLimitError
		timeoutErr  *iracing.TimeoutError
		upstreamErr *iracing.UpstreamError
		authErr     *oauth.AuthError
	)

	switch {
	case errors.As(err, &rateErr):
		respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
			"Request rate limit exceeded, slow down")
	case errors.As(err, &timeoutErr):
		respondError(w, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT",
			"Upstream request timed out")
	case errors.As(err, &upstreamErr):
		respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR",
			"Upstream request failed")
	case errors.As(err, &authErr) && authErr.Reason == oauth.ReasonUnsupportedGrant:
		respondError(w, http.StatusServiceUnavailable, "GRANT_NOT_AUTHORIZED",
			"Deployment is not authorized for the configured token grant")
	case errors.As(err, &authErr):
		respondError(w, http.StatusBadGateway, "AUTH_ERROR",
			"Failed to obtain an upstream access token")
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Internal server error")
	}
}
