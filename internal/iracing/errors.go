// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package iracing

import (
	"errors"
	"fmt"
)

// UpstreamError reports a non-2xx response from the upstream API.
// The gateway never retries internally; retry policy belongs to the
// caller or to the batch ingestor.
type UpstreamError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// TimeoutError reports an upstream call that exceeded its deadline,
// distinguishable from other transport failures.
type TimeoutError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream request to %s timed out: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// RateLimitError reports a request refused by admission control before
// any network or cache activity.
type RateLimitError struct {
	Key string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s", e.Key)
}

// IsRateLimited reports whether err is a rate-limit refusal.
func IsRateLimited(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// IsTimeout reports whether err is an upstream timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
