// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package oauth

import (
	"errors"
	"fmt"
)

// AuthReason distinguishes why authentication failed. Callers branch on
// this: ReasonUnsupportedGrant means the deployment is not authorized for
// the grant and needs operator action, not a retry.
type AuthReason string

// Authentication failure reasons.
const (
	ReasonMissingConfig    AuthReason = "missing_config"
	ReasonUnsupportedGrant AuthReason = "unsupported_grant_type"
	ReasonNetwork          AuthReason = "network"
	ReasonInvalidResponse  AuthReason = "invalid_response"
)

// AuthError reports a failed token acquisition with a machine-readable
// reason. It wraps the underlying transport or parse error when present.
type AuthError struct {
	Reason AuthReason
	Op     string
	Err    error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oauth %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("oauth %s: %s", e.Op, e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsUnsupportedGrant reports whether err is an AuthError caused by the
// upstream rejecting the grant type outright.
func IsUnsupportedGrant(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Reason == ReasonUnsupportedGrant
}
