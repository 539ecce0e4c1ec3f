// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// MaskSecret derives the transport-level masked form of a secret required
// by the upstream token endpoint: base64(sha256(secret + normalizedID)),
// where normalizedID is the paired identifier lower-cased and trimmed
// (client_id masks client_secret; username masks password).
//
// The transform is fixed by the upstream wire contract; the identifier
// normalization makes it insensitive to case and surrounding whitespace.
func MaskSecret(secret, id string) string {
	normalized := strings.ToLower(strings.TrimSpace(id))
	sum := sha256.Sum256([]byte(secret + normalized))
	return base64.StdEncoding.EncodeToString(sum[:])
}
