// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// ClientIPResolver derives the rate-limit partition key for a request.
// Forwarding headers are honored only when the direct peer is a trusted
// proxy; otherwise the connection address is authoritative.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

// NewClientIPResolver parses the trusted proxy list. Entries may be
// single addresses or CIDR ranges. An empty list means no proxy is
// trusted and forwarding headers are ignored.
func NewClientIPResolver(trustedProxies []string) *ClientIPResolver {
	r := &ClientIPResolver{}
	for _, entry := range trustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil {
				bits := 32
				if ip.To4() == nil {
					bits = 128
				}
				entry = entry + "/" + strconv.Itoa(bits)
			}
		}
		if _, ipNet, err := net.ParseCIDR(entry); err == nil {
			r.trusted = append(r.trusted, ipNet)
		}
	}
	return r
}

// ClientIP resolves the request's client address. Precedence when the
// peer is trusted: first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func (r *ClientIPResolver) ClientIP(req *http.Request) string {
	remote := remoteHost(req.RemoteAddr)

	if !r.isTrusted(remote) {
		return remote
	}

	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(req.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	return remote
}

func (r *ClientIPResolver) isTrusted(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, ipNet := range r.trusted {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// remoteHost strips the port from a host:port connection address.
func remoteHost(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
