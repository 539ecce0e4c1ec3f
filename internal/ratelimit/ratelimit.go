// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

// Package ratelimit implements fixed-window per-key request admission.
//
// Each key (normally a client IP) gets N admissions per window; the
// counter resets when the window elapses. There is no burst smoothing:
// admission control for upstream-facing endpoints wants a hard per-window
// budget, not a refilling bucket. Distinct Limiter instances carry
// different budgets for different endpoint classes.
package ratelimit

import (
	"sync"
	"time"
)

// cleanupInterval is how often stale windows are removed.
const cleanupInterval = 10 * time.Minute

// window tracks admissions for one key within the current fixed window.
type window struct {
	count       int
	windowStart time.Time
}

// Limiter admits up to limit requests per key per fixed window.
// Safe for concurrent use; keys are independent.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	stop    chan struct{}
	now     func() time.Time
}

// New creates a limiter admitting limit requests per period for each key,
// and starts a cleanup goroutine for stale keys. Call Stop to release it.
func New(limit int, period time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		stop:    make(chan struct{}),
		now:     time.Now,
	}

	go l.cleanupLoop()

	return l
}

// Allow reports whether a request for the given key is admitted.
// The first request for a key opens its window; when the window elapses
// the counter resets in full.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || now.Sub(w.windowStart) >= l.period {
		l.windows[key] = &window{count: 1, windowStart: now}
		return true
	}

	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many admissions the key has left in its current
// window. A key with no window has the full budget.
func (l *Limiter) Remaining(key string) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || now.Sub(w.windowStart) >= l.period {
		return l.limit
	}
	if w.count >= l.limit {
		return 0
	}
	return l.limit - w.count
}

// Stop terminates the cleanup goroutine.
func (l *Limiter) Stop() {
	close(l.stop)
}

// cleanupLoop periodically removes windows that have long since elapsed.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

// cleanup removes windows older than two periods.
func (l *Limiter) cleanup() {
	threshold := l.now().Add(-2 * l.period)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if w.windowStart.Before(threshold) {
			delete(l.windows, key)
		}
	}
}
