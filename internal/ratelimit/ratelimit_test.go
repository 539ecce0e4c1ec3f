// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestLimiterFixedWindow(t *testing.T) {
	clock := newFakeClock()
	l := New(3, time.Minute)
	defer l.Stop()
	l.now = clock.Now

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("Expected request %d to be admitted", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("Expected 4th request within window to be refused")
	}

	clock.Advance(time.Minute)
	if !l.Allow("10.0.0.1") {
		t.Error("Expected admission after window elapsed")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Stop()

	if !l.Allow("10.0.0.1") {
		t.Fatal("Expected first key to be admitted")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("Expected second key to be unaffected by first key's window")
	}
	if l.Allow("10.0.0.1") {
		t.Error("Expected first key to be exhausted")
	}
}

func TestLimiterRemaining(t *testing.T) {
	clock := newFakeClock()
	l := New(3, time.Minute)
	defer l.Stop()
	l.now = clock.Now

	if got := l.Remaining("10.0.0.1"); got != 3 {
		t.Errorf("Expected full budget for unseen key, got %d", got)
	}

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.1")
	if got := l.Remaining("10.0.0.1"); got != 1 {
		t.Errorf("Expected 1 remaining, got %d", got)
	}

	clock.Advance(time.Minute)
	if got := l.Remaining("10.0.0.1"); got != 3 {
		t.Errorf("Expected budget reset after window, got %d", got)
	}
}

func TestLimiterCleanup(t *testing.T) {
	clock := newFakeClock()
	l := New(3, time.Minute)
	defer l.Stop()
	l.now = clock.Now

	l.Allow("10.0.0.1")
	clock.Advance(3 * time.Minute)
	l.cleanup()

	l.mu.Lock()
	n := len(l.windows)
	l.mu.Unlock()
	if n != 0 {
		t.Errorf("Expected stale windows to be removed, %d remain", n)
	}
}

func TestLimiterConcurrentAccess(t *testing.T) {
	l := New(1000, time.Minute)
	defer l.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Allow("10.0.0.1")
			}
		}()
	}
	wg.Wait()

	if l.Allow("10.0.0.1") {
		t.Error("Expected budget of 1000 to be exhausted after 1000 admissions")
	}
}
