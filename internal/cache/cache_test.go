// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package cache

import (
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"
)

func TestCacheBasicOperations(t *testing.T) {
	c := New(1 * time.Minute)
	defer c.Stop()

	c.Set("key1", "value1")
	value, exists := c.Get("key1")
	if !exists {
		t.Error("Expected key1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	_, exists = c.Get("key2")
	if exists {
		t.Error("Expected key2 to not exist")
	}
}

func TestCacheExpiration(t *testing.T) {
	c := New(100 * time.Millisecond)
	defer c.Stop()

	c.Set("key1", "value1")

	_, exists := c.Get("key1")
	if !exists {
		t.Error("Expected key1 to exist immediately after set")
	}

	time.Sleep(150 * time.Millisecond)

	_, exists = c.Get("key1")
	if exists {
		t.Error("Expected key1 to be expired")
	}
}

func TestCachePerEntryTTLOverride(t *testing.T) {
	c := New(1 * time.Minute)
	defer c.Stop()

	c.SetWithTTL("short", "v", 50*time.Millisecond)
	c.Set("long", "v")

	time.Sleep(100 * time.Millisecond)

	if _, exists := c.Get("short"); exists {
		t.Error("Expected short-TTL entry to be expired")
	}
	if _, exists := c.Get("long"); !exists {
		t.Error("Expected default-TTL entry to survive")
	}
}

func TestCacheOverwriteResetsTTL(t *testing.T) {
	c := New(1 * time.Minute)
	defer c.Stop()

	c.SetWithTTL("key1", "old", 50*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	c.SetWithTTL("key1", "new", 200*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	// 90ms after the first write: the original TTL would have lapsed,
	// the overwrite's TTL has not.
	value, exists := c.Get("key1")
	if !exists {
		t.Fatal("Expected overwritten entry to still be valid")
	}
	if value != "new" {
		t.Errorf("Expected new value after overwrite, got %v", value)
	}
}

func TestCacheDelete(t *testing.T) {
	c := New(1 * time.Minute)
	defer c.Stop()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, exists := c.Get("key1"); exists {
		t.Error("Expected key1 to be deleted")
	}
}

func TestCacheClear(t *testing.T) {
	c := New(1 * time.Minute)
	defer c.Stop()

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("key%d", i), i)
	}
	c.Clear()

	stats := c.GetStats()
	if stats.TotalKeys != 0 {
		t.Errorf("Expected 0 keys after clear, got %d", stats.TotalKeys)
	}
}

func TestCacheStats(t *testing.T) {
	c := New(1 * time.Minute)
	defer c.Stop()

	c.Set("key1", "value1")
	c.Get("key1")
	c.Get("missing")

	stats := c.GetStats()
	if stats.Hits != 1 {
		t.Errorf("Expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New(1 * time.Minute)
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key%d", j%5)
				c.Set(key, n)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
}

func TestGenerateKeyDeterministic(t *testing.T) {
	a := url.Values{}
	a.Set("cust_id", "42")
	a.Set("season", "2026s1")

	b := url.Values{}
	b.Set("season", "2026s1")
	b.Set("cust_id", "42")

	if GenerateKey("/data/member/profile", a) != GenerateKey("/data/member/profile", b) {
		t.Error("Expected identical keys regardless of parameter insertion order")
	}

	if GenerateKey("/data/member/profile", a) == GenerateKey("/data/member/chart", a) {
		t.Error("Expected different paths to produce different keys")
	}

	if GenerateKey("/data/member/profile", nil) != "/data/member/profile" {
		t.Error("Expected bare path key when there are no parameters")
	}
}
