package cache

import (
	"testing"
	"time"
)

func TestCache_HitWithinTTL(t *testing.T) {
	c := New(5 * time.Minute)
	c.Put("123", "https://cdn.example.com/123.pdf")

	url, ok := c.Get("123")
	if !ok || url != "https://cdn.example.com/123.pdf" {
		t.Errorf("Get() = (%q, %v), want cached hit", url, ok)
	}
}

func TestCache_Miss(t *testing.T) {
	c := New(5 * time.Minute)
	if _, ok := c.Get("nope"); ok {
		t.Error("Get() on empty cache should miss")
	}
}

func TestCache_ExpiresOnRead(t *testing.T) {
	c := New(5 * time.Minute)
	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Put("123", "https://cdn.example.com/123.pdf")

	clock = clock.Add(4 * time.Minute)
	if _, ok := c.Get("123"); !ok {
		t.Error("entry should still be live before the TTL")
	}

	clock = clock.Add(2 * time.Minute)
	if _, ok := c.Get("123"); ok {
		t.Error("entry should expire after the TTL")
	}

	// Expired entries are dropped, not just hidden.
	c.mu.Lock()
	_, present := c.m["123"]
	c.mu.Unlock()
	if present {
		t.Error("expired entry should be deleted on read")
	}
}

func TestCache_PutRefreshesTTL(t *testing.T) {
	c := New(5 * time.Minute)
	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Put("123", "first")
	clock = clock.Add(4 * time.Minute)
	c.Put("123", "second")
	clock = clock.Add(4 * time.Minute)

	url, ok := c.Get("123")
	if !ok || url != "second" {
		t.Errorf("Get() = (%q, %v), want refreshed entry", url, ok)
	}
}
