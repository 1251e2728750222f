// Package cache holds recently resolved download URLs. Platform URLs
// are short-lived signatures, so entries expire quickly.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	url       string
	expiresAt time.Time
}

// Cache is a TTL map from document ID to download URL. Expiry is
// checked on read; there is no background sweeper.
type Cache struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]entry

	now func() time.Time
}

// New creates a cache with the given entry TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl: ttl,
		m:   make(map[string]entry),
		now: time.Now,
	}
}

// Get returns the cached URL for docID if it has not expired.
func (c *Cache) Get(docID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[docID]
	if !ok {
		return "", false
	}
	if c.now().After(e.expiresAt) {
		delete(c.m, docID)
		return "", false
	}
	return e.url, true
}

// Put stores a URL for docID.
func (c *Cache) Put(docID, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[docID] = entry{url: url, expiresAt: c.now().Add(c.ttl)}
}
