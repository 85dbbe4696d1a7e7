// Package promptcache provides the TTL-bounded prompt cache mapping
// (provider, prompt) to a prior canonical response.
package promptcache

import (
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"

	gateway "github.com/eugener/radagast/internal"
)

// Result is the outcome of a cache lookup.
type Result int

const (
	// Miss means no entry exists for the key.
	Miss Result = iota
	// ExpiredMiss means an entry existed but its TTL had elapsed;
	// the entry has been removed.
	ExpiredMiss
	// Hit means a live entry was found.
	Hit
)

// entry wraps a cached response with its store time.
type entry struct {
	resp     gateway.ChatResponse
	storedAt time.Time
}

// Cache is an in-memory W-TinyLFU prompt cache backed by otter.
// An entry is live iff now - storedAt < ttl. There is no single-flight
// dedup: concurrent misses on one key each call upstream and the second
// store overwrites the first.
type Cache struct {
	cache *otter.Cache[string, entry]
	ttl   time.Duration
	now   func() time.Time
}

// New creates a prompt cache with the given TTL and max entry count.
func New(ttl time.Duration, maxSize int) (*Cache, error) {
	c, err := otter.New[string, entry](&otter.Options[string, entry]{
		MaximumSize: maxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create prompt cache: %w", err)
	}
	return &Cache{cache: c, ttl: ttl, now: time.Now}, nil
}

// SetClock overrides the cache clock. Intended for tests.
func (c *Cache) SetClock(now func() time.Time) { c.now = now }

// Key builds the cache key for a provider and prompt.
func Key(provider, prompt string) string { return provider + ":" + prompt }

// Lookup returns the cached response for key if live. Expired entries are
// removed before returning ExpiredMiss.
func (c *Cache) Lookup(key string) (*gateway.ChatResponse, Result) {
	e, ok := c.cache.GetIfPresent(key)
	if !ok {
		return nil, Miss
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.cache.Invalidate(key)
		return nil, ExpiredMiss
	}
	resp := e.resp
	return &resp, Hit
}

// Store writes a response under key, unconditionally overwriting.
func (c *Cache) Store(key string, resp *gateway.ChatResponse) {
	c.cache.Set(key, entry{resp: *resp, storedAt: c.now()})
}

// Flush drops all entries.
func (c *Cache) Flush() {
	c.cache.InvalidateAll()
}

// Snapshot returns a shallow copy of all live entries for admin inspection.
func (c *Cache) Snapshot() map[string]gateway.ChatResponse {
	now := c.now()
	out := make(map[string]gateway.ChatResponse)
	for key, e := range c.cache.All() {
		if now.Sub(e.storedAt) >= c.ttl {
			continue
		}
		out[key] = e.resp
	}
	return out
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	now := c.now()
	n := 0
	for _, e := range c.cache.All() {
		if now.Sub(e.storedAt) < c.ttl {
			n++
		}
	}
	return n
}
