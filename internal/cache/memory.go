package cache

import (
	"bytes"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache holds response bodies for the life of one process. Vocabulary
// terms and IIIF manifests recur across the entities of a batch, so a hit
// here saves a round trip to the same host many times over.
//
// Bodies are copied in and out: callers decode them into documents and must
// not see each other's mutations.
type MemoryCache struct {
	bodies *gocache.Cache
}

// NewMemoryCache creates a memory cache whose entries live for ttl unless Set
// is given another lifetime
func NewMemoryCache(ttl time.Duration, sweepInterval time.Duration) *MemoryCache {
	return &MemoryCache{bodies: gocache.New(ttl, sweepInterval)}
}

// Get returns a copy of the body stored under key
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.bodies.Get(key)
	if !found {
		return nil, false
	}
	body, ok := val.([]byte)
	if !ok {
		return nil, false
	}
	return bytes.Clone(body), true
}

// Set stores a copy of body. A zero ttl uses the cache lifetime; a negative
// ttl marks the body as already stale and drops any earlier entry.
func (c *MemoryCache) Set(key string, body []byte, ttl time.Duration) error {
	if ttl < 0 {
		c.bodies.Delete(key)
		return nil
	}
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.bodies.Set(key, bytes.Clone(body), ttl)
	return nil
}

// Delete drops the body stored under key
func (c *MemoryCache) Delete(key string) error {
	c.bodies.Delete(key)
	return nil
}

// Clear drops every body
func (c *MemoryCache) Clear() error {
	c.bodies.Flush()
	return nil
}

// Len counts the bodies currently held, expired ones not yet swept included
func (c *MemoryCache) Len() int {
	return c.bodies.ItemCount()
}
