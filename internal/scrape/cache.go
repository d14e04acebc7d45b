// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache memoizes extraction results by page URL. A nil *Cache stores nothing.
type Cache struct {
	cache *gocache.Cache
}

// NewCache returns a cache holding entries for ttl, or nil when ttl is not
// positive.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		return nil
	}
	return &Cache{cache: gocache.New(ttl, 2*ttl)}
}

// Get returns the value stored for key.
func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	if c == nil {
		return
	}
	c.cache.SetDefault(key, value)
}

// Len returns the number of unexpired entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.ItemCount()
}
