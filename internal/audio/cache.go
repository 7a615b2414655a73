package audio

import (
	"sync"
	"time"
)

// URLCache remembers resolved URLs for a bounded time.
type URLCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	url     string
	expires time.Time
}

// NewURLCache creates a cache whose entries live for ttl. now may be nil to
// use the wall clock.
func NewURLCache(ttl time.Duration, now func() time.Time) *URLCache {
	if now == nil {
		now = time.Now
	}
	return &URLCache{ttl: ttl, now: now, entries: make(map[string]cacheEntry)}
}

func (c *URLCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return "", false
	}
	return e.url, true
}

// Put stores url under key and drops expired entries.
func (c *URLCache) Put(key, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	if c.ttl <= 0 {
		return
	}
	c.entries[key] = cacheEntry{url: url, expires: now.Add(c.ttl)}
}

func (c *URLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
