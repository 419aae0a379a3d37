package cache

import (
	"sync"
	"time"
)

// Cache is an in-process TTL map. It backs the /me profile cache and the
// in-memory scan guard.
type Cache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
	now func() time.Time
}
type entry struct {
	val any
	exp time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache{
		ttl: ttl,
		m:   make(map[string]entry),
		now: time.Now,
	}
}

// WithClock swaps the time source. Used by tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	now := c.now()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !now.Before(e.exp) {
		c.mu.Lock()
		// re-check: a writer may have refreshed the key meanwhile
		if cur, ok := c.m[key]; ok && !now.Before(cur.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.val, true
}

func (c *Cache) Set(key string, val any) {
	c.SetTTL(key, val, c.ttl)
}

func (c *Cache) SetTTL(key string, val any, ttl time.Duration) {
	c.mu.Lock()
	c.m[key] = entry{val: val, exp: c.now().Add(ttl)}
	c.mu.Unlock()
}

// SetNX stores val only when key is absent or expired. It reports whether it stored.
func (c *Cache) SetNX(key string, val any, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.m[key]; ok && now.Before(e.exp) {
		return false
	}
	c.m[key] = entry{val: val, exp: now.Add(ttl)}
	return true
}

// Expiry returns when key expires, if it is live.
func (c *Cache) Expiry(key string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.m[key]
	if !ok || !c.now().Before(e.exp) {
		return time.Time{}, false
	}
	return e.exp, true
}

func (c *Cache) Delete(keys ...string) {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.m, k)
	}
	c.mu.Unlock()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.m = make(map[string]entry)
	c.mu.Unlock()
}
