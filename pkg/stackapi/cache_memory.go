package stackapi

import (
	"context"
	"sync"
	"time"
)

// MemoryCache keeps entries in a map for the lifetime of the process.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
	maxSize int
	now     Clock
}

// NewMemoryCache creates a memory cache holding at most maxSize entries. A
// maxSize of zero or less means unbounded.
func NewMemoryCache(maxSize int) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]CacheEntry),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// SetClock replaces the time source.
func (c *MemoryCache) SetClock(clock Clock) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = clock
}

// Get returns a valid entry.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}

	if entry.Expired(c.now()) {
		delete(c.entries, key)

		return nil, ErrCacheMiss
	}

	return &entry, nil
}

// Put stores payload for ttl, replacing any previous entry. When the cache is
// full, expired entries are dropped first and then the entry closest to expiry.
func (c *MemoryCache) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.purgeExpiredLocked(now)

		if len(c.entries) >= c.maxSize {
			c.evictLocked()
		}
	}

	c.entries[key] = CacheEntry{
		Payload:   append([]byte(nil), payload...),
		ExpiresAt: now.Add(ttl),
	}

	return nil
}

// Delete removes an entry.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)

	return nil
}

// Purge removes expired entries, or everything when all is true.
func (c *MemoryCache) Purge(ctx context.Context, all bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if all {
		clear(c.entries)

		return nil
	}

	c.purgeExpiredLocked(c.now())

	return nil
}

// Has reports whether a valid entry exists.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func (c *MemoryCache) purgeExpiredLocked(now time.Time) {
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
		}
	}
}

func (c *MemoryCache) evictLocked() {
	var (
		victim  string
		soonest time.Time
		found   bool
	)

	for key, entry := range c.entries {
		if !found || entry.ExpiresAt.Before(soonest) {
			victim = key
			soonest = entry.ExpiresAt
			found = true
		}
	}

	delete(c.entries, victim)
}
