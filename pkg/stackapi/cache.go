package stackapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// CacheEntry is one cached response body.
type CacheEntry struct {
	Payload   []byte    `json:"payload"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is no longer valid at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}

// Cache stores raw response bodies keyed by request URL.
//
// Implementations are safe for concurrent use. Get never returns an expired
// entry and reports ErrCacheMiss when nothing valid is stored.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Purge removes expired entries, or every entry when all is true.
	Purge(ctx context.Context, all bool) error
	Has(ctx context.Context, key string) bool
}

// Clock returns the current time. Caches use it to compute expiry.
type Clock func() time.Time

// CloseCache releases the resources held by cache, if any.
func CloseCache(cache Cache) error {
	if closer, ok := cache.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// hashKey turns a URL into a key safe for backends with restricted key alphabets.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))

	return hex.EncodeToString(sum[:])
}

// ttlSeconds rounds a TTL up to whole seconds.
func ttlSeconds(ttl time.Duration) int64 {
	seconds := int64(ttl / time.Second)
	if ttl%time.Second != 0 {
		seconds++
	}

	return seconds
}
