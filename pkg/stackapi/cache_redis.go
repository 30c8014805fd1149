package stackapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/stackapi/internal/constants"
	"github.com/redis/go-redis/v9"
)

// RedisCacheConfig configures the Redis cache.
type RedisCacheConfig struct {
	URL         string        `env:"URL"`
	KeyPrefix   string        `env:"KEY_PREFIX"`
	DialTimeout time.Duration `env:"DIAL_TIMEOUT"`
}

// RedisCache shares cached responses between processes through Redis. Expiry
// is delegated to Redis key TTLs.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to the server named by config.URL.
func NewRedisCache(ctx context.Context, config RedisCacheConfig) (*RedisCache, error) {
	if config.URL == "" {
		config.URL = "redis://localhost:6379"
	}

	if config.DialTimeout == 0 {
		config.DialTimeout = constants.DefaultDialTimeout
	}

	options, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	options.DialTimeout = config.DialTimeout

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, config.DialTimeout)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, config.KeyPrefix), nil
}

// NewRedisCacheFromClient uses an existing client. Keys are namespaced by prefix.
func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = constants.DefaultCacheKeyPrefix
	}

	return &RedisCache{client: client, prefix: prefix}
}

// Get returns a valid entry.
func (c *RedisCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	var (
		payload *redis.StringCmd
		ttl     *redis.DurationCmd
	)

	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		payload = pipe.Get(ctx, c.prefix+key)
		ttl = pipe.PTTL(ctx, c.prefix+key)

		return nil
	})

	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	data, err := payload.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	entry := &CacheEntry{Payload: data}
	if remaining := ttl.Val(); remaining > 0 {
		entry.ExpiresAt = time.Now().Add(remaining)
	}

	return entry, nil
}

// Put stores payload for ttl.
func (c *RedisCache) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return c.Delete(ctx, key)
	}

	err := c.client.Set(ctx, c.prefix+key, payload, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// Delete removes an entry.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	err := c.client.Del(ctx, c.prefix+key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// Purge removes every entry under the prefix when all is true. Redis drops
// expired keys on its own, so purging only expired entries is a no-op.
func (c *RedisCache) Purge(ctx context.Context, all bool) error {
	if !all {
		return nil
	}

	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	err := iter.Err()
	if err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	err = c.client.Del(ctx, keys...).Err()
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	return nil
}

// Has reports whether a valid entry exists.
func (c *RedisCache) Has(ctx context.Context, key string) bool {
	count, err := c.client.Exists(ctx, c.prefix+key).Result()

	return err == nil && count > 0
}

// Close closes the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
