package stackapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/stackapi/internal/constants"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeMemory represents in-memory cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeSQLite represents the durable SQLite cache.
	CacheTypeSQLite CacheType = "sqlite"

	// CacheTypeRedis represents a Redis cache.
	CacheTypeRedis CacheType = "redis"

	// CacheTypeNATS represents NATS KV cache.
	CacheTypeNATS CacheType = "nats"

	// CacheTypePostgres represents a PostgreSQL cache.
	CacheTypePostgres CacheType = "postgres"

	// CacheTypeEtcd represents an etcd cache.
	CacheTypeEtcd CacheType = "etcd"

	// CacheTypeNone represents no caching.
	CacheTypeNone CacheType = "none"
)

// Static errors for err113 compliance.
var (
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrPostgresDSNRequired  = errors.New("postgres DSN required for postgres cache")
)

// CacheConfig configures cache backend.
type CacheConfig struct {
	// Type is the cache backend type
	Type CacheType `env:"TYPE" envDefault:"memory"`

	Memory   MemoryCacheConfig   `envPrefix:"MEMORY_"`
	SQLite   SQLiteCacheConfig   `envPrefix:"SQLITE_"`
	Redis    RedisCacheConfig    `envPrefix:"REDIS_"`
	NATS     NATSKVConfig        `envPrefix:"NATS_"`
	Postgres PostgresCacheConfig `envPrefix:"POSTGRES_"`
	Etcd     EtcdCacheConfig     `envPrefix:"ETCD_"`
}

// MemoryCacheConfig configures memory cache.
type MemoryCacheConfig struct {
	// MaxSize is the maximum number of items in the cache
	MaxSize int `env:"MAX_SIZE"`
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type: CacheTypeMemory,
		Memory: MemoryCacheConfig{
			MaxSize: constants.DefaultCacheSize,
		},
		SQLite: SQLiteCacheConfig{
			Path: constants.DefaultSQLitePath,
		},
	}
}

// NewCacheFromConfig creates a cache backend from configuration.
func NewCacheFromConfig(ctx context.Context, config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory, "":
		maxSize := config.Memory.MaxSize
		if maxSize == 0 {
			maxSize = constants.DefaultCacheSize
		}

		return NewMemoryCache(maxSize), nil

	case CacheTypeSQLite:
		return NewSQLiteCache(ctx, config.SQLite)

	case CacheTypeRedis:
		return NewRedisCache(ctx, config.Redis)

	case CacheTypeNATS:
		return NewNATSKVCache(ctx, config.NATS)

	case CacheTypePostgres:
		if config.Postgres.DSN == "" {
			return nil, ErrPostgresDSNRequired
		}

		return NewPostgresCache(ctx, config.Postgres)

	case CacheTypeEtcd:
		return NewEtcdCache(ctx, config.Etcd)

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NoOpCache is a cache that does nothing (no caching).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always misses.
func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheMiss
}

// Put does nothing.
func (c *NoOpCache) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing.
func (c *NoOpCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Purge does nothing.
func (c *NoOpCache) Purge(ctx context.Context, all bool) error {
	return nil
}

// Has always returns false.
func (c *NoOpCache) Has(ctx context.Context, key string) bool {
	return false
}

// CacheBuilder helps build cache configurations.
type CacheBuilder struct {
	config *CacheConfig
}

// NewCacheBuilder creates a new cache builder.
func NewCacheBuilder() *CacheBuilder {
	return &CacheBuilder{config: DefaultCacheConfig()}
}

// WithType sets the cache type.
func (b *CacheBuilder) WithType(cacheType CacheType) *CacheBuilder {
	b.config.Type = cacheType

	return b
}

// WithMemoryConfig sets memory cache configuration.
func (b *CacheBuilder) WithMemoryConfig(maxSize int) *CacheBuilder {
	b.config.Memory = MemoryCacheConfig{MaxSize: maxSize}

	return b
}

// WithSQLiteConfig sets SQLite cache configuration.
func (b *CacheBuilder) WithSQLiteConfig(config SQLiteCacheConfig) *CacheBuilder {
	b.config.SQLite = config

	return b
}

// WithRedisConfig sets Redis cache configuration.
func (b *CacheBuilder) WithRedisConfig(config RedisCacheConfig) *CacheBuilder {
	b.config.Redis = config

	return b
}

// WithNATSConfig sets NATS cache configuration.
func (b *CacheBuilder) WithNATSConfig(config NATSKVConfig) *CacheBuilder {
	b.config.NATS = config

	return b
}

// WithPostgresConfig sets PostgreSQL cache configuration.
func (b *CacheBuilder) WithPostgresConfig(config PostgresCacheConfig) *CacheBuilder {
	b.config.Postgres = config

	return b
}

// WithEtcdConfig sets etcd cache configuration.
func (b *CacheBuilder) WithEtcdConfig(config EtcdCacheConfig) *CacheBuilder {
	b.config.Etcd = config

	return b
}

// Config returns a copy of the configuration built so far.
func (b *CacheBuilder) Config() CacheConfig {
	return *b.config
}

// Build creates the cache from the configuration.
func (b *CacheBuilder) Build(ctx context.Context) (Cache, error) {
	return NewCacheFromConfig(ctx, b.config)
}

// CacheChain implements a chain of cache backends (L1, L2, etc.)
type CacheChain struct {
	caches []Cache
}

// NewCacheChain creates a new cache chain.
func NewCacheChain(caches ...Cache) *CacheChain {
	return &CacheChain{
		caches: caches,
	}
}

// Get retrieves an item from the cache chain.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, cache := range c.caches {
		entry, err := cache.Get(ctx, key)
		if err != nil {
			continue
		}

		// Found in this cache, populate earlier caches for the remaining lifetime.
		if remaining := time.Until(entry.ExpiresAt); remaining > 0 {
			for j := range i {
				_ = c.caches[j].Put(ctx, key, entry.Payload, remaining)
			}
		}

		return entry, nil
	}

	return nil, ErrCacheMiss
}

// Put stores an item in all caches.
func (c *CacheChain) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	var errs []error

	for _, cache := range c.caches {
		err := cache.Put(ctx, key, payload, ttl)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Delete removes an item from all caches.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	var errs []error

	for _, cache := range c.caches {
		err := cache.Delete(ctx, key)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Purge purges every cache in the chain.
func (c *CacheChain) Purge(ctx context.Context, all bool) error {
	var errs []error

	for _, cache := range c.caches {
		err := cache.Purge(ctx, all)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Has checks if a key exists in any cache.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, cache := range c.caches {
		if cache.Has(ctx, key) {
			return true
		}
	}

	return false
}

// Close closes every cache in the chain that holds resources.
func (c *CacheChain) Close() error {
	var errs []error

	for _, cache := range c.caches {
		err := CloseCache(cache)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
