package stackapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/stackapi/internal/constants"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Static errors for err113 compliance.
var (
	ErrEtcdEndpointsRequired = errors.New("etcd endpoints cannot be empty")
)

// EtcdCacheConfig configures the etcd cache.
type EtcdCacheConfig struct {
	Endpoints   []string      `env:"ENDPOINTS" envSeparator:","`
	KeyPrefix   string        `env:"KEY_PREFIX"`
	DialTimeout time.Duration `env:"DIAL_TIMEOUT"`
}

// EtcdCache stores each response under a lease that expires with the entry.
type EtcdCache struct {
	client *clientv3.Client
	prefix string
}

// NewEtcdCache connects to the cluster.
func NewEtcdCache(ctx context.Context, config EtcdCacheConfig) (*EtcdCache, error) {
	if len(config.Endpoints) == 0 {
		return nil, ErrEtcdEndpointsRequired
	}

	if config.DialTimeout == 0 {
		config.DialTimeout = constants.DefaultDialTimeout
	}

	if config.KeyPrefix == "" {
		config.KeyPrefix = constants.DefaultCacheKeyPrefix
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   config.Endpoints,
		DialTimeout: config.DialTimeout,
		Context:     ctx,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	return &EtcdCache{client: client, prefix: config.KeyPrefix}, nil
}

// Get returns a valid entry.
func (c *EtcdCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	resp, err := c.client.Get(ctx, c.prefix+hashKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if len(resp.Kvs) == 0 {
		return nil, ErrCacheMiss
	}

	stored := resp.Kvs[0]
	entry := &CacheEntry{Payload: stored.Value}

	if stored.Lease != 0 {
		lease, err := c.client.TimeToLive(ctx, clientv3.LeaseID(stored.Lease))
		if err == nil && lease.TTL > 0 {
			entry.ExpiresAt = time.Now().Add(time.Duration(lease.TTL) * time.Second)
		}
	}

	return entry, nil
}

// Put stores payload under a lease of ttl.
func (c *EtcdCache) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	lease, err := c.client.Grant(ctx, max(ttlSeconds(ttl), 1))
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	_, err = c.client.Put(ctx, c.prefix+hashKey(key), string(payload), clientv3.WithLease(lease.ID))
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// Delete removes an entry.
func (c *EtcdCache) Delete(ctx context.Context, key string) error {
	_, err := c.client.Delete(ctx, c.prefix+hashKey(key))
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// Purge removes every entry under the prefix when all is true. Expired
// entries vanish with their lease.
func (c *EtcdCache) Purge(ctx context.Context, all bool) error {
	if !all {
		return nil
	}

	_, err := c.client.Delete(ctx, c.prefix, clientv3.WithPrefix())
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	return nil
}

// Has reports whether a valid entry exists.
func (c *EtcdCache) Has(ctx context.Context, key string) bool {
	resp, err := c.client.Get(ctx, c.prefix+hashKey(key), clientv3.WithCountOnly())

	return err == nil && resp.Count > 0
}

// Close closes the client.
func (c *EtcdCache) Close() error {
	return c.client.Close()
}
