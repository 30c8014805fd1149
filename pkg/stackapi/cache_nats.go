package stackapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/stackapi/internal/constants"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSKVConfig configures the NATS JetStream key-value cache.
type NATSKVConfig struct {
	URL         string        `env:"URL"`
	Bucket      string        `env:"BUCKET"`
	DialTimeout time.Duration `env:"DIAL_TIMEOUT"`
	// MaxAge bounds how long the bucket keeps any entry, whatever its TTL.
	MaxAge time.Duration `env:"MAX_AGE"`
}

// NATSKVCache stores responses in a JetStream key-value bucket. URLs are
// hashed because KV keys only allow a restricted alphabet.
type NATSKVCache struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
	now  Clock
}

// NewNATSKVCache connects to NATS and creates the bucket if needed.
func NewNATSKVCache(ctx context.Context, config NATSKVConfig) (*NATSKVCache, error) {
	if config.URL == "" {
		config.URL = nats.DefaultURL
	}

	if config.Bucket == "" {
		config.Bucket = constants.DefaultNATSBucket
	}

	if config.DialTimeout == 0 {
		config.DialTimeout = constants.DefaultDialTimeout
	}

	conn, err := nats.Connect(config.URL, nats.Timeout(config.DialTimeout), nats.Name("stackapi-cache"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	stream, err := jetstream.New(conn)
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("failed to open JetStream: %w", err)
	}

	kv, err := stream.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      config.Bucket,
		Description: "StackExchange API response cache",
		TTL:         config.MaxAge,
	})
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("failed to create key-value bucket %s: %w", config.Bucket, err)
	}

	return &NATSKVCache{conn: conn, kv: kv, now: time.Now}, nil
}

// SetClock replaces the time source.
func (c *NATSKVCache) SetClock(clock Clock) {
	c.now = clock
}

// Get returns a valid entry.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	stored, err := c.kv.Get(ctx, hashKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, ErrCacheMiss
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	entry := &CacheEntry{}

	err = json.Unmarshal(stored.Value(), entry)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}

	if entry.Expired(c.now()) {
		_ = c.kv.Delete(ctx, hashKey(key))

		return nil, ErrCacheMiss
	}

	return entry, nil
}

// Put stores payload for ttl.
func (c *NATSKVCache) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	data, err := json.Marshal(CacheEntry{
		Payload:   payload,
		ExpiresAt: c.now().Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	_, err = c.kv.Put(ctx, hashKey(key), data)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// Delete removes an entry.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, hashKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// Purge removes expired entries, or every entry when all is true.
func (c *NATSKVCache) Purge(ctx context.Context, all bool) error {
	lister, err := c.kv.ListKeys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}

	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}

	now := c.now()

	for _, key := range keys {
		if !all && !c.expiredAt(ctx, key, now) {
			continue
		}

		err = c.kv.Purge(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to purge cache entry: %w", err)
		}
	}

	return nil
}

// Has reports whether a valid entry exists.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close drains the connection.
func (c *NATSKVCache) Close() error {
	return c.conn.Drain()
}

func (c *NATSKVCache) expiredAt(ctx context.Context, hashed string, now time.Time) bool {
	stored, err := c.kv.Get(ctx, hashed)
	if err != nil {
		return false
	}

	entry := &CacheEntry{}
	if json.Unmarshal(stored.Value(), entry) != nil {
		return true
	}

	return entry.Expired(now)
}
