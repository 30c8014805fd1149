package stackapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/stackapi/internal/constants"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCacheConfig configures the PostgreSQL cache.
type PostgresCacheConfig struct {
	DSN   string `env:"DSN"`
	Table string `env:"TABLE"`
}

// PostgresCache keeps the SQLite layout in a shared PostgreSQL table.
type PostgresCache struct {
	pool  *pgxpool.Pool
	table string
	now   Clock
}

// NewPostgresCache connects with config.DSN and creates the table if needed.
func NewPostgresCache(ctx context.Context, config PostgresCacheConfig) (*PostgresCache, error) {
	if config.Table == "" {
		config.Table = constants.DefaultCacheTable
	}

	pool, err := pgxpool.New(ctx, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	cache := &PostgresCache{
		pool:  pool,
		table: pgx.Identifier{config.Table}.Sanitize(),
		now:   time.Now,
	}

	_, err = pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  url text NOT NULL PRIMARY KEY,
  data text NOT NULL,
  expires bigint NOT NULL
)`, cache.table))
	if err != nil {
		pool.Close()

		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	return cache, nil
}

// SetClock replaces the time source.
func (c *PostgresCache) SetClock(clock Clock) {
	c.now = clock
}

// Get returns a valid entry.
func (c *PostgresCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	var (
		data    string
		expires int64
	)

	err := c.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT data, expires FROM %s WHERE url = $1 AND expires >= $2`, c.table),
		key, c.now().Unix()).Scan(&data, &expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCacheMiss
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	return &CacheEntry{Payload: []byte(data), ExpiresAt: time.Unix(expires, 0)}, nil
}

// Put stores payload for ttl, replacing any previous row.
func (c *PostgresCache) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	_, err := c.pool.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (url, data, expires) VALUES ($1, $2, $3)
ON CONFLICT (url) DO UPDATE SET data = EXCLUDED.data, expires = EXCLUDED.expires`, c.table),
		key, string(payload), c.now().Unix()+ttlSeconds(ttl))
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// Delete removes a row.
func (c *PostgresCache) Delete(ctx context.Context, key string) error {
	_, err := c.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE url = $1`, c.table), key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// Purge removes expired rows, or every row when all is true.
func (c *PostgresCache) Purge(ctx context.Context, all bool) error {
	var err error
	if all {
		_, err = c.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, c.table))
	} else {
		_, err = c.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE expires < $1`, c.table), c.now().Unix())
	}

	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	return nil
}

// Has reports whether a valid row exists.
func (c *PostgresCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close closes the pool.
func (c *PostgresCache) Close() error {
	c.pool.Close()

	return nil
}
