package stackapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fivetwenty-io/stackapi/internal/constants"

	_ "modernc.org/sqlite"
)

const sqliteCacheSchema = `
  CREATE TABLE cache (
    url varchar(255) NOT NULL,
    data text NOT NULL,
    expires int(11) NOT NULL,
    PRIMARY KEY (url)
  );
`

// SQLiteCacheConfig configures the SQLite cache.
type SQLiteCacheConfig struct {
	// Path is the database file; ":memory:" keeps it in memory.
	Path string `env:"PATH"`

	// KeepExpired skips removing expired rows when an existing database is opened.
	KeepExpired bool `env:"KEEP_EXPIRED"`
}

// SQLiteCache stores responses in a SQLite database so they survive restarts.
type SQLiteCache struct {
	db  *sql.DB
	now Clock
}

// NewSQLiteCache opens or creates the cache database.
func NewSQLiteCache(ctx context.Context, config SQLiteCacheConfig) (*SQLiteCache, error) {
	path := config.Path
	if path == "" {
		path = constants.DefaultSQLitePath
	}

	if path != constants.DefaultSQLitePath {
		err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes access.
	db.SetMaxOpenConns(1)

	cache := &SQLiteCache{db: db, now: time.Now}

	err = cache.initSchema(ctx, !config.KeepExpired)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return cache, nil
}

// SetClock replaces the time source.
func (c *SQLiteCache) SetClock(clock Clock) {
	c.now = clock
}

func (c *SQLiteCache) initSchema(ctx context.Context, purgeExpired bool) error {
	var name string

	err := c.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, constants.DefaultCacheTable).Scan(&name)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = c.db.ExecContext(ctx, sqliteCacheSchema)
		if err != nil {
			return fmt.Errorf("failed to create cache table: %w", err)
		}

		return nil
	case err != nil:
		return fmt.Errorf("failed to inspect cache database: %w", err)
	case purgeExpired:
		return c.Purge(ctx, false)
	default:
		return nil
	}
}

// Get returns a valid entry.
func (c *SQLiteCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	var (
		data    string
		expires int64
	)

	err := c.db.QueryRowContext(ctx,
		`SELECT data, expires FROM cache WHERE url = ? AND expires >= ?`, key, c.now().Unix()).Scan(&data, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	return &CacheEntry{
		Payload:   []byte(data),
		ExpiresAt: time.Unix(expires, 0),
	}, nil
}

// Put stores payload for ttl, replacing any previous row.
func (c *SQLiteCache) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache (url, data, expires) VALUES (?, ?, ?)`,
		key, string(payload), c.now().Unix()+ttlSeconds(ttl))
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// Delete removes a row.
func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM cache WHERE url = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// Purge removes expired rows, or every row when all is true.
func (c *SQLiteCache) Purge(ctx context.Context, all bool) error {
	var err error
	if all {
		_, err = c.db.ExecContext(ctx, `DELETE FROM cache`)
	} else {
		_, err = c.db.ExecContext(ctx, `DELETE FROM cache WHERE expires < ?`, c.now().Unix())
	}

	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	return nil
}

// Has reports whether a valid row exists.
func (c *SQLiteCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
