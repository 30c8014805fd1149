package stackapi_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fivetwenty-io/stackapi/pkg/stackapi"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cachedURL = "http://api.stackexchange.com/2.1/users/42?filter=default&key=&site=stackoverflow"

// testCacheContract exercises the behavior every backend shares. advance moves
// the backend's notion of time forward.
func testCacheContract(t *testing.T, cache stackapi.Cache, advance func(time.Duration)) {
	t.Helper()

	ctx := context.Background()

	_, err := cache.Get(ctx, cachedURL)
	require.ErrorIs(t, err, stackapi.ErrCacheMiss)
	assert.False(t, cache.Has(ctx, cachedURL))

	require.NoError(t, cache.Put(ctx, cachedURL, []byte(`{"items":[]}`), 10*time.Second))

	entry, err := cache.Get(ctx, cachedURL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(entry.Payload))
	assert.True(t, cache.Has(ctx, cachedURL))

	require.NoError(t, cache.Put(ctx, cachedURL, []byte(`{"items":[1]}`), 10*time.Second))

	entry, err = cache.Get(ctx, cachedURL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[1]}`, string(entry.Payload))

	require.NoError(t, cache.Delete(ctx, cachedURL))
	assert.False(t, cache.Has(ctx, cachedURL))

	require.NoError(t, cache.Put(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, cache.Put(ctx, "long", []byte("b"), time.Hour))

	advance(5 * time.Second)

	_, err = cache.Get(ctx, "short")
	require.ErrorIs(t, err, stackapi.ErrCacheMiss)
	assert.True(t, cache.Has(ctx, "long"))

	require.NoError(t, cache.Purge(ctx, false))
	assert.True(t, cache.Has(ctx, "long"))

	require.NoError(t, cache.Purge(ctx, true))
	assert.False(t, cache.Has(ctx, "long"))
}

func TestMemoryCache(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	cache := stackapi.NewMemoryCache(0)
	cache.SetClock(func() time.Time { return now })

	testCacheContract(t, cache, func(d time.Duration) { now = now.Add(d) })
}

func TestMemoryCache_Eviction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := stackapi.NewMemoryCache(2)

	require.NoError(t, cache.Put(ctx, "soon", []byte("1"), time.Minute))
	require.NoError(t, cache.Put(ctx, "later", []byte("2"), time.Hour))
	require.NoError(t, cache.Put(ctx, "latest", []byte("3"), 2*time.Hour))

	assert.Equal(t, 2, cache.Len())
	assert.False(t, cache.Has(ctx, "soon"))
	assert.True(t, cache.Has(ctx, "later"))
	assert.True(t, cache.Has(ctx, "latest"))

	require.NoError(t, cache.Put(ctx, "later", []byte("4"), time.Hour))
	assert.Equal(t, 2, cache.Len())
}

func TestSQLiteCache(t *testing.T) {
	t.Parallel()

	cache, err := stackapi.NewSQLiteCache(context.Background(), stackapi.SQLiteCacheConfig{})
	require.NoError(t, err)

	defer func() { _ = cache.Close() }()

	now := time.Unix(1_700_000_000, 0)
	cache.SetClock(func() time.Time { return now })

	testCacheContract(t, cache, func(d time.Duration) { now = now.Add(d) })
}

func TestSQLiteCache_Persistence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	cache, err := stackapi.NewSQLiteCache(ctx, stackapi.SQLiteCacheConfig{Path: path})
	require.NoError(t, err)

	require.NoError(t, cache.Put(ctx, "kept", []byte("x"), time.Hour))
	require.NoError(t, cache.Put(ctx, "gone", []byte("y"), -time.Hour))
	require.NoError(t, cache.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	reopened, err := stackapi.NewSQLiteCache(ctx, stackapi.SQLiteCacheConfig{Path: path})
	require.NoError(t, err)

	defer func() { _ = reopened.Close() }()

	entry, err := reopened.Get(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), entry.Payload)
	assert.False(t, reopened.Has(ctx, "gone"))
}

func TestRedisCache(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)

	cache, err := stackapi.NewRedisCache(context.Background(), stackapi.RedisCacheConfig{
		URL:       "redis://" + server.Addr(),
		KeyPrefix: "test:",
	})
	require.NoError(t, err)

	defer func() { _ = cache.Close() }()

	testCacheContract(t, cache, server.FastForward)
}

func TestRedisCache_Prefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := miniredis.RunT(t)

	require.NoError(t, server.Set("other:key", "untouched"))

	cache := stackapi.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: server.Addr()}), "")

	defer func() { _ = cache.Close() }()

	require.NoError(t, cache.Put(ctx, cachedURL, []byte("payload"), time.Minute))
	assert.True(t, server.Exists("stackapi:cache:"+cachedURL))

	entry, err := cache.Get(ctx, cachedURL)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), entry.ExpiresAt, 5*time.Second)

	require.NoError(t, cache.Purge(ctx, true))
	assert.False(t, server.Exists("stackapi:cache:"+cachedURL))
	assert.True(t, server.Exists("other:key"))

	require.NoError(t, cache.Put(ctx, cachedURL, []byte("payload"), 0))
	assert.False(t, cache.Has(ctx, cachedURL))
}

func TestRedisCache_Unreachable(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := stackapi.NewRedisCache(context.Background(), stackapi.RedisCacheConfig{
		URL:         "redis://" + addr,
		DialTimeout: 200 * time.Millisecond,
	})
	require.Error(t, err)

	_, err = stackapi.NewRedisCache(context.Background(), stackapi.RedisCacheConfig{URL: "not a url"})
	require.Error(t, err)
}

func TestPostgresCache(t *testing.T) {
	t.Parallel()

	dsn := os.Getenv("STACKAPI_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STACKAPI_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()

	cache, err := stackapi.NewPostgresCache(ctx, stackapi.PostgresCacheConfig{DSN: dsn, Table: "stackapi_cache_test"})
	require.NoError(t, err)

	defer func() { _ = cache.Close() }()

	require.NoError(t, cache.Purge(ctx, true))

	now := time.Now()
	cache.SetClock(func() time.Time { return now })

	testCacheContract(t, cache, func(d time.Duration) { now = now.Add(d) })
}

func TestRemoteCaches_ConfigErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := stackapi.NewEtcdCache(ctx, stackapi.EtcdCacheConfig{})
	require.ErrorIs(t, err, stackapi.ErrEtcdEndpointsRequired)

	_, err = stackapi.NewNATSKVCache(ctx, stackapi.NATSKVConfig{
		URL:         "nats://127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	})
	require.Error(t, err)

	_, err = stackapi.NewPostgresCache(ctx, stackapi.PostgresCacheConfig{DSN: "://bad"})
	require.Error(t, err)
}

func TestCacheEntry_Expired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	entry := &stackapi.CacheEntry{ExpiresAt: now}

	assert.False(t, entry.Expired(now))
	assert.True(t, entry.Expired(now.Add(time.Nanosecond)))
}
