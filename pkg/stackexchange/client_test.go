package stackexchange_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/stackapi/pkg/stackapi"
	"github.com/fivetwenty-io/stackapi/pkg/stackexchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBody(t *testing.T, body string) []byte {
	t.Helper()

	var buf bytes.Buffer

	writer := gzip.NewWriter(&buf)
	_, err := writer.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return buf.Bytes()
}

func testConfig(server *httptest.Server) *stackapi.Config {
	config := stackapi.DefaultConfig()
	config.Endpoint = server.URL + "/2.1/"

	return config
}

func TestNew(t *testing.T) {
	t.Parallel()
	t.Run("creates api with defaults", func(t *testing.T) {
		t.Parallel()

		api, err := stackexchange.New(context.Background(), nil)
		require.NoError(t, err)
		require.NotNil(t, api)

		req := api.Users(1)
		assert.True(t, strings.HasPrefix(req.URL(), "http://api.stackexchange.com/2.1/users/1?"))
	})

	t.Run("rejects unknown cache type", func(t *testing.T) {
		t.Parallel()

		config := stackapi.DefaultConfig()
		config.Cache.Type = "memcached"

		_, err := stackexchange.New(context.Background(), config)
		require.ErrorIs(t, err, stackapi.ErrUnsupportedCacheType)
	})
}

func TestNewWithKey(t *testing.T) {
	t.Parallel()

	api, err := stackexchange.NewWithKey(context.Background(), "secret-key")
	require.NoError(t, err)

	assert.Contains(t, api.Site("stackoverflow").Questions().URL(), "key=secret-key")
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("STACKAPI_KEY", "env-key")
	t.Setenv("STACKAPI_CACHE_TYPE", "none")

	api, err := stackexchange.NewFromEnv(context.Background())
	require.NoError(t, err)

	assert.Contains(t, api.Users().URL(), "key=env-key")
	assert.IsType(t, &stackapi.NoOpCache{}, api.Client().Cache())
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClientIntegration(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		calls.Add(1)

		writer.Header().Set("Content-Encoding", "gzip")

		switch request.URL.Path {
		case "/2.1/users/42":
			assert.Equal(t, "stackoverflow", request.URL.Query().Get("site"))
			assert.NotEmpty(t, request.Header.Get("X-Request-Id"))

			_, _ = writer.Write(gzipBody(t, `{"items":[{"user_id":42,"display_name":"Alice",`+
				`"creation_date":1300000000}],"has_more":false,"quota_max":300,"quota_remaining":299}`))
		default:
			writer.WriteHeader(http.StatusBadRequest)
			_, _ = writer.Write(gzipBody(t, `{"error_id":404,"error_name":"no_method","error_message":"no such method"}`))
		}
	}))
	defer server.Close()

	api, err := stackexchange.New(context.Background(), testConfig(server))
	require.NoError(t, err)

	ctx := context.Background()

	users := api.Site("stackoverflow").Users(42)

	user, err := users.First(ctx)
	require.NoError(t, err)

	name, err := user.GetString("display_name")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	created, err := user.GetTime("creation_date")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1300000000, 0), created)

	assert.Equal(t, "<User 'Alice'>", user.String())

	response, err := users.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(299), response.QuotaRemaining())

	// A new chain for the same URL is served from the cache.
	again, err := api.Site("stackoverflow").Users(42).Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, again)
	assert.Equal(t, int32(1), calls.Load())

	_, err = api.Site("stackoverflow").Users(42).Method("timeline")
	require.NoError(t, err)

	badges, err := api.Site("stackoverflow").Method("badges")
	require.NoError(t, err)

	_, err = badges.Items(ctx)
	require.Error(t, err)
	assert.True(t, stackapi.IsAPIError(err))
}
