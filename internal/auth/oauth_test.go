package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/fivetwenty-io/stackapi/internal/auth"
	"github.com/fivetwenty-io/stackapi/internal/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipWrite(t *testing.T, writer http.ResponseWriter, status int, body string) {
	t.Helper()

	encoded, err := compress.Encode([]byte(body))
	if !assert.NoError(t, err) {
		return
	}

	writer.Header().Set("Content-Encoding", "gzip")
	writer.WriteHeader(status)
	_, _ = writer.Write(encoded)
}

func TestFlow_URLs(t *testing.T) {
	t.Parallel()

	flow := auth.NewFlow(auth.Config{ClientID: "123"})

	t.Run("explicit", func(t *testing.T) {
		t.Parallel()

		parsed, err := url.Parse(flow.ExplicitURL("read_inbox,no_expiry", "https://example.com/cb", "xyz"))
		require.NoError(t, err)

		assert.Equal(t, "stackexchange.com", parsed.Host)
		assert.Equal(t, "/oauth", parsed.Path)

		query := parsed.Query()
		assert.Equal(t, "123", query.Get("client_id"))
		assert.Equal(t, "read_inbox,no_expiry", query.Get("scope"))
		assert.Equal(t, "https://example.com/cb", query.Get("redirect_uri"))
		assert.Equal(t, "xyz", query.Get("state"))
		assert.Equal(t, "code", query.Get("response_type"))
	})

	t.Run("implicit", func(t *testing.T) {
		t.Parallel()

		parsed, err := url.Parse(flow.ImplicitURL("", "https://example.com/cb", ""))
		require.NoError(t, err)

		assert.Equal(t, "/oauth/dialog", parsed.Path)

		query := parsed.Query()
		assert.Equal(t, "token", query.Get("response_type"))
		assert.False(t, query.Has("state"))
		assert.False(t, query.Has("scope"))
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestFlow_Exchange(t *testing.T) {
	t.Parallel()

	t.Run("returns access token", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/oauth/access_token", request.URL.Path)
			assert.Equal(t, http.MethodPost, request.Method)
			assert.NoError(t, request.ParseForm())
			assert.Equal(t, "123", request.PostForm.Get("client_id"))
			assert.Equal(t, "secret", request.PostForm.Get("client_secret"))
			assert.Equal(t, "the-code", request.PostForm.Get("code"))
			assert.Equal(t, "https://example.com/cb", request.PostForm.Get("redirect_uri"))

			writer.Header().Set("Content-Type", "text/plain")
			gzipWrite(t, writer, http.StatusOK, "access_token=tok123&expires=86400")
		}))
		defer server.Close()

		flow := auth.NewFlow(auth.Config{
			ClientID:     "123",
			ClientSecret: "secret",
			Endpoints:    auth.Endpoints{TokenURL: server.URL + "/oauth/access_token"},
		})

		token, err := flow.Exchange(context.Background(), "the-code", "https://example.com/cb")
		require.NoError(t, err)
		assert.Equal(t, "tok123", token)
	})

	t.Run("error envelope", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.Header().Set("Content-Type", "application/json")
			gzipWrite(t, writer, http.StatusBadRequest, `{"error":{"type":"invalid_request","message":"code has expired"}}`)
		}))
		defer server.Close()

		flow := auth.NewFlow(auth.Config{
			ClientID:     "123",
			ClientSecret: "secret",
			Endpoints:    auth.Endpoints{TokenURL: server.URL},
		})

		_, err := flow.Exchange(context.Background(), "stale", "https://example.com/cb")
		require.Error(t, err)

		var authErr *auth.Error
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, http.StatusBadRequest, authErr.Status)
		assert.Equal(t, "invalid_request", authErr.Type)
		assert.Equal(t, "code has expired", authErr.Message)
	})

	t.Run("undecodable reply", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusBadRequest)
			_, _ = writer.Write([]byte{0x1f, 0x8b, 0x01})
		}))
		defer server.Close()

		flow := auth.NewFlow(auth.Config{
			ClientID:     "123",
			ClientSecret: "secret",
			Endpoints:    auth.Endpoints{TokenURL: server.URL},
		})

		_, err := flow.Exchange(context.Background(), "code", "https://example.com/cb")
		require.Error(t, err)

		var authErr *auth.Error
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, 0, authErr.Status)
		assert.Equal(t, "unable to decompress GZipped response from API server", authErr.Message)
	})
}

type memoryPersister struct {
	saved []string
}

func (p *memoryPersister) SaveAccessToken(token string) error {
	p.saved = append(p.saved, token)

	return nil
}

func TestTokenManager(t *testing.T) {
	t.Parallel()

	t.Run("exchange persists token", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.Header().Set("Content-Type", "application/x-www-form-urlencoded")
			_, _ = writer.Write([]byte("access_token=fresh"))
		}))
		defer server.Close()

		persister := &memoryPersister{}
		flow := auth.NewFlow(auth.Config{
			ClientID:     "123",
			ClientSecret: "secret",
			Endpoints:    auth.Endpoints{TokenURL: server.URL},
		})
		manager := auth.NewTokenManager(flow, persister, "old")
		assert.Equal(t, "old", manager.Token())

		token, err := manager.Exchange(context.Background(), "code", "https://example.com/cb")
		require.NoError(t, err)
		assert.Equal(t, "fresh", token)
		assert.Equal(t, "fresh", manager.Token())
		assert.Equal(t, []string{"fresh"}, persister.saved)
	})

	t.Run("no persister", func(t *testing.T) {
		t.Parallel()

		manager := auth.NewTokenManager(auth.NewFlow(auth.Config{}), nil, "")

		err := manager.SetToken("abc")
		require.ErrorIs(t, err, auth.ErrNoConfigPersister)
		assert.Equal(t, "abc", manager.Token())
	})
}
