package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fivetwenty-io/stackapi/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves canned replies keyed by path and records the requests it saw.
type fakeAPI struct {
	mu       sync.Mutex
	requests []*http.Request
	replies  map[string]string
}

func (f *fakeAPI) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, request)
	f.mu.Unlock()

	body, ok := f.replies[request.URL.Path]
	if request.URL.Path == "/2.1/info" && request.URL.Query().Get("filter") == constants.SiteInfoFilter {
		body, ok = `{"items":[{"site":{"name":"Stack Overflow","api_site_parameter":"stackoverflow"}}]}`, true
	}

	if request.URL.Query().Get("site") == "broken" {
		ok = false
	}

	writer.Header().Set("Content-Type", "application/json")

	if !ok {
		writer.WriteHeader(http.StatusBadRequest)
		_, _ = writer.Write([]byte(`{"error_id":400,"error_name":"bad_parameter","error_message":"site"}`))

		return
	}

	_, _ = writer.Write([]byte(body))
}

func (f *fakeAPI) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	paths := make([]string, len(f.requests))
	for i, request := range f.requests {
		paths[i] = request.URL.Path
	}

	return paths
}

// setupCLI resets viper, points it at a temporary config file and applies settings.
func setupCLI(t *testing.T, settings map[string]any) string {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	configFile := filepath.Join(t.TempDir(), "config.yml")
	viper.SetConfigFile(configFile)
	viper.Set("cache.type", "none")

	for key, value := range settings {
		viper.Set(key, value)
	}

	return configFile
}

func newFakeAPI(t *testing.T, replies map[string]string) (*fakeAPI, *httptest.Server) {
	t.Helper()

	api := &fakeAPI{replies: replies}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	return api, server
}

func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer

	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

const questionsReply = `{"items":[
	{"question_id":1,"title":"How do goroutines work?","score":42,"creation_date":1300000000,"tags":["go"]},
	{"question_id":2,"title":"What is a slice?","score":3,"creation_date":1300000100,"tags":["go","slices"]}
],"has_more":false,"quota_max":300,"quota_remaining":299}`

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand("1.0.0", "abc", "today")
	assert.Equal(t, "stackapi", cmd.Use)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	for _, name := range []string{"version", "config", "query", "sites", "site-info", "filter", "oauth", "cache", "types"} {
		assert.Contains(t, names, name)
	}

	for _, flag := range []string{"config", "key", "site", "access-token", "output", "verbose", "no-color"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %s should exist", flag)
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestQueryCommand(t *testing.T) {
	fake, server := newFakeAPI(t, map[string]string{
		"/2.1/questions":         questionsReply,
		"/2.1/users/1;2/answers": `{"items":[{"answer_id":10,"score":5}]}`,
		"/2.1/sites":             `{"items":[{"name":"Stack Overflow","api_site_parameter":"stackoverflow"}]}`,
	})

	base := map[string]any{"endpoint": server.URL + "/2.1", "site": "stackoverflow"}

	t.Run("table", func(t *testing.T) {
		setupCLI(t, base)

		stdout, _, err := execute(NewQueryCommand(), "questions", "--columns", "question_id,title,score,creation_date")
		require.NoError(t, err)
		assert.Contains(t, stdout, "How do goroutines work?")
		assert.Contains(t, stdout, "2011-03-13 07:06:40")
	})

	t.Run("where", func(t *testing.T) {
		setupCLI(t, base)
		viper.Set("output", constants.FormatJSON)

		stdout, _, err := execute(NewQueryCommand(), "questions", "--where", `item.score > 10 && "go" in item.tags`)
		require.NoError(t, err)

		var items []map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &items))
		require.Len(t, items, 1)
		assert.Equal(t, "How do goroutines work?", items[0]["title"])
	})

	t.Run("chain", func(t *testing.T) {
		setupCLI(t, base)

		stdout, _, err := execute(NewQueryCommand(), "users/1;2", "answers", "-p", "fromdate=1", "--sort", "votes")
		require.NoError(t, err)
		assert.Contains(t, stdout, "10")
		assert.Contains(t, fake.paths(), "/2.1/users/1;2/answers")
	})

	t.Run("network", func(t *testing.T) {
		setupCLI(t, base)

		stdout, _, err := execute(NewQueryCommand(), "sites", "--network", "--columns", "name")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Stack Overflow")
	})

	t.Run("several sites", func(t *testing.T) {
		setupCLI(t, base)
		viper.Set("output", constants.FormatYAML)

		stdout, stderr, err := execute(NewQueryCommand(), "questions", "--sites", "stackoverflow,broken")
		require.ErrorIs(t, err, constants.ErrQueriesFailed)
		assert.Contains(t, stdout, "stackoverflow:")
		assert.Contains(t, stdout, "What is a slice?")
		assert.Contains(t, stderr, "broken")
	})

	t.Run("invalid parameter", func(t *testing.T) {
		setupCLI(t, base)

		_, _, err := execute(NewQueryCommand(), "questions", "-p", "novalue")
		require.ErrorIs(t, err, constants.ErrInvalidParameterPair)
	})

	t.Run("invalid expression", func(t *testing.T) {
		setupCLI(t, base)

		_, _, err := execute(NewQueryCommand(), "questions", "--where", "item.score >")
		require.Error(t, err)
	})

	t.Run("unknown method", func(t *testing.T) {
		setupCLI(t, base)

		_, _, err := execute(NewQueryCommand(), "nonsense")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "method does not exist")
	})

	t.Run("no site", func(t *testing.T) {
		setupCLI(t, map[string]any{"endpoint": server.URL + "/2.1"})

		_, _, err := execute(NewQueryCommand(), "questions")
		require.ErrorIs(t, err, constants.ErrNoSiteConfigured)
	})
}

func TestSplitComponents(t *testing.T) {
	assert.Equal(t, []string{"users", "1;2", "answers"}, splitComponents([]string{"users/1;2/", "answers"}))
	assert.Equal(t, []any{"1", "2"}, splitIDs("1;;2"))
}

func TestSitesCommands(t *testing.T) {
	_, server := newFakeAPI(t, map[string]string{
		"/2.1/sites": `{"items":[{"name":"Super User","api_site_parameter":"superuser","site_url":"https://superuser.com"}]}`,
		"/2.1/info":  `{"items":[{"total_questions":100,"api_revision":"2024.1.1"}]}`,
	})

	setupCLI(t, map[string]any{"endpoint": server.URL + "/2.1"})

	stdout, _, err := execute(NewSitesCommand())
	require.NoError(t, err)
	assert.Contains(t, stdout, "superuser")
	assert.Contains(t, stdout, "https://superuser.com")

	viper.Set("output", constants.FormatJSON)

	stdout, _, err = execute(NewSiteInfoCommand(), "stackoverflow")
	require.NoError(t, err)

	var properties map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &properties))
	assert.Equal(t, "Stack Overflow", properties["name"])
	assert.Equal(t, "stackoverflow", properties["site"])
	assert.InDelta(t, 100, properties["total_questions"], 0)
}

func TestFilterCreateCommand(t *testing.T) {
	fake, server := newFakeAPI(t, map[string]string{
		"/2.1/filters/create": `{"items":[{"filter":"!9abc"}]}`,
	})

	setupCLI(t, map[string]any{"endpoint": server.URL + "/2.1"})

	stdout, _, err := execute(newFilterCreateCommand(), "--include", "question.body", "--exclude", "question.tags")
	require.NoError(t, err)
	assert.Equal(t, "!9abc\n", stdout)

	require.Len(t, fake.requests, 1)
	assert.Equal(t, http.MethodPost, fake.requests[0].Method)
}

func TestTypesCommand(t *testing.T) {
	setupCLI(t, nil)
	viper.Set("output", constants.FormatJSON)

	stdout, _, err := execute(NewTypesCommand(), "questions/*/answers")
	require.NoError(t, err)

	var rows []patternType
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "answer", rows[0].Type)
	assert.Equal(t, "answer_id", rows[0].IDField)
}

func TestConfigCommands(t *testing.T) {
	configFile := setupCLI(t, nil)

	stdout, _, err := execute(newConfigSetCommand(), "site", "superuser")
	require.NoError(t, err)
	assert.Equal(t, "Set site to superuser\n", stdout)

	stdout, _, err = execute(newConfigSetCommand(), "client_secret", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "Set client_secret to ***\n", stdout)

	_, _, err = execute(newConfigSetCommand(), "cache.etcd_endpoints", "a:2379, b:2379")
	require.NoError(t, err)

	data, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "site: superuser")
	assert.Contains(t, string(data), "client_secret: hunter2")
	assert.Equal(t, []string{"a:2379", "b:2379"}, loadConfig().Cache.EtcdEndpoints)

	viper.Set("output", constants.FormatJSON)

	stdout, _, err = execute(newConfigShowCommand())
	require.NoError(t, err)

	var properties map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &properties))
	assert.Equal(t, "superuser", properties["site"])
	assert.Equal(t, constants.MaskedSecret, properties["client_secret"])
	assert.Empty(t, properties["access_token"])

	_, _, err = execute(newConfigUnsetCommand(), "site")
	require.NoError(t, err)
	assert.Empty(t, viper.GetString("site"))

	_, _, err = execute(newConfigSetCommand(), "colour", "red")
	require.ErrorIs(t, err, constants.ErrUnknownConfigKey)

	_, _, err = execute(newConfigSetCommand(), "ttl", "soon")
	require.Error(t, err)

	_, _, err = execute(newConfigSetCommand(), "output", "xml")
	require.ErrorIs(t, err, constants.ErrUnsupportedOutput)
}

func TestOAuthCommands(t *testing.T) {
	tokens := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if err := request.ParseForm(); err != nil || request.PostForm.Get("code") != "good" {
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(http.StatusBadRequest)
			_, _ = writer.Write([]byte(`{"error":{"type":"invalid_request","message":"bad code"}}`))

			return
		}

		writer.Header().Set("Content-Type", "text/plain")
		_, _ = writer.Write([]byte("access_token=fresh&expires=86400"))
	}))
	defer tokens.Close()

	configFile := setupCLI(t, map[string]any{
		"client_id":       "42",
		"client_secret":   "secret",
		"oauth_token_url": tokens.URL,
	})

	stdout, _, err := execute(newOAuthURLCommand(), "--redirect-uri", "https://example.com/cb", "--scope", "read_inbox")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "https://stackexchange.com/oauth?"))
	assert.Contains(t, stdout, "client_id=42")

	_, _, err = execute(newOAuthURLCommand())
	require.ErrorIs(t, err, constants.ErrRedirectURIRequired)

	_, _, err = execute(newOAuthExchangeCommand(), "--redirect-uri", "https://example.com/cb")
	require.ErrorIs(t, err, constants.ErrCodeRequired)

	_, _, err = execute(newOAuthExchangeCommand(), "--code", "bad", "--redirect-uri", "https://example.com/cb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad code")

	stdout, _, err = execute(newOAuthExchangeCommand(), "--code", "good", "--redirect-uri", "https://example.com/cb")
	require.NoError(t, err)
	assert.Equal(t, "Access token saved.\n", stdout)
	assert.Equal(t, "fresh", viper.GetString("access_token"))

	data, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "access_token: fresh")
}

func TestCachePurgeCommand(t *testing.T) {
	setupCLI(t, map[string]any{
		"cache.type":        "sqlite",
		"cache.sqlite_path": filepath.Join(t.TempDir(), "cache.db"),
	})

	stdout, _, err := execute(newCachePurgeCommand(), "--all")
	require.NoError(t, err)
	assert.Equal(t, "Purged all entries from the sqlite cache.\n", stdout)

	stdout, _, err = execute(newCachePurgeCommand())
	require.NoError(t, err)
	assert.Equal(t, "Purged expired entries from the sqlite cache.\n", stdout)
}

func TestVersionCommand(t *testing.T) {
	setupCLI(t, map[string]any{"output": constants.FormatJSON})

	stdout, _, err := execute(NewVersionCommand("1.2.3", "abc123", "2026-01-01"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.2.3","commit":"abc123","built":"2026-01-01","api":"2.1"}`, stdout)
}
