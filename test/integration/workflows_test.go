//go:build integration

package integration

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWorkflow_BrowseSite walks from the site list to a user's answers.
func TestWorkflow_BrowseSite(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	runner := NewCommandRunner(config, t)

	// 1. The site appears in the network list
	var sites []map[string]any
	require.NoError(t, runner.RunJSON(&sites, "query", "sites", "--network", "--pagesize", "100"))
	require.NotEmpty(t, sites)

	found := false

	for _, site := range sites {
		if site["api_site_parameter"] == config.Site {
			found = true

			break
		}
	}

	assert.True(t, found, "site %s missing from the network list", config.Site)

	Pause()

	// 2. Site statistics include the resolved name
	var info map[string]any
	require.NoError(t, runner.RunJSON(&info, "site-info"))
	assert.NotEmpty(t, info["name"])
	assert.Equal(t, config.Site, info["site"])

	Pause()

	// 3. Top questions, filtered locally
	var questions []map[string]any
	require.NoError(t, runner.RunJSON(&questions, "query", "questions",
		"--sort", "votes", "--pagesize", "5", "--where", "item.score > 0"))
	require.NotEmpty(t, questions)

	for _, question := range questions {
		assert.Contains(t, question, "question_id")
		assert.Greater(t, question["score"], float64(0))
	}

	Pause()

	// 4. Chained request for the owner's answers
	owner, ok := questions[0]["owner"].(map[string]any)
	require.True(t, ok, "question has no owner")

	userID, ok := owner["user_id"].(float64)
	require.True(t, ok, "owner has no user_id")

	var answers []map[string]any
	require.NoError(t, runner.RunJSON(&answers, "query", "users/"+strconv.FormatInt(int64(userID), 10)+"/answers", "--pagesize", "3"))

	for _, answer := range answers {
		assert.Contains(t, answer, "answer_id")
	}
}

// TestWorkflow_Pagination fetches several pages in one command.
func TestWorkflow_Pagination(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	runner := NewCommandRunner(config, t)

	var single []map[string]any
	require.NoError(t, runner.RunJSON(&single, "query", "tags", "--sort", "popular", "--pagesize", "5"))

	Pause()

	var paged []map[string]any
	require.NoError(t, runner.RunJSON(&paged, "query", "tags", "--sort", "popular", "--pagesize", "5", "--pages", "2"))

	assert.Len(t, single, 5)
	assert.Len(t, paged, 10)
	assert.Equal(t, single[0]["name"], paged[0]["name"])
}

// TestWorkflow_MultiSite queries several sites concurrently.
func TestWorkflow_MultiSite(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	runner := NewCommandRunner(config, t)

	var bySite map[string][]map[string]any
	require.NoError(t, runner.RunJSON(&bySite, "query", "questions", "--sites", "superuser,serverfault", "--pagesize", "2"))

	assert.Len(t, bySite, 2)
	assert.NotEmpty(t, bySite["superuser"])
	assert.NotEmpty(t, bySite["serverfault"])
}

// TestWorkflow_Errors checks that API errors reach the user.
func TestWorkflow_Errors(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	runner := NewCommandRunner(config, t)

	t.Run("invalid ids", func(t *testing.T) {
		_, stderr, err := runner.Run("query", "users", "not-a-number")
		require.Error(t, err)
		assert.Contains(t, stderr, "bad_parameter")
	})

	t.Run("unknown method", func(t *testing.T) {
		_, stderr, err := runner.Run("query", "no-such-method")
		require.Error(t, err)
		assert.Contains(t, stderr, "method does not exist")
	})
}

// TestWorkflow_Filter creates a filter and uses it.
func TestWorkflow_Filter(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	runner := NewCommandRunner(config, t)

	var created map[string]string
	require.NoError(t, runner.RunJSON(&created, "filter", "create", "--include", "question.body"))
	require.NotEmpty(t, created["filter"])

	Pause()

	var questions []map[string]any
	require.NoError(t, runner.RunJSON(&questions, "query", "questions", "--filter", created["filter"], "--pagesize", "1"))
	require.Len(t, questions, 1)
	assert.Contains(t, questions[0], "body")
}

// TestWorkflow_OutputFormats checks the structured output formats.
func TestWorkflow_OutputFormats(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	runner := NewCommandRunner(config, t)

	stdout, stderr, err := runner.Run("query", "questions", "--pagesize", "1", "--output", "json")
	require.NoError(t, err, stderr)
	AssertJSONOutput(t, stdout)

	Pause()

	stdout, stderr, err = runner.Run("query", "questions", "--pagesize", "1", "--output", "yaml")
	require.NoError(t, err, stderr)
	AssertYAMLOutput(t, stdout)

	stdout, stderr, err = runner.Run("types", "answers", "--output", "yaml")
	require.NoError(t, err, stderr)
	AssertYAMLOutput(t, stdout)
}

// TestWorkflow_AccessToken reads the details of a user's token.
func TestWorkflow_AccessToken(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)
	config.SkipIfNoAccessToken(t)

	runner := NewCommandRunner(config, t)

	var tokens []map[string]any
	require.NoError(t, runner.RunJSON(&tokens, "query", "access-tokens", config.AccessToken, "--network"))
	require.Len(t, tokens, 1)
	assert.Equal(t, config.AccessToken, tokens[0]["access_token"])
}
