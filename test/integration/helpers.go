//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	Enabled     bool
	Key         string
	AccessToken string
	Site        string
	BinaryPath  string
	Verbose     bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	site := os.Getenv("STACKAPI_INTEGRATION_SITE")
	if site == "" {
		site = "stackoverflow"
	}

	return &TestConfig{
		Enabled:     os.Getenv("STACKAPI_INTEGRATION") == "true",
		Key:         os.Getenv("STACKAPI_KEY"),
		AccessToken: os.Getenv("STACKAPI_ACCESS_TOKEN"),
		Site:        site,
		BinaryPath:  getBinaryPath(),
		Verbose:     os.Getenv("STACKAPI_VERBOSE") == "true",
	}
}

// getBinaryPath determines the path to the stackapi binary.
func getBinaryPath() string {
	if path := os.Getenv("STACKAPI_BINARY_PATH"); path != "" {
		return path
	}

	for _, candidate := range []string{"../../stackapi", "./stackapi", "../stackapi"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "stackapi"
}

// SkipIfMissingConfig skips the test unless live calls are enabled and the binary exists.
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if !config.Enabled {
		t.Skip("STACKAPI_INTEGRATION not set, skipping integration test")
	}

	if _, err := exec.LookPath(config.BinaryPath); err != nil {
		t.Skipf("stackapi binary not found at %s, skipping integration test", config.BinaryPath)
	}
}

// SkipIfNoAccessToken skips tests that need an authenticated user.
func (config *TestConfig) SkipIfNoAccessToken(t *testing.T) {
	t.Helper()

	if config.AccessToken == "" {
		t.Skip("STACKAPI_ACCESS_TOKEN not set, skipping authenticated test")
	}
}

// CommandRunner runs stackapi commands against an isolated config file.
type CommandRunner struct {
	config     *TestConfig
	configFile string
	t          *testing.T
}

// NewCommandRunner creates a command runner with its own config file and cache.
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yml")

	settings := map[string]any{
		"site": config.Site,
		"cache": map[string]any{
			"type":        "sqlite",
			"sqlite_path": filepath.Join(dir, "cache.db"),
		},
	}

	if config.Key != "" {
		settings["key"] = config.Key
	}

	data, err := yaml.Marshal(settings)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configFile, data, 0o600))

	return &CommandRunner{
		config:     config,
		configFile: configFile,
		t:          t,
	}
}

// Run executes a stackapi command and returns its output.
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	args = append([]string{"--config", runner.configFile}, args...)

	cmd := exec.Command(runner.config.BinaryPath, args...) //nolint:gosec // test binary path comes from the environment

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.BinaryPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// RunJSON executes a command with JSON output and decodes the result into v.
func (runner *CommandRunner) RunJSON(v any, args ...string) error {
	stdout, stderr, err := runner.Run(append(args, "--output", "json")...)
	if err != nil {
		return fmt.Errorf("%w: %s", err, stderr)
	}

	err = json.Unmarshal([]byte(stdout), v)
	if err != nil {
		return fmt.Errorf("failed to decode output %q: %w", stdout, err)
	}

	return nil
}

// Pause keeps consecutive live calls under the API's per-second limit.
func Pause() {
	time.Sleep(200 * time.Millisecond)
}

// AssertJSONOutput verifies command output is valid JSON.
func AssertJSONOutput(t *testing.T, output string) {
	t.Helper()

	if !json.Valid([]byte(strings.TrimSpace(output))) {
		t.Errorf("Output does not appear to be JSON: %s", output)
	}
}

// AssertYAMLOutput verifies command output is valid YAML.
func AssertYAMLOutput(t *testing.T, output string) {
	t.Helper()

	var decoded any
	if err := yaml.Unmarshal([]byte(output), &decoded); err != nil || decoded == nil {
		t.Errorf("Output does not appear to be YAML: %s", output)
	}
}
