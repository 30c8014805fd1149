package stackapi

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fivetwenty-io/stackapi/internal/constants"
)

// EnvPrefix is prepended to every environment variable read by ConfigFromEnv.
const EnvPrefix = "STACKAPI_"

// Config represents client configuration for building an API.
//
// Per-request timeouts should generally be controlled via the context passed
// to Resolve and friends. Retries are disabled unless RetryMax is set.
type Config struct {
	// Key is the application key sent with every request. Requests work
	// without one but get a much smaller quota.
	Key string `env:"KEY"`
	// ClientID and ClientSecret identify the application for OAuth.
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`

	// DefaultFilter is sent with requests that do not set a filter.
	DefaultFilter string `env:"DEFAULT_FILTER"`
	// DefaultTTL is how long GET responses are cached.
	DefaultTTL time.Duration `env:"DEFAULT_TTL"`
	// Endpoint is the API host and version prefix, e.g. "api.stackexchange.com/2.1".
	Endpoint string `env:"ENDPOINT"`

	UserAgent   string        `env:"USER_AGENT"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT"`
	// RetryMax is the number of retries for connection errors and 5xx replies.
	RetryMax     int           `env:"RETRY_MAX"`
	RetryWaitMin time.Duration `env:"RETRY_WAIT_MIN"`
	RetryWaitMax time.Duration `env:"RETRY_WAIT_MAX"`
	// RateLimit caps requests per second; zero disables client-side limiting.
	RateLimit int `env:"RATE_LIMIT"`
	// Debug enables request/response logging when a Logger is provided.
	Debug bool `env:"DEBUG"`

	Cache CacheConfig `envPrefix:"CACHE_"`

	Logger       Logger             `env:"-"`
	Interceptors []InterceptorSetup `env:"-"`
}

// InterceptorSetup installs interceptors on a chain.
type InterceptorSetup func(chain *InterceptorChain)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		DefaultFilter: constants.DefaultFilter,
		DefaultTTL:    constants.DefaultTTL,
		Endpoint:      constants.APIEndpoint,
		UserAgent:     constants.DefaultUserAgent,
		HTTPTimeout:   constants.DefaultHTTPTimeout,
		RetryMax:      constants.DefaultRetryMax,
		RetryWaitMin:  constants.DefaultRetryWaitMin,
		RetryWaitMax:  constants.DefaultRetryWaitMax,
		Cache:         *DefaultCacheConfig(),
	}
}

// ConfigFromEnv reads STACKAPI_* variables on top of DefaultConfig.
func ConfigFromEnv() (*Config, error) {
	return ConfigFromEnvironment(nil)
}

// ConfigFromEnvironment is ConfigFromEnv reading from environ instead of the
// process environment when environ is not nil.
func ConfigFromEnvironment(environ map[string]string) (*Config, error) {
	config := DefaultConfig()

	err := env.ParseWithOptions(config, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return config, nil
}

// Normalize fills unset fields with their defaults.
func (c *Config) Normalize() {
	defaults := DefaultConfig()

	if c.DefaultFilter == "" {
		c.DefaultFilter = defaults.DefaultFilter
	}

	if c.DefaultTTL == 0 {
		c.DefaultTTL = defaults.DefaultTTL
	}

	if c.Endpoint == "" {
		c.Endpoint = defaults.Endpoint
	}

	if c.UserAgent == "" {
		c.UserAgent = defaults.UserAgent
	}

	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = defaults.HTTPTimeout
	}

	if c.RetryWaitMin == 0 {
		c.RetryWaitMin = defaults.RetryWaitMin
	}

	if c.RetryWaitMax == 0 {
		c.RetryWaitMax = defaults.RetryWaitMax
	}

	if c.Cache.Type == "" {
		c.Cache.Type = CacheTypeMemory
	}

	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
}
