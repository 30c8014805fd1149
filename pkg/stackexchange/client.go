package stackexchange

import (
	"context"
	"fmt"
	"strings"

	apihttp "github.com/fivetwenty-io/stackapi/internal/http"
	"github.com/fivetwenty-io/stackapi/pkg/stackapi"
)

// New creates an API from config. A nil config uses the defaults.
func New(ctx context.Context, config *stackapi.Config) (*stackapi.API, error) {
	if config == nil {
		config = stackapi.DefaultConfig()
	}

	config.Normalize()
	config.Endpoint = normalizeEndpoint(config.Endpoint)

	cache, err := stackapi.NewCacheFromConfig(ctx, &config.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	transport := apihttp.NewClient(
		apihttp.WithLogger(config.Logger),
		apihttp.WithDebug(config.Debug),
		apihttp.WithUserAgent(config.UserAgent),
		apihttp.WithTimeout(config.HTTPTimeout),
		apihttp.WithRetryConfig(config.RetryMax, config.RetryWaitMin, config.RetryWaitMax),
	)

	client, err := stackapi.NewClient(transport,
		stackapi.WithCache(cache),
		stackapi.WithLogger(config.Logger),
		stackapi.WithKey(config.Key),
		stackapi.WithDefaultFilter(config.DefaultFilter),
		stackapi.WithDefaultTTL(config.DefaultTTL),
		stackapi.WithEndpoint(config.Endpoint),
		stackapi.WithInterceptors(buildInterceptors(config)),
		stackapi.WithOAuthCredentials(config.ClientID, config.ClientSecret),
		stackapi.WithOAuthHTTPClient(transport.StandardClient()),
	)
	if err != nil {
		_ = stackapi.CloseCache(cache)

		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return stackapi.NewAPI(client), nil
}

// NewFromEnv creates an API configured from STACKAPI_* environment variables.
func NewFromEnv(ctx context.Context) (*stackapi.API, error) {
	config, err := stackapi.ConfigFromEnv()
	if err != nil {
		return nil, err
	}

	return New(ctx, config)
}

// NewWithKey creates an API with an application key and otherwise default settings.
func NewWithKey(ctx context.Context, key string) (*stackapi.API, error) {
	config := stackapi.DefaultConfig()
	config.Key = key

	return New(ctx, config)
}

func buildInterceptors(config *stackapi.Config) *stackapi.InterceptorChain {
	chain := stackapi.NewInterceptorChain()
	chain.AddRequestInterceptor(stackapi.RequestIDInterceptor())

	if config.RateLimit > 0 {
		chain.AddRequestInterceptor(stackapi.RateLimitInterceptor(config.RateLimit))
	}

	if config.Debug {
		chain.AddRequestInterceptor(stackapi.LoggingInterceptor(config.Logger))
		chain.AddResponseInterceptor(stackapi.LoggingResponseInterceptor(config.Logger))
	}

	for _, setup := range config.Interceptors {
		setup(chain)
	}

	return chain
}

// normalizeEndpoint strips the scheme and trailing slash; the scheme is
// chosen per request.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	return strings.TrimSuffix(endpoint, "/")
}
