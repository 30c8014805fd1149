package stackapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fivetwenty-io/stackapi/internal/auth"
	"github.com/fivetwenty-io/stackapi/internal/constants"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/fivetwenty-io/stackapi/pkg/stackapi"

// Transport sends a single request to the API and returns the raw reply.
//
// A non-nil error means no usable reply was received. Replies with 4xx or 5xx
// status codes are returned without error so their bodies can be decoded.
type Transport interface {
	Do(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)
}

// OAuthEndpoints overrides the StackExchange OAuth URLs.
type OAuthEndpoints struct {
	AuthURL   string
	DialogURL string
	TokenURL  string
}

// Client executes descriptors: it consults the cache, sends requests through
// the interceptor chain and the transport, and decodes replies.
type Client struct {
	transport     Transport
	cache         Cache
	logger        Logger
	key           string
	defaultFilter string
	defaultTTL    time.Duration
	endpoint      string
	interceptors  *InterceptorChain

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	cacheLookups   metric.Int64Counter

	clientID       string
	clientSecret   string
	oauthEndpoints OAuthEndpoints
	oauthHTTP      *http.Client
	oauth          *auth.Flow
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCache sets the response cache. The default is an in-memory cache.
func WithCache(cache Cache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithKey sets the application key sent with every request.
func WithKey(key string) ClientOption {
	return func(c *Client) {
		c.key = key
	}
}

// WithDefaultFilter sets the filter used by requests that do not set one.
func WithDefaultFilter(filter string) ClientOption {
	return func(c *Client) {
		c.defaultFilter = filter
	}
}

// WithDefaultTTL sets how long GET responses are cached.
func WithDefaultTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.defaultTTL = ttl
	}
}

// WithEndpoint sets the API host and version prefix.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithInterceptors sets the interceptor chain run around every network call.
func WithInterceptors(chain *InterceptorChain) ClientOption {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithTracerProvider sets the provider of the tracer wrapping each execution.
func WithTracerProvider(provider trace.TracerProvider) ClientOption {
	return func(c *Client) {
		c.tracerProvider = provider
	}
}

// WithMeterProvider sets the provider of the cache lookup counter.
func WithMeterProvider(provider metric.MeterProvider) ClientOption {
	return func(c *Client) {
		c.meterProvider = provider
	}
}

// WithOAuthCredentials sets the application credentials used by the OAuth flows.
func WithOAuthCredentials(clientID, clientSecret string) ClientOption {
	return func(c *Client) {
		c.clientID = clientID
		c.clientSecret = clientSecret
	}
}

// WithOAuthHTTPClient sets the HTTP client used for the code exchange.
func WithOAuthHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.oauthHTTP = client
	}
}

// WithOAuthEndpoints replaces the OAuth URLs. Empty fields keep their defaults.
func WithOAuthEndpoints(endpoints OAuthEndpoints) ClientOption {
	return func(c *Client) {
		c.oauthEndpoints = endpoints
	}
}

// NewClient creates a client sending requests through transport.
func NewClient(transport Transport, opts ...ClientOption) (*Client, error) {
	if transport == nil {
		return nil, ErrTransportRequired
	}

	client := &Client{
		transport:     transport,
		defaultFilter: constants.DefaultFilter,
		defaultTTL:    constants.DefaultTTL,
		endpoint:      constants.APIEndpoint,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.cache == nil {
		client.cache = NewMemoryCache(constants.DefaultCacheSize)
	}

	if client.logger == nil {
		client.logger = NopLogger{}
	}

	if client.interceptors == nil {
		client.interceptors = NewInterceptorChain()
	}

	if client.tracerProvider == nil {
		client.tracerProvider = otel.GetTracerProvider()
	}

	if client.meterProvider == nil {
		client.meterProvider = otel.GetMeterProvider()
	}

	client.tracer = client.tracerProvider.Tracer(instrumentationName)

	counter, err := client.meterProvider.Meter(instrumentationName).Int64Counter(
		"stackapi.cache.lookups",
		metric.WithDescription("Response cache lookups by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache lookup counter: %w", err)
	}

	client.cacheLookups = counter

	client.oauth = auth.NewFlow(auth.Config{
		ClientID:     client.clientID,
		ClientSecret: client.clientSecret,
		Endpoints: auth.Endpoints{
			AuthURL:   client.oauthEndpoints.AuthURL,
			DialogURL: client.oauthEndpoints.DialogURL,
			TokenURL:  client.oauthEndpoints.TokenURL,
		},
		HTTPClient: client.oauthHTTP,
	})

	return client, nil
}

// NewDescriptor returns a descriptor carrying the client's key, default
// filter, TTL and endpoint, and the site parameter when site is not empty.
func (c *Client) NewDescriptor(site string) Descriptor {
	desc := NewDescriptor(c.key, c.defaultFilter).
		WithEndpoint(c.endpoint).
		WithTTL(c.defaultTTL)

	if site != "" {
		desc = desc.WithParameter("site", site)
	}

	return desc
}

// Cache returns the response cache.
func (c *Client) Cache() Cache {
	return c.cache
}

// Logger returns the logger.
func (c *Client) Logger() Logger {
	return c.logger
}

// PurgeCache removes expired cached responses, or all of them when all is true.
func (c *Client) PurgeCache(ctx context.Context, all bool) error {
	err := c.cache.Purge(ctx, all)
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	return nil
}

// Close releases the cache.
func (c *Client) Close() error {
	return CloseCache(c.cache)
}

// Execute performs the request described by desc and returns the decoded
// reply. When requireNonEmpty is set a reply without items is an error.
func (c *Client) Execute(ctx context.Context, desc Descriptor, requireNonEmpty bool) (map[string]any, error) {
	ctx, span := c.tracer.Start(ctx, "stackapi.Execute", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("stackapi.pattern", desc.Pattern()),
		attribute.String("http.request.method", desc.Method()),
	)

	data, err := c.execute(ctx, span, desc, requireNonEmpty)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetStatus(codes.Ok, "")

	return data, nil
}

func (c *Client) execute(ctx context.Context, span trace.Span, desc Descriptor, requireNonEmpty bool) (map[string]any, error) {
	err := desc.resolveFilters(ctx)
	if err != nil {
		return nil, err
	}

	rendered := desc.Render()
	cacheable := desc.TTL() > 0

	if cacheable {
		entry, err := c.cache.Get(ctx, rendered)

		hit := err == nil
		span.SetAttributes(attribute.Bool("stackapi.cache_hit", hit))
		c.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", hit)))

		if err != nil && !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("cache lookup failed", map[string]interface{}{
				"url":   rendered,
				"error": err.Error(),
			})
		}

		if hit {
			c.logger.Debug("cache hit", map[string]interface{}{"url": rendered})

			data, err := parsePayload(entry.Payload)
			if err != nil {
				return nil, err
			}

			return checkNonEmpty(data, requireNonEmpty)
		}
	}

	body, err := c.send(ctx, desc, rendered)
	if err != nil {
		return nil, err
	}

	data, err := parsePayload(body)
	if err != nil {
		return nil, err
	}

	if cacheable {
		err = c.cache.Put(ctx, rendered, body, desc.TTL())
		if err != nil {
			c.logger.Warn("cache write failed", map[string]interface{}{
				"url":   rendered,
				"error": err.Error(),
			})
		}
	}

	return checkNonEmpty(data, requireNonEmpty)
}

func (c *Client) send(ctx context.Context, desc Descriptor, rendered string) ([]byte, error) {
	req := &HTTPRequest{
		Method:  desc.Method(),
		URL:     rendered,
		Headers: make(http.Header),
		Metadata: map[string]interface{}{
			MetadataPattern: desc.Pattern(),
		},
	}

	if req.Method == http.MethodPost {
		req.Form = desc.Form()
	}

	err := c.interceptors.ExecuteRequestInterceptors(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.Do(ctx, req)
	if resp == nil {
		resp = &HTTPResponse{Error: err}
	}

	if resp.Error == nil {
		resp.Error = err
	}

	interceptErr := c.interceptors.ExecuteResponseInterceptors(ctx, req, resp)

	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", desc.Pattern(), err)
	}

	if interceptErr != nil {
		return nil, interceptErr
	}

	return resp.Body, nil
}

// parsePayload decodes a reply body and turns error envelopes into *APIError.
func parsePayload(body []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var raw any

	err := decoder.Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	data, ok := normalizeNumbers(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: reply is not an object", ErrMalformedResponse)
	}

	if errorID, found := data["error_id"]; found {
		id, _ := toInt64(errorID)

		apiErr := &APIError{ID: int(id), Message: "unknown error"}
		if name, ok := data["error_name"].(string); ok {
			apiErr.Name = name
		}

		if message, ok := data["error_message"].(string); ok {
			apiErr.Message = message
		}

		return nil, apiErr
	}

	if _, ok := data["items"].([]any); !ok {
		return nil, fmt.Errorf("%w: \"items\" missing from API response", ErrMalformedResponse)
	}

	return data, nil
}

func checkNonEmpty(data map[string]any, requireNonEmpty bool) (map[string]any, error) {
	if items, _ := data["items"].([]any); requireNonEmpty && len(items) == 0 {
		return nil, ErrEmptyResult
	}

	return data, nil
}

// normalizeNumbers converts json.Number values to int64 when integral and
// float64 otherwise.
func normalizeNumbers(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, element := range typed {
			typed[key] = normalizeNumbers(element)
		}

		return typed
	case []any:
		for index, element := range typed {
			typed[index] = normalizeNumbers(element)
		}

		return typed
	case json.Number:
		if integer, err := typed.Int64(); err == nil {
			return integer
		}

		float, err := typed.Float64()
		if err != nil {
			return typed.String()
		}

		return float
	default:
		return value
	}
}
