package stackapi_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fivetwenty-io/stackapi/pkg/stackapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() *stackapi.HTTPRequest {
	return &stackapi.HTTPRequest{
		Method:   http.MethodGet,
		URL:      "http://api.stackexchange.com/2.1/users?filter=default&key=&site=stackoverflow",
		Metadata: map[string]interface{}{stackapi.MetadataPattern: "users"},
	}
}

func TestInterceptorChain_RequestInterceptors(t *testing.T) {
	t.Parallel()

	chain := stackapi.NewInterceptorChain()
	ctx := context.Background()

	var executionOrder []string

	// Add multiple interceptors
	chain.AddRequestInterceptor(func(ctx context.Context, req *stackapi.HTTPRequest) error {
		executionOrder = append(executionOrder, "first")

		return nil
	})

	chain.AddRequestInterceptor(func(ctx context.Context, req *stackapi.HTTPRequest) error {
		executionOrder = append(executionOrder, "second")

		return nil
	})

	err := chain.ExecuteRequestInterceptors(ctx, testRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, executionOrder)
}

func TestInterceptorChain_ResponseInterceptors(t *testing.T) {
	t.Parallel()

	chain := stackapi.NewInterceptorChain()
	ctx := context.Background()

	var executionOrder []string

	// Add multiple interceptors
	chain.AddResponseInterceptor(func(ctx context.Context, req *stackapi.HTTPRequest, resp *stackapi.HTTPResponse) error {
		executionOrder = append(executionOrder, "first")

		return nil
	})

	chain.AddResponseInterceptor(func(ctx context.Context, req *stackapi.HTTPRequest, resp *stackapi.HTTPResponse) error {
		executionOrder = append(executionOrder, "second")

		return errors.New("stop")
	})

	err := chain.ExecuteResponseInterceptors(ctx, testRequest(), &stackapi.HTTPResponse{StatusCode: http.StatusOK})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "response interceptor failed")

	assert.Equal(t, []string{"first", "second"}, executionOrder)
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	headers := map[string]string{
		"X-Custom-Header": "custom-value",
		"X-Trace":         "123456",
	}

	interceptor := stackapi.HeaderInterceptor(headers)
	req := testRequest()

	err := interceptor(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "custom-value", req.Headers.Get("X-Custom-Header"))
	assert.Equal(t, "123456", req.Headers.Get("X-Trace"))
}

func TestRequestIDInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := stackapi.RequestIDInterceptor()
	first, second := testRequest(), testRequest()

	require.NoError(t, interceptor(context.Background(), first))
	require.NoError(t, interceptor(context.Background(), second))

	assert.Len(t, first.Headers.Get("X-Request-Id"), 36)
	assert.Equal(t, first.Headers.Get("X-Request-Id"), first.Metadata[stackapi.MetadataRequestID])
	assert.NotEqual(t, first.Headers.Get("X-Request-Id"), second.Headers.Get("X-Request-Id"))
}

func TestRateLimitInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := stackapi.RateLimitInterceptor(1)

	require.NoError(t, interceptor(context.Background(), testRequest()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := interceptor(ctx, testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	ctx := context.Background()
	req := testRequest()

	require.NoError(t, stackapi.LoggingInterceptor(logger)(ctx, req))
	require.NoError(t, stackapi.LoggingResponseInterceptor(logger)(ctx, req, &stackapi.HTTPResponse{StatusCode: http.StatusOK}))
	require.NoError(t, stackapi.LoggingResponseInterceptor(logger)(ctx, req, &stackapi.HTTPResponse{Error: errors.New("reset")}))

	assert.Equal(t, []string{"debug: API Request", "debug: API Response", "error: API Response Error"}, logger.Messages())
}

func TestMetricsCollector(t *testing.T) {
	t.Parallel()

	collector := stackapi.NewMetricsCollector()

	var (
		notifiedEndpoint string
		notifiedMetrics  stackapi.Metrics
	)

	collector.SetOnChange(func(endpoint string, metrics stackapi.Metrics) {
		notifiedEndpoint = endpoint
		notifiedMetrics = metrics
	})

	// Set up interceptors
	requestInterceptor := stackapi.MetricsRequestInterceptor(collector)
	responseInterceptor := stackapi.MetricsResponseInterceptor(collector)

	ctx := context.Background()
	req := testRequest()

	// Execute request interceptor
	err := requestInterceptor(ctx, req)
	require.NoError(t, err)

	// Simulate some delay
	time.Sleep(10 * time.Millisecond)

	// Execute response interceptor with success
	err = responseInterceptor(ctx, req, &stackapi.HTTPResponse{StatusCode: http.StatusOK})
	require.NoError(t, err)

	// Check metrics
	assert.Equal(t, "GET users", notifiedEndpoint)
	assert.Equal(t, int64(1), notifiedMetrics.TotalRequests)
	assert.Equal(t, int64(0), notifiedMetrics.TotalErrors)
	assert.Positive(t, notifiedMetrics.AverageLatency)

	// A second request without a start time still counts
	err = responseInterceptor(ctx, testRequest(), &stackapi.HTTPResponse{StatusCode: http.StatusBadGateway})
	require.NoError(t, err)

	// Check updated metrics
	metrics, ok := collector.GetMetrics("GET users")
	require.True(t, ok)
	assert.Equal(t, int64(2), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.TotalErrors)

	_, ok = collector.GetMetrics("POST users")
	assert.False(t, ok)
}

func TestCircuitBreaker(t *testing.T) {
	t.Parallel()

	config := &stackapi.CircuitBreakerConfig{
		Threshold:        2,
		Timeout:          100 * time.Millisecond,
		SuccessThreshold: 1,
	}
	breaker := stackapi.NewCircuitBreaker(config)

	requestInterceptor := stackapi.CircuitBreakerRequestInterceptor(breaker)
	responseInterceptor := stackapi.CircuitBreakerResponseInterceptor(breaker)

	ctx := context.Background()
	req := testRequest()

	// Circuit should be closed initially
	err := requestInterceptor(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "closed", breaker.State())

	// Simulate failures
	for range 2 {
		err = responseInterceptor(ctx, req, &stackapi.HTTPResponse{StatusCode: http.StatusServiceUnavailable})
		require.NoError(t, err)
	}

	// Circuit should be open now
	err = requestInterceptor(ctx, req)
	require.ErrorIs(t, err, stackapi.ErrCircuitBreakerOpen)
	assert.Equal(t, "open", breaker.State())

	// Wait for timeout
	time.Sleep(150 * time.Millisecond)

	// Circuit should be half-open now
	err = requestInterceptor(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "half-open", breaker.State())

	// Simulate success
	err = responseInterceptor(ctx, req, &stackapi.HTTPResponse{StatusCode: http.StatusOK})
	require.NoError(t, err)

	// Circuit should be closed again
	err = requestInterceptor(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "closed", breaker.State())
}

func TestPrometheusMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()

	metrics, err := stackapi.NewPrometheusMetrics(registry)
	require.NoError(t, err)

	_, err = stackapi.NewPrometheusMetrics(registry)
	require.Error(t, err)

	responses := []int{http.StatusOK, http.StatusOK, http.StatusBadRequest}
	calls := 0

	transport := &fakeTransport{handler: func(*stackapi.HTTPRequest) (*stackapi.HTTPResponse, error) {
		status := responses[calls]
		calls++

		body := `{"items":[]}`
		if status != http.StatusOK {
			body = `{"error_id":400}`
		}

		return &stackapi.HTTPResponse{StatusCode: status, Body: []byte(body)}, nil
	}}

	chain := stackapi.NewInterceptorChain()
	metrics.Install(chain)

	client := newTestClient(t, transport, stackapi.WithInterceptors(chain), stackapi.WithCache(stackapi.NewNoOpCache()))
	site := stackapi.NewSite(client, "stackoverflow")

	ctx := context.Background()

	_, err = site.Users().Resolve(ctx)
	require.NoError(t, err)

	_, err = site.Users().Resolve(ctx)
	require.NoError(t, err)

	_, err = site.Questions().Resolve(ctx)
	require.Error(t, err)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Requests().WithLabelValues("GET", "users", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Requests().WithLabelValues("GET", "questions", "400")), 0)

	expected := `
# HELP stackapi_requests_total Total number of API requests sent
# TYPE stackapi_requests_total counter
stackapi_requests_total{code="200",method="GET",pattern="users"} 2
stackapi_requests_total{code="400",method="GET",pattern="questions"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "stackapi_requests_total"))
	count, err := testutil.GatherAndCount(registry, "stackapi_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
