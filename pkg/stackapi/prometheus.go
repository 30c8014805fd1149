package stackapi

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics exports request counts and latencies per request pattern.
type PrometheusMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the collectors with registerer.
func NewPrometheusMetrics(registerer prometheus.Registerer) (*PrometheusMetrics, error) {
	metrics := &PrometheusMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stackapi_requests_total",
			Help: "Total number of API requests sent",
		}, []string{"method", "pattern", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stackapi_request_duration_seconds",
			Help:    "Time taken by API requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "pattern"}),
	}

	for _, collector := range []prometheus.Collector{metrics.requests, metrics.duration} {
		err := registerer.Register(collector)
		if err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return metrics, nil
}

// Requests returns the request counter.
func (m *PrometheusMetrics) Requests() *prometheus.CounterVec {
	return m.requests
}

// Install adds the metrics interceptors to chain.
func (m *PrometheusMetrics) Install(chain *InterceptorChain) {
	chain.AddRequestInterceptor(MetricsRequestInterceptor(nil))
	chain.AddResponseInterceptor(m.responseInterceptor())
}

func (m *PrometheusMetrics) responseInterceptor() ResponseInterceptor {
	return func(ctx context.Context, req *HTTPRequest, resp *HTTPResponse) error {
		pattern, _ := req.Metadata[MetadataPattern].(string)

		code := "error"
		if resp.Error == nil {
			code = strconv.Itoa(resp.StatusCode)
		}

		m.requests.WithLabelValues(req.Method, pattern, code).Inc()

		if startTime, ok := req.Metadata[MetadataStartTime].(time.Time); ok {
			m.duration.WithLabelValues(req.Method, pattern).Observe(time.Since(startTime).Seconds())
		}

		return nil
	}
}
