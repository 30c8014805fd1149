package stackapi_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/fivetwenty-io/stackapi/pkg/stackapi"
	"github.com/stretchr/testify/require"
)

// fakeTransport answers requests from a handler and records what it was sent.
type fakeTransport struct {
	mu       sync.Mutex
	requests []*stackapi.HTTPRequest
	handler  func(req *stackapi.HTTPRequest) (*stackapi.HTTPResponse, error)
}

func (f *fakeTransport) Do(_ context.Context, req *stackapi.HTTPRequest) (*stackapi.HTTPResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	return f.handler(req)
}

func (f *fakeTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.requests)
}

func (f *fakeTransport) Last() *stackapi.HTTPRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.requests) == 0 {
		return nil
	}

	return f.requests[len(f.requests)-1]
}

func replyWith(status int, body string) *fakeTransport {
	return &fakeTransport{
		handler: func(*stackapi.HTTPRequest) (*stackapi.HTTPResponse, error) {
			return &stackapi.HTTPResponse{StatusCode: status, Headers: http.Header{}, Body: []byte(body)}, nil
		},
	}
}

func newTestClient(t *testing.T, transport stackapi.Transport, opts ...stackapi.ClientOption) *stackapi.Client {
	t.Helper()

	client, err := stackapi.NewClient(transport, opts...)
	require.NoError(t, err)

	return client
}

// recordingLogger keeps every message it receives.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, level+": "+msg)
}

func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) { l.record("debug", msg) }
func (l *recordingLogger) Info(msg string, _ map[string]interface{})  { l.record("info", msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.record("warn", msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.record("error", msg) }

func (l *recordingLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.messages...)
}

// failingCache fails every operation.
type failingCache struct{}

var errCacheDown = errors.New("cache down")

func (failingCache) Get(context.Context, string) (*stackapi.CacheEntry, error) { return nil, errCacheDown }
func (failingCache) Put(context.Context, string, []byte, time.Duration) error  { return errCacheDown }
func (failingCache) Delete(context.Context, string) error                      { return errCacheDown }
func (failingCache) Purge(context.Context, bool) error                         { return errCacheDown }
func (failingCache) Has(context.Context, string) bool                          { return false }
