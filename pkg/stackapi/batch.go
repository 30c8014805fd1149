package stackapi

import (
	"context"
	"sync"
	"time"

	"github.com/fivetwenty-io/stackapi/internal/constants"
)

// BatchResult is the outcome of resolving one request of a batch.
type BatchResult struct {
	Index    int
	Request  *Request
	Response *Response
	Error    error
	Duration time.Duration
}

// BatchResolver resolves many requests concurrently.
type BatchResolver struct {
	concurrency int
	timeout     time.Duration
	callback    func(result BatchResult)
}

// NewBatchResolver creates a resolver running at most concurrency requests at once.
func NewBatchResolver(concurrency int) *BatchResolver {
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrencyLimit
	}

	return &BatchResolver{
		concurrency: concurrency,
		timeout:     constants.DefaultHTTPTimeout,
	}
}

// SetTimeout sets the timeout applied to each request.
func (b *BatchResolver) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// OnResult registers a function called as each request finishes.
func (b *BatchResolver) OnResult(fn func(result BatchResult)) {
	b.callback = fn
}

// Resolve resolves every request. Results are in the order of requests;
// failures are reported per result.
func (b *BatchResolver) Resolve(ctx context.Context, requests ...*Request) []BatchResult {
	results := make([]BatchResult, len(requests))

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for index, request := range requests {
		waitGroup.Add(1)

		go func(index int, request *Request) {
			defer waitGroup.Done()

			// Acquire semaphore
			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			reqCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			start := time.Now()
			response, err := request.Resolve(reqCtx)

			result := BatchResult{
				Index:    index,
				Request:  request,
				Response: response,
				Error:    err,
				Duration: time.Since(start),
			}
			results[index] = result

			if b.callback != nil {
				b.callback(result)
			}
		}(index, request)
	}

	waitGroup.Wait()

	return results
}
