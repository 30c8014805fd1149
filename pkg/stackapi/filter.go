package stackapi

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fivetwenty-io/stackapi/internal/constants"
)

// Filter controls which fields replies contain. Include and Exclude only
// record changes; the filter is created on the server the next time it is
// resolved, either explicitly or when a request using it is sent.
type Filter struct {
	client *Client

	mu       sync.Mutex
	id       string
	includes []string
	excludes []string
	dirty    bool
}

// NewFilter starts from the existing filter base, or the client default when
// base is empty.
func NewFilter(client *Client, base string) *Filter {
	if base == "" {
		base = client.defaultFilter
	}

	return &Filter{client: client, id: base}
}

// Include adds fields, e.g. "question.body".
func (f *Filter) Include(fields ...string) *Filter {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.includes = append(f.includes, fields...)
	f.dirty = true

	return f
}

// Exclude removes fields.
func (f *Filter) Exclude(fields ...string) *Filter {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.excludes = append(f.excludes, fields...)
	f.dirty = true

	return f
}

// Resolve creates the filter on the server if it has unsaved changes and
// returns its identifier.
func (f *Filter) Resolve(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.dirty {
		return f.id, nil
	}

	desc := f.client.NewDescriptor("").
		ForcePost().
		AddPathComponent("filters", false).
		AddPathComponent("create", false).
		WithParameter("base", f.id).
		WithParameter("include", strings.Join(f.includes, constants.IDSeparator)).
		WithParameter("exclude", strings.Join(f.excludes, constants.IDSeparator))

	data, err := f.client.Execute(ctx, desc, true)
	if err != nil {
		return "", err
	}

	items, _ := data["items"].([]any)

	first, _ := items[0].(map[string]any)

	id, ok := first["filter"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("%w: filter identifier missing from reply", ErrMalformedResponse)
	}

	f.id = id
	f.dirty = false

	return f.id, nil
}

// ID returns the identifier without creating the filter.
func (f *Filter) ID() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.id
}

// Dirty reports whether the filter has unsaved changes.
func (f *Filter) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.dirty
}

// String implements fmt.Stringer.
func (f *Filter) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dirty {
		return "<Filter [* dirty]>"
	}

	return fmt.Sprintf("<Filter '%s'>", f.id)
}
