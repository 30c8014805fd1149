package stackapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/stackapi/internal/constants"
)

// Request is one node of a request chain. Every builder method returns a new
// node; the receiver is never modified, so a partial chain can be reused as a
// prefix for several requests.
//
// The reply is fetched on the first observation (Resolve, Items, Len, Index,
// First or Field) and reused afterwards. A failed fetch is not remembered.
type Request struct {
	client *Client
	desc   Descriptor

	mu       sync.Mutex
	response *Response
}

// NewRequest starts a chain from desc.
func NewRequest(client *Client, desc Descriptor) *Request {
	return &Request{client: client, desc: desc}
}

func (r *Request) derive(desc Descriptor) *Request {
	return &Request{client: r.client, desc: desc}
}

// Descriptor returns the request description.
func (r *Request) Descriptor() Descriptor {
	return r.desc
}

// URL returns the URL the request is sent to.
func (r *Request) URL() string {
	return r.desc.Render()
}

// Pattern returns the request path with identifiers replaced by "*".
func (r *Request) Pattern() string {
	return r.desc.Pattern()
}

// String implements fmt.Stringer.
func (r *Request) String() string {
	return r.desc.String()
}

// Method appends a method component. Underscores in token become dashes.
// Methods that modify data switch the request to POST.
func (r *Request) Method(token string) (*Request, error) {
	name := normalizeToken(token)
	if !chainMethods.contains(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, token)
	}

	desc := r.desc.AddPathComponent(name, false)
	if postMethods.contains(name) {
		desc = desc.ForcePost()
	}

	return r.derive(desc), nil
}

// Param sets a query parameter. Multiple values are joined with ";", items
// contribute their identifier and a *Filter is created on the server when
// the request is sent.
func (r *Request) Param(name string, values ...any) *Request {
	name = normalizeToken(name)

	if len(values) == 1 {
		if filter, ok := values[0].(*Filter); ok {
			return r.derive(r.desc.WithFilter(name, filter))
		}
	}

	return r.derive(r.desc.WithParameter(name, joinValues(values)))
}

// IDs appends a component holding one or more identifiers.
func (r *Request) IDs(values ...any) *Request {
	return r.derive(r.desc.AddPathComponent(joinValues(values), true))
}

// Select extends the chain with a method when token names one, optionally
// followed by identifiers, or with a parameter otherwise.
func (r *Request) Select(token string, args ...any) (*Request, error) {
	if chainMethods.contains(normalizeToken(token)) {
		next, err := r.Method(token)
		if err != nil {
			return nil, err
		}

		if len(args) > 0 {
			next = next.IDs(args...)
		}

		return next, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingValue, token)
	}

	return r.Param(token, args...), nil
}

// Filter sets the filter by identifier or *Filter.
func (r *Request) Filter(filter any) *Request {
	return r.Param("filter", filter)
}

// Page selects a page of results, starting at 1.
func (r *Request) Page(page int) *Request {
	return r.Param("page", page)
}

// PageSize sets the number of items per page.
func (r *Request) PageSize(size int) *Request {
	return r.Param("pagesize", size)
}

// Sort sets the sort order field, e.g. "votes".
func (r *Request) Sort(field string) *Request {
	return r.Param("sort", field)
}

// Order sets "asc" or "desc".
func (r *Request) Order(order string) *Request {
	return r.Param("order", order)
}

// AccessToken authenticates the request and switches it to https.
func (r *Request) AccessToken(token string) *Request {
	return r.Param(accessTokenParameter, token)
}

// WithTTL sets how long the reply is cached. It has no effect on POST requests.
func (r *Request) WithTTL(ttl time.Duration) *Request {
	return r.derive(r.desc.WithTTL(ttl))
}

// NextPage returns the request for the page after this one.
func (r *Request) NextPage() *Request {
	page := 1

	if value, ok := r.desc.params["page"]; ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			page = parsed
		}
	}

	return r.Page(page + 1)
}

// Resolve fetches the reply, or returns the one fetched earlier.
func (r *Request) Resolve(ctx context.Context) (*Response, error) {
	return r.resolve(ctx, false)
}

func (r *Request) resolve(ctx context.Context, requireNonEmpty bool) (*Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.response != nil {
		if requireNonEmpty && len(r.response.Items) == 0 {
			return nil, ErrEmptyResult
		}

		return r.response, nil
	}

	data, err := r.client.Execute(ctx, r.desc, requireNonEmpty)
	if err != nil {
		return nil, err
	}

	r.response = newResponse(r.client, r.desc.Pattern(), data)

	return r.response, nil
}

// Items returns the items of the reply.
func (r *Request) Items(ctx context.Context) ([]*Item, error) {
	response, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	return response.Items, nil
}

// Len returns the number of items in the reply.
func (r *Request) Len(ctx context.Context) (int, error) {
	response, err := r.Resolve(ctx)
	if err != nil {
		return 0, err
	}

	return response.Len(), nil
}

// Index returns item i of the reply.
func (r *Request) Index(ctx context.Context, i int) (*Item, error) {
	response, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	if i < 0 || i >= len(response.Items) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(response.Items))
	}

	return response.Items[i], nil
}

// First returns the first item, failing with ErrEmptyResult when there is none.
func (r *Request) First(ctx context.Context) (*Item, error) {
	response, err := r.resolve(ctx, true)
	if err != nil {
		return nil, err
	}

	return response.Items[0], nil
}

// Field returns a top-level field of the reply.
func (r *Request) Field(ctx context.Context, name string) (any, error) {
	response, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	return response.Field(name)
}

// joinValues serializes parameter values and identifier lists.
func joinValues(values []any) string {
	parts := make([]string, 0, len(values))

	for _, value := range values {
		switch typed := value.(type) {
		case []string:
			parts = append(parts, typed...)
		case []int:
			for _, element := range typed {
				parts = append(parts, strconv.Itoa(element))
			}
		case []int64:
			for _, element := range typed {
				parts = append(parts, strconv.FormatInt(element, 10))
			}
		case []any:
			parts = append(parts, joinValues(typed))
		case []*Item:
			for _, element := range typed {
				parts = append(parts, stringify(element))
			}
		default:
			parts = append(parts, stringify(value))
		}
	}

	return strings.Join(parts, constants.IDSeparator)
}
