package stackapi

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/fivetwenty-io/stackapi/internal/constants"
)

// PathComponent is one segment of a request path. Variable components hold
// identifiers and are replaced by "*" in the request pattern.
type PathComponent struct {
	Name     string
	Variable bool
}

// Descriptor describes a single API request. It is an immutable value: every
// method returns a modified copy and leaves the receiver untouched, so chains
// can branch freely.
type Descriptor struct {
	endpoint   string
	scheme     string
	method     string
	components []PathComponent
	params     map[string]string
	filters    map[string]*Filter
	ttl        time.Duration
}

// NewDescriptor creates a GET descriptor carrying the API key and filter.
func NewDescriptor(key, filter string) Descriptor {
	if filter == "" {
		filter = constants.DefaultFilter
	}

	return Descriptor{
		endpoint: constants.APIEndpoint,
		scheme:   constants.SchemeHTTP,
		method:   http.MethodGet,
		params: map[string]string{
			"key":    key,
			"filter": filter,
		},
		ttl: constants.DefaultTTL,
	}
}

func (d Descriptor) clone() Descriptor {
	d.components = slices.Clone(d.components)
	d.params = maps.Clone(d.params)
	d.filters = maps.Clone(d.filters)

	if d.params == nil {
		d.params = map[string]string{}
	}

	return d
}

// AddPathComponent appends a path segment.
func (d Descriptor) AddPathComponent(name string, variable bool) Descriptor {
	next := d.clone()
	next.components = append(next.components, PathComponent{Name: name, Variable: variable})

	return next
}

// WithParameter sets a parameter, replacing any previous value. Setting
// access_token switches the request to https.
func (d Descriptor) WithParameter(name, value string) Descriptor {
	next := d.clone()
	next.params[name] = value
	delete(next.filters, name)

	if name == accessTokenParameter {
		next.scheme = constants.SchemeHTTPS
	}

	return next
}

// WithFilter sets a parameter whose value is the identifier of a Filter. The
// filter is created on the server, if needed, when the request is executed.
func (d Descriptor) WithFilter(name string, filter *Filter) Descriptor {
	next := d.clone()
	delete(next.params, name)

	if next.filters == nil {
		next.filters = map[string]*Filter{}
	}

	next.filters[name] = filter

	return next
}

// ForcePost switches the request to POST and disables caching for good.
func (d Descriptor) ForcePost() Descriptor {
	next := d.clone()
	next.method = http.MethodPost
	next.ttl = 0

	return next
}

// WithTTL sets how long the response is cached. POST requests are never cached.
func (d Descriptor) WithTTL(ttl time.Duration) Descriptor {
	next := d.clone()
	if next.method == http.MethodPost {
		return next
	}

	next.ttl = max(ttl, 0)

	return next
}

// Secure switches the request to https.
func (d Descriptor) Secure() Descriptor {
	next := d.clone()
	next.scheme = constants.SchemeHTTPS

	return next
}

// WithEndpoint replaces the host and version prefix requests are sent to.
func (d Descriptor) WithEndpoint(endpoint string) Descriptor {
	next := d.clone()
	next.endpoint = strings.Trim(endpoint, "/")

	return next
}

// Method returns the HTTP verb.
func (d Descriptor) Method() string {
	if d.method == "" {
		return http.MethodGet
	}

	return d.method
}

// TTL returns the cache lifetime of the response.
func (d Descriptor) TTL() time.Duration {
	return d.ttl
}

// Scheme returns http or https.
func (d Descriptor) Scheme() string {
	if d.scheme == "" {
		return constants.SchemeHTTP
	}

	return d.scheme
}

// Components returns a copy of the path components.
func (d Descriptor) Components() []PathComponent {
	return slices.Clone(d.components)
}

// Path returns the escaped request path.
func (d Descriptor) Path() string {
	parts := make([]string, len(d.components))
	for index, component := range d.components {
		parts[index] = escapeComponent(component.Name)
	}

	return strings.Join(parts, "/")
}

// Pattern returns the path with every variable component replaced by "*".
func (d Descriptor) Pattern() string {
	parts := make([]string, len(d.components))
	for index, component := range d.components {
		if component.Variable {
			parts[index] = "*"
		} else {
			parts[index] = component.Name
		}
	}

	return strings.Join(parts, "/")
}

// Parameters returns every parameter sent with the request. key and filter
// are always present.
func (d Descriptor) Parameters() url.Values {
	values := url.Values{}
	for name, value := range d.params {
		values.Set(name, value)
	}

	for name, filter := range d.filters {
		values.Set(name, filter.ID())
	}

	if !values.Has("key") {
		values.Set("key", "")
	}

	if !values.Has("filter") {
		values.Set("filter", constants.DefaultFilter)
	}

	return values
}

// Form returns the POST body.
func (d Descriptor) Form() url.Values {
	return d.Parameters()
}

// Render returns the canonical request URL. The query string is only present
// for GET requests and is sorted by parameter name.
func (d Descriptor) Render() string {
	endpoint := d.endpoint
	if endpoint == "" {
		endpoint = constants.APIEndpoint
	}

	rendered := fmt.Sprintf("%s://%s/%s", d.Scheme(), endpoint, d.Path())
	if d.Method() == http.MethodGet {
		rendered += "?" + d.Parameters().Encode()
	}

	return rendered
}

// String implements fmt.Stringer.
func (d Descriptor) String() string {
	return fmt.Sprintf("<%s request for '%s'>", d.Method(), d.Path())
}

func (d Descriptor) resolveFilters(ctx context.Context) error {
	for _, name := range slices.Sorted(maps.Keys(d.filters)) {
		_, err := d.filters[name].Resolve(ctx)
		if err != nil {
			return fmt.Errorf("failed to create filter for %s: %w", name, err)
		}
	}

	return nil
}

// escapeComponent percent-encodes everything but unreserved characters,
// including "/" and ";".
func escapeComponent(name string) string {
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}
