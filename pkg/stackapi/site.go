package stackapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/fivetwenty-io/stackapi/internal/constants"
)

// Site is the entry point to the methods of one site. Every request it
// starts carries the site parameter.
type Site struct {
	client *Client
	domain string

	mu   sync.Mutex
	info *Item
}

// NewSite returns the facade for the site with the given API parameter.
func NewSite(client *Client, domain string) *Site {
	return &Site{client: client, domain: domain}
}

func newSiteFromItem(client *Client, item *Item) *Site {
	domain, _ := item.GetString("api_site_parameter")

	return &Site{client: client, domain: domain, info: item}
}

// Domain returns the API site parameter.
func (s *Site) Domain() string {
	return s.domain
}

// Method starts a request for a site method. "suggested_edits" is accepted
// for "suggested-edits". Identifiers, if any, follow the method.
func (s *Site) Method(name string, ids ...any) (*Request, error) {
	method := normalizeToken(name)
	if !siteMethods.contains(method) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}

	return s.request(method, ids), nil
}

func (s *Site) request(method string, ids []any) *Request {
	req := NewRequest(s.client, s.client.NewDescriptor(s.domain).AddPathComponent(method, false))
	if len(ids) > 0 {
		req = req.IDs(ids...)
	}

	return req
}

// Answers reads answers.
func (s *Site) Answers(ids ...any) *Request { return s.request("answers", ids) }

// Badges reads badges.
func (s *Site) Badges(ids ...any) *Request { return s.request("badges", ids) }

// Comments reads comments.
func (s *Site) Comments(ids ...any) *Request { return s.request("comments", ids) }

// Events reads recent site events. Requires an access token.
func (s *Site) Events() *Request { return s.request("events", nil) }

// Info reads the site statistics.
func (s *Site) Info() *Request { return s.request("info", nil) }

// Posts reads posts of any type.
func (s *Site) Posts(ids ...any) *Request { return s.request("posts", ids) }

// Privileges lists the site privileges.
func (s *Site) Privileges() *Request { return s.request("privileges", nil) }

// Questions reads questions.
func (s *Site) Questions(ids ...any) *Request { return s.request("questions", ids) }

// Revisions reads post revisions by revision id.
func (s *Site) Revisions(ids ...any) *Request { return s.request("revisions", ids) }

// Search searches questions.
func (s *Site) Search() *Request { return s.request("search", nil) }

// Similar finds questions similar to a title.
func (s *Site) Similar() *Request { return s.request("similar", nil) }

// SuggestedEdits reads suggested edits.
func (s *Site) SuggestedEdits(ids ...any) *Request { return s.request("suggested-edits", ids) }

// Tags reads tags.
func (s *Site) Tags() *Request { return s.request("tags", nil) }

// Users reads users.
func (s *Site) Users(ids ...any) *Request { return s.request("users", ids) }

// Details returns the site object, fetching it through /info unless it came
// from a /sites reply.
func (s *Site) Details(ctx context.Context) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.info != nil {
		return s.info, nil
	}

	first, err := s.Info().Filter(constants.SiteInfoFilter).First(ctx)
	if err != nil {
		return nil, err
	}

	value, err := first.Get("site")
	if err != nil {
		return nil, err
	}

	site, ok := value.(*Item)
	if !ok {
		return nil, fmt.Errorf("%w: site is %T", ErrUnexpectedFieldType, value)
	}

	s.info = site

	return site, nil
}

// Get returns a field of the site object.
func (s *Site) Get(ctx context.Context, field string) (any, error) {
	details, err := s.Details(ctx)
	if err != nil {
		return nil, err
	}

	return details.Get(field)
}

// Name returns the human readable site name.
func (s *Site) Name(ctx context.Context) (string, error) {
	details, err := s.Details(ctx)
	if err != nil {
		return "", err
	}

	return details.GetString("name")
}

// String implements fmt.Stringer. It never fetches.
func (s *Site) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.info != nil {
		if name, err := s.info.GetString("name"); err == nil {
			return fmt.Sprintf("<Site '%s'>", name)
		}
	}

	return "<Site>"
}
