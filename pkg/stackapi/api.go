package stackapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/fivetwenty-io/stackapi/internal/auth"
)

// API is the entry point to the network-wide methods, sites, filters and
// OAuth helpers.
type API struct {
	client *Client
}

// NewAPI wraps client.
func NewAPI(client *Client) *API {
	return &API{client: client}
}

// Client returns the underlying client.
func (a *API) Client() *Client {
	return a.client
}

// Method starts a request for a network-wide method. "access_tokens" is
// accepted for "access-tokens". Identifiers, if any, follow the method.
func (a *API) Method(name string, ids ...any) (*Request, error) {
	method := normalizeToken(name)
	if !networkMethods.contains(method) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}

	return a.request(method, ids), nil
}

func (a *API) request(method string, ids []any) *Request {
	req := NewRequest(a.client, a.client.NewDescriptor("").AddPathComponent(method, false))
	if len(ids) > 0 {
		req = req.IDs(ids...)
	}

	return req
}

// AccessTokens reads access tokens, e.g. AccessTokens(token).
func (a *API) AccessTokens(tokens ...any) *Request {
	return a.request("access-tokens", tokens)
}

// Apps is used to de-authenticate access tokens.
func (a *API) Apps(tokens ...any) *Request {
	return a.request("apps", tokens)
}

// Errors lists the API errors, or simulates the one given.
func (a *API) Errors(ids ...any) *Request {
	return a.request("errors", ids)
}

// Inbox reads the inbox of the authenticated user.
func (a *API) Inbox() *Request {
	return a.request("inbox", nil)
}

// Notifications reads the notifications of the authenticated user.
func (a *API) Notifications() *Request {
	return a.request("notifications", nil)
}

// Sites lists the network sites. The reply's Sites field holds them as *Site.
func (a *API) Sites() *Request {
	return a.request("sites", nil)
}

// Users reads network users by account id.
func (a *API) Users(ids ...any) *Request {
	return a.request("users", ids)
}

// Site returns the facade for the site with the given API parameter, e.g.
// "stackoverflow".
func (a *API) Site(domain string) *Site {
	return NewSite(a.client, domain)
}

// NewFilter starts a filter from base.
func (a *API) NewFilter(base string) *Filter {
	return NewFilter(a.client, base)
}

// BeginExplicit returns the URL the user is sent to for the authorization
// code flow. scope is a comma separated list.
func (a *API) BeginExplicit(scope, redirectURI, state string) (string, error) {
	if a.client.clientID == "" {
		return "", ErrClientIDRequired
	}

	return a.client.oauth.ExplicitURL(scope, redirectURI, state), nil
}

// BeginImplicit returns the URL the user is sent to for the implicit flow.
// The token comes back in the redirect fragment so there is no completion step.
func (a *API) BeginImplicit(scope, redirectURI, state string) (string, error) {
	if a.client.clientID == "" {
		return "", ErrClientIDRequired
	}

	return a.client.oauth.ImplicitURL(scope, redirectURI, state), nil
}

// CompleteExplicit exchanges the code returned to redirectURI for an access token.
func (a *API) CompleteExplicit(ctx context.Context, code, redirectURI string) (string, error) {
	if a.client.clientID == "" {
		return "", ErrClientIDRequired
	}

	if a.client.clientSecret == "" {
		return "", ErrClientSecretRequired
	}

	token, err := a.client.oauth.Exchange(ctx, code, redirectURI)
	if err == nil {
		return token, nil
	}

	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return "", &APIError{ID: authErr.Status, Name: authErr.Type, Message: authErr.Message}
	}

	a.client.logger.Error("access token exchange failed", map[string]interface{}{
		"error": err.Error(),
	})

	return "", fmt.Errorf("access token exchange failed: %w", err)
}
