// Package auth builds the StackExchange OAuth URLs and exchanges
// authorization codes for access tokens.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/stackapi/internal/compress"
	"github.com/fivetwenty-io/stackapi/internal/constants"
	"golang.org/x/oauth2"
)

// Error is an error reply from the token endpoint.
type Error struct {
	Status  int
	Type    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("oauth error %d (%s): %s", e.Status, e.Type, e.Message)
}

// Endpoints are the OAuth URLs. Empty fields use the StackExchange defaults.
type Endpoints struct {
	AuthURL   string
	DialogURL string
	TokenURL  string
}

// Config configures a Flow.
type Config struct {
	ClientID     string
	ClientSecret string
	Endpoints    Endpoints
	// HTTPClient sends the code exchange. Its transport should decode gzip.
	HTTPClient *http.Client
}

// Flow implements the explicit and implicit flows.
type Flow struct {
	explicit   oauth2.Config
	implicit   oauth2.Config
	httpClient *http.Client
}

// NewFlow creates a flow.
func NewFlow(config Config) *Flow {
	endpoints := config.Endpoints
	if endpoints.AuthURL == "" {
		endpoints.AuthURL = constants.OAuthExplicitURL
	}

	if endpoints.DialogURL == "" {
		endpoints.DialogURL = constants.OAuthImplicitURL
	}

	if endpoints.TokenURL == "" {
		endpoints.TokenURL = constants.OAuthTokenURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: compress.NewTransport(nil),
			Timeout:   constants.DefaultHTTPTimeout,
		}
	}

	base := oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   endpoints.AuthURL,
			TokenURL:  endpoints.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	implicit := base
	implicit.Endpoint.AuthURL = endpoints.DialogURL

	return &Flow{explicit: base, implicit: implicit, httpClient: httpClient}
}

// ExplicitURL returns the URL starting the authorization code flow.
func (f *Flow) ExplicitURL(scope, redirectURI, state string) string {
	return authURL(f.explicit, scope, redirectURI, state)
}

// ImplicitURL returns the URL starting the implicit flow.
func (f *Flow) ImplicitURL(scope, redirectURI, state string) string {
	return authURL(f.implicit, scope, redirectURI, state, oauth2.SetAuthURLParam("response_type", "token"))
}

func authURL(config oauth2.Config, scope, redirectURI, state string, opts ...oauth2.AuthCodeOption) string {
	config.RedirectURL = redirectURI
	if scope != "" {
		config.Scopes = []string{scope}
	}

	return config.AuthCodeURL(state, opts...)
}

// Exchange trades code for an access token. redirectURI must match the one
// given to ExplicitURL.
func (f *Flow) Exchange(ctx context.Context, code, redirectURI string) (string, error) {
	config := f.explicit
	config.RedirectURL = redirectURI

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)

	token, err := config.Exchange(ctx, code)
	if err == nil {
		return token.AccessToken, nil
	}

	if errors.Is(err, compress.ErrDecompress) {
		return "", &Error{Message: compress.ErrDecompress.Error()}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return "", errorFromReply(retrieveErr)
	}

	return "", fmt.Errorf("failed to exchange code: %w", err)
}

func errorFromReply(retrieveErr *oauth2.RetrieveError) *Error {
	status := 0
	if retrieveErr.Response != nil {
		status = retrieveErr.Response.StatusCode
	}

	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}

	err := json.Unmarshal(retrieveErr.Body, &envelope)
	if err != nil || envelope.Error.Type == "" {
		return &Error{Status: status, Type: "unknown", Message: string(retrieveErr.Body)}
	}

	message := envelope.Error.Message
	if message == "" {
		message = "unknown error"
	}

	return &Error{Status: status, Type: envelope.Error.Type, Message: message}
}
