// Package demo serves small example pages that use the client library, plus
// an OAuth sign-in flow that keeps the access token in a session.
package demo

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/fivetwenty-io/stackapi/internal/constants"
	"github.com/fivetwenty-io/stackapi/pkg/stackapi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// Session keys.
const (
	sessionState       = "oauth_state"
	sessionAccessToken = "access_token"
)

// Options configures a Server.
type Options struct {
	API *stackapi.API
	// Site is the API site parameter the examples query.
	Site string
	// BaseURL is the externally visible root, used to build the OAuth redirect.
	BaseURL string
	// Scope is requested during OAuth sign-in.
	Scope  string
	Logger zerolog.Logger
	// Sessions defaults to an in-memory session manager.
	Sessions *scs.SessionManager
}

// Server is the examples web server.
type Server struct {
	Router *chi.Mux
	Sess   *scs.SessionManager

	api      *stackapi.API
	site     string
	baseURL  string
	scope    string
	logger   zerolog.Logger
	examples []example
}

// New creates the server and its routes.
func New(opts Options) *Server {
	if opts.Site == "" {
		opts.Site = constants.ExamplesSite
	}

	if opts.BaseURL == "" {
		opts.BaseURL = fmt.Sprintf("http://localhost:%d", constants.ExamplesPort)
	}

	sess := opts.Sessions
	if sess == nil {
		sess = scs.New()
		sess.Lifetime = 12 * time.Hour
		sess.Cookie.HttpOnly = true
		sess.Cookie.SameSite = http.SameSiteLaxMode
		sess.Cookie.Secure = false
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	s := &Server{
		Router:  r,
		Sess:    sess,
		api:     opts.API,
		site:    opts.Site,
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		scope:   opts.Scope,
		logger:  opts.Logger,
	}
	s.examples = s.registerExamples()

	r.Get("/", s.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/oauth/", s.handleOAuthStart)
	r.Get("/oauth/callback", s.handleOAuthCallback)
	r.Get("/oauth/signout", s.handleSignOut)
	r.Get("/{example}", s.handleExample)
	r.Get("/{example}/*", s.handleExample)

	return s
}

// Handler wraps the router with request logging and session loading.
func (s *Server) Handler() http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})

	return s.Sess.LoadAndSave(hlog.NewHandler(s.logger)(access(s.Router)))
}

// Addr returns the listen address of the examples server.
func Addr() string {
	return fmt.Sprintf("localhost:%d", constants.ExamplesPort)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "Examples", "index", map[string]any{
		"Examples": s.examples,
		"SignedIn": s.Sess.GetString(r.Context(), sessionAccessToken) != "",
	})
}

func (s *Server) handleExample(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "example")

	for _, ex := range s.examples {
		if ex.Name != name {
			continue
		}

		body, data, err := ex.run(r)
		if err != nil {
			s.fail(w, r, err)

			return
		}

		s.render(w, r, http.StatusOK, ex.Title, body, data)

		return
	}

	s.render(w, r, http.StatusNotFound, "Not Found", "not-found", map[string]any{"Path": r.URL.Path})
}

func (s *Server) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	authURL, err := s.api.BeginExplicit(s.scope, s.baseURL+"/oauth/callback", state)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.Sess.Put(r.Context(), sessionState, state)
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	expected := s.Sess.PopString(r.Context(), sessionState)
	if expected == "" || query.Get("state") != expected {
		http.Error(w, "invalid state", http.StatusBadRequest)

		return
	}

	if reason := query.Get("error_description"); reason != "" {
		s.render(w, r, http.StatusForbidden, "Sign-in Failed", "message", map[string]any{"Message": reason})

		return
	}

	token, err := s.api.CompleteExplicit(r.Context(), query.Get("code"), s.baseURL+"/oauth/callback")
	if err != nil {
		s.fail(w, r, err)

		return
	}

	err = s.Sess.RenewToken(r.Context())
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.Sess.Put(r.Context(), sessionAccessToken, token)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.Sess.Remove(r.Context(), sessionAccessToken)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("example failed")
	s.render(w, r, http.StatusInternalServerError, "Internal Server Error", "error", map[string]any{"Error": err.Error()})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, title, name string, data any) {
	var body bytes.Buffer

	err := pages.ExecuteTemplate(&body, name, data)
	if err == nil {
		var page bytes.Buffer

		err = pages.ExecuteTemplate(&page, "layout", map[string]any{
			"Title": title,
			"Body":  template.HTML(body.String()), //nolint:gosec // body is produced by html/template
		})
		if err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(status)
			_, _ = page.WriteTo(w)

			return
		}
	}

	hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("render failed")
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
