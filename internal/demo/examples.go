package demo

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/fivetwenty-io/stackapi/pkg/stackapi"
)

// example is one page listed on the index.
type example struct {
	Name        string
	Title       string
	Description string
	run         func(r *http.Request) (string, any, error)
}

func (s *Server) registerExamples() []example {
	return []example{
		{
			Name:        "users",
			Title:       "User Example",
			Description: "Simple examples of fetching user information with the API.",
			run:         s.runUsers,
		},
		{
			Name:        "questions",
			Title:       "Question Example",
			Description: "Examples of retrieving question data from the API.",
			run:         s.runQuestions,
		},
		{
			Name:        "token",
			Title:       "Access Token Example",
			Description: "Inspect the access token obtained by signing in.",
			run:         s.runToken,
		},
	}
}

func (s *Server) runUsers(r *http.Request) (string, any, error) {
	id := r.URL.Query().Get("id")
	if id == "" {
		return "users-form", nil, nil
	}

	user, err := s.api.Site(s.site).Users(id).First(r.Context())
	if stackapi.IsEmptyResult(err) || isBadParameter(err) {
		return "message", map[string]any{"Message": "Sorry, but the ID you specified was invalid."}, nil
	}

	if err != nil {
		return "", nil, err
	}

	name, err := user.GetString("display_name")
	if err != nil {
		return "", nil, err
	}

	return "message", map[string]any{"Message": "Your username is " + name + "."}, nil
}

type questionRow struct {
	Title string
	Link  template.URL
	Score int64
}

func (s *Server) runQuestions(r *http.Request) (string, any, error) {
	page := 1
	if value, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && value > 0 {
		page = value
	}

	req := s.api.Site(s.site).Questions().Sort("activity").Order("desc").Page(page).PageSize(10)

	response, err := req.Resolve(r.Context())
	if err != nil {
		return "", nil, err
	}

	rows := make([]questionRow, 0, response.Len())

	for _, item := range response.Items {
		title, err := item.GetString("title")
		if err != nil {
			return "", nil, err
		}

		row := questionRow{Title: title}

		if link, err := item.GetString("link"); err == nil {
			row.Link = template.URL(link) //nolint:gosec // links come from the API
		}

		if score, err := item.GetInt("score"); err == nil {
			row.Score = score
		}

		rows = append(rows, row)
	}

	data := map[string]any{"Questions": rows, "Page": page}
	if response.HasMore() {
		data["Next"] = page + 1
	}

	return "questions", data, nil
}

func (s *Server) runToken(r *http.Request) (string, any, error) {
	token := s.Sess.GetString(r.Context(), sessionAccessToken)
	if token == "" {
		return "message", map[string]any{"Message": "Sign in first to see your access token."}, nil
	}

	info, err := s.api.AccessTokens(token).First(r.Context())
	if err != nil {
		return "", nil, err
	}

	data := map[string]any{"Scope": "", "Expires": "never"}

	if scope, err := info.Get("scope"); err == nil {
		data["Scope"] = scope
	}

	if expires, err := info.GetTime("expires_on_date"); err == nil {
		data["Expires"] = expires.UTC().Format("2006-01-02 15:04 MST")
	}

	return "token", data, nil
}

func isBadParameter(err error) bool {
	var apiErr *stackapi.APIError

	return errors.As(err, &apiErr) && apiErr.ID == stackapi.ErrorIDBadParameter
}
