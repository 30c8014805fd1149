package stackapi

import (
	"maps"
	"slices"
	"strings"
)

// methodSet is a fixed vocabulary of path tokens.
type methodSet map[string]struct{}

func newMethodSet(methods ...string) methodSet {
	set := make(methodSet, len(methods))
	for _, method := range methods {
		set[method] = struct{}{}
	}

	return set
}

func (s methodSet) contains(method string) bool {
	_, ok := s[method]

	return ok
}

func (s methodSet) sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// networkMethods are the top-level methods that do not need a site.
//
// filters is handled by Filter.
var networkMethods = newMethodSet(
	"access-tokens",
	"apps",
	"errors",
	"inbox",
	"notifications",
	"sites",
	"users",
)

// siteMethods are the top-level methods of a single site.
var siteMethods = newMethodSet(
	"answers",
	"badges",
	"comments",
	"events",
	"info",
	"posts",
	"privileges",
	"questions",
	"revisions",
	"search",
	"similar",
	"suggested-edits",
	"tags",
	"users",
)

// chainMethods are the tokens that may follow another path component.
//
// filters/create is handled by Filter.
var chainMethods = newMethodSet(
	"add",
	"advanced",
	"answers",
	"associated",
	"badges",
	"comments",
	"de-authenticate",
	"delete",
	"edit",
	"elected",
	"faq",
	"favorites",
	"featured",
	"full",
	"inbox",
	"info",
	"invalidate",
	"linked",
	"mentioned",
	"merges",
	"moderator-only",
	"moderators",
	"name",
	"no-answers",
	"notifications",
	"privileges",
	"questions",
	"recipients",
	"related",
	"reputation",
	"reputation-history",
	"required",
	"revisions",
	"suggested-edits",
	"synonyms",
	"tags",
	"timeline",
	"top-answer-tags",
	"top-answerers",
	"top-answers",
	"top-askers",
	"top-question-tags",
	"top-questions",
	"unaccepted",
	"unanswered",
	"unread",
	"wikis",
	"write-permissions",
)

// postMethods switch the whole request to POST.
var postMethods = newMethodSet(
	"add",
	"delete",
	"edit",
)

// accessTokenParameter is exempt from name normalization and upgrades the scheme.
const accessTokenParameter = "access_token"

// normalizeToken converts Go-friendly underscores to the dashes the API uses.
func normalizeToken(token string) string {
	if token == accessTokenParameter {
		return token
	}

	return strings.ReplaceAll(token, "_", "-")
}

// NetworkMethods lists the top-level network methods.
func NetworkMethods() []string {
	return networkMethods.sorted()
}

// SiteMethods lists the top-level methods available on a site.
func SiteMethods() []string {
	return siteMethods.sorted()
}

// ChainMethods lists the methods that may follow another path component.
func ChainMethods() []string {
	return chainMethods.sorted()
}

// IsMethod reports whether token names a method rather than a parameter.
func IsMethod(token string) bool {
	token = normalizeToken(token)

	return networkMethods.contains(token) || siteMethods.contains(token) || chainMethods.contains(token)
}
