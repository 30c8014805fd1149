package stackapi

import (
	"maps"
	"slices"
)

// TypeInfo describes how the fields of one item type are interpreted.
type TypeInfo struct {
	// IDField holds a unique identifier for the item.
	IDField string
	// StrField holds a human readable label. IDField is used when it is empty.
	StrField string
	// DateFields hold Unix timestamps.
	DateFields []string
	// TypeMap maps field names to the item type their values are wrapped as.
	TypeMap map[string]string
}

// IsDateField reports whether field holds a Unix timestamp.
func (t TypeInfo) IsDateField(field string) bool {
	return slices.Contains(t.DateFields, field)
}

// NestedType returns the item type a field's value is wrapped as.
func (t TypeInfo) NestedType(field string) (string, bool) {
	name, ok := t.TypeMap[field]

	return name, ok
}

// patternTypes maps request patterns to the type of item they return.
//
// errors/* and comments/*/delete return nothing and are left out, as are the
// filter methods which are handled by Filter.
var patternTypes = map[string]string{
	"access-tokens/*":                 "access_token",
	"access-tokens/*/invalidate":      "access_token",
	"apps/*/de-authenticate":          "access_token",
	"answers":                         "answer",
	"answers/*":                       "answer",
	"answers/*/comments":              "comment",
	"badges":                          "badge",
	"badges/*":                        "badge",
	"badges/*/recipients":             "badge",
	"badges/name":                     "badge",
	"badges/recipients":               "badge",
	"badges/tags":                     "badge",
	"comments":                        "comment",
	"comments/*":                      "comment",
	"comments/*/edit ":                "comment",
	"errors":                          "error",
	"events":                          "event",
	"inbox":                           "inbox_item",
	"inbox/unread":                    "inbox_item",
	"info":                            "info",
	"notifications":                   "notification",
	"notifications/unread":            "notification",
	"posts":                           "post",
	"posts/*":                         "post",
	"posts/*/comments":                "comment",
	"posts/*/comments/add":            "comment",
	"posts/*/revisions":               "revision",
	"posts/*/suggested-edits":         "suggested_edit",
	"privileges":                      "privilege",
	"questions":                       "question",
	"questions/*":                     "question",
	"questions/*/answers":             "answer",
	"questions/*/comments":            "comment",
	"questions/*/linked":              "question",
	"questions/*/related":             "question",
	"questions/*/timeline":            "question_timeline",
	"questions/featured":              "question",
	"questions/unanswered":            "question",
	"questions/no-answers":            "question",
	"revisions/*":                     "revision",
	"search":                          "question",
	"search/advanced":                 "question",
	"similar":                         "question",
	"sites":                           "site",
	"suggested-edits":                 "suggested_edit",
	"suggested-edits/*":               "suggested_edit",
	"tags":                            "tag",
	"tags/*/info":                     "tag",
	"tags/*/faq":                      "question",
	"tags/*/related":                  "tag",
	"tags/*/synonyms":                 "tag_synonym",
	"tags/*/top-answerers/*":          "tag_score",
	"tags/*/top-askers/*":             "tag_score",
	"tags/*/wikis":                    "tag_wiki",
	"tags/moderator-only":             "tag",
	"tags/required":                   "tag",
	"tags/synonyms":                   "tag_synonym",
	"users":                           "user",
	"users/*":                         "user",
	"users/*/answers":                 "answer",
	"users/*/associated":              "network_user",
	"users/*/badges":                  "badge",
	"users/*/comments":                "comment",
	"users/*/comments/*":              "comment",
	"users/*/favorites":               "question",
	"users/*/inbox":                   "inbox_item",
	"users/*/inbox-item":              "inbox_item",
	"users/*/mentioned":               "comment",
	"users/*/merges":                  "account_merge",
	"users/*/notifications":           "notification",
	"users/*/notifications/unread":    "notification",
	"users/*/privileges":              "privilege",
	"users/*/questions":               "question",
	"users/*/questions/featured":      "question",
	"users/*/questions/no-answers":    "question",
	"users/*/questions/unaccepted":    "question",
	"users/*/questions/unanswered":    "question",
	"users/*/reputation":              "reputation",
	"users/*/reputation-history":      "reputation_history",
	"users/*/reputation-history/full": "reputation_history",
	"users/*/suggested-edits":         "suggested_edit",
	"users/*/tags":                    "tag",
	"users/*/tags/*/top-answers":      "answer",
	"users/*/tags/*/top-questions":    "question",
	"users/*/timeline":                "user_timeline",
	"users/*/top-answer-tags":         "top_tag",
	"users/*/top-question-tags":       "top_tag",
	"users/*/write-permissions":       "write_permission",
	"users/moderators":                "user",
	"users/moderators/elected":        "user",
}

// typeInformation describes every item type the API returns.
//
// badge_count, styling and write_permission are simple enough to need no entry.
var typeInformation = map[string]TypeInfo{
	"access_token": {
		IDField:    "access_token",
		DateFields: []string{"expires_on_date"},
	},
	"account_merge": {
		DateFields: []string{"merge_date"},
	},
	"answer": {
		IDField:    "answer_id",
		StrField:   "title",
		DateFields: []string{"community_owned_date", "creation_date", "last_activity_date", "last_edit_date", "locked_date"},
		TypeMap:    map[string]string{"owner": "shallow_user"},
	},
	"badge": {
		IDField:  "badge_id",
		StrField: "name",
		TypeMap:  map[string]string{"user": "shallow_user"},
	},
	"comment": {
		IDField:    "comment_id",
		StrField:   "body",
		DateFields: []string{"creation_date"},
		TypeMap:    map[string]string{"owner": "shallow_user", "reply_to_user": "shallow_user"},
	},
	"error": {
		IDField:  "error_id",
		StrField: "error_description",
	},
	"event": {
		StrField:   "excerpt",
		DateFields: []string{"creation_date"},
	},
	"inbox_item": {
		StrField:   "title",
		DateFields: []string{"creation_date"},
		TypeMap:    map[string]string{"site": "site"},
	},
	"info": {
		TypeMap: map[string]string{"site": "site"},
	},
	"migration_info": {
		DateFields: []string{"on_date"},
		TypeMap:    map[string]string{"other_site": "site"},
	},
	"network_user": {
		IDField:    "account_id",
		StrField:   "site_name",
		DateFields: []string{"creation_date", "last_access_date"},
	},
	"notice": {
		DateFields: []string{"creation_date"},
	},
	"notification": {
		StrField:   "notification_type",
		DateFields: []string{"creation_date"},
		TypeMap:    map[string]string{"site": "site"},
	},
	"post": {
		IDField:    "post_id",
		StrField:   "post_type",
		DateFields: []string{"creation_date", "last_activity_date", "last_edit_date"},
		TypeMap:    map[string]string{"comments": "comment", "owner": "shallow_user"},
	},
	"privilege": {
		StrField: "short_description",
	},
	"question": {
		IDField:    "question_id",
		StrField:   "title",
		DateFields: []string{"bounty_closes_date", "closed_date", "community_owned_date", "creation_date", "last_activity_date", "last_edit_date", "locked_date", "protected_date"},
		TypeMap:    map[string]string{"answers": "answer", "comments": "comment", "migrated_from": "migration_info", "migrated_to": "migration_info", "owner": "shallow_user"},
	},
	"question_timeline": {
		StrField:   "timeline_type",
		DateFields: []string{"creation_date"},
		TypeMap:    map[string]string{"owner": "shallow_user", "user": "shallow_user"},
	},
	"related_site": {
		IDField:  "api_site_parameter",
		StrField: "name",
	},
	"reputation": {
		StrField:   "vote_type",
		DateFields: []string{"on_date"},
	},
	"reputation_history": {
		StrField:   "reputation_history_type",
		DateFields: []string{"creation_date"},
	},
	"revision": {
		IDField:    "revision_guid",
		StrField:   "comment",
		DateFields: []string{"creation_date"},
		TypeMap:    map[string]string{"user": "shallow_user"},
	},
	"shallow_user": {
		IDField:  "user_id",
		StrField: "display_name",
	},
	"site": {
		IDField:    "api_site_parameter",
		StrField:   "name",
		DateFields: []string{"closed_beta_date", "launch_date", "open_beta_date"},
		TypeMap:    map[string]string{"related_sites": "related-site", "styling": "styling"},
	},
	"suggested_edit": {
		IDField:    "suggested_edit_id",
		StrField:   "title",
		DateFields: []string{"approval_date", "creation_date", "rejection_date"},
		TypeMap:    map[string]string{"proposing_user": "shallow_user"},
	},
	"tag": {
		IDField:    "name",
		DateFields: []string{"last_activity_date"},
	},
	"tag_score": {
		TypeMap: map[string]string{"user": "shallow_user"},
	},
	"tag_synonym": {
		DateFields: []string{"creation_date", "last_applied_date"},
	},
	"tag_wiki": {
		StrField:   "tag_name",
		DateFields: []string{"body_last_edit_date", "excerpt_last_edit_date"},
		TypeMap:    map[string]string{"last_body_editor": "shallow_user", "last_excerpt_editor": "shallow_user"},
	},
	"top_tag": {
		StrField: "tag_name",
	},
	"user": {
		IDField:    "user_id",
		StrField:   "display_name",
		DateFields: []string{"creation_date", "last_access_date", "last_modified_date", "timed_penalty_date"},
		TypeMap:    map[string]string{"badge_counts": "badge_count"},
	},
	"user_timeline": {
		StrField:   "timeline_type",
		DateFields: []string{"creation_date"},
	},
}

// LookupPatternType returns the item type registered for an exact request pattern.
func LookupPatternType(pattern string) (string, bool) {
	name, ok := patternTypes[pattern]

	return name, ok
}

// LookupTypeInfo returns the field metadata of an item type.
func LookupTypeInfo(name string) (TypeInfo, bool) {
	info, ok := typeInformation[name]

	return info, ok
}

// ResolveItemType picks the item type for a response. The pattern table wins,
// then a "type" field embedded in the payload, then the empty type.
func ResolveItemType(pattern string, payload map[string]any) string {
	if name, ok := patternTypes[pattern]; ok {
		return name
	}

	if name, ok := payload["type"].(string); ok {
		return name
	}

	return ""
}

// RegisteredPatterns returns every request pattern with a known item type, sorted.
func RegisteredPatterns() []string {
	return slices.Sorted(maps.Keys(patternTypes))
}
