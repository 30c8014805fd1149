package stackapi

import (
	"fmt"
	"maps"
)

// Response is a decoded API reply. Items holds the wrapped "items" array and
// the remaining top-level fields are available through Field and the
// accessors below.
type Response struct {
	Type  string
	Items []*Item
	// Sites is only populated for /sites replies.
	Sites []*Site

	fields map[string]any
}

func newResponse(client *Client, pattern string, data map[string]any) *Response {
	itemType := ResolveItemType(pattern, data)
	rawItems, _ := data["items"].([]any)

	items := make([]*Item, 0, len(rawItems))
	for _, raw := range rawItems {
		object, ok := raw.(map[string]any)
		if !ok {
			object = map[string]any{"value": raw}
		}

		items = append(items, NewItem(object, itemType))
	}

	fields := maps.Clone(data)
	fields["items"] = items

	response := &Response{
		Type:   itemType,
		Items:  items,
		fields: fields,
	}

	if pattern == "sites" {
		response.Sites = make([]*Site, 0, len(items))
		for _, item := range items {
			response.Sites = append(response.Sites, newSiteFromItem(client, item))
		}
	}

	return response
}

// Field returns a top-level field of the reply. "items" returns []*Item.
func (r *Response) Field(name string) (any, error) {
	value, ok := r.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, name)
	}

	return value, nil
}

// Len returns the number of items.
func (r *Response) Len() int {
	return len(r.Items)
}

// HasMore reports whether further pages exist.
func (r *Response) HasMore() bool {
	more, _ := r.fields["has_more"].(bool)

	return more
}

// QuotaMax returns the daily request quota.
func (r *Response) QuotaMax() int64 {
	return r.intField("quota_max")
}

// QuotaRemaining returns the requests left today.
func (r *Response) QuotaRemaining() int64 {
	return r.intField("quota_remaining")
}

// Backoff returns the number of seconds to wait before calling the same
// method again, or zero.
func (r *Response) Backoff() int64 {
	return r.intField("backoff")
}

// Total returns the total number of matching items when the filter includes it.
func (r *Response) Total() int64 {
	return r.intField("total")
}

// Page returns the page number when the filter includes it.
func (r *Response) Page() int64 {
	return r.intField("page")
}

func (r *Response) intField(name string) int64 {
	value, _ := toInt64(r.fields[name])

	return value
}
