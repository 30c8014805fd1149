package stackapi

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/stackapi/internal/constants"
)

// Item is a read-only view over one object returned by the API. Field access
// uses the registered TypeInfo of the item's type to convert timestamps and
// wrap nested objects.
type Item struct {
	data     map[string]any
	itemType string
	info     TypeInfo
}

// NewItem wraps data as an item of the given type. Unknown types get no metadata.
func NewItem(data map[string]any, itemType string) *Item {
	if data == nil {
		data = map[string]any{}
	}

	info, _ := LookupTypeInfo(itemType)

	return &Item{
		data:     data,
		itemType: itemType,
		info:     info,
	}
}

// Type returns the registry name of the item's type.
func (i *Item) Type() string {
	return i.itemType
}

// TypeName returns the display name of the item's type, e.g. "Shallow User".
func (i *Item) TypeName() string {
	words := strings.Split(i.itemType, "_")
	for index, word := range words {
		if word == "" {
			continue
		}

		words[index] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}

	return strings.Join(words, " ")
}

// Contains reports whether the raw data has the field.
func (i *Item) Contains(field string) bool {
	_, ok := i.data[field]

	return ok
}

// Get returns a field value.
//
// A "<field>_timestamp" name returns the raw Unix time of a date field. Date
// fields are returned as time.Time, nested types as *Item or []*Item.
func (i *Item) Get(field string) (any, error) {
	if base, ok := strings.CutSuffix(field, constants.TimestampSuffix); ok && i.info.IsDateField(base) {
		value, found := i.data[base]
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, field)
		}

		return value, nil
	}

	value, found := i.data[field]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, field)
	}

	if value == nil {
		return nil, nil
	}

	if i.info.IsDateField(field) {
		seconds, ok := toInt64(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a timestamp", ErrUnexpectedFieldType, field)
		}

		return time.Unix(seconds, 0), nil
	}

	if nested, ok := i.info.NestedType(field); ok {
		return wrapNested(field, value, nested)
	}

	return value, nil
}

// GetString returns a string field.
func (i *Item) GetString(field string) (string, error) {
	value, err := i.Get(field)
	if err != nil {
		return "", err
	}

	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T", ErrUnexpectedFieldType, field, value)
	}

	return str, nil
}

// GetInt returns an integer field.
func (i *Item) GetInt(field string) (int64, error) {
	value, err := i.Get(field)
	if err != nil {
		return 0, err
	}

	number, ok := toInt64(value)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %T", ErrUnexpectedFieldType, field, value)
	}

	return number, nil
}

// GetTime returns a date field.
func (i *Item) GetTime(field string) (time.Time, error) {
	value, err := i.Get(field)
	if err != nil {
		return time.Time{}, err
	}

	date, ok := value.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s is not a date field", ErrUnexpectedFieldType, field)
	}

	return date, nil
}

// ID returns the value of the registered id field, or nil.
func (i *Item) ID() any {
	if i.info.IDField == "" {
		return nil
	}

	return i.data[i.info.IDField]
}

// Label returns the human readable form of the item.
func (i *Item) Label() (string, error) {
	field := i.info.StrField
	if _, ok := i.data[field]; field == "" || !ok {
		field = i.info.IDField
	}

	value, ok := i.data[field]
	if field == "" || !ok {
		return "", ErrNoLabel
	}

	return stringify(value), nil
}

// Raw returns a shallow copy of the underlying data.
func (i *Item) Raw() map[string]any {
	return maps.Clone(i.data)
}

// String implements fmt.Stringer.
func (i *Item) String() string {
	label, err := i.Label()
	if err != nil {
		return "<Unknown Item>"
	}

	name := i.TypeName()
	if name == "" {
		name = "Item"
	}

	return fmt.Sprintf("<%s '%s'>", name, label)
}

// MarshalJSON encodes the raw data.
func (i *Item) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(i.data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}

	return data, nil
}

func wrapNested(field string, value any, itemType string) (any, error) {
	switch typed := value.(type) {
	case map[string]any:
		return NewItem(typed, itemType), nil
	case []any:
		items := make([]*Item, 0, len(typed))
		for _, element := range typed {
			object, ok := element.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s contains %T", ErrUnexpectedFieldType, field, element)
			}

			items = append(items, NewItem(object, itemType))
		}

		return items, nil
	default:
		return nil, fmt.Errorf("%w: %s is %T", ErrUnexpectedFieldType, field, value)
	}
}

func toInt64(value any) (int64, bool) {
	switch typed := value.(type) {
	case int64:
		return typed, true
	case int:
		return int64(typed), true
	case float64:
		if typed != math.Trunc(typed) {
			return 0, false
		}

		return int64(typed), true
	case json.Number:
		number, err := typed.Int64()

		return number, err == nil
	default:
		return 0, false
	}
}

// stringify renders a parameter or label value the way the API expects it.
func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case int64:
		return strconv.FormatInt(typed, 10)
	case int:
		return strconv.Itoa(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	case time.Time:
		return strconv.FormatInt(typed.Unix(), 10)
	case *Item:
		return stringify(typed.ID())
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}
