package hxwire

import (
	"maps"
	"slices"
	"sort"
)

// ErrorBag holds validation messages keyed by property name.
//
// The bag round-trips in the "errors" memo region, so messages added while
// handling one update are still visible to the next render. Clear it at the
// start of a validation pass:
//
//	c.ErrorBag().Clear()
//	if c.String("title") == "" {
//	    c.ErrorBag().Add("title", "Title is required")
//	}
type ErrorBag struct {
	messages map[string][]string
}

// NewErrorBag returns an empty bag.
func NewErrorBag() *ErrorBag {
	return &ErrorBag{messages: make(map[string][]string)}
}

// Add appends a message for field.
func (b *ErrorBag) Add(field, message string) {
	b.messages[field] = append(b.messages[field], message)
}

// Has reports whether field has messages.
func (b *ErrorBag) Has(field string) bool {
	return len(b.messages[field]) > 0
}

// First returns the first message for field, or "".
func (b *ErrorBag) First(field string) string {
	if msgs := b.messages[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Get returns all messages for field.
func (b *ErrorBag) Get(field string) []string {
	return slices.Clone(b.messages[field])
}

// Fields returns the fields with messages, sorted.
func (b *ErrorBag) Fields() []string {
	fields := make([]string, 0, len(b.messages))
	for f := range b.messages {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Len returns the number of fields with messages.
func (b *ErrorBag) Len() int {
	return len(b.messages)
}

// IsEmpty reports whether the bag holds no messages.
func (b *ErrorBag) IsEmpty() bool {
	return len(b.messages) == 0
}

// Clear removes all messages.
func (b *ErrorBag) Clear() {
	b.messages = make(map[string][]string)
}

// Messages returns a copy of all messages.
func (b *ErrorBag) Messages() map[string][]string {
	out := make(map[string][]string, len(b.messages))
	for f, msgs := range b.messages {
		out[f] = slices.Clone(msgs)
	}
	return out
}

// Replace swaps the bag content for msgs.
func (b *ErrorBag) Replace(msgs map[string][]string) {
	b.messages = maps.Clone(msgs)
	if b.messages == nil {
		b.messages = make(map[string][]string)
	}
}

// errorBagFromMemo decodes the "errors" memo region. The region is an
// object of string lists; an empty JSON array is the initial bag.
func errorBagFromMemo(v any) (map[string][]string, error) {
	out := make(map[string][]string)
	switch t := v.(type) {
	case nil:
		return out, nil
	case []any:
		if len(t) == 0 {
			return out, nil
		}
	case map[string][]string:
		return maps.Clone(t), nil
	case map[string]any:
		for field, raw := range t {
			list, ok := raw.([]any)
			if !ok {
				if strs, ok := raw.([]string); ok {
					out[field] = slices.Clone(strs)
					continue
				}
				return nil, ErrInvalidFormat
			}
			for _, m := range list {
				s, ok := m.(string)
				if !ok {
					return nil, ErrInvalidFormat
				}
				out[field] = append(out[field], s)
			}
		}
		return out, nil
	}
	return nil, ErrInvalidFormat
}
