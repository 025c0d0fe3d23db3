package hxwire

import (
	"encoding/json"
	"maps"
	"slices"
)

// Reserved memo regions. Each region is written by exactly one middleware.
const (
	MemoData     = "data"
	MemoErrors   = "errors"
	MemoChecksum = "checksum"
	MemoSealed   = "sealed"
)

// Memo is the snapshot carried by the client between round trips.
//
// The memo is a bag of disjoint regions. A middleware reads and writes only
// the region it owns, which is what lets independently configured
// middleware compose. Custom middleware should namespace their keys.
type Memo map[string]any

// Clone returns a deep copy of the memo. JSON-shaped values (maps, slices)
// are copied; other values are shared.
func (m Memo) Clone() Memo {
	if m == nil {
		return Memo{}
	}
	out := make(Memo, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// Region returns the value stored under key.
func (m Memo) Region(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// Set stores v under key.
func (m Memo) Set(key string, v any) {
	m[key] = v
}

// Data returns the public-property region.
func (m Memo) Data() map[string]any {
	d, _ := m[MemoData].(map[string]any)
	return d
}

// Checksum returns the checksum region.
func (m Memo) Checksum() string {
	s, _ := m[MemoChecksum].(string)
	return s
}

// withoutChecksum returns a shallow copy without the checksum region.
func (m Memo) withoutChecksum() Memo {
	out := maps.Clone(m)
	delete(out, MemoChecksum)
	return out
}

// Effects are side effects reported to the client alongside the memo.
type Effects map[string]any

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case map[string][]string:
		out := make(map[string][]string, len(t))
		for k, e := range t {
			out[k] = slices.Clone(e)
		}
		return out
	}
	return v
}

// sameJSON reports whether a and b encode to the same JSON. Values restored
// from the wire are float64/map[string]any while fresh values may be int or
// typed structs; comparing encodings ignores that difference.
func sameJSON(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ja) == string(jb)
}
