package hxwire

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
)

// TestResult holds the result of a component round trip for testing.
//
// Provides convenience methods for asserting on HTML content, the memo,
// queued events and dirty properties.
type TestResult struct {
	HTML            string
	Snapshot        *Snapshot
	StatusCode      int
	Headers         http.Header
	TriggeredEvents []string
}

// TestInitial renders the named component for the first time.
//
// The snapshot embedded in the markup is extracted, so the result can
// drive a follow-up TestSubsequent:
//
//	first, err := hxwire.TestInitial(ctx, engine, "counter", map[string]any{"start": "3"})
//	next, err := hxwire.TestSubsequent(ctx, engine, first.Snapshot,
//	    hxwire.CallMethod("increment", nil))
//	if next.Data()["count"] != float64(4) { ... }
func TestInitial(ctx context.Context, e *Engine, name string, params map[string]any) (*TestResult, error) {
	markup, err := e.InitialRequest(ctx, name, params)
	if err != nil {
		return nil, err
	}
	snap, err := SnapshotFromHTML(e, markup)
	if err != nil {
		return nil, err
	}
	return &TestResult{
		HTML:       markup,
		Snapshot:   snap,
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
	}, nil
}

// TestSubsequent sends updates against a snapshot from an earlier round
// trip. The snapshot goes through a JSON encoding first, exactly as it
// would between server and browser.
func TestSubsequent(ctx context.Context, e *Engine, prev *Snapshot, updates ...Update) (*TestResult, error) {
	req, err := NextRequest(prev, updates...)
	if err != nil {
		return nil, err
	}
	snap, err := e.SubsequentRequest(ctx, req.Fingerprint.Name, req)
	if err != nil {
		return nil, err
	}
	html, _ := snap.Effects["html"].(string)
	return &TestResult{
		HTML:       html,
		Snapshot:   snap,
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
	}, nil
}

// SnapshotFromHTML extracts the snapshot e embedded in markup.
func SnapshotFromHTML(e *Engine, markup string) (*Snapshot, error) {
	return ExtractSnapshot(markup, e.cfg.SnapshotAttr)
}

// NextRequest builds the request a browser would send after receiving
// prev, with prev passed through JSON first.
func NextRequest(prev *Snapshot, updates ...Update) (*Request, error) {
	data, err := json.Marshal(prev.NextRequest(updates...))
	if err != nil {
		return nil, err
	}
	return DecodeRequest(bytes.NewReader(data))
}

// SyncInput builds a syncInput update.
func SyncInput(name string, value any) Update {
	return Update{Type: UpdateSyncInput, Payload: map[string]any{"name": name, "value": value}}
}

// CallMethod builds a callMethod update.
func CallMethod(method string, params map[string]any) Update {
	if params == nil {
		params = map[string]any{}
	}
	return Update{Type: UpdateCallMethod, Payload: map[string]any{"method": method, "params": params}}
}

// FireEvent builds a fireEvent update.
func FireEvent(event string, params map[string]any) Update {
	if params == nil {
		params = map[string]any{}
	}
	return Update{Type: UpdateFireEvent, Payload: map[string]any{"event": event, "params": params}}
}

// Data returns the public properties of the resulting snapshot.
func (r *TestResult) Data() map[string]any {
	if r.Snapshot == nil {
		return nil
	}
	return r.Snapshot.ServerMemo.Data()
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// HasEmit checks if the component queued event for the client.
func (r *TestResult) HasEmit(event string) bool {
	if r.Snapshot == nil {
		return false
	}
	switch emits := r.Snapshot.Effects["emits"].(type) {
	case []Emit:
		for _, e := range emits {
			if e.Event == event {
				return true
			}
		}
	case []any:
		// Decoded from a JSON response.
		for _, e := range emits {
			if m, ok := e.(map[string]any); ok && m["event"] == event {
				return true
			}
		}
	}
	return false
}

// HasEvent checks if an event was triggered through the HX-Trigger header.
func (r *TestResult) HasEvent(event string) bool {
	for _, e := range r.TriggeredEvents {
		if e == event {
			return true
		}
	}
	return false
}

// Dirty returns the properties the round trip changed.
func (r *TestResult) Dirty() []string {
	if r.Snapshot == nil {
		return nil
	}
	switch dirty := r.Snapshot.Effects["dirty"].(type) {
	case []string:
		return dirty
	case []any:
		out := make([]string, 0, len(dirty))
		for _, d := range dirty {
			if s, ok := d.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}

// parseTriggerHeader returns the event names of an HX-Trigger header,
// sorted. The header is either JSON or a comma-separated list.
func parseTriggerHeader(trigger string) []string {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		return nil
	}

	if strings.HasPrefix(trigger, "{") {
		var events map[string]json.RawMessage
		if err := json.Unmarshal([]byte(trigger), &events); err != nil {
			return nil
		}
		names := make([]string, 0, len(events))
		for name := range events {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	}

	parts := strings.Split(trigger, ",")
	events := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			events = append(events, p)
		}
	}
	return events
}

// TestRequestBuilder provides a fluent interface for building HTTP test
// requests against a Handler.
//
//	result, err := hxwire.NewTestRequest("POST", "/counter").
//	    WithJSON(req).
//	    WithHeader("Accept", "application/json").
//	    Execute(handler)
type TestRequestBuilder struct {
	method  string
	url     string
	body    []byte
	headers map[string]string
	ctx     context.Context
	err     error
}

// NewTestRequest creates a new test request builder. The HX-Request header
// is set by default.
func NewTestRequest(method, url string) *TestRequestBuilder {
	return &TestRequestBuilder{
		method:  method,
		url:     url,
		headers: map[string]string{"HX-Request": "true"},
		ctx:     context.Background(),
	}
}

// WithJSON encodes v as the request body.
func (b *TestRequestBuilder) WithJSON(v any) *TestRequestBuilder {
	b.body, b.err = json.Marshal(v)
	b.headers["Content-Type"] = "application/json"
	return b
}

// WithHeader adds a header to the request.
func (b *TestRequestBuilder) WithHeader(key, value string) *TestRequestBuilder {
	b.headers[key] = value
	return b
}

// WithoutHeader removes a header, including the default HX-Request.
func (b *TestRequestBuilder) WithoutHeader(key string) *TestRequestBuilder {
	delete(b.headers, key)
	return b
}

// WithContext sets the context for the request.
func (b *TestRequestBuilder) WithContext(ctx context.Context) *TestRequestBuilder {
	b.ctx = ctx
	return b
}

// Execute executes the request against h.
func (b *TestRequestBuilder) Execute(h http.Handler) (*TestResult, error) {
	if b.err != nil {
		return nil, b.err
	}

	req := httptest.NewRequest(b.method, b.url, bytes.NewReader(b.body))
	req = req.WithContext(b.ctx)
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	result := &TestResult{
		HTML:       rec.Body.String(),
		StatusCode: rec.Code,
		Headers:    rec.Header(),
	}
	if trigger := rec.Header().Get("HX-Trigger"); trigger != "" {
		result.TriggeredEvents = parseTriggerHeader(trigger)
	}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		var snap Snapshot
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			return nil, err
		}
		result.Snapshot = &snap
		result.HTML, _ = snap.Effects["html"].(string)
	}
	return result, nil
}
