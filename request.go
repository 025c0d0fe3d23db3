package hxwire

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Update types understood by ActionUpdater.
const (
	UpdateSyncInput  = "syncInput"
	UpdateCallMethod = "callMethod"
	UpdateFireEvent  = "fireEvent"
)

// Update is one client-submitted mutation.
//
//	{"type": "syncInput",  "payload": {"name": "title", "value": "Groceries"}}
//	{"type": "callMethod", "payload": {"method": "increment", "params": {"by": "2"}}}
//	{"type": "fireEvent",  "payload": {"event": "todo:added", "params": {"id": 7}}}
type Update struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Request is the inbound side of a round trip.
type Request struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	Updates     []Update    `json:"updates"`
	ServerMemo  Memo        `json:"serverMemo"`
}

// NewInitialRequest builds the empty request of a first render.
func NewInitialRequest(fp Fingerprint) *Request {
	return &Request{
		Fingerprint: fp,
		Updates:     []Update{},
		ServerMemo: Memo{
			MemoErrors: []any{},
		},
	}
}

// DecodeRequest parses the JSON wire shape of a subsequent request.
func DecodeRequest(r io.Reader) (*Request, error) {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if req.ServerMemo == nil {
		req.ServerMemo = Memo{}
	}
	return &req, nil
}

// Response is the outbound side of a round trip. Dehydration middleware
// write their memo regions and effects into it.
type Response struct {
	Fingerprint Fingerprint
	Memo        Memo
	Effects     Effects

	// HTML is the rendered markup. Only the initial response sends it.
	HTML string
}

// NewResponse starts a response from the request's fingerprint and memo.
// The memo is copied, so dehydration never alters the request.
func NewResponse(fp Fingerprint, memo Memo) *Response {
	return &Response{
		Fingerprint: fp,
		Memo:        memo.Clone(),
		Effects:     Effects{},
	}
}

// Snapshot is the client-facing state of a component: what the initial
// response embeds in markup and what a subsequent response returns.
type Snapshot struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	ServerMemo  Memo        `json:"serverMemo"`
	Effects     Effects     `json:"effects,omitempty"`
}

// Snapshot returns the client-facing state of the response.
func (r *Response) Snapshot() *Snapshot {
	return &Snapshot{
		Fingerprint: r.Fingerprint,
		ServerMemo:  r.Memo,
		Effects:     r.Effects,
	}
}

// ToInitial returns the markup of a first render. EmbedInHTML must have run.
func (r *Response) ToInitial() string {
	return r.HTML
}

// ToSubsequent returns the update payload for req. Public properties whose
// value changed during the round trip are listed in effects["dirty"]; the
// re-rendered markup is in effects["html"].
func (r *Response) ToSubsequent(req *Request) *Snapshot {
	if dirty := dirtyProperties(req.ServerMemo.Data(), r.Memo.Data()); len(dirty) > 0 {
		r.Effects["dirty"] = dirty
	}
	if r.HTML != "" {
		r.Effects["html"] = r.HTML
	}
	return r.Snapshot()
}

// NextRequest builds the request a client would send after receiving s.
func (s *Snapshot) NextRequest(updates ...Update) *Request {
	if updates == nil {
		updates = []Update{}
	}
	return &Request{
		Fingerprint: s.Fingerprint,
		Updates:     updates,
		ServerMemo:  s.ServerMemo.Clone(),
	}
}

func dirtyProperties(before, after map[string]any) []string {
	var dirty []string
	for k, v := range after {
		old, ok := before[k]
		if !ok || !sameJSON(old, v) {
			dirty = append(dirty, k)
		}
	}
	sort.Strings(dirty)
	return dirty
}
