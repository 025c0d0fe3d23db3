package hxwire

import (
	"fmt"
	"maps"

	"github.com/google/uuid"

	"github.com/pthm/hxwire/lib/typecast"
)

// Base is the type embedded by user components.
//
// Base holds the component identity, an open bag of public properties, the
// error bag, registered actions and listeners, queued client events and
// sealed server-only state. Embedding promotes all of it onto the user's
// component type:
//
//	type Counter struct {
//	    *hxwire.Base
//	}
//
//	func NewCounter() hxwire.Component {
//	    c := &Counter{Base: hxwire.NewBase("counter")}
//	    c.Set("count", 0)
//	    c.Action("increment", c.increment).Params(
//	        typecast.Param{Name: "by", Kind: typecast.Int, Optional: true, Default: 1},
//	    )
//	    return c
//	}
//
// Public properties travel to the client in the clear (tamper-proof via the
// memo checksum). Use Seal for values the client must not read.
type Base struct {
	id        string
	name      string
	data      map[string]any
	errors    *ErrorBag
	actions   map[string]*ActionDef
	listeners map[string]string
	emits     []Emit
	sealed    map[string]any
	redirect  string
	pushURL   string
}

// NewBase creates the embeddable part of a component named name with a
// freshly generated id.
func NewBase(name string) *Base {
	return &Base{
		id:        uuid.NewString(),
		name:      name,
		data:      make(map[string]any),
		errors:    NewErrorBag(),
		actions:   make(map[string]*ActionDef),
		listeners: make(map[string]string),
		sealed:    make(map[string]any),
	}
}

// ComponentID returns the instance id.
func (b *Base) ComponentID() string {
	return b.id
}

// ComponentName returns the component name used for registry lookups.
func (b *Base) ComponentName() string {
	return b.name
}

// SetComponentID adopts the id of a previously issued fingerprint.
func (b *Base) SetComponentID(id string) {
	b.id = id
}

// Get returns a public property.
func (b *Base) Get(name string) any {
	return b.data[name]
}

// Set declares or updates a public property.
func (b *Base) Set(name string, value any) {
	b.data[name] = value
}

// Int returns a public property as an int. Properties restored from a
// snapshot hold JSON numbers, so this is the usual way to read counters.
func (b *Base) Int(name string) int {
	v, err := typecast.Value(typecast.Int, b.data[name])
	if err != nil {
		return 0
	}
	return v.(int)
}

func (b *Base) Float(name string) float64 {
	v, err := typecast.Value(typecast.Float, b.data[name])
	if err != nil {
		return 0
	}
	return v.(float64)
}

func (b *Base) String(name string) string {
	s, _ := b.data[name].(string)
	return s
}

func (b *Base) Bool(name string) bool {
	v, _ := b.data[name].(bool)
	return v
}

// Snapshot returns a copy of the public properties.
func (b *Base) Snapshot() map[string]any {
	return maps.Clone(b.data)
}

// Restore replaces the public properties with a snapshot.
func (b *Base) Restore(data map[string]any) error {
	b.data = make(map[string]any, len(data))
	maps.Copy(b.data, data)
	return nil
}

// SetProperty updates a declared public property on behalf of the client.
// Undeclared properties are rejected so clients cannot grow the snapshot.
func (b *Base) SetProperty(name string, value any) error {
	if _, ok := b.data[name]; !ok {
		return fmt.Errorf("%w: unknown property %q", ErrInvalidUpdate, name)
	}
	b.data[name] = value
	return nil
}

// ErrorBag returns the component's validation messages.
func (b *Base) ErrorBag() *ErrorBag {
	return b.errors
}

// LookupAction returns a registered action.
func (b *Base) LookupAction(name string) (*ActionDef, bool) {
	a, ok := b.actions[name]
	return a, ok
}

// Listen routes a client-fired event to a registered action.
func (b *Base) Listen(event, action string) {
	b.listeners[event] = action
}

// Listeners returns the event → action routing table.
func (b *Base) Listeners() map[string]string {
	return b.listeners
}

// Emit queues an event for the client. Queued events are delivered in the
// response effects of the current round trip.
func (b *Base) Emit(event string, params ...any) {
	b.emits = append(b.emits, Emit{Event: event, Params: params})
}

// Emitted returns the events queued during this round trip.
func (b *Base) Emitted() []Emit {
	return b.emits
}

// Redirect asks the client to navigate to url after this round trip.
func (b *Base) Redirect(url string) {
	b.redirect = url
}

// PushURL asks the client to push url onto the browser history without
// navigating.
func (b *Base) PushURL(url string) {
	b.pushURL = url
}

// Navigation returns the redirect and pushed URL requested during this
// round trip.
func (b *Base) Navigation() (redirect, pushURL string) {
	return b.redirect, b.pushURL
}

// Seal stores server-only state. It round-trips encrypted.
func (b *Base) Seal(key string, value any) {
	b.sealed[key] = value
}

// Unsealed returns server-only state stored with Seal.
func (b *Base) Unsealed(key string) any {
	return b.sealed[key]
}

// Sealed returns a copy of the server-only state.
func (b *Base) Sealed() map[string]any {
	return maps.Clone(b.sealed)
}

// Unseal replaces the server-only state.
func (b *Base) Unseal(state map[string]any) error {
	b.sealed = make(map[string]any, len(state))
	maps.Copy(b.sealed, state)
	return nil
}

// Emit is an event raised by a component for the client.
type Emit struct {
	Event  string `json:"event"`
	Params []any  `json:"params"`
}
