package hxwire

import (
	"context"

	"github.com/a-h/templ"

	"github.com/pthm/hxwire/lib/typecast"
)

// Component is a server-held UI widget whose state lives on the client
// between round trips.
//
// A fresh Component is built for every call; nothing survives in process.
// State is rebuilt by the hydration pipeline from the snapshot the client
// sends back and captured again by the dehydration pipeline.
//
// Most components embed *Base, which implements everything here except
// Render:
//
//	type Counter struct {
//	    *hxwire.Base
//	}
//
//	func (c *Counter) Render(ctx context.Context) templ.Component {
//	    return counterView(c.Int("count"))
//	}
type Component interface {
	ComponentID() string
	ComponentName() string
	Render(ctx context.Context) templ.Component
}

// Identifiable components accept the id carried by a subsequent request's
// fingerprint. Components that cannot adopt an id fail fingerprint
// validation unless their own id already matches.
type Identifiable interface {
	SetComponentID(id string)
}

// Booter is implemented by components that need setup on every call,
// initial or subsequent. Arguments come from the Resolver only; client
// input never reaches Boot.
type Booter interface {
	Boot(ctx context.Context, args typecast.Args) error
}

// BootSignaturer declares the parameters Boot expects.
// Components without it receive empty Args.
type BootSignaturer interface {
	BootSignature() typecast.Signature
}

// Mounter is implemented by components that initialize state on first
// render. Mount runs once per component instance, never on updates.
type Mounter interface {
	Mount(ctx context.Context, args typecast.Args) error
}

// MountSignaturer declares the parameters Mount expects. Caller params are
// coerced against it; params it does not declare are dropped.
type MountSignaturer interface {
	MountSignature() typecast.Signature
}

// Stateful components expose their public properties for snapshotting.
//
// Snapshot must return only values that survive a JSON round trip.
// Restore receives the decoded snapshot of the previous round trip, so
// numbers arrive as float64 and objects as map[string]any.
type Stateful interface {
	Snapshot() map[string]any
	Restore(data map[string]any) error
	SetProperty(name string, value any) error
}

// ErrorBagHolder components carry validation messages across round trips.
type ErrorBagHolder interface {
	ErrorBag() *ErrorBag
}

// Sealer components keep server-only state in the snapshot. Sealed state
// is encrypted before it leaves the server.
type Sealer interface {
	Sealed() map[string]any
	Unseal(state map[string]any) error
}

// Actionable components expose methods the client may call.
type Actionable interface {
	LookupAction(name string) (*ActionDef, bool)
}

// Listener components map client-fired events to actions.
type Listener interface {
	Listeners() map[string]string
}

// Emitter components queue events for the client.
type Emitter interface {
	Emitted() []Emit
}

// Navigator is implemented by components that can ask the client to
// navigate.
type Navigator interface {
	Navigation() (redirect, pushURL string)
}
