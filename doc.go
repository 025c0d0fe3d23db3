// Package hxwire provides stateful server-rendered components for Go,
// Templ templates and HTMX.
//
// A component lives for exactly one request. Its state travels to the
// browser as a snapshot embedded in the rendered markup and comes back with
// every interaction, so the server keeps nothing between round trips.
//
// # Core Concepts
//
// Components embed *Base and return a templ.Component from Render:
//
//	type Counter struct {
//	    *hxwire.Base
//	}
//
//	func NewCounter() hxwire.Component {
//	    c := &Counter{Base: hxwire.NewBase("counter")}
//	    c.Set("count", 0)
//	    c.Action("increment", c.increment)
//	    return c
//	}
//
// Optional capabilities are plain interfaces checked at runtime: Booter
// runs on every request, Mounter runs on the first render with the caller's
// parameters coerced against MountSignature, Stateful carries public
// properties, Sealer carries encrypted server-only state.
//
// # Round Trips
//
// Engine.InitialRequest resolves the component, boots it, runs the
// initial-hydrate middleware, mounts it, renders it, runs the
// initial-dehydrate middleware and embeds the resulting snapshot in the
// root element of the markup.
//
// Engine.SubsequentRequest takes the snapshot back, validates its
// fingerprint, hydrates, applies the client's updates (syncInput,
// callMethod, fireEvent), renders and dehydrates again.
//
// Dehydration middleware run in the reverse of their registration order,
// so the first middleware to see a request is the last to touch the
// response.
//
// # Security Model
//
// The memo carries a checksum (HMAC-SHA256 over the fingerprint id, name
// and every other memo region). A modified snapshot fails with
// ErrChecksumMismatch before any state is restored. Sealed state is
// AES-GCM encrypted and opaque to clients.
//
// CSRF protection is automatic: the HTTP handler rejects update requests
// without the HX-Request: true header that HTMX sends.
//
// # Observability
//
// Engines log through log/slog, record Prometheus metrics when built
// WithMetrics and open an OpenTelemetry span per round trip.
package hxwire
