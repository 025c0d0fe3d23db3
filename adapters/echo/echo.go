// Package hxwireecho provides Echo framework integration for hxwire
// components.
//
// Mount the round-trip endpoints onto an Echo instance or group:
//
//	e := echo.New()
//	hxwireecho.Mount(e, engine)
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	hxwireecho.MountGroup(g, engine)
package hxwireecho

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hxwire"
)

// Option configures Mount and MountGroup.
type Option func(*options)

type options struct {
	path    string
	onError func(http.ResponseWriter, *http.Request, error)
}

// WithPath sets the URL path prefix for component routes.
// Defaults to "/_wire/".
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithErrorHandler replaces the handler's default error responses.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// Mount serves engine's round trips on an Echo instance.
func Mount(e *echo.Echo, engine *hxwire.Engine, opts ...Option) {
	o := newOptions(opts)
	e.Any(o.path+"*", wrap(newHandler(engine, o)))
}

// MountGroup serves engine's round trips on an Echo group, so components
// share the group's middleware (auth, logging, etc.).
func MountGroup(g *echo.Group, engine *hxwire.Engine, opts ...Option) {
	o := newOptions(opts)
	g.Any(o.path+"*", wrap(newHandler(engine, o)))
}

func newOptions(opts []Option) *options {
	o := &options{path: "/_wire/"}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newHandler(engine *hxwire.Engine, o *options) *hxwire.Handler {
	h := hxwire.NewHandler(engine)
	if o.onError != nil {
		h.OnError = o.onError
	}
	return h
}

// wrap hands the request to h with the path rewritten to the part matched
// by the wildcard, wherever the route is mounted.
func wrap(h http.Handler) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request().Clone(c.Request().Context())
		r.URL.Path = "/" + c.Param("*")
		r.URL.RawPath = ""
		h.ServeHTTP(c.Response(), r)
		return nil
	}
}

// Render writes the first render of the named component. The fingerprint
// records the current request's path and method.
//
//	func handler(c echo.Context) error {
//	    return hxwireecho.Render(c, engine, "counter", map[string]any{"start": 3})
//	}
func Render(c echo.Context, engine *hxwire.Engine, name string, params map[string]any) error {
	r := c.Request()
	ctx := hxwire.WithRequestInfo(r.Context(), hxwire.RequestInfoFromHTTP(r))
	markup, err := engine.InitialRequest(ctx, name, params)
	if err != nil {
		code := hxwire.StatusCode(err)
		return echo.NewHTTPError(code, http.StatusText(code)).SetInternal(err)
	}
	return c.HTML(http.StatusOK, markup)
}

// Page writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxwireecho.Page(c, layout())
//	}
func Page(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}
