package hxwire

import (
	"context"
	"net/http"
)

// RequestInfo is the part of the current HTTP request a fingerprint
// records.
type RequestInfo struct {
	Path   string
	Method string
}

// RequestContextFunc returns the current request info for ctx.
type RequestContextFunc func(ctx context.Context) RequestInfo

type requestInfoKey struct{}

// WithRequestInfo stores info in ctx for the default RequestContextFunc.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromContext returns the info stored by WithRequestInfo, or the
// zero value.
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info
}

// RequestInfoFromHTTP extracts request info from r.
//
// Page handlers that render components inline should pass the page's own
// request, so the fingerprint records the page path rather than a
// component endpoint:
//
//	ctx := hxwire.WithRequestInfo(r.Context(), hxwire.RequestInfoFromHTTP(r))
//	markup, err := engine.InitialRequest(ctx, "counter", nil)
func RequestInfoFromHTTP(r *http.Request) RequestInfo {
	return RequestInfo{Path: r.URL.Path, Method: r.Method}
}

// IsHTMX returns true if the request originated from HTMX.
//
// HTMX sends HX-Request: true on all requests. The handler requires it on
// update requests as a cheap cross-origin guard.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// CurrentURL returns the current URL from the HX-Current-URL header.
//
// This is the URL the browser is currently on (not the request URL).
// Returns empty string if header not present (non-HTMX request).
func CurrentURL(r *http.Request) string {
	return r.Header.Get("HX-Current-URL")
}
