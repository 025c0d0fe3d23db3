package hxwire

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// maxRequestBytes bounds a subsequent request body.
const maxRequestBytes = 1 << 20

// Handler serves component round trips over HTTP.
//
//	GET  /{component}?param=value   initial render, returns markup
//	POST /{component}               subsequent request, JSON body
//
// Mount it under a prefix of your router:
//
//	r := chi.NewRouter()
//	r.Mount("/_wire", hxwire.NewHandler(engine))
//
// A POST answers with the re-rendered markup for HTMX swaps, or with the
// JSON snapshot when the client accepts application/json. Events queued
// with Base.Emit are forwarded in the HX-Trigger header, Base.Redirect and
// Base.PushURL in HX-Redirect and HX-Push-Url.
type Handler struct {
	engine *Engine
	router chi.Router

	// OnError is called when a round trip fails.
	// Customize this to handle errors appropriately for your application.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// NewHandler creates the HTTP handler for e.
func NewHandler(e *Engine) *Handler {
	h := &Handler{engine: e, OnError: defaultOnError}

	r := chi.NewRouter()
	r.Get("/{component}", h.initial)
	r.Post("/{component}", h.subsequent)
	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) initial(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "component")
	ctx := WithRequestInfo(r.Context(), pageInfo(r))

	markup, err := h.engine.InitialRequest(ctx, name, queryParams(r.URL.Query()))
	if err != nil {
		h.OnError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(markup))
}

func (h *Handler) subsequent(w http.ResponseWriter, r *http.Request) {
	// CSRF protection: updates require the HX-Request header, which a
	// cross-origin form cannot set.
	if !IsHTMX(r) {
		http.Error(w, "Forbidden: HTMX request required", http.StatusForbidden)
		return
	}

	name := chi.URLParam(r, "component")
	req, err := DecodeRequest(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		h.OnError(w, r, err)
		return
	}

	ctx := WithRequestInfo(r.Context(), RequestInfo{
		Path:   req.Fingerprint.Path,
		Method: req.Fingerprint.Method,
	})
	snap, err := h.engine.SubsequentRequest(ctx, name, req)
	if err != nil {
		h.OnError(w, r, err)
		return
	}

	if trigger := triggerHeader(snap.Effects); trigger != "" {
		w.Header().Set("HX-Trigger", trigger)
	}
	if redirect, _ := snap.Effects["redirect"].(string); redirect != "" {
		w.Header().Set("HX-Redirect", redirect)
	}
	if pushURL, _ := snap.Effects["pushUrl"].(string); pushURL != "" {
		w.Header().Set("HX-Push-Url", pushURL)
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
		return
	}
	html, _ := snap.Effects["html"].(string)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// StatusCode maps a round-trip error to an HTTP status. Stale snapshots
// get 419 so clients can tell "reload the component" from other failures.
func StatusCode(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsBadInput(err):
		return http.StatusBadRequest
	case IsStale(err):
		return 419
	}
	return http.StatusInternalServerError
}

func defaultOnError(w http.ResponseWriter, r *http.Request, err error) {
	switch code := StatusCode(err); code {
	case http.StatusNotFound:
		http.Error(w, "Not found", code)
	case http.StatusBadRequest:
		http.Error(w, "Bad request", code)
	case 419:
		http.Error(w, "Snapshot expired", code)
	default:
		http.Error(w, "Internal error", code)
	}
}

// pageInfo is the request info of the page a component is rendered into.
// HTMX reports the page URL in HX-Current-URL; plain requests use their own.
func pageInfo(r *http.Request) RequestInfo {
	info := RequestInfoFromHTTP(r)
	if cur := CurrentURL(r); cur != "" {
		if u, err := url.Parse(cur); err == nil && u.Path != "" {
			info.Path = u.Path
		}
	}
	return info
}

// queryParams flattens query values: one value stays a string, repeated
// keys become a list.
func queryParams(q url.Values) map[string]any {
	params := make(map[string]any, len(q))
	for k, vs := range q {
		if len(vs) == 1 {
			params[k] = vs[0]
			continue
		}
		list := make([]any, len(vs))
		for i, v := range vs {
			list[i] = v
		}
		params[k] = list
	}
	return params
}

// triggerHeader encodes queued emits in the HX-Trigger JSON form
// {"event": detail}. Repeated events keep the last params.
func triggerHeader(effects Effects) string {
	emits, _ := effects["emits"].([]Emit)
	if len(emits) == 0 {
		return ""
	}
	events := make(map[string]any, len(emits))
	for _, e := range emits {
		var detail any = e.Params
		if len(e.Params) == 1 {
			detail = e.Params[0]
		}
		events[e.Event] = detail
	}
	data, err := json.Marshal(events)
	if err != nil {
		return ""
	}
	return string(data)
}
