package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pthm/hxwire"
	"github.com/pthm/hxwire/example/components"
	"github.com/pthm/hxwire/lib/memostore"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := &hxwire.Config{
		// In production, set a real secret through HXWIRE_KEY.
		Key:       "example-key-must-be-32-bytes!!!!",
		MemoStore: "file:hxwire-example.db",
	}
	if *configPath != "" {
		loaded, err := hxwire.LoadConfig(*configPath)
		if err != nil {
			logger.Error("load config", "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.Logger = logger

	if err := run(context.Background(), *cfg, *addr); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg hxwire.Config, addr string) error {
	deps := hxwire.NewContainer().Provide("store", NewStore())
	reg := prometheus.NewRegistry()

	opts := []hxwire.Option{
		hxwire.WithRegistry(components.Registry()),
		hxwire.WithResolver(deps),
		hxwire.WithMetrics(reg),
	}

	bus := hxwire.NewBus()
	opts = append(opts, hxwire.WithNotifier(bus))

	if cfg.MemoStore != "" {
		store, err := memostore.Open(ctx, cfg.MemoStore)
		if err != nil {
			return err
		}
		defer store.Close()
		store.SetLogger(cfg.Logger)
		defer store.Subscribe(bus)()
		opts = append(opts, hxwire.WithIdentityStore(store))
	}

	engine, err := hxwire.New(cfg, opts...)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Mount("/_wire", hxwire.NewHandler(engine))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		handleIndex(engine, w, r)
	})

	cfg.Logger.Info("starting server", "addr", addr)
	return http.ListenAndServe(addr, r)
}

func handleIndex(engine *hxwire.Engine, w http.ResponseWriter, r *http.Request) {
	ctx := hxwire.WithRequestInfo(r.Context(), hxwire.RequestInfoFromHTTP(r))

	owner, err := r.Cookie("owner")
	if err != nil {
		owner = &http.Cookie{Name: "owner", Value: uuid.NewString(), Path: "/", HttpOnly: true}
		http.SetCookie(w, owner)
	}

	params := map[string]any{}
	if start := r.URL.Query().Get("start"); start != "" {
		params["start"] = start
	}
	counter, err := engine.InitialRequest(ctx, "counter", params)
	if err != nil {
		http.Error(w, err.Error(), hxwire.StatusCode(err))
		return
	}
	todos, err := engine.InitialRequest(ctx, "todos", map[string]any{"owner": owner.Value})
	if err != nil {
		http.Error(w, err.Error(), hxwire.StatusCode(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, page, counter, todos)
}

// page wires HTMX to the wire protocol: the "wire" extension turns an
// element's data-wire-call or data-wire-model into an update and posts it
// with the snapshot of the enclosing component.
const page = `<!doctype html>
<html>
<head>
<title>hxwire example</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script>
htmx.defineExtension('wire', {
  encodeParameters: function (xhr, params, elt) {
    var root = elt.closest('[data-wire-snapshot]');
    var snap = JSON.parse(root.getAttribute('data-wire-snapshot'));
    var p = {};
    if (params instanceof FormData) { params.forEach(function (v, k) { p[k] = v; }); } else { p = params; }
    var update = elt.dataset.wireModel
      ? {type: 'syncInput', payload: {name: elt.dataset.wireModel, value: elt.value}}
      : {type: 'callMethod', payload: {method: elt.dataset.wireCall, params: p}};
    xhr.setRequestHeader('Content-Type', 'application/json');
    return JSON.stringify({fingerprint: snap.fingerprint, serverMemo: snap.serverMemo, updates: [update]});
  }
});
</script>
</head>
<body hx-ext="wire">
%s
%s
</body>
</html>`
