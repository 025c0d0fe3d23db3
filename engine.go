package hxwire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pthm/hxwire/lib/typecast"
)

// IdentityStore remembers the fingerprints and checksums the engine has
// issued. With a store configured, a subsequent request is only accepted
// for an instance the server rendered, carrying the latest memo issued
// for it.
//
// Record moves fp from prev to checksum atomically. prev is empty for a
// newly rendered instance; otherwise Record fails with ErrChecksumMismatch
// when prev is no longer the latest checksum, so of two requests carrying
// the same memo only one is accepted.
type IdentityStore interface {
	Record(ctx context.Context, fp Fingerprint, prev, checksum string) error
	Verify(ctx context.Context, fp Fingerprint, checksum string) error
}

// Engine runs component round trips.
//
// An Engine is configured once and then shared: every call resolves a
// fresh component instance and nothing else is mutated, so InitialRequest
// and SubsequentRequest are safe for concurrent use.
type Engine struct {
	cfg Config
	enc *Encoder

	registry   ComponentRegistry
	resolver   Resolver
	renderer   Renderer
	notifier   Notifier
	stages     *Stages
	updater    Updater
	requestCtx RequestContextFunc
	identity   IdentityStore
	logger     *slog.Logger

	metricsReg prometheus.Registerer
	metrics    *metrics
	tp         trace.TracerProvider
	tracer     trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the component registry.
func WithRegistry(r ComponentRegistry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithResolver sets the resolver used for boot, mount and action
// arguments.
func WithResolver(r Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithRenderer replaces the default TemplRenderer.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithNotifier sets where engine events are published.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithStages replaces the default middleware stages.
func WithStages(s Stages) Option {
	return func(e *Engine) { e.stages = &s }
}

// WithUpdater replaces the default ActionUpdater.
func WithUpdater(u Updater) Option {
	return func(e *Engine) { e.updater = u }
}

// WithRequestContext sets how the engine learns the current request path
// and method. The default reads RequestInfoFromContext.
func WithRequestContext(fn RequestContextFunc) Option {
	return func(e *Engine) { e.requestCtx = fn }
}

// WithIdentityStore enables server-side tracking of issued fingerprints.
func WithIdentityStore(s IdentityStore) Option {
	return func(e *Engine) { e.identity = s }
}

// WithLogger overrides Config.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics registers the engine's Prometheus collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.metricsReg = reg }
}

// WithTracerProvider sets the OpenTelemetry tracer provider. The default
// is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tp = tp }
}

// New creates an engine. Config.Key is required.
func New(cfg Config, opts ...Option) (*Engine, error) {
	cfg.defaults()

	key, err := cfg.KeyBytes()
	if err != nil {
		return nil, err
	}
	enc, err := NewEncoder(key)
	if err != nil {
		return nil, fmt.Errorf("hxwire: create encoder: %w", err)
	}

	e := &Engine{cfg: cfg, enc: enc, logger: cfg.Logger}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		e.registry = NewRegistry()
	}
	if e.resolver == nil {
		e.resolver = NewContainer()
	}
	if e.renderer == nil {
		e.renderer = TemplRenderer{}
	}
	if e.notifier == nil {
		e.notifier = NewBus()
	}
	if e.stages == nil {
		s := DefaultStages(enc)
		e.stages = &s
	}
	if e.updater == nil {
		e.updater = &ActionUpdater{Resolver: e.resolver, Notifier: e.notifier}
	}
	if e.requestCtx == nil {
		e.requestCtx = RequestInfoFromContext
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.tp == nil {
		e.tp = otel.GetTracerProvider()
	}
	e.tracer = e.tp.Tracer(cfg.TracerName)

	if e.metricsReg != nil {
		e.metrics = newMetrics(e.metricsReg, cfg.MetricsNamespace)
	}
	return e, nil
}

// Encoder returns the encoder that signs and seals memos, for custom
// middleware.
func (e *Engine) Encoder() *Encoder {
	return e.enc
}

// Notifier returns the configured notifier.
func (e *Engine) Notifier() Notifier {
	return e.notifier
}

// Config returns the engine configuration with defaults applied.
func (e *Engine) Config() Config {
	return e.cfg
}

// InitialRequest renders the named component for the first time and
// returns its markup with the snapshot embedded in the root element.
//
// Params are coerced against the component's MountSignature; params the
// signature does not declare are dropped.
func (e *Engine) InitialRequest(ctx context.Context, name string, params map[string]any) (markup string, err error) {
	ctx, span := e.tracer.Start(ctx, "hxwire.initial_request",
		trace.WithAttributes(attribute.String("hxwire.component", name)))
	defer e.finish(ctx, span, "initial", name, time.Now(), &err)

	c, err := e.registry.Get(ctx, name)
	if err != nil {
		return "", err
	}
	if err := e.boot(ctx, c); err != nil {
		return "", err
	}

	req := NewInitialRequest(NewFingerprint(c, e.requestCtx(ctx)))
	span.SetAttributes(attribute.String("hxwire.id", req.Fingerprint.ID))

	if err := e.stages.initialHydrate(ctx, c, req); err != nil {
		return "", err
	}
	e.logger.DebugContext(ctx, "phase complete", "component", name, "id", req.Fingerprint.ID, "phase", PhaseInitialHydrate)

	if err := e.mount(ctx, c, params); err != nil {
		return "", err
	}

	html, err := e.render(ctx, c)
	if err != nil {
		return "", err
	}

	res := NewResponse(req.Fingerprint, req.ServerMemo)
	res.HTML = html
	if err := e.stages.initialDehydrate(ctx, c, res); err != nil {
		return "", err
	}
	e.logger.DebugContext(ctx, "phase complete", "component", name, "id", req.Fingerprint.ID, "phase", PhaseInitialDehydrate)

	if err := res.EmbedInHTML(e.cfg.IDAttr, e.cfg.SnapshotAttr); err != nil {
		return "", err
	}
	if err := e.record(ctx, res, ""); err != nil {
		return "", err
	}
	return res.ToInitial(), nil
}

// SubsequentRequest restores the component from req, applies the
// client's updates, re-renders and returns the new snapshot. The rendered
// markup, with the new snapshot embedded, is in the "html" effect.
func (e *Engine) SubsequentRequest(ctx context.Context, name string, req *Request) (snap *Snapshot, err error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidFormat)
	}
	ctx, span := e.tracer.Start(ctx, "hxwire.subsequent_request",
		trace.WithAttributes(
			attribute.String("hxwire.component", name),
			attribute.String("hxwire.id", req.Fingerprint.ID),
			attribute.Int("hxwire.updates", len(req.Updates)),
		))
	defer e.finish(ctx, span, "subsequent", name, time.Now(), &err)

	c, err := e.registry.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := e.boot(ctx, c); err != nil {
		return nil, err
	}

	if err := req.Fingerprint.Validate(c); err != nil {
		return nil, err
	}
	if e.identity != nil {
		if err := e.identity.Verify(ctx, req.Fingerprint, req.ServerMemo.Checksum()); err != nil {
			return nil, err
		}
	}

	if err := e.stages.hydrate(ctx, c, req); err != nil {
		return nil, err
	}
	e.logger.DebugContext(ctx, "phase complete", "component", name, "id", req.Fingerprint.ID, "phase", PhaseHydrate)

	e.metrics.updates(name, req.Updates)
	if err := e.updater.ApplyUpdates(ctx, c, req.Updates); err != nil {
		return nil, phaseError(PhaseUpdate, e.updater, err)
	}

	html, err := e.render(ctx, c)
	if err != nil {
		return nil, err
	}

	res := NewResponse(req.Fingerprint, req.ServerMemo)
	res.HTML = html
	if err := e.stages.dehydrate(ctx, c, res); err != nil {
		return nil, err
	}
	e.logger.DebugContext(ctx, "phase complete", "component", name, "id", req.Fingerprint.ID, "phase", PhaseDehydrate)

	if err := res.EmbedInHTML(e.cfg.IDAttr, e.cfg.SnapshotAttr); err != nil {
		return nil, err
	}
	if err := e.record(ctx, res, req.ServerMemo.Checksum()); err != nil {
		return nil, err
	}
	return res.ToSubsequent(req), nil
}

// FlushState announces that any state persisted for c is obsolete.
// Nothing in a round trip calls it; applications call it when an instance
// should no longer be resumable, and subscribers such as lib/memostore
// drop what they hold.
func (e *Engine) FlushState(ctx context.Context, c Component) {
	e.notifier.Publish(ctx, StateFlushed{
		ComponentID:   c.ComponentID(),
		ComponentName: c.ComponentName(),
	})
}

func (e *Engine) boot(ctx context.Context, c Component) error {
	b, ok := c.(Booter)
	if !ok {
		return nil
	}
	var sig typecast.Signature
	if s, ok := c.(BootSignaturer); ok {
		sig = s.BootSignature()
	}
	values, err := e.resolver.ResolveArguments(ctx, sig, nil)
	if err != nil {
		return fmt.Errorf("hxwire: boot %s: %w", c.ComponentName(), err)
	}
	if err := b.Boot(ctx, typecast.Bind(sig, values)); err != nil {
		return fmt.Errorf("hxwire: boot %s: %w", c.ComponentName(), err)
	}
	return nil
}

func (e *Engine) mount(ctx context.Context, c Component, params map[string]any) error {
	m, ok := c.(Mounter)
	if !ok {
		return nil
	}
	var sig typecast.Signature
	if s, ok := c.(MountSignaturer); ok {
		sig = s.MountSignature()
	}
	cast, err := typecast.Cast(params, sig)
	if err != nil {
		return err
	}
	values, err := e.resolver.ResolveArguments(ctx, sig, cast)
	if err != nil {
		return fmt.Errorf("hxwire: mount %s: %w", c.ComponentName(), err)
	}
	if err := m.Mount(ctx, typecast.Bind(sig, values)); err != nil {
		return fmt.Errorf("hxwire: mount %s: %w", c.ComponentName(), err)
	}
	return nil
}

func (e *Engine) render(ctx context.Context, c Component) (string, error) {
	html, err := e.renderer.RenderComponent(ctx, c)
	if err != nil {
		if !errors.Is(err, ErrRenderFailed) {
			err = fmt.Errorf("%w: %s: %w", ErrRenderFailed, c.ComponentName(), err)
		}
		return "", err
	}
	if err := CheckSingleRoot(html); err != nil {
		return "", fmt.Errorf("%s: %w", c.ComponentName(), err)
	}
	return html, nil
}

func (e *Engine) record(ctx context.Context, res *Response, prev string) error {
	if e.identity == nil {
		return nil
	}
	if err := e.identity.Record(ctx, res.Fingerprint, prev, res.Memo.Checksum()); err != nil {
		return fmt.Errorf("hxwire: record identity: %w", err)
	}
	return nil
}

func (e *Engine) finish(ctx context.Context, span trace.Span, kind, name string, start time.Time, errp *error) {
	defer span.End()

	err := *errp
	e.metrics.observe(name, kind, start, err)
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	attrs := []any{"component", name, "kind", kind, "err", err}
	var pe *PhaseError
	if errors.As(err, &pe) {
		attrs = append(attrs, "phase", pe.Phase)
	}
	e.logger.WarnContext(ctx, "component request failed", attrs...)
}
