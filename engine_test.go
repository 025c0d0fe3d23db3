package hxwire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/hxwire/lib/typecast"
)

func TestInitialRequestEmbedsSnapshot(t *testing.T) {
	e := newTestEngine(t)
	ctx := WithRequestInfo(context.Background(), RequestInfo{Path: "/dashboard", Method: "GET"})

	markup, err := e.InitialRequest(ctx, "counter", map[string]any{"start": "3"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(markup, `<div class="counter" data-wire-id="`))
	assert.Contains(t, markup, "3 clicks")

	snap, err := SnapshotFromHTML(e, markup)
	require.NoError(t, err)
	assert.Equal(t, "counter", snap.Fingerprint.Name)
	assert.Equal(t, "/dashboard", snap.Fingerprint.Path)
	assert.Equal(t, "GET", snap.Fingerprint.Method)
	assert.Contains(t, markup, `data-wire-id="`+snap.Fingerprint.ID+`"`)

	assert.Equal(t, map[string]any{"count": float64(3), "label": "clicks"}, snap.ServerMemo.Data())
	assert.Equal(t, []any{}, snap.ServerMemo[MemoErrors])
	assert.NotEmpty(t, snap.ServerMemo.Checksum())
	assert.NotContains(t, snap.ServerMemo, MemoSealed)
	assert.NotEmpty(t, snap.Effects["htmlHash"])
}

func TestInitialRequestCustomAttributes(t *testing.T) {
	e, err := New(Config{Key: testKey, IDAttr: "wire:id", SnapshotAttr: "wire:initial-data"}, WithRegistry(testRegistry()))
	require.NoError(t, err)

	markup, err := e.InitialRequest(context.Background(), "plain", nil)
	require.NoError(t, err)
	assert.Contains(t, markup, `wire:id="`)

	snap, err := ExtractSnapshot(markup, "wire:initial-data")
	require.NoError(t, err)
	assert.Equal(t, "plain", snap.Fingerprint.Name)
}

func TestInitialRequestMountArguments(t *testing.T) {
	var last *counter
	reg := NewRegistry().Add("counter", func() Component {
		last = newCounter().(*counter)
		return last
	})
	e := newTestEngine(t, WithRegistry(reg))

	_, err := e.InitialRequest(context.Background(), "counter", map[string]any{
		"start":   "7",
		"label":   "taps",
		"unknown": "dropped",
	})
	require.NoError(t, err)

	require.NotNil(t, last)
	assert.True(t, last.booted)
	assert.Equal(t, typecast.Args{
		{Name: "start", Value: 7},
		{Name: "label", Value: "taps"},
	}, last.mounted)
}

func TestInitialRequestOptionalMountDefault(t *testing.T) {
	e := newTestEngine(t)

	snap := initial(t, e, "counter", map[string]any{"start": 1})
	assert.Equal(t, "clicks", snap.ServerMemo.Data()["label"])
}

func TestInitialRequestInvalidArgumentType(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.InitialRequest(context.Background(), "counter", map[string]any{"start": "many"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgumentType)
	assert.True(t, IsBadInput(err))

	var argErr *typecast.InvalidArgumentTypeError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "start", argErr.Param)
	assert.Equal(t, typecast.Int, argErr.Kind)
}

func TestInitialRequestMissingMountArgument(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.InitialRequest(context.Background(), "counter", nil)
	assert.ErrorIs(t, err, ErrUnresolvable)
}

func TestInitialRequestComponentNotFound(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.InitialRequest(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrComponentNotFound)
	assert.True(t, IsNotFound(err))
}

func TestSubsequentRequestComponentNotFound(t *testing.T) {
	ids := newMemoryIdentity()
	e := newTestEngine(t, WithIdentityStore(ids))
	req := initial(t, e, "counter", map[string]any{"start": 1}).NextRequest(CallMethod("increment", nil))
	before := req.ServerMemo.Clone()
	records := ids.recorded()

	snap, err := e.SubsequentRequest(context.Background(), "ghost", req)
	assert.ErrorIs(t, err, ErrComponentNotFound)
	assert.Nil(t, snap)
	assertSameMemo(t, before, req.ServerMemo)
	assert.Equal(t, records, ids.recorded())
}

func TestSubsequentRequestNil(t *testing.T) {
	e := newTestEngine(t)

	snap, err := e.SubsequentRequest(context.Background(), "counter", nil)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.True(t, IsStale(err))
	assert.Nil(t, snap)
}

func TestRenderContract(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name      string
		component string
		wantErr   error
	}{
		{"two roots", "twins", ErrRootTagMissing},
		{"no markup", "empty", ErrRootTagMissing},
		{"template error", "broken", ErrRenderFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.InitialRequest(context.Background(), tt.component, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRoundTripWithoutUpdatesIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	first := initial(t, e, "counter", map[string]any{"start": "5"})

	next, err := TestSubsequent(context.Background(), e, first)
	require.NoError(t, err)

	assertSameMemo(t, first.ServerMemo, next.Snapshot.ServerMemo)
	assert.Empty(t, next.Dirty())
	assert.Equal(t, first.Fingerprint, next.Snapshot.Fingerprint)
}

func TestCallMethod(t *testing.T) {
	e := newTestEngine(t)
	first := initial(t, e, "counter", map[string]any{"start": "3"})

	res, err := TestSubsequent(context.Background(), e, first, CallMethod("increment", map[string]any{"by": "2"}))
	require.NoError(t, err)

	assert.Equal(t, float64(5), toFloat(res.Data()["count"]))
	assert.Equal(t, []string{"count"}, res.Dirty())
	assert.True(t, res.HTMLContains("5 clicks"))
	assert.NotEqual(t, first.ServerMemo.Checksum(), res.Snapshot.ServerMemo.Checksum())

	embedded, err := SnapshotFromHTML(e, res.HTML)
	require.NoError(t, err)
	assert.Equal(t, res.Snapshot.ServerMemo.Checksum(), embedded.ServerMemo.Checksum())

	again, err := TestSubsequent(context.Background(), e, res.Snapshot, CallMethod("increment", nil))
	require.NoError(t, err)
	assert.Equal(t, float64(6), toFloat(again.Data()["count"]))
}

func TestUpdatesApplyInOrder(t *testing.T) {
	e := newTestEngine(t)
	first := initial(t, e, "counter", map[string]any{"start": 0})

	res, err := TestSubsequent(context.Background(), e, first,
		SyncInput("count", 10),
		CallMethod("increment", map[string]any{"by": 5}),
		SyncInput("label", "points"),
	)
	require.NoError(t, err)

	assert.Equal(t, float64(15), toFloat(res.Data()["count"]))
	assert.Equal(t, "points", res.Data()["label"])
	assert.Equal(t, []string{"count", "label"}, res.Dirty())
	assert.True(t, res.HTMLContains("15 points"))
}

func TestFireEventRoutesToListener(t *testing.T) {
	e := newTestEngine(t)
	first := initial(t, e, "counter", map[string]any{"start": 1})

	res, err := TestSubsequent(context.Background(), e, first,
		FireEvent("counter:bump", map[string]any{"by": 4}),
		FireEvent("nobody:listens", nil),
	)
	require.NoError(t, err)
	assert.Equal(t, float64(5), toFloat(res.Data()["count"]))
}

func TestUpdateFailures(t *testing.T) {
	e := newTestEngine(t)
	first := initial(t, e, "counter", map[string]any{"start": 1})

	tests := []struct {
		name    string
		update  Update
		wantErr error
	}{
		{"unknown property", SyncInput("secret", "x"), ErrInvalidUpdate},
		{"unknown method", CallMethod("explode", nil), ErrActionNotFound},
		{"unknown type", Update{Type: "teleport", Payload: map[string]any{}}, ErrInvalidUpdate},
		{"bad param", CallMethod("increment", map[string]any{"by": "lots"}), ErrInvalidArgumentType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TestSubsequent(context.Background(), e, first, tt.update)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsBadInput(err))

			var pe *PhaseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, PhaseUpdate, pe.Phase)
		})
	}

	t.Run("action error", func(t *testing.T) {
		_, err := TestSubsequent(context.Background(), e, first, CallMethod("fail", nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.False(t, IsBadInput(err))
	})
}

func TestEmitsAndNavigation(t *testing.T) {
	e := newTestEngine(t)
	first := initial(t, e, "counter", map[string]any{"start": 2})

	res, err := TestSubsequent(context.Background(), e, first, CallMethod("shout", nil))
	require.NoError(t, err)
	assert.True(t, res.HasEmit("counter:shout"))
	assert.Equal(t, []Emit{{Event: "counter:shout", Params: []any{2}}}, res.Snapshot.Effects["emits"])

	res, err = TestSubsequent(context.Background(), e, first, CallMethod("leave", nil))
	require.NoError(t, err)
	assert.Equal(t, "/done", res.Snapshot.Effects["redirect"])
	assert.False(t, res.HasEmit("counter:shout"))
}

func TestFingerprintMismatch(t *testing.T) {
	e := newTestEngine(t)
	first := initial(t, e, "counter", map[string]any{"start": 1})

	t.Run("other component", func(t *testing.T) {
		req, err := NextRequest(first)
		require.NoError(t, err)
		_, err = e.SubsequentRequest(context.Background(), "plain", req)
		assert.ErrorIs(t, err, ErrFingerprintMismatch)
		assert.True(t, IsStale(err))
	})

	t.Run("malformed id", func(t *testing.T) {
		req, err := NextRequest(first)
		require.NoError(t, err)
		req.Fingerprint.ID = "not-a-uuid"
		_, err = e.SubsequentRequest(context.Background(), "counter", req)
		assert.ErrorIs(t, err, ErrFingerprintMismatch)
	})

	t.Run("memo moved to another instance", func(t *testing.T) {
		req, err := NextRequest(first)
		require.NoError(t, err)
		req.Fingerprint.ID = uuid.NewString()
		_, err = e.SubsequentRequest(context.Background(), "counter", req)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})
}

func TestChecksumRejectsTampering(t *testing.T) {
	e := newTestEngine(t)
	first := initial(t, e, "counter", map[string]any{"start": 1})

	tests := []struct {
		name   string
		tamper func(m Memo)
	}{
		{"data changed", func(m Memo) { m.Data()["count"] = 1000 }},
		{"data added", func(m Memo) { m.Data()["admin"] = true }},
		{"errors injected", func(m Memo) { m[MemoErrors] = map[string]any{"x": []any{"y"}} }},
		{"checksum dropped", func(m Memo) { delete(m, MemoChecksum) }},
		{"checksum forged", func(m Memo) { m[MemoChecksum] = strings.Repeat("0", 64) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NextRequest(first)
			require.NoError(t, err)
			tt.tamper(req.ServerMemo)

			_, err = e.SubsequentRequest(context.Background(), "counter", req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrChecksumMismatch)

			var pe *PhaseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, PhaseHydrate, pe.Phase)
			assert.Equal(t, "*hxwire.ChecksumMiddleware", pe.Middleware)
		})
	}
}

func TestChecksumBoundToKey(t *testing.T) {
	first := initial(t, newTestEngine(t), "counter", map[string]any{"start": 1})

	other, err := New(Config{Key: "another-key-that-is-32-bytes-lng"}, WithRegistry(testRegistry()))
	require.NoError(t, err)

	_, err = TestSubsequent(context.Background(), other, first)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestSealedState(t *testing.T) {
	e := newTestEngine(t)
	first := initial(t, e, "counter", map[string]any{"start": 1})

	res, err := TestSubsequent(context.Background(), e, first, CallMethod("remember", map[string]any{"value": "s3cret"}))
	require.NoError(t, err)

	sealed, ok := res.Snapshot.ServerMemo[MemoSealed].(string)
	require.True(t, ok)
	assert.NotContains(t, sealed, "s3cret")
	assert.NotContains(t, res.HTML, "s3cret")

	info, err := Inspect(e.Encoder(), res.Snapshot)
	require.NoError(t, err)
	assert.Empty(t, info.ChecksumError)
	assert.Equal(t, "s3cret", info.Sealed["secret"])

	// Untouched sealed state keeps its ciphertext.
	next, err := TestSubsequent(context.Background(), e, res.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, sealed, next.Snapshot.ServerMemo[MemoSealed])
	assertSameMemo(t, res.Snapshot.ServerMemo, next.Snapshot.ServerMemo)
}

func TestSealedStateUndecryptable(t *testing.T) {
	e := newTestEngine(t)
	first := initial(t, e, "counter", map[string]any{"start": 1})

	req, err := NextRequest(first)
	require.NoError(t, err)
	req.ServerMemo[MemoSealed] = "bm90IGNpcGhlcnRleHQgYXQgYWxsIGp1c3QgcGFkZGluZw"
	resign(t, e, req)

	_, err = e.SubsequentRequest(context.Background(), "counter", req)
	require.Error(t, err)
	assert.True(t, IsStale(err))

	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "*hxwire.SealedMiddleware", pe.Middleware)
}

func TestErrorBagRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	first := initial(t, e, "counter", map[string]any{"start": 1})

	res, err := TestSubsequent(context.Background(), e, first, CallMethod("validate", nil))
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"label": {"Label is too short"}}, res.Snapshot.ServerMemo[MemoErrors])

	next, err := TestSubsequent(context.Background(), e, res.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"label": {"Label is too short"}}, next.Snapshot.ServerMemo[MemoErrors])
}

func TestSubsequentRequestDoesNotMutateRequest(t *testing.T) {
	e := newTestEngine(t)
	first := initial(t, e, "counter", map[string]any{"start": 1})

	req, err := NextRequest(first, CallMethod("increment", nil), CallMethod("remember", map[string]any{"value": "x"}))
	require.NoError(t, err)
	before, err := NextRequest(first, CallMethod("increment", nil), CallMethod("remember", map[string]any{"value": "x"}))
	require.NoError(t, err)

	_, err = e.SubsequentRequest(context.Background(), "counter", req)
	require.NoError(t, err)
	assert.Equal(t, before, req)
}

func TestMiddlewareOrder(t *testing.T) {
	log := &callLog{}
	a := &recorder{name: "a", log: log}
	b := &recorder{name: "b", log: log}
	c := &recorder{name: "c", log: log}
	e := newTestEngine(t, WithStages(UniformStages(a, b, c)))

	res, err := TestInitial(context.Background(), e, "plain", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"initial-hydrate:a", "initial-hydrate:b", "initial-hydrate:c",
		"initial-dehydrate:c", "initial-dehydrate:b", "initial-dehydrate:a",
	}, log.take())

	_, err = TestSubsequent(context.Background(), e, res.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"hydrate:a", "hydrate:b", "hydrate:c",
		"dehydrate:c", "dehydrate:b", "dehydrate:a",
	}, log.take())
}

func TestMiddlewareFailureStopsPipeline(t *testing.T) {
	log := &callLog{}
	a := &recorder{name: "a", log: log}
	b := &recorder{name: "b", log: log, fail: PhaseHydrate}
	c := &recorder{name: "c", log: log}
	e := newTestEngine(t, WithStages(UniformStages(a, b, c)))

	res, err := TestInitial(context.Background(), e, "plain", nil)
	require.NoError(t, err)
	log.take()

	_, err = TestSubsequent(context.Background(), e, res.Snapshot)
	require.Error(t, err)
	assert.Equal(t, []string{"hydrate:a", "hydrate:b"}, log.take())

	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseHydrate, pe.Phase)
	assert.Equal(t, "*hxwire.recorder", pe.Middleware)
	assert.EqualError(t, pe.Err, "b failed")
}

func TestFlushStatePublishes(t *testing.T) {
	bus := NewBus()
	e := newTestEngine(t, WithNotifier(bus))

	var got []Event
	bus.Subscribe(func(ctx context.Context, ev Event) { got = append(got, ev) })

	c := newCounter()
	e.FlushState(context.Background(), c)

	require.Len(t, got, 1)
	assert.Equal(t, StateFlushed{ComponentID: c.ComponentID(), ComponentName: "counter"}, got[0])
}

func TestMethodCallingVeto(t *testing.T) {
	bus := NewBus()
	e := newTestEngine(t, WithNotifier(bus))
	bus.Subscribe(func(ctx context.Context, ev Event) {
		if mc, ok := ev.(*MethodCalling); ok && mc.Method == "increment" {
			mc.Skip = true
		}
	})

	first := initial(t, e, "counter", map[string]any{"start": 1})
	res, err := TestSubsequent(context.Background(), e, first,
		CallMethod("increment", nil),
		SyncInput("label", "vetoed"),
	)
	require.NoError(t, err)
	assert.Equal(t, float64(1), toFloat(res.Data()["count"]))
	assert.Equal(t, "vetoed", res.Data()["label"])
}

type storeUser struct {
	*Base
	store any
}

func (s *storeUser) BootSignature() typecast.Signature {
	return typecast.Signature{{Name: "store"}}
}

func (s *storeUser) Boot(ctx context.Context, args typecast.Args) error {
	s.store, _ = args.Value("store")
	return nil
}

func (s *storeUser) Render(ctx context.Context) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<p>%v</p>", s.store)
		return err
	})
}

func TestBootResolvesDependencies(t *testing.T) {
	reg := NewRegistry().Add("users", func() Component { return &storeUser{Base: NewBase("users")} })

	e := newTestEngine(t, WithRegistry(reg), WithResolver(NewContainer().Provide("store", "postgres")))
	markup, err := e.InitialRequest(context.Background(), "users", nil)
	require.NoError(t, err)
	assert.Contains(t, markup, "postgres")

	bare := newTestEngine(t, WithRegistry(reg))
	_, err = bare.InitialRequest(context.Background(), "users", nil)
	assert.ErrorIs(t, err, ErrUnresolvable)
}

func TestIdentityStore(t *testing.T) {
	ids := newMemoryIdentity()
	e := newTestEngine(t, WithIdentityStore(ids))
	first := initial(t, e, "counter", map[string]any{"start": 1})

	second, err := TestSubsequent(context.Background(), e, first, CallMethod("increment", nil))
	require.NoError(t, err)

	_, err = TestSubsequent(context.Background(), e, second.Snapshot)
	require.NoError(t, err)

	t.Run("replayed snapshot", func(t *testing.T) {
		_, err := TestSubsequent(context.Background(), e, first)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("never issued", func(t *testing.T) {
		stranger := initial(t, newTestEngine(t), "counter", map[string]any{"start": 1})
		_, err := TestSubsequent(context.Background(), e, stranger)
		assert.ErrorIs(t, err, ErrFingerprintMismatch)
	})
}

// unencodable adds an effect that cannot be serialized while armed.
type unencodable struct {
	armed *bool
}

func (u unencodable) InitialHydrate(context.Context, Component, *Request) error { return nil }
func (u unencodable) Hydrate(context.Context, Component, *Request) error        { return nil }

func (u unencodable) InitialDehydrate(ctx context.Context, c Component, res *Response) error {
	return u.Dehydrate(ctx, c, res)
}

func (u unencodable) Dehydrate(ctx context.Context, c Component, res *Response) error {
	if *u.armed {
		res.Effects["callback"] = func() {}
	}
	return nil
}

func TestIdentityNotRecordedWhenEmbedFails(t *testing.T) {
	ctx := context.Background()
	enc, err := NewEncoder([]byte(testKey))
	require.NoError(t, err)

	armed := false
	ids := newMemoryIdentity()
	e := newTestEngine(t,
		WithIdentityStore(ids),
		WithStages(UniformStages(
			NewChecksumMiddleware(enc),
			NewSealedMiddleware(enc),
			ErrorBagMiddleware{},
			PropertiesMiddleware{},
			EffectsMiddleware{},
			unencodable{armed: &armed},
		)),
	)

	first := initial(t, e, "counter", map[string]any{"start": 1})
	records := ids.recorded()

	armed = true
	_, err = e.InitialRequest(ctx, "counter", map[string]any{"start": 1})
	require.Error(t, err)
	_, err = TestSubsequent(ctx, e, first, CallMethod("increment", nil))
	require.Error(t, err)
	assert.Equal(t, records, ids.recorded())

	armed = false
	next, err := TestSubsequent(ctx, e, first, CallMethod("increment", nil))
	require.NoError(t, err)
	assert.Equal(t, float64(2), toFloat(next.Data()["count"]))
}

// lateIdentity verifies every memo, as if a concurrent request carrying the
// same memo had not been recorded yet.
type lateIdentity struct {
	*memoryIdentity
}

func (lateIdentity) Verify(context.Context, Fingerprint, string) error { return nil }

func TestIdentityStoreRejectsSupersededMemo(t *testing.T) {
	ctx := context.Background()
	ids := lateIdentity{newMemoryIdentity()}
	e := newTestEngine(t, WithIdentityStore(ids))
	first := initial(t, e, "counter", map[string]any{"start": 1})

	_, err := TestSubsequent(ctx, e, first, CallMethod("increment", nil))
	require.NoError(t, err)

	_, err = TestSubsequent(ctx, e, first, CallMethod("increment", nil))
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.True(t, IsStale(err))
}

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := newTestEngine(t, WithMetrics(reg))

	first := initial(t, e, "counter", map[string]any{"start": 1})
	_, err := TestSubsequent(context.Background(), e, first, CallMethod("increment", nil), SyncInput("label", "x"))
	require.NoError(t, err)
	_, err = e.InitialRequest(context.Background(), "nope", nil)
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, float64(1), counterValue(t, families, "hxwire_requests_total",
		map[string]string{"component": "counter", "kind": "initial", "status": "ok"}))
	assert.Equal(t, float64(1), counterValue(t, families, "hxwire_requests_total",
		map[string]string{"component": "counter", "kind": "subsequent", "status": "ok"}))
	assert.Equal(t, float64(1), counterValue(t, families, "hxwire_errors_total",
		map[string]string{"component": "nope", "error_type": "not_found"}))
	assert.Equal(t, float64(1), counterValue(t, families, "hxwire_updates_total",
		map[string]string{"component": "counter", "type": UpdateCallMethod}))
	assert.Equal(t, float64(1), counterValue(t, families, "hxwire_updates_total",
		map[string]string{"component": "counter", "type": UpdateSyncInput}))
}

func TestEngineLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newTestEngine(t, WithLogger(logger))

	first := initial(t, e, "counter", map[string]any{"start": 1})
	assert.Contains(t, buf.String(), `"msg":"phase complete"`)

	buf.Reset()
	req, err := NextRequest(first)
	require.NoError(t, err)
	req.ServerMemo.Data()["count"] = 99
	_, err = e.SubsequentRequest(context.Background(), "counter", req)
	require.Error(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lastLine(buf.Bytes()), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "component request failed", entry["msg"])
	assert.Equal(t, "counter", entry["component"])
	assert.Equal(t, "subsequent", entry["kind"])
	assert.Equal(t, string(PhaseHydrate), entry["phase"])
}

func TestEngineConcurrentRoundTrips(t *testing.T) {
	e := newTestEngine(t)
	first := initial(t, e, "counter", map[string]any{"start": 0})

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(by int) {
			defer wg.Done()
			res, err := TestSubsequent(context.Background(), e, first, CallMethod("increment", map[string]any{"by": by}))
			if err != nil {
				errs <- err
				return
			}
			if got := toFloat(res.Data()["count"]); got != float64(by) {
				errs <- errors.New("cross-talk between concurrent round trips")
			}
		}(i + 1)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Key: "hex:zz"})
	assert.Error(t, err)
}

// assertSameMemo compares memos by their JSON encoding, since numbers
// restored from the wire are float64.
func assertSameMemo(t *testing.T, want, got Memo) {
	t.Helper()
	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)
	gotJSON, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantJSON), string(gotJSON))
}

func resign(t *testing.T, e *Engine, req *Request) {
	t.Helper()
	data, err := checksumInput(req.Fingerprint, req.ServerMemo)
	require.NoError(t, err)
	req.ServerMemo[MemoChecksum] = e.Encoder().Checksum(data)
}

func toFloat(v any) float64 {
	f, _ := typecast.Value(typecast.Float, v)
	n, _ := f.(float64)
	return n
}

func lastLine(b []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(b), []byte("\n"))
	return lines[len(lines)-1]
}

func counterValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m.GetLabel(), labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if want[p.GetName()] != p.GetValue() {
			return false
		}
	}
	return true
}
