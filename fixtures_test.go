package hxwire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/require"

	"github.com/pthm/hxwire/lib/typecast"
)

const testKey = "test-key-must-be-32-bytes-long!!"

// counter is the workhorse test component.
type counter struct {
	*Base
	booted  bool
	mounted typecast.Args
}

func newCounter() Component {
	c := &counter{Base: NewBase("counter")}
	c.Set("count", 0)
	c.Set("label", "clicks")
	c.Action("increment", func(ctx context.Context, args typecast.Args) error {
		c.Set("count", c.Int("count")+args.Int("by"))
		return nil
	}).Params(typecast.Param{Name: "by", Kind: typecast.Int, Optional: true, Default: 1})
	c.Action("fail", func(context.Context, typecast.Args) error {
		return errors.New("boom")
	})
	c.Action("validate", func(context.Context, typecast.Args) error {
		c.ErrorBag().Add("label", "Label is too short")
		return nil
	})
	c.Action("remember", func(ctx context.Context, args typecast.Args) error {
		c.Seal("secret", args.String("value"))
		return nil
	}).Params(typecast.Param{Name: "value", Kind: typecast.String})
	c.Action("shout", func(context.Context, typecast.Args) error {
		c.Emit("counter:shout", c.Int("count"))
		return nil
	})
	c.Action("leave", func(context.Context, typecast.Args) error {
		c.Redirect("/done")
		return nil
	})
	c.Listen("counter:bump", "increment")
	return c
}

func (c *counter) Boot(ctx context.Context, args typecast.Args) error {
	c.booted = true
	return nil
}

func (c *counter) MountSignature() typecast.Signature {
	return typecast.Signature{
		{Name: "start", Kind: typecast.Int},
		{Name: "label", Kind: typecast.String, Optional: true, Default: "clicks"},
	}
}

func (c *counter) Mount(ctx context.Context, args typecast.Args) error {
	c.mounted = args
	c.Set("count", args.Int("start"))
	c.Set("label", args.String("label"))
	return nil
}

func (c *counter) Render(ctx context.Context) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="counter"><span>%d %s</span></div>`, c.Int("count"), templ.EscapeString(c.String("label")))
		return err
	})
}

// markupComponent renders fixed markup, or fails with err.
type markupComponent struct {
	*Base
	markup string
	err    error
}

func newMarkup(name, markup string, err error) Factory {
	return func() Component {
		return &markupComponent{Base: NewBase(name), markup: markup, err: err}
	}
}

func (m *markupComponent) Render(ctx context.Context) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if m.err != nil {
			return m.err
		}
		_, err := io.WriteString(w, m.markup)
		return err
	})
}

func testRegistry() *Registry {
	return NewRegistry().
		Add("counter", newCounter).
		Add("plain", newMarkup("plain", `<p>plain</p>`, nil)).
		Add("empty", newMarkup("empty", ``, nil)).
		Add("twins", newMarkup("twins", `<p>one</p><p>two</p>`, nil)).
		Add("broken", newMarkup("broken", ``, errors.New("template exploded")))
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithRegistry(testRegistry())}, opts...)
	e, err := New(Config{Key: testKey}, opts...)
	require.NoError(t, err)
	return e
}

// initial runs an initial request and returns the embedded snapshot.
func initial(t *testing.T, e *Engine, name string, params map[string]any) *Snapshot {
	t.Helper()
	res, err := TestInitial(context.Background(), e, name, params)
	require.NoError(t, err)
	return res.Snapshot
}

// recorder is a middleware that logs every phase it takes part in.
type recorder struct {
	name string
	log  *callLog
	fail Phase
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) take() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.calls
	l.calls = nil
	return out
}

func (r *recorder) step(p Phase) error {
	r.log.add(string(p) + ":" + r.name)
	if r.fail == p {
		return fmt.Errorf("%s failed", r.name)
	}
	return nil
}

func (r *recorder) InitialHydrate(context.Context, Component, *Request) error {
	return r.step(PhaseInitialHydrate)
}

func (r *recorder) Hydrate(context.Context, Component, *Request) error {
	return r.step(PhaseHydrate)
}

func (r *recorder) InitialDehydrate(context.Context, Component, *Response) error {
	return r.step(PhaseInitialDehydrate)
}

func (r *recorder) Dehydrate(context.Context, Component, *Response) error {
	return r.step(PhaseDehydrate)
}

// memoryIdentity is an in-memory IdentityStore.
type memoryIdentity struct {
	mu      sync.Mutex
	sums    map[string]string
	records int
}

func newMemoryIdentity() *memoryIdentity {
	return &memoryIdentity{sums: make(map[string]string)}
}

func (m *memoryIdentity) Record(ctx context.Context, fp Fingerprint, prev, checksum string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev != "" && m.sums[fp.ID] != prev {
		return fmt.Errorf("%w: superseded memo", ErrChecksumMismatch)
	}
	m.sums[fp.ID] = checksum
	m.records++
	return nil
}

func (m *memoryIdentity) recorded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records
}

func (m *memoryIdentity) Verify(ctx context.Context, fp Fingerprint, checksum string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum, ok := m.sums[fp.ID]
	if !ok {
		return fmt.Errorf("%w: unknown instance", ErrFingerprintMismatch)
	}
	if sum != checksum {
		return fmt.Errorf("%w: replayed memo", ErrChecksumMismatch)
	}
	return nil
}
