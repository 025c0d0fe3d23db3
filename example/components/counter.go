package components

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/pthm/hxwire"
	"github.com/pthm/hxwire/lib/typecast"
)

//go:generate go run github.com/pthm/hxwire/cmd/hxwire generate .

// CounterParams are the mount parameters of a counter.
type CounterParams struct {
	Start int `wire:"start,optional"`
	Step  int `wire:"step,optional"`
}

// Counter is a click counter.
type Counter struct {
	*hxwire.Base
}

// NewCounter creates a counter instance.
func NewCounter() hxwire.Component {
	c := &Counter{Base: hxwire.NewBase("counter")}
	c.Set("count", 0)
	c.Set("step", 1)
	c.Action("increment", c.increment).Params(
		typecast.Param{Name: "by", Kind: typecast.Int, Optional: true, Default: 0},
	)
	c.Action("reset", c.reset)
	return c
}

func (c *Counter) MountSignature() typecast.Signature {
	return CounterParams{}.Signature()
}

func (c *Counter) Mount(ctx context.Context, args typecast.Args) error {
	var p CounterParams
	if err := p.Bind(args); err != nil {
		return err
	}
	if p.Step == 0 {
		p.Step = 1
	}
	c.Set("count", p.Start)
	c.Set("step", p.Step)
	return nil
}

func (c *Counter) increment(ctx context.Context, args typecast.Args) error {
	by := args.Int("by")
	if by == 0 {
		by = c.Int("step")
	}
	c.Set("count", c.Int("count")+by)
	if c.Int("count")%10 == 0 {
		c.Emit("counter:milestone", c.Int("count"))
	}
	return nil
}

func (c *Counter) reset(ctx context.Context, args typecast.Args) error {
	c.Set("count", 0)
	return nil
}

func (c *Counter) Render(ctx context.Context) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="counter">
  <span class="count">%d</span>
  <button hx-post="/_wire/counter" hx-target="closest [data-wire-id]" hx-swap="outerHTML" data-wire-call="increment">+%d</button>
  <button hx-post="/_wire/counter" hx-target="closest [data-wire-id]" hx-swap="outerHTML" data-wire-call="reset">reset</button>
</div>`, c.Int("count"), c.Int("step"))
		return err
	})
}
