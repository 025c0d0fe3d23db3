package hxwire

import (
	"context"

	"github.com/pthm/hxwire/lib/typecast"
)

// ActionFunc handles a client method call. Args are coerced against the
// action's declared parameters before the call.
type ActionFunc func(ctx context.Context, args typecast.Args) error

// ActionDef is a registered client-callable method.
type ActionDef struct {
	Name      string
	Signature typecast.Signature
	Handler   ActionFunc
}

// ActionBuilder configures action registration.
//
// Returned by Base.Action() to declare the parameters the action accepts:
//
//	c.Action("increment", c.increment)
//	c.Action("rename", c.rename).Params(
//	    typecast.Param{Name: "title", Kind: typecast.String},
//	)
type ActionBuilder struct {
	action *ActionDef
}

// Params declares the action's parameters. Client params not declared
// here are dropped before the handler runs.
func (ab *ActionBuilder) Params(params ...typecast.Param) *ActionBuilder {
	ab.action.Signature = append(ab.action.Signature, params...)
	return ab
}

// Action registers a client-callable method on the component.
//
// Actions are invoked by "callMethod" updates and by "fireEvent" updates
// routed through Listen. Registration happens when the component is built,
// so every fresh instance carries the same actions.
func (b *Base) Action(name string, handler ActionFunc) *ActionBuilder {
	b.actions[name] = &ActionDef{
		Name:    name,
		Handler: handler,
	}
	return &ActionBuilder{action: b.actions[name]}
}
