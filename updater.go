package hxwire

import (
	"context"
	"fmt"

	"github.com/pthm/hxwire/lib/typecast"
)

// Updater applies client-submitted updates to a hydrated component.
//
// The engine runs it as the final stage of the hydrate phase, after every
// Hydrator, so updates always see fully restored state.
type Updater interface {
	ApplyUpdates(ctx context.Context, c Component, updates []Update) error
}

// ActionUpdater is the default Updater. It understands syncInput,
// callMethod and fireEvent updates and stops at the first failure.
type ActionUpdater struct {
	Resolver Resolver
	Notifier Notifier
}

// ApplyUpdates implements Updater.
func (u *ActionUpdater) ApplyUpdates(ctx context.Context, c Component, updates []Update) error {
	for i, up := range updates {
		var err error
		switch up.Type {
		case UpdateSyncInput:
			err = u.syncInput(c, up.Payload)
		case UpdateCallMethod:
			method, _ := up.Payload["method"].(string)
			err = u.callMethod(ctx, c, method, params(up.Payload))
		case UpdateFireEvent:
			err = u.fireEvent(ctx, c, up.Payload)
		default:
			err = fmt.Errorf("%w: unknown type %q", ErrInvalidUpdate, up.Type)
		}
		if err != nil {
			return fmt.Errorf("update %d (%s): %w", i, up.Type, err)
		}
	}
	return nil
}

func (u *ActionUpdater) syncInput(c Component, payload map[string]any) error {
	s, ok := c.(Stateful)
	if !ok {
		return ErrNotStateful
	}
	name, _ := payload["name"].(string)
	if name == "" {
		return fmt.Errorf("%w: syncInput without a name", ErrInvalidUpdate)
	}
	return s.SetProperty(name, payload["value"])
}

func (u *ActionUpdater) callMethod(ctx context.Context, c Component, method string, params map[string]any) error {
	if method == "" {
		return fmt.Errorf("%w: callMethod without a method", ErrInvalidUpdate)
	}
	a, ok := c.(Actionable)
	if !ok {
		return fmt.Errorf("%w: %q", ErrActionNotFound, method)
	}
	def, ok := a.LookupAction(method)
	if !ok {
		return fmt.Errorf("%w: %q", ErrActionNotFound, method)
	}

	cast, err := typecast.Cast(params, def.Signature)
	if err != nil {
		return err
	}
	values, err := u.resolver().ResolveArguments(ctx, def.Signature, cast)
	if err != nil {
		return err
	}

	ev := &MethodCalling{Component: c, Method: method, Params: cast}
	u.notifier().Publish(ctx, ev)
	if ev.Skip {
		return nil
	}
	return def.Handler(ctx, typecast.Bind(def.Signature, values))
}

func (u *ActionUpdater) fireEvent(ctx context.Context, c Component, payload map[string]any) error {
	event, _ := payload["event"].(string)
	if event == "" {
		return fmt.Errorf("%w: fireEvent without an event", ErrInvalidUpdate)
	}
	l, ok := c.(Listener)
	if !ok {
		return nil
	}
	action, ok := l.Listeners()[event]
	if !ok {
		return nil
	}
	return u.callMethod(ctx, c, action, params(payload))
}

func (u *ActionUpdater) resolver() Resolver {
	if u.Resolver == nil {
		return NewContainer()
	}
	return u.Resolver
}

func (u *ActionUpdater) notifier() Notifier {
	if u.Notifier == nil {
		return nopNotifier{}
	}
	return u.Notifier
}

func params(payload map[string]any) map[string]any {
	p, _ := payload["params"].(map[string]any)
	if p == nil {
		return map[string]any{}
	}
	return p
}
