package hxwire

import (
	"context"
	"fmt"
	"sync"

	"github.com/pthm/hxwire/lib/typecast"
)

// Resolver builds the ordered argument list of a hook. Supplied values win;
// the resolver fills in the remaining declared parameters.
type Resolver interface {
	ResolveArguments(ctx context.Context, sig typecast.Signature, supplied map[string]any) ([]any, error)
}

// Container is a name-keyed dependency resolver.
//
// For each declared parameter it uses, in order: the supplied value, a
// value provided under the parameter name, the parameter default (for
// Optional parameters). Anything else is ErrUnresolvable.
//
//	deps := hxwire.NewContainer()
//	deps.Provide("store", todoStore)
type Container struct {
	mu     sync.RWMutex
	values map[string]any
	funcs  map[string]func(ctx context.Context) (any, error)
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{
		values: make(map[string]any),
		funcs:  make(map[string]func(ctx context.Context) (any, error)),
	}
}

// Provide registers a value for parameters named name.
func (c *Container) Provide(name string, value any) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
	return c
}

// ProvideFunc registers a factory called on every resolution, for
// request-scoped dependencies.
func (c *Container) ProvideFunc(name string, fn func(ctx context.Context) (any, error)) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[name] = fn
	return c
}

// ResolveArguments implements Resolver.
func (c *Container) ResolveArguments(ctx context.Context, sig typecast.Signature, supplied map[string]any) ([]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]any, 0, len(sig))
	for _, p := range sig {
		if v, ok := supplied[p.Name]; ok {
			out = append(out, v)
			continue
		}
		if v, ok := c.values[p.Name]; ok {
			out = append(out, v)
			continue
		}
		if fn, ok := c.funcs[p.Name]; ok {
			v, err := fn(ctx)
			if err != nil {
				return nil, fmt.Errorf("hxwire: resolve %q: %w", p.Name, err)
			}
			out = append(out, v)
			continue
		}
		if p.Optional {
			out = append(out, p.Default)
			continue
		}
		return nil, fmt.Errorf("%w: %q", ErrUnresolvable, p.Name)
	}
	return out, nil
}
