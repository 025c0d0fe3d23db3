package hxwire

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ComponentRegistry resolves a component name to a fresh instance.
// Implementations return an error matching ErrComponentNotFound for
// unknown names.
type ComponentRegistry interface {
	Get(ctx context.Context, name string) (Component, error)
}

// Factory builds a fresh component instance. The registry calls it once
// per round trip; instances are never reused.
type Factory func() Component

// Registry is a name → factory ComponentRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Add registers a factory under name.
// Panics on an empty name or a name collision: both are wiring mistakes
// that should fail at startup, not during requests.
func (reg *Registry) Add(name string, factory Factory) *Registry {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if name == "" {
		panic("hxwire: component name must not be empty")
	}
	if factory == nil {
		panic(fmt.Sprintf("hxwire: nil factory for %q", name))
	}
	if _, exists := reg.factories[name]; exists {
		panic(fmt.Sprintf("hxwire: component %q registered twice", name))
	}
	reg.factories[name] = factory
	return reg
}

// Get builds a fresh instance of the named component.
func (reg *Registry) Get(ctx context.Context, name string) (Component, error) {
	reg.mu.RLock()
	factory, ok := reg.factories[name]
	reg.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrComponentNotFound, name)
	}
	c := factory()
	if c == nil {
		return nil, fmt.Errorf("%w: factory for %q returned nil", ErrComponentNotFound, name)
	}
	if c.ComponentName() != name {
		return nil, fmt.Errorf("hxwire: factory for %q built component %q", name, c.ComponentName())
	}
	return c, nil
}

// Names returns the registered component names, sorted.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	names := make([]string, 0, len(reg.factories))
	for name := range reg.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
