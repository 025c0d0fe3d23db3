package hxwire

import (
	"context"
	"fmt"
	"slices"
)

// Phase names a pipeline phase.
type Phase string

const (
	PhaseInitialHydrate   Phase = "initial-hydrate"
	PhaseHydrate          Phase = "hydrate"
	PhaseUpdate           Phase = "update"
	PhaseInitialDehydrate Phase = "initial-dehydrate"
	PhaseDehydrate        Phase = "dehydrate"
)

// InitialHydrator populates its slice of component state during the first
// render, from the freshly built empty request.
type InitialHydrator interface {
	InitialHydrate(ctx context.Context, c Component, req *Request) error
}

// Hydrator restores its slice of component state from the request memo.
type Hydrator interface {
	Hydrate(ctx context.Context, c Component, req *Request) error
}

// InitialDehydrator writes its memo region after the first render.
type InitialDehydrator interface {
	InitialDehydrate(ctx context.Context, c Component, res *Response) error
}

// Dehydrator writes its memo region after a subsequent render.
type Dehydrator interface {
	Dehydrate(ctx context.Context, c Component, res *Response) error
}

// Middleware takes part in all four phases.
type Middleware interface {
	InitialHydrator
	Hydrator
	InitialDehydrator
	Dehydrator
}

// Chain is an immutable ordered list of pipeline stages.
//
// Order is load-bearing: a later hydrator may rely on state an earlier one
// restored. Chains are assembled at configuration time and shared by all
// concurrent calls.
type Chain[T any] struct {
	items []T
}

// NewChain builds a chain in registration order. The input slice is copied.
func NewChain[T any](items ...T) Chain[T] {
	return Chain[T]{items: slices.Clone(items)}
}

// All returns the stages in registration order.
func (c Chain[T]) All() []T {
	return slices.Clone(c.items)
}

// Len returns the number of stages.
func (c Chain[T]) Len() int {
	return len(c.items)
}

// Stages holds one chain per phase. Dehydration chains are declared in the
// same order as hydration chains; the engine runs them in reverse.
type Stages struct {
	InitialHydration   Chain[InitialHydrator]
	Hydration          Chain[Hydrator]
	InitialDehydration Chain[InitialDehydrator]
	Dehydration        Chain[Dehydrator]
}

// UniformStages registers the same middleware, in the same order, for all
// four phases.
func UniformStages(mw ...Middleware) Stages {
	ih := make([]InitialHydrator, len(mw))
	h := make([]Hydrator, len(mw))
	id := make([]InitialDehydrator, len(mw))
	d := make([]Dehydrator, len(mw))
	for i, m := range mw {
		ih[i], h[i], id[i], d[i] = m, m, m, m
	}
	return Stages{
		InitialHydration:   NewChain(ih...),
		Hydration:          NewChain(h...),
		InitialDehydration: NewChain(id...),
		Dehydration:        NewChain(d...),
	}
}

// DefaultStages returns the built-in middleware in their standard order:
// checksum, sealed state, error bag, public properties, effects.
func DefaultStages(enc *Encoder) Stages {
	return UniformStages(
		NewChecksumMiddleware(enc),
		NewSealedMiddleware(enc),
		ErrorBagMiddleware{},
		PropertiesMiddleware{},
		EffectsMiddleware{},
	)
}

func (s Stages) initialHydrate(ctx context.Context, c Component, req *Request) error {
	for _, m := range s.InitialHydration.items {
		if err := m.InitialHydrate(ctx, c, req); err != nil {
			return phaseError(PhaseInitialHydrate, m, err)
		}
	}
	return nil
}

func (s Stages) hydrate(ctx context.Context, c Component, req *Request) error {
	for _, m := range s.Hydration.items {
		if err := m.Hydrate(ctx, c, req); err != nil {
			return phaseError(PhaseHydrate, m, err)
		}
	}
	return nil
}

// Dehydration runs in reverse so middleware nest like layers: the first
// hydrator to run is the last dehydrator to run.

func (s Stages) initialDehydrate(ctx context.Context, c Component, res *Response) error {
	for i := len(s.InitialDehydration.items) - 1; i >= 0; i-- {
		m := s.InitialDehydration.items[i]
		if err := m.InitialDehydrate(ctx, c, res); err != nil {
			return phaseError(PhaseInitialDehydrate, m, err)
		}
	}
	return nil
}

func (s Stages) dehydrate(ctx context.Context, c Component, res *Response) error {
	for i := len(s.Dehydration.items) - 1; i >= 0; i-- {
		m := s.Dehydration.items[i]
		if err := m.Dehydrate(ctx, c, res); err != nil {
			return phaseError(PhaseDehydrate, m, err)
		}
	}
	return nil
}

func phaseError(phase Phase, m any, err error) error {
	return &PhaseError{Phase: phase, Middleware: fmt.Sprintf("%T", m), Err: err}
}
