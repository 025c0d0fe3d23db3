package hxwire

import (
	"context"
	"sync"
)

// Event is a notification published by the engine.
type Event interface {
	EventName() string
}

// StateFlushed announces that the persisted state of a component instance
// is no longer valid. Caches of issued memos should drop the instance.
type StateFlushed struct {
	ComponentID   string
	ComponentName string
}

func (StateFlushed) EventName() string { return "component.state_flushed" }

// MethodCalling is published before a client-called action runs.
// Subscribers may set Skip to veto the call; the round trip continues
// without it.
type MethodCalling struct {
	Component Component
	Method    string
	Params    map[string]any
	Skip      bool
}

func (*MethodCalling) EventName() string { return "component.calling_method" }

// Notifier publishes engine events.
type Notifier interface {
	Publish(ctx context.Context, ev Event)
}

// EventHandler receives published events. Handlers run synchronously on the
// publishing goroutine, in subscription order.
type EventHandler func(ctx context.Context, ev Event)

// Bus is an in-process publish/subscribe channel with zero or more
// subscribers. It is safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers []subscription
}

type subscription struct {
	id int
	fn EventHandler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn EventHandler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.handlers {
			if s.id == id {
				b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers ev to every subscriber.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := make([]subscription, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, s := range handlers {
		s.fn(ctx, ev)
	}
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, Event) {}
