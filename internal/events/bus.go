// Package events provides the in-process event bus the hub publishes
// state transitions on.
package events

import (
	"log/slog"
	"sync"
)

// Type identifies a class of hub event
type Type string

const (
	// TypeStatus signals a hub status change (startup, disabled, task activity)
	TypeStatus Type = "status"

	// TypeRepository signals an add-on level change (registration, update, removal)
	TypeRepository Type = "repository"

	// TypeReload asks subscribers to re-read the registry
	TypeReload Type = "reload"
)

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(event Type, payload map[string]any)

// Bus is a minimal synchronous publish/subscribe dispatcher
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[Type]map[int]Handler
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Type]map[int]Handler),
	}
}

// Subscribe registers a handler for the given event type and returns an
// unsubscribe function
func (b *Bus) Subscribe(event Type, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[event] == nil {
		b.handlers[event] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.handlers[event][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[event], id)
	}
}

// Publish delivers an event to all handlers subscribed to its type
func (b *Bus) Publish(event Type, payload map[string]any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event]))
	for _, h := range b.handlers[event] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	slog.Debug("Publishing event", "event", string(event), "handlers", len(handlers))
	for _, h := range handlers {
		h(event, payload)
	}
}
