package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amirasaad/tripledger/pkg/domain/events"
	"github.com/amirasaad/tripledger/pkg/eventbus"
)

// MemoryEventBus dispatches events synchronously to in-process handlers.
type MemoryEventBus struct {
	handlers  map[events.EventType][]eventbus.HandlerFunc
	mu        sync.RWMutex
	logger    *slog.Logger
	capture   bool
	published []events.Event
}

// MemoryOption configures a MemoryEventBus.
type MemoryOption func(*MemoryEventBus)

// WithCapture keeps every emitted event for inspection through Published.
// Captured events are never released, so it is meant for tests only.
func WithCapture() MemoryOption {
	return func(b *MemoryEventBus) { b.capture = true }
}

// NewWithMemory creates a new in-memory event bus.
func NewWithMemory(logger *slog.Logger, opts ...MemoryOption) *MemoryEventBus {
	b := &MemoryEventBus{
		handlers: make(map[events.EventType][]eventbus.HandlerFunc),
		logger:   logger.With("bus", "memory"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register registers a handler for a specific event type.
func (b *MemoryEventBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit runs every handler registered for the event's type, recording the
// event first when capture is enabled.
// Handler errors and panics are logged and do not reach the caller.
func (b *MemoryEventBus) Emit(ctx context.Context, event events.Event) error {
	eventType := events.EventType(event.Type())

	b.mu.Lock()
	if b.capture {
		b.published = append(b.published, event)
	}
	handlers := append([]eventbus.HandlerFunc{}, b.handlers[eventType]...)
	b.mu.Unlock()

	for _, handler := range handlers {
		b.run(ctx, eventType, event, handler)
	}
	return nil
}

func (b *MemoryEventBus) run(ctx context.Context, eventType events.EventType, event events.Event, handler eventbus.HandlerFunc) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic recovered in event handler", "type", eventType, "panic", r)
		}
	}()
	if err := handler(ctx, event); err != nil {
		b.logger.Error("failed to process event", "type", eventType, "error", err)
	}
}

// ClearPublished clears the list of published events.
func (b *MemoryEventBus) ClearPublished() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = nil
}

// Published returns a copy of every captured event.
func (b *MemoryEventBus) Published() []events.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]events.Event{}, b.published...)
}

// PublishedOf returns the emitted events of one type.
func (b *MemoryEventBus) PublishedOf(eventType events.EventType) []events.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []events.Event
	for _, e := range b.published {
		if e.Type() == eventType.String() {
			out = append(out, e)
		}
	}
	return out
}

var _ eventbus.Bus = (*MemoryEventBus)(nil)
