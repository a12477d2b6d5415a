package eventbus

import (
	"context"

	"github.com/amirasaad/tripledger/pkg/domain/events"
)

// HandlerFunc handles one event delivered by a Bus.
type HandlerFunc func(ctx context.Context, e events.Event) error

// Bus defines the contract for publishing and subscribing to domain events.
type Bus interface {
	Emit(ctx context.Context, event events.Event) error
	Register(eventType events.EventType, handler HandlerFunc)
}
