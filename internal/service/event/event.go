package event

import (
	"context"

	"github.com/google/uuid"
)

// Emitter records a domain event for later relay to the message broker.
type Emitter interface {
	Emit(ctx context.Context, eventType string, aggregateID uuid.UUID, payload interface{}) error
}

// Nop discards events. Used when no outbox is configured.
type Nop struct{}

func (Nop) Emit(context.Context, string, uuid.UUID, interface{}) error { return nil }
