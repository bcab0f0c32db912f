package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
)

const eventExpiry = 24 * time.Hour

// Service writes events into the outbox. The outbox worker publishes them.
type Service struct {
	outboxRepo repository.OutboxRepository
}

func NewService(outboxRepo repository.OutboxRepository) *Service {
	return &Service{outboxRepo: outboxRepo}
}

func (s *Service) Emit(ctx context.Context, eventType string, aggregateID uuid.UUID, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payloadJSON,
	}
	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// EmitAppointment records an appointment lifecycle event.
func (s *Service) EmitAppointment(ctx context.Context, eventType string, a *model.Appointment) error {
	return s.Emit(ctx, eventType, a.ID, model.NewAppointmentEvent(eventType, a))
}

// CleanupProcessedEvents removes relayed events older than a day.
func (s *Service) CleanupProcessedEvents(ctx context.Context) (int64, error) {
	count, err := s.outboxRepo.DeleteProcessedBefore(ctx, time.Now().Add(-eventExpiry))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup events: %w", err)
	}
	return count, nil
}
