package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/internal/service/audit"
)

// Service is the provider inbox over notification records.
type Service struct {
	repo    repository.NotificationRepository
	auditor *audit.AuditLogger
}

func NewService(repo repository.NotificationRepository, auditor *audit.AuditLogger) *Service {
	return &Service{repo: repo, auditor: auditor}
}

func (s *Service) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error) {
	out, err := s.repo.ListByRecipient(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return out, nil
}

// Dismiss deletes a record once a person has dealt with it.
func (s *Service) Dismiss(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get notification: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to dismiss notification: %w", err)
	}

	s.auditor.Log(ctx, model.AuditActionDismiss, model.AuditEntityNotification, id, &audit.LogOptions{
		ActorID: &n.RecipientID,
		Metadata: map[string]interface{}{
			"kind":           n.Kind,
			"appointment_id": n.AppointmentID,
		},
	})
	return nil
}
