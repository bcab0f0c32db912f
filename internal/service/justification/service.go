// Package justification handles excused absences. Filing one cancels the
// appointment and leaves every provider a reschedule record.
package justification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/internal/service/appointment"
	"github.com/jwalitptl/clinic-scheduler/internal/service/audit"
	"github.com/jwalitptl/clinic-scheduler/internal/service/event"
	apperrors "github.com/jwalitptl/clinic-scheduler/pkg/errors"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

// Scheduler is the part of the scheduling service this package drives.
type Scheduler interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	CancelForAbsence(ctx context.Context, id uuid.UUID) (*appointment.Result, error)
}

type Service struct {
	repo          repository.JustificationRepository
	notifications repository.NotificationRepository
	scheduler     Scheduler
	events        event.Emitter
	auditor       *audit.AuditLogger
	logger        *logger.Logger
}

func NewService(
	repo repository.JustificationRepository,
	notifications repository.NotificationRepository,
	scheduler Scheduler,
	events event.Emitter,
	auditor *audit.AuditLogger,
	log *logger.Logger,
) *Service {
	if events == nil {
		events = event.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:          repo,
		notifications: notifications,
		scheduler:     scheduler,
		events:        events,
		auditor:       auditor,
		logger:        log,
	}
}

// Justify records the absence and cancels the appointment. The author must
// be one of the appointment's providers.
func (s *Service) Justify(ctx context.Context, req *model.CreateJustificationRequest) (*model.Justification, *appointment.Result, error) {
	if req == nil {
		return nil, nil, apperrors.Validation("appointment_id", "is required")
	}
	if err := model.Validate(req); err != nil {
		return nil, nil, err
	}

	appt, err := s.scheduler.Get(ctx, req.AppointmentID)
	if err != nil {
		return nil, nil, err
	}
	if !appt.HasProvider(req.AuthorID) {
		return nil, nil, apperrors.Validation("author_id", "is not a provider on the appointment")
	}
	if appt.Status.IsTerminal() {
		return nil, nil, apperrors.Validation("appointment_id",
			fmt.Sprintf("a %s appointment cannot be justified", appt.Status))
	}

	date := appt.Date
	if req.Date != "" {
		if date, err = model.NormalizeDate(req.Date); err != nil {
			return nil, nil, apperrors.Validation("date", "must be a YYYY-MM-DD date")
		}
	}

	j := &model.Justification{
		AppointmentID: appt.ID,
		AuthorID:      req.AuthorID,
		ReasonCode:    req.ReasonCode,
		Description:   req.Description,
		Date:          date,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, nil, fmt.Errorf("failed to create justification: %w", err)
	}

	res, err := s.scheduler.CancelForAbsence(ctx, appt.ID)
	if err != nil {
		return j, res, err
	}

	s.auditor.Log(ctx, model.AuditActionCreate, model.AuditEntityJustification, j.ID, &audit.LogOptions{
		ActorID:  &j.AuthorID,
		Metadata: map[string]string{"appointment_id": appt.ID.String(), "reason_code": j.ReasonCode},
	})
	if err := s.events.Emit(ctx, model.EventAppointmentJustified, appt.ID, j); err != nil {
		s.logger.Error(err, "failed to emit justification event", "justification_id", j.ID.String())
	}
	return j, res, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Justification, error) {
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get justification: %w", err)
	}
	return j, nil
}

func (s *Service) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Justification, error) {
	out, err := s.repo.ListByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list justifications: %w", err)
	}
	return out, nil
}

// Delete removes the justification and the reschedule records derived from
// it. Filing the justification superseded any earlier reschedule records and
// a cancelled appointment takes no new ones, so every reschedule record left
// on the appointment came from this justification. When authorID is set only
// the author may delete. The appointment stays cancelled.
func (s *Service) Delete(ctx context.Context, id, authorID uuid.UUID) error {
	j, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if authorID != uuid.Nil && authorID != j.AuthorID {
		return apperrors.Validation("author_id", "only the author can delete a justification")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete justification: %w", err)
	}
	removed, err := s.notifications.DeleteByAppointment(ctx, j.AppointmentID, model.NotificationKindReschedule)
	if err != nil {
		return fmt.Errorf("failed to delete reschedule notifications: %w", err)
	}

	s.auditor.Log(ctx, model.AuditActionDelete, model.AuditEntityJustification, id, &audit.LogOptions{
		ActorID:  &j.AuthorID,
		Metadata: map[string]interface{}{"appointment_id": j.AppointmentID, "notifications_removed": removed},
	})
	return nil
}
