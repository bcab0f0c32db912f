package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

// All repository interfaces in one file
type (
	// AppointmentRepository stores the appointment row and its legacy primary
	// columns. Participant lists live in the RelationRepository.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, id uuid.UUID, patch *model.AppointmentPatch) error
		Delete(ctx context.Context, id uuid.UUID) error
		// ListByDateRange returns appointments with from <= date <= to. Empty
		// bounds are open. Filters match on link membership.
		ListByDateRange(ctx context.Context, from, to string, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	}

	RelationRepository interface {
		ReplaceLinks(ctx context.Context, appointmentID uuid.UUID, kind model.LinkKind, ids []uuid.UUID) error
		ListLinks(ctx context.Context, appointmentIDs []uuid.UUID, kind model.LinkKind) (map[uuid.UUID][]uuid.UUID, error)
		DeleteLinks(ctx context.Context, appointmentID uuid.UUID) error
	}

	NotificationRepository interface {
		Append(ctx context.Context, notification *model.Notification) error
		Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
		Delete(ctx context.Context, id uuid.UUID) error
		ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error)
		// DeleteByAppointment removes the appointment's records, restricted to
		// kinds when any are given.
		DeleteByAppointment(ctx context.Context, appointmentID uuid.UUID, kinds ...model.NotificationKind) (int64, error)
	}

	JustificationRepository interface {
		Create(ctx context.Context, justification *model.Justification) error
		Get(ctx context.Context, id uuid.UUID) (*model.Justification, error)
		Delete(ctx context.Context, id uuid.UUID) error
		ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Justification, error)
	}

	ServiceTypeRepository interface {
		Create(ctx context.Context, serviceType *model.ServiceType) error
		GetByName(ctx context.Context, name string) (*model.ServiceType, error)
		List(ctx context.Context) ([]*model.ServiceType, error)
	}

	PersonRepository interface {
		Create(ctx context.Context, person *model.Person) error
		Get(ctx context.Context, id uuid.UUID) (*model.Person, error)
		GetMany(ctx context.Context, ids []uuid.UUID) ([]*model.Person, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters *model.AuditLogFilters) ([]*model.AuditLog, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
