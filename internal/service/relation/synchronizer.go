// Package relation keeps the patient and provider links of an appointment
// in step with the desired membership.
package relation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	apperrors "github.com/jwalitptl/clinic-scheduler/pkg/errors"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

type Synchronizer struct {
	repo   repository.RelationRepository
	logger *logger.Logger
}

func NewSynchronizer(repo repository.RelationRepository, log *logger.Logger) *Synchronizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Synchronizer{repo: repo, logger: log}
}

// SyncLinks replaces both link sets with the deduplicated desired ids.
// It is a full replace, not a merge, so repeating a call is a no-op. A
// failure is returned as a RelationSyncError; links already replaced are
// not restored.
func (s *Synchronizer) SyncLinks(ctx context.Context, appointmentID uuid.UUID, patientIDs, providerIDs []uuid.UUID) error {
	for _, link := range []struct {
		kind model.LinkKind
		ids  []uuid.UUID
	}{
		{model.LinkKindPatient, patientIDs},
		{model.LinkKindProvider, providerIDs},
	} {
		if err := s.repo.ReplaceLinks(ctx, appointmentID, link.kind, model.Dedupe(link.ids)); err != nil {
			s.logger.Error(err, "failed to replace appointment links",
				"appointment_id", appointmentID.String(), "kind", string(link.kind))
			return &apperrors.RelationSyncError{AppointmentID: appointmentID, Kind: string(link.kind), Err: err}
		}
	}
	return nil
}

// Hydrate loads participant lists onto appointments in place. Appointments
// with no links keep their legacy primary columns as one-element lists.
func (s *Synchronizer) Hydrate(ctx context.Context, appointments []*model.Appointment) error {
	if len(appointments) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(appointments))
	for _, a := range appointments {
		ids = append(ids, a.ID)
	}

	patients, err := s.repo.ListLinks(ctx, ids, model.LinkKindPatient)
	if err != nil {
		return fmt.Errorf("failed to list patient links: %w", err)
	}
	providers, err := s.repo.ListLinks(ctx, ids, model.LinkKindProvider)
	if err != nil {
		return fmt.Errorf("failed to list provider links: %w", err)
	}

	for _, a := range appointments {
		a.PatientIDs = patients[a.ID]
		a.ProviderIDs = providers[a.ID]
		a.EnsureParticipants()
	}
	return nil
}

// Remove deletes every link of the appointment.
func (s *Synchronizer) Remove(ctx context.Context, appointmentID uuid.UUID) error {
	if err := s.repo.DeleteLinks(ctx, appointmentID); err != nil {
		return fmt.Errorf("failed to delete appointment links: %w", err)
	}
	return nil
}
