// Package conflict detects provider double-bookings.
package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	apperrors "github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

// Candidate is the slot a caller wants to book.
type Candidate struct {
	ProviderIDs     []uuid.UUID
	Date            string
	Time            string
	DurationMinutes int
	// ExcludeID is the appointment being edited, if any.
	ExcludeID uuid.UUID
}

// DurationFunc returns the duration in minutes of a service type.
type DurationFunc func(serviceType string) int

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// FindConflict returns the earliest existing appointment that shares a
// provider with c and whose interval overlaps it. Patients are never
// compared, and cancelled appointments hold no slot.
func FindConflict(existing []*model.Appointment, c Candidate, durationOf DurationFunc) *model.Appointment {
	start, err := model.ParseSlot(c.Date, c.Time)
	if err != nil {
		return nil
	}
	minutes := c.DurationMinutes
	if minutes < 1 {
		minutes = 1
	}
	end := start.Add(time.Duration(minutes) * time.Minute)

	ordered := append([]*model.Appointment(nil), existing...)
	model.SortByStart(ordered)

	for _, a := range ordered {
		if a.Status == model.AppointmentStatusCancelled {
			continue
		}
		if c.ExcludeID != uuid.Nil && a.ID == c.ExcludeID {
			continue
		}
		if !model.Intersects(a.ProviderIDs, c.ProviderIDs) {
			continue
		}
		aStart, err := a.Start()
		if err != nil {
			continue
		}
		aMinutes := durationOf(a.ServiceType)
		if aMinutes < 1 {
			aMinutes = 1
		}
		aEnd := aStart.Add(time.Duration(aMinutes) * time.Minute)
		if Overlaps(start, end, aStart, aEnd) {
			return a
		}
	}
	return nil
}

// HasConflict is FindConflict as a predicate.
func HasConflict(existing []*model.Appointment, c Candidate, durationOf DurationFunc) bool {
	return FindConflict(existing, c, durationOf) != nil
}

// DurationLookup is satisfied by the service catalog.
type DurationLookup interface {
	DurationOf(ctx context.Context, serviceType string) (int, error)
}

// Hydrator fills in participant lists from the relation store.
type Hydrator interface {
	Hydrate(ctx context.Context, appointments []*model.Appointment) error
}

// Detector runs FindConflict against the committed appointment set.
type Detector struct {
	appointments repository.AppointmentRepository
	hydrator     Hydrator
	durations    DurationLookup
}

func NewDetector(appointments repository.AppointmentRepository, hydrator Hydrator, durations DurationLookup) *Detector {
	return &Detector{
		appointments: appointments,
		hydrator:     hydrator,
		durations:    durations,
	}
}

// Check returns a ConflictError naming the colliding appointment, or nil.
// The read and the caller's later write are not atomic.
func (d *Detector) Check(ctx context.Context, c Candidate) error {
	existing, err := d.SameDay(ctx, c.Date, c.ProviderIDs)
	if err != nil {
		return err
	}

	durations := make(map[string]int)
	for _, a := range existing {
		if _, ok := durations[a.ServiceType]; ok {
			continue
		}
		minutes, err := d.durations.DurationOf(ctx, a.ServiceType)
		if err != nil {
			return fmt.Errorf("failed to resolve duration of %q: %w", a.ServiceType, err)
		}
		durations[a.ServiceType] = minutes
	}

	hit := FindConflict(existing, c, func(serviceType string) int { return durations[serviceType] })
	if hit == nil {
		return nil
	}
	return &apperrors.ConflictError{AppointmentID: hit.ID, Date: hit.Date, Time: hit.Time}
}

// SameDay loads the live appointments of providerIDs on date.
func (d *Detector) SameDay(ctx context.Context, date string, providerIDs []uuid.UUID) ([]*model.Appointment, error) {
	existing, err := d.appointments.ListByDateRange(ctx, date, date, &model.AppointmentFilters{
		ProviderIDs: providerIDs,
		Statuses: []model.AppointmentStatus{
			model.AppointmentStatusPending,
			model.AppointmentStatusConfirmed,
			model.AppointmentStatusCompleted,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments for conflict check: %w", err)
	}
	if err := d.hydrator.Hydrate(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to load appointment links: %w", err)
	}
	return existing, nil
}
