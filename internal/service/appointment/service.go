// Package appointment is the scheduling entry point. Every appointment
// write goes through Service, which validates, checks provider conflicts,
// persists, syncs participant links and fans out notifications.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/internal/service/audit"
	"github.com/jwalitptl/clinic-scheduler/internal/service/catalog"
	"github.com/jwalitptl/clinic-scheduler/internal/service/conflict"
	"github.com/jwalitptl/clinic-scheduler/internal/service/event"
	"github.com/jwalitptl/clinic-scheduler/internal/service/notification"
	"github.com/jwalitptl/clinic-scheduler/internal/service/relation"
	"github.com/jwalitptl/clinic-scheduler/internal/service/timegrid"
	apperrors "github.com/jwalitptl/clinic-scheduler/pkg/errors"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
)

type Config struct {
	// AllowOffGrid accepts times outside the clinic's legal slots. The zero
	// value enforces the grid.
	AllowOffGrid bool
}

type Deps struct {
	Appointments   repository.AppointmentRepository
	Notifications  repository.NotificationRepository
	Justifications repository.JustificationRepository
	Relations      *relation.Synchronizer
	Detector       *conflict.Detector
	Catalog        catalog.Catalog
	Policy         *timegrid.Policy
	Dispatcher     *notification.Dispatcher
	Events         event.Emitter
	Auditor        *audit.AuditLogger
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
}

// Result is what a successful or degraded mutation produced. Warnings never
// mean the mutation failed.
type Result struct {
	Appointment   *model.Appointment      `json:"appointment"`
	Notifications []*model.Notification   `json:"notifications,omitempty"`
	Messages      []model.OutboundMessage `json:"-"`
	Warnings      []string                `json:"warnings,omitempty"`
}

type Service struct {
	appointments   repository.AppointmentRepository
	notifications  repository.NotificationRepository
	justifications repository.JustificationRepository
	relations      *relation.Synchronizer
	detector       *conflict.Detector
	catalog        catalog.Catalog
	policy         *timegrid.Policy
	dispatcher     *notification.Dispatcher
	events         event.Emitter
	auditor        *audit.AuditLogger
	metrics        *metrics.Metrics
	logger         *logger.Logger
	cfg            Config
}

func NewService(deps Deps, cfg Config) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	events := deps.Events
	if events == nil {
		events = event.Nop{}
	}
	policy := deps.Policy
	if policy == nil {
		policy = timegrid.NewPolicy(nil)
	}
	return &Service{
		appointments:   deps.Appointments,
		notifications:  deps.Notifications,
		justifications: deps.Justifications,
		relations:      deps.Relations,
		detector:       deps.Detector,
		catalog:        deps.Catalog,
		policy:         policy,
		dispatcher:     deps.Dispatcher,
		events:         events,
		auditor:        deps.Auditor,
		metrics:        deps.Metrics,
		logger:         log,
		cfg:            cfg,
	}
}

// Create books a new pending appointment.
func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest) (res *Result, err error) {
	defer s.observe("create", time.Now(), &err)

	a, err := model.NewAppointment(req)
	if err != nil {
		return nil, err
	}
	if err := s.checkGrid(a.Date, a.Time); err != nil {
		return nil, err
	}
	if req.Price == nil && a.ServiceType != "" {
		price, err := s.catalog.PriceOf(ctx, a.ServiceType)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve price of %q: %w", a.ServiceType, err)
		}
		a.Price = price
	}
	if err := s.checkConflict(ctx, a, uuid.Nil); err != nil {
		return nil, err
	}

	patients, providers := a.PatientIDs, a.ProviderIDs
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	return s.finish(ctx, a.ID, patients, providers, notification.Event{Kind: model.NotificationKindCreate},
		model.AuditActionCreate, nil)
}

// Update applies req to the stored appointment. A date or time change is a
// reschedule and sends the appointment back to pending.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest) (res *Result, err error) {
	defer s.observe("update", time.Now(), &err)
	return s.update(ctx, id, req)
}

// Cancel moves the appointment to cancelled. No conflict check is made.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (res *Result, err error) {
	defer s.observe("cancel", time.Now(), &err)
	return s.setStatus(ctx, id, model.AppointmentStatusCancelled)
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (res *Result, err error) {
	defer s.observe("confirm", time.Now(), &err)
	return s.setStatus(ctx, id, model.AppointmentStatusConfirmed)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (res *Result, err error) {
	defer s.observe("complete", time.Now(), &err)
	return s.setStatus(ctx, id, model.AppointmentStatusCompleted)
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (*Result, error) {
	return s.update(ctx, id, &model.UpdateAppointmentRequest{Status: &status})
}

func (s *Service) update(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest) (*Result, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	next, change, err := model.ApplyUpdate(current, req)
	if err != nil {
		return nil, err
	}
	if change.Rescheduled {
		if err := s.checkGrid(next.Date, next.Time); err != nil {
			return nil, err
		}
	}
	if req != nil && req.ServiceType != nil && req.Price == nil && next.ServiceType != current.ServiceType {
		price, err := s.catalog.PriceOf(ctx, next.ServiceType)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve price of %q: %w", next.ServiceType, err)
		}
		next.Price = price
	}
	// A slot is only rechecked when something that decides it moved.
	if change.ScheduleChanged && next.Status != model.AppointmentStatusCancelled {
		if err := s.checkConflict(ctx, next, id); err != nil {
			return nil, err
		}
	}

	if patch := model.Diff(current, next); !patch.IsEmpty() {
		if err := s.appointments.Update(ctx, id, patch); err != nil {
			return nil, fmt.Errorf("failed to update appointment: %w", err)
		}
	}

	action := model.AuditActionUpdate
	switch change.Kind {
	case model.NotificationKindReschedule:
		action = model.AuditActionReschedule
	case model.NotificationKindCancel:
		action = model.AuditActionCancel
	}
	return s.finish(ctx, id, next.PatientIDs, next.ProviderIDs,
		notification.Event{Kind: change.Kind, Previous: current}, action, model.Diff(current, next))
}

// finish runs everything that follows a committed row write: link sync,
// reload, fan-out, event and audit. A link failure is returned with the
// reloaded appointment and skips the fan-out.
func (s *Service) finish(ctx context.Context, id uuid.UUID, patients, providers []uuid.UUID,
	ev notification.Event, action string, changes *model.AppointmentPatch) (*Result, error) {

	syncErr := s.relations.SyncLinks(ctx, id, patients, providers)

	a, err := s.load(ctx, id)
	if err != nil {
		if syncErr != nil {
			return nil, syncErr
		}
		return nil, fmt.Errorf("failed to reload appointment: %w", err)
	}
	res := &Result{Appointment: a}

	var opts *audit.LogOptions
	if changes != nil {
		opts = &audit.LogOptions{Changes: changes}
	}
	s.auditor.Log(ctx, action, model.AuditEntityAppointment, id, opts)

	if syncErr != nil {
		return res, syncErr
	}

	ev.Appointment = a
	s.fanOut(ctx, ev, res)
	s.emit(ctx, model.EventTypeFor(ev.Kind), a)
	return res, nil
}

func (s *Service) fanOut(ctx context.Context, ev notification.Event, res *Result) {
	if s.dispatcher == nil {
		return
	}
	out, err := s.dispatcher.Dispatch(ctx, ev)
	if err != nil {
		s.logger.Error(err, "notification fan-out failed", "appointment_id", ev.Appointment.ID.String())
		res.Warnings = append(res.Warnings, err.Error())
		return
	}
	res.Notifications = out.Records
	res.Messages = out.Messages
	if out.Warning != nil {
		res.Warnings = append(res.Warnings, out.Warning.Error())
	}
	for _, recErr := range out.RecordErrors {
		res.Warnings = append(res.Warnings, recErr.Error())
	}
}

func (s *Service) emit(ctx context.Context, eventType string, a *model.Appointment) {
	if err := s.events.Emit(ctx, eventType, a.ID, model.NewAppointmentEvent(eventType, a)); err != nil {
		s.logger.Error(err, "failed to emit appointment event", "appointment_id", a.ID.String(), "event_type", eventType)
	}
}

// Delete hard-removes the appointment with its notification records,
// justifications and participant links. Nobody is notified.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer s.observe("delete", time.Now(), &err)

	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.notifications.DeleteByAppointment(ctx, id); err != nil {
		return fmt.Errorf("failed to delete appointment notifications: %w", err)
	}
	if s.justifications != nil {
		justifications, err := s.justifications.ListByAppointment(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list appointment justifications: %w", err)
		}
		for _, j := range justifications {
			if err := s.justifications.Delete(ctx, j.ID); err != nil && !apperrors.IsNotFound(err) {
				return fmt.Errorf("failed to delete justification: %w", err)
			}
		}
	}
	if err := s.relations.Remove(ctx, id); err != nil {
		return err
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	s.auditor.Log(ctx, model.AuditActionDelete, model.AuditEntityAppointment, id, nil)
	s.emit(ctx, model.EventAppointmentDeleted, a)
	return nil
}

// CancelForAbsence cancels the appointment after an excused absence. Instead
// of the usual fan-out every provider gets a reschedule record.
func (s *Service) CancelForAbsence(ctx context.Context, id uuid.UUID) (res *Result, err error) {
	defer s.observe("cancel_for_absence", time.Now(), &err)

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	cancelled := model.AppointmentStatusCancelled
	next, _, err := model.ApplyUpdate(current, &model.UpdateAppointmentRequest{Status: &cancelled})
	if err != nil {
		return nil, err
	}
	if patch := model.Diff(current, next); !patch.IsEmpty() {
		if err := s.appointments.Update(ctx, id, patch); err != nil {
			return nil, fmt.Errorf("failed to cancel appointment: %w", err)
		}
	}

	a, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload appointment: %w", err)
	}
	res = &Result{Appointment: a}
	if s.dispatcher != nil {
		out, err := s.dispatcher.RecordReschedule(ctx, a)
		if err != nil {
			return res, fmt.Errorf("failed to record reschedule notifications: %w", err)
		}
		res.Notifications = out.Records
		for _, recErr := range out.RecordErrors {
			res.Warnings = append(res.Warnings, recErr.Error())
		}
	}

	s.auditor.Log(ctx, model.AuditActionCancel, model.AuditEntityAppointment, id,
		&audit.LogOptions{Metadata: map[string]string{"reason": "excused_absence"}})
	s.emit(ctx, model.EventAppointmentCancelled, a)
	return res, nil
}

// Get returns the appointment with its participant lists.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.load(ctx, id)
}

// List returns the appointments with from <= date <= to, oldest first.
func (s *Service) List(ctx context.Context, from, to string, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var err error
	if from != "" {
		if from, err = model.NormalizeDate(from); err != nil {
			return nil, apperrors.Validation("from", "must be a YYYY-MM-DD date")
		}
	}
	if to != "" {
		if to, err = model.NormalizeDate(to); err != nil {
			return nil, apperrors.Validation("to", "must be a YYYY-MM-DD date")
		}
	}

	appointments, err := s.appointments.ListByDateRange(ctx, from, to, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	if err := s.relations.Hydrate(ctx, appointments); err != nil {
		return nil, fmt.Errorf("failed to load appointment links: %w", err)
	}
	model.SortByStart(appointments)
	return appointments, nil
}

// LegalSlots returns the bookable times of date. A bad date or a closed
// day gives an empty list.
func (s *Service) LegalSlots(date string) []string {
	return s.policy.LegalSlots(date)
}

// AvailableSlots returns the legal slots of date where a serviceType
// appointment would not collide with any of providerIDs.
func (s *Service) AvailableSlots(ctx context.Context, date string, providerIDs []uuid.UUID, serviceType string) ([]string, error) {
	normalized, err := model.NormalizeDate(date)
	if err != nil {
		return []string{}, nil
	}
	slots := s.policy.LegalSlots(normalized)
	if len(slots) == 0 || len(providerIDs) == 0 {
		return slots, nil
	}

	existing, err := s.detector.SameDay(ctx, normalized, providerIDs)
	if err != nil {
		return nil, err
	}
	durations := map[string]int{}
	lookup := func(name string) (int, error) {
		if d, ok := durations[name]; ok {
			return d, nil
		}
		d, err := s.catalog.DurationOf(ctx, name)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve duration of %q: %w", name, err)
		}
		durations[name] = d
		return d, nil
	}
	for _, a := range existing {
		if _, err := lookup(a.ServiceType); err != nil {
			return nil, err
		}
	}
	minutes, err := lookup(serviceType)
	if err != nil {
		return nil, err
	}

	free := make([]string, 0, len(slots))
	for _, slot := range slots {
		c := conflict.Candidate{ProviderIDs: providerIDs, Date: normalized, Time: slot, DurationMinutes: minutes}
		if !conflict.HasConflict(existing, c, func(name string) int { return durations[name] }) {
			free = append(free, slot)
		}
	}
	return free, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, err := s.appointments.Get(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	if err := s.relations.Hydrate(ctx, []*model.Appointment{a}); err != nil {
		return nil, fmt.Errorf("failed to load appointment links: %w", err)
	}
	return a, nil
}

func (s *Service) checkGrid(date, tm string) error {
	if s.cfg.AllowOffGrid || s.policy.IsLegal(date, tm) {
		return nil
	}
	return apperrors.Validation("time", fmt.Sprintf("%s is not a bookable slot on %s", tm, date))
}

func (s *Service) checkConflict(ctx context.Context, a *model.Appointment, exclude uuid.UUID) error {
	minutes, err := s.catalog.DurationOf(ctx, a.ServiceType)
	if err != nil {
		return fmt.Errorf("failed to resolve duration of %q: %w", a.ServiceType, err)
	}
	err = s.detector.Check(ctx, conflict.Candidate{
		ProviderIDs:     a.ProviderIDs,
		Date:            a.Date,
		Time:            a.Time,
		DurationMinutes: minutes,
		ExcludeID:       exclude,
	})
	var conflictErr *apperrors.ConflictError
	if errors.As(err, &conflictErr) {
		s.metrics.IncConflict()
		s.logger.Info("appointment conflict",
			"conflicting_id", conflictErr.AppointmentID.String(), "date", a.Date, "time", a.Time)
	}
	return err
}

func (s *Service) observe(operation string, started time.Time, errp *error) {
	outcome := "ok"
	if err := *errp; err != nil {
		var syncErr *apperrors.RelationSyncError
		switch {
		case apperrors.Rejected(err):
			outcome = "rejected"
		case errors.As(err, &syncErr):
			outcome = "partial"
		case apperrors.IsNotFound(err):
			outcome = "not_found"
		default:
			outcome = "error"
		}
	}
	s.metrics.ObserveOperation(operation, outcome, started)
}
