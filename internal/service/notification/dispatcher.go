package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	apperrors "github.com/jwalitptl/clinic-scheduler/pkg/errors"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
)

const defaultSendTimeout = 10 * time.Second

// Config is fixed at construction. OutboundEnabled gates outbound sends
// only; notification records are written either way.
type Config struct {
	OutboundEnabled bool
	SendTimeout     time.Duration
}

// Hydrator fills in participant lists from the relation store.
type Hydrator interface {
	Hydrate(ctx context.Context, appointments []*model.Appointment) error
}

type Deps struct {
	Notifications repository.NotificationRepository
	Appointments  repository.AppointmentRepository
	Hydrator      Hydrator
	// People supplies display names. Optional.
	People    repository.PersonRepository
	Resolver  ContactResolver
	Messenger Messenger
	Metrics   *metrics.Metrics
	Logger    *logger.Logger
}

// Event is one mutation to fan out. Previous is the stored state before an
// update-like mutation and may be nil.
type Event struct {
	Kind        model.NotificationKind
	Appointment *model.Appointment
	Previous    *model.Appointment
}

// Outcome reports what a fan-out produced. RecordErrors and Warning never
// mean the mutation failed.
type Outcome struct {
	Messages     []model.OutboundMessage
	Records      []*model.Notification
	RecordErrors []error
	Warning      *apperrors.DispatchWarning
}

type Dispatcher struct {
	notifications repository.NotificationRepository
	appointments  repository.AppointmentRepository
	hydrator      Hydrator
	people        repository.PersonRepository
	resolver      ContactResolver
	messenger     Messenger
	cfg           Config
	metrics       *metrics.Metrics
	logger        *logger.Logger
	wg            sync.WaitGroup
}

func NewDispatcher(deps Deps, cfg Config) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		notifications: deps.Notifications,
		appointments:  deps.Appointments,
		hydrator:      deps.Hydrator,
		people:        deps.People,
		resolver:      deps.Resolver,
		messenger:     deps.Messenger,
		cfg:           cfg,
		metrics:       deps.Metrics,
		logger:        log,
	}
}

// Dispatch renders one message per patient and per provider, persists a
// record per provider message and starts an outbound send for every
// reachable recipient. Sends run in the background; use Wait to drain them.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (*Outcome, error) {
	a := ev.Appointment
	if a == nil {
		return nil, fmt.Errorf("dispatch %s: appointment is required", ev.Kind)
	}

	// Patient days are loaded up front so every provider shown in a summary
	// can be named.
	days := make(map[uuid.UUID][]*model.Appointment, len(a.PatientIDs))
	nameIDs := append(append([]uuid.UUID(nil), a.PatientIDs...), a.ProviderIDs...)
	for _, pid := range a.PatientIDs {
		day := d.patientDay(ctx, ev.Kind, a, pid)
		days[pid] = day
		for _, other := range day {
			nameIDs = append(nameIDs, other.ProviderIDs...)
		}
	}
	r := renderer{names: d.lookupNames(ctx, nameIDs)}

	out := &Outcome{}
	for _, pid := range a.PatientIDs {
		out.Messages = append(out.Messages, model.OutboundMessage{
			RecipientID: pid,
			Role:        model.ParticipantRolePatient,
			Kind:        ev.Kind,
			Text:        r.patientMessage(ev.Kind, a, ev.Previous, days[pid]),
		})
	}
	for _, did := range a.ProviderIDs {
		out.Messages = append(out.Messages, model.OutboundMessage{
			RecipientID: did,
			Role:        model.ParticipantRoleProvider,
			Kind:        ev.Kind,
			Text:        r.providerMessage(ev.Kind, a, ev.Previous),
		})
	}

	d.persistRecords(ctx, a, ev.Kind, out)

	if d.cfg.OutboundEnabled && d.messenger != nil && d.resolver != nil {
		if unreachable := d.sendAll(ctx, a.ID, out.Messages); len(unreachable) > 0 {
			out.Warning = &apperrors.DispatchWarning{Recipients: unreachable}
			d.metrics.AddUnreachable(len(unreachable))
			d.logger.Warn("recipients without contact address",
				"appointment_id", a.ID.String(), "count", len(unreachable))
		}
	}

	return out, nil
}

// Wait blocks until every outbound send started so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// patientDay returns what the patient's message should describe. Cancelled
// triggers are described alone.
func (d *Dispatcher) patientDay(ctx context.Context, kind model.NotificationKind, a *model.Appointment, patientID uuid.UUID) []*model.Appointment {
	single := []*model.Appointment{a}
	if kind == model.NotificationKindCancel || a.Status == model.AppointmentStatusCancelled || d.appointments == nil {
		return single
	}

	others, err := d.appointments.ListByDateRange(ctx, a.Date, a.Date, &model.AppointmentFilters{
		PatientIDs: []uuid.UUID{patientID},
	})
	if err == nil && d.hydrator != nil {
		err = d.hydrator.Hydrate(ctx, others)
	}
	if err != nil {
		d.logger.Error(err, "failed to load same-day appointments, sending single message",
			"appointment_id", a.ID.String(), "patient_id", patientID.String())
		return single
	}
	return mergeSameDay(a, others)
}

func (d *Dispatcher) lookupNames(ctx context.Context, ids []uuid.UUID) model.PersonLookup {
	names := model.PersonLookup{}
	if d.people == nil {
		return names
	}
	people, err := d.people.GetMany(ctx, model.Dedupe(ids))
	if err != nil {
		d.logger.Warn("failed to load display names", "error", err.Error())
		return names
	}
	for _, p := range people {
		names[p.ID] = p
	}
	return names
}

// persistRecords writes one record per provider message. A reschedule first
// removes the appointment's earlier reschedule records.
func (d *Dispatcher) persistRecords(ctx context.Context, a *model.Appointment, kind model.NotificationKind, out *Outcome) {
	if kind == model.NotificationKindReschedule {
		if _, err := d.notifications.DeleteByAppointment(ctx, a.ID, model.NotificationKindReschedule); err != nil {
			d.logger.Error(err, "failed to supersede reschedule notifications", "appointment_id", a.ID.String())
		}
	}

	for _, msg := range out.Messages {
		if msg.Role != model.ParticipantRoleProvider {
			continue
		}
		rec := model.NewNotification(msg.RecipientID, a.ID, kind, msg.Text)
		if err := d.notifications.Append(ctx, rec); err != nil {
			d.metrics.IncNotificationRecord(string(kind), "error")
			d.logger.Error(err, "failed to persist notification",
				"appointment_id", a.ID.String(), "recipient_id", msg.RecipientID.String())
			out.RecordErrors = append(out.RecordErrors,
				fmt.Errorf("failed to persist notification for %s: %w", msg.RecipientID, err))
			continue
		}
		d.metrics.IncNotificationRecord(string(kind), "ok")
		out.Records = append(out.Records, rec)
	}
}

// sendAll resolves every recipient and starts the reachable sends. It
// returns the recipients that could not be reached.
func (d *Dispatcher) sendAll(ctx context.Context, appointmentID uuid.UUID, messages []model.OutboundMessage) []uuid.UUID {
	var unreachable []uuid.UUID
	for _, msg := range messages {
		addr, ok, err := d.resolver.ResolveAddress(ctx, msg.RecipientID)
		if err != nil {
			d.logger.Error(err, "failed to resolve contact address", "recipient_id", msg.RecipientID.String())
		}
		if err != nil || !ok {
			unreachable = append(unreachable, msg.RecipientID)
			continue
		}
		d.send(ctx, appointmentID, msg.RecipientID, addr, msg.Text)
	}
	return model.Dedupe(unreachable)
}

func (d *Dispatcher) send(ctx context.Context, appointmentID, recipientID uuid.UUID, addr, text string) {
	// Detached from the request so a finished HTTP call does not cancel it.
	sendCtx := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(sendCtx, d.cfg.SendTimeout)
		defer cancel()

		started := time.Now()
		if err := d.messenger.Send(ctx, addr, text); err != nil {
			d.metrics.ObserveDispatch("error", started)
			d.logger.Error(err, "outbound dispatch failed",
				"appointment_id", appointmentID.String(), "recipient_id", recipientID.String())
			return
		}
		d.metrics.ObserveDispatch("sent", started)
	}()
}

// RecordReschedule persists a reschedule record for every provider of a
// without contacting anyone. It supersedes earlier reschedule records of a.
func (d *Dispatcher) RecordReschedule(ctx context.Context, a *model.Appointment) (*Outcome, error) {
	if a == nil {
		return nil, fmt.Errorf("record reschedule: appointment is required")
	}
	r := renderer{names: d.lookupNames(ctx, append(append([]uuid.UUID(nil), a.PatientIDs...), a.ProviderIDs...))}

	out := &Outcome{}
	for _, did := range a.ProviderIDs {
		out.Messages = append(out.Messages, model.OutboundMessage{
			RecipientID: did,
			Role:        model.ParticipantRoleProvider,
			Kind:        model.NotificationKindReschedule,
			Text:        r.providerMessage(model.NotificationKindReschedule, a, nil),
		})
	}
	d.persistRecords(ctx, a, model.NotificationKindReschedule, out)
	return out, nil
}
