package model

import (
	"time"

	"github.com/google/uuid"
)

// Appointment event types published after each successful mutation.
const (
	EventAppointmentCreated     = "appointment.created"
	EventAppointmentUpdated     = "appointment.updated"
	EventAppointmentRescheduled = "appointment.rescheduled"
	EventAppointmentCancelled   = "appointment.cancelled"
	EventAppointmentDeleted     = "appointment.deleted"
	EventAppointmentJustified   = "appointment.justified"
)

// AppointmentEventTypes lists every event type, for consumers that
// subscribe to all of them.
var AppointmentEventTypes = []string{
	EventAppointmentCreated,
	EventAppointmentUpdated,
	EventAppointmentRescheduled,
	EventAppointmentCancelled,
	EventAppointmentDeleted,
	EventAppointmentJustified,
}

type AppointmentEvent struct {
	Type          string            `json:"type"`
	AppointmentID uuid.UUID         `json:"appointment_id"`
	Date          string            `json:"date,omitempty"`
	Time          string            `json:"time,omitempty"`
	Status        AppointmentStatus `json:"status,omitempty"`
	PatientIDs    []uuid.UUID       `json:"patient_ids,omitempty"`
	ProviderIDs   []uuid.UUID       `json:"provider_ids,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// EventTypeFor maps a notification kind to the event published for it.
func EventTypeFor(kind NotificationKind) string {
	switch kind {
	case NotificationKindCreate:
		return EventAppointmentCreated
	case NotificationKindReschedule:
		return EventAppointmentRescheduled
	case NotificationKindCancel:
		return EventAppointmentCancelled
	default:
		return EventAppointmentUpdated
	}
}

func NewAppointmentEvent(eventType string, a *Appointment) *AppointmentEvent {
	e := &AppointmentEvent{Type: eventType, OccurredAt: time.Now().UTC()}
	if a != nil {
		e.AppointmentID = a.ID
		e.Date = a.Date
		e.Time = a.Time
		e.Status = a.Status
		e.PatientIDs = append([]uuid.UUID(nil), a.PatientIDs...)
		e.ProviderIDs = append([]uuid.UUID(nil), a.ProviderIDs...)
	}
	return e
}
