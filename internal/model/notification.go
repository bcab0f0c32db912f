package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationKindCreate     NotificationKind = "create"
	NotificationKindUpdate     NotificationKind = "update"
	NotificationKindCancel     NotificationKind = "cancel"
	NotificationKindReschedule NotificationKind = "reschedule"
)

func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationKindCreate, NotificationKindUpdate, NotificationKindCancel, NotificationKindReschedule:
		return true
	}
	return false
}

// Notification is the durable record kept for every provider message.
// Records are append-only; they are removed on dismissal, on appointment
// deletion, or when a reschedule supersedes them.
type Notification struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	RecipientID   uuid.UUID        `db:"recipient_id" json:"recipient_id"`
	AppointmentID *uuid.UUID       `db:"appointment_id" json:"appointment_id,omitempty"`
	Kind          NotificationKind `db:"kind" json:"kind"`
	Message       string           `db:"message" json:"message"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// NewNotification builds a record for the provider recipient of appointmentID.
func NewNotification(recipientID, appointmentID uuid.UUID, kind NotificationKind, message string) *Notification {
	n := &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Kind:        kind,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}
	if appointmentID != uuid.Nil {
		id := appointmentID
		n.AppointmentID = &id
	}
	return n
}

// OutboundMessage is one rendered message addressed to a single person.
type OutboundMessage struct {
	RecipientID uuid.UUID        `json:"recipient_id"`
	Role        ParticipantRole  `json:"role"`
	Kind        NotificationKind `json:"kind"`
	Text        string           `json:"text"`
}
