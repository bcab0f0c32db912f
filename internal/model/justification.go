package model

import (
	"time"

	"github.com/google/uuid"
)

// Justification records an excused absence for an appointment. Creating one
// cancels the appointment and queues a reschedule notification.
type Justification struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	AuthorID      uuid.UUID `db:"author_id" json:"author_id"`
	ReasonCode    string    `db:"reason_code" json:"reason_code"`
	Description   string    `db:"description" json:"description"`
	Date          string    `db:"date" json:"date"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type CreateJustificationRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" validate:"required"`
	AuthorID      uuid.UUID `json:"author_id" validate:"required"`
	ReasonCode    string    `json:"reason_code" validate:"required,max=64"`
	Description   string    `json:"description" validate:"max=2000"`
	Date          string    `json:"date"`
}
