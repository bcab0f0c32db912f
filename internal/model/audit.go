package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ActorID    *uuid.UUID      `json:"actor_id,omitempty" db:"actor_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Changes    json.RawMessage `json:"changes" db:"changes"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionCreate     = "create"
	AuditActionUpdate     = "update"
	AuditActionReschedule = "reschedule"
	AuditActionCancel     = "cancel"
	AuditActionDelete     = "delete"
	AuditActionDismiss    = "dismiss"

	// Entity types
	AuditEntityAppointment   = "appointment"
	AuditEntityJustification = "justification"
	AuditEntityNotification  = "notification"
	AuditEntityServiceType   = "service_type"
	AuditEntityPerson        = "person"
)

type AuditLogFilters struct {
	EntityType string
	EntityID   *uuid.UUID
	Action     string
	Limit      int
	Offset     int
}
