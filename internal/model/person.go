package model

import "github.com/google/uuid"

type ParticipantRole string

const (
	ParticipantRolePatient  ParticipantRole = "patient"
	ParticipantRoleProvider ParticipantRole = "provider"
)

// LinkKind selects which relation table an appointment link lives in.
type LinkKind = ParticipantRole

const (
	LinkKindPatient  = ParticipantRolePatient
	LinkKindProvider = ParticipantRoleProvider
)

// Person is the minimal directory entry the engine needs: a display name and
// optional contact addresses.
type Person struct {
	Base
	Role  ParticipantRole `db:"role" json:"role"`
	Name  string          `db:"name" json:"name"`
	Email string          `db:"email" json:"email,omitempty"`
	Phone string          `db:"phone" json:"phone,omitempty"`
}

// DisplayName falls back to the id when no name is on file.
func (p *Person) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return p.ID.String()
}

type CreatePersonRequest struct {
	Role  ParticipantRole `json:"role" validate:"required,oneof=patient provider"`
	Name  string          `json:"name" validate:"required,max=200"`
	Email string          `json:"email" validate:"omitempty,email"`
	Phone string          `json:"phone" validate:"omitempty,max=32"`
}

// PersonLookup resolves display names for message rendering.
type PersonLookup map[uuid.UUID]*Person

func (l PersonLookup) Name(id uuid.UUID) string {
	if p, ok := l[id]; ok {
		return p.DisplayName()
	}
	return id.String()
}
