package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Explicit transitions a caller may request. Reschedules bypass this table
// and always land on pending.
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCancelled},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled},
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no automatic transition leaves s.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment links one or more patients to one or more providers for a
// single time slot. The first element of each list is the primary, mirrored
// onto PatientID/ProviderID for legacy single-valued readers.
type Appointment struct {
	Base
	Date         string            `db:"date" json:"date"`
	Time         string            `db:"time" json:"time"`
	ServiceType  string            `db:"service_type" json:"service_type"`
	Price        float64           `db:"price" json:"price"`
	Notes        string            `db:"notes" json:"notes,omitempty"`
	RecursWeekly bool              `db:"recurs_weekly" json:"recurs_weekly"`
	Status       AppointmentStatus `db:"status" json:"status"`
	PatientID    uuid.UUID         `db:"patient_id" json:"patient_id"`
	ProviderID   uuid.UUID         `db:"provider_id" json:"provider_id"`
	PatientIDs   []uuid.UUID       `db:"-" json:"patient_ids"`
	ProviderIDs  []uuid.UUID       `db:"-" json:"provider_ids"`
}

type CreateAppointmentRequest struct {
	PatientIDs   []uuid.UUID `json:"patient_ids" validate:"required,min=1"`
	ProviderIDs  []uuid.UUID `json:"provider_ids" validate:"required,min=1"`
	Date         string      `json:"date" validate:"required"`
	Time         string      `json:"time" validate:"required"`
	ServiceType  string      `json:"service_type" validate:"max=200"`
	Price        *float64    `json:"price,omitempty" validate:"omitempty,gte=0"`
	Notes        string      `json:"notes" validate:"max=2000"`
	RecursWeekly bool        `json:"recurs_weekly"`
}

type UpdateAppointmentRequest struct {
	PatientIDs   []uuid.UUID        `json:"patient_ids,omitempty" validate:"omitempty,min=1"`
	ProviderIDs  []uuid.UUID        `json:"provider_ids,omitempty" validate:"omitempty,min=1"`
	Date         *string            `json:"date,omitempty"`
	Time         *string            `json:"time,omitempty"`
	ServiceType  *string            `json:"service_type,omitempty" validate:"omitempty,max=200"`
	Price        *float64           `json:"price,omitempty" validate:"omitempty,gte=0"`
	Notes        *string            `json:"notes,omitempty" validate:"omitempty,max=2000"`
	RecursWeekly *bool              `json:"recurs_weekly,omitempty"`
	Status       *AppointmentStatus `json:"status,omitempty"`
}

// AppointmentPatch carries only the columns that changed.
type AppointmentPatch struct {
	Date         *string
	Time         *string
	ServiceType  *string
	Price        *float64
	Notes        *string
	RecursWeekly *bool
	Status       *AppointmentStatus
	PatientID    *uuid.UUID
	ProviderID   *uuid.UUID
}

func (p *AppointmentPatch) IsEmpty() bool {
	return p == nil || (p.Date == nil && p.Time == nil && p.ServiceType == nil && p.Price == nil &&
		p.Notes == nil && p.RecursWeekly == nil && p.Status == nil && p.PatientID == nil && p.ProviderID == nil)
}

type AppointmentFilters struct {
	ProviderIDs []uuid.UUID
	PatientIDs  []uuid.UUID
	Statuses    []AppointmentStatus
}

// Change describes what an update did to an appointment.
type Change struct {
	Kind            NotificationKind
	Rescheduled     bool
	ScheduleChanged bool
}

// Primary returns the first id of a participant list, or uuid.Nil.
func Primary(ids []uuid.UUID) uuid.UUID {
	if len(ids) == 0 {
		return uuid.Nil
	}
	return ids[0]
}

func (a *Appointment) PrimaryPatient() uuid.UUID {
	return Primary(a.PatientIDs)
}

func (a *Appointment) PrimaryProvider() uuid.UUID {
	return Primary(a.ProviderIDs)
}

// SetParticipants replaces both lists and re-derives the primaries.
func (a *Appointment) SetParticipants(patients, providers []uuid.UUID) {
	a.PatientIDs = Dedupe(patients)
	a.ProviderIDs = Dedupe(providers)
	a.PatientID = Primary(a.PatientIDs)
	a.ProviderID = Primary(a.ProviderIDs)
}

// EnsureParticipants fills empty lists from the legacy primary columns for
// rows written before links existed.
func (a *Appointment) EnsureParticipants() {
	patients, providers := a.PatientIDs, a.ProviderIDs
	if len(patients) == 0 && a.PatientID != uuid.Nil {
		patients = []uuid.UUID{a.PatientID}
	}
	if len(providers) == 0 && a.ProviderID != uuid.Nil {
		providers = []uuid.UUID{a.ProviderID}
	}
	a.SetParticipants(patients, providers)
}

func (a *Appointment) HasPatient(id uuid.UUID) bool {
	return Contains(a.PatientIDs, id)
}

func (a *Appointment) HasProvider(id uuid.UUID) bool {
	return Contains(a.ProviderIDs, id)
}

// Start returns the appointment start as a UTC wall-clock time.
func (a *Appointment) Start() (time.Time, error) {
	return ParseSlot(a.Date, a.Time)
}

func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	c := *a
	c.PatientIDs = append([]uuid.UUID(nil), a.PatientIDs...)
	c.ProviderIDs = append([]uuid.UUID(nil), a.ProviderIDs...)
	return &c
}

// NewAppointment validates req and builds a pending appointment. No id is
// assigned; the repository does that on insert.
func NewAppointment(req *CreateAppointmentRequest) (*Appointment, error) {
	if req == nil {
		return nil, apperrors.Validation("patient_ids", "is required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	patients := Dedupe(req.PatientIDs)
	if len(patients) == 0 {
		return nil, apperrors.Validation("patient_ids", "at least one patient is required")
	}
	providers := Dedupe(req.ProviderIDs)
	if len(providers) == 0 {
		return nil, apperrors.Validation("provider_ids", "at least one provider is required")
	}
	date, err := NormalizeDate(req.Date)
	if err != nil {
		return nil, apperrors.Validation("date", "must be a YYYY-MM-DD date")
	}
	tm, err := NormalizeTime(req.Time)
	if err != nil {
		return nil, apperrors.Validation("time", "must be a HH:MM time")
	}

	a := &Appointment{
		Date:         date,
		Time:         tm,
		ServiceType:  strings.TrimSpace(req.ServiceType),
		Notes:        req.Notes,
		RecursWeekly: req.RecursWeekly,
		Status:       AppointmentStatusPending,
	}
	if req.Price != nil {
		a.Price = *req.Price
	}
	a.SetParticipants(patients, providers)
	return a, nil
}

// ApplyUpdate returns the appointment that results from applying req to
// current. Any change of date or time is a reschedule and forces pending,
// whatever status the request carried.
func ApplyUpdate(current *Appointment, req *UpdateAppointmentRequest) (*Appointment, Change, error) {
	var change Change
	if req == nil {
		return current.Clone(), Change{Kind: NotificationKindUpdate}, nil
	}
	if err := validateStruct(req); err != nil {
		return nil, change, err
	}

	next := current.Clone()
	patients, providers := next.PatientIDs, next.ProviderIDs
	if req.PatientIDs != nil {
		patients = Dedupe(req.PatientIDs)
		if len(patients) == 0 {
			return nil, change, apperrors.Validation("patient_ids", "at least one patient is required")
		}
	}
	if req.ProviderIDs != nil {
		providers = Dedupe(req.ProviderIDs)
		if len(providers) == 0 {
			return nil, change, apperrors.Validation("provider_ids", "at least one provider is required")
		}
	}
	next.SetParticipants(patients, providers)

	if req.Date != nil {
		date, err := NormalizeDate(*req.Date)
		if err != nil {
			return nil, change, apperrors.Validation("date", "must be a YYYY-MM-DD date")
		}
		next.Date = date
	}
	if req.Time != nil {
		tm, err := NormalizeTime(*req.Time)
		if err != nil {
			return nil, change, apperrors.Validation("time", "must be a HH:MM time")
		}
		next.Time = tm
	}
	if req.ServiceType != nil {
		next.ServiceType = strings.TrimSpace(*req.ServiceType)
	}
	if req.Price != nil {
		next.Price = *req.Price
	}
	if req.Notes != nil {
		next.Notes = *req.Notes
	}
	if req.RecursWeekly != nil {
		next.RecursWeekly = *req.RecursWeekly
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, change, apperrors.Validation("status", fmt.Sprintf("unknown status %q", *req.Status))
	}

	prevDate, prevTime := current.Date, current.Time
	if d, err := NormalizeDate(prevDate); err == nil {
		prevDate = d
	}
	if t, err := NormalizeTime(prevTime); err == nil {
		prevTime = t
	}
	change.Rescheduled = next.Date != prevDate || next.Time != prevTime

	switch {
	case change.Rescheduled:
		if current.Status.IsTerminal() {
			return nil, change, apperrors.Validation("status",
				fmt.Sprintf("%s appointments cannot be rescheduled", current.Status))
		}
		next.Status = AppointmentStatusPending
	case req.Status != nil:
		if !current.Status.CanTransitionTo(*req.Status) {
			return nil, change, apperrors.Validation("status",
				fmt.Sprintf("cannot move from %s to %s", current.Status, *req.Status))
		}
		next.Status = *req.Status
	}

	change.ScheduleChanged = change.Rescheduled ||
		next.ServiceType != current.ServiceType ||
		!sameIDs(next.ProviderIDs, current.ProviderIDs)

	switch {
	case change.Rescheduled:
		change.Kind = NotificationKindReschedule
	case next.Status == AppointmentStatusCancelled && current.Status != AppointmentStatusCancelled:
		change.Kind = NotificationKindCancel
	default:
		change.Kind = NotificationKindUpdate
	}
	return next, change, nil
}

// Diff returns the columns that differ between current and next.
func Diff(current, next *Appointment) *AppointmentPatch {
	p := &AppointmentPatch{}
	if next.Date != current.Date {
		p.Date = &next.Date
	}
	if next.Time != current.Time {
		p.Time = &next.Time
	}
	if next.ServiceType != current.ServiceType {
		p.ServiceType = &next.ServiceType
	}
	if next.Price != current.Price {
		p.Price = &next.Price
	}
	if next.Notes != current.Notes {
		p.Notes = &next.Notes
	}
	if next.RecursWeekly != current.RecursWeekly {
		p.RecursWeekly = &next.RecursWeekly
	}
	if next.Status != current.Status {
		p.Status = &next.Status
	}
	if next.PatientID != current.PatientID {
		p.PatientID = &next.PatientID
	}
	if next.ProviderID != current.ProviderID {
		p.ProviderID = &next.ProviderID
	}
	return p
}

// Apply writes the patch onto a.
func (p *AppointmentPatch) Apply(a *Appointment) {
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.Time != nil {
		a.Time = *p.Time
	}
	if p.ServiceType != nil {
		a.ServiceType = *p.ServiceType
	}
	if p.Price != nil {
		a.Price = *p.Price
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	if p.RecursWeekly != nil {
		a.RecursWeekly = *p.RecursWeekly
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.PatientID != nil {
		a.PatientID = *p.PatientID
	}
	if p.ProviderID != nil {
		a.ProviderID = *p.ProviderID
	}
}

// NormalizeDate accepts YYYY-MM-DD (or an RFC 3339 timestamp) and returns YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d.Format(DateLayout), nil
	}
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d.Format(DateLayout), nil
}

// NormalizeTime accepts H:MM, HH:MM or HH:MM:SS and returns HH:MM.
func NormalizeTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout), nil
		}
	}
	return "", fmt.Errorf("invalid time %q", s)
}

// ParseSlot combines a date and a time-of-day into a single instant.
func ParseSlot(date, tm string) (time.Time, error) {
	d, err := NormalizeDate(date)
	if err != nil {
		return time.Time{}, err
	}
	t, err := NormalizeTime(tm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(DateLayout+" "+TimeLayout, d+" "+t)
}

// SortByStart orders appointments by date then time, ascending.
func SortByStart(appts []*Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date < appts[j].Date
		}
		return appts[i].Time < appts[j].Time
	})
}

func sameIDs(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
