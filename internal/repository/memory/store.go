// Package memory is a map-backed implementation of every repository
// interface. It is used for tests and for running without Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	apperrors "github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

type Store struct {
	mu             sync.RWMutex
	appointments   map[uuid.UUID]*model.Appointment
	links          map[model.LinkKind]map[uuid.UUID][]uuid.UUID
	notifications  []*model.Notification
	justifications map[uuid.UUID]*model.Justification
	serviceTypes   map[string]*model.ServiceType
	people         map[uuid.UUID]*model.Person
	audit          []*model.AuditLog
	outbox         []*model.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		appointments: make(map[uuid.UUID]*model.Appointment),
		links: map[model.LinkKind]map[uuid.UUID][]uuid.UUID{
			model.LinkKindPatient:  {},
			model.LinkKindProvider: {},
		},
		justifications: make(map[uuid.UUID]*model.Justification),
		serviceTypes:   make(map[string]*model.ServiceType),
		people:         make(map[uuid.UUID]*model.Person),
	}
}

func (s *Store) Appointments() repository.AppointmentRepository { return &appointmentRepo{s} }
func (s *Store) Relations() repository.RelationRepository       { return &relationRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepo{s}
}
func (s *Store) Justifications() repository.JustificationRepository {
	return &justificationRepo{s}
}
func (s *Store) ServiceTypes() repository.ServiceTypeRepository { return &serviceTypeRepo{s} }
func (s *Store) People() repository.PersonRepository            { return &personRepo{s} }
func (s *Store) Audit() repository.AuditRepository              { return &auditRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository            { return &outboxRepo{s} }

// appointments

type appointmentRepo struct{ s *Store }

func (r *appointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	row := a.Clone()
	row.PatientIDs, row.ProviderIDs = nil, nil
	r.s.appointments[a.ID] = row
	return nil
}

func (r *appointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	return a.Clone(), nil
}

func (r *appointmentRepo) Update(_ context.Context, id uuid.UUID, patch *model.AppointmentPatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return apperrors.NotFound("appointment", nil)
	}
	if patch != nil {
		patch.Apply(a)
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *appointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.appointments[id]; !ok {
		return apperrors.NotFound("appointment", nil)
	}
	delete(r.s.appointments, id)
	for _, byAppt := range r.s.links {
		delete(byAppt, id)
	}
	return nil
}

func (r *appointmentRepo) ListByDateRange(_ context.Context, from, to string, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*model.Appointment
	for id, a := range r.s.appointments {
		if from != "" && a.Date < from {
			continue
		}
		if to != "" && a.Date > to {
			continue
		}
		if filters != nil {
			if len(filters.ProviderIDs) > 0 &&
				!model.Intersects(r.s.members(id, model.LinkKindProvider, a.ProviderID), filters.ProviderIDs) {
				continue
			}
			if len(filters.PatientIDs) > 0 &&
				!model.Intersects(r.s.members(id, model.LinkKindPatient, a.PatientID), filters.PatientIDs) {
				continue
			}
			if len(filters.Statuses) > 0 && !hasStatus(filters.Statuses, a.Status) {
				continue
			}
		}
		out = append(out, a.Clone())
	}
	model.SortByStart(out)
	return out, nil
}

// members returns the linked ids, falling back to the legacy column.
func (s *Store) members(id uuid.UUID, kind model.LinkKind, legacy uuid.UUID) []uuid.UUID {
	if ids := s.links[kind][id]; len(ids) > 0 {
		return ids
	}
	if legacy != uuid.Nil {
		return []uuid.UUID{legacy}
	}
	return nil
}

func hasStatus(statuses []model.AppointmentStatus, s model.AppointmentStatus) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

// relations

type relationRepo struct{ s *Store }

func (r *relationRepo) ReplaceLinks(_ context.Context, appointmentID uuid.UUID, kind model.LinkKind, ids []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byAppt, ok := r.s.links[kind]
	if !ok {
		return apperrors.BadRequest("unknown link kind "+string(kind), nil)
	}
	delete(byAppt, appointmentID)
	if ids = model.Dedupe(ids); len(ids) > 0 {
		byAppt[appointmentID] = ids
	}
	return nil
}

func (r *relationRepo) ListLinks(_ context.Context, appointmentIDs []uuid.UUID, kind model.LinkKind) (map[uuid.UUID][]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[uuid.UUID][]uuid.UUID, len(appointmentIDs))
	for _, id := range appointmentIDs {
		if ids := r.s.links[kind][id]; len(ids) > 0 {
			out[id] = append([]uuid.UUID(nil), ids...)
		}
	}
	return out, nil
}

func (r *relationRepo) DeleteLinks(_ context.Context, appointmentID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, byAppt := range r.s.links {
		delete(byAppt, appointmentID)
	}
	return nil
}

// notifications

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Append(_ context.Context, n *model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	c := *n
	r.s.notifications = append(r.s.notifications, &c)
	return nil
}

func (r *notificationRepo) Get(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, n := range r.s.notifications {
		if n.ID == id {
			c := *n
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("notification", nil)
}

func (r *notificationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, n := range r.s.notifications {
		if n.ID == id {
			r.s.notifications = append(r.s.notifications[:i], r.s.notifications[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("notification", nil)
}

func (r *notificationRepo) ListByRecipient(_ context.Context, recipientID uuid.UUID) ([]*model.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Notification
	for _, n := range r.s.notifications {
		if n.RecipientID == recipientID {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *notificationRepo) DeleteByAppointment(_ context.Context, appointmentID uuid.UUID, kinds ...model.NotificationKind) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.notifications[:0]
	var removed int64
	for _, n := range r.s.notifications {
		if n.AppointmentID != nil && *n.AppointmentID == appointmentID && kindIn(kinds, n.Kind) {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	r.s.notifications = kept
	return removed, nil
}

func kindIn(kinds []model.NotificationKind, k model.NotificationKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}

// justifications

type justificationRepo struct{ s *Store }

func (r *justificationRepo) Create(_ context.Context, j *model.Justification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	c := *j
	r.s.justifications[j.ID] = &c
	return nil
}

func (r *justificationRepo) Get(_ context.Context, id uuid.UUID) (*model.Justification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	j, ok := r.s.justifications[id]
	if !ok {
		return nil, apperrors.NotFound("justification", nil)
	}
	c := *j
	return &c, nil
}

func (r *justificationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.justifications[id]; !ok {
		return apperrors.NotFound("justification", nil)
	}
	delete(r.s.justifications, id)
	return nil
}

func (r *justificationRepo) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]*model.Justification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Justification
	for _, j := range r.s.justifications {
		if j.AppointmentID == appointmentID {
			c := *j
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out, nil
}

// service types

type serviceTypeRepo struct{ s *Store }

func (r *serviceTypeRepo) Create(_ context.Context, st *model.ServiceType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.serviceTypes[st.Name]; ok {
		return apperrors.BadRequest("service type "+st.Name+" already exists", nil)
	}
	st.ID = uuid.New()
	st.CreatedAt = time.Now().UTC()
	st.UpdatedAt = st.CreatedAt
	c := *st
	r.s.serviceTypes[st.Name] = &c
	return nil
}

func (r *serviceTypeRepo) GetByName(_ context.Context, name string) (*model.ServiceType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st, ok := r.s.serviceTypes[name]
	if !ok {
		return nil, apperrors.NotFound("service type", nil)
	}
	c := *st
	return &c, nil
}

func (r *serviceTypeRepo) List(_ context.Context) ([]*model.ServiceType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*model.ServiceType, 0, len(r.s.serviceTypes))
	for _, st := range r.s.serviceTypes {
		c := *st
		out = append(out, &c)
	}
	sort.Slice(out, func(i, k int) bool { return strings.Compare(out[i].Name, out[k].Name) < 0 })
	return out, nil
}

// people

type personRepo struct{ s *Store }

func (r *personRepo) Create(_ context.Context, p *model.Person) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	c := *p
	r.s.people[p.ID] = &c
	return nil
}

func (r *personRepo) Get(_ context.Context, id uuid.UUID) (*model.Person, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.people[id]
	if !ok {
		return nil, apperrors.NotFound("person", nil)
	}
	c := *p
	return &c, nil
}

func (r *personRepo) GetMany(_ context.Context, ids []uuid.UUID) ([]*model.Person, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Person
	for _, id := range ids {
		if p, ok := r.s.people[id]; ok {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

// audit

type auditRepo struct{ s *Store }

func (r *auditRepo) Create(_ context.Context, log *model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	c := *log
	r.s.audit = append(r.s.audit, &c)
	return nil
}

func (r *auditRepo) List(_ context.Context, f *model.AuditLogFilters) ([]*model.AuditLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.AuditLog
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		l := r.s.audit[i]
		if f != nil {
			if f.EntityType != "" && l.EntityType != f.EntityType {
				continue
			}
			if f.EntityID != nil && l.EntityID != *f.EntityID {
				continue
			}
			if f.Action != "" && l.Action != f.Action {
				continue
			}
		}
		c := *l
		out = append(out, &c)
	}
	if f != nil && f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f != nil && f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *auditRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.audit[:0]
	var removed int64
	for _, l := range r.s.audit {
		if l.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	r.s.audit = kept
	return removed, nil
}

// outbox

type outboxRepo struct{ s *Store }

func (r *outboxRepo) Create(_ context.Context, e *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	e.Status = model.OutboxStatusPending
	c := *e
	r.s.outbox = append(r.s.outbox, &c)
	return nil
}

func (r *outboxRepo) GetPendingEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.OutboxEvent
	for _, e := range r.s.outbox {
		if e.Status != model.OutboxStatusPending && e.Status != model.OutboxStatusFailed {
			continue
		}
		c := *e
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *outboxRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.outbox {
		if e.ID != id {
			continue
		}
		now := time.Now().UTC()
		e.Status = status
		e.ErrorMessage = errMsg
		e.UpdatedAt = now
		switch status {
		case model.OutboxStatusFailed:
			e.RetryCount++
		case model.OutboxStatusProcessed:
			e.ProcessedAt = &now
		}
		return nil
	}
	return apperrors.NotFound("outbox event", nil)
}

func (r *outboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.outbox[:0]
	var removed int64
	for _, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.s.outbox = kept
	return removed, nil
}
