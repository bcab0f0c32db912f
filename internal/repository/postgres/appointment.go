package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

const appointmentColumns = `
	id, to_char(date, 'YYYY-MM-DD') AS date, to_char(start_time, 'HH24:MI') AS time,
	service_type, price, notes, recurs_weekly, status,
	patient_id, provider_id, created_at, updated_at`

func nullableID(id uuid.UUID) interface{} {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, date, start_time, service_type, price, notes,
			recurs_weekly, status, patient_id, provider_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	now := time.Now().UTC()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.Date,
		appointment.Time,
		appointment.ServiceType,
		appointment.Price,
		appointment.Notes,
		appointment.RecursWeekly,
		appointment.Status,
		nullableID(appointment.PatientID),
		nullableID(appointment.ProviderID),
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, notFoundIfNoRows("appointment", fmt.Errorf("failed to get appointment: %w", err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, id uuid.UUID, patch *model.AppointmentPatch) error {
	sets := []string{}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch != nil {
		if patch.Date != nil {
			add("date", *patch.Date)
		}
		if patch.Time != nil {
			add("start_time", *patch.Time)
		}
		if patch.ServiceType != nil {
			add("service_type", *patch.ServiceType)
		}
		if patch.Price != nil {
			add("price", *patch.Price)
		}
		if patch.Notes != nil {
			add("notes", *patch.Notes)
		}
		if patch.RecursWeekly != nil {
			add("recurs_weekly", *patch.RecursWeekly)
		}
		if patch.Status != nil {
			add("status", *patch.Status)
		}
		if patch.PatientID != nil {
			add("patient_id", nullableID(*patch.PatientID))
		}
		if patch.ProviderID != nil {
			add("provider_id", nullableID(*patch.ProviderID))
		}
	}
	add("updated_at", time.Now().UTC())

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE appointments SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return expectAffected("appointment", result)
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return expectAffected("appointment", result)
}

func (r *appointmentRepository) ListByDateRange(ctx context.Context, from, to string, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments a WHERE 1=1`
	var args []interface{}

	if from != "" {
		args = append(args, from)
		query += fmt.Sprintf(" AND a.date >= $%d", len(args))
	}
	if to != "" {
		args = append(args, to)
		query += fmt.Sprintf(" AND a.date <= $%d", len(args))
	}
	if filters != nil {
		if len(filters.ProviderIDs) > 0 {
			args = append(args, pq.StringArray(idStrings(filters.ProviderIDs)))
			query += fmt.Sprintf(` AND (
				EXISTS (SELECT 1 FROM appointment_providers l WHERE l.appointment_id = a.id AND l.person_id = ANY($%[1]d::uuid[]))
				OR (NOT EXISTS (SELECT 1 FROM appointment_providers l WHERE l.appointment_id = a.id) AND a.provider_id = ANY($%[1]d::uuid[]))
			)`, len(args))
		}
		if len(filters.PatientIDs) > 0 {
			args = append(args, pq.StringArray(idStrings(filters.PatientIDs)))
			query += fmt.Sprintf(` AND (
				EXISTS (SELECT 1 FROM appointment_patients l WHERE l.appointment_id = a.id AND l.person_id = ANY($%[1]d::uuid[]))
				OR (NOT EXISTS (SELECT 1 FROM appointment_patients l WHERE l.appointment_id = a.id) AND a.patient_id = ANY($%[1]d::uuid[]))
			)`, len(args))
		}
		if len(filters.Statuses) > 0 {
			statuses := make([]string, 0, len(filters.Statuses))
			for _, s := range filters.Statuses {
				statuses = append(statuses, string(s))
			}
			args = append(args, pq.StringArray(statuses))
			query += fmt.Sprintf(" AND a.status = ANY($%d)", len(args))
		}
	}
	query += " ORDER BY a.date ASC, a.start_time ASC"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}
