package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

const justificationColumns = `
	id, appointment_id, author_id, reason_code, description,
	to_char(date, 'YYYY-MM-DD') AS date, created_at`

func (r *justificationRepository) Create(ctx context.Context, j *model.Justification) error {
	query := `
		INSERT INTO justifications (id, appointment_id, author_id, reason_code, description, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, query,
		j.ID, j.AppointmentID, j.AuthorID, j.ReasonCode, j.Description, j.Date, j.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create justification: %w", err)
	}
	return nil
}

func (r *justificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Justification, error) {
	var j model.Justification
	query := `SELECT ` + justificationColumns + ` FROM justifications WHERE id = $1`
	if err := r.db.GetContext(ctx, &j, query, id); err != nil {
		return nil, notFoundIfNoRows("justification", fmt.Errorf("failed to get justification: %w", err))
	}
	return &j, nil
}

func (r *justificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM justifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete justification: %w", err)
	}
	return expectAffected("justification", result)
}

func (r *justificationRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Justification, error) {
	query := `SELECT ` + justificationColumns + ` FROM justifications WHERE appointment_id = $1 ORDER BY created_at ASC`
	var out []*model.Justification
	if err := r.db.SelectContext(ctx, &out, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to list justifications: %w", err)
	}
	return out, nil
}
