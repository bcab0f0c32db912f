package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

func (r *personRepository) Create(ctx context.Context, p *model.Person) error {
	query := `
		INSERT INTO people (id, role, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt

	if _, err := r.db.ExecContext(ctx, query,
		p.ID, p.Role, p.Name, p.Email, p.Phone, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}

func (r *personRepository) Get(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	query := `
		SELECT id, role, name, email, phone, created_at, updated_at
		FROM people
		WHERE id = $1
	`
	var p model.Person
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, notFoundIfNoRows("person", fmt.Errorf("failed to get person: %w", err))
	}
	return &p, nil
}

func (r *personRepository) GetMany(ctx context.Context, ids []uuid.UUID) ([]*model.Person, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, role, name, email, phone, created_at, updated_at
		FROM people
		WHERE id = ANY($1::uuid[])
	`
	var out []*model.Person
	if err := r.db.SelectContext(ctx, &out, query, pq.StringArray(idStrings(ids))); err != nil {
		return nil, fmt.Errorf("failed to get people: %w", err)
	}
	return out, nil
}
