package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

func (r *serviceTypeRepository) Create(ctx context.Context, st *model.ServiceType) error {
	query := `
		INSERT INTO service_types (id, name, duration_minutes, price, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	st.ID = uuid.New()
	st.CreatedAt = time.Now().UTC()
	st.UpdatedAt = st.CreatedAt

	if _, err := r.db.ExecContext(ctx, query,
		st.ID, st.Name, st.DurationMinutes, st.Price, st.Category, st.CreatedAt, st.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create service type: %w", err)
	}
	return nil
}

func (r *serviceTypeRepository) GetByName(ctx context.Context, name string) (*model.ServiceType, error) {
	query := `
		SELECT id, name, duration_minutes, price, category, created_at, updated_at
		FROM service_types
		WHERE name = $1
	`
	var st model.ServiceType
	if err := r.db.GetContext(ctx, &st, query, name); err != nil {
		return nil, notFoundIfNoRows("service type", fmt.Errorf("failed to get service type: %w", err))
	}
	return &st, nil
}

func (r *serviceTypeRepository) List(ctx context.Context) ([]*model.ServiceType, error) {
	query := `
		SELECT id, name, duration_minutes, price, category, created_at, updated_at
		FROM service_types
		ORDER BY name
	`
	var out []*model.ServiceType
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list service types: %w", err)
	}
	return out, nil
}
