package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

var linkTables = map[model.LinkKind]string{
	model.LinkKindPatient:  "appointment_patients",
	model.LinkKindProvider: "appointment_providers",
}

func linkTable(kind model.LinkKind) (string, error) {
	table, ok := linkTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown link kind %q", kind)
	}
	return table, nil
}

// ReplaceLinks deletes every link of kind for the appointment and inserts ids
// in order. Both statements share one transaction.
func (r *relationRepository) ReplaceLinks(ctx context.Context, appointmentID uuid.UUID, kind model.LinkKind, ids []uuid.UUID) error {
	table, err := linkTable(kind)
	if err != nil {
		return err
	}
	ids = model.Dedupe(ids)

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE appointment_id = $1`, table), appointmentID); err != nil {
			return fmt.Errorf("failed to delete %s links: %w", kind, err)
		}
		if len(ids) == 0 {
			return nil
		}
		query := fmt.Sprintf(`
			INSERT INTO %s (appointment_id, person_id, position)
			SELECT $1, t.person_id::uuid, t.position - 1
			FROM unnest($2::text[]) WITH ORDINALITY AS t(person_id, position)
		`, table)
		if _, err := tx.ExecContext(ctx, query, appointmentID, pq.StringArray(idStrings(ids))); err != nil {
			return fmt.Errorf("failed to insert %s links: %w", kind, err)
		}
		return nil
	})
}

type linkRow struct {
	AppointmentID uuid.UUID `db:"appointment_id"`
	PersonID      uuid.UUID `db:"person_id"`
}

func (r *relationRepository) ListLinks(ctx context.Context, appointmentIDs []uuid.UUID, kind model.LinkKind) (map[uuid.UUID][]uuid.UUID, error) {
	table, err := linkTable(kind)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID][]uuid.UUID, len(appointmentIDs))
	if len(appointmentIDs) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`
		SELECT appointment_id, person_id
		FROM %s
		WHERE appointment_id = ANY($1::uuid[])
		ORDER BY appointment_id, position
	`, table)

	var rows []linkRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.StringArray(idStrings(appointmentIDs))); err != nil {
		return nil, fmt.Errorf("failed to list %s links: %w", kind, err)
	}
	for _, row := range rows {
		out[row.AppointmentID] = append(out[row.AppointmentID], row.PersonID)
	}
	return out, nil
}

func (r *relationRepository) DeleteLinks(ctx context.Context, appointmentID uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, kind := range []model.LinkKind{model.LinkKindPatient, model.LinkKindProvider} {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE appointment_id = $1`, linkTables[kind]), appointmentID); err != nil {
				return fmt.Errorf("failed to delete %s links: %w", kind, err)
			}
		}
		return nil
	})
}
