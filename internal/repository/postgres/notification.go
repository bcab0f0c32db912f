package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

func (r *notificationRepository) Append(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, appointment_id, kind, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if _, err := r.db.ExecContext(ctx, query,
		n.ID, n.RecipientID, n.AppointmentID, n.Kind, n.Message, n.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	query := `
		SELECT id, recipient_id, appointment_id, kind, message, created_at
		FROM notifications
		WHERE id = $1
	`
	var n model.Notification
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		return nil, notFoundIfNoRows("notification", fmt.Errorf("failed to get notification: %w", err))
	}
	return &n, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return expectAffected("notification", result)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error) {
	query := `
		SELECT id, recipient_id, appointment_id, kind, message, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at ASC
	`
	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, recipientID); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) DeleteByAppointment(ctx context.Context, appointmentID uuid.UUID, kinds ...model.NotificationKind) (int64, error) {
	query := `DELETE FROM notifications WHERE appointment_id = $1`
	args := []interface{}{appointmentID}
	if len(kinds) > 0 {
		values := make([]string, 0, len(kinds))
		for _, k := range kinds {
			values = append(values, string(k))
		}
		query += ` AND kind = ANY($2)`
		args = append(args, pq.StringArray(values))
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete appointment notifications: %w", err)
	}
	return result.RowsAffected()
}
