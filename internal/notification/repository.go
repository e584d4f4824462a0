package notification

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uint, limit int32) ([]*Notification, error)
	MarkRead(ctx context.Context, id, userID uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, n *Notification) error {
	metadata := n.Metadata
	if metadata == nil {
		metadata = []byte("{}")
	}

	return r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, type, message, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, n.UserID, n.Type, n.Message, metadata).Scan(&n.ID, &n.CreatedAt)
}

func (r *repository) ListByUser(ctx context.Context, userID uint, limit int32) ([]*Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, message, metadata, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Message,
			&n.Metadata, &n.IsRead, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}

	return out, rows.Err()
}

func (r *repository) MarkRead(ctx context.Context, id, userID uint) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
