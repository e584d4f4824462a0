package refund

import (
	"context"
	"database/sql"
	"errors"

	"storefront-be/internal/logger"
	"storefront-be/internal/order"

	"go.uber.org/zap"
)

type Repository interface {
	// CreateRequest inserts the refund request and moves the order
	// delivered→refund-requested in one transaction.
	CreateRequest(ctx context.Context, orderID, userID uint, reason string) (*Request, error)

	GetRequest(ctx context.Context, id uint) (*Request, error)
	ListByOrder(ctx context.Context, orderID uint) ([]*Request, error)

	// Approve resolves the request, moves the order to refund-approved,
	// and restores stock for every item — all or none. Guarded updates on
	// both rows mean concurrent approve/reject race to exactly one winner.
	Approve(ctx context.Context, id uint, adminNote *string) (*Request, error)

	// Reject resolves the request and moves the order to refund-denied.
	// No stock change.
	Reject(ctx context.Context, id uint, adminNote *string) (*Request, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateRequest(ctx context.Context, orderID, userID uint, reason string) (*Request, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateRequest"),
		zap.Uint("order_id", orderID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	// Lock the order row; validates existence, ownership, and status.
	var ownerID uint
	var status order.Status
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, status FROM orders WHERE id = $1 FOR UPDATE
	`, orderID).Scan(&ownerID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if ownerID != userID {
		return nil, ErrUnauthorized
	}
	if status != order.StatusDelivered {
		return nil, ErrOrderNotRefundable
	}

	// One open or approved request per order.
	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM refund_requests
			WHERE order_id = $1 AND status IN ('pending', 'approved')
		)
	`, orderID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrRequestExists
	}

	var req Request
	err = tx.QueryRowContext(ctx, `
		INSERT INTO refund_requests (order_id, user_id, reason, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, order_id, user_id, reason, status, requested_at
	`, orderID, userID, reason, RequestPending).Scan(
		&req.ID, &req.OrderID, &req.UserID, &req.Reason, &req.Status, &req.RequestedAt,
	)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1 WHERE id = $2 AND status = $3
	`, order.StatusRefundRequested, orderID, order.StatusDelivered)
	if err != nil {
		return nil, err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, ErrOrderNotRefundable
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit refund request", zap.Error(err))
		return nil, err
	}
	committed = true

	log.Info("refund request created", zap.Uint("request_id", req.ID))
	return &req, nil
}

func (r *repository) GetRequest(ctx context.Context, id uint) (*Request, error) {
	var req Request
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, user_id, reason, status, admin_note, requested_at, resolved_at
		FROM refund_requests
		WHERE id = $1
	`, id).Scan(
		&req.ID, &req.OrderID, &req.UserID, &req.Reason,
		&req.Status, &req.AdminNote, &req.RequestedAt, &req.ResolvedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uint) ([]*Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, user_id, reason, status, admin_note, requested_at, resolved_at
		FROM refund_requests
		WHERE order_id = $1
		ORDER BY requested_at DESC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(
			&req.ID, &req.OrderID, &req.UserID, &req.Reason,
			&req.Status, &req.AdminNote, &req.RequestedAt, &req.ResolvedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &req)
	}

	return out, rows.Err()
}

func (r *repository) Approve(ctx context.Context, id uint, adminNote *string) (*Request, error) {
	return r.resolve(ctx, id, adminNote, RequestApproved, order.StatusRefundApproved, true)
}

func (r *repository) Reject(ctx context.Context, id uint, adminNote *string) (*Request, error) {
	return r.resolve(ctx, id, adminNote, RequestRejected, order.StatusRefundDenied, false)
}

func (r *repository) resolve(
	ctx context.Context,
	id uint,
	adminNote *string,
	decision RequestStatus,
	orderStatus order.Status,
	restoreStock bool,
) (*Request, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "resolve"),
		zap.Uint("request_id", id),
		zap.String("decision", string(decision)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	// Guarded update on the request: only a pending row can be decided,
	// so one of two racing decisions loses cleanly.
	var req Request
	err = tx.QueryRowContext(ctx, `
		UPDATE refund_requests
		SET status = $1, admin_note = $2, resolved_at = NOW()
		WHERE id = $3 AND status = $4
		RETURNING id, order_id, user_id, reason, status, admin_note, requested_at, resolved_at
	`, decision, adminNote, id, RequestPending).Scan(
		&req.ID, &req.OrderID, &req.UserID, &req.Reason,
		&req.Status, &req.AdminNote, &req.RequestedAt, &req.ResolvedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish missing from already-resolved for the caller.
		var exists bool
		if checkErr := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM refund_requests WHERE id = $1)`, id,
		).Scan(&exists); checkErr == nil && exists {
			return nil, ErrRequestResolved
		}
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}

	var stockRestoredAt sql.NullTime
	err = tx.QueryRowContext(ctx, `
		SELECT stock_restored_at FROM orders WHERE id = $1 FOR UPDATE
	`, req.OrderID).Scan(&stockRestoredAt)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, admin_note = COALESCE($2, admin_note)
		WHERE id = $3 AND status = $4
	`, orderStatus, adminNote, req.OrderID, order.StatusRefundRequested)
	if err != nil {
		return nil, err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, order.ErrStatusConflict
	}

	if restoreStock && !stockRestoredAt.Valid {
		if err := order.RestoreStockTx(ctx, tx, req.OrderID); err != nil {
			log.Error("failed to restore stock, aborting refund", zap.Error(err))
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET stock_restored_at = NOW() WHERE id = $1
		`, req.OrderID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit refund decision", zap.Error(err))
		return nil, err
	}
	committed = true

	log.Info("refund request resolved", zap.Uint("order_id", req.OrderID))
	return &req, nil
}
