package payment

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrPaymentNotFound = errors.New("payment not found")

type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusRefunded Status = "refunded"
)

// Payment stores the record kept for an order's charge. Card capture and
// settlement happen at an external provider; only the masked suffix and
// status live here.
type Payment struct {
	ID             uint      `json:"id"`
	OrderID        uint      `json:"order_id"`
	Amount         float64   `json:"amount"`
	CardLastFour   string    `json:"card_last_four"`
	CardholderName string    `json:"cardholder_name"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`

	// Owner of the parent order, joined in for access checks.
	OrderUserID uint `json:"-"`
}

type Repository interface {
	Save(ctx context.Context, p *Payment) error
	GetByOrder(ctx context.Context, orderID uint) (*Payment, error)
	UpdateStatus(ctx context.Context, orderID uint, status Status) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Save(ctx context.Context, p *Payment) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO payment_info (order_id, amount, card_last_four, cardholder_name, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, p.OrderID, p.Amount, p.CardLastFour, p.CardholderName, p.Status).
		Scan(&p.ID, &p.CreatedAt)
}

func (r *repository) GetByOrder(ctx context.Context, orderID uint) (*Payment, error) {
	var p Payment
	err := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.order_id, p.amount, p.card_last_four, p.cardholder_name,
		       p.status, p.created_at, o.user_id
		FROM payment_info p
		JOIN orders o ON o.id = p.order_id
		WHERE p.order_id = $1
	`, orderID).Scan(
		&p.ID, &p.OrderID, &p.Amount, &p.CardLastFour,
		&p.CardholderName, &p.Status, &p.CreatedAt, &p.OrderUserID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uint, status Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_info SET status = $1 WHERE order_id = $2
	`, status, orderID)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}
