package invoice

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

type Invoice struct {
	ID            uint      `json:"id"`
	OrderID       uint      `json:"order_id"`
	OrderUserID   uint      `json:"-"`
	InvoiceNumber string    `json:"invoice_number"`
	TotalAmount   float64   `json:"total_amount"`
	IssuedAt      time.Time `json:"issued_at"`
}

type Repository interface {
	GetByOrder(ctx context.Context, orderID uint) (*Invoice, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByOrder(ctx context.Context, orderID uint) (*Invoice, error) {
	var inv Invoice
	err := r.db.QueryRowContext(ctx, `
		SELECT i.id, i.order_id, o.user_id, i.invoice_number, o.total_amount, i.issued_at
		FROM invoices i
		JOIN orders o ON o.id = i.order_id
		WHERE i.order_id = $1
	`, orderID).Scan(
		&inv.ID, &inv.OrderID, &inv.OrderUserID,
		&inv.InvoiceNumber, &inv.TotalAmount, &inv.IssuedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
