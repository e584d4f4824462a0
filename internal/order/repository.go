package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	FetchOrders(ctx context.Context, filter Filter, limit, offset int32) ([]*Order, error)
	GetOrderDetail(ctx context.Context, orderID uint) (*Order, error)

	// CreateFromCart builds an order from the user's cart rows inside a
	// single transaction: order + items inserted, product stock
	// decremented, cart cleared, invoice row written.
	CreateFromCart(ctx context.Context, userID uint, deliveryAddress, invoiceNumber string) (*Order, error)

	// TransitionStatus performs a guarded from→to move. The order row is
	// locked for the duration, so concurrent transitions on the same
	// order serialize and exactly one wins. Entering a stock-restoring
	// status gives item quantities back under product row locks and
	// stamps stock_restored_at, all in the same transaction.
	TransitionStatus(ctx context.Context, orderID uint, from, to Status, adminNote *string) (*Order, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FetchOrders(ctx context.Context, filter Filter, limit, offset int32) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "FetchOrders"),
	)

	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT
			o.id,
			o.user_id,
			o.total_amount,
			o.status,
			o.delivery_address,
			o.admin_note,
			o.created_at,
			o.delivered_at,
			o.stock_restored_at
		FROM orders o
		WHERE 1=1
	`

	args := []any{}
	argIndex := 1

	if filter.UserID != nil {
		query += fmt.Sprintf(" AND o.user_id = $%d", argIndex)
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND o.status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}

	query += " ORDER BY o.created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*Order

	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.TotalAmount,
			&o.Status,
			&o.DeliveryAddress,
			&o.AdminNote,
			&o.CreatedAt,
			&o.DeliveredAt,
			&o.StockRestoredAt,
		); err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, &o)
	}

	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, err
	}

	return orders, nil
}

func (r *repository) GetOrderDetail(ctx context.Context, orderID uint) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, total_amount, status, delivery_address,
		       admin_note, created_at, delivered_at, stock_restored_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(
		&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.DeliveryAddress,
		&o.AdminNote, &o.CreatedAt, &o.DeliveredAt, &o.StockRestoredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID,
			&item.ProductName, &item.Quantity, &item.Price,
		); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}

	return &o, rows.Err()
}

func (r *repository) CreateFromCart(ctx context.Context, userID uint, deliveryAddress, invoiceNumber string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateFromCart"),
		zap.Uint("user_id", userID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
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

	// 1. Read cart items with the current (snapshot) price
	rows, err := tx.QueryContext(ctx, `
		SELECT c.product_id, c.quantity, p.price
		FROM cart c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}

	var items []OrderItem
	var total float64

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Price); err != nil {
			rows.Close()
			return nil, err
		}
		items = append(items, item)
		total += float64(item.Quantity) * item.Price
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(items) == 0 {
		return nil, ErrCartEmpty
	}

	// 2. Insert order
	var orderID uint
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, total_amount, status, delivery_address)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, userID, total, StatusProcessing, deliveryAddress).Scan(&orderID)
	if err != nil {
		return nil, err
	}

	// 3. Insert items + deduct stock
	for i := range items {
		items[i].OrderID = orderID

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4)
		`, orderID, items[i].ProductID, items[i].Quantity, items[i].Price)
		if err != nil {
			return nil, err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1
			WHERE id = $2 AND stock >= $1
		`, items[i].Quantity, items[i].ProductID)
		if err != nil {
			return nil, err
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			log.Warn("stock too low at checkout",
				zap.Uint("product_id", items[i].ProductID),
				zap.Int("quantity", items[i].Quantity),
			)
			return nil, ErrInsufficientStock
		}
	}

	// 4. Clear cart
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart WHERE user_id = $1`, userID); err != nil {
		return nil, err
	}

	// 5. Record invoice
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO invoices (order_id, invoice_number)
		VALUES ($1, $2)
	`, orderID, invoiceNumber); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit checkout transaction", zap.Error(err))
		return nil, err
	}
	committed = true

	log.Info("checkout transaction committed",
		zap.Uint("order_id", orderID),
		zap.Float64("total_amount", total),
	)

	return &Order{
		ID:              orderID,
		UserID:          userID,
		TotalAmount:     total,
		Status:          StatusProcessing,
		DeliveryAddress: deliveryAddress,
		Items:           items,
	}, nil
}

func (r *repository) TransitionStatus(ctx context.Context, orderID uint, from, to Status, adminNote *string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "TransitionStatus"),
		zap.Uint("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
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

	// Lock the order row so concurrent transitions serialize here.
	var o Order
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, total_amount, status, delivery_address,
		       admin_note, created_at, delivered_at, stock_restored_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(
		&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.DeliveryAddress,
		&o.AdminNote, &o.CreatedAt, &o.DeliveredAt, &o.StockRestoredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if o.Status != from {
		log.Warn("status guard rejected transition",
			zap.String("current", string(o.Status)),
		)
		return nil, ErrStatusConflict
	}

	// Guarded update keeps the transition idempotent even without the lock.
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    admin_note = COALESCE($2, admin_note),
		    delivered_at = CASE WHEN $1 = 'delivered' THEN NOW() ELSE delivered_at END
		WHERE id = $3 AND status = $4
	`, to, adminNote, orderID, from)
	if err != nil {
		return nil, err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, ErrStatusConflict
	}

	// Entering a stock-restoring status gives quantities back, once.
	if to.RestoresStock() && o.StockRestoredAt == nil {
		if err := RestoreStockTx(ctx, tx, orderID); err != nil {
			log.Error("failed to restore stock", zap.Error(err))
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET stock_restored_at = NOW() WHERE id = $1
		`, orderID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transition", zap.Error(err))
		return nil, err
	}
	committed = true

	o.Status = to
	if adminNote != nil {
		o.AdminNote = adminNote
	}

	log.Info("order status transitioned")
	return &o, nil
}

// RestoreStockTx increments product stock by each order item's quantity.
// Product rows are locked one at a time; any failure aborts the caller's
// transaction so the restore is all-or-nothing.
func RestoreStockTx(ctx context.Context, tx *sql.Tx, orderID uint) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM order_items
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		return err
	}

	type itemQty struct {
		productID uint
		qty       int
	}
	var items []itemQty
	for rows.Next() {
		var it itemQty
		if err := rows.Scan(&it.productID, &it.qty); err != nil {
			rows.Close()
			return err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, it := range items {
		var stock int
		if err := tx.QueryRowContext(ctx,
			`SELECT stock FROM products WHERE id = $1 FOR UPDATE`,
			it.productID,
		).Scan(&stock); err != nil {
			return fmt.Errorf("lock product %d: %w", it.productID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock + $1 WHERE id = $2`,
			it.qty, it.productID,
		); err != nil {
			return fmt.Errorf("restore stock for product %d: %w", it.productID, err)
		}
	}

	return nil
}
