package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	ErrInvalidState = errors.New("order status does not call for stock restoration")

	// ErrAlreadyRestored guards live runs against double application; a
	// forced run overrides it for operator-verified drift.
	ErrAlreadyRestored = errors.New("stock already restored for this order")
)

// ItemResult captures the per-product effect of a reconciliation pass.
type ItemResult struct {
	ProductID   uint `json:"product_id"`
	Quantity    int  `json:"quantity"`
	StockBefore int  `json:"stock_before"`
	StockAfter  int  `json:"stock_after"`
}

// Result reports a reconciliation pass. Success is true iff no per-item
// error occurred; a dry run is trivially successful.
type Result struct {
	Order   *order.Order `json:"order"`
	DryRun  bool         `json:"dry_run"`
	Items   []ItemResult `json:"items"`
	Errors  []string     `json:"errors,omitempty"`
	Success bool         `json:"success"`
}

// Service repairs product stock for orders whose terminal status implies
// quantities should have been given back.
type Service struct {
	db     *sql.DB
	orders order.Repository
}

func NewService(db *sql.DB, orders order.Repository) *Service {
	return &Service{db: db, orders: orders}
}

// Reconcile restores stock for every item of the order. In dry-run mode
// the intended new stock is reported without writing. In live mode each
// product row is locked, updated, and read back; a mismatch is recorded
// per item without aborting the remaining items.
func (s *Service) Reconcile(ctx context.Context, orderID uint, dryRun, force bool) (*Result, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("method", "Reconcile"),
		zap.Uint("order_id", orderID),
		zap.Bool("dry_run", dryRun),
	)

	o, err := s.orders.GetOrderDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !o.Status.RestoresStock() {
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidState, o.Status)
	}

	if !dryRun && o.StockRestoredAt != nil && !force {
		return nil, ErrAlreadyRestored
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	result := &Result{Order: o, DryRun: dryRun}

	for _, item := range o.Items {
		var stock int
		err := tx.QueryRowContext(ctx,
			`SELECT stock FROM products WHERE id = $1 FOR UPDATE`,
			item.ProductID,
		).Scan(&stock)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("product %d: lock failed: %v", item.ProductID, err))
			continue
		}

		expected := stock + item.Quantity

		if dryRun {
			result.Items = append(result.Items, ItemResult{
				ProductID:   item.ProductID,
				Quantity:    item.Quantity,
				StockBefore: stock,
				StockAfter:  expected,
			})
			continue
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock + $1 WHERE id = $2`,
			item.Quantity, item.ProductID,
		); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("product %d: update failed: %v", item.ProductID, err))
			continue
		}

		var actual int
		if err := tx.QueryRowContext(ctx,
			`SELECT stock FROM products WHERE id = $1`,
			item.ProductID,
		).Scan(&actual); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("product %d: read-back failed: %v", item.ProductID, err))
			continue
		}

		if actual != expected {
			result.Errors = append(result.Errors,
				fmt.Sprintf("product %d: expected stock %d, got %d",
					item.ProductID, expected, actual))
		}

		result.Items = append(result.Items, ItemResult{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			StockBefore: stock,
			StockAfter:  actual,
		})
	}

	result.Success = len(result.Errors) == 0

	if dryRun {
		// No writes to keep.
		if err := tx.Rollback(); err != nil {
			return nil, err
		}
		return result, nil
	}

	// A clean pass is stamped so a re-run refuses to double-restore.
	if result.Success {
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET stock_restored_at = NOW() WHERE id = $1`,
			orderID,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit reconciliation", zap.Error(err))
		return nil, err
	}
	committed = true

	middleware.RecordStockRestore("reconcile")
	log.Info("reconciliation applied",
		zap.Int("items", len(result.Items)),
		zap.Int("errors", len(result.Errors)),
	)

	return result, nil
}

// FindDiscrepancies lists stock-restoring orders older than 24 hours whose
// restoration was never stamped. Age is a heuristic only: younger orders
// are assumed still in flight. Read-only.
func (s *Service) FindDiscrepancies(ctx context.Context, limit int32) ([]*order.Order, error) {
	if limit <= 0 {
		limit = 50
	}

	statuses := []string{
		string(order.StatusCancelled),
		string(order.StatusRefundApproved),
		string(order.StatusRefunded),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, total_amount, status, delivery_address,
		       admin_note, created_at, delivered_at, stock_restored_at
		FROM orders
		WHERE status = ANY($1)
		  AND stock_restored_at IS NULL
		  AND created_at < NOW() - INTERVAL '24 hours'
		ORDER BY created_at ASC
		LIMIT $2
	`, pq.Array(statuses), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.DeliveryAddress,
			&o.AdminNote, &o.CreatedAt, &o.DeliveredAt, &o.StockRestoredAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Attach items for operator review.
	for _, o := range orders {
		itemRows, err := s.db.QueryContext(ctx, `
			SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price
			FROM order_items oi
			JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = $1
			ORDER BY oi.id
		`, o.ID)
		if err != nil {
			return nil, err
		}
		for itemRows.Next() {
			var item order.OrderItem
			if err := itemRows.Scan(
				&item.ID, &item.OrderID, &item.ProductID,
				&item.ProductName, &item.Quantity, &item.Price,
			); err != nil {
				itemRows.Close()
				return nil, err
			}
			o.Items = append(o.Items, item)
		}
		if err := itemRows.Err(); err != nil {
			itemRows.Close()
			return nil, err
		}
		itemRows.Close()
	}

	return orders, nil
}
