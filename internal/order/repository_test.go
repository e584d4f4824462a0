package order

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderColumns = []string{
	"id", "user_id", "total_amount", "status", "delivery_address",
	"admin_note", "created_at", "delivered_at", "stock_restored_at",
}

func orderRow(id, userID uint, status Status, restoredAt driver.Value) *sqlmock.Rows {
	return sqlmock.NewRows(orderColumns).AddRow(
		id, userID, 150.0, string(status), "123 Main St",
		nil, time.Now(), nil, restoredAt,
	)
}

func TestRepository_CreateFromCart(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT c.product_id, c.quantity, p.price.*FROM cart c`).
			WithArgs(uint(7)).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity", "price"}).
				AddRow(1, 2, 50.0).
				AddRow(2, 1, 50.0))
		mock.ExpectQuery(`INSERT INTO orders`).
			WithArgs(uint(7), 150.0, StatusProcessing, "123 Main St").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
		mock.ExpectExec(`INSERT INTO order_items`).
			WithArgs(uint(42), uint(1), 2, 50.0).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`UPDATE products`).
			WithArgs(2, uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_items`).
			WithArgs(uint(42), uint(2), 1, 50.0).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectExec(`UPDATE products`).
			WithArgs(1, uint(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM cart`).
			WithArgs(uint(7)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`INSERT INTO invoices`).
			WithArgs(uint(42), "INV-123").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		o, err := repo.CreateFromCart(ctx, 7, "123 Main St", "INV-123")
		require.NoError(t, err)
		assert.Equal(t, uint(42), o.ID)
		assert.Equal(t, StatusProcessing, o.Status)
		assert.Equal(t, 150.0, o.TotalAmount)
		assert.Len(t, o.Items, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyCart", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT c.product_id.*FROM cart c`).
			WithArgs(uint(7)).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity", "price"}))
		mock.ExpectRollback()

		_, err = repo.CreateFromCart(ctx, 7, "123 Main St", "INV-123")
		assert.ErrorIs(t, err, ErrCartEmpty)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsufficientStock", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT c.product_id.*FROM cart c`).
			WithArgs(uint(7)).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity", "price"}).
				AddRow(1, 5, 10.0))
		mock.ExpectQuery(`INSERT INTO orders`).
			WithArgs(uint(7), 50.0, StatusProcessing, "123 Main St").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
		mock.ExpectExec(`INSERT INTO order_items`).
			WithArgs(uint(42), uint(1), 5, 10.0).
			WillReturnResult(sqlmock.NewResult(1, 1))
		// Guarded decrement matches zero rows when stock < quantity.
		mock.ExpectExec(`UPDATE products`).
			WithArgs(5, uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err = repo.CreateFromCart(ctx, 7, "123 Main St", "INV-123")
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_TransitionStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("PlainTransition", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT id, user_id.*FOR UPDATE`).
			WithArgs(uint(42)).
			WillReturnRows(orderRow(42, 7, StatusProcessing, nil))
		mock.ExpectExec(`UPDATE orders`).
			WithArgs(StatusInTransit, nil, uint(42), StatusProcessing).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		o, err := repo.TransitionStatus(ctx, 42, StatusProcessing, StatusInTransit, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusInTransit, o.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("StatusGuardRejectsStaleTransition", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT id, user_id.*FOR UPDATE`).
			WithArgs(uint(42)).
			WillReturnRows(orderRow(42, 7, StatusDelivered, nil))
		mock.ExpectRollback()

		_, err = repo.TransitionStatus(ctx, 42, StatusProcessing, StatusCancelled, nil)
		assert.ErrorIs(t, err, ErrStatusConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT id, user_id.*FOR UPDATE`).
			WithArgs(uint(99)).
			WillReturnRows(sqlmock.NewRows(orderColumns))
		mock.ExpectRollback()

		_, err = repo.TransitionStatus(ctx, 99, StatusProcessing, StatusCancelled, nil)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("CancellationRestoresStock", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT id, user_id.*FOR UPDATE`).
			WithArgs(uint(42)).
			WillReturnRows(orderRow(42, 7, StatusProcessing, nil))
		mock.ExpectExec(`UPDATE orders`).
			WithArgs(StatusCancelled, nil, uint(42), StatusProcessing).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT product_id, quantity`).
			WithArgs(uint(42)).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).
				AddRow(1, 2))
		mock.ExpectQuery(`SELECT stock FROM products`).
			WithArgs(uint(1)).
			WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(8))
		mock.ExpectExec(`UPDATE products SET stock = stock \+`).
			WithArgs(2, uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE orders SET stock_restored_at`).
			WithArgs(uint(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		o, err := repo.TransitionStatus(ctx, 42, StatusProcessing, StatusCancelled, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, o.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyRestoredSkipsStockWrites", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		restored := time.Now().Add(-time.Hour)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT id, user_id.*FOR UPDATE`).
			WithArgs(uint(42)).
			WillReturnRows(orderRow(42, 7, StatusRefundRequested, restored))
		mock.ExpectExec(`UPDATE orders`).
			WithArgs(StatusRefundApproved, nil, uint(42), StatusRefundRequested).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// No product updates expected: stock_restored_at is already set.
		mock.ExpectCommit()

		_, err = repo.TransitionStatus(ctx, 42, StatusRefundRequested, StatusRefundApproved, nil)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("StockRestoreFailureAbortsTransition", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT id, user_id.*FOR UPDATE`).
			WithArgs(uint(42)).
			WillReturnRows(orderRow(42, 7, StatusProcessing, nil))
		mock.ExpectExec(`UPDATE orders`).
			WithArgs(StatusCancelled, nil, uint(42), StatusProcessing).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT product_id, quantity`).
			WithArgs(uint(42)).
			WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		_, err = repo.TransitionStatus(ctx, 42, StatusProcessing, StatusCancelled, nil)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_FetchOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("FilterByUserAndStatus", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		userID := uint(7)
		status := StatusProcessing

		mock.ExpectQuery(`(?s)SELECT.*FROM orders o.*user_id = \$1.*status = \$2`).
			WithArgs(userID, status, int32(20), int32(0)).
			WillReturnRows(orderRow(42, 7, StatusProcessing, nil))

		orders, err := repo.FetchOrders(ctx, Filter{UserID: &userID, Status: &status}, 20, 0)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, uint(42), orders[0].ID)
	})

	t.Run("LimitClamped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectQuery(`(?s)SELECT.*FROM orders o`).
			WithArgs(int32(100), int32(0)).
			WillReturnRows(sqlmock.NewRows(orderColumns))

		_, err = repo.FetchOrders(ctx, Filter{}, 500, 0)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_GetOrderDetail(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectQuery(`(?s)SELECT id, user_id.*FROM orders`).
			WithArgs(uint(99)).
			WillReturnRows(sqlmock.NewRows(orderColumns))

		_, err = repo.GetOrderDetail(ctx, 99)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("WithItems", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectQuery(`(?s)SELECT id, user_id.*FROM orders`).
			WithArgs(uint(42)).
			WillReturnRows(orderRow(42, 7, StatusDelivered, nil))
		mock.ExpectQuery(`(?s)SELECT oi.id.*FROM order_items oi`).
			WithArgs(uint(42)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "name", "quantity", "price"}).
				AddRow(1, 42, 1, "Widget", 2, 50.0))

		o, err := repo.GetOrderDetail(ctx, 42)
		require.NoError(t, err)
		require.Len(t, o.Items, 1)
		assert.Equal(t, "Widget", o.Items[0].ProductName)
	})
}
