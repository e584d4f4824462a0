package reconcile

import (
	"context"
	"testing"
	"time"

	"storefront-be/internal/order"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderColumns = []string{
	"id", "user_id", "total_amount", "status", "delivery_address",
	"admin_note", "created_at", "delivered_at", "stock_restored_at",
}

var itemColumns = []string{"id", "order_id", "product_id", "name", "quantity", "price"}

func expectOrderDetail(mock sqlmock.Sqlmock, orderID uint, status order.Status, restoredAt any) {
	mock.ExpectQuery(`(?s)SELECT id, user_id.*FROM orders`).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(
			orderID, 7, 100.0, string(status), "123 Main St",
			nil, time.Now(), nil, restoredAt,
		))
	mock.ExpectQuery(`(?s)SELECT oi.id.*FROM order_items oi`).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow(1, orderID, 1, "Widget", 2, 50.0))
}

func newService(t *testing.T) (*Service, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewService(db, order.NewRepository(db)), mock, func() { db.Close() }
}

func TestReconcile_DryRunWritesNothing(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	expectOrderDetail(mock, 42, order.StatusCancelled, nil)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT stock FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs(uint(1)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(8))
	mock.ExpectRollback()

	result, err := svc.Reconcile(context.Background(), 42, true, false)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.True(t, result.Success)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 8, result.Items[0].StockBefore)
	assert.Equal(t, 10, result.Items[0].StockAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_LiveRunStampsOrder(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	expectOrderDetail(mock, 42, order.StatusRefundApproved, nil)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT stock FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs(uint(1)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(8))
	mock.ExpectExec(`UPDATE products SET stock = stock \+`).
		WithArgs(2, uint(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT stock FROM products WHERE id = \$1$`).
		WithArgs(uint(1)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(10))
	mock.ExpectExec(`UPDATE orders SET stock_restored_at`).
		WithArgs(uint(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.Reconcile(context.Background(), 42, false, false)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_MismatchRecordedWithoutStamp(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	expectOrderDetail(mock, 42, order.StatusCancelled, nil)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT stock FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs(uint(1)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(8))
	mock.ExpectExec(`UPDATE products SET stock = stock \+`).
		WithArgs(2, uint(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Read-back disagrees with the expected value.
	mock.ExpectQuery(`SELECT stock FROM products WHERE id = \$1$`).
		WithArgs(uint(1)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(9))
	// No stock_restored_at stamp on a dirty pass.
	mock.ExpectCommit()

	result, err := svc.Reconcile(context.Background(), 42, false, false)
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected stock 10, got 9")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_RejectsNonRestoringStatus(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	expectOrderDetail(mock, 42, order.StatusDelivered, nil)

	_, err := svc.Reconcile(context.Background(), 42, false, false)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestReconcile_AlreadyRestored(t *testing.T) {
	t.Run("LiveRunRefuses", func(t *testing.T) {
		svc, mock, done := newService(t)
		defer done()

		expectOrderDetail(mock, 42, order.StatusCancelled, time.Now().Add(-time.Hour))

		_, err := svc.Reconcile(context.Background(), 42, false, false)
		assert.ErrorIs(t, err, ErrAlreadyRestored)
	})

	t.Run("ForceOverrides", func(t *testing.T) {
		svc, mock, done := newService(t)
		defer done()

		expectOrderDetail(mock, 42, order.StatusCancelled, time.Now().Add(-time.Hour))
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT stock FROM products WHERE id = \$1 FOR UPDATE`).
			WithArgs(uint(1)).
			WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(6))
		mock.ExpectExec(`UPDATE products SET stock = stock \+`).
			WithArgs(2, uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT stock FROM products WHERE id = \$1$`).
			WithArgs(uint(1)).
			WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(8))
		mock.ExpectExec(`UPDATE orders SET stock_restored_at`).
			WithArgs(uint(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := svc.Reconcile(context.Background(), 42, false, true)
		require.NoError(t, err)
		assert.True(t, result.Success)
	})

	t.Run("DryRunStillAllowed", func(t *testing.T) {
		svc, mock, done := newService(t)
		defer done()

		expectOrderDetail(mock, 42, order.StatusCancelled, time.Now().Add(-time.Hour))
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT stock FROM products WHERE id = \$1 FOR UPDATE`).
			WithArgs(uint(1)).
			WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(10))
		mock.ExpectRollback()

		result, err := svc.Reconcile(context.Background(), 42, true, false)
		require.NoError(t, err)
		assert.True(t, result.DryRun)
	})
}

func TestFindDiscrepancies(t *testing.T) {
	svc, mock, done := newService(t)
	defer done()

	mock.ExpectQuery(`(?s)SELECT id, user_id.*stock_restored_at IS NULL.*INTERVAL '24 hours'`).
		WithArgs(sqlmock.AnyArg(), int32(50)).
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(
			42, 7, 100.0, string(order.StatusCancelled), "123 Main St",
			nil, time.Now().Add(-48*time.Hour), nil, nil,
		))
	mock.ExpectQuery(`(?s)SELECT oi.id.*FROM order_items oi`).
		WithArgs(uint(42)).
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow(1, 42, 1, "Widget", 2, 50.0))

	orders, err := svc.FindDiscrepancies(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, uint(42), orders[0].ID)
	assert.Len(t, orders[0].Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
