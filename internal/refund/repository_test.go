package refund

import (
	"context"
	"testing"
	"time"

	"storefront-be/internal/order"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var requestColumns = []string{
	"id", "order_id", "user_id", "reason", "status",
	"admin_note", "requested_at", "resolved_at",
}

func TestRepository_CreateRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT user_id, status FROM orders`).
			WithArgs(uint(42)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "status"}).
				AddRow(7, string(order.StatusDelivered)))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(uint(42)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`INSERT INTO refund_requests`).
			WithArgs(uint(42), uint(7), "damaged on arrival", RequestPending).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "user_id", "reason", "status", "requested_at"}).
				AddRow(5, 42, 7, "damaged on arrival", string(RequestPending), time.Now()))
		mock.ExpectExec(`UPDATE orders SET status`).
			WithArgs(order.StatusRefundRequested, uint(42), order.StatusDelivered).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		req, err := repo.CreateRequest(ctx, 42, 7, "damaged on arrival")
		require.NoError(t, err)
		assert.Equal(t, uint(5), req.ID)
		assert.Equal(t, RequestPending, req.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("OrderNotDelivered", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT user_id, status FROM orders`).
			WithArgs(uint(42)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "status"}).
				AddRow(7, string(order.StatusProcessing)))
		mock.ExpectRollback()

		_, err = repo.CreateRequest(ctx, 42, 7, "changed my mind")
		assert.ErrorIs(t, err, ErrOrderNotRefundable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotOwner", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT user_id, status FROM orders`).
			WithArgs(uint(42)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "status"}).
				AddRow(9, string(order.StatusDelivered)))
		mock.ExpectRollback()

		_, err = repo.CreateRequest(ctx, 42, 7, "damaged")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("DuplicateRequest", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT user_id, status FROM orders`).
			WithArgs(uint(42)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "status"}).
				AddRow(7, string(order.StatusDelivered)))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(uint(42)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		_, err = repo.CreateRequest(ctx, 42, 7, "damaged")
		assert.ErrorIs(t, err, ErrRequestExists)
	})
}

func TestRepository_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("ApprovesAndRestoresStock", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)UPDATE refund_requests.*RETURNING`).
			WithArgs(RequestApproved, nil, uint(5), RequestPending).
			WillReturnRows(sqlmock.NewRows(requestColumns).
				AddRow(5, 42, 7, "damaged", string(RequestApproved), nil, now, now))
		mock.ExpectQuery(`SELECT stock_restored_at FROM orders`).
			WithArgs(uint(42)).
			WillReturnRows(sqlmock.NewRows([]string{"stock_restored_at"}).AddRow(nil))
		mock.ExpectExec(`(?s)UPDATE orders.*SET status`).
			WithArgs(order.StatusRefundApproved, nil, uint(42), order.StatusRefundRequested).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT product_id, quantity`).
			WithArgs(uint(42)).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).AddRow(1, 2))
		mock.ExpectQuery(`SELECT stock FROM products`).
			WithArgs(uint(1)).
			WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(3))
		mock.ExpectExec(`UPDATE products SET stock = stock \+`).
			WithArgs(2, uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE orders SET stock_restored_at`).
			WithArgs(uint(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		req, err := repo.Approve(ctx, 5, nil)
		require.NoError(t, err)
		assert.Equal(t, RequestApproved, req.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyResolved", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)UPDATE refund_requests.*RETURNING`).
			WithArgs(RequestApproved, nil, uint(5), RequestPending).
			WillReturnRows(sqlmock.NewRows(requestColumns))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(uint(5)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		_, err = repo.Approve(ctx, 5, nil)
		assert.ErrorIs(t, err, ErrRequestResolved)
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)UPDATE refund_requests.*RETURNING`).
			WithArgs(RequestApproved, nil, uint(99), RequestPending).
			WillReturnRows(sqlmock.NewRows(requestColumns))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(uint(99)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		_, err = repo.Approve(ctx, 99, nil)
		assert.ErrorIs(t, err, ErrRequestNotFound)
	})

	t.Run("SkipsRestoreWhenAlreadyStamped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)UPDATE refund_requests.*RETURNING`).
			WithArgs(RequestApproved, nil, uint(5), RequestPending).
			WillReturnRows(sqlmock.NewRows(requestColumns).
				AddRow(5, 42, 7, "damaged", string(RequestApproved), nil, now, now))
		mock.ExpectQuery(`SELECT stock_restored_at FROM orders`).
			WithArgs(uint(42)).
			WillReturnRows(sqlmock.NewRows([]string{"stock_restored_at"}).AddRow(now))
		mock.ExpectExec(`(?s)UPDATE orders.*SET status`).
			WithArgs(order.StatusRefundApproved, nil, uint(42), order.StatusRefundRequested).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		_, err = repo.Approve(ctx, 5, nil)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Reject(t *testing.T) {
	ctx := context.Background()

	t.Run("NoStockWrites", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		now := time.Now()
		note := "outside return window"

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)UPDATE refund_requests.*RETURNING`).
			WithArgs(RequestRejected, &note, uint(5), RequestPending).
			WillReturnRows(sqlmock.NewRows(requestColumns).
				AddRow(5, 42, 7, "damaged", string(RequestRejected), note, now, now))
		mock.ExpectQuery(`SELECT stock_restored_at FROM orders`).
			WithArgs(uint(42)).
			WillReturnRows(sqlmock.NewRows([]string{"stock_restored_at"}).AddRow(nil))
		mock.ExpectExec(`(?s)UPDATE orders.*SET status`).
			WithArgs(order.StatusRefundDenied, &note, uint(42), order.StatusRefundRequested).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		req, err := repo.Reject(ctx, 5, &note)
		require.NoError(t, err)
		assert.Equal(t, RequestRejected, req.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
