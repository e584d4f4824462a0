package cart

import (
	"context"
	"database/sql"
)

type Repository interface {
	GetCart(ctx context.Context, userID uint) ([]*Item, error)
	Upsert(ctx context.Context, userID, productID uint, quantity int) error
	UpdateQuantity(ctx context.Context, userID, productID uint, quantity int) error
	Remove(ctx context.Context, userID, productID uint) error
	Clear(ctx context.Context, userID uint) error
	ProductAvailable(ctx context.Context, productID uint) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetCart(ctx context.Context, userID uint) ([]*Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.updated_at,
		       p.name, p.price
		FROM cart c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.Quantity,
			&item.UpdatedAt, &item.ProductName, &item.UnitPrice,
		); err != nil {
			return nil, err
		}
		item.Subtotal = float64(item.Quantity) * item.UnitPrice
		items = append(items, &item)
	}

	return items, rows.Err()
}

func (r *repository) Upsert(ctx context.Context, userID, productID uint, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart.quantity + EXCLUDED.quantity, updated_at = NOW()
	`, userID, productID, quantity)
	return err
}

func (r *repository) UpdateQuantity(ctx context.Context, userID, productID uint, quantity int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cart
		SET quantity = $1, updated_at = NOW()
		WHERE user_id = $2 AND product_id = $3
	`, quantity, userID, productID)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *repository) Remove(ctx context.Context, userID, productID uint) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM cart WHERE user_id = $1 AND product_id = $2
	`, userID, productID)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *repository) Clear(ctx context.Context, userID uint) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart WHERE user_id = $1`, userID)
	return err
}

func (r *repository) ProductAvailable(ctx context.Context, productID uint) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT visible AND price_approved FROM products WHERE id = $1
	`, productID).Scan(&ok)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return ok, err
}
