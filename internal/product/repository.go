package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	List(ctx context.Context, opts ListOptions) ([]*Product, error)
	GetByID(ctx context.Context, id uint) (*Product, error)
	Create(ctx context.Context, params CreateParams) (*Product, error)
	Update(ctx context.Context, id uint, params UpdateParams) (*Product, error)
	Delete(ctx context.Context, id uint) error
	SetStock(ctx context.Context, id uint, stock int) (*Product, error)
	ApprovePrice(ctx context.Context, id uint, price float64) (*Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const productColumns = `
	p.id, p.name, p.description, p.price, p.stock,
	p.price_approved, p.visible, p.category_id, c.name, p.created_at
`

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.PriceApproved, &p.Visible, &p.CategoryID, &p.CategoryName, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, opts ListOptions) ([]*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
	)

	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE 1=1
	`

	args := []any{}
	argIndex := 1

	if opts.OnlyStorefront {
		query += " AND p.visible = TRUE AND p.price_approved = TRUE"
	}

	if opts.CategoryID != nil {
		query += fmt.Sprintf(" AND p.category_id = $%d", argIndex)
		args = append(args, *opts.CategoryID)
		argIndex++
	}

	query += " ORDER BY p.created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query products", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			log.Error("failed to scan product row", zap.Error(err))
			return nil, err
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, params CreateParams) (*Product, error) {
	var id uint
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (name, description, price, stock, category_id)
		VALUES ($1, COALESCE($2, ''), $3, $4, $5)
		RETURNING id
	`, params.Name, params.Description, params.Price, params.Stock, params.CategoryID).Scan(&id)
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *repository) Update(ctx context.Context, id uint, params UpdateParams) (*Product, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name        = COALESCE($1, name),
		    description = COALESCE($2, description),
		    stock       = COALESCE($3, stock),
		    visible     = COALESCE($4, visible),
		    category_id = COALESCE($5, category_id)
		WHERE id = $6
	`, params.Name, params.Description, params.Stock, params.Visible, params.CategoryID, id)
	if err != nil {
		return nil, err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, ErrProductNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) SetStock(ctx context.Context, id uint, stock int) (*Product, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = $1 WHERE id = $2`, stock, id)
	if err != nil {
		return nil, err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, ErrProductNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *repository) ApprovePrice(ctx context.Context, id uint, price float64) (*Product, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET price = $1, price_approved = TRUE WHERE id = $2
	`, price, id)
	if err != nil {
		return nil, err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, ErrProductNotFound
	}

	return r.GetByID(ctx, id)
}
