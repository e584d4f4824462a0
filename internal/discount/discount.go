package discount

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/product"
	"storefront-be/internal/user"
	"storefront-be/internal/utils"
	"storefront-be/internal/wishlist"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var ErrInvalidPercentage = errors.New("percentage must be between 1 and 90")

type Discount struct {
	ID         uint      `json:"id"`
	ProductID  uint      `json:"product_id"`
	Percentage int       `json:"percentage"`
	OldPrice   float64   `json:"old_price"`
	NewPrice   float64   `json:"new_price"`
	AppliedBy  uint      `json:"applied_by"`
	AppliedAt  time.Time `json:"applied_at"`
}

type Repository interface {
	// Apply records the discount and reprices the product in one
	// transaction. The product row is locked while the new price is
	// derived from the current one.
	Apply(ctx context.Context, productID uint, percentage int, appliedBy uint) (*Discount, error)
	ListByProduct(ctx context.Context, productID uint) ([]*Discount, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Apply(ctx context.Context, productID uint, percentage int, appliedBy uint) (*Discount, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Apply"),
		zap.Uint("product_id", productID),
		zap.Int("percentage", percentage),
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

	var oldPrice float64
	err = tx.QueryRowContext(ctx,
		`SELECT price FROM products WHERE id = $1 FOR UPDATE`, productID,
	).Scan(&oldPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, product.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	newPrice := oldPrice * (1 - float64(percentage)/100)

	if _, err := tx.ExecContext(ctx,
		`UPDATE products SET price = $1 WHERE id = $2`, newPrice, productID,
	); err != nil {
		return nil, err
	}

	var d Discount
	err = tx.QueryRowContext(ctx, `
		INSERT INTO discounts (product_id, percentage, old_price, new_price, applied_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, product_id, percentage, old_price, new_price, applied_by, applied_at
	`, productID, percentage, oldPrice, newPrice, appliedBy).Scan(
		&d.ID, &d.ProductID, &d.Percentage, &d.OldPrice, &d.NewPrice, &d.AppliedBy, &d.AppliedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	log.Info("discount applied", zap.Float64("new_price", newPrice))
	return &d, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID uint) ([]*Discount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, percentage, old_price, new_price, applied_by, applied_at
		FROM discounts
		WHERE product_id = $1
		ORDER BY applied_at DESC
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Discount
	for rows.Next() {
		var d Discount
		if err := rows.Scan(
			&d.ID, &d.ProductID, &d.Percentage, &d.OldPrice,
			&d.NewPrice, &d.AppliedBy, &d.AppliedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

type Service interface {
	Apply(ctx context.Context, productID uint, percentage int) (*Discount, error)
	ListByProduct(ctx context.Context, productID uint) ([]*Discount, error)
}

type service struct {
	repo      Repository
	wishlists wishlist.Repository
	notifier  order.Notifier
}

func NewService(repo Repository, wishlists wishlist.Repository, notifier order.Notifier) Service {
	return &service{repo: repo, wishlists: wishlists, notifier: notifier}
}

func (s *service) Apply(ctx context.Context, productID uint, percentage int) (*Discount, error) {
	if percentage < 1 || percentage > 90 {
		return nil, ErrInvalidPercentage
	}

	appliedBy, _ := utils.GetUserIDFromContext(ctx)

	d, err := s.repo.Apply(ctx, productID, percentage, appliedBy)
	if err != nil {
		return nil, err
	}

	// Fan out to wishlist holders, best-effort after commit.
	userIDs, err := s.wishlists.UserIDsForProduct(ctx, productID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load wishlist holders for discount fan-out",
			zap.Uint("product_id", productID), zap.Error(err))
		return d, nil
	}

	for _, userID := range userIDs {
		s.notifier.Notify(ctx, userID, "wishlist_discount",
			fmt.Sprintf("A product on your wishlist is now %d%% off.", percentage),
			map[string]any{
				"product_id": productID,
				"old_price":  d.OldPrice,
				"new_price":  d.NewPrice,
			},
		)
	}

	return d, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uint) ([]*Discount, error) {
	return s.repo.ListByProduct(ctx, productID)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/discounts",
		middleware.Auth(), middleware.RequireRole(user.RoleSalesManager), h.Apply)
	r.GET("/products/:id/discounts", h.ListByProduct)
}

func (h *Handler) Apply(c *gin.Context) {
	var req struct {
		ProductID  uint `json:"product_id" binding:"required"`
		Percentage int  `json:"percentage" binding:"required,min=1,max=90"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.svc.Apply(c.Request.Context(), req.ProductID, req.Percentage)
	if err != nil {
		switch {
		case errors.Is(err, product.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ErrInvalidPercentage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected failure"})
		}
		return
	}

	c.JSON(http.StatusOK, d)
}

func (h *Handler) ListByProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	discounts, err := h.svc.ListByProduct(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected failure"})
		return
	}

	c.JSON(http.StatusOK, discounts)
}
