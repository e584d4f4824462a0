package wishlist

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront-be/internal/middleware"
	"storefront-be/internal/utils"

	"github.com/gin-gonic/gin"
)

var ErrNotInWishlist = errors.New("product not in wishlist")

type Entry struct {
	ProductID   uint      `json:"product_id"`
	ProductName string    `json:"product_name"`
	Price       float64   `json:"price"`
	AddedAt     time.Time `json:"added_at"`
}

type Repository interface {
	List(ctx context.Context, userID uint) ([]*Entry, error)
	Add(ctx context.Context, userID, productID uint) error
	Remove(ctx context.Context, userID, productID uint) error

	// UserIDsForProduct returns the users wishing for a product; used to
	// fan out discount notifications.
	UserIDsForProduct(ctx context.Context, productID uint) ([]uint, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, userID uint) ([]*Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT w.product_id, p.name, p.price, w.created_at
		FROM wishlist w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ProductID, &e.ProductName, &e.Price, &e.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *repository) Add(ctx context.Context, userID, productID uint) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wishlist (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, userID, productID)
	return err
}

func (r *repository) Remove(ctx context.Context, userID, productID uint) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM wishlist WHERE user_id = $1 AND product_id = $2
	`, userID, productID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotInWishlist
	}
	return nil
}

func (r *repository) UserIDsForProduct(ctx context.Context, productID uint) ([]uint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM wishlist WHERE product_id = $1`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint
	for rows.Next() {
		var id uint
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	wl := r.Group("/wishlist", middleware.Auth())
	wl.GET("", h.List)
	wl.POST("/:productId", h.Add)
	wl.DELETE("/:productId", h.Remove)
}

func (h *Handler) List(c *gin.Context) {
	userID, _ := utils.GetUserIDFromContext(c.Request.Context())

	entries, err := h.repo.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected failure"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) Add(c *gin.Context) {
	userID, _ := utils.GetUserIDFromContext(c.Request.Context())
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	if err := h.repo.Add(c.Request.Context(), userID, productID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected failure"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Remove(c *gin.Context) {
	userID, _ := utils.GetUserIDFromContext(c.Request.Context())
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	if err := h.repo.Remove(c.Request.Context(), userID, productID); err != nil {
		if errors.Is(err, ErrNotInWishlist) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected failure"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func productIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("productId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return uint(id), true
}
