package rating

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront-be/internal/middleware"
	"storefront-be/internal/utils"

	"github.com/gin-gonic/gin"
)

var (
	ErrInvalidScore = errors.New("score must be between 1 and 5")
	ErrNotDelivered = errors.New("product can only be rated after a delivered order")
	ErrAlreadyRated = errors.New("product already rated by this user")
)

type Rating struct {
	ID        uint      `json:"id"`
	ProductID uint      `json:"product_id"`
	UserID    uint      `json:"user_id"`
	Score     int       `json:"score"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Summary struct {
	ProductID uint      `json:"product_id"`
	Average   float64   `json:"average"`
	Count     int       `json:"count"`
	Ratings   []*Rating `json:"ratings"`
}

type Repository interface {
	Create(ctx context.Context, productID, userID uint, score int, comment *string) (*Rating, error)
	ForProduct(ctx context.Context, productID uint) (*Summary, error)

	// HasDeliveredOrder reports whether the user has a delivered order
	// containing the product. Rating is gated on it.
	HasDeliveredOrder(ctx context.Context, userID, productID uint) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, productID, userID uint, score int, comment *string) (*Rating, error) {
	var rt Rating
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO ratings (product_id, user_id, score, comment)
		VALUES ($1, $2, $3, COALESCE($4, ''))
		RETURNING id, product_id, user_id, score, comment, created_at
	`, productID, userID, score, comment).Scan(
		&rt.ID, &rt.ProductID, &rt.UserID, &rt.Score, &rt.Comment, &rt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *repository) ForProduct(ctx context.Context, productID uint) (*Summary, error) {
	summary := &Summary{ProductID: productID}

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(score), 0), COUNT(*)
		FROM ratings
		WHERE product_id = $1
	`, productID).Scan(&summary.Average, &summary.Count)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, user_id, score, comment, created_at
		FROM ratings
		WHERE product_id = $1
		ORDER BY created_at DESC
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rt Rating
		if err := rows.Scan(
			&rt.ID, &rt.ProductID, &rt.UserID, &rt.Score, &rt.Comment, &rt.CreatedAt,
		); err != nil {
			return nil, err
		}
		summary.Ratings = append(summary.Ratings, &rt)
	}

	return summary, rows.Err()
}

func (r *repository) HasDeliveredOrder(ctx context.Context, userID, productID uint) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = $1
			  AND oi.product_id = $2
			  AND o.status = 'delivered'
		)
	`, userID, productID).Scan(&exists)
	return exists, err
}

type Service interface {
	Rate(ctx context.Context, productID uint, score int, comment *string) (*Rating, error)
	ForProduct(ctx context.Context, productID uint) (*Summary, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Rate(ctx context.Context, productID uint, score int, comment *string) (*Rating, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not authenticated")
	}
	if score < 1 || score > 5 {
		return nil, ErrInvalidScore
	}

	eligible, err := s.repo.HasDeliveredOrder(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, ErrNotDelivered
	}

	rt, err := s.repo.Create(ctx, productID, userID, score, comment)
	if err != nil {
		// One rating per user per product.
		if isUniqueViolation(err) {
			return nil, ErrAlreadyRated
		}
		return nil, err
	}
	return rt, nil
}

func (s *service) ForProduct(ctx context.Context, productID uint) (*Summary, error) {
	return s.repo.ForProduct(ctx, productID)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ratings_product_id_user_id_key")
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/products/:id/ratings", h.ForProduct)
	r.POST("/products/:id/ratings", middleware.Auth(), h.Rate)
}

func (h *Handler) Rate(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Score   int     `json:"score" binding:"required,min=1,max=5"`
		Comment *string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rt, err := h.svc.Rate(c.Request.Context(), productID, req.Score, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidScore), errors.Is(err, ErrNotDelivered),
			errors.Is(err, ErrAlreadyRated):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected failure"})
		}
		return
	}

	c.JSON(http.StatusOK, rt)
}

func (h *Handler) ForProduct(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	summary, err := h.svc.ForProduct(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected failure"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func productIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return uint(id), true
}
