package refund

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/user"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// Order-scoped alias for requesting a refund.
	r.POST("/orders/:orderId/refund-request", middleware.Auth(), h.RequestRefundForOrder)

	refunds := r.Group("/refunds", middleware.Auth())
	refunds.POST("/request", h.RequestRefund)
	refunds.GET("/order/:orderId", h.ListByOrder)
	refunds.PATCH("/approve/:id",
		middleware.RequireRole(user.RoleSalesManager), h.Approve)
	refunds.PATCH("/reject/:id",
		middleware.RequireRole(user.RoleSalesManager), h.Reject)
}

func (h *Handler) RequestRefundForOrder(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.createRequest(c, uint(orderID), req.Reason)
}

func (h *Handler) RequestRefund(c *gin.Context) {
	var req struct {
		OrderID uint   `json:"order_id" binding:"required"`
		Reason  string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.createRequest(c, req.OrderID, req.Reason)
}

func (h *Handler) createRequest(c *gin.Context, orderID uint, reason string) {
	req, err := h.svc.RequestRefund(c.Request.Context(), orderID, reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

func (h *Handler) Approve(c *gin.Context) {
	h.decide(c, h.svc.Approve)
}

func (h *Handler) Reject(c *gin.Context) {
	h.decide(c, h.svc.Reject)
}

func (h *Handler) decide(c *gin.Context, fn func(ctx context.Context, id uint, note *string) (*Request, error)) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid refund request id"})
		return
	}

	var req struct {
		AdminNote *string `json:"adminNote"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resolved, err := fn(c.Request.Context(), uint(id), req.AdminNote)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resolved)
}

func (h *Handler) ListByOrder(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	requests, err := h.svc.ListByOrder(c.Request.Context(), uint(orderID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRequestNotFound), errors.Is(err, order.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrSalesManagerOnly):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrRequestExists), errors.Is(err, ErrRequestResolved),
		errors.Is(err, ErrOrderNotRefundable), errors.Is(err, order.ErrStatusConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected failure"})
	}
}
