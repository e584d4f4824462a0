package order

import (
	"errors"
	"net/http"
	"strconv"

	"storefront-be/internal/middleware"
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
	orders := r.Group("/orders", middleware.Auth())
	orders.GET("", h.ListOrders)
	orders.GET("/user/:userId", h.ListUserOrders)
	orders.GET("/:orderId", h.GetOrder)
	orders.POST("/checkout", h.Checkout)
	orders.PATCH("/:orderId/cancel", h.Cancel)
	orders.PATCH("/:orderId/status",
		middleware.RequireRole(user.RoleProductManager, user.RoleSalesManager),
		h.UpdateStatus,
	)
}

func (h *Handler) ListOrders(c *gin.Context) {
	var status *Status
	if raw := c.Query("status"); raw != "" {
		if !ValidStatus(raw) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
		s := Status(raw)
		status = &s
	}

	limit, page := pagination(c)

	orders, err := h.svc.ListOrders(c.Request.Context(), status, limit, page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *Handler) ListUserOrders(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	limit, page := pagination(c)

	orders, err := h.svc.ListUserOrders(c.Request.Context(), uint(userID), limit, page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *Handler) GetOrder(c *gin.Context) {
	orderID, err := orderIDParam(c)
	if err != nil {
		return
	}

	o, err := h.svc.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

func (h *Handler) Checkout(c *gin.Context) {
	var req struct {
		DeliveryAddress string `json:"delivery_address" binding:"required"`
		CardNumber      string `json:"card_number" binding:"required"`
		CardholderName  string `json:"cardholder_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := h.svc.Checkout(c.Request.Context(), CheckoutInput{
		DeliveryAddress: req.DeliveryAddress,
		CardNumber:      req.CardNumber,
		CardholderName:  req.CardholderName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	orderID, err := orderIDParam(c)
	if err != nil {
		return
	}

	var req struct {
		Status    string  `json:"status" binding:"required"`
		AdminNote *string `json:"adminNote"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order status"})
		return
	}

	o, err := h.svc.UpdateStatus(c.Request.Context(), orderID, Status(req.Status), req.AdminNote)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

func (h *Handler) Cancel(c *gin.Context) {
	orderID, err := orderIDParam(c)
	if err != nil {
		return
	}

	o, err := h.svc.Cancel(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

func orderIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("orderId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return 0, err
	}
	return uint(id), nil
}

func pagination(c *gin.Context) (limit, page int32) {
	limit = 20
	page = 1
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 32); err == nil && v > 0 {
			limit = int32(v)
		}
	}
	if raw := c.Query("page"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 32); err == nil && v > 0 {
			page = int32(v)
		}
	}
	return limit, page
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrManagerOnly):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrStatusConflict), errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidCard), errors.Is(err, ErrCartEmpty),
		errors.Is(err, ErrInsufficientStock):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected failure"})
	}
}
