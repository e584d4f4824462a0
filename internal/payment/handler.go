package payment

import (
	"errors"
	"net/http"
	"strconv"

	"storefront-be/internal/middleware"
	"storefront-be/internal/user"
	"storefront-be/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/orders/:orderId/payment", middleware.Auth(), h.GetByOrder)
}

func (h *Handler) GetByOrder(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	p, err := h.repo.GetByOrder(c.Request.Context(), uint(orderID))
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected failure"})
		return
	}

	ctx := c.Request.Context()
	role := user.Role(utils.GetUserRoleFromContext(ctx))
	requester, _ := utils.GetUserIDFromContext(ctx)
	if !role.IsManager() && p.OrderUserID != requester {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to access this payment"})
		return
	}

	c.JSON(http.StatusOK, p)
}
