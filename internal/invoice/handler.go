package invoice

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
	r.GET("/orders/:orderId/invoice", middleware.Auth(), h.GetByOrder)
}

// GetByOrder returns invoice metadata. PDF rendering is a frontend/export
// concern and not served here.
func (h *Handler) GetByOrder(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	inv, err := h.repo.GetByOrder(c.Request.Context(), uint(orderID))
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected failure"})
		return
	}

	ctx := c.Request.Context()
	role := user.Role(utils.GetUserRoleFromContext(ctx))
	requester, _ := utils.GetUserIDFromContext(ctx)
	if !role.IsManager() && inv.OrderUserID != requester {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to access this invoice"})
		return
	}

	c.JSON(http.StatusOK, inv)
}
