package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"markethub-backend/internal/models"
	"markethub-backend/internal/services"
)

// OrderHandlers contains the placed-order handlers. Buyers and sellers
// share the routes but get role-shaped views.
type OrderHandlers struct {
	orderService *services.OrderService
}

// NewOrderHandlers creates new order handlers
func NewOrderHandlers(db *sql.DB) *OrderHandlers {
	return &OrderHandlers{
		orderService: services.NewOrderService(db),
	}
}

// ListOrders lists the caller's orders: buyers see their own orders,
// sellers see the orders containing their listings.
func (h *OrderHandlers) ListOrders(c *gin.Context) {
	userID := c.GetString("userID")

	switch c.GetString("userRole") {
	case string(models.UserRoleBuyer):
		views, err := h.orderService.ListForBuyer(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to list orders",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": views})
	case string(models.UserRoleSeller):
		views, err := h.orderService.ListForSeller(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to list orders",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": views})
	default:
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "Insufficient permissions",
		})
	}
}

// GetOrder returns the caller's role-shaped view of one order
func (h *OrderHandlers) GetOrder(c *gin.Context) {
	userID := c.GetString("userID")
	orderID := c.Param("id")

	switch c.GetString("userRole") {
	case string(models.UserRoleBuyer):
		view, err := h.orderService.GetForBuyer(orderID, userID)
		if err != nil {
			h.orderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": view})
	case string(models.UserRoleSeller):
		view, err := h.orderService.GetForSeller(orderID, userID)
		if err != nil {
			h.orderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": view})
	default:
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "Insufficient permissions",
		})
	}
}

// UpdateOrderStatus lets an involved seller move the order through its
// lifecycle.
func (h *OrderHandlers) UpdateOrderStatus(c *gin.Context) {
	var req models.OrderStatusUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request data: " + err.Error(),
		})
		return
	}

	view, err := h.orderService.UpdateStatus(c.Param("id"), c.GetString("userID"), &req)
	if err != nil {
		h.orderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": view})
}

func (h *OrderHandlers) orderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Order not found",
		})
	case errors.Is(err, services.ErrOrderForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "Order belongs to another user",
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
	}
}
