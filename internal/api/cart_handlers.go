package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"markethub-backend/internal/models"
	"markethub-backend/internal/services"
)

// CartHandlers contains the buyer cart handlers
type CartHandlers struct {
	cartService  *services.CartService
	orderService *services.OrderService
}

// NewCartHandlers creates new cart handlers
func NewCartHandlers(db *sql.DB, taskQueue *services.TaskQueue) *CartHandlers {
	return &CartHandlers{
		cartService:  services.NewCartService(db, taskQueue),
		orderService: services.NewOrderService(db),
	}
}

// GetCart returns the buyer's open cart
func (h *CartHandlers) GetCart(c *gin.Context) {
	view, err := h.cartService.GetCart(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

// UpdateCart replaces the whole cart contents with the submitted items
func (h *CartHandlers) UpdateCart(c *gin.Context) {
	var req models.CartUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request data: " + err.Error(),
		})
		return
	}

	view, err := h.cartService.ReplaceItems(c.GetString("userID"), &req)
	if err != nil {
		h.cartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

// ClearCart removes everything from the cart
func (h *CartHandlers) ClearCart(c *gin.Context) {
	if err := h.cartService.ClearCart(c.GetString("userID")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to clear cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Cart cleared",
	})
}

// Checkout places the cart as an order and returns the buyer's view of it
func (h *CartHandlers) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request data: " + err.Error(),
		})
		return
	}

	customerID := c.GetString("userID")
	orderID, err := h.cartService.Checkout(customerID, req.Address)
	if err != nil {
		h.cartError(c, err)
		return
	}

	view, err := h.orderService.GetForBuyer(orderID, customerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load placed order",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    view,
	})
}

// cartError maps cart service failures onto API responses. Stock failures
// carry a structured payload naming the losing line.
func (h *CartHandlers) cartError(c *gin.Context, err error) {
	var stockErr *services.StockError
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "not enough stock",
			"detail":  stockErr,
		})
	case errors.Is(err, services.ErrCartEmpty):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "cart is empty",
		})
	case errors.Is(err, services.ErrAddressRequired):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "address is required",
		})
	case errors.Is(err, services.ErrPricelistMissing):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "pricelist not found",
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
	}
}
