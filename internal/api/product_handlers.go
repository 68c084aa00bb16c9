package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"markethub-backend/internal/services"
	"markethub-backend/internal/utils"
)

// ProductHandlers contains the public catalog handlers
type ProductHandlers struct {
	catalogService *services.CatalogService
}

// NewProductHandlers creates new product handlers
func NewProductHandlers(db *sql.DB) *ProductHandlers {
	return &ProductHandlers{
		catalogService: services.NewCatalogService(db),
	}
}

// ListProducts returns the whole catalog with every seller's price rows
func (h *ProductHandlers) ListProducts(c *gin.Context) {
	listings, err := h.catalogService.ListVariants()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load catalog",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    listings,
	})
}

// GetProduct returns one variant with prices and characteristics
func (h *ProductHandlers) GetProduct(c *gin.Context) {
	id := c.Param("id")
	if !utils.ValidateUUID(id) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Product not found",
		})
		return
	}

	detail, err := h.catalogService.GetVariant(id)
	if err != nil {
		if errors.Is(err, services.ErrVariantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Product not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load product",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    detail,
	})
}
