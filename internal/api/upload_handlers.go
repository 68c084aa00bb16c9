package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"markethub-backend/config"
	"markethub-backend/internal/services"
)

// UploadHandlers contains the price-list upload handlers
type UploadHandlers struct {
	pricelistService *services.PricelistService
	taskQueue        *services.TaskQueue
	config           *config.Config
}

// NewUploadHandlers creates new upload handlers
func NewUploadHandlers(db *sql.DB, taskQueue *services.TaskQueue, cfg *config.Config) *UploadHandlers {
	return &UploadHandlers{
		pricelistService: services.NewPricelistService(db),
		taskQueue:        taskQueue,
		config:           cfg,
	}
}

// Upload accepts a price-list file and queues it for parsing. The caller
// gets the upload id back immediately and polls the result endpoint.
func (h *UploadHandlers) Upload(c *gin.Context) {
	sellerID := c.GetString("userID")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "File required in `file` form field",
		})
		return
	}

	if fileHeader.Size > h.config.MaxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"success": false,
			"error":   fmt.Sprintf("File too large (max %d bytes)", h.config.MaxFileSize),
		})
		return
	}

	if err := os.MkdirAll(h.config.UploadPath, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to store uploaded file",
		})
		return
	}

	// Saved under a fresh name so two sellers uploading "pricelist.csv"
	// never collide.
	destPath := filepath.Join(h.config.UploadPath, uuid.New().String()+filepath.Ext(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, destPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to store uploaded file",
		})
		return
	}

	upload, err := h.pricelistService.CreateUpload(sellerID, destPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to record upload",
		})
		return
	}

	if err := h.taskQueue.EnqueueParsePricelist(upload.ID); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "Server busy, try again later",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":               true,
		"id":                    upload.ID,
		"result_check_endpoint": "/upload/" + upload.ID,
	})
}

// GetUploadResult returns the stored parse result for one upload
func (h *UploadHandlers) GetUploadResult(c *gin.Context) {
	sellerID := c.GetString("userID")
	fileID := c.Param("id")

	upload, err := h.pricelistService.GetUpload(fileID, sellerID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUploadNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Upload not found",
			})
		case errors.Is(err, services.ErrNotUploadOwner):
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Upload belongs to another seller",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to load upload",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"id":            upload.ID,
		"uploaded_at":   upload.UploadedAt,
		"upload_result": upload.UploadResult,
	})
}
