package filestore

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmwangi/schoolgrid/internal/entitlement"
)

// Handler provides HTTP endpoints for file metadata.
type Handler struct {
	svc *Service
}

// NewHandler creates a new filestore handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up filestore endpoints. The group must already enforce
// school access.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/schools/:schoolId/files", h.Record)
	r.GET("/schools/:schoolId/files", h.List)
	r.DELETE("/schools/:schoolId/files/:id", h.Remove)
}

// Record handles POST /v1/schools/:schoolId/files
func (h *Handler) Record(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		SizeBytes   uint64 `json:"sizeBytes" binding:"required"`
		ContentType string `json:"contentType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "name and sizeBytes required"})
		return
	}

	f, d, err := h.svc.Record(c.Request.Context(), c.Param("schoolId"), req.Name, req.ContentType, req.SizeBytes)
	if err != nil {
		switch {
		case errors.Is(err, ErrLimitExceeded):
			c.JSON(http.StatusConflict, gin.H{"error": "limit_exceeded", "message": "storage limit reached", "decision": d})
		case errors.Is(err, entitlement.ErrSubscriptionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription_not_found", "message": "no subscription configured for this school"})
		case errors.Is(err, entitlement.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "limits_unavailable", "message": "entitlements temporarily unavailable"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		}
		return
	}

	resp := gin.H{"file": f}
	if d.Verdict == entitlement.VerdictAllowWithOverage {
		resp["overage"] = gin.H{"extraUnits": d.ExtraUnits, "estimatedCharge": d.EstimatedCharge}
	}
	c.JSON(http.StatusCreated, resp)
}

// List handles GET /v1/schools/:schoolId/files
func (h *Handler) List(c *gin.Context) {
	files, err := h.svc.List(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list files"})
		return
	}
	if files == nil {
		files = []*File{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files, "count": len(files)})
}

// Remove handles DELETE /v1/schools/:schoolId/files/:id
func (h *Handler) Remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), c.Param("schoolId"), c.Param("id")); err != nil {
		if errors.Is(err, ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to delete file"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "file deleted"})
}
