package modules

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for the module ledger.
type Handler struct {
	svc *Service
}

// NewHandler creates a new modules handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up tenant-facing reads. The group must already
// enforce school access.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/schools/:schoolId/modules", h.ListModules)
}

// RegisterOperatorRoutes sets up operator-only module management.
func (h *Handler) RegisterOperatorRoutes(r *gin.RouterGroup) {
	r.PUT("/schools/:schoolId/modules", h.SetModules)
}

// ListModules handles GET /v1/schools/:schoolId/modules
func (h *Handler) ListModules(c *gin.Context) {
	mods, err := h.svc.List(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list modules"})
		return
	}

	total, err := MonthlyTotal(mods)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	if mods == nil {
		mods = []ModuleSubscription{}
	}
	c.JSON(http.StatusOK, gin.H{"modules": mods, "monthlyTotal": total})
}

// SetModules handles PUT /v1/ops/schools/:schoolId/modules
func (h *Handler) SetModules(c *gin.Context) {
	var req struct {
		Modules []ModuleSubscription `json:"modules"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid body"})
		return
	}

	if err := h.svc.SetModules(c.Request.Context(), c.Param("schoolId"), req.Modules); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_modules", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "modules updated", "count": len(req.Modules)})
}
