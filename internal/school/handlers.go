package school

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for schools and branches.
type Handler struct {
	svc *Service
}

// NewHandler creates a new school handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up tenant-facing endpoints. The group must already
// enforce school access.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/schools/:schoolId", h.GetSchool)
	r.GET("/schools/:schoolId/branches", h.ListBranches)
	r.POST("/schools/:schoolId/branches", h.AddBranch)
	r.DELETE("/schools/:schoolId/branches/:branchId", h.DeleteBranch)
}

// RegisterOperatorRoutes sets up operator-only registry management.
func (h *Handler) RegisterOperatorRoutes(r *gin.RouterGroup) {
	r.POST("/schools", h.RegisterSchool)
	r.GET("/schools", h.ListSchools)
	r.PATCH("/schools/:schoolId/status", h.SetStatus)
}

// GetSchool handles GET /v1/schools/:schoolId
func (h *Handler) GetSchool(c *gin.Context) {
	sch, err := h.svc.Get(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "school not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load school"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"school": sch})
}

// RegisterSchool handles POST /v1/ops/schools
func (h *Handler) RegisterSchool(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
		Slug string `json:"slug" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "name and slug required"})
		return
	}

	sch, err := h.svc.Register(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		if errors.Is(err, ErrSlugTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "slug_taken", "message": "slug already in use"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"school": sch})
}

// ListSchools handles GET /v1/ops/schools
func (h *Handler) ListSchools(c *gin.Context) {
	schools, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list schools"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schools": schools, "count": len(schools)})
}

// SetStatus handles PATCH /v1/ops/schools/:schoolId/status
func (h *Handler) SetStatus(c *gin.Context) {
	var req struct {
		Status Status `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "status required"})
		return
	}
	switch req.Status {
	case StatusActive, StatusSuspended, StatusCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "unknown status"})
		return
	}

	sch, err := h.svc.SetStatus(c.Request.Context(), c.Param("schoolId"), req.Status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "school not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to update school"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"school": sch})
}

// ListBranches handles GET /v1/schools/:schoolId/branches
func (h *Handler) ListBranches(c *gin.Context) {
	branches, err := h.svc.ListBranches(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list branches"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"branches": branches, "count": len(branches)})
}

// AddBranch handles POST /v1/schools/:schoolId/branches
func (h *Handler) AddBranch(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "name required"})
		return
	}

	b, d, err := h.svc.AddBranch(c.Request.Context(), c.Param("schoolId"), req.Name, req.Address)
	if err != nil {
		if errors.Is(err, ErrLimitExceeded) {
			c.JSON(http.StatusConflict, gin.H{"error": "limit_exceeded", "message": "branch limit reached", "decision": d})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"branch": b})
}

// DeleteBranch handles DELETE /v1/schools/:schoolId/branches/:branchId
func (h *Handler) DeleteBranch(c *gin.Context) {
	if err := h.svc.DeleteBranch(c.Request.Context(), c.Param("schoolId"), c.Param("branchId")); err != nil {
		if errors.Is(err, ErrBranchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "branch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to delete branch"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "branch deleted"})
}
