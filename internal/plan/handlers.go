package plan

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/validation"
)

// Handler provides HTTP endpoints for the plan catalogue.
type Handler struct {
	store Store
}

// NewHandler creates a new plan handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up the public catalogue reads (pricing pages).
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/plans", h.ListPlans)
	r.GET("/plans/:id", h.GetPlan)
}

// RegisterOperatorRoutes sets up operator-only catalogue management.
func (h *Handler) RegisterOperatorRoutes(r *gin.RouterGroup) {
	r.POST("/plans", h.CreatePlan)
	r.PATCH("/plans/:id", h.UpdatePlan)
	r.DELETE("/plans/:id", h.DeletePlan)
}

// ListPlans handles GET /v1/plans
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list plans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans, "count": len(plans)})
}

// GetPlan handles GET /v1/plans/:id
func (h *Handler) GetPlan(c *gin.Context) {
	p, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": p})
}

type planRequest struct {
	Name         string             `json:"name" binding:"required"`
	MonthlyPrice string             `json:"monthlyPrice" binding:"required"`
	Limits       limits.UsageLimit  `json:"limits"`
	Features     []string           `json:"features"`
	Recommended  bool               `json:"recommended"`
}

// CreatePlan handles POST /v1/ops/plans (operator only).
func (h *Handler) CreatePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "name and monthlyPrice required"})
		return
	}

	now := time.Now()
	p := &Plan{
		ID:           "pln_" + validation.SanitizeSlug(req.Name),
		Name:         validation.SanitizeString(req.Name, 200),
		MonthlyPrice: req.MonthlyPrice,
		Limits:       req.Limits,
		Features:     req.Features,
		Recommended:  req.Recommended,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_plan", "message": err.Error()})
		return
	}

	if err := h.store.Create(c.Request.Context(), p); err != nil {
		if errors.Is(err, ErrPlanExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "plan_exists", "message": "a plan with this name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to create plan"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"plan": p})
}

// UpdatePlan handles PATCH /v1/ops/plans/:id (operator only).
func (h *Handler) UpdatePlan(c *gin.Context) {
	p, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	var req struct {
		Name         *string            `json:"name"`
		MonthlyPrice *string            `json:"monthlyPrice"`
		Limits       *limits.UsageLimit `json:"limits"`
		Features     *[]string          `json:"features"`
		Recommended  *bool              `json:"recommended"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid body"})
		return
	}

	if req.Name != nil {
		p.Name = validation.SanitizeString(*req.Name, 200)
	}
	if req.MonthlyPrice != nil {
		p.MonthlyPrice = *req.MonthlyPrice
	}
	if req.Limits != nil {
		p.Limits = *req.Limits
	}
	if req.Features != nil {
		p.Features = *req.Features
	}
	if req.Recommended != nil {
		p.Recommended = *req.Recommended
	}
	p.UpdatedAt = time.Now()

	if err := p.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_plan", "message": err.Error()})
		return
	}

	if err := h.store.Update(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to update plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": p})
}

// DeletePlan handles DELETE /v1/ops/plans/:id (operator only).
func (h *Handler) DeletePlan(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to delete plan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "plan deleted"})
}
