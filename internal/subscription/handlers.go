package subscription

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/plan"
)

// Handler provides HTTP endpoints for subscription management.
type Handler struct {
	svc *Service
}

// NewHandler creates a new subscription handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up the tenant-facing read endpoint. The group must
// already enforce school access.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/schools/:schoolId/subscription", h.GetSubscription)
}

// RegisterOperatorRoutes sets up operator-only subscription management.
func (h *Handler) RegisterOperatorRoutes(r *gin.RouterGroup) {
	r.POST("/schools/:schoolId/subscription", h.CreateSubscription)
	r.PATCH("/schools/:schoolId/subscription", h.UpdateSubscription)
	r.PUT("/schools/:schoolId/subscription/limits", h.SetCustomLimits)
	r.POST("/schools/:schoolId/subscription/packs", h.AppendPack)
	r.DELETE("/schools/:schoolId/subscription/packs/:index", h.RemovePack)
}

// GetSubscription handles GET /v1/schools/:schoolId/subscription
func (h *Handler) GetSubscription(c *gin.Context) {
	sub, err := h.svc.Get(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no subscription for school"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load subscription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// CreateSubscription handles POST /v1/ops/schools/:schoolId/subscription
func (h *Handler) CreateSubscription(c *gin.Context) {
	var req struct {
		PlanID       string             `json:"planId"`
		Status       Status             `json:"status"`
		RenewalDate  time.Time          `json:"renewalDate"`
		CustomLimits *limits.UsageLimit `json:"customLimits"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid body"})
		return
	}
	if req.RenewalDate.IsZero() {
		req.RenewalDate = time.Now().AddDate(0, 1, 0)
	}

	sub, err := h.svc.Create(c.Request.Context(), c.Param("schoolId"), req.PlanID, req.Status, req.RenewalDate, req.CustomLimits)
	if err != nil {
		switch {
		case errors.Is(err, ErrExists):
			c.JSON(http.StatusConflict, gin.H{"error": "subscription_exists", "message": "school already has a subscription"})
		case errors.Is(err, plan.ErrPlanNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_plan", "message": "plan does not exist"})
		case errors.Is(err, limits.ErrInvalidLimit):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limits", "message": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_subscription", "message": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscription": sub})
}

// UpdateSubscription handles PATCH /v1/ops/schools/:schoolId/subscription
func (h *Handler) UpdateSubscription(c *gin.Context) {
	var req struct {
		PlanID *string `json:"planId"`
		Status *Status `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid body"})
		return
	}

	schoolID := c.Param("schoolId")
	var sub *Subscription
	var err error

	if req.PlanID != nil {
		sub, err = h.svc.ChangePlan(c.Request.Context(), schoolID, *req.PlanID)
		if err != nil {
			respondSubError(c, err)
			return
		}
	}
	if req.Status != nil {
		sub, err = h.svc.SetStatus(c.Request.Context(), schoolID, *req.Status)
		if err != nil {
			respondSubError(c, err)
			return
		}
	}
	if sub == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "nothing to update"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// SetCustomLimits handles PUT /v1/ops/schools/:schoolId/subscription/limits
//
// A null body field clears the override; the school reverts to plan limits.
func (h *Handler) SetCustomLimits(c *gin.Context) {
	var req struct {
		Limits *limits.UsageLimit `json:"limits"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid body"})
		return
	}

	sub, err := h.svc.SetCustomLimits(c.Request.Context(), c.Param("schoolId"), req.Limits)
	if err != nil {
		respondSubError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// AppendPack handles POST /v1/ops/schools/:schoolId/subscription/packs
func (h *Handler) AppendPack(c *gin.Context) {
	var pack limits.Pack
	if err := c.ShouldBindJSON(&pack); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid body"})
		return
	}

	sub, err := h.svc.AppendPack(c.Request.Context(), c.Param("schoolId"), pack)
	if err != nil {
		respondSubError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscription": sub})
}

// RemovePack handles DELETE /v1/ops/schools/:schoolId/subscription/packs/:index
func (h *Handler) RemovePack(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "pack index must be an integer"})
		return
	}

	sub, err := h.svc.RemovePack(c.Request.Context(), c.Param("schoolId"), index)
	if err != nil {
		respondSubError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

func respondSubError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no subscription for school"})
	case errors.Is(err, plan.ErrPlanNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_plan", "message": "plan does not exist"})
	case errors.Is(err, limits.ErrInvalidLimit):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limits", "message": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	}
}
