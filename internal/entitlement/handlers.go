package entitlement

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/usage"
)

// Handler provides HTTP endpoints for entitlement reads and authorization.
type Handler struct {
	resolver *Resolver
	enforcer *Enforcer
	counter  *usage.Counter
}

// NewHandler creates a new entitlement handler.
func NewHandler(resolver *Resolver, enforcer *Enforcer, counter *usage.Counter) *Handler {
	return &Handler{resolver: resolver, enforcer: enforcer, counter: counter}
}

// RegisterRoutes sets up tenant-facing entitlement endpoints. The group must
// already enforce school access.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/schools/:schoolId/entitlements", h.GetEntitlements)
	r.GET("/schools/:schoolId/usage", h.GetUsage)
	r.POST("/schools/:schoolId/entitlements/authorize", h.Authorize)
}

// GetEntitlements handles GET /v1/schools/:schoolId/entitlements
func (h *Handler) GetEntitlements(c *gin.Context) {
	eff, err := h.resolver.Resolve(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		respondResolveError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entitlements": eff})
}

// GetUsage handles GET /v1/schools/:schoolId/usage
//
// Returns live counts next to effective limits so dashboards can render
// consumption bars in one call.
func (h *Handler) GetUsage(c *gin.Context) {
	schoolID := c.Param("schoolId")

	eff, err := h.resolver.Resolve(c.Request.Context(), schoolID)
	if err != nil {
		respondResolveError(c, err)
		return
	}
	snap, err := h.counter.Snapshot(c.Request.Context(), schoolID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "usage_unavailable", "message": "usage counts unavailable"})
		return
	}

	type row struct {
		Used      uint64       `json:"used"`
		Limit     limits.Limit `json:"limit"`
		Remaining *uint64      `json:"remaining,omitempty"`
	}
	report := make(map[limits.Resource]row, len(limits.Resources))
	for _, r := range limits.Resources {
		used := snap.Get(r)
		lim := eff.Get(r)
		entry := row{Used: used, Limit: lim}
		if !lim.IsUnlimited() {
			var rem uint64
			if lim.Value() > used {
				rem = lim.Value() - used
			}
			entry.Remaining = &rem
		}
		report[r] = entry
	}

	c.JSON(http.StatusOK, gin.H{
		"schoolId": schoolID,
		"source":   eff.Source,
		"mode":     eff.Mode,
		"usage":    report,
	})
}

// Authorize handles POST /v1/schools/:schoolId/entitlements/authorize
//
// The response always carries a decision; only infrastructure failures map
// to non-200 statuses.
func (h *Handler) Authorize(c *gin.Context) {
	var req struct {
		Resource limits.Resource `json:"resource" binding:"required"`
		Qty      uint64          `json:"qty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "resource required"})
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}

	d, err := h.enforcer.Authorize(c.Request.Context(), c.Param("schoolId"), req.Resource, req.Qty)
	if err != nil {
		respondResolveError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"decision": d})
}

func respondResolveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription_not_found", "message": "no subscription configured for this school"})
	case errors.Is(err, ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "limits_unavailable", "message": "entitlements temporarily unavailable"})
	case errors.Is(err, ErrInvalidLimits):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid_limits", "message": "stored limits are invalid, contact support"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	}
}
