package invoicing

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jmwangi/schoolgrid/internal/entitlement"
)

// Handler provides HTTP endpoints for invoicing.
type Handler struct {
	svc *Service
}

// NewHandler creates a new invoicing handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up invoicing endpoints. The group must already enforce
// school access. The analytics endpoint identifies its school by query
// parameter instead of a path segment, so the guard's query fallback covers
// it.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/schools/:schoolId/invoices", h.Issue)
	r.GET("/schools/:schoolId/invoices", h.List)
	r.GET("/schools/:schoolId/invoices/:id", h.Get)
	r.POST("/schools/:schoolId/invoices/:id/pay", h.MarkPaid)
	r.POST("/schools/:schoolId/invoices/:id/void", h.Void)
}

// RegisterAnalyticsRoutes sets up the query-param-scoped analytics reads.
func (h *Handler) RegisterAnalyticsRoutes(r *gin.RouterGroup) {
	r.GET("/analytics/revenue", h.Revenue)
}

// Issue handles POST /v1/schools/:schoolId/invoices
func (h *Handler) Issue(c *gin.Context) {
	var req struct {
		StudentID            string     `json:"studentId"`
		Number               string     `json:"number" binding:"required"`
		Items                []LineItem `json:"items" binding:"required"`
		IncludeModuleCharges bool       `json:"includeModuleCharges"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "number and items required"})
		return
	}

	inv, d, err := h.svc.Issue(c.Request.Context(), c.Param("schoolId"), req.StudentID, req.Number, req.Items, req.IncludeModuleCharges)
	if err != nil {
		switch {
		case errors.Is(err, ErrLimitExceeded):
			c.JSON(http.StatusConflict, gin.H{"error": "limit_exceeded", "message": "invoice limit reached", "decision": d})
		case errors.Is(err, entitlement.ErrSubscriptionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription_not_found", "message": "no subscription configured for this school"})
		case errors.Is(err, entitlement.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "limits_unavailable", "message": "entitlements temporarily unavailable"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		}
		return
	}

	resp := gin.H{"invoice": inv}
	if d.Verdict == entitlement.VerdictAllowWithOverage {
		resp["overage"] = gin.H{"extraUnits": d.ExtraUnits, "estimatedCharge": d.EstimatedCharge}
	}
	c.JSON(http.StatusCreated, resp)
}

// List handles GET /v1/schools/:schoolId/invoices
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	invoices, next, more, err := h.svc.List(c.Request.Context(), c.Param("schoolId"), c.Query("cursor"), limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if invoices == nil {
		invoices = []*Invoice{}
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices, "nextCursor": next, "hasMore": more})
}

// Get handles GET /v1/schools/:schoolId/invoices/:id
func (h *Handler) Get(c *gin.Context) {
	inv, err := h.svc.Get(c.Request.Context(), c.Param("schoolId"), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "invoice not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load invoice"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

// MarkPaid handles POST /v1/schools/:schoolId/invoices/:id/pay
func (h *Handler) MarkPaid(c *gin.Context) {
	inv, err := h.svc.MarkPaid(c.Request.Context(), c.Param("schoolId"), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "invoice not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

// Void handles POST /v1/schools/:schoolId/invoices/:id/void
func (h *Handler) Void(c *gin.Context) {
	inv, err := h.svc.Void(c.Request.Context(), c.Param("schoolId"), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "invoice not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to void invoice"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

// Revenue handles GET /v1/analytics/revenue?schoolId=...
func (h *Handler) Revenue(c *gin.Context) {
	schoolID := c.Query("schoolId")
	if schoolID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_school_id", "message": "schoolId query parameter required"})
		return
	}

	total, err := h.svc.Revenue(c.Request.Context(), schoolID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to compute revenue"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schoolId": schoolID, "revenue": total})
}
