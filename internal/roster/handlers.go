package roster

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jmwangi/schoolgrid/internal/entitlement"
)

// Handler provides HTTP endpoints for the roster.
type Handler struct {
	svc *Service
}

// NewHandler creates a new roster handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up roster endpoints. The group must already enforce
// school access.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/schools/:schoolId/students", h.EnrollStudent)
	r.GET("/schools/:schoolId/students", h.ListStudents)
	r.DELETE("/schools/:schoolId/students/:id", h.RemoveStudent)

	r.POST("/schools/:schoolId/teachers", h.HireTeacher)
	r.GET("/schools/:schoolId/teachers", h.ListTeachers)
	r.DELETE("/schools/:schoolId/teachers/:id", h.RemoveTeacher)
}

// EnrollStudent handles POST /v1/schools/:schoolId/students
func (h *Handler) EnrollStudent(c *gin.Context) {
	var req struct {
		Name          string `json:"name" binding:"required"`
		AdmissionNo   string `json:"admissionNo"`
		GuardianPhone string `json:"guardianPhone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "name required"})
		return
	}

	st, d, err := h.svc.EnrollStudent(c.Request.Context(), c.Param("schoolId"), req.Name, req.AdmissionNo, req.GuardianPhone)
	if err != nil {
		respondWriteError(c, d, err)
		return
	}

	resp := gin.H{"student": st}
	if d.Verdict == entitlement.VerdictAllowWithOverage {
		resp["overage"] = gin.H{"extraUnits": d.ExtraUnits, "estimatedCharge": d.EstimatedCharge}
	}
	c.JSON(http.StatusCreated, resp)
}

// ListStudents handles GET /v1/schools/:schoolId/students
func (h *Handler) ListStudents(c *gin.Context) {
	limit, offset := pageParams(c)
	students, err := h.svc.Students(c.Request.Context(), c.Param("schoolId"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list students"})
		return
	}
	if students == nil {
		students = []*Student{}
	}
	c.JSON(http.StatusOK, gin.H{"students": students, "count": len(students)})
}

// RemoveStudent handles DELETE /v1/schools/:schoolId/students/:id
func (h *Handler) RemoveStudent(c *gin.Context) {
	err := h.svc.RemoveStudent(c.Request.Context(), c.Param("schoolId"), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrStudentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "student not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to delete student"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "student removed"})
}

// HireTeacher handles POST /v1/schools/:schoolId/teachers
func (h *Handler) HireTeacher(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Email   string `json:"email"`
		Subject string `json:"subject"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "name required"})
		return
	}

	tc, d, err := h.svc.HireTeacher(c.Request.Context(), c.Param("schoolId"), req.Name, req.Email, req.Subject)
	if err != nil {
		respondWriteError(c, d, err)
		return
	}

	resp := gin.H{"teacher": tc}
	if d.Verdict == entitlement.VerdictAllowWithOverage {
		resp["overage"] = gin.H{"extraUnits": d.ExtraUnits, "estimatedCharge": d.EstimatedCharge}
	}
	c.JSON(http.StatusCreated, resp)
}

// ListTeachers handles GET /v1/schools/:schoolId/teachers
func (h *Handler) ListTeachers(c *gin.Context) {
	limit, offset := pageParams(c)
	teachers, err := h.svc.Teachers(c.Request.Context(), c.Param("schoolId"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list teachers"})
		return
	}
	if teachers == nil {
		teachers = []*Teacher{}
	}
	c.JSON(http.StatusOK, gin.H{"teachers": teachers, "count": len(teachers)})
}

// RemoveTeacher handles DELETE /v1/schools/:schoolId/teachers/:id
func (h *Handler) RemoveTeacher(c *gin.Context) {
	err := h.svc.RemoveTeacher(c.Request.Context(), c.Param("schoolId"), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrTeacherNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "teacher not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to delete teacher"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "teacher removed"})
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func respondWriteError(c *gin.Context, d entitlement.Decision, err error) {
	switch {
	case errors.Is(err, ErrLimitExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": "limit_exceeded", "message": "plan limit reached", "decision": d})
	case errors.Is(err, entitlement.ErrSubscriptionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription_not_found", "message": "no subscription configured for this school"})
	case errors.Is(err, entitlement.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "limits_unavailable", "message": "entitlements temporarily unavailable"})
	case errors.Is(err, entitlement.ErrInvalidLimits):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid_limits", "message": "stored limits are invalid, contact support"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	}
}
