package guard

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// HeaderRole carries the verified role, injected by the identity gateway.
	HeaderRole = "X-Identity-Role"
	// HeaderSchool carries the actor's own school ID (absent for platform roles).
	HeaderSchool = "X-Identity-School"
	// HeaderOperatorSecret authenticates the operator management surface.
	HeaderOperatorSecret = "X-Operator-Secret"

	// ContextKeyActor is the gin context key holding the decoded Actor.
	ContextKeyActor = "guardActor"
)

var guardDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "schoolgrid",
	Subsystem: "guard",
	Name:      "denials_total",
	Help:      "Total tenant-isolation denials by actor role.",
}, []string{"role"})

func init() {
	prometheus.MustRegister(guardDenials)
}

// Identity decodes the trusted identity headers into an Actor and stores it
// in the request context. Requests without a valid role are left anonymous;
// RequireSchoolAccess rejects them later.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c.GetHeader(HeaderRole))
		if ValidRole(role) {
			c.Set(ContextKeyActor, Actor{
				Role:     role,
				SchoolID: c.GetHeader(HeaderSchool),
			})
		}
		c.Next()
	}
}

// ActorFrom returns the decoded actor from the request context.
func ActorFrom(c *gin.Context) (Actor, bool) {
	v, exists := c.Get(ContextKeyActor)
	if !exists {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok
}

// RequestedSchoolID extracts the target school from the :schoolId path
// parameter, falling back to the schoolId query parameter. The guard applies
// uniformly to both shapes so that query-parameterised endpoints (analytics,
// exports) get the same protection as path-parameterised ones.
func RequestedSchoolID(c *gin.Context) string {
	if id := c.Param("schoolId"); id != "" {
		return id
	}
	return c.Query("schoolId")
}

// RequireSchoolAccess is the tenant-isolation middleware. It must run before
// any handler that touches tenant data, including read-only endpoints.
// A mismatch is always a 403, logged as a security-relevant event; it is
// never downgraded to an empty result.
func RequireSchoolAccess(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthenticated",
				"message": "verified identity required",
			})
			return
		}

		requested := RequestedSchoolID(c)
		if requested == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "missing_school_id",
				"message": "schoolId path or query parameter required",
			})
			return
		}

		if err := Check(actor, requested); err != nil {
			guardDenials.WithLabelValues(string(actor.Role)).Inc()
			logger.Warn("tenant isolation denial",
				"role", actor.Role,
				"actor_school", actor.SchoolID,
				"requested_school", requested,
				"path", c.FullPath(),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "tenant_mismatch",
				"message": "you do not have access to this school",
			})
			return
		}

		c.Next()
	}
}

// RequireOperator gates the platform management surface. A request passes
// with the operator shared secret or a SUPER_ADMIN identity.
func RequireOperator(secret string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret != "" && c.GetHeader(HeaderOperatorSecret) == secret {
			c.Next()
			return
		}
		if actor, ok := ActorFrom(c); ok && actor.Role == RoleSuperAdmin {
			c.Next()
			return
		}
		logger.Warn("operator surface denial", "path", c.FullPath())
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "operator access required",
		})
	}
}
