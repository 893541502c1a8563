// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/jmwangi/schoolgrid/internal/config"
	"github.com/jmwangi/schoolgrid/internal/entitlement"
	"github.com/jmwangi/schoolgrid/internal/filestore"
	"github.com/jmwangi/schoolgrid/internal/guard"
	"github.com/jmwangi/schoolgrid/internal/health"
	"github.com/jmwangi/schoolgrid/internal/invoicing"
	"github.com/jmwangi/schoolgrid/internal/logging"
	"github.com/jmwangi/schoolgrid/internal/metrics"
	"github.com/jmwangi/schoolgrid/internal/modules"
	"github.com/jmwangi/schoolgrid/internal/payments"
	"github.com/jmwangi/schoolgrid/internal/plan"
	"github.com/jmwangi/schoolgrid/internal/ratelimit"
	"github.com/jmwangi/schoolgrid/internal/realtime"
	"github.com/jmwangi/schoolgrid/internal/roster"
	"github.com/jmwangi/schoolgrid/internal/school"
	"github.com/jmwangi/schoolgrid/internal/security"
	"github.com/jmwangi/schoolgrid/internal/subscription"
	"github.com/jmwangi/schoolgrid/internal/syncutil"
	"github.com/jmwangi/schoolgrid/internal/traces"
	"github.com/jmwangi/schoolgrid/internal/usage"
	"github.com/jmwangi/schoolgrid/internal/validation"
	"github.com/jmwangi/schoolgrid/internal/webhooks"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	planStore    plan.Store
	schoolSvc    *school.Service
	subSvc       *subscription.Service
	moduleSvc    *modules.Service
	rosterSvc    *roster.Service
	invoiceSvc   *invoicing.Service
	fileSvc      *filestore.Service
	resolver     *entitlement.Resolver
	enforcer     *entitlement.Enforcer
	counter      *usage.Counter
	webhookStore webhooks.Store
	dispatcher   *webhooks.Dispatcher
	realtimeHub  *realtime.Hub
	healthReg    *health.Registry
	rateLimiter  *ratelimit.Limiter

	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run
	tracesStop   func(context.Context) error

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	for _, opt := range opts {
		opt(s)
	}

	// Context for initialization
	ctx := context.Background()

	var (
		schoolStore  school.Store
		subStore     subscription.Store
		moduleStore  modules.Store
		rosterStore  roster.Store
		invoiceStore invoicing.Store
		fileStore    filestore.Store
	)

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		planPG := plan.NewPostgresStore(db)
		schoolPG := school.NewPostgresStore(db)
		subPG := subscription.NewPostgresStore(db)
		modulePG := modules.NewPostgresStore(db)
		rosterPG := roster.NewPostgresStore(db)
		invoicePG := invoicing.NewPostgresStore(db)
		filePG := filestore.NewPostgresStore(db)
		webhookPG := webhooks.NewPostgresStore(db)

		for name, m := range map[string]interface {
			Migrate(context.Context) error
		}{
			"plan":         planPG,
			"school":       schoolPG,
			"subscription": subPG,
			"modules":      modulePG,
			"roster":       rosterPG,
			"invoicing":    invoicePG,
			"filestore":    filePG,
			"webhooks":     webhookPG,
		} {
			if err := m.Migrate(ctx); err != nil {
				s.logger.Warn("failed to migrate store", "store", name, "error", err)
			}
		}

		s.planStore = planPG
		schoolStore = schoolPG
		subStore = subPG
		moduleStore = modulePG
		rosterStore = rosterPG
		invoiceStore = invoicePG
		fileStore = filePG
		s.webhookStore = webhookPG
	} else {
		s.logger.Info("using in-memory storage (data will not persist)")
		s.planStore = plan.NewMemoryStore()
		schoolStore = school.NewMemoryStore()
		subStore = subscription.NewMemoryStore()
		moduleStore = modules.NewMemoryStore()
		rosterStore = roster.NewMemoryStore()
		invoiceStore = invoicing.NewMemoryStore()
		fileStore = filestore.NewMemoryStore()
		s.webhookStore = webhooks.NewMemoryStore()
	}

	// Seed the builtin plan catalogue (no-op for plans that already exist)
	if err := plan.Seed(ctx, s.planStore); err != nil {
		s.logger.Warn("failed to seed plan catalogue", "error", err)
	}

	// Webhooks and realtime streaming
	s.dispatcher = webhooks.NewDispatcher(s.webhookStore)
	emitter := webhooks.NewEmitter(s.dispatcher, s.logger)
	s.realtimeHub = realtime.NewHub(s.logger)
	s.logger.Info("webhooks and realtime streaming enabled")

	// Live usage counting across the tenant data stores
	s.counter = usage.NewCounter(usage.MultiSource{
		Students: rosterStore,
		Teachers: rosterStore,
		Invoices: invoiceStore,
		Storage:  fileStore,
		Branches: schoolStore,
	})

	// Entitlement resolution and enforcement
	s.resolver = entitlement.NewResolver(subStore, s.planStore, s.logger)
	s.enforcer = entitlement.NewEnforcer(s.resolver, s.counter, entitlement.NewConfigPricer(cfg), s.logger).
		WithNotifier(&enforcementEvents{emitter: emitter, hub: s.realtimeHub})

	// Tenant services. Write paths share one sharded lock map so an
	// entitlement check and its insert are atomic per school+resource.
	locks := syncutil.NewContextShardedMutex()
	s.schoolSvc = school.NewService(schoolStore, s.enforcer, locks, s.logger)
	s.subSvc = subscription.NewService(subStore, s.planStore, &subscriptionEvents{emitter: emitter, hub: s.realtimeHub}, s.logger)
	s.moduleSvc = modules.NewService(moduleStore, emitter, s.logger)
	s.rosterSvc = roster.NewService(rosterStore, s.enforcer, locks, s.logger)
	s.invoiceSvc = invoicing.NewService(invoiceStore, s.enforcer, s.moduleSvc, locks, s.logger)
	s.fileSvc = filestore.NewService(fileStore, s.enforcer, locks, s.logger)

	// Health checks
	s.healthReg = health.NewRegistry()
	if s.db != nil {
		s.healthReg.Register("database", func(ctx context.Context) health.Status {
			if err := s.db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	}

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for development - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPM > 0 {
		rlCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	}
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// API info
	s.router.GET("/api", s.infoHandler)

	// WebSocket for real-time streaming (enforcement decisions, overages,
	// subscription changes). Identity is checked before the upgrade:
	// tenant-scoped roles are pinned to their own school's events,
	// SUPER_ADMIN sees the whole platform.
	s.router.GET("/ws", guard.Identity(), func(c *gin.Context) {
		actor, ok := guard.ActorFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthenticated",
				"message": "verified identity required",
			})
			return
		}
		scope := ""
		if guard.TenantScoped(actor.Role) {
			if actor.SchoolID == "" {
				c.JSON(http.StatusForbidden, gin.H{
					"error":   "tenant_mismatch",
					"message": "identity is not bound to a school",
				})
				return
			}
			scope = actor.SchoolID
		}
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request, scope)
	})

	// V1 API group. Identity headers are decoded for every route; access
	// checks happen per group below.
	v1 := s.router.Group("/v1")
	v1.Use(guard.Identity())
	// Validate :schoolId URL params on all v1 routes (no-op when param absent)
	v1.Use(validation.SchoolParamMiddleware())

	planHandler := plan.NewHandler(s.planStore)
	schoolHandler := school.NewHandler(s.schoolSvc)
	subHandler := subscription.NewHandler(s.subSvc)
	moduleHandler := modules.NewHandler(s.moduleSvc)
	entitlementHandler := entitlement.NewHandler(s.resolver, s.enforcer, s.counter)
	rosterHandler := roster.NewHandler(s.rosterSvc)
	invoiceHandler := invoicing.NewHandler(s.invoiceSvc)
	fileHandler := filestore.NewHandler(s.fileSvc)
	webhookHandler := webhooks.NewHandler(s.webhookStore)

	// PUBLIC ROUTES (no auth required)
	// Plan catalogue is the pricing page; anyone can read it.
	planHandler.RegisterRoutes(v1)

	// Stripe webhook receiver. Public route; authenticated by the Stripe
	// signature, not by identity headers.
	if s.cfg.StripeWebhookSecret != "" {
		processor := payments.NewProcessor(s.subSvc)
		paymentsHandler := payments.NewHandler(processor, s.cfg.StripeWebhookSecret, s.logger)
		paymentsHandler.RegisterRoutes(v1)
		s.logger.Info("stripe webhook receiver enabled")
	} else {
		s.logger.Warn("STRIPE_WEBHOOK_SECRET not set, payment confirmations disabled")
	}

	// TENANT ROUTES (require school access)
	// Every route in this group carries a :schoolId path or query parameter;
	// the guard rejects cross-tenant access with 403.
	tenant := v1.Group("")
	tenant.Use(guard.RequireSchoolAccess(s.logger))
	{
		schoolHandler.RegisterRoutes(tenant)
		subHandler.RegisterRoutes(tenant)
		moduleHandler.RegisterRoutes(tenant)
		entitlementHandler.RegisterRoutes(tenant)
		rosterHandler.RegisterRoutes(tenant)
		invoiceHandler.RegisterRoutes(tenant)
		fileHandler.RegisterRoutes(tenant)
		webhookHandler.RegisterRoutes(tenant)

		// Analytics reads are schoolId-query-scoped; the guard covers both shapes
		invoiceHandler.RegisterAnalyticsRoutes(tenant)
	}

	// OPERATOR ROUTES (platform management surface)
	// Requires the operator shared secret or a SUPER_ADMIN identity.
	ops := v1.Group("/ops")
	ops.Use(guard.RequireOperator(s.cfg.OperatorSecret, s.logger))
	{
		planHandler.RegisterOperatorRoutes(ops)
		schoolHandler.RegisterOperatorRoutes(ops)
		subHandler.RegisterOperatorRoutes(ops)
		moduleHandler.RegisterOperatorRoutes(ops)

		ops.GET("/realtime/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.realtimeHub.Stats())
		})
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, statuses := s.healthReg.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"version":   "0.1.0",
		"checks":    statuses,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "SchoolGrid",
		"description": "Subscription entitlement and usage enforcement for school management",
		"version":     "0.1.0",
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	// Distributed tracing (no-op when OTLP endpoint is not configured)
	if stop, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger); err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.tracesStop = stop
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Sample DB pool stats into Prometheus gauges
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, stats collector)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Flush pending trace spans
	if s.tracesStop != nil {
		if err := s.tracesStop(ctx); err != nil {
			s.logger.Error("traces shutdown error", "error", err)
		}
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

// -----------------------------------------------------------------------------
// Event adapters
// -----------------------------------------------------------------------------

// subscriptionEvents fans subscription changes out to webhooks and the
// realtime hub.
type subscriptionEvents struct {
	emitter *webhooks.Emitter
	hub     *realtime.Hub
}

func (e *subscriptionEvents) EmitSubscriptionUpdated(schoolID, planID string, status string) {
	e.emitter.EmitSubscriptionUpdated(schoolID, planID, status)
	e.hub.BroadcastSubscriptionChanged(schoolID, planID, status)
}

func (e *subscriptionEvents) EmitPackApplied(schoolID, packType string, qty uint64) {
	e.emitter.EmitPackApplied(schoolID, packType, qty)
}

// enforcementEvents fans enforcement outcomes out to webhooks and the
// realtime hub.
type enforcementEvents struct {
	emitter *webhooks.Emitter
	hub     *realtime.Hub
}

func (e *enforcementEvents) EmitLimitExceeded(schoolID, resource string, requested, current uint64, limit string) {
	e.emitter.EmitLimitExceeded(schoolID, resource, requested, current, limit)
	e.hub.BroadcastDecision(schoolID, resource, "deny", requested, current)
}

func (e *enforcementEvents) EmitUsageOverage(schoolID, resource string, extraUnits uint64, estimatedCharge string) {
	e.emitter.EmitUsageOverage(schoolID, resource, extraUnits, estimatedCharge)
	e.hub.BroadcastOverage(schoolID, resource, extraUnits, estimatedCharge)
}
