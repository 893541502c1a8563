package payments

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/jmwangi/schoolgrid/internal/metrics"
)

// MaxBodyBytes caps webhook payload reads, per Stripe's recommendation.
const MaxBodyBytes = int64(65536)

// Handler receives Stripe webhook deliveries.
type Handler struct {
	processor     *Processor
	webhookSecret string
	logger        *slog.Logger
}

// NewHandler creates a Stripe webhook handler.
func NewHandler(processor *Processor, webhookSecret string, logger *slog.Logger) *Handler {
	return &Handler{processor: processor, webhookSecret: webhookSecret, logger: logger}
}

// RegisterRoutes sets up the webhook receiver. The route is public; requests
// are authenticated by the Stripe signature header.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/webhooks/stripe", h.Receive)
}

// Receive handles POST /v1/webhooks/stripe
func (h *Handler) Receive(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":   "payload_too_large",
			"message": "Webhook payload exceeds size limit",
		})
		return
	}

	// Verify the signature only; the pinned API version in stripe-go does not
	// have to match the version the event was created under.
	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.logger.Warn("stripe webhook rejected", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_signature",
			"message": "Webhook signature verification failed",
		})
		return
	}

	if err := h.processor.Process(c.Request.Context(), &event); err != nil {
		// Non-2xx makes Stripe retry the delivery.
		metrics.StripeEventsTotal.WithLabelValues(string(event.Type), "error").Inc()
		h.logger.Error("stripe event processing failed", "event", event.Type, "id", event.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "processing_failed",
			"message": "Event could not be applied",
		})
		return
	}

	metrics.StripeEventsTotal.WithLabelValues(string(event.Type), "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"received": true})
}
