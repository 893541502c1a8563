package webhooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmwangi/schoolgrid/internal/idgen"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	webhookEmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolgrid",
		Subsystem: "webhook",
		Name:      "emit_total",
		Help:      "Total webhook emit attempts by event type.",
	}, []string{"event_type"})

	webhookEmitErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolgrid",
		Subsystem: "webhook",
		Name:      "emit_errors_total",
		Help:      "Total webhook emit failures by event type.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(webhookEmitTotal, webhookEmitErrors)
}

// Emitter wraps a Dispatcher to emit lifecycle events across subsystems.
// All methods are fire-and-forget: errors are logged but never returned.
type Emitter struct {
	d      *Dispatcher
	logger *slog.Logger
}

// NewEmitter creates a new webhook emitter.
func NewEmitter(d *Dispatcher, logger *slog.Logger) *Emitter {
	return &Emitter{d: d, logger: logger}
}

func (e *Emitter) emit(schoolID string, eventType EventType, data map[string]interface{}) {
	if e == nil || e.d == nil {
		return
	}
	webhookEmitTotal.WithLabelValues(string(eventType)).Inc()
	event := &Event{
		ID:        idgen.WithPrefix("evt_"),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.d.DispatchToSchool(ctx, schoolID, event); err != nil {
		webhookEmitErrors.WithLabelValues(string(eventType)).Inc()
		e.logger.Warn("webhook emit failed", "event", eventType, "school", schoolID, "error", err)
	}
}

// --- Subscription events ---

// EmitSubscriptionUpdated emits a subscription.updated event.
func (e *Emitter) EmitSubscriptionUpdated(schoolID, planID string, status string) {
	e.emit(schoolID, EventSubscriptionUpdated, map[string]interface{}{
		"schoolId": schoolID,
		"planId":   planID,
		"status":   status,
	})
}

// EmitPackApplied emits a pack.applied event.
func (e *Emitter) EmitPackApplied(schoolID, packType string, qty uint64) {
	e.emit(schoolID, EventPackApplied, map[string]interface{}{
		"schoolId": schoolID,
		"packType": packType,
		"quantity": qty,
	})
}

// --- Module events ---

// EmitModulesUpdated emits a modules.updated event.
func (e *Emitter) EmitModulesUpdated(schoolID string, moduleIDs []string) {
	e.emit(schoolID, EventModulesUpdated, map[string]interface{}{
		"schoolId": schoolID,
		"modules":  moduleIDs,
	})
}

// --- Enforcement events ---

// EmitLimitExceeded emits a limit.exceeded event.
func (e *Emitter) EmitLimitExceeded(schoolID, resource string, requested, current uint64, limit string) {
	e.emit(schoolID, EventLimitExceeded, map[string]interface{}{
		"schoolId":  schoolID,
		"resource":  resource,
		"requested": requested,
		"current":   current,
		"limit":     limit,
	})
}

// EmitUsageOverage emits a usage.overage event.
func (e *Emitter) EmitUsageOverage(schoolID, resource string, extraUnits uint64, estimatedCharge string) {
	e.emit(schoolID, EventUsageOverage, map[string]interface{}{
		"schoolId":        schoolID,
		"resource":        resource,
		"extraUnits":      extraUnits,
		"estimatedCharge": estimatedCharge,
	})
}
