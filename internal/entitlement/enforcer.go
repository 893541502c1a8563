package entitlement

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/traces"
	"github.com/jmwangi/schoolgrid/internal/usage"
)

// Verdicts
const (
	VerdictAllow            = "allow"
	VerdictAllowWithOverage = "allow_with_overage"
	VerdictDeny             = "deny"
)

// Denial reasons
const (
	ReasonLimitExceeded  = "limit_exceeded"
	ReasonNoSubscription = "no_subscription"
)

// Decision is the enforcement result for one authorization request.
// Current and Limit are included on denials so callers can render a useful
// upgrade prompt without a second round trip.
type Decision struct {
	Verdict         string          `json:"verdict"`
	Resource        limits.Resource `json:"resource"`
	Requested       uint64          `json:"requested"`
	Current         uint64          `json:"current"`
	Limit           limits.Limit    `json:"limit"`
	ExtraUnits      uint64          `json:"extraUnits,omitempty"`
	EstimatedCharge string          `json:"estimatedCharge,omitempty"`
	Reason          string          `json:"reason,omitempty"`
}

// Allowed reports whether the operation may proceed.
func (d Decision) Allowed() bool {
	return d.Verdict == VerdictAllow || d.Verdict == VerdictAllowWithOverage
}

// OveragePricer supplies the per-unit charge applied to overage units.
type OveragePricer interface {
	UnitPrice(r limits.Resource) string
}

// Notifier receives enforcement outcomes worth telling external systems
// about. Implementations must not block; the webhook emitter satisfies this.
type Notifier interface {
	EmitLimitExceeded(schoolID, resource string, requested, current uint64, limit string)
	EmitUsageOverage(schoolID, resource string, extraUnits uint64, estimatedCharge string)
}

// Enforcer answers "may this school add N units of resource R right now".
type Enforcer struct {
	resolver *Resolver
	counter  *usage.Counter
	pricer   OveragePricer
	notifier Notifier
	logger   *slog.Logger
}

// NewEnforcer creates an entitlement enforcer.
func NewEnforcer(resolver *Resolver, counter *usage.Counter, pricer OveragePricer, logger *slog.Logger) *Enforcer {
	return &Enforcer{resolver: resolver, counter: counter, pricer: pricer, logger: logger}
}

// WithNotifier attaches an event notifier for denials and overage admissions.
func (e *Enforcer) WithNotifier(n Notifier) *Enforcer {
	e.notifier = n
	return e
}

// Authorize decides whether the school may add requested units of the
// resource. The answer reflects live counts at the moment of the call;
// callers on a write path must hold the school-resource lock across
// Authorize and the subsequent insert to keep the check atomic.
//
// A requested count of zero is a probe: it checks that current usage is
// within the limit without claiming more. Storage writes that stay inside
// an already-counted gigabyte use this.
//
// On any read failure the error is returned and nothing is allowed.
func (e *Enforcer) Authorize(ctx context.Context, schoolID string, r limits.Resource, requested uint64) (Decision, error) {
	if !limits.ValidResource(r) {
		return Decision{}, fmt.Errorf("entitlement: unknown resource %q", r)
	}

	ctx, span := traces.StartSpan(ctx, "entitlement.Authorize",
		traces.SchoolID(schoolID), traces.ResourceName(string(r)), traces.Requested(requested))
	defer span.End()

	eff, err := e.resolver.Resolve(ctx, schoolID)
	if err != nil {
		return Decision{}, err
	}

	current, err := e.counter.Count(ctx, schoolID, r)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	limit := eff.Get(r)
	d := Decision{
		Resource:  r,
		Requested: requested,
		Current:   current,
		Limit:     limit,
	}

	if eff.Source == SourceNone {
		d.Verdict = VerdictDeny
		d.Reason = ReasonNoSubscription
		e.record(span, d)
		return d, nil
	}

	if limit.Allows(current + requested) {
		d.Verdict = VerdictAllow
		e.record(span, d)
		return d, nil
	}

	// Over the cap. Overage billing admits the excess for packable
	// resources; branches stay hard-capped under every mode.
	if eff.Mode == limits.ModeOverage && limits.PackableResource(r) {
		d.Verdict = VerdictAllowWithOverage
		d.ExtraUnits = current + requested - limit.Value()
		d.EstimatedCharge = e.estimateCharge(r, d.ExtraUnits)
		e.logger.Info("overage admitted",
			"school", schoolID,
			"resource", r,
			"extraUnits", d.ExtraUnits,
			"estimatedCharge", d.EstimatedCharge)
		if e.notifier != nil {
			e.notifier.EmitUsageOverage(schoolID, string(r), d.ExtraUnits, d.EstimatedCharge)
		}
		e.record(span, d)
		return d, nil
	}

	d.Verdict = VerdictDeny
	d.Reason = ReasonLimitExceeded
	e.logger.Info("request denied at limit",
		"school", schoolID,
		"resource", r,
		"current", current,
		"requested", requested,
		"limit", limit.String())
	if e.notifier != nil {
		e.notifier.EmitLimitExceeded(schoolID, string(r), requested, current, limit.String())
	}
	e.record(span, d)
	return d, nil
}

func (e *Enforcer) estimateCharge(r limits.Resource, extra uint64) string {
	if e.pricer == nil {
		return ""
	}
	unitCents, err := limits.PriceCents(e.pricer.UnitPrice(r))
	if err != nil {
		e.logger.Warn("overage price misconfigured", "resource", r, "error", err)
		return ""
	}
	return limits.FormatCents(unitCents * int64(extra))
}

func (e *Enforcer) record(span trace.Span, d Decision) {
	span.SetAttributes(traces.Verdict(d.Verdict))
	decisionsTotal.WithLabelValues(string(d.Resource), d.Verdict).Inc()
	if d.Verdict == VerdictDeny {
		denialsTotal.WithLabelValues(string(d.Resource), d.Reason).Inc()
	}
}
