// Package entitlement resolves what a school is allowed to consume and
// decides whether a requested action fits inside that allowance. It is the
// single authority the record-creating paths consult before writing.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/plan"
	"github.com/jmwangi/schoolgrid/internal/subscription"
)

// Errors
var (
	// ErrSubscriptionNotFound means the school has no subscription record at
	// all. This is an operator configuration error, distinct from a
	// subscription that exists but carries no plan or custom limits.
	ErrSubscriptionNotFound = errors.New("entitlement: subscription not found")
	// ErrUnavailable means the subscription or plan could not be read.
	// Callers must fail the request, never default to an allowance.
	ErrUnavailable = errors.New("entitlement: limits unavailable")
	// ErrInvalidLimits means stored limit data failed validation.
	ErrInvalidLimits = errors.New("entitlement: invalid stored limits")
)

// Limit sources, in the order the resolver considers them.
const (
	SourceCustom = "school_custom"
	SourcePlan   = "plan"
	SourceNone   = "none"
)

// Effective is the resolved allowance for one school: the per-resource
// limits with all packs applied, the billing mode, and where the baseline
// came from.
type Effective struct {
	SchoolID string                           `json:"schoolId"`
	Limits   map[limits.Resource]limits.Limit `json:"limits"`
	Mode     limits.BillingMode               `json:"mode"`
	Source   string                           `json:"source"`
}

// Get returns the effective limit for a resource. Unknown resources and a
// SourceNone resolution both yield a zero allowance.
func (e *Effective) Get(r limits.Resource) limits.Limit {
	return e.Limits[r]
}

// Resolver computes effective limits from subscriptions and the plan
// catalogue.
type Resolver struct {
	subs   subscription.Store
	plans  plan.Store
	logger *slog.Logger
}

// NewResolver creates an entitlement resolver.
func NewResolver(subs subscription.Store, plans plan.Store, logger *slog.Logger) *Resolver {
	return &Resolver{subs: subs, plans: plans, logger: logger}
}

// Resolve computes the school's effective limits.
//
// School-level custom limits override the plan baseline entirely. Packs from
// both the baseline and the subscription are added on top, resource by
// resource, with unlimited absorbing everything.
//
// A school with no subscription record at all is a configuration error and
// fails with ErrSubscriptionNotFound. A subscription that exists but grants
// nothing (no plan, no custom limits, or an inactive status) resolves to
// SourceNone: every limit is zero and every request will be denied until an
// operator intervenes.
func (r *Resolver) Resolve(ctx context.Context, schoolID string) (*Effective, error) {
	sub, err := r.subs.GetBySchool(ctx, schoolID)
	if err != nil {
		if errors.Is(err, subscription.ErrNotFound) {
			return nil, fmt.Errorf("%w: school %s", ErrSubscriptionNotFound, schoolID)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := sub.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLimits, err)
	}

	// Only active and trialing subscriptions grant entitlements.
	if sub.Status != subscription.StatusActive && sub.Status != subscription.StatusTrialing {
		r.logger.Warn("subscription inactive, denying by default",
			"school", schoolID, "status", sub.Status)
		return r.none(schoolID), nil
	}

	var base limits.UsageLimit
	var source string
	switch {
	case sub.CustomLimits != nil:
		base = *sub.CustomLimits
		source = SourceCustom
	case sub.PlanID != nil:
		p, err := r.plans.Get(ctx, *sub.PlanID)
		if err != nil {
			if errors.Is(err, plan.ErrPlanNotFound) {
				return nil, fmt.Errorf("%w: subscription references unknown plan %s", ErrInvalidLimits, *sub.PlanID)
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if err := p.Limits.Validate(); err != nil {
			return nil, fmt.Errorf("%w: plan %s: %v", ErrInvalidLimits, p.ID, err)
		}
		base = p.Limits
		source = SourcePlan
	default:
		r.logger.Warn("subscription carries neither plan nor custom limits, denying by default", "school", schoolID)
		return r.none(schoolID), nil
	}

	// Subscription-owned packs stack on top of whatever the baseline carries.
	merged := base
	merged.Packs = append(append([]limits.Pack(nil), base.Packs...), sub.Packs...)

	return &Effective{
		SchoolID: schoolID,
		Limits:   merged.ResolveAll(),
		Mode:     merged.Mode,
		Source:   source,
	}, nil
}

func (r *Resolver) none(schoolID string) *Effective {
	zero := make(map[limits.Resource]limits.Limit, len(limits.Resources))
	for _, res := range limits.Resources {
		zero[res] = limits.Finite(0)
	}
	return &Effective{
		SchoolID: schoolID,
		Limits:   zero,
		Mode:     limits.ModeHardCap,
		Source:   SourceNone,
	}
}
