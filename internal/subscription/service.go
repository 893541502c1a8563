package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/metrics"
	"github.com/jmwangi/schoolgrid/internal/plan"
)

// Notifier publishes subscription lifecycle events to registered webhooks.
// Implementations must be fire-and-forget; a nil Notifier disables events.
type Notifier interface {
	EmitSubscriptionUpdated(schoolID, planID string, status string)
	EmitPackApplied(schoolID, packType string, qty uint64)
}

// Service manages subscription records and their limit overrides.
type Service struct {
	store  Store
	plans  plan.Store
	notify Notifier
	logger *slog.Logger
}

// NewService creates a subscription service.
func NewService(store Store, plans plan.Store, notify Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, plans: plans, notify: notify, logger: logger}
}

// Create opens a subscription for a school. When planID is non-empty it must
// name an existing plan; empty planID is allowed only with custom limits.
func (s *Service) Create(ctx context.Context, schoolID, planID string, status Status, renewalDate time.Time, custom *limits.UsageLimit) (*Subscription, error) {
	if status == "" {
		status = StatusActive
	}

	sub := &Subscription{
		SchoolID:     schoolID,
		Status:       status,
		RenewalDate:  renewalDate,
		CustomLimits: custom,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if planID != "" {
		if _, err := s.plans.Get(ctx, planID); err != nil {
			if errors.Is(err, plan.ErrPlanNotFound) {
				return nil, fmt.Errorf("subscription: %w", plan.ErrPlanNotFound)
			}
			return nil, err
		}
		sub.PlanID = &planID
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("subscription created",
		"school", schoolID,
		"plan", planID,
		"status", status)
	s.emitUpdated(sub)
	return sub, nil
}

// Get returns the school's subscription record.
func (s *Service) Get(ctx context.Context, schoolID string) (*Subscription, error) {
	return s.store.GetBySchool(ctx, schoolID)
}

// ChangePlan moves the school onto a different plan. Custom limits, when
// present, continue to override the new plan until cleared.
func (s *Service) ChangePlan(ctx context.Context, schoolID, planID string) (*Subscription, error) {
	if _, err := s.plans.Get(ctx, planID); err != nil {
		return nil, err
	}

	sub, err := s.store.GetBySchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	sub.PlanID = &planID
	sub.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, sub); err != nil {
		return nil, err
	}

	metrics.SubscriptionChangesTotal.WithLabelValues("plan").Inc()
	s.logger.Info("subscription plan changed", "school", schoolID, "plan", planID)
	s.emitUpdated(sub)
	return sub, nil
}

// SetStatus transitions the subscription lifecycle state.
func (s *Service) SetStatus(ctx context.Context, schoolID string, status Status) (*Subscription, error) {
	if !ValidStatus(status) {
		return nil, errors.New("subscription: unknown status " + string(status))
	}

	sub, err := s.store.GetBySchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	sub.Status = status
	sub.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, sub); err != nil {
		return nil, err
	}

	metrics.SubscriptionChangesTotal.WithLabelValues("status").Inc()
	s.logger.Info("subscription status changed", "school", schoolID, "status", status)
	s.emitUpdated(sub)
	return sub, nil
}

// SetCustomLimits replaces the school's limit override wholesale. A nil
// value clears the override and the school falls back to its plan.
func (s *Service) SetCustomLimits(ctx context.Context, schoolID string, custom *limits.UsageLimit) (*Subscription, error) {
	if custom != nil {
		if err := custom.Validate(); err != nil {
			return nil, err
		}
	}

	sub, err := s.store.GetBySchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	sub.CustomLimits = custom
	sub.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, sub); err != nil {
		return nil, err
	}

	metrics.SubscriptionChangesTotal.WithLabelValues("limits").Inc()
	s.logger.Info("subscription custom limits set", "school", schoolID, "cleared", custom == nil)
	s.emitUpdated(sub)
	return sub, nil
}

// AppendPack adds a capacity pack to the school's subscription. Packs only
// ever accumulate; selling capacity back is not supported here.
func (s *Service) AppendPack(ctx context.Context, schoolID string, pack limits.Pack) (*Subscription, error) {
	if err := pack.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.store.GetBySchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	sub.Packs = append(sub.Packs, pack)
	sub.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, sub); err != nil {
		return nil, err
	}

	metrics.SubscriptionChangesTotal.WithLabelValues("pack").Inc()
	s.logger.Info("capacity pack applied",
		"school", schoolID,
		"resource", pack.Type,
		"qty", pack.Qty)
	if s.notify != nil {
		s.notify.EmitPackApplied(schoolID, string(pack.Type), pack.Qty)
	}
	return sub, nil
}

// RemovePack deletes the pack at the given index (operator correction path).
func (s *Service) RemovePack(ctx context.Context, schoolID string, index int) (*Subscription, error) {
	sub, err := s.store.GetBySchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(sub.Packs) {
		return nil, fmt.Errorf("subscription: pack index %d out of range", index)
	}
	sub.Packs = append(sub.Packs[:index], sub.Packs[index+1:]...)
	sub.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("capacity pack removed", "school", schoolID, "index", index)
	s.emitUpdated(sub)
	return sub, nil
}

func (s *Service) emitUpdated(sub *Subscription) {
	if s.notify == nil {
		return
	}
	planID := ""
	if sub.PlanID != nil {
		planID = *sub.PlanID
	}
	s.notify.EmitSubscriptionUpdated(sub.SchoolID, planID, string(sub.Status))
}
