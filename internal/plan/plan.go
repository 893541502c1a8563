// Package plan provides the subscription plan catalogue.
package plan

import (
	"context"
	"errors"
	"time"

	"github.com/jmwangi/schoolgrid/internal/limits"
)

// Errors
var (
	ErrPlanNotFound = errors.New("plan: not found")
	ErrPlanExists   = errors.New("plan: already exists")
)

// Plan is a subscription tier offered to schools. Plans are created and
// edited by platform operators only; a plan referenced by active
// subscriptions changes only via an explicit operator edit.
type Plan struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	MonthlyPrice string            `json:"monthlyPrice"`
	Limits       limits.UsageLimit `json:"limits"`
	Features     []string          `json:"features"`
	Recommended  bool              `json:"recommended"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Validate checks plan fields including the embedded limit set.
func (p *Plan) Validate() error {
	if p.ID == "" || p.Name == "" {
		return errors.New("plan: id and name required")
	}
	if !limits.ValidPrice(p.MonthlyPrice) {
		return errors.New("plan: monthly price must be a non-negative decimal")
	}
	return p.Limits.Validate()
}

// Builtin returns the seed catalogue. Operators can edit these or add more;
// the IDs are stable so subscriptions created in dev/demo mode resolve.
func Builtin() []*Plan {
	now := time.Now()
	return []*Plan{
		{
			ID:           "pln_starter",
			Name:         "Starter",
			MonthlyPrice: "29.00",
			Limits: limits.UsageLimit{
				Students:  limits.Finite(50),
				Teachers:  limits.Finite(5),
				Invoices:  limits.Finite(100),
				StorageGB: limits.Finite(5),
				Branches:  limits.Finite(1),
				Mode:      limits.ModeHardCap,
			},
			Features:  []string{"admissions", "attendance", "invoicing"},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:           "pln_standard",
			Name:         "Standard",
			MonthlyPrice: "99.00",
			Limits: limits.UsageLimit{
				Students:  limits.Finite(500),
				Teachers:  limits.Finite(50),
				Invoices:  limits.Finite(1000),
				StorageGB: limits.Finite(50),
				Branches:  limits.Finite(3),
				Mode:      limits.ModeOverage,
			},
			Features:    []string{"admissions", "attendance", "invoicing", "timetable", "messaging"},
			Recommended: true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:           "pln_premium",
			Name:         "Premium",
			MonthlyPrice: "249.00",
			Limits: limits.UsageLimit{
				Students:  limits.Unlimited(),
				Teachers:  limits.Unlimited(),
				Invoices:  limits.Unlimited(),
				StorageGB: limits.Finite(500),
				Branches:  limits.Finite(10),
				Mode:      limits.ModeOverage,
			},
			Features:  []string{"admissions", "attendance", "invoicing", "timetable", "messaging", "library", "transport"},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// Seed inserts the builtin catalogue, skipping plans that already exist.
func Seed(ctx context.Context, store Store) error {
	for _, p := range Builtin() {
		if err := store.Create(ctx, p); err != nil && !errors.Is(err, ErrPlanExists) {
			return err
		}
	}
	return nil
}
