// Package subscription tracks each school's subscription record: the plan it
// is on, school-specific limit overrides, purchased capacity packs, and trial
// state. A school has at most one subscription at a time.
package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmwangi/schoolgrid/internal/limits"
)

// Errors
var (
	ErrNotFound = errors.New("subscription: not found")
	ErrExists   = errors.New("subscription: already exists for school")
)

// Status is the subscription lifecycle state. The taxonomy is owned by the
// billing layer; the engine only distinguishes active-ish from terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusTrialing  Status = "trialing"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
)

// ValidStatus returns true if the status is recognised.
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCancelled:
		return true
	}
	return false
}

// Subscription is a school's subscription record.
//
// PlanID is nil for fully-custom subscriptions. CustomLimits, when present,
// replaces the plan baseline entirely (it is an override, not a merge).
// Packs are additive top-ups owned by the school and apply over whichever
// base is in effect.
type Subscription struct {
	SchoolID      string             `json:"schoolId"`
	PlanID        *string            `json:"planId,omitempty"`
	Status        Status             `json:"status"`
	RenewalDate   time.Time          `json:"renewalDate"`
	CustomLimits  *limits.UsageLimit `json:"customLimits,omitempty"`
	Packs         []limits.Pack      `json:"packs,omitempty"`
	TrialExpired  bool               `json:"trialExpired"`
	TrialDaysLeft *int               `json:"trialDaysLeft,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// Validate checks status, custom limits, and packs. Malformed stored data is
// an InvalidState condition: dependent operations must fail rather than
// guess a safe value.
func (s *Subscription) Validate() error {
	if s.SchoolID == "" {
		return errors.New("subscription: school id required")
	}
	if !ValidStatus(s.Status) {
		return errors.New("subscription: unknown status " + string(s.Status))
	}
	if s.CustomLimits != nil {
		if err := s.CustomLimits.Validate(); err != nil {
			return err
		}
	}
	for i, p := range s.Packs {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("subscription: pack %d: %w", i, err)
		}
	}
	return nil
}
