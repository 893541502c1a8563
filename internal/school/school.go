// Package school is the tenant registry: every school the platform serves,
// plus the branches (campuses) each school operates.
package school

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotFound       = errors.New("school: not found")
	ErrSlugTaken      = errors.New("school: slug already taken")
	ErrBranchNotFound = errors.New("school: branch not found")
)

// Status represents a school's lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
)

// School represents one tenant organisation.
type School struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	Status           Status    `json:"status"`
	StripeCustomerID string    `json:"stripeCustomerId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Branch is one campus of a school. Branch count is a plan-level limit and
// is never sold as a capacity pack.
type Branch struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"schoolId"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
