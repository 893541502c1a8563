// Package limits defines the value objects shared by the entitlement engine:
// per-resource limits, billing modes, and purchased capacity packs.
package limits

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Errors
var (
	ErrInvalidLimit = errors.New("limits: invalid limit")
)

// Resource identifies a countable resource category.
type Resource string

const (
	ResourceStudents  Resource = "students"
	ResourceTeachers  Resource = "teachers"
	ResourceInvoices  Resource = "invoices"
	ResourceStorageGB Resource = "storage_gb"
	ResourceBranches  Resource = "branches"
)

// Resources lists every resource category in display order.
var Resources = []Resource{
	ResourceStudents,
	ResourceTeachers,
	ResourceInvoices,
	ResourceStorageGB,
	ResourceBranches,
}

// ValidResource returns true if the resource name is recognised.
func ValidResource(r Resource) bool {
	switch r {
	case ResourceStudents, ResourceTeachers, ResourceInvoices, ResourceStorageGB, ResourceBranches:
		return true
	}
	return false
}

// PackableResource returns true if capacity packs may be sold for the resource.
// Branches are plan-level only.
func PackableResource(r Resource) bool {
	return ValidResource(r) && r != ResourceBranches
}

// Limit is a tagged variant: either a finite non-negative count or unlimited.
// The zero value is Finite(0).
type Limit struct {
	unlimited bool
	value     uint64
}

// Finite returns a limit of exactly n units.
func Finite(n uint64) Limit {
	return Limit{value: n}
}

// Unlimited returns the unlimited sentinel.
func Unlimited() Limit {
	return Limit{unlimited: true}
}

// IsUnlimited reports whether the limit is unlimited.
func (l Limit) IsUnlimited() bool { return l.unlimited }

// Value returns the finite count. Only meaningful when IsUnlimited is false.
func (l Limit) Value() uint64 { return l.value }

// Add returns the limit increased by qty. Unlimited dominates.
func (l Limit) Add(qty uint64) Limit {
	if l.unlimited {
		return l
	}
	return Finite(l.value + qty)
}

// Allows reports whether n units fit within the limit.
func (l Limit) Allows(n uint64) bool {
	return l.unlimited || n <= l.value
}

func (l Limit) String() string {
	if l.unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", l.value)
}

// MarshalJSON encodes finite limits as numbers and unlimited as "unlimited".
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.unlimited {
		return json.Marshal("unlimited")
	}
	return json.Marshal(l.value)
}

// UnmarshalJSON accepts a non-negative integer or the string "unlimited".
// The legacy console stored limits as loosely typed number-or-string values;
// both shapes are accepted on input, but negative numbers are rejected rather
// than clamped.
func (l *Limit) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "unlimited" {
			return fmt.Errorf("%w: unknown sentinel %q", ErrInvalidLimit, s)
		}
		*l = Unlimited()
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLimit, err)
	}
	if n < 0 {
		return fmt.Errorf("%w: negative value %d", ErrInvalidLimit, n)
	}
	*l = Finite(uint64(n))
	return nil
}

// BillingMode determines what happens when a finite limit is exceeded.
type BillingMode string

const (
	// ModeHardCap blocks any operation that would exceed a finite limit.
	ModeHardCap BillingMode = "hard_cap"
	// ModeOverage admits the operation and bills the excess units.
	ModeOverage BillingMode = "overage"
)

// ValidMode returns true if the billing mode is recognised.
func ValidMode(m BillingMode) bool {
	return m == ModeHardCap || m == ModeOverage
}

// ModeFromFlags converts the legacy two-boolean shape into a BillingMode.
// The console only ever set one flag via a single-choice selector, but stored
// records can carry any combination: both false defaults to hard cap, and
// hard cap wins when both are set so a conflicting record never admits
// unmetered overage.
func ModeFromFlags(hardCap, allowOverage bool) BillingMode {
	if allowOverage && !hardCap {
		return ModeOverage
	}
	return ModeHardCap
}
