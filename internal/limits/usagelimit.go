package limits

import (
	"fmt"
	"regexp"
)

// validPrice matches a non-negative decimal string such as "0", "15", "12.50".
var validPrice = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ValidPrice returns true if s is a well-formed non-negative decimal string.
func ValidPrice(s string) bool {
	return validPrice.MatchString(s)
}

// PriceCents parses a decimal price string into cents. Prices carry at most
// two fractional digits; a third digit is rejected rather than rounded.
func PriceCents(s string) (int64, error) {
	if !ValidPrice(s) {
		return 0, fmt.Errorf("%w: price %q", ErrInvalidLimit, s)
	}
	var whole, frac int64
	var fracDigits int
	seenDot := false
	for _, r := range s {
		if r == '.' {
			seenDot = true
			continue
		}
		d := int64(r - '0')
		if seenDot {
			fracDigits++
			if fracDigits > 2 {
				return 0, fmt.Errorf("%w: price %q has more than two decimal places", ErrInvalidLimit, s)
			}
			frac = frac*10 + d
		} else {
			whole = whole*10 + d
		}
	}
	if fracDigits == 1 {
		frac *= 10
	}
	return whole*100 + frac, nil
}

// FormatCents renders a cent amount as a two-decimal string.
func FormatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// Pack is a purchased capacity top-up for one resource type.
// Packs of the same type are additive and there is no cap on how many a
// school may hold.
type Pack struct {
	Type  Resource `json:"type"`
	Qty   uint64   `json:"qty"`
	Price string   `json:"price"`
}

// Validate checks that the pack references a packable resource, a positive
// quantity, and a well-formed price.
func (p Pack) Validate() error {
	if !PackableResource(p.Type) {
		return fmt.Errorf("%w: pack references resource %q", ErrInvalidLimit, p.Type)
	}
	if p.Qty == 0 {
		return fmt.Errorf("%w: pack qty must be positive", ErrInvalidLimit)
	}
	if !ValidPrice(p.Price) {
		return fmt.Errorf("%w: pack price %q", ErrInvalidLimit, p.Price)
	}
	return nil
}

// UsageLimit is the per-resource limit set for a school, together with the
// billing mode and any purchased packs.
type UsageLimit struct {
	Students  Limit       `json:"students"`
	Teachers  Limit       `json:"teachers"`
	Invoices  Limit       `json:"invoices"`
	StorageGB Limit       `json:"storageGB"`
	Branches  Limit       `json:"branches"`
	Mode      BillingMode `json:"mode"`
	Packs     []Pack      `json:"packs,omitempty"`
}

// Get returns the base limit for a resource, before packs are applied.
func (u UsageLimit) Get(r Resource) Limit {
	switch r {
	case ResourceStudents:
		return u.Students
	case ResourceTeachers:
		return u.Teachers
	case ResourceInvoices:
		return u.Invoices
	case ResourceStorageGB:
		return u.StorageGB
	case ResourceBranches:
		return u.Branches
	}
	return Finite(0)
}

// Validate checks the billing mode and every pack. Malformed data is an
// InvalidState condition for callers, never silently corrected.
func (u UsageLimit) Validate() error {
	if !ValidMode(u.Mode) {
		return fmt.Errorf("%w: billing mode %q", ErrInvalidLimit, u.Mode)
	}
	for i, p := range u.Packs {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("pack %d: %w", i, err)
		}
	}
	return nil
}

// PackTotal sums the quantities of all packs of the given resource type.
func (u UsageLimit) PackTotal(r Resource) uint64 {
	var total uint64
	for _, p := range u.Packs {
		if p.Type == r {
			total += p.Qty
		}
	}
	return total
}

// Resolve returns the effective limit for a resource: the base limit plus
// the sum of matching packs. Unlimited dominates regardless of packs.
func (u UsageLimit) Resolve(r Resource) Limit {
	return u.Get(r).Add(u.PackTotal(r))
}

// ResolveAll returns the effective limit for every resource category.
func (u UsageLimit) ResolveAll() map[Resource]Limit {
	out := make(map[Resource]Limit, len(Resources))
	for _, r := range Resources {
		out[r] = u.Resolve(r)
	}
	return out
}
