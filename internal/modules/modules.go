// Package modules tracks which feature modules each school has switched on
// and the price attached to each. The set is replaced wholesale when a
// payment confirmation lands; there is no per-module toggle endpoint.
package modules

import (
	"errors"
	"fmt"

	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/validation"
)

// Errors
var (
	ErrNotFound = errors.New("modules: not found")
)

// ModuleSubscription is one feature module a school has enabled.
type ModuleSubscription struct {
	ModuleID string `json:"moduleId"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Price    string `json:"price"`
}

// Validate checks identity and price fields.
func (m *ModuleSubscription) Validate() error {
	if m.ModuleID == "" {
		return errors.New("modules: module id required")
	}
	if !validation.IsValidSlug(m.ModuleID) {
		return fmt.Errorf("modules: invalid module id %q", m.ModuleID)
	}
	if m.Name == "" {
		return errors.New("modules: name required")
	}
	if !limits.ValidPrice(m.Price) {
		return fmt.Errorf("modules: invalid price %q", m.Price)
	}
	return nil
}

// MonthlyTotal sums the prices of active modules in cents, avoiding float
// drift on the money path.
func MonthlyTotal(mods []ModuleSubscription) (string, error) {
	var cents int64
	for _, m := range mods {
		if !m.Active {
			continue
		}
		c, err := limits.PriceCents(m.Price)
		if err != nil {
			return "", fmt.Errorf("modules: %s: %w", m.ModuleID, err)
		}
		cents += c
	}
	return limits.FormatCents(cents), nil
}
