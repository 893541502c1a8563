// Package invoicing issues fee invoices to students. Invoice count is an
// enforced resource, so issuing goes through the entitlement engine like any
// other counted write.
package invoicing

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmwangi/schoolgrid/internal/limits"
)

// Errors
var (
	ErrInvoiceNotFound = errors.New("invoicing: invoice not found")
	ErrLimitExceeded   = errors.New("invoicing: limit exceeded")
)

// Status is the invoice lifecycle state.
type Status string

const (
	StatusIssued Status = "issued"
	StatusPaid   Status = "paid"
	StatusVoid   Status = "void"
)

// LineItem is one charge on an invoice.
type LineItem struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

// Invoice is a fee demand issued to a student (or the school itself for
// platform charges such as module fees).
type Invoice struct {
	ID        string     `json:"id"`
	SchoolID  string     `json:"schoolId"`
	StudentID string     `json:"studentId,omitempty"`
	Number    string     `json:"number"`
	Items     []LineItem `json:"items"`
	Total     string     `json:"total"`
	Status    Status     `json:"status"`
	IssuedAt  time.Time  `json:"issuedAt"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ComputeTotal sums the line item amounts.
func ComputeTotal(items []LineItem) (string, error) {
	var cents int64
	for i, it := range items {
		c, err := limits.PriceCents(it.Amount)
		if err != nil {
			return "", fmt.Errorf("invoicing: line %d: %w", i, err)
		}
		cents += c
	}
	return limits.FormatCents(cents), nil
}
