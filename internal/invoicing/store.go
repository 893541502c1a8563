package invoicing

import (
	"context"

	"github.com/jmwangi/schoolgrid/internal/pagination"
)

// Store persists invoices. It also serves as the usage source for the
// invoices resource.
type Store interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, schoolID, id string) (*Invoice, error)
	// ListAfter returns up to limit invoices created strictly after the
	// cursor position, oldest first. A nil cursor starts from the beginning.
	ListAfter(ctx context.Context, schoolID string, after *pagination.Cursor, limit int) ([]*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	CountInvoices(ctx context.Context, schoolID string) (uint64, error)
	// RevenueCents sums the totals of paid invoices.
	RevenueCents(ctx context.Context, schoolID string) (int64, error)
}
