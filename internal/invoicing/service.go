package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmwangi/schoolgrid/internal/entitlement"
	"github.com/jmwangi/schoolgrid/internal/idgen"
	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/pagination"
	"github.com/jmwangi/schoolgrid/internal/syncutil"
)

// Authorizer decides whether a school may add units of a resource.
type Authorizer interface {
	Authorize(ctx context.Context, schoolID string, r limits.Resource, qty uint64) (entitlement.Decision, error)
}

// ModuleCharger supplies the school's combined monthly module fee, rendered
// as an extra line item when requested.
type ModuleCharger interface {
	MonthlyCharge(ctx context.Context, schoolID string) (string, error)
}

// Service manages invoice issuance and lifecycle.
type Service struct {
	store   Store
	auth    Authorizer
	charger ModuleCharger
	locks   *syncutil.ContextShardedMutex
	logger  *slog.Logger
}

// NewService creates an invoicing service. charger may be nil when module
// billing is not wired.
func NewService(store Store, auth Authorizer, charger ModuleCharger, locks *syncutil.ContextShardedMutex, logger *slog.Logger) *Service {
	return &Service{store: store, auth: auth, charger: charger, locks: locks, logger: logger}
}

// Issue creates an invoice if the school's invoice limit allows one more.
// When includeModuleCharges is set, the school's active module fees are
// appended as a line item.
func (s *Service) Issue(ctx context.Context, schoolID, studentID, number string, items []LineItem, includeModuleCharges bool) (*Invoice, entitlement.Decision, error) {
	if number == "" {
		return nil, entitlement.Decision{}, errors.New("invoicing: invoice number required")
	}
	if len(items) == 0 {
		return nil, entitlement.Decision{}, errors.New("invoicing: at least one line item required")
	}

	if includeModuleCharges && s.charger != nil {
		charge, err := s.charger.MonthlyCharge(ctx, schoolID)
		if err != nil {
			return nil, entitlement.Decision{}, fmt.Errorf("invoicing: module charges: %w", err)
		}
		if charge != "0.00" {
			items = append(items, LineItem{Description: "Platform modules (monthly)", Amount: charge})
		}
	}

	total, err := ComputeTotal(items)
	if err != nil {
		return nil, entitlement.Decision{}, err
	}

	unlock, err := s.locks.LockContext(ctx, schoolID+":"+string(limits.ResourceInvoices))
	if err != nil {
		return nil, entitlement.Decision{}, err
	}
	defer unlock()

	d, err := s.auth.Authorize(ctx, schoolID, limits.ResourceInvoices, 1)
	if err != nil {
		return nil, entitlement.Decision{}, err
	}
	if !d.Allowed() {
		return nil, d, fmt.Errorf("%w: invoices at %d of %s", ErrLimitExceeded, d.Current, d.Limit.String())
	}

	now := time.Now()
	inv := &Invoice{
		ID:        idgen.WithPrefix("inv_"),
		SchoolID:  schoolID,
		StudentID: studentID,
		Number:    number,
		Items:     items,
		Total:     total,
		Status:    StatusIssued,
		IssuedAt:  now,
		CreatedAt: now,
	}
	if err := s.store.Create(ctx, inv); err != nil {
		return nil, d, err
	}

	s.logger.Info("invoice issued",
		"school", schoolID,
		"invoice", inv.ID,
		"total", total,
		"verdict", d.Verdict)
	return inv, d, nil
}

// Get returns one invoice.
func (s *Service) Get(ctx context.Context, schoolID, id string) (*Invoice, error) {
	return s.store.Get(ctx, schoolID, id)
}

// List returns a page of invoices plus the cursor for the next page.
func (s *Service) List(ctx context.Context, schoolID, cursor string, limit int) ([]*Invoice, string, bool, error) {
	after, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", false, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	// fetch one extra to learn whether another page exists
	page, err := s.store.ListAfter(ctx, schoolID, after, limit+1)
	if err != nil {
		return nil, "", false, err
	}
	items, next, more := pagination.ComputePage(page, limit, func(inv *Invoice) (time.Time, string) {
		return inv.CreatedAt, inv.ID
	})
	return items, next, more, nil
}

// MarkPaid transitions an invoice to paid.
func (s *Service) MarkPaid(ctx context.Context, schoolID, id string) (*Invoice, error) {
	inv, err := s.store.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == StatusVoid {
		return nil, errors.New("invoicing: cannot pay a void invoice")
	}
	now := time.Now()
	inv.Status = StatusPaid
	inv.PaidAt = &now
	if err := s.store.Update(ctx, inv); err != nil {
		return nil, err
	}
	s.logger.Info("invoice paid", "school", schoolID, "invoice", id)
	return inv, nil
}

// Void cancels an invoice. Void invoices stop counting against the limit.
func (s *Service) Void(ctx context.Context, schoolID, id string) (*Invoice, error) {
	inv, err := s.store.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	inv.Status = StatusVoid
	if err := s.store.Update(ctx, inv); err != nil {
		return nil, err
	}
	s.logger.Info("invoice voided", "school", schoolID, "invoice", id)
	return inv, nil
}

// Revenue returns the school's collected revenue as a decimal string.
func (s *Service) Revenue(ctx context.Context, schoolID string) (string, error) {
	cents, err := s.store.RevenueCents(ctx, schoolID)
	if err != nil {
		return "", err
	}
	return limits.FormatCents(cents), nil
}
