package invoicing

import (
	"context"
	"sort"
	"sync"

	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/pagination"
)

// MemoryStore is an in-memory invoice store for demo/development.
type MemoryStore struct {
	mu       sync.RWMutex
	invoices map[string]map[string]*Invoice // school -> id -> record
}

// NewMemoryStore creates a new in-memory invoice store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{invoices: make(map[string]map[string]*Invoice)}
}

func (m *MemoryStore) Create(_ context.Context, inv *Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.invoices[inv.SchoolID] == nil {
		m.invoices[inv.SchoolID] = make(map[string]*Invoice)
	}
	m.invoices[inv.SchoolID][inv.ID] = cloneInvoice(inv)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, schoolID, id string) (*Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inv, ok := m.invoices[schoolID][id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	return cloneInvoice(inv), nil
}

func (m *MemoryStore) ListAfter(_ context.Context, schoolID string, after *pagination.Cursor, limit int) ([]*Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*Invoice, 0, len(m.invoices[schoolID]))
	for _, inv := range m.invoices[schoolID] {
		all = append(all, cloneInvoice(inv))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	var out []*Invoice
	for _, inv := range all {
		if after != nil {
			if inv.CreatedAt.Before(after.CreatedAt) {
				continue
			}
			if inv.CreatedAt.Equal(after.CreatedAt) && inv.ID <= after.ID {
				continue
			}
		}
		out = append(out, inv)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, inv *Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.invoices[inv.SchoolID][inv.ID]; !ok {
		return ErrInvoiceNotFound
	}
	m.invoices[inv.SchoolID][inv.ID] = cloneInvoice(inv)
	return nil
}

func (m *MemoryStore) CountInvoices(_ context.Context, schoolID string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n uint64
	for _, inv := range m.invoices[schoolID] {
		if inv.Status != StatusVoid {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) RevenueCents(_ context.Context, schoolID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cents int64
	for _, inv := range m.invoices[schoolID] {
		if inv.Status != StatusPaid {
			continue
		}
		c, err := limits.PriceCents(inv.Total)
		if err != nil {
			return 0, err
		}
		cents += c
	}
	return cents, nil
}

func cloneInvoice(inv *Invoice) *Invoice {
	cp := *inv
	cp.Items = append([]LineItem(nil), inv.Items...)
	if inv.PaidAt != nil {
		v := *inv.PaidAt
		cp.PaidAt = &v
	}
	return &cp
}

var _ Store = (*MemoryStore)(nil)
