package subscription

import (
	"context"
	"sync"

	"github.com/jmwangi/schoolgrid/internal/limits"
)

// MemoryStore is an in-memory subscription store for demo/development.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[string]*Subscription // by school ID
}

// NewMemoryStore creates a new in-memory subscription store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]*Subscription)}
}

func (m *MemoryStore) Create(_ context.Context, s *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.subs[s.SchoolID]; exists {
		return ErrExists
	}
	m.subs[s.SchoolID] = clone(s)
	return nil
}

func (m *MemoryStore) GetBySchool(_ context.Context, schoolID string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.subs[schoolID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (m *MemoryStore) Update(_ context.Context, s *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subs[s.SchoolID]; !ok {
		return ErrNotFound
	}
	m.subs[s.SchoolID] = clone(s)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, schoolID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subs[schoolID]; !ok {
		return ErrNotFound
	}
	delete(m.subs, schoolID)
	return nil
}

// clone deep-copies a subscription so callers never share pack slices or
// limit pointers with the store.
func clone(s *Subscription) *Subscription {
	cp := *s
	if s.PlanID != nil {
		v := *s.PlanID
		cp.PlanID = &v
	}
	if s.CustomLimits != nil {
		cl := *s.CustomLimits
		cl.Packs = append([]limits.Pack(nil), s.CustomLimits.Packs...)
		cp.CustomLimits = &cl
	}
	if s.TrialDaysLeft != nil {
		v := *s.TrialDaysLeft
		cp.TrialDaysLeft = &v
	}
	cp.Packs = append([]limits.Pack(nil), s.Packs...)
	return &cp
}

var _ Store = (*MemoryStore)(nil)
