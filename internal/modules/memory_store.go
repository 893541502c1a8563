package modules

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory module store for demo/development.
type MemoryStore struct {
	mu   sync.RWMutex
	mods map[string][]ModuleSubscription // by school ID
}

// NewMemoryStore creates a new in-memory module store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mods: make(map[string][]ModuleSubscription)}
}

func (m *MemoryStore) List(_ context.Context, schoolID string) ([]ModuleSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := append([]ModuleSubscription(nil), m.mods[schoolID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleID < out[j].ModuleID })
	return out, nil
}

func (m *MemoryStore) Replace(_ context.Context, schoolID string, mods []ModuleSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mods[schoolID] = append([]ModuleSubscription(nil), mods...)
	return nil
}

var _ Store = (*MemoryStore)(nil)
