package filestore

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory file metadata store for demo/development.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string]map[string]*File // school -> id -> record
}

// NewMemoryStore creates a new in-memory file store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string]map[string]*File)}
}

func (m *MemoryStore) Create(_ context.Context, f *File) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.files[f.SchoolID] == nil {
		m.files[f.SchoolID] = make(map[string]*File)
	}
	cp := *f
	m.files[f.SchoolID][f.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, schoolID, id string) (*File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.files[schoolID][id]
	if !ok {
		return nil, ErrFileNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context, schoolID string) ([]*File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*File, 0, len(m.files[schoolID]))
	for _, f := range m.files[schoolID] {
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, schoolID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[schoolID][id]; !ok {
		return ErrFileNotFound
	}
	delete(m.files[schoolID], id)
	return nil
}

func (m *MemoryStore) StorageBytes(_ context.Context, schoolID string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total uint64
	for _, f := range m.files[schoolID] {
		total += f.SizeBytes
	}
	return total, nil
}

var _ Store = (*MemoryStore)(nil)
