package school

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory school store for demo/development.
type MemoryStore struct {
	mu       sync.RWMutex
	schools  map[string]*School
	slugs    map[string]string // slug -> school ID
	branches map[string][]*Branch
}

// NewMemoryStore creates a new in-memory school store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schools:  make(map[string]*School),
		slugs:    make(map[string]string),
		branches: make(map[string][]*Branch),
	}
}

func (m *MemoryStore) Create(_ context.Context, s *School) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.slugs[s.Slug]; taken {
		return ErrSlugTaken
	}
	cp := *s
	m.schools[s.ID] = &cp
	m.slugs[s.Slug] = s.ID
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*School, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.schools[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) GetBySlug(ctx context.Context, slug string) (*School, error) {
	m.mu.RLock()
	id, ok := m.slugs[slug]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.Get(ctx, id)
}

func (m *MemoryStore) List(_ context.Context) ([]*School, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*School, 0, len(m.schools))
	for _, s := range m.schools {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, s *School) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.schools[s.ID]
	if !ok {
		return ErrNotFound
	}
	if old.Slug != s.Slug {
		if _, taken := m.slugs[s.Slug]; taken {
			return ErrSlugTaken
		}
		delete(m.slugs, old.Slug)
		m.slugs[s.Slug] = s.ID
	}
	cp := *s
	m.schools[s.ID] = &cp
	return nil
}

func (m *MemoryStore) CreateBranch(_ context.Context, b *Branch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schools[b.SchoolID]; !ok {
		return ErrNotFound
	}
	cp := *b
	m.branches[b.SchoolID] = append(m.branches[b.SchoolID], &cp)
	return nil
}

func (m *MemoryStore) ListBranches(_ context.Context, schoolID string) ([]*Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Branch, 0, len(m.branches[schoolID]))
	for _, b := range m.branches[schoolID] {
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) DeleteBranch(_ context.Context, schoolID, branchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.branches[schoolID]
	for i, b := range list {
		if b.ID == branchID {
			m.branches[schoolID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return ErrBranchNotFound
}

func (m *MemoryStore) CountBranches(_ context.Context, schoolID string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.branches[schoolID])), nil
}

var _ Store = (*MemoryStore)(nil)
