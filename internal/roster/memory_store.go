package roster

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory roster store for demo/development.
type MemoryStore struct {
	mu       sync.RWMutex
	students map[string]map[string]*Student // school -> id -> record
	teachers map[string]map[string]*Teacher
}

// NewMemoryStore creates a new in-memory roster store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students: make(map[string]map[string]*Student),
		teachers: make(map[string]map[string]*Teacher),
	}
}

func (m *MemoryStore) CreateStudent(_ context.Context, s *Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.students[s.SchoolID] == nil {
		m.students[s.SchoolID] = make(map[string]*Student)
	}
	cp := *s
	m.students[s.SchoolID][s.ID] = &cp
	return nil
}

func (m *MemoryStore) GetStudent(_ context.Context, schoolID, id string) (*Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.students[schoolID][id]
	if !ok {
		return nil, ErrStudentNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) ListStudents(_ context.Context, schoolID string, limit, offset int) ([]*Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*Student, 0, len(m.students[schoolID]))
	for _, s := range m.students[schoolID] {
		cp := *s
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginate(all, limit, offset), nil
}

func (m *MemoryStore) DeleteStudent(_ context.Context, schoolID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.students[schoolID][id]; !ok {
		return ErrStudentNotFound
	}
	delete(m.students[schoolID], id)
	return nil
}

func (m *MemoryStore) CountStudents(_ context.Context, schoolID string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.students[schoolID])), nil
}

func (m *MemoryStore) CreateTeacher(_ context.Context, t *Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.teachers[t.SchoolID] == nil {
		m.teachers[t.SchoolID] = make(map[string]*Teacher)
	}
	cp := *t
	m.teachers[t.SchoolID][t.ID] = &cp
	return nil
}

func (m *MemoryStore) GetTeacher(_ context.Context, schoolID, id string) (*Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.teachers[schoolID][id]
	if !ok {
		return nil, ErrTeacherNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) ListTeachers(_ context.Context, schoolID string, limit, offset int) ([]*Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*Teacher, 0, len(m.teachers[schoolID]))
	for _, t := range m.teachers[schoolID] {
		cp := *t
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginate(all, limit, offset), nil
}

func (m *MemoryStore) DeleteTeacher(_ context.Context, schoolID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.teachers[schoolID][id]; !ok {
		return ErrTeacherNotFound
	}
	delete(m.teachers[schoolID], id)
	return nil
}

func (m *MemoryStore) CountTeachers(_ context.Context, schoolID string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.teachers[schoolID])), nil
}

func paginate[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

var _ Store = (*MemoryStore)(nil)
