package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmwangi/schoolgrid/internal/entitlement"
	"github.com/jmwangi/schoolgrid/internal/idgen"
	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/syncutil"
	"github.com/jmwangi/schoolgrid/internal/validation"
)

// ErrLimitExceeded is returned when an entitlement check blocks a write.
var ErrLimitExceeded = errors.New("roster: limit exceeded")

// Authorizer decides whether a school may add units of a resource.
type Authorizer interface {
	Authorize(ctx context.Context, schoolID string, r limits.Resource, qty uint64) (entitlement.Decision, error)
}

// Service manages roster writes. Creates hold the school-resource lock
// across the entitlement check and the insert so concurrent requests cannot
// slip past a nearly full limit together.
type Service struct {
	store  Store
	auth   Authorizer
	locks  *syncutil.ContextShardedMutex
	logger *slog.Logger
}

// NewService creates a roster service.
func NewService(store Store, auth Authorizer, locks *syncutil.ContextShardedMutex, logger *slog.Logger) *Service {
	return &Service{store: store, auth: auth, locks: locks, logger: logger}
}

// EnrollStudent creates a student record if the school's student limit
// allows one more.
func (s *Service) EnrollStudent(ctx context.Context, schoolID, name, admissionNo, guardianPhone string) (*Student, entitlement.Decision, error) {
	name = validation.SanitizeString(name, 200)
	if name == "" {
		return nil, entitlement.Decision{}, errors.New("roster: student name required")
	}

	unlock, err := s.locks.LockContext(ctx, schoolID+":"+string(limits.ResourceStudents))
	if err != nil {
		return nil, entitlement.Decision{}, err
	}
	defer unlock()

	d, err := s.auth.Authorize(ctx, schoolID, limits.ResourceStudents, 1)
	if err != nil {
		return nil, entitlement.Decision{}, err
	}
	if !d.Allowed() {
		return nil, d, fmt.Errorf("%w: students at %d of %s", ErrLimitExceeded, d.Current, d.Limit.String())
	}

	st := &Student{
		ID:            idgen.WithPrefix("stu_"),
		SchoolID:      schoolID,
		Name:          name,
		AdmissionNo:   validation.SanitizeString(admissionNo, 50),
		GuardianPhone: validation.SanitizeString(guardianPhone, 30),
		CreatedAt:     time.Now(),
	}
	if err := s.store.CreateStudent(ctx, st); err != nil {
		return nil, d, err
	}

	if d.Verdict == entitlement.VerdictAllowWithOverage {
		s.logger.Info("student enrolled into overage",
			"school", schoolID,
			"student", st.ID,
			"extraUnits", d.ExtraUnits,
			"estimatedCharge", d.EstimatedCharge)
	}
	return st, d, nil
}

// HireTeacher creates a teacher record if the school's teacher limit allows
// one more.
func (s *Service) HireTeacher(ctx context.Context, schoolID, name, email, subject string) (*Teacher, entitlement.Decision, error) {
	name = validation.SanitizeString(name, 200)
	if name == "" {
		return nil, entitlement.Decision{}, errors.New("roster: teacher name required")
	}

	unlock, err := s.locks.LockContext(ctx, schoolID+":"+string(limits.ResourceTeachers))
	if err != nil {
		return nil, entitlement.Decision{}, err
	}
	defer unlock()

	d, err := s.auth.Authorize(ctx, schoolID, limits.ResourceTeachers, 1)
	if err != nil {
		return nil, entitlement.Decision{}, err
	}
	if !d.Allowed() {
		return nil, d, fmt.Errorf("%w: teachers at %d of %s", ErrLimitExceeded, d.Current, d.Limit.String())
	}

	tc := &Teacher{
		ID:        idgen.WithPrefix("tch_"),
		SchoolID:  schoolID,
		Name:      name,
		Email:     validation.SanitizeString(email, 200),
		Subject:   validation.SanitizeString(subject, 100),
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateTeacher(ctx, tc); err != nil {
		return nil, d, err
	}
	return tc, d, nil
}

// Students returns a page of the school's students.
func (s *Service) Students(ctx context.Context, schoolID string, limit, offset int) ([]*Student, error) {
	return s.store.ListStudents(ctx, schoolID, limit, offset)
}

// Teachers returns a page of the school's teachers.
func (s *Service) Teachers(ctx context.Context, schoolID string, limit, offset int) ([]*Teacher, error) {
	return s.store.ListTeachers(ctx, schoolID, limit, offset)
}

// RemoveStudent deletes a student record. The freed slot is visible to the
// next entitlement check immediately.
func (s *Service) RemoveStudent(ctx context.Context, schoolID, id string) error {
	return s.store.DeleteStudent(ctx, schoolID, id)
}

// RemoveTeacher deletes a teacher record.
func (s *Service) RemoveTeacher(ctx context.Context, schoolID, id string) error {
	return s.store.DeleteTeacher(ctx, schoolID, id)
}
