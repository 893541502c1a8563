package school

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmwangi/schoolgrid/internal/entitlement"
	"github.com/jmwangi/schoolgrid/internal/idgen"
	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/metrics"
	"github.com/jmwangi/schoolgrid/internal/syncutil"
	"github.com/jmwangi/schoolgrid/internal/validation"
)

// ErrLimitExceeded is returned when an entitlement check blocks a write.
var ErrLimitExceeded = errors.New("school: limit exceeded")

// Authorizer decides whether a school may add units of a resource.
type Authorizer interface {
	Authorize(ctx context.Context, schoolID string, r limits.Resource, qty uint64) (entitlement.Decision, error)
}

// Service manages the school registry and branch writes.
type Service struct {
	store  Store
	auth   Authorizer
	locks  *syncutil.ContextShardedMutex
	logger *slog.Logger
}

// NewService creates a school service.
func NewService(store Store, auth Authorizer, locks *syncutil.ContextShardedMutex, logger *slog.Logger) *Service {
	return &Service{store: store, auth: auth, locks: locks, logger: logger}
}

// Register creates a new school.
func (s *Service) Register(ctx context.Context, name, slug string) (*School, error) {
	name = validation.SanitizeString(name, 200)
	slug = validation.SanitizeSlug(slug)
	if name == "" || slug == "" {
		return nil, errors.New("school: name and slug required")
	}

	now := time.Now()
	sch := &School{
		ID:        idgen.WithPrefix("sch_"),
		Name:      name,
		Slug:      slug,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, sch); err != nil {
		return nil, err
	}
	metrics.SchoolsRegisteredTotal.Inc()
	s.logger.Info("school registered", "school", sch.ID, "slug", slug)
	return sch, nil
}

// Get returns a school by ID.
func (s *Service) Get(ctx context.Context, id string) (*School, error) {
	return s.store.Get(ctx, id)
}

// List returns all schools.
func (s *Service) List(ctx context.Context) ([]*School, error) {
	return s.store.List(ctx)
}

// SetStatus transitions a school's lifecycle state.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (*School, error) {
	sch, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sch.Status = status
	sch.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, sch); err != nil {
		return nil, err
	}
	s.logger.Info("school status changed", "school", id, "status", status)
	return sch, nil
}

// AddBranch creates a branch after an entitlement check. The check and the
// insert run under the school's branch lock so two concurrent adds cannot
// both pass at the last free slot.
func (s *Service) AddBranch(ctx context.Context, schoolID, name, address string) (*Branch, entitlement.Decision, error) {
	unlock, err := s.locks.LockContext(ctx, schoolID+":"+string(limits.ResourceBranches))
	if err != nil {
		return nil, entitlement.Decision{}, err
	}
	defer unlock()

	d, err := s.auth.Authorize(ctx, schoolID, limits.ResourceBranches, 1)
	if err != nil {
		return nil, entitlement.Decision{}, err
	}
	if !d.Allowed() {
		return nil, d, fmt.Errorf("%w: branches at %d of %s", ErrLimitExceeded, d.Current, d.Limit.String())
	}

	b := &Branch{
		ID:        idgen.WithPrefix("brn_"),
		SchoolID:  schoolID,
		Name:      validation.SanitizeString(name, 200),
		Address:   validation.SanitizeString(address, 500),
		CreatedAt: time.Now(),
	}
	if b.Name == "" {
		return nil, d, errors.New("school: branch name required")
	}
	if err := s.store.CreateBranch(ctx, b); err != nil {
		return nil, d, err
	}
	s.logger.Info("branch added", "school", schoolID, "branch", b.ID)
	return b, d, nil
}

// ListBranches returns a school's branches.
func (s *Service) ListBranches(ctx context.Context, schoolID string) ([]*Branch, error) {
	return s.store.ListBranches(ctx, schoolID)
}

// DeleteBranch removes a branch; the freed slot is reusable immediately
// because counts are recomputed on read.
func (s *Service) DeleteBranch(ctx context.Context, schoolID, branchID string) error {
	if err := s.store.DeleteBranch(ctx, schoolID, branchID); err != nil {
		return err
	}
	s.logger.Info("branch removed", "school", schoolID, "branch", branchID)
	return nil
}
