package filestore

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
	"github.com/jmwangi/schoolgrid/internal/usage"
	"github.com/jmwangi/schoolgrid/internal/validation"
)

// Authorizer decides whether a school may add units of a resource.
type Authorizer interface {
	Authorize(ctx context.Context, schoolID string, r limits.Resource, qty uint64) (entitlement.Decision, error)
}

// Service manages file metadata writes under the storage quota.
type Service struct {
	store  Store
	auth   Authorizer
	locks  *syncutil.ContextShardedMutex
	logger *slog.Logger
}

// NewService creates a filestore service.
func NewService(store Store, auth Authorizer, locks *syncutil.ContextShardedMutex, logger *slog.Logger) *Service {
	return &Service{store: store, auth: auth, locks: locks, logger: logger}
}

// Record registers an upload. The authorized quantity is the number of
// gigabyte boundaries the new total crosses, so files that fit inside the
// already-counted gigabyte authorize as a zero-quantity probe.
func (s *Service) Record(ctx context.Context, schoolID, name, contentType string, sizeBytes uint64) (*File, entitlement.Decision, error) {
	if sizeBytes == 0 {
		return nil, entitlement.Decision{}, ErrEmptyFile
	}
	name = validation.SanitizeString(name, 300)
	if name == "" {
		return nil, entitlement.Decision{}, errors.New("filestore: file name required")
	}

	unlock, err := s.locks.LockContext(ctx, schoolID+":"+string(limits.ResourceStorageGB))
	if err != nil {
		return nil, entitlement.Decision{}, err
	}
	defer unlock()

	current, err := s.store.StorageBytes(ctx, schoolID)
	if err != nil {
		return nil, entitlement.Decision{}, fmt.Errorf("%w: %v", entitlement.ErrUnavailable, err)
	}
	delta := usage.CeilGB(current+sizeBytes) - usage.CeilGB(current)

	d, err := s.auth.Authorize(ctx, schoolID, limits.ResourceStorageGB, delta)
	if err != nil {
		return nil, entitlement.Decision{}, err
	}
	if !d.Allowed() {
		return nil, d, fmt.Errorf("%w: storage at %d of %s GB", ErrLimitExceeded, d.Current, d.Limit.String())
	}

	f := &File{
		ID:          idgen.WithPrefix("fil_"),
		SchoolID:    schoolID,
		Name:        name,
		SizeBytes:   sizeBytes,
		ContentType: validation.SanitizeString(contentType, 100),
		CreatedAt:   time.Now(),
	}
	if err := s.store.Create(ctx, f); err != nil {
		return nil, d, err
	}

	s.logger.Info("file recorded",
		"school", schoolID,
		"file", f.ID,
		"sizeBytes", sizeBytes,
		"gbDelta", delta)
	return f, d, nil
}

// List returns the school's file metadata.
func (s *Service) List(ctx context.Context, schoolID string) ([]*File, error) {
	return s.store.List(ctx, schoolID)
}

// Remove deletes a file record. The freed bytes lower the next quota check.
func (s *Service) Remove(ctx context.Context, schoolID, id string) error {
	return s.store.Delete(ctx, schoolID, id)
}

// Usage returns the school's total bytes and rounded gigabytes.
func (s *Service) Usage(ctx context.Context, schoolID string) (bytes, gb uint64, err error) {
	bytes, err = s.store.StorageBytes(ctx, schoolID)
	if err != nil {
		return 0, 0, err
	}
	return bytes, usage.CeilGB(bytes), nil
}
