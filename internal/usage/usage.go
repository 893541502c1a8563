// Package usage derives per-school consumption counts from the system of
// record. Counts are recomputed on read rather than maintained as stored
// counters, so deletes and corrections are reflected immediately.
package usage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmwangi/schoolgrid/internal/limits"
)

// ErrUnavailable wraps failures to read the underlying records. Enforcement
// must fail closed on it rather than treat usage as zero.
var ErrUnavailable = errors.New("usage: counts unavailable")

const bytesPerGB = 1024 * 1024 * 1024

// Snapshot is a school's consumption at a point in time. StorageGB is
// rounded up from bytes, so any nonzero usage counts as at least 1 GB.
type Snapshot struct {
	Students  uint64 `json:"students"`
	Teachers  uint64 `json:"teachers"`
	Invoices  uint64 `json:"invoices"`
	StorageGB uint64 `json:"storageGb"`
	Branches  uint64 `json:"branches"`
}

// Get returns the snapshot value for a resource.
func (s Snapshot) Get(r limits.Resource) uint64 {
	switch r {
	case limits.ResourceStudents:
		return s.Students
	case limits.ResourceTeachers:
		return s.Teachers
	case limits.ResourceInvoices:
		return s.Invoices
	case limits.ResourceStorageGB:
		return s.StorageGB
	case limits.ResourceBranches:
		return s.Branches
	}
	return 0
}

// Source exposes the live record counts for one resource kind. The roster,
// invoicing, and file stores each implement the pieces they own.
type Source interface {
	CountStudents(ctx context.Context, schoolID string) (uint64, error)
	CountTeachers(ctx context.Context, schoolID string) (uint64, error)
	CountInvoices(ctx context.Context, schoolID string) (uint64, error)
	StorageBytes(ctx context.Context, schoolID string) (uint64, error)
	CountBranches(ctx context.Context, schoolID string) (uint64, error)
}

// CeilGB converts a byte count to whole gigabytes, rounding up.
func CeilGB(bytes uint64) uint64 {
	if bytes == 0 {
		return 0
	}
	return (bytes + bytesPerGB - 1) / bytesPerGB
}

// Counter assembles snapshots from a Source.
type Counter struct {
	src Source
}

// NewCounter creates a usage counter over the given source.
func NewCounter(src Source) *Counter {
	return &Counter{src: src}
}

// Snapshot reads all resource counts for a school. Any read failure aborts
// the whole snapshot.
func (c *Counter) Snapshot(ctx context.Context, schoolID string) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Students, err = c.src.CountStudents(ctx, schoolID); err != nil {
		return Snapshot{}, fmt.Errorf("%w: students: %v", ErrUnavailable, err)
	}
	if snap.Teachers, err = c.src.CountTeachers(ctx, schoolID); err != nil {
		return Snapshot{}, fmt.Errorf("%w: teachers: %v", ErrUnavailable, err)
	}
	if snap.Invoices, err = c.src.CountInvoices(ctx, schoolID); err != nil {
		return Snapshot{}, fmt.Errorf("%w: invoices: %v", ErrUnavailable, err)
	}
	var bytes uint64
	if bytes, err = c.src.StorageBytes(ctx, schoolID); err != nil {
		return Snapshot{}, fmt.Errorf("%w: storage: %v", ErrUnavailable, err)
	}
	snap.StorageGB = CeilGB(bytes)
	if snap.Branches, err = c.src.CountBranches(ctx, schoolID); err != nil {
		return Snapshot{}, fmt.Errorf("%w: branches: %v", ErrUnavailable, err)
	}
	return snap, nil
}

// Count reads a single resource count for a school.
func (c *Counter) Count(ctx context.Context, schoolID string, r limits.Resource) (uint64, error) {
	switch r {
	case limits.ResourceStudents:
		n, err := c.src.CountStudents(ctx, schoolID)
		return n, wrapUnavailable(r, err)
	case limits.ResourceTeachers:
		n, err := c.src.CountTeachers(ctx, schoolID)
		return n, wrapUnavailable(r, err)
	case limits.ResourceInvoices:
		n, err := c.src.CountInvoices(ctx, schoolID)
		return n, wrapUnavailable(r, err)
	case limits.ResourceStorageGB:
		bytes, err := c.src.StorageBytes(ctx, schoolID)
		if err != nil {
			return 0, wrapUnavailable(r, err)
		}
		return CeilGB(bytes), nil
	case limits.ResourceBranches:
		n, err := c.src.CountBranches(ctx, schoolID)
		return n, wrapUnavailable(r, err)
	}
	return 0, fmt.Errorf("usage: unknown resource %q", r)
}

func wrapUnavailable(r limits.Resource, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, r, err)
}
