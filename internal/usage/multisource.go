package usage

import "context"

// StudentCounter, TeacherCounter, InvoiceCounter, ByteCounter, and
// BranchCounter are the single-resource views that domain stores implement.
type StudentCounter interface {
	CountStudents(ctx context.Context, schoolID string) (uint64, error)
}

type TeacherCounter interface {
	CountTeachers(ctx context.Context, schoolID string) (uint64, error)
}

type InvoiceCounter interface {
	CountInvoices(ctx context.Context, schoolID string) (uint64, error)
}

type ByteCounter interface {
	StorageBytes(ctx context.Context, schoolID string) (uint64, error)
}

type BranchCounter interface {
	CountBranches(ctx context.Context, schoolID string) (uint64, error)
}

// MultiSource composes per-resource counters owned by different stores into
// one Source. Nil fields report zero, which keeps wiring optional in tests
// and in deployments that do not run every subsystem.
type MultiSource struct {
	Students StudentCounter
	Teachers TeacherCounter
	Invoices InvoiceCounter
	Storage  ByteCounter
	Branches BranchCounter
}

func (m MultiSource) CountStudents(ctx context.Context, schoolID string) (uint64, error) {
	if m.Students == nil {
		return 0, nil
	}
	return m.Students.CountStudents(ctx, schoolID)
}

func (m MultiSource) CountTeachers(ctx context.Context, schoolID string) (uint64, error) {
	if m.Teachers == nil {
		return 0, nil
	}
	return m.Teachers.CountTeachers(ctx, schoolID)
}

func (m MultiSource) CountInvoices(ctx context.Context, schoolID string) (uint64, error) {
	if m.Invoices == nil {
		return 0, nil
	}
	return m.Invoices.CountInvoices(ctx, schoolID)
}

func (m MultiSource) StorageBytes(ctx context.Context, schoolID string) (uint64, error) {
	if m.Storage == nil {
		return 0, nil
	}
	return m.Storage.StorageBytes(ctx, schoolID)
}

func (m MultiSource) CountBranches(ctx context.Context, schoolID string) (uint64, error) {
	if m.Branches == nil {
		return 0, nil
	}
	return m.Branches.CountBranches(ctx, schoolID)
}

var _ Source = MultiSource{}
