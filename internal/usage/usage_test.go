package usage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmwangi/schoolgrid/internal/limits"
)

type fakeSource struct {
	students, teachers, invoices, branches uint64
	bytes                                  uint64
	err                                    error
}

func (f fakeSource) CountStudents(context.Context, string) (uint64, error) {
	return f.students, f.err
}
func (f fakeSource) CountTeachers(context.Context, string) (uint64, error) {
	return f.teachers, f.err
}
func (f fakeSource) CountInvoices(context.Context, string) (uint64, error) {
	return f.invoices, f.err
}
func (f fakeSource) StorageBytes(context.Context, string) (uint64, error) {
	return f.bytes, f.err
}
func (f fakeSource) CountBranches(context.Context, string) (uint64, error) {
	return f.branches, f.err
}

func TestCeilGB(t *testing.T) {
	assert.Equal(t, uint64(0), CeilGB(0))
	assert.Equal(t, uint64(1), CeilGB(1))
	assert.Equal(t, uint64(1), CeilGB(1024*1024*1024))
	assert.Equal(t, uint64(2), CeilGB(1024*1024*1024+1))
	assert.Equal(t, uint64(5), CeilGB(5*1024*1024*1024))
}

func TestCounter_Snapshot(t *testing.T) {
	c := NewCounter(fakeSource{
		students: 42, teachers: 7, invoices: 120, branches: 2,
		bytes: 3*1024*1024*1024 + 500,
	})

	snap, err := c.Snapshot(context.Background(), "sch_1")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), snap.Students)
	assert.Equal(t, uint64(7), snap.Teachers)
	assert.Equal(t, uint64(120), snap.Invoices)
	assert.Equal(t, uint64(4), snap.StorageGB) // partial GB rounds up
	assert.Equal(t, uint64(2), snap.Branches)
}

func TestCounter_SnapshotFailsClosed(t *testing.T) {
	c := NewCounter(fakeSource{err: errors.New("db down")})

	_, err := c.Snapshot(context.Background(), "sch_1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCounter_Count(t *testing.T) {
	c := NewCounter(fakeSource{students: 10, bytes: 1})

	n, err := c.Count(context.Background(), "sch_1", limits.ResourceStudents)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), n)

	gb, err := c.Count(context.Background(), "sch_1", limits.ResourceStorageGB)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gb)

	_, err = c.Count(context.Background(), "sch_1", limits.Resource("gpus"))
	assert.Error(t, err)
}

func TestSnapshot_Get(t *testing.T) {
	snap := Snapshot{Students: 1, Teachers: 2, Invoices: 3, StorageGB: 4, Branches: 5}
	assert.Equal(t, uint64(1), snap.Get(limits.ResourceStudents))
	assert.Equal(t, uint64(2), snap.Get(limits.ResourceTeachers))
	assert.Equal(t, uint64(3), snap.Get(limits.ResourceInvoices))
	assert.Equal(t, uint64(4), snap.Get(limits.ResourceStorageGB))
	assert.Equal(t, uint64(5), snap.Get(limits.ResourceBranches))
	assert.Equal(t, uint64(0), snap.Get(limits.Resource("gpus")))
}

func TestMultiSource_NilFieldsReportZero(t *testing.T) {
	c := NewCounter(MultiSource{})

	snap, err := c.Snapshot(context.Background(), "sch_1")
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, snap)
}
