package entitlement

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/subscription"
	"github.com/jmwangi/schoolgrid/internal/usage"
)

type countSource struct {
	counts map[limits.Resource]uint64
	bytes  uint64
	err    error
}

func (s countSource) CountStudents(context.Context, string) (uint64, error) {
	return s.counts[limits.ResourceStudents], s.err
}
func (s countSource) CountTeachers(context.Context, string) (uint64, error) {
	return s.counts[limits.ResourceTeachers], s.err
}
func (s countSource) CountInvoices(context.Context, string) (uint64, error) {
	return s.counts[limits.ResourceInvoices], s.err
}
func (s countSource) StorageBytes(context.Context, string) (uint64, error) {
	return s.bytes, s.err
}
func (s countSource) CountBranches(context.Context, string) (uint64, error) {
	return s.counts[limits.ResourceBranches], s.err
}

var testPricer = StaticPricer{
	limits.ResourceStudents:  "0.50",
	limits.ResourceTeachers:  "1.00",
	limits.ResourceInvoices:  "0.10",
	limits.ResourceStorageGB: "2.00",
}

func newEnforcer(t *testing.T, subs subscription.Store, src usage.Source) *Enforcer {
	t.Helper()
	resolver := NewResolver(subs, seedPlans(t), testLogger())
	return NewEnforcer(resolver, usage.NewCounter(src), testPricer, testLogger())
}

func TestAuthorize_AllowUnderLimit(t *testing.T) {
	subs := subscription.NewMemoryStore()
	subscribe(t, subs, "sch_1", "pln_starter", nil)
	e := newEnforcer(t, subs, countSource{counts: map[limits.Resource]uint64{
		limits.ResourceStudents: 49,
	}})

	d, err := e.Authorize(context.Background(), "sch_1", limits.ResourceStudents, 1)
	require.NoError(t, err)
	assert.Equal(t, VerdictAllow, d.Verdict)
	assert.True(t, d.Allowed())
}

func TestAuthorize_DenyAtHardCap(t *testing.T) {
	subs := subscription.NewMemoryStore()
	subscribe(t, subs, "sch_1", "pln_starter", nil)
	e := newEnforcer(t, subs, countSource{counts: map[limits.Resource]uint64{
		limits.ResourceStudents: 50,
	}})

	d, err := e.Authorize(context.Background(), "sch_1", limits.ResourceStudents, 1)
	require.NoError(t, err)
	assert.Equal(t, VerdictDeny, d.Verdict)
	assert.Equal(t, ReasonLimitExceeded, d.Reason)
	assert.Equal(t, uint64(50), d.Current)
	assert.Equal(t, uint64(50), d.Limit.Value())
	assert.False(t, d.Allowed())
}

func TestAuthorize_OverageAdmitsAndPrices(t *testing.T) {
	subs := subscription.NewMemoryStore()
	subscribe(t, subs, "sch_1", "pln_standard", nil) // overage mode, 1000 invoices
	e := newEnforcer(t, subs, countSource{counts: map[limits.Resource]uint64{
		limits.ResourceInvoices: 1000,
	}})

	d, err := e.Authorize(context.Background(), "sch_1", limits.ResourceInvoices, 3)
	require.NoError(t, err)
	assert.Equal(t, VerdictAllowWithOverage, d.Verdict)
	assert.Equal(t, uint64(3), d.ExtraUnits)
	assert.Equal(t, "0.30", d.EstimatedCharge) // 3 units at 0.10
	assert.True(t, d.Allowed())
}

func TestAuthorize_OverageCountsOnlyExcessUnits(t *testing.T) {
	subs := subscription.NewMemoryStore()
	subscribe(t, subs, "sch_1", "pln_standard", nil)
	e := newEnforcer(t, subs, countSource{counts: map[limits.Resource]uint64{
		limits.ResourceInvoices: 998,
	}})

	// 998 used + 5 requested = 1003, limit 1000: only 3 are overage
	d, err := e.Authorize(context.Background(), "sch_1", limits.ResourceInvoices, 5)
	require.NoError(t, err)
	assert.Equal(t, VerdictAllowWithOverage, d.Verdict)
	assert.Equal(t, uint64(3), d.ExtraUnits)
}

func TestAuthorize_BranchesNeverOverage(t *testing.T) {
	subs := subscription.NewMemoryStore()
	subscribe(t, subs, "sch_1", "pln_standard", nil) // overage mode, 3 branches
	e := newEnforcer(t, subs, countSource{counts: map[limits.Resource]uint64{
		limits.ResourceBranches: 3,
	}})

	d, err := e.Authorize(context.Background(), "sch_1", limits.ResourceBranches, 1)
	require.NoError(t, err)
	assert.Equal(t, VerdictDeny, d.Verdict)
	assert.Equal(t, ReasonLimitExceeded, d.Reason)
}

func TestAuthorize_UnlimitedAlwaysAllows(t *testing.T) {
	subs := subscription.NewMemoryStore()
	subscribe(t, subs, "sch_1", "pln_premium", nil)
	e := newEnforcer(t, subs, countSource{counts: map[limits.Resource]uint64{
		limits.ResourceStudents: 1_000_000,
	}})

	d, err := e.Authorize(context.Background(), "sch_1", limits.ResourceStudents, 10_000)
	require.NoError(t, err)
	assert.Equal(t, VerdictAllow, d.Verdict)
	assert.True(t, d.Limit.IsUnlimited())
}

func TestAuthorize_PacksRaiseTheCap(t *testing.T) {
	subs := subscription.NewMemoryStore()
	subscribe(t, subs, "sch_1", "pln_starter", func(s *subscription.Subscription) {
		s.Packs = []limits.Pack{{Type: limits.ResourceStudents, Qty: 10, Price: "9.00"}}
	})
	e := newEnforcer(t, subs, countSource{counts: map[limits.Resource]uint64{
		limits.ResourceStudents: 55,
	}})

	d, err := e.Authorize(context.Background(), "sch_1", limits.ResourceStudents, 1)
	require.NoError(t, err)
	assert.Equal(t, VerdictAllow, d.Verdict)
	assert.Equal(t, uint64(60), d.Limit.Value())
}

func TestAuthorize_MissingSubscriptionFails(t *testing.T) {
	e := newEnforcer(t, subscription.NewMemoryStore(), countSource{})

	_, err := e.Authorize(context.Background(), "sch_ghost", limits.ResourceStudents, 1)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestAuthorize_EmptySubscriptionDenies(t *testing.T) {
	subs := subscription.NewMemoryStore()
	subscribe(t, subs, "sch_1", "", nil)
	e := newEnforcer(t, subs, countSource{})

	d, err := e.Authorize(context.Background(), "sch_1", limits.ResourceStudents, 1)
	require.NoError(t, err)
	assert.Equal(t, VerdictDeny, d.Verdict)
	assert.Equal(t, ReasonNoSubscription, d.Reason)
}

func TestAuthorize_ZeroQtyProbesCurrentUsage(t *testing.T) {
	subs := subscription.NewMemoryStore()
	subscribe(t, subs, "sch_1", "pln_starter", nil)

	// at the cap but not over it: a probe passes, a real request does not
	e := newEnforcer(t, subs, countSource{counts: map[limits.Resource]uint64{
		limits.ResourceStudents: 50,
	}})

	d, err := e.Authorize(context.Background(), "sch_1", limits.ResourceStudents, 0)
	require.NoError(t, err)
	assert.Equal(t, VerdictAllow, d.Verdict)

	d, err = e.Authorize(context.Background(), "sch_1", limits.ResourceStudents, 1)
	require.NoError(t, err)
	assert.Equal(t, VerdictDeny, d.Verdict)
}

func TestAuthorize_UnknownResource(t *testing.T) {
	subs := subscription.NewMemoryStore()
	subscribe(t, subs, "sch_1", "pln_starter", nil)
	e := newEnforcer(t, subs, countSource{})

	_, err := e.Authorize(context.Background(), "sch_1", limits.Resource("gpus"), 1)
	assert.Error(t, err)
}

func TestAuthorize_UsageFailureFailsClosed(t *testing.T) {
	subs := subscription.NewMemoryStore()
	subscribe(t, subs, "sch_1", "pln_premium", nil)
	e := newEnforcer(t, subs, countSource{err: errors.New("db down")})

	_, err := e.Authorize(context.Background(), "sch_1", limits.ResourceStudents, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAuthorize_StorageRoundsUpBeforeComparing(t *testing.T) {
	subs := subscription.NewMemoryStore()
	subscribe(t, subs, "sch_1", "pln_starter", nil) // 5 GB
	e := newEnforcer(t, subs, countSource{bytes: 4*1024*1024*1024 + 1})

	// 4 GB + 1 byte rounds to 5 GB used; one more GB breaches the cap
	d, err := e.Authorize(context.Background(), "sch_1", limits.ResourceStorageGB, 1)
	require.NoError(t, err)
	assert.Equal(t, VerdictDeny, d.Verdict)
	assert.Equal(t, uint64(5), d.Current)
}

func TestAuthorize_RecordsDecisionMetrics(t *testing.T) {
	subs := subscription.NewMemoryStore()
	subscribe(t, subs, "sch_1", "pln_starter", nil)
	e := newEnforcer(t, subs, countSource{counts: map[limits.Resource]uint64{
		limits.ResourceTeachers: 5,
	}})

	before := counterValue(t, denialsTotal, string(limits.ResourceTeachers), ReasonLimitExceeded)
	_, err := e.Authorize(context.Background(), "sch_1", limits.ResourceTeachers, 1)
	require.NoError(t, err)
	after := counterValue(t, denialsTotal, string(limits.ResourceTeachers), ReasonLimitExceeded)

	assert.Equal(t, before+1, after)
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
