package roster

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmwangi/schoolgrid/internal/entitlement"
	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/plan"
	"github.com/jmwangi/schoolgrid/internal/subscription"
	"github.com/jmwangi/schoolgrid/internal/syncutil"
	"github.com/jmwangi/schoolgrid/internal/usage"
)

// newTestService builds a roster service backed by in-memory stores with the
// given limits and billing mode.
func newTestService(t *testing.T, studentCap, teacherCap uint64, mode limits.BillingMode) (*Service, Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	plans := plan.NewMemoryStore()
	require.NoError(t, plan.Seed(context.Background(), plans))

	subs := subscription.NewMemoryStore()
	require.NoError(t, subs.Create(context.Background(), &subscription.Subscription{
		SchoolID:    "sch_1",
		Status:      subscription.StatusActive,
		RenewalDate: time.Now().AddDate(0, 1, 0),
		CustomLimits: &limits.UsageLimit{
			Students:  limits.Finite(studentCap),
			Teachers:  limits.Finite(teacherCap),
			Invoices:  limits.Finite(100),
			StorageGB: limits.Finite(10),
			Branches:  limits.Finite(1),
			Mode:      mode,
		},
	}))

	store := NewMemoryStore()
	resolver := entitlement.NewResolver(subs, plans, logger)
	counter := usage.NewCounter(usage.MultiSource{Students: store, Teachers: store})
	pricer := entitlement.StaticPricer{limits.ResourceStudents: "0.50", limits.ResourceTeachers: "1.00"}
	enforcer := entitlement.NewEnforcer(resolver, counter, pricer, logger)

	return NewService(store, enforcer, syncutil.NewContextShardedMutex(), logger), store
}

func TestEnrollStudent_UnderLimit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, 3, 3, limits.ModeHardCap)

	st, d, err := svc.EnrollStudent(ctx, "sch_1", "Wanjiku Kamau", "ADM-001", "+254700000001")
	require.NoError(t, err)
	assert.Equal(t, entitlement.VerdictAllow, d.Verdict)
	assert.Contains(t, st.ID, "stu_")
	assert.Equal(t, "sch_1", st.SchoolID)
}

func TestEnrollStudent_DeniedAtHardCap(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, 2, 3, limits.ModeHardCap)

	_, _, err := svc.EnrollStudent(ctx, "sch_1", "One", "", "")
	require.NoError(t, err)
	_, _, err = svc.EnrollStudent(ctx, "sch_1", "Two", "", "")
	require.NoError(t, err)

	_, d, err := svc.EnrollStudent(ctx, "sch_1", "Three", "", "")
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.Equal(t, entitlement.ReasonLimitExceeded, d.Reason)

	n, _ := store.CountStudents(ctx, "sch_1")
	assert.Equal(t, uint64(2), n)
}

func TestEnrollStudent_OverageAdmits(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, 1, 3, limits.ModeOverage)

	_, _, err := svc.EnrollStudent(ctx, "sch_1", "One", "", "")
	require.NoError(t, err)

	st, d, err := svc.EnrollStudent(ctx, "sch_1", "Two", "", "")
	require.NoError(t, err)
	assert.Equal(t, entitlement.VerdictAllowWithOverage, d.Verdict)
	assert.Equal(t, uint64(1), d.ExtraUnits)
	assert.Equal(t, "0.50", d.EstimatedCharge)
	assert.NotNil(t, st)

	n, _ := store.CountStudents(ctx, "sch_1")
	assert.Equal(t, uint64(2), n)
}

func TestEnrollStudent_DeleteFreesSlot(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, 1, 3, limits.ModeHardCap)

	st, _, err := svc.EnrollStudent(ctx, "sch_1", "One", "", "")
	require.NoError(t, err)
	_, _, err = svc.EnrollStudent(ctx, "sch_1", "Two", "", "")
	require.ErrorIs(t, err, ErrLimitExceeded)

	require.NoError(t, svc.RemoveStudent(ctx, "sch_1", st.ID))
	_, _, err = svc.EnrollStudent(ctx, "sch_1", "Two", "", "")
	assert.NoError(t, err)
}

func TestEnrollStudent_ConcurrentNeverBreachesCap(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, 10, 3, limits.ModeHardCap)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = svc.EnrollStudent(ctx, "sch_1", "Learner", "", "")
		}()
	}
	wg.Wait()

	n, err := store.CountStudents(ctx, "sch_1")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), n)
}

func TestHireTeacher_EnforcesSeparateLimit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, 1, 1, limits.ModeHardCap)

	// filling the student limit does not consume teacher capacity
	_, _, err := svc.EnrollStudent(ctx, "sch_1", "Learner", "", "")
	require.NoError(t, err)

	tc, d, err := svc.HireTeacher(ctx, "sch_1", "Mr. Otieno", "otieno@school.ke", "Mathematics")
	require.NoError(t, err)
	assert.Equal(t, entitlement.VerdictAllow, d.Verdict)
	assert.Contains(t, tc.ID, "tch_")

	_, _, err = svc.HireTeacher(ctx, "sch_1", "Ms. Njeri", "", "")
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestListStudents_Pagination(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, 10, 3, limits.ModeHardCap)

	for i := 0; i < 5; i++ {
		_, _, err := svc.EnrollStudent(ctx, "sch_1", "Learner", "", "")
		require.NoError(t, err)
	}

	page, err := svc.Students(ctx, "sch_1", 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := svc.Students(ctx, "sch_1", 10, 4)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestEnrollStudent_RequiresName(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, 10, 3, limits.ModeHardCap)

	_, _, err := svc.EnrollStudent(ctx, "sch_1", "", "", "")
	assert.Error(t, err)
}
