package school

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

func newTestService(t *testing.T, store Store, branchCap uint64) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	plans := plan.NewMemoryStore()
	require.NoError(t, plan.Seed(context.Background(), plans))

	subs := subscription.NewMemoryStore()
	require.NoError(t, subs.Create(context.Background(), &subscription.Subscription{
		SchoolID:    "sch_test",
		Status:      subscription.StatusActive,
		RenewalDate: time.Now().AddDate(0, 1, 0),
		CustomLimits: &limits.UsageLimit{
			Students:  limits.Finite(10),
			Teachers:  limits.Finite(10),
			Invoices:  limits.Finite(10),
			StorageGB: limits.Finite(10),
			Branches:  limits.Finite(branchCap),
			Mode:      limits.ModeHardCap,
		},
	}))

	resolver := entitlement.NewResolver(subs, plans, logger)
	counter := usage.NewCounter(usage.MultiSource{Branches: store})
	enforcer := entitlement.NewEnforcer(resolver, counter, nil, logger)

	return NewService(store, enforcer, syncutil.NewContextShardedMutex(), logger)
}

func TestRegister_AndSlugConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := newTestService(t, store, 3)

	sch, err := svc.Register(ctx, "Mwangi Academy", "mwangi-academy")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, sch.Status)
	assert.Contains(t, sch.ID, "sch_")

	_, err = svc.Register(ctx, "Another", "mwangi-academy")
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestAddBranch_EnforcesLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := newTestService(t, store, 2)

	require.NoError(t, store.Create(ctx, &School{ID: "sch_test", Name: "Test", Slug: "test", Status: StatusActive}))

	_, _, err := svc.AddBranch(ctx, "sch_test", "Main Campus", "")
	require.NoError(t, err)
	_, _, err = svc.AddBranch(ctx, "sch_test", "West Campus", "")
	require.NoError(t, err)

	_, d, err := svc.AddBranch(ctx, "sch_test", "East Campus", "")
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.Equal(t, entitlement.VerdictDeny, d.Verdict)
	assert.Equal(t, uint64(2), d.Current)

	n, err := store.CountBranches(ctx, "sch_test")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestAddBranch_DeleteFreesSlot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := newTestService(t, store, 1)

	require.NoError(t, store.Create(ctx, &School{ID: "sch_test", Name: "Test", Slug: "test", Status: StatusActive}))

	b, _, err := svc.AddBranch(ctx, "sch_test", "Main", "")
	require.NoError(t, err)
	_, _, err = svc.AddBranch(ctx, "sch_test", "Second", "")
	require.ErrorIs(t, err, ErrLimitExceeded)

	require.NoError(t, svc.DeleteBranch(ctx, "sch_test", b.ID))
	_, _, err = svc.AddBranch(ctx, "sch_test", "Second", "")
	assert.NoError(t, err)
}

func TestAddBranch_ConcurrentAddsNeverBreachCap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := newTestService(t, store, 5)

	require.NoError(t, store.Create(ctx, &School{ID: "sch_test", Name: "Test", Slug: "test", Status: StatusActive}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _, _ = svc.AddBranch(ctx, "sch_test", "Campus", "")
		}(i)
	}
	wg.Wait()

	n, err := store.CountBranches(ctx, "sch_test")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
}

func TestMemoryStore_BranchCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Create(ctx, &School{ID: "sch_1", Name: "One", Slug: "one"}))

	err := store.CreateBranch(ctx, &Branch{ID: "brn_x", SchoolID: "sch_missing", Name: "X"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.CreateBranch(ctx, &Branch{ID: "brn_1", SchoolID: "sch_1", Name: "Main"}))
	branches, err := store.ListBranches(ctx, "sch_1")
	require.NoError(t, err)
	assert.Len(t, branches, 1)

	assert.ErrorIs(t, store.DeleteBranch(ctx, "sch_1", "brn_nope"), ErrBranchNotFound)
	require.NoError(t, store.DeleteBranch(ctx, "sch_1", "brn_1"))
}
