package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/testutil"
)

func TestPostgresStore_RoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	require.NoError(t, store.Migrate(ctx))

	planID := "pln_standard"
	custom := &limits.UsageLimit{
		Students:  limits.Finite(200),
		Teachers:  limits.Unlimited(),
		Invoices:  limits.Finite(500),
		StorageGB: limits.Finite(25),
		Branches:  limits.Finite(2),
		Mode:      limits.ModeOverage,
	}
	sub := &Subscription{
		SchoolID:     "sch_pgtest",
		PlanID:       &planID,
		Status:       StatusTrialing,
		RenewalDate:  time.Now().AddDate(0, 1, 0).UTC().Truncate(time.Second),
		CustomLimits: custom,
		Packs: []limits.Pack{
			{Type: limits.ResourceStudents, Qty: 100, Price: "49.00"},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Create(ctx, sub))

	got, err := store.GetBySchool(ctx, "sch_pgtest")
	require.NoError(t, err)
	assert.Equal(t, StatusTrialing, got.Status)
	require.NotNil(t, got.PlanID)
	assert.Equal(t, planID, *got.PlanID)
	require.NotNil(t, got.CustomLimits)
	assert.True(t, got.CustomLimits.Teachers.IsUnlimited())
	assert.Equal(t, uint64(200), got.CustomLimits.Students.Value())
	require.Len(t, got.Packs, 1)
	assert.Equal(t, uint64(100), got.Packs[0].Qty)

	// duplicate school conflicts
	assert.ErrorIs(t, store.Create(ctx, sub), ErrExists)

	got.Status = StatusActive
	got.Packs = append(got.Packs, limits.Pack{Type: limits.ResourceInvoices, Qty: 50, Price: "5.00"})
	require.NoError(t, store.Update(ctx, got))

	again, err := store.GetBySchool(ctx, "sch_pgtest")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, again.Status)
	assert.Len(t, again.Packs, 2)

	require.NoError(t, store.Delete(ctx, "sch_pgtest"))
	_, err = store.GetBySchool(ctx, "sch_pgtest")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Update(ctx, again), ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "sch_pgtest"), ErrNotFound)
}

func TestPostgresStore_Nullables(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	require.NoError(t, store.Migrate(ctx))

	sub := &Subscription{
		SchoolID:    "sch_pgnull",
		Status:      StatusActive,
		RenewalDate: time.Now().UTC(),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.Create(ctx, sub))

	got, err := store.GetBySchool(ctx, "sch_pgnull")
	require.NoError(t, err)
	assert.Nil(t, got.PlanID)
	assert.Nil(t, got.CustomLimits)
	assert.Nil(t, got.TrialDaysLeft)
	assert.Empty(t, got.Packs)
}
