package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmwangi/schoolgrid/internal/limits"
)

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := Builtin()[0]
	require.NoError(t, store.Create(ctx, p))

	got, err := store.Get(ctx, "pln_starter")
	require.NoError(t, err)
	assert.Equal(t, "Starter", got.Name)
	assert.Equal(t, uint64(50), got.Limits.Students.Value())

	got.Name = "Starter v2"
	require.NoError(t, store.Update(ctx, got))

	got2, _ := store.Get(ctx, "pln_starter")
	assert.Equal(t, "Starter v2", got2.Name)

	require.NoError(t, store.Delete(ctx, "pln_starter"))
	_, err = store.Get(ctx, "pln_starter")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestMemoryStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Create(ctx, &Plan{ID: "pln_x", Name: "X"}))
	assert.ErrorIs(t, store.Create(ctx, &Plan{ID: "pln_x", Name: "X again"}), ErrPlanExists)
}

func TestSeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, Seed(ctx, store))
	require.NoError(t, Seed(ctx, store)) // second run skips existing

	plans, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 3)
}

func TestBuiltin_LimitsAreValid(t *testing.T) {
	for _, p := range Builtin() {
		assert.NoError(t, p.Validate(), "plan %s", p.ID)
	}
}

func TestBuiltin_PremiumUnlimited(t *testing.T) {
	var premium *Plan
	for _, p := range Builtin() {
		if p.ID == "pln_premium" {
			premium = p
		}
	}
	require.NotNil(t, premium)
	assert.True(t, premium.Limits.Students.IsUnlimited())
	assert.True(t, premium.Limits.Teachers.IsUnlimited())
	assert.False(t, premium.Limits.StorageGB.IsUnlimited())
}

func TestPlan_ValidateRejectsBadData(t *testing.T) {
	p := &Plan{ID: "pln_bad", Name: "Bad", MonthlyPrice: "-10"}
	assert.Error(t, p.Validate())

	p = &Plan{
		ID: "pln_bad2", Name: "Bad2", MonthlyPrice: "10",
		Limits: limits.UsageLimit{Mode: limits.BillingMode("soft")},
	}
	assert.ErrorIs(t, p.Validate(), limits.ErrInvalidLimit)
}
