package modules

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(NewMemoryStore(), nil, logger)
}

func TestMonthlyTotal(t *testing.T) {
	mods := []ModuleSubscription{
		{ModuleID: "exams", Name: "Exams", Active: true, Price: "15.00"},
		{ModuleID: "library", Name: "Library", Active: true, Price: "9.50"},
		{ModuleID: "transport", Name: "Transport", Active: false, Price: "99.00"},
	}
	total, err := MonthlyTotal(mods)
	require.NoError(t, err)
	assert.Equal(t, "24.50", total)
}

func TestMonthlyTotal_SingleFractionalDigit(t *testing.T) {
	total, err := MonthlyTotal([]ModuleSubscription{
		{ModuleID: "sms", Name: "SMS", Active: true, Price: "2.5"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2.50", total)
}

func TestMonthlyTotal_RejectsSubCentPrice(t *testing.T) {
	_, err := MonthlyTotal([]ModuleSubscription{
		{ModuleID: "sms", Name: "SMS", Active: true, Price: "2.555"},
	})
	assert.Error(t, err)
}

func TestService_SetAndListModules(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	mods := []ModuleSubscription{
		{ModuleID: "exams", Name: "Exams", Active: true, Price: "15.00"},
		{ModuleID: "library", Name: "Library", Active: false, Price: "9.50"},
	}
	require.NoError(t, svc.SetModules(ctx, "sch_1", mods))

	all, err := svc.List(ctx, "sch_1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.ListActive(ctx, "sch_1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "exams", active[0].ModuleID)
}

func TestService_SetModulesReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	require.NoError(t, svc.SetModules(ctx, "sch_1", []ModuleSubscription{
		{ModuleID: "exams", Name: "Exams", Active: true, Price: "15.00"},
	}))
	require.NoError(t, svc.SetModules(ctx, "sch_1", []ModuleSubscription{
		{ModuleID: "transport", Name: "Transport", Active: true, Price: "20.00"},
	}))

	all, err := svc.List(ctx, "sch_1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "transport", all[0].ModuleID)
}

func TestService_SetModulesValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	err := svc.SetModules(ctx, "sch_1", []ModuleSubscription{
		{ModuleID: "exams", Name: "Exams", Active: true, Price: "abc"},
	})
	assert.Error(t, err)

	err = svc.SetModules(ctx, "sch_1", []ModuleSubscription{
		{ModuleID: "exams", Name: "Exams", Active: true, Price: "1.00"},
		{ModuleID: "exams", Name: "Exams again", Active: true, Price: "2.00"},
	})
	assert.Error(t, err)

	// nothing was written
	all, err := svc.List(ctx, "sch_1")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestService_MonthlyCharge(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	require.NoError(t, svc.SetModules(ctx, "sch_1", []ModuleSubscription{
		{ModuleID: "exams", Name: "Exams", Active: true, Price: "15.00"},
		{ModuleID: "sms", Name: "SMS", Active: true, Price: "0.99"},
	}))

	total, err := svc.MonthlyCharge(ctx, "sch_1")
	require.NoError(t, err)
	assert.Equal(t, "15.99", total)
}
