package limits

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimit_AddUnlimitedDominates(t *testing.T) {
	l := Unlimited()
	assert.True(t, l.Add(500).IsUnlimited())

	f := Finite(100)
	assert.Equal(t, uint64(350), f.Add(250).Value())
}

func TestLimit_Allows(t *testing.T) {
	assert.True(t, Finite(50).Allows(50))
	assert.False(t, Finite(50).Allows(51))
	assert.True(t, Unlimited().Allows(1<<40))
}

func TestLimit_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Finite(42))
	require.NoError(t, err)
	assert.Equal(t, "42", string(data))

	data, err = json.Marshal(Unlimited())
	require.NoError(t, err)
	assert.Equal(t, `"unlimited"`, string(data))

	var l Limit
	require.NoError(t, json.Unmarshal([]byte("42"), &l))
	assert.Equal(t, uint64(42), l.Value())

	require.NoError(t, json.Unmarshal([]byte(`"unlimited"`), &l))
	assert.True(t, l.IsUnlimited())
}

func TestLimit_UnmarshalRejectsBadInput(t *testing.T) {
	var l Limit
	assert.ErrorIs(t, json.Unmarshal([]byte("-3"), &l), ErrInvalidLimit)
	assert.ErrorIs(t, json.Unmarshal([]byte(`"lots"`), &l), ErrInvalidLimit)
}

func TestModeFromFlags(t *testing.T) {
	assert.Equal(t, ModeHardCap, ModeFromFlags(true, false))
	assert.Equal(t, ModeOverage, ModeFromFlags(false, true))
	// Neither flag set: hard cap by default.
	assert.Equal(t, ModeHardCap, ModeFromFlags(false, false))
	// Both set: hard cap wins, never unmetered overage.
	assert.Equal(t, ModeHardCap, ModeFromFlags(true, true))
}

func TestPack_Validate(t *testing.T) {
	assert.NoError(t, Pack{Type: ResourceStudents, Qty: 10, Price: "25.00"}.Validate())
	assert.ErrorIs(t, Pack{Type: ResourceBranches, Qty: 1, Price: "5"}.Validate(), ErrInvalidLimit)
	assert.ErrorIs(t, Pack{Type: Resource("gpus"), Qty: 1, Price: "5"}.Validate(), ErrInvalidLimit)
	assert.ErrorIs(t, Pack{Type: ResourceStudents, Qty: 0, Price: "5"}.Validate(), ErrInvalidLimit)
	assert.ErrorIs(t, Pack{Type: ResourceStudents, Qty: 1, Price: "-5"}.Validate(), ErrInvalidLimit)
}

func TestUsageLimit_PackAdditivity(t *testing.T) {
	u := UsageLimit{
		Invoices: Finite(100),
		Mode:     ModeHardCap,
		Packs: []Pack{
			{Type: ResourceInvoices, Qty: 200, Price: "40"},
			{Type: ResourceInvoices, Qty: 50, Price: "12.50"},
			{Type: ResourceStudents, Qty: 25, Price: "10"},
		},
	}
	assert.Equal(t, uint64(350), u.Resolve(ResourceInvoices).Value())
	assert.Equal(t, uint64(25), u.Resolve(ResourceStudents).Value())
}

func TestUsageLimit_UnlimitedDominatesPacks(t *testing.T) {
	u := UsageLimit{
		Teachers: Unlimited(),
		Mode:     ModeOverage,
		Packs:    []Pack{{Type: ResourceTeachers, Qty: 5, Price: "9.99"}},
	}
	assert.True(t, u.Resolve(ResourceTeachers).IsUnlimited())
}

func TestUsageLimit_Validate(t *testing.T) {
	ok := UsageLimit{Students: Finite(50), Mode: ModeHardCap}
	assert.NoError(t, ok.Validate())

	badMode := UsageLimit{Mode: BillingMode("soft")}
	assert.ErrorIs(t, badMode.Validate(), ErrInvalidLimit)

	badPack := UsageLimit{
		Mode:  ModeHardCap,
		Packs: []Pack{{Type: ResourceStudents, Qty: 0, Price: "1"}},
	}
	assert.ErrorIs(t, badPack.Validate(), ErrInvalidLimit)
}

func TestUsageLimit_ResolveAllCoversEveryResource(t *testing.T) {
	u := UsageLimit{Students: Finite(10), Branches: Finite(2), Mode: ModeHardCap}
	all := u.ResolveAll()
	require.Len(t, all, len(Resources))
	assert.Equal(t, uint64(10), all[ResourceStudents].Value())
	assert.Equal(t, uint64(2), all[ResourceBranches].Value())
}
