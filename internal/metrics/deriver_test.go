package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimstat/domain/core"
	"claimstat/domain/policy"
	"claimstat/internal/testkit"
)

var headers = []string{policy.ColGender, policy.ColTotalPremium, policy.ColTotalClaims}

func fixture() *policy.Table {
	return testkit.BuildTable(policy.DefaultSchema(), headers, [][]string{
		{"Male", "100", "0"},
		{"Female", "50", "250"},
		{"", "80", "0"},
		{"Male", "", "10"},
		{"Female", "70", "n/a"},
		{"Male", "0", "0.5"},
	})
}

func TestDerive_Invariants(t *testing.T) {
	cfg := testkit.DefaultPolicyConfig()
	cfg.Policies = 300
	tbl := testkit.NewPolicyGenerator(cfg).Table(policy.DefaultSchema())

	derived, report, err := NewDeriver(nil).Derive(tbl)
	require.NoError(t, err)
	assert.Equal(t, 300, report.Kept)

	for _, rec := range derived.Records {
		premium, ok := rec.Get(policy.ColTotalPremium).Float64()
		require.True(t, ok)
		claims, ok := rec.Get(policy.ColTotalClaims).Float64()
		require.True(t, ok)

		margin, ok := rec.Get(policy.ColMargin).Float64()
		require.True(t, ok)
		assert.InDelta(t, premium-claims, margin, 1e-9)

		hasClaim, ok := rec.Get(policy.ColHasClaim).Bool()
		require.True(t, ok)
		assert.Equal(t, claims > 0, hasClaim)

		severity := rec.Get(policy.ColClaimSeverity)
		if hasClaim {
			s, ok := severity.Float64()
			require.True(t, ok)
			assert.Equal(t, claims, s)
		} else {
			assert.True(t, severity.IsMissing())
		}
	}
}

func TestDerive_DropsIncompleteRows(t *testing.T) {
	tbl := fixture()
	derived, report, err := NewDeriver(nil).Derive(tbl)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Kept)
	assert.Equal(t, 2, report.Dropped)
	assert.Equal(t, 1, report.DroppedBy[policy.ColTotalPremium])
	assert.Equal(t, 1, report.DroppedBy[policy.ColTotalClaims])
	assert.True(t, derived.HasColumn(policy.ColMargin))

	// The source table is untouched.
	assert.Equal(t, 6, tbl.Len())
	assert.True(t, tbl.Records[0].Get(policy.ColMargin).IsMissing())
}

func TestClean_FeatureRequired(t *testing.T) {
	cleaned, report, err := NewDeriver(nil).Clean(fixture(), policy.ColGender)
	require.NoError(t, err)
	assert.Equal(t, 3, cleaned.Len())
	assert.Equal(t, 1, report.DroppedBy[policy.ColGender])

	_, _, err = NewDeriver(nil).Clean(fixture(), policy.ColProvince)
	assert.True(t, errors.Is(err, core.ErrUnknownColumn))
}

func TestClaimFrequencyAndLossRatio(t *testing.T) {
	derived, _, err := NewDeriver(nil).Derive(fixture())
	require.NoError(t, err)

	// claims: 0, 250, 0, 0.5
	assert.InDelta(t, 0.5, ClaimFrequency(derived.Records), 1e-12)
	assert.InDelta(t, 250.5/230.0, LossRatio(derived.Records), 1e-12)

	assert.True(t, math.IsNaN(ClaimFrequency(nil)))
	assert.True(t, math.IsNaN(LossRatio(nil)))
}

func TestDerive_Deterministic(t *testing.T) {
	cfg := testkit.DefaultPolicyConfig()
	cfg.Policies = 100
	a, _, err := NewDeriver(nil).Derive(testkit.NewPolicyGenerator(cfg).Table(policy.DefaultSchema()))
	require.NoError(t, err)
	b, _, err := NewDeriver(nil).Derive(testkit.NewPolicyGenerator(cfg).Table(policy.DefaultSchema()))
	require.NoError(t, err)

	require.Equal(t, a.Len(), b.Len())
	for i := range a.Records {
		for _, col := range []string{policy.ColHasClaim, policy.ColClaimSeverity, policy.ColMargin} {
			assert.True(t, a.Records[i].Get(col).Equal(b.Records[i].Get(col)))
		}
	}
}

func TestDerive_DeclaresDerivedTypes(t *testing.T) {
	schema := policy.Schema{Columns: map[string]policy.ColumnType{
		policy.ColTotalPremium: policy.ColumnNumeric,
		policy.ColTotalClaims:  policy.ColumnNumeric,
	}}
	tbl := testkit.BuildTable(schema, []string{policy.ColTotalPremium, policy.ColTotalClaims}, [][]string{{"10", "5"}})

	out, _, err := NewDeriver(nil).Derive(tbl)
	require.NoError(t, err)
	assert.Equal(t, policy.ColumnBoolean, out.TypeOf(policy.ColHasClaim))
	assert.Equal(t, policy.ColumnNumeric, out.TypeOf(policy.ColClaimSeverity))
	assert.Equal(t, policy.ColumnNumeric, out.TypeOf(policy.ColMargin))
	// source schema untouched
	assert.Equal(t, policy.ColumnCategorical, tbl.TypeOf(policy.ColMargin))
}

func TestDerive_RejectsUndeclaredAmounts(t *testing.T) {
	schema := policy.Schema{Columns: map[string]policy.ColumnType{policy.ColCrossBorder: policy.ColumnBoolean}}
	tbl := testkit.BuildTable(schema, headers, [][]string{
		{"Male", "100", "250"},
		{"Female", "50", "0"},
	})

	_, _, err := NewDeriver(nil).Derive(tbl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMetricType))
	assert.Contains(t, err.Error(), policy.ColTotalPremium)

	schema.Columns[policy.ColTotalPremium] = policy.ColumnNumeric
	_, _, err = NewDeriver(nil).Derive(testkit.BuildTable(schema, headers, [][]string{{"Male", "100", "250"}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), policy.ColTotalClaims)
}
