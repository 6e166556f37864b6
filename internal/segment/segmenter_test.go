package segment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimstat/domain/core"
	"claimstat/domain/policy"
	"claimstat/internal/metrics"
	"claimstat/internal/testkit"
)

func derivedTable(t *testing.T, cfg testkit.PolicyGeneratorConfig) *policy.Table {
	t.Helper()
	tbl, _, err := metrics.NewDeriver(nil).Derive(testkit.NewPolicyGenerator(cfg).Table(policy.DefaultSchema()))
	require.NoError(t, err)
	return tbl
}

func TestBy_PartitionsExactly(t *testing.T) {
	cfg := testkit.DefaultPolicyConfig()
	cfg.MissingRate = 0.1
	tbl := derivedTable(t, cfg)

	p, err := By(tbl, policy.ColGender)
	require.NoError(t, err)
	assert.Equal(t, []string{"Female", "Male"}, p.Keys())
	assert.Greater(t, p.Excluded, 0)

	seen := map[int]bool{}
	total := 0
	for _, s := range p.Segments {
		for _, i := range s.Indexes {
			assert.False(t, seen[i], "record %d in two segments", i)
			seen[i] = true
			assert.Equal(t, s.Key, tbl.Records[i].Get(policy.ColGender).String())
		}
		total += s.Size()
	}
	assert.Equal(t, tbl.Len(), total+p.Excluded)

	// After dropping rows missing the feature nothing is excluded.
	cleaned, _, err := metrics.NewDeriver(nil).Clean(tbl, policy.ColGender)
	require.NoError(t, err)
	p2, err := By(cleaned, policy.ColGender)
	require.NoError(t, err)
	assert.Zero(t, p2.Excluded)
	assert.Equal(t, cleaned.Len(), p2.Segments[0].Size()+p2.Segments[1].Size())
}

func TestBy_Deterministic(t *testing.T) {
	cfg := testkit.DefaultPolicyConfig()
	a, err := By(derivedTable(t, cfg), policy.ColProvince)
	require.NoError(t, err)
	b, err := By(derivedTable(t, cfg), policy.ColProvince)
	require.NoError(t, err)
	assert.Equal(t, a.Segments, b.Segments)
}

func TestBy_AliasAndUnknownColumn(t *testing.T) {
	tbl := derivedTable(t, testkit.DefaultPolicyConfig())

	p, err := By(tbl, policy.ColZipCode)
	require.NoError(t, err)
	assert.Equal(t, policy.ColPostalCode, p.Feature)
	assert.Equal(t, []string{"2000", "4001", "7100"}, p.Keys())

	_, err = By(tbl, "Colour")
	assert.True(t, errors.Is(err, core.ErrUnknownColumn))
}

func TestWithMinSize(t *testing.T) {
	tbl := testkit.BuildTable(policy.DefaultSchema(),
		[]string{policy.ColPostalCode, policy.ColTotalPremium, policy.ColTotalClaims},
		[][]string{{"1", "1", "0"}, {"1", "1", "0"}, {"1", "1", "0"}, {"2", "1", "0"}})

	p, err := By(tbl, policy.ColPostalCode)
	require.NoError(t, err)

	filtered := p.WithMinSize(2)
	assert.Equal(t, []string{"1"}, filtered.Keys())
	require.Len(t, filtered.Dropped, 1)
	assert.Equal(t, "2", filtered.Dropped[0].Key)
	assert.Len(t, p.Segments, 2)
}

func TestSummarize(t *testing.T) {
	tbl := testkit.BuildTable(policy.DefaultSchema(),
		[]string{policy.ColGender, policy.ColTotalPremium, policy.ColTotalClaims},
		[][]string{{"A", "100", "0"}, {"A", "100", "300"}, {"B", "50", "0"}})
	derived, _, err := metrics.NewDeriver(nil).Derive(tbl)
	require.NoError(t, err)

	p, err := By(derived, policy.ColGender)
	require.NoError(t, err)
	sums := Summarize(p)
	require.Len(t, sums, 2)

	assert.Equal(t, "A", sums[0].Key)
	assert.Equal(t, 2, sums[0].N)
	assert.InDelta(t, 0.5, sums[0].ClaimFrequency, 1e-12)
	assert.InDelta(t, 300, sums[0].MeanSeverity, 1e-12)
	assert.InDelta(t, -50, sums[0].MeanMargin, 1e-12)
	assert.InDelta(t, 1.5, sums[0].LossRatio, 1e-12)

	assert.InDelta(t, 0, sums[1].ClaimFrequency, 1e-12)
	assert.True(t, sums[1].MeanSeverity != sums[1].MeanSeverity, "severity of a claim-free segment is NaN")
}
