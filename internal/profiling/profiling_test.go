package profiling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimstat/domain/core"
	"claimstat/domain/policy"
	"claimstat/internal/testkit"
)

var sampleHeaders = []string{
	policy.ColTransactionMonth, policy.ColProvince, policy.ColCoverType, policy.ColMake,
	policy.ColTotalPremium, policy.ColTotalClaims,
}

func sampleTable() *policy.Table {
	return testkit.BuildTable(policy.DefaultSchema(), sampleHeaders, [][]string{
		{"2015-01-01 00:00:00", "Gauteng", "Own Damage", "TOYOTA", "100", "0"},
		{"2015-01-01 00:00:00", "Gauteng", "Own Damage", "NISSAN", "200", "50"},
		{"2015-02-01 00:00:00", "Gauteng", "Windscreen", "TOYOTA", "300", ""},
		{"2015-01-01 00:00:00", "Western Cape", "Windscreen", "TOYOTA", "400", "100"},
		{"", "Western Cape", "", "NISSAN", "500", "0"},
	})
}

func TestDescribe_KnownMoments(t *testing.T) {
	tbl := testkit.BuildTable(policy.DefaultSchema(), []string{policy.ColTotalPremium, policy.ColTotalClaims}, [][]string{
		{"1", "1"}, {"2", "2"}, {"3", "3"}, {"4", "10"}, {"5", ""},
	})

	got, err := Describe(tbl)
	require.NoError(t, err)
	require.Len(t, got, 2)

	prem := got[0]
	assert.Equal(t, policy.ColTotalPremium, prem.Column)
	assert.Equal(t, 5, prem.Count)
	assert.Equal(t, 1.0, prem.Min)
	assert.Equal(t, 5.0, prem.Max)
	assert.Equal(t, 3.0, prem.Mean)
	assert.Equal(t, 3.0, prem.Median)
	assert.InDelta(t, math.Sqrt(2.5), prem.Std, 1e-12)
	assert.InDelta(t, 0.0, prem.Skew, 1e-12)
	assert.InDelta(t, -1.2, prem.Kurtosis, 1e-12)

	claims := got[1]
	assert.Equal(t, 4, claims.Count)
	assert.InDelta(t, 1.763632, claims.Skew, 1e-5)
}

func TestDescribe_NamedColumnsAndErrors(t *testing.T) {
	tbl := sampleTable()

	got, err := Describe(tbl, policy.ColTotalClaims)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Count)

	_, err = Describe(tbl, policy.ColProvince)
	assert.ErrorIs(t, err, core.ErrMetricType)

	_, err = Describe(tbl, "NoSuchColumn")
	assert.ErrorIs(t, err, core.ErrUnknownColumn)
}

func TestDescribe_SmallSamples(t *testing.T) {
	tbl := testkit.BuildTable(policy.DefaultSchema(), []string{policy.ColTotalPremium}, [][]string{{"7"}, {""}})
	got, err := Describe(tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, got[0].Count)
	assert.Equal(t, 7.0, got[0].Mean)
	assert.True(t, math.IsNaN(got[0].Std))
	assert.True(t, math.IsNaN(got[0].Skew))
	assert.True(t, math.IsNaN(got[0].Kurtosis))
	assert.Equal(t, 7.0, got[0].Q25)
	assert.Equal(t, 7.0, got[0].Q75)
}

func TestDescribe_Outliers(t *testing.T) {
	rows := [][]string{}
	for _, v := range []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "100"} {
		rows = append(rows, []string{v})
	}
	got, err := Describe(testkit.BuildTable(policy.DefaultSchema(), []string{policy.ColTotalPremium}, rows))
	require.NoError(t, err)
	assert.Equal(t, 1, got[0].Outliers)
	assert.InDelta(t, 3.25, got[0].Q25, 1e-12)
	assert.InDelta(t, 7.75, got[0].Q75, 1e-12)
}

func TestQuantile_LinearInterpolation(t *testing.T) {
	// pandas: pd.Series([1, 2, 3, 4]).quantile([.25, .5, .75]) -> 1.75, 2.5, 3.25
	sorted := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, quantile(sorted, 0.25), 1e-12)
	assert.InDelta(t, 2.5, quantile(sorted, 0.5), 1e-12)
	assert.InDelta(t, 3.25, quantile(sorted, 0.75), 1e-12)
	assert.Equal(t, 4.0, quantile(sorted, 1))
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
}

func TestMissingSummary(t *testing.T) {
	got := MissingSummary(sampleTable())
	require.Len(t, got, 3)
	// equal counts keep header order
	assert.Equal(t, []MissingColumn{
		{Column: policy.ColTransactionMonth, Missing: 1, Percent: 20},
		{Column: policy.ColCoverType, Missing: 1, Percent: 20},
		{Column: policy.ColTotalClaims, Missing: 1, Percent: 20},
	}, got)
}

func TestStructure(t *testing.T) {
	got := Structure(sampleTable())
	require.Len(t, got, len(sampleHeaders))

	byCol := map[string]ColumnInfo{}
	for _, c := range got {
		byCol[c.Column] = c
	}
	prov := byCol[policy.ColProvince]
	assert.Equal(t, policy.ColumnCategorical, prov.Type)
	assert.Equal(t, 2, prov.Unique)
	assert.Equal(t, []string{"Gauteng", "Western Cape"}, prov.Levels)

	prem := byCol[policy.ColTotalPremium]
	assert.Equal(t, policy.ColumnNumeric, prem.Type)
	assert.Equal(t, 5, prem.Unique)
	assert.Nil(t, prem.Levels)

	assert.Equal(t, 1, byCol[policy.ColCoverType].Missing)
}

func TestValueCountsAndMode(t *testing.T) {
	recs := sampleTable().Records

	counts := ValueCounts(recs, policy.ColMake, false)
	assert.Equal(t, []Frequency{{"TOYOTA", 3}, {"NISSAN", 2}}, counts)

	shares := ValueCounts(recs, policy.ColCoverType, true)
	assert.Equal(t, []Frequency{{"Own Damage", 0.5}, {"Windscreen", 0.5}}, shares)

	mode, ok := Mode(recs, policy.ColCoverType)
	assert.True(t, ok)
	assert.Equal(t, "Own Damage", mode)

	_, ok = Mode(nil, policy.ColCoverType)
	assert.False(t, ok)
}

func TestCorrelation(t *testing.T) {
	tbl := testkit.BuildTable(policy.DefaultSchema(), []string{policy.ColTotalPremium, policy.ColTotalClaims}, [][]string{
		{"1", "2"}, {"2", "4"}, {"3", "6"}, {"4", ""}, {"5", "10"},
	})
	r, n, err := Correlation(tbl, policy.ColTotalPremium, policy.ColTotalClaims)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.InDelta(t, 1.0, r, 1e-12)

	flat := testkit.BuildTable(policy.DefaultSchema(), []string{policy.ColTotalPremium, policy.ColTotalClaims}, [][]string{
		{"1", "0"}, {"2", "0"}, {"3", "0"},
	})
	_, _, err = Correlation(flat, policy.ColTotalPremium, policy.ColTotalClaims)
	assert.ErrorIs(t, err, core.ErrDegenerateSample)
}

func TestMonthlyTotals(t *testing.T) {
	got, err := MonthlyTotals(sampleTable(), policy.ColTransactionMonth, policy.ColProvince)
	require.NoError(t, err)
	assert.Equal(t, []MonthlyTotal{
		{Month: "2015-01", Group: "Gauteng", Premium: 300, Claims: 50, N: 2},
		{Month: "2015-01", Group: "Western Cape", Premium: 400, Claims: 100, N: 1},
		{Month: "2015-02", Group: "Gauteng", Premium: 300, Claims: 0, N: 1},
	}, got)

	_, err = MonthlyTotals(sampleTable(), policy.ColProvince, policy.ColProvince)
	assert.ErrorIs(t, err, core.ErrMetricType)
}

func TestGroupProfile(t *testing.T) {
	got, err := GroupProfile(sampleTable(), policy.ColProvince, policy.ColTotalPremium, policy.ColCoverType, policy.ColMake)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Gauteng", got[0].Group)
	assert.Equal(t, 3, got[0].N)
	assert.Equal(t, 200.0, got[0].Mean)
	assert.Equal(t, map[string]string{policy.ColCoverType: "Own Damage", policy.ColMake: "TOYOTA"}, got[0].Modes)

	assert.Equal(t, "Western Cape", got[1].Group)
	assert.Equal(t, 450.0, got[1].Mean)
	assert.Equal(t, "NISSAN", got[1].Modes[policy.ColMake])
	assert.Equal(t, "Windscreen", got[1].Modes[policy.ColCoverType])
}
