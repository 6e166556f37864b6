package significance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimstat/domain/core"
)

func TestChiSquareIndependence_TwoByTwo(t *testing.T) {
	ct := &ContingencyTable{
		Rows:   []string{"a", "b"},
		Cols:   []string{"false", "true"},
		Counts: [][]float64{{10, 20}, {30, 40}},
	}

	corrected, err := ChiSquareIndependence(ct, true)
	require.NoError(t, err)
	assert.True(t, corrected.Corrected)
	assert.Equal(t, 1, corrected.DF)
	assert.InDelta(t, 0.4464285714285714, corrected.Statistic, 1e-12)
	assert.InDelta(t, 0.504, corrected.PValue, 1e-3)
	assert.Equal(t, [][]float64{{12, 18}, {28, 42}}, corrected.Expected)
	assert.Equal(t, 100.0, corrected.N)

	raw, err := ChiSquareIndependence(ct, false)
	require.NoError(t, err)
	assert.False(t, raw.Corrected)
	assert.InDelta(t, 4.0/12+4.0/18+4.0/28+4.0/42, raw.Statistic, 1e-12)
	assert.Less(t, raw.PValue, corrected.PValue)
}

func TestChiSquareIndependence_LargerTableIgnoresYates(t *testing.T) {
	ct := &ContingencyTable{
		Rows:   []string{"a", "b", "c"},
		Cols:   []string{"false", "true"},
		Counts: [][]float64{{10, 20}, {20, 20}, {30, 10}},
	}
	res, err := ChiSquareIndependence(ct, true)
	require.NoError(t, err)
	assert.False(t, res.Corrected)
	assert.Equal(t, 2, res.DF)

	rowT := []float64{30, 40, 40}
	colT := []float64{60, 50}
	var want float64
	for i := range ct.Counts {
		for j, o := range ct.Counts[i] {
			e := rowT[i] * colT[j] / 110
			want += (o - e) * (o - e) / e
		}
	}
	assert.InDelta(t, want, res.Statistic, 1e-12)
	// survival of chi2 with 2 dof is exp(-x/2)
	assert.InDelta(t, math.Exp(-want/2), res.PValue, 1e-9)
	assert.Equal(t, Reject, Decide(res.PValue, DefaultAlpha))
}

func TestChiSquareIndependence_Independent(t *testing.T) {
	ct := &ContingencyTable{Counts: [][]float64{{25, 75}, {50, 150}}}
	res, err := ChiSquareIndependence(ct, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.Statistic, 1e-12)
	assert.InDelta(t, 1.0, res.PValue, 1e-12)
	assert.InDelta(t, 0.0, res.CramersV, 1e-12)
}

func TestChiSquareIndependence_Preconditions(t *testing.T) {
	_, err := ChiSquareIndependence(&ContingencyTable{Counts: [][]float64{{1, 2}}}, true)
	assert.ErrorIs(t, err, core.ErrInsufficientGroups)

	_, err = ChiSquareIndependence(&ContingencyTable{Counts: [][]float64{{1}, {2}}}, true)
	assert.ErrorIs(t, err, core.ErrInsufficientCategories)

	_, err = ChiSquareIndependence(&ContingencyTable{Counts: [][]float64{{0, 0}, {3, 4}}}, true)
	assert.ErrorIs(t, err, core.ErrEmptyGroup)

	_, err = ChiSquareIndependence(nil, true)
	assert.ErrorIs(t, err, core.ErrInsufficientGroups)
}

func TestCrossTab(t *testing.T) {
	ct := CrossTab(
		[]string{"M", "F", "M", "F", "M"},
		[]string{"true", "false", "false", "false", "true"},
	)
	assert.Equal(t, []string{"F", "M"}, ct.Rows)
	assert.Equal(t, []string{"false", "true"}, ct.Cols)
	assert.Equal(t, [][]float64{{2, 0}, {1, 2}}, ct.Counts)
	assert.Equal(t, 5.0, ct.Total())
}
