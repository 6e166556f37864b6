package significance

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"claimstat/domain/core"
)

// ContingencyTable holds observed counts with rows by feature segment and
// columns by outcome level.
type ContingencyTable struct {
	Rows   []string    `json:"rows"`
	Cols   []string    `json:"cols"`
	Counts [][]float64 `json:"counts"`
}

// CrossTab counts paired observations. rows[i] and cols[i] belong to the
// same record; labels are sorted.
func CrossTab(rows, cols []string) *ContingencyTable {
	ri := indexLabels(rows)
	ci := indexLabels(cols)

	ct := &ContingencyTable{
		Rows:   sortedKeys(ri),
		Cols:   sortedKeys(ci),
		Counts: make([][]float64, len(ri)),
	}
	for i := range ct.Counts {
		ct.Counts[i] = make([]float64, len(ci))
	}
	for i := 0; i < len(rows) && i < len(cols); i++ {
		ct.Counts[ri[rows[i]]][ci[cols[i]]]++
	}
	return ct
}

func indexLabels(labels []string) map[string]int {
	set := make(map[string]int)
	for _, l := range labels {
		set[l] = 0
	}
	for i, k := range sortedKeys(set) {
		set[k] = i
	}
	return set
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Total is the grand total of observed counts
func (t *ContingencyTable) Total() float64 {
	var n float64
	for _, row := range t.Counts {
		for _, c := range row {
			n += c
		}
	}
	return n
}

// ChiSquareResult is the outcome of a chi-squared test of independence
type ChiSquareResult struct {
	Statistic float64     `json:"statistic"`
	PValue    float64     `json:"p_value"`
	DF        int         `json:"df"`
	Expected  [][]float64 `json:"expected"`
	N         float64     `json:"n"`
	Corrected bool        `json:"yates_corrected"`
	CramersV  float64     `json:"cramers_v"`
}

// ChiSquareIndependence tests whether row and column classifications are
// independent. With yates set, the continuity correction is applied to
// 2x2 tables (one degree of freedom).
func ChiSquareIndependence(t *ContingencyTable, yates bool) (ChiSquareResult, error) {
	if t == nil || len(t.Counts) < 2 {
		n := 0
		if t != nil {
			n = len(t.Counts)
		}
		return ChiSquareResult{}, precondition(MethodChiSquare, core.ErrInsufficientGroups, "need at least 2 segments, got %d", n)
	}
	nCols := len(t.Counts[0])
	if nCols < 2 {
		return ChiSquareResult{}, precondition(MethodChiSquare, core.ErrInsufficientCategories, "need at least 2 outcome levels, got %d", nCols)
	}

	rowTotals := make([]float64, len(t.Counts))
	colTotals := make([]float64, nCols)
	var n float64
	for i, row := range t.Counts {
		if len(row) != nCols {
			return ChiSquareResult{}, precondition(MethodChiSquare, core.ErrInsufficientData, "ragged table at row %d", i)
		}
		for j, c := range row {
			rowTotals[i] += c
			colTotals[j] += c
			n += c
		}
	}
	if n == 0 {
		return ChiSquareResult{}, precondition(MethodChiSquare, core.ErrEmptyGroup, "table has no observations")
	}
	for i, rt := range rowTotals {
		if rt == 0 {
			return ChiSquareResult{}, precondition(MethodChiSquare, core.ErrEmptyGroup, "segment %d has no observations", i)
		}
	}
	for _, ct := range colTotals {
		if ct == 0 {
			return ChiSquareResult{}, errDegenerate(MethodChiSquare, "an outcome level has no observations")
		}
	}

	df := (len(t.Counts) - 1) * (nCols - 1)
	correct := yates && df == 1

	expected := make([][]float64, len(t.Counts))
	var chi2 float64
	for i, row := range t.Counts {
		expected[i] = make([]float64, nCols)
		for j, obs := range row {
			e := rowTotals[i] * colTotals[j] / n
			expected[i][j] = e
			diff := math.Abs(obs - e)
			if correct {
				diff -= math.Min(0.5, diff)
			}
			chi2 += diff * diff / e
		}
	}

	dist := distuv.ChiSquared{K: float64(df)}
	res := ChiSquareResult{
		Statistic: chi2,
		PValue:    clampP(dist.Survival(chi2)),
		DF:        df,
		Expected:  expected,
		N:         n,
		Corrected: correct,
	}
	if k := math.Min(float64(len(t.Counts)-1), float64(nCols-1)); k > 0 {
		res.CramersV = math.Sqrt(chi2 / (n * k))
	}
	return res, nil
}
