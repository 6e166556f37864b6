// Package profiling computes the descriptive summaries used to explore a
// policy table before testing: moments, missingness, structure, value
// counts, correlation and grouped totals.
package profiling

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"claimstat/domain/core"
	"claimstat/domain/policy"
)

// ColumnStats summarizes one numeric column
type ColumnStats struct {
	Column   string  `json:"column"`
	Count    int     `json:"count"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Std      float64 `json:"std"`
	Skew     float64 `json:"skew"`
	Kurtosis float64 `json:"kurtosis"` // excess
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Outliers int     `json:"outliers"` // outside 1.5 IQR fences
}

// Describe summarizes the given numeric columns, or every numeric column
// when none are named. Statistics that need more values than the column
// has are NaN.
func Describe(t *policy.Table, columns ...string) ([]ColumnStats, error) {
	cols, err := numericColumns(t, columns)
	if err != nil {
		return nil, err
	}

	out := make([]ColumnStats, 0, len(cols))
	for _, col := range cols {
		cs, err := describeColumn(col, NumericValues(t.Records, col))
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", col, err)
		}
		out = append(out, cs)
	}
	return out, nil
}

// NumericValues returns the present numeric values of column
func NumericValues(records []policy.Record, column string) []float64 {
	out := make([]float64, 0, len(records))
	for _, rec := range records {
		if f, ok := rec.Get(column).Float64(); ok {
			out = append(out, f)
		}
	}
	return out
}

func numericColumns(t *policy.Table, requested []string) ([]string, error) {
	if len(requested) == 0 {
		var cols []string
		for _, h := range t.Headers {
			if t.TypeOf(h) == policy.ColumnNumeric {
				cols = append(cols, h)
			}
		}
		return cols, nil
	}

	cols := make([]string, 0, len(requested))
	for _, name := range requested {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		if typ := t.TypeOf(col); typ != policy.ColumnNumeric && typ != policy.ColumnBoolean {
			return nil, fmt.Errorf("%w: %s is %s", core.ErrMetricType, col, typ)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func describeColumn(col string, data []float64) (ColumnStats, error) {
	nan := math.NaN()
	cs := ColumnStats{
		Column: col, Count: len(data),
		Min: nan, Max: nan, Mean: nan, Median: nan, Std: nan, Skew: nan, Kurtosis: nan, Q25: nan, Q75: nan,
	}
	if len(data) == 0 {
		return cs, nil
	}

	var err error
	if cs.Min, err = stats.Min(data); err != nil {
		return cs, err
	}
	if cs.Max, err = stats.Max(data); err != nil {
		return cs, err
	}
	if cs.Mean, err = stats.Mean(data); err != nil {
		return cs, err
	}
	if cs.Median, err = stats.Median(data); err != nil {
		return cs, err
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	cs.Q25 = quantile(sorted, 0.25)
	cs.Q75 = quantile(sorted, 0.75)
	if len(data) > 1 {
		if cs.Std, err = stats.StandardDeviationSample(data); err != nil {
			return cs, err
		}
	}

	cs.Skew = skewness(data, cs.Mean)
	cs.Kurtosis = excessKurtosis(data, cs.Mean)
	cs.Outliers = countOutliers(data, cs.Q25, cs.Q75)
	return cs, nil
}

// skewness is the adjusted Fisher-Pearson coefficient G1. Zero for a
// constant column, NaN below three values.
func skewness(data []float64, mean float64) float64 {
	n := float64(len(data))
	if n < 3 {
		return math.NaN()
	}
	var m2, m3 float64
	for _, x := range data {
		d := x - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	g1 := m3 / math.Pow(m2, 1.5)
	return g1 * math.Sqrt(n*(n-1)) / (n - 2)
}

// excessKurtosis is the bias-corrected sample excess kurtosis G2. Zero for
// a constant column, NaN below four values.
func excessKurtosis(data []float64, mean float64) float64 {
	n := float64(len(data))
	if n < 4 {
		return math.NaN()
	}
	var s2, s4 float64
	for _, x := range data {
		d := x - mean
		s2 += d * d
		s4 += d * d * d * d
	}
	if s2 == 0 {
		return 0
	}
	adj := 3 * (n - 1) * (n - 1) / ((n - 2) * (n - 3))
	return n*(n+1)*(n-1)*s4/((n-2)*(n-3)*s2*s2) - adj
}

// quantile interpolates linearly between the order statistics around
// position (n-1)p, the default of numpy and pandas. sorted must be ascending.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

func countOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lower := q25 - 1.5*iqr
	upper := q75 + 1.5*iqr

	n := 0
	for _, x := range data {
		if x < lower || x > upper {
			n++
		}
	}
	return n
}
