package profiling

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"claimstat/domain/core"
	"claimstat/domain/policy"
	"claimstat/internal/segment"
)

// Correlation is the Pearson correlation of two columns over the records
// where both are present. It returns the number of pairs used.
func Correlation(t *policy.Table, a, b string) (float64, int, error) {
	m, n, err := CorrelationMatrix(t, a, b)
	if err != nil {
		return math.NaN(), n, err
	}
	return m[0][1], n, nil
}

// CorrelationMatrix computes pairwise Pearson correlations over the
// records where every named column is present.
func CorrelationMatrix(t *policy.Table, columns ...string) ([][]float64, int, error) {
	cols, err := numericColumns(t, columns)
	if err != nil {
		return nil, 0, err
	}
	if len(cols) < 2 {
		return nil, 0, fmt.Errorf("%w: correlation needs two columns", core.ErrInsufficientData)
	}

	var data []float64
	rows := 0
	row := make([]float64, len(cols))
	for _, rec := range t.Records {
		complete := true
		for j, col := range cols {
			f, ok := rec.Get(col).Float64()
			if !ok {
				complete = false
				break
			}
			row[j] = f
		}
		if complete {
			data = append(data, row...)
			rows++
		}
	}
	if rows < 2 {
		return nil, rows, fmt.Errorf("%w: %d complete rows", core.ErrInsufficientData, rows)
	}

	x := mat.NewDense(rows, len(cols), data)
	for j, col := range cols {
		if stat.Variance(mat.Col(nil, j, x), nil) == 0 {
			return nil, rows, fmt.Errorf("%w: %s is constant", core.ErrDegenerateSample, col)
		}
	}

	var sym mat.SymDense
	stat.CorrelationMatrix(&sym, x, nil)
	out := make([][]float64, len(cols))
	for i := range out {
		out[i] = make([]float64, len(cols))
		for j := range out[i] {
			out[i][j] = sym.At(i, j)
		}
	}
	return out, rows, nil
}

// MonthlyTotal is premium and claims summed for one month and group
type MonthlyTotal struct {
	Month   string  `json:"month"` // YYYY-MM
	Group   string  `json:"group"`
	Premium float64 `json:"premium"`
	Claims  float64 `json:"claims"`
	N       int     `json:"n"`
}

// MonthlyTotals sums premium and claims per month of dateCol and value of
// groupCol. Records missing either key are skipped; missing amounts add
// nothing.
func MonthlyTotals(t *policy.Table, dateCol, groupCol string) ([]MonthlyTotal, error) {
	dc, err := t.Column(dateCol)
	if err != nil {
		return nil, err
	}
	gc, err := t.Column(groupCol)
	if err != nil {
		return nil, err
	}
	if t.TypeOf(dc) != policy.ColumnDate {
		return nil, fmt.Errorf("%w: %s is %s, want date", core.ErrMetricType, dc, t.TypeOf(dc))
	}

	type key struct{ month, group string }
	totals := map[key]*MonthlyTotal{}
	for _, rec := range t.Records {
		ts, ok := rec.Get(dc).Time()
		g := rec.Get(gc)
		if !ok || g.IsMissing() {
			continue
		}
		k := key{ts.Format("2006-01"), g.String()}
		mt, ok := totals[k]
		if !ok {
			mt = &MonthlyTotal{Month: k.month, Group: k.group}
			totals[k] = mt
		}
		mt.N++
		if p, ok := rec.Get(policy.ColTotalPremium).Float64(); ok {
			mt.Premium += p
		}
		if c, ok := rec.Get(policy.ColTotalClaims).Float64(); ok {
			mt.Claims += c
		}
	}

	out := make([]MonthlyTotal, 0, len(totals))
	for _, mt := range totals {
		out = append(out, *mt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Group < out[j].Group
	})
	return out, nil
}

// GroupRow is one group of a GroupProfile
type GroupRow struct {
	Group string            `json:"group"`
	N     int               `json:"n"`
	Mean  float64           `json:"mean"`
	Modes map[string]string `json:"modes"`
}

// GroupProfile reports, per value of by, the mean of meanCol and the mode
// of each of modeCols. A group without values has a NaN mean and no mode
// entry for that column.
func GroupProfile(t *policy.Table, by, meanCol string, modeCols ...string) ([]GroupRow, error) {
	p, err := segment.By(t, by)
	if err != nil {
		return nil, err
	}
	mc, err := t.Column(meanCol)
	if err != nil {
		return nil, err
	}
	resolved := make([]string, len(modeCols))
	for i, c := range modeCols {
		if resolved[i], err = t.Column(c); err != nil {
			return nil, err
		}
	}

	out := make([]GroupRow, 0, len(p.Segments))
	for _, s := range p.Segments {
		row := GroupRow{Group: s.Key, N: s.Size(), Mean: math.NaN(), Modes: map[string]string{}}
		if m, err := stats.Mean(p.Values(s, mc)); err == nil {
			row.Mean = m
		}
		recs := p.Records(s)
		for _, c := range resolved {
			if mode, ok := Mode(recs, c); ok {
				row.Modes[c] = mode
			}
		}
		out = append(out, row)
	}
	return out, nil
}
