package profiling

import (
	"sort"

	"claimstat/domain/policy"
)

// MaxLevels is the unique-count limit below which Structure lists levels
const MaxLevels = 20

// MissingColumn reports missing cells in one column
type MissingColumn struct {
	Column  string  `json:"column"`
	Missing int     `json:"missing"`
	Percent float64 `json:"percent"`
}

// MissingSummary lists columns with at least one missing cell, most
// missing first. Ties keep header order.
func MissingSummary(t *policy.Table) []MissingColumn {
	var out []MissingColumn
	total := t.Len()
	for _, col := range t.Headers {
		n := 0
		for _, rec := range t.Records {
			if rec.Get(col).IsMissing() {
				n++
			}
		}
		if n == 0 {
			continue
		}
		out = append(out, MissingColumn{
			Column:  col,
			Missing: n,
			Percent: 100 * float64(n) / float64(total),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Missing > out[j].Missing
	})
	return out
}

// ColumnInfo describes the declared type and cardinality of a column
type ColumnInfo struct {
	Column     string            `json:"column"`
	Type       policy.ColumnType `json:"type"`
	NonMissing int               `json:"non_missing"`
	Missing    int               `json:"missing"`
	Unique     int               `json:"unique"`
	// Levels is set for categorical columns with fewer than MaxLevels values.
	Levels []string `json:"levels,omitempty"`
}

// Structure reviews every column in header order
func Structure(t *policy.Table) []ColumnInfo {
	out := make([]ColumnInfo, 0, len(t.Headers))
	for _, col := range t.Headers {
		info := ColumnInfo{Column: col, Type: t.TypeOf(col)}
		seen := map[string]struct{}{}
		for _, rec := range t.Records {
			v := rec.Get(col)
			if v.IsMissing() {
				info.Missing++
				continue
			}
			info.NonMissing++
			seen[v.String()] = struct{}{}
		}
		info.Unique = len(seen)

		if info.Type.IsCategorical() && info.Unique < MaxLevels {
			info.Levels = make([]string, 0, len(seen))
			for l := range seen {
				info.Levels = append(info.Levels, l)
			}
			sort.Strings(info.Levels)
		}
		out = append(out, info)
	}
	return out
}

// Frequency is one level of a value count. Count is a share when normalized.
type Frequency struct {
	Level string  `json:"level"`
	Count float64 `json:"count"`
}

// ValueCounts counts the present values of column, most frequent first,
// ties by level. With normalize the counts sum to one.
func ValueCounts(records []policy.Record, column string, normalize bool) []Frequency {
	counts := map[string]int{}
	total := 0
	for _, rec := range records {
		v := rec.Get(column)
		if v.IsMissing() {
			continue
		}
		counts[v.String()]++
		total++
	}

	out := make([]Frequency, 0, len(counts))
	for level, n := range counts {
		c := float64(n)
		if normalize {
			c /= float64(total)
		}
		out = append(out, Frequency{Level: level, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Level < out[j].Level
	})
	return out
}

// Mode returns the most frequent present value of column; ties go to the
// smallest level.
func Mode(records []policy.Record, column string) (string, bool) {
	vc := ValueCounts(records, column, false)
	if len(vc) == 0 {
		return "", false
	}
	return vc[0].Level, true
}
