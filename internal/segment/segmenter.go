// Package segment partitions a policy table by one categorical feature.
package segment

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"claimstat/domain/policy"
	"claimstat/internal/metrics"
)

// Segment is the set of records sharing one feature value
type Segment struct {
	Key     string `json:"key"`
	Indexes []int  `json:"indexes"` // positions in Partition.Table.Records
}

// Size returns the number of records in the segment
func (s Segment) Size() int {
	return len(s.Indexes)
}

// Partition is a disjoint grouping of a table's records
type Partition struct {
	Feature  string    `json:"feature"`
	Segments []Segment `json:"segments"`
	// Excluded counts records whose feature value is missing.
	Excluded int `json:"excluded"`
	// Dropped lists segments removed by WithMinSize.
	Dropped []Segment `json:"dropped,omitempty"`

	Table *policy.Table `json:"-"`
}

// By groups records by the non-missing value of feature. Segments are
// ordered by key so repeated runs give identical assignments.
func By(t *policy.Table, feature string) (*Partition, error) {
	col, err := t.Column(feature)
	if err != nil {
		return nil, err
	}

	byKey := map[string][]int{}
	p := &Partition{Feature: col, Table: t}
	for i, rec := range t.Records {
		v := rec.Get(col)
		if v.IsMissing() {
			p.Excluded++
			continue
		}
		key := v.String()
		byKey[key] = append(byKey[key], i)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p.Segments = make([]Segment, 0, len(keys))
	for _, k := range keys {
		p.Segments = append(p.Segments, Segment{Key: k, Indexes: byKey[k]})
	}
	return p, nil
}

// WithMinSize returns a copy without segments smaller than n
func (p *Partition) WithMinSize(n int) *Partition {
	out := &Partition{Feature: p.Feature, Excluded: p.Excluded, Table: p.Table}
	out.Dropped = append(out.Dropped, p.Dropped...)
	for _, s := range p.Segments {
		if s.Size() < n {
			out.Dropped = append(out.Dropped, s)
			continue
		}
		out.Segments = append(out.Segments, s)
	}
	return out
}

// Keys returns the segment keys in order
func (p *Partition) Keys() []string {
	keys := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		keys[i] = s.Key
	}
	return keys
}

// Records returns the records of one segment
func (p *Partition) Records(s Segment) []policy.Record {
	return p.Table.Subset(s.Indexes)
}

// Values returns the numeric values of column within a segment, skipping
// missing cells. Booleans count as 0/1.
func (p *Partition) Values(s Segment, column string) []float64 {
	out := make([]float64, 0, len(s.Indexes))
	for _, i := range s.Indexes {
		if f, ok := p.Table.Records[i].Get(column).Float64(); ok {
			out = append(out, f)
		}
	}
	return out
}

// Labels returns the string values of column within a segment, skipping missing cells
func (p *Partition) Labels(s Segment, column string) []string {
	out := make([]string, 0, len(s.Indexes))
	for _, i := range s.Indexes {
		v := p.Table.Records[i].Get(column)
		if !v.IsMissing() {
			out = append(out, v.String())
		}
	}
	return out
}

// Summary describes one segment's claim experience
type Summary struct {
	Key            string  `json:"key"`
	N              int     `json:"n"`
	ClaimFrequency float64 `json:"claim_frequency"`
	MeanSeverity   float64 `json:"mean_severity"`
	MeanMargin     float64 `json:"mean_margin"`
	MeanPremium    float64 `json:"mean_premium"`
	LossRatio      float64 `json:"loss_ratio"`
}

// Summarize computes per-segment claim metrics on a derived table. Means
// over empty inputs are NaN.
func Summarize(p *Partition) []Summary {
	out := make([]Summary, 0, len(p.Segments))
	for _, s := range p.Segments {
		recs := p.Records(s)
		out = append(out, Summary{
			Key:            s.Key,
			N:              s.Size(),
			ClaimFrequency: metrics.ClaimFrequency(recs),
			MeanSeverity:   mean(p.Values(s, policy.ColClaimSeverity)),
			MeanMargin:     mean(p.Values(s, policy.ColMargin)),
			MeanPremium:    mean(p.Values(s, policy.ColTotalPremium)),
			LossRatio:      metrics.LossRatio(recs),
		})
	}
	return out
}

func mean(xs []float64) float64 {
	m, err := stats.Mean(xs)
	if err != nil {
		return math.NaN()
	}
	return m
}
