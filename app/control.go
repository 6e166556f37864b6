package app

import (
	"claimstat/domain/policy"
	"claimstat/internal/profiling"
	"claimstat/internal/segment"
)

// ControlSegment is the normalized distribution of the control column
// inside one feature segment
type ControlSegment struct {
	Key    string                `json:"key"`
	N      int                   `json:"n"`
	Shares []profiling.Frequency `json:"shares"`
}

// ControlReport compares a control column across feature segments, so a
// difference found by a test can be checked for confounding.
type ControlReport struct {
	Feature  string           `json:"feature"`
	Control  string           `json:"control"`
	Segments []ControlSegment `json:"segments"`
}

// ControlCheck returns the value shares of control within each segment of feature
func ControlCheck(tbl *policy.Table, feature, control string) (*ControlReport, error) {
	p, err := segment.By(tbl, feature)
	if err != nil {
		return nil, err
	}
	col, err := tbl.Column(control)
	if err != nil {
		return nil, err
	}

	report := &ControlReport{Feature: p.Feature, Control: col}
	for _, s := range p.Segments {
		report.Segments = append(report.Segments, ControlSegment{
			Key:    s.Key,
			N:      s.Size(),
			Shares: profiling.ValueCounts(p.Records(s), col, true),
		})
	}
	return report, nil
}

// Share returns the share of level within segment key, zero when absent
func (r *ControlReport) Share(key, level string) float64 {
	for _, s := range r.Segments {
		if s.Key != key {
			continue
		}
		for _, f := range s.Shares {
			if f.Level == level {
				return f.Count
			}
		}
	}
	return 0
}
