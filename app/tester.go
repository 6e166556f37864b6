package app

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"claimstat/adapters/stats/significance"
	"claimstat/domain/core"
	"claimstat/domain/policy"
	"claimstat/internal/logging"
	"claimstat/internal/segment"
)

// DefaultMinGroupSize is the smallest segment kept for ANOVA
const DefaultMinGroupSize = 30

// TesterConfig holds the decision policy of a Tester
type TesterConfig struct {
	Alpha        float64 `json:"alpha"`
	MinGroupSize int     `json:"min_group_size"`
	Yates        bool    `json:"yates_correction"`
}

// DefaultTesterConfig returns alpha 0.05, groups of 30 and Yates correction on
func DefaultTesterConfig() TesterConfig {
	return TesterConfig{
		Alpha:        significance.DefaultAlpha,
		MinGroupSize: DefaultMinGroupSize,
		Yates:        true,
	}
}

// Request names one hypothesis: does Metric differ across Feature segments?
type Request struct {
	Name    string              `json:"name,omitempty" yaml:"name"`
	Feature string              `json:"feature" yaml:"feature"`
	Metric  string              `json:"metric" yaml:"metric"`
	Method  significance.Method `json:"method" yaml:"method"`
	// Segments restricts the comparison to these feature values.
	Segments []string `json:"segments,omitempty" yaml:"segments"`
}

// Label is Name when set, otherwise "Metric by Feature"
func (r Request) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("%s by %s", r.Metric, r.Feature)
}

// GroupStat is the usable size and metric mean of one segment. Mean is
// nil for non-numeric metrics.
type GroupStat struct {
	Key  string   `json:"key"`
	N    int      `json:"n"`
	Mean *float64 `json:"mean,omitempty"`
}

// Result is the outcome of one hypothesis test
type Result struct {
	Name       string                         `json:"name,omitempty"`
	Feature    string                         `json:"feature"`
	Metric     string                         `json:"metric"`
	Method     significance.Method            `json:"method"`
	Statistic  float64                        `json:"statistic"`
	PValue     float64                        `json:"p_value"`
	DF         float64                        `json:"df"`
	DF2        float64                        `json:"df2,omitempty"` // within-group df for ANOVA
	EffectSize float64                        `json:"effect_size"`   // Cohen's d, eta squared or Cramer's V
	Groups     []GroupStat                    `json:"groups"`
	Excluded   []string                       `json:"excluded,omitempty"`
	Missing    int                            `json:"missing"` // records without a feature value
	Alpha      float64                        `json:"alpha"`
	Decision   significance.Decision          `json:"decision"`
	Corrected  bool                           `json:"yates_corrected,omitempty"`
	Table      *significance.ContingencyTable `json:"contingency,omitempty"`
}

// Rejected reports whether the null hypothesis was rejected
func (r *Result) Rejected() bool {
	return r.Decision == significance.Reject
}

// Tester runs segmentation hypothesis tests on a derived policy table
type Tester struct {
	config TesterConfig
	logger *zap.Logger
}

// NewTester creates a tester; zero config fields fall back to the defaults
func NewTester(config TesterConfig, logger *zap.Logger) *Tester {
	def := DefaultTesterConfig()
	if config.Alpha <= 0 || config.Alpha >= 1 {
		config.Alpha = def.Alpha
	}
	if config.MinGroupSize <= 0 {
		config.MinGroupSize = def.MinGroupSize
	}
	return &Tester{config: config, logger: logging.OrNop(logger)}
}

// Config returns the tester's decision policy
func (t *Tester) Config() TesterConfig {
	return t.config
}

// Run partitions the table by the request's feature and tests whether the
// metric differs across segments. Preconditions that prevent a test are
// returned as errors wrapping the core sentinels, never as a verdict.
func (t *Tester) Run(tbl *policy.Table, req Request) (*Result, error) {
	feature, err := tbl.Column(req.Feature)
	if err != nil {
		return nil, err
	}
	metric, err := tbl.Column(req.Metric)
	if err != nil {
		return nil, err
	}
	metricType := tbl.TypeOf(metric)

	part, err := segment.By(tbl, feature)
	if err != nil {
		return nil, err
	}
	if len(req.Segments) > 0 {
		if part, err = selectSegments(part, req.Segments); err != nil {
			return nil, err
		}
	}

	method, err := resolveMethod(req.Method, metricType, len(part.Segments))
	if err != nil {
		return nil, err
	}

	res := &Result{
		Name:    req.Name,
		Feature: feature,
		Metric:  metric,
		Method:  method,
		Missing: part.Excluded,
		Alpha:   t.config.Alpha,
	}

	switch method {
	case significance.MethodWelch:
		err = t.welch(part, metric, metricType, res)
	case significance.MethodANOVA:
		err = t.anova(part, metric, metricType, res)
	case significance.MethodChiSquare:
		err = t.chiSquare(part, metric, metricType, res)
	}
	if err != nil {
		t.logger.Debug("test not run",
			zap.String("feature", feature),
			zap.String("metric", metric),
			zap.String("method", string(method)),
			zap.Error(err))
		return nil, err
	}

	res.Decision = significance.Decide(res.PValue, t.config.Alpha)
	t.logger.Info("hypothesis tested",
		zap.String("test", req.Label()),
		zap.String("method", string(method)),
		zap.Float64("statistic", res.Statistic),
		zap.Float64("p_value", res.PValue),
		zap.String("decision", string(res.Decision)),
		zap.Int("groups", len(res.Groups)))
	return res, nil
}

func resolveMethod(m significance.Method, metricType policy.ColumnType, groups int) (significance.Method, error) {
	if m == "" {
		m = significance.MethodAuto
	}
	if m != significance.MethodAuto {
		return significance.ParseMethod(string(m))
	}

	if metricType.IsCategorical() {
		return significance.MethodChiSquare, nil
	}
	switch {
	case groups < 2:
		return "", &significance.PreconditionError{
			Test:   significance.MethodAuto,
			Reason: core.ErrInsufficientGroups,
			Detail: fmt.Sprintf("feature has %d segment(s)", groups),
		}
	case groups == 2:
		return significance.MethodWelch, nil
	}
	return significance.MethodANOVA, nil
}

func selectSegments(p *segment.Partition, keys []string) (*segment.Partition, error) {
	index := make(map[string]segment.Segment, len(p.Segments))
	for _, s := range p.Segments {
		index[s.Key] = s
	}
	out := &segment.Partition{Feature: p.Feature, Excluded: p.Excluded, Table: p.Table}
	for _, k := range keys {
		s, ok := index[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no records with value %q", core.ErrEmptyGroup, p.Feature, k)
		}
		out.Segments = append(out.Segments, s)
	}
	return out, nil
}

func requireNumericMetric(method significance.Method, metric string, typ policy.ColumnType) error {
	if typ == policy.ColumnNumeric || typ == policy.ColumnBoolean {
		return nil
	}
	return fmt.Errorf("%s on %s: %w (%s)", method, metric, core.ErrMetricType, typ)
}

// groupValues extracts the metric per segment, failing on a segment with
// no usable values.
func groupValues(method significance.Method, p *segment.Partition, metric string) ([][]float64, []GroupStat, error) {
	values := make([][]float64, len(p.Segments))
	groups := make([]GroupStat, len(p.Segments))
	for i, s := range p.Segments {
		v := p.Values(s, metric)
		if len(v) == 0 {
			return nil, nil, &significance.PreconditionError{
				Test:   method,
				Reason: core.ErrEmptyGroup,
				Detail: fmt.Sprintf("segment %q has no %s values", s.Key, metric),
			}
		}
		values[i] = v
		groups[i] = GroupStat{Key: s.Key, N: len(v), Mean: meanOf(v)}
	}
	return values, groups, nil
}

func meanOf(v []float64) *float64 {
	m, err := stats.Mean(v)
	if err != nil || math.IsNaN(m) {
		return nil
	}
	return &m
}

func (t *Tester) welch(p *segment.Partition, metric string, typ policy.ColumnType, res *Result) error {
	if err := requireNumericMetric(significance.MethodWelch, metric, typ); err != nil {
		return err
	}
	switch n := len(p.Segments); {
	case n < 2:
		return &significance.PreconditionError{Test: significance.MethodWelch, Reason: core.ErrInsufficientGroups, Detail: fmt.Sprintf("%d segment(s)", n)}
	case n > 2:
		return &significance.PreconditionError{Test: significance.MethodWelch, Reason: core.ErrGroupCount, Detail: fmt.Sprintf("need exactly 2 segments, got %d", n)}
	}

	values, groups, err := groupValues(significance.MethodWelch, p, metric)
	if err != nil {
		return err
	}
	w, err := significance.WelchTTest(values[0], values[1])
	if err != nil {
		return err
	}
	res.Statistic = w.T
	res.PValue = w.PValue
	res.DF = w.DF
	res.EffectSize = w.CohensD
	res.Groups = groups
	return nil
}

func (t *Tester) anova(p *segment.Partition, metric string, typ policy.ColumnType, res *Result) error {
	if err := requireNumericMetric(significance.MethodANOVA, metric, typ); err != nil {
		return err
	}
	kept := p.WithMinSize(t.config.MinGroupSize)
	for _, s := range kept.Dropped {
		res.Excluded = append(res.Excluded, s.Key)
	}
	if len(kept.Segments) < 2 {
		return &significance.PreconditionError{
			Test:   significance.MethodANOVA,
			Reason: core.ErrInsufficientGroups,
			Detail: fmt.Sprintf("%d segment(s) with at least %d records", len(kept.Segments), t.config.MinGroupSize),
		}
	}

	values, groups, err := groupValues(significance.MethodANOVA, kept, metric)
	if err != nil {
		return err
	}
	a, err := significance.OneWayANOVA(values...)
	if err != nil {
		return err
	}
	res.Statistic = a.F
	res.PValue = a.PValue
	res.DF = float64(a.DFBetween)
	res.DF2 = float64(a.DFWithin)
	res.EffectSize = a.EtaSquared
	res.Groups = groups
	return nil
}

func (t *Tester) chiSquare(p *segment.Partition, metric string, typ policy.ColumnType, res *Result) error {
	if !typ.IsCategorical() {
		return fmt.Errorf("%s on %s: %w (%s)", significance.MethodChiSquare, metric, core.ErrMetricType, typ)
	}
	if len(p.Segments) < 2 {
		return &significance.PreconditionError{Test: significance.MethodChiSquare, Reason: core.ErrInsufficientGroups, Detail: fmt.Sprintf("%d segment(s)", len(p.Segments))}
	}

	var rows, cols []string
	groups := make([]GroupStat, len(p.Segments))
	for i, s := range p.Segments {
		labels := p.Labels(s, metric)
		if len(labels) == 0 {
			return &significance.PreconditionError{
				Test:   significance.MethodChiSquare,
				Reason: core.ErrEmptyGroup,
				Detail: fmt.Sprintf("segment %q has no %s values", s.Key, metric),
			}
		}
		for _, l := range labels {
			rows = append(rows, s.Key)
			cols = append(cols, l)
		}
		groups[i] = GroupStat{Key: s.Key, N: len(labels)}
		if typ == policy.ColumnBoolean {
			groups[i].Mean = meanOf(p.Values(s, metric))
		}
	}

	ct := significance.CrossTab(rows, cols)
	c, err := significance.ChiSquareIndependence(ct, t.config.Yates)
	if err != nil {
		return err
	}
	res.Statistic = c.Statistic
	res.PValue = c.PValue
	res.DF = float64(c.DF)
	res.EffectSize = c.CramersV
	res.Corrected = c.Corrected
	res.Groups = groups
	res.Table = ct
	return nil
}
