// Package metrics derives per-policy claim metrics and drops incomplete rows.
package metrics

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"claimstat/domain/core"
	"claimstat/domain/policy"
	"claimstat/internal/logging"
)

// CleanReport describes which records were dropped and why
type CleanReport struct {
	Kept    int `json:"kept"`
	Dropped int `json:"dropped"`
	// DroppedBy counts records missing each required column; a record
	// missing several columns counts once per column.
	DroppedBy map[string]int `json:"dropped_by"`
}

// Deriver computes HasClaim, ClaimSeverity and Margin
type Deriver struct {
	logger *zap.Logger
}

// NewDeriver creates a deriver; a nil logger is allowed
func NewDeriver(logger *zap.Logger) *Deriver {
	return &Deriver{logger: logging.OrNop(logger)}
}

// Clean returns a table without records that miss any required column.
// Rows are dropped, never imputed. Premium and claims are always required.
func (d *Deriver) Clean(t *policy.Table, required ...string) (*policy.Table, CleanReport, error) {
	cols, err := requiredColumns(t, required)
	if err != nil {
		return nil, CleanReport{}, err
	}

	report := CleanReport{DroppedBy: map[string]int{}}
	kept := make([]policy.Record, 0, len(t.Records))
	for _, rec := range t.Records {
		complete := true
		for _, col := range cols {
			if rec.Get(col).IsMissing() {
				report.DroppedBy[col]++
				complete = false
			}
		}
		if complete {
			kept = append(kept, rec)
			continue
		}
		report.Dropped++
	}
	report.Kept = len(kept)

	d.logger.Debug("cleaned policy table",
		zap.Int("kept", report.Kept),
		zap.Int("dropped", report.Dropped),
		zap.Strings("required", cols))

	return t.Derive(kept), report, nil
}

// Derive cleans the table on premium and claims, then adds the derived
// columns to copies of the records. Source fields are not changed.
// Premium and claims must be declared numeric in the table's schema.
func (d *Deriver) Derive(t *policy.Table, required ...string) (*policy.Table, CleanReport, error) {
	for _, name := range []string{policy.ColTotalPremium, policy.ColTotalClaims} {
		col, err := t.Column(name)
		if err != nil {
			return nil, CleanReport{}, err
		}
		if typ := t.TypeOf(col); typ != policy.ColumnNumeric {
			return nil, CleanReport{}, fmt.Errorf("%s is %s, not numeric: %w", col, typ, core.ErrMetricType)
		}
	}

	cleaned, report, err := d.Clean(t, required...)
	if err != nil {
		return nil, report, err
	}

	out := make([]policy.Record, len(cleaned.Records))
	for i, rec := range cleaned.Records {
		premium, _ := rec.Get(policy.ColTotalPremium).Float64()
		claims, _ := rec.Get(policy.ColTotalClaims).Float64()
		out[i] = rec.With(Compute(premium, claims))
	}

	derived := cleaned.Derive(out, policy.ColHasClaim, policy.ColClaimSeverity, policy.ColMargin)
	// a caller-supplied schema may not declare the derived columns
	derived.Schema.Columns[policy.ColHasClaim] = policy.ColumnBoolean
	derived.Schema.Columns[policy.ColClaimSeverity] = policy.ColumnNumeric
	derived.Schema.Columns[policy.ColMargin] = policy.ColumnNumeric
	return derived, report, nil
}

// Compute returns the derived values for one premium/claims pair.
// Severity is missing, not zero, when there was no claim.
func Compute(premium, claims float64) map[string]policy.Value {
	hasClaim := claims > 0
	severity := policy.NewMissingValue()
	if hasClaim {
		severity = policy.NewNumericValue(claims)
	}
	return map[string]policy.Value{
		policy.ColHasClaim:      policy.NewBooleanValue(hasClaim),
		policy.ColClaimSeverity: severity,
		policy.ColMargin:        policy.NewNumericValue(premium - claims),
	}
}

// ClaimFrequency is the share of records with a claim. NaN when no record
// carries HasClaim.
func ClaimFrequency(records []policy.Record) float64 {
	n, claims := 0, 0
	for _, rec := range records {
		b, ok := rec.Get(policy.ColHasClaim).Bool()
		if !ok {
			continue
		}
		n++
		if b {
			claims++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return float64(claims) / float64(n)
}

// LossRatio is total claims over total premium. NaN when premium sums to zero.
func LossRatio(records []policy.Record) float64 {
	var premium, claims float64
	for _, rec := range records {
		p, ok1 := rec.Get(policy.ColTotalPremium).Float64()
		c, ok2 := rec.Get(policy.ColTotalClaims).Float64()
		if !ok1 || !ok2 {
			continue
		}
		premium += p
		claims += c
	}
	if premium == 0 {
		return math.NaN()
	}
	return claims / premium
}

func requiredColumns(t *policy.Table, extra []string) ([]string, error) {
	seen := map[string]bool{}
	var cols []string
	for _, name := range append([]string{policy.ColTotalPremium, policy.ColTotalClaims}, extra...) {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		if !seen[col] {
			seen[col] = true
			cols = append(cols, col)
		}
	}
	return cols, nil
}
