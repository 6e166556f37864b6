package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"claimstat/app"
	"claimstat/domain/policy"
	"claimstat/internal/profiling"
	"claimstat/internal/segment"
)

// jsonFloat marshals NaN and infinities as null
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

type resultJSON struct {
	*app.Result
	Statistic  jsonFloat `json:"statistic"`
	PValue     jsonFloat `json:"p_value"`
	DF         jsonFloat `json:"df"`
	EffectSize jsonFloat `json:"effect_size"`
}

func newResultJSON(r *app.Result) resultJSON {
	return resultJSON{
		Result:     r,
		Statistic:  jsonFloat(r.Statistic),
		PValue:     jsonFloat(r.PValue),
		DF:         jsonFloat(r.DF),
		EffectSize: jsonFloat(r.EffectSize),
	}
}

type suiteJSON struct {
	*app.SuiteReport
	Results []resultJSON `json:"results"`
}

type columnStatsJSON struct {
	profiling.ColumnStats
	Min      jsonFloat `json:"min"`
	Max      jsonFloat `json:"max"`
	Mean     jsonFloat `json:"mean"`
	Median   jsonFloat `json:"median"`
	Std      jsonFloat `json:"std"`
	Skew     jsonFloat `json:"skew"`
	Kurtosis jsonFloat `json:"kurtosis"`
	Q25      jsonFloat `json:"q25"`
	Q75      jsonFloat `json:"q75"`
}

type summaryJSON struct {
	segment.Summary
	ClaimFrequency jsonFloat `json:"claim_frequency"`
	MeanSeverity   jsonFloat `json:"mean_severity"`
	MeanMargin     jsonFloat `json:"mean_margin"`
	MeanPremium    jsonFloat `json:"mean_premium"`
	LossRatio      jsonFloat `json:"loss_ratio"`
}

type groupRowJSON struct {
	profiling.GroupRow
	Mean jsonFloat `json:"mean"`
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func amount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return humanize.FormatFloat("#,###.##", v)
}

func stat(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}

func pvalue(p float64) string {
	if p > 0 && p < 1e-4 {
		return fmt.Sprintf("%.2e", p)
	}
	return stat(p)
}

func verdict(r *app.Result) string {
	if r.Rejected() {
		return "reject H0"
	}
	return "fail to reject H0"
}

func printResult(w io.Writer, r *app.Result) {
	fmt.Fprintf(w, "\n=== %s (%s) ===\n", r.Metric+" by "+r.Feature, r.Method)
	if r.Name != "" {
		fmt.Fprintf(w, "Hypothesis: %s\n", r.Name)
	}
	fmt.Fprintf(w, "Statistic: %s\n", stat(r.Statistic))
	if r.DF2 != 0 {
		fmt.Fprintf(w, "Degrees of freedom: %s, %s\n", stat(r.DF), stat(r.DF2))
	} else {
		fmt.Fprintf(w, "Degrees of freedom: %s\n", stat(r.DF))
	}
	fmt.Fprintf(w, "p-value: %s (alpha %.3g)\n", pvalue(r.PValue), r.Alpha)
	fmt.Fprintf(w, "Effect size: %s\n", stat(r.EffectSize))
	if r.Corrected {
		fmt.Fprintln(w, "Yates continuity correction applied")
	}
	fmt.Fprintf(w, "Decision: %s\n", verdict(r))

	tw := newTable(w)
	fmt.Fprintln(tw, "SEGMENT\tN\tMEAN")
	for _, g := range r.Groups {
		mean := "-"
		if g.Mean != nil {
			mean = amount(*g.Mean)
			if r.Metric == policy.ColHasClaim {
				mean = stat(*g.Mean)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", g.Key, count(g.N), mean)
	}
	tw.Flush()

	if len(r.Excluded) > 0 {
		fmt.Fprintf(w, "Excluded (below minimum size): %s\n", strings.Join(r.Excluded, ", "))
	}
	if r.Missing > 0 {
		fmt.Fprintf(w, "Records without %s: %s\n", r.Feature, count(r.Missing))
	}
}
