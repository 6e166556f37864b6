package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"claimstat/app"
	"claimstat/domain/policy"
	"claimstat/internal/profiling"
	"claimstat/internal/segment"
)

func newDescribeCmd(rt *state) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [columns...]",
		Short: "Descriptive statistics for numeric columns",
		Long: `Count, min, max, mean, median, sample std, skew, excess kurtosis and IQR
outliers for the named numeric columns, or all numeric columns (derived
metrics included).

Example: claimstat describe -d policies.txt TotalPremium TotalClaims`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := rt.dataset()
			if err != nil {
				return err
			}
			stats, err := profiling.Describe(ds.Table, args...)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if rt.jsonOut {
				out := make([]columnStatsJSON, len(stats))
				for i, s := range stats {
					out[i] = columnStatsJSON{
						ColumnStats: s,
						Min:         jsonFloat(s.Min),
						Max:         jsonFloat(s.Max),
						Mean:        jsonFloat(s.Mean),
						Median:      jsonFloat(s.Median),
						Std:         jsonFloat(s.Std),
						Skew:        jsonFloat(s.Skew),
						Kurtosis:    jsonFloat(s.Kurtosis),
						Q25:         jsonFloat(s.Q25),
						Q75:         jsonFloat(s.Q75),
					}
				}
				return writeJSON(w, out)
			}

			tw := newTable(w)
			fmt.Fprintln(tw, "COLUMN\tCOUNT\tMIN\tMAX\tMEAN\tMEDIAN\tSTD\tSKEW\tKURT\tOUTLIERS")
			for _, s := range stats {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					s.Column, count(s.Count), amount(s.Min), amount(s.Max), amount(s.Mean),
					amount(s.Median), amount(s.Std), stat(s.Skew), stat(s.Kurtosis), count(s.Outliers))
			}
			return tw.Flush()
		},
	}
}

func newMissingCmd(rt *state) *cobra.Command {
	return &cobra.Command{
		Use:   "missing",
		Short: "Missing values per column, most missing first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := rt.dataset()
			if err != nil {
				return err
			}
			// raw table: missingness is reported before rows are dropped
			missing := profiling.MissingSummary(ds.Raw)

			w := cmd.OutOrStdout()
			if rt.jsonOut {
				return writeJSON(w, missing)
			}
			if len(missing) == 0 {
				fmt.Fprintln(w, "No missing values")
				return nil
			}
			tw := newTable(w)
			fmt.Fprintln(tw, "COLUMN\tMISSING\tPERCENT")
			for _, m := range missing {
				fmt.Fprintf(tw, "%s\t%s\t%.2f%%\n", m.Column, count(m.Missing), m.Percent)
			}
			return tw.Flush()
		},
	}
}

func newStructureCmd(rt *state) *cobra.Command {
	return &cobra.Command{
		Use:   "structure",
		Short: "Declared type, cardinality and levels of every column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := rt.dataset()
			if err != nil {
				return err
			}
			info := profiling.Structure(ds.Raw)

			w := cmd.OutOrStdout()
			if rt.jsonOut {
				return writeJSON(w, info)
			}
			fmt.Fprintf(w, "%s rows, %d columns\n", count(ds.Raw.Len()), len(info))
			tw := newTable(w)
			fmt.Fprintln(tw, "COLUMN\tTYPE\tNON-MISSING\tUNIQUE\tLEVELS")
			for _, c := range info {
				levels := fmt.Sprintf("%s unique values", count(c.Unique))
				if c.Levels != nil {
					levels = strings.Join(c.Levels, ", ")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Column, c.Type, count(c.NonMissing), count(c.Unique), levels)
			}
			return tw.Flush()
		},
	}
}

func newSegmentsCmd(rt *state) *cobra.Command {
	var feature string
	var minSize int

	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Claim frequency, severity, margin and loss ratio per segment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := rt.dataset()
			if err != nil {
				return err
			}
			p, err := segment.By(ds.Table, feature)
			if err != nil {
				return err
			}
			if minSize > 0 {
				p = p.WithMinSize(minSize)
			}
			summaries := segment.Summarize(p)

			w := cmd.OutOrStdout()
			if rt.jsonOut {
				out := make([]summaryJSON, len(summaries))
				for i, s := range summaries {
					out[i] = summaryJSON{
						Summary:        s,
						ClaimFrequency: jsonFloat(s.ClaimFrequency),
						MeanSeverity:   jsonFloat(s.MeanSeverity),
						MeanMargin:     jsonFloat(s.MeanMargin),
						MeanPremium:    jsonFloat(s.MeanPremium),
						LossRatio:      jsonFloat(s.LossRatio),
					}
				}
				return writeJSON(w, out)
			}

			tw := newTable(w)
			fmt.Fprintln(tw, "SEGMENT\tN\tCLAIM FREQ\tMEAN SEVERITY\tMEAN MARGIN\tMEAN PREMIUM\tLOSS RATIO")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", s.Key, count(s.N), stat(s.ClaimFrequency),
					amount(s.MeanSeverity), amount(s.MeanMargin), amount(s.MeanPremium), stat(s.LossRatio))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, d := range p.Dropped {
				fmt.Fprintf(w, "dropped %s (%s records)\n", d.Key, count(d.Size()))
			}
			if p.Excluded > 0 {
				fmt.Fprintf(w, "%s records without %s\n", count(p.Excluded), p.Feature)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&feature, "feature", "", "categorical column to segment by")
	cmd.Flags().IntVar(&minSize, "min-size", 0, "drop segments with fewer records")
	_ = cmd.MarkFlagRequired("feature")
	return cmd
}

func newControlCmd(rt *state) *cobra.Command {
	var feature, control string

	cmd := &cobra.Command{
		Use:   "control",
		Short: "Compare a control column's distribution across segments",
		Long: `Normalized value counts of --control inside each --feature segment, to
check that segments being compared are balanced on other attributes.

Example: claimstat control -d policies.txt --feature TrackingDevice --control Gender`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := rt.dataset()
			if err != nil {
				return err
			}
			report, err := app.ControlCheck(ds.Table, feature, control)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if rt.jsonOut {
				return writeJSON(w, report)
			}
			for _, s := range report.Segments {
				fmt.Fprintf(w, "\n=== %s = %s (%s records) ===\n", report.Feature, s.Key, count(s.N))
				tw := newTable(w)
				for _, f := range s.Shares {
					fmt.Fprintf(tw, "%s\t%.2f%%\n", f.Level, 100*f.Count)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&feature, "feature", "", "column the segments come from")
	cmd.Flags().StringVar(&control, "control", "", "column whose balance is checked")
	_ = cmd.MarkFlagRequired("feature")
	_ = cmd.MarkFlagRequired("control")
	return cmd
}

func newCorrelateCmd(rt *state) *cobra.Command {
	return &cobra.Command{
		Use:   "correlate [columns...]",
		Short: "Pearson correlation matrix (default TotalPremium and TotalClaims)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cols := args
			if len(cols) == 0 {
				cols = []string{policy.ColTotalPremium, policy.ColTotalClaims}
			}
			ds, err := rt.dataset()
			if err != nil {
				return err
			}
			m, n, err := profiling.CorrelationMatrix(ds.Table, cols...)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if rt.jsonOut {
				return writeJSON(w, map[string]interface{}{"columns": cols, "rows": n, "matrix": m})
			}
			fmt.Fprintf(w, "Complete rows: %s\n", count(n))
			tw := newTable(w)
			fmt.Fprintln(tw, "\t"+strings.Join(cols, "\t"))
			for i, row := range m {
				cells := make([]string, len(row))
				for j, v := range row {
					cells[j] = fmt.Sprintf("%.2f", v)
				}
				fmt.Fprintln(tw, cols[i]+"\t"+strings.Join(cells, "\t"))
			}
			return tw.Flush()
		},
	}
}

func newMonthlyCmd(rt *state) *cobra.Command {
	var dateCol, group string

	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Total premium and claims per month and group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := rt.dataset()
			if err != nil {
				return err
			}
			totals, err := profiling.MonthlyTotals(ds.Table, dateCol, group)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if rt.jsonOut {
				return writeJSON(w, totals)
			}
			tw := newTable(w)
			fmt.Fprintln(tw, "MONTH\tGROUP\tN\tPREMIUM\tCLAIMS")
			for _, t := range totals {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Month, t.Group, count(t.N), amount(t.Premium), amount(t.Claims))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&dateCol, "date", policy.ColTransactionMonth, "date column")
	cmd.Flags().StringVar(&group, "group", policy.ColPostalCode, "grouping column")
	return cmd
}

func newProfileCmd(rt *state) *cobra.Command {
	var by, meanCol string
	var modeCols []string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Per group mean of one column and most common value of others",
		Long:  `Example: claimstat profile -d policies.txt --by Province --mean TotalPremium --mode CoverType,make`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := rt.dataset()
			if err != nil {
				return err
			}
			rows, err := profiling.GroupProfile(ds.Table, by, meanCol, modeCols...)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if rt.jsonOut {
				out := make([]groupRowJSON, len(rows))
				for i, r := range rows {
					out[i] = groupRowJSON{GroupRow: r, Mean: jsonFloat(r.Mean)}
				}
				return writeJSON(w, out)
			}
			tw := newTable(w)
			header := []string{strings.ToUpper(by), "N", "MEAN " + meanCol}
			header = append(header, modeCols...)
			fmt.Fprintln(tw, strings.Join(header, "\t"))
			for _, r := range rows {
				cells := []string{r.Group, count(r.N), amount(r.Mean)}
				for _, c := range modeCols {
					col, _ := ds.Table.Column(c)
					mode, ok := r.Modes[col]
					if !ok {
						mode = "-"
					}
					cells = append(cells, mode)
				}
				fmt.Fprintln(tw, strings.Join(cells, "\t"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&by, "by", policy.ColProvince, "grouping column")
	cmd.Flags().StringVar(&meanCol, "mean", policy.ColTotalPremium, "column to average")
	cmd.Flags().StringSliceVar(&modeCols, "mode", []string{policy.ColCoverType, policy.ColMake}, "columns to report the mode of")
	return cmd
}
