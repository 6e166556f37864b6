package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"claimstat/adapters/stats/significance"
	"claimstat/app"
	"claimstat/internal/errors"
)

func newTestCmd(rt *state) *cobra.Command {
	var req app.Request
	var method string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test whether a metric differs across segments of a feature",
		Long: `Partition policies by --feature and test --metric across the segments.

With --method auto a categorical or boolean metric gets a chi-squared test,
a numeric metric gets Welch's t-test for two segments and one-way ANOVA for
more (segments below --min-group-size are excluded from ANOVA).

Example: claimstat test -d policies.txt --feature Province --metric HasClaim --method anova`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := significance.ParseMethod(method)
			if err != nil {
				return errors.InvalidInput("bad --method", err)
			}
			req.Method = m

			ds, err := rt.dataset(req.Feature)
			if err != nil {
				return err
			}
			res, err := rt.tester().Run(ds.Table, req)
			if err != nil {
				return err
			}

			if rt.jsonOut {
				return writeJSON(cmd.OutOrStdout(), newResultJSON(res))
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Feature, "feature", "", "categorical column to segment by")
	cmd.Flags().StringVar(&req.Metric, "metric", "", "metric column, e.g. HasClaim, ClaimSeverity, Margin")
	cmd.Flags().StringVar(&method, "method", "auto", "auto|welch|anova|chi2")
	cmd.Flags().StringSliceVar(&req.Segments, "segments", nil, "only compare these feature values")
	_ = cmd.MarkFlagRequired("feature")
	_ = cmd.MarkFlagRequired("metric")
	return cmd
}

// suiteFile is the YAML layout accepted by suite --file
type suiteFile struct {
	Tests []app.Request `yaml:"tests"`
}

func loadSuite(path string) ([]app.Request, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithCode(errors.CodeNotFound, err)
	}
	var f suiteFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("parse suite %s", path), err)
	}
	if len(f.Tests) == 0 {
		return nil, errors.ValidationError(fmt.Sprintf("suite %s has no tests", path))
	}
	for i, r := range f.Tests {
		if r.Feature == "" || r.Metric == "" {
			return nil, errors.ValidationError(fmt.Sprintf("suite %s: test %d needs feature and metric", path, i+1))
		}
		if _, err := significance.ParseMethod(string(r.Method)); err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("suite %s: test %d", path, i+1), err)
		}
	}
	return f.Tests, nil
}

func newSuiteCmd(rt *state) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "suite",
		Short: "Run a batch of hypothesis tests",
		Long: `Run the default risk and margin hypotheses (province and postal code
claim frequency, postal code margin, gender and tracking device comparisons),
or the tests listed in a YAML file:

  tests:
    - name: province_claim_frequency
      feature: Province
      metric: HasClaim
      method: anova

A test that cannot run is reported and the rest continue.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs := app.DefaultSuite()
			if file != "" {
				var err error
				if reqs, err = loadSuite(file); err != nil {
					return err
				}
			}

			ds, err := rt.dataset()
			if err != nil {
				return err
			}
			report := rt.tester().RunSuite(ds.Table, reqs)

			w := cmd.OutOrStdout()
			if rt.jsonOut {
				out := suiteJSON{SuiteReport: report, Results: make([]resultJSON, len(report.Results))}
				for i, r := range report.Results {
					out.Results[i] = newResultJSON(r)
				}
				return writeJSON(w, out)
			}

			fmt.Fprintf(w, "Run %s: %s policies, %d tests\n", report.RunID, count(ds.Table.Len()), len(reqs))
			for _, r := range report.Results {
				printResult(w, r)
			}
			if len(report.Failures) > 0 {
				fmt.Fprintf(w, "\n=== NOT RUN ===\n")
				for _, f := range report.Failures {
					fmt.Fprintf(w, "%s: %s\n", f.Request.Label(), f.Error)
				}
			}
			fmt.Fprintf(w, "\n%d rejected, %d not rejected, %d not run\n",
				len(report.Rejected()), len(report.Results)-len(report.Rejected()), len(report.Failures))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file listing the tests")
	return cmd
}
