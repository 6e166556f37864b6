package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"claimstat/domain/policy"
	"claimstat/internal/errors"
	"claimstat/internal/testkit"
)

func newSchemaCmd(rt *state) *cobra.Command {
	var write string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the effective column schema as YAML",
		Long: `Print the schema in use (--schema file or the built-in policy schema).
Columns not listed are read as categorical. Use --write to start a custom
schema file from it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.schema()
			if err != nil {
				return err
			}
			if write != "" {
				if err := policy.SaveSchema(s, write); err != nil {
					return errors.Wrapf(err, "write schema %s", write)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema written to %s\n", write)
				return nil
			}
			if rt.jsonOut {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			b, err := yaml.Marshal(s)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}

	cmd.Flags().StringVar(&write, "write", "", "save the schema to this file instead of printing it")
	return cmd
}

func newGenerateCmd(rt *state) *cobra.Command {
	var out, start string
	cfg := testkit.DefaultPolicyConfig()

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic, reproducible policy extract",
		Long: `Write a delimited policy file with the columns of the real extract, for
trying the commands without production data.

Example: claimstat generate --out policies.txt --policies 5000 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Policies <= 0 {
				return errors.ValidationError("--policies must be > 0")
			}
			startMonth, err := time.ParseInLocation("2006-01", start, time.UTC)
			if err != nil {
				return errors.InvalidInput("invalid --start (expected YYYY-MM)", err)
			}
			cfg.StartMonth = startMonth

			f, err := os.Create(out)
			if err != nil {
				return errors.Wrapf(err, "create %s", out)
			}
			defer f.Close()

			if err := testkit.NewPolicyGenerator(cfg).WriteDelimited(f, rt.cfg.DelimiterRune()); err != nil {
				return errors.Wrapf(err, "write %s", out)
			}
			if err := f.Close(); err != nil {
				return errors.Wrapf(err, "close %s", out)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Synthetic extract created: %s\n", out)
			fmt.Fprintf(cmd.OutOrStdout(), "Columns: %d | Policies: %s\n", len(testkit.PolicyHeaders), count(cfg.Policies))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "policies.txt", "output file")
	cmd.Flags().IntVar(&cfg.Policies, "policies", cfg.Policies, "number of policies")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "RNG seed (deterministic)")
	cmd.Flags().Float64Var(&cfg.ClaimRate, "claim-rate", cfg.ClaimRate, "share of policies with a claim")
	cmd.Flags().Float64Var(&cfg.MissingRate, "missing-rate", cfg.MissingRate, "share of policies with no gender recorded")
	cmd.Flags().IntVar(&cfg.Months, "months", cfg.Months, "number of transaction months")
	cmd.Flags().StringVar(&start, "start", cfg.StartMonth.Format("2006-01"), "first transaction month (YYYY-MM)")
	return cmd
}
