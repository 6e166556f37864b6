package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"claimstat/adapters/delimited"
	"claimstat/app"
	"claimstat/domain/core"
	"claimstat/domain/policy"
	"claimstat/internal/config"
	"claimstat/internal/errors"
	"claimstat/internal/logging"
	"claimstat/internal/metrics"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// state carries the global flags and what PersistentPreRunE builds from them
type state struct {
	cfgFile    string
	envFile    string
	dataFile   string
	delimiter  string
	schemaFile string
	alpha      float64
	minGroup   int
	noYates    bool
	logLevel   string
	jsonOut    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	rt := &state{}

	rootCmd := &cobra.Command{
		Use:   "claimstat",
		Short: "Exploratory analysis and segment hypothesis tests for insurance policy data",
		Long: `claimstat loads a delimited policy/claims extract, derives HasClaim,
ClaimSeverity and Margin, and tests whether risk or margin differs across
segments of a categorical feature (Welch's t-test, one-way ANOVA or a
chi-squared test of independence).

Configuration comes from claimstat.yaml (or --config), CLAIMSTAT_* environment
variables and an optional .env file; flags override both.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rt.cfgFile, "config", "", "YAML config file (default ./claimstat.yaml if present)")
	pf.StringVar(&rt.envFile, "env-file", "", "dotenv file to load before reading the environment (default .env if present)")
	pf.StringVarP(&rt.dataFile, "data", "d", "", "policy data file")
	pf.StringVar(&rt.delimiter, "delimiter", "", `field delimiter, e.g. "|", "," or "tab"`)
	pf.StringVar(&rt.schemaFile, "schema", "", "YAML column schema (default built-in policy schema)")
	pf.Float64Var(&rt.alpha, "alpha", 0, "significance level")
	pf.IntVar(&rt.minGroup, "min-group-size", 0, "smallest segment kept for ANOVA")
	pf.BoolVar(&rt.noYates, "no-yates", false, "disable the continuity correction on 2x2 tables")
	pf.StringVar(&rt.logLevel, "log-level", "", "debug|info|warn|error")
	pf.BoolVar(&rt.jsonOut, "json", false, "write machine-readable JSON")

	rootCmd.AddCommand(
		newTestCmd(rt),
		newSuiteCmd(rt),
		newDescribeCmd(rt),
		newMissingCmd(rt),
		newStructureCmd(rt),
		newSegmentsCmd(rt),
		newControlCmd(rt),
		newCorrelateCmd(rt),
		newMonthlyCmd(rt),
		newProfileCmd(rt),
		newSchemaCmd(rt),
		newGenerateCmd(rt),
	)
	return rootCmd
}

func (rt *state) setup(cmd *cobra.Command) error {
	if rt.envFile != "" {
		if err := godotenv.Load(rt.envFile); err != nil {
			return errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("load env file: %w", err))
		}
	} else {
		// .env is optional
		_ = godotenv.Load()
	}

	cfg, err := config.Load(rt.cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataFile = rt.dataFile
	}
	if flags.Changed("delimiter") {
		cfg.Delimiter = rt.delimiter
	}
	if flags.Changed("schema") {
		cfg.SchemaFile = rt.schemaFile
	}
	if flags.Changed("alpha") {
		cfg.Alpha = rt.alpha
	}
	if flags.Changed("min-group-size") {
		cfg.MinGroupSize = rt.minGroup
	}
	if flags.Changed("no-yates") {
		cfg.YatesCorrection = !rt.noYates
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = rt.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	rt.cfg = cfg
	rt.logger = logger
	return nil
}

func (rt *state) schema() (policy.Schema, error) {
	if rt.cfg.SchemaFile == "" {
		return policy.DefaultSchema(), nil
	}
	s, err := policy.LoadSchema(rt.cfg.SchemaFile)
	if err != nil {
		return policy.Schema{}, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return s, nil
}

func (rt *state) pipeline() (*app.Pipeline, error) {
	schema, err := rt.schema()
	if err != nil {
		return nil, err
	}
	reader := delimited.NewReader(delimited.Options{
		Delimiter: rt.cfg.DelimiterRune(),
		Schema:    schema,
		Logger:    rt.logger,
	})
	return app.NewPipeline(reader, metrics.NewDeriver(rt.logger), rt.logger), nil
}

// dataset loads and derives the configured data file. required adds
// columns whose missing values drop a record.
func (rt *state) dataset(required ...string) (*app.Dataset, error) {
	if rt.cfg.DataFile == "" {
		return nil, errors.ConfigInvalid("no data file: pass --data or set CLAIMSTAT_DATA_FILE")
	}
	p, err := rt.pipeline()
	if err != nil {
		return nil, err
	}
	return p.Load(rt.cfg.DataFile, required...)
}

func (rt *state) tester() *app.Tester {
	return app.NewTester(app.TesterConfig{
		Alpha:        rt.cfg.Alpha,
		MinGroupSize: rt.cfg.MinGroupSize,
		Yates:        rt.cfg.YatesCorrection,
	}, rt.logger)
}

// exitCode is 2 for bad input or configuration, 3 when the data cannot
// support a requested test, 1 otherwise
func exitCode(err error) int {
	switch {
	case core.IsPreconditionError(err):
		return 3
	case core.IsDataQualityError(err):
		return 2
	}
	switch errors.GetCode(err) {
	case errors.CodeConfigInvalid, errors.CodeValidationError, errors.CodeInvalidInput, errors.CodeNotFound:
		return 2
	}
	return 1
}
