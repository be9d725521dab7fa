package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/services"
)

// app holds what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE and released in PersistentPostRunE.
type app struct {
	cfg       *config.Config
	logger    *applog.Logger
	backend   *backend.BackendResult
	ledger    *services.LedgerService
	forecasts *services.ForecastService

	out      io.Writer
	renderer *report.Renderer

	asJSON      bool
	plain       bool
	verbose     bool
	csvPath     string
	backendType string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "fintrack",
		Short: "Personal finance ledger with trend forecasts",
		Long: `fintrack records income and expenses in a ledger, summarizes them,
and fits a trend to the daily totals to project the coming days.

Positive amounts are income, negative amounts are expenses.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&a.asJSON, "json", false, "Print JSON instead of tables.")
	flags.BoolVar(&a.plain, "plain", false, "Print raw markdown even on a terminal.")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log at the configured LOG_LEVEL instead of warnings only.")
	flags.StringVar(&a.csvPath, "file", "", "Ledger CSV path (overrides LEDGER_CSV_PATH).")
	flags.StringVar(&a.backendType, "backend", "", "Ledger backend (overrides LEDGER_BACKEND).")

	root.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newFilterCmd(a),
		newSummaryCmd(a),
		newMonthlyCmd(a),
		newUsesCmd(a),
		newCurrenciesCmd(a),
		newAggregateCmd(a),
		newForecastCmd(a),
		newBacktestCmd(a),
		newExportCmd(a),
		newMigrateCmd(a),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "completion" {
			return nil
		}
	}

	cli.LoadEnvFile()
	a.cfg = config.Load()
	if a.csvPath != "" {
		a.cfg.LedgerCSVPath = a.csvPath
	}
	if a.backendType != "" {
		a.cfg.LedgerBackend = a.backendType
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	logCfg := applog.DefaultConfig()
	logCfg.Output = cmd.ErrOrStderr()
	logCfg.Format = a.cfg.LogFormat
	logCfg.Component = applog.ComponentCLI
	logCfg.Level = applog.ParseLevel("warn")
	if a.verbose {
		logCfg.Level = applog.ParseLevel(a.cfg.LogLevel)
	}
	a.logger = applog.New(logCfg)

	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return err
	}
	a.backend, err = backend.NewFactory(a.logger.Logger).CreateBackend(cmd.Context(), bcfg)
	if err != nil {
		return fmt.Errorf("open %s ledger: %w", a.cfg.LedgerBackend, err)
	}
	a.ledger, a.forecasts = cli.NewServices(a.cfg, a.backend, a.logger)

	a.out = cmd.OutOrStdout()
	a.renderer = report.NewRenderer(a.out)
	if a.plain {
		a.renderer = a.renderer.Plain()
	}
	return nil
}

func (a *app) close() error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}

// emit prints v as JSON when --json is set and the rendered documents otherwise.
func (a *app) emit(v any, docs ...string) error {
	if a.asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return a.renderer.Render(docs...)
}
