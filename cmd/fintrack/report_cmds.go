package main

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/report"
)

func parseBound(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := core.ParseAmount(s)
	if errors.Is(err, core.ErrZeroAmount) {
		d, err = decimal.Zero, nil
	}
	if err != nil {
		return nil, err
	}
	d = d.Abs()
	return &d, nil
}

func dateFilter(from, to string) (core.Filter, error) {
	var f core.Filter
	var err error
	if from != "" {
		if f.From, err = core.ParseDate(from); err != nil {
			return f, err
		}
	}
	if to != "" {
		if f.To, err = core.ParseDate(to); err != nil {
			return f, err
		}
	}
	return f, f.Validate()
}

// rangeFlags registers --from/--to on a summary command.
func rangeFlags(cmd *cobra.Command, from, to *string) {
	cmd.Flags().StringVar(from, "from", "", "First day to include.")
	cmd.Flags().StringVar(to, "to", "", "Last day to include.")
}

func newSummaryCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Totals, averages and savings rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := dateFilter(from, to)
			if err != nil {
				return err
			}
			rep, err := a.ledger.Summarize(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.emit(map[string]any{
				"summary":      rep.Summary,
				"savings_rate": rep.Summary.SavingsRate(),
			}, report.Summary(rep.Summary))
		},
	}
	rangeFlags(cmd, &from, &to)
	return cmd
}

func newMonthlyCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Income, expenses and net per calendar month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := dateFilter(from, to)
			if err != nil {
				return err
			}
			rep, err := a.ledger.Summarize(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.emit(rep.Monthly, report.Monthly(rep.Monthly))
		},
	}
	rangeFlags(cmd, &from, &to)
	return cmd
}

func newUsesCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "uses",
		Short: "Totals grouped by use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := dateFilter(from, to)
			if err != nil {
				return err
			}
			rep, err := a.ledger.Summarize(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.emit(rep.Uses, report.Breakdown("By use", "Use", rep.Uses))
		},
	}
	rangeFlags(cmd, &from, &to)
	return cmd
}

func newCurrenciesCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "currencies",
		Short: "Totals grouped by currency, without conversion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := dateFilter(from, to)
			if err != nil {
				return err
			}
			rep, err := a.ledger.Summarize(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.emit(rep.Currencies, report.Breakdown("By currency", "Currency", rep.Currencies))
		},
	}
	rangeFlags(cmd, &from, &to)
	return cmd
}

func newAggregateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate",
		Short: "Daily income, expenses and net with day offsets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			aggs, err := a.forecasts.Aggregates(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(aggs, report.Aggregates(aggs))
		},
	}
}

func newForecastCmd(a *app) *cobra.Command {
	var days int
	var daily bool
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project daily income, expenses and net past the last ledger day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.forecasts.Settings().DefaultHorizon
			}
			res, err := a.forecasts.Forecast(cmd.Context(), days)
			if err != nil {
				return err
			}
			return a.emit(res, report.Forecast(res, daily))
		},
	}
	cmd.Flags().IntVarP(&days, "days", "n", 30, "Days to project (default FORECAST_DEFAULT_HORIZON).")
	cmd.Flags().BoolVar(&daily, "daily", false, "Include the day-by-day projection.")
	return cmd
}

func newBacktestCmd(a *app) *cobra.Command {
	var days int
	var end string
	var daily bool
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Forecast a past window from the days before it and compare",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.forecasts.Settings().DefaultWindow
			}
			var endDate core.Date
			if end != "" {
				var err error
				if endDate, err = core.ParseDate(end); err != nil {
					return err
				}
			}
			res, err := a.forecasts.Backtest(cmd.Context(), days, endDate)
			if err != nil {
				return err
			}
			return a.emit(res, report.Backtest(res, daily))
		},
	}
	cmd.Flags().IntVarP(&days, "days", "n", 30, "Window length in days (default BACKTEST_DEFAULT_WINDOW).")
	cmd.Flags().StringVar(&end, "end", "", "Last day of the window (default the last ledger day).")
	cmd.Flags().BoolVar(&daily, "daily", false, "Include the day-by-day comparison.")
	return cmd
}
