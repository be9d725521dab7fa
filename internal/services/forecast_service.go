package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/backtest"
	"fintrack/internal/core"
	"fintrack/internal/forecast"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
)

// ForecastSettings carries the forecasting knobs from configuration.
type ForecastSettings struct {
	Options forecast.Options
	// FlatFallback projects historical means when the history spans a single day.
	FlatFallback   bool
	DefaultHorizon int
	DefaultWindow  int
}

// DefaultForecastSettings mirrors the configuration defaults
func DefaultForecastSettings() ForecastSettings {
	return ForecastSettings{
		Options:        forecast.DefaultOptions(),
		DefaultHorizon: 30,
		DefaultWindow:  30,
	}
}

// ForecastService runs aggregation, forecasting and backtesting over the
// current ledger snapshot.
type ForecastService struct {
	reader   ledger.Reader
	settings ForecastSettings
	logger   *applog.Logger
}

func NewForecastService(reader ledger.Reader, settings ForecastSettings, logger *applog.Logger) *ForecastService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if settings.DefaultHorizon < 1 {
		settings.DefaultHorizon = 30
	}
	if settings.DefaultWindow < 1 {
		settings.DefaultWindow = 30
	}
	return &ForecastService{
		reader:   reader,
		settings: settings,
		logger:   logger.WithComponent(applog.ComponentForecast),
	}
}

// Settings returns the effective settings
func (s *ForecastService) Settings() ForecastSettings { return s.settings }

func (s *ForecastService) snapshot(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.reader.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return txs, nil
}

// Aggregates returns the daily rollup of the whole ledger
func (s *ForecastService) Aggregates(ctx context.Context) ([]forecast.DailyAggregate, error) {
	txs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return forecast.Aggregate(txs), nil
}

// Forecast projects horizon days past the last ledger date.
func (s *ForecastService) Forecast(ctx context.Context, horizon int) (forecast.Result, error) {
	txs, err := s.snapshot(ctx)
	if err != nil {
		return forecast.Result{}, err
	}
	return s.forecast(ctx, txs, horizon)
}

func (s *ForecastService) forecast(ctx context.Context, txs []core.Transaction, horizon int) (forecast.Result, error) {
	aggs := forecast.Aggregate(txs)
	res, err := forecast.Forecast(aggs, horizon, s.settings.Options)
	if errors.Is(err, forecast.ErrInsufficientVariation) && s.settings.FlatFallback {
		s.logger.WarnContext(ctx, "Single-day history, using flat forecast",
			applog.FieldOperation, applog.OpForecast,
			applog.FieldHorizon, horizon)
		return forecast.Flat(aggs, horizon, s.settings.Options)
	}
	if err != nil {
		return forecast.Result{}, err
	}

	s.logger.DebugContext(ctx, "Forecast computed",
		applog.FieldOperation, applog.OpForecast,
		applog.FieldHorizon, horizon,
		applog.FieldDegree, res.Net.Model.Degree,
		"training_days", res.TrainingDays)
	return res, nil
}

// Backtest holds out windowDays ending on end (zero end means the last
// ledger date) and scores the forecast against the actual days.
func (s *ForecastService) Backtest(ctx context.Context, windowDays int, end core.Date) (backtest.Result, error) {
	txs, err := s.snapshot(ctx)
	if err != nil {
		return backtest.Result{}, err
	}
	return s.backtest(ctx, txs, windowDays, end)
}

func (s *ForecastService) backtest(ctx context.Context, txs []core.Transaction, windowDays int, end core.Date) (backtest.Result, error) {
	res, err := backtest.Run(txs, windowDays, backtest.Options{Forecast: s.settings.Options, End: end})
	if err != nil {
		return backtest.Result{}, err
	}

	s.logger.DebugContext(ctx, "Backtest computed",
		applog.FieldOperation, applog.OpBacktest,
		applog.FieldWindow, windowDays,
		"net_mae", res.Net.Metrics.MAE,
		"net_rmse", res.Net.Metrics.RMSE)
	return res, nil
}

// Dashboard is the one-request overview served by the HTTP API. Forecast and
// Backtest are nil when they could not be computed; the reason is in the
// matching *Error field.
type Dashboard struct {
	Report        Report           `json:"report"`
	Forecast      *forecast.Result `json:"forecast,omitempty"`
	ForecastError string           `json:"forecast_error,omitempty"`
	Backtest      *backtest.Result `json:"backtest,omitempty"`
	BacktestError string           `json:"backtest_error,omitempty"`
}

// Dashboard computes the summaries, the forecast and the backtest from one
// snapshot in parallel.
func (s *ForecastService) Dashboard(ctx context.Context, horizon, windowDays int) (Dashboard, error) {
	txs, err := s.snapshot(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.Report = Report{
			Summary:    core.Summarize(txs),
			Monthly:    core.MonthlySummaries(txs),
			Uses:       core.ByUse(txs),
			Currencies: core.ByCurrency(txs),
		}
		return nil
	})

	g.Go(func() error {
		res, err := s.forecast(gctx, txs, horizon)
		reason, err := s.sectionFailure(gctx, "forecast", err)
		if err != nil {
			return err
		}
		if reason != "" {
			d.ForecastError = reason
			return nil
		}
		d.Forecast = &res
		return nil
	})

	g.Go(func() error {
		res, err := s.backtest(gctx, txs, windowDays, core.Date{})
		reason, err := s.sectionFailure(gctx, "backtest", err)
		if err != nil {
			return err
		}
		if reason != "" {
			d.BacktestError = reason
			return nil
		}
		d.Backtest = &res
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	slog.DebugContext(ctx, "Dashboard computed", "transactions", len(txs))
	return d, nil
}

// sectionFailure splits a dashboard section error into a reason shown next to
// the other sections and an error that fails the whole request. Only invalid
// parameters and cancellation fail the request.
func (s *ForecastService) sectionFailure(ctx context.Context, section string, err error) (string, error) {
	switch {
	case err == nil:
		return "", nil
	case errors.Is(err, forecast.ErrInvalidHorizon),
		errors.Is(err, backtest.ErrInvalidWindow),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return "", fmt.Errorf("%s: %w", section, err)
	case !IsInsufficientData(err):
		s.logger.WarnContext(ctx, "Dashboard section failed",
			"section", section,
			applog.FieldError, err)
	}
	return err.Error(), nil
}

// IsInsufficientData reports whether err means the ledger is too short to model.
func IsInsufficientData(err error) bool {
	return errors.Is(err, forecast.ErrNoData) ||
		errors.Is(err, forecast.ErrInsufficientVariation) ||
		errors.Is(err, backtest.ErrInsufficientHistory)
}
