package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"fintrack/internal/backtest"
	"fintrack/internal/core"
	"fintrack/internal/forecast"
	"fintrack/internal/ledger/memory"
)

type failingReader struct{}

func (failingReader) ReadAll(context.Context) ([]core.Transaction, error) {
	return nil, errors.New("disk on fire")
}

func history(days int) []core.Transaction {
	start := core.NewDate(2024, 1, 1)
	var out []core.Transaction
	for i := 0; i < days; i++ {
		d := start.AddDays(i).String()
		out = append(out, tx(d, int64(100+i), "salary"), tx(d, int64(-(40+i)), "food"))
	}
	return out
}

func TestForecastService_Forecast(t *testing.T) {
	svc := NewForecastService(memory.New("PKR", history(20)...), DefaultForecastSettings(), testLogger(&bytes.Buffer{}))

	res, err := svc.Forecast(context.Background(), 7)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(res.Dates) != 7 || !res.Dates[0].Equal(core.NewDate(2024, 1, 21)) {
		t.Errorf("unexpected horizon %v", res.Dates)
	}
	if res.Flat {
		t.Error("forecast over 20 days must not be flat")
	}

	if _, err := svc.Forecast(context.Background(), 0); !errors.Is(err, forecast.ErrInvalidHorizon) {
		t.Errorf("horizon 0 error = %v", err)
	}
}

func TestForecastService_FlatFallback(t *testing.T) {
	single := memory.New("PKR", tx("01-03-2024", 50, "gift"), tx("01-03-2024", -10, "tea"))

	strict := NewForecastService(single, DefaultForecastSettings(), testLogger(&bytes.Buffer{}))
	if _, err := strict.Forecast(context.Background(), 3); !errors.Is(err, forecast.ErrInsufficientVariation) {
		t.Fatalf("expected insufficient variation, got %v", err)
	}

	settings := DefaultForecastSettings()
	settings.FlatFallback = true
	lenient := NewForecastService(single, settings, testLogger(&bytes.Buffer{}))
	res, err := lenient.Forecast(context.Background(), 3)
	if err != nil {
		t.Fatalf("flat fallback: %v", err)
	}
	if !res.Flat || math.Abs(res.Income.Predicted[0]-50) > 1e-9 || math.Abs(res.Expenses.Predicted[2]-10) > 1e-9 {
		t.Errorf("unexpected flat forecast %+v", res)
	}
}

func TestForecastService_Backtest(t *testing.T) {
	svc := NewForecastService(memory.New("PKR", history(30)...), DefaultForecastSettings(), testLogger(&bytes.Buffer{}))

	res, err := svc.Backtest(context.Background(), 5, core.Date{})
	if err != nil {
		t.Fatalf("Backtest: %v", err)
	}
	if res.WindowDays != 5 || res.TrainingDays != 25 {
		t.Errorf("unexpected backtest shape %+v", res)
	}
	if res.Net.Metrics.RMSE < res.Net.Metrics.MAE {
		t.Errorf("RMSE %v below MAE %v", res.Net.Metrics.RMSE, res.Net.Metrics.MAE)
	}

	_, err = svc.Backtest(context.Background(), 5, core.NewDate(2023, 1, 1))
	if !errors.Is(err, backtest.ErrInsufficientHistory) {
		t.Errorf("window before history error = %v", err)
	}
}

func TestForecastService_Dashboard(t *testing.T) {
	t.Run("full history", func(t *testing.T) {
		svc := NewForecastService(memory.New("PKR", history(30)...), DefaultForecastSettings(), testLogger(&bytes.Buffer{}))
		d, err := svc.Dashboard(context.Background(), 10, 7)
		if err != nil {
			t.Fatalf("Dashboard: %v", err)
		}
		if d.Forecast == nil || d.Backtest == nil || d.ForecastError != "" || d.BacktestError != "" {
			t.Fatalf("unexpected dashboard %+v", d)
		}
		if d.Report.Summary.IncomeCount != 30 || len(d.Forecast.Dates) != 10 || d.Backtest.WindowDays != 7 {
			t.Errorf("unexpected dashboard contents %+v", d)
		}
	})

	t.Run("empty ledger reports reasons", func(t *testing.T) {
		svc := NewForecastService(memory.New("PKR"), DefaultForecastSettings(), testLogger(&bytes.Buffer{}))
		d, err := svc.Dashboard(context.Background(), 10, 7)
		if err != nil {
			t.Fatalf("Dashboard: %v", err)
		}
		if d.Forecast != nil || d.Backtest != nil || d.ForecastError == "" || d.BacktestError == "" {
			t.Errorf("expected reasons for missing sections, got %+v", d)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		svc := NewForecastService(failingReader{}, DefaultForecastSettings(), nil)
		if _, err := svc.Dashboard(context.Background(), 10, 7); err == nil {
			t.Error("expected read error")
		}
	})
}

func TestIsInsufficientData(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{forecast.ErrNoData, true},
		{forecast.ErrInsufficientVariation, true},
		{backtest.ErrInsufficientHistory, true},
		{forecast.ErrInvalidHorizon, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsInsufficientData(tt.err); got != tt.want {
			t.Errorf("IsInsufficientData(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestDashboardSectionFailure(t *testing.T) {
	var logs bytes.Buffer
	svc := NewForecastService(memory.New("PKR"), DefaultForecastSettings(), testLogger(&logs))

	tests := []struct {
		name   string
		err    error
		reason bool
		fatal  error
	}{
		{"success", nil, false, nil},
		{"short history", fmt.Errorf("window: %w", backtest.ErrInsufficientHistory), true, nil},
		{"fit failure", fmt.Errorf("%w: matrix singular", forecast.ErrFitFailed), true, nil},
		{"bad horizon", forecast.ErrInvalidHorizon, false, forecast.ErrInvalidHorizon},
		{"bad window", backtest.ErrInvalidWindow, false, backtest.ErrInvalidWindow},
		{"cancelled", context.Canceled, false, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, err := svc.sectionFailure(context.Background(), "forecast", tt.err)
			if (reason != "") != tt.reason {
				t.Errorf("reason = %q", reason)
			}
			if tt.fatal == nil && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			if tt.fatal != nil && !errors.Is(err, tt.fatal) {
				t.Errorf("error = %v, want %v", err, tt.fatal)
			}
		})
	}
	if !strings.Contains(logs.String(), "matrix singular") {
		t.Errorf("fit failure was not logged: %s", logs.String())
	}
}
