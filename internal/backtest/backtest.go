// Package backtest measures forecast accuracy by holding out a trailing window
// of history, forecasting it from the days before, and comparing the
// predictions with what actually happened.
package backtest

import (
	"errors"
	"fmt"
	"math"

	"fintrack/internal/core"
	"fintrack/internal/forecast"
)

var (
	ErrInvalidWindow = errors.New("window must be at least 1 day")
	// ErrInsufficientHistory wraps the forecast condition that prevented fitting
	// on the days before the window.
	ErrInsufficientHistory = errors.New("insufficient history before backtest window")
)

type Options struct {
	Forecast forecast.Options
	// End is the last day of the window. Zero means the last transaction date.
	End core.Date
}

// Pair is one day of the window. Actual is zero on days without transactions.
type Pair struct {
	Date      core.Date `json:"date"`
	Predicted float64   `json:"predicted"`
	Actual    float64   `json:"actual"`
}

type Metrics struct {
	MAE           float64 `json:"mae"`
	RMSE          float64 `json:"rmse"`
	MeanPredicted float64 `json:"mean_predicted"`
	MeanActual    float64 `json:"mean_actual"`
	// Bias is MeanPredicted - MeanActual.
	Bias float64 `json:"bias"`
}

type Series struct {
	Target     forecast.Target `json:"target"`
	Pairs      []Pair          `json:"pairs"`
	Metrics    Metrics         `json:"metrics"`
	FitQuality float64         `json:"r2"`
}

type Result struct {
	Start        core.Date `json:"start"`
	End          core.Date `json:"end"`
	WindowDays   int       `json:"window_days"`
	TrainingDays int       `json:"training_days"`
	ActiveDays   int       `json:"active_days"`
	Income       Series    `json:"income"`
	Expenses     Series    `json:"expenses"`
	Net          Series    `json:"net"`
}

// Series returns the comparison for t.
func (r Result) Series(t forecast.Target) Series {
	switch t {
	case forecast.Income:
		return r.Income
	case forecast.Expenses:
		return r.Expenses
	default:
		return r.Net
	}
}

// Run backtests the last windowDays of history (or the windowDays ending on
// opts.End). Only transactions strictly before the window are used for
// fitting; every day of the window is scored, quiet days against zero.
func Run(history []core.Transaction, windowDays int, opts Options) (Result, error) {
	if windowDays < 1 {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidWindow, windowDays)
	}
	if len(history) == 0 {
		return Result{}, fmt.Errorf("%w: %w", ErrInsufficientHistory, forecast.ErrNoData)
	}

	_, last := forecast.Span(forecast.Aggregate(history))
	end := opts.End
	if end.IsZero() {
		end = last
	}
	start := end.AddDays(-(windowDays - 1))
	if start.After(last) {
		return Result{}, fmt.Errorf("%w: window %s..%s starts after the last transaction on %s",
			ErrInsufficientHistory, start, end, last)
	}

	var training []core.Transaction
	for _, t := range history {
		if t.Date.Before(start) {
			training = append(training, t)
		}
	}

	fitted, err := forecast.FitAll(forecast.Aggregate(training), opts.Forecast)
	if err != nil {
		if errors.Is(err, forecast.ErrNoData) || errors.Is(err, forecast.ErrInsufficientVariation) {
			return Result{}, fmt.Errorf("%w (window %s..%s): %w", ErrInsufficientHistory, start, end, err)
		}
		return Result{}, fmt.Errorf("backtest fit: %w", err)
	}

	dates := make([]core.Date, windowDays)
	for i := range dates {
		dates[i] = start.AddDays(i)
	}
	predicted := fitted.Project(dates)

	actual := make(map[core.Date]forecast.DailyAggregate)
	for _, a := range forecast.AggregateRange(history, start, end) {
		actual[a.Date] = a
	}

	res := Result{
		Start:        start,
		End:          end,
		WindowDays:   windowDays,
		TrainingDays: fitted.TrainingDays,
		ActiveDays:   len(actual),
	}
	for _, t := range forecast.Targets {
		p := predicted.Series(t)
		s := Series{Target: t, FitQuality: p.FitQuality, Pairs: make([]Pair, len(dates))}
		for i, d := range dates {
			var act float64
			if a, ok := actual[d]; ok {
				act = t.Value(a)
			}
			s.Pairs[i] = Pair{Date: d, Predicted: p.Predicted[i], Actual: act}
		}
		s.Metrics = ComputeMetrics(s.Pairs)
		switch t {
		case forecast.Income:
			res.Income = s
		case forecast.Expenses:
			res.Expenses = s
		case forecast.Net:
			res.Net = s
		}
	}
	return res, nil
}

// ComputeMetrics scores pairs. It returns zero metrics for an empty input.
func ComputeMetrics(pairs []Pair) Metrics {
	if len(pairs) == 0 {
		return Metrics{}
	}
	n := float64(len(pairs))
	var absSum, sqSum, predSum, actSum float64
	for _, p := range pairs {
		e := p.Predicted - p.Actual
		absSum += math.Abs(e)
		sqSum += e * e
		predSum += p.Predicted
		actSum += p.Actual
	}
	m := Metrics{
		MAE:           absSum / n,
		RMSE:          math.Sqrt(sqSum / n),
		MeanPredicted: predSum / n,
		MeanActual:    actSum / n,
	}
	m.Bias = m.MeanPredicted - m.MeanActual
	// equal errors can leave RMSE an ulp below MAE
	if m.RMSE < m.MAE {
		m.RMSE = m.MAE
	}
	return m
}
