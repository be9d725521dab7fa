package backtest

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/forecast"
)

func tx(d core.Date, amount int64) core.Transaction {
	return core.Transaction{Date: d, Amount: decimal.NewFromInt(amount), Currency: "PKR", Use: "test"}
}

// history has a linear income trend and flat expenses for 20 days.
func history() []core.Transaction {
	start := core.NewDate(2025, 1, 1)
	var txs []core.Transaction
	for i := 0; i < 20; i++ {
		d := start.AddDays(i)
		txs = append(txs, tx(d, int64(100+5*i)), tx(d, -40))
	}
	return txs
}

func TestRunPerfectTrend(t *testing.T) {
	res, err := Run(history(), 5, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Start.Equal(core.NewDate(2025, 1, 16)) || !res.End.Equal(core.NewDate(2025, 1, 20)) {
		t.Fatalf("unexpected window %s..%s", res.Start, res.End)
	}
	if res.TrainingDays != 15 || res.ActiveDays != 5 {
		t.Fatalf("unexpected counts: training=%d active=%d", res.TrainingDays, res.ActiveDays)
	}
	for _, target := range forecast.Targets {
		s := res.Series(target)
		if len(s.Pairs) != 5 {
			t.Fatalf("%s: expected 5 pairs, got %d", target, len(s.Pairs))
		}
		if s.Metrics.MAE > 1e-6 || s.Metrics.RMSE > 1e-6 {
			t.Fatalf("%s: expected near-zero error, got %+v", target, s.Metrics)
		}
	}
}

func TestRunZeroFillsQuietDays(t *testing.T) {
	txs := history()
	// drop everything on 18-01-2025
	quiet := core.NewDate(2025, 1, 18)
	var kept []core.Transaction
	for _, t := range txs {
		if !t.Date.Equal(quiet) {
			kept = append(kept, t)
		}
	}

	res, err := Run(kept, 5, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ActiveDays != 4 {
		t.Fatalf("expected 4 active days, got %d", res.ActiveDays)
	}
	var found bool
	for _, p := range res.Expenses.Pairs {
		if p.Date.Equal(quiet) {
			found = true
			if p.Actual != 0 {
				t.Fatalf("quiet day actual must be 0, got %v", p.Actual)
			}
			if math.Abs(p.Predicted-40) > 1e-6 {
				t.Fatalf("expected prediction 40, got %v", p.Predicted)
			}
		}
	}
	if !found {
		t.Fatalf("quiet day was skipped")
	}
	// one day off by 40 over 5 days
	if math.Abs(res.Expenses.Metrics.MAE-8) > 1e-6 {
		t.Fatalf("expected MAE 8, got %v", res.Expenses.Metrics.MAE)
	}
	if res.Expenses.Metrics.RMSE < res.Expenses.Metrics.MAE {
		t.Fatalf("RMSE below MAE: %+v", res.Expenses.Metrics)
	}
}

func TestRunWindowBeforeHistory(t *testing.T) {
	_, err := Run(history(), 10, Options{End: core.NewDate(2024, 6, 1)})
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
	if !errors.Is(err, forecast.ErrNoData) {
		t.Fatalf("expected wrapped ErrNoData, got %v", err)
	}
}

func TestRunWindowCoversAllButOneDay(t *testing.T) {
	_, err := Run(history(), 19, Options{})
	if !errors.Is(err, ErrInsufficientHistory) || !errors.Is(err, forecast.ErrInsufficientVariation) {
		t.Fatalf("expected insufficient variation, got %v", err)
	}
}

func TestRunRejectsBadWindow(t *testing.T) {
	for _, w := range []int{0, -1} {
		if _, err := Run(history(), w, Options{}); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("w=%d: expected ErrInvalidWindow, got %v", w, err)
		}
	}
}

func TestRunEmptyHistory(t *testing.T) {
	if _, err := Run(nil, 7, Options{}); !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestRunWindowAfterLedger(t *testing.T) {
	// history() ends on 20-01-2025.
	for _, end := range []core.Date{core.NewDate(2025, 2, 1), core.NewDate(2026, 6, 30)} {
		if _, err := Run(history(), 3, Options{End: end}); !errors.Is(err, ErrInsufficientHistory) {
			t.Fatalf("end=%s: expected ErrInsufficientHistory, got %v", end, err)
		}
	}
}

func TestRunWindowOverlappingLedgerEnd(t *testing.T) {
	res, err := Run(history(), 5, Options{End: core.NewDate(2025, 1, 22)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ActiveDays != 3 || res.TrainingDays != 17 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	for _, p := range res.Income.Pairs[3:] {
		if p.Actual != 0 {
			t.Fatalf("expected zero actuals past the ledger, got %v on %s", p.Actual, p.Date)
		}
	}
}

func TestComputeMetrics(t *testing.T) {
	cases := []struct {
		name  string
		pairs []Pair
		mae   float64
		rmse  float64
		bias  float64
	}{
		{"empty", nil, 0, 0, 0},
		{"exact", []Pair{{Predicted: 3, Actual: 3}}, 0, 0, 0},
		{"mixed", []Pair{{Predicted: 2, Actual: 0}, {Predicted: 0, Actual: 4}}, 3, math.Sqrt(10), -1},
		{"equal errors", []Pair{{Predicted: 0.1, Actual: 0}, {Predicted: 0.2, Actual: 0.1}, {Predicted: 0.3, Actual: 0.2}}, 0.1, 0.1, 0.1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := ComputeMetrics(tc.pairs)
			if math.Abs(m.MAE-tc.mae) > 1e-9 || math.Abs(m.RMSE-tc.rmse) > 1e-9 || math.Abs(m.Bias-tc.bias) > 1e-9 {
				t.Fatalf("got %+v", m)
			}
			if m.RMSE < m.MAE {
				t.Fatalf("RMSE %v < MAE %v", m.RMSE, m.MAE)
			}
		})
	}
}
