package forecast

import (
	"fmt"

	"fintrack/internal/core"
)

const (
	DefaultDegree     = 2
	DefaultConfidence = 0.95
	// MaxHorizon bounds a single projection to ten years of days.
	MaxHorizon = 3650
)

// Target selects one of the three series fitted per forecast.
type Target string

const (
	Income   Target = "income"
	Expenses Target = "expenses"
	Net      Target = "net"
)

// Targets lists the fitted series in display order.
var Targets = []Target{Income, Expenses, Net}

// Label is the display name, e.g. "Income".
func (t Target) Label() string {
	switch t {
	case Income:
		return "Income"
	case Expenses:
		return "Expenses"
	default:
		return "Net"
	}
}

// Value extracts the target series value from an aggregate.
func (t Target) Value(a DailyAggregate) float64 {
	switch t {
	case Income:
		return a.Income.InexactFloat64()
	case Expenses:
		return a.Expenses.InexactFloat64()
	default:
		return a.Net.InexactFloat64()
	}
}

type Options struct {
	// Degree of the polynomial feature expansion; 2 is quadratic. Zero or
	// negative selects DefaultDegree.
	Degree int
	// Confidence is the two-sided level for prediction bounds, in (0, 1).
	Confidence float64
}

func DefaultOptions() Options {
	return Options{Degree: DefaultDegree, Confidence: DefaultConfidence}
}

func (o Options) withDefaults() Options {
	if o.Degree <= 0 {
		o.Degree = DefaultDegree
	}
	if o.Confidence <= 0 || o.Confidence >= 1 {
		o.Confidence = DefaultConfidence
	}
	return o
}

// Series is the projection of one target.
type Series struct {
	Target     Target    `json:"target"`
	Predicted  []float64 `json:"predicted"`
	Lower      []float64 `json:"lower"`
	Upper      []float64 `json:"upper"`
	FitQuality float64   `json:"r2"`
	Model      Model     `json:"model"`
}

// Mean of the predicted values, zero when empty.
func (s Series) Mean() float64 {
	if len(s.Predicted) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.Predicted {
		sum += v
	}
	return sum / float64(len(s.Predicted))
}

// Result is a forecast over a run of consecutive dates. FitQuality values are
// in-sample: they are computed on the same aggregates the models were fitted to.
type Result struct {
	Origin       core.Date   `json:"origin"`
	LastObserved core.Date   `json:"last_observed"`
	Dates        []core.Date `json:"dates"`
	Income       Series      `json:"income"`
	Expenses     Series      `json:"expenses"`
	Net          Series      `json:"net"`
	TrainingDays int         `json:"training_days"`
	Confidence   float64     `json:"confidence"`
	InSample     bool        `json:"r2_in_sample"`
	Flat         bool        `json:"flat"`
}

// Series returns the projection for t.
func (r Result) Series(t Target) Series {
	switch t {
	case Income:
		return r.Income
	case Expenses:
		return r.Expenses
	default:
		return r.Net
	}
}

// Fitted holds the three independently fitted models and the day used as
// offset zero. It is returned by FitAll and passed explicitly to Project.
type Fitted struct {
	Origin       core.Date
	LastObserved core.Date
	TrainingDays int
	Confidence   float64
	Flat         bool

	models map[Target]Model
	r2     map[Target]float64
}

// Model returns the fitted model for t.
func (f Fitted) Model(t Target) Model { return f.models[t] }

// FitAll fits income, expenses and net over aggs. The effective degree is
// lowered to (distinct days - 1) when there are too few days for the
// requested one.
func FitAll(aggs []DailyAggregate, opts Options) (Fitted, error) {
	opts = opts.withDefaults()
	return fitAll(aggs, opts.Degree, opts.Confidence)
}

// FitFlat fits a constant (the daily mean) to every series. A single day
// of history is enough.
func FitFlat(aggs []DailyAggregate, opts Options) (Fitted, error) {
	opts = opts.withDefaults()
	return fitAll(aggs, 0, opts.Confidence)
}

func fitAll(aggs []DailyAggregate, degree int, confidence float64) (Fitted, error) {
	if len(aggs) == 0 {
		return Fitted{}, ErrNoData
	}
	origin, last := Span(aggs)
	pointsFor := func(t Target) []Point {
		pts := make([]Point, len(aggs))
		for i, a := range aggs {
			pts[i] = Point{X: float64(core.DaysBetween(origin, a.Date)), Y: t.Value(a)}
		}
		return pts
	}

	distinct := distinctX(pointsFor(Net))
	if degree > 0 && distinct < 2 {
		return Fitted{}, fmt.Errorf("%w: %d distinct day(s)", ErrInsufficientVariation, distinct)
	}
	if degree > distinct-1 {
		degree = distinct - 1
	}

	f := Fitted{
		Origin:       origin,
		LastObserved: last,
		TrainingDays: len(aggs),
		Confidence:   confidence,
		Flat:         degree == 0,
		models:       make(map[Target]Model, len(Targets)),
		r2:           make(map[Target]float64, len(Targets)),
	}
	for _, t := range Targets {
		pts := pointsFor(t)
		m, err := Fit(pts, degree)
		if err != nil {
			return Fitted{}, fmt.Errorf("fit %s: %w", t, err)
		}
		f.models[t] = m
		f.r2[t] = m.RSquared(pts)
	}
	return f, nil
}

// Project evaluates the fitted models on dates, using the same origin the
// models were fitted with.
func (f Fitted) Project(dates []core.Date) Result {
	r := Result{
		Origin:       f.Origin,
		LastObserved: f.LastObserved,
		Dates:        dates,
		TrainingDays: f.TrainingDays,
		Confidence:   f.Confidence,
		InSample:     true,
		Flat:         f.Flat,
	}
	for _, t := range Targets {
		m := f.models[t]
		s := Series{
			Target:     t,
			Predicted:  make([]float64, len(dates)),
			Lower:      make([]float64, len(dates)),
			Upper:      make([]float64, len(dates)),
			FitQuality: f.r2[t],
			Model:      m,
		}
		for i, d := range dates {
			x := float64(core.DaysBetween(f.Origin, d))
			s.Predicted[i] = m.Predict(x)
			s.Lower[i], s.Upper[i] = m.Interval(x, f.Confidence)
		}
		switch t {
		case Income:
			r.Income = s
		case Expenses:
			r.Expenses = s
		case Net:
			r.Net = s
		}
	}
	return r
}

// HorizonDates returns the h consecutive days following last.
func HorizonDates(last core.Date, h int) []core.Date {
	out := make([]core.Date, h)
	for i := range out {
		out[i] = last.AddDays(i + 1)
	}
	return out
}

// Forecast fits aggs and projects horizon days past the last aggregate date.
//
// It fails with ErrNoData for an empty input and ErrInsufficientVariation when
// every aggregate falls on one day; it never substitutes a flat line on its
// own. Use Flat for that.
func Forecast(aggs []DailyAggregate, horizon int, opts Options) (Result, error) {
	if err := validateHorizon(horizon); err != nil {
		return Result{}, err
	}
	f, err := FitAll(aggs, opts)
	if err != nil {
		return Result{}, err
	}
	return f.Project(HorizonDates(f.LastObserved, horizon)), nil
}

// Flat projects each series as its historical daily mean. It accepts a
// single-day history.
func Flat(aggs []DailyAggregate, horizon int, opts Options) (Result, error) {
	if err := validateHorizon(horizon); err != nil {
		return Result{}, err
	}
	f, err := FitFlat(aggs, opts)
	if err != nil {
		return Result{}, err
	}
	return f.Project(HorizonDates(f.LastObserved, horizon)), nil
}

func validateHorizon(h int) error {
	if h < 1 || h > MaxHorizon {
		return fmt.Errorf("%w: got %d (max %d)", ErrInvalidHorizon, h, MaxHorizon)
	}
	return nil
}
