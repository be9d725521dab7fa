// Package forecast turns ledger transactions into daily aggregates and
// projects income, expenses and net forward with per-series polynomial
// least-squares models.
package forecast

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// DailyAggregate is the per-day rollup of a set of transactions.
// Income and Expenses are both non-negative; Net = Income - Expenses.
type DailyAggregate struct {
	Date      core.Date       `json:"date"`
	Income    decimal.Decimal `json:"income"`
	Expenses  decimal.Decimal `json:"expenses"`
	Net       decimal.Decimal `json:"net"`
	DayOffset int             `json:"day_offset"`
}

// Aggregate groups txs by calendar day, ascending. Only days that carry at
// least one transaction produce a row. DayOffset counts days from the
// earliest date in txs, which therefore has offset 0.
func Aggregate(txs []core.Transaction) []DailyAggregate {
	if len(txs) == 0 {
		return nil
	}

	byDay := make(map[core.Date]*DailyAggregate, len(txs))
	for _, t := range txs {
		day := core.DateOf(t.Date.Time)
		agg, ok := byDay[day]
		if !ok {
			agg = &DailyAggregate{Date: day}
			byDay[day] = agg
		}
		if t.Amount.IsNegative() {
			agg.Expenses = agg.Expenses.Add(t.Amount.Abs())
		} else {
			agg.Income = agg.Income.Add(t.Amount)
		}
	}

	out := make([]DailyAggregate, 0, len(byDay))
	for _, agg := range byDay {
		agg.Net = agg.Income.Sub(agg.Expenses)
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	origin := out[0].Date
	for i := range out {
		out[i].DayOffset = core.DaysBetween(origin, out[i].Date)
	}
	return out
}

// AggregateRange aggregates only the transactions dated within [from, to].
// Offsets are relative to the earliest date inside the range.
func AggregateRange(txs []core.Transaction, from, to core.Date) []DailyAggregate {
	return Aggregate(Between(txs, from, to))
}

// Between returns the transactions dated within [from, to]. A zero bound is open.
func Between(txs []core.Transaction, from, to core.Date) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if !from.IsZero() && t.Date.Before(from) {
			continue
		}
		if !to.IsZero() && t.Date.After(to) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Span returns the first and last aggregate dates. aggs must be non-empty.
func Span(aggs []DailyAggregate) (first, last core.Date) {
	first, last = aggs[0].Date, aggs[0].Date
	for _, a := range aggs[1:] {
		if a.Date.Before(first) {
			first = a.Date
		}
		if a.Date.After(last) {
			last = a.Date
		}
	}
	return first, last
}
