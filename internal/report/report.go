// Package report renders ledger, forecast and backtest results as markdown.
package report

import (
	"bytes"
	"fmt"
	"strconv"

	md "github.com/nao1215/markdown"

	"fintrack/internal/backtest"
	"fintrack/internal/core"
	"fintrack/internal/forecast"
)

func money(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

func score(f float64) string { return strconv.FormatFloat(f, 'f', 3, 64) }

// Transactions renders entries with their ledger positions.
func Transactions(title string, entries []core.Entry) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H2(title)

	if len(entries) == 0 {
		doc.PlainText("No transactions.")
		return doc.String()
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Position),
			e.Date.String(),
			core.FormatAmount(e.Amount),
			e.Currency,
			string(e.Kind()),
			e.Use,
			e.Comment,
		})
	}
	table(doc, md.TableSet{
		Header: []string{"#", "Date", "Amount", "Currency", "Type", "Use", "Comment"},
		Rows:   rows,
	})
	doc.PlainText(fmt.Sprintf("%d transaction(s).", len(entries)))
	return doc.String()
}

// Summary renders totals, averages and the savings rate.
func Summary(s core.Summary) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H2("Summary")
	table(doc, md.TableSet{
		Header: []string{"", "Total", "Count", "Average"},
		Rows: [][]string{
			{"Income", core.FormatAmount(s.TotalIncome), strconv.Itoa(s.IncomeCount), core.FormatAmount(s.AvgIncome)},
			{"Expenses", core.FormatAmount(s.TotalExpenses), strconv.Itoa(s.ExpenseCount), core.FormatAmount(s.AvgExpense)},
			{"Net", core.FormatAmount(s.Net), strconv.Itoa(s.IncomeCount + s.ExpenseCount), ""},
		},
	})
	doc.PlainText(fmt.Sprintf("Savings rate: %s%%", s.SavingsRate().StringFixed(2)))
	return doc.String()
}

// Monthly renders one row per calendar month.
func Monthly(months []core.MonthOverview) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H2("Monthly summary")

	if len(months) == 0 {
		doc.PlainText("No transactions.")
		return doc.String()
	}

	rows := make([][]string, 0, len(months))
	for _, m := range months {
		rows = append(rows, []string{
			m.Label(),
			core.FormatAmount(m.TotalIncome),
			core.FormatAmount(m.TotalExpenses),
			core.FormatAmount(m.Net),
			m.SavingsRate().StringFixed(2) + "%",
		})
	}
	table(doc, md.TableSet{
		Header: []string{"Month", "Income", "Expenses", "Net", "Savings rate"},
		Rows:   rows,
	})
	return doc.String()
}

// Breakdown renders per-label totals, e.g. by use or by currency.
func Breakdown(title, label string, items []core.CategoryAmount) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H2(title)

	if len(items) == 0 {
		doc.PlainText("No transactions.")
		return doc.String()
	}

	rows := make([][]string, 0, len(items))
	for _, c := range items {
		rows = append(rows, []string{
			c.Name,
			core.FormatAmount(c.Income),
			core.FormatAmount(c.Expenses),
			core.FormatAmount(c.Net()),
			strconv.Itoa(c.Count),
		})
	}
	table(doc, md.TableSet{
		Header: []string{label, "Income", "Expenses", "Net", "Count"},
		Rows:   rows,
	})
	return doc.String()
}

// Aggregates renders the daily rollup.
func Aggregates(aggs []forecast.DailyAggregate) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H2("Daily aggregates")

	if len(aggs) == 0 {
		doc.PlainText("No transactions.")
		return doc.String()
	}

	rows := make([][]string, 0, len(aggs))
	for _, a := range aggs {
		rows = append(rows, []string{
			a.Date.String(),
			strconv.Itoa(a.DayOffset),
			core.FormatAmount(a.Income),
			core.FormatAmount(a.Expenses),
			core.FormatAmount(a.Net),
		})
	}
	table(doc, md.TableSet{
		Header: []string{"Date", "Day", "Income", "Expenses", "Net"},
		Rows:   rows,
	})
	return doc.String()
}

// Forecast renders the prediction summary: period, average predicted values
// with their bounds, fit quality per series and, when daily is set, the
// day-by-day projection.
func Forecast(res forecast.Result, daily bool) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H2("Prediction summary")

	if len(res.Dates) == 0 {
		doc.PlainText("Nothing to forecast.")
		return doc.String()
	}

	doc.PlainText(fmt.Sprintf("Prediction period: %s to %s (%d days, trained on %d days from %s).",
		res.Dates[0], res.Dates[len(res.Dates)-1], len(res.Dates), res.TrainingDays, res.Origin))

	avgRows := make([][]string, 0, len(forecast.Targets))
	fitRows := make([][]string, 0, len(forecast.Targets))
	for _, t := range forecast.Targets {
		s := res.Series(t)
		avgRows = append(avgRows, []string{
			t.Label(),
			money(s.Mean()),
			money(mean(s.Lower)),
			money(mean(s.Upper)),
		})
		fitRows = append(fitRows, []string{t.Label(), score(s.FitQuality), strconv.Itoa(s.Model.Degree)})
	}

	doc.H3("Predicted averages")
	table(doc, md.TableSet{
		Header: []string{"Series", "Average", fmt.Sprintf("Lower %.0f%%", res.Confidence*100), fmt.Sprintf("Upper %.0f%%", res.Confidence*100)},
		Rows:   avgRows,
	})

	doc.H3("Model accuracy")
	table(doc, md.TableSet{
		Header: []string{"Series", "R²", "Degree"},
		Rows:   fitRows,
	})

	if daily {
		rows := make([][]string, 0, len(res.Dates))
		for i, d := range res.Dates {
			rows = append(rows, []string{
				d.String(),
				money(res.Income.Predicted[i]),
				money(res.Expenses.Predicted[i]),
				money(res.Net.Predicted[i]),
			})
		}
		doc.H3("Daily projection")
		table(doc, md.TableSet{
			Header: []string{"Date", "Income", "Expenses", "Net"},
			Rows:   rows,
		})
	}

	if res.Flat {
		doc.PlainText("The history covers a single day, so each series is projected as its historical mean.")
	}
	if res.InSample {
		doc.PlainText("R² is measured on the training days themselves and overstates accuracy on unseen days; run a backtest for an out-of-sample check.")
	}
	doc.PlainText("Predictions are based on historical data and may not reflect future trends.")
	return doc.String()
}

// Backtest renders the prediction vs actual comparison.
func Backtest(res backtest.Result, daily bool) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H2("Prediction vs actual")
	doc.PlainText(fmt.Sprintf("Comparison period: %s to %s (%d days, %d with transactions; trained on %d days).",
		res.Start, res.End, res.WindowDays, res.ActiveDays, res.TrainingDays))

	avgRows := make([][]string, 0, len(forecast.Targets))
	errRows := make([][]string, 0, len(forecast.Targets))
	for _, t := range forecast.Targets {
		s := res.Series(t)
		avgRows = append(avgRows, []string{
			t.Label(),
			money(s.Metrics.MeanPredicted),
			money(s.Metrics.MeanActual),
			money(s.Metrics.Bias),
		})
		errRows = append(errRows, []string{t.Label(), money(s.Metrics.MAE), money(s.Metrics.RMSE), score(s.FitQuality)})
	}

	doc.H3("Average values")
	table(doc, md.TableSet{
		Header: []string{"Series", "Predicted", "Actual", "Difference"},
		Rows:   avgRows,
	})

	doc.H3("Error metrics")
	table(doc, md.TableSet{
		Header: []string{"Series", "MAE", "RMSE", "Training R²"},
		Rows:   errRows,
	})

	if daily {
		rows := make([][]string, 0, res.WindowDays)
		for i, p := range res.Net.Pairs {
			rows = append(rows, []string{
				p.Date.String(),
				money(res.Income.Pairs[i].Predicted), money(res.Income.Pairs[i].Actual),
				money(res.Expenses.Pairs[i].Predicted), money(res.Expenses.Pairs[i].Actual),
				money(p.Predicted), money(p.Actual),
			})
		}
		doc.H3("Daily comparison")
		table(doc, md.TableSet{
			Header: []string{"Date", "Income pred.", "Income", "Expenses pred.", "Expenses", "Net pred.", "Net"},
			Rows:   rows,
		})
	}

	doc.PlainText("Days without transactions count as zero. Lower MAE and RMSE mean better predictions.")
	return doc.String()
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// table writes set with its headers exactly as given; the library default
// upper-cases them.
func table(doc *md.Markdown, set md.TableSet) {
	doc.CustomTable(set, md.TableOptions{AutoWrapText: false, AutoFormatHeaders: false})
}
