package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Summary holds income/expense totals for a set of transactions.
// Expenses are reported as a positive magnitude.
type Summary struct {
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	Net           decimal.Decimal `json:"net"`
	IncomeCount   int             `json:"income_count"`
	ExpenseCount  int             `json:"expense_count"`
	AvgIncome     decimal.Decimal `json:"avg_income"`
	AvgExpense    decimal.Decimal `json:"avg_expense"`
}

// SavingsRate is Net as a percentage of TotalIncome, zero without income.
func (s Summary) SavingsRate() decimal.Decimal {
	if !s.TotalIncome.IsPositive() {
		return decimal.Zero
	}
	return s.Net.Div(s.TotalIncome).Mul(decimal.NewFromInt(100)).Round(2)
}

// CategoryAmount represents amounts aggregated by a label (use or currency).
type CategoryAmount struct {
	Name     string          `json:"name"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Count    int             `json:"count"`
}

// Net returns income minus expenses for the label.
func (c CategoryAmount) Net() decimal.Decimal {
	return c.Income.Sub(c.Expenses)
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1-12
	Summary
}

// Label returns the month as YYYY-MM.
func (m MonthOverview) Label() string {
	return NewDate(m.Year, m.Month, 1).Time.Format("2006-01")
}

// Summarize computes totals over txs. Amounts in different currencies are
// added as-is; no conversion is performed.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, t := range txs {
		if t.Kind() == Expense {
			s.TotalExpenses = s.TotalExpenses.Add(t.Magnitude())
			s.ExpenseCount++
		} else {
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
			s.IncomeCount++
		}
	}
	s.Net = s.TotalIncome.Sub(s.TotalExpenses)
	if s.IncomeCount > 0 {
		s.AvgIncome = s.TotalIncome.Div(decimal.NewFromInt(int64(s.IncomeCount))).Round(2)
	}
	if s.ExpenseCount > 0 {
		s.AvgExpense = s.TotalExpenses.Div(decimal.NewFromInt(int64(s.ExpenseCount))).Round(2)
	}
	return s
}

// MonthlySummaries groups txs by calendar month, oldest first.
func MonthlySummaries(txs []Transaction) []MonthOverview {
	type key struct{ y, m int }
	groups := map[key][]Transaction{}
	for _, t := range txs {
		k := key{t.Date.Year(), int(t.Date.Month())}
		groups[k] = append(groups[k], t)
	}
	out := make([]MonthOverview, 0, len(groups))
	for k, g := range groups {
		out = append(out, MonthOverview{Year: k.y, Month: k.m, Summary: Summarize(g)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// ByUse breaks txs down by use label, largest expense first.
func ByUse(txs []Transaction) []CategoryAmount {
	return breakdown(txs, func(t Transaction) string { return t.Use })
}

// ByCurrency breaks txs down by currency code.
func ByCurrency(txs []Transaction) []CategoryAmount {
	return breakdown(txs, func(t Transaction) string { return t.Currency })
}

func breakdown(txs []Transaction, label func(Transaction) string) []CategoryAmount {
	idx := map[string]int{}
	var out []CategoryAmount
	for _, t := range txs {
		name := strings.TrimSpace(label(t))
		if name == "" {
			name = "(none)"
		}
		i, ok := idx[strings.ToLower(name)]
		if !ok {
			i = len(out)
			idx[strings.ToLower(name)] = i
			out = append(out, CategoryAmount{Name: name})
		}
		if t.Kind() == Expense {
			out[i].Expenses = out[i].Expenses.Add(t.Magnitude())
		} else {
			out[i].Income = out[i].Income.Add(t.Amount)
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Expenses.Cmp(out[j].Expenses); c != 0 {
			return c > 0
		}
		if c := out[i].Income.Cmp(out[j].Income); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}
