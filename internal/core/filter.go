package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidFilter = errors.New("invalid filter")

// Filter selects ledger entries. Zero-valued fields do not constrain.
// Amount bounds apply to the magnitude so "between 10 and 50" matches
// both +30 and -30.
type Filter struct {
	From      Date
	To        Date
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Kind      Kind
	Use       string // case-insensitive substring
	Currency  string // exact code, case-insensitive
	Search    string // substring of use or comment
}

// Validate rejects inverted ranges.
func (f Filter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return errors.Join(ErrInvalidFilter, errors.New("end date before start date"))
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MaxAmount.LessThan(*f.MinAmount) {
		return errors.Join(ErrInvalidFilter, errors.New("max amount below min amount"))
	}
	if f.Kind != "" && f.Kind != Income && f.Kind != Expense {
		return errors.Join(ErrInvalidFilter, ErrInvalidKind)
	}
	return nil
}

// Match reports whether t satisfies every set constraint. Date bounds are inclusive.
func (f Filter) Match(t Transaction) bool {
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	mag := t.Magnitude()
	if f.MinAmount != nil && mag.LessThan(f.MinAmount.Abs()) {
		return false
	}
	if f.MaxAmount != nil && mag.GreaterThan(f.MaxAmount.Abs()) {
		return false
	}
	if f.Kind != "" && t.Kind() != f.Kind {
		return false
	}
	if f.Use != "" && !containsFold(t.Use, f.Use) {
		return false
	}
	if f.Currency != "" && !strings.EqualFold(t.Currency, strings.TrimSpace(f.Currency)) {
		return false
	}
	if f.Search != "" && !containsFold(t.Use, f.Search) && !containsFold(t.Comment, f.Search) {
		return false
	}
	return true
}

// Apply returns the matching entries, preserving ledger order.
func (f Filter) Apply(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e.Transaction) {
			out = append(out, e)
		}
	}
	return out
}

// Transactions strips positions from entries.
func Transactions(entries []Entry) []Transaction {
	out := make([]Transaction, len(entries))
	for i, e := range entries {
		out[i] = e.Transaction
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}
