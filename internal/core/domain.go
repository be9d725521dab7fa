package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the canonical day-month-year layout used on disk and for display.
const DateFormat = "02-01-2006"

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	// Kind classifies a transaction. It is always derived from the amount sign.
	Kind string

	// Date is a calendar day normalized to midnight UTC.
	Date struct {
		time.Time
	}

	Transaction struct {
		Date     Date
		Amount   decimal.Decimal // positive = income, negative = expense
		Currency string
		Use      string // purpose label, drives use-case breakdowns
		Comment  string
	}

	// Entry is a transaction together with its position in the ledger.
	Entry struct {
		Position int `json:"position"`
		Transaction
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrZeroAmount    = errors.New("amount cannot be zero")
	ErrEmptyCurrency = errors.New("empty currency")
	ErrEmptyUse      = errors.New("empty use")
	ErrUseTooLong    = errors.New("use too long (max 200 characters)")
	ErrInvalidKind   = errors.New("invalid transaction kind")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

// Equal reports whether d and o are the same day.
func (d Date) Equal(o Date) bool { return d.Time.Equal(o.Time) }

// String formats the date as DD-MM-YYYY.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(DateFormat)
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b Date) int {
	return int(b.Time.Sub(a.Time).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Kind derives income or expense from the amount sign.
func (t Transaction) Kind() Kind {
	if t.Amount.IsNegative() {
		return Expense
	}
	return Income
}

// Magnitude returns the absolute value of the amount.
func (t Transaction) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount.IsZero() {
		return ErrZeroAmount
	}
	if strings.TrimSpace(t.Currency) == "" {
		return ErrEmptyCurrency
	}
	if strings.TrimSpace(t.Use) == "" {
		return ErrEmptyUse
	}
	if len(t.Use) > 200 {
		return ErrUseTooLong
	}
	return nil
}

// WithDefaults fills an empty currency with the home currency and trims text fields.
func (t Transaction) WithDefaults(homeCurrency string) Transaction {
	t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))
	if t.Currency == "" {
		t.Currency = strings.ToUpper(strings.TrimSpace(homeCurrency))
	}
	t.Use = strings.TrimSpace(t.Use)
	t.Comment = strings.TrimSpace(t.Comment)
	return t
}

// ParseKind accepts "income"/"expense" and their one-letter forms.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "i", "+":
		return Income, nil
	case "expense", "expenses", "e", "-":
		return Expense, nil
	}
	return "", ErrInvalidKind
}

// Signed returns amount with the sign implied by k.
func (k Kind) Signed(amount decimal.Decimal) decimal.Decimal {
	if k == Expense {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

type transactionJSON struct {
	Date     Date            `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Use      string          `json:"use"`
	Comment  string          `json:"comment,omitempty"`
	Kind     Kind            `json:"kind"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		Date:     t.Date,
		Amount:   t.Amount,
		Currency: t.Currency,
		Use:      t.Use,
		Comment:  t.Comment,
		Kind:     t.Kind(),
	})
}

func (t *Transaction) UnmarshalJSON(b []byte) error {
	var v transactionJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	amount := v.Amount
	if v.Kind != "" {
		// kind only steers the sign at the boundary, it is never stored
		k, err := ParseKind(string(v.Kind))
		if err != nil {
			return err
		}
		amount = k.Signed(amount)
	}
	*t = Transaction{
		Date:     v.Date,
		Amount:   amount,
		Currency: v.Currency,
		Use:      v.Use,
		Comment:  v.Comment,
	}
	return nil
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Position int `json:"position"`
		transactionJSON
	}{
		Position: e.Position,
		transactionJSON: transactionJSON{
			Date:     e.Date,
			Amount:   e.Amount,
			Currency: e.Currency,
			Use:      e.Use,
			Comment:  e.Comment,
			Kind:     e.Kind(),
		},
	})
}
