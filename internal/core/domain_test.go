package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, 2, 28)
	if got := d.AddDays(1).String(); got != "29-02-2024" {
		t.Fatalf("leap day: got %s", got)
	}
	if got := d.AddDays(2).String(); got != "01-03-2024" {
		t.Fatalf("month rollover: got %s", got)
	}
	if n := DaysBetween(NewDate(2024, 12, 30), NewDate(2025, 1, 2)); n != 3 {
		t.Fatalf("expected 3 days, got %d", n)
	}
	if n := DaysBetween(NewDate(2025, 1, 2), NewDate(2024, 12, 30)); n != -3 {
		t.Fatalf("expected -3 days, got %d", n)
	}
}

func TestTransactionKindFromSign(t *testing.T) {
	in := Transaction{Amount: decimal.NewFromInt(100)}
	out := Transaction{Amount: decimal.NewFromInt(-40)}
	if in.Kind() != Income || out.Kind() != Expense {
		t.Fatalf("unexpected kinds: %s %s", in.Kind(), out.Kind())
	}
	if !out.Magnitude().Equal(decimal.NewFromInt(40)) {
		t.Fatalf("magnitude: got %s", out.Magnitude())
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:     NewDate(2025, 1, 1),
		Amount:   decimal.NewFromInt(-12),
		Currency: "PKR",
		Use:      "groceries",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		mut  func(*Transaction)
		want error
	}{
		{func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{func(tx *Transaction) { tx.Amount = decimal.Zero }, ErrZeroAmount},
		{func(tx *Transaction) { tx.Currency = " " }, ErrEmptyCurrency},
		{func(tx *Transaction) { tx.Use = "" }, ErrEmptyUse},
		{func(tx *Transaction) { tx.Use = strings.Repeat("x", 201) }, ErrUseTooLong},
	}
	for i, tc := range cases {
		tx := good
		tc.mut(&tx)
		if err := tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestWithDefaults(t *testing.T) {
	tx := Transaction{Currency: "", Use: "  rent ", Comment: " march "}.WithDefaults("pkr")
	if tx.Currency != "PKR" || tx.Use != "rent" || tx.Comment != "march" {
		t.Fatalf("unexpected defaults: %+v", tx)
	}
	tx = Transaction{Currency: "usd"}.WithDefaults("PKR")
	if tx.Currency != "USD" {
		t.Fatalf("explicit currency must win, got %s", tx.Currency)
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"income", "I", "+"} {
		if k, err := ParseKind(s); err != nil || k != Income {
			t.Fatalf("%q: got %v %v", s, k, err)
		}
	}
	for _, s := range []string{"expense", "Expenses", "e", "-"} {
		if k, err := ParseKind(s); err != nil || k != Expense {
			t.Fatalf("%q: got %v %v", s, k, err)
		}
	}
	if _, err := ParseKind("transfer"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestTransactionJSONKindSetsSign(t *testing.T) {
	var tx Transaction
	body := `{"date":"2025-03-05","amount":"25.5","currency":"PKR","use":"food","kind":"expense"}`
	if err := json.Unmarshal([]byte(body), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("-25.5")) {
		t.Fatalf("expected -25.5, got %s", tx.Amount)
	}
	if !tx.Date.Equal(NewDate(2025, 3, 5)) {
		t.Fatalf("unexpected date %s", tx.Date)
	}
}

func TestEntryJSONIncludesPosition(t *testing.T) {
	e := Entry{Position: 3, Transaction: Transaction{
		Date: NewDate(2025, 1, 2), Amount: decimal.NewFromInt(-5), Currency: "PKR", Use: "bus",
	}}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["position"] != float64(3) || m["kind"] != "expense" || m["date"] != "02-01-2025" {
		t.Fatalf("unexpected json: %s", b)
	}
}
