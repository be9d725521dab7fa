package google

import (
	"testing"

	"fintrack/internal/ledger"
)

func TestParseRows_SkipsBlankRowsKeepingSheetRows(t *testing.T) {
	values := [][]interface{}{
		{"Date", "Amount", "Currency", "Use", "Comment"},
		{"01-01-2025", 1000.0, "PKR", "Salary"},
		{"", "", "", "", ""},
		{"02-01-2025", "-50.25", "PKR", "Groceries", "weekly"},
	}
	txs, rows, schema, err := parseRows(values, "PKR")
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if schema != ledger.SchemaCanonical {
		t.Fatalf("unexpected schema %v", schema)
	}
	if len(txs) != 2 || rows[0] != 2 || rows[1] != 4 {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if txs[1].Comment != "weekly" || txs[1].Amount.String() != "-50.25" {
		t.Fatalf("unexpected tx: %+v", txs[1])
	}
}

func TestParseRows_Empty(t *testing.T) {
	txs, rows, _, err := parseRows(nil, "PKR")
	if err != nil || txs != nil || rows != nil {
		t.Fatalf("expected empty result, got %v %v %v", txs, rows, err)
	}
}

func TestParseRows_BadRow(t *testing.T) {
	values := [][]interface{}{
		{"Date", "Amount", "Currency", "Use", "Comment"},
		{"yesterday-ish", "10", "PKR", "x"},
	}
	if _, _, _, err := parseRows(values, "PKR"); err == nil {
		t.Fatalf("expected parse error")
	}
}
