package csvfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func sample(day int, amount int64, use string) core.Transaction {
	return core.Transaction{
		Date:     core.NewDate(2025, 1, day),
		Amount:   decimal.NewFromInt(amount),
		Currency: "PKR",
		Use:      use,
	}
}

func TestMissingFileCreatedWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	s := New(path, "PKR")
	txs, err := s.ReadAll(context.Background())
	if err != nil || len(txs) != 0 {
		t.Fatalf("expected empty ledger, got %v %v", txs, err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}
	if strings.TrimSpace(string(b)) != "Date,Amount,Currency,Use,Comment" {
		t.Fatalf("unexpected content %q", b)
	}
}

func TestAppendUpdateDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	s := New(path, "PKR")

	for i, tx := range []core.Transaction{sample(1, 1000, "salary"), sample(2, -50, "food"), sample(3, -20, "bus")} {
		pos, err := s.Append(ctx, tx)
		if err != nil || pos != i {
			t.Fatalf("append %d: pos=%d err=%v", i, pos, err)
		}
	}

	if err := s.UpdateAt(ctx, 1, sample(2, -55, "groceries")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.DeleteAt(ctx, 0); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// a fresh store sees the persisted state
	txs, err := New(path, "PKR").ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(txs) != 2 || txs[0].Use != "groceries" || !txs[0].Amount.Equal(decimal.NewFromInt(-55)) || txs[1].Use != "bus" {
		t.Fatalf("unexpected ledger: %+v", txs)
	}

	if err := s.DeleteAt(ctx, 2); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateAt(ctx, -1, sample(1, 1, "x")); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "data.csv"), "PKR")
	_, err := s.Append(context.Background(), core.Transaction{Date: core.NewDate(2025, 1, 1), Use: "x"})
	if !errors.Is(err, core.ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
}

func TestAppendDefaultsCurrency(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "data.csv"), "pkr")
	tx := sample(4, -9, "tea")
	tx.Currency = ""
	if _, err := s.Append(ctx, tx); err != nil {
		t.Fatalf("append: %v", err)
	}
	txs, _ := s.ReadAll(ctx)
	if txs[0].Currency != "PKR" {
		t.Fatalf("expected PKR, got %q", txs[0].Currency)
	}
}

func TestMigrateLegacy(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.csv")
	legacy := "Date,Amount,Category,Use\n01-01-2025,1000,Z,salary\n2025/01/02,200,X,rent\n"
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := New(path, "PKR")

	migrated, n, err := s.MigrateLegacy(ctx)
	if err != nil || !migrated || n != 2 {
		t.Fatalf("migrate: migrated=%v n=%d err=%v", migrated, n, err)
	}
	b, _ := os.ReadFile(path)
	want := "Date,Amount,Currency,Use,Comment\n01-01-2025,1000.00,PKR,salary,\n02-01-2025,-200.00,PKR,rent,\n"
	if string(b) != want {
		t.Fatalf("unexpected migrated file:\n%s", b)
	}

	migrated, _, err = s.MigrateLegacy(ctx)
	if err != nil || migrated {
		t.Fatalf("second migration should be a no-op: %v %v", migrated, err)
	}
}

func TestDecodeBadHeader(t *testing.T) {
	_, _, err := Decode(strings.NewReader("foo,bar\n1,2\n"), "PKR")
	if !errors.Is(err, ledger.ErrBadHeader) {
		t.Fatalf("expected ErrBadHeader, got %v", err)
	}
}

func TestAmountsKeepFullPrecision(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.csv")
	s := New(path, "PKR")

	amounts := []string{"0.004", "10.125", "-3.5", "-0.0001"}
	for i, a := range amounts {
		tx := sample(i+1, 0, "misc")
		tx.Amount = decimal.RequireFromString(a)
		if _, err := s.Append(ctx, tx); err != nil {
			t.Fatalf("append %s: %v", a, err)
		}
	}

	txs, err := New(path, "PKR").ReadAll(ctx)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(txs) != len(amounts) {
		t.Fatalf("expected %d rows, got %d", len(amounts), len(txs))
	}
	for i, a := range amounts {
		if !txs[i].Amount.Equal(decimal.RequireFromString(a)) {
			t.Errorf("row %d: stored %s, appended %s", i, txs[i].Amount, a)
		}
	}
}
