package worker

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger/csvfile"
	"fintrack/internal/ledger/memory"
	applog "fintrack/internal/log"
)

func quiet() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func tx(date string, amount int64, use string) core.Transaction {
	return core.Transaction{Date: core.MustParseDate(date), Amount: decimal.NewFromInt(amount), Currency: "EUR", Use: use}
}

type recordingTarget struct {
	mu    sync.Mutex
	calls int
	last  []core.Transaction
	err   error
}

func (r *recordingTarget) ReplaceAll(_ context.Context, txs []core.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.last = append([]core.Transaction(nil), txs...)
	return nil
}

func (r *recordingTarget) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestMirrorWorkerHandleLedgerChange(t *testing.T) {
	ctx := context.Background()
	source := memory.New("EUR", tx("01-03-2025", 100, "Gift"))
	target := &recordingTarget{}
	w := NewMirrorWorker(source, target, quiet())

	if _, err := source.Append(ctx, tx("02-03-2025", -20, "Taxi")); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleLedgerChange(ctx, amqp.NewLedgerChangeMessage("append", 1)); err != nil {
		t.Fatalf("HandleLedgerChange: %v", err)
	}

	if len(target.last) != 2 || target.last[1].Use != "Taxi" {
		t.Errorf("mirror = %+v", target.last)
	}
	if s := w.Stats(); s.Syncs != 1 || s.LastRows != 2 || s.LastSync.IsZero() {
		t.Errorf("stats = %+v", s)
	}
}

func TestMirrorWorkerTargetFailure(t *testing.T) {
	target := &recordingTarget{err: errors.New("disk full")}
	w := NewMirrorWorker(memory.New("EUR"), target, quiet())

	if err := w.Sync(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if s := w.Stats(); s.Failures != 1 || s.Syncs != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestMirrorWorkerToCSV(t *testing.T) {
	ctx := context.Background()
	source := memory.New("EUR", tx("01-03-2025", 100, "Gift"), tx("02-03-2025", -20, "Taxi"))
	path := filepath.Join(t.TempDir(), "mirror", "ledger.csv")
	w := NewMirrorWorker(source, csvfile.New(path, "EUR"), quiet())

	if err := w.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	if err := source.DeleteAt(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if err := w.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := csvfile.ReadFile(path, "EUR")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Use != "Taxi" {
		t.Errorf("mirror file = %+v", got)
	}
}

func TestMirrorWorkerRun(t *testing.T) {
	target := &recordingTarget{}
	w := NewMirrorWorker(memory.New("EUR"), target, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for target.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("periodic sync did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
