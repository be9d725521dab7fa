// Package worker keeps a mirror copy of the ledger in step with the primary
// backend, driven by change events and a periodic full sync.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
)

// Target receives full ledger snapshots.
type Target interface {
	ReplaceAll(ctx context.Context, txs []core.Transaction) error
}

// Stats describes the mirror's progress.
type Stats struct {
	Syncs    int64
	Failures int64
	LastSync time.Time
	LastRows int
}

// MirrorWorker copies the whole primary ledger to a target. Positions shift
// on delete, so every change is handled with a full snapshot rather than a
// per-row patch.
type MirrorWorker struct {
	source ledger.Reader
	target Target
	logger *applog.Logger

	mu    sync.Mutex
	stats Stats
}

func NewMirrorWorker(source ledger.Reader, target Target, logger *applog.Logger) *MirrorWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &MirrorWorker{
		source: source,
		target: target,
		logger: logger.WithComponent(applog.ComponentMirror),
	}
}

// Sync reads the primary ledger and overwrites the target with it.
func (w *MirrorWorker) Sync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	txs, err := w.source.ReadAll(ctx)
	if err != nil {
		w.stats.Failures++
		return fmt.Errorf("read primary ledger: %w", err)
	}
	if err := w.target.ReplaceAll(ctx, txs); err != nil {
		w.stats.Failures++
		return fmt.Errorf("write mirror: %w", err)
	}

	w.stats.Syncs++
	w.stats.LastSync = time.Now()
	w.stats.LastRows = len(txs)
	w.logger.DebugContext(ctx, "Mirror synced", "rows", len(txs))
	return nil
}

// HandleLedgerChange is the AMQP handler: any change triggers a full sync.
func (w *MirrorWorker) HandleLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger change",
		applog.FieldOperation, msg.Op,
		applog.FieldPosition, msg.Position)
	return w.Sync(ctx)
}

// Run syncs every interval until ctx is done. Failures are logged and
// retried on the next tick.
func (w *MirrorWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Sync(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic mirror sync failed", applog.FieldError, err, applog.FieldOperation, applog.OpSync)
			}
		}
	}
}

// Stats returns a copy of the progress counters.
func (w *MirrorWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
