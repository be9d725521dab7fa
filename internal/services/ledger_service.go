package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
)

// ErrMigrationUnsupported is returned when the backend has no legacy layout to convert.
var ErrMigrationUnsupported = errors.New("backend does not support legacy migration")

// ChangePublisher announces ledger mutations. Implemented by amqp.Client.
type ChangePublisher interface {
	PublishLedgerChange(ctx context.Context, op string, position int) error
}

// LegacyMigrator is implemented by stores that can rewrite a legacy ledger.
type LegacyMigrator interface {
	MigrateLegacy(ctx context.Context) (migrated bool, rows int, err error)
}

// LedgerService orchestrates ledger operations over a store and an optional publisher
type LedgerService struct {
	store        ledger.Store
	publisher    ChangePublisher
	homeCurrency string
	log          *applog.StructuredLogger
}

// NewLedgerService wires a store. publisher may be nil.
func NewLedgerService(store ledger.Store, homeCurrency string, publisher ChangePublisher, logger *applog.Logger) *LedgerService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &LedgerService{
		store:        store,
		publisher:    publisher,
		homeCurrency: homeCurrency,
		log:          applog.NewStructuredLogger(logger.WithComponent(applog.ComponentLedger)),
	}
}

// HomeCurrency is the currency applied to transactions that carry none.
func (s *LedgerService) HomeCurrency() string { return s.homeCurrency }

// Transactions returns the ledger in stored order
func (s *LedgerService) Transactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return txs, nil
}

// Entries returns the ledger with positions attached
func (s *LedgerService) Entries(ctx context.Context) ([]core.Entry, error) {
	txs, err := s.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Entries(txs), nil
}

// Get returns the transaction at position
func (s *LedgerService) Get(ctx context.Context, position int) (core.Entry, error) {
	txs, err := s.Transactions(ctx)
	if err != nil {
		return core.Entry{}, err
	}
	if err := ledger.CheckPosition(position, len(txs)); err != nil {
		return core.Entry{}, fmt.Errorf("position %d: %w", position, err)
	}
	return core.Entry{Position: position, Transaction: txs[position]}, nil
}

// Add validates and appends a transaction, then publishes the change
func (s *LedgerService) Add(ctx context.Context, t core.Transaction) (core.Entry, error) {
	t = t.WithDefaults(s.homeCurrency)
	if err := t.Validate(); err != nil {
		return core.Entry{}, err
	}

	pos, err := s.store.Append(ctx, t)
	if err != nil {
		return core.Entry{}, fmt.Errorf("append transaction: %w", err)
	}

	s.changed(ctx, applog.OpAppend, pos, t)
	return core.Entry{Position: pos, Transaction: t}, nil
}

// Update replaces the transaction at position
func (s *LedgerService) Update(ctx context.Context, position int, t core.Transaction) (core.Entry, error) {
	t = t.WithDefaults(s.homeCurrency)
	if err := t.Validate(); err != nil {
		return core.Entry{}, err
	}

	if err := s.store.UpdateAt(ctx, position, t); err != nil {
		return core.Entry{}, fmt.Errorf("update position %d: %w", position, err)
	}

	s.changed(ctx, applog.OpUpdate, position, t)
	return core.Entry{Position: position, Transaction: t}, nil
}

// Delete removes the transaction at position; later positions shift down
func (s *LedgerService) Delete(ctx context.Context, position int) (core.Entry, error) {
	entry, err := s.Get(ctx, position)
	if err != nil {
		return core.Entry{}, err
	}

	if err := s.store.DeleteAt(ctx, position); err != nil {
		return core.Entry{}, fmt.Errorf("delete position %d: %w", position, err)
	}

	s.changed(ctx, applog.OpDelete, position, entry.Transaction)
	return entry, nil
}

// Filter returns the entries matching f, keeping their ledger positions
func (s *LedgerService) Filter(ctx context.Context, f core.Filter) ([]core.Entry, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(entries), nil
}

// Report bundles the summaries computed over one filtered snapshot.
type Report struct {
	Summary    core.Summary          `json:"summary"`
	Monthly    []core.MonthOverview  `json:"monthly"`
	Uses       []core.CategoryAmount `json:"uses"`
	Currencies []core.CategoryAmount `json:"currencies"`
}

// Summarize computes the totals, monthly breakdown and per-use and
// per-currency breakdowns of the entries matching f.
func (s *LedgerService) Summarize(ctx context.Context, f core.Filter) (Report, error) {
	entries, err := s.Filter(ctx, f)
	if err != nil {
		return Report{}, err
	}
	txs := core.Transactions(entries)
	return Report{
		Summary:    core.Summarize(txs),
		Monthly:    core.MonthlySummaries(txs),
		Uses:       core.ByUse(txs),
		Currencies: core.ByCurrency(txs),
	}, nil
}

// MigrateLegacy rewrites a legacy-layout ledger in the canonical layout.
func (s *LedgerService) MigrateLegacy(ctx context.Context) (bool, int, error) {
	m, ok := s.store.(LegacyMigrator)
	if !ok {
		return false, 0, ErrMigrationUnsupported
	}
	migrated, rows, err := m.MigrateLegacy(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("migrate legacy ledger: %w", err)
	}
	if migrated {
		slog.InfoContext(ctx, "Legacy ledger migrated", "rows", rows)
	}
	return migrated, rows, nil
}

func (s *LedgerService) changed(ctx context.Context, op string, position int, t core.Transaction) {
	s.log.LogLedgerChange(ctx, op, position, t.Date.String(), core.EncodeAmount(t.Amount), t.Currency, t.Use)

	if s.publisher == nil {
		return
	}
	// The ledger is already written; a failed notification is only logged.
	if err := s.publisher.PublishLedgerChange(ctx, op, position); err != nil {
		s.log.LogError(ctx, "Failed to publish ledger change", err, applog.ComponentAMQP, applog.OpPublish,
			applog.NewFields().WithTransaction(position, t.Date.String(), core.EncodeAmount(t.Amount), t.Currency, t.Use))
	}
}
