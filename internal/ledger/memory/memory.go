package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/csvfile"
)

// Store keeps the ledger in process memory.
type Store struct {
	mu           sync.Mutex
	homeCurrency string
	items        []core.Transaction
}

var _ ledger.Store = (*Store)(nil)

func New(homeCurrency string, seed ...core.Transaction) *Store {
	return &Store{homeCurrency: homeCurrency, items: append([]core.Transaction(nil), seed...)}
}

// NewFromFile seeds the store from a CSV ledger. A missing or unreadable
// file yields an empty store.
func NewFromFile(path, homeCurrency string) *Store {
	txs, err := csvfile.ReadFile(path, homeCurrency)
	if err != nil {
		slog.Debug("Memory store starts empty", "seed", path, "error", err)
		return New(homeCurrency)
	}
	return New(homeCurrency, txs...)
}

func (s *Store) ReadAll(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...), nil
}

// Append stores the transaction and returns its position.
func (s *Store) Append(_ context.Context, t core.Transaction) (int, error) {
	t = t.WithDefaults(s.homeCurrency)
	if err := t.Validate(); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, t)
	return len(s.items) - 1, nil
}

func (s *Store) UpdateAt(_ context.Context, pos int, t core.Transaction) error {
	t = t.WithDefaults(s.homeCurrency)
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ledger.CheckPosition(pos, len(s.items)); err != nil {
		return err
	}
	s.items[pos] = t
	return nil
}

func (s *Store) DeleteAt(_ context.Context, pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ledger.CheckPosition(pos, len(s.items)); err != nil {
		return err
	}
	s.items = append(s.items[:pos], s.items[pos+1:]...)
	return nil
}
