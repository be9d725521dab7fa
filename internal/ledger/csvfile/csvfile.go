// Package csvfile stores the ledger as a flat CSV file with a fixed header.
// Every write rewrites the whole file through a temp file and a rename.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type Store struct {
	mu           sync.Mutex
	path         string
	homeCurrency string
}

var _ ledger.Store = (*Store)(nil)

func New(path, homeCurrency string) *Store {
	return &Store{path: path, homeCurrency: homeCurrency}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// ReadAll loads every transaction. A missing file is created with the
// canonical header and yields an empty ledger.
func (s *Store) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, _, err := s.load(ctx)
	return txs, err
}

func (s *Store) Append(ctx context.Context, t core.Transaction) (int, error) {
	t = t.WithDefaults(s.homeCurrency)
	if err := t.Validate(); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, _, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	txs = append(txs, t)
	if err := s.write(ctx, txs); err != nil {
		return 0, err
	}
	return len(txs) - 1, nil
}

func (s *Store) UpdateAt(ctx context.Context, pos int, t core.Transaction) error {
	t = t.WithDefaults(s.homeCurrency)
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, _, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := ledger.CheckPosition(pos, len(txs)); err != nil {
		return err
	}
	txs[pos] = t
	return s.write(ctx, txs)
}

func (s *Store) DeleteAt(ctx context.Context, pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, _, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := ledger.CheckPosition(pos, len(txs)); err != nil {
		return err
	}
	txs = append(txs[:pos], txs[pos+1:]...)
	return s.write(ctx, txs)
}

// ReplaceAll overwrites the file with txs, used to keep a mirror in step
// with another ledger.
func (s *Store) ReplaceAll(ctx context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, txs)
}

// MigrateLegacy rewrites a file written with the legacy Category layout in
// the canonical layout. It reports whether a rewrite happened.
func (s *Store) MigrateLegacy(ctx context.Context) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, schema, err := s.load(ctx)
	if err != nil {
		return false, 0, err
	}
	if schema != ledger.SchemaLegacy {
		return false, len(txs), nil
	}
	if err := s.write(ctx, txs); err != nil {
		return false, 0, err
	}
	slog.InfoContext(ctx, "Migrated legacy ledger", "path", s.path, "rows", len(txs))
	return true, len(txs), nil
}

func (s *Store) load(ctx context.Context) ([]core.Transaction, ledger.Schema, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.write(ctx, nil); err != nil {
			return nil, ledger.SchemaCanonical, fmt.Errorf("create ledger: %w", err)
		}
		return nil, ledger.SchemaCanonical, nil
	}
	if err != nil {
		return nil, ledger.SchemaCanonical, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()
	return Decode(f, s.homeCurrency)
}

func (s *Store) write(ctx context.Context, txs []core.Transaction) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, txs); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	slog.DebugContext(ctx, "Ledger written", "path", s.path, "rows", len(txs))
	return nil
}

// Decode reads a ledger table in either layout. An empty input is an empty ledger.
func Decode(r io.Reader, homeCurrency string) ([]core.Transaction, ledger.Schema, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ledger.SchemaCanonical, nil
	}
	if err != nil {
		return nil, ledger.SchemaCanonical, fmt.Errorf("read header: %w", err)
	}
	codec, err := ledger.NewCodec(header, homeCurrency)
	if err != nil {
		return nil, ledger.SchemaCanonical, err
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, codec.Schema, fmt.Errorf("read rows: %w", err)
	}
	txs, err := codec.DecodeAll(rows)
	if err != nil {
		return nil, codec.Schema, err
	}
	return txs, codec.Schema, nil
}

// Encode writes txs with the canonical header.
func Encode(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledger.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, t := range txs {
		if err := cw.Write(ledger.Encode(t)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFile decodes the ledger at path without creating it.
func ReadFile(path, homeCurrency string) ([]core.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	txs, _, err := Decode(f, homeCurrency)
	return txs, err
}
