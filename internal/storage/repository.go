package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"

	_ "modernc.org/sqlite"
)

// isoDate keeps stored dates lexically sortable.
const isoDate = "2006-01-02"

type SQLiteRepository struct {
	db           *sql.DB
	queries      *Queries
	homeCurrency string
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath, homeCurrency string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Ledger schema ready", "db_path", dbPath, "version", version)

	return &SQLiteRepository{
		db:           db,
		queries:      New(db),
		homeCurrency: homeCurrency,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReadAll implements ledger.Reader
func (r *SQLiteRepository) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := fromRow(row)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", row.ID, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Append implements ledger.Appender
func (r *SQLiteRepository) Append(ctx context.Context, t core.Transaction) (int, error) {
	t = t.WithDefaults(r.homeCurrency)
	if err := t.Validate(); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}

	var pos, id int64
	err := r.inTx(ctx, func(q *Queries) error {
		var err error
		if pos, err = q.NextPosition(ctx); err != nil {
			return fmt.Errorf("next position: %w", err)
		}
		p := toRow(t)
		id, err = q.CreateTransaction(ctx, CreateTransactionParams{
			Position: pos,
			Date:     p.Date,
			Amount:   p.Amount,
			Currency: p.Currency,
			Purpose:  p.Purpose,
			Comment:  p.Comment,
		})
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"position", pos,
		"use", t.Use,
		"amount", t.Amount.String(),
		"date", t.Date.String())

	return int(pos), nil
}

// UpdateAt implements ledger.Updater
func (r *SQLiteRepository) UpdateAt(ctx context.Context, pos int, t core.Transaction) error {
	t = t.WithDefaults(r.homeCurrency)
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	p := toRow(t)
	n, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		Date:     p.Date,
		Amount:   p.Amount,
		Currency: p.Currency,
		Purpose:  p.Purpose,
		Comment:  p.Comment,
		Position: int64(pos),
	})
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// DeleteAt implements ledger.Deleter. Later positions are renumbered in the
// same database transaction.
func (r *SQLiteRepository) DeleteAt(ctx context.Context, pos int) error {
	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.DeleteTransaction(ctx, int64(pos))
		if err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		if n == 0 {
			return ledger.ErrNotFound
		}
		if err := q.ShiftPositionsAfter(ctx, int64(pos)); err != nil {
			return fmt.Errorf("renumber positions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "position", pos)
	return nil
}

// Count returns the number of stored transactions.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	n, err := r.queries.CountTransactions(ctx)
	return int(n), err
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.WarnContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}

func toRow(t core.Transaction) Transaction {
	return Transaction{
		Date:     t.Date.Time.Format(isoDate),
		Amount:   t.Amount.String(),
		Currency: t.Currency,
		Purpose:  t.Use,
		Comment:  t.Comment,
	}
}

func fromRow(row Transaction) (core.Transaction, error) {
	d, err := time.Parse(isoDate, row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", core.ErrInvalidDate, err)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
	}
	return core.Transaction{
		Date:     core.DateOf(d),
		Amount:   amount,
		Currency: row.Currency,
		Use:      row.Purpose,
		Comment:  row.Comment,
	}, nil
}
