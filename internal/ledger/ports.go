// Package ledger defines the storage ports for the transaction ledger and the
// row codec shared by the tabular backends (CSV file, Google Sheets).
package ledger

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

var ErrNotFound = errors.New("no transaction at that position")

// Ports for outbound adapters. Positions are zero-based indexes into ReadAll order.
type (
	Reader interface {
		ReadAll(ctx context.Context) ([]core.Transaction, error)
	}

	Appender interface {
		// Append stores t at the end of the ledger and returns its position.
		Append(ctx context.Context, t core.Transaction) (position int, err error)
	}

	Updater interface {
		UpdateAt(ctx context.Context, position int, t core.Transaction) error
	}

	Deleter interface {
		// DeleteAt removes the transaction; later positions shift down by one.
		DeleteAt(ctx context.Context, position int) error
	}

	Store interface {
		Reader
		Appender
		Updater
		Deleter
	}
)

// Entries pairs transactions with their positions.
func Entries(txs []core.Transaction) []core.Entry {
	out := make([]core.Entry, len(txs))
	for i, t := range txs {
		out[i] = core.Entry{Position: i, Transaction: t}
	}
	return out
}

// CheckPosition returns ErrNotFound when pos is outside [0, n).
func CheckPosition(pos, n int) error {
	if pos < 0 || pos >= n {
		return ErrNotFound
	}
	return nil
}
