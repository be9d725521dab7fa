package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Transaction is one row of the transactions table. Date is ISO YYYY-MM-DD so
// it sorts lexically; Amount is the decimal string.
type Transaction struct {
	ID       int64
	Position int64
	Date     string
	Amount   string
	Currency string
	Purpose  string
	Comment  string
}

const listTransactions = `SELECT id, position, date, amount, currency, purpose, comment
FROM transactions ORDER BY position`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.Position, &i.Date, &i.Amount, &i.Currency, &i.Purpose, &i.Comment); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const nextPosition = `SELECT COALESCE(MAX(position) + 1, 0) FROM transactions`

func (q *Queries) NextPosition(ctx context.Context) (int64, error) {
	var pos int64
	err := q.db.QueryRowContext(ctx, nextPosition).Scan(&pos)
	return pos, err
}

type CreateTransactionParams struct {
	Position int64
	Date     string
	Amount   string
	Currency string
	Purpose  string
	Comment  string
}

const createTransaction = `INSERT INTO transactions (position, date, amount, currency, purpose, comment)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createTransaction,
		arg.Position, arg.Date, arg.Amount, arg.Currency, arg.Purpose, arg.Comment,
	).Scan(&id)
	return id, err
}

type UpdateTransactionParams struct {
	Date     string
	Amount   string
	Currency string
	Purpose  string
	Comment  string
	Position int64
}

const updateTransaction = `UPDATE transactions
SET date = ?, amount = ?, currency = ?, purpose = ?, comment = ?, updated_at = CURRENT_TIMESTAMP
WHERE position = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Date, arg.Amount, arg.Currency, arg.Purpose, arg.Comment, arg.Position,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE position = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, position int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, position)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const shiftPositionsAfter = `UPDATE transactions SET position = position - 1 WHERE position > ?`

func (q *Queries) ShiftPositionsAfter(ctx context.Context, position int64) error {
	_, err := q.db.ExecContext(ctx, shiftPositionsAfter, position)
	return err
}

const countTransactions = `SELECT COUNT(*) FROM transactions`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactions).Scan(&n)
	return n, err
}
