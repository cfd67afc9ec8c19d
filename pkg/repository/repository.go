// Package repository runs parameterized statements against database/sql
// handles and scans their rows into domain values.
package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Executor is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Scanner is the row surface shared by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanFunc reads one row into T.
type ScanFunc[T any] func(Scanner) (T, error)

// Statement pairs SQL text with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Stmt adapts the (sql, args) pair returned by query builders.
func Stmt(sql string, args []any) Statement {
	return Statement{SQL: sql, Args: args}
}

// WithTx runs fn inside a transaction, committing when fn succeeds and
// rolling back otherwise.
func WithTx[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	return withTx(ctx, db, nil, fn)
}

func withTx[T any](ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) (T, error)) (out T, err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return out, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if out, err = fn(tx); err != nil {
		var zero T
		return zero, err
	}
	if err = tx.Commit(); err != nil {
		var zero T
		return zero, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// QueryOne scans the single row produced by query. A missing row surfaces
// as sql.ErrNoRows.
func QueryOne[T any](ctx context.Context, q Querier, query string, args []any, scan ScanFunc[T]) (T, error) {
	return scan(q.QueryRowContext(ctx, query, args...))
}

// QueryMany scans every row produced by query. No rows yields an empty,
// non-nil slice.
func QueryMany[T any](ctx context.Context, q Querier, query string, args []any, scan ScanFunc[T]) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// QueryPage runs count and page in one read-only, repeatable-read
// transaction so the reported total agrees with the rows returned.
func QueryPage[T any](ctx context.Context, db *sql.DB, count, page Statement, scan ScanFunc[T]) ([]T, int, error) {
	type result struct {
		items []T
		total int
	}

	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	res, err := withTx(ctx, db, opts, func(tx *sql.Tx) (result, error) {
		var r result
		if err := tx.QueryRowContext(ctx, count.SQL, count.Args...).Scan(&r.total); err != nil {
			return r, fmt.Errorf("count: %w", err)
		}
		items, err := QueryMany(ctx, tx, page.SQL, page.Args, scan)
		if err != nil {
			return r, fmt.Errorf("page: %w", err)
		}
		r.items = items
		return r, nil
	})
	return res.items, res.total, err
}

// ExecExpectOne runs a statement that must touch exactly one row.
// Zero affected rows surfaces as sql.ErrNoRows.
func ExecExpectOne(ctx context.Context, e Executor, query string, args ...any) error {
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	switch n, err := res.RowsAffected(); {
	case err != nil:
		return err
	case n == 0:
		return sql.ErrNoRows
	case n > 1:
		return fmt.Errorf("expected one row, affected %d", n)
	}
	return nil
}
