// Package db abstracts the relational store used for Docker state tracking.
// The interfaces cover exactly the surface the repositories need so tests can
// substitute fakes without a live server.
package db

import (
	"context"
	"database/sql"
)

// Database is a connection pool to one relational database.
type Database interface {
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) Row
	Exec(ctx context.Context, query string, args ...interface{}) (Result, error)

	// Transaction runs fn inside a transaction, committing on nil and
	// rolling back on error.
	Transaction(ctx context.Context, fn func(tx Transaction) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Rows is an iterator over a query result.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Row is a single-row query result.
type Row interface {
	Scan(dest ...interface{}) error
}

// Result reports the outcome of a statement that returns no rows.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Transaction is the in-transaction view of a database.
type Transaction interface {
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) Row
	Exec(ctx context.Context, query string, args ...interface{}) (Result, error)
	Commit() error
	Rollback() error
}

// TxOptions mirrors the subset of sql.TxOptions callers configure.
type TxOptions struct {
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

// ConvertTxOptions maps TxOptions onto the database/sql equivalent.
func ConvertTxOptions(opts *TxOptions) *sql.TxOptions {
	if opts == nil {
		return nil
	}
	return &sql.TxOptions{Isolation: opts.Isolation, ReadOnly: opts.ReadOnly}
}
