package pgdal

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the minimal statement capability shared by pools and transactions.
// It decouples services from concrete pgx types so they can run against fakes.
type Querier interface {
	// Exec executes a statement without returning rows.
	// With no args, the text may contain several statements.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// Query executes a statement that returns rows.
	// The caller must Close the returned Rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a query expected to return at most one row.
	// Errors are deferred until Scan.
	QueryRow(ctx context.Context, sql string, args ...any) RowScanner

	// SendBatch sends all queued statements in one round trip.
	// The caller must Close the returned results.
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// DBConnection is a session source that can start transactions.
//
// Thread-Safety: implementations follow the underlying pool's guarantees.
type DBConnection interface {
	Querier

	// Begin starts a transaction. The caller must Commit or Rollback it.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a transaction scoped to one call.
type Tx interface {
	Querier

	Commit(ctx context.Context) error

	// Rollback aborts the transaction. Calling it after Commit is a no-op
	// returning pgx.ErrTxClosed, so it is safe to defer.
	Rollback(ctx context.Context) error
}

// Rows iterates over a result set.
type Rows interface {
	// Columns returns result column names in projection order.
	Columns() []string
	Next() bool
	Values() ([]any, error)
	Err() error
	Close()
}

// RowScanner represents a single row returned by QueryRow.
type RowScanner interface {
	Scan(dest ...any) error
}

// CopySession is a dedicated low-level session able to stream COPY data.
// It is never pooled; Close ends the session.
type CopySession interface {
	Begin(ctx context.Context) (CopyTx, error)
	Close(ctx context.Context) error
}

// CopyTx is a transaction on a CopySession.
type CopyTx interface {
	// CopyFrom streams r to the server using the COPY ... FROM STDIN statement sql.
	CopyFrom(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
