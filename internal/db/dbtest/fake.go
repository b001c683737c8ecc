// Package dbtest provides in-memory fakes of the pgdal database capability
// interfaces for unit tests.
package dbtest

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// Call records one statement sent through a fake.
type Call struct {
	SQL  string
	Args []any
}

// Conn is a scriptable pgdal.DBConnection. Unset funcs succeed with empty
// results. Every statement, including those run inside transactions and
// batches, is appended to Calls.
type Conn struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgdal.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgdal.RowScanner
	BatchFunc    func(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	BeginErr     error
	CommitErr    error

	mu         sync.Mutex
	Calls      []Call
	Begun      int
	Committed  int
	RolledBack int
}

func (c *Conn) record(sql string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, Call{SQL: sql, Args: args})
}

// SQL returns the recorded statements in order.
func (c *Conn) SQL() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.Calls))
	for i, call := range c.Calls {
		out[i] = call.SQL
	}
	return out
}

func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.record(sql, args)
	if c.ExecFunc != nil {
		return c.ExecFunc(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("SELECT 0"), nil
}

func (c *Conn) Query(ctx context.Context, sql string, args ...any) (pgdal.Rows, error) {
	c.record(sql, args)
	if c.QueryFunc != nil {
		return c.QueryFunc(ctx, sql, args...)
	}
	return &Rows{}, nil
}

func (c *Conn) QueryRow(ctx context.Context, sql string, args ...any) pgdal.RowScanner {
	c.record(sql, args)
	if c.QueryRowFunc != nil {
		return c.QueryRowFunc(ctx, sql, args...)
	}
	return &Row{}
}

func (c *Conn) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	for _, q := range b.QueuedQueries {
		c.record(q.SQL, q.Arguments)
	}
	if c.BatchFunc != nil {
		return c.BatchFunc(ctx, b)
	}
	return &BatchResults{}
}

func (c *Conn) Begin(ctx context.Context) (pgdal.Tx, error) {
	if c.BeginErr != nil {
		return nil, c.BeginErr
	}
	c.mu.Lock()
	c.Begun++
	c.mu.Unlock()
	return &Tx{conn: c}, nil
}

// Tx routes statements to its parent Conn and counts outcomes there.
type Tx struct {
	conn *Conn
	done bool
}

func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.conn.Exec(ctx, sql, args...)
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgdal.Rows, error) {
	return t.conn.Query(ctx, sql, args...)
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgdal.RowScanner {
	return t.conn.QueryRow(ctx, sql, args...)
}

func (t *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return t.conn.SendBatch(ctx, b)
}

func (t *Tx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	if t.conn.CommitErr != nil {
		t.conn.mu.Lock()
		t.conn.RolledBack++
		t.conn.mu.Unlock()
		return t.conn.CommitErr
	}
	t.conn.mu.Lock()
	t.conn.Committed++
	t.conn.mu.Unlock()
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.conn.mu.Lock()
	t.conn.RolledBack++
	t.conn.mu.Unlock()
	return nil
}

// Rows serves a fixed result set. Err, when set, is reported after the
// rows are exhausted.
type Rows struct {
	Cols   []string
	Data   [][]any
	ErrEnd error

	pos    int
	Closed bool
}

// NewRows builds a result set.
func NewRows(cols []string, data ...[]any) *Rows {
	return &Rows{Cols: cols, Data: data}
}

func (r *Rows) Columns() []string { return r.Cols }

func (r *Rows) Next() bool {
	if r.Closed || r.pos >= len(r.Data) {
		return false
	}
	r.pos++
	return true
}

func (r *Rows) Values() ([]any, error) {
	if r.pos == 0 || r.pos > len(r.Data) {
		return nil, errors.New("no current row")
	}
	return r.Data[r.pos-1], nil
}

func (r *Rows) Err() error {
	if r.pos >= len(r.Data) {
		return r.ErrEnd
	}
	return nil
}

func (r *Rows) Close() { r.Closed = true }

// Consumed reports how many rows were read.
func (r *Rows) Consumed() int { return r.pos }

// Row answers QueryRow scans.
type Row struct {
	Values []any
	Err    error
}

func (r *Row) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	for i := range dest {
		if i >= len(r.Values) {
			break
		}
		switch d := dest[i].(type) {
		case *bool:
			*d = r.Values[i].(bool)
		case *int64:
			*d = r.Values[i].(int64)
		case *string:
			*d = r.Values[i].(string)
		case *any:
			*d = r.Values[i]
		}
	}
	return nil
}

// BatchResults answers Exec calls on a sent batch. ExecErrs[i] fails the
// i-th queued statement.
type BatchResults struct {
	ExecErrs map[int]error
	CloseErr error

	n int
}

func (b *BatchResults) Exec() (pgconn.CommandTag, error) {
	i := b.n
	b.n++
	if err := b.ExecErrs[i]; err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (b *BatchResults) Query() (pgx.Rows, error) {
	return nil, errors.New("dbtest: Query not supported on batch results")
}

func (b *BatchResults) QueryRow() pgx.Row {
	return &Row{Err: errors.New("dbtest: QueryRow not supported on batch results")}
}

func (b *BatchResults) Close() error { return b.CloseErr }

// CopySession is a fake pgdal.CopySession that reads the stream into Data.
type CopySession struct {
	BeginErr error
	CopyErr  error
	// Rows is reported in the command tag; defaults to the number of
	// newline characters after the header line.
	Rows int64

	Data       []byte
	SQL        string
	Committed  bool
	RolledBack bool
	Closed     bool
}

func (s *CopySession) Begin(context.Context) (pgdal.CopyTx, error) {
	if s.BeginErr != nil {
		return nil, s.BeginErr
	}
	return &copyTx{s: s}, nil
}

func (s *CopySession) Close(context.Context) error {
	s.Closed = true
	return nil
}

type copyTx struct {
	s *CopySession
}

func (t *copyTx) CopyFrom(_ context.Context, r io.Reader, sql string) (pgconn.CommandTag, error) {
	t.s.SQL = sql
	data, err := io.ReadAll(r)
	t.s.Data = data
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	if t.s.CopyErr != nil {
		return pgconn.CommandTag{}, t.s.CopyErr
	}
	n := t.s.Rows
	if n == 0 {
		lines := int64(0)
		for _, b := range data {
			if b == '\n' {
				lines++
			}
		}
		if lines > 0 {
			n = lines - 1
		}
	}
	return pgconn.NewCommandTag("COPY " + strconv.FormatInt(n, 10)), nil
}

func (t *copyTx) Commit(context.Context) error {
	t.s.Committed = true
	return nil
}

func (t *copyTx) Rollback(context.Context) error {
	if t.s.Committed {
		return pgx.ErrTxClosed
	}
	t.s.RolledBack = true
	return nil
}

var (
	_ pgdal.DBConnection = (*Conn)(nil)
	_ pgdal.Tx           = (*Tx)(nil)
	_ pgdal.Rows         = (*Rows)(nil)
	_ pgx.BatchResults   = (*BatchResults)(nil)
	_ pgdal.CopySession  = (*CopySession)(nil)
)
