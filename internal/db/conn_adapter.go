package db

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// ConnAdapter adapts a dedicated *pgx.Conn to pgdal.CopySession.
// COPY runs on the connection's underlying PgConn inside a transaction, so
// a failed stream leaves no rows behind.
type ConnAdapter struct {
	conn *pgx.Conn
}

// NewConnAdapter takes ownership of conn; Close closes it.
func NewConnAdapter(conn *pgx.Conn) *ConnAdapter {
	return &ConnAdapter{conn: conn}
}

func (c *ConnAdapter) Begin(ctx context.Context) (pgdal.CopyTx, error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &copyTxAdapter{tx: tx}, nil
}

func (c *ConnAdapter) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

type copyTxAdapter struct {
	tx pgx.Tx
}

func (t *copyTxAdapter) CopyFrom(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error) {
	return t.tx.Conn().PgConn().CopyFrom(ctx, r, sql)
}

func (t *copyTxAdapter) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *copyTxAdapter) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

var (
	_ pgdal.CopySession = (*ConnAdapter)(nil)
	_ pgdal.CopyTx      = (*copyTxAdapter)(nil)
)
