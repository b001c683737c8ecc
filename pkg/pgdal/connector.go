package pgdal

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connector establishes database sessions from a ConnectionConfig.
type Connector interface {
	// Connect establishes a connection pool.
	// The returned pool should be closed by the caller when done.
	Connect(ctx context.Context) (*pgxpool.Pool, error)

	// ConnectSingle opens one unpooled connection for bulk-copy work.
	// The caller must Close it.
	ConnectSingle(ctx context.Context) (*pgx.Conn, error)
}
