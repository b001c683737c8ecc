package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// StandardConnector opens sessions for every pgdal.AuthMethod. It makes a
// single attempt; callers that want retries wrap it with retry.Executor.
//
// Close releases authentication resources (the Cloud SQL dialer) and must
// run after every pool and connection it opened is closed.
type StandardConnector struct {
	config *pgdal.ConnectionConfig
	logger pgdal.Logger
	auth   authenticator
}

// ConnectorOption customizes NewConnector.
type ConnectorOption func(*connectorOptions)

type connectorOptions struct {
	tokenProvider TokenProvider
}

// WithTokenProvider replaces the cloud token provider chosen from
// config.AuthMethod. It only applies to token-based methods.
func WithTokenProvider(p TokenProvider) ConnectorOption {
	return func(o *connectorOptions) { o.tokenProvider = p }
}

// NewConnector validates config and returns a StandardConnector.
// Server notices are forwarded to logger at verbose level.
// Panics if config or logger is nil.
func NewConnector(config *pgdal.ConnectionConfig, logger pgdal.Logger, opts ...ConnectorOption) (*StandardConnector, error) {
	if config == nil {
		panic("config cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var o connectorOptions
	for _, opt := range opts {
		opt(&o)
	}
	auth, err := newAuthenticator(config, o.tokenProvider, logger)
	if err != nil {
		return nil, err
	}
	return &StandardConnector{config: config, logger: logger, auth: auth}, nil
}

// Close releases authentication resources.
func (c *StandardConnector) Close() error {
	if c.auth == nil {
		return nil
	}
	return c.auth.Close()
}

func (c *StandardConnector) onNotice(_ *pgconn.PgConn, notice *pgconn.Notice) {
	c.logger.Verbose("%s: %s", notice.Severity, notice.Message)
}

// Connect establishes a connection pool and pings it.
// The caller must Close the pool.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(BuildConnectionString(c.config))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %v: %w", err, pgdal.ErrInvalidConfig)
	}
	poolConfig.ConnConfig.OnNotice = c.onNotice
	poolConfig.BeforeConnect = c.prepare

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, c.wrap(err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, c.wrap(err)
	}

	c.logger.Verbose("connected to %s:%d/%s", c.config.Host, c.config.Port, c.config.Database)
	return pool, nil
}

// ConnectSingle opens one unpooled connection, used for COPY streaming.
// The caller must Close it.
func (c *StandardConnector) ConnectSingle(ctx context.Context) (*pgx.Conn, error) {
	connConfig, err := pgx.ParseConfig(BuildConnectionString(c.config))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %v: %w", err, pgdal.ErrInvalidConfig)
	}
	connConfig.OnNotice = c.onNotice
	if err := c.prepare(ctx, connConfig); err != nil {
		return nil, err
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, c.wrap(err)
	}
	return conn, nil
}

func (c *StandardConnector) prepare(ctx context.Context, cc *pgx.ConnConfig) error {
	if c.auth == nil {
		return nil
	}
	return c.auth.prepare(ctx, cc)
}

func (c *StandardConnector) wrap(err error) error {
	return fmt.Errorf("%w: %w", pgdal.ErrConnectionFailed,
		wrapConnectionError(err, c.config.Host, c.config.Port, c.config.Database))
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port

Original error: %w`, addr, host, port, err)

	case strings.Contains(errStr, "no such host"):
		return fmt.Errorf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable

Original error: %w`, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or the connection string)
  - Wrong username

Original error: %w`, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`database "%s" does not exist

To create it:
  createdb %s

Original error: %w`, database, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets

Original error: %w`, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls") || strings.Contains(errStr, "certificate"):
		return fmt.Errorf(`SSL/TLS connection error

Possible causes:
  - Server requires SSL but --sslmode is wrong
  - Certificate verification failed (check --sslrootcert)
  - Client certificates missing (check --sslcert, --sslkey)

Original error: %w`, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`too many connections to database "%s"

max_connections has been reached on the server.

Original error: %w`, database, err)

	default:
		return fmt.Errorf("failed to connect to database: %w", err)
	}
}

var _ pgdal.Connector = (*StandardConnector)(nil)
