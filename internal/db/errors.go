package db

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// Classify returns the pgdal sentinel matching a driver error:
// ErrConnectionFailed when the session itself broke or never came up,
// ErrExecutionFailed for everything the server rejected.
func Classify(err error) error {
	if IsConnectionError(err) {
		return pgdal.ErrConnectionFailed
	}
	return pgdal.ErrExecutionFailed
}

// IsConnectionError reports whether err means the database session is unusable.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, pgdal.ErrConnectionFailed) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01"
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	// Canceled or expired contexts are the caller's choice, not a broken session
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || pgconn.SafeToRetry(err)
}
