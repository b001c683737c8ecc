package pgdal

import (
	"errors"
	"strings"
)

// Sentinel errors for the failure classes surfaced by pgdal.
// Callers distinguish them with errors.Is().
//
// Example usage:
//
//	table, err := transfer.FetchTable(ctx, ref)
//	if errors.Is(err, pgdal.ErrNotFound) {
//	    // table does not exist
//	}
var (
	// ErrNotFound indicates a missing SQL template, CSV file or table.
	ErrNotFound = errors.New("not found")

	// ErrExecutionFailed indicates statement execution, bulk copy or bulk insert failed.
	// The enclosing transaction has already been rolled back when it is returned.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrConnectionFailed indicates a database session could not be established.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrValidation indicates caller-supplied data is structurally invalid.
	// Raised before any database interaction.
	ErrValidation = errors.New("validation failed")

	// ErrTableExists indicates a bulk insert in fail mode found an existing target table.
	ErrTableExists = errors.New("table already exists")

	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

var usageErrorPatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"requires at least",
	"required flag",
	"invalid argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrTableExists), errors.Is(err, ErrValidation):
		return ExitValidationError
	case errors.Is(err, ErrExecutionFailed):
		return ExitExecutionFailed
	}

	errStr := err.Error()

	// cobra reports usage problems as plain errors
	for _, pattern := range usageErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return ExitUsageError
		}
	}

	// Connection errors that escaped classification
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
