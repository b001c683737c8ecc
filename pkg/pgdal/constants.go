package pgdal

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Command completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or parameters
	ExitConnectionError = 11 // Failed to connect to database
	ExitExecutionFailed = 13 // SQL, COPY or bulk insert failed
	ExitNotFound        = 14 // Template, CSV file or table not found
	ExitValidationError = 15 // Caller data rejected before touching the database
)

const (
	// DefaultSchema is the schema used when a TableRef omits one.
	DefaultSchema = "public"

	// DefaultBatchSize is the number of rows sent per round trip by BulkInsert.
	DefaultBatchSize = 1000

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// MaxErrorPreviewLength is the maximum number of characters of SQL
	// shown in error messages.
	MaxErrorPreviewLength = 200

	// ApplicationName is reported to PostgreSQL as application_name.
	ApplicationName = "pgdal"
)

// PreviewSQL shortens sql to MaxErrorPreviewLength characters for error messages.
func PreviewSQL(sql string) string {
	runes := []rune(sql)
	if len(runes) <= MaxErrorPreviewLength {
		return sql
	}
	return string(runes[:MaxErrorPreviewLength]) + "..."
}
