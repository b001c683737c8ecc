package pgdal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// FetchMode selects what QueryExecutor returns after a template executes.
// It never affects whether the statement executes or commits.
type FetchMode int

const (
	FetchNone FetchMode = iota // Execute only
	FetchOne                   // First row, or nil when the result set is empty
	FetchAll                   // Every row in database order
)

// String returns the flag spelling of the FetchMode.
func (m FetchMode) String() string {
	switch m {
	case FetchNone:
		return "none"
	case FetchOne:
		return "one"
	case FetchAll:
		return "all"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// IsValid returns true if the FetchMode is a defined value.
func (m FetchMode) IsValid() bool {
	return m >= FetchNone && m <= FetchAll
}

// ParseFetchMode parses "none", "one" or "all" (case-insensitive).
func ParseFetchMode(s string) (FetchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return FetchNone, nil
	case "one":
		return FetchOne, nil
	case "all":
		return FetchAll, nil
	default:
		return FetchNone, fmt.Errorf("unknown fetch mode %q (expected none, one or all): %w", s, ErrInvalidConfig)
	}
}

// InsertMode controls how BulkInsert treats an existing target table.
type InsertMode int

const (
	InsertFail    InsertMode = iota // Error if the table exists
	InsertReplace                   // Drop and recreate before inserting
	InsertAppend                    // Insert alongside existing rows
)

// String returns the flag spelling of the InsertMode.
func (m InsertMode) String() string {
	switch m {
	case InsertFail:
		return "fail"
	case InsertReplace:
		return "replace"
	case InsertAppend:
		return "append"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// IsValid returns true if the InsertMode is a defined value.
func (m InsertMode) IsValid() bool {
	return m >= InsertFail && m <= InsertAppend
}

// ParseInsertMode parses "fail", "replace" or "append" (case-insensitive).
func ParseInsertMode(s string) (InsertMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fail", "":
		return InsertFail, nil
	case "replace":
		return InsertReplace, nil
	case "append":
		return InsertAppend, nil
	default:
		return InsertFail, fmt.Errorf("unknown insert mode %q (expected fail, replace or append): %w", s, ErrInvalidConfig)
	}
}

// TableRef identifies a table by schema and name.
// The zero Schema means DefaultSchema.
type TableRef struct {
	Schema string
	Name   string
}

// NewTableRef returns a TableRef, defaulting schema to DefaultSchema.
func NewTableRef(schema, name string) TableRef {
	if schema == "" {
		schema = DefaultSchema
	}
	return TableRef{Schema: schema, Name: name}
}

// ParseTableRef parses "schema.table" or "table".
// Only the first dot separates schema from table.
func ParseTableRef(s string) (TableRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TableRef{}, fmt.Errorf("table reference is empty: %w", ErrInvalidConfig)
	}
	schema, name, ok := strings.Cut(s, ".")
	if !ok {
		return NewTableRef("", s), nil
	}
	if schema == "" || name == "" {
		return TableRef{}, fmt.Errorf("table reference %q must be schema.table: %w", s, ErrInvalidConfig)
	}
	return NewTableRef(schema, name), nil
}

// SchemaOrDefault returns Schema, or DefaultSchema when unset.
func (r TableRef) SchemaOrDefault() string {
	if r.Schema == "" {
		return DefaultSchema
	}
	return r.Schema
}

// Validate checks that the table name is set.
func (r TableRef) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("table name is required: %w", ErrValidation)
	}
	return nil
}

// Sanitize returns the quoted, schema-qualified identifier for use in SQL text.
func (r TableRef) Sanitize() string {
	return pgx.Identifier{r.SchemaOrDefault(), r.Name}.Sanitize()
}

// String returns schema.table without quoting, for messages.
func (r TableRef) String() string {
	return r.SchemaOrDefault() + "." + r.Name
}

// ConnectionConfig represents parsed connection parameters.
// It is the connection descriptor handed to connectors; pgdal does not
// interpret it beyond building a connection string.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// Client certificate authentication and server verification
	SSLCert     string
	SSLKey      string
	SSLRootCert string

	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// AuthMethod selects how credentials are obtained. Cloud methods ignore
	// Password and acquire a short-lived credential per connection.
	AuthMethod AuthMethod

	// AWSRegion is required for AuthAWSIAM.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name
	// (project:region:instance), required for AuthGoogleIAM.
	GoogleInstance string

	// Azure Entra ID service principal. When TenantID, ClientID and
	// ClientSecret are all set a service principal is used, otherwise the
	// DefaultAzureCredential chain.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// Validate checks that the connection descriptor can be used to connect.
func (c *ConnectionConfig) Validate() error {
	var errs []error

	if c.Host == "" {
		errs = append(errs, fmt.Errorf("host is required: %w", ErrInvalidConfig))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range: %w", c.Port, ErrInvalidConfig))
	}
	if c.Database == "" {
		errs = append(errs, fmt.Errorf("database is required: %w", ErrInvalidConfig))
	}
	if c.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("connect timeout cannot be negative: %w", ErrInvalidConfig))
	}

	switch c.AuthMethod {
	case AuthPassword:
	case AuthAWSIAM:
		if c.AWSRegion == "" {
			errs = append(errs, fmt.Errorf("aws-iam auth requires a region (--aws-region or $AWS_REGION): %w", ErrInvalidConfig))
		}
		if c.Username == "" {
			errs = append(errs, fmt.Errorf("aws-iam auth requires a database username: %w", ErrInvalidConfig))
		}
	case AuthGoogleIAM:
		if c.GoogleInstance == "" {
			errs = append(errs, fmt.Errorf("google-iam auth requires --google-instance project:region:instance: %w", ErrInvalidConfig))
		}
		if c.Username == "" {
			errs = append(errs, fmt.Errorf("google-iam auth requires a database username: %w", ErrInvalidConfig))
		}
	case AuthAzureEntraID:
	default:
		errs = append(errs, fmt.Errorf("unknown auth method %s: %w", c.AuthMethod, ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// AuthMethod selects where connection credentials come from.
type AuthMethod int

const (
	AuthPassword     AuthMethod = iota // Password, ~/.pgpass or client certificate
	AuthAWSIAM                         // RDS IAM token as password
	AuthGoogleIAM                      // Cloud SQL connector with IAM login
	AuthAzureEntraID                   // Entra ID access token as password
)

// String returns the flag spelling of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthPassword:
		return "password"
	case AuthAWSIAM:
		return "aws-iam"
	case AuthGoogleIAM:
		return "google-iam"
	case AuthAzureEntraID:
		return "azure"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthPassword && a <= AuthAzureEntraID
}

// ParseAuthMethod parses "password", "aws-iam", "google-iam" or "azure".
// The empty string is AuthPassword.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "password":
		return AuthPassword, nil
	case "aws-iam", "aws":
		return AuthAWSIAM, nil
	case "google-iam", "google", "gcp":
		return AuthGoogleIAM, nil
	case "azure", "azure-entra", "entra":
		return AuthAzureEntraID, nil
	default:
		return AuthPassword, fmt.Errorf("unknown auth method %q (expected password, aws-iam, google-iam or azure): %w", s, ErrInvalidConfig)
	}
}
