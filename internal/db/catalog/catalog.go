package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/pgdal/internal/db"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// The pg_catalog views list relations regardless of the current role's
// privileges, unlike information_schema.
const (
	queryTableExists = `SELECT EXISTS (
	SELECT 1 FROM pg_catalog.pg_class c
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind IN ('r', 'p', 'v', 'm', 'f')
)`

	queryColumns = `SELECT a.attname::text
FROM pg_catalog.pg_attribute a
JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relname = $2 AND a.attnum > 0 AND NOT a.attisdropped
ORDER BY a.attnum`
)

// ColumnDef is one column of a table to create.
type ColumnDef struct {
	Name string
	Type string // PostgreSQL type name, used verbatim
}

// Inspector implements table existence checks and table DDL.
type Inspector struct{}

// New creates an Inspector.
func New() *Inspector {
	return &Inspector{}
}

// TableExists reports whether ref names an existing table, partitioned
// table, view, materialized view or foreign table.
// A missing schema is simply false. Only failures of the query itself are
// returned as errors.
func (i *Inspector) TableExists(ctx context.Context, conn pgdal.Querier, ref pgdal.TableRef) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}

	var exists bool
	err := conn.QueryRow(ctx, queryTableExists, ref.SchemaOrDefault(), ref.Name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check table existence for %s: %w: %w", ref, db.Classify(err), err)
	}
	return exists, nil
}

// Columns lists the table's column names in ordinal order.
// A missing table yields an empty list.
func (i *Inspector) Columns(ctx context.Context, conn pgdal.Querier, ref pgdal.TableRef) ([]string, error) {
	rows, err := conn.Query(ctx, queryColumns, ref.SchemaOrDefault(), ref.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w: %w", ref, db.Classify(err), err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w: %w", ref, db.Classify(err), err)
		}
		name, ok := values[0].(string)
		if !ok {
			return nil, fmt.Errorf("unexpected column_name type %T: %w", values[0], pgdal.ErrExecutionFailed)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w: %w", ref, db.Classify(err), err)
	}
	return columns, nil
}

// CreateTable creates ref with the given columns. The schema must exist.
func (i *Inspector) CreateTable(ctx context.Context, conn pgdal.Querier, ref pgdal.TableRef, columns []ColumnDef) error {
	if len(columns) == 0 {
		return fmt.Errorf("cannot create %s without columns: %w", ref, pgdal.ErrValidation)
	}
	if _, err := conn.Exec(ctx, CreateTableSQL(ref, columns)); err != nil {
		return fmt.Errorf("failed to create table %s: %w: %w", ref, db.Classify(err), err)
	}
	return nil
}

// DropTable drops ref if it exists.
func (i *Inspector) DropTable(ctx context.Context, conn pgdal.Querier, ref pgdal.TableRef) error {
	query := fmt.Sprintf("DROP TABLE IF EXISTS %s", ref.Sanitize())
	if _, err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to drop table %s: %w: %w", ref, db.Classify(err), err)
	}
	return nil
}

// CreateTableSQL renders the CREATE TABLE statement for ref.
func CreateTableSQL(ref pgdal.TableRef, columns []ColumnDef) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = pgx.Identifier{c.Name}.Sanitize() + " " + c.Type
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", ref.Sanitize(), strings.Join(defs, ", "))
}
