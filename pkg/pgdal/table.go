package pgdal

import (
	"fmt"
	"strings"
)

// Table is an in-memory tabular structure: named columns and ordered rows.
// It is the interchange format between FetchTable/BulkInsert and consumers
// such as plotting code.
type Table struct {
	Columns []string
	Rows    [][]any
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns, Rows: [][]any{}}
}

// AppendRow adds a row. The row is not validated until Validate is called.
func (t *Table) AppendRow(values ...any) {
	t.Rows = append(t.Rows, values)
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of the named column in row order.
func (t *Table) Column(name string) ([]any, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found: %w", name, ErrValidation)
	}
	values := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values, nil
}

// Validate checks column names are non-empty and unique and that every row
// has exactly one value per column.
func (t *Table) Validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("table has no columns: %w", ErrValidation)
	}

	seen := make(map[string]bool, len(t.Columns))
	for i, c := range t.Columns {
		if c == "" {
			return fmt.Errorf("column %d has an empty name: %w", i, ErrValidation)
		}
		if seen[c] {
			return fmt.Errorf("duplicate column %q: %w", c, ErrValidation)
		}
		seen[c] = true
	}

	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d values, expected %d: %w", i, len(row), len(t.Columns), ErrValidation)
		}
	}
	return nil
}

// RequireColumns fails with ErrValidation naming every missing column.
// Consumers call it before reading columns they depend on.
func (t *Table) RequireColumns(names ...string) error {
	var missing []string
	for _, n := range names {
		if t.ColumnIndex(n) < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("columns not found: %s: %w", strings.Join(missing, ", "), ErrValidation)
	}
	return nil
}
