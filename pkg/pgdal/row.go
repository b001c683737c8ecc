package pgdal

// Row is one result row: column names in projection order paired with values.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of the named column and whether the column exists.
func (r *Row) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Map returns the row as a column name to value map.
// Column order is lost; use Columns/Values when it matters.
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}

// QueryRequest describes one QueryExecutor call.
type QueryRequest struct {
	// TemplatePath locates the .sql template; it is read on every call.
	TemplatePath string

	// Identifiers replace {{ name }} placeholders verbatim before binding.
	// Values must come from trusted sources only.
	Identifiers map[string]string

	// Params bind :name markers as driver parameters.
	Params map[string]any

	Mode FetchMode
}

// Result is what QueryExecutor returns.
//
// For FetchOne, Row is nil when the statement produced no rows.
// For FetchAll, Rows is empty (never nil) when the statement produced no rows.
// For FetchNone, only RowsAffected is set.
type Result struct {
	Mode         FetchMode
	Row          *Row
	Rows         []Row
	RowsAffected int64
}
