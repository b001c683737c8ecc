package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/pgdal/internal/db"
	"github.com/vvka-141/pgdal/internal/files/filesystem"
	"github.com/vvka-141/pgdal/internal/preprocessor"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// QueryExecutor runs SQL templates inside one transaction per call.
//
// Thread-Safety: safe for concurrent Execute calls when the injected
// DBConnection is (a pool adapter is).
type QueryExecutor struct {
	fs     filesystem.FileSystemProvider
	conn   pgdal.DBConnection
	logger pgdal.Logger
}

// NewQueryExecutor creates a QueryExecutor.
// Panics if any dependency is nil.
func NewQueryExecutor(fsProvider filesystem.FileSystemProvider, conn pgdal.DBConnection, logger pgdal.Logger) *QueryExecutor {
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	if conn == nil {
		panic("conn cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &QueryExecutor{fs: fsProvider, conn: conn, logger: logger}
}

// Execute reads the template, substitutes identifiers, binds parameters and
// runs the statement in a transaction that commits only on success.
//
// Errors wrap pgdal.ErrNotFound for a missing template, pgdal.ErrExecutionFailed
// for unbound markers and statements the server rejected, and
// pgdal.ErrConnectionFailed when the session broke. Every error names the
// template path.
func (e *QueryExecutor) Execute(ctx context.Context, req pgdal.QueryRequest) (*pgdal.Result, error) {
	if !req.Mode.IsValid() {
		return nil, fmt.Errorf("invalid fetch mode %s: %w", req.Mode, pgdal.ErrValidation)
	}

	content, err := e.fs.ReadFile(req.TemplatePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("template %s: %w: %w", req.TemplatePath, pgdal.ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to read template %s: %w", req.TemplatePath, err)
	}

	sql := preprocessor.ResolveIdentifiers(string(content), req.Identifiers)
	bound, args, err := preprocessor.BindNamed(sql, req.Params)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", req.TemplatePath, err)
	}

	steps := []step{{sql: bound, args: args, line: 1}}
	if len(args) > 0 || req.Mode != pgdal.FetchNone {
		// The extended protocol takes one statement per call
		if statements := preprocessor.SplitStatements(sql); len(statements) > 1 {
			if steps, err = bindStatements(statements, req.Params); err != nil {
				return nil, fmt.Errorf("template %s: %w", req.TemplatePath, err)
			}
		}
	}

	e.logger.Verbose("Executing %s (fetch=%s, %d statement(s), %d bound parameter(s))",
		req.TemplatePath, req.Mode, len(steps), len(args))
	e.logger.Verbose("SQL: %s", pgdal.PreviewSQL(bound))

	tx, err := e.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("template %s: failed to begin transaction: %w: %w", req.TemplatePath, db.Classify(err), err)
	}
	// No-op once committed
	defer func() { _ = tx.Rollback(ctx) }()

	last := steps[len(steps)-1]
	for _, s := range steps[:len(steps)-1] {
		if _, err := tx.Exec(ctx, s.sql, s.args...); err != nil {
			return nil, e.annotate(req.TemplatePath, s, err)
		}
	}
	result, err := e.run(ctx, tx, last.sql, last.args, req.Mode)
	if err != nil {
		return nil, e.annotate(req.TemplatePath, last, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("template %s: commit failed: %w: %w", req.TemplatePath, db.Classify(err), err)
	}

	e.logger.Verbose("Committed %s (%d row(s) affected)", req.TemplatePath, result.RowsAffected)
	return result, nil
}

// step is one statement sent to the server with its own arguments.
type step struct {
	sql  string
	args []any
	line int // template line the statement starts on
}

func bindStatements(statements []preprocessor.Statement, params map[string]any) ([]step, error) {
	steps := make([]step, len(statements))
	for i, st := range statements {
		sql, args, err := preprocessor.BindNamed(st.SQL, params)
		if err != nil {
			return nil, err
		}
		steps[i] = step{sql: sql, args: args, line: st.Line}
	}
	return steps, nil
}

// run sends the final statement of a template and collects its result
// according to mode.
func (e *QueryExecutor) run(ctx context.Context, tx pgdal.Tx, sql string, args []any, mode pgdal.FetchMode) (*pgdal.Result, error) {
	if mode == pgdal.FetchNone {
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return nil, err
		}
		return &pgdal.Result{Mode: mode, RowsAffected: tag.RowsAffected()}, nil
	}

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := rows.Columns()
	if err := checkUniqueColumns(columns); err != nil {
		return nil, err
	}
	result := &pgdal.Result{Mode: mode}
	if mode == pgdal.FetchAll {
		result.Rows = []pgdal.Row{}
	}

	for rows.Next() {
		if mode == pgdal.FetchOne && result.Row != nil {
			// Drain the rest so the transaction can commit
			continue
		}
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := pgdal.Row{Columns: columns, Values: values}
		if mode == pgdal.FetchOne {
			result.Row = &row
		} else {
			result.Rows = append(result.Rows, row)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if mode == pgdal.FetchOne {
		if result.Row != nil {
			result.RowsAffected = 1
		}
	} else {
		result.RowsAffected = int64(len(result.Rows))
	}
	return result, nil
}

// checkUniqueColumns rejects result sets that repeat a column name, since
// rows are keyed by name.
func checkUniqueColumns(columns []string) error {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return fmt.Errorf("result has duplicate column %q; alias it: %w", c, pgdal.ErrExecutionFailed)
		}
		seen[c] = true
	}
	return nil
}

// annotate classifies a statement failure and, when the server reported a
// position, points at the template line it came from.
func (e *QueryExecutor) annotate(path string, s step, err error) error {
	if errors.Is(err, pgdal.ErrExecutionFailed) {
		return fmt.Errorf("template %s: %w", path, err)
	}
	wrapped := fmt.Errorf("template %s: %w: %w", path, db.Classify(err), err)

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return wrapped
	}
	line := extractLineFromError(pgErr, s.sql)
	if line > 0 && pgErr.Position > 0 {
		line += s.line - 1
	}
	if line > 0 {
		return fmt.Errorf("%w\n  → %s (line %d)", wrapped, path, line)
	}
	return wrapped
}

// extractLineFromError maps a PostgreSQL error to a 1-based line of sql.
// It prefers the Position field and falls back to a "line N" in Where,
// which PL/pgSQL errors carry.
//
// Lines are counted after identifier substitution, so an identifier value
// spanning several lines shifts every later line by the extra newlines.
func extractLineFromError(pgErr *pgconn.PgError, sql string) int {
	if pgErr.Position > 0 {
		runes := []rune(sql)
		pos := int(pgErr.Position)
		if pos > len(runes) {
			pos = len(runes)
		}
		return strings.Count(string(runes[:pos]), "\n") + 1
	}

	if idx := strings.Index(pgErr.Where, "line "); idx != -1 {
		remaining := pgErr.Where[idx+5:]
		end := strings.IndexAny(remaining, " ,)")
		if end == -1 {
			end = len(remaining)
		}
		if line, err := strconv.Atoi(remaining[:end]); err == nil {
			return line
		}
	}
	return 0
}
