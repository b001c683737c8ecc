package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/pgdal/internal/db"
	"github.com/vvka-141/pgdal/internal/db/catalog"
	"github.com/vvka-141/pgdal/internal/tabular"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// TabularTransfer moves whole tables between PostgreSQL and pgdal.Table.
type TabularTransfer struct {
	inspector *catalog.Inspector
	conn      pgdal.DBConnection
	batchSize int
	logger    pgdal.Logger
}

// NewTabularTransfer creates a TabularTransfer. A batchSize of zero or less
// means pgdal.DefaultBatchSize.
// Panics if any dependency is nil.
func NewTabularTransfer(inspector *catalog.Inspector, conn pgdal.DBConnection, batchSize int, logger pgdal.Logger) *TabularTransfer {
	if inspector == nil {
		panic("inspector cannot be nil")
	}
	if conn == nil {
		panic("conn cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if batchSize <= 0 {
		batchSize = pgdal.DefaultBatchSize
	}
	return &TabularTransfer{inspector: inspector, conn: conn, batchSize: batchSize, logger: logger}
}

// FetchTable reads every row of ref into a Table. Values are normalized
// with tabular.Normalize. A missing table fails with pgdal.ErrNotFound
// without scanning.
func (t *TabularTransfer) FetchTable(ctx context.Context, ref pgdal.TableRef) (*pgdal.Table, error) {
	exists, err := t.inspector.TableExists(ctx, t.conn, ref)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("table %s: %w", ref, pgdal.ErrNotFound)
	}

	rows, err := t.conn.Query(ctx, fmt.Sprintf(querySelectAll, ref.Sanitize()))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w: %w", ref, db.Classify(err), err)
	}
	defer rows.Close()

	table := pgdal.NewTable(rows.Columns()...)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w: %w", ref, db.Classify(err), err)
		}
		for i, v := range values {
			if values[i], err = tabular.Normalize(v); err != nil {
				return nil, fmt.Errorf("%s column %q: %w: %w", ref, table.Columns[i], pgdal.ErrExecutionFailed, err)
			}
		}
		table.AppendRow(values...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w: %w", ref, db.Classify(err), err)
	}

	t.logger.Verbose("Fetched %d row(s) from %s", table.NumRows(), ref)
	return table, nil
}

// BulkInsert writes table into ref according to mode and returns the number
// of rows inserted. The table is validated before any database call.
//
// Rows go out in batches of the configured size; each batch commits on its
// own, so a failure part-way leaves earlier batches in place.
func (t *TabularTransfer) BulkInsert(ctx context.Context, table *pgdal.Table, ref pgdal.TableRef, mode pgdal.InsertMode) (int64, error) {
	if table == nil {
		return 0, fmt.Errorf("table is nil: %w", pgdal.ErrValidation)
	}
	if err := table.Validate(); err != nil {
		return 0, err
	}
	if err := ref.Validate(); err != nil {
		return 0, err
	}
	if !mode.IsValid() {
		return 0, fmt.Errorf("invalid insert mode %s: %w", mode, pgdal.ErrValidation)
	}

	if err := t.prepareTarget(ctx, table, ref, mode); err != nil {
		return 0, err
	}
	return t.insertRows(ctx, table, ref)
}

func (t *TabularTransfer) prepareTarget(ctx context.Context, table *pgdal.Table, ref pgdal.TableRef, mode pgdal.InsertMode) error {
	if mode == pgdal.InsertReplace {
		return t.recreate(ctx, table, ref)
	}

	exists, err := t.inspector.TableExists(ctx, t.conn, ref)
	if err != nil {
		return err
	}
	switch {
	case exists && mode == pgdal.InsertFail:
		return fmt.Errorf("table %s: %w", ref, pgdal.ErrTableExists)
	case exists:
		return t.checkTargetColumns(ctx, table, ref)
	}

	t.logger.Verbose("Creating table %s", ref)
	return t.inspector.CreateTable(ctx, t.conn, ref, columnDefs(table))
}

// checkTargetColumns fails with pgdal.ErrValidation when the existing
// table lacks columns of the data being appended.
func (t *TabularTransfer) checkTargetColumns(ctx context.Context, table *pgdal.Table, ref pgdal.TableRef) error {
	target, err := t.inspector.Columns(ctx, t.conn, ref)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(target))
	for _, c := range target {
		have[c] = true
	}
	var missing []string
	for _, c := range table.Columns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s has no column(s) %s: %w", ref, strings.Join(missing, ", "), pgdal.ErrValidation)
	}
	return nil
}

// recreate drops and creates ref in one transaction.
func (t *TabularTransfer) recreate(ctx context.Context, table *pgdal.Table, ref pgdal.TableRef) error {
	tx, err := t.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %w", db.Classify(err), err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t.logger.Verbose("Replacing table %s", ref)
	if err := t.inspector.DropTable(ctx, tx, ref); err != nil {
		return err
	}
	if err := t.inspector.CreateTable(ctx, tx, ref, columnDefs(table)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit replace of %s: %w: %w", ref, db.Classify(err), err)
	}
	return nil
}

func (t *TabularTransfer) insertRows(ctx context.Context, table *pgdal.Table, ref pgdal.TableRef) (int64, error) {
	insertSQL := insertStatement(ref, table.Columns)

	var inserted int64
	for start := 0; start < len(table.Rows); start += t.batchSize {
		end := min(start+t.batchSize, len(table.Rows))

		batch := &pgx.Batch{}
		for _, row := range table.Rows[start:end] {
			batch.Queue(insertSQL, row...)
		}

		results := t.conn.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return inserted, fmt.Errorf("failed to insert row %d into %s: %w: %w", i, ref, db.Classify(err), err)
			}
		}
		if err := results.Close(); err != nil {
			return inserted, fmt.Errorf("failed to complete batch insert into %s: %w: %w", ref, db.Classify(err), err)
		}

		inserted += int64(end - start)
		t.logger.Verbose("Inserted rows %d-%d into %s", start, end-1, ref)
	}
	return inserted, nil
}

func columnDefs(table *pgdal.Table) []catalog.ColumnDef {
	types := tabular.InferColumnTypes(table)
	defs := make([]catalog.ColumnDef, len(table.Columns))
	for i, name := range table.Columns {
		defs[i] = catalog.ColumnDef{Name: name, Type: types[i]}
	}
	return defs
}

func insertStatement(ref pgdal.TableRef, columns []string) string {
	names := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		names[i] = pgx.Identifier{c}.Sanitize()
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	return fmt.Sprintf(queryInsertRow, ref.Sanitize(), strings.Join(names, ", "), strings.Join(placeholders, ", "))
}
