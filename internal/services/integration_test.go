package services_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pgdal/internal/compression"
	"github.com/vvka-141/pgdal/internal/db"
	"github.com/vvka-141/pgdal/internal/db/catalog"
	"github.com/vvka-141/pgdal/internal/files/filesystem"
	"github.com/vvka-141/pgdal/internal/logging"
	"github.com/vvka-141/pgdal/internal/services"
	testhelpers "github.com/vvka-141/pgdal/internal/testing"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

type integrationEnv struct {
	connString string
	pool       *pgxpool.Pool
	conn       pgdal.DBConnection
	schema     string
	dir        string
}

func setupIntegration(t *testing.T) *integrationEnv {
	t.Helper()
	connString := testhelpers.RequireDatabase(t)
	pool := testhelpers.GetTestPool(t, connString)
	return &integrationEnv{
		connString: connString,
		pool:       pool,
		conn:       db.NewPoolAdapter(pool),
		schema:     testhelpers.CreateTestSchema(t, pool),
		dir:        t.TempDir(),
	}
}

func (e *integrationEnv) writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func (e *integrationEnv) count(t *testing.T, ref pgdal.TableRef) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.pool.QueryRow(context.Background(), "SELECT count(*) FROM "+ref.Sanitize()).Scan(&n))
	return n
}

func (e *integrationEnv) executor() *services.QueryExecutor {
	return services.NewQueryExecutor(filesystem.NewOSFileSystemProvider(), e.conn, logging.NewNullLogger())
}

func measurementsCSV(rows int, badRow int) []byte {
	var b bytes.Buffer
	b.WriteString("id,sensor,value\n")
	for i := 1; i <= rows; i++ {
		if i == badRow {
			fmt.Fprintf(&b, "not-a-number,s%d,%d.5\n", i%7, i)
			continue
		}
		fmt.Fprintf(&b, "%d,s%d,%d.5\n", i, i%7, i)
	}
	return b.Bytes()
}

func (e *integrationEnv) createMeasurements(t *testing.T) pgdal.TableRef {
	t.Helper()
	ref := pgdal.NewTableRef(e.schema, "measurements")
	_, err := e.pool.Exec(context.Background(),
		"CREATE TABLE "+ref.Sanitize()+" (id bigint PRIMARY KEY, sensor text, value double precision)")
	require.NoError(t, err)
	return ref
}

func TestIntegration_ExecuteTemplate(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()
	exec := env.executor()
	ids := map[string]string{"table": env.schema + ".items"}

	create := env.writeFile(t, "create.sql", []byte(
		"CREATE TABLE {{ table }} (id int PRIMARY KEY, name text, meta jsonb);\n"+
			"COMMENT ON TABLE {{ table }} IS 'created by test';"))
	_, err := exec.Execute(ctx, pgdal.QueryRequest{TemplatePath: create, Identifiers: ids})
	require.NoError(t, err)

	insert := env.writeFile(t, "insert.sql", []byte(
		"INSERT INTO {{ table }} (id, name, meta) VALUES (:id, :name, '{\"src\": \":not_a_param\"}'::jsonb)"))
	for i, name := range []string{"alpha", "beta"} {
		result, err := exec.Execute(ctx, pgdal.QueryRequest{
			TemplatePath: insert,
			Identifiers:  ids,
			Params:       map[string]any{"id": int64(i + 1), "name": name},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.RowsAffected)
	}

	selectOne := env.writeFile(t, "one.sql", []byte("SELECT id, name FROM {{ table }} WHERE name = :name"))
	result, err := exec.Execute(ctx, pgdal.QueryRequest{
		TemplatePath: selectOne, Identifiers: ids, Params: map[string]any{"name": "beta"}, Mode: pgdal.FetchOne,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Row)
	name, _ := result.Row.Get("name")
	assert.Equal(t, "beta", name)

	result, err = exec.Execute(ctx, pgdal.QueryRequest{
		TemplatePath: selectOne, Identifiers: ids, Params: map[string]any{"name": "gamma"}, Mode: pgdal.FetchOne,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Row)

	selectAll := env.writeFile(t, "all.sql", []byte("SELECT id FROM {{ table }} ORDER BY id"))
	result, err = exec.Execute(ctx, pgdal.QueryRequest{TemplatePath: selectAll, Identifiers: ids, Mode: pgdal.FetchAll})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, int32(1), result.Rows[0].Values[0])
}

func TestIntegration_ExecuteRollsBackOnFailure(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()
	ref := pgdal.NewTableRef(env.schema, "uniq")
	_, err := env.pool.Exec(ctx, "CREATE TABLE "+ref.Sanitize()+" (id int PRIMARY KEY)")
	require.NoError(t, err)

	path := env.writeFile(t, "dup.sql", []byte(
		"INSERT INTO {{ t }} VALUES (1);\nINSERT INTO {{ t }} VALUES (2);\nINSERT INTO {{ t }} VALUES (1);"))
	_, err = env.executor().Execute(ctx, pgdal.QueryRequest{
		TemplatePath: path,
		Identifiers:  map[string]string{"t": ref.Sanitize()},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, pgdal.ErrExecutionFailed)
	assert.Contains(t, err.Error(), "23505")
	assert.Zero(t, env.count(t, ref), "earlier statements rolled back")
}

func TestIntegration_ExecuteMultiStatementTemplates(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()
	exec := env.executor()
	ref := pgdal.NewTableRef(env.schema, "events")
	ids := map[string]string{"t": ref.Sanitize()}
	_, err := env.pool.Exec(ctx, "CREATE TABLE "+ref.Sanitize()+" (id int PRIMARY KEY, kind text)")
	require.NoError(t, err)

	upsert := env.writeFile(t, "upsert.sql", []byte(
		"DELETE FROM {{ t }} WHERE id = :id;\n"+
			"INSERT INTO {{ t }} (id, kind) VALUES (:id, :kind);\n"))
	for _, kind := range []string{"created", "updated"} {
		_, err := exec.Execute(ctx, pgdal.QueryRequest{
			TemplatePath: upsert,
			Identifiers:  ids,
			Params:       map[string]any{"id": int64(1), "kind": kind},
		})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), env.count(t, ref))

	insertAndList := env.writeFile(t, "insert_list.sql", []byte(
		"INSERT INTO {{ t }} (id, kind) VALUES (2, 'a;b');\n"+
			"SELECT id, kind FROM {{ t }} WHERE id >= :min ORDER BY id;"))
	result, err := exec.Execute(ctx, pgdal.QueryRequest{
		TemplatePath: insertAndList,
		Identifiers:  ids,
		Params:       map[string]any{"min": int64(1)},
		Mode:         pgdal.FetchAll,
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	kind, _ := result.Rows[0].Get("kind")
	assert.Equal(t, "updated", kind)
	kind, _ = result.Rows[1].Get("kind")
	assert.Equal(t, "a;b", kind)

	countOne := env.writeFile(t, "count.sql", []byte(
		"UPDATE {{ t }} SET kind = 'seen';\nSELECT count(*) AS n FROM {{ t }} WHERE kind = 'seen'"))
	result, err = exec.Execute(ctx, pgdal.QueryRequest{TemplatePath: countOne, Identifiers: ids, Mode: pgdal.FetchOne})
	require.NoError(t, err)
	require.NotNil(t, result.Row)
	n, _ := result.Row.Get("n")
	assert.Equal(t, int64(2), n)

	failing := env.writeFile(t, "failing.sql", []byte(
		"INSERT INTO {{ t }} (id, kind) VALUES (:id, 'x');\nINSERT INTO {{ t }} (id, kind) VALUES (:id, 'y');"))
	_, err = exec.Execute(ctx, pgdal.QueryRequest{
		TemplatePath: failing,
		Identifiers:  ids,
		Params:       map[string]any{"id": int64(3)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, pgdal.ErrExecutionFailed)
	assert.Equal(t, int64(2), env.count(t, ref), "first insert rolled back with the second")
}

func TestIntegration_ExecuteDuplicateColumns(t *testing.T) {
	env := setupIntegration(t)
	path := env.writeFile(t, "dup.sql", []byte("SELECT 1 AS a, 2 AS a"))

	_, err := env.executor().Execute(context.Background(), pgdal.QueryRequest{TemplatePath: path, Mode: pgdal.FetchOne})
	require.Error(t, err)
	assert.ErrorIs(t, err, pgdal.ErrExecutionFailed)
	assert.Contains(t, err.Error(), `duplicate column "a"`)
}

func TestIntegration_TableExists(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()
	inspector := catalog.New()
	ref := pgdal.NewTableRef(env.schema, "later")

	exists, err := inspector.TableExists(ctx, env.conn, ref)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = inspector.TableExists(ctx, env.conn, pgdal.NewTableRef("no_such_schema", "later"))
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = env.pool.Exec(ctx, "CREATE TABLE "+ref.Sanitize()+" (x int)")
	require.NoError(t, err)

	exists, err = inspector.TableExists(ctx, env.conn, ref)
	require.NoError(t, err)
	assert.True(t, exists)

	columns, err := inspector.Columns(ctx, env.conn, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, columns)
}

func TestIntegration_TableExistsWithoutPrivileges(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()
	inspector := catalog.New()
	ref := pgdal.NewTableRef(env.schema, "locked")
	_, err := env.pool.Exec(ctx, "CREATE TABLE "+ref.Sanitize()+" (x int)")
	require.NoError(t, err)

	tx, err := env.conn.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	role := pgx.Identifier{env.schema + "_nobody"}.Sanitize()
	_, err = tx.Exec(ctx, "CREATE ROLE "+role+" NOLOGIN")
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "SET LOCAL ROLE "+role)
	require.NoError(t, err)

	exists, err := inspector.TableExists(ctx, tx, ref)
	require.NoError(t, err)
	assert.True(t, exists, "a table the role cannot read still exists")

	columns, err := inspector.Columns(ctx, tx, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, columns)
}

func TestIntegration_LoadCSV(t *testing.T) {
	env := setupIntegration(t)
	ref := env.createMeasurements(t)
	path := env.writeFile(t, "m.csv", measurementsCSV(1000, 0))
	loader := services.NewBulkLoader(filesystem.NewOSFileSystemProvider(), services.DirectCopySessions(logging.NewNullLogger()), logging.NewNullLogger())

	n, err := loader.LoadCSV(context.Background(), path, ref, testhelpers.TestConfig(t, env.connString))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), n)
	assert.Equal(t, int64(1000), env.count(t, ref))
}

func TestIntegration_LoadCSVIsAtomic(t *testing.T) {
	env := setupIntegration(t)
	ref := env.createMeasurements(t)
	path := env.writeFile(t, "bad.csv", measurementsCSV(1000, 501))
	loader := services.NewBulkLoader(filesystem.NewOSFileSystemProvider(), services.DirectCopySessions(logging.NewNullLogger()), logging.NewNullLogger())

	_, err := loader.LoadCSV(context.Background(), path, ref, testhelpers.TestConfig(t, env.connString))
	require.Error(t, err)
	assert.ErrorIs(t, err, pgdal.ErrExecutionFailed)
	assert.Zero(t, env.count(t, ref))
}

func TestIntegration_LoadCompressedCSV(t *testing.T) {
	env := setupIntegration(t)
	ref := env.createMeasurements(t)
	plain := measurementsCSV(250, 0)

	var buf bytes.Buffer
	w, err := compression.NewWriter(&buf, compression.Gzip)
	require.NoError(t, err)
	_, err = w.Write(plain)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	path := env.writeFile(t, "m.csv.gz", buf.Bytes())

	loader := services.NewBulkLoader(filesystem.NewOSFileSystemProvider(), services.DirectCopySessions(logging.NewNullLogger()), logging.NewNullLogger())
	n, err := loader.LoadCSV(context.Background(), path, ref, testhelpers.TestConfig(t, env.connString))
	require.NoError(t, err)
	assert.Equal(t, int64(250), n)

	var sum float64
	require.NoError(t, env.pool.QueryRow(context.Background(), "SELECT sum(value) FROM "+ref.Sanitize()).Scan(&sum))
	assert.InDelta(t, 250*251/2+125, sum, 0.001)
}

func TestIntegration_LoadCSVMissingTable(t *testing.T) {
	env := setupIntegration(t)
	path := env.writeFile(t, "m.csv", measurementsCSV(3, 0))
	loader := services.NewBulkLoader(filesystem.NewOSFileSystemProvider(), services.DirectCopySessions(logging.NewNullLogger()), logging.NewNullLogger())

	_, err := loader.LoadCSV(context.Background(), path, pgdal.NewTableRef(env.schema, "absent"), testhelpers.TestConfig(t, env.connString))
	assert.ErrorIs(t, err, pgdal.ErrExecutionFailed)
}

func TestIntegration_BulkInsertModes(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()
	transfer := services.NewTabularTransfer(catalog.New(), env.conn, 2, logging.NewNullLogger())
	ref := pgdal.NewTableRef(env.schema, "frame")

	table := pgdal.NewTable("id", "label", "score", "ok")
	table.AppendRow(int64(1), "a", 1.5, true)
	table.AppendRow(int64(2), nil, 2.0, false)
	table.AppendRow(int64(3), "c", nil, nil)

	n, err := transfer.BulkInsert(ctx, table, ref, pgdal.InsertFail)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = transfer.BulkInsert(ctx, table, ref, pgdal.InsertFail)
	assert.ErrorIs(t, err, pgdal.ErrTableExists)

	_, err = transfer.BulkInsert(ctx, table, ref, pgdal.InsertAppend)
	require.NoError(t, err)
	assert.Equal(t, int64(6), env.count(t, ref), "append twice doubles the rows")

	extra := pgdal.NewTable("id", "bogus")
	extra.AppendRow(int64(9), "x")
	_, err = transfer.BulkInsert(ctx, extra, ref, pgdal.InsertAppend)
	assert.ErrorIs(t, err, pgdal.ErrValidation)
	assert.Equal(t, int64(6), env.count(t, ref))

	for i := 0; i < 2; i++ {
		_, err = transfer.BulkInsert(ctx, table, ref, pgdal.InsertReplace)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), env.count(t, ref), "replace leaves exactly one copy")

	fetched, err := transfer.FetchTable(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "label", "score", "ok"}, fetched.Columns)
	assert.Equal(t, 3, fetched.NumRows())
	require.NoError(t, fetched.RequireColumns("id", "score"))
}

func TestIntegration_FetchTableNotFound(t *testing.T) {
	env := setupIntegration(t)
	transfer := services.NewTabularTransfer(catalog.New(), env.conn, 0, logging.NewNullLogger())

	_, err := transfer.FetchTable(context.Background(), pgdal.NewTableRef(env.schema, "nope"))
	assert.ErrorIs(t, err, pgdal.ErrNotFound)
}

func TestIntegration_NoticesReachLogger(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	capture := testhelpers.NewCaptureLogger()

	connector, err := db.NewConnector(testhelpers.TestConfig(t, connString), capture)
	require.NoError(t, err)
	pool, err := connector.Connect(context.Background())
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(context.Background(), "DO $$ BEGIN RAISE NOTICE 'hello from server'; END $$")
	require.NoError(t, err)
	assert.True(t, capture.Contains("hello from server"),
		"entries: %s", strings.TrimSpace(fmt.Sprint(capture.Entries())))
}
