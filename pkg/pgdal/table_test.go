package pgdal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

func TestTable_Validate(t *testing.T) {
	tbl := pgdal.NewTable("id", "name")
	tbl.AppendRow(int64(1), "a")
	tbl.AppendRow(int64(2), nil)
	require.NoError(t, tbl.Validate())
	assert.Equal(t, 2, tbl.NumRows())

	tbl.AppendRow(int64(3))
	err := tbl.Validate()
	require.ErrorIs(t, err, pgdal.ErrValidation)
	assert.Contains(t, err.Error(), "row 2 has 1 values, expected 2")
}

func TestTable_Validate_ColumnNames(t *testing.T) {
	require.ErrorIs(t, (&pgdal.Table{}).Validate(), pgdal.ErrValidation)
	require.ErrorIs(t, pgdal.NewTable("a", "a").Validate(), pgdal.ErrValidation)
	require.ErrorIs(t, pgdal.NewTable("a", "").Validate(), pgdal.ErrValidation)
}

func TestTable_RequireColumns(t *testing.T) {
	tbl := pgdal.NewTable("date", "revenue", "cost")

	require.NoError(t, tbl.RequireColumns("date", "cost"))

	err := tbl.RequireColumns("date", "x", "y")
	require.ErrorIs(t, err, pgdal.ErrValidation)
	assert.Contains(t, err.Error(), "x, y")
}

func TestTable_Column(t *testing.T) {
	tbl := pgdal.NewTable("x", "y")
	tbl.AppendRow(1, 10)
	tbl.AppendRow(2, 20)

	ys, err := tbl.Column("y")
	require.NoError(t, err)
	assert.Equal(t, []any{10, 20}, ys)

	_, err = tbl.Column("z")
	require.ErrorIs(t, err, pgdal.ErrValidation)
}

func TestRow_GetAndMap(t *testing.T) {
	row := pgdal.Row{Columns: []string{"id", "name"}, Values: []any{int32(7), "ada"}}

	v, ok := row.Get("name")
	require.True(t, ok)
	assert.Equal(t, "ada", v)

	_, ok = row.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, map[string]any{"id": int32(7), "name": "ada"}, row.Map())
}
