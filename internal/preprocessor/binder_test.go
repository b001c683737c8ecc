package preprocessor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

func TestBindNamed(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		params   map[string]any
		expected string
		args     []any
	}{
		{
			name:     "no markers",
			sql:      "SELECT 1; SELECT 2;",
			expected: "SELECT 1; SELECT 2;",
		},
		{
			name:     "single marker",
			sql:      "SELECT * FROM t WHERE id = :id",
			params:   map[string]any{"id": int64(7)},
			expected: "SELECT * FROM t WHERE id = $1",
			args:     []any{int64(7)},
		},
		{
			name:     "repeated marker reuses position",
			sql:      "SELECT :a, :b, :a",
			params:   map[string]any{"a": 1, "b": "x"},
			expected: "SELECT $1, $2, $1",
			args:     []any{1, "x"},
		},
		{
			name:     "unused params ignored",
			sql:      "SELECT :a",
			params:   map[string]any{"a": 1, "unused": 2},
			expected: "SELECT $1",
			args:     []any{1},
		},
		{
			name:     "cast is not a marker",
			sql:      "SELECT :v::int, now()::date",
			params:   map[string]any{"v": "5"},
			expected: "SELECT $1::int, now()::date",
			args:     []any{"5"},
		},
		{
			name:     "string literal untouched",
			sql:      "SELECT ':skip', 'it''s :skip', :x",
			params:   map[string]any{"x": true},
			expected: "SELECT ':skip', 'it''s :skip', $1",
			args:     []any{true},
		},
		{
			name:     "escape string with backslash quote",
			sql:      `SELECT E'a\':skip', :x`,
			params:   map[string]any{"x": 1},
			expected: `SELECT E'a\':skip', $1`,
			args:     []any{1},
		},
		{
			name:     "quoted identifier untouched",
			sql:      `SELECT "col:skip" FROM t WHERE a = :x`,
			params:   map[string]any{"x": 1},
			expected: `SELECT "col:skip" FROM t WHERE a = $1`,
			args:     []any{1},
		},
		{
			name:     "comments untouched",
			sql:      "SELECT :x -- :skip\n/* :skip /* :nested */ */ + :y",
			params:   map[string]any{"x": 1, "y": 2},
			expected: "SELECT $1 -- :skip\n/* :skip /* :nested */ */ + $2",
			args:     []any{1, 2},
		},
		{
			name:     "dollar quoted body untouched",
			sql:      "DO $body$ BEGIN v := :skip; END $body$; SELECT :x",
			params:   map[string]any{"x": 1},
			expected: "DO $body$ BEGIN v := :skip; END $body$; SELECT $1",
			args:     []any{1},
		},
		{
			name:     "array slice bounds are not markers",
			sql:      "SELECT arr[lo:hi], arr[2:3] FROM t WHERE id = :id",
			params:   map[string]any{"id": 7},
			expected: "SELECT arr[lo:hi], arr[2:3] FROM t WHERE id = $1",
			args:     []any{7},
		},
		{
			name:     "marker after bracket still binds",
			sql:      "SELECT arr[:hi]",
			params:   map[string]any{"hi": 2},
			expected: "SELECT arr[$1]",
			args:     []any{2},
		},
		{
			name:     "marker glued to marker",
			sql:      "SELECT :a:b",
			params:   map[string]any{"a": 1},
			expected: "SELECT $1:b",
			args:     []any{1},
		},
		{
			name:     "nil value binds NULL",
			sql:      "INSERT INTO t VALUES (:v)",
			params:   map[string]any{"v": nil},
			expected: "INSERT INTO t VALUES ($1)",
			args:     []any{nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := BindNamed(tt.sql, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sql)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestBindNamed_MissingParameter(t *testing.T) {
	_, _, err := BindNamed("SELECT :b, :a, :present", map[string]any{"present": 1})
	require.ErrorIs(t, err, pgdal.ErrExecutionFailed)
	assert.Contains(t, err.Error(), ":a, :b")
}

func TestBindNamed_MissingInsideLiteralIsFine(t *testing.T) {
	sql, args, err := BindNamed("SELECT ':absent'", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT ':absent'", sql)
	assert.Nil(t, args)
}

func TestExtractDollarTag(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"$$ body", "$$"},
		{"$fn$ body", "$fn$"},
		{"$_x1$", "$_x1$"},
		{"$1", ""},
		{"$1$", ""},
		{"$ab", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, extractDollarTag([]rune(tt.input), 0))
		})
	}
}
