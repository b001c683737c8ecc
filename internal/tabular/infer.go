package tabular

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// PostgreSQL column types chosen by InferColumnTypes.
const (
	TypeBigint    = "bigint"
	TypeDouble    = "double precision"
	TypeBoolean   = "boolean"
	TypeTimestamp = "timestamptz"
	TypeBytea     = "bytea"
	TypeJSONB     = "jsonb"
	TypeText      = "text"
)

// InferColumnTypes returns one PostgreSQL type per column of t, derived from
// the Go types of its non-nil values. Integers mixed with floats widen to
// double precision; any other mix, or a column of only NULLs, is text.
func InferColumnTypes(t *pgdal.Table) []string {
	types := make([]string, len(t.Columns))
	for col := range t.Columns {
		chosen := ""
		for _, row := range t.Rows {
			if col >= len(row) || row[col] == nil {
				continue
			}
			chosen = widen(chosen, goValueType(row[col]))
			if chosen == TypeText {
				break
			}
		}
		if chosen == "" {
			chosen = TypeText
		}
		types[col] = chosen
	}
	return types
}

func widen(current, next string) string {
	switch {
	case current == "" || current == next:
		return next
	case (current == TypeBigint && next == TypeDouble) || (current == TypeDouble && next == TypeBigint):
		return TypeDouble
	default:
		return TypeText
	}
}

func goValueType(v any) string {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return TypeBigint
	case float32, float64:
		return TypeDouble
	case bool:
		return TypeBoolean
	case time.Time:
		return TypeTimestamp
	case []byte:
		return TypeBytea
	case string:
		return TypeText
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Struct:
		return TypeJSONB
	}
	return TypeText
}

// cellKind is the type a CSV column is parsed into.
type cellKind int

const (
	kindNone cellKind = iota
	kindInteger
	kindReal
	kindBoolean
	kindDatetime
	kindText
)

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

func parseDatetime(s string) (time.Time, bool) {
	// Cheap guard before trying every layout
	if len(s) < 10 || s[4] != '-' || s[7] != '-' {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func classifyCell(s string) cellKind {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return kindInteger
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return kindReal
	}
	if _, ok := parseBool(s); ok {
		return kindBoolean
	}
	if _, ok := parseDatetime(s); ok {
		return kindDatetime
	}
	return kindText
}

// inferCellKind picks one kind for a column of raw cells.
// Priority: text > datetime > real > integer, with booleans only pure.
func inferCellKind(cells []string) cellKind {
	kind := kindNone
	for _, c := range cells {
		if c == "" {
			continue
		}
		next := classifyCell(c)
		switch {
		case kind == kindNone || kind == next:
			kind = next
		case (kind == kindInteger && next == kindReal) || (kind == kindReal && next == kindInteger):
			kind = kindReal
		default:
			return kindText
		}
	}
	if kind == kindNone {
		return kindText
	}
	return kind
}

func convertCell(s string, kind cellKind) any {
	if s == "" {
		return nil
	}
	switch kind {
	case kindInteger:
		v, _ := strconv.ParseInt(s, 10, 64)
		return v
	case kindReal:
		v, _ := strconv.ParseFloat(s, 64)
		return v
	case kindBoolean:
		v, _ := parseBool(s)
		return v
	case kindDatetime:
		v, _ := parseDatetime(s)
		return v
	}
	return s
}
