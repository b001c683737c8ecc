package tabular

import (
	"database/sql/driver"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// ReadCSV reads a header row and data rows into a Table, typing each column
// from its cells. Ragged rows and bad headers fail with pgdal.ErrValidation.
func ReadCSV(r io.Reader) (*pgdal.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv has no header row: %w", pgdal.ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %v: %w", err, pgdal.ErrValidation)
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %v: %w", err, pgdal.ErrValidation)
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("csv line %d has %d fields, header has %d: %w",
				len(records)+2, len(record), len(header), pgdal.ErrValidation)
		}
		records = append(records, record)
	}

	table := pgdal.NewTable(header...)
	if err := table.Validate(); err != nil {
		return nil, err
	}

	kinds := make([]cellKind, len(header))
	cells := make([]string, len(records))
	for col := range header {
		for i, rec := range records {
			cells[i] = rec[col]
		}
		kinds[col] = inferCellKind(cells)
	}

	for _, rec := range records {
		row := make([]any, len(rec))
		for col, cell := range rec {
			row[col] = convertCell(cell, kinds[col])
		}
		table.AppendRow(row...)
	}
	return table, nil
}

// WriteCSV writes t with a header row. NULL becomes an empty cell.
func WriteCSV(w io.Writer, t *pgdal.Table) error {
	if err := t.Validate(); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for col, v := range row {
			s, err := FormatValue(v)
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", i, t.Columns[col], err)
			}
			record[col] = s
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Normalize converts driver-specific values returned by pgx into plain Go
// values that encode sensibly as text or JSON.
func Normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int64, int32, int16, float64, float32, time.Time:
		return val, nil
	case [16]byte:
		return uuid.UUID(val).String(), nil
	case []byte:
		return val, nil
	case driver.Valuer:
		inner, err := val.Value()
		if err != nil {
			return nil, err
		}
		if _, same := inner.(driver.Valuer); same {
			return fmt.Sprint(inner), nil
		}
		return Normalize(inner)
	case fmt.Stringer:
		return val.String(), nil
	}
	return v, nil
}

// FormatValue renders one cell the way PostgreSQL's text input accepts it.
func FormatValue(v any) (string, error) {
	v, err := Normalize(v)
	if err != nil {
		return "", err
	}

	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case []byte:
		return `\x` + hex.EncodeToString(val), nil
	case time.Time:
		return val.Format(time.RFC3339Nano), nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	}

	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode %T as json: %w", v, err)
		}
		return string(data), nil
	}
	return fmt.Sprint(v), nil
}
