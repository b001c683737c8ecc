package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/vvka-141/pgdal/internal/tabular"
	"github.com/vvka-141/pgdal/pkg/pgdal"
	"golang.org/x/term"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

var outputFormats = []string{formatTable, formatJSON, formatCSV}

// resolveOutputFormat validates the --format value. Empty means table on a
// terminal and csv when stdout is piped or redirected.
func resolveOutputFormat(flag string, stdout *os.File) (string, error) {
	switch strings.ToLower(flag) {
	case "":
		if term.IsTerminal(int(stdout.Fd())) {
			return formatTable, nil
		}
		return formatCSV, nil
	case formatTable, formatJSON, formatCSV:
		return strings.ToLower(flag), nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected %s): %w",
			flag, strings.Join(outputFormats, ", "), pgdal.ErrInvalidConfig)
	}
}

// resultTable converts fetched rows into a Table. A FetchAll result with no
// rows has no columns to report.
func resultTable(result *pgdal.Result) *pgdal.Table {
	var rows []pgdal.Row
	switch {
	case result.Row != nil:
		rows = []pgdal.Row{*result.Row}
	default:
		rows = result.Rows
	}
	if len(rows) == 0 {
		return pgdal.NewTable()
	}

	table := pgdal.NewTable(rows[0].Columns...)
	for _, r := range rows {
		table.AppendRow(r.Values...)
	}
	return table
}

// writeTable renders t to w in format.
func writeTable(w io.Writer, t *pgdal.Table, format string) error {
	switch format {
	case formatJSON:
		return writeJSON(w, t)
	case formatCSV:
		if len(t.Columns) == 0 {
			return nil
		}
		return tabular.WriteCSV(w, t)
	default:
		return writeText(w, t)
	}
}

// writeJSON writes an array of objects whose keys follow column order.
func writeJSON(w io.Writer, t *pgdal.Table) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n  {")
		for col, v := range row {
			if col > 0 {
				buf.WriteString(", ")
			}
			key, err := json.Marshal(t.Columns[col])
			if err != nil {
				return err
			}
			normalized, err := tabular.Normalize(v)
			if err != nil {
				return fmt.Errorf("column %q: %w", t.Columns[col], err)
			}
			value, err := json.Marshal(normalized)
			if err != nil {
				return fmt.Errorf("column %q: %w", t.Columns[col], err)
			}
			buf.Write(key)
			buf.WriteString(": ")
			buf.Write(value)
		}
		buf.WriteByte('}')
	}
	if len(t.Rows) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString("]\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// writeText writes an aligned table followed by a row count.
func writeText(w io.Writer, t *pgdal.Table) error {
	if len(t.Columns) == 0 {
		_, err := fmt.Fprintln(w, "(0 rows)")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	rules := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		rules[i] = strings.Repeat("-", max(len(c), 3))
	}
	fmt.Fprintln(tw, strings.Join(rules, "\t"))

	cells := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			s, err := tabular.FormatValue(v)
			if err != nil {
				return err
			}
			cells[i] = strings.NewReplacer("\t", `\t`, "\n", `\n`).Replace(s)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	noun := "rows"
	if len(t.Rows) == 1 {
		noun = "row"
	}
	_, err := fmt.Fprintf(w, "(%d %s)\n", len(t.Rows), noun)
	return err
}
