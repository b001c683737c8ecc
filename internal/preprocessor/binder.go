package preprocessor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// BindNamed rewrites :name markers in sql to PostgreSQL positional
// placeholders ($1, $2, ...) and returns the matching argument slice.
//
// Markers are recognized only in plain SQL text. String literals, quoted
// identifiers, comments and dollar-quoted bodies pass through untouched, as
// do the :: cast operator and a colon glued to a preceding identifier
// (arr[lo:hi]). A name used more than once maps to a single position.
// Entries in params that no marker references are ignored.
//
// A marker without a value in params fails with pgdal.ErrExecutionFailed.
// When sql has no markers the returned args are nil.
func BindNamed(sql string, params map[string]any) (string, []any, error) {
	if !strings.ContainsRune(sql, ':') {
		return sql, nil, nil
	}

	var out strings.Builder
	out.Grow(len(sql) + 8)

	var args []any
	positions := make(map[string]int)
	missing := make(map[string]bool)

	lx := newLexer(sql)
	for !lx.done() {
		if lx.plain() && lx.at(0) == ':' && isNameStart(lx.at(1)) && !isIdentRune(lx.at(-1)) {
			j := lx.pos + 1
			for j < len(lx.runes) && isIdentRune(lx.runes[j]) && lx.runes[j] != '$' {
				j++
			}
			name := string(lx.runes[lx.pos+1 : j])
			pos, ok := positions[name]
			if !ok {
				value, found := params[name]
				if !found {
					missing[name] = true
				}
				args = append(args, value)
				pos = len(args)
				positions[name] = pos
			}
			out.WriteByte('$')
			out.WriteString(strconv.Itoa(pos))
			lx.pos = j
			continue
		}
		out.WriteString(string(lx.next()))
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for n := range missing {
			names = append(names, ":"+n)
		}
		sort.Strings(names)
		return "", nil, fmt.Errorf("no value bound for %s: %w", strings.Join(names, ", "), pgdal.ErrExecutionFailed)
	}

	return out.String(), args, nil
}
