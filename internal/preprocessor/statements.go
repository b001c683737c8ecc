package preprocessor

import (
	"strings"
	"unicode"
)

// Statement is one statement of a script.
type Statement struct {
	// SQL is the statement text without its terminating semicolon. Leading
	// whitespace and comments are kept so positions stay line-accurate.
	SQL string

	// Line is the 1-based script line SQL starts on.
	Line int
}

// SplitStatements splits a script at semicolons in plain SQL text.
// Semicolons inside string literals, quoted identifiers, comments and
// dollar-quoted bodies do not split. Pieces holding only whitespace and
// comments are dropped.
//
// SQL-standard function bodies (BEGIN ATOMIC ... END) contain bare
// semicolons and are split apart; run such scripts whole.
func SplitStatements(sql string) []Statement {
	var statements []Statement

	lx := newLexer(sql)
	start, startLine, line := 0, 1, 1
	hasCode := false

	for !lx.done() {
		before := lx.state
		tokStart := lx.pos
		tok := lx.next()
		line += strings.Count(string(tok), "\n")

		switch {
		case before == stateLineComment || before == stateBlockComment:
		case before != stateNormal:
			hasCode = true
		case lx.state == stateLineComment || lx.state == stateBlockComment:
		case len(tok) == 1 && tok[0] == ';':
			if hasCode {
				statements = append(statements, Statement{SQL: string(lx.runes[start:tokStart]), Line: startLine})
			}
			start, startLine, hasCode = lx.pos, line, false
		case !isBlank(tok):
			hasCode = true
		}
	}
	if hasCode {
		statements = append(statements, Statement{SQL: string(lx.runes[start:]), Line: startLine})
	}
	return statements
}

func isBlank(tok []rune) bool {
	for _, r := range tok {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
