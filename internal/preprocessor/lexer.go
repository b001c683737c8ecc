package preprocessor

import "unicode"

// scanState is the lexical context of the lexer's cursor.
type scanState int

const (
	stateNormal scanState = iota
	stateLineComment
	stateBlockComment
	stateSingleQuote
	stateEscapeString
	stateDoubleQuote
	stateDollarQuote
)

// lexer walks SQL text token by token and tracks whether the cursor sits in
// plain SQL or inside a string literal, quoted identifier, comment or
// dollar-quoted body.
type lexer struct {
	runes      []rune
	pos        int
	state      scanState
	blockDepth int
	dollarTag  string
}

func newLexer(sql string) *lexer {
	return &lexer{runes: []rune(sql)}
}

func (l *lexer) done() bool {
	return l.pos >= len(l.runes)
}

// at returns the rune offset positions past the cursor, or 0 past the end.
func (l *lexer) at(offset int) rune {
	if i := l.pos + offset; i >= 0 && i < len(l.runes) {
		return l.runes[i]
	}
	return 0
}

// plain reports whether the cursor is in ordinary SQL text.
func (l *lexer) plain() bool {
	return l.state == stateNormal
}

// next consumes one token and returns it. Openers of quoted or commented
// regions and the :: operator come back whole; everything else is one rune.
func (l *lexer) next() []rune {
	start := l.pos
	r, next := l.at(0), l.at(1)

	switch l.state {
	case stateNormal:
		switch {
		case r == '-' && next == '-':
			l.state = stateLineComment
			l.pos += 2
		case r == '/' && next == '*':
			l.state = stateBlockComment
			l.blockDepth = 1
			l.pos += 2
		case r == '\'':
			if isEscapePrefix(l.runes, l.pos) {
				l.state = stateEscapeString
			} else {
				l.state = stateSingleQuote
			}
			l.pos++
		case r == '"':
			l.state = stateDoubleQuote
			l.pos++
		case r == '$':
			tag := ""
			if l.pos == 0 || !isIdentRune(l.runes[l.pos-1]) {
				tag = extractDollarTag(l.runes, l.pos)
			}
			if tag != "" {
				l.state = stateDollarQuote
				l.dollarTag = tag
				l.pos += len([]rune(tag))
			} else {
				l.pos++
			}
		case r == ':' && next == ':':
			l.pos += 2
		default:
			l.pos++
		}

	case stateLineComment:
		l.pos++
		if r == '\n' {
			l.state = stateNormal
		}

	case stateBlockComment:
		switch {
		case r == '/' && next == '*':
			l.blockDepth++
			l.pos += 2
		case r == '*' && next == '/':
			l.blockDepth--
			l.pos += 2
			if l.blockDepth == 0 {
				l.state = stateNormal
			}
		default:
			l.pos++
		}

	case stateSingleQuote, stateDoubleQuote:
		quote := '\''
		if l.state == stateDoubleQuote {
			quote = '"'
		}
		l.pos++
		if r == quote {
			if next == quote {
				l.pos++
			} else {
				l.state = stateNormal
			}
		}

	case stateEscapeString:
		l.pos++
		switch {
		case r == '\\' && l.pos < len(l.runes):
			l.pos++
		case r == '\'' && next == '\'':
			l.pos++
		case r == '\'':
			l.state = stateNormal
		}

	case stateDollarQuote:
		if matchesDollarTag(l.runes, l.pos, l.dollarTag) {
			l.pos += len([]rune(l.dollarTag))
			l.state = stateNormal
			l.dollarTag = ""
		} else {
			l.pos++
		}
	}

	return l.runes[start:l.pos]
}

// isEscapePrefix reports whether the quote at i opens an E'...' string.
func isEscapePrefix(runes []rune, i int) bool {
	if i == 0 || (runes[i-1] != 'E' && runes[i-1] != 'e') {
		return false
	}
	return i == 1 || !isIdentRune(runes[i-2])
}

func isNameStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$'
}

// extractDollarTag extracts a dollar-quote tag starting at position i.
// Returns the full tag (e.g., "$$" or "$tag$") or empty string if not a valid tag.
func extractDollarTag(runes []rune, i int) string {
	if i >= len(runes) || runes[i] != '$' {
		return ""
	}

	for j := i + 1; j < len(runes); j++ {
		r := runes[j]
		if r == '$' {
			return string(runes[i : j+1])
		}
		// Tags follow identifier rules, so $1 is a positional parameter, not a tag
		if j == i+1 && !unicode.IsLetter(r) && r != '_' {
			return ""
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return ""
		}
	}
	return ""
}

// matchesDollarTag checks if the runes starting at position i match the given dollar tag.
func matchesDollarTag(runes []rune, i int, tag string) bool {
	tagRunes := []rune(tag)
	if i+len(tagRunes) > len(runes) {
		return false
	}
	for j, tr := range tagRunes {
		if runes[i+j] != tr {
			return false
		}
	}
	return true
}
