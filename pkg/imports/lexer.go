package imports

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokName tokenKind = iota
	tokNumber
	tokString
	tokOp
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

// logicalLine is one Python logical line: physical lines joined by brackets
// or backslash continuations, with comments and blank lines removed.
type logicalLine struct {
	indent int
	line   int
	tokens []token
}

// ParseError reports the first lexical or syntactic problem in a file.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Col, e.Msg)
}

var closers = map[rune]rune{')': '(', ']': '[', '}': '{'}

type lexer struct {
	src       []rune
	pos       int
	line      int
	lineStart int
	brackets  []token
	lines     []logicalLine
	cur       logicalLine
}

func newLexer(src []rune) *lexer {
	return &lexer{src: src, line: 1}
}

func (l *lexer) errorf(format string, args ...any) error {
	return &ParseError{Line: l.line, Col: l.pos - l.lineStart + 1, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) eof() bool { return l.pos >= len(l.src) }

func (l *lexer) peek(off int) rune {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

// newline consumes "\n", "\r" or "\r\n" at the current position.
func (l *lexer) newline() {
	if l.src[l.pos] == '\r' && l.peek(1) == '\n' {
		l.pos++
	}
	l.pos++
	l.line++
	l.lineStart = l.pos
}

func (l *lexer) emit(kind tokenKind, start, line, col int) {
	l.cur.tokens = append(l.cur.tokens, token{
		kind: kind,
		text: string(l.src[start:l.pos]),
		line: line,
		col:  col,
	})
}

func (l *lexer) endLine() {
	if len(l.cur.tokens) > 0 {
		l.lines = append(l.lines, l.cur)
	}
	l.cur = logicalLine{}
}

// tokenize splits the source into logical lines.
func (l *lexer) tokenize() ([]logicalLine, error) {
	atLineStart := true
	for {
		if atLineStart && len(l.brackets) == 0 {
			indent := l.indentation()
			if l.eof() || l.src[l.pos] == '\n' || l.src[l.pos] == '\r' || l.src[l.pos] == '#' {
				l.skipComment()
				if l.eof() {
					break
				}
				l.newline()
				continue
			}
			l.cur.indent = indent
			l.cur.line = l.line
			atLineStart = false
		}

		l.skipBlanks()
		if l.eof() {
			break
		}

		c := l.src[l.pos]
		line, col := l.line, l.pos-l.lineStart+1
		switch {
		case c == '#':
			l.skipComment()
		case c == '\n' || c == '\r':
			l.newline()
			if len(l.brackets) == 0 {
				l.endLine()
				atLineStart = true
			}
		case c == '\\':
			next := l.peek(1)
			if next == 0 {
				return nil, l.errorf("unexpected EOF after line continuation character")
			}
			if next != '\n' && next != '\r' {
				return nil, l.errorf("unexpected character after line continuation character")
			}
			l.pos++
			l.newline()
		case isIdentStart(c):
			start := l.pos
			for !l.eof() && isIdentPart(l.src[l.pos]) {
				l.pos++
			}
			prefix := string(l.src[start:l.pos])
			if q := l.peek(0); (q == '"' || q == '\'') && isStringPrefix(prefix) {
				if err := l.readString(prefix); err != nil {
					return nil, err
				}
				l.emit(tokString, start, line, col)
				continue
			}
			l.emit(tokName, start, line, col)
		case c == '"' || c == '\'':
			start := l.pos
			if err := l.readString(""); err != nil {
				return nil, err
			}
			l.emit(tokString, start, line, col)
		case isDigit(c) || (c == '.' && isDigit(l.peek(1))):
			if err := l.readNumber(line, col); err != nil {
				return nil, err
			}
		case c == '(' || c == '[' || c == '{':
			l.pos++
			l.emit(tokOp, l.pos-1, line, col)
			l.brackets = append(l.brackets, l.cur.tokens[len(l.cur.tokens)-1])
		case c == ')' || c == ']' || c == '}':
			if len(l.brackets) == 0 {
				return nil, l.errorf("unmatched '%c'", c)
			}
			open := l.brackets[len(l.brackets)-1]
			if []rune(open.text)[0] != closers[c] {
				return nil, l.errorf("closing parenthesis '%c' does not match opening parenthesis '%s' on line %d", c, open.text, open.line)
			}
			l.brackets = l.brackets[:len(l.brackets)-1]
			l.pos++
			l.emit(tokOp, l.pos-1, line, col)
		case c == ':' && l.peek(1) == '=':
			l.pos += 2
			l.emit(tokOp, l.pos-2, line, col)
		case l.pos == l.lineStart && isConflictMarker(l.src[l.pos:]):
			return nil, l.errorf("invalid syntax: merge conflict marker")
		case c == '<' && l.peek(1) == '>':
			return nil, l.errorf("invalid syntax: '<>' operator")
		case strings.ContainsRune("+-*/%@&|^~<>=!.,:;", c):
			l.pos++
			l.emit(tokOp, l.pos-1, line, col)
		default:
			return nil, l.errorf("invalid character %q (U+%04X)", c, c)
		}
	}

	if len(l.brackets) > 0 {
		open := l.brackets[len(l.brackets)-1]
		return nil, &ParseError{Line: open.line, Col: open.col, Msg: fmt.Sprintf("'%s' was never closed", open.text)}
	}
	l.endLine()
	return l.lines, nil
}

// indentation measures leading whitespace with tabs advancing to the next
// multiple of 8 and form feeds resetting the column.
func (l *lexer) indentation() int {
	col := 0
	for !l.eof() {
		switch l.src[l.pos] {
		case ' ':
			col++
		case '\t':
			col = (col/8 + 1) * 8
		case '\f':
			col = 0
		default:
			return col
		}
		l.pos++
	}
	return col
}

func (l *lexer) skipBlanks() {
	for !l.eof() {
		switch l.src[l.pos] {
		case ' ', '\t', '\f':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) skipComment() {
	if l.eof() || l.src[l.pos] != '#' {
		return
	}
	for !l.eof() && l.src[l.pos] != '\n' && l.src[l.pos] != '\r' {
		l.pos++
	}
}

func (l *lexer) readNumber(line, col int) error {
	start := l.pos
	for !l.eof() {
		c := l.src[l.pos]
		if isDigit(c) || isASCIILetter(c) || c == '_' || c == '.' {
			l.pos++
			continue
		}
		if (c == '+' || c == '-') && l.pos > start {
			prev := l.src[l.pos-1]
			body := strings.ToLower(string(l.src[start:l.pos]))
			if (prev == 'e' || prev == 'E') && !strings.HasPrefix(body, "0x") {
				l.pos++
				continue
			}
		}
		break
	}

	text := string(l.src[start:l.pos])
	n := len(numberLiteral.FindString(text))
	if n < len(text) {
		if n == 0 || !endsNumber(text[n:]) {
			return &ParseError{Line: line, Col: col, Msg: fmt.Sprintf("invalid %s literal", numberKind(text))}
		}
		// "1if x else 2" and "1..real": the rest is lexed again.
		l.pos = start + n
		text = text[:n]
	}
	if hasLeadingZeros(text) {
		return &ParseError{Line: line, Col: col,
			Msg: "leading zeros in decimal integer literals are not permitted; use an 0o prefix for octal integers"}
	}
	l.emit(tokNumber, start, line, col)
	return nil
}

const digitPart = `[0-9](?:_?[0-9])*`

// numberLiteral matches the longest Python 3 numeric literal at the start
// of its input.
var numberLiteral = func() *regexp.Regexp {
	re := regexp.MustCompile(`^(?:` +
		`(?:(?:` + digitPart + `)?\.` + digitPart + `|` + digitPart + `\.?)(?:[eE][+-]?` + digitPart + `)?[jJ]?` +
		`|0[xX](?:_?[0-9a-fA-F])+|0[oO](?:_?[0-7])+|0[bB](?:_?[01])+)`)
	re.Longest()
	return re
}()

// numberFollowers are the keywords Python accepts directly after a number.
var numberFollowers = []string{"and", "else", "for", "if", "in", "is", "not", "or"}

func endsNumber(rest string) bool {
	if rest[0] == '.' {
		return true
	}
	for _, kw := range numberFollowers {
		if strings.HasPrefix(rest, kw) {
			return true
		}
	}
	return false
}

func numberKind(text string) string {
	if len(text) > 1 && text[0] == '0' {
		switch text[1] {
		case 'x', 'X':
			return "hexadecimal"
		case 'o', 'O':
			return "octal"
		case 'b', 'B':
			return "binary"
		}
	}
	return "decimal"
}

// hasLeadingZeros reports Python 2 octals such as "0777".
func hasLeadingZeros(text string) bool {
	digits := strings.ReplaceAll(text, "_", "")
	if len(digits) < 2 || digits[0] != '0' {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return strings.Trim(digits, "0") != ""
}

// isConflictMarker reports a line starting with seven '<', '=' or '>'
// characters, as left behind by an unresolved merge.
func isConflictMarker(rest []rune) bool {
	if len(rest) < 7 || !strings.ContainsRune("<=>", rest[0]) {
		return false
	}
	for _, c := range rest[1:7] {
		if c != rest[0] {
			return false
		}
	}
	return true
}

// readString consumes a string literal starting at the opening quote.
// Formatted strings have their replacement fields scanned as expressions so
// nested quotes (allowed since Python 3.12) do not end the literal.
func (l *lexer) readString(prefix string) error {
	lower := strings.ToLower(prefix)
	formatted := strings.ContainsAny(lower, "ft")
	q := l.src[l.pos]
	triple := l.peek(1) == q && l.peek(2) == q
	startLine := l.line
	if triple {
		l.pos += 3
	} else {
		l.pos++
	}

	for {
		if l.eof() {
			if triple {
				return &ParseError{Line: startLine, Col: 1, Msg: "unterminated triple-quoted string literal"}
			}
			return l.errorf("unterminated string literal")
		}
		c := l.src[l.pos]
		switch {
		case c == '\\':
			l.pos++
			if l.eof() {
				continue
			}
			if l.src[l.pos] == '\n' || l.src[l.pos] == '\r' {
				l.newline()
			} else {
				l.pos++
			}
		case c == '\n' || c == '\r':
			if !triple {
				return l.errorf("unterminated string literal")
			}
			l.newline()
		case c == q:
			if !triple {
				l.pos++
				return nil
			}
			if l.peek(1) == q && l.peek(2) == q {
				l.pos += 3
				return nil
			}
			l.pos++
		case formatted && c == '{':
			if l.peek(1) == '{' {
				l.pos += 2
				continue
			}
			l.pos++
			if err := l.readReplacementField(q, triple); err != nil {
				return err
			}
		case formatted && c == '}':
			if l.peek(1) == '}' {
				l.pos += 2
				continue
			}
			return l.errorf("f-string: single '}' is not allowed")
		default:
			l.pos++
		}
	}
}

// readReplacementField scans an f-string replacement field after its "{",
// up to and including the matching "}".
func (l *lexer) readReplacementField(q rune, triple bool) error {
	nest := 0
	inSpec := false
	for {
		if l.eof() {
			return l.errorf("f-string: expecting '}'")
		}
		c := l.src[l.pos]
		switch {
		case c == '\n' || c == '\r':
			if inSpec && !triple {
				return l.errorf("unterminated string literal")
			}
			l.newline()
		case inSpec && c == '{':
			l.pos++
			if err := l.readReplacementField(q, triple); err != nil {
				return err
			}
		case inSpec && c == '}':
			l.pos++
			return nil
		case inSpec:
			if c == q && !triple {
				return l.errorf("f-string: expecting '}'")
			}
			l.pos++
		case c == '(' || c == '[' || c == '{':
			nest++
			l.pos++
		case c == ')' || c == ']':
			nest--
			l.pos++
		case c == '}':
			l.pos++
			if nest == 0 {
				return nil
			}
			nest--
		case c == ':' && nest == 0:
			inSpec = true
			l.pos++
		case c == '"' || c == '\'':
			if err := l.readString(l.prefixBefore()); err != nil {
				return err
			}
		case c == '\\':
			l.pos += 2
		default:
			l.pos++
		}
	}
}

// prefixBefore returns the identifier characters immediately preceding the
// current position if they form a string prefix.
func (l *lexer) prefixBefore() string {
	start := l.pos
	for start > 0 && isIdentPart(l.src[start-1]) {
		start--
	}
	p := string(l.src[start:l.pos])
	if isStringPrefix(p) {
		return p
	}
	return ""
}

var stringPrefixes = map[string]bool{
	"r": true, "u": true, "b": true, "f": true, "t": true,
	"br": true, "rb": true, "fr": true, "rf": true, "tr": true, "rt": true,
}

func isStringPrefix(s string) bool {
	return stringPrefixes[strings.ToLower(s)]
}

func isIdentStart(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.Is(unicode.Nl, c)
}

func isIdentPart(c rune) bool {
	return isIdentStart(c) || unicode.IsDigit(c) ||
		unicode.In(c, unicode.Mn, unicode.Mc, unicode.Nd, unicode.Pc)
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func isASCIILetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
