package imports

import (
	"fmt"
	"strings"
)

var keywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// compound keywords introduce a header ending in ":" that may be followed by
// a one-line body, as in "try: import ujson as json".
var compound = map[string]bool{
	"if": true, "elif": true, "else": true, "while": true, "for": true,
	"try": true, "except": true, "finally": true, "with": true,
	"def": true, "class": true,
}

type parser struct {
	imports []Import
}

func syntaxError(t token, format string, args ...any) error {
	return &ParseError{Line: t.line, Col: t.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) file(lines []logicalLine) error {
	indents := []int{0}
	expectBlock := false
	for _, ln := range lines {
		top := indents[len(indents)-1]
		first := ln.tokens[0]
		switch {
		case ln.indent > top:
			if !expectBlock {
				return syntaxError(first, "unexpected indent")
			}
			indents = append(indents, ln.indent)
		case expectBlock:
			return syntaxError(first, "expected an indented block")
		default:
			for ln.indent < indents[len(indents)-1] {
				indents = indents[:len(indents)-1]
			}
			if ln.indent != indents[len(indents)-1] {
				return syntaxError(first, "unindent does not match any outer indentation level")
			}
		}
		expectBlock = ln.tokens[len(ln.tokens)-1].is(tokOp, ":")

		if err := p.line(ln.tokens); err != nil {
			return err
		}
	}
	if expectBlock {
		last := lines[len(lines)-1].tokens
		return syntaxError(last[len(last)-1], "expected an indented block")
	}
	return nil
}

// line splits a logical line into simple statements on ";".
func (p *parser) line(toks []token) error {
	// "==" lexes as two adjacent "=" tokens; any other pair is "x = = 1".
	for i := 1; i < len(toks); i++ {
		prev, t := toks[i-1], toks[i]
		if t.is(tokOp, "=") && prev.is(tokOp, "=") && (prev.line != t.line || prev.col+1 != t.col) {
			return syntaxError(t, "invalid syntax")
		}
	}

	start := 0
	for i, t := range toks {
		if !t.is(tokOp, ";") {
			continue
		}
		if i == start {
			return syntaxError(t, "invalid syntax")
		}
		if err := p.statement(toks[start:i]); err != nil {
			return err
		}
		start = i + 1
	}
	if start < len(toks) {
		return p.statement(toks[start:])
	}
	return nil
}

func (p *parser) statement(toks []token) error {
	if len(toks) == 0 {
		return nil
	}
	first := toks[0]
	if first.is(tokName, "async") && len(toks) > 1 {
		toks = toks[1:]
		first = toks[0]
	}

	if first.kind == tokName && compound[first.text] {
		colon := headerColon(toks)
		if colon < 0 {
			return syntaxError(first, "expected ':'")
		}
		if first.text == "except" {
			if comma := topLevelComma(toks[1:colon]); comma >= 0 {
				return syntaxError(toks[1+comma], "multiple exception types must be parenthesized")
			}
		}
		return p.statement(toks[colon+1:])
	}

	// match and case are soft keywords; "match: int" is an annotation.
	if first.is(tokName, "match") || first.is(tokName, "case") {
		if colon := headerColon(toks); colon > 1 {
			return p.statement(toks[colon+1:])
		}
	}

	switch {
	case first.is(tokName, "import"):
		return p.importStmt(toks)
	case first.is(tokName, "from"):
		return p.fromStmt(toks)
	}

	if (first.is(tokName, "print") || first.is(tokName, "exec")) && len(toks) > 1 {
		next := toks[1]
		if next.kind == tokString || next.kind == tokNumber || (next.kind == tokName && !keywords[next.text]) {
			return syntaxError(first, "missing parentheses in call to '%s'", first.text)
		}
	}
	for _, t := range toks[1:] {
		if t.is(tokName, "import") {
			return syntaxError(t, "invalid syntax")
		}
	}
	return nil
}

// headerColon returns the index of the ":" ending a compound statement
// header, skipping colons inside brackets and those belonging to lambdas.
func headerColon(toks []token) int {
	depth, lambdas := 0, 0
	for i, t := range toks {
		if t.kind == tokName && t.text == "lambda" && depth == 0 {
			lambdas++
			continue
		}
		if t.kind != tokOp {
			continue
		}
		switch t.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ":":
			if depth != 0 {
				continue
			}
			if lambdas > 0 {
				lambdas--
				continue
			}
			return i
		}
	}
	return -1
}

// topLevelComma returns the index of the first "," outside brackets, or -1.
func topLevelComma(toks []token) int {
	depth := 0
	for i, t := range toks {
		if t.kind != tokOp {
			continue
		}
		switch t.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ",":
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// dottedName parses NAME ("." NAME)* starting at toks[i].
func dottedName(toks []token, i int) (string, int, error) {
	var parts []string
	for {
		if i >= len(toks) {
			return "", i, syntaxError(toks[len(toks)-1], "invalid syntax: expected module name")
		}
		t := toks[i]
		if t.kind != tokName || keywords[t.text] {
			return "", i, syntaxError(t, "invalid syntax: expected module name")
		}
		parts = append(parts, t.text)
		i++
		if i < len(toks) && toks[i].is(tokOp, ".") {
			i++
			continue
		}
		return strings.Join(parts, "."), i, nil
	}
}

// asName consumes an optional "as NAME" clause.
func asName(toks []token, i int) (int, error) {
	if i >= len(toks) || !toks[i].is(tokName, "as") {
		return i, nil
	}
	i++
	if i >= len(toks) || toks[i].kind != tokName || keywords[toks[i].text] {
		return i, syntaxError(toks[i-1], "invalid syntax: expected name after 'as'")
	}
	return i + 1, nil
}

// importStmt parses: "import" dotted_name ["as" NAME] ("," ...)*
func (p *parser) importStmt(toks []token) error {
	i := 1
	for {
		name, next, err := dottedName(toks, i)
		if err != nil {
			return err
		}
		if i, err = asName(toks, next); err != nil {
			return err
		}
		p.imports = append(p.imports, Import{Module: name, Line: toks[0].line})
		if i == len(toks) {
			return nil
		}
		if !toks[i].is(tokOp, ",") || i+1 == len(toks) {
			return syntaxError(toks[i], "invalid syntax")
		}
		i++
	}
}

// fromStmt parses: "from" ("."* dotted_name | "."+) "import" ("*" | names | "(" names [","] ")")
func (p *parser) fromStmt(toks []token) error {
	i, level := 1, 0
	for i < len(toks) && toks[i].is(tokOp, ".") {
		level++
		i++
	}

	var module string
	if i < len(toks) && !toks[i].is(tokName, "import") {
		var err error
		if module, i, err = dottedName(toks, i); err != nil {
			return err
		}
	}
	if level == 0 && module == "" {
		return syntaxError(toks[0], "invalid syntax: expected module name")
	}
	if i >= len(toks) || !toks[i].is(tokName, "import") {
		return syntaxError(toks[min(i, len(toks)-1)], "invalid syntax: expected 'import'")
	}
	i++
	if i >= len(toks) {
		return syntaxError(toks[i-1], "invalid syntax: expected names to import")
	}

	imp := Import{Module: module, Level: level, Line: toks[0].line}
	switch {
	case toks[i].is(tokOp, "*"):
		if i+1 != len(toks) {
			return syntaxError(toks[i+1], "invalid syntax")
		}
		imp.Names = []string{"*"}
	case toks[i].is(tokOp, "("):
		last := toks[len(toks)-1]
		if !last.is(tokOp, ")") {
			return syntaxError(last, "invalid syntax")
		}
		names, err := importNames(toks[i], toks[i+1:len(toks)-1], true)
		if err != nil {
			return err
		}
		imp.Names = names
	default:
		names, err := importNames(toks[i], toks[i:], false)
		if err != nil {
			return err
		}
		imp.Names = names
	}
	p.imports = append(p.imports, imp)
	return nil
}

// importNames parses NAME ["as" NAME] ("," ...)* with an optional trailing
// comma when parenthesized. at anchors errors for an empty list.
func importNames(at token, toks []token, parenthesized bool) ([]string, error) {
	if len(toks) == 0 {
		return nil, syntaxError(at, "invalid syntax: empty import list")
	}
	var names []string
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.kind != tokName || keywords[t.text] {
			return nil, syntaxError(t, "invalid syntax: expected name")
		}
		names = append(names, t.text)
		var err error
		if i, err = asName(toks, i+1); err != nil {
			return nil, err
		}
		if i == len(toks) {
			break
		}
		if !toks[i].is(tokOp, ",") {
			return nil, syntaxError(toks[i], "invalid syntax")
		}
		i++
		if i == len(toks) && !parenthesized {
			return nil, syntaxError(toks[i-1], "trailing comma not allowed without surrounding parentheses")
		}
	}
	return names, nil
}
