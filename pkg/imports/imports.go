// Package imports extracts import declarations from Python source.
//
// The extractor tokenizes a file into logical lines (strings, f-strings,
// comments, brackets, continuations and indentation are honoured) and parses
// every "import X" and "from X import ..." statement, including those nested
// in blocks or written as one-line compound statements such as
// "try: import ujson as json". Only statement structure is analyzed;
// expressions are tokenized but not parsed.
//
// Files the extractor cannot analyze produce a [*ParseError]. Callers treat
// such files as contributing no imports.
package imports

import (
	"bytes"
	"os"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	reqerrors "github.com/matzehuels/reqscan/pkg/errors"
)

// Import is one imported module reference.
type Import struct {
	Module string   // dotted module path as written; empty for "from . import x"
	Level  int      // number of leading dots in a relative import
	Names  []string // names imported by a from-import ("*" for star imports)
	Line   int      // line of the statement
}

// TopLevel returns the first segment of an absolute import's module path,
// or "" for relative imports, which always refer to the project itself.
func (i Import) TopLevel() string {
	if i.Level > 0 {
		return ""
	}
	top, _, _ := strings.Cut(i.Module, ".")
	return top
}

// File is the parsed import structure of one source file.
type File struct {
	Imports []Import
}

// TopLevel returns the set of top-level module names the file imports.
func (f *File) TopLevel() Set {
	s := make(Set)
	for _, imp := range f.Imports {
		if top := imp.TopLevel(); top != "" {
			s.Add(top)
		}
	}
	return s
}

var (
	utf8BOM      = []byte{0xEF, 0xBB, 0xBF}
	codingCookie = regexp.MustCompile(`^[ \t\f]*#.*?coding[:=][ \t]*([-\w.]+)`)
)

// latin1Encodings are single-byte encodings whose bytes map one-to-one onto
// the first 256 Unicode code points.
var latin1Encodings = map[string]bool{
	"latin-1": true, "latin1": true, "iso-8859-1": true, "iso8859-1": true,
	"iso-latin-1": true, "l1": true, "cp819": true,
}

// ParseSource parses Python source bytes.
func ParseSource(src []byte) (*File, error) {
	src = bytes.TrimPrefix(src, utf8BOM)
	if bytes.IndexByte(src, 0) >= 0 {
		return nil, &ParseError{Msg: "source code cannot contain null bytes"}
	}

	runes, err := decode(src)
	if err != nil {
		return nil, err
	}

	lines, err := newLexer(runes).tokenize()
	if err != nil {
		return nil, err
	}
	var p parser
	if err := p.file(lines); err != nil {
		return nil, err
	}
	return &File{Imports: p.imports}, nil
}

// decode converts source bytes to runes. UTF-8 is the default; a PEP 263
// coding declaration naming a Latin-1 alias is also honoured.
func decode(src []byte) ([]rune, error) {
	if utf8.Valid(src) {
		return []rune(string(src)), nil
	}
	for i, line := range bytes.SplitN(src, []byte("\n"), 3) {
		if i == 2 {
			break
		}
		m := codingCookie.FindSubmatch(line)
		if m == nil {
			continue
		}
		enc := strings.ToLower(strings.ReplaceAll(string(m[1]), "_", "-"))
		if latin1Encodings[enc] {
			runes := make([]rune, len(src))
			for j, b := range src {
				runes[j] = rune(b)
			}
			return runes, nil
		}
		return nil, &ParseError{Line: i + 1, Msg: "unsupported source encoding " + string(m[1])}
	}
	return nil, &ParseError{Msg: "source is not valid UTF-8"}
}

// Parse returns the top-level module names imported by src.
func Parse(src []byte) (Set, error) {
	f, err := ParseSource(src)
	if err != nil {
		return Set{}, err
	}
	return f.TopLevel(), nil
}

// ParseFile reads and parses the file at path.
//
// Read failures carry [reqerrors.ErrCodeSourceRead]; analysis failures carry
// [reqerrors.ErrCodeParse] and wrap a [*ParseError]. Both return an empty,
// non-nil set.
func ParseFile(path string) (Set, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Set{}, reqerrors.Wrap(reqerrors.ErrCodeSourceRead, err, "read %s", path)
	}
	s, err := Parse(src)
	if err != nil {
		return Set{}, reqerrors.Wrap(reqerrors.ErrCodeParse, err, "parse %s", path)
	}
	return s, nil
}

// Set is a set of import names.
type Set map[string]struct{}

// NewSet returns a set containing names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name.
func (s Set) Add(name string) { s[name] = struct{}{} }

// Has reports whether name is present.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Merge adds every element of other.
func (s Set) Merge(other Set) {
	for n := range other {
		s[n] = struct{}{}
	}
}

// Sorted returns the elements in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of elements.
func (s Set) Len() int { return len(s) }
