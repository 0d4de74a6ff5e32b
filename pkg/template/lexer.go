package template

import (
	"sort"

	"github.com/lumen-templates/lumen/pkg/diag"
)

// The lexer scans template source and yields tokens for literal text and
// the three delimiter forms: prints {{ }}, statements {% %}, and comments
// {# #}.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokText
	tokVarStart  // {{
	tokVarEnd    // }}
	tokStmtStart // {%
	tokStmtEnd   // %}
	tokCommStart // {#
	tokCommEnd   // #}
	tokContent   // content inside a tag (parser requests it)
)

type token struct {
	kind tokenKind
	val  string
	pos  int // byte offset in source
}

type lexer struct {
	file  string
	src   []byte
	i     int
	n     int
	lines []int // byte offset of each line start
}

func newLexer(file string, src []byte) *lexer {
	l := &lexer{file: file, src: src, n: len(src)}
	l.lines = append(l.lines, 0)
	for i, b := range src {
		if b == '\n' {
			l.lines = append(l.lines, i+1)
		}
	}
	return l
}

// posAt converts a byte offset to a full source position.
func (l *lexer) posAt(off int) diag.Pos {
	line := sort.Search(len(l.lines), func(i int) bool { return l.lines[i] > off })
	return diag.Pos{
		File: l.file,
		Off:  off,
		Line: line,
		Col:  off - l.lines[line-1] + 1,
	}
}

// nextTokenOutside scans in literal-text context and emits either a text
// token up to the next opening delimiter, or an opening delimiter token,
// or EOF.
func (l *lexer) nextTokenOutside() token {
	if l.i >= l.n {
		return token{kind: tokEOF, pos: l.i}
	}
	start := l.i
	for l.i < l.n {
		if l.i+2 <= l.n {
			switch string(l.src[l.i : l.i+2]) {
			case "{{":
				if l.i > start {
					return token{kind: tokText, val: string(l.src[start:l.i]), pos: start}
				}
				l.i += 2
				return token{kind: tokVarStart, pos: start}
			case "{%":
				if l.i > start {
					return token{kind: tokText, val: string(l.src[start:l.i]), pos: start}
				}
				l.i += 2
				return token{kind: tokStmtStart, pos: start}
			case "{#":
				if l.i > start {
					return token{kind: tokText, val: string(l.src[start:l.i]), pos: start}
				}
				l.i += 2
				return token{kind: tokCommStart, pos: start}
			}
		}
		l.i++
	}
	if start < l.n {
		return token{kind: tokText, val: string(l.src[start:l.n]), pos: start}
	}
	return token{kind: tokEOF, pos: l.i}
}

// nextTokenInside scans inside a tag of the given closing kind, returning
// either tokContent chunks or the appropriate closing token.
func (l *lexer) nextTokenInside(close tokenKind) token {
	if l.i >= l.n {
		return token{kind: tokEOF, pos: l.i}
	}
	var delim string
	switch close {
	case tokVarEnd:
		delim = "}}"
	case tokStmtEnd:
		delim = "%}"
	case tokCommEnd:
		delim = "#}"
	}
	start := l.i
	for l.i < l.n {
		if l.i+2 <= l.n && string(l.src[l.i:l.i+2]) == delim {
			if l.i > start {
				return token{kind: tokContent, val: string(l.src[start:l.i]), pos: start}
			}
			l.i += 2
			return token{kind: close, pos: start}
		}
		l.i++
	}
	// Unterminated tag; return remaining content then EOF.
	if start < l.n {
		return token{kind: tokContent, val: string(l.src[start:l.n]), pos: start}
	}
	return token{kind: tokEOF, pos: l.i}
}
