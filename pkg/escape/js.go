package escape

import (
	"bytes"
	"unicode"
)

// nextJSCtx returns the context that determines whether a slash after the
// given run of tokens starts a regular expression or is a division
// operator. It resolves the classic slash ambiguity by deciding whether
// the previously significant token could end an expression.
func nextJSCtx(s []byte, preceding jsCtx) jsCtx {
	s = bytes.TrimRight(s, "\t\n\f\r   ")
	if len(s) == 0 {
		return preceding
	}
	switch c, n := s[len(s)-1], len(s); c {
	case '+', '-':
		// ++ and -- cannot precede a regexp, but + and - can whether
		// used as prefix or infix operators. Count adjacent repeats:
		// "---" parses as "-- -" which expects an operand next.
		start := n - 1
		for start > 0 && s[start-1] == c {
			start--
		}
		if (n-start)&1 == 1 {
			return jsCtxRegexp
		}
		return jsCtxDivOp
	case '.':
		// Handle "42."
		if n != 1 && '0' <= s[n-2] && s[n-2] <= '9' {
			return jsCtxDivOp
		}
		return jsCtxRegexp
	case '(', '[', '{', ',', ';', ':', '?', '=', '<', '>', '&', '|', '^', '%', '*', '/', '!', '~':
		// Punctuation that cannot end an expression.
		return jsCtxRegexp
	case ')', ']', '}', '"', '\'':
		return jsCtxDivOp
	default:
		// Look for an identifier and see if it is a keyword that can
		// precede a regular expression.
		j := n
		for j > 0 && isJSIdentPart(rune(s[j-1])) {
			j--
		}
		if regexpPrecederKeywords[string(s[j:n])] {
			return jsCtxRegexp
		}
	}
	// A string, number, or identifier precedes a division operator.
	return jsCtxDivOp
}

// regexpPrecederKeywords is the set of reserved words that can precede a
// regular expression in script source.
var regexpPrecederKeywords = map[string]bool{
	"break":      true,
	"case":       true,
	"continue":   true,
	"delete":     true,
	"do":         true,
	"else":       true,
	"finally":    true,
	"in":         true,
	"instanceof": true,
	"return":     true,
	"throw":      true,
	"try":        true,
	"typeof":     true,
	"void":       true,
}

// isJSIdentPart reports whether the given rune is a JS identifier part.
// It does not handle all the non-Latin letters, joiners, and combining
// marks, but it does handle every codepoint that can occur in a numeric
// literal or a keyword.
func isJSIdentPart(r rune) bool {
	switch {
	case r == '$':
		return true
	case '0' <= r && r <= '9':
		return true
	case 'A' <= r && r <= 'Z':
		return true
	case r == '_':
		return true
	case 'a' <= r && r <= 'z':
		return true
	case r > unicode.MaxASCII:
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}
	return false
}
