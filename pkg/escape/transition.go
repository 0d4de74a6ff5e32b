package escape

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/lumen-templates/lumen/pkg/diag"
)

// This file implements the micro-tokenizer: given a context and a run of
// literal template text, compute the context after that text. It tracks
// tag, attribute, comment, string and regexp boundaries closely enough to
// decide escaping, without being a conforming parser for any of the
// grammars involved.

func tokErrorf(code diag.Code, format string, args ...any) *diag.Diagnostic {
	return &diag.Diagnostic{
		Severity: diag.Error,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	}
}

// transitionFunc is the array of context transition functions for text
// nodes. A transition function takes a context and template text input,
// and returns the updated context and the number of bytes consumed.
var transitionFunc = [...]func(Context, []byte) (Context, int){
	statePlain:       tPlain,
	stateText:        tText,
	stateTag:         tTag,
	stateAttrName:    tAttrName,
	stateAfterName:   tAfterName,
	stateBeforeValue: tBeforeValue,
	stateAttr:        tAttr,
	stateHTMLCmt:     tHTMLCmt,
	stateRCDATA:      tSpecialTagEnd,
	stateURL:         tURL,
	stateJS:          tJS,
	stateJSDqStr:     tJSDelimited,
	stateJSSqStr:     tJSDelimited,
	stateJSRegexp:    tJSDelimited,
	stateJSBlockCmt:  tBlockCmt,
	stateJSLineCmt:   tLineCmt,
	stateCSS:         tCSS,
	stateCSSDqStr:    tCSSStr,
	stateCSSSqStr:    tCSSStr,
	stateCSSDqURL:    tCSSStr,
	stateCSSSqURL:    tCSSStr,
	stateCSSURL:      tCSSStr,
	stateCSSBlockCmt: tBlockCmt,
	stateCSSLineCmt:  tLineCmt,
	stateError:       tError,
}

// contextAfterText starts in context c, consumes some tokens from the
// front of s, then returns the context after those tokens and the
// unprocessed suffix offset.
func contextAfterText(c Context, s []byte) (Context, int) {
	if c.delim == delimNone {
		c1, i := tSpecialTagEnd(c, s)
		if i == 0 {
			// A special end tag (</script) has been seen and all content
			// preceding it has been consumed.
			return c1, 0
		}
		// Consider all content up to any end tag.
		return transitionFunc[c.state](c, s[:i])
	}

	// We are inside an attribute value. Find the end of the value.
	i := bytes.IndexAny(s, delimEnds[c.delim])
	if i == -1 {
		i = len(s)
	}
	if c.delim == delimSpaceOrTagEnd {
		// HTML5 treats these as parse errors in unquoted values, and
		// browsers disagree on where such a value ends.
		if j := bytes.IndexAny(s[:i], "\"'<=`"); j >= 0 {
			return Context{
				state: stateError,
				err: tokErrorf(diag.HTMLParseError,
					"%q in unquoted attr: %q", s[j:j+1], s[:i]),
			}, len(s)
		}
	}
	if i == len(s) {
		// Remain inside the attribute. Decode entities so the nested
		// grammar sees token boundaries the way its parser will:
		//   <button onclick="alert(&quot;Hi!&quot;)">
		for u := []byte(html.UnescapeString(string(s))); len(u) != 0; {
			c1, i1 := transitionFunc[c.state](c, u)
			c, u = c1, u[i1:]
		}
		return c, len(s)
	}
	if c.delim != delimSpaceOrTagEnd {
		// Consume the closing quote.
		i++
	}
	// On exiting an attribute, discard all state except the element type.
	return Context{state: stateTag, element: c.element}, i
}

// delimEnds maps each delim to a string of characters that terminate an
// attribute value using that delimiter.
var delimEnds = [...]string{
	delimDoubleQuote:   `"`,
	delimSingleQuote:   "'",
	delimSpaceOrTagEnd: " \t\n\f\r>",
}

// tPlain is the transition function for plain text templates: literal
// text never changes the context.
func tPlain(c Context, s []byte) (Context, int) {
	return c, len(s)
}

var commentStart = []byte("<!--")
var commentEnd = []byte("-->")

// tText is the transition function for the HTML text state.
func tText(c Context, s []byte) (Context, int) {
	k := 0
	for {
		i := k + bytes.IndexByte(s[k:], '<')
		if i < k || i+1 == len(s) {
			return c, len(s)
		} else if i+4 <= len(s) && bytes.Equal(commentStart, s[i:i+4]) {
			return Context{state: stateHTMLCmt}, i + 4
		}
		i++
		end := false
		if s[i] == '/' {
			if i+1 == len(s) {
				return c, len(s)
			}
			end, i = true, i+1
		}
		j, e := eatTagName(s, i)
		if j != i {
			if end {
				e = elementNone
			}
			return Context{state: stateTag, element: e}, j
		}
		k = j
	}
}

// elementContentType maps elements to the state their content starts in.
var elementContentType = [...]state{
	elementNone:     stateText,
	elementScript:   stateJS,
	elementStyle:    stateCSS,
	elementTextarea: stateRCDATA,
	elementTitle:    stateRCDATA,
}

// tTag is the transition function for the tag state.
func tTag(c Context, s []byte) (Context, int) {
	i := eatWhiteSpace(s, 0)
	if i == len(s) {
		return c, len(s)
	}
	if s[i] == '>' {
		return Context{
			state:   elementContentType[c.element],
			element: c.element,
		}, i + 1
	}
	j, err := eatAttrName(s, i)
	if err != nil {
		return Context{state: stateError, err: err}, len(s)
	}
	if i == j {
		return Context{
			state: stateError,
			err: tokErrorf(diag.HTMLParseError,
				"expected space, attr name, or end of tag, but got %q", s[i:]),
		}, len(s)
	}
	state, a := stateTag, attrType(strings.ToLower(string(s[i:j])))
	if j == len(s) {
		state = stateAttrName
	} else {
		state = stateAfterName
	}
	return Context{state: state, element: c.element, attr: a}, j
}

func tAttrName(c Context, s []byte) (Context, int) {
	i, err := eatAttrName(s, 0)
	if err != nil {
		return Context{state: stateError, err: err}, len(s)
	} else if i != len(s) {
		c.state = stateAfterName
	}
	return c, i
}

func tAfterName(c Context, s []byte) (Context, int) {
	i := eatWhiteSpace(s, 0)
	if i == len(s) {
		return c, len(s)
	} else if s[i] == '=' {
		c.state = stateBeforeValue
		return c, i + 1
	}
	// Attribute without a value.
	c.state = stateTag
	return c, i
}

// attrStartStates maps attribute types to the states their values start in.
var attrStartStates = [...]state{
	attrNone:   stateAttr,
	attrScript: stateJS,
	attrStyle:  stateCSS,
	attrURL:    stateURL,
}

func tBeforeValue(c Context, s []byte) (Context, int) {
	i := eatWhiteSpace(s, 0)
	if i == len(s) {
		return c, len(s)
	}
	d := delimSpaceOrTagEnd
	switch s[i] {
	case '\'':
		d, i = delimSingleQuote, i+1
	case '"':
		d, i = delimDoubleQuote, i+1
	}
	c.state, c.delim = attrStartStates[c.attr], d
	return c, i
}

func tAttr(c Context, s []byte) (Context, int) {
	return c, len(s)
}

func tHTMLCmt(c Context, s []byte) (Context, int) {
	if i := bytes.Index(s, commentEnd); i != -1 {
		return Context{state: stateText}, i + 3
	}
	return c, len(s)
}

var specialTagEndMarkers = [...][]byte{
	elementScript:   []byte("script"),
	elementStyle:    []byte("style"),
	elementTextarea: []byte("textarea"),
	elementTitle:    []byte("title"),
}

var specialTagEndPrefix = []byte("</")
var tagEndSeparators = []byte("> \t\n\f/")

// tSpecialTagEnd is the transition function for raw text and RCDATA
// element states: no transitions happen until the matching end tag.
func tSpecialTagEnd(c Context, s []byte) (Context, int) {
	if c.element != elementNone {
		if i := indexTagEnd(s, specialTagEndMarkers[c.element]); i != -1 {
			return Context{state: stateText}, i
		}
	}
	return c, len(s)
}

// indexTagEnd finds the index of a special tag end in a case insensitive
// way, or returns -1.
func indexTagEnd(s []byte, tag []byte) int {
	res := 0
	plen := len(specialTagEndPrefix)
	for len(s) > 0 {
		i := bytes.Index(s, specialTagEndPrefix)
		if i == -1 {
			return -1
		}
		i += plen
		if len(s[i:]) >= len(tag) && bytes.EqualFold(tag, s[i:i+len(tag)]) {
			j := i + len(tag)
			if j == len(s) || bytes.IndexByte(tagEndSeparators, s[j]) != -1 {
				return res + i - plen
			}
		}
		res += i
		s = s[i:]
	}
	return -1
}

func tURL(c Context, s []byte) (Context, int) {
	if bytes.ContainsAny(s, "#?") {
		c.urlPart = urlPartQueryOrFrag
	} else if len(s) != eatWhiteSpace(s, 0) && c.urlPart == urlPartNone {
		// HTML5 allows a URL to be surrounded by spaces, so a leading
		// space run does not commit us to the pre-query part yet.
		c.urlPart = urlPartPreQuery
	}
	return c, len(s)
}

func tJS(c Context, s []byte) (Context, int) {
	i := bytes.IndexAny(s, `"'/`)
	if i == -1 {
		// Entire input is non string, comment, regexp tokens.
		c.jsCtx = nextJSCtx(s, c.jsCtx)
		return c, len(s)
	}
	c.jsCtx = nextJSCtx(s[:i], c.jsCtx)
	switch s[i] {
	case '"':
		c.state, c.jsCtx = stateJSDqStr, jsCtxRegexp
	case '\'':
		c.state, c.jsCtx = stateJSSqStr, jsCtxRegexp
	case '/':
		switch {
		case i+1 < len(s) && s[i+1] == '/':
			c.state, i = stateJSLineCmt, i+1
		case i+1 < len(s) && s[i+1] == '*':
			c.state, i = stateJSBlockCmt, i+1
		case c.jsCtx == jsCtxRegexp:
			c.state = stateJSRegexp
		case c.jsCtx == jsCtxDivOp:
			c.jsCtx = jsCtxRegexp
		default:
			return Context{
				state: stateError,
				err: tokErrorf(diag.HTMLParseError,
					"'/' could start a division or regexp: %q", s[:i+1]),
			}, len(s)
		}
	}
	return c, i + 1
}

func tJSDelimited(c Context, s []byte) (Context, int) {
	specials := `\"`
	switch c.state {
	case stateJSSqStr:
		specials = `\'`
	case stateJSRegexp:
		specials = `\/[]`
	}

	k, inCharset := 0, false
	for {
		i := k + bytes.IndexAny(s[k:], specials)
		if i < k {
			break
		}
		switch s[i] {
		case '\\':
			i++
			if i == len(s) {
				return Context{
					state: stateError,
					err: tokErrorf(diag.HTMLParseError,
						"unfinished escape sequence in JS string: %q", s),
				}, len(s)
			}
		case '[':
			inCharset = true
		case ']':
			inCharset = false
		default:
			// The delimiter.
			if !inCharset {
				c.state, c.jsCtx = stateJS, jsCtxDivOp
				return c, i + 1
			}
		}
		k = i + 1
	}

	if inCharset {
		// A partial character set is not valid and browsers disagree on
		// how to recover.
		return Context{
			state: stateError,
			err: tokErrorf(diag.HTMLParseError,
				"unfinished JS regexp charset: %q", s),
		}, len(s)
	}
	return c, len(s)
}

var blockCommentEnd = []byte("*/")

func tBlockCmt(c Context, s []byte) (Context, int) {
	i := bytes.Index(s, blockCommentEnd)
	if i == -1 {
		return c, len(s)
	}
	switch c.state {
	case stateJSBlockCmt:
		c.state = stateJS
	case stateCSSBlockCmt:
		c.state = stateCSS
	}
	return c, i + 2
}

func tLineCmt(c Context, s []byte) (Context, int) {
	var lineTerminators string
	var endState state
	switch c.state {
	case stateJSLineCmt:
		lineTerminators, endState = "\n\r  ", stateJS
	case stateCSSLineCmt:
		// Line comments are not part of any CSS standard but are
		// handled by sass-style preprocessors templates often target.
		lineTerminators, endState = "\n\f\r", stateCSS
	default:
		return c, len(s)
	}
	i := bytes.IndexAny(s, lineTerminators)
	if i == -1 {
		return c, len(s)
	}
	c.state = endState
	// The line terminator is not part of the comment.
	return c, i
}

func tCSS(c Context, s []byte) (Context, int) {
	k := 0
	for {
		i := k + bytes.IndexAny(s[k:], `("'/`)
		if i < k {
			return c, len(s)
		}
		switch s[i] {
		case '(':
			// Look for url to the left.
			p := bytes.TrimRight(s[:i], "\t\n\f\r ")
			if endsWithCSSKeyword(p, "url") {
				j := len(s) - len(bytes.TrimLeft(s[i+1:], "\t\n\f\r "))
				switch {
				case j != len(s) && s[j] == '"':
					c.state, j = stateCSSDqURL, j+1
				case j != len(s) && s[j] == '\'':
					c.state, j = stateCSSSqURL, j+1
				default:
					c.state = stateCSSURL
				}
				return c, j
			}
		case '/':
			if i+1 < len(s) {
				switch s[i+1] {
				case '/':
					c.state = stateCSSLineCmt
					return c, i + 2
				case '*':
					c.state = stateCSSBlockCmt
					return c, i + 2
				}
			}
		case '"':
			c.state = stateCSSDqStr
			return c, i + 1
		case '\'':
			c.state = stateCSSSqStr
			return c, i + 1
		}
		k = i + 1
	}
}

func tCSSStr(c Context, s []byte) (Context, int) {
	var endAndEsc string
	switch c.state {
	case stateCSSDqStr, stateCSSDqURL:
		endAndEsc = `\"`
	case stateCSSSqStr, stateCSSSqURL:
		endAndEsc = `\'`
	case stateCSSURL:
		// Unquoted URLs end with whitespace or close parenthesis.
		endAndEsc = "\\\t\n\f\r )"
	default:
		return c, len(s)
	}

	k := 0
	for {
		i := k + bytes.IndexAny(s[k:], endAndEsc)
		if i < k {
			c, nread := tURL(c, s[k:])
			return c, k + nread
		}
		if s[i] == '\\' {
			i++
			if i == len(s) {
				return Context{
					state: stateError,
					err: tokErrorf(diag.HTMLParseError,
						"unfinished escape sequence in CSS string: %q", s),
				}, len(s)
			}
		} else {
			c.state = stateCSS
			return c, i + 1
		}
		c, _ = tURL(c, s[:i+1])
		k = i + 1
	}
}

func tError(c Context, s []byte) (Context, int) {
	return c, len(s)
}

// endsWithCSSKeyword reports whether b ends with an ident that
// case-insensitively matches the given keyword.
func endsWithCSSKeyword(b []byte, kw string) bool {
	i := len(b) - len(kw)
	if i < 0 {
		return false
	}
	if i != 0 {
		r := b[i-1]
		// Check that the keyword is not a suffix of a larger ident.
		if asciiAlphaNum(r) || r == '-' || r == '_' || r >= 0x80 {
			return false
		}
	}
	return strings.EqualFold(string(b[i:]), kw)
}

// eatAttrName returns the largest j such that s[i:j] is an attribute name.
// It returns a diagnostic if s[i:] does not look like it begins with an
// attribute name, such as encountering a quote mark without a preceding
// equals sign.
func eatAttrName(s []byte, i int) (int, *diag.Diagnostic) {
	for j := i; j < len(s); j++ {
		switch s[j] {
		case ' ', '\t', '\n', '\f', '\r', '=', '>':
			return j, nil
		case '\'', '"', '<':
			// These result in a parse warning in HTML5 and are indicative
			// of serious problems if seen in an attr name in a template.
			return -1, tokErrorf(diag.HTMLParseError,
				"%q in attribute name: %.32q", s[j:j+1], s)
		default:
			// No-op.
		}
	}
	return len(s), nil
}

var elementNameMap = map[string]element{
	"script":   elementScript,
	"style":    elementStyle,
	"textarea": elementTextarea,
	"title":    elementTitle,
}

func asciiAlpha(c byte) bool {
	return 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z'
}

func asciiAlphaNum(c byte) bool {
	return asciiAlpha(c) || '0' <= c && c <= '9'
}

// eatTagName returns the largest j such that s[i:j] is a tag name and the
// tag type.
func eatTagName(s []byte, i int) (int, element) {
	if i == len(s) || !asciiAlpha(s[i]) {
		return i, elementNone
	}
	j := i + 1
	for j < len(s) {
		x := s[j]
		if asciiAlphaNum(x) {
			j++
			continue
		}
		// Allow "x-y" or "x:y" but not "x-", "-y", or "x--y".
		if (x == ':' || x == '-') && j+1 < len(s) && asciiAlphaNum(s[j+1]) {
			j += 2
			continue
		}
		break
	}
	return j, elementNameMap[strings.ToLower(string(s[i:j]))]
}

// eatWhiteSpace returns the largest j such that s[i:j] is white space.
func eatWhiteSpace(s []byte, i int) int {
	for j := i; j < len(s); j++ {
		switch s[j] {
		case ' ', '\t', '\n', '\f', '\r':
			// No-op.
		default:
			return j
		}
	}
	return len(s)
}
