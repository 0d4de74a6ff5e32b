// Package escape implements the contextual autoescaping pass: it infers
// the output grammar position of every print in a template and selects
// the escaping operations that neutralize the printed value for that
// position.
package escape

import (
	"fmt"

	"github.com/lumen-templates/lumen/pkg/diag"
	"github.com/lumen-templates/lumen/pkg/template"
)

// Context describes the state the output stream is in at one point of a
// template. It is a value type; transitions produce new contexts.
type Context struct {
	state   state
	delim   delim
	urlPart urlPart
	jsCtx   jsCtx
	attr    attr
	element element
	err     *diag.Diagnostic
}

func (c Context) String() string {
	var parts []string
	add := func(s fmt.Stringer, zero bool) {
		if !zero {
			parts = append(parts, s.String())
		}
	}
	add(c.state, false)
	add(c.delim, c.delim == delimNone)
	add(c.urlPart, c.urlPart == urlPartNone)
	add(c.jsCtx, c.jsCtx == jsCtxRegexp)
	add(c.attr, c.attr == attrNone)
	add(c.element, c.element == elementNone)
	s := "{"
	for i, p := range parts {
		if i > 0 {
			s += " "
		}
		s += p
	}
	return s + "}"
}

// eq reports whether two contexts are identical ignoring the attached
// diagnostic.
func (c Context) eq(d Context) bool {
	return c.state == d.state &&
		c.delim == d.delim &&
		c.urlPart == d.urlPart &&
		c.jsCtx == d.jsCtx &&
		c.attr == d.attr &&
		c.element == d.element
}

// state describes a high-level grammar position.
type state uint8

const (
	// statePlain is plain text: no markup grammar at all. Used for
	// templates of kind text.
	statePlain state = iota
	// stateText is HTML character data between tags.
	stateText
	// stateTag occurs before an HTML attribute or the end of a tag.
	stateTag
	// stateAttrName occurs inside an attribute name.
	stateAttrName
	// stateAfterName occurs after an attribute name, before any '='.
	stateAfterName
	// stateBeforeValue occurs after '=', before the attribute value.
	stateBeforeValue
	// stateAttr occurs inside a plain attribute value.
	stateAttr
	// stateHTMLCmt occurs inside an <!-- HTML comment -->.
	stateHTMLCmt
	// stateRCDATA occurs inside an RCDATA element (<textarea>, <title>)
	// where text and entities may appear but tags may not.
	stateRCDATA
	// stateURL occurs inside a URL-valued attribute.
	stateURL
	// stateJS occurs inside script content or a script-handler attribute.
	stateJS
	// stateJSDqStr occurs inside a script double-quoted string.
	stateJSDqStr
	// stateJSSqStr occurs inside a script single-quoted string.
	stateJSSqStr
	// stateJSRegexp occurs inside a script regular expression literal.
	stateJSRegexp
	// stateJSBlockCmt occurs inside a script /* block comment */.
	stateJSBlockCmt
	// stateJSLineCmt occurs inside a script // line comment.
	stateJSLineCmt
	// stateCSS occurs inside style content or a style attribute.
	stateCSS
	// stateCSSDqStr occurs inside a style double-quoted string.
	stateCSSDqStr
	// stateCSSSqStr occurs inside a style single-quoted string.
	stateCSSSqStr
	// stateCSSDqURL occurs inside a style url("...").
	stateCSSDqURL
	// stateCSSSqURL occurs inside a style url('...').
	stateCSSSqURL
	// stateCSSURL occurs inside a style unquoted url(...).
	stateCSSURL
	// stateCSSBlockCmt occurs inside a style /* block comment */.
	stateCSSBlockCmt
	// stateCSSLineCmt occurs inside a style // line comment.
	stateCSSLineCmt
	// stateError is an infectious error state outside any valid grammar
	// position. Once entered it is never left.
	stateError
)

var stateNames = [...]string{
	statePlain:       "statePlain",
	stateText:        "stateText",
	stateTag:         "stateTag",
	stateAttrName:    "stateAttrName",
	stateAfterName:   "stateAfterName",
	stateBeforeValue: "stateBeforeValue",
	stateAttr:        "stateAttr",
	stateHTMLCmt:     "stateHTMLCmt",
	stateRCDATA:      "stateRCDATA",
	stateURL:         "stateURL",
	stateJS:          "stateJS",
	stateJSDqStr:     "stateJSDqStr",
	stateJSSqStr:     "stateJSSqStr",
	stateJSRegexp:    "stateJSRegexp",
	stateJSBlockCmt:  "stateJSBlockCmt",
	stateJSLineCmt:   "stateJSLineCmt",
	stateCSS:         "stateCSS",
	stateCSSDqStr:    "stateCSSDqStr",
	stateCSSSqStr:    "stateCSSSqStr",
	stateCSSDqURL:    "stateCSSDqURL",
	stateCSSSqURL:    "stateCSSSqURL",
	stateCSSURL:      "stateCSSURL",
	stateCSSBlockCmt: "stateCSSBlockCmt",
	stateCSSLineCmt:  "stateCSSLineCmt",
	stateError:       "stateError",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("illegal state %d", int(s))
}

// isComment reports whether a state contains content meant for humans,
// not the grammar.
func isComment(s state) bool {
	switch s {
	case stateHTMLCmt, stateJSBlockCmt, stateJSLineCmt, stateCSSBlockCmt, stateCSSLineCmt:
		return true
	}
	return false
}

// isInTag reports whether s occurs solely inside an HTML tag.
func isInTag(s state) bool {
	switch s {
	case stateTag, stateAttrName, stateAfterName, stateBeforeValue, stateAttr:
		return true
	}
	return false
}

// delim is the delimiter that will close the current HTML attribute.
type delim uint8

const (
	// delimNone occurs outside any attribute.
	delimNone delim = iota
	// delimDoubleQuote occurs when a double quote (") closes the attribute.
	delimDoubleQuote
	// delimSingleQuote occurs when a single quote (') closes the attribute.
	delimSingleQuote
	// delimSpaceOrTagEnd occurs in an unquoted attribute value.
	delimSpaceOrTagEnd
)

var delimNames = [...]string{
	delimNone:          "delimNone",
	delimDoubleQuote:   "delimDoubleQuote",
	delimSingleQuote:   "delimSingleQuote",
	delimSpaceOrTagEnd: "delimSpaceOrTagEnd",
}

func (d delim) String() string {
	if int(d) < len(delimNames) {
		return delimNames[d]
	}
	return fmt.Sprintf("illegal delim %d", int(d))
}

// urlPart tracks which part of a URL an interpolation lands in, which
// decides whether scheme filtering is required.
type urlPart uint8

const (
	// urlPartNone occurs when not in a URL, or possibly at its start.
	urlPartNone urlPart = iota
	// urlPartPreQuery occurs in the scheme/authority/path; a value here
	// could still introduce a scheme, so it must be filtered.
	urlPartPreQuery
	// urlPartQueryOrFrag occurs in the query or fragment.
	urlPartQueryOrFrag
	// urlPartUnknown occurs due to joining contexts with different parts.
	urlPartUnknown
)

var urlPartNames = [...]string{
	urlPartNone:        "urlPartNone",
	urlPartPreQuery:    "urlPartPreQuery",
	urlPartQueryOrFrag: "urlPartQueryOrFrag",
	urlPartUnknown:     "urlPartUnknown",
}

func (u urlPart) String() string {
	if int(u) < len(urlPartNames) {
		return urlPartNames[u]
	}
	return fmt.Sprintf("illegal urlPart %d", int(u))
}

// jsCtx resolves the ambiguity of a '/' in script content: division
// operator or start of a regular expression literal. It tracks whether
// the token before the current point could end an expression.
type jsCtx uint8

const (
	// jsCtxRegexp occurs where a '/' would start a regular expression.
	jsCtxRegexp jsCtx = iota
	// jsCtxDivOp occurs where a '/' would be a division operator.
	jsCtxDivOp
	// jsCtxUnknown occurs due to joining contexts that disagree.
	jsCtxUnknown
)

func (c jsCtx) String() string {
	switch c {
	case jsCtxRegexp:
		return "jsCtxRegexp"
	case jsCtxDivOp:
		return "jsCtxDivOp"
	case jsCtxUnknown:
		return "jsCtxUnknown"
	}
	return fmt.Sprintf("illegal jsCtx %d", int(c))
}

// element identifies the open element when its content follows a special
// grammar (script, style, RCDATA).
type element uint8

const (
	// elementNone occurs outside such special elements.
	elementNone element = iota
	elementScript
	elementStyle
	elementTextarea
	elementTitle
)

var elementNames = [...]string{
	elementNone:     "elementNone",
	elementScript:   "elementScript",
	elementStyle:    "elementStyle",
	elementTextarea: "elementTextarea",
	elementTitle:    "elementTitle",
}

func (e element) String() string {
	if int(e) < len(elementNames) {
		return elementNames[e]
	}
	return fmt.Sprintf("illegal element %d", int(e))
}

// attr classifies the attribute whose value the context is inside,
// which decides the sub-grammar the value follows.
type attr uint8

const (
	// attrNone occurs outside any attribute.
	attrNone attr = iota
	// attrScript occurs in an event-handler attribute (onclick etc).
	attrScript
	// attrStyle occurs in a style attribute.
	attrStyle
	// attrURL occurs in a URL-valued attribute (href, src etc).
	attrURL
)

var attrNames = [...]string{
	attrNone:   "attrNone",
	attrScript: "attrScript",
	attrStyle:  "attrStyle",
	attrURL:    "attrURL",
}

func (a attr) String() string {
	if int(a) < len(attrNames) {
		return attrNames[a]
	}
	return fmt.Sprintf("illegal attr %d", int(a))
}

// startContext returns the context a template body of the given declared
// kind starts (and must end) in. Templates with no declared kind default
// to HTML.
func startContext(k template.Kind) Context {
	switch k {
	case template.KindText:
		return Context{state: statePlain}
	case template.KindCSS:
		return Context{state: stateCSS}
	case template.KindJS:
		return Context{state: stateJS}
	case template.KindURI:
		return Context{state: stateURL, urlPart: urlPartNone}
	case template.KindAttributes:
		return Context{state: stateTag}
	default:
		return Context{state: stateText}
	}
}
