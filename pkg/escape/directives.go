package escape

import (
	"fmt"

	"github.com/lumen-templates/lumen/pkg/template"
)

// Abstract escaping operation names. Each backend supplies its own
// runtime call for every name; the analysis only deals in the names.
const (
	OpEscapeHTML            = "escapeHtml"
	OpEscapeRCDATA          = "escapeRcdata"
	OpEscapeHTMLAttr        = "escapeHtmlAttribute"
	OpEscapeHTMLAttrNospace = "escapeHtmlAttributeNospace"
	OpFilterHTMLAttrName    = "filterHtmlAttributeName"
	OpEscapeJSValue         = "escapeJsValue"
	OpEscapeJSString        = "escapeJsString"
	OpEscapeJSRegex         = "escapeJsRegex"
	OpEscapeCSSString       = "escapeCssString"
	OpFilterCSSValue        = "filterCssValue"
	OpEscapeURI             = "escapeUri"
	OpNormalizeURI          = "normalizeUri"
	OpFilterNormalizeURI    = "filterNormalizeUri"
	OpElideHTMLComment      = "elideHtmlComment"
)

// nudge returns the context that would result from following empty
// string transitions: a print at a position where the grammar expects
// more of a token supplies that token.
func nudge(c Context) Context {
	switch c.state {
	case stateTag:
		// In `<foo {{.}}`, the print emits an attribute name.
		c.state = stateAttrName
	case stateBeforeValue:
		// In `<foo bar={{.}}`, the print is an undelimited value.
		c.state, c.delim, c.attr = attrStartStates[c.attr], delimSpaceOrTagEnd, attrNone
	case stateAfterName:
		// In `<foo bar {{.}}`, the print is an attribute name.
		c.state, c.attr = stateAttrName, attrNone
	}
	return c
}

// escapingOps returns the ordered escaping operations for a print whose
// (already nudged) context is c and whose value is declared to satisfy
// kind. Operations are listed innermost grammar first: each layer must
// itself survive being embedded literally in the layer outside it.
// It also returns the context after the print.
func escapingOps(c Context, kind template.Kind) ([]string, Context, error) {
	var s []string
	switch c.state {
	case statePlain:
		// No grammar, nothing to neutralize.
	case stateText:
		if kind != template.KindHTML {
			s = append(s, OpEscapeHTML)
		}
	case stateRCDATA:
		s = append(s, OpEscapeRCDATA)
	case stateHTMLCmt:
		s = append(s, OpElideHTMLComment)
	case stateURL, stateCSSDqStr, stateCSSSqStr, stateCSSDqURL, stateCSSSqURL, stateCSSURL:
		switch c.urlPart {
		case urlPartNone:
			// The value could introduce a scheme. A value claimed to be
			// a URI still gets normalized; anything else is filtered for
			// disallowed schemes as well.
			switch c.state {
			case stateCSSDqStr, stateCSSSqStr:
				if kind != template.KindURI {
					s = append(s, OpFilterNormalizeURI)
				} else {
					s = append(s, OpNormalizeURI)
				}
				s = append(s, OpEscapeCSSString)
			default:
				if kind != template.KindURI {
					s = append(s, OpFilterNormalizeURI)
				} else {
					s = append(s, OpNormalizeURI)
				}
			}
		case urlPartPreQuery:
			switch c.state {
			case stateCSSDqStr, stateCSSSqStr:
				s = append(s, OpEscapeCSSString)
			default:
				s = append(s, OpNormalizeURI)
			}
		case urlPartQueryOrFrag:
			s = append(s, OpEscapeURI)
		default:
			return nil, c, fmt.Errorf("print appears in an ambiguous URL context")
		}
	case stateJS:
		if kind != template.KindJS {
			s = append(s, OpEscapeJSValue)
		}
		// A slash after an interpolated value is a division operator.
		c.jsCtx = jsCtxDivOp
	case stateJSDqStr, stateJSSqStr:
		s = append(s, OpEscapeJSString)
	case stateJSRegexp:
		s = append(s, OpEscapeJSRegex)
	case stateCSS:
		if kind != template.KindCSS {
			s = append(s, OpFilterCSSValue)
		}
	case stateAttr:
		// Handled by the delimiter cases below.
	case stateAttrName:
		if kind != template.KindAttributes {
			s = append(s, OpFilterHTMLAttrName)
		}
	default:
		if isComment(c.state) {
			s = append(s, OpElideHTMLComment)
		} else {
			return nil, c, fmt.Errorf("unexpected context %v at print", c)
		}
	}
	// Escape the whole result once more for the enclosing attribute, so
	// the inner escaping survives attribute-value decoding.
	switch c.delim {
	case delimNone:
	case delimSpaceOrTagEnd:
		s = append(s, OpEscapeHTMLAttrNospace)
	default:
		s = append(s, OpEscapeHTMLAttr)
	}
	return s, c, nil
}
