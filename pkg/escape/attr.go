package escape

import "strings"

// urlAttrNames is the set of attribute names whose values are URLs or
// URL references, drawn from the HTML5 attribute index. Values of these
// attributes must be scheme-filtered before they can be trusted.
var urlAttrNames = map[string]bool{
	"action":     true,
	"archive":    true,
	"background": true,
	"cite":       true,
	"classid":    true,
	"codebase":   true,
	"data":       true,
	"formaction": true,
	"href":       true,
	"icon":       true,
	"longdesc":   true,
	"manifest":   true,
	"poster":     true,
	"profile":    true,
	"src":        true,
	"srcset":     true,
	"usemap":     true,
	"xmlns":      true,
}

// attrType classifies the sub-grammar of an attribute value from the
// lowercased attribute name.
func attrType(name string) attr {
	// Treat data-action as URL-valued if action is, since custom data
	// attributes are commonly reflected into real ones by script.
	if prefix, short, ok := strings.Cut(name, "-"); ok && prefix == "data" {
		name = short
	} else if prefix, short, ok := strings.Cut(name, ":"); ok {
		if prefix == "xmlns" {
			return attrURL
		}
		// Treat svg:href and xlink:href like href.
		name = short
	}
	switch {
	case strings.HasPrefix(name, "on"):
		return attrScript
	case name == "style":
		return attrStyle
	case urlAttrNames[name]:
		return attrURL
	}
	return attrNone
}
