package template

import "fmt"

// Kind is a template's declared category of content, or the category a
// printed value is claimed to already satisfy.
type Kind int

const (
	KindUnspecified Kind = iota
	KindText             // plain text, no markup
	KindHTML             // a well-formed markup fragment
	KindAttributes       // zero or more name="value" attribute pairs
	KindCSS              // a style sheet fragment
	KindJS               // a script expression or statement list
	KindURI              // a URI or URI reference
)

var kindNames = map[Kind]string{
	KindUnspecified: "unspecified",
	KindText:        "text",
	KindHTML:        "html",
	KindAttributes:  "attributes",
	KindCSS:         "css",
	KindJS:          "js",
	KindURI:         "uri",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps the declaration syntax kind="..." to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if k != KindUnspecified && name == s {
			return k, nil
		}
	}
	return KindUnspecified, fmt.Errorf("unknown content kind %q", s)
}

// kindMarkers maps print pipeline markers to the kind they assert.
var kindMarkers = map[string]Kind{
	"safetext": KindText,
	"safehtml": KindHTML,
	"safeattr": KindAttributes,
	"safecss":  KindCSS,
	"safejs":   KindJS,
	"safeuri":  KindURI,
}
