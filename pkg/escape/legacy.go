package escape

import "github.com/lumen-templates/lumen/pkg/template"

// LegacyEscaper is the seam for the old non-contextual escaping mode:
// one fixed directive applied to every print of a file, with no context
// inference. The compiler does not ship an implementation; templates
// ported from engines without context inference can plug one in where
// the contextual Analyzer would otherwise run.
type LegacyEscaper interface {
	Escape(f *template.File) (*Result, error)
}
