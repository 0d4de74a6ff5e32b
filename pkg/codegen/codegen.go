// Package codegen defines what the target-runtime backends share: the
// precedence-carrying expression type, the backend interface, and the
// host implementations of the built-in template functions.
package codegen

import (
	"fmt"
	"math"

	"github.com/lumen-templates/lumen/pkg/diag"
	"github.com/lumen-templates/lumen/pkg/escape"
	"github.com/lumen-templates/lumen/pkg/template"
)

// Expr is a fragment of target-runtime source paired with the precedence
// of its top-level operator. Fully bracketed fragments (literals, call
// expressions) carry PrecAtomic and never need protecting.
type Expr struct {
	Text string
	Prec int
}

// PrecAtomic is the precedence of an expression that can be embedded
// anywhere without parentheses.
const PrecAtomic = math.MaxInt32

// MaybeProtect returns the expression's text, parenthesized when its
// precedence is too low for the position it is being embedded in.
func MaybeProtect(e Expr, minPrec int) string {
	if e.Prec < minPrec {
		return "(" + e.Text + ")"
	}
	return e.Text
}

// Backend emits render-function source for one target runtime. Backends
// are independent: they share no emitted text, only the decorated AST.
type Backend interface {
	// Name is the backend identifier used in manifests ("js", "py").
	Name() string
	// FileExt is the extension of emitted files, without the dot.
	FileExt() string
	// EmitFile produces a complete source file rendering every template
	// in f. Fatal problems are reported through rep and make the second
	// return false; other backends are unaffected.
	EmitFile(f *template.File, dec *escape.Result, rep *diag.Reporter) ([]byte, bool)
}

// unsupportedError marks a construct one backend cannot express.
type unsupportedError struct {
	msg string
}

func (e *unsupportedError) Error() string { return e.msg }

// Unsupportedf builds an error EmitDiag maps to UNSUPPORTED_CONSTRUCT.
func Unsupportedf(format string, args ...any) error {
	return &unsupportedError{msg: fmt.Sprintf(format, args...)}
}

// unknownFunctionError marks a call to a function no signature covers.
type unknownFunctionError struct {
	name string
}

func (e *unknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %q", e.name)
}

// UnknownFunction builds an error EmitDiag maps to UNKNOWN_FUNCTION.
func UnknownFunction(name string) error {
	return &unknownFunctionError{name: name}
}

// EmitDiag reports a translation error at pos with the right code.
func EmitDiag(rep *diag.Reporter, pos diag.Pos, backend string, err error) {
	code := diag.UnsupportedConstruct
	if _, ok := err.(*unknownFunctionError); ok {
		code = diag.UnknownFunction
	}
	rep.Errorf(pos, code, "%s backend: %v", backend, err)
}
