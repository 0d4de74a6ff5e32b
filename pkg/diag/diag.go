// Package diag carries source positions and compile diagnostics.
package diag

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Pos represents source info for template nodes and diagnostics.
type Pos struct {
	File string
	Off  int // byte offset, starting at 0
	Line int // line number, starting at 1
	Col  int // column number, starting at 1 (byte count)
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%v:%v", p.Line, p.Col)
	}
	return fmt.Sprintf("%v:%v:%v", p.File, p.Line, p.Col)
}

type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Code classifies a diagnostic for programmatic matching.
type Code string

const (
	AmbiguousContext     Code = "AMBIGUOUS_CONTEXT"
	HTMLParseError       Code = "HTML_PARSE_ERROR"
	KindMismatch         Code = "KIND_MISMATCH"
	UnsupportedConstruct Code = "UNSUPPORTED_CONSTRUCT"
	ParseError           Code = "PARSE_ERROR"
	UnknownFunction      Code = "UNKNOWN_FUNCTION"
	DuplicateTemplate    Code = "DUPLICATE_TEMPLATE"
)

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Pos      Pos
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%v: %v: %v: %v", d.Pos, d.Severity, d.Code, d.Message)
}

// Reporter accumulates diagnostics for one compile run. It is threaded
// explicitly through the passes so independent runs never share state,
// and is safe for concurrent use by parallel backends.
type Reporter struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func NewReporter() *Reporter {
	return &Reporter{}
}

func (r *Reporter) Errorf(pos Pos, code Code, format string, args ...any) {
	r.Report(Diagnostic{
		Severity: Error,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

func (r *Reporter) Warnf(pos Pos, code Code, format string, args ...any) {
	r.Report(Diagnostic{
		Severity: Warning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

func (r *Reporter) Report(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = append(r.diags, d)
}

// Failed reports whether any fatal diagnostic has been recorded.
func (r *Reporter) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Diagnostics returns all accumulated diagnostics ordered by position.
func (r *Reporter) Diagnostics() []Diagnostic {
	r.mu.Lock()
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	r.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Pos, out[j].Pos
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Off < b.Off
	})
	return out
}

// Err collapses the fatal diagnostics into a single error, or nil.
func (r *Reporter) Err() error {
	var msgs []string
	for _, d := range r.Diagnostics() {
		if d.Severity == Error {
			msgs = append(msgs, d.String())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("compile failed:\n%s", strings.Join(msgs, "\n"))
}
