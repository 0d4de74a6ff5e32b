package escape

import (
	"slices"
	"sort"
	"sync"

	"github.com/lumen-templates/lumen/pkg/diag"
	"github.com/lumen-templates/lumen/pkg/template"
)

// Result is the decoration produced by the pass: for every print node,
// the ordered escaping operations (innermost first) that make its value
// safe for the context it lands in. It is only meaningful when the
// reporter recorded no fatal diagnostics.
type Result struct {
	// Ops maps each print node to its escaping operation names.
	Ops map[*template.PrintNode][]string
	// Contexts maps each print node to a printable description of its
	// resolved context, for debug output.
	Contexts map[*template.PrintNode]string
}

// specKey identifies one specialization of a template: the callee
// analyzed for one distinct calling context.
type specKey struct {
	name string
	c    Context
}

// Analyzer runs the contextual autoescaping pass over a set of template
// files. All state is scoped to one compile run. The exported methods
// serialize on an internal mutex, so independent top-level files may be
// analyzed from separate goroutines; the memo table is shared.
type Analyzer struct {
	mu        sync.Mutex
	rep       *diag.Reporter
	templates map[string]*template.TemplateNode
	// output memoizes the end context per specialization. An entry for
	// an in-progress specialization holds the tentative assumption that
	// the callee is context neutral.
	output     map[specKey]Context
	inProgress map[specKey]bool
	// assumed records specializations whose tentative entry was consumed
	// by a recursive call and therefore must hold at completion.
	assumed map[specKey]bool
	// called is the set of templates that appear as a call target
	// anywhere; they are analyzed per calling context, not as roots.
	called map[string]bool

	ops      map[*template.PrintNode][]string
	contexts map[*template.PrintNode]Context
}

func NewAnalyzer(rep *diag.Reporter) *Analyzer {
	return &Analyzer{
		rep:        rep,
		templates:  make(map[string]*template.TemplateNode),
		output:     make(map[specKey]Context),
		inProgress: make(map[specKey]bool),
		assumed:    make(map[specKey]bool),
		called:     make(map[string]bool),
		ops:        make(map[*template.PrintNode][]string),
		contexts:   make(map[*template.PrintNode]Context),
	}
}

// AddFile registers the templates of a parsed file so calls between
// files resolve. Duplicate template names are fatal.
func (a *Analyzer) AddFile(f *template.File) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range f.Templates {
		if prev, ok := a.templates[t.Name]; ok {
			a.rep.Errorf(t.Pos, diag.DuplicateTemplate,
				"template %q already declared at %v", t.Name, prev.Pos)
			continue
		}
		a.templates[t.Name] = t
		collectCallees(t.Body, a.called)
	}
}

func collectCallees(nodes []template.Node, into map[string]bool) {
	for _, n := range nodes {
		switch t := n.(type) {
		case *template.CallNode:
			into[t.Callee] = true
		case *template.IfNode:
			collectCallees(t.Then, into)
			for _, e := range t.Elifs {
				collectCallees(e.Body, into)
			}
			collectCallees(t.Else, into)
		case *template.ForNode:
			collectCallees(t.Body, into)
			collectCallees(t.Else, into)
		}
	}
}

// Analyze walks every root template: templates with a declared kind are
// checked against their contract, and templates that are never called
// default to the HTML contract. Called templates without a declared kind
// are specialized per calling context as they are reached.
func (a *Analyzer) Analyze() *Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.templates))
	for name := range a.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := a.templates[name]
		if t.Kind == template.KindUnspecified && a.called[name] {
			continue
		}
		a.analyzeRoot(t)
	}
	return a.result()
}

// AnalyzeTemplate analyzes a single template as a root. It serializes on
// the analyzer mutex, so callers may fan out across goroutines.
func (a *Analyzer) AnalyzeTemplate(t *template.TemplateNode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.analyzeRoot(t)
}

// AnalyzeFile analyzes the root templates of one file, with the same
// skipping rules as Analyze. All files must be added before the first
// AnalyzeFile call so cross-file calls resolve.
func (a *Analyzer) AnalyzeFile(f *template.File) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range f.Templates {
		if t.Kind == template.KindUnspecified && a.called[t.Name] {
			continue
		}
		a.analyzeRoot(t)
	}
}

// Decoration returns the accumulated print decorations.
func (a *Analyzer) Decoration() *Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result()
}

func (a *Analyzer) result() *Result {
	r := &Result{
		Ops:      make(map[*template.PrintNode][]string, len(a.ops)),
		Contexts: make(map[*template.PrintNode]string, len(a.contexts)),
	}
	for n, ops := range a.ops {
		r.Ops[n] = ops
	}
	for n, c := range a.contexts {
		r.Contexts[n] = c.String()
	}
	return r
}

func (a *Analyzer) analyzeRoot(t *template.TemplateNode) {
	kind := t.Kind
	if kind == template.KindUnspecified {
		kind = template.KindHTML
	}
	start := startContext(kind)
	end := a.escapeTree(start, t)
	if end.state == stateError {
		// Already reported at the offending node.
		return
	}
	if !endContextOK(kind, start, end) {
		if t.Kind == template.KindUnspecified {
			a.rep.Errorf(t.Pos, diag.HTMLParseError,
				"template %q ends in a non-text context: %v", t.Name, end)
			return
		}
		a.rep.Errorf(t.Pos, diag.KindMismatch,
			"template %q declares kind %q but its content ends in context %v",
			t.Name, t.Kind, end)
	}
}

// endContextOK reports whether a template body that started in start may
// legally end in end under the given kind contract.
func endContextOK(kind template.Kind, start, end Context) bool {
	switch kind {
	case template.KindURI:
		// Any part of a URL is a valid place to stop.
		return end.state == stateURL
	case template.KindJS:
		// The slash disambiguation bit may differ; a trailing division
		// context is still a script expression boundary.
		return end.state == stateJS
	case template.KindCSS:
		return end.state == stateCSS
	case template.KindAttributes:
		return end.state == stateTag && end.delim == delimNone
	default:
		return end.eq(start)
	}
}

// escapeTree resolves the end context of one template specialization,
// memoizing the result and detecting non-convergent recursion. On
// re-entering a specialization already under analysis, the tentative
// entry (the calling context itself) is assumed; if the completed
// analysis disagrees with an assumption that was consumed, the recursion
// does not converge and the specialization fails.
func (a *Analyzer) escapeTree(c Context, t *template.TemplateNode) Context {
	key := specKey{name: t.Name, c: c}
	if out, ok := a.output[key]; ok {
		if a.inProgress[key] {
			a.assumed[key] = true
		}
		return out
	}
	a.output[key] = c
	a.inProgress[key] = true
	end := a.escapeList(c, t.Body)
	a.inProgress[key] = false
	used := a.assumed[key]
	delete(a.assumed, key)
	a.output[key] = end
	if used && !(end.state == stateError || end.eq(c)) {
		a.rep.Errorf(t.Pos, diag.AmbiguousContext,
			"recursive template %q does not converge: entered in %v but ends in %v",
			t.Name, c, end)
		end = Context{state: stateError}
		a.output[key] = end
	}
	return end
}

func (a *Analyzer) escapeList(c Context, nodes []template.Node) Context {
	for _, n := range nodes {
		c = a.escapeNode(c, n)
	}
	return c
}

func (a *Analyzer) escapeNode(c Context, n template.Node) Context {
	// The error context is absorbing.
	if c.state == stateError {
		return c
	}
	switch t := n.(type) {
	case *template.TextNode:
		return a.escapeText(c, t.Text, t.Pos)
	case *template.RawNode:
		return a.escapeText(c, t.Text, t.Pos)
	case *template.PrintNode:
		return a.escapePrint(c, t)
	case *template.IfNode:
		return a.escapeBranches(c, t)
	case *template.ForNode:
		return a.escapeLoop(c, t)
	case *template.CallNode:
		return a.escapeCall(c, t)
	}
	return c
}

// escapeText advances the context across a literal text run.
func (a *Analyzer) escapeText(c Context, text string, pos diag.Pos) Context {
	s := []byte(text)
	for len(s) > 0 {
		c1, n := contextAfterText(c, s)
		c, s = c1, s[n:]
		if c.state == stateError {
			break
		}
	}
	if c.state == stateError && c.err != nil {
		d := *c.err
		d.Pos = pos
		a.rep.Report(d)
		c.err = nil
	}
	return c
}

// escapePrint records the resolved context and escaping operations of an
// output point. The printed value passes through the grammar: its
// escaped content cannot contain unescaped grammar-breaking characters,
// so the context continues as if nothing were emitted.
func (a *Analyzer) escapePrint(c Context, n *template.PrintNode) Context {
	c = nudge(c)
	ops, c1, err := escapingOps(c, n.DeclaredKind)
	if err != nil {
		a.rep.Errorf(n.Pos, diag.AmbiguousContext, "%v", err)
		return Context{state: stateError}
	}
	// A template without a declared kind may be specialized for several
	// calling contexts, but each of its prints must escape the same way
	// in all of them, since one render function is emitted per template.
	if prev, ok := a.ops[n]; ok && !slices.Equal(prev, ops) {
		a.rep.Errorf(n.Pos, diag.AmbiguousContext,
			"print is reached in incompatible contexts %v and %v; declare a kind on the enclosing template",
			a.contexts[n], c1)
		return Context{state: stateError}
	}
	a.contexts[n] = c1
	a.ops[n] = ops
	return c1
}

// escapeBranches walks every branch of a conditional from the same
// entering context and unifies the ending contexts.
func (a *Analyzer) escapeBranches(c Context, n *template.IfNode) Context {
	cands := []candidate{
		{pos: n.Pos, ctx: a.escapeList(c, n.Then)},
	}
	for _, e := range n.Elifs {
		cands = append(cands, candidate{pos: e.Pos, ctx: a.escapeList(c, e.Body)})
	}
	// An absent else branch passes the entering context through.
	cands = append(cands, candidate{pos: n.Pos, ctx: a.escapeList(c, n.Else)})

	for _, cand := range cands {
		if cand.ctx.state == stateError {
			return cand.ctx
		}
	}
	out := joinAll(cands)
	if out.state == stateError {
		a.reportAmbiguousBranches(n.Pos, cands)
		out.err = nil
	}
	return out
}

func (a *Analyzer) reportAmbiguousBranches(pos diag.Pos, cands []candidate) {
	msg := "branches end in different contexts:"
	for _, cand := range cands {
		msg += " " + cand.ctx.String() + " (branch at " + cand.pos.String() + ")"
	}
	a.rep.Errorf(pos, diag.AmbiguousContext, "%s", msg)
}

// escapeLoop requires the loop body to be a fixed point of the context
// transform: the body may run zero or many times, and every iteration
// boundary must agree.
func (a *Analyzer) escapeLoop(c Context, n *template.ForNode) Context {
	c1 := a.escapeList(c, n.Body)
	if c1.state == stateError {
		return c1
	}
	if !c1.eq(c) {
		a.rep.Errorf(n.Pos, diag.AmbiguousContext,
			"loop body must start and end in the same context: starts in %v, ends in %v", c, c1)
		return Context{state: stateError}
	}
	if len(n.Else) > 0 {
		cElse := a.escapeList(c, n.Else)
		if cElse.state == stateError {
			return cElse
		}
		out := join(c, cElse)
		if out.state == stateError {
			a.reportAmbiguousBranches(n.Pos, []candidate{
				{pos: n.Pos, ctx: c},
				{pos: n.Pos, ctx: cElse},
			})
			out.err = nil
		}
		return out
	}
	return c
}

// escapeCall resolves the effect of a call on the context. A callee with
// a declared kind is a closed unit: it may only be invoked where its
// kind's content can be embedded, and it leaves the context unchanged.
// A callee without a declared kind is specialized for the calling
// context.
func (a *Analyzer) escapeCall(c Context, n *template.CallNode) Context {
	t, ok := a.templates[n.Callee]
	if !ok {
		a.rep.Errorf(n.Pos, diag.UnsupportedConstruct,
			"call to undefined template %q", n.Callee)
		return Context{state: stateError}
	}
	if t.Kind != template.KindUnspecified {
		if !kindAllowedAt(c, t.Kind) {
			a.rep.Errorf(n.Pos, diag.KindMismatch,
				"call to template %q of kind %q in incompatible context %v",
				n.Callee, t.Kind, c)
			return Context{state: stateError}
		}
		end := a.escapeTree(startContext(t.Kind), t)
		if end.state == stateError {
			return end
		}
		// The callee's content is a complete unit of its kind; the
		// caller's context resumes unchanged.
		return c
	}
	return a.escapeTree(c, t)
}

// kindAllowedAt reports whether a complete unit of content of the given
// kind may be embedded at context c without escaping.
func kindAllowedAt(c Context, kind template.Kind) bool {
	switch kind {
	case template.KindHTML:
		return c.state == stateText
	case template.KindAttributes:
		return c.state == stateTag
	case template.KindCSS:
		return c.state == stateCSS && c.delim == delimNone
	case template.KindJS:
		return c.state == stateJS && c.delim == delimNone
	case template.KindURI:
		return c.state == stateURL && c.urlPart == urlPartNone
	case template.KindText:
		return c.state == statePlain
	}
	return false
}
