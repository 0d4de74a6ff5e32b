// Package pysrc emits Python render functions. Escaping directives call
// into the lumen sanitize module; built-in numeric functions synthesize
// stdlib math expressions matching the host semantics.
package pysrc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lumen-templates/lumen/pkg/codegen"
	"github.com/lumen-templates/lumen/pkg/diag"
	"github.com/lumen-templates/lumen/pkg/escape"
	"github.com/lumen-templates/lumen/pkg/plugins"
	"github.com/lumen-templates/lumen/pkg/template"
)

// Python operator precedences for the operators the expression language
// can produce.
const (
	precNot        = 4
	precComparison = 5
	precUnary      = 11
)

type Backend struct {
	funcs *plugins.Registry
}

func New(funcs *plugins.Registry) *Backend {
	return &Backend{funcs: funcs}
}

func (*Backend) Name() string    { return "py" }
func (*Backend) FileExt() string { return "py" }

func (b *Backend) EmitFile(f *template.File, dec *escape.Result, rep *diag.Reporter) ([]byte, bool) {
	g := &generator{funcs: b.funcs, dec: dec, rep: rep, ok: true}
	g.linef("# Generated by the lumen compiler from %s. Do not edit.", f.Name)
	g.linef("")
	g.linef("import math")
	g.linef("import sys")
	g.linef("")
	g.linef("from lumen import fns, runtime, sanitize")
	for _, t := range f.Templates {
		g.linef("")
		g.linef("")
		g.template(t)
	}
	if !g.ok {
		return nil, false
	}
	return []byte(g.b.String()), true
}

type generator struct {
	b      strings.Builder
	indent int
	funcs  *plugins.Registry
	dec    *escape.Result
	rep    *diag.Reporter
	locals map[string]bool
	seq    int
	ok     bool
}

func (g *generator) linef(format string, args ...any) {
	for i := 0; i < g.indent; i++ {
		g.b.WriteString("    ")
	}
	fmt.Fprintf(&g.b, format, args...)
	g.b.WriteByte('\n')
}

func (g *generator) fail(pos diag.Pos, err error) {
	codegen.EmitDiag(g.rep, pos, "py", err)
	g.ok = false
}

func (g *generator) template(t *template.TemplateNode) {
	g.locals = make(map[string]bool)
	g.seq = 0
	g.linef("def %s(data):", t.Name)
	g.indent++
	g.linef("out = []")
	g.nodes(t.Body)
	g.linef("return ''.join(out)")
	g.indent--
}

func (g *generator) nodes(nodes []template.Node) {
	emitted := false
	for _, n := range nodes {
		if g.emitNode(n) {
			emitted = true
		}
	}
	if !emitted {
		g.linef("pass")
	}
}

// emitNode emits one statement and reports whether anything was written,
// so empty suites can be padded with pass.
func (g *generator) emitNode(n template.Node) bool {
	switch t := n.(type) {
	case *template.TextNode:
		return g.text(t.Text)
	case *template.RawNode:
		return g.text(t.Text)
	case *template.PrintNode:
		g.print(t)
		return true
	case *template.IfNode:
		g.ifStmt(t)
		return true
	case *template.ForNode:
		g.forStmt(t)
		return true
	case *template.CallNode:
		g.linef("out.append(%s(data))", t.Callee)
		return true
	}
	return false
}

func (g *generator) text(s string) bool {
	if s == "" {
		return false
	}
	g.linef("out.append(%s)", quote(s))
	return true
}

func (g *generator) print(n *template.PrintNode) {
	e, err := g.expr(n.Expr)
	if err != nil {
		g.fail(n.Pos, err)
		return
	}
	text := e.Text
	for _, op := range g.dec.Ops[n] {
		text = "sanitize." + snake(op) + "(" + text + ")"
	}
	g.linef("out.append(runtime.to_str(%s))", text)
}

func (g *generator) ifStmt(n *template.IfNode) {
	cond, err := g.expr(n.Cond)
	if err != nil {
		g.fail(n.Pos, err)
		return
	}
	g.linef("if runtime.truthy(%s):", cond.Text)
	g.indent++
	g.nodes(n.Then)
	g.indent--
	for _, e := range n.Elifs {
		c, err := g.expr(e.Cond)
		if err != nil {
			g.fail(e.Pos, err)
			return
		}
		g.linef("elif runtime.truthy(%s):", c.Text)
		g.indent++
		g.nodes(e.Body)
		g.indent--
	}
	if len(n.Else) > 0 {
		g.linef("else:")
		g.indent++
		g.nodes(n.Else)
		g.indent--
	}
}

func (g *generator) forStmt(n *template.ForNode) {
	iter, err := g.expr(n.Iterable)
	if err != nil {
		g.fail(n.Pos, err)
		return
	}
	g.seq++
	list := fmt.Sprintf("%s_list%d", n.Target, g.seq)
	g.linef("%s = %s", list, iter.Text)
	g.linef("for %s in %s:", n.Target, list)
	g.indent++
	shadowed := g.locals[n.Target]
	g.locals[n.Target] = true
	g.nodes(n.Body)
	if !shadowed {
		delete(g.locals, n.Target)
	}
	g.indent--
	if len(n.Else) > 0 {
		g.linef("if not %s:", list)
		g.indent++
		g.nodes(n.Else)
		g.indent--
	}
}

func (g *generator) expr(e template.Expr) (codegen.Expr, error) {
	switch t := e.(type) {
	case *template.VarExpr:
		if g.locals[t.Path[0]] {
			if len(t.Path) == 1 {
				return codegen.Expr{Text: t.Path[0], Prec: codegen.PrecAtomic}, nil
			}
			return lookup(t.Path[0], t.Path[1:]), nil
		}
		if len(t.Path) == 1 {
			return codegen.Expr{Text: "data.get(" + quote(t.Path[0]) + ")", Prec: codegen.PrecAtomic}, nil
		}
		return lookup("data", t.Path), nil
	case *template.IntExpr:
		return literal(strconv.FormatInt(t.Value, 10), t.Value < 0), nil
	case *template.FloatExpr:
		return literal(strconv.FormatFloat(t.Value, 'g', -1, 64), t.Value < 0), nil
	case *template.StrExpr:
		return codegen.Expr{Text: quote(t.Value), Prec: codegen.PrecAtomic}, nil
	case *template.BoolExpr:
		text := "False"
		if t.Value {
			text = "True"
		}
		return codegen.Expr{Text: text, Prec: codegen.PrecAtomic}, nil
	case *template.NotExpr:
		x, err := g.expr(t.X)
		if err != nil {
			return codegen.Expr{}, err
		}
		return codegen.Expr{Text: "not " + codegen.MaybeProtect(x, precNot), Prec: precNot}, nil
	case *template.CmpExpr:
		x, err := g.expr(t.X)
		if err != nil {
			return codegen.Expr{}, err
		}
		y, err := g.expr(t.Y)
		if err != nil {
			return codegen.Expr{}, err
		}
		// Protecting the right side blocks Python comparison chaining.
		text := codegen.MaybeProtect(x, precComparison) + " " + t.Op + " " +
			codegen.MaybeProtect(y, precComparison+1)
		return codegen.Expr{Text: text, Prec: precComparison}, nil
	case *template.CallExpr:
		return g.call(t)
	}
	return codegen.Expr{}, codegen.Unsupportedf("cannot translate expression %q", template.String(e))
}

// lookup emits a None-tolerant dotted path access on base.
func lookup(base string, path []string) codegen.Expr {
	args := []string{base}
	for _, p := range path {
		args = append(args, quote(p))
	}
	return atom("runtime.lookup(" + strings.Join(args, ", ") + ")")
}

func (g *generator) call(c *template.CallExpr) (codegen.Expr, error) {
	sig, ok := g.funcs.Lookup(c.Name)
	if !ok {
		return codegen.Expr{}, codegen.UnknownFunction(c.Name)
	}
	if !sig.AcceptsArity(len(c.Args)) {
		return codegen.Expr{}, codegen.Unsupportedf(
			"function %q does not accept %d arguments", c.Name, len(c.Args))
	}
	if !sig.SupportsBackend("py") {
		return codegen.Expr{}, codegen.Unsupportedf("function %q has no py implementation", c.Name)
	}
	args := make([]codegen.Expr, len(c.Args))
	for i, a := range c.Args {
		x, err := g.expr(a)
		if err != nil {
			return codegen.Expr{}, err
		}
		args[i] = x
	}
	switch c.Name {
	case "round":
		return roundExpr(args), nil
	case "floor":
		return atom("int(math.floor(" + args[0].Text + "))"), nil
	case "ceiling":
		return atom("int(math.ceil(" + args[0].Text + "))"), nil
	case "abs":
		return atom("abs(" + args[0].Text + ")"), nil
	case "min":
		return atom("min(" + args[0].Text + ", " + args[1].Text + ")"), nil
	case "max":
		return atom("max(" + args[0].Text + ", " + args[1].Text + ")"), nil
	case "strLen":
		return atom("len(" + args[0].Text + ")"), nil
	}
	texts := make([]string, len(args))
	for i, a := range args {
		texts[i] = a.Text
	}
	return atom("fns." + c.Name + "(" + strings.Join(texts, ", ") + ")"), nil
}

// roundExpr synthesizes rounding on Python's native round, which rounds
// half to even. Nudging the mantissa up by one epsilon first restores
// the half-away-from-zero behavior of the other runtimes.
func roundExpr(args []codegen.Expr) codegen.Expr {
	x := args[0].Text
	digits := "0"
	if len(args) == 2 {
		digits = args[1].Text
	}
	nudged := "(math.frexp(" + x + ")[0] + sys.float_info.epsilon)*2**math.frexp(" + x + ")[1]"
	return atom("runtime.simplify_num(round(" + nudged + ", " + digits + "), " + digits + ")")
}

func atom(text string) codegen.Expr {
	return codegen.Expr{Text: text, Prec: codegen.PrecAtomic}
}

func literal(text string, negative bool) codegen.Expr {
	prec := codegen.PrecAtomic
	if negative {
		prec = precUnary
	}
	return codegen.Expr{Text: text, Prec: prec}
}

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func quote(s string) string {
	return "'" + quoteReplacer.Replace(s) + "'"
}

// snake converts a directive name like escapeHtmlAttribute to the
// sanitize module's function naming.
func snake(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}
