// Package jssrc emits JavaScript render functions. Escaping and plugin
// functions become calls into the lumen JS runtime library; built-in
// numeric functions are synthesized inline on Math.
package jssrc

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

// Operator precedences. Only the operators the expression language can
// produce are listed; atoms and call expressions are codegen.PrecAtomic.
const (
	precEquality       = 4
	precMultiplicative = 7
	precUnary          = 8
)

type Backend struct {
	funcs *plugins.Registry
}

func New(funcs *plugins.Registry) *Backend {
	return &Backend{funcs: funcs}
}

func (*Backend) Name() string    { return "js" }
func (*Backend) FileExt() string { return "js" }

func (b *Backend) EmitFile(f *template.File, dec *escape.Result, rep *diag.Reporter) ([]byte, bool) {
	g := &generator{funcs: b.funcs, dec: dec, rep: rep, ok: true}
	g.linef("// Generated by the lumen compiler from %s. Do not edit.", f.Name)
	g.linef("")
	g.linef("lumen.tpl = lumen.tpl || {};")
	for _, t := range f.Templates {
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
		g.b.WriteString("  ")
	}
	fmt.Fprintf(&g.b, format, args...)
	g.b.WriteByte('\n')
}

func (g *generator) fail(pos diag.Pos, err error) {
	codegen.EmitDiag(g.rep, pos, "js", err)
	g.ok = false
}

func (g *generator) template(t *template.TemplateNode) {
	g.locals = make(map[string]bool)
	g.seq = 0
	g.linef("/**")
	g.linef(" * @param {!Object} data")
	g.linef(" * @return {string}")
	g.linef(" */")
	g.linef("lumen.tpl.%s = function(data) {", t.Name)
	g.indent++
	g.linef("var out = '';")
	g.nodes(t.Body)
	g.linef("return out;")
	g.indent--
	g.linef("};")
}

func (g *generator) nodes(nodes []template.Node) {
	for _, n := range nodes {
		g.node(n)
	}
}

func (g *generator) node(n template.Node) {
	switch t := n.(type) {
	case *template.TextNode:
		g.text(t.Text)
	case *template.RawNode:
		g.text(t.Text)
	case *template.PrintNode:
		g.print(t)
	case *template.IfNode:
		g.ifStmt(t)
	case *template.ForNode:
		g.forStmt(t)
	case *template.CallNode:
		g.linef("out += lumen.tpl.%s(data);", t.Callee)
	}
}

func (g *generator) text(s string) {
	if s == "" {
		return
	}
	g.linef("out += %s;", quote(s))
}

func (g *generator) print(n *template.PrintNode) {
	e, err := g.expr(n.Expr)
	if err != nil {
		g.fail(n.Pos, err)
		return
	}
	text := e.Text
	for _, op := range g.dec.Ops[n] {
		text = "lumen." + op + "(" + text + ")"
	}
	g.linef("out += %s;", text)
}

func (g *generator) ifStmt(n *template.IfNode) {
	cond, err := g.expr(n.Cond)
	if err != nil {
		g.fail(n.Pos, err)
		return
	}
	g.linef("if (lumen.truthy(%s)) {", cond.Text)
	g.indent++
	g.nodes(n.Then)
	g.indent--
	for _, e := range n.Elifs {
		c, err := g.expr(e.Cond)
		if err != nil {
			g.fail(e.Pos, err)
			return
		}
		g.linef("} else if (lumen.truthy(%s)) {", c.Text)
		g.indent++
		g.nodes(e.Body)
		g.indent--
	}
	if len(n.Else) > 0 {
		g.linef("} else {")
		g.indent++
		g.nodes(n.Else)
		g.indent--
	}
	g.linef("}")
}

func (g *generator) forStmt(n *template.ForNode) {
	iter, err := g.expr(n.Iterable)
	if err != nil {
		g.fail(n.Pos, err)
		return
	}
	g.seq++
	list := fmt.Sprintf("%sList%d", n.Target, g.seq)
	idx := fmt.Sprintf("%sIndex%d", n.Target, g.seq)
	g.linef("var %s = %s;", list, iter.Text)
	g.linef("for (var %s = 0; %s < %s.length; %s++) {", idx, idx, list, idx)
	g.indent++
	g.linef("var %s = %s[%s];", n.Target, list, idx)
	shadowed := g.locals[n.Target]
	g.locals[n.Target] = true
	g.nodes(n.Body)
	if !shadowed {
		delete(g.locals, n.Target)
	}
	g.indent--
	g.linef("}")
	if len(n.Else) > 0 {
		g.linef("if (%s.length == 0) {", list)
		g.indent++
		g.nodes(n.Else)
		g.indent--
		g.linef("}")
	}
}

func (g *generator) expr(e template.Expr) (codegen.Expr, error) {
	switch t := e.(type) {
	case *template.VarExpr:
		path := strings.Join(t.Path, ".")
		if g.locals[t.Path[0]] {
			return codegen.Expr{Text: path, Prec: codegen.PrecAtomic}, nil
		}
		return codegen.Expr{Text: "data." + path, Prec: codegen.PrecAtomic}, nil
	case *template.IntExpr:
		return literal(strconv.FormatInt(t.Value, 10), t.Value < 0), nil
	case *template.FloatExpr:
		return literal(strconv.FormatFloat(t.Value, 'g', -1, 64), t.Value < 0), nil
	case *template.StrExpr:
		return codegen.Expr{Text: quote(t.Value), Prec: codegen.PrecAtomic}, nil
	case *template.BoolExpr:
		return codegen.Expr{Text: strconv.FormatBool(t.Value), Prec: codegen.PrecAtomic}, nil
	case *template.NotExpr:
		x, err := g.expr(t.X)
		if err != nil {
			return codegen.Expr{}, err
		}
		return codegen.Expr{Text: "!" + codegen.MaybeProtect(x, precUnary), Prec: precUnary}, nil
	case *template.CmpExpr:
		x, err := g.expr(t.X)
		if err != nil {
			return codegen.Expr{}, err
		}
		y, err := g.expr(t.Y)
		if err != nil {
			return codegen.Expr{}, err
		}
		text := codegen.MaybeProtect(x, precEquality) + " " + t.Op + " " +
			codegen.MaybeProtect(y, precEquality+1)
		return codegen.Expr{Text: text, Prec: precEquality}, nil
	case *template.CallExpr:
		return g.call(t)
	}
	return codegen.Expr{}, codegen.Unsupportedf("cannot translate expression %q", template.String(e))
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
	if !sig.SupportsBackend("js") {
		return codegen.Expr{}, codegen.Unsupportedf("function %q has no js implementation", c.Name)
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
		return roundExpr(c, args), nil
	case "floor":
		return mathCall("Math.floor", args), nil
	case "ceiling":
		return mathCall("Math.ceil", args), nil
	case "abs":
		return mathCall("Math.abs", args), nil
	case "min":
		return mathCall("Math.min", args), nil
	case "max":
		return mathCall("Math.max", args), nil
	case "strLen":
		return codegen.Expr{Text: "(" + args[0].Text + ").length", Prec: codegen.PrecAtomic}, nil
	}
	texts := make([]string, len(args))
	for i, a := range args {
		texts[i] = a.Text
	}
	return codegen.Expr{
		Text: "lumen.fns." + c.Name + "(" + strings.Join(texts, ", ") + ")",
		Prec: codegen.PrecAtomic,
	}, nil
}

// roundExpr synthesizes rounding to a number of decimal places. With a
// literal digit count the scale is folded to a numeric literal; an
// unknown count falls back to computing the scale at render time.
func roundExpr(c *template.CallExpr, args []codegen.Expr) codegen.Expr {
	x := args[0]
	if len(args) == 1 {
		return mathCall("Math.round", args[:1])
	}
	v := codegen.MaybeProtect(x, precMultiplicative)
	if lit, ok := c.Args[1].(*template.IntExpr); ok {
		switch {
		case lit.Value == 0:
			return mathCall("Math.round", args[:1])
		case lit.Value > 0:
			shift := "1" + strings.Repeat("0", int(lit.Value))
			return codegen.Expr{
				Text: "Math.round(" + v + " * " + shift + ") / " + shift,
				Prec: precMultiplicative,
			}
		default:
			shift := "1" + strings.Repeat("0", int(-lit.Value))
			return codegen.Expr{
				Text: "Math.round(" + v + " / " + shift + ") * " + shift,
				Prec: precMultiplicative,
			}
		}
	}
	pow := "Math.pow(10, " + args[1].Text + ")"
	return codegen.Expr{
		Text: "Math.round(" + v + " * " + pow + ") / " + pow,
		Prec: precMultiplicative,
	}
}

func mathCall(fn string, args []codegen.Expr) codegen.Expr {
	texts := make([]string, len(args))
	for i, a := range args {
		texts[i] = a.Text
	}
	return codegen.Expr{Text: fn + "(" + strings.Join(texts, ", ") + ")", Prec: codegen.PrecAtomic}
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
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
	"</", `<\/`,
)

// quote renders s as a single-quoted JS string literal, with "</" broken
// up so the output can be inlined into a script element.
func quote(s string) string {
	return "'" + quoteReplacer.Replace(s) + "'"
}
