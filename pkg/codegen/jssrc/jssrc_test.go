package jssrc

import (
	"strings"
	"testing"

	"github.com/lumen-templates/lumen/pkg/codegen"
	"github.com/lumen-templates/lumen/pkg/diag"
	"github.com/lumen-templates/lumen/pkg/escape"
	"github.com/lumen-templates/lumen/pkg/plugins"
	"github.com/lumen-templates/lumen/pkg/template"
)

func trExpr(t *testing.T, src string) codegen.Expr {
	t.Helper()
	e, err := template.ParseExpr(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	g := &generator{funcs: plugins.NewRegistry(), locals: map[string]bool{}}
	x, err := g.expr(e)
	if err != nil {
		t.Fatalf("translate %q: %v", src, err)
	}
	return x
}

func TestRoundSynthesis(t *testing.T) {
	tests := []struct {
		src  string
		want string
		prec int
	}{
		{"round(num)", "Math.round(data.num)", codegen.PrecAtomic},
		{"round(num, 0)", "Math.round(data.num)", codegen.PrecAtomic},
		{"round(num, 4)", "Math.round(data.num * 10000) / 10000", precMultiplicative},
		{"round(num, -2)", "Math.round(data.num / 100) * 100", precMultiplicative},
		{
			"round(num, digits)",
			"Math.round(data.num * Math.pow(10, data.digits)) / Math.pow(10, data.digits)",
			precMultiplicative,
		},
		// Low-precedence value arguments must not regroup with the scale.
		{"round(a == b, 4)", "Math.round((data.a == data.b) * 10000) / 10000", precMultiplicative},
		{"round(a == b, -2)", "Math.round((data.a == data.b) / 100) * 100", precMultiplicative},
		{
			"round(a == b, digits)",
			"Math.round((data.a == data.b) * Math.pow(10, data.digits)) / Math.pow(10, data.digits)",
			precMultiplicative,
		},
	}
	for _, tt := range tests {
		got := trExpr(t, tt.src)
		if got.Text != tt.want || got.Prec != tt.prec {
			t.Errorf("%s -> {%q, %d}, want {%q, %d}", tt.src, got.Text, got.Prec, tt.want, tt.prec)
		}
	}
}

func TestExprTranslation(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{"user.name", "data.user.name"},
		{"'hi'", "'hi'"},
		{"42", "42"},
		{"3.5", "3.5"},
		{"true", "true"},
		{"floor(n)", "Math.floor(data.n)"},
		{"ceiling(n)", "Math.ceil(data.n)"},
		{"abs(n)", "Math.abs(data.n)"},
		{"min(a, b)", "Math.min(data.a, data.b)"},
		{"max(a, b)", "Math.max(data.a, data.b)"},
		{"strLen(s)", "(data.s).length"},
		{"a == b", "data.a == data.b"},
		{"not ok", "!data.ok"},
	}
	for _, tt := range tests {
		if got := trExpr(t, tt.src); got.Text != tt.want {
			t.Errorf("%s -> %q, want %q", tt.src, got.Text, tt.want)
		}
	}
}

// A low-precedence subexpression embedded where higher precedence is
// required must be parenthesized; same-precedence embedding must not.
func TestParenthesization(t *testing.T) {
	if got := trExpr(t, "not a == b"); got.Text != "!(data.a == data.b)" {
		t.Errorf("negated comparison: %q", got.Text)
	}
	if got := trExpr(t, "a == b != c"); got.Text != "data.a == (data.b != data.c)" {
		t.Errorf("nested comparison: %q", got.Text)
	}
	if got := trExpr(t, "not not a"); got.Text != "!!data.a" {
		t.Errorf("double negation: %q", got.Text)
	}
}

func emit(t *testing.T, src string, reg *plugins.Registry) (string, *diag.Reporter) {
	t.Helper()
	f, err := template.Parse("demo.lum", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rep := diag.NewReporter()
	a := escape.NewAnalyzer(rep)
	a.AddFile(f)
	dec := a.Analyze()
	if rep.Failed() {
		t.Fatalf("analysis failed: %v", rep.Diagnostics())
	}
	if reg == nil {
		reg = plugins.NewRegistry()
	}
	out, _ := New(reg).EmitFile(f, dec, rep)
	return string(out), rep
}

func TestEmitFile(t *testing.T) {
	out, rep := emit(t, `
{% template page %}<h1>{{ title }}</h1>{% if items %}<ul>{% for it in items %}<li>{{ it }}</li>{% endfor %}</ul>{% endif %}{% call footer %}{% endtemplate %}
{% template footer %}<p>{{ who }}</p>{% endtemplate %}
`, nil)
	if rep.Failed() {
		t.Fatalf("emit failed: %v", rep.Diagnostics())
	}
	for _, want := range []string{
		"lumen.tpl.page = function(data) {",
		"out += '<h1>';",
		"out += lumen.escapeHtml(data.title);",
		"if (lumen.truthy(data.items)) {",
		"var it = itList1[itIndex1];",
		"out += lumen.escapeHtml(it);",
		"out += lumen.tpl.footer(data);",
		"lumen.tpl.footer = function(data) {",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEmitComposedEscaping(t *testing.T) {
	out, rep := emit(t,
		`{% template t %}<a onclick="go('{{ target }}')">x</a>{% endtemplate %}`, nil)
	if rep.Failed() {
		t.Fatalf("emit failed: %v", rep.Diagnostics())
	}
	want := "lumen.escapeHtmlAttribute(lumen.escapeJsString(data.target))"
	if !strings.Contains(out, want) {
		t.Errorf("output missing %q:\n%s", want, out)
	}
}

func TestUnknownFunction(t *testing.T) {
	_, rep := emit(t, `{% template t %}{{ mystery(x) }}{% endtemplate %}`, nil)
	found := false
	for _, d := range rep.Diagnostics() {
		if d.Code == diag.UnknownFunction {
			found = true
		}
	}
	if !found {
		t.Fatalf("want UNKNOWN_FUNCTION, got %v", rep.Diagnostics())
	}
}

func TestPluginWithoutJSImplementation(t *testing.T) {
	reg := plugins.NewRegistry()
	if err := reg.Register(plugins.Signature{Name: "pyOnly", MinArgs: 1, MaxArgs: 1, Backends: []string{"py"}}); err != nil {
		t.Fatal(err)
	}
	_, rep := emit(t, `{% template t %}{{ pyOnly(x) }}{% endtemplate %}`, reg)
	found := false
	for _, d := range rep.Diagnostics() {
		if d.Code == diag.UnsupportedConstruct {
			found = true
		}
	}
	if !found {
		t.Fatalf("want UNSUPPORTED_CONSTRUCT, got %v", rep.Diagnostics())
	}
}

func TestQuoteBreaksScriptEndTag(t *testing.T) {
	if got := quote("</script>"); got != `'<\/script>'` {
		t.Errorf("quote(</script>) = %s", got)
	}
	if got := quote("a'b\nc"); got != `'a\'b\nc'` {
		t.Errorf("quote = %s", got)
	}
	// U+2028 and U+2029 are line terminators in JS string literals.
	if got := quote("a\u2028b\u2029c"); got != `'a\u2028b\u2029c'` {
		t.Errorf("quote = %s", got)
	}
}
