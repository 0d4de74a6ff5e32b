package pysrc

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
	const nudged = "(math.frexp(data.get('num'))[0] + sys.float_info.epsilon)*2**math.frexp(data.get('num'))[1]"
	tests := []struct {
		src  string
		want string
	}{
		{"round(num)", "runtime.simplify_num(round(" + nudged + ", 0), 0)"},
		{"round(num, 0)", "runtime.simplify_num(round(" + nudged + ", 0), 0)"},
		{"round(num, 4)", "runtime.simplify_num(round(" + nudged + ", 4), 4)"},
		{"round(num, -2)", "runtime.simplify_num(round(" + nudged + ", -2), -2)"},
		{
			"round(num, digits)",
			"runtime.simplify_num(round(" + nudged + ", data.get('digits')), data.get('digits'))",
		},
	}
	for _, tt := range tests {
		got := trExpr(t, tt.src)
		if got.Text != tt.want {
			t.Errorf("%s ->\n %q\nwant\n %q", tt.src, got.Text, tt.want)
		}
		if got.Prec != codegen.PrecAtomic {
			t.Errorf("%s precedence %d, want atomic", tt.src, got.Prec)
		}
	}
}

func TestExprTranslation(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{"name", "data.get('name')"},
		{"user.name", "runtime.lookup(data, 'user', 'name')"},
		{"'hi'", "'hi'"},
		{"42", "42"},
		{"true", "True"},
		{"false", "False"},
		{"floor(n)", "int(math.floor(data.get('n')))"},
		{"ceiling(n)", "int(math.ceil(data.get('n')))"},
		{"abs(n)", "abs(data.get('n'))"},
		{"min(a, b)", "min(data.get('a'), data.get('b'))"},
		{"strLen(s)", "len(data.get('s'))"},
		{"a == b", "data.get('a') == data.get('b')"},
		{"not ok", "not data.get('ok')"},
	}
	for _, tt := range tests {
		if got := trExpr(t, tt.src); got.Text != tt.want {
			t.Errorf("%s -> %q, want %q", tt.src, got.Text, tt.want)
		}
	}
}

func TestParenthesization(t *testing.T) {
	// A negation on the right of a comparison binds looser and needs
	// protecting; a whole-expression negation does not.
	if got := trExpr(t, "a == not b"); got.Text != "data.get('a') == (not data.get('b'))" {
		t.Errorf("comparison of negation: %q", got.Text)
	}
	if got := trExpr(t, "not a == b"); got.Text != "not data.get('a') == data.get('b')" {
		t.Errorf("negated comparison: %q", got.Text)
	}
}

func TestSnakeCase(t *testing.T) {
	tests := []struct{ in, want string }{
		{"escapeHtml", "escape_html"},
		{"escapeHtmlAttribute", "escape_html_attribute"},
		{"filterNormalizeUri", "filter_normalize_uri"},
		{"escapeJsString", "escape_js_string"},
	}
	for _, tt := range tests {
		if got := snake(tt.in); got != tt.want {
			t.Errorf("snake(%s) = %s, want %s", tt.in, got, tt.want)
		}
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
{% template page %}<h1>{{ title }}</h1>{% for it in items %}<li>{{ it }}</li>{% else %}<li>none</li>{% endfor %}{% call footer %}{% endtemplate %}
{% template footer %}<p>{{ who }}</p>{% endtemplate %}
`, nil)
	if rep.Failed() {
		t.Fatalf("emit failed: %v", rep.Diagnostics())
	}
	for _, want := range []string{
		"def page(data):",
		"out.append('<h1>')",
		"out.append(runtime.to_str(sanitize.escape_html(data.get('title'))))",
		"it_list1 = data.get('items')",
		"for it in it_list1:",
		"out.append(runtime.to_str(sanitize.escape_html(it)))",
		"if not it_list1:",
		"out.append(footer(data))",
		"def footer(data):",
		"return ''.join(out)",
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
	want := "sanitize.escape_html_attribute(sanitize.escape_js_string(data.get('target')))"
	if !strings.Contains(out, want) {
		t.Errorf("output missing %q:\n%s", want, out)
	}
}

func TestPluginWithoutPyImplementation(t *testing.T) {
	reg := plugins.NewRegistry()
	if err := reg.Register(plugins.Signature{Name: "jsOnly", MinArgs: 0, MaxArgs: 0, Backends: []string{"js"}}); err != nil {
		t.Fatal(err)
	}
	out, rep := emit(t, `{% template t %}{{ jsOnly() }}{% endtemplate %}`, reg)
	if out != "" {
		t.Fatalf("expected no output, got:\n%s", out)
	}
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
