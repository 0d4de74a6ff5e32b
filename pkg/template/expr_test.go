package template

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseExpr(t *testing.T) {
	tests := []struct {
		src  string
		want Expr
	}{
		{"name", &VarExpr{Path: []string{"name"}}},
		{"user.address.city", &VarExpr{Path: []string{"user", "address", "city"}}},
		{"42", &IntExpr{Value: 42}},
		{"-7", &IntExpr{Value: -7}},
		{"3.25", &FloatExpr{Value: 3.25}},
		{"'hi'", &StrExpr{Value: "hi"}},
		{`"hi"`, &StrExpr{Value: "hi"}},
		{"true", &BoolExpr{Value: true}},
		{"false", &BoolExpr{Value: false}},
		{"not done", &NotExpr{X: &VarExpr{Path: []string{"done"}}}},
		{"a == b", &CmpExpr{Op: "==", X: &VarExpr{Path: []string{"a"}}, Y: &VarExpr{Path: []string{"b"}}}},
		{"a != 2", &CmpExpr{Op: "!=", X: &VarExpr{Path: []string{"a"}}, Y: &IntExpr{Value: 2}}},
		{"round(price, 2)", &CallExpr{Name: "round", Args: []Expr{
			&VarExpr{Path: []string{"price"}}, &IntExpr{Value: 2},
		}}},
		{"max(a, min(b, c))", &CallExpr{Name: "max", Args: []Expr{
			&VarExpr{Path: []string{"a"}},
			&CallExpr{Name: "min", Args: []Expr{
				&VarExpr{Path: []string{"b"}}, &VarExpr{Path: []string{"c"}},
			}},
		}}},
		{"strLen('a,b')", &CallExpr{Name: "strLen", Args: []Expr{&StrExpr{Value: "a,b"}}}},
	}
	for _, tt := range tests {
		got, err := ParseExpr(tt.src)
		if err != nil {
			t.Errorf("ParseExpr(%q): %v", tt.src, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseExpr(%q) mismatch (-want +got):\n%s", tt.src, diff)
		}
	}
}

func TestParseExprErrors(t *testing.T) {
	for _, src := range []string{
		"", "1bad", "a..b", "f(", "f(a))", "'unterminated", "f(a,)",
	} {
		if _, err := ParseExpr(src); err == nil {
			t.Errorf("ParseExpr(%q): expected error", src)
		}
	}
}

func TestParsePipeline(t *testing.T) {
	e, kind, err := ParsePipeline("link|safeuri")
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if kind != KindURI {
		t.Fatalf("kind = %v", kind)
	}
	if _, ok := e.(*VarExpr); !ok {
		t.Fatalf("expr = %#v", e)
	}

	// The last marker wins.
	_, kind, err = ParsePipeline("x|safehtml|safejs")
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if kind != KindJS {
		t.Fatalf("kind = %v", kind)
	}

	if _, _, err := ParsePipeline("x|upper"); err == nil {
		t.Fatal("expected error for unknown marker")
	}
}

func TestExprString(t *testing.T) {
	for _, src := range []string{
		"user.name",
		"round(price, 2)",
		"not a == b",
	} {
		e, err := ParseExpr(src)
		if err != nil {
			t.Fatalf("ParseExpr(%q): %v", src, err)
		}
		if got := String(e); got != src {
			t.Errorf("String round trip: %q -> %q", src, got)
		}
	}
}
