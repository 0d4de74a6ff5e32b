package template

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a parsed template expression. The expression language is small:
// dotted variable lookups, literals, function calls, equality comparisons,
// and "not". Anything richer belongs in the host data, not the template.
type Expr interface {
	expr()
}

// VarExpr is a dotted lookup into the render data: a.b.c
type VarExpr struct {
	Path []string
}

func (*VarExpr) expr() {}

type IntExpr struct {
	Value int64
}

func (*IntExpr) expr() {}

type FloatExpr struct {
	Value float64
}

func (*FloatExpr) expr() {}

type StrExpr struct {
	Value string
}

func (*StrExpr) expr() {}

type BoolExpr struct {
	Value bool
}

func (*BoolExpr) expr() {}

// NotExpr negates the truthiness of its operand.
type NotExpr struct {
	X Expr
}

func (*NotExpr) expr() {}

// CmpExpr is an equality comparison: x == y or x != y.
type CmpExpr struct {
	Op   string // "==" or "!="
	X, Y Expr
}

func (*CmpExpr) expr() {}

// CallExpr invokes a registered plugin function: round(price, 2)
type CallExpr struct {
	Name string
	Args []Expr
}

func (*CallExpr) expr() {}

// ParseExpr parses a single expression.
func ParseExpr(s string) (Expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty expression")
	}
	if rest, ok := strings.CutPrefix(s, "not "); ok {
		x, err := ParseExpr(rest)
		if err != nil {
			return nil, err
		}
		return &NotExpr{X: x}, nil
	}
	for _, op := range []string{"==", "!="} {
		if i := indexTopLevel(s, op); i >= 0 {
			x, err := ParseExpr(s[:i])
			if err != nil {
				return nil, err
			}
			y, err := ParseExpr(s[i+len(op):])
			if err != nil {
				return nil, err
			}
			return &CmpExpr{Op: op, X: x, Y: y}, nil
		}
	}
	return parseAtom(s)
}

// ParsePipeline parses "expr|marker|marker" where each marker asserts a
// content kind the value is already known to satisfy. The last marker wins.
func ParsePipeline(s string) (Expr, Kind, error) {
	parts, err := splitOutside(s, '|')
	if err != nil {
		return nil, KindUnspecified, err
	}
	e, err := ParseExpr(parts[0])
	if err != nil {
		return nil, KindUnspecified, err
	}
	kind := KindUnspecified
	for _, m := range parts[1:] {
		m = strings.TrimSpace(m)
		k, ok := kindMarkers[m]
		if !ok {
			return nil, KindUnspecified, fmt.Errorf("unknown kind marker %q", m)
		}
		kind = k
	}
	return e, kind, nil
}

func parseAtom(s string) (Expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty expression")
	}
	if len(s) >= 2 {
		q := s[0]
		if (q == '\'' || q == '"') && s[len(s)-1] == q {
			return &StrExpr{Value: s[1 : len(s)-1]}, nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &IntExpr{Value: n}, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return &FloatExpr{Value: f}, nil
	}
	switch s {
	case "true":
		return &BoolExpr{Value: true}, nil
	case "false":
		return &BoolExpr{Value: false}, nil
	}
	// Function call: name(args...)
	if i := strings.IndexByte(s, '('); i >= 0 {
		if !strings.HasSuffix(s, ")") {
			return nil, fmt.Errorf("malformed call expression: %q", s)
		}
		name := strings.TrimSpace(s[:i])
		if !isIdent(name) {
			return nil, fmt.Errorf("invalid function name %q", name)
		}
		call := &CallExpr{Name: name}
		argStr := strings.TrimSpace(s[i+1 : len(s)-1])
		if argStr != "" {
			parts, err := splitOutside(argStr, ',')
			if err != nil {
				return nil, err
			}
			for _, a := range parts {
				arg, err := ParseExpr(a)
				if err != nil {
					return nil, err
				}
				call.Args = append(call.Args, arg)
			}
		}
		return call, nil
	}
	// Dotted identifier lookup.
	path := strings.Split(s, ".")
	for _, p := range path {
		if !isIdent(p) {
			return nil, fmt.Errorf("invalid expression: %q", s)
		}
	}
	return &VarExpr{Path: path}, nil
}

// splitOutside splits s on sep occurrences that are outside string
// literals and parentheses.
func splitOutside(s string, sep byte) ([]string, error) {
	var parts []string
	var b strings.Builder
	depth := 0
	inStr := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr != 0 {
			b.WriteByte(c)
			if c == inStr {
				inStr = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inStr = c
			b.WriteByte(c)
		case '(':
			depth++
			b.WriteByte(c)
		case ')':
			if depth == 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", s)
			}
			depth--
			b.WriteByte(c)
		case sep:
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(b.String()))
				b.Reset()
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	if inStr != 0 {
		return nil, fmt.Errorf("unterminated string literal in %q", s)
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", s)
	}
	parts = append(parts, strings.TrimSpace(b.String()))
	return parts, nil
}

// indexTopLevel returns the index of the first occurrence of op outside
// string literals and parentheses, or -1.
func indexTopLevel(s, op string) int {
	depth := 0
	inStr := byte(0)
	for i := 0; i+len(op) <= len(s); i++ {
		c := s[i]
		if inStr != 0 {
			if c == inStr {
				inStr = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inStr = c
		case '(':
			depth++
		case ')':
			depth--
		default:
			if depth == 0 && s[i:i+len(op)] == op {
				return i
			}
		}
	}
	return -1
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// String renders an expression back to template syntax, for diagnostics
// and debug output.
func String(e Expr) string {
	switch t := e.(type) {
	case *VarExpr:
		return strings.Join(t.Path, ".")
	case *IntExpr:
		return strconv.FormatInt(t.Value, 10)
	case *FloatExpr:
		return strconv.FormatFloat(t.Value, 'g', -1, 64)
	case *StrExpr:
		return "'" + t.Value + "'"
	case *BoolExpr:
		return strconv.FormatBool(t.Value)
	case *NotExpr:
		return "not " + String(t.X)
	case *CmpExpr:
		return String(t.X) + " " + t.Op + " " + String(t.Y)
	case *CallExpr:
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = String(a)
		}
		return t.Name + "(" + strings.Join(args, ", ") + ")"
	}
	return fmt.Sprintf("<%T>", e)
}
