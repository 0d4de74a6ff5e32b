package template

import (
	"bytes"
	"fmt"
)

type Visitor interface {
	Visit(n Node) error
}

// Walk visits n and every node beneath it in document order.
func Walk(v Visitor, n Node) error {
	if err := v.Visit(n); err != nil {
		return err
	}
	switch t := n.(type) {
	case *TemplateNode:
		for _, c := range t.Body {
			if err := Walk(v, c); err != nil {
				return err
			}
		}
	case *IfNode:
		for _, c := range t.Then {
			if err := Walk(v, c); err != nil {
				return err
			}
		}
		for _, e := range t.Elifs {
			for _, c := range e.Body {
				if err := Walk(v, c); err != nil {
					return err
				}
			}
		}
		for _, c := range t.Else {
			if err := Walk(v, c); err != nil {
				return err
			}
		}
	case *ForNode:
		for _, c := range t.Body {
			if err := Walk(v, c); err != nil {
				return err
			}
		}
		for _, c := range t.Else {
			if err := Walk(v, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Pretty returns a line-oriented string representation of a parsed file.
func Pretty(f *File) string {
	var buf bytes.Buffer
	for _, t := range f.Templates {
		ppNode(&buf, 0, t)
	}
	return buf.String()
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	ind := func() {
		for i := 0; i < indent; i++ {
			buf.WriteByte(' ')
		}
	}
	switch t := n.(type) {
	case *TemplateNode:
		ind()
		if t.Kind != KindUnspecified {
			fmt.Fprintf(buf, "Template(%s kind=%s)\n", t.Name, t.Kind)
		} else {
			fmt.Fprintf(buf, "Template(%s)\n", t.Name)
		}
		for _, c := range t.Body {
			ppNode(buf, indent+2, c)
		}
	case *TextNode:
		ind()
		fmt.Fprintf(buf, "Text(%q)\n", t.Text)
	case *PrintNode:
		ind()
		if t.DeclaredKind != KindUnspecified {
			fmt.Fprintf(buf, "Print(%s kind=%s)\n", String(t.Expr), t.DeclaredKind)
		} else {
			fmt.Fprintf(buf, "Print(%s)\n", String(t.Expr))
		}
	case *IfNode:
		ind()
		fmt.Fprintf(buf, "If(%s)\n", String(t.Cond))
		for _, c := range t.Then {
			ppNode(buf, indent+2, c)
		}
		for _, e := range t.Elifs {
			ind()
			fmt.Fprintf(buf, "Elif(%s)\n", String(e.Cond))
			for _, c := range e.Body {
				ppNode(buf, indent+2, c)
			}
		}
		if len(t.Else) > 0 {
			ind()
			buf.WriteString("Else\n")
			for _, c := range t.Else {
				ppNode(buf, indent+2, c)
			}
		}
	case *ForNode:
		ind()
		fmt.Fprintf(buf, "For(%s in %s)\n", t.Target, String(t.Iterable))
		for _, c := range t.Body {
			ppNode(buf, indent+2, c)
		}
		if len(t.Else) > 0 {
			ind()
			buf.WriteString("Else\n")
			for _, c := range t.Else {
				ppNode(buf, indent+2, c)
			}
		}
	case *CallNode:
		ind()
		fmt.Fprintf(buf, "Call(%s)\n", t.Callee)
	case *RawNode:
		ind()
		fmt.Fprintf(buf, "Raw(%q)\n", t.Text)
	}
}
