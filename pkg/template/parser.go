package template

import (
	"fmt"
	"strings"

	"github.com/lumen-templates/lumen/pkg/diag"
)

// Error is a parse failure with its source position.
type Error struct {
	Pos diag.Pos
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %v", e.Pos, e.Msg)
}

// Parse parses Lumen template source into a File AST. A file is a
// sequence of {% template %} declarations; only whitespace and comments
// may appear between them.
func Parse(file, src string) (*File, error) {
	p := &parser{l: newLexer(file, []byte(src))}
	f := &File{Name: file}
	for {
		tok := p.l.nextTokenOutside()
		switch tok.kind {
		case tokEOF:
			return f, nil
		case tokText:
			if strings.TrimSpace(tok.val) != "" {
				return nil, p.errorf(tok.pos, "text outside template declaration")
			}
		case tokCommStart:
			if err := p.skipUntilCommentEnd(tok.pos); err != nil {
				return nil, err
			}
		case tokVarStart:
			return nil, p.errorf(tok.pos, "print outside template declaration")
		case tokStmtStart:
			stmt, err := p.readUntilStmtEnd(tok.pos)
			if err != nil {
				return nil, err
			}
			name, args := splitNameArgs(stmt)
			if name != "template" {
				return nil, p.errorf(tok.pos, "expected template declaration, got %q", name)
			}
			tn, err := p.parseTemplate(tok.pos, args)
			if err != nil {
				return nil, err
			}
			f.Templates = append(f.Templates, tn)
		default:
			return nil, p.errorf(tok.pos, "unexpected token at top level")
		}
	}
}

type parser struct {
	l *lexer
}

func (p *parser) errorf(off int, format string, args ...any) error {
	return &Error{Pos: p.l.posAt(off), Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseTemplate(off int, args string) (*TemplateNode, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return nil, p.errorf(off, "template requires a name")
	}
	name := fields[0]
	if !isIdent(name) {
		return nil, p.errorf(off, "invalid template name %q", name)
	}
	tn := &TemplateNode{Pos: p.l.posAt(off), Name: name}
	for _, f := range fields[1:] {
		val, ok := strings.CutPrefix(f, "kind=")
		if !ok {
			return nil, p.errorf(off, "unexpected template argument %q", f)
		}
		s, ok := parseQuoted(val)
		if !ok {
			return nil, p.errorf(off, "kind requires a quoted value, got %q", val)
		}
		k, err := ParseKind(s)
		if err != nil {
			return nil, p.errorf(off, "%v", err)
		}
		tn.Kind = k
	}
	body, endTag, _, _, err := p.parseNodes(map[string]bool{"endtemplate": true})
	if err != nil {
		return nil, err
	}
	if endTag != "endtemplate" {
		return nil, p.errorf(off, "missing endtemplate for template %q", name)
	}
	tn.Body = body
	return tn, nil
}

// parseNodes parses until an ending statement with a name in `until` is
// encountered.
func (p *parser) parseNodes(until map[string]bool) (nodes []Node, endTag, endArgs string, endOff int, err error) {
	for {
		tok := p.l.nextTokenOutside()
		switch tok.kind {
		case tokEOF:
			return nodes, "", "", tok.pos, nil
		case tokText:
			if tok.val != "" {
				nodes = append(nodes, &TextNode{Pos: p.l.posAt(tok.pos), Text: tok.val})
			}
		case tokVarStart:
			raw, err := p.readUntilVarEnd(tok.pos)
			if err != nil {
				return nil, "", "", 0, err
			}
			expr, kind, perr := ParsePipeline(raw)
			if perr != nil {
				return nil, "", "", 0, p.errorf(tok.pos, "%v", perr)
			}
			nodes = append(nodes, &PrintNode{Pos: p.l.posAt(tok.pos), Expr: expr, DeclaredKind: kind})
		case tokCommStart:
			if err := p.skipUntilCommentEnd(tok.pos); err != nil {
				return nil, "", "", 0, err
			}
		case tokStmtStart:
			stmt, err := p.readUntilStmtEnd(tok.pos)
			if err != nil {
				return nil, "", "", 0, err
			}
			name, args := splitNameArgs(stmt)
			if len(until) > 0 && until[name] {
				return nodes, name, args, tok.pos, nil
			}
			switch name {
			case "raw":
				rawText, err := p.readRawUntilEndraw(tok.pos)
				if err != nil {
					return nil, "", "", 0, err
				}
				nodes = append(nodes, &RawNode{Pos: p.l.posAt(tok.pos), Text: rawText})
			case "call":
				n, err := p.parseCall(tok.pos, args)
				if err != nil {
					return nil, "", "", 0, err
				}
				nodes = append(nodes, n)
			case "if":
				n, err := p.parseIf(tok.pos, args)
				if err != nil {
					return nil, "", "", 0, err
				}
				nodes = append(nodes, n)
			case "for":
				n, err := p.parseFor(tok.pos, args)
				if err != nil {
					return nil, "", "", 0, err
				}
				nodes = append(nodes, n)
			default:
				return nil, "", "", 0, p.errorf(tok.pos, "unsupported statement: %q", name)
			}
		default:
			return nil, "", "", 0, p.errorf(tok.pos, "unexpected token kind: %v", tok.kind)
		}
	}
}

func (p *parser) readUntilVarEnd(off int) (string, error) {
	var b strings.Builder
	for {
		t := p.l.nextTokenInside(tokVarEnd)
		switch t.kind {
		case tokContent:
			b.WriteString(t.val)
		case tokVarEnd:
			return strings.TrimSpace(b.String()), nil
		case tokEOF:
			return "", p.errorf(off, "unterminated print tag {{ ... }}")
		default:
			return "", p.errorf(off, "unexpected token inside print tag")
		}
	}
}

func (p *parser) readUntilStmtEnd(off int) (string, error) {
	var b strings.Builder
	for {
		t := p.l.nextTokenInside(tokStmtEnd)
		switch t.kind {
		case tokContent:
			b.WriteString(t.val)
		case tokStmtEnd:
			return strings.TrimSpace(b.String()), nil
		case tokEOF:
			return "", p.errorf(off, "unterminated statement tag {%% ... %%}")
		default:
			return "", p.errorf(off, "unexpected token inside statement tag")
		}
	}
}

func (p *parser) skipUntilCommentEnd(off int) error {
	for {
		t := p.l.nextTokenInside(tokCommEnd)
		if t.kind == tokCommEnd {
			return nil
		}
		if t.kind == tokEOF {
			return p.errorf(off, "unterminated comment tag {# ... #}")
		}
		// ignore tokContent
	}
}

func (p *parser) readRawUntilEndraw(off int) (string, error) {
	var out strings.Builder
	for {
		t := p.l.nextTokenOutside()
		switch t.kind {
		case tokEOF:
			return "", p.errorf(off, "unterminated raw block; expected {%% endraw %%}")
		case tokText:
			out.WriteString(t.val)
		case tokVarStart:
			expr, err := p.readUntilVarEnd(t.pos)
			if err != nil {
				return "", err
			}
			out.WriteString("{{ ")
			out.WriteString(expr)
			out.WriteString(" }}")
		case tokCommStart:
			if err := p.skipUntilCommentEnd(t.pos); err != nil {
				return "", err
			}
		case tokStmtStart:
			stmt, err := p.readUntilStmtEnd(t.pos)
			if err != nil {
				return "", err
			}
			name, args := splitNameArgs(stmt)
			if name == "endraw" {
				if strings.TrimSpace(args) != "" {
					return "", p.errorf(t.pos, "endraw takes no arguments")
				}
				return out.String(), nil
			}
			out.WriteString("{% ")
			out.WriteString(stmt)
			out.WriteString(" %}")
		default:
			return "", p.errorf(t.pos, "unexpected token in raw block")
		}
	}
}

func (p *parser) parseCall(off int, args string) (*CallNode, error) {
	name := strings.TrimSpace(args)
	if !isIdent(name) {
		return nil, p.errorf(off, "call requires a template name, got %q", args)
	}
	return &CallNode{Pos: p.l.posAt(off), Callee: name}, nil
}

func (p *parser) parseIf(off int, cond string) (*IfNode, error) {
	c, err := ParseExpr(cond)
	if err != nil {
		return nil, p.errorf(off, "if condition: %v", err)
	}
	n := &IfNode{Pos: p.l.posAt(off), Cond: c}
	body, endTag, endArgs, endOff, err := p.parseNodes(map[string]bool{"elif": true, "else": true, "endif": true})
	if err != nil {
		return nil, err
	}
	n.Then = body
	for endTag == "elif" {
		elifOff := endOff
		c, err := ParseExpr(endArgs)
		if err != nil {
			return nil, p.errorf(elifOff, "elif condition: %v", err)
		}
		branch := ElifBranch{Pos: p.l.posAt(elifOff), Cond: c}
		body, endTag, endArgs, endOff, err = p.parseNodes(map[string]bool{"elif": true, "else": true, "endif": true})
		if err != nil {
			return nil, err
		}
		branch.Body = body
		n.Elifs = append(n.Elifs, branch)
	}
	if endTag == "else" {
		elseBody, endTag2, _, _, err := p.parseNodes(map[string]bool{"endif": true})
		if err != nil {
			return nil, err
		}
		if endTag2 != "endif" {
			return nil, p.errorf(off, "expected endif after else, got %q", endTag2)
		}
		n.Else = elseBody
		return n, nil
	}
	if endTag != "endif" {
		return nil, p.errorf(off, "expected endif, got %q", endTag)
	}
	return n, nil
}

func (p *parser) parseFor(off int, args string) (*ForNode, error) {
	parts := strings.SplitN(args, " in ", 2)
	if len(parts) != 2 {
		return nil, p.errorf(off, "invalid for statement, expected 'target in iterable': %q", args)
	}
	target := strings.TrimSpace(parts[0])
	if !isIdent(target) {
		return nil, p.errorf(off, "invalid loop target %q", target)
	}
	iterable, err := ParseExpr(parts[1])
	if err != nil {
		return nil, p.errorf(off, "for iterable: %v", err)
	}
	n := &ForNode{Pos: p.l.posAt(off), Target: target, Iterable: iterable}
	body, endTag, _, _, err := p.parseNodes(map[string]bool{"else": true, "endfor": true})
	if err != nil {
		return nil, err
	}
	n.Body = body
	if endTag == "else" {
		elseBody, endTag2, _, _, err := p.parseNodes(map[string]bool{"endfor": true})
		if err != nil {
			return nil, err
		}
		if endTag2 != "endfor" {
			return nil, p.errorf(off, "expected endfor after else, got %q", endTag2)
		}
		n.Else = elseBody
		return n, nil
	}
	if endTag != "endfor" {
		return nil, p.errorf(off, "expected endfor, got %q", endTag)
	}
	return n, nil
}

func splitNameArgs(stmt string) (name, args string) {
	s := strings.TrimSpace(stmt)
	if s == "" {
		return "", ""
	}
	i := 0
	for i < len(s) && !isSpace(s[i]) {
		i++
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func parseQuoted(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return "", false
	}
	q := s[0]
	if (q != '"' && q != '\'') || s[len(s)-1] != q {
		return "", false
	}
	return s[1 : len(s)-1], true
}
