package template

import "github.com/lumen-templates/lumen/pkg/diag"

// Node is any AST node in a parsed Lumen template file.
type Node interface {
	node()
	Position() diag.Pos
}

// File is the root node produced by Parse: a sequence of template
// declarations.
type File struct {
	Name      string
	Templates []*TemplateNode
}

// TemplateNode is a named template declaration:
// {% template name %} or {% template name kind="uri" %}.
// Kind, when declared, is a contract on what the body may produce.
type TemplateNode struct {
	Pos  diag.Pos
	Name string
	Kind Kind // KindUnspecified when not declared
	Body []Node
}

func (*TemplateNode) node()                {}
func (n *TemplateNode) Position() diag.Pos { return n.Pos }

// TextNode represents literal markup between tags.
type TextNode struct {
	Pos  diag.Pos
	Text string
}

func (*TextNode) node()                {}
func (n *TextNode) Position() diag.Pos { return n.Pos }

// PrintNode represents an output point: {{ expr }} with an optional
// pipeline of kind markers, e.g. {{ trusted|safehtml }}.
type PrintNode struct {
	Pos          diag.Pos
	Expr         Expr
	DeclaredKind Kind // kind the value is claimed to already satisfy
}

func (*PrintNode) node()                {}
func (n *PrintNode) Position() diag.Pos { return n.Pos }

// IfNode represents an if/elif/else block.
type IfNode struct {
	Pos   diag.Pos
	Cond  Expr
	Then  []Node
	Elifs []ElifBranch
	Else  []Node
}

func (*IfNode) node()                {}
func (n *IfNode) Position() diag.Pos { return n.Pos }

// ElifBranch is a single elif condition with its body.
type ElifBranch struct {
	Pos  diag.Pos
	Cond Expr
	Body []Node
}

// ForNode represents a loop: {% for target in iterable %}, with an
// optional {% else %} branch taken when the iterable is empty.
type ForNode struct {
	Pos      diag.Pos
	Target   string
	Iterable Expr
	Body     []Node
	Else     []Node
}

func (*ForNode) node()                {}
func (n *ForNode) Position() diag.Pos { return n.Pos }

// CallNode invokes another template in place: {% call name %}.
type CallNode struct {
	Pos    diag.Pos
	Callee string
}

func (*CallNode) node()                {}
func (n *CallNode) Position() diag.Pos { return n.Pos }

// RawNode represents a raw block whose content is emitted literally.
// It is produced by: {% raw %}...{% endraw %}
type RawNode struct {
	Pos  diag.Pos
	Text string
}

func (*RawNode) node()                {}
func (n *RawNode) Position() diag.Pos { return n.Pos }
