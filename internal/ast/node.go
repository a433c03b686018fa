package ast

import "strconv"

// Node is the base interface every AST node satisfies.
type Node interface {
	Pos() Position
	String() string
}

// Expression is a node that produces a value and, once type analysis runs,
// carries the Type it was resolved to.
type Expression interface {
	Node
	expressionNode()
	GetType() Type
	SetType(Type)
}

// Statement is a node executed for effect.
type Statement interface {
	Node
	statementNode()
}

// Program is the root of a parsed unit: an ordered top-level statement list
// plus any Include/Use directives that preceded them.
type Program struct {
	Includes   []*IncludeStatement
	Uses       []*UseStatement
	Statements []Statement
}

func (p *Program) Pos() Position {
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return NoPosition
}

func (p *Program) String() string {
	var b []byte
	for _, s := range p.Statements {
		b = append(b, s.String()...)
		b = append(b, '\n')
	}
	return string(b)
}

// ExpressionStatement wraps an expression evaluated for its side effects
// (typically a Call or AssignExpr) at statement position.
type ExpressionStatement struct {
	Position Position
	Expr     Expression
}

func (s *ExpressionStatement) statementNode() {}
func (s *ExpressionStatement) Pos() Position  { return s.Position }
func (s *ExpressionStatement) String() string { return s.Expr.String() + ";" }

// Identifier names a variable, function, or type reference. Symbol is nil
// until name analysis binds it.
type Identifier struct {
	Position Position
	Name     string
	Shared   bool
	Symbol   *SemanticSymbol
	Type     Type
}

func (i *Identifier) expressionNode() {}
func (i *Identifier) Pos() Position   { return i.Position }
func (i *Identifier) String() string  { return i.Name }
func (i *Identifier) GetType() Type   { return i.Type }
func (i *Identifier) SetType(t Type)  { i.Type = t }

// NumberLiteral is a double-precision numeric constant.
type NumberLiteral struct {
	Position Position
	Value    float64
	Type     Type
}

func (n *NumberLiteral) expressionNode() {}
func (n *NumberLiteral) Pos() Position   { return n.Position }
func (n *NumberLiteral) String() string  { return formatNumber(n.Value) }
func (n *NumberLiteral) GetType() Type   { return n.Type }
func (n *NumberLiteral) SetType(t Type)  { n.Type = t }

// StringLiteral is a quoted string constant.
type StringLiteral struct {
	Position Position
	Value    string
	Type     Type
}

func (s *StringLiteral) expressionNode() {}
func (s *StringLiteral) Pos() Position   { return s.Position }
func (s *StringLiteral) String() string  { return "\"" + s.Value + "\"" }
func (s *StringLiteral) GetType() Type   { return s.Type }
func (s *StringLiteral) SetType(t Type)  { s.Type = t }

// BooleanLiteral is `true` or `false`.
type BooleanLiteral struct {
	Position Position
	Value    bool
	Type     Type
}

func (b *BooleanLiteral) expressionNode() {}
func (b *BooleanLiteral) Pos() Position   { return b.Position }
func (b *BooleanLiteral) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}
func (b *BooleanLiteral) GetType() Type  { return b.Type }
func (b *BooleanLiteral) SetType(t Type) { b.Type = t }

func formatNumber(v float64) string {
	// Swarm numbers print without a trailing ".0" wart when integral, matching
	// the textual ISA form's NumberRef rendering.
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
