package ast

import "strings"

// VariableDecl declares and initializes a variable: `x = 1;` or
// `x: number = 1;`, or, when Shared is set, `shared x: number = 1;`.
type VariableDecl struct {
	Position Position
	Id       *Identifier
	Value    Expression
	Shared   bool
	// Reassign is set by name analysis when the statement's name already
	// resolves to a variable (or object property) in scope: `x = v;` then
	// writes the existing cell instead of declaring a new one. The grammar
	// cannot tell the two apart; the symbol table can.
	Reassign bool
}

func (v *VariableDecl) statementNode() {}
func (v *VariableDecl) Pos() Position  { return v.Position }
func (v *VariableDecl) String() string {
	prefix := "var "
	if v.Shared {
		prefix = "shared var "
	}
	return prefix + v.Id.Name + " = " + v.Value.String() + ";"
}

// UninitializedVariableDecl declares a variable with a type annotation but
// no initial value: `x: number;`. The ISA lowering must explicitly
// default-initialize it before first use.
type UninitializedVariableDecl struct {
	Position     Position
	Id           *Identifier
	DeclaredType Type
	Shared       bool
}

func (v *UninitializedVariableDecl) statementNode() {}
func (v *UninitializedVariableDecl) Pos() Position   { return v.Position }
func (v *UninitializedVariableDecl) String() string {
	prefix := "var "
	if v.Shared {
		prefix = "shared var "
	}
	return prefix + v.Id.Name + ": " + v.DeclaredType.String() + ";"
}

// PropertyDecl is one entry of a TypeBody: either `name = value;` (Value
// set, DeclaredType nil; its static type is inferred from Value during
// type analysis, except where Value itself references the enclosing
// object under construction, in which case it is finalized to This via
// FinalizeObject) or `name: Type;` (DeclaredType set, Value nil, an
// uninitialized property every constructor must definitely assign on
// every path before returning).
type PropertyDecl struct {
	Position     Position
	Name         string
	Shared       bool
	Value        Expression // nil for an uninitialized (DeclaredType-only) property
	DeclaredType Type       // nil when Value is set
}

func (p *PropertyDecl) Pos() Position { return p.Position }
func (p *PropertyDecl) String() string {
	prefix := ""
	if p.Shared {
		prefix = "shared "
	}
	if p.Value == nil {
		return prefix + p.Name + ": " + p.DeclaredType.String() + ";"
	}
	return prefix + p.Name + " = " + p.Value.String() + ";"
}

// ConstructorDecl is one of a TypeBody's constructors, which are overloaded
// by arity. Params become local bindings in scope for the constructor body
// and its ParentArgs; PropertyDecl Value expressions are resolved outside
// any constructor and cannot see them.
type ConstructorDecl struct {
	Position   Position
	Params     []*Identifier
	ParentName *Identifier  // the `from X(...)` target name, nil if no parent call
	ParentArgs []Expression // arguments forwarded to ParentName's constructor
	Body       []Statement
}

func (c *ConstructorDecl) Pos() Position { return c.Position }
func (c *ConstructorDecl) String() string {
	names := make([]string, len(c.Params))
	for i, p := range c.Params {
		names[i] = p.Name
	}
	return "new(" + strings.Join(names, ", ") + ") { ... }"
}

// TypeBody declares an object type: an optional parent (by name, resolved
// to an Ambiguous type until name analysis runs), an ordered property list,
// and zero or more constructors overloaded by arity.
type TypeBody struct {
	Position     Position
	Name         string
	Parent       *Identifier // nil if no parent is named: `type Dog(Animal) {`
	Properties   []*PropertyDecl
	Constructors []*ConstructorDecl // empty if the type declares no constructor
	Type         *Object            // filled in by name analysis via FinalizeObject
}

func (t *TypeBody) statementNode() {}
func (t *TypeBody) Pos() Position  { return t.Position }
func (t *TypeBody) String() string {
	var b strings.Builder
	b.WriteString("type " + t.Name)
	if t.Parent != nil {
		b.WriteString(" extends " + t.Parent.Name)
	}
	b.WriteString(" { ... }")
	return b.String()
}
