package ast

import "strings"

// EnumerationLiteral builds an ordered Enumerable from a fixed element list,
// e.g. `[1, 2, 3]`.
type EnumerationLiteral struct {
	Position Position
	Elements []Expression
	Type     Type
}

func (e *EnumerationLiteral) expressionNode() {}
func (e *EnumerationLiteral) Pos() Position   { return e.Position }
func (e *EnumerationLiteral) String() string {
	parts := make([]string, len(e.Elements))
	for i, el := range e.Elements {
		parts[i] = el.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
func (e *EnumerationLiteral) GetType() Type  { return e.Type }
func (e *EnumerationLiteral) SetType(t Type) { e.Type = t }

// MapEntry is one `key: value` pair inside a MapLiteral body. It is itself a
// statement at parse time (mirroring how the grammar treats map bodies as a
// sequence of key/value statements) but only ever appears inside MapLiteral.
type MapEntry struct {
	Position Position
	Key      *Identifier
	Value    Expression
}

func (m *MapEntry) statementNode() {}
func (m *MapEntry) Pos() Position  { return m.Position }
func (m *MapEntry) String() string { return m.Key.Name + ": " + m.Value.String() }

// MapLiteral builds a Map from a fixed set of key/value entries, e.g.
// `map { a: 1, b: 2 }`.
type MapLiteral struct {
	Position Position
	Entries  []*MapEntry
	Type     Type
}

func (m *MapLiteral) expressionNode() {}
func (m *MapLiteral) Pos() Position   { return m.Position }
func (m *MapLiteral) String() string {
	parts := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		parts[i] = e.String()
	}
	return "map { " + strings.Join(parts, ", ") + " }"
}
func (m *MapLiteral) GetType() Type  { return m.Type }
func (m *MapLiteral) SetType(t Type) { m.Type = t }

// EnumerableAccess indexes an Enumerable: `path[index]`.
type EnumerableAccess struct {
	Position Position
	Path     Expression
	Index    Expression
	Type     Type
}

func (a *EnumerableAccess) expressionNode() {}
func (a *EnumerableAccess) Pos() Position   { return a.Position }
func (a *EnumerableAccess) String() string {
	return a.Path.String() + "[" + a.Index.String() + "]"
}
func (a *EnumerableAccess) GetType() Type  { return a.Type }
func (a *EnumerableAccess) SetType(t Type) { a.Type = t }

// MapAccess reads one entry of a Map by key: `path.key`.
type MapAccess struct {
	Position Position
	Path     Expression
	Key      *Identifier
	Type     Type
}

func (a *MapAccess) expressionNode() {}
func (a *MapAccess) Pos() Position   { return a.Position }
func (a *MapAccess) String() string {
	return a.Path.String() + "." + a.Key.Name
}
func (a *MapAccess) GetType() Type  { return a.Type }
func (a *MapAccess) SetType(t Type) { a.Type = t }

// DotAccess is the parser's representation of `path.name`: the grammar for
// a Map entry read and an object property read is identical, so the choice
// between MapAccess and ClassAccess can only be made once Path's type is
// known. Name analysis/type analysis replaces every DotAccess with the
// concrete node its resolved Path type calls for.
type DotAccess struct {
	Position Position
	Path     Expression
	Name     *Identifier
	Type     Type
}

func (a *DotAccess) expressionNode() {}
func (a *DotAccess) Pos() Position   { return a.Position }
func (a *DotAccess) String() string  { return a.Path.String() + "." + a.Name.Name }
func (a *DotAccess) GetType() Type   { return a.Type }
func (a *DotAccess) SetType(t Type)  { a.Type = t }

// ClassAccess reads an object property: `path.property`.
type ClassAccess struct {
	Position Position
	Path     Expression
	Property *Identifier
	Type     Type
}

func (a *ClassAccess) expressionNode() {}
func (a *ClassAccess) Pos() Position   { return a.Position }
func (a *ClassAccess) String() string {
	return a.Path.String() + "." + a.Property.Name
}
func (a *ClassAccess) GetType() Type  { return a.Type }
func (a *ClassAccess) SetType(t Type) { a.Type = t }

// AssignExpr assigns Value into Dest, which must be an Identifier,
// EnumerableAccess, MapAccess, or ClassAccess (checked by name analysis, not
// the Go type system, matching how lowering dispatches on dest's concrete
// node kind rather than a narrower interface).
type AssignExpr struct {
	Position Position
	Dest     Expression
	Value    Expression
	Type     Type
}

func (a *AssignExpr) expressionNode() {}
func (a *AssignExpr) Pos() Position   { return a.Position }
func (a *AssignExpr) String() string {
	return a.Dest.String() + " = " + a.Value.String()
}
func (a *AssignExpr) GetType() Type  { return a.Type }
func (a *AssignExpr) SetType(t Type) { a.Type = t }
