package ast

// IfStatement is a single-armed conditional: the grammar has no `else`
// token, so a two-branch conditional is written as a second,
// negated `if`.
type IfStatement struct {
	Position Position
	Cond     Expression
	Then     []Statement
}

func (s *IfStatement) statementNode() {}
func (s *IfStatement) Pos() Position  { return s.Position }
func (s *IfStatement) String() string { return "if (" + s.Cond.String() + ") { ... }" }

// WhileStatement loops while Cond evaluates true.
type WhileStatement struct {
	Position Position
	Cond     Expression
	Body     []Statement
}

func (s *WhileStatement) statementNode() {}
func (s *WhileStatement) Pos() Position  { return s.Position }
func (s *WhileStatement) String() string { return "while (" + s.Cond.String() + ") { ... }" }

// EnumerateStatement iterates an Enumerable or Map, binding each element to
// ValueId (and, for an indexed form, the index/key to IndexId).
type EnumerateStatement struct {
	Position Position
	Target   Expression
	ValueId  *Identifier
	IndexId  *Identifier // nil for the unindexed form
	Body     []Statement
}

func (s *EnumerateStatement) statementNode() {}
func (s *EnumerateStatement) Pos() Position  { return s.Position }
func (s *EnumerateStatement) String() string {
	return "enumerate (" + s.Target.String() + ") { ... }"
}

// WithStatement runs Body with the value yielded by Resource bound to Id.
// Lowering emits the body as its own region, called by a With instruction;
// nothing releases the resource when the body exits.
type WithStatement struct {
	Position Position
	Resource Expression
	Id       *Identifier
	Body     []Statement
}

func (s *WithStatement) statementNode() {}
func (s *WithStatement) Pos() Position  { return s.Position }
func (s *WithStatement) String() string { return "with (" + s.Resource.String() + ") { ... }" }

// ContinueStatement skips to the next iteration of the nearest enclosing
// While or Enumerate.
type ContinueStatement struct {
	Position Position
}

func (s *ContinueStatement) statementNode() {}
func (s *ContinueStatement) Pos() Position  { return s.Position }
func (s *ContinueStatement) String() string { return "continue;" }

// BreakStatement exits the nearest enclosing While or Enumerate.
type BreakStatement struct {
	Position Position
}

func (s *BreakStatement) statementNode() {}
func (s *BreakStatement) Pos() Position  { return s.Position }
func (s *BreakStatement) String() string { return "break;" }

// ReturnStatement exits the enclosing function, optionally producing Value.
// Value is nil when the enclosing function's return type is Void.
type ReturnStatement struct {
	Position Position
	Value    Expression
}

func (s *ReturnStatement) statementNode() {}
func (s *ReturnStatement) Pos() Position  { return s.Position }
func (s *ReturnStatement) String() string {
	if s.Value == nil {
		return "return;"
	}
	return "return " + s.Value.String() + ";"
}

// IncludeStatement is an `include "path/to/file";` directive. The parser
// records it in Program.Includes; no later stage reads the named file, so
// its declarations are not brought into this unit.
type IncludeStatement struct {
	Position Position
	Path     string
}

func (s *IncludeStatement) statementNode() {}
func (s *IncludeStatement) Pos() Position  { return s.Position }
func (s *IncludeStatement) String() string { return "include \"" + s.Path + "\";" }

// UseStatement declares a prologue-provided capability this unit depends
// on, binding its prologue functions into scope: `use io;`.
type UseStatement struct {
	Position Position
	Name     string
}

func (s *UseStatement) statementNode() {}
func (s *UseStatement) Pos() Position  { return s.Position }
func (s *UseStatement) String() string { return "use " + s.Name + ";" }
