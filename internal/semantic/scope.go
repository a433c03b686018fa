// Package semantic implements the name analyzer and type
// analyzer: the B and C components of the pipeline, producing
// symbol-annotated, type-checked AST ready for lowering.
package semantic

import "github.com/swarmlang/swarm/internal/ast"

// scopeTable holds the symbols declared directly in one lexical scope.
type scopeTable struct {
	symbols map[string]*ast.SemanticSymbol
}

func newScopeTable() *scopeTable {
	return &scopeTable{symbols: make(map[string]*ast.SemanticSymbol)}
}

// ScopeStack is the name analyzer's stack of scope tables plus the
// auxiliary stack of "currently constructing object" contexts used while
// walking a type body.
type ScopeStack struct {
	tables    []*scopeTable
	objStack  []*ast.Object
}

// NewScopeStack creates a stack with a single (global) scope pushed.
func NewScopeStack() *ScopeStack {
	s := &ScopeStack{}
	s.Enter()
	return s
}

// Enter pushes a new scope table.
func (s *ScopeStack) Enter() {
	s.tables = append(s.tables, newScopeTable())
}

// Leave pops the innermost scope table.
func (s *ScopeStack) Leave() {
	s.tables = s.tables[:len(s.tables)-1]
}

// PushObjectContext pushes the object currently being constructed, so
// property lookups inside its constructor/default-value expressions can
// consult its property map.
func (s *ScopeStack) PushObjectContext(o *ast.Object) {
	s.objStack = append(s.objStack, o)
}

// PopObjectContext pops the innermost object-construction context.
func (s *ScopeStack) PopObjectContext() {
	s.objStack = s.objStack[:len(s.objStack)-1]
}

// CurrentObjectContext returns the innermost object-construction context,
// or nil if none is active.
func (s *ScopeStack) CurrentObjectContext() *ast.Object {
	if len(s.objStack) == 0 {
		return nil
	}
	return s.objStack[len(s.objStack)-1]
}

// Insert adds sym to the current (innermost) scope. It fails with a
// redeclaration error (reporting the first declaration's position) if the
// name already exists in that scope.
func (s *ScopeStack) Insert(sym *ast.SemanticSymbol) *RedeclarationError {
	cur := s.tables[len(s.tables)-1]
	if existing, ok := cur.symbols[sym.Name]; ok {
		return &RedeclarationError{Name: sym.Name, Pos: sym.DeclaredAt, FirstDeclaredAt: existing.DeclaredAt}
	}
	cur.symbols[sym.Name] = sym
	return nil
}

// Lookup searches the current scope outward through enclosing scopes, and
// additionally consults objectContext's property map (walking its parent
// chain) if one is supplied. Returns (symbol, true) on success.
func (s *ScopeStack) Lookup(name string, objectContext *ast.Object) (*ast.SemanticSymbol, bool) {
	for i := len(s.tables) - 1; i >= 0; i-- {
		if sym, ok := s.tables[i].symbols[name]; ok {
			return sym, true
		}
	}
	if objectContext != nil {
		if t, ok := objectContext.PropertyType(name); ok {
			return &ast.SemanticSymbol{Name: name, Type: t, Kind: ast.SymObjectProperty}, true
		}
	}
	return nil, false
}

// AddVariable inserts a Variable-kind symbol for id and attaches it.
func (s *ScopeStack) AddVariable(id *ast.Identifier, t ast.Type, shared bool) *RedeclarationError {
	return s.addSymbol(id, t, shared, ast.SymVariable)
}

// AddObjectProperty inserts an ObjectProperty-kind symbol for id.
func (s *ScopeStack) AddObjectProperty(id *ast.Identifier, t ast.Type, shared bool) *RedeclarationError {
	return s.addSymbol(id, t, shared, ast.SymObjectProperty)
}

// AddFunction inserts a Function-kind symbol for id.
func (s *ScopeStack) AddFunction(id *ast.Identifier, t ast.Type) *RedeclarationError {
	return s.addSymbol(id, t, false, ast.SymFunction)
}

// AddPrologueFunction inserts a PrologueFunction-kind symbol for id (used
// for `use`-imported external capabilities).
func (s *ScopeStack) AddPrologueFunction(id *ast.Identifier, t ast.Type) *RedeclarationError {
	return s.addSymbol(id, t, false, ast.SymPrologueFunction)
}

func (s *ScopeStack) addSymbol(id *ast.Identifier, t ast.Type, shared bool, kind ast.SymbolKind) *RedeclarationError {
	sym := ast.NewSymbol(id.Name, t, id.Position, shared, kind)
	if err := s.Insert(sym); err != nil {
		return err
	}
	id.Symbol = sym
	// a parsed type annotation on the identifier wins over the
	// placeholder the inserter supplied
	if id.Type == nil {
		id.Type = t
	} else {
		sym.Type = id.Type
	}
	return nil
}
