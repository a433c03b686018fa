package semantic

import (
	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/diag"
)

// placeholderID marks the Object stand-in for a type body still under
// construction, so Transform/FinalizeObject can detect self-references by
// identity before the type has a real, finalized id.
const placeholderID int64 = -1

// Analyzer is the name analyzer: a single top-down walk that
// resolves every identifier to a SemanticSymbol and assembles Object types
// for declared type bodies.
type Analyzer struct {
	scopes *ScopeStack
	diags  *diag.Diagnostics
	file   string
	source string
}

// NewAnalyzer creates a name analyzer for one source unit, with the
// prologue function set pre-registered in the root scope.
func NewAnalyzer(file, source string) *Analyzer {
	a := &Analyzer{scopes: NewScopeStack(), diags: &diag.Diagnostics{}, file: file, source: source}
	sigs := PrologueSignatures()
	for _, name := range prologueNames() {
		id := &ast.Identifier{Name: name}
		_ = a.scopes.AddPrologueFunction(id, sigs[name])
	}
	return a
}

// Diagnostics returns the diagnostics accumulated so far.
func (a *Analyzer) Diagnostics() *diag.Diagnostics { return a.diags }

func (a *Analyzer) errf(pos ast.Position, format string, args ...any) {
	a.diags.Add(diag.NameErrorf(pos, a.source, format, args...))
}

// AnalyzeProgram walks the whole program, attaching symbols and building
// object types. It returns an aggregate error if any diagnostics were
// recorded (the pipeline never proceeds to type analysis on a failed
// name-analysis stage).
func (a *Analyzer) AnalyzeProgram(p *ast.Program) error {
	for _, u := range p.Uses {
		a.walkUse(u)
	}
	for _, s := range p.Statements {
		a.walkStatement(s)
	}
	return a.diags.Err()
}

func (a *Analyzer) walkUse(u *ast.UseStatement) {
	// A `use` directive binds the named capability into global scope. The
	// prologue's own exports are pre-registered by NewAnalyzer; a `use` of
	// an unknown capability still records a symbol so later free-identifier
	// checks against it do not misfire.
	if _, ok := a.scopes.Lookup(u.Name, nil); ok {
		return
	}
	id := &ast.Identifier{Position: u.Position, Name: u.Name}
	_ = a.scopes.AddPrologueFunction(id, ast.Unit)
}

func (a *Analyzer) walkStatement(s ast.Statement) {
	switch n := s.(type) {
	case *ast.ExpressionStatement:
		a.walkExpr(n.Expr)
	case *ast.VariableDecl:
		a.walkVariableDecl(n)
	case *ast.UninitializedVariableDecl:
		a.walkUninitializedVariableDecl(n)
	case *ast.TypeBody:
		a.walkTypeBody(n)
	case *ast.IfStatement:
		a.walkExpr(n.Cond)
		a.scopes.Enter()
		a.walkBlock(n.Then)
		a.scopes.Leave()
	case *ast.WhileStatement:
		a.walkExpr(n.Cond)
		a.scopes.Enter()
		a.walkBlock(n.Body)
		a.scopes.Leave()
	case *ast.EnumerateStatement:
		a.walkExpr(n.Target)
		a.scopes.Enter()
		// Concrete element type is unknown until type analysis; the
		// symbol is injected now at block entry with a placeholder
		// type the type analyzer refines in place once the source's
		// Enumerable<T> is known.
		_ = a.scopes.AddVariable(n.ValueId, ast.Unit, false)
		if n.IndexId != nil {
			_ = a.scopes.AddVariable(n.IndexId, ast.Number, false)
		}
		a.walkBlock(n.Body)
		a.scopes.Leave()
	case *ast.WithStatement:
		a.walkExpr(n.Resource)
		a.scopes.Enter()
		_ = a.scopes.AddVariable(n.Id, ast.Opaque, false)
		a.walkBlock(n.Body)
		a.scopes.Leave()
	case *ast.ContinueStatement, *ast.BreakStatement:
		// No identifiers to resolve; loop-nesting validity is a type
		// analyzer concern.
	case *ast.ReturnStatement:
		if n.Value != nil {
			a.walkExpr(n.Value)
		}
	case *ast.IncludeStatement, *ast.UseStatement:
		// Handled at the pipeline boundary / above.
	case *ast.MapEntry:
		a.walkExpr(n.Value)
	default:
		// Unreachable for a closed statement sum; nothing to resolve.
	}
}

func (a *Analyzer) walkBlock(stmts []ast.Statement) {
	for _, s := range stmts {
		a.walkStatement(s)
	}
}

func (a *Analyzer) walkVariableDecl(v *ast.VariableDecl) {
	// The declared type, when annotated, is analyzed and disambiguated
	// before the symbol is inserted.
	if v.Id.Type != nil {
		v.Id.Type = a.walkTypeRef(v.Id.Type, v.Position)
	}

	if _, isFunc := v.Value.(*ast.FunctionExpr); isFunc {
		// Insert before walking the value so the function can recurse
		// through its own declared name.
		if err := a.scopes.AddVariable(v.Id, ast.Unit, v.Shared); err != nil {
			a.errf(err.Pos, "%s", err.Error())
		}
		a.walkExpr(v.Value)
		v.Id.Type = v.Value.GetType()
		if v.Id.Symbol != nil {
			v.Id.Symbol.Type = v.Id.Type
		}
		return
	}

	// A bare `x = v;` whose name already resolves to a variable or
	// property in scope is a reassignment, not a redeclaration.
	if v.Id.Type == nil && !v.Shared {
		if sym, ok := a.scopes.Lookup(v.Id.Name, a.scopes.CurrentObjectContext()); ok &&
			(sym.Kind == ast.SymVariable || sym.Kind == ast.SymObjectProperty) {
			v.Reassign = true
			v.Id.Symbol = sym
			a.walkExpr(v.Value)
			return
		}
	}

	a.walkExpr(v.Value)
	declared := v.Id.Type
	if declared == nil {
		declared = ast.Unit
	}
	if err := a.scopes.AddVariable(v.Id, declared, v.Shared); err != nil {
		a.errf(err.Pos, "%s", err.Error())
	}
}

func (a *Analyzer) walkUninitializedVariableDecl(v *ast.UninitializedVariableDecl) {
	t := a.walkTypeRef(v.DeclaredType, v.Position)
	v.DeclaredType = t
	if err := a.scopes.AddVariable(v.Id, t, v.Shared); err != nil {
		a.errf(err.Pos, "%s", err.Error())
	}
}

// walkTypeRef resolves any Ambiguous identifiers embedded in t and
// disambiguates them to the Object type they name.
func (a *Analyzer) walkTypeRef(t ast.Type, pos ast.Position) ast.Type {
	if amb, ok := t.(*ast.Ambiguous); ok {
		if amb.Id == nil {
			amb.Id = &ast.Identifier{Position: pos, Name: amb.IDName}
		}
		sym, ok := a.scopes.Lookup(amb.Id.Name, a.scopes.CurrentObjectContext())
		if !ok {
			a.errf(pos, "undeclared type %q", amb.IDName)
			return t
		}
		amb.Id.Symbol = sym
	}
	resolved, err := ast.DisambiguateStatically(t)
	if err != nil {
		a.errf(pos, "%s", err.Error())
		return t
	}
	return resolved
}

func (a *Analyzer) walkTypeBody(tb *ast.TypeBody) {
	var parentObj *ast.Object
	if tb.Parent != nil {
		sym, ok := a.scopes.Lookup(tb.Parent.Name, nil)
		if !ok {
			a.errf(tb.Parent.Position, "undeclared type %q", tb.Parent.Name)
		} else {
			tb.Parent.Symbol = sym
			if obj, ok := sym.Type.(*ast.Object); ok {
				parentObj = obj
			} else {
				a.errf(tb.Parent.Position, "%q does not name a type", tb.Parent.Name)
			}
		}
	}

	building := &ast.Object{ID: placeholderID, Name: tb.Name, Parent: parentObj}
	// Register the type name immediately so self-referential properties
	// and constructor bodies can refer to it by name while it is still
	// under construction.
	typeID := &ast.Identifier{Position: tb.Position, Name: tb.Name}
	if err := a.scopes.AddFunction(typeID, building); err != nil {
		a.errf(err.Pos, "%s", err.Error())
	}
	typeSym := typeID.Symbol

	a.scopes.PushObjectContext(building)
	for _, prop := range tb.Properties {
		if prop.Shared {
			a.diags.Add(diag.NameErrorf(prop.Position, a.source, "%s", (&SharedInTypeBodyError{Name: prop.Name, Pos: prop.Position}).Error()))
		}
		if prop.Value == nil {
			prop.DeclaredType = a.walkTypeRef(prop.DeclaredType, prop.Position)
			building.Properties = append(building.Properties, ast.Property{Name: prop.Name, Type: prop.DeclaredType})
			continue
		}
		a.walkExpr(prop.Value)
		building.Properties = append(building.Properties, ast.Property{Name: prop.Name, Type: a.inferLiteralType(prop.Value)})
	}
	a.scopes.PopObjectContext()

	finalized := ast.FinalizeObject(tb.Name, parentObj, building.Properties, building)
	tb.Type = finalized
	if typeSym != nil {
		typeSym.Type = finalized
	}

	a.scopes.PushObjectContext(finalized)
	for _, ctor := range tb.Constructors {
		a.walkConstructor(tb, ctor, finalized, parentObj)
	}
	a.scopes.PopObjectContext()
}

func (a *Analyzer) walkConstructor(tb *ast.TypeBody, ctor *ast.ConstructorDecl, self, parent *ast.Object) {
	a.scopes.Enter()
	for _, p := range ctor.Params {
		_ = a.scopes.AddVariable(p, ast.Unit, false)
	}
	if ctor.ParentName != nil {
		if parent == nil || ctor.ParentName.Name != parent.Name {
			a.diags.Add(diag.NameErrorf(ctor.ParentName.Position, a.source, "%s", (&InvalidParentError{Name: ctor.ParentName.Name, Pos: ctor.ParentName.Position}).Error()))
		} else {
			sym, _ := a.scopes.Lookup(parent.Name, nil)
			ctor.ParentName.Symbol = sym
		}
		for _, arg := range ctor.ParentArgs {
			a.walkExpr(arg)
		}
	}
	a.walkBlock(ctor.Body)
	a.scopes.Leave()
}

func (a *Analyzer) walkExpr(e ast.Expression) {
	switch n := e.(type) {
	case *ast.Identifier:
		sym, ok := a.scopes.Lookup(n.Name, a.scopes.CurrentObjectContext())
		if !ok {
			a.errf(n.Position, "undeclared identifier %q", n.Name)
			return
		}
		n.Symbol = sym
	case *ast.NumberLiteral, *ast.StringLiteral, *ast.BooleanLiteral:
		// Leaves; nothing to resolve.
	case *ast.EnumerationLiteral:
		for _, el := range n.Elements {
			a.walkExpr(el)
		}
	case *ast.MapLiteral:
		seen := map[string]bool{}
		for _, entry := range n.Entries {
			if seen[entry.Key.Name] {
				a.diags.Add(diag.NameErrorf(entry.Key.Position, a.source, "%s", (&DuplicateMapKeyError{Key: entry.Key.Name, Pos: entry.Key.Position}).Error()))
			}
			seen[entry.Key.Name] = true
			a.walkExpr(entry.Value)
		}
	case *ast.EnumerableAccess:
		a.walkExpr(n.Path)
		a.walkExpr(n.Index)
	case *ast.DotAccess:
		a.walkExpr(n.Path)
		// n.Name is a field/key name, not resolved against scope; type
		// analysis rewrites this node to MapAccess or ClassAccess once
		// n.Path's type determines which it is.
	case *ast.MapAccess:
		a.walkExpr(n.Path)
	case *ast.ClassAccess:
		a.walkExpr(n.Path)
	case *ast.AssignExpr:
		a.walkAssignDest(n.Dest)
		a.walkExpr(n.Value)
	case *ast.BinaryExpr:
		a.walkExpr(n.Left)
		a.walkExpr(n.Right)
	case *ast.NumericComparisonExpr:
		a.walkExpr(n.Left)
		a.walkExpr(n.Right)
	case *ast.UnaryExpr:
		a.walkExpr(n.Operand)
	case *ast.FunctionExpr:
		a.walkFunctionExpr(n)
	case *ast.CallExpr:
		if n.Callee != nil {
			a.walkExpr(n.Callee)
		}
		if n.FuncExpr != nil {
			a.walkFunctionExpr(n.FuncExpr)
		}
		for _, arg := range n.Args {
			a.walkExpr(arg)
		}
	case *ast.DeferCallExpr:
		a.walkExpr(n.Call)
	default:
		// Unreachable for a closed expression sum.
	}
}

func (a *Analyzer) walkAssignDest(dest ast.Expression) {
	switch n := dest.(type) {
	case *ast.Identifier:
		a.walkExpr(n)
	case *ast.EnumerableAccess:
		a.walkExpr(n.Path)
		a.walkExpr(n.Index)
	case *ast.DotAccess:
		a.walkExpr(n.Path)
	case *ast.MapAccess:
		a.walkExpr(n.Path)
	case *ast.ClassAccess:
		a.walkExpr(n.Path)
	default:
		a.errf(dest.Pos(), "invalid assignment target")
	}
}

func (a *Analyzer) walkFunctionExpr(f *ast.FunctionExpr) {
	a.scopes.Enter()
	for _, p := range f.Params {
		_ = a.scopes.AddVariable(p, ast.Unit, false)
	}
	a.walkBlock(f.Body)
	a.scopes.Leave()
}
