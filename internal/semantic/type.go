package semantic

import (
	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/diag"
)

// returnFrame records, for one enclosing callable, the type its body must
// ultimately return once every curried argument has been supplied: the
// final return type after stripping every leading arrow constructor.
type returnFrame struct {
	finalReturn ast.Type
}

// TypeAnalyzer is the type analyzer: a top-down walk producing
// a TypeTable (node -> type) alongside the Type already stored on each
// Expression node.
type TypeAnalyzer struct {
	diags       *diag.Diagnostics
	source      string
	returnStack []returnFrame
	whileDepth  int
	funcDepth   int
	table       map[ast.Expression]ast.Type

	// possibleFunctions tracks, for possible-functions analysis, every symbol
	// whose value may be one of
	// several function literals (re-assignable function-valued vars).
	possibleFunctions map[*ast.SemanticSymbol][]*ast.FunctionExpr

	// resolutions/objectDecls back the constructor-dispatch bookkeeping in
	// calls.go.
	resolutions map[*ast.CallExpr]*ResolvedConstructor
	objectDecls map[*ast.Object]*ast.TypeBody
}

// NewTypeAnalyzer creates a type analyzer for one source unit.
func NewTypeAnalyzer(source string) *TypeAnalyzer {
	return &TypeAnalyzer{
		diags:             &diag.Diagnostics{},
		source:            source,
		table:             make(map[ast.Expression]ast.Type),
		possibleFunctions: make(map[*ast.SemanticSymbol][]*ast.FunctionExpr),
		resolutions:       make(map[*ast.CallExpr]*ResolvedConstructor),
		objectDecls:       make(map[*ast.Object]*ast.TypeBody),
	}
}

// Diagnostics returns the diagnostics accumulated so far.
func (a *TypeAnalyzer) Diagnostics() *diag.Diagnostics { return a.diags }

// TypeOf looks up the inferred type recorded for e in the TypeTable.
func (a *TypeAnalyzer) TypeOf(e ast.Expression) (ast.Type, bool) {
	t, ok := a.table[e]
	return t, ok
}

func (a *TypeAnalyzer) errf(pos ast.Position, format string, args ...any) {
	a.diags.Add(diag.TypeErrorf(pos, a.source, format, args...))
}

func (a *TypeAnalyzer) record(e ast.Expression, t ast.Type) ast.Type {
	e.SetType(t)
	a.table[e] = t
	return t
}

// AnalyzeProgram walks the whole (name-resolved) program, checking types
// and rewriting DotAccess nodes to MapAccess/ClassAccess in place.
func (a *TypeAnalyzer) AnalyzeProgram(p *ast.Program) error {
	for i, s := range p.Statements {
		p.Statements[i] = a.walkStatement(s)
	}
	return a.diags.Err()
}

func (a *TypeAnalyzer) walkStatement(s ast.Statement) ast.Statement {
	switch n := s.(type) {
	case *ast.ExpressionStatement:
		n.Expr = a.walkExpr(n.Expr)
		return n
	case *ast.VariableDecl:
		n.Value = a.walkExpr(n.Value)
		vt := n.Value.GetType()

		if n.Reassign && n.Id.Symbol != nil {
			declared := n.Id.Symbol.Type
			if declared != nil && declared.Equals(ast.TypeType) {
				a.errf(n.Position, "cannot reassign the type-valued variable %q", n.Id.Name)
			} else if declared != nil && !declared.Equals(ast.Unit) && !ast.IsAssignableTo(vt, declared) {
				a.errf(n.Value.Pos(), "cannot assign %s to %q of type %s", vt, n.Id.Name, declared)
			}
			n.Id.Type = n.Id.Symbol.Type
			a.trackPossibleFunction(n.Id.Symbol, n.Value)
			return n
		}

		if n.Id.Type != nil && !n.Id.Type.Equals(ast.Unit) {
			// annotated declaration: the value must fit the annotation,
			// and the symbol keeps the annotated type
			if !ast.IsAssignableTo(vt, n.Id.Type) {
				a.errf(n.Value.Pos(), "cannot assign %s to %q of declared type %s", vt, n.Id.Name, n.Id.Type)
			}
			if n.Id.Symbol != nil {
				n.Id.Symbol.Type = n.Id.Type
			}
		} else {
			if n.Id.Symbol != nil {
				n.Id.Symbol.Type = vt
			}
			n.Id.Type = vt
		}
		a.trackPossibleFunction(n.Id.Symbol, n.Value)
		return n
	case *ast.UninitializedVariableDecl:
		return n
	case *ast.TypeBody:
		a.walkTypeBody(n)
		return n
	case *ast.IfStatement:
		n.Cond = a.walkExpr(n.Cond)
		if !n.Cond.GetType().Equals(ast.Boolean) {
			a.errf(n.Cond.Pos(), "if condition must be Boolean, got %s", n.Cond.GetType())
		}
		a.walkBlock(n.Then)
		return n
	case *ast.WhileStatement:
		n.Cond = a.walkExpr(n.Cond)
		if !n.Cond.GetType().Equals(ast.Boolean) {
			a.errf(n.Cond.Pos(), "while condition must be Boolean, got %s", n.Cond.GetType())
		}
		a.whileDepth++
		a.walkBlock(n.Body)
		a.whileDepth--
		return n
	case *ast.EnumerateStatement:
		n.Target = a.walkExpr(n.Target)
		elemType := ast.Type(ast.Unit)
		switch src := n.Target.GetType().(type) {
		case *ast.Enumerable:
			elemType = src.Inner
		case *ast.Map:
			elemType = src.Inner
		default:
			a.errf(n.Target.Pos(), "enumerate source must be Enumerable or Map, got %s", n.Target.GetType())
		}
		n.ValueId.Type = elemType
		if n.ValueId.Symbol != nil {
			n.ValueId.Symbol.Type = elemType
		}
		if n.IndexId != nil {
			n.IndexId.Type = ast.Number
			if n.IndexId.Symbol != nil {
				n.IndexId.Symbol.Type = ast.Number
			}
		}
		a.whileDepth++
		a.walkBlock(n.Body)
		a.whileDepth--
		return n
	case *ast.WithStatement:
		n.Resource = a.walkExpr(n.Resource)
		res, ok := n.Resource.GetType().(*ast.Resource)
		if !ok {
			a.errf(n.Resource.Pos(), "with source must be Resource<Opaque>, got %s", n.Resource.GetType())
		} else if !ast.IsPrimitive(res.Yields) || res.Yields.Kind() != ast.KindOpaque {
			a.errf(n.Resource.Pos(), "with resource must yield Opaque, got %s", res.Yields)
		}
		n.Id.Type = ast.Opaque
		if n.Id.Symbol != nil {
			n.Id.Symbol.Type = ast.Opaque
		}
		a.walkBlock(n.Body)
		return n
	case *ast.ContinueStatement:
		if a.whileDepth == 0 {
			a.diags.Add(diag.SyntaxErrorf(n.Position, a.source, "continue outside a loop"))
		}
		return n
	case *ast.BreakStatement:
		if a.whileDepth == 0 {
			a.diags.Add(diag.SyntaxErrorf(n.Position, a.source, "break outside a loop"))
		}
		return n
	case *ast.ReturnStatement:
		if len(a.returnStack) == 0 {
			a.diags.Add(diag.SyntaxErrorf(n.Position, a.source, "return outside a function"))
			return n
		}
		frame := a.returnStack[len(a.returnStack)-1]
		if n.Value != nil {
			n.Value = a.walkExpr(n.Value)
			if frame.finalReturn != nil && !ast.IsAssignableTo(n.Value.GetType(), frame.finalReturn) {
				a.errf(n.Value.Pos(), "return type %s not assignable to %s", n.Value.GetType(), frame.finalReturn)
			}
		} else if frame.finalReturn != nil && !frame.finalReturn.Equals(ast.Void) {
			a.errf(n.Position, "missing return value, function returns %s", frame.finalReturn)
		}
		return n
	case *ast.MapEntry:
		n.Value = a.walkExpr(n.Value)
		return n
	default:
		return n
	}
}

func (a *TypeAnalyzer) walkBlock(stmts []ast.Statement) {
	for i, s := range stmts {
		stmts[i] = a.walkStatement(s)
	}
}

func (a *TypeAnalyzer) trackPossibleFunction(sym *ast.SemanticSymbol, value ast.Expression) {
	if sym == nil {
		return
	}
	if fn, ok := value.(*ast.FunctionExpr); ok {
		a.possibleFunctions[sym] = append(a.possibleFunctions[sym], fn)
	}
}

// walkTypeBody re-types every property default-value expression and
// constructor body once names are resolved, re-finalizing the object's
// property types to match (the object's shape/id was already fixed by name
// analysis; only the recorded Property.Type values are refreshed here to
// reflect fully-checked types, which for literal-only defaults coincide
// with what name analysis already inferred).
func (a *TypeAnalyzer) walkTypeBody(tb *ast.TypeBody) {
	a.registerTypeBody(tb)
	for _, prop := range tb.Properties {
		if prop.Value != nil {
			prop.Value = a.walkExpr(prop.Value)
		}
	}
	// Name analysis assembled the Object before value types existed;
	// settle each inferred property's type now so property access and
	// ObjSet checks see the real types. Self-references stay rewritten to
	// This (invariant: a finalized object never reaches itself through its
	// own property types).
	if tb.Type != nil {
		selfID := tb.Type.ID
		for _, prop := range tb.Properties {
			if prop.Value == nil || prop.Value.GetType() == nil {
				continue
			}
			refined := ast.Transform(prop.Value.GetType(), func(t ast.Type) ast.Type {
				if o, ok := t.(*ast.Object); ok && o.ID == selfID {
					return ast.This
				}
				return t
			})
			for j := range tb.Type.Properties {
				p := &tb.Type.Properties[j]
				if p.Name == prop.Name && (p.Type == nil || p.Type.Equals(ast.Unit)) {
					p.Type = refined
				}
			}
		}
	}

	for _, ctor := range tb.Constructors {
		for _, p := range ctor.Params {
			if p.Type == nil {
				p.Type = ast.Unit
			}
			if p.Symbol != nil {
				p.Symbol.Type = p.Type
			}
			a.record(p, p.Type)
		}
		a.funcDepth++
		a.returnStack = append(a.returnStack, returnFrame{finalReturn: tb.Type})
		a.walkBlock(ctor.Body)
		for i, arg := range ctor.ParentArgs {
			ctor.ParentArgs[i] = a.walkExpr(arg)
		}
		a.returnStack = a.returnStack[:len(a.returnStack)-1]
		a.funcDepth--
	}
	validateConstructors(a, tb)
}

func (a *TypeAnalyzer) walkExpr(e ast.Expression) ast.Expression {
	switch n := e.(type) {
	case *ast.Identifier:
		if n.Symbol != nil {
			a.record(n, n.Symbol.Type)
		}
		return n
	case *ast.NumberLiteral:
		return a.recordExpr(n, ast.Number)
	case *ast.StringLiteral:
		return a.recordExpr(n, ast.String)
	case *ast.BooleanLiteral:
		return a.recordExpr(n, ast.Boolean)
	case *ast.EnumerationLiteral:
		return a.walkEnumerationLiteral(n)
	case *ast.MapLiteral:
		return a.walkMapLiteral(n)
	case *ast.EnumerableAccess:
		return a.walkEnumerableAccess(n)
	case *ast.DotAccess:
		return a.walkDotAccess(n)
	case *ast.MapAccess:
		n.Path = a.walkExpr(n.Path)
		if m, ok := n.Path.GetType().(*ast.Map); ok {
			a.record(n, m.Inner)
		} else {
			a.errf(n.Position, "map access on non-Map type %s", n.Path.GetType())
		}
		return n
	case *ast.ClassAccess:
		n.Path = a.walkExpr(n.Path)
		if obj, ok := n.Path.GetType().(*ast.Object); ok {
			if t, ok := obj.PropertyType(n.Property.Name); ok {
				a.record(n, t)
			} else {
				a.errf(n.Position, "type %s has no property %q", obj.Name, n.Property.Name)
			}
		} else {
			a.errf(n.Position, "property access on non-object type %s", n.Path.GetType())
		}
		return n
	case *ast.AssignExpr:
		return a.walkAssign(n)
	case *ast.BinaryExpr:
		return a.walkBinary(n)
	case *ast.NumericComparisonExpr:
		return a.walkNumericComparison(n)
	case *ast.UnaryExpr:
		return a.walkUnary(n)
	case *ast.FunctionExpr:
		return a.walkFunctionExpr(n)
	case *ast.CallExpr:
		return a.walkCall(n)
	case *ast.DeferCallExpr:
		call := a.walkExpr(n.Call)
		n.Call = call.(*ast.CallExpr)
		// A deferred call's handle stands in for the call's eventual
		// result: any later read joins on the job and yields the value,
		// so the handle types as the result.
		a.record(n, n.Call.GetType())
		return n
	default:
		return n
	}
}

func (a *TypeAnalyzer) walkEnumerationLiteral(n *ast.EnumerationLiteral) ast.Expression {
	var inner ast.Type
	for i, el := range n.Elements {
		el = a.walkExpr(el)
		n.Elements[i] = el
		if inner == nil {
			inner = el.GetType()
		} else if !inner.Equals(el.GetType()) {
			a.errf(el.Pos(), "enumeration element type %s does not match inferred inner type %s", el.GetType(), inner)
		}
	}
	if inner == nil {
		inner = ast.Unit
	}
	return a.recordExpr(n, &ast.Enumerable{Inner: inner})
}

func (a *TypeAnalyzer) walkMapLiteral(n *ast.MapLiteral) ast.Expression {
	var inner ast.Type
	for _, entry := range n.Entries {
		entry.Value = a.walkExpr(entry.Value)
		if inner == nil {
			inner = entry.Value.GetType()
		} else if !inner.Equals(entry.Value.GetType()) {
			a.errf(entry.Value.Pos(), "map value type %s does not match inferred inner type %s", entry.Value.GetType(), inner)
		}
	}
	if inner == nil {
		inner = ast.Unit
	}
	return a.recordExpr(n, &ast.Map{Inner: inner})
}

func (a *TypeAnalyzer) walkEnumerableAccess(n *ast.EnumerableAccess) ast.Expression {
	n.Path = a.walkExpr(n.Path)
	n.Index = a.walkExpr(n.Index)
	if !n.Index.GetType().Equals(ast.Number) {
		a.errf(n.Index.Pos(), "enumerable index must be Number, got %s", n.Index.GetType())
	}
	if en, ok := n.Path.GetType().(*ast.Enumerable); ok {
		a.record(n, en.Inner)
	} else {
		a.errf(n.Position, "indexing a non-Enumerable type %s", n.Path.GetType())
	}
	return n
}

// walkDotAccess resolves the provisional `path.name` parse node to a
// MapAccess or ClassAccess once Path's type is known.
func (a *TypeAnalyzer) walkDotAccess(n *ast.DotAccess) ast.Expression {
	n.Path = a.walkExpr(n.Path)
	switch t := n.Path.GetType().(type) {
	case *ast.Map:
		ma := &ast.MapAccess{Position: n.Position, Path: n.Path, Key: n.Name}
		a.record(ma, t.Inner)
		return ma
	case *ast.Object:
		ca := &ast.ClassAccess{Position: n.Position, Path: n.Path, Property: n.Name}
		if pt, ok := t.PropertyType(n.Name.Name); ok {
			a.record(ca, pt)
		} else {
			a.errf(n.Position, "type %s has no property %q", t.Name, n.Name.Name)
		}
		return ca
	default:
		a.errf(n.Position, "cannot access %q on type %s", n.Name.Name, n.Path.GetType())
		return n
	}
}

func (a *TypeAnalyzer) walkAssign(n *ast.AssignExpr) ast.Expression {
	n.Dest = a.walkAssignDest(n.Dest)
	n.Value = a.walkExpr(n.Value)
	destType := n.Dest.GetType()
	if id, ok := n.Dest.(*ast.Identifier); ok && id.Symbol != nil && id.Symbol.Type != nil && id.Symbol.Type.Kind() == ast.KindTypeType {
		a.errf(n.Position, "cannot reassign into a Type-typed variable %q", id.Name)
	}
	if destType != nil && !ast.IsAssignableTo(n.Value.GetType(), destType) {
		a.errf(n.Position, "cannot assign %s to %s", n.Value.GetType(), destType)
	}
	a.trackPossibleFunction(destSymbol(n.Dest), n.Value)
	return a.recordExpr(n, destType)
}

func destSymbol(dest ast.Expression) *ast.SemanticSymbol {
	if id, ok := dest.(*ast.Identifier); ok {
		return id.Symbol
	}
	return nil
}

func (a *TypeAnalyzer) walkAssignDest(dest ast.Expression) ast.Expression {
	switch n := dest.(type) {
	case *ast.Identifier:
		if n.Symbol != nil {
			a.record(n, n.Symbol.Type)
		}
		return n
	case *ast.EnumerableAccess:
		return a.walkEnumerableAccess(n)
	case *ast.DotAccess:
		return a.walkDotAccess(n)
	case *ast.MapAccess:
		return a.walkExpr(n)
	case *ast.ClassAccess:
		return a.walkExpr(n)
	default:
		a.errf(dest.Pos(), "invalid assignment target")
		return dest
	}
}

func (a *TypeAnalyzer) walkBinary(n *ast.BinaryExpr) ast.Expression {
	n.Left = a.walkExpr(n.Left)
	n.Right = a.walkExpr(n.Right)
	lt, rt := n.Left.GetType(), n.Right.GetType()

	switch n.Op {
	case ast.OpAnd, ast.OpOr:
		if !lt.Equals(ast.Boolean) || !rt.Equals(ast.Boolean) {
			a.errf(n.Position, "%s requires Boolean operands, got %s and %s", n.Op, lt, rt)
		}
		return a.recordExpr(n, ast.Boolean)
	case ast.OpEquals, ast.OpNotEquals:
		if !ast.IsAssignableTo(lt, rt) && !ast.IsAssignableTo(rt, lt) {
			a.errf(n.Position, "%s requires mutually assignable operands, got %s and %s", n.Op, lt, rt)
		}
		return a.recordExpr(n, ast.Boolean)
	case ast.OpAdd:
		if lt.Equals(ast.Number) && rt.Equals(ast.Number) {
			return a.recordExpr(n, ast.Number)
		}
		if lt.Equals(ast.String) && rt.Equals(ast.String) {
			n.Concatenation = true
			return a.recordExpr(n, ast.String)
		}
		a.errf(n.Position, "+ requires Number+Number or String+String, got %s and %s", lt, rt)
		return a.recordExpr(n, ast.ErrorType)
	default: // Subtract, Multiply, Divide, Modulus, Power
		if !lt.Equals(ast.Number) || !rt.Equals(ast.Number) {
			a.errf(n.Position, "%s requires Number operands, got %s and %s", n.Op, lt, rt)
		}
		return a.recordExpr(n, ast.Number)
	}
}

func (a *TypeAnalyzer) walkNumericComparison(n *ast.NumericComparisonExpr) ast.Expression {
	n.Left = a.walkExpr(n.Left)
	n.Right = a.walkExpr(n.Right)
	if !n.Left.GetType().Equals(ast.Number) || !n.Right.GetType().Equals(ast.Number) {
		a.errf(n.Position, "%s requires Number operands, got %s and %s", n.Op, n.Left.GetType(), n.Right.GetType())
	}
	return a.recordExpr(n, ast.Boolean)
}

func (a *TypeAnalyzer) walkUnary(n *ast.UnaryExpr) ast.Expression {
	n.Operand = a.walkExpr(n.Operand)
	t := n.Operand.GetType()
	switch n.Op {
	case ast.OpNot:
		if !t.Equals(ast.Boolean) {
			a.errf(n.Position, "! requires a Boolean operand, got %s", t)
		}
		return a.recordExpr(n, ast.Boolean)
	default: // OpNegative
		if !t.Equals(ast.Number) {
			a.errf(n.Position, "- requires a Number operand, got %s", t)
		}
		return a.recordExpr(n, ast.Number)
	}
}

func (a *TypeAnalyzer) walkFunctionExpr(f *ast.FunctionExpr) ast.Expression {
	// Compute the curried Lambda type from the flat parameter list
	// right-nesting Lambda1.
	var finalReturn ast.Type = f.Returns
	if finalReturn == nil {
		finalReturn = ast.Unit
	}
	t := finalReturn
	for i := len(f.Params) - 1; i >= 0; i-- {
		pt := f.Params[i].Type
		if pt == nil {
			pt = ast.Unit
		}
		f.Params[i].Type = pt
		if f.Params[i].Symbol != nil {
			f.Params[i].Symbol.Type = pt
		}
		t = &ast.Lambda1{Param: pt, Returns: t}
	}
	if len(f.Params) == 0 {
		t = &ast.Lambda0{Returns: finalReturn}
	}

	a.returnStack = append(a.returnStack, returnFrame{finalReturn: finalReturn})
	a.funcDepth++
	declared := declaredNames(f)
	a.walkBlock(f.Body)
	a.funcDepth--
	a.returnStack = a.returnStack[:len(a.returnStack)-1]

	f.FreeVars = freeVariables(f.Body, declared)
	return a.recordExpr(f, t)
}

// declaredNames collects the symbols a function literal's own parameters
// introduce, so freeVariables can exclude them; freeVariables adds the
// body's own declarations itself as it walks.
func declaredNames(f *ast.FunctionExpr) map[*ast.SemanticSymbol]bool {
	declared := make(map[*ast.SemanticSymbol]bool)
	for _, p := range f.Params {
		if p.Symbol != nil {
			declared[p.Symbol] = true
		}
	}
	return declared
}

func (a *TypeAnalyzer) recordExpr(e ast.Expression, t ast.Type) ast.Expression {
	a.record(e, t)
	return e
}
