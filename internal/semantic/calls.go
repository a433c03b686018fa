package semantic

import "github.com/swarmlang/swarm/internal/ast"

// ResolvedConstructor is attached (via the Resolutions side-table) to a
// CallExpr whose callee names a type, recording which of the type's
// overloaded-by-arity constructors the call was dispatched to.
type ResolvedConstructor struct {
	Object      *ast.Object
	Constructor *ast.ConstructorDecl
}

// ResolvedConstructorFor returns the constructor a type-valued call was
// dispatched to, if any.
func (a *TypeAnalyzer) ResolvedConstructorFor(call *ast.CallExpr) (*ResolvedConstructor, bool) {
	r, ok := a.resolutions[call]
	return r, ok
}

func (a *TypeAnalyzer) walkCall(n *ast.CallExpr) ast.Expression {
	for i, arg := range n.Args {
		n.Args[i] = a.walkExpr(arg)
	}

	if n.FuncExpr != nil {
		n.FuncExpr = a.walkExpr(n.FuncExpr).(*ast.FunctionExpr)
		return a.walkCallee(n, n.FuncExpr.GetType())
	}

	n.Callee = a.walkExpr(n.Callee)

	// Constructor dispatch: a call whose callee is a type-valued
	// identifier.
	if id, ok := n.Callee.(*ast.Identifier); ok && id.Symbol != nil {
		if obj, ok := id.Symbol.Type.(*ast.Object); ok {
			return a.walkConstructorCall(n, obj)
		}
	}

	return a.walkCallee(n, n.Callee.GetType())
}

// walkCallee handles an ordinary (non-constructor) call against a callable
// type: |args| <= arity, each argument assignable to its parameter, result
// is the arrow suffix after consuming the supplied arguments (partial
// application), unless the callee is nullary.
func (a *TypeAnalyzer) walkCallee(n *ast.CallExpr, calleeType ast.Type) ast.Expression {
	arity := ast.Arity(calleeType)
	if !ast.IsCallable(calleeType) {
		a.errf(n.Position, "cannot call a value of type %s", calleeType)
		return a.recordExpr(n, ast.ErrorType)
	}
	if len(n.Args) > arity && arity > 0 {
		a.errf(n.Position, "too many arguments: callable takes %d, got %d", arity, len(n.Args))
		return a.recordExpr(n, ast.ErrorType)
	}
	if arity == 0 && len(n.Args) > 0 {
		a.errf(n.Position, "calling a nullary function with %d argument(s)", len(n.Args))
		return a.recordExpr(n, ast.ErrorType)
	}

	if l0, ok := calleeType.(*ast.Lambda0); ok {
		return a.recordExpr(n, l0.Returns)
	}

	result := calleeType
	for _, arg := range n.Args {
		l1, ok := result.(*ast.Lambda1)
		if !ok {
			a.errf(n.Position, "too many arguments supplied to callable")
			break
		}
		if !ast.IsAssignableTo(arg.GetType(), l1.Param) {
			a.errf(arg.Pos(), "argument type %s not assignable to parameter type %s", arg.GetType(), l1.Param)
		}
		result = l1.Returns
	}
	return a.recordExpr(n, result)
}

// walkConstructorCall picks the single constructor of obj whose arity
// matches len(n.Args) and whose parameter types accept the arguments;
// ambiguity or no match is an error.
func (a *TypeAnalyzer) walkConstructorCall(n *ast.CallExpr, obj *ast.Object) ast.Expression {
	var matches []*ast.ConstructorDecl
	for _, ctor := range a.constructorsOf(obj) {
		if len(ctor.Params) != len(n.Args) {
			continue
		}
		ok := true
		for i, p := range ctor.Params {
			pt := p.Type
			if pt == nil {
				pt = ast.Unit
			}
			if !ast.IsAssignableTo(n.Args[i].GetType(), pt) {
				ok = false
				break
			}
		}
		if ok {
			matches = append(matches, ctor)
		}
	}

	switch len(matches) {
	case 0:
		a.errf(n.Position, "no constructor of %s matches %d argument(s) of the given types", obj.Name, len(n.Args))
		return a.recordExpr(n, obj)
	case 1:
		a.resolutions[n] = &ResolvedConstructor{Object: obj, Constructor: matches[0]}
		return a.recordExpr(n, obj)
	default:
		a.errf(n.Position, "ambiguous constructor call to %s with %d argument(s)", obj.Name, len(n.Args))
		return a.recordExpr(n, obj)
	}
}

// constructorsOf looks up the TypeBody declaration backing obj to read its
// constructor list. Since name analysis stores the finalized Object on
// TypeBody.Type, and CallExpr/Identifier only carry the Object itself, the
// analyzer keeps a registry of Object -> declaring TypeBody populated as
// type bodies are walked (registerTypeBody).
func (a *TypeAnalyzer) constructorsOf(obj *ast.Object) []*ast.ConstructorDecl {
	if tb, ok := a.objectDecls[obj]; ok {
		return tb.Constructors
	}
	return nil
}

// registerTypeBody records the TypeBody declaring obj so constructorsOf can
// find its constructor list later. Called once per type body during type
// analysis.
func (a *TypeAnalyzer) registerTypeBody(tb *ast.TypeBody) {
	if tb.Type != nil {
		a.objectDecls[tb.Type] = tb
	}
}
