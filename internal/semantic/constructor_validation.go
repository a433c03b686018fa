package semantic

import "github.com/swarmlang/swarm/internal/ast"

// assignSet is a definite-assignment set of uninitialized-property names.
type assignSet map[string]bool

func (s assignSet) clone() assignSet {
	out := make(assignSet, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

// intersect returns the properties present in both sets.
func intersect(a, b assignSet) assignSet {
	out := assignSet{}
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func union(a, b assignSet) assignSet {
	out := a.clone()
	for k := range b {
		out[k] = true
	}
	return out
}

// validateConstructors proves, for every constructor of tb, that each
// uninitialized (DeclaredType-only) property is written on every control
// path before any return statement.
func validateConstructors(a *TypeAnalyzer, tb *ast.TypeBody) {
	uninitialized := assignSet{}
	for _, p := range tb.Properties {
		if p.Value == nil {
			uninitialized[p.Name] = true
		}
	}
	if len(uninitialized) == 0 {
		return
	}

	for _, ctor := range tb.Constructors {
		v := &ctorValidator{a: a, uninitialized: uninitialized}
		final := v.walkBlock(ctor.Body, assignSet{})
		missing := []string{}
		for name := range uninitialized {
			if !final[name] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			a.errf(ctor.Position, "constructor does not definitely assign propert(ies) %v of %s on every path", missing, tb.Name)
		}
	}
}

type ctorValidator struct {
	a             *TypeAnalyzer
	uninitialized assignSet
}

// walkBlock runs the statements in order, threading the definite-assignment
// set through; it records a violation at each return statement that does
// not yet cover every uninitialized property.
func (v *ctorValidator) walkBlock(stmts []ast.Statement, in assignSet) assignSet {
	cur := in
	for _, s := range stmts {
		cur = v.walkStatement(s, cur)
	}
	return cur
}

func (v *ctorValidator) walkStatement(s ast.Statement, in assignSet) assignSet {
	switch n := s.(type) {
	case *ast.ExpressionStatement:
		return v.walkAssignExprs(n.Expr, in)
	case *ast.VariableDecl:
		// `prop = expr;` inside a constructor body resolves to a property
		// reassignment rather than a fresh local.
		if n.Reassign && n.Id.Symbol != nil &&
			n.Id.Symbol.Kind == ast.SymObjectProperty && v.uninitialized[n.Id.Symbol.Name] {
			out := in.clone()
			out[n.Id.Symbol.Name] = true
			return out
		}
		return in
	case *ast.IfStatement:
		thenOut := v.walkBlock(n.Then, in.clone())
		// No `else` in the grammar: the false branch is the
		// unmodified pre-state, so the post-condition is the intersection.
		return intersect(thenOut, in)
	case *ast.WhileStatement:
		// The body may execute zero times; conservatively, the post-state
		// is the pre-state.
		v.walkBlock(n.Body, in.clone())
		return in
	case *ast.EnumerateStatement:
		v.walkBlock(n.Body, in.clone())
		return in
	case *ast.WithStatement:
		// `with` bodies unconditionally execute.
		return v.walkBlock(n.Body, in)
	case *ast.ReturnStatement:
		missing := []string{}
		for name := range v.uninitialized {
			if !in[name] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			v.a.errf(n.Position, "return reached before propert(ies) %v are definitely assigned", missing)
		}
		return in
	default:
		return in
	}
}

// walkAssignExprs scans an expression statement for top-level assignments
// to uninitialized properties (`propName = expr;`), marking them assigned.
// Calls through a symbol with a known possible-functions set union the
// post-states of every candidate body; an ambiguous callee (no known
// possible-functions set) establishes no assignment.
func (v *ctorValidator) walkAssignExprs(e ast.Expression, in assignSet) assignSet {
	switch n := e.(type) {
	case *ast.AssignExpr:
		in = v.walkAssignExprs(n.Value, in)
		if id, ok := n.Dest.(*ast.Identifier); ok && id.Symbol != nil {
			if id.Symbol.Kind == ast.SymObjectProperty && v.uninitialized[id.Symbol.Name] {
				out := in.clone()
				out[id.Symbol.Name] = true
				return out
			}
		}
		return in
	case *ast.CallExpr:
		callee, ok := n.Callee.(*ast.Identifier)
		if !ok || callee.Symbol == nil {
			return in
		}
		candidates := v.a.possibleFunctions[callee.Symbol]
		if len(candidates) == 0 {
			// Ambiguous: no possible-functions set known for this callee.
			return in
		}
		result := in
		for i, fn := range candidates {
			post := v.walkBlock(fn.Body, in.clone())
			if i == 0 {
				result = post
			} else {
				result = union(result, post)
			}
		}
		return result
	default:
		return in
	}
}
