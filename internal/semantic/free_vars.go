package semantic

import "github.com/swarmlang/swarm/internal/ast"

// freeVariables returns the set of symbols referenced inside body but not
// declared by it (directly or in a nested block): the lvals the literal
// captures from enclosing scopes. declared seeds the set with the
// function's own parameters.
func freeVariables(body []ast.Statement, declared map[*ast.SemanticSymbol]bool) []*ast.SemanticSymbol {
	seen := map[*ast.SemanticSymbol]bool{}
	var free []*ast.SemanticSymbol
	local := cloneSet(declared)

	var walkExpr func(e ast.Expression)
	var walkStmt func(s ast.Statement)

	use := func(sym *ast.SemanticSymbol) {
		if sym == nil || local[sym] || seen[sym] {
			return
		}
		// Only plain variables are captured: shared locations are
		// process-wide and must keep write-through semantics, and
		// prologue/type names resolve globally without capture.
		if sym.Shared || sym.Kind != ast.SymVariable {
			return
		}
		seen[sym] = true
		free = append(free, sym)
	}

	walkExpr = func(e ast.Expression) {
		switch n := e.(type) {
		case *ast.Identifier:
			use(n.Symbol)
		case *ast.EnumerationLiteral:
			for _, el := range n.Elements {
				walkExpr(el)
			}
		case *ast.MapLiteral:
			for _, entry := range n.Entries {
				walkExpr(entry.Value)
			}
		case *ast.EnumerableAccess:
			walkExpr(n.Path)
			walkExpr(n.Index)
		case *ast.MapAccess:
			walkExpr(n.Path)
		case *ast.ClassAccess:
			walkExpr(n.Path)
		case *ast.DotAccess:
			walkExpr(n.Path)
		case *ast.AssignExpr:
			walkExpr(n.Dest)
			walkExpr(n.Value)
		case *ast.BinaryExpr:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *ast.NumericComparisonExpr:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *ast.UnaryExpr:
			walkExpr(n.Operand)
		case *ast.FunctionExpr:
			inner := cloneSet(local)
			for _, p := range n.Params {
				if p.Symbol != nil {
					inner[p.Symbol] = true
				}
			}
			saved := local
			local = inner
			for _, s := range n.Body {
				walkStmt(s)
			}
			local = saved
			for _, fv := range n.FreeVars {
				use(fv)
			}
		case *ast.CallExpr:
			if n.Callee != nil {
				walkExpr(n.Callee)
			}
			if n.FuncExpr != nil {
				walkExpr(n.FuncExpr)
			}
			for _, arg := range n.Args {
				walkExpr(arg)
			}
		case *ast.DeferCallExpr:
			walkExpr(n.Call)
		}
	}

	walkStmt = func(s ast.Statement) {
		switch n := s.(type) {
		case *ast.ExpressionStatement:
			walkExpr(n.Expr)
		case *ast.VariableDecl:
			walkExpr(n.Value)
			if n.Id.Symbol == nil {
				break
			}
			if n.Reassign {
				// a write to an enclosing variable is a capture too
				use(n.Id.Symbol)
			} else {
				local[n.Id.Symbol] = true
			}
		case *ast.UninitializedVariableDecl:
			if n.Id.Symbol != nil {
				local[n.Id.Symbol] = true
			}
		case *ast.IfStatement:
			walkExpr(n.Cond)
			for _, st := range n.Then {
				walkStmt(st)
			}
		case *ast.WhileStatement:
			walkExpr(n.Cond)
			for _, st := range n.Body {
				walkStmt(st)
			}
		case *ast.EnumerateStatement:
			walkExpr(n.Target)
			if n.ValueId.Symbol != nil {
				local[n.ValueId.Symbol] = true
			}
			if n.IndexId != nil && n.IndexId.Symbol != nil {
				local[n.IndexId.Symbol] = true
			}
			for _, st := range n.Body {
				walkStmt(st)
			}
		case *ast.WithStatement:
			walkExpr(n.Resource)
			if n.Id.Symbol != nil {
				local[n.Id.Symbol] = true
			}
			for _, st := range n.Body {
				walkStmt(st)
			}
		case *ast.ReturnStatement:
			if n.Value != nil {
				walkExpr(n.Value)
			}
		}
	}

	for _, s := range body {
		walkStmt(s)
	}
	return free
}

func cloneSet(m map[*ast.SemanticSymbol]bool) map[*ast.SemanticSymbol]bool {
	out := make(map[*ast.SemanticSymbol]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
