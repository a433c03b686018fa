package lower

import "github.com/swarmlang/swarm/internal/ast"

// TrimDeadCode removes statements that can never execute because an
// earlier sibling in the same block is a `return`, `break` or `continue`.
// An `if` never counts as such an exit, even when its body ends in one.
// Passes over the program repeat until one changes nothing.
func TrimDeadCode(prog *ast.Program) {
	for trimBlock(&prog.Statements) {
	}
}

func trimBlock(stmts *[]ast.Statement) bool {
	changed := false
	for i, s := range *stmts {
		if isTerminalStmt(s) && i+1 < len(*stmts) {
			*stmts = (*stmts)[:i+1]
			changed = true
			break
		}
	}
	for _, s := range *stmts {
		if trimNested(s) {
			changed = true
		}
	}
	return changed
}

func trimNested(s ast.Statement) bool {
	changed := false
	switch n := s.(type) {
	case *ast.IfStatement:
		changed = trimBlock(&n.Then) || changed
	case *ast.WhileStatement:
		changed = trimBlock(&n.Body) || changed
	case *ast.EnumerateStatement:
		changed = trimBlock(&n.Body) || changed
	case *ast.WithStatement:
		changed = trimBlock(&n.Body) || changed
	case *ast.TypeBody:
		for _, c := range n.Constructors {
			changed = trimBlock(&c.Body) || changed
		}
	case *ast.VariableDecl:
		changed = trimExprFuncs(n.Value) || changed
	case *ast.ExpressionStatement:
		changed = trimExprFuncs(n.Expr) || changed
	}
	return changed
}

// trimExprFuncs descends into function-literal bodies nested in an
// expression (closures, IIFEs, deferred calls) so their dead code is
// trimmed too.
func trimExprFuncs(e ast.Expression) bool {
	if e == nil {
		return false
	}
	changed := false
	switch n := e.(type) {
	case *ast.FunctionExpr:
		changed = trimBlock(&n.Body) || changed
	case *ast.CallExpr:
		if n.FuncExpr != nil {
			changed = trimBlock(&n.FuncExpr.Body) || changed
		}
		if n.Callee != nil {
			changed = trimExprFuncs(n.Callee) || changed
		}
		for _, a := range n.Args {
			changed = trimExprFuncs(a) || changed
		}
	case *ast.DeferCallExpr:
		changed = trimExprFuncs(n.Call) || changed
	case *ast.AssignExpr:
		changed = trimExprFuncs(n.Value) || changed
	case *ast.BinaryExpr:
		changed = trimExprFuncs(n.Left) || changed
		changed = trimExprFuncs(n.Right) || changed
	case *ast.UnaryExpr:
		changed = trimExprFuncs(n.Operand) || changed
	}
	return changed
}

func isTerminalStmt(s ast.Statement) bool {
	switch s.(type) {
	case *ast.ReturnStatement, *ast.BreakStatement, *ast.ContinueStatement:
		return true
	default:
		return false
	}
}
