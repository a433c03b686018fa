package lower

import "github.com/swarmlang/swarm/internal/ast"

// Control-flow-breaker analysis: decides which
// regions need sentinel cells armed before lowering. The walks stay on
// statement subtrees -- a function literal's body is an expression, so a
// `return` inside a nested closure never counts against the enclosing
// region.

// containsReturn reports whether any return appears in stmts, descending
// through every structured-statement body. Returns are the one breaker
// that escapes loops, so this drives both loop-sentinel arming and
// post-loop subfunction peeling.
func containsReturn(stmts []ast.Statement) bool {
	for _, s := range stmts {
		switch n := s.(type) {
		case *ast.ReturnStatement:
			return true
		case *ast.IfStatement:
			if containsReturn(n.Then) {
				return true
			}
		case *ast.WhileStatement:
			if containsReturn(n.Body) {
				return true
			}
		case *ast.EnumerateStatement:
			if containsReturn(n.Body) {
				return true
			}
		case *ast.WithStatement:
			if containsReturn(n.Body) {
				return true
			}
		}
	}
	return false
}

// containsLoopBreaker reports whether a break/continue appears beneath an
// if/with in stmts. Nested while/enumerate subtrees are excluded: their
// breaks and continues bind to them, not to the loop being analyzed.
func containsLoopBreaker(stmts []ast.Statement) bool {
	var underIf func(stmts []ast.Statement) bool
	underIf = func(stmts []ast.Statement) bool {
		for _, s := range stmts {
			switch n := s.(type) {
			case *ast.BreakStatement, *ast.ContinueStatement:
				return true
			case *ast.IfStatement:
				if underIf(n.Then) {
					return true
				}
			case *ast.WithStatement:
				if underIf(n.Body) {
					return true
				}
			}
		}
		return false
	}
	for _, s := range stmts {
		switch n := s.(type) {
		case *ast.IfStatement:
			if underIf(n.Then) {
				return true
			}
		case *ast.WithStatement:
			if underIf(n.Body) {
				return true
			}
		}
	}
	return false
}

// stmtHasBreaker reports whether lowering stmts can fire any control-flow
// breaker that must skip trailing sibling statements: a return at any
// depth, or a break/continue that will land in an inline region.
func stmtHasBreaker(stmts []ast.Statement) bool {
	if containsReturn(stmts) {
		return true
	}
	for _, s := range stmts {
		switch s.(type) {
		case *ast.BreakStatement, *ast.ContinueStatement:
			return true
		}
	}
	return containsLoopBreaker(stmts)
}

// needsFnCFB reports whether a callable region's body must arm the
// function-exit sentinel pair: some return lives beneath nested control
// flow, where its own Return instruction cannot exit the callable.
func needsFnCFB(body []ast.Statement) bool {
	for _, s := range body {
		switch n := s.(type) {
		case *ast.IfStatement:
			if containsReturn(n.Then) {
				return true
			}
		case *ast.WhileStatement:
			if containsReturn(n.Body) {
				return true
			}
		case *ast.EnumerateStatement:
			if containsReturn(n.Body) {
				return true
			}
		case *ast.WithStatement:
			if containsReturn(n.Body) {
				return true
			}
		}
	}
	return false
}

// needsLoopCFB reports whether a loop body must arm the break/skip
// sentinel pair: a breaker will fire from within an inline region (an
// if/with nested in the body), or a return anywhere must stop the loop.
func needsLoopCFB(body []ast.Statement) bool {
	return containsReturn(body) || containsLoopBreaker(body)
}
