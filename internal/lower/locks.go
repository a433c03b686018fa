package lower

import (
	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/isa"
)

// countSharedUses walks the whole program once, counting every reference
// to each shared-location name (a statement that mentions a name twice
// adds two). Counts are program-wide, not per statement: every statement
// that touches a shared symbol whose count is above 1 gets wrapped in
// Lock/Unlock, even if that statement mentions it only once; a location
// referenced exactly once needs no protection, single instructions being
// atomic.
func countSharedUses(prog *ast.Program) map[string]int {
	counts := make(map[string]int)
	note := func(sym *ast.SemanticSymbol) {
		if sym != nil && sym.Shared {
			counts[sym.LocationName()]++
		}
	}

	var walkExpr func(ast.Expression)
	var walkStmt func(ast.Statement)
	var walkStmts func([]ast.Statement)

	walkExpr = func(e ast.Expression) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *ast.Identifier:
			note(n.Symbol)
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
		case *ast.CallExpr:
			walkExpr(n.Callee)
			if n.FuncExpr != nil {
				walkStmts(n.FuncExpr.Body)
			}
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *ast.DeferCallExpr:
			walkExpr(n.Call)
		case *ast.FunctionExpr:
			walkStmts(n.Body)
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
		}
	}

	walkStmt = func(s ast.Statement) {
		switch n := s.(type) {
		case *ast.VariableDecl:
			if n.Reassign {
				note(n.Id.Symbol)
			}
			walkExpr(n.Value)
		case *ast.ExpressionStatement:
			walkExpr(n.Expr)
		case *ast.IfStatement:
			walkExpr(n.Cond)
			walkStmts(n.Then)
		case *ast.WhileStatement:
			walkExpr(n.Cond)
			walkStmts(n.Body)
		case *ast.EnumerateStatement:
			walkExpr(n.Target)
			walkStmts(n.Body)
		case *ast.WithStatement:
			walkExpr(n.Resource)
			walkStmts(n.Body)
		case *ast.ReturnStatement:
			walkExpr(n.Value)
		case *ast.TypeBody:
			for _, p := range n.Properties {
				walkExpr(p.Value)
			}
			for _, c := range n.Constructors {
				for _, a := range c.ParentArgs {
					walkExpr(a)
				}
				walkStmts(c.Body)
			}
		}
	}

	walkStmts = func(stmts []ast.Statement) {
		for _, s := range stmts {
			walkStmt(s)
		}
	}

	walkStmts(prog.Statements)
	return counts
}

// sharedSymbolsIn collects the shared symbols one statement's own
// expression tree touches directly, without descending into a nested
// closure's or IIFE's body: those get their own region, lowered (and
// locked, statement by statement) separately.
func sharedSymbolsIn(stmt ast.Statement) []*ast.SemanticSymbol {
	seen := make(map[*ast.SemanticSymbol]bool)
	var out []*ast.SemanticSymbol
	note := func(sym *ast.SemanticSymbol) {
		if sym == nil || !sym.Shared || seen[sym] {
			return
		}
		seen[sym] = true
		out = append(out, sym)
	}

	var walkExpr func(ast.Expression)
	walkExpr = func(e ast.Expression) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *ast.Identifier:
			note(n.Symbol)
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
		case *ast.CallExpr:
			walkExpr(n.Callee)
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *ast.DeferCallExpr:
			walkExpr(n.Call)
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
		}
	}

	switch n := stmt.(type) {
	case *ast.VariableDecl:
		if n.Reassign {
			note(n.Id.Symbol)
		}
		walkExpr(n.Value)
	case *ast.ExpressionStatement:
		walkExpr(n.Expr)
	case *ast.IfStatement:
		walkExpr(n.Cond)
	case *ast.EnumerateStatement:
		walkExpr(n.Target)
	case *ast.WithStatement:
		walkExpr(n.Resource)
	case *ast.ReturnStatement:
		walkExpr(n.Value)
	}
	return out
}

// lockLocationsFor returns the Lock/Unlock-wrapped locations for one
// statement: its directly-touched shared symbols whose program-wide
// reference count is above 1 (sharedCounts > 1), whether the other
// references sit in this statement or in others.
// A shared location referenced exactly once program-wide needs no lock.
func (l *Lowerer) lockLocationsFor(stmt ast.Statement) []isa.Location {
	syms := sharedSymbolsIn(stmt)
	var locs []isa.Location
	for _, sym := range syms {
		if l.sharedCounts[sym.LocationName()] > 1 {
			locs = append(locs, isa.Loc(isa.Shared, sym.LocationName()))
		}
	}
	return locs
}
