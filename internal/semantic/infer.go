package semantic

import "github.com/swarmlang/swarm/internal/ast"

// inferLiteralType computes a best-effort type for a type-body property's
// default-value expression during name analysis, before the full type
// analyzer has run. It only needs to be
// accurate enough to (a) support the This-rewrite for self-referential
// constructor calls and (b) seed later
// ClassAccess lookups; type analysis recomputes every node's real type
// afterward and is authoritative.
func (a *Analyzer) inferLiteralType(e ast.Expression) ast.Type {
	var t ast.Type
	switch n := e.(type) {
	case *ast.NumberLiteral:
		t = ast.Number
	case *ast.StringLiteral:
		t = ast.String
	case *ast.BooleanLiteral:
		t = ast.Boolean
	case *ast.Identifier:
		if n.Symbol != nil {
			t = n.Symbol.Type
		}
	case *ast.EnumerationLiteral:
		inner := ast.Type(ast.Unit)
		if len(n.Elements) > 0 {
			inner = a.inferLiteralType(n.Elements[0])
		}
		t = &ast.Enumerable{Inner: inner}
	case *ast.MapLiteral:
		inner := ast.Type(ast.Unit)
		if len(n.Entries) > 0 {
			inner = a.inferLiteralType(n.Entries[0].Value)
		}
		t = &ast.Map{Inner: inner}
	case *ast.FunctionExpr:
		ret := n.Returns
		if ret == nil {
			ret = ast.Unit
		}
		t = ret
		for i := len(n.Params) - 1; i >= 0; i-- {
			pt := n.Params[i].Type
			if pt == nil {
				pt = ast.Unit
			}
			t = &ast.Lambda1{Param: pt, Returns: t}
		}
		if len(n.Params) == 0 {
			t = &ast.Lambda0{Returns: ret}
		}
	case *ast.CallExpr:
		if id, ok := n.Callee.(*ast.Identifier); ok && id.Symbol != nil {
			if obj, ok := id.Symbol.Type.(*ast.Object); ok {
				t = obj
				break
			}
		}
		t = ast.Unit
	default:
		t = ast.Unit
	}
	if t == nil {
		t = ast.Unit
	}
	e.SetType(t)
	return t
}
