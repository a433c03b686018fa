package lower

import (
	"fmt"

	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/isa"
)

// lowerExpr evaluates e and returns a Ref denoting where its value now
// lives: the "last location" protocol.
// Literals return a Ref directly without emitting anything, and so do
// identifiers, except that a property read inside a constructor emits an
// ObjGet into a fresh temporary and a location still bound to a pending
// defer first gets its join emitted. Every other expression emits the
// instructions that produce its value into a fresh temporary and returns
// that temporary.
func (l *Lowerer) lowerExpr(e ast.Expression) (isa.Ref, error) {
	switch n := e.(type) {
	case *ast.NumberLiteral:
		return isa.NumberRef{Value: n.Value}, nil
	case *ast.StringLiteral:
		return isa.StringRef{Value: n.Value}, nil
	case *ast.BooleanLiteral:
		return isa.BooleanRef{Value: n.Value}, nil
	case *ast.Identifier:
		if n.Symbol == nil {
			return nil, fmt.Errorf("%s: unresolved identifier %q reached lowering", n.Pos(), n.Name)
		}
		// SymbolRemap: inside the closure/constructor region that
		// declares it, a reference to the enclosing binding's own symbol
		// resolves straight to that region's Function location, bypassing
		// the curried-closure indirection for direct recursive calls.
		if l.curSelfSym != nil && n.Symbol == l.curSelfSym {
			return l.curSelfRef, nil
		}
		if l.curHasInst && n.Symbol.Kind == ast.SymObjectProperty {
			dest := l.newTemp(isa.Local)
			l.emit(isa.ObjGet(dest, l.curInstance, n.Symbol.Name))
			return dest, nil
		}
		loc := locationFor(n.Symbol)
		l.materializeDeferred(loc)
		return loc, nil
	case *ast.EnumerationLiteral:
		return l.lowerEnumerationLiteral(n)
	case *ast.MapLiteral:
		return l.lowerMapLiteral(n)
	case *ast.EnumerableAccess:
		return l.lowerEnumerableAccess(n)
	case *ast.MapAccess:
		return l.lowerMapAccess(n)
	case *ast.ClassAccess:
		return l.lowerClassAccess(n)
	case *ast.AssignExpr:
		return l.lowerAssign(n)
	case *ast.BinaryExpr:
		return l.lowerBinary(n)
	case *ast.NumericComparisonExpr:
		return l.lowerNumericComparison(n)
	case *ast.UnaryExpr:
		return l.lowerUnary(n)
	case *ast.FunctionExpr:
		return l.lowerFunctionLiteral(n, nil)
	case *ast.CallExpr:
		return l.lowerCall(n)
	case *ast.DeferCallExpr:
		return l.lowerDeferCall(n)
	case *ast.DotAccess:
		return nil, fmt.Errorf("%s: DotAccess %q reached lowering unresolved (type analysis should rewrite it)", n.Pos(), n.Name.Name)
	default:
		return nil, fmt.Errorf("%s: lowering: unsupported expression %T", e.Pos(), e)
	}
}

func (l *Lowerer) lowerEnumerationLiteral(n *ast.EnumerationLiteral) (isa.Ref, error) {
	inner := ast.Type(ast.Opaque)
	if et, ok := l.typeOf(n).(*ast.Enumerable); ok {
		inner = et.Inner
	}
	dest := l.newTemp(isa.Local)
	l.emit(isa.EnumInit(dest, inner))
	for _, el := range n.Elements {
		v, err := l.lowerExpr(el)
		if err != nil {
			return nil, err
		}
		l.emit(isa.EnumAppend(dest, v))
	}
	return dest, nil
}

func (l *Lowerer) lowerMapLiteral(n *ast.MapLiteral) (isa.Ref, error) {
	inner := ast.Type(ast.Opaque)
	if mt, ok := l.typeOf(n).(*ast.Map); ok {
		inner = mt.Inner
	}
	dest := l.newTemp(isa.Local)
	l.emit(isa.MapInit(dest, inner))
	for _, entry := range n.Entries {
		v, err := l.lowerExpr(entry.Value)
		if err != nil {
			return nil, err
		}
		l.emit(isa.MapSet(dest, isa.StringRef{Value: entry.Key.Name}, v))
	}
	return dest, nil
}

func (l *Lowerer) lowerEnumerableAccess(n *ast.EnumerableAccess) (isa.Ref, error) {
	recv, err := l.lowerExpr(n.Path)
	if err != nil {
		return nil, err
	}
	idx, err := l.lowerExpr(n.Index)
	if err != nil {
		return nil, err
	}
	dest := l.newTemp(isa.Local)
	l.emit(isa.EnumGet(dest, recv, idx))
	return dest, nil
}

func (l *Lowerer) lowerMapAccess(n *ast.MapAccess) (isa.Ref, error) {
	recv, err := l.lowerExpr(n.Path)
	if err != nil {
		return nil, err
	}
	dest := l.newTemp(isa.Local)
	l.emit(isa.MapGet(dest, recv, isa.StringRef{Value: n.Key.Name}))
	return dest, nil
}

func (l *Lowerer) lowerClassAccess(n *ast.ClassAccess) (isa.Ref, error) {
	obj, err := l.lowerExpr(n.Path)
	if err != nil {
		return nil, err
	}
	dest := l.newTemp(isa.Local)
	l.emit(isa.ObjGet(dest, obj, n.Property.Name))
	return dest, nil
}

func (l *Lowerer) lowerBinary(n *ast.BinaryExpr) (isa.Ref, error) {
	left, err := l.lowerExpr(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := l.lowerExpr(n.Right)
	if err != nil {
		return nil, err
	}
	op := binaryTag(n.Op, n.Concatenation)
	dest := l.newTemp(isa.Local)
	l.emit(isa.AssignEval(dest, op, left, right))
	return dest, nil
}

func binaryTag(op ast.BinaryOp, concat bool) isa.Tag {
	switch op {
	case ast.OpAnd:
		return isa.TagAnd
	case ast.OpOr:
		return isa.TagOr
	case ast.OpEquals:
		return isa.TagEquals
	case ast.OpNotEquals:
		return isa.TagNotEquals
	case ast.OpAdd:
		if concat {
			return isa.TagStringConcat
		}
		return isa.TagPlus
	case ast.OpSubtract:
		return isa.TagMinus
	case ast.OpMultiply:
		return isa.TagTimes
	case ast.OpDivide:
		return isa.TagDivide
	case ast.OpModulus:
		return isa.TagMod
	case ast.OpPower:
		return isa.TagPower
	default:
		return isa.TagPlus
	}
}

func (l *Lowerer) lowerNumericComparison(n *ast.NumericComparisonExpr) (isa.Ref, error) {
	left, err := l.lowerExpr(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := l.lowerExpr(n.Right)
	if err != nil {
		return nil, err
	}
	var op isa.Tag
	switch n.Op {
	case ast.CmpLt:
		op = isa.TagLessThan
	case ast.CmpLte:
		op = isa.TagLessThanOrEquals
	case ast.CmpGt:
		op = isa.TagGreaterThan
	case ast.CmpGte:
		op = isa.TagGreaterThanOrEquals
	}
	dest := l.newTemp(isa.Local)
	l.emit(isa.AssignEval(dest, op, left, right))
	return dest, nil
}

func (l *Lowerer) lowerUnary(n *ast.UnaryExpr) (isa.Ref, error) {
	operand, err := l.lowerExpr(n.Operand)
	if err != nil {
		return nil, err
	}
	op := isa.TagNot
	if n.Op == ast.OpNegative {
		op = isa.TagNegative
	}
	dest := l.newTemp(isa.Local)
	l.emit(isa.AssignEval(dest, op, operand))
	return dest, nil
}

// lowerAssign dispatches on Dest's concrete node kind.
func (l *Lowerer) lowerAssign(n *ast.AssignExpr) (isa.Ref, error) {
	value, err := l.lowerExpr(n.Value)
	if err != nil {
		return nil, err
	}
	switch dest := n.Dest.(type) {
	case *ast.Identifier:
		if l.curHasInst && dest.Symbol.Kind == ast.SymObjectProperty {
			l.emit(isa.ObjSet(l.curInstance, dest.Symbol.Name, value))
			return value, nil
		}
		loc := locationFor(dest.Symbol)
		l.emit(isa.AssignValue(loc, value))
		l.propagateDeferred(value, loc)
		return loc, nil
	case *ast.EnumerableAccess:
		recv, err := l.lowerExpr(dest.Path)
		if err != nil {
			return nil, err
		}
		idx, err := l.lowerExpr(dest.Index)
		if err != nil {
			return nil, err
		}
		l.emit(isa.EnumSet(recv, idx, value))
		return value, nil
	case *ast.MapAccess:
		recv, err := l.lowerExpr(dest.Path)
		if err != nil {
			return nil, err
		}
		l.emit(isa.MapSet(recv, isa.StringRef{Value: dest.Key.Name}, value))
		return value, nil
	case *ast.ClassAccess:
		obj, err := l.lowerExpr(dest.Path)
		if err != nil {
			return nil, err
		}
		l.emit(isa.ObjSet(obj, dest.Property.Name, value))
		return value, nil
	default:
		return nil, fmt.Errorf("%s: unsupported assignment destination %T", n.Pos(), n.Dest)
	}
}

