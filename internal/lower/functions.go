package lower

import (
	"fmt"

	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/isa"
	"github.com/swarmlang/swarm/internal/semantic"
)

// lowerFunctionLiteral lowers a function literal to a FUNC region and
// returns the (possibly curried) Ref denoting the closure value at the
// definition site. declSym is the symbol this
// literal is bound to directly by a named `var`/`shared var` declaration,
// or nil for an anonymous literal (an argument, an IIFE, a bare expression)
// -- only a directly-named binding gets the SymbolRemap that lets its own
// body call it recursively without going back through the curry chain.
//
// An n-ary function's formals, in call order, are reverse(FreeVars) ++
// Params: each free variable is prepended to the front of the parameter
// list in first-capture order, so the first Curry bound at the definition
// site (the last-captured free variable) lands on the first formal.
func (l *Lowerer) lowerFunctionLiteral(n *ast.FunctionExpr, declSym *ast.SemanticSymbol) (isa.Ref, error) {
	regionName := l.newRegionName("FUNC")

	// The binding's own name shows up as a free variable of a recursive
	// literal; it is never captured (its value does not exist yet at the
	// definition site) -- the SymbolRemap below covers it instead.
	freeVars := n.FreeVars
	if declSym != nil {
		filtered := make([]*ast.SemanticSymbol, 0, len(freeVars))
		for _, fv := range freeVars {
			if fv != declSym {
				filtered = append(filtered, fv)
			}
		}
		freeVars = filtered
	}

	params := make([]regionParam, 0, len(freeVars)+len(n.Params))
	for i := len(freeVars) - 1; i >= 0; i-- {
		sym := freeVars[i]
		params = append(params, regionParam{name: sym.Name, loc: locationFor(sym)})
	}
	for _, p := range n.Params {
		params = append(params, regionParam{name: p.Name, loc: locationFor(p.Symbol)})
	}

	r := &region{name: regionName, kind: kindNormal, stmts: n.Body, params: params}
	if declSym != nil {
		// Inside the body, the declared name resolves straight to the
		// region, re-capturing the free-variable parameters from the
		// current call's own bindings (their locations resolve to the
		// in-flight parameter shadows at the recursive call site).
		partials := make([]isa.Ref, 0, len(freeVars))
		for i := len(freeVars) - 1; i >= 0; i-- {
			partials = append(partials, locationFor(freeVars[i]))
		}
		r.selfSym = declSym
		r.selfRef = isa.FunctionRef{Name: regionName, Partials: partials}
	}
	l.enqueue(r)

	cur := isa.Ref(isa.FunctionRef{Name: regionName})
	for i := len(freeVars) - 1; i >= 0; i-- {
		dest := l.newTemp(isa.Function)
		l.emit(isa.Curry(dest, cur, locationFor(freeVars[i])))
		cur = dest
	}
	return cur, nil
}

// invoke applies callee to args, currying every argument but the last
// through a chain of Curry instructions and finally invoking with
// CallValue0/CallValue1: a 0-ary call has no arguments
// to curry at all, a 1-ary call skips currying entirely, and anything
// wider curries down to a single remaining formal before the real call.
func (l *Lowerer) invoke(callee isa.Ref, args []isa.Ref) (isa.Ref, error) {
	switch len(args) {
	case 0:
		dest := l.newTemp(isa.Local)
		l.emit(isa.CallValue0(dest, callee))
		return dest, nil
	case 1:
		dest := l.newTemp(isa.Local)
		l.emit(isa.CallValue1(dest, callee, args[0]))
		return dest, nil
	default:
		cur := callee
		for _, a := range args[:len(args)-1] {
			next := l.newTemp(isa.Function)
			l.emit(isa.Curry(next, cur, a))
			cur = next
		}
		dest := l.newTemp(isa.Local)
		l.emit(isa.CallValue1(dest, cur, args[len(args)-1]))
		return dest, nil
	}
}

// lowerCall lowers an ordinary call, an IIFE (FuncExpr set), the `drain`
// prologue builtin, or a constructor call (dispatched to lowerConstructorCall
// when type analysis resolved n to one).
func (l *Lowerer) lowerCall(n *ast.CallExpr) (isa.Ref, error) {
	if rc, ok := l.types.ResolvedConstructorFor(n); ok {
		return l.lowerConstructorCall(n, rc)
	}

	if id, ok := n.Callee.(*ast.Identifier); ok && id.Symbol != nil &&
		id.Symbol.Kind == ast.SymPrologueFunction && id.Name == "drain" && len(n.Args) == 0 {
		l.emit(isa.Drain())
		return isa.BooleanRef{Value: true}, nil
	}

	var callee isa.Ref
	var err error
	if n.FuncExpr != nil {
		callee, err = l.lowerFunctionLiteral(n.FuncExpr, nil)
	} else {
		callee, err = l.lowerExpr(n.Callee)
	}
	if err != nil {
		return nil, err
	}

	args := make([]isa.Ref, len(n.Args))
	for i, a := range n.Args {
		v, err := l.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	// Partial application
	// binds the supplied arguments with Curry and stops there; only a
	// saturated call emits the terminal Call0/Call1.
	var calleeType ast.Type
	if n.FuncExpr != nil {
		calleeType = l.typeOf(n.FuncExpr)
	} else {
		calleeType = l.typeOf(n.Callee)
	}
	if arity := ast.Arity(calleeType); len(args) < arity {
		cur := callee
		for _, a := range args {
			next := l.newTemp(isa.Function)
			l.emit(isa.Curry(next, cur, a))
			cur = next
		}
		return cur, nil
	}
	return l.invoke(callee, args)
}

// lowerConstructorCall allocates a new instance (ObjInit) and invokes the
// resolved constructor's region, passing the declared arguments followed by
// the synthetic trailing instance parameter every constructor region
// takes, so a parent-constructor call lower in the chain reuses this same
// instance instead of allocating a second one.
func (l *Lowerer) lowerConstructorCall(n *ast.CallExpr, rc *semantic.ResolvedConstructor) (isa.Ref, error) {
	instDest := l.newTemp(isa.Local)
	l.emit(isa.ObjInit(instDest, rc.Object))

	args := make([]isa.Ref, 0, len(n.Args)+1)
	for _, a := range n.Args {
		v, err := l.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	args = append(args, instDest)

	name, ok := l.ctorNames[rc.Constructor]
	if !ok {
		return nil, fmt.Errorf("%s: internal error: unregistered constructor for %s", n.Pos(), rc.Object.Name)
	}
	if _, err := l.invoke(isa.FunctionRef{Name: name}, args); err != nil {
		return nil, err
	}
	final := l.newTemp(isa.Local)
	l.emit(isa.ObjInstance(final, instDest))
	return final, nil
}
