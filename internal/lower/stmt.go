package lower

import (
	"fmt"

	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/isa"
)

// regionKind distinguishes what a queued region's trailing Return means.
type regionKind int

const (
	// kindNormal is an ordinary function/main region: it closes with
	// Return0 (or Return1 from an explicit `return expr;` / the CFB
	// return-value cell).
	kindNormal regionKind = iota
	// kindLoopBody is a While/Enumerate body region: it always closes with
	// Return1(bool) signalling whether the loop should keep going --
	// `continue` and plain fallthrough return true, `break` returns false.
	// The loop driver in internal/vm reads this boolean after every body
	// call.
	kindLoopBody
	// kindWhileCond is a WHILECOND_OUTER region: its single statement is
	// the loop's own condition expression, re-evaluated each call.
	kindWhileCond
	// kindCtor is a constructor region: it runs the
	// parent-constructor call (if any), then the property defaults, then
	// the constructor body, and always closes with Return1(instance).
	kindCtor
)

func (l *Lowerer) lowerRegion(r *region) error {
	if r.name == "main" {
		l.scoped = nil
	} else {
		l.scoped = make(map[string]bool)
	}
	l.emit(isa.BeginFunction(r.name))
	for i, p := range r.params {
		if l.scoped != nil {
			l.scoped[p.loc.String()] = true
		}
		l.emit(isa.FunctionParam(p.loc, i))
	}

	defer l.restoreRegionContext(l.saveRegionContext())
	l.curKind = r.kind
	l.curSelfSym, l.curSelfRef = r.selfSym, r.selfRef
	if r.hasInstance {
		l.curInstance, l.curHasInst = r.instance, true
	} else if !r.inline {
		l.curInstance, l.curHasInst = isa.Location{}, false
	}
	l.curInline = r.inline
	l.curFnCFB, l.curFnRet, l.curHasFnCFB = r.fnCFB, r.fnRet, r.hasFnCFB
	l.curLoopBrk, l.curLoopCont, l.curHasLoopCFB = r.loopBrk, r.loopCont, r.hasLoopCFB
	l.curCtorRet = r.ctorRet

	if r.kind == kindWhileCond {
		v, err := l.lowerExpr(r.cond)
		if err != nil {
			return err
		}
		l.emit(isa.Return1(v))
		return nil
	}

	if !r.inline {
		switch r.kind {
		case kindNormal, kindCtor:
			// a fresh callable: loop context never crosses it
			l.curLoopBrk, l.curLoopCont, l.curHasLoopCFB = isa.Location{}, isa.Location{}, false
			l.curCtorRet = r.kind == kindCtor
			body := r.stmts
			if r.kind == kindCtor {
				body = r.ctor.Body
			}
			if needsFnCFB(body) {
				l.curFnCFB = isa.Loc(isa.Local, "CFB_"+r.name)
				l.curFnRet = isa.Loc(isa.Local, "CFBRET_"+r.name)
				l.curHasFnCFB = true
				l.emitScopeOf(l.curFnCFB)
				l.emit(isa.AssignValue(l.curFnCFB, isa.BooleanRef{Value: false}))
				l.emitScopeOf(l.curFnRet)
				l.emit(isa.AssignValue(l.curFnRet, isa.BooleanRef{Value: false}))
			}
		case kindLoopBody:
			// fn context is inherited; each body invocation re-arms its
			// own loop sentinels
			if r.hasLoopCFB {
				l.emitScopeOf(r.loopBrk)
				l.emit(isa.AssignValue(r.loopBrk, isa.BooleanRef{Value: false}))
				l.emitScopeOf(r.loopCont)
				l.emit(isa.AssignValue(r.loopCont, isa.BooleanRef{Value: false}))
			}
		}
	}

	if r.kind == kindCtor && !r.inline {
		return l.lowerCtorBody(r)
	}

	terminated, err := l.lowerBlock(r.stmts)
	if err != nil {
		return err
	}
	if terminated {
		return nil
	}
	l.emitRegionTrailer(r)
	return nil
}

// emitRegionTrailer closes a region that did not already end on an
// explicit Return.
func (l *Lowerer) emitRegionTrailer(r *region) {
	if r.inline {
		l.emit(isa.Return0())
		return
	}
	switch r.kind {
	case kindLoopBody:
		if !r.hasLoopCFB {
			l.emit(isa.Return1(isa.BooleanRef{Value: true}))
			return
		}
		// keep going unless break (or a propagating function return)
		// fired this iteration
		stop := isa.Ref(r.loopBrk)
		if l.curHasFnCFB {
			t := l.newTemp(isa.Local)
			l.emit(isa.AssignEval(t, isa.TagOr, r.loopBrk, l.curFnCFB))
			stop = t
		}
		keep := l.newTemp(isa.Local)
		l.emit(isa.AssignEval(keep, isa.TagNot, stop))
		l.emit(isa.Return1(keep))
	default:
		if l.curHasFnCFB {
			l.emit(isa.Return1(l.curFnRet))
			return
		}
		l.emit(isa.Return0())
	}
}

type regionContext struct {
	kind                 regionKind
	selfSym              *ast.SemanticSymbol
	selfRef              isa.Ref
	instance             isa.Location
	hasInst              bool
	inline               bool
	fnCFB, fnRet         isa.Location
	hasFnCFB             bool
	loopBrk, loopCont    isa.Location
	hasLoopCFB, ctorRet  bool
}

func (l *Lowerer) saveRegionContext() regionContext {
	return regionContext{
		kind: l.curKind, selfSym: l.curSelfSym, selfRef: l.curSelfRef,
		instance: l.curInstance, hasInst: l.curHasInst,
		inline: l.curInline,
		fnCFB:  l.curFnCFB, fnRet: l.curFnRet, hasFnCFB: l.curHasFnCFB,
		loopBrk: l.curLoopBrk, loopCont: l.curLoopCont, hasLoopCFB: l.curHasLoopCFB,
		ctorRet: l.curCtorRet,
	}
}

func (l *Lowerer) restoreRegionContext(c regionContext) {
	l.curKind, l.curSelfSym, l.curSelfRef = c.kind, c.selfSym, c.selfRef
	l.curInstance, l.curHasInst = c.instance, c.hasInst
	l.curInline = c.inline
	l.curFnCFB, l.curFnRet, l.curHasFnCFB = c.fnCFB, c.fnRet, c.hasFnCFB
	l.curLoopBrk, l.curLoopCont, l.curHasLoopCFB = c.loopBrk, c.loopCont, c.hasLoopCFB
	l.curCtorRet = c.ctorRet
}

// childRegion builds a region that inherits the current SymbolRemap,
// instance, and CFB context, for the control-flow-flattening constructs
// (IFBODY, SUBFUNC, WHILEBODY, ENUM, WITH) that must see whatever
// enclosing callable they were nested inside.
func (l *Lowerer) childRegion(name string, kind regionKind, stmts []ast.Statement) *region {
	return &region{
		name: name, kind: kind, stmts: stmts,
		selfSym: l.curSelfSym, selfRef: l.curSelfRef,
		instance: l.curInstance, hasInstance: l.curHasInst,
		fnCFB: l.curFnCFB, fnRet: l.curFnRet, hasFnCFB: l.curHasFnCFB,
		loopBrk: l.curLoopBrk, loopCont: l.curLoopCont, hasLoopCFB: l.curHasLoopCFB,
		ctorRet: l.curCtorRet,
	}
}

// inlineRegion is a childRegion whose Return only exits the region itself
// (IFBODY/SUBFUNC/WITH).
func (l *Lowerer) inlineRegion(name string, kind regionKind, stmts []ast.Statement) *region {
	r := l.childRegion(name, kind, stmts)
	r.inline = true
	return r
}

// lowerBlock lowers a straight-line statement list into the current
// region, reporting whether it ended on an explicit Return (so the caller
// skips the region trailer).
func (l *Lowerer) lowerBlock(stmts []ast.Statement) (terminated bool, err error) {
	for i := 0; i < len(stmts); i++ {
		done, term, err := l.lowerBlockStmt(stmts, i)
		if err != nil {
			return false, err
		}
		if done {
			return term, nil
		}
	}
	return false, nil
}

// lowerBlockStmt lowers stmts[i], wrapping it in the shared-location lock
// discipline. done reports that the rest of stmts has been fully accounted for -- either this
// statement unconditionally exits (terminated), or it peeled the
// remainder into a SUBFUNC region guarded by the CFB sentinel.
func (l *Lowerer) lowerBlockStmt(stmts []ast.Statement, i int) (done, terminated bool, err error) {
	s := stmts[i]
	locks := l.lockLocationsFor(s)
	for _, loc := range locks {
		l.emit(isa.Lock(loc))
	}
	unlocked := false
	unlock := func() {
		if unlocked {
			return
		}
		unlocked = true
		for _, loc := range locks {
			l.emit(isa.Unlock(loc))
		}
	}
	defer unlock()

	switch n := s.(type) {
	case *ast.IfStatement:
		cond, err := l.lowerExpr(n.Cond)
		if err != nil {
			return false, false, err
		}
		bodyName := l.newRegionName("IFBODY")
		l.enqueue(l.inlineRegion(bodyName, l.curKind, n.Then))
		l.emit(isa.CallIf0(cond, bodyName))
		unlock()
		return l.peelRemainder(stmts, i, stmtHasBreaker(n.Then))
	case *ast.WhileStatement:
		if err := l.lowerWhile(n); err != nil {
			return false, false, err
		}
		unlock()
		return l.peelRemainder(stmts, i, containsReturn(n.Body))
	case *ast.EnumerateStatement:
		if err := l.lowerEnumerate(n); err != nil {
			return false, false, err
		}
		unlock()
		return l.peelRemainder(stmts, i, containsReturn(n.Body))
	case *ast.WithStatement:
		if err := l.lowerWith(n); err != nil {
			return false, false, err
		}
		unlock()
		return l.peelRemainder(stmts, i, stmtHasBreaker(n.Body))
	case *ast.BreakStatement:
		unlock()
		return l.lowerBreak(n)
	case *ast.ContinueStatement:
		unlock()
		return l.lowerContinue(n)
	case *ast.ReturnStatement:
		var value isa.Ref
		if n.Value != nil {
			v, err := l.lowerExpr(n.Value)
			if err != nil {
				return false, false, err
			}
			value = v
		}
		unlock()
		l.lowerReturn(value)
		return true, true, nil
	default:
		return false, false, l.lowerStmt(s)
	}
}

// peelRemainder implements the subfunction split: when the statement just
// lowered can fire a control-flow breaker and siblings follow it, the
// remainder moves into a SUBFUNC region invoked only when no sentinel is
// set (CallElse0), so the early-exit path never runs it.
func (l *Lowerer) peelRemainder(stmts []ast.Statement, i int, canBreak bool) (done, terminated bool, err error) {
	if !canBreak || i+1 >= len(stmts) {
		return false, false, nil
	}
	remName := l.newRegionName("SUBFUNC")
	l.enqueue(l.inlineRegion(remName, l.curKind, stmts[i+1:]))
	l.emit(isa.CallElse0(l.cfbGuard(), remName))
	return true, false, nil
}

// cfbGuard emits (if needed) and returns the combined "a breaker fired"
// sentinel for the current region: loop sentinels when inside a loop body,
// joined with the enclosing function's CFB when one exists.
func (l *Lowerer) cfbGuard() isa.Ref {
	inLoop := l.curHasLoopCFB && (l.curKind == kindLoopBody || l.curInline)
	if !inLoop {
		return l.curFnCFB
	}
	g := l.newTemp(isa.Local)
	l.emit(isa.AssignEval(g, isa.TagOr, l.curLoopBrk, l.curLoopCont))
	if l.curHasFnCFB {
		g2 := l.newTemp(isa.Local)
		l.emit(isa.AssignEval(g2, isa.TagOr, g, l.curFnCFB))
		return g2
	}
	return g
}

// lowerReturn emits a `return` in the current region: direct when the
// region is the callable itself, through the CFB sentinels when it is an
// inline or loop-body region whose own Return would be swallowed by the
// caller.
func (l *Lowerer) lowerReturn(value isa.Ref) {
	direct := !l.curInline && (l.curKind == kindNormal || l.curKind == kindCtor)
	if direct {
		switch {
		case l.curCtorRet:
			l.emit(isa.Return1(l.curInstance))
		case value != nil:
			l.emit(isa.Return1(value))
		default:
			l.emit(isa.Return0())
		}
		return
	}

	if l.curHasFnCFB {
		if value != nil && !l.curCtorRet {
			l.emit(isa.AssignValue(l.curFnRet, value))
		}
		l.emit(isa.AssignValue(l.curFnCFB, isa.BooleanRef{Value: true}))
	}
	if l.curHasLoopCFB {
		l.emit(isa.AssignValue(l.curLoopBrk, isa.BooleanRef{Value: true}))
	}
	if l.curKind == kindLoopBody && !l.curInline {
		l.emit(isa.Return1(isa.BooleanRef{Value: false}))
	} else {
		l.emit(isa.Return0())
	}
}

func (l *Lowerer) lowerBreak(n *ast.BreakStatement) (done, terminated bool, err error) {
	if l.curKind == kindLoopBody && !l.curInline {
		l.emit(isa.Return1(isa.BooleanRef{Value: false}))
		return true, true, nil
	}
	if l.curHasLoopCFB {
		l.emit(isa.AssignValue(l.curLoopBrk, isa.BooleanRef{Value: true}))
		l.emit(isa.Return0())
		return true, true, nil
	}
	return false, false, fmt.Errorf("%s: break outside a loop", n.Pos())
}

func (l *Lowerer) lowerContinue(n *ast.ContinueStatement) (done, terminated bool, err error) {
	if l.curKind == kindLoopBody && !l.curInline {
		l.emit(isa.Return1(isa.BooleanRef{Value: true}))
		return true, true, nil
	}
	if l.curHasLoopCFB {
		l.emit(isa.AssignValue(l.curLoopCont, isa.BooleanRef{Value: true}))
		l.emit(isa.Return0())
		return true, true, nil
	}
	return false, false, fmt.Errorf("%s: continue outside a loop", n.Pos())
}

// lowerStmt handles every statement kind lowerBlockStmt's switch does not
// already special-case (declarations, expression statements, type bodies,
// directives).
func (l *Lowerer) lowerStmt(s ast.Statement) error {
	switch n := s.(type) {
	case *ast.VariableDecl:
		var value isa.Ref
		var err error
		// A function literal bound directly by a named `var`/`shared var`
		// declares its own name in scope for recursive self-reference
		// (the symbol remap); any other value expression lowers the
		// ordinary way.
		if fe, ok := n.Value.(*ast.FunctionExpr); ok {
			value, err = l.lowerFunctionLiteral(fe, n.Id.Symbol)
		} else {
			value, err = l.lowerExpr(n.Value)
		}
		if err != nil {
			return err
		}
		l.emitPos(n.Position)
		// A reassignment to an object property inside a constructor body
		// writes through the instance, exactly like an explicit
		// `instance.prop = v` would.
		if n.Reassign && l.curHasInst && n.Id.Symbol.Kind == ast.SymObjectProperty {
			l.emit(isa.ObjSet(l.curInstance, n.Id.Symbol.Name, value))
			return nil
		}
		loc := locationFor(n.Id.Symbol)
		if !n.Reassign {
			l.emitScopeOf(loc)
		}
		l.emit(isa.AssignValue(loc, value))
		l.propagateDeferred(value, loc)
		return nil
	case *ast.UninitializedVariableDecl:
		loc := locationFor(n.Id.Symbol)
		l.emitScopeOf(loc)
		if v, ok := zeroValue(n.DeclaredType); ok {
			l.emit(isa.AssignValue(loc, v))
		}
		switch t := n.DeclaredType.(type) {
		case *ast.Enumerable:
			l.emit(isa.EnumInit(loc, t.Inner))
		case *ast.Map:
			l.emit(isa.MapInit(loc, t.Inner))
		}
		return nil
	case *ast.ExpressionStatement:
		l.emitPos(n.Position)
		_, err := l.lowerExpr(n.Expr)
		return err
	case *ast.TypeBody:
		// Type bodies are lowered in a dedicated pass: constructor regions
		// are queued up front (lowerProgram) and the type descriptor is
		// emitted once the queue drains (emitTypeDescriptor).
		return nil
	case *ast.MapEntry:
		// Only ever appears inside a MapLiteral, handled there.
		return nil
	default:
		return fmt.Errorf("%s: lowering: unsupported statement %T", s.Pos(), s)
	}
}

func zeroValue(t ast.Type) (isa.Ref, bool) {
	switch t {
	case ast.Number:
		return isa.NumberRef{Value: 0}, true
	case ast.String:
		return isa.StringRef{Value: ""}, true
	case ast.Boolean:
		return isa.BooleanRef{Value: false}, true
	default:
		return nil, false
	}
}

func (l *Lowerer) lowerWhile(s *ast.WhileStatement) error {
	condName := l.newRegionName("WHILECOND_OUTER")
	bodyName := l.newRegionName("WHILEBODY")
	condRegion := l.childRegion(condName, kindWhileCond, nil)
	condRegion.cond = s.Cond
	l.enqueue(condRegion)
	l.enqueue(l.loopBodyRegion(bodyName, s.Body))
	l.emitPos(s.Position)
	l.emit(isa.While(condName, bodyName))
	return nil
}

func (l *Lowerer) lowerEnumerate(s *ast.EnumerateStatement) error {
	source, err := l.lowerExpr(s.Target)
	if err != nil {
		return err
	}
	elemType := ast.Type(ast.Opaque)
	if et, ok := l.typeOf(s.Target).(*ast.Enumerable); ok {
		elemType = et.Inner
	} else if mt, ok := l.typeOf(s.Target).(*ast.Map); ok {
		elemType = mt.Inner
	}

	bodyName := l.newRegionName("ENUM")
	r := l.loopBodyRegion(bodyName, s.Body)
	r.params = append(r.params, regionParam{name: s.ValueId.Name, loc: locationFor(s.ValueId.Symbol)})
	if s.IndexId != nil {
		r.params = append(r.params, regionParam{name: s.IndexId.Name, loc: locationFor(s.IndexId.Symbol)})
	}
	l.enqueue(r)
	l.emitPos(s.Position)
	l.emit(isa.Enumerate(elemType, source, bodyName))
	return nil
}

// loopBodyRegion prepares a While/Enumerate body region, arming the loop
// sentinels when the body's subtree can fire a breaker from within a
// nested region.
func (l *Lowerer) loopBodyRegion(name string, body []ast.Statement) *region {
	r := l.childRegion(name, kindLoopBody, body)
	if needsLoopCFB(body) {
		r.loopBrk = isa.Loc(isa.Local, "LoopBreak_"+name)
		r.loopCont = isa.Loc(isa.Local, "LoopSkip_"+name)
		r.hasLoopCFB = true
	} else {
		r.loopBrk, r.loopCont = isa.Location{}, isa.Location{}
		r.hasLoopCFB = false
	}
	return r
}

func (l *Lowerer) lowerWith(s *ast.WithStatement) error {
	source, err := l.lowerExpr(s.Resource)
	if err != nil {
		return err
	}
	bodyName := l.newRegionName("WITH")
	r := l.inlineRegion(bodyName, l.curKind, s.Body)
	r.params = []regionParam{{name: s.Id.Name, loc: locationFor(s.Id.Symbol)}}
	l.enqueue(r)
	l.emitPos(s.Position)
	l.emit(isa.With(source, bodyName))
	return nil
}
