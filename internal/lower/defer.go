package lower

import (
	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/isa"
)

// retMapLoc is the well-known Shared location the VM's worker pool
// publishes completed deferred-call results into, keyed by job id;
// RetMapGet reads through it once a context has been resumed and
// drained.
var retMapLoc = isa.Loc(isa.Shared, "__retmap")

// lowerDeferCall desugars `defer f(x)` into an EnterContext/PushCall/
// PopContext triple and returns a Stream Ref standing in for the
// eventual result. The actual join
// (ResumeContext/Drain/RetMapGet) is not emitted here: it happens lazily,
// the first time something reads the location this expression's value gets
// assigned to (materializeDeferred), so a deferred call that is never read
// never forces a join point.
func (l *Lowerer) lowerDeferCall(n *ast.DeferCallExpr) (isa.Ref, error) {
	var callee isa.Ref
	var err error
	if n.Call.FuncExpr != nil {
		callee, err = l.lowerFunctionLiteral(n.Call.FuncExpr, nil)
	} else {
		callee, err = l.lowerExpr(n.Call.Callee)
	}
	if err != nil {
		return nil, err
	}

	args := make([]isa.Ref, len(n.Call.Args))
	for i, a := range n.Call.Args {
		v, err := l.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	// PushCall1 only invokes a unary callable, the same restriction Call1
	// has for ordinary calls: curry down to at most one remaining argument
	// first.
	for len(args) > 1 {
		next := l.newTemp(isa.Function)
		l.emit(isa.Curry(next, callee, args[0]))
		callee = next
		args = args[1:]
	}

	ctxDest := l.newTemp(isa.Local)
	l.emit(isa.EnterContext(ctxDest))
	ctxLabel := l.newCtxLabel()

	jobDest := l.newTemp(isa.Local)
	if len(args) == 0 {
		l.emit(isa.PushCallValue0(jobDest, callee))
	} else {
		l.emit(isa.PushCallValue1(jobDest, callee, args[0]))
	}
	l.emit(isa.PopContext(ctxLabel))

	streamDest := l.newTemp(isa.Local)
	l.emit(isa.AssignValue(streamDest, isa.StreamRef{ID: ctxLabel}))
	l.deferred[streamDest.Name] = &deferredInfo{ctx: ctxLabel, jobID: jobDest}
	return streamDest, nil
}

// materializeDeferred emits the resume/drain/read join the first time loc
// is read after a defer bound it, then clears the pending entry: a
// deferred location forces its join at the first read.
func (l *Lowerer) materializeDeferred(loc isa.Location) {
	info, ok := l.deferred[loc.Name]
	if !ok {
		return
	}
	delete(l.deferred, loc.Name)
	l.emit(isa.ResumeContext(info.ctx))
	l.emit(isa.Drain())
	l.emit(isa.RetMapGet(loc, retMapLoc, info.jobID))
	l.emit(isa.PopContext(info.ctx))
}

// propagateDeferred carries a still-pending defer through a plain copy
// (`y: number = x;`, `y = x;`) so a read of the new location also resolves it.
func (l *Lowerer) propagateDeferred(value isa.Ref, destLoc isa.Location) {
	srcLoc, ok := value.(isa.Location)
	if !ok {
		return
	}
	info, ok := l.deferred[srcLoc.Name]
	if !ok {
		return
	}
	l.deferred[destLoc.Name] = info
}
