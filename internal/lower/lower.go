// Package lower rewrites a name- and type-resolved AST into the flat ISA
// instruction stream the VM executes: every expression evaluates to a
// location, and structured control flow flattens into named callable
// regions plus call sites.
package lower

import (
	"fmt"

	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/isa"
	"github.com/swarmlang/swarm/internal/semantic"
)

// region is one pending function body to lower: either a literal statement
// list (a control-flow body/cond region) or a FunctionExpr (a closure
// literal). Regions are queued breadth-first so a region created while
// lowering another can itself still enqueue further regions.
type region struct {
	name   string
	kind   regionKind
	params []regionParam
	stmts  []ast.Statement // control-flow body/cond/closure-body region
	cond   ast.Expression  // WHILECOND regions re-evaluate this each call

	// selfSym/selfRef implement the symbol remap for recursive closures:
	// inside the region (and any region nested within it), a reference
	// to selfSym resolves to selfRef (the enclosing closure's own
	// region) instead of its ordinary variable location, so a direct recursive call skips the
	// curried-closure path.
	selfSym *ast.SemanticSymbol
	selfRef isa.Ref

	// instance/hasInstance carries the constructor's synthetic instance
	// parameter into this region and every region nested within it, so a
	// bare identifier resolving to an object property anywhere in a
	// constructor's body (including inside nested if/while/closure
	// regions) compiles to ObjGet/ObjSet against the right instance.
	instance    isa.Location
	hasInstance bool

	// tb/ctor are set only for kindCtor regions: the declaring type body
	// and the specific overloaded-by-arity constructor this region lowers.
	tb   *ast.TypeBody
	ctor *ast.ConstructorDecl

	// inline marks a region peeled out of another (IFBODY/SUBFUNC/WITH):
	// its Return only exits the region itself, so return/break/continue
	// inside it propagate through the CFB sentinels below instead of
	// through its own Return.
	inline bool

	// fnCFB/fnRet are the enclosing function region's control-flow-break
	// sentinel and early-return value cell. A `return` anywhere but the
	// function region's own statement list assigns fnRet, sets fnCFB true,
	// and lets peeled-subfunction guards (CallElse0(fnCFB, SUBFUNC_k))
	// skip the rest of the function; the region's trailing
	// Return1(fnRet) then delivers the value.
	fnCFB    isa.Location
	fnRet    isa.Location
	hasFnCFB bool

	// loopBrk/loopCont are the nearest enclosing loop body's sentinels:
	// break/continue inside an inline region nested in the body set them
	// and exit the inline region; the body's trailing Return1(!loopBrk)
	// turns them into the keep-going flag the While/Enumerate driver
	// reads.
	loopBrk    isa.Location
	loopCont   isa.Location
	hasLoopCFB bool

	// ctorRet marks regions whose enclosing callable is a constructor:
	// `return` delivers the instance, never a value.
	ctorRet bool
}

type regionParam struct {
	name string
	loc  isa.Location
}

// deferredInfo records the pending job a deferred-call's result location is
// still waiting on: the context label the call
// was pushed under and the job-id reference to look it up by once drained.
type deferredInfo struct {
	ctx   string
	jobID isa.Ref
}

// Lowerer holds the state threaded through one program's lowering pass.
type Lowerer struct {
	types  *semantic.TypeAnalyzer
	debug  bool
	temp   int
	region int
	ctx    int
	out    []*isa.Instr
	queue  []*region

	curKind     regionKind
	curSelfSym  *ast.SemanticSymbol
	curSelfRef  isa.Ref
	curInstance isa.Location
	curHasInst  bool

	curInline     bool
	curFnCFB      isa.Location
	curFnRet      isa.Location
	curHasFnCFB   bool
	curLoopBrk    isa.Location
	curLoopCont   isa.Location
	curHasLoopCFB bool
	curCtorRet    bool

	// scoped tracks which destinations the current function region has
	// already emitted a ScopeOf for (ScopeOf(l) precedes any
	// assignment to l inside a function region). nil while lowering the
	// top-level "main" region, which is not a function region.
	scoped map[string]bool

	// typeBodies maps a finalized Object type to the TypeBody that declared
	// it, populated once up front so constructor calls and parent-ctor
	// lookups (registered before any region is lowered) can resolve
	// constructor region names regardless of lowering order.
	typeBodies map[*ast.Object]*ast.TypeBody
	// ctorNames maps each constructor declaration to its deterministic
	// lowered region name (CTOR_<Type>_<index>).
	ctorNames map[*ast.ConstructorDecl]string

	// deferred maps a location's name to the pending job it is still
	// waiting on; cleared the instant a read materializes it.
	deferred map[string]*deferredInfo

	// sharedCounts is a whole-program occurrence count per shared location
	// name, computed once up front (locks.go). A statement that touches a
	// shared location is wrapped in Lock/Unlock only when the location is
	// referenced more than once anywhere in the program.
	sharedCounts map[string]int
}

// New creates a Lowerer bound to a completed name+type analysis pass.
func New(types *semantic.TypeAnalyzer, debug bool) *Lowerer {
	return &Lowerer{
		types:        types,
		debug:        debug,
		typeBodies:   make(map[*ast.Object]*ast.TypeBody),
		ctorNames:    make(map[*ast.ConstructorDecl]string),
		deferred:     make(map[string]*deferredInfo),
		sharedCounts: make(map[string]int),
	}
}

// Lower rewrites prog into a complete ISA Program, entered at the "main"
// function region.
func Lower(prog *ast.Program, types *semantic.TypeAnalyzer, debug bool) (*isa.Program, error) {
	l := New(types, debug)
	l.sharedCounts = countSharedUses(prog)
	TrimDeadCode(prog)
	return l.lowerProgram(prog)
}

func (l *Lowerer) lowerProgram(prog *ast.Program) (*isa.Program, error) {
	l.registerTypeBodies(prog.Statements)

	l.queue = append(l.queue, &region{name: "main", stmts: prog.Statements})
	for _, s := range prog.Statements {
		tb, ok := s.(*ast.TypeBody)
		if !ok {
			continue
		}
		for _, ctor := range tb.Constructors {
			l.queue = append(l.queue, l.ctorRegion(tb, ctor))
		}
	}

	for len(l.queue) > 0 {
		r := l.queue[0]
		l.queue = l.queue[1:]
		if err := l.lowerRegion(r); err != nil {
			return nil, err
		}
	}

	for _, s := range prog.Statements {
		if tb, ok := s.(*ast.TypeBody); ok {
			l.emitTypeDescriptor(tb)
		}
	}

	return isa.NewProgram(l.out), nil
}

func (l *Lowerer) emit(in *isa.Instr) {
	l.out = append(l.out, in)
}

// emitScopeOf declares loc in the current function region's call scope
// (ScopeOf(l) precedes any assignment to l inside a function region), so
// the VM shadows it per call; recursion would otherwise
// clobber the caller's frame. Only locations DECLARED in the region --
// temporaries and `var` declarations -- are scoped: an assignment to a
// variable declared in an enclosing region must keep writing through to
// the caller's cell. Shared locations are process-wide and never shadowed,
// and the top-level "main" region is not a function region.
func (l *Lowerer) emitScopeOf(loc isa.Location) {
	if l.scoped == nil || loc.Affinity == isa.Shared {
		return
	}
	key := loc.String()
	if l.scoped[key] {
		return
	}
	l.scoped[key] = true
	l.emit(isa.ScopeOf(loc))
}

func (l *Lowerer) emitPos(pos ast.Position) {
	if !l.debug || !pos.IsValid() {
		return
	}
	l.emit(isa.PositionAnnotation(pos.File, pos.StartLine, pos.StartCol))
}

func (l *Lowerer) newTemp(aff isa.Affinity) isa.Location {
	l.temp++
	t := isa.Loc(aff, fmt.Sprintf("t%d", l.temp))
	l.emitScopeOf(t)
	return t
}

func (l *Lowerer) newRegionName(kind string) string {
	l.region++
	return fmt.Sprintf("%s_%d", kind, l.region)
}

// newCtxLabel allocates a deterministic context label for an EnterContext/
// PopContext/ResumeContext triple. The textual and binary ISA forms carry
// Ctx as a bare string, not a location reference, so labels need
// only be unique at compile time; the VM's own context stack is what
// actually tracks nesting at runtime.
func (l *Lowerer) newCtxLabel() string {
	l.ctx++
	return fmt.Sprintf("CTX_%d", l.ctx)
}

// enqueue schedules a region body for lowering once the current region
// finishes, mirroring the breadth-first region list a flat ISA stream needs
// (every BeginFunction/Return0|1 span is independent of lexical nesting).
func (l *Lowerer) enqueue(r *region) { l.queue = append(l.queue, r) }

// locationFor returns the Location a symbol is stored under: Function
// affinity for anything callable (closures call through the location that
// holds their FunctionRef, unifying static and dynamic dispatch), Shared
// for `shared var`, Local otherwise. Prologue functions are the one
// exception to the uuid-suffixed naming convention: they're registered once
// by the VM's prologue loader under their bare name, not per lexical
// occurrence, so every `use`-bound reference to the same capability must
// resolve to the same Function location regardless of which scope imported
// it.
func locationFor(sym *ast.SemanticSymbol) isa.Location {
	if sym.Kind == ast.SymPrologueFunction {
		return isa.Loc(isa.Function, sym.Name)
	}
	name := sym.LocationName()
	if sym.Shared {
		return isa.Loc(isa.Shared, name)
	}
	if sym.Kind == ast.SymFunction || ast.IsCallable(sym.Type) {
		return isa.Loc(isa.Function, name)
	}
	return isa.Loc(isa.Local, name)
}

func (l *Lowerer) typeOf(e ast.Expression) ast.Type {
	if t, ok := l.types.TypeOf(e); ok {
		return t
	}
	return e.GetType()
}
