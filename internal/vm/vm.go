package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/diag"
	"github.com/swarmlang/swarm/internal/isa"
)

// funcInfo indexes one lowered function region: its parameter locations
// (read from the FunctionParam run immediately following BeginFunction)
// and the pc range of its body. Regions not being executed are skipped
// over linearly via End.
type funcInfo struct {
	Name   string
	Params []isa.Location
	Begin  int // pc of BeginFunction
	Start  int // pc of first body instruction
	End    int // pc of the region-closing Return
}

// VM executes a loaded ISA program. The zero value is not
// usable; construct with New. A VM is single-goroutine; deferred calls run
// in clones that share the process-wide pieces (shared storage, queue,
// function index, output writer).
type VM struct {
	cfg   Config
	prog  *isa.Program
	funcs map[string]*funcInfo

	local  *Storage
	shared *Storage
	queue  *Queue
	scope  *ScopeFrame

	// ctxStack is the active deferred-call context chain; pushes pin to
	// the top. ctxLabels binds the lowering's compile-time context labels
	// to runtime context ids so ResumeContext can re-pin.
	ctxStack  []string
	ctxLabels map[string]string

	builtins map[string]builtinFunc
	out      io.Writer
	errOut   io.Writer

	// otypes is the registry of sealed runtime type descriptors, keyed by
	// object-type name; the ObjSet/ObjGet handlers consult it ahead of
	// the compile-time Object shape. Populated by the descriptor stream
	// Run executes before entering main, then read-only.
	otypes map[string]*ObjectTypeValue

	// topLevel is the instruction ranges outside every function region
	// (the type-descriptor tail a lowered program carries after its last
	// region), executed ahead of main.
	topLevel [][2]int

	// stack mirrors the in-flight region calls for runtime-error traces.
	stack diag.StackTrace
}

// retMapName is the shared location the worker pool publishes completed
// job results into, keyed by job id; must match the lowering's RetMapGet
// operand.
const retMapName = "__retmap"

// New loads prog into a fresh VM. Position annotations are stripped into
// the pc side-table, and function regions are indexed.
func New(prog *isa.Program, cfg Config) (*VM, error) {
	stripped := prog.StripPositions()
	v := &VM{
		cfg:       cfg,
		prog:      stripped,
		funcs:     make(map[string]*funcInfo),
		local:     NewStorage(false),
		shared:    NewStorage(true),
		queue:     NewQueue(cfg),
		scope:     NewRootScope(),
		ctxLabels: make(map[string]string),
		builtins:  prologueBuiltins(),
		otypes:    make(map[string]*ObjectTypeValue),
		out:       os.Stdout,
		errOut:    os.Stderr,
	}
	if err := v.indexFunctions(); err != nil {
		return nil, err
	}
	return v, nil
}

// SetOutput redirects the prologue log/logError writers (used by `run`
// and by tests capturing program output).
func (v *VM) SetOutput(out, errOut io.Writer) {
	v.out = out
	v.errOut = errOut
}

func (v *VM) indexFunctions() error {
	var open *funcInfo
	topStart := 0
	closeTop := func(end int) {
		if end > topStart {
			v.topLevel = append(v.topLevel, [2]int{topStart, end - 1})
		}
	}
	for pc, in := range v.prog.Instrs {
		switch in.Tag {
		case isa.TagBeginFunction:
			if open != nil {
				return fmt.Errorf("pc %d: BeginFunction %s inside open region %s", pc, in.FuncName, open.Name)
			}
			closeTop(pc)
			open = &funcInfo{Name: in.FuncName, Begin: pc, Start: pc + 1}
			v.funcs[in.FuncName] = open
		case isa.TagFunctionParam:
			if open != nil && pc == open.Start {
				open.Params = append(open.Params, in.Dest)
				open.Start = pc + 1
			}
		case isa.TagReturn0, isa.TagReturn1:
			// every region carries exactly one top-level Return, so
			// the first one closes it
			if open != nil {
				open.End = pc
				open = nil
				topStart = pc + 1
			}
		}
	}
	if open != nil {
		return fmt.Errorf("region %s has no closing Return", open.Name)
	}
	closeTop(v.prog.Len())
	return nil
}

// Run executes the program: first the stream outside every function
// region (the type-descriptor tail a lowered program carries after its
// last region, so descriptors are registered before any instance is
// built), then the "main" region. It shuts the queue down afterwards.
func (v *VM) Run() error {
	defer v.queue.Close()
	for _, r := range v.topLevel {
		if _, err := v.runRange(r[0], r[1]); err != nil {
			return err
		}
	}
	if fi, ok := v.funcs["main"]; ok {
		_, err := v.runRange(fi.Start, fi.End)
		return err
	}
	return nil
}

// CallFunction invokes fn with args: a prologue builtin by name, or a
// function region with a call scope and bound parameters (curried partials
// expanded first).
func (v *VM) CallFunction(fn *FunctionValue, args []Value) (Value, error) {
	all := make([]Value, 0, len(fn.Partials)+len(args))
	all = append(all, fn.Partials...)
	all = append(all, args...)

	fi, ok := v.funcs[fn.Name]
	if !ok {
		if b, ok := v.builtins[fn.Name]; ok {
			return b(v, all)
		}
		return nil, Errf(ExTypeError, "call to unknown function %q", fn.Name)
	}
	if len(all) != len(fi.Params) {
		return nil, Errf(ExInvalidArgumentType, "%s takes %d argument(s), got %d", fn.Name, len(fi.Params), len(all))
	}

	saved := v.scope
	v.scope = v.scope.NewCall(&CallRecord{Function: fn.Name})
	v.stack = append(v.stack, diag.StackFrame{Function: fn.Name})
	defer func() {
		v.scope = saved
		v.stack = v.stack[:len(v.stack)-1]
	}()

	for i, p := range fi.Params {
		name := v.scope.Shadow(p)
		if err := v.local.Store(name, all[i]); err != nil {
			return nil, err
		}
	}
	return v.runRange(fi.Start, fi.End)
}

// callNamed invokes a region or builtin by bare name with no partials.
func (v *VM) callNamed(name string, args []Value) (Value, error) {
	return v.CallFunction(&FunctionValue{Name: name}, args)
}

// cloneForJob snapshots this VM for a queued job: its own local storage
// copy and a fresh scope chain, sharing the program, function index,
// shared storage, queue, builtins, and output writers.
func (v *VM) cloneForJob() *VM {
	clone := &VM{
		cfg:       v.cfg,
		prog:      v.prog,
		funcs:     v.funcs,
		local:     NewStorage(false),
		shared:    v.shared,
		queue:     v.queue,
		scope:     NewRootScope(),
		ctxLabels: make(map[string]string),
		builtins:  v.builtins,
		otypes:    v.otypes,
		out:       v.out,
		errOut:    v.errOut,
	}
	clone.local.Restore(v.local.Snapshot())
	return clone
}

// propType resolves the static type of an instance's property, walking
// the parent chain and preferring a registered runtime descriptor over
// the compile-time Object shape at each step (a wire-loaded program's
// Object operands carry names only; the descriptors restore the types).
func (v *VM) propType(obj *ObjectValue, name string) (ast.Type, bool) {
	for cur := obj.Object; cur != nil; cur = cur.Parent {
		if d, ok := v.otypes[cur.Name]; ok {
			if t, ok := d.PropType(name); ok {
				return t, true
			}
			continue
		}
		for _, p := range cur.Properties {
			if p.Name == name {
				return p.Type, true
			}
		}
	}
	return nil, false
}

// publishResult records a completed job's result in the shared deferred-
// result map RetMapGet reads.
func (v *VM) publishResult(jobID string, result Value) {
	if result == nil {
		result = UnitValue{}
	}
	v.shared.Update(retMapName, func(cur Value, ok bool) Value {
		m, isMap := cur.(*MapValue)
		if !ok || !isMap {
			m = NewMapValue(ast.Opaque)
		}
		m.Set(jobID, result)
		return m
	})
}

// currentCtx returns the pinned deferred-call context, or "" when outside
// any context (pushes then land on the default queue and Drain waits for
// everything).
func (v *VM) currentCtx() string {
	if len(v.ctxStack) == 0 {
		return ""
	}
	return v.ctxStack[len(v.ctxStack)-1]
}

// storageFor picks the backend a location lives on.
func (v *VM) storageFor(l isa.Location) *Storage {
	if l.Affinity == isa.Shared {
		return v.shared
	}
	return v.local
}

// resolve maps a location to its storage key: shared locations are
// process-wide names, everything else resolves through the scope chain's
// shadows.
func (v *VM) resolve(l isa.Location) string {
	if l.Affinity == isa.Shared {
		return l.Name
	}
	return v.scope.Map(l)
}

// store writes val to l.
func (v *VM) store(l isa.Location, val Value) error {
	return v.storageFor(l).Store(v.resolve(l), val)
}

// load reads a Ref operand into a runtime value.
func (v *VM) load(r isa.Ref) (Value, error) {
	switch ref := r.(type) {
	case isa.Location:
		if val, ok := v.storageFor(ref).Load(v.resolve(ref)); ok {
			return val, nil
		}
		// a Function-affinity location that was never assigned names a
		// region or prologue builtin directly
		if ref.Affinity == isa.Function {
			if _, ok := v.funcs[ref.Name]; ok {
				return &FunctionValue{Name: ref.Name}, nil
			}
			if _, ok := v.builtins[ref.Name]; ok {
				return &FunctionValue{Name: ref.Name}, nil
			}
		}
		return nil, Errf(ExTypeError, "read of unassigned location %s", ref)
	case isa.NumberRef:
		return NumberValue{N: ref.Value}, nil
	case isa.StringRef:
		return StringValue{S: ref.Value}, nil
	case isa.BooleanRef:
		return BoolValue{B: ref.Value}, nil
	case isa.TypeRef:
		return TypeValue{T: ref.Type}, nil
	case isa.ObjectTypeRef:
		return TypeValue{T: ref.Object}, nil
	case isa.FunctionRef:
		fv := &FunctionValue{Name: ref.Name}
		for _, p := range ref.Partials {
			pv, err := v.load(p)
			if err != nil {
				return nil, err
			}
			fv = fv.Bind(pv)
		}
		return fv, nil
	case isa.StreamRef:
		return StreamValue{ID: ref.ID}, nil
	default:
		return nil, Errf(ExInvalidReferenceImplementation, "unsupported reference %T", r)
	}
}

// loadCallee resolves a call instruction's target to a callable value.
func (v *VM) loadCallee(in *isa.Instr) (*FunctionValue, error) {
	if in.FuncName != "" {
		return &FunctionValue{Name: in.FuncName}, nil
	}
	val, err := v.load(in.Callee)
	if err != nil {
		return nil, err
	}
	fv, ok := val.(*FunctionValue)
	if !ok {
		return nil, Errf(ExTypeError, "cannot call a value of type %s", val.Type())
	}
	return fv, nil
}
