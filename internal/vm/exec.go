package vm

import (
	"errors"
	"fmt"
	"math"

	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/diag"
	"github.com/swarmlang/swarm/internal/isa"
)

// runRange executes the instructions in [start, end]. A Return0 ends the
// range with no value; a Return1 ends it with its operand. Unexecuted
// nested regions are jumped over via the function index's skip pointers.
func (v *VM) runRange(start, end int) (Value, error) {
	for pc := start; pc <= end && pc < v.prog.Len(); pc++ {
		in := v.prog.Instrs[pc]
		switch in.Tag {
		case isa.TagBeginFunction:
			fi, ok := v.funcs[in.FuncName]
			if !ok {
				return nil, Errf(ExTypeError, "unindexed region %q at pc %d", in.FuncName, pc)
			}
			pc = fi.End
		case isa.TagReturn0:
			return nil, nil
		case isa.TagReturn1:
			return v.load(in.Src)
		default:
			if err := v.step(in); err != nil {
				return nil, v.annotate(pc, err)
			}
		}
	}
	return nil, nil
}

// annotate attaches the pc's source position (when the program was
// compiled with debug annotations) and the current call-stack trace to a
// runtime error; an error already traced deeper down passes through.
func (v *VM) annotate(pc int, err error) error {
	pos, hasPos := v.prog.Positions[pc]
	if hasPos {
		err = fmt.Errorf("%s:%d:%d: %w", pos.File, pos.Line, pos.Col, err)
	}
	var traced *TracedError
	if errors.As(err, &traced) || len(v.stack) == 0 {
		return err
	}
	trace := make(diag.StackTrace, len(v.stack))
	copy(trace, v.stack)
	if hasPos {
		trace[len(trace)-1].Line = pos.Line
		trace[len(trace)-1].Col = pos.Col
	}
	return &TracedError{Err: err, Trace: trace}
}

// step dispatches one non-control instruction; control instructions
// (BeginFunction, Return0/1) are handled by runRange directly.
func (v *VM) step(in *isa.Instr) error {
	switch in.Tag {
	case isa.TagAssignValue:
		val, err := v.load(in.Src)
		if err != nil {
			return err
		}
		return v.store(in.Dest, val)

	case isa.TagAssignEval:
		val, err := v.eval(in.EvalOp, in.Args)
		if err != nil {
			return err
		}
		return v.store(in.Dest, val)

	case isa.TagMapInit:
		v.storageFor(in.Dest).Typify(v.resolve(in.Dest), &ast.Map{Inner: in.ElemType})
		return v.store(in.Dest, NewMapValue(in.ElemType))

	case isa.TagMapGet:
		m, err := v.loadMap(in.Recv)
		if err != nil {
			return err
		}
		key, err := v.loadString(in.Key, ExInvalidMapKey)
		if err != nil {
			return err
		}
		val, ok := m.Get(key)
		if !ok {
			return Errf(ExInvalidMapKey, "map has no key %q", key)
		}
		return v.store(in.Dest, val)

	case isa.TagMapSet:
		m, err := v.loadMap(in.Recv)
		if err != nil {
			return err
		}
		key, err := v.loadString(in.Key, ExInvalidMapKey)
		if err != nil {
			return err
		}
		val, err := v.load(in.Value)
		if err != nil {
			return err
		}
		if !assignableValue(val, m.Inner) {
			return Errf(ExInvalidArgumentType, "map value expects %s, got %s", m.Inner, val.Type())
		}
		m.Set(key, val)
		return nil

	case isa.TagEnumInit:
		return v.store(in.Dest, &EnumValue{Inner: in.ElemType})

	case isa.TagEnumAppend:
		e, err := v.loadEnum(in.Recv)
		if err != nil {
			return err
		}
		val, err := v.load(in.Value)
		if err != nil {
			return err
		}
		if !assignableValue(val, e.Inner) {
			return Errf(ExInvalidValueTypeForEnum, "enumerable of %s cannot hold %s", e.Inner, val.Type())
		}
		e.Elems = append(e.Elems, val)
		return nil

	case isa.TagEnumGet:
		e, err := v.loadEnum(in.Recv)
		if err != nil {
			return err
		}
		idx, err := v.loadIndex(in.Key, len(e.Elems))
		if err != nil {
			return err
		}
		return v.store(in.Dest, e.Elems[idx])

	case isa.TagEnumSet:
		e, err := v.loadEnum(in.Recv)
		if err != nil {
			return err
		}
		idx, err := v.loadIndex(in.Key, len(e.Elems))
		if err != nil {
			return err
		}
		val, err := v.load(in.Value)
		if err != nil {
			return err
		}
		if !assignableValue(val, e.Inner) {
			return Errf(ExInvalidValueTypeForEnum, "enumerable of %s cannot hold %s", e.Inner, val.Type())
		}
		e.Elems[idx] = val
		return nil

	case isa.TagEnumConcat:
		a, err := v.loadEnum(in.Recv)
		if err != nil {
			return err
		}
		b, err := v.loadEnum(in.Value)
		if err != nil {
			return err
		}
		out := &EnumValue{Inner: a.Inner, Elems: make([]Value, 0, len(a.Elems)+len(b.Elems))}
		out.Elems = append(out.Elems, a.Elems...)
		out.Elems = append(out.Elems, b.Elems...)
		return v.store(in.Dest, out)

	case isa.TagEnumLength:
		e, err := v.loadEnum(in.Recv)
		if err != nil {
			return err
		}
		return v.store(in.Dest, NumberValue{N: float64(len(e.Elems))})

	case isa.TagFunctionParam:
		return Errf(ExFnParamOutsideCall, "FunctionParam executed outside a call")

	case isa.TagCall0, isa.TagCall1:
		fn, err := v.loadCallee(in)
		if err != nil {
			return err
		}
		var args []Value
		if in.Tag == isa.TagCall1 {
			arg, err := v.load(in.Args[0])
			if err != nil {
				return err
			}
			args = []Value{arg}
		}
		result, err := v.CallFunction(fn, args)
		if err != nil {
			return err
		}
		if in.HasDest() {
			if result == nil {
				result = UnitValue{}
			}
			return v.store(in.Dest, result)
		}
		return nil

	case isa.TagCurry:
		val, err := v.load(in.Callee)
		if err != nil {
			return err
		}
		fn, ok := val.(*FunctionValue)
		if !ok {
			return Errf(ExTypeError, "cannot curry a value of type %s", val.Type())
		}
		bound, err := v.load(in.Value)
		if err != nil {
			return err
		}
		return v.store(in.Dest, fn.Bind(bound))

	case isa.TagCallIf0, isa.TagCallElse0:
		cond, err := v.loadBool(in.Cond)
		if err != nil {
			return err
		}
		want := in.Tag == isa.TagCallIf0
		if cond == want {
			_, err = v.callNamed(in.FuncName, nil)
			return err
		}
		return nil

	case isa.TagWhile:
		condName := in.Callee.(isa.FunctionRef).Name
		for {
			c, err := v.callNamed(condName, nil)
			if err != nil {
				return err
			}
			cb, ok := c.(BoolValue)
			if !ok {
				return Errf(ExWhileCallbackTypeInvalid, "while condition %s did not produce a boolean", condName)
			}
			if !cb.B {
				return nil
			}
			keep, err := v.callNamed(in.FuncName, nil)
			if err != nil {
				return err
			}
			kb, ok := keep.(BoolValue)
			if !ok {
				return Errf(ExWhileCallbackTypeInvalid, "while body %s did not produce a continue flag", in.FuncName)
			}
			if !kb.B {
				return nil
			}
		}

	case isa.TagEnumerate:
		return v.stepEnumerate(in)

	case isa.TagWith:
		src, err := v.load(in.Source)
		if err != nil {
			return err
		}
		res, ok := src.(*ResourceValue)
		if !ok {
			return Errf(ExTypeError, "with source is %s, not a resource", src.Type())
		}
		_, err = v.callNamed(in.FuncName, []Value{res.Yield})
		return err

	case isa.TagEnterContext:
		id := v.queue.NewContext()
		v.ctxStack = append(v.ctxStack, id)
		if in.HasDest() {
			return v.store(in.Dest, ContextValue{ID: id})
		}
		return nil

	case isa.TagPopContext:
		if len(v.ctxStack) == 0 {
			return Errf(ExResumeOutsideExHandler, "PopContext with no active context")
		}
		v.ctxLabels[in.Ctx] = v.ctxStack[len(v.ctxStack)-1]
		v.ctxStack = v.ctxStack[:len(v.ctxStack)-1]
		return nil

	case isa.TagResumeContext:
		id, ok := v.ctxLabels[in.Ctx]
		if !ok {
			return Errf(ExResumeOutsideExHandler, "ResumeContext of unknown context %q", in.Ctx)
		}
		v.ctxStack = append(v.ctxStack, id)
		return nil

	case isa.TagDrain:
		return v.queue.Drain(v.currentCtx())

	case isa.TagRetMapGet:
		jobVal, err := v.load(in.JobID)
		if err != nil {
			return err
		}
		jobID, ok := jobVal.(StringValue)
		if !ok {
			return Errf(ExStreamNotOpen, "deferred job handle is %s, not a job id", jobVal.Type())
		}
		var result Value
		v.shared.Update(in.RetMap.Name, func(cur Value, ok bool) Value {
			if m, isMap := cur.(*MapValue); ok && isMap {
				if r, found := m.Get(jobID.S); found {
					result = r
				}
				return m
			}
			if cur == nil {
				return NewMapValue(ast.Opaque)
			}
			return cur
		})
		if result == nil {
			return Errf(ExStreamEmpty, "no result published for job %s", jobID.S)
		}
		return v.store(in.Dest, result)

	case isa.TagPushCall0, isa.TagPushCall1:
		fn, err := v.loadCallee(in)
		if err != nil {
			return err
		}
		var args []Value
		if in.Tag == isa.TagPushCall1 {
			arg, err := v.load(in.Args[0])
			if err != nil {
				return err
			}
			args = []Value{arg}
		}
		id := v.queue.Push(v.currentCtx(), fn, args, v.cloneForJob())
		if in.HasDest() {
			return v.store(in.Dest, StringValue{S: id})
		}
		return nil

	case isa.TagLock:
		if in.Loc.Affinity != isa.Shared {
			return nil
		}
		reentrant, err := v.shared.AcquireLockRetry(in.Loc.Name, v.scopeChain(), v.cfg.LockMaxRetries, v.cfg.QueueSleep)
		if err != nil {
			return err
		}
		if reentrant {
			fmt.Fprintf(v.errOut, "warning: re-acquired lock on %s already held by this scope chain\n", in.Loc)
		}
		return nil

	case isa.TagUnlock:
		if in.Loc.Affinity == isa.Shared {
			v.shared.ReleaseLock(in.Loc.Name)
		}
		return nil

	case isa.TagScopeOf:
		v.scope.Shadow(in.Loc)
		return nil

	case isa.TagObjInit:
		return v.store(in.Dest, NewObjectValue(in.ObjType))

	case isa.TagObjSet:
		obj, err := v.loadObject(in.Obj)
		if err != nil {
			return err
		}
		val, err := v.load(in.Value)
		if err != nil {
			return err
		}
		if t, ok := v.propType(obj, in.Prop); ok && !assignableValue(val, t) {
			return Errf(ExInvalidArgumentType, "property %s.%s expects %s, got %s", obj.Object.Name, in.Prop, t, val.Type())
		}
		return obj.SetProp(in.Prop, val)

	case isa.TagObjGet:
		obj, err := v.loadObject(in.Obj)
		if err != nil {
			return err
		}
		val, ok := obj.GetProp(in.Prop)
		if !ok {
			if _, declared := v.propType(obj, in.Prop); !declared {
				return Errf(ExTypeError, "type %s has no property %q", obj.Object.Name, in.Prop)
			}
			return Errf(ExTypeError, "property %s.%s read before assignment", obj.Object.Name, in.Prop)
		}
		return v.store(in.Dest, val)

	case isa.TagObjInstance:
		obj, err := v.loadObject(in.Obj)
		if err != nil {
			return err
		}
		return v.store(in.Dest, obj.Finalize())

	case isa.TagOTypeInit:
		return v.store(in.Dest, NewObjectTypeValue(in.ObjType.Name))

	case isa.TagOTypeProp:
		tv, err := v.loadDescriptor(in.Loc)
		if err != nil {
			return err
		}
		return tv.DeclareProp(in.Prop, in.ElemType)

	case isa.TagOTypeFinalize:
		tv, err := v.loadDescriptor(in.Loc)
		if err != nil {
			return err
		}
		if tv.Sealed() {
			return Errf(ExTypeError, "descriptor of %s finalized twice", tv.Name)
		}
		tv.sealed = true
		v.otypes[tv.Name] = tv
		return v.store(in.Dest, tv)

	case isa.TagPositionAnnotation:
		return nil

	default:
		return Errf(ExInvalidReferenceImplementation, "unsupported instruction %s", in.Tag)
	}
}

func (v *VM) stepEnumerate(in *isa.Instr) error {
	src, err := v.load(in.Source)
	if err != nil {
		return err
	}
	var elems []Value
	switch s := src.(type) {
	case *EnumValue:
		elems = s.Elems
	case *MapValue:
		for _, k := range s.Keys() {
			val, _ := s.Get(k)
			elems = append(elems, val)
		}
	default:
		return Errf(ExTypeError, "enumerate source is %s, not enumerable", src.Type())
	}

	fi, ok := v.funcs[in.FuncName]
	if !ok {
		return Errf(ExEnumerateCallbackTypeInvalid, "enumerate body %q is not a function region", in.FuncName)
	}
	withIndex := len(fi.Params) > 1

	for i, elem := range elems {
		if in.ElemType != nil && !assignableValue(elem, in.ElemType) {
			return Errf(ExInvalidArgumentType, "enumerate element %d is %s, expected %s", i, elem.Type(), in.ElemType)
		}
		args := []Value{elem}
		if withIndex {
			args = append(args, NumberValue{N: float64(i)})
		}
		keep, err := v.callNamed(in.FuncName, args)
		if err != nil {
			return err
		}
		kb, ok := keep.(BoolValue)
		if !ok {
			return Errf(ExEnumerateCallbackTypeInvalid, "enumerate body %s did not produce a continue flag", in.FuncName)
		}
		if !kb.B {
			return nil
		}
	}
	return nil
}

// scopeChain collects the current scope chain's frame ids, nearest first,
// for reentrancy detection on lock acquisition.
func (v *VM) scopeChain() []int64 {
	var ids []int64
	for f := v.scope; f != nil; f = f.Parent {
		ids = append(ids, f.ID)
	}
	return ids
}

// ---- operand loading helpers ----

func (v *VM) loadBool(r isa.Ref) (bool, error) {
	val, err := v.load(r)
	if err != nil {
		return false, err
	}
	b, ok := val.(BoolValue)
	if !ok {
		return false, Errf(ExTypeError, "expected a boolean, got %s", val.Type())
	}
	return b.B, nil
}

func (v *VM) loadNumber(r isa.Ref) (float64, error) {
	val, err := v.load(r)
	if err != nil {
		return 0, err
	}
	n, ok := val.(NumberValue)
	if !ok {
		return 0, Errf(ExTypeError, "expected a number, got %s", val.Type())
	}
	return n.N, nil
}

func (v *VM) loadString(r isa.Ref, code RuntimeExCode) (string, error) {
	val, err := v.load(r)
	if err != nil {
		return "", err
	}
	s, ok := val.(StringValue)
	if !ok {
		return "", Errf(code, "expected a string, got %s", val.Type())
	}
	return s.S, nil
}

func (v *VM) loadMap(r isa.Ref) (*MapValue, error) {
	val, err := v.load(r)
	if err != nil {
		return nil, err
	}
	m, ok := val.(*MapValue)
	if !ok {
		return nil, Errf(ExTypeError, "expected a map, got %s", val.Type())
	}
	return m, nil
}

func (v *VM) loadEnum(r isa.Ref) (*EnumValue, error) {
	val, err := v.load(r)
	if err != nil {
		return nil, err
	}
	e, ok := val.(*EnumValue)
	if !ok {
		return nil, Errf(ExTypeError, "expected an enumerable, got %s", val.Type())
	}
	return e, nil
}

func (v *VM) loadObject(r isa.Ref) (*ObjectValue, error) {
	val, err := v.load(r)
	if err != nil {
		return nil, err
	}
	o, ok := val.(*ObjectValue)
	if !ok {
		return nil, Errf(ExTypeError, "expected an object instance, got %s", val.Type())
	}
	return o, nil
}

func (v *VM) loadDescriptor(l isa.Location) (*ObjectTypeValue, error) {
	val, ok := v.storageFor(l).Load(v.resolve(l))
	if !ok {
		return nil, Errf(ExTypeError, "no type descriptor at %s", l)
	}
	tv, ok := val.(*ObjectTypeValue)
	if !ok {
		return nil, Errf(ExTypeError, "%s holds %s, not a type descriptor", l, val.Type())
	}
	return tv, nil
}

func (v *VM) loadIndex(r isa.Ref, length int) (int, error) {
	n, err := v.loadNumber(r)
	if err != nil {
		return 0, err
	}
	idx := int(n)
	if idx < 0 || idx >= length {
		return 0, Errf(ExEnumIndexOutOfBounds, "index %d out of bounds for length %d", idx, length)
	}
	return idx, nil
}

// eval executes an AssignEval payload: the arithmetic/logic/comparison
// family nested inside it.
func (v *VM) eval(op isa.Tag, args []isa.Ref) (Value, error) {
	want := 2
	if isa.IsUnaryOp(op) {
		want = 1
	}
	if len(args) < want {
		return nil, Errf(ExInvalidAssignEval, "%s expects %d operand(s), got %d", op, want, len(args))
	}
	switch op {
	case isa.TagNot:
		b, err := v.loadBool(args[0])
		if err != nil {
			return nil, err
		}
		return BoolValue{B: !b}, nil
	case isa.TagNegative:
		n, err := v.loadNumber(args[0])
		if err != nil {
			return nil, err
		}
		return NumberValue{N: -n}, nil
	case isa.TagAnd, isa.TagOr:
		a, err := v.loadBool(args[0])
		if err != nil {
			return nil, err
		}
		b, err := v.loadBool(args[1])
		if err != nil {
			return nil, err
		}
		if op == isa.TagAnd {
			return BoolValue{B: a && b}, nil
		}
		return BoolValue{B: a || b}, nil
	case isa.TagEquals, isa.TagNotEquals:
		a, err := v.load(args[0])
		if err != nil {
			return nil, err
		}
		b, err := v.load(args[1])
		if err != nil {
			return nil, err
		}
		eq := valueEquals(a, b)
		if op == isa.TagNotEquals {
			eq = !eq
		}
		return BoolValue{B: eq}, nil
	case isa.TagStringConcat:
		a, err := v.loadString(args[0], ExInvalidAssignEval)
		if err != nil {
			return nil, err
		}
		b, err := v.loadString(args[1], ExInvalidAssignEval)
		if err != nil {
			return nil, err
		}
		return StringValue{S: a + b}, nil
	case isa.TagPlus, isa.TagMinus, isa.TagTimes, isa.TagDivide, isa.TagMod, isa.TagPower,
		isa.TagLessThan, isa.TagLessThanOrEquals, isa.TagGreaterThan, isa.TagGreaterThanOrEquals:
		a, err := v.loadNumber(args[0])
		if err != nil {
			return nil, err
		}
		b, err := v.loadNumber(args[1])
		if err != nil {
			return nil, err
		}
		return numericOp(op, a, b)
	default:
		return nil, Errf(ExInvalidAssignEval, "unsupported AssignEval operation %s", op)
	}
}

func numericOp(op isa.Tag, a, b float64) (Value, error) {
	switch op {
	case isa.TagPlus:
		return NumberValue{N: a + b}, nil
	case isa.TagMinus:
		return NumberValue{N: a - b}, nil
	case isa.TagTimes:
		return NumberValue{N: a * b}, nil
	case isa.TagDivide:
		if b == 0 {
			return nil, Errf(ExDivisionByZero, "division by zero")
		}
		return NumberValue{N: a / b}, nil
	case isa.TagMod:
		if b == 0 {
			return nil, Errf(ExDivisionByZero, "modulus by zero")
		}
		return NumberValue{N: math.Mod(a, b)}, nil
	case isa.TagPower:
		return NumberValue{N: math.Pow(a, b)}, nil
	case isa.TagLessThan:
		return BoolValue{B: a < b}, nil
	case isa.TagLessThanOrEquals:
		return BoolValue{B: a <= b}, nil
	case isa.TagGreaterThan:
		return BoolValue{B: a > b}, nil
	case isa.TagGreaterThanOrEquals:
		return BoolValue{B: a >= b}, nil
	default:
		return nil, Errf(ExInvalidAssignEval, "unsupported numeric operation %s", op)
	}
}
