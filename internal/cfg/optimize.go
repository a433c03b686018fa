package cfg

import (
	"math"

	"github.com/swarmlang/swarm/internal/isa"
)

// Options selects the optimizer passes. FoldConstants is the additional
// literal-folding pass; it is off
// by default so the substitution-only pipeline stays the observable
// baseline.
type Options struct {
	ConstProp        bool
	RemoveSelfAssign bool
	FoldConstants    bool
}

// DefaultOptions enables the standard passes.
func DefaultOptions() Options {
	return Options{ConstProp: true, RemoveSelfAssign: true}
}

// Optimize iterates the enabled passes over the graph until a fixpoint.
// The iteration cap is a safety net, never reached by monotone passes.
func Optimize(g *Graph, opts Options) {
	for i := 0; i < 32; i++ {
		changed := false
		if opts.RemoveSelfAssign {
			changed = removeSelfAssigns(g) || changed
		}
		if opts.ConstProp {
			changed = propagateConstants(g) || changed
		}
		if opts.FoldConstants {
			changed = foldConstants(g) || changed
		}
		if !changed {
			return
		}
	}
}

// removeSelfAssigns deletes AssignValue(x, x) no-ops. They
// only exist to expose a result location under the expression protocol;
// disabling this pass preserves statement atomicity under shared
// semantics.
func removeSelfAssigns(g *Graph) bool {
	changed := false
	for _, b := range g.blocks {
		kept := b.Instrs[:0]
		for _, in := range b.Instrs {
			if in.Tag == isa.TagAssignValue {
				if src, ok := in.Src.(isa.Location); ok && src.Equal(in.Dest) {
					changed = true
					continue
				}
			}
			kept = append(kept, in)
		}
		b.Instrs = kept
	}
	return changed
}

// tierStack is the scoped constant map, looked up innermost-out.
// propagateConstants keeps a single tier per region and never pushes a
// tier for a call.
type tierStack []map[string]isa.Ref

func (t *tierStack) reset() { *t = tierStack{make(map[string]isa.Ref)} }

func (t tierStack) lookup(key string) (isa.Ref, bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if r, ok := t[i][key]; ok {
			return r, true
		}
	}
	return nil, false
}

func (t tierStack) record(key string, r isa.Ref) { t[len(t)-1][key] = r }

func (t tierStack) invalidate(key string) {
	for _, tier := range t {
		delete(tier, key)
	}
}

// propagateConstants runs the tiered constant-propagation pass over each
// region's linear block order. Constants recorded by AssignValue from a
// literal survive plain calls (callees shadow their own writes via
// ScopeOf, and shared destinations are never recorded); any conditional
// or body-invoking transfer (CallIf0/CallElse0/While/Enumerate/With)
// resets the tiers conservatively, the documented FallEdge decision.
func propagateConstants(g *Graph) bool {
	changed := false
	g.eachRegion(func(rg *regionGraph) {
		var tiers tierStack
		tiers.reset()
		for _, b := range rg.blocks {
			for _, in := range b.Instrs {
				switch in.Tag {
				case isa.TagFunctionParam, isa.TagScopeOf, isa.TagLock, isa.TagUnlock:
					continue
				}

				if substituteConstants(in, tiers) {
					changed = true
				}

				if in.HasDest() {
					tiers.invalidate(in.Dest.String())
				}

				switch in.Tag {
				case isa.TagAssignValue:
					if isConstRef(in.Src) && in.Dest.Affinity != isa.Shared {
						tiers.record(in.Dest.String(), in.Src)
					}
				case isa.TagCallIf0, isa.TagCallElse0, isa.TagWhile, isa.TagEnumerate, isa.TagWith:
					tiers.reset()
				}
			}
		}
	})
	return changed
}

func isConstRef(r isa.Ref) bool {
	switch r.(type) {
	case isa.NumberRef, isa.StringRef, isa.BooleanRef:
		return true
	default:
		return false
	}
}

// substituteConstants rewrites every readable operand that is a location
// with a recorded constant. Destinations, lock/scope targets, and call
// targets are never rewritten.
func substituteConstants(in *isa.Instr, tiers tierStack) bool {
	changed := false
	sub := func(r isa.Ref) isa.Ref {
		loc, ok := r.(isa.Location)
		if !ok {
			return r
		}
		if c, ok := tiers.lookup(loc.String()); ok {
			changed = true
			return c
		}
		return r
	}
	if in.Src != nil {
		in.Src = sub(in.Src)
	}
	for i, a := range in.Args {
		if a != nil {
			in.Args[i] = sub(a)
		}
	}
	if in.Recv != nil {
		in.Recv = sub(in.Recv)
	}
	if in.Key != nil {
		in.Key = sub(in.Key)
	}
	if in.Value != nil {
		in.Value = sub(in.Value)
	}
	if in.Source != nil {
		in.Source = sub(in.Source)
	}
	if in.Cond != nil {
		in.Cond = sub(in.Cond)
	}
	if in.JobID != nil {
		in.JobID = sub(in.JobID)
	}
	return changed
}

// foldConstants rewrites an AssignEval whose operands are all literals
// into a plain AssignValue of the computed result. Division and modulus
// by a literal zero are left in place so the runtime error surfaces where
// the program would have raised it.
func foldConstants(g *Graph) bool {
	changed := false
	for _, b := range g.blocks {
		for _, in := range b.Instrs {
			if in.Tag != isa.TagAssignEval {
				continue
			}
			folded, ok := foldEval(in.EvalOp, in.Args)
			if !ok {
				continue
			}
			in.Tag = isa.TagAssignValue
			in.Src = folded
			in.EvalOp = 0
			in.Args = nil
			changed = true
		}
	}
	return changed
}

func foldEval(op isa.Tag, args []isa.Ref) (isa.Ref, bool) {
	if isa.IsBinaryOp(op) && len(args) != 2 {
		return nil, false
	}
	if isa.IsUnaryOp(op) && len(args) != 1 {
		return nil, false
	}
	num := func(i int) (float64, bool) {
		n, ok := args[i].(isa.NumberRef)
		return n.Value, ok
	}
	boolean := func(i int) (bool, bool) {
		b, ok := args[i].(isa.BooleanRef)
		return b.Value, ok
	}

	switch op {
	case isa.TagNot:
		if len(args) == 1 {
			if b, ok := boolean(0); ok {
				return isa.BooleanRef{Value: !b}, true
			}
		}
	case isa.TagNegative:
		if len(args) == 1 {
			if n, ok := num(0); ok {
				return isa.NumberRef{Value: -n}, true
			}
		}
	case isa.TagAnd, isa.TagOr:
		a, okA := boolean(0)
		b, okB := boolean(1)
		if okA && okB {
			if op == isa.TagAnd {
				return isa.BooleanRef{Value: a && b}, true
			}
			return isa.BooleanRef{Value: a || b}, true
		}
	case isa.TagStringConcat:
		a, okA := args[0].(isa.StringRef)
		b, okB := args[1].(isa.StringRef)
		if okA && okB {
			return isa.StringRef{Value: a.Value + b.Value}, true
		}
	case isa.TagPlus, isa.TagMinus, isa.TagTimes, isa.TagPower:
		a, okA := num(0)
		b, okB := num(1)
		if okA && okB {
			switch op {
			case isa.TagPlus:
				return isa.NumberRef{Value: a + b}, true
			case isa.TagMinus:
				return isa.NumberRef{Value: a - b}, true
			case isa.TagTimes:
				return isa.NumberRef{Value: a * b}, true
			case isa.TagPower:
				return isa.NumberRef{Value: math.Pow(a, b)}, true
			}
		}
	case isa.TagDivide, isa.TagMod:
		a, okA := num(0)
		b, okB := num(1)
		if okA && okB && b != 0 {
			if op == isa.TagDivide {
				return isa.NumberRef{Value: a / b}, true
			}
			return isa.NumberRef{Value: math.Mod(a, b)}, true
		}
	case isa.TagLessThan, isa.TagLessThanOrEquals, isa.TagGreaterThan, isa.TagGreaterThanOrEquals:
		a, okA := num(0)
		b, okB := num(1)
		if okA && okB {
			switch op {
			case isa.TagLessThan:
				return isa.BooleanRef{Value: a < b}, true
			case isa.TagLessThanOrEquals:
				return isa.BooleanRef{Value: a <= b}, true
			case isa.TagGreaterThan:
				return isa.BooleanRef{Value: a > b}, true
			case isa.TagGreaterThanOrEquals:
				return isa.BooleanRef{Value: a >= b}, true
			}
		}
	case isa.TagEquals, isa.TagNotEquals:
		if eq, ok := literalEquals(args[0], args[1]); ok {
			if op == isa.TagNotEquals {
				eq = !eq
			}
			return isa.BooleanRef{Value: eq}, true
		}
	}
	return nil, false
}

func literalEquals(a, b isa.Ref) (bool, bool) {
	switch av := a.(type) {
	case isa.NumberRef:
		bv, ok := b.(isa.NumberRef)
		if !ok {
			return false, false
		}
		return av.Value == bv.Value, true
	case isa.StringRef:
		bv, ok := b.(isa.StringRef)
		if !ok {
			return false, false
		}
		return av.Value == bv.Value, true
	case isa.BooleanRef:
		bv, ok := b.(isa.BooleanRef)
		if !ok {
			return false, false
		}
		return av.Value == bv.Value, true
	default:
		return false, false
	}
}
