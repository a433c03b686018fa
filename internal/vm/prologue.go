package vm

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/swarmlang/swarm/internal/ast"
)

// builtinFunc implements one prologue function against the VM. args holds
// the curried partials followed by the call argument, fully expanded.
type builtinFunc func(v *VM, args []Value) (Value, error)

// prologueBuiltins registers the stdlib surface the compiler's analyzers
// type against (internal/semantic.PrologueSignatures); the two tables must
// stay in sync name for name.
func prologueBuiltins() map[string]builtinFunc {
	return map[string]builtinFunc{
		"log": func(v *VM, args []Value) (Value, error) {
			s, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			fmt.Fprintln(v.out, s)
			return UnitValue{}, nil
		},
		"logError": func(v *VM, args []Value) (Value, error) {
			s, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			fmt.Fprintln(v.errOut, s)
			return UnitValue{}, nil
		},
		"numberToString": func(_ *VM, args []Value) (Value, error) {
			n, err := argNumber(args, 0)
			if err != nil {
				return nil, err
			}
			return StringValue{S: NumberToString(n)}, nil
		},
		"boolToString": func(_ *VM, args []Value) (Value, error) {
			b, ok := arg(args, 0).(BoolValue)
			if !ok {
				return nil, Errf(ExInvalidArgumentType, "boolToString expects a boolean")
			}
			return StringValue{S: BoolToString(b.B)}, nil
		},
		"range": func(_ *VM, args []Value) (Value, error) {
			start, err := argNumber(args, 0)
			if err != nil {
				return nil, err
			}
			end, err := argNumber(args, 1)
			if err != nil {
				return nil, err
			}
			step, err := argNumber(args, 2)
			if err != nil {
				return nil, err
			}
			if step <= 0 {
				return nil, Errf(ExInvalidArgumentType, "range step must be positive, got %s", NumberToString(step))
			}
			out := &EnumValue{Inner: ast.Number}
			for i := start; i <= end; i += step {
				out.Elems = append(out.Elems, NumberValue{N: i})
			}
			return out, nil
		},
		"random": func(_ *VM, _ []Value) (Value, error) {
			return NumberValue{N: rand.Float64()}, nil
		},
		"min": numeric2(math.Min),
		"max": numeric2(math.Max),
		"floor": numeric1(math.Floor),
		"ceiling": numeric1(math.Ceil),
		"sin": numeric1(math.Sin),
		"cos": numeric1(math.Cos),
		"tan": numeric1(math.Tan),
		"count": func(_ *VM, args []Value) (Value, error) {
			e, ok := arg(args, 0).(*EnumValue)
			if !ok {
				return nil, Errf(ExInvalidArgumentType, "count expects an enumerable")
			}
			return NumberValue{N: float64(len(e.Elems))}, nil
		},
		"time": func(_ *VM, _ []Value) (Value, error) {
			return NumberValue{N: float64(time.Now().UnixNano()) / 1e9}, nil
		},
		"tag": func(_ *VM, args []Value) (Value, error) {
			key, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			value, err := argString(args, 1)
			if err != nil {
				return nil, err
			}
			return &ResourceValue{
				Name:       "tag:" + key,
				Yield:      OpaqueValue{Inner: StringValue{S: key + "=" + value}},
				Replicable: true,
			}, nil
		},
		"fileContents": func(_ *VM, args []Value) (Value, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			data, rerr := os.ReadFile(path)
			if rerr != nil {
				return nil, Errf(ExInvalidOrMissingFilePath, "cannot read %q: %v", path, rerr)
			}
			return &ResourceValue{
				Name:  "file:" + path,
				Yield: OpaqueValue{Inner: StringValue{S: string(data)}},
			}, nil
		},
		"drain": func(v *VM, _ []Value) (Value, error) {
			if err := v.queue.Drain(v.currentCtx()); err != nil {
				return nil, err
			}
			return UnitValue{}, nil
		},
	}
}

func arg(args []Value, i int) Value {
	if i >= len(args) {
		return nil
	}
	return args[i]
}

func argNumber(args []Value, i int) (float64, error) {
	n, ok := arg(args, i).(NumberValue)
	if !ok {
		return 0, Errf(ExInvalidArgumentType, "argument %d must be a number", i)
	}
	return n.N, nil
}

func argString(args []Value, i int) (string, error) {
	s, ok := arg(args, i).(StringValue)
	if !ok {
		return "", Errf(ExInvalidArgumentType, "argument %d must be a string", i)
	}
	return s.S, nil
}

func numeric1(f func(float64) float64) builtinFunc {
	return func(_ *VM, args []Value) (Value, error) {
		n, err := argNumber(args, 0)
		if err != nil {
			return nil, err
		}
		return NumberValue{N: f(n)}, nil
	}
}

func numeric2(f func(float64, float64) float64) builtinFunc {
	return func(_ *VM, args []Value) (Value, error) {
		a, err := argNumber(args, 0)
		if err != nil {
			return nil, err
		}
		b, err := argNumber(args, 1)
		if err != nil {
			return nil, err
		}
		return NumberValue{N: f(a, b)}, nil
	}
}
