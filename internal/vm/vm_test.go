package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/swarmlang/swarm/internal/cfg"
	"github.com/swarmlang/swarm/internal/isa"
	"github.com/swarmlang/swarm/internal/lexer"
	"github.com/swarmlang/swarm/internal/lower"
	"github.com/swarmlang/swarm/internal/parser"
	"github.com/swarmlang/swarm/internal/semantic"
	"github.com/swarmlang/swarm/internal/vm"
)

func compileProgram(t *testing.T, src string) *isa.Program {
	t.Helper()
	l := lexer.New("t.swm", src)
	p := parser.New(l, "t.swm", src)
	prog := p.ParseProgram()
	if p.Diagnostics().HasErrors() {
		t.Fatalf("parse errors: %v", p.Diagnostics().Err())
	}
	types, err := semantic.Analyze("t.swm", src, prog)
	if err != nil {
		t.Fatalf("analysis: %v", err)
	}
	lowered, err := lower.Lower(prog, types, false)
	if err != nil {
		t.Fatalf("lowering: %v", err)
	}
	return lowered
}

func runProgram(t *testing.T, prog *isa.Program) (string, error) {
	t.Helper()
	machine, err := vm.New(prog, vm.DefaultConfig())
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	var out, errOut bytes.Buffer
	machine.SetOutput(&out, &errOut)
	runErr := machine.Run()
	return out.String(), runErr
}

func runSource(t *testing.T, src string) string {
	t.Helper()
	out, err := runProgram(t, compileProgram(t, src))
	if err != nil {
		t.Fatalf("execution: %v", err)
	}
	return out
}

func TestCurriedCall(t *testing.T) {
	out := runSource(t, `
f = fn(a: number, b: number) -> number {
	return a + b;
};
log(numberToString(f(2)(3)));
`)
	if out != "5\n" {
		t.Errorf("output = %q, want %q", out, "5\n")
	}
}

func TestSharedCounterUnderDefer(t *testing.T) {
	out := runSource(t, `
shared count: number = 0;
bump = fn(n: number) -> number {
	count = count + n;
	return count;
};
a = defer bump(1);
b = defer bump(1);
drain();
log(numberToString(count));
`)
	if out != "2\n" {
		t.Errorf("output = %q, want %q", out, "2\n")
	}
}

func TestEnumerateWithIndex(t *testing.T) {
	out := runSource(t, `
enumerate [10, 20, 30] as v, i {
	log(numberToString(v + i));
}
`)
	if out != "10\n21\n32\n" {
		t.Errorf("output = %q, want %q", out, "10\n21\n32\n")
	}
}

func TestConstructorDispatchByArity(t *testing.T) {
	out := runSource(t, `
type T {
	x = 0;
	constructor() {
		x = 0;
	}
	constructor(n: number) {
		x = n;
	}
}
a = T();
b = T(7);
log(numberToString(a.x));
log(numberToString(b.x));
`)
	if out != "0\n7\n" {
		t.Errorf("output = %q, want %q", out, "0\n7\n")
	}
}

func TestBreakInWhile(t *testing.T) {
	out := runSource(t, `
i = 0;
while (i < 10) {
	if (i == 3) {
		break;
	}
	i = i + 1;
}
log(numberToString(i));
`)
	if out != "3\n" {
		t.Errorf("output = %q, want %q", out, "3\n")
	}
}

func TestContinueSkipsIteration(t *testing.T) {
	out := runSource(t, `
i = 0;
total = 0;
while (i < 5) {
	i = i + 1;
	if (i == 3) {
		continue;
	}
	total = total + i;
}
log(numberToString(total));
`)
	// 1+2+4+5
	if out != "12\n" {
		t.Errorf("output = %q, want %q", out, "12\n")
	}
}

func TestRecursionThroughDeclaredName(t *testing.T) {
	out := runSource(t, `
fact = fn(n: number) -> number {
	if (n <= 1) {
		return 1;
	}
	return n * fact(n - 1);
};
log(numberToString(fact(5)));
`)
	if out != "120\n" {
		t.Errorf("output = %q, want %q", out, "120\n")
	}
}

func TestClosureCapturesByValue(t *testing.T) {
	out := runSource(t, `
base = 10;
addBase = fn(n: number) -> number {
	return base + n;
};
base = 100;
log(numberToString(addBase(5)));
`)
	// the capture curried base=10 at the definition site
	if out != "15\n" {
		t.Errorf("output = %q, want %q", out, "15\n")
	}
}

func TestDeferredResultMaterializesOnRead(t *testing.T) {
	out := runSource(t, `
inc = fn(n: number) -> number {
	return n + 1;
};
x = defer inc(41);
log(numberToString(x));
`)
	if out != "42\n" {
		t.Errorf("output = %q, want %q", out, "42\n")
	}
}

func TestBoolToStringBranchesOnValue(t *testing.T) {
	out := runSource(t, `
log(boolToString(false));
log(boolToString(true));
`)
	if out != "false\ntrue\n" {
		t.Errorf("output = %q, want %q", out, "false\ntrue\n")
	}
}

func TestStringConcatenation(t *testing.T) {
	out := runSource(t, `
a = "foo";
b = a + "bar";
log(b);
`)
	if out != "foobar\n" {
		t.Errorf("output = %q, want %q", out, "foobar\n")
	}
}

func TestEnumerableAccessAndMutation(t *testing.T) {
	out := runSource(t, `
nums = [1, 2, 3];
nums[1] = 20;
log(numberToString(nums[1]));
`)
	if out != "20\n" {
		t.Errorf("output = %q, want %q", out, "20\n")
	}
}

func TestInheritedConstructorChain(t *testing.T) {
	out := runSource(t, `
type Animal {
	name = "";
	constructor(n: string) {
		name = n;
	}
}
type Dog(Animal) {
	breed = "";
	constructor(n: string, b: string) from Animal(n) {
		breed = b;
	}
}
d = Dog("rex", "lab");
log(d.name);
log(d.breed);
`)
	if out != "rex\nlab\n" {
		t.Errorf("output = %q, want %q", out, "rex\nlab\n")
	}
}

func TestDivisionByZeroRaises(t *testing.T) {
	_, err := runProgram(t, compileProgram(t, `
a = 1;
b = 0;
log(numberToString(a / b));
`))
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	var rt *vm.RuntimeError
	if !asRuntimeError(err, &rt) || rt.Code != vm.ExDivisionByZero {
		t.Errorf("error = %v, want DivisionByZero", err)
	}
}

func TestEnumIndexOutOfBoundsRaises(t *testing.T) {
	_, err := runProgram(t, compileProgram(t, `
nums = [1];
log(numberToString(nums[3]));
`))
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	var rt *vm.RuntimeError
	if !asRuntimeError(err, &rt) || rt.Code != vm.ExEnumIndexOutOfBounds {
		t.Errorf("error = %v, want EnumIndexOutOfBounds", err)
	}
}

func TestQueueErrorSurfacesAtDrain(t *testing.T) {
	_, err := runProgram(t, compileProgram(t, `
boom = fn(n: number) -> number {
	return n / 0;
};
x = defer boom(1);
drain();
`))
	if err == nil {
		t.Fatal("expected the job failure to surface at drain")
	}
	if !strings.Contains(err.Error(), "job") {
		t.Errorf("error %q does not name the failed job", err)
	}
}

// TestOptimizedProgramMatchesUnoptimizedOutput: the CFG reconstruct of
// the optimized stream executes to the same observable output as the
// original.
func TestOptimizedProgramMatchesUnoptimizedOutput(t *testing.T) {
	src := `
a = 2;
b = 3;
f = fn(x: number, y: number) -> number {
	return x * y;
};
i = 0;
while (i < 3) {
	log(numberToString(f(a, b) + i));
	i = i + 1;
}
`
	prog := compileProgram(t, src)
	plain, err := runProgram(t, prog)
	if err != nil {
		t.Fatalf("unoptimized run: %v", err)
	}

	graph, err := cfg.Build(compileProgram(t, src))
	if err != nil {
		t.Fatalf("cfg.Build: %v", err)
	}
	cfg.Optimize(graph, cfg.DefaultOptions())
	optimized, err := runProgram(t, graph.Reconstruct())
	if err != nil {
		t.Fatalf("optimized run: %v", err)
	}
	if plain != optimized {
		t.Errorf("optimized output %q differs from unoptimized %q", optimized, plain)
	}
}

// TestTypeDescriptorBacksRuntimePropertyCheck drives the OType family
// through a hand-written stream: the sealed descriptor, not the Object
// operand (which round-trips by name only in the wire forms), is what
// rejects a mis-typed ObjSet.
func TestTypeDescriptorBacksRuntimePropertyCheck(t *testing.T) {
	prog, err := isa.ParseProgram(`
OTypeInit $l:d t:T
OTypeProp $l:d x t:Number
OTypeFinalize $l:d $l:d
ObjInit $l:o t:T
ObjSet $l:o x 5
ObjGet $l:r $l:o x
ObjSet $l:o x "nope"
`)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	_, runErr := runProgram(t, prog)
	if runErr == nil {
		t.Fatal("expected the descriptor to reject a String for property x")
	}
	var rt *vm.RuntimeError
	if !asRuntimeError(runErr, &rt) || rt.Code != vm.ExInvalidArgumentType {
		t.Errorf("error = %v, want InvalidArgumentType", runErr)
	}
}

func TestObjGetUndeclaredPropertyNamesTheType(t *testing.T) {
	prog, err := isa.ParseProgram(`
OTypeInit $l:d t:T
OTypeProp $l:d x t:Number
OTypeFinalize $l:d $l:d
ObjInit $l:o t:T
ObjGet $l:r $l:o y
`)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	_, runErr := runProgram(t, prog)
	if runErr == nil || !strings.Contains(runErr.Error(), "no property") {
		t.Errorf("error = %v, want a no-property failure", runErr)
	}
}

func asRuntimeError(err error, target **vm.RuntimeError) bool {
	for err != nil {
		if rt, ok := err.(*vm.RuntimeError); ok {
			*target = rt
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
