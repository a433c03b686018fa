package semantic

import (
	"strings"
	"testing"

	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/lexer"
	"github.com/swarmlang/swarm/internal/parser"
)

func analyzeSource(t *testing.T, src string) (*TypeAnalyzer, error) {
	t.Helper()
	l := lexer.New("t.swm", src)
	p := parser.New(l, "t.swm", src)
	prog := p.ParseProgram()
	if p.Diagnostics().HasErrors() {
		t.Fatalf("parse errors: %v", p.Diagnostics().Err())
	}
	return Analyze("t.swm", src, prog)
}

func wantTypeError(t *testing.T, src, fragment string) {
	t.Helper()
	_, err := analyzeSource(t, src)
	if err == nil {
		t.Fatalf("expected analysis failure for:\n%s", src)
	}
	if !strings.Contains(err.Error(), fragment) {
		t.Errorf("error %q does not mention %q", err.Error(), fragment)
	}
}

// TestAssignabilityReflexive: assignability is reflexive over a
// representative type inventory.
func TestAssignabilityReflexive(t *testing.T) {
	obj := &ast.Object{ID: ast.NextObjectID(), Name: "T"}
	types := []ast.Type{
		ast.Number, ast.String, ast.Boolean, ast.TypeType, ast.Unit,
		ast.Void, ast.Opaque, ast.This,
		&ast.Enumerable{Inner: ast.Number},
		&ast.Map{Inner: ast.String},
		&ast.Resource{Yields: ast.Opaque},
		&ast.Lambda0{Returns: ast.Number},
		&ast.Lambda1{Param: ast.Number, Returns: &ast.Lambda1{Param: ast.String, Returns: ast.Boolean}},
		obj,
	}
	for _, typ := range types {
		if !ast.IsAssignableTo(typ, typ) {
			t.Errorf("IsAssignableTo(%s, %s) = false, want reflexive", typ, typ)
		}
	}
}

func TestLambdaVariance(t *testing.T) {
	parent := &ast.Object{ID: ast.NextObjectID(), Name: "Animal"}
	child := &ast.Object{ID: ast.NextObjectID(), Name: "Dog", Parent: parent}

	// covariant on returns
	retNarrow := &ast.Lambda0{Returns: child}
	retWide := &ast.Lambda0{Returns: parent}
	if !ast.IsAssignableTo(retNarrow, retWide) {
		t.Error("Lambda0 returns must be covariant")
	}
	if ast.IsAssignableTo(retWide, retNarrow) {
		t.Error("Lambda0 returns must not be contravariant")
	}

	// contravariant on params
	takesParent := &ast.Lambda1{Param: parent, Returns: ast.Unit}
	takesChild := &ast.Lambda1{Param: child, Returns: ast.Unit}
	if !ast.IsAssignableTo(takesParent, takesChild) {
		t.Error("Lambda1 params must be contravariant")
	}
	if ast.IsAssignableTo(takesChild, takesParent) {
		t.Error("Lambda1 params must not be covariant")
	}
}

func TestConstructorDispatchNoMatchIsError(t *testing.T) {
	wantTypeError(t, `
type T {
	x = 0;
	constructor() {
		x = 0;
	}
	constructor(n: number) {
		x = n;
	}
}
a = T(true);
`, "no constructor")
}

func TestReturnOutsideFunctionIsSyntaxError(t *testing.T) {
	wantTypeError(t, `return 1;`, "return outside a function")
}

func TestBreakOutsideLoopIsSyntaxError(t *testing.T) {
	wantTypeError(t, `break;`, "break outside a loop")
}

func TestAddOperandMismatch(t *testing.T) {
	wantTypeError(t, `x = 1 + "a";`, "+")
}

func TestStringAddSetsConcatenationFlag(t *testing.T) {
	src := `x = "a" + "b";`
	l := lexer.New("t.swm", src)
	p := parser.New(l, "t.swm", src)
	prog := p.ParseProgram()
	if _, err := Analyze("t.swm", src, prog); err != nil {
		t.Fatalf("analysis: %v", err)
	}
	decl := prog.Statements[0].(*ast.VariableDecl)
	bin := decl.Value.(*ast.BinaryExpr)
	if !bin.Concatenation {
		t.Error("string + string must set the Concatenation flag")
	}
}

func TestEnumerationLiteralElementMismatch(t *testing.T) {
	wantTypeError(t, `xs = [1, "two"];`, "enumeration element type")
}

func TestTooManyArguments(t *testing.T) {
	wantTypeError(t, `
f = fn(a: number) -> number {
	return a;
};
r = f(1, 2);
`, "arguments")
}

func TestPartialApplicationTypesAsSuffix(t *testing.T) {
	src := `
f = fn(a: number, b: number) -> number {
	return a + b;
};
g = f(2);
`
	l := lexer.New("t.swm", src)
	p := parser.New(l, "t.swm", src)
	prog := p.ParseProgram()
	types, err := Analyze("t.swm", src, prog)
	if err != nil {
		t.Fatalf("analysis: %v", err)
	}
	decl := prog.Statements[1].(*ast.VariableDecl)
	got, ok := types.TypeOf(decl.Value)
	if !ok {
		t.Fatal("no type recorded for the partial application")
	}
	l1, ok := got.(*ast.Lambda1)
	if !ok || !l1.Param.Equals(ast.Number) || !l1.Returns.Equals(ast.Number) {
		t.Errorf("partial application type = %v, want (Number) -> Number", got)
	}
}

func TestReassignmentTypeMismatch(t *testing.T) {
	wantTypeError(t, `
x: number = 1;
x = "nope";
`, "cannot assign")
}

func TestEnumerateOverNonEnumerable(t *testing.T) {
	wantTypeError(t, `
enumerate 5 as v {
	log("x");
}
`, "enumerate source")
}

func TestFreeVariablesComputed(t *testing.T) {
	src := `
base = 10;
f = fn(n: number) -> number {
	return base + n;
};
`
	l := lexer.New("t.swm", src)
	p := parser.New(l, "t.swm", src)
	prog := p.ParseProgram()
	if _, err := Analyze("t.swm", src, prog); err != nil {
		t.Fatalf("analysis: %v", err)
	}
	decl := prog.Statements[1].(*ast.VariableDecl)
	fe := decl.Value.(*ast.FunctionExpr)
	if len(fe.FreeVars) != 1 || fe.FreeVars[0].Name != "base" {
		t.Errorf("FreeVars = %v, want [base]", fe.FreeVars)
	}
}

func TestConstructorMustAssignUninitializedProperties(t *testing.T) {
	wantTypeError(t, `
type T {
	x: number;
	constructor(b: bool) {
		if (b) {
			x = 1;
		}
	}
}
`, "definitely assign")
}

func TestConstructorAssignsOnAllPathsAccepted(t *testing.T) {
	_, err := analyzeSource(t, `
type T {
	x: number;
	constructor(n: number) {
		x = n;
	}
}
a = T(3);
`)
	if err != nil {
		t.Fatalf("expected valid constructor, got: %v", err)
	}
}
