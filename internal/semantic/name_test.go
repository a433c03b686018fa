package semantic_test

import (
	"testing"

	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/lexer"
	"github.com/swarmlang/swarm/internal/parser"
	"github.com/swarmlang/swarm/internal/semantic"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	l := lexer.New("t.swm", src)
	p := parser.New(l, "t.swm", src)
	prog := p.ParseProgram()
	if p.Diagnostics().HasErrors() {
		t.Fatalf("parse errors: %v", p.Diagnostics().Err())
	}
	return prog
}

func TestNameAnalyzerResolvesVariableReference(t *testing.T) {
	prog := parseProgram(t, `x = 1; y = x + 1;`)
	na := semantic.NewAnalyzer("t.swm", "x = 1; y = x + 1;")
	if err := na.AnalyzeProgram(prog); err != nil {
		t.Fatalf("unexpected name errors: %v", err)
	}

	yDecl := prog.Statements[1].(*ast.VariableDecl)
	bin := yDecl.Value.(*ast.BinaryExpr)
	id := bin.Left.(*ast.Identifier)
	if id.Symbol == nil {
		t.Fatalf("x reference was not resolved to a symbol")
	}
	if id.Symbol.Name != "x" {
		t.Errorf("resolved symbol name = %q, want x", id.Symbol.Name)
	}
}

func TestNameAnalyzerFreeIdentifier(t *testing.T) {
	prog := parseProgram(t, `y = x + 1;`)
	na := semantic.NewAnalyzer("t.swm", "y = x + 1;")
	err := na.AnalyzeProgram(prog)
	if err == nil {
		t.Fatal("expected a free-identifier error, got nil")
	}
}

func TestNameAnalyzerRedeclaration(t *testing.T) {
	// an annotated declaration always declares; a second one for the same
	// name clashes (a bare `x = 2;` would instead reassign)
	src := `x: number = 1; x: number = 2;`
	prog := parseProgram(t, src)
	na := semantic.NewAnalyzer("t.swm", src)
	err := na.AnalyzeProgram(prog)
	if err == nil {
		t.Fatal("expected a redeclaration error, got nil")
	}
}

func TestNameAnalyzerBareAssignmentReassigns(t *testing.T) {
	src := `x = 1; x = 2;`
	prog := parseProgram(t, src)
	na := semantic.NewAnalyzer("t.swm", src)
	if err := na.AnalyzeProgram(prog); err != nil {
		t.Fatalf("reassignment must not be a redeclaration: %v", err)
	}
	second := prog.Statements[1].(*ast.VariableDecl)
	if !second.Reassign {
		t.Error("second `x = 2;` should be marked Reassign")
	}
	first := prog.Statements[0].(*ast.VariableDecl)
	if first.Id.Symbol != second.Id.Symbol {
		t.Error("reassignment must resolve to the originally declared symbol")
	}
}

func TestNameAnalyzerDuplicateMapKey(t *testing.T) {
	src := `m = map { a: 1, a: 2 };`
	prog := parseProgram(t, src)
	na := semantic.NewAnalyzer("t.swm", src)
	err := na.AnalyzeProgram(prog)
	if err == nil {
		t.Fatal("expected a duplicate-map-key error, got nil")
	}
}

func TestNameAnalyzerSharedInTypeBodyForbidden(t *testing.T) {
	src := `
type T {
	shared x = 0;
}
`
	prog := parseProgram(t, src)
	na := semantic.NewAnalyzer("t.swm", src)
	err := na.AnalyzeProgram(prog)
	if err == nil {
		t.Fatal("expected a shared-in-type-body error, got nil")
	}
}

func TestNameAnalyzerRecursiveFunctionLiteral(t *testing.T) {
	src := `
fact = fn(n: number) -> number {
	if (n == 0) {
		return 1;
	}
	return n * fact(n - 1);
};
`
	prog := parseProgram(t, src)
	na := semantic.NewAnalyzer("t.swm", src)
	if err := na.AnalyzeProgram(prog); err != nil {
		t.Fatalf("unexpected name errors: %v", err)
	}
}

func TestNameAnalyzerEnumerateInjectsLocals(t *testing.T) {
	src := `enumerate ([1, 2, 3]) as v, i {
	y = v + i;
}`
	prog := parseProgram(t, src)
	na := semantic.NewAnalyzer("t.swm", src)
	if err := na.AnalyzeProgram(prog); err != nil {
		t.Fatalf("unexpected name errors: %v", err)
	}
}

func TestNameAnalyzerObjectSelfReference(t *testing.T) {
	src := `
type Node {
	next = Node();
	constructor() {}
}
`
	prog := parseProgram(t, src)
	na := semantic.NewAnalyzer("t.swm", src)
	if err := na.AnalyzeProgram(prog); err != nil {
		t.Fatalf("unexpected name errors: %v", err)
	}
	tb := prog.Statements[0].(*ast.TypeBody)
	if tb.Type == nil {
		t.Fatal("TypeBody.Type was not finalized")
	}
	nextType, ok := tb.Type.PropertyType("next")
	if !ok {
		t.Fatal("property next was not recorded")
	}
	if !ast.IsPrimitive(nextType) || nextType.Kind() != ast.KindThis {
		t.Errorf("next property type = %s, want This (self-reference rewrite)", nextType)
	}
}
