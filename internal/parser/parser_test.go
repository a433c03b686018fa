package parser

import (
	"testing"

	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/lexer"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	l := lexer.New("t.swm", src)
	p := New(l, "t.swm", src)
	prog := p.ParseProgram()
	if p.Diagnostics().HasErrors() {
		t.Fatalf("parse errors: %v", p.Diagnostics().Err())
	}
	return prog
}

func TestParseVariableDeclInferred(t *testing.T) {
	prog := parseProgram(t, `x = 1 + 2;`)
	if len(prog.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Statements))
	}
	decl, ok := prog.Statements[0].(*ast.VariableDecl)
	if !ok {
		t.Fatalf("statement is %T, want *ast.VariableDecl", prog.Statements[0])
	}
	if decl.Id.Name != "x" {
		t.Errorf("Id.Name = %q, want x", decl.Id.Name)
	}
	bin, ok := decl.Value.(*ast.BinaryExpr)
	if !ok || bin.Op != ast.OpAdd {
		t.Errorf("Value = %#v, want BinaryExpr(Add)", decl.Value)
	}
}

func TestParseSharedTypedDecl(t *testing.T) {
	prog := parseProgram(t, `shared count: number = 0;`)
	decl, ok := prog.Statements[0].(*ast.VariableDecl)
	if !ok {
		t.Fatalf("statement is %T, want *ast.VariableDecl", prog.Statements[0])
	}
	if !decl.Shared {
		t.Errorf("Shared = false, want true")
	}
	if !decl.Id.Type.Equals(ast.Number) {
		t.Errorf("Id.Type = %v, want Number", decl.Id.Type)
	}
}

func TestParseUninitializedDecl(t *testing.T) {
	prog := parseProgram(t, `total: number;`)
	decl, ok := prog.Statements[0].(*ast.UninitializedVariableDecl)
	if !ok {
		t.Fatalf("statement is %T, want *ast.UninitializedVariableDecl", prog.Statements[0])
	}
	if !decl.DeclaredType.Equals(ast.Number) {
		t.Errorf("DeclaredType = %v, want Number", decl.DeclaredType)
	}
}

func TestParseIfWhile(t *testing.T) {
	prog := parseProgram(t, `
if (x <= 3) {
	y = 1;
}
while (x != 0) {
	x = x - 1;
}
`)
	if len(prog.Statements) != 2 {
		t.Fatalf("got %d statements, want 2", len(prog.Statements))
	}
	ifs, ok := prog.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("statement 0 is %T, want *ast.IfStatement", prog.Statements[0])
	}
	if len(ifs.Then) != 1 {
		t.Errorf("If.Then has %d statements, want 1", len(ifs.Then))
	}
	ws, ok := prog.Statements[1].(*ast.WhileStatement)
	if !ok {
		t.Fatalf("statement 1 is %T, want *ast.WhileStatement", prog.Statements[1])
	}
	if len(ws.Body) != 1 {
		t.Errorf("While.Body has %d statements, want 1", len(ws.Body))
	}
}

func TestParseEnumerateWithIndex(t *testing.T) {
	prog := parseProgram(t, `
enumerate [10, 20, 30] as v, i {
	log(v);
}
`)
	en, ok := prog.Statements[0].(*ast.EnumerateStatement)
	if !ok {
		t.Fatalf("statement is %T, want *ast.EnumerateStatement", prog.Statements[0])
	}
	if en.ValueId.Name != "v" || en.IndexId == nil || en.IndexId.Name != "i" {
		t.Errorf("ValueId/IndexId = %v/%v, want v/i", en.ValueId, en.IndexId)
	}
	if _, ok := en.Target.(*ast.EnumerationLiteral); !ok {
		t.Errorf("Target = %T, want *ast.EnumerationLiteral", en.Target)
	}
}

func TestParseWith(t *testing.T) {
	prog := parseProgram(t, `
with openFile("a.txt") as f {
	return f;
}
`)
	ws, ok := prog.Statements[0].(*ast.WithStatement)
	if !ok {
		t.Fatalf("statement is %T, want *ast.WithStatement", prog.Statements[0])
	}
	if ws.Id.Name != "f" {
		t.Errorf("Id.Name = %q, want f", ws.Id.Name)
	}
}

func TestParseFunctionExprAndCall(t *testing.T) {
	prog := parseProgram(t, `
add = fn(a: number, b: number) -> number {
	return a + b;
};
result = add(1, 2);
`)
	if len(prog.Statements) != 2 {
		t.Fatalf("got %d statements, want 2", len(prog.Statements))
	}
	decl, ok := prog.Statements[0].(*ast.VariableDecl)
	if !ok {
		t.Fatalf("statement 0 is %T, want *ast.VariableDecl", prog.Statements[0])
	}
	fn, ok := decl.Value.(*ast.FunctionExpr)
	if !ok || len(fn.Params) != 2 {
		t.Fatalf("Value = %#v, want 2-param FunctionExpr", decl.Value)
	}

	decl2 := prog.Statements[1].(*ast.VariableDecl)
	call, ok := decl2.Value.(*ast.CallExpr)
	if !ok || len(call.Args) != 2 {
		t.Fatalf("Value = %#v, want 2-arg CallExpr", decl2.Value)
	}
}

func TestParseDeferCall(t *testing.T) {
	prog := parseProgram(t, `x = defer compute(1);`)
	decl := prog.Statements[0].(*ast.VariableDecl)
	if _, ok := decl.Value.(*ast.DeferCallExpr); !ok {
		t.Fatalf("Value = %#v, want *ast.DeferCallExpr", decl.Value)
	}
}

func TestParseDotAccessAssignment(t *testing.T) {
	prog := parseProgram(t, `obj.field = 1;`)
	stmt, ok := prog.Statements[0].(*ast.ExpressionStatement)
	if !ok {
		t.Fatalf("statement is %T, want *ast.ExpressionStatement", prog.Statements[0])
	}
	assign, ok := stmt.Expr.(*ast.AssignExpr)
	if !ok {
		t.Fatalf("Expr = %T, want *ast.AssignExpr", stmt.Expr)
	}
	if _, ok := assign.Dest.(*ast.DotAccess); !ok {
		t.Errorf("Dest = %T, want *ast.DotAccess", assign.Dest)
	}
}

func TestParseEnumerableAccessAssignment(t *testing.T) {
	prog := parseProgram(t, `items[0] = 1;`)
	stmt := prog.Statements[0].(*ast.ExpressionStatement)
	assign := stmt.Expr.(*ast.AssignExpr)
	if _, ok := assign.Dest.(*ast.EnumerableAccess); !ok {
		t.Errorf("Dest = %T, want *ast.EnumerableAccess", assign.Dest)
	}
}

func TestParseTypeBodyWithConstructorAndParent(t *testing.T) {
	prog := parseProgram(t, `
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
`)
	if len(prog.Statements) != 2 {
		t.Fatalf("got %d statements, want 2", len(prog.Statements))
	}
	animal := prog.Statements[0].(*ast.TypeBody)
	if animal.Name != "Animal" || animal.Parent != nil {
		t.Errorf("Animal = %+v", animal)
	}
	if len(animal.Properties) != 1 || len(animal.Constructors) != 1 {
		t.Fatalf("Animal body not parsed fully: %+v", animal)
	}

	dog := prog.Statements[1].(*ast.TypeBody)
	if dog.Name != "Dog" || dog.Parent == nil || dog.Parent.Name != "Animal" {
		t.Fatalf("Dog parent = %+v, want Animal", dog.Parent)
	}
	if len(dog.Constructors) != 1 || dog.Constructors[0].ParentName == nil || dog.Constructors[0].ParentName.Name != "Animal" {
		t.Fatalf("Dog.Constructors[0].ParentName = %+v, want Animal", dog.Constructors)
	}
	if len(dog.Constructors[0].ParentArgs) != 1 {
		t.Errorf("Dog.Constructors[0].ParentArgs has %d args, want 1", len(dog.Constructors[0].ParentArgs))
	}
}

func TestParseIncludeAndUse(t *testing.T) {
	prog := parseProgram(t, `
include "lib/util.swm";
use io;
x = 1;
`)
	if len(prog.Includes) != 1 || prog.Includes[0].Path != "lib/util.swm" {
		t.Fatalf("Includes = %+v", prog.Includes)
	}
	if len(prog.Uses) != 1 || prog.Uses[0].Name != "io" {
		t.Fatalf("Uses = %+v", prog.Uses)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Statements))
	}
}

func TestParseEnumerableAndMapTypeAnnotations(t *testing.T) {
	prog := parseProgram(t, `nums: enumerable of number;`)
	decl := prog.Statements[0].(*ast.UninitializedVariableDecl)
	en, ok := decl.DeclaredType.(*ast.Enumerable)
	if !ok || !en.Inner.Equals(ast.Number) {
		t.Fatalf("DeclaredType = %v, want Enumerable<Number>", decl.DeclaredType)
	}

	prog = parseProgram(t, `lookup: map of string;`)
	decl = prog.Statements[0].(*ast.UninitializedVariableDecl)
	m, ok := decl.DeclaredType.(*ast.Map)
	if !ok || !m.Inner.Equals(ast.String) {
		t.Fatalf("DeclaredType = %v, want Map<String>", decl.DeclaredType)
	}
}

func TestParseCurriedLambdaTypeAnnotation(t *testing.T) {
	prog := parseProgram(t, `adder: number -> number -> number;`)
	decl := prog.Statements[0].(*ast.UninitializedVariableDecl)
	outer, ok := decl.DeclaredType.(*ast.Lambda1)
	if !ok {
		t.Fatalf("DeclaredType = %T, want *ast.Lambda1", decl.DeclaredType)
	}
	if !outer.Param.Equals(ast.Number) {
		t.Errorf("outer.Param = %v, want Number", outer.Param)
	}
	inner, ok := outer.Returns.(*ast.Lambda1)
	if !ok || !inner.Param.Equals(ast.Number) || !inner.Returns.Equals(ast.Number) {
		t.Fatalf("outer.Returns = %#v, want Lambda1(Number, Number)", outer.Returns)
	}
}
