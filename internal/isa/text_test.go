package isa

import (
	"testing"

	"github.com/swarmlang/swarm/internal/ast"
)

// sampleProgram covers one instruction of every family whose textual form
// the round-trip must preserve.
func sampleProgram() *Program {
	obj := &ast.Object{ID: ast.NextObjectID(), Name: "Point", Properties: []ast.Property{
		{Name: "x", Type: ast.Number},
	}}
	instrs := []*Instr{
		AssignValue(Loc(Local, "a"), NumberRef{Value: 5}),
		AssignValue(Loc(Shared, "count"), NumberRef{Value: 0}),
		AssignValue(Loc(Local, "s"), StringRef{Value: "hi \"there\"\n"}),
		AssignEval(Loc(Local, "b"), TagPlus, Loc(Local, "a"), Loc(Local, "a")),
		AssignEval(Loc(Local, "c"), TagNot, BooleanRef{Value: true}),
		AssignEval(Loc(Local, "d"), TagStringConcat, Loc(Local, "s"), StringRef{Value: "!"}),
		MapInit(Loc(Local, "m"), ast.Number),
		MapSet(Loc(Local, "m"), StringRef{Value: "k"}, NumberRef{Value: 1}),
		MapGet(Loc(Local, "g"), Loc(Local, "m"), StringRef{Value: "k"}),
		EnumInit(Loc(Local, "e"), ast.Number),
		EnumAppend(Loc(Local, "e"), NumberRef{Value: 10}),
		EnumGet(Loc(Local, "v"), Loc(Local, "e"), NumberRef{Value: 0}),
		EnumSet(Loc(Local, "e"), NumberRef{Value: 0}, NumberRef{Value: 11}),
		EnumConcat(Loc(Local, "e2"), Loc(Local, "e"), Loc(Local, "e")),
		EnumLength(Loc(Local, "n"), Loc(Local, "e")),
		BeginFunction("FUNC_1"),
		FunctionParam(Loc(Local, "p0"), 0),
		FunctionParam(Loc(Local, "p1"), 1),
		ScopeOf(Loc(Local, "t1")),
		Return1(Loc(Local, "p0")),
		Call0(Loc(Local, "r0"), "FUNC_1"),
		Call1(Loc(Local, "r1"), "FUNC_1", NumberRef{Value: 2}),
		CallValue1(Loc(Local, "r2"), Loc(Function, "f"), NumberRef{Value: 3}),
		Curry(Loc(Function, "t2"), FunctionRef{Name: "FUNC_1"}, NumberRef{Value: 4}),
		CallIf0(Loc(Local, "cond"), "IFBODY_1"),
		CallElse0(Loc(Local, "cond"), "SUBFUNC_2"),
		PushCall1(Loc(Local, "j1"), "FUNC_1", NumberRef{Value: 6}),
		PushCallValue0(Loc(Local, "j2"), Loc(Function, "f")),
		While("WHILECOND_OUTER_3", "WHILEBODY_4"),
		Enumerate(ast.Number, Loc(Local, "e"), "ENUM_5"),
		With(Loc(Local, "res"), "WITH_6"),
		EnterContext(Loc(Local, "ctx")),
		PopContext("CTX_1"),
		ResumeContext("CTX_1"),
		Drain(),
		RetMapGet(Loc(Local, "dr"), Loc(Shared, "__retmap"), Loc(Local, "j1")),
		Lock(Loc(Shared, "count")),
		Unlock(Loc(Shared, "count")),
		ObjInit(Loc(Local, "o"), obj),
		ObjSet(Loc(Local, "o"), "x", NumberRef{Value: 1}),
		ObjGet(Loc(Local, "px"), Loc(Local, "o"), "x"),
		ObjInstance(Loc(Local, "oi"), Loc(Local, "o")),
		OTypeInit(Loc(Local, "ot"), obj),
		OTypeProp(Loc(Local, "ot"), "x", ast.Number),
		OTypeFinalize(Loc(Local, "otf"), Loc(Local, "ot")),
		Return0(),
	}
	return NewProgram(instrs)
}

// TestTextRoundTrip: the textual ISA parses back to an instruction
// sequence that renders identically.
func TestTextRoundTrip(t *testing.T) {
	orig := sampleProgram()
	text := orig.String()

	parsed, err := ParseProgram(text)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if parsed.Len() != orig.Len() {
		t.Fatalf("parsed %d instructions, want %d", parsed.Len(), orig.Len())
	}
	if got := parsed.String(); got != text {
		t.Errorf("round-trip drift:\n--- original ---\n%s\n--- reparsed ---\n%s", text, got)
	}
}

func TestTextRoundTripPerLine(t *testing.T) {
	orig := sampleProgram()
	for i, in := range orig.Instrs {
		line := in.String()
		parsed, err := ParseProgram(line)
		if err != nil {
			t.Errorf("instr %d (%s): %v", i, line, err)
			continue
		}
		if got := parsed.Instrs[0].String(); got != line {
			t.Errorf("instr %d: %q reparsed as %q", i, line, got)
		}
	}
}

func TestParseProgramRejectsUnknownMnemonic(t *testing.T) {
	if _, err := ParseProgram("Frobnicate $l:x"); err == nil {
		t.Error("expected an error for an unknown mnemonic")
	}
}

func TestParseProgramRejectsMalformedLocation(t *testing.T) {
	if _, err := ParseProgram("AssignValue l:x 5"); err == nil {
		t.Error("expected an error for a malformed location")
	}
}

func TestCurriedFunctionRefRoundTrip(t *testing.T) {
	in := Curry(Loc(Function, "t9"),
		FunctionRef{Name: "FUNC_2", Partials: []Ref{NumberRef{Value: 1}, Loc(Local, "x")}},
		BooleanRef{Value: false})
	line := in.String()
	parsed, err := ParseProgram(line)
	if err != nil {
		t.Fatalf("ParseProgram(%q): %v", line, err)
	}
	if got := parsed.Instrs[0].String(); got != line {
		t.Errorf("reparsed %q as %q", line, got)
	}
}

func TestStripPositions(t *testing.T) {
	p := NewProgram([]*Instr{
		PositionAnnotation("m.swm", 1, 1),
		AssignValue(Loc(Local, "a"), NumberRef{Value: 1}),
		PositionAnnotation("m.swm", 2, 3),
		AssignValue(Loc(Local, "b"), NumberRef{Value: 2}),
	})
	stripped := p.StripPositions()
	if stripped.Len() != 2 {
		t.Fatalf("got %d instructions after strip, want 2", stripped.Len())
	}
	if pos, ok := stripped.Positions[1]; !ok || pos.Line != 2 || pos.Col != 3 {
		t.Errorf("Positions[1] = %+v, want line 2 col 3", pos)
	}
}
