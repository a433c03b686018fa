package lower

import (
	"strings"
	"testing"

	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/isa"
	"github.com/swarmlang/swarm/internal/lexer"
	"github.com/swarmlang/swarm/internal/parser"
	"github.com/swarmlang/swarm/internal/semantic"
)

func lowerSource(t *testing.T, src string) *isa.Program {
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
	lowered, err := Lower(prog, types, false)
	if err != nil {
		t.Fatalf("lowering: %v", err)
	}
	return lowered
}

func countTags(p *isa.Program, tags ...isa.Tag) map[isa.Tag]int {
	counts := make(map[isa.Tag]int)
	want := make(map[isa.Tag]bool, len(tags))
	for _, tg := range tags {
		want[tg] = true
	}
	for _, in := range p.Instrs {
		if want[in.Tag] {
			counts[in.Tag]++
		}
	}
	return counts
}

func TestEmptyProgramLowersToBareMainRegion(t *testing.T) {
	p := lowerSource(t, "")
	if p.Len() != 2 {
		t.Fatalf("got %d instructions, want 2:\n%s", p.Len(), p)
	}
	if p.Instrs[0].Tag != isa.TagBeginFunction || p.Instrs[0].FuncName != "main" {
		t.Errorf("instr 0 = %s, want BeginFunction main", p.Instrs[0])
	}
	if p.Instrs[1].Tag != isa.TagReturn0 {
		t.Errorf("instr 1 = %s, want Return0", p.Instrs[1])
	}
}

// TestRegionReturnBalance: every BeginFunction is matched
// by exactly one top-level Return before the next region opens.
func TestRegionReturnBalance(t *testing.T) {
	sources := map[string]string{
		"curried call": `
f = fn(a: number, b: number) -> number {
	return a + b;
};
log(numberToString(f(2)(3)));
`,
		"while with break": `
i = 0;
while (i < 10) {
	if (i == 3) {
		break;
	}
	i = i + 1;
}
`,
		"constructor dispatch": `
type T {
	x = 0;
	constructor() {
		x = 0;
	}
	constructor(n: number) {
		x = n;
	}
}
a = T(7);
`,
		"early return under if": `
f = fn(a: number) -> number {
	if (a > 0) {
		return a;
	}
	return 0 - a;
};
log(numberToString(f(3)));
`,
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			p := lowerSource(t, src)
			begins := 0
			returns := 0
			open := false
			for _, in := range p.Instrs {
				switch in.Tag {
				case isa.TagBeginFunction:
					if open {
						t.Fatalf("BeginFunction %s opened inside an open region:\n%s", in.FuncName, p)
					}
					open = true
					begins++
				case isa.TagReturn0, isa.TagReturn1:
					if !open {
						t.Fatalf("Return outside any region:\n%s", p)
					}
					open = false
					returns++
				}
			}
			if begins != returns {
				t.Errorf("%d BeginFunction vs %d Return:\n%s", begins, returns, p)
			}
		})
	}
}

// TestLockUnlockBalance: the multiset of Lock targets
// equals the multiset of Unlock targets.
func TestLockUnlockBalance(t *testing.T) {
	src := `
shared count: number = 0;
count = count + count;
count = count + 1;
`
	p := lowerSource(t, src)
	locks := make(map[string]int)
	for _, in := range p.Instrs {
		switch in.Tag {
		case isa.TagLock:
			locks[in.Loc.String()]++
		case isa.TagUnlock:
			locks[in.Loc.String()]--
		}
	}
	for loc, n := range locks {
		if n != 0 {
			t.Errorf("lock imbalance %+d on %s:\n%s", n, loc, p)
		}
	}

	counts := countTags(p, isa.TagLock)
	if counts[isa.TagLock] == 0 {
		t.Errorf("expected Lock instructions for a contended shared location:\n%s", p)
	}
}

// TestScopeOfPrecedesRegionWrites: inside a function
// region, ScopeOf(l) precedes the first write to every region-declared
// location.
func TestScopeOfPrecedesRegionWrites(t *testing.T) {
	src := `
f = fn(a: number) -> number {
	b = a + 1;
	return b * 2;
};
log(numberToString(f(1)));
`
	p := lowerSource(t, src)

	inRegion := false
	params := map[string]bool{}
	scoped := map[string]bool{}
	for _, in := range p.Instrs {
		switch in.Tag {
		case isa.TagBeginFunction:
			inRegion = in.FuncName != "main"
			params = map[string]bool{}
			scoped = map[string]bool{}
		case isa.TagFunctionParam:
			params[in.Dest.String()] = true
		case isa.TagScopeOf:
			scoped[in.Loc.String()] = true
		default:
			if !inRegion || !in.HasDest() || in.Dest.Affinity == isa.Shared {
				continue
			}
			key := in.Dest.String()
			if !params[key] && !scoped[key] {
				t.Errorf("write to %s in a function region without a preceding ScopeOf:\n%s", key, p)
			}
		}
	}
}

func TestCurriedCallShape(t *testing.T) {
	src := `
f = fn(a: number, b: number) -> number {
	return a + b;
};
r = f(2, 3);
`
	p := lowerSource(t, src)
	counts := countTags(p, isa.TagCurry, isa.TagCall1)
	if counts[isa.TagCurry] != 1 {
		t.Errorf("2-ary call should emit exactly 1 Curry, got %d:\n%s", counts[isa.TagCurry], p)
	}
	if counts[isa.TagCall1] != 1 {
		t.Errorf("2-ary call should emit exactly 1 terminal Call1, got %d:\n%s", counts[isa.TagCall1], p)
	}
}

func TestPartialApplicationEmitsNoCall(t *testing.T) {
	src := `
f = fn(a: number, b: number) -> number {
	return a + b;
};
g = f(2);
r = g(3);
`
	p := lowerSource(t, src)
	counts := countTags(p, isa.TagCurry, isa.TagCall1, isa.TagCall0)
	if counts[isa.TagCurry] != 1 {
		t.Errorf("partial application should emit exactly 1 Curry, got %d:\n%s", counts[isa.TagCurry], p)
	}
	if counts[isa.TagCall1] != 1 {
		t.Errorf("saturating call should emit exactly 1 Call1, got %d:\n%s", counts[isa.TagCall1], p)
	}
	if counts[isa.TagCall0] != 0 {
		t.Errorf("no Call0 expected, got %d:\n%s", counts[isa.TagCall0], p)
	}
}

func TestDeferLowersToContextPushAndLazyJoin(t *testing.T) {
	src := `
f = fn(a: number) -> number {
	return a + 1;
};
x = defer f(1);
log(numberToString(x));
`
	p := lowerSource(t, src)

	var tags []isa.Tag
	for _, in := range p.Instrs {
		switch in.Tag {
		case isa.TagEnterContext, isa.TagPushCall1, isa.TagPopContext,
			isa.TagResumeContext, isa.TagDrain, isa.TagRetMapGet:
			tags = append(tags, in.Tag)
		}
	}
	want := []isa.Tag{
		isa.TagEnterContext, isa.TagPushCall1, isa.TagPopContext,
		isa.TagResumeContext, isa.TagDrain, isa.TagRetMapGet, isa.TagPopContext,
	}
	if len(tags) != len(want) {
		t.Fatalf("deferred-call tag sequence = %v, want %v\n%s", tags, want, p)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("deferred-call tag sequence = %v, want %v\n%s", tags, want, p)
		}
	}
}

func TestDeferWithoutReadEmitsNoJoin(t *testing.T) {
	src := `
f = fn(a: number) -> number {
	return a + 1;
};
x = defer f(1);
`
	p := lowerSource(t, src)
	counts := countTags(p, isa.TagResumeContext, isa.TagDrain, isa.TagRetMapGet)
	if counts[isa.TagResumeContext] != 0 || counts[isa.TagDrain] != 0 || counts[isa.TagRetMapGet] != 0 {
		t.Errorf("unread deferred call must not force a join:\n%s", p)
	}
}

func TestVoidCallBindsNoResultAnnotation(t *testing.T) {
	p := lowerSource(t, `log("hi");`)
	found := false
	for _, in := range p.Instrs {
		if in.Tag == isa.TagCall1 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a Call1 for the log call:\n%s", p)
	}
}

func TestWhileEmitsCondAndBodyRegions(t *testing.T) {
	src := `
i = 0;
while (i < 3) {
	i = i + 1;
}
`
	p := lowerSource(t, src)
	var whileIn *isa.Instr
	regions := map[string]bool{}
	for _, in := range p.Instrs {
		if in.Tag == isa.TagWhile {
			whileIn = in
		}
		if in.Tag == isa.TagBeginFunction {
			regions[in.FuncName] = true
		}
	}
	if whileIn == nil {
		t.Fatalf("no While instruction:\n%s", p)
	}
	cond := whileIn.Callee.(isa.FunctionRef).Name
	if !strings.HasPrefix(cond, "WHILECOND_OUTER_") {
		t.Errorf("cond region %q, want WHILECOND_OUTER_*", cond)
	}
	if !regions[cond] || !regions[whileIn.FuncName] {
		t.Errorf("cond/body regions %q/%q not emitted:\n%s", cond, whileIn.FuncName, p)
	}
}

func TestEnumerateBodyTakesIndexParam(t *testing.T) {
	src := `
enumerate [10, 20, 30] as v, i {
	log(numberToString(v + i));
}
`
	p := lowerSource(t, src)
	var enum *isa.Instr
	for _, in := range p.Instrs {
		if in.Tag == isa.TagEnumerate {
			enum = in
		}
	}
	if enum == nil {
		t.Fatalf("no Enumerate instruction:\n%s", p)
	}
	if !enum.ElemType.Equals(ast.Number) {
		t.Errorf("ElemType = %v, want Number", enum.ElemType)
	}
	params := 0
	inBody := false
	for _, in := range p.Instrs {
		switch in.Tag {
		case isa.TagBeginFunction:
			inBody = in.FuncName == enum.FuncName
		case isa.TagFunctionParam:
			if inBody {
				params++
			}
		}
	}
	if params != 2 {
		t.Errorf("enumerate body has %d params, want 2 (value, index):\n%s", params, p)
	}
}

func TestDeadCodeAfterReturnIsTrimmed(t *testing.T) {
	src := `
f = fn(a: number) -> number {
	return a;
	log("unreachable");
};
r = f(1);
`
	p := lowerSource(t, src)
	if strings.Contains(p.String(), "unreachable") {
		t.Errorf("statement after return was not trimmed:\n%s", p)
	}
}
