package cfg

import (
	"strings"
	"testing"

	"github.com/swarmlang/swarm/internal/isa"
)

func mustParse(t *testing.T, text string) *isa.Program {
	t.Helper()
	p, err := isa.ParseProgram(text)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	return p
}

func mustBuild(t *testing.T, p *isa.Program) *Graph {
	t.Helper()
	g, err := Build(p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

// TestConstantPropagation is the canonical substitution example,
// idempotent under a second pass.
func TestConstantPropagation(t *testing.T) {
	prog := mustParse(t, `
AssignValue $l:a 5
AssignEval $l:b Plus($l:a, $l:a)
`)
	g := mustBuild(t, prog)
	Optimize(g, Options{ConstProp: true})

	got := strings.TrimSpace(g.Reconstruct().String())
	want := strings.TrimSpace(`
AssignValue $l:a 5
AssignEval $l:b Plus(5, 5)
`)
	if got != want {
		t.Errorf("optimized program:\n%s\nwant:\n%s", got, want)
	}

	// a second pass is a no-op
	Optimize(g, Options{ConstProp: true})
	if second := strings.TrimSpace(g.Reconstruct().String()); second != want {
		t.Errorf("second pass changed the program:\n%s", second)
	}
}

func TestConstantPropagationSkipsSharedDest(t *testing.T) {
	prog := mustParse(t, `
AssignValue $s:count 5
AssignEval $l:b Plus($s:count, $s:count)
`)
	g := mustBuild(t, prog)
	Optimize(g, Options{ConstProp: true})

	got := strings.TrimSpace(g.Reconstruct().String())
	if !strings.Contains(got, "Plus($s:count, $s:count)") {
		t.Errorf("shared location was propagated:\n%s", got)
	}
}

func TestConstantPropagationResetsAcrossConditionalCall(t *testing.T) {
	prog := mustParse(t, `
BeginFunction $f:IFBODY_1
AssignValue $l:a 9
Return0
AssignValue $l:a 5
AssignValue $l:c true
CallIf0 $l:c $f:IFBODY_1
AssignEval $l:b Plus($l:a, $l:a)
`)
	g := mustBuild(t, prog)
	Optimize(g, Options{ConstProp: true})

	got := g.Reconstruct().String()
	if !strings.Contains(got, "Plus($l:a, $l:a)") {
		t.Errorf("constant survived a FallEdge, want conservative reset:\n%s", got)
	}
}

// TestRemoveSelfAssigns: AssignValue(x, x)
// no-ops disappear, nothing else does.
func TestRemoveSelfAssigns(t *testing.T) {
	prog := mustParse(t, `
AssignValue $l:a 5
AssignValue $l:a $l:a
AssignValue $l:b $l:a
`)
	g := mustBuild(t, prog)
	Optimize(g, Options{RemoveSelfAssign: true})

	got := strings.TrimSpace(g.Reconstruct().String())
	want := strings.TrimSpace(`
AssignValue $l:a 5
AssignValue $l:b $l:a
`)
	if got != want {
		t.Errorf("optimized program:\n%s\nwant:\n%s", got, want)
	}
}

func TestFoldConstants(t *testing.T) {
	prog := mustParse(t, `
AssignEval $l:a Plus(2, 3)
AssignEval $l:b StringConcat("foo", "bar")
AssignEval $l:c Divide(1, 0)
`)
	g := mustBuild(t, prog)
	Optimize(g, Options{FoldConstants: true})

	got := g.Reconstruct().String()
	if !strings.Contains(got, "AssignValue $l:a 5") {
		t.Errorf("Plus(2, 3) not folded:\n%s", got)
	}
	if !strings.Contains(got, `AssignValue $l:b "foobar"`) {
		t.Errorf("StringConcat not folded:\n%s", got)
	}
	if !strings.Contains(got, "Divide(1, 0)") {
		t.Errorf("division by literal zero must stay unfolded:\n%s", got)
	}
}

// TestReconstructIsIdentityWithoutOptimization: rebuilding the linear
// stream from an unoptimized graph reproduces
// the instruction sequence exactly.
func TestReconstructIsIdentityWithoutOptimization(t *testing.T) {
	text := `
BeginFunction $f:main
ScopeOf $l:t1
AssignValue $l:t1 1
Call0 $l:t2 $f:FUNC_1
Return0
BeginFunction $f:FUNC_1
FunctionParam $l:p0 0
Return1 $l:p0
`
	prog := mustParse(t, text)
	g := mustBuild(t, prog)
	got := strings.TrimSpace(g.Reconstruct().String())
	want := strings.TrimSpace(prog.String())
	if got != want {
		t.Errorf("reconstruct drift:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestBuildEdges(t *testing.T) {
	prog := mustParse(t, `
BeginFunction $f:F
Return0
AssignValue $l:c true
CallIf0 $l:c $f:F
AssignValue $l:x 1
`)
	g := mustBuild(t, prog)

	var fall, call, ret int
	for _, b := range g.Blocks() {
		for _, e := range b.Out {
			switch e.Kind {
			case EdgeFall:
				fall++
			case EdgeCall:
				call++
			case EdgeReturn:
				ret++
			}
		}
	}
	if call != 1 || ret != 1 || fall != 1 {
		t.Errorf("edges call/ret/fall = %d/%d/%d, want 1/1/1", call, ret, fall)
	}
}

func TestAmbiguousCalleeGetsPlaceholderBlock(t *testing.T) {
	prog := mustParse(t, `
Call1 $l:r $l:fv 5
`)
	g := mustBuild(t, prog)
	found := false
	for _, b := range g.Blocks() {
		if strings.HasPrefix(b.ID, "AmbiguousFunction(") {
			found = true
		}
	}
	if !found {
		t.Errorf("dynamic callee should produce an AmbiguousFunction block")
	}
}

func TestRecursiveRegionDoesNotCloneForever(t *testing.T) {
	prog := mustParse(t, `
BeginFunction $f:R
Call0 $l:r $f:R
Return0
Call0 $l:x $f:R
`)
	g := mustBuild(t, prog)
	if n := len(g.Blocks()); n > 20 {
		t.Errorf("recursion exploded into %d blocks", n)
	}
}

func TestDotOutputShape(t *testing.T) {
	prog := mustParse(t, `
BeginFunction $f:F
Return0
Call0 $l:x $f:F
`)
	g := mustBuild(t, prog)
	dot := g.Dot()
	if !strings.HasPrefix(dot, "digraph cfg {") || !strings.HasSuffix(strings.TrimSpace(dot), "}") {
		t.Errorf("malformed DOT output:\n%s", dot)
	}
	if !strings.Contains(dot, "shape=rectangle") {
		t.Errorf("DOT nodes must be rectangles:\n%s", dot)
	}
	if !strings.Contains(dot, `[label="call"]`) || !strings.Contains(dot, `[label="return"]`) {
		t.Errorf("DOT edges must be labeled call/return:\n%s", dot)
	}
}
