// Package cfg builds a control-flow graph over a lowered ISA stream,
// reconstructs a linear stream back out of it, and runs the optimizer
// passes over the graph. Blocks split at call instructions; call targets
// are cloned per call site with a fresh copy index, with
// CallEdge/FallEdge/ReturnEdge connecting them.
package cfg

import (
	"fmt"

	"github.com/swarmlang/swarm/internal/isa"
)

// EdgeKind labels a CFG edge.
type EdgeKind int

const (
	EdgeCall EdgeKind = iota
	EdgeFall
	EdgeReturn
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeCall:
		return "call"
	case EdgeFall:
		return "fall"
	case EdgeReturn:
		return "return"
	default:
		return "?"
	}
}

// Edge connects two blocks.
type Edge struct {
	Kind     EdgeKind
	From, To *Block
}

// Block is one basic block: a run of instructions with no internal control
// transfer. Its DOT node id is "ID:Copy:Idx".
type Block struct {
	ID     string
	Copy   int
	Idx    int
	Instrs []*isa.Instr
	Out    []*Edge
	In     []*Edge
}

// NodeID renders the DOT node identity.
func (b *Block) NodeID() string { return fmt.Sprintf("%s:%d:%d", b.ID, b.Copy, b.Idx) }

// regionGraph is one function region's block list (a template at copy 0,
// or a per-call-site clone).
type regionGraph struct {
	name   string
	blocks []*Block
	start  *Block
	end    *Block
}

// Graph is the whole program's CFG: one template region per lowered
// function region plus the top-level stream, and every clone materialized
// at call sites.
type Graph struct {
	blocks  []*Block
	regions map[string]*regionGraph
	order   []string
	top     *regionGraph

	spans    map[string][2]int
	instrs   []*isa.Instr
	building map[string]bool
	nextCopy int
	nextIdx  int
}

// Blocks returns every block in the graph, creation-ordered.
func (g *Graph) Blocks() []*Block { return g.blocks }

// topLevelName is the pseudo-region holding instructions outside every
// BeginFunction/Return span: in a lowered program, the type-descriptor
// instructions emitted after the last region.
const topLevelName = "TOPLEVEL"

// Build constructs the CFG for prog. Position annotations are stripped
// first; they carry no control flow.
func Build(prog *isa.Program) (*Graph, error) {
	stripped := prog.StripPositions()
	g := &Graph{
		regions:  make(map[string]*regionGraph),
		spans:    make(map[string][2]int),
		instrs:   stripped.Instrs,
		building: make(map[string]bool),
	}
	if err := g.indexSpans(); err != nil {
		return nil, err
	}
	for _, name := range g.order {
		if _, err := g.buildRegion(name); err != nil {
			return nil, err
		}
	}
	top, err := g.buildTopLevel()
	if err != nil {
		return nil, err
	}
	g.top = top
	return g, nil
}

// indexSpans records each BeginFunction..Return region's instruction
// range, in declaration order.
func (g *Graph) indexSpans() error {
	var openName string
	open := -1
	for pc, in := range g.instrs {
		switch in.Tag {
		case isa.TagBeginFunction:
			if open >= 0 {
				return fmt.Errorf("pc %d: BeginFunction %s inside open region %s", pc, in.FuncName, openName)
			}
			open = pc
			openName = in.FuncName
		case isa.TagReturn0, isa.TagReturn1:
			// every region carries exactly one top-level Return, so
			// the first one closes it
			if open >= 0 {
				g.spans[openName] = [2]int{open, pc}
				g.order = append(g.order, openName)
				open = -1
			}
		}
	}
	if open >= 0 {
		return fmt.Errorf("region %s has no closing Return", openName)
	}
	return nil
}

func (g *Graph) newBlock(id string) *Block {
	g.nextIdx++
	b := &Block{ID: id, Idx: g.nextIdx}
	g.blocks = append(g.blocks, b)
	return b
}

func (g *Graph) connect(kind EdgeKind, from, to *Block) {
	e := &Edge{Kind: kind, From: from, To: to}
	from.Out = append(from.Out, e)
	to.In = append(to.In, e)
}

// buildRegion builds (memoized) the template graph for a named region.
// Recursive call chains short-circuit into an AmbiguousFunction block
// rather than cloning forever.
func (g *Graph) buildRegion(name string) (*regionGraph, error) {
	if rg, ok := g.regions[name]; ok {
		return rg, nil
	}
	span, ok := g.spans[name]
	if !ok {
		return nil, fmt.Errorf("no region named %q", name)
	}
	g.building[name] = true
	defer delete(g.building, name)

	rg, err := g.buildRange("FUNCTION("+name+")", g.instrs[span[0]:span[1]+1])
	if err != nil {
		return nil, err
	}
	rg.name = name
	g.regions[name] = rg
	return rg, nil
}

func (g *Graph) buildTopLevel() (*regionGraph, error) {
	inSpan := make([]bool, len(g.instrs))
	for _, span := range g.spans {
		for pc := span[0]; pc <= span[1]; pc++ {
			inSpan[pc] = true
		}
	}
	var top []*isa.Instr
	for pc, in := range g.instrs {
		if !inSpan[pc] {
			top = append(top, in)
		}
	}
	rg, err := g.buildRange(topLevelName, top)
	if err != nil {
		return nil, err
	}
	rg.name = topLevelName
	return rg, nil
}

// buildRange is the linear scan: call-family
// instructions close the current block, materialize the callee (a clone of
// its template, or an AmbiguousFunction placeholder), and open a
// POSTCALL block the callee returns into.
func (g *Graph) buildRange(startID string, instrs []*isa.Instr) (*regionGraph, error) {
	rg := &regionGraph{}
	cur := g.newBlock(startID)
	rg.blocks = append(rg.blocks, cur)
	rg.start = cur

	for _, in := range instrs {
		cur.Instrs = append(cur.Instrs, in)
		targets, conditional := callTargets(in)
		if len(targets) == 0 {
			continue
		}
		post := g.newBlock("POSTCALL:" + targets[0])
		rg.blocks = append(rg.blocks, post)
		for _, t := range targets {
			if err := g.connectCall(cur, post, t); err != nil {
				return nil, err
			}
		}
		if conditional {
			g.connect(EdgeFall, cur, post)
		}
		cur = post
	}
	rg.end = cur
	return rg, nil
}

// connectCall wires cur -> callee -> post for one call target: a fresh
// clone of the target's region when its template is known, an
// AmbiguousFunction block when it is dynamic, undeclared, or currently
// being built (recursion).
func (g *Graph) connectCall(cur, post *Block, target string) error {
	if _, declared := g.spans[target]; declared && !g.building[target] {
		tmpl, err := g.buildRegion(target)
		if err != nil {
			return err
		}
		clone := g.cloneRegion(tmpl)
		g.connect(EdgeCall, cur, clone.start)
		g.connect(EdgeReturn, clone.end, post)
		return nil
	}
	amb := g.newBlock("AmbiguousFunction(" + target + ")")
	g.connect(EdgeCall, cur, amb)
	g.connect(EdgeReturn, amb, post)
	return nil
}

// callTargets lists the function names an instruction transfers to, and
// whether a false branch bypasses the call (FallEdge).
func callTargets(in *isa.Instr) (targets []string, conditional bool) {
	switch in.Tag {
	case isa.TagCall0, isa.TagCall1, isa.TagPushCall0, isa.TagPushCall1:
		if in.FuncName != "" {
			return []string{in.FuncName}, false
		}
		return []string{dynamicLabel(in.Callee)}, false
	case isa.TagCallIf0, isa.TagCallElse0:
		return []string{in.FuncName}, true
	case isa.TagWhile:
		cond := in.Callee.(isa.FunctionRef).Name
		return []string{cond, in.FuncName}, true
	case isa.TagEnumerate, isa.TagWith:
		return []string{in.FuncName}, true
	default:
		return nil, false
	}
}

// dynamicLabel names an AmbiguousFunction block for a dynamic callee.
func dynamicLabel(callee isa.Ref) string {
	if callee == nil {
		return "?"
	}
	return callee.String()
}

// cloneRegion deep-copies a template region with a fresh copy index.
// Intra-region edges are remapped onto the copies; edges into the
// template's own callee clones are shared, not re-expanded.
func (g *Graph) cloneRegion(tmpl *regionGraph) *regionGraph {
	g.nextCopy++
	copyIdx := g.nextCopy

	mapping := make(map[*Block]*Block, len(tmpl.blocks))
	clone := &regionGraph{name: tmpl.name}
	for _, b := range tmpl.blocks {
		nb := g.newBlock(b.ID)
		nb.Copy = copyIdx
		nb.Instrs = make([]*isa.Instr, len(b.Instrs))
		for i, in := range b.Instrs {
			nb.Instrs[i] = copyInstr(in)
		}
		mapping[b] = nb
		clone.blocks = append(clone.blocks, nb)
	}
	clone.start = mapping[tmpl.start]
	clone.end = mapping[tmpl.end]

	for _, b := range tmpl.blocks {
		for _, e := range b.Out {
			from := mapping[b]
			to, intra := mapping[e.To]
			if !intra {
				to = e.To
			}
			g.connect(e.Kind, from, to)
		}
	}
	return clone
}

// copyInstr duplicates an instruction so optimizer rewrites on a clone
// never leak into the template (or vice versa).
func copyInstr(in *isa.Instr) *isa.Instr {
	c := *in
	if in.Args != nil {
		c.Args = make([]isa.Ref, len(in.Args))
		copy(c.Args, in.Args)
	}
	return &c
}

// Reconstruct linearizes the graph back into an instruction stream:
// template regions in declaration order, then the top-level stream,
// following each region's own blocks without descending into callee
// clones.
func (g *Graph) Reconstruct() *isa.Program {
	var out []*isa.Instr
	emit := func(rg *regionGraph) {
		for _, b := range rg.blocks {
			out = append(out, b.Instrs...)
		}
	}
	for _, name := range g.order {
		emit(g.regions[name])
	}
	if g.top != nil {
		emit(g.top)
	}
	return isa.NewProgram(out)
}

// eachRegion visits every template region plus the top-level stream.
func (g *Graph) eachRegion(f func(*regionGraph)) {
	for _, name := range g.order {
		f(g.regions[name])
	}
	if g.top != nil {
		f(g.top)
	}
}
