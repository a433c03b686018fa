package isa

import "strings"

// Program is the full instruction stream lowering produces: an ordered
// list of instructions plus the pc -> position side-table the VM loader
// populates by extracting PositionAnnotation instructions.
type Program struct {
	Instrs    []*Instr
	Positions map[int]PosInfo
}

// PosInfo is one entry of the position side-table.
type PosInfo struct {
	File string
	Line int
	Col  int
}

// NewProgram wraps an instruction slice.
func NewProgram(instrs []*Instr) *Program {
	return &Program{Instrs: instrs, Positions: make(map[int]PosInfo)}
}

// StripPositions extracts every PositionAnnotation instruction into the
// side-table keyed by the pc of the instruction it precedes, returning a
// new Program without them.
func (p *Program) StripPositions() *Program {
	out := &Program{Positions: make(map[int]PosInfo, len(p.Positions))}
	pending := (*PosInfo)(nil)
	for _, in := range p.Instrs {
		if in.Tag == TagPositionAnnotation {
			pi := PosInfo{File: in.File, Line: in.Line, Col: in.Col}
			pending = &pi
			continue
		}
		if pending != nil {
			out.Positions[len(out.Instrs)] = *pending
			pending = nil
		}
		out.Instrs = append(out.Instrs, in)
	}
	return out
}

// String renders the whole program in the textual ISA form, one
// instruction per line.
func (p *Program) String() string {
	var b strings.Builder
	for _, in := range p.Instrs {
		b.WriteString(in.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Len returns the instruction count.
func (p *Program) Len() int { return len(p.Instrs) }

// At returns the instruction at pc, or nil if out of range.
func (p *Program) At(pc int) *Instr {
	if pc < 0 || pc >= len(p.Instrs) {
		return nil
	}
	return p.Instrs[pc]
}
