// Package ast defines the abstract syntax tree for Swarm programs: node
// variants, the type algebra, and the symbols name analysis attaches to
// identifier-bearing nodes.
package ast

import "fmt"

// Position is an immutable source-span tuple attached to every node.
// Unlike a single-point token position, it spans from the first to the
// last token of the construct so lowering can preserve ranges through
// PositionAnnotation instructions.
type Position struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// NoPosition is the zero value, used for synthesized nodes that have no
// corresponding source text (e.g. an injected `This` rewrite).
var NoPosition = Position{}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.StartLine, p.StartCol)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.StartLine, p.StartCol)
}

// IsValid reports whether the position carries real source coordinates.
func (p Position) IsValid() bool {
	return p.StartLine > 0
}

// Span returns a position covering both p and other, taking the earlier
// start and later end. Used when a node is built from two sub-nodes parsed
// at different points (e.g. a binary expression).
func (p Position) Span(other Position) Position {
	if !p.IsValid() {
		return other
	}
	if !other.IsValid() {
		return p
	}
	span := p
	if other.StartLine < span.StartLine || (other.StartLine == span.StartLine && other.StartCol < span.StartCol) {
		span.StartLine = other.StartLine
		span.StartCol = other.StartCol
	}
	if other.EndLine > span.EndLine || (other.EndLine == span.EndLine && other.EndCol > span.EndCol) {
		span.EndLine = other.EndLine
		span.EndCol = other.EndCol
	}
	return span
}
