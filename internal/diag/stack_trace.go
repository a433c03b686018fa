package diag

import (
	"fmt"
	"strings"
)

// StackFrame is one in-flight call of a lowered function region at the
// point a runtime error surfaced: the region's name, plus the source
// coordinates of the failing instruction when the program was compiled
// with position annotations.
type StackFrame struct {
	Function string
	Line     int
	Col      int
}

func (f StackFrame) String() string {
	if f.Line == 0 {
		return f.Function
	}
	return fmt.Sprintf("%s [line: %d, column: %d]", f.Function, f.Line, f.Col)
}

// StackTrace is the chain of in-flight calls, oldest first. Rendering
// lists the newest frame first, the order a reader walks an error from.
type StackTrace []StackFrame

func (st StackTrace) String() string {
	lines := make([]string, 0, len(st))
	for i := len(st) - 1; i >= 0; i-- {
		lines = append(lines, "  at "+st[i].String())
	}
	return strings.Join(lines, "\n")
}

// Depth returns the number of in-flight calls.
func (st StackTrace) Depth() int { return len(st) }
