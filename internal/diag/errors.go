// Package diag formats and accumulates compile-time diagnostics: the
// ParseError/NameError/TypeError/SyntaxError taxonomy produced by the
// lexer/parser, name analyzer, and type analyzer, each carrying a source
// position and rendered with caret-pointing source context.
package diag

import (
	"fmt"
	"strings"

	"github.com/swarmlang/swarm/internal/ast"
)

// Category classifies a Diagnostic by compilation stage, matching the
// taxonomy's four compile-time kinds.
type Category int

const (
	CategoryParse Category = iota
	CategoryName
	CategoryType
	CategorySyntax
)

func (c Category) String() string {
	switch c {
	case CategoryParse:
		return "ParseError"
	case CategoryName:
		return "NameError"
	case CategoryType:
		return "TypeError"
	case CategorySyntax:
		return "SyntaxError"
	default:
		return "Error"
	}
}

// Diagnostic is a single compile-time error with position and context.
type Diagnostic struct {
	Category Category
	Message  string
	Source   string
	Pos      ast.Position
}

// NewDiagnostic creates a Diagnostic of the given category.
func NewDiagnostic(cat Category, pos ast.Position, message, source string) *Diagnostic {
	return &Diagnostic{Category: cat, Message: message, Source: source, Pos: pos}
}

func ParseErrorf(pos ast.Position, source, format string, args ...any) *Diagnostic {
	return NewDiagnostic(CategoryParse, pos, fmt.Sprintf(format, args...), source)
}

func NameErrorf(pos ast.Position, source, format string, args ...any) *Diagnostic {
	return NewDiagnostic(CategoryName, pos, fmt.Sprintf(format, args...), source)
}

func TypeErrorf(pos ast.Position, source, format string, args ...any) *Diagnostic {
	return NewDiagnostic(CategoryType, pos, fmt.Sprintf(format, args...), source)
}

func SyntaxErrorf(pos ast.Position, source, format string, args ...any) *Diagnostic {
	return NewDiagnostic(CategorySyntax, pos, fmt.Sprintf(format, args...), source)
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	return d.Format(false)
}

// Format renders the diagnostic with its source line and a caret pointing
// at the offending column. If color is true, ANSI codes highlight it for
// terminal output.
func (d *Diagnostic) Format(color bool) string {
	var sb strings.Builder

	if d.Pos.File != "" {
		sb.WriteString(fmt.Sprintf("%s in %s:%d:%d\n", d.Category, d.Pos.File, d.Pos.StartLine, d.Pos.StartCol))
	} else {
		sb.WriteString(fmt.Sprintf("%s at %d:%d\n", d.Category, d.Pos.StartLine, d.Pos.StartCol))
	}

	if line := d.sourceLine(d.Pos.StartLine); line != "" {
		lineNumStr := fmt.Sprintf("%4d | ", d.Pos.StartLine)
		sb.WriteString(lineNumStr)
		sb.WriteString(line)
		sb.WriteString("\n")

		sb.WriteString(strings.Repeat(" ", len(lineNumStr)+d.Pos.StartCol-1))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(d.Message)
	if color {
		sb.WriteString("\033[0m")
	}
	return sb.String()
}

func (d *Diagnostic) sourceLine(lineNum int) string {
	if d.Source == "" || lineNum < 1 {
		return ""
	}
	lines := strings.Split(d.Source, "\n")
	if lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// Diagnostics accumulates errors across a compilation stage. Every stage
// described in the taxonomy "continues where safe to collect further
// diagnostics, then reports failure: callers append via Add and check
// HasErrors once the walk completes, rather than aborting on first error.
type Diagnostics struct {
	items []*Diagnostic
}

func (d *Diagnostics) Add(diag *Diagnostic) { d.items = append(d.items, diag) }

func (d *Diagnostics) HasErrors() bool { return len(d.items) > 0 }

func (d *Diagnostics) Items() []*Diagnostic { return d.items }

// Err returns nil if no diagnostics were recorded, or an error aggregating
// all of them otherwise.
func (d *Diagnostics) Err() error {
	if !d.HasErrors() {
		return nil
	}
	return &StageError{Diagnostics: d.items}
}

// StageError is returned by a compilation stage when its Diagnostics
// accumulated one or more errors. Compile errors never propagate past
// their stage: the pipeline fails deterministically once a stage reports
// one, rather than attempting the next stage on a partial result.
type StageError struct {
	Diagnostics []*Diagnostic
}

func (e *StageError) Error() string {
	if len(e.Diagnostics) == 1 {
		return e.Diagnostics[0].Format(false)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s):\n", len(e.Diagnostics)))
	for i, d := range e.Diagnostics {
		sb.WriteString(fmt.Sprintf("[%d/%d] %s\n", i+1, len(e.Diagnostics), d.Format(false)))
	}
	return sb.String()
}

// Format renders every accumulated diagnostic, optionally with color.
func (e *StageError) Format(color bool) string {
	if len(e.Diagnostics) == 1 {
		return e.Diagnostics[0].Format(color)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Compilation failed with %d error(s):\n\n", len(e.Diagnostics)))
	for i, d := range e.Diagnostics {
		sb.WriteString(fmt.Sprintf("[Error %d of %d]\n", i+1, len(e.Diagnostics)))
		sb.WriteString(d.Format(color))
		if i < len(e.Diagnostics)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
