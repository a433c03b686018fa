package semantic

import "github.com/swarmlang/swarm/internal/ast"

// Analyze runs the full B+C pipeline stage against prog: name analysis
// first (attaching symbols, assembling object types), then type analysis
// (inference/checking, DotAccess rewriting, constructor dispatch). Each
// stage is total and the pipeline fails deterministically at the first
// stage that accumulates diagnostics.
func Analyze(file, source string, prog *ast.Program) (*TypeAnalyzer, error) {
	names := NewAnalyzer(file, source)
	if err := names.AnalyzeProgram(prog); err != nil {
		return nil, err
	}

	types := NewTypeAnalyzer(source)
	if err := types.AnalyzeProgram(prog); err != nil {
		return nil, err
	}
	return types, nil
}
