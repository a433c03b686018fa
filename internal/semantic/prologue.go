package semantic

import "github.com/swarmlang/swarm/internal/ast"

// PrologueSignatures lists the stdlib ("prologue") functions the analyzers
// know at their interface boundary. The set and the signatures
// mirror the runtime's prologue registry; internal/vm implements the same
// names against the same types.
func PrologueSignatures() map[string]ast.Type {
	num := ast.Number
	str := ast.String
	boolean := ast.Boolean

	fn1 := func(p, r ast.Type) ast.Type { return &ast.Lambda1{Param: p, Returns: r} }
	fn2 := func(p1, p2, r ast.Type) ast.Type { return fn1(p1, fn1(p2, r)) }
	fn3 := func(p1, p2, p3, r ast.Type) ast.Type { return fn1(p1, fn2(p2, p3, r)) }

	return map[string]ast.Type{
		"log":            fn1(str, ast.Unit),
		"logError":       fn1(str, ast.Unit),
		"numberToString": fn1(num, str),
		"boolToString":   fn1(boolean, str),
		"range":          fn3(num, num, num, &ast.Enumerable{Inner: num}),
		"random":         &ast.Lambda0{Returns: num},
		"min":            fn2(num, num, num),
		"max":            fn2(num, num, num),
		"floor":          fn1(num, num),
		"ceiling":        fn1(num, num),
		"sin":            fn1(num, num),
		"cos":            fn1(num, num),
		"tan":            fn1(num, num),
		"count":          fn1(&ast.Enumerable{Inner: ast.Opaque}, num),
		"time":           &ast.Lambda0{Returns: num},
		"tag":            fn2(str, str, &ast.Resource{Yields: ast.Opaque}),
		"fileContents":   fn1(str, &ast.Resource{Yields: ast.Opaque}),
		"drain":          &ast.Lambda0{Returns: ast.Unit},
	}
}

// prologueNames returns the registry's names in a deterministic order so
// symbol insertion (and thus diagnostics about clashes) is stable across
// runs.
func prologueNames() []string {
	sigs := PrologueSignatures()
	names := make([]string, 0, len(sigs))
	for name := range sigs {
		names = append(names, name)
	}
	// insertion order never surfaces in output, but tests diff symbol
	// tables, so keep it sorted
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
}
