package ast

import "strings"

// FunctionExpr is a function literal. Multi-parameter functions are parsed
// as a single node carrying the full parameter list; currying into a
// Lambda1 chain is a lowering-time concern, not a parse-time one, so the
// type assigned here is already the curried Lambda0/Lambda1 shape.
type FunctionExpr struct {
	Position Position
	Params   []*Identifier
	Returns  Type // declared or inferred return type
	Body     []Statement
	Type     Type
	// FreeVars is the set of enclosing-scope symbols this literal's body
	// references but does not itself declare, computed once by type
	// analysis and consumed by lowering's
	// closure-currying step.
	FreeVars []*SemanticSymbol
}

func (f *FunctionExpr) expressionNode() {}
func (f *FunctionExpr) Pos() Position   { return f.Position }
func (f *FunctionExpr) String() string {
	names := make([]string, len(f.Params))
	for i, p := range f.Params {
		names[i] = p.Name
	}
	return "fn(" + strings.Join(names, ", ") + ") { ... }"
}
func (f *FunctionExpr) GetType() Type  { return f.Type }
func (f *FunctionExpr) SetType(t Type) { f.Type = t }

// CallExpr invokes a callable value with all of Args in one node (a chained
// call such as `f(2)(3)` nests CallExprs). When Callee is nil, FuncExpr is non-nil and
// the node is an immediately-invoked function expression: `fn(x) { x+1 }(2)`
// and is merged into this node rather than kept as a distinct IIFE node:
// both forms lower identically once the callee is resolved to a value.
type CallExpr struct {
	Position Position
	Callee   Expression    // the callable being invoked, or nil for an IIFE
	FuncExpr *FunctionExpr // set instead of Callee for an IIFE
	Args     []Expression
	Type     Type
}

func (c *CallExpr) expressionNode() {}
func (c *CallExpr) Pos() Position   { return c.Position }
func (c *CallExpr) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	callee := "<iife>"
	if c.Callee != nil {
		callee = c.Callee.String()
	}
	return callee + "(" + strings.Join(parts, ", ") + ")"
}
func (c *CallExpr) GetType() Type  { return c.Type }
func (c *CallExpr) SetType(t Type) { c.Type = t }

// DeferCallExpr pushes Call as a queued job, in a fresh deferred-call
// context, at the point where it is evaluated: `x = defer f(y);`. It
// evaluates to a Stream handle; the first read of the location holding it
// waits for the job and yields the deferred call's result.
type DeferCallExpr struct {
	Position Position
	Call     *CallExpr
	Type     Type
}

func (d *DeferCallExpr) expressionNode() {}
func (d *DeferCallExpr) Pos() Position   { return d.Position }
func (d *DeferCallExpr) String() string  { return "defer " + d.Call.String() }
func (d *DeferCallExpr) GetType() Type   { return d.Type }
func (d *DeferCallExpr) SetType(t Type)  { d.Type = t }

