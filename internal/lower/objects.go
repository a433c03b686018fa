package lower

import (
	"fmt"

	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/isa"
)

// registerTypeBodies records every top-level type declaration's Object and
// assigns each of its constructors a deterministic region name up front,
// so a constructor call lowered before that constructor's own body region
// is dequeued can still resolve its target,
// and so parent-constructor calls can look a name up regardless of
// declaration order.
func (l *Lowerer) registerTypeBodies(stmts []ast.Statement) {
	for _, s := range stmts {
		tb, ok := s.(*ast.TypeBody)
		if !ok || tb.Type == nil {
			continue
		}
		l.typeBodies[tb.Type] = tb
		for i, ctor := range tb.Constructors {
			l.ctorNames[ctor] = fmt.Sprintf("CTOR_%s_%d", tb.Name, i)
		}
	}
}

// ctorRegion builds the pending region for one overloaded-by-arity
// constructor: its declared parameters plus a synthetic trailing `instance`
// parameter, so the region's body (lowerCtorBody) can ObjSet/ObjGet against
// the instance a caller already allocated with ObjInit.
func (l *Lowerer) ctorRegion(tb *ast.TypeBody, ctor *ast.ConstructorDecl) *region {
	name := l.ctorNames[ctor]
	instLoc := isa.Loc(isa.Local, name+"$instance")

	params := make([]regionParam, 0, len(ctor.Params)+1)
	for _, p := range ctor.Params {
		params = append(params, regionParam{name: p.Name, loc: locationFor(p.Symbol)})
	}
	params = append(params, regionParam{name: "instance", loc: instLoc})

	return &region{
		name: name, kind: kindCtor, params: params,
		instance: instLoc, hasInstance: true,
		tb: tb, ctor: ctor,
	}
}

// lowerCtorBody runs the parent-constructor call (if any), then every
// property's default-value assignment, then the constructor's own body,
// and always closes with Return1(instance) -- a constructor never produces
// anything else, its whole purpose is populating and handing back the
// instance its caller already allocated.
func (l *Lowerer) lowerCtorBody(r *region) error {
	if err := l.lowerParentCtorCall(r.ctor, r.instance); err != nil {
		return err
	}

	for _, p := range r.tb.Properties {
		if p.Value == nil {
			// Uninitialized (DeclaredType-only) property: constructor
			// validation already proved the body definitely assigns it on
			// every path before return.
			continue
		}
		v, err := l.lowerExpr(p.Value)
		if err != nil {
			return err
		}
		l.emit(isa.ObjSet(r.instance, p.Name, v))
	}

	terminated, err := l.lowerBlock(r.ctor.Body)
	if err != nil {
		return err
	}
	if !terminated {
		l.emit(isa.Return1(r.instance))
	}
	return nil
}

// lowerParentCtorCall lowers the `from Parent(...)` clause, if present:
// resolves which of Parent's constructors matches ParentArgs by arity and
// invokes it against the same instance, rather than allocating a second one.
func (l *Lowerer) lowerParentCtorCall(ctor *ast.ConstructorDecl, instance isa.Location) error {
	if ctor.ParentName == nil {
		return nil
	}

	parentObj, ok := ctor.ParentName.Symbol.Type.(*ast.Object)
	if !ok {
		return fmt.Errorf("%s: parent constructor target %q is not an object type", ctor.ParentName.Pos(), ctor.ParentName.Name)
	}
	parentTB, ok := l.typeBodies[parentObj]
	if !ok {
		return fmt.Errorf("%s: no declaration found for parent type %q", ctor.ParentName.Pos(), parentObj.Name)
	}

	var parentCtor *ast.ConstructorDecl
	for _, c := range parentTB.Constructors {
		if len(c.Params) == len(ctor.ParentArgs) {
			parentCtor = c
			break
		}
	}
	if parentCtor == nil {
		return fmt.Errorf("%s: no constructor of %q matches %d argument(s)", ctor.ParentName.Pos(), parentObj.Name, len(ctor.ParentArgs))
	}

	args := make([]isa.Ref, 0, len(ctor.ParentArgs)+1)
	for _, a := range ctor.ParentArgs {
		v, err := l.lowerExpr(a)
		if err != nil {
			return err
		}
		args = append(args, v)
	}
	args = append(args, instance)

	name := l.ctorNames[parentCtor]
	_, err := l.invoke(isa.FunctionRef{Name: name}, args)
	return err
}

// emitTypeDescriptor registers tb's runtime type descriptor once every
// region has been lowered: OTypeInit allocates it, OTypeProp declares
// each property's static type, and OTypeFinalize seals it in place,
// registering it for the ObjSet/ObjGet handlers' runtime type checks.
// The VM executes this tail ahead of main.
func (l *Lowerer) emitTypeDescriptor(tb *ast.TypeBody) {
	dest := l.newTemp(isa.Local)
	l.emit(isa.OTypeInit(dest, tb.Type))
	for _, p := range tb.Properties {
		t := p.DeclaredType
		if t == nil {
			t = l.typeOf(p.Value)
		}
		l.emit(isa.OTypeProp(dest, p.Name, t))
	}
	l.emit(isa.OTypeFinalize(dest, dest))
}
