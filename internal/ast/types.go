package ast

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Kind discriminates the closed sum of Swarm types.
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindBoolean
	KindTypeType // the type of type-valued expressions (Primitive "Type")
	KindUnit
	KindVoid
	KindError
	KindOpaque
	KindThis
	KindAmbiguous
	KindEnumerable
	KindMap
	KindResource
	KindLambda0
	KindLambda1
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindBoolean:
		return "Boolean"
	case KindTypeType:
		return "Type"
	case KindUnit:
		return "Unit"
	case KindVoid:
		return "Void"
	case KindError:
		return "Error"
	case KindOpaque:
		return "Opaque"
	case KindThis:
		return "This"
	case KindAmbiguous:
		return "Ambiguous"
	case KindEnumerable:
		return "Enumerable"
	case KindMap:
		return "Map"
	case KindResource:
		return "Resource"
	case KindLambda0:
		return "Lambda0"
	case KindLambda1:
		return "Lambda1"
	case KindObject:
		return "Object"
	default:
		return "?"
	}
}

// Type is the closed algebraic sum of Swarm types. Implementations
// are value-like except Object, which carries a stable identity.
type Type interface {
	Kind() Kind
	String() string
	// Equals reports structural equality (object types compare by id).
	Equals(other Type) bool
}

// ---- Primitives (interned singletons, invariant (a)) ----

type primitiveType struct{ kind Kind }

func (p *primitiveType) Kind() Kind        { return p.kind }
func (p *primitiveType) String() string    { return p.kind.String() }
func (p *primitiveType) Equals(o Type) bool {
	op, ok := o.(*primitiveType)
	return ok && op.kind == p.kind
}

var (
	Number    Type = &primitiveType{KindNumber}
	String    Type = &primitiveType{KindString}
	Boolean   Type = &primitiveType{KindBoolean}
	TypeType  Type = &primitiveType{KindTypeType}
	Unit      Type = &primitiveType{KindUnit}
	Void      Type = &primitiveType{KindVoid}
	ErrorType Type = &primitiveType{KindError}
	Opaque    Type = &primitiveType{KindOpaque}
	This      Type = &primitiveType{KindThis}
)

// IsPrimitive reports whether t is one of the interned primitive singletons.
func IsPrimitive(t Type) bool {
	_, ok := t.(*primitiveType)
	return ok
}

// ---- Ambiguous(idNode) ----

// Ambiguous stands for an unresolved identifier until name analysis binds
// it to an object type via disambiguateStatically. Reaching type analysis
// with an Ambiguous node still present is a pipeline-abort condition
// (invariant (c)).
type Ambiguous struct {
	IDName string
	Id     *Identifier
}

func (a *Ambiguous) Kind() Kind     { return KindAmbiguous }
func (a *Ambiguous) String() string { return "Ambiguous(" + a.IDName + ")" }
func (a *Ambiguous) Equals(o Type) bool {
	oa, ok := o.(*Ambiguous)
	return ok && oa.IDName == a.IDName
}

// ---- Containers ----

type Enumerable struct{ Inner Type }

func (e *Enumerable) Kind() Kind     { return KindEnumerable }
func (e *Enumerable) String() string { return "Enumerable<" + e.Inner.String() + ">" }
func (e *Enumerable) Equals(o Type) bool {
	oe, ok := o.(*Enumerable)
	return ok && typesEqual(e.Inner, oe.Inner)
}

type Map struct{ Inner Type }

func (m *Map) Kind() Kind     { return KindMap }
func (m *Map) String() string { return "Map<" + m.Inner.String() + ">" }
func (m *Map) Equals(o Type) bool {
	om, ok := o.(*Map)
	return ok && typesEqual(m.Inner, om.Inner)
}

type Resource struct{ Yields Type }

func (r *Resource) Kind() Kind     { return KindResource }
func (r *Resource) String() string { return "Resource<" + r.Yields.String() + ">" }
func (r *Resource) Equals(o Type) bool {
	or, ok := o.(*Resource)
	return ok && typesEqual(r.Yields, or.Yields)
}

// ---- Lambdas: Lambda0(returns), Lambda1(param, returns) ----
// An n-ary arrow is represented by right-nesting Lambda1s, so arity is
// the length of the Lambda1 chain (see Arity).

type Lambda0 struct{ Returns Type }

func (l *Lambda0) Kind() Kind     { return KindLambda0 }
func (l *Lambda0) String() string { return "() -> " + l.Returns.String() }
func (l *Lambda0) Equals(o Type) bool {
	ol, ok := o.(*Lambda0)
	return ok && typesEqual(l.Returns, ol.Returns)
}

type Lambda1 struct {
	Param   Type
	Returns Type
}

func (l *Lambda1) Kind() Kind { return KindLambda1 }
func (l *Lambda1) String() string {
	return "(" + l.Param.String() + ") -> " + l.Returns.String()
}
func (l *Lambda1) Equals(o Type) bool {
	ol, ok := o.(*Lambda1)
	return ok && typesEqual(l.Param, ol.Param) && typesEqual(l.Returns, ol.Returns)
}

// Arity returns the number of curried parameters of a callable type: 0 for
// Lambda0, or 1 + Arity(Returns) while Returns is itself a Lambda1/Lambda0.
func Arity(t Type) int {
	n := 0
	for {
		switch v := t.(type) {
		case *Lambda1:
			n++
			t = v.Returns
		default:
			return n
		}
	}
}

// FinalReturn strips every leading arrow constructor of a (possibly
// curried) callable type, returning the type ultimately produced once all
// arguments are supplied.
func FinalReturn(t Type) Type {
	for {
		switch v := t.(type) {
		case *Lambda0:
			return v.Returns
		case *Lambda1:
			t = v.Returns
		default:
			return t
		}
	}
}

// IsCallable reports whether t is Lambda0 or Lambda1.
func IsCallable(t Type) bool {
	switch t.(type) {
	case *Lambda0, *Lambda1:
		return true
	default:
		return false
	}
}

// ---- Object(parent?, properties) ----

var nextObjectID int64

// NextObjectID returns a fresh, monotonically increasing object id
// (invariant (b): ids are never reused).
func NextObjectID() int64 {
	return atomic.AddInt64(&nextObjectID, 1)
}

// Property is one ordered entry of an Object's property map.
type Property struct {
	Name string
	Type Type
}

// Object is a finalized class type: a unique id, optional parent, and an
// ordered property list. Objects compare by id once finalized (Equals),
// never structurally, since two distinct classes may have identical shapes.
type Object struct {
	ID         int64
	Name       string
	Parent     *Object
	Properties []Property
}

func (o *Object) Kind() Kind     { return KindObject }
func (o *Object) String() string { return o.Name }
func (o *Object) Equals(other Type) bool {
	oo, ok := other.(*Object)
	return ok && oo.ID == o.ID
}

// PropertyType looks up a property by name, walking the parent chain.
// Returns (type, true) if found.
func (o *Object) PropertyType(name string) (Type, bool) {
	for cur := o; cur != nil; cur = cur.Parent {
		for _, p := range cur.Properties {
			if p.Name == name {
				return p.Type, true
			}
		}
	}
	return nil, false
}

// IsSubtypeOf reports whether o is the same object as, or a descendant
// (via Parent chain) of, other.
func (o *Object) IsSubtypeOf(other *Object) bool {
	for cur := o; cur != nil; cur = cur.Parent {
		if cur.ID == other.ID {
			return true
		}
	}
	return false
}

func typesEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equals(b)
}

// ---- Assignability (invariant (d)) ----

// IsAssignableTo reports whether a value of type from may be stored into a
// location of type to: reflexive, structural for containers, contravariant
// on lambda parameters and covariant on lambda returns, and honoring the
// object parent chain.
func IsAssignableTo(from, to Type) bool {
	if from == nil || to == nil {
		return false
	}
	if from.Equals(to) {
		return true
	}
	switch t := to.(type) {
	case *Enumerable:
		f, ok := from.(*Enumerable)
		return ok && IsAssignableTo(f.Inner, t.Inner)
	case *Map:
		f, ok := from.(*Map)
		return ok && IsAssignableTo(f.Inner, t.Inner)
	case *Resource:
		f, ok := from.(*Resource)
		return ok && IsAssignableTo(f.Yields, t.Yields)
	case *Lambda0:
		f, ok := from.(*Lambda0)
		return ok && IsAssignableTo(f.Returns, t.Returns)
	case *Lambda1:
		f, ok := from.(*Lambda1)
		if !ok {
			return false
		}
		// contravariant on params, covariant on returns
		return IsAssignableTo(t.Param, f.Param) && IsAssignableTo(f.Returns, t.Returns)
	case *Object:
		f, ok := from.(*Object)
		return ok && f.IsSubtypeOf(t)
	default:
		return false
	}
}

// DescribeSignature renders a callable type's curried parameter list for
// diagnostics, e.g. "(Number, String) -> Boolean".
func DescribeSignature(t Type) string {
	var params []string
	cur := t
	for {
		switch v := cur.(type) {
		case *Lambda1:
			params = append(params, v.Param.String())
			cur = v.Returns
		case *Lambda0:
			return fmt.Sprintf("(%s) -> %s", strings.Join(params, ", "), v.Returns.String())
		default:
			return fmt.Sprintf("(%s) -> %s", strings.Join(params, ", "), cur.String())
		}
	}
}
