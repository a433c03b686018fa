// Package isa defines the flat, three-address intermediate representation
// lowering produces:
// locations, value references, the ±50 tagged instruction variants, and
// their textual/binary (de)serialization forms.
package isa

import (
	"fmt"

	"github.com/swarmlang/swarm/internal/ast"
)

// Affinity is the namespace a Location lives in, determining its storage
// backend and synchronization policy.
type Affinity int

const (
	Local Affinity = iota
	Shared
	Function
	ObjectProp
	PrimitiveAffinity
)

func (a Affinity) String() string {
	switch a {
	case Local:
		return "l"
	case Shared:
		return "s"
	case Function:
		return "f"
	case ObjectProp:
		return "o"
	case PrimitiveAffinity:
		return "p"
	default:
		return "?"
	}
}

// Location is a named, addressable cell. Equality is by affinity:name.
type Location struct {
	Affinity Affinity
	Name     string
}

// Loc builds a Location.
func Loc(a Affinity, name string) Location { return Location{Affinity: a, Name: name} }

func (l Location) String() string { return fmt.Sprintf("$%s:%s", l.Affinity, l.Name) }
func (l Location) refNode()       {}
func (l Location) Kind() RefKind  { return RefKindLocation }

// Equal reports whether two locations name the same cell.
func (l Location) Equal(o Location) bool { return l.Affinity == o.Affinity && l.Name == o.Name }

// RefKind discriminates the closed sum of ISA reference operands.
type RefKind int

const (
	RefKindLocation RefKind = iota
	RefKindNumber
	RefKindString
	RefKindBoolean
	RefKindType
	RefKindObjectType
	RefKindFunction
	RefKindStream
)

// Ref is any operand an instruction can carry: a Location or one of the
// value-reference kinds (NumberRef, StringRef, BooleanRef, TypeRef,
// ObjectTypeRef, FunctionRef, StreamRef).
type Ref interface {
	refNode()
	Kind() RefKind
	String() string
}

// NumberRef is a literal Number operand.
type NumberRef struct{ Value float64 }

func (NumberRef) refNode()      {}
func (NumberRef) Kind() RefKind { return RefKindNumber }
func (n NumberRef) String() string {
	if n.Value == float64(int64(n.Value)) {
		return fmt.Sprintf("%d", int64(n.Value))
	}
	return fmt.Sprintf("%g", n.Value)
}

// StringRef is a literal String operand.
type StringRef struct{ Value string }

func (StringRef) refNode()        {}
func (StringRef) Kind() RefKind   { return RefKindString }
func (s StringRef) String() string { return fmt.Sprintf("%q", s.Value) }

// BooleanRef is a literal Boolean operand.
type BooleanRef struct{ Value bool }

func (BooleanRef) refNode()      {}
func (BooleanRef) Kind() RefKind { return RefKindBoolean }
func (b BooleanRef) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// TypeRef carries a fully-resolved Type operand (e.g. the element type
// argument to Enumerate/With).
type TypeRef struct{ Type ast.Type }

func (TypeRef) refNode()        {}
func (TypeRef) Kind() RefKind   { return RefKindType }
func (t TypeRef) String() string { return "t:" + t.Type.String() }

// ObjectTypeRef carries a finalized Object type operand (e.g. the operand
// to ObjInit / OTypeInit).
type ObjectTypeRef struct{ Object *ast.Object }

func (ObjectTypeRef) refNode()      {}
func (ObjectTypeRef) Kind() RefKind { return RefKindObjectType }
func (o ObjectTypeRef) String() string { return "t:" + o.Object.Name }

// FunctionRef names a Function-affinity region, plus any partially-applied
// arguments already bound via Curry.
type FunctionRef struct {
	Name     string
	Partials []Ref
}

func (FunctionRef) refNode()      {}
func (FunctionRef) Kind() RefKind { return RefKindFunction }
func (f FunctionRef) String() string {
	s := "$f:" + f.Name
	for _, p := range f.Partials {
		s += "<-" + p.String()
	}
	return s
}

// StreamRef identifies a deferred-call result stream by id plus its inner
// (yielded) type.
type StreamRef struct {
	ID    string
	Inner ast.Type
}

func (StreamRef) refNode()      {}
func (StreamRef) Kind() RefKind { return RefKindStream }
func (s StreamRef) String() string {
	inner := "?"
	if s.Inner != nil {
		inner = s.Inner.String()
	}
	return fmt.Sprintf("stream:%s<%s>", s.ID, inner)
}
