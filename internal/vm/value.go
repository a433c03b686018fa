package vm

import (
	"fmt"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/swarmlang/swarm/internal/ast"
)

// Value is a runtime value held in storage. Scalars are value-like;
// containers and objects are pointers whose identity is shared across
// copies (reference-counting semantics; no tracing GC).
type Value interface {
	Type() ast.Type
	String() string
}

type NumberValue struct{ N float64 }

func (NumberValue) Type() ast.Type { return ast.Number }
func (v NumberValue) String() string {
	if v.N == float64(int64(v.N)) {
		return fmt.Sprintf("%d", int64(v.N))
	}
	return fmt.Sprintf("%g", v.N)
}

type StringValue struct{ S string }

func (StringValue) Type() ast.Type   { return ast.String }
func (v StringValue) String() string { return v.S }

type BoolValue struct{ B bool }

func (BoolValue) Type() ast.Type { return ast.Boolean }
func (v BoolValue) String() string {
	if v.B {
		return "true"
	}
	return "false"
}

type UnitValue struct{}

func (UnitValue) Type() ast.Type { return ast.Unit }
func (UnitValue) String() string { return "unit" }

// TypeValue is a type held as a first-class value (the Primitive "Type").
type TypeValue struct{ T ast.Type }

func (TypeValue) Type() ast.Type   { return ast.TypeType }
func (v TypeValue) String() string { return "t:" + v.T.String() }

// OpaqueValue wraps a resource yield so `with` locals type as Opaque
// regardless of what the resource actually produced.
type OpaqueValue struct{ Inner Value }

func (OpaqueValue) Type() ast.Type   { return ast.Opaque }
func (v OpaqueValue) String() string { return v.Inner.String() }

// EnumValue is an ordered, growable container (Enumerable<Inner>).
type EnumValue struct {
	Inner ast.Type
	Elems []Value
}

func (e *EnumValue) Type() ast.Type { return &ast.Enumerable{Inner: e.Inner} }
func (e *EnumValue) String() string {
	parts := make([]string, len(e.Elems))
	for i, el := range e.Elems {
		parts[i] = el.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// mapCollator orders map keys deterministically across workers regardless
// of insertion order or combining-mark representation.
var mapCollator = collate.New(language.Und)

// MapValue is a string-keyed container (Map<Inner>). Keys are normalized
// to NFC before insertion/lookup so visually-identical keys address the
// same entry.
type MapValue struct {
	Inner   ast.Type
	entries map[string]Value
}

func NewMapValue(inner ast.Type) *MapValue {
	return &MapValue{Inner: inner, entries: make(map[string]Value)}
}

func (m *MapValue) Type() ast.Type { return &ast.Map{Inner: m.Inner} }

func (m *MapValue) Set(key string, v Value) { m.entries[norm.NFC.String(key)] = v }

func (m *MapValue) Get(key string) (Value, bool) {
	v, ok := m.entries[norm.NFC.String(key)]
	return v, ok
}

func (m *MapValue) Len() int { return len(m.entries) }

// Keys returns the map's keys in collation order.
func (m *MapValue) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	mapCollator.SortStrings(keys)
	return keys
}

func (m *MapValue) String() string {
	var parts []string
	for _, k := range m.Keys() {
		parts = append(parts, fmt.Sprintf("%s: %s", k, m.entries[k].String()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// FunctionValue is a callable: a Function-affinity region name or a
// prologue builtin, plus any arguments already bound via Curry.
type FunctionValue struct {
	Name     string
	Partials []Value
}

func (f *FunctionValue) Type() ast.Type { return &ast.Lambda0{Returns: ast.Opaque} }
func (f *FunctionValue) String() string {
	s := "$f:" + f.Name
	for _, p := range f.Partials {
		s += "<-" + p.String()
	}
	return s
}

// Bind returns a new FunctionValue with one more partial applied. The
// receiver is never mutated: curried values are immutable so two partial
// applications of the same base never alias.
func (f *FunctionValue) Bind(v Value) *FunctionValue {
	partials := make([]Value, len(f.Partials), len(f.Partials)+1)
	copy(partials, f.Partials)
	return &FunctionValue{Name: f.Name, Partials: append(partials, v)}
}

// ObjectValue is a class instance: its finalized Object type plus the
// property cells. An instance is mutable while under construction and
// becomes an immutable view after ObjInstance.
type ObjectValue struct {
	Object    *ast.Object
	props     map[string]Value
	finalized bool
}

func NewObjectValue(t *ast.Object) *ObjectValue {
	return &ObjectValue{Object: t, props: make(map[string]Value)}
}

func (o *ObjectValue) Type() ast.Type { return o.Object }

func (o *ObjectValue) GetProp(name string) (Value, bool) {
	v, ok := o.props[name]
	return v, ok
}

// SetProp writes a property cell. The property's type check happens in
// the VM's ObjSet handler, against the runtime type descriptor when one
// is registered; here only the immutability of a finalized view is
// enforced.
func (o *ObjectValue) SetProp(name string, v Value) error {
	if o.finalized {
		return Errf(ExTypeError, "cannot assign property %q of a finalized %s instance", name, o.Object.Name)
	}
	o.props[name] = v
	return nil
}

// Finalize returns the immutable view of this instance.
func (o *ObjectValue) Finalize() *ObjectValue {
	return &ObjectValue{Object: o.Object, props: o.props, finalized: true}
}

func (o *ObjectValue) String() string { return fmt.Sprintf("%s#%d", o.Object.Name, o.Object.ID) }

// ResourceValue is a scoped value opened by `with`, yielding an opaque
// inner value while in scope.
type ResourceValue struct {
	Name       string
	Yield      Value
	Replicable bool
}

func (*ResourceValue) Type() ast.Type   { return &ast.Resource{Yields: ast.Opaque} }
func (r *ResourceValue) String() string { return "resource:" + r.Name }

// StreamValue stands in for a deferred call's not-yet-materialized result.
type StreamValue struct{ ID string }

func (StreamValue) Type() ast.Type   { return ast.Opaque }
func (v StreamValue) String() string { return "stream:" + v.ID }

// ContextValue is the handle EnterContext binds to its destination.
type ContextValue struct{ ID string }

func (ContextValue) Type() ast.Type   { return ast.Opaque }
func (v ContextValue) String() string { return "context:" + v.ID }

// ObjectTypeValue is a runtime type descriptor: built up by
// OTypeInit/OTypeProp, sealed by OTypeFinalize, and consulted by the
// ObjSet/ObjGet handlers once registered. It carries the per-property
// types by name, so a program loaded from the wire forms (whose Object
// operands round-trip by name only) still type-checks its instances.
type ObjectTypeValue struct {
	Name   string
	props  map[string]ast.Type
	sealed bool
}

func NewObjectTypeValue(name string) *ObjectTypeValue {
	return &ObjectTypeValue{Name: name, props: make(map[string]ast.Type)}
}

func (*ObjectTypeValue) Type() ast.Type   { return ast.TypeType }
func (v *ObjectTypeValue) String() string { return "otype:" + v.Name }

// Sealed reports whether the descriptor has been finalized.
func (v *ObjectTypeValue) Sealed() bool { return v.sealed }

// DeclareProp records one property's static type; the descriptor must
// still be under construction.
func (v *ObjectTypeValue) DeclareProp(name string, t ast.Type) error {
	if v.sealed {
		return Errf(ExTypeError, "cannot declare property %q on the sealed descriptor of %s", name, v.Name)
	}
	v.props[name] = t
	return nil
}

// PropType looks a declared property's type up.
func (v *ObjectTypeValue) PropType(name string) (ast.Type, bool) {
	t, ok := v.props[name]
	return t, ok
}

// assignableValue reports whether v may be stored into a cell of type t.
// Opaque accepts anything, matching its role as the unconstrained
// resource-yield type.
func assignableValue(v Value, t ast.Type) bool {
	if t == nil || t.Kind() == ast.KindOpaque || t.Kind() == ast.KindUnit {
		return true
	}
	if _, ok := v.(*FunctionValue); ok {
		// Function values carry no precise arrow type at runtime; the
		// type analyzer already proved the assignment.
		return ast.IsCallable(t) || t.Kind() == ast.KindOpaque
	}
	return ast.IsAssignableTo(v.Type(), t)
}

// valueEquals implements the Equals/NotEquals instruction semantics:
// numbers by value, strings NFC-normalized, booleans by value, objects and
// containers by identity.
func valueEquals(a, b Value) bool {
	switch av := a.(type) {
	case NumberValue:
		bv, ok := b.(NumberValue)
		return ok && av.N == bv.N
	case StringValue:
		bv, ok := b.(StringValue)
		return ok && norm.NFC.String(av.S) == norm.NFC.String(bv.S)
	case BoolValue:
		bv, ok := b.(BoolValue)
		return ok && av.B == bv.B
	case UnitValue:
		_, ok := b.(UnitValue)
		return ok
	case TypeValue:
		bv, ok := b.(TypeValue)
		return ok && av.T.Equals(bv.T)
	default:
		return a == b
	}
}
