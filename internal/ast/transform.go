package ast

// DisambiguateStatically walks t and collapses every Ambiguous(id) node to
// the object type its symbol resolves to. It fails if the id refers to a
// symbol that does not name a type.
func DisambiguateStatically(t Type) (Type, error) {
	switch v := t.(type) {
	case *Ambiguous:
		if v.Id == nil || v.Id.Symbol == nil {
			return nil, &UnresolvedAmbiguousTypeError{Name: v.IDName}
		}
		obj, ok := v.Id.Symbol.Type.(*Object)
		if !ok {
			return nil, &NotATypeError{Name: v.IDName}
		}
		return obj, nil
	case *Enumerable:
		inner, err := DisambiguateStatically(v.Inner)
		if err != nil {
			return nil, err
		}
		return &Enumerable{Inner: inner}, nil
	case *Map:
		inner, err := DisambiguateStatically(v.Inner)
		if err != nil {
			return nil, err
		}
		return &Map{Inner: inner}, nil
	case *Resource:
		inner, err := DisambiguateStatically(v.Yields)
		if err != nil {
			return nil, err
		}
		return &Resource{Yields: inner}, nil
	case *Lambda0:
		ret, err := DisambiguateStatically(v.Returns)
		if err != nil {
			return nil, err
		}
		return &Lambda0{Returns: ret}, nil
	case *Lambda1:
		param, err := DisambiguateStatically(v.Param)
		if err != nil {
			return nil, err
		}
		ret, err := DisambiguateStatically(v.Returns)
		if err != nil {
			return nil, err
		}
		return &Lambda1{Param: param, Returns: ret}, nil
	default:
		return t, nil
	}
}

// UnresolvedAmbiguousTypeError is returned by DisambiguateStatically when an
// Ambiguous type's identifier was never bound to a symbol (name analysis
// should always bind it first; surviving to this point is a bug in the
// caller's sequencing, but is reported rather than panicking).
type UnresolvedAmbiguousTypeError struct{ Name string }

func (e *UnresolvedAmbiguousTypeError) Error() string {
	return "unresolved ambiguous type reference: " + e.Name
}

// NotATypeError is returned when an Ambiguous type's identifier resolves to
// a symbol that isn't itself type-valued (e.g. a variable).
type NotATypeError struct{ Name string }

func (e *NotATypeError) Error() string {
	return "identifier does not name a type: " + e.Name
}

// TypeTransformFunc is applied by Transform at every node of a type tree.
// Returning nil for the "skip" case is not supported: implementations
// should return their input unchanged to leave a subtree untouched.
type TypeTransformFunc func(Type) Type

// Transform performs a fixpoint structural rewrite of t, applying f
// bottom-up until a full pass produces no change. It is used during object
// finalization to rewire self-references into the primitive This.
func Transform(t Type, f TypeTransformFunc) Type {
	for {
		next := transformOnce(t, f)
		if typesEqual(next, t) {
			return next
		}
		t = next
	}
}

func transformOnce(t Type, f TypeTransformFunc) Type {
	switch v := t.(type) {
	case *Enumerable:
		return f(&Enumerable{Inner: transformOnce(v.Inner, f)})
	case *Map:
		return f(&Map{Inner: transformOnce(v.Inner, f)})
	case *Resource:
		return f(&Resource{Yields: transformOnce(v.Yields, f)})
	case *Lambda0:
		return f(&Lambda0{Returns: transformOnce(v.Returns, f)})
	case *Lambda1:
		return f(&Lambda1{Param: transformOnce(v.Param, f), Returns: transformOnce(v.Returns, f)})
	default:
		return f(t)
	}
}

// FinalizeObject produces a canonical Object with a fresh id from a
// partially-built object (name, optional parent, properties whose types
// may still reference `building`, the object under construction). Every
// occurrence of `building` in a property type is rewritten to This, which
// decouples the mutual-reference cycle without requiring two-phase
// construction of a mutable builder.
func FinalizeObject(name string, parent *Object, props []Property, building *Object) *Object {
	rewrite := func(t Type) Type {
		if building != nil {
			if obj, ok := t.(*Object); ok && obj.ID == building.ID {
				return This
			}
		}
		return t
	}

	finalized := &Object{
		ID:     NextObjectID(),
		Name:   name,
		Parent: parent,
	}
	out := make([]Property, len(props))
	for i, p := range props {
		out[i] = Property{Name: p.Name, Type: Transform(p.Type, rewrite)}
	}
	finalized.Properties = out
	return finalized
}
