package ast

import "testing"

func TestPrimitiveIdentity(t *testing.T) {
	if !Number.Equals(Number) {
		t.Errorf("Number.Equals(Number) = false, want true")
	}
	if Number.Equals(String) {
		t.Errorf("Number.Equals(String) = true, want false")
	}
	if Number.Kind() != KindNumber {
		t.Errorf("Number.Kind() = %v, want KindNumber", Number.Kind())
	}
}

func TestContainerEquality(t *testing.T) {
	a := &Enumerable{Inner: Number}
	b := &Enumerable{Inner: Number}
	c := &Enumerable{Inner: String}

	if !a.Equals(b) {
		t.Errorf("Enumerable<Number>.Equals(Enumerable<Number>) = false, want true")
	}
	if a.Equals(c) {
		t.Errorf("Enumerable<Number>.Equals(Enumerable<String>) = true, want false")
	}
}

func TestArityAndFinalReturn(t *testing.T) {
	// (Number) -> (String) -> Boolean
	fn := &Lambda1{Param: Number, Returns: &Lambda1{Param: String, Returns: &Lambda0{Returns: Boolean}}}

	if got := Arity(fn); got != 2 {
		t.Errorf("Arity() = %d, want 2", got)
	}
	if got := FinalReturn(fn); !got.Equals(Boolean) {
		t.Errorf("FinalReturn() = %v, want Boolean", got)
	}
	if !IsCallable(fn) {
		t.Errorf("IsCallable(Lambda1) = false, want true")
	}
	if IsCallable(Number) {
		t.Errorf("IsCallable(Number) = true, want false")
	}
}

func TestObjectSubtyping(t *testing.T) {
	base := &Object{ID: NextObjectID(), Name: "Base"}
	derived := &Object{ID: NextObjectID(), Name: "Derived", Parent: base}
	unrelated := &Object{ID: NextObjectID(), Name: "Other"}

	if !derived.IsSubtypeOf(base) {
		t.Errorf("Derived.IsSubtypeOf(Base) = false, want true")
	}
	if !derived.IsSubtypeOf(derived) {
		t.Errorf("Derived.IsSubtypeOf(Derived) = false, want true")
	}
	if derived.IsSubtypeOf(unrelated) {
		t.Errorf("Derived.IsSubtypeOf(Other) = true, want false")
	}
}

func TestObjectPropertyLookupWalksParent(t *testing.T) {
	base := &Object{ID: NextObjectID(), Name: "Base", Properties: []Property{{Name: "x", Type: Number}}}
	derived := &Object{ID: NextObjectID(), Name: "Derived", Parent: base, Properties: []Property{{Name: "y", Type: String}}}

	if typ, ok := derived.PropertyType("x"); !ok || !typ.Equals(Number) {
		t.Errorf("PropertyType(x) = (%v, %v), want (Number, true)", typ, ok)
	}
	if typ, ok := derived.PropertyType("y"); !ok || !typ.Equals(String) {
		t.Errorf("PropertyType(y) = (%v, %v), want (String, true)", typ, ok)
	}
	if _, ok := derived.PropertyType("z"); ok {
		t.Errorf("PropertyType(z) = (_, true), want false")
	}
}

func TestIsAssignableToReflexive(t *testing.T) {
	cases := []Type{Number, String, Boolean, Unit, Void, &Enumerable{Inner: Number}, &Map{Inner: String}}
	for _, c := range cases {
		if !IsAssignableTo(c, c) {
			t.Errorf("IsAssignableTo(%v, %v) = false, want true", c, c)
		}
	}
}

func TestIsAssignableToLambdaVariance(t *testing.T) {
	base := &Object{ID: NextObjectID(), Name: "Base"}
	derived := &Object{ID: NextObjectID(), Name: "Derived", Parent: base}

	// (Derived) -> Derived is assignable to (Derived) -> Base: covariant return.
	narrow := &Lambda1{Param: derived, Returns: derived}
	wideReturn := &Lambda1{Param: derived, Returns: base}
	if !IsAssignableTo(narrow, wideReturn) {
		t.Errorf("covariant return: IsAssignableTo(narrow, wideReturn) = false, want true")
	}

	// (Base) -> Derived is assignable to (Derived) -> Derived: contravariant param.
	wideParam := &Lambda1{Param: base, Returns: derived}
	if !IsAssignableTo(wideParam, narrow) {
		t.Errorf("contravariant param: IsAssignableTo(wideParam, narrow) = false, want true")
	}
	if IsAssignableTo(narrow, wideParam) {
		t.Errorf("IsAssignableTo(narrow, wideParam) = true, want false")
	}
}

func TestIsAssignableToObjectSubtype(t *testing.T) {
	base := &Object{ID: NextObjectID(), Name: "Base"}
	derived := &Object{ID: NextObjectID(), Name: "Derived", Parent: base}

	if !IsAssignableTo(derived, base) {
		t.Errorf("IsAssignableTo(Derived, Base) = false, want true")
	}
	if IsAssignableTo(base, derived) {
		t.Errorf("IsAssignableTo(Base, Derived) = true, want false")
	}
}

func TestDisambiguateStaticallyResolvesIdentifier(t *testing.T) {
	obj := &Object{ID: NextObjectID(), Name: "Widget"}
	id := &Identifier{Name: "Widget", Symbol: &SemanticSymbol{Name: "Widget", Type: obj, Kind: SymVariable}}
	amb := &Ambiguous{IDName: "Widget", Id: id}

	got, err := DisambiguateStatically(amb)
	if err != nil {
		t.Fatalf("DisambiguateStatically() error = %v", err)
	}
	if !got.Equals(obj) {
		t.Errorf("DisambiguateStatically() = %v, want %v", got, obj)
	}
}

func TestDisambiguateStaticallyUnresolved(t *testing.T) {
	amb := &Ambiguous{IDName: "Missing"}
	if _, err := DisambiguateStatically(amb); err == nil {
		t.Errorf("DisambiguateStatically() error = nil, want UnresolvedAmbiguousTypeError")
	}
}

func TestDisambiguateStaticallyNestedInContainer(t *testing.T) {
	obj := &Object{ID: NextObjectID(), Name: "Widget"}
	id := &Identifier{Name: "Widget", Symbol: &SemanticSymbol{Name: "Widget", Type: obj, Kind: SymVariable}}
	amb := &Enumerable{Inner: &Ambiguous{IDName: "Widget", Id: id}}

	got, err := DisambiguateStatically(amb)
	if err != nil {
		t.Fatalf("DisambiguateStatically() error = %v", err)
	}
	en, ok := got.(*Enumerable)
	if !ok || !en.Inner.Equals(obj) {
		t.Errorf("DisambiguateStatically() = %v, want Enumerable<Widget>", got)
	}
}

func TestFinalizeObjectRewritesSelfReferenceToThis(t *testing.T) {
	building := &Object{ID: NextObjectID(), Name: "Node"}
	props := []Property{
		{Name: "next", Type: building},
		{Name: "value", Type: Number},
	}

	final := FinalizeObject("Node", nil, props, building)

	nextType, ok := final.PropertyType("next")
	if !ok || !nextType.Equals(This) {
		t.Errorf("PropertyType(next) = (%v, %v), want (This, true)", nextType, ok)
	}
	valType, ok := final.PropertyType("value")
	if !ok || !valType.Equals(Number) {
		t.Errorf("PropertyType(value) = (%v, %v), want (Number, true)", valType, ok)
	}
	if final.ID == building.ID {
		t.Errorf("FinalizeObject() reused building's id, want a fresh one")
	}
}

func TestNewSymbolLocationName(t *testing.T) {
	sym := NewSymbol("x", Number, NoPosition, false, SymVariable)
	want := "var_x_" + sym.UUID.String()
	if got := sym.LocationName(); got != want {
		t.Errorf("LocationName() = %q, want %q", got, want)
	}
}
