package ast

import "github.com/google/uuid"

// SymbolKind classifies a SemanticSymbol.
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymFunction
	SymObjectProperty
	SymPrologueFunction
)

func (k SymbolKind) String() string {
	switch k {
	case SymVariable:
		return "Variable"
	case SymFunction:
		return "Function"
	case SymObjectProperty:
		return "ObjectProperty"
	case SymPrologueFunction:
		return "PrologueFunction"
	default:
		return "?"
	}
}

// SemanticSymbol is attached to identifier-bearing nodes once name
// analysis resolves them. The UUID uniquely disambiguates same-named
// symbols across nested scopes; lowering uses it as a location-name
// suffix.
type SemanticSymbol struct {
	UUID       uuid.UUID
	Name       string
	Type       Type
	DeclaredAt Position
	Shared     bool
	Kind       SymbolKind
}

// NewSymbol allocates a fresh symbol with a random UUID.
func NewSymbol(name string, t Type, declaredAt Position, shared bool, kind SymbolKind) *SemanticSymbol {
	return &SemanticSymbol{
		UUID:       uuid.New(),
		Name:       name,
		Type:       t,
		DeclaredAt: declaredAt,
		Shared:     shared,
		Kind:       kind,
	}
}

// LocationName returns the lowered variable-location name for this symbol:
// var_<name>_<uuid>.
func (s *SemanticSymbol) LocationName() string {
	return "var_" + s.Name + "_" + s.UUID.String()
}
