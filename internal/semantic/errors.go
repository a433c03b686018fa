package semantic

import (
	"fmt"

	"github.com/swarmlang/swarm/internal/ast"
)

// FreeIdentifierError reports a reference to a name with no binding in any
// enclosing scope or object context.
type FreeIdentifierError struct {
	Name string
	Pos  ast.Position
}

func (e *FreeIdentifierError) Error() string {
	return fmt.Sprintf("undeclared identifier %q", e.Name)
}

// RedeclarationError reports a second declaration of a name already
// present in the current scope, naming the first declaration's position.
type RedeclarationError struct {
	Name            string
	Pos             ast.Position
	FirstDeclaredAt ast.Position
}

func (e *RedeclarationError) Error() string {
	return fmt.Sprintf("%q redeclared in this scope (first declared at %s)", e.Name, e.FirstDeclaredAt)
}

// DuplicateMapKeyError reports a map literal with the same key twice.
type DuplicateMapKeyError struct {
	Key string
	Pos ast.Position
}

func (e *DuplicateMapKeyError) Error() string {
	return fmt.Sprintf("duplicate map key %q", e.Key)
}

// DuplicateSuperclassError reports two `extends`/parent clauses naming the
// same supertype, or two constructors calling the same parent constructor.
type DuplicateSuperclassError struct {
	Name string
	Pos  ast.Position
}

func (e *DuplicateSuperclassError) Error() string {
	return fmt.Sprintf("duplicate parent reference to %q", e.Name)
}

// SharedInTypeBodyError reports a `shared` qualifier applied to a property
// inside a type body, which is forbidden.
type SharedInTypeBodyError struct {
	Name string
	Pos  ast.Position
}

func (e *SharedInTypeBodyError) Error() string {
	return fmt.Sprintf("property %q of a type body cannot be declared shared", e.Name)
}

// InvalidParentError reports a `from Parent(...)` constructor call whose
// target does not name a declared parent of the enclosing type.
type InvalidParentError struct {
	Name string
	Pos  ast.Position
}

func (e *InvalidParentError) Error() string {
	return fmt.Sprintf("%q is not a declared parent of this type", e.Name)
}

// NotATypeNameError reports an identifier used in type position that does
// not resolve to a Type-kind symbol.
type NotATypeNameError struct {
	Name string
	Pos  ast.Position
}

func (e *NotATypeNameError) Error() string {
	return fmt.Sprintf("%q does not name a type", e.Name)
}
