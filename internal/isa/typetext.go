package isa

import (
	"fmt"
	"strings"

	"github.com/swarmlang/swarm/internal/ast"
)

// ParseTypeString reconstructs an ast.Type from its String() rendering, as
// emitted into the textual ISA form's `t:<type>` operands. Object
// types round-trip by name only: the reconstructed Object carries no
// properties/parent/id, which is sufficient for the VM's FunctionRef/
// ObjectTypeRef resolution since a real run always
// resolves the name against the live type table rather than trusting the
// parsed stub's shape.
func ParseTypeString(s string) (ast.Type, error) {
	t, rest, err := parseType(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, fmt.Errorf("trailing input after type %q: %q", s, rest)
	}
	return t, nil
}

func parseType(s string) (ast.Type, string, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "Number"):
		return ast.Number, s[len("Number"):], nil
	case strings.HasPrefix(s, "String"):
		return ast.String, s[len("String"):], nil
	case strings.HasPrefix(s, "Boolean"):
		return ast.Boolean, s[len("Boolean"):], nil
	case strings.HasPrefix(s, "Type"):
		return ast.TypeType, s[len("Type"):], nil
	case strings.HasPrefix(s, "Unit"):
		return ast.Unit, s[len("Unit"):], nil
	case strings.HasPrefix(s, "Void"):
		return ast.Void, s[len("Void"):], nil
	case strings.HasPrefix(s, "Error"):
		return ast.ErrorType, s[len("Error"):], nil
	case strings.HasPrefix(s, "Opaque"):
		return ast.Opaque, s[len("Opaque"):], nil
	case strings.HasPrefix(s, "This"):
		return ast.This, s[len("This"):], nil
	case strings.HasPrefix(s, "Enumerable<"):
		inner, rest, err := parseAngled(s, "Enumerable<")
		if err != nil {
			return nil, "", err
		}
		t, _, err := parseType(inner)
		if err != nil {
			return nil, "", err
		}
		return &ast.Enumerable{Inner: t}, rest, nil
	case strings.HasPrefix(s, "Map<"):
		inner, rest, err := parseAngled(s, "Map<")
		if err != nil {
			return nil, "", err
		}
		t, _, err := parseType(inner)
		if err != nil {
			return nil, "", err
		}
		return &ast.Map{Inner: t}, rest, nil
	case strings.HasPrefix(s, "Resource<"):
		inner, rest, err := parseAngled(s, "Resource<")
		if err != nil {
			return nil, "", err
		}
		t, _, err := parseType(inner)
		if err != nil {
			return nil, "", err
		}
		return &ast.Resource{Yields: t}, rest, nil
	case strings.HasPrefix(s, "()"):
		rest := strings.TrimSpace(s[2:])
		rest = strings.TrimPrefix(rest, "->")
		ret, rest2, err := parseType(rest)
		if err != nil {
			return nil, "", err
		}
		return &ast.Lambda0{Returns: ret}, rest2, nil
	case strings.HasPrefix(s, "("):
		paramStr, rest, err := matchParens(s)
		if err != nil {
			return nil, "", err
		}
		param, _, err := parseType(paramStr)
		if err != nil {
			return nil, "", err
		}
		rest = strings.TrimSpace(rest)
		rest = strings.TrimPrefix(rest, "->")
		ret, rest2, err := parseType(rest)
		if err != nil {
			return nil, "", err
		}
		return &ast.Lambda1{Param: param, Returns: ret}, rest2, nil
	default:
		// Bare identifier: an Object type round-tripped by name only.
		name, rest := scanIdent(s)
		if name == "" {
			return nil, "", fmt.Errorf("cannot parse type from %q", s)
		}
		return &ast.Object{ID: ast.NextObjectID(), Name: name}, rest, nil
	}
}

func parseAngled(s, prefix string) (inner string, rest string, err error) {
	body := s[len(prefix):]
	depth := 1
	for i, r := range body {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return body[:i], body[i+1:], nil
			}
		}
	}
	return "", "", fmt.Errorf("unterminated %s in %q", prefix, s)
}

func matchParens(s string) (inner string, rest string, err error) {
	if len(s) == 0 || s[0] != '(' {
		return "", "", fmt.Errorf("expected '(' in %q", s)
	}
	depth := 1
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[1:i], s[i+1:], nil
			}
		}
	}
	return "", "", fmt.Errorf("unterminated '(' in %q", s)
}

func scanIdent(s string) (string, string) {
	i := 0
	for i < len(s) {
		c := s[i]
		if c == ' ' || c == ',' || c == ')' || c == '>' || c == '<' {
			break
		}
		i++
	}
	return s[:i], s[i:]
}
