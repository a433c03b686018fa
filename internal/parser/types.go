package parser

import (
	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/diag"
	"github.com/swarmlang/swarm/internal/lexer"
)

// parseTypeExpr parses a type annotation: a primitive name, `enumerable of
// T`, `map of T`, an object-type identifier (left Ambiguous until name
// analysis resolves it), a parenthesized type, or a right-associative
// arrow chain built from any of those (`T -> T -> T`).
//
// Entry: curToken is the first token of the type. Exit: curToken is the
// type's last token.
func (p *Parser) parseTypeExpr() ast.Type {
	atom := p.parseTypeAtom()
	if atom == nil {
		return nil
	}
	if p.peekTokenIs(lexer.ARROW) {
		p.nextToken() // ->
		p.nextToken()
		ret := p.parseTypeExpr()
		return &ast.Lambda1{Param: atom, Returns: ret}
	}
	return atom
}

func (p *Parser) parseTypeAtom() ast.Type {
	switch p.curToken.Type {
	case lexer.NUMBER_TYPE:
		return ast.Number
	case lexer.STRING_TYPE:
		return ast.String
	case lexer.BOOL_TYPE:
		return ast.Boolean
	case lexer.VOID_TYPE:
		return ast.Void
	case lexer.ENUMERABLE:
		if !p.expectPeek(lexer.OF) {
			return nil
		}
		p.nextToken()
		inner := p.parseTypeExpr()
		return &ast.Enumerable{Inner: inner}
	case lexer.MAP:
		if !p.expectPeek(lexer.OF) {
			return nil
		}
		p.nextToken()
		inner := p.parseTypeExpr()
		return &ast.Map{Inner: inner}
	case lexer.IDENT:
		id := &ast.Identifier{Position: p.curToken.Pos, Name: p.curToken.Literal}
		return &ast.Ambiguous{IDName: id.Name, Id: id}
	case lexer.LPAREN:
		p.nextToken()
		inner := p.parseTypeExpr()
		if !p.expectPeek(lexer.RPAREN) {
			return nil
		}
		return inner
	default:
		p.diags.Add(diag.ParseErrorf(p.curToken.Pos, p.source, "expected a type, got %v", p.curToken.Type))
		return nil
	}
}
