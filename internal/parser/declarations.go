package parser

import (
	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/lexer"
)

// parseTypeBody parses `type Name [(Parent)] { properties; constructor }`.
func (p *Parser) parseTypeBody() ast.Statement {
	start := p.curToken.Pos
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	name := p.curToken.Literal

	var parent *ast.Identifier
	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		parent = &ast.Identifier{Position: p.curToken.Pos, Name: p.curToken.Literal}
		if !p.expectPeek(lexer.RPAREN) {
			return nil
		}
	}

	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}

	tb := &ast.TypeBody{Position: start, Name: name, Parent: parent}
	p.nextToken()
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.CONSTRUCTOR) {
			tb.Constructors = append(tb.Constructors, p.parseConstructorDecl())
		} else {
			if prop := p.parsePropertyDecl(); prop != nil {
				tb.Properties = append(tb.Properties, prop)
			}
		}
		p.nextToken()
	}
	return tb
}

// parsePropertyDecl parses `[shared] name = value;` or the uninitialized
// form `[shared] name: Type;`.
func (p *Parser) parsePropertyDecl() *ast.PropertyDecl {
	start := p.curToken.Pos
	shared := false
	if p.curTokenIs(lexer.SHARED) {
		shared = true
		p.nextToken()
	}
	if !p.curTokenIs(lexer.IDENT) {
		p.noPrefixParseFnError(p.curToken.Type)
		return nil
	}
	name := p.curToken.Literal

	if p.peekTokenIs(lexer.COLON) {
		p.nextToken()
		p.nextToken()
		declType := p.parseTypeExpr()
		p.consumeSemicolon()
		return &ast.PropertyDecl{Position: start, Name: name, Shared: shared, DeclaredType: declType}
	}

	if !p.expectPeek(lexer.ASSIGN) {
		return nil
	}
	p.nextToken()
	val := p.parseExpression(LOWEST)
	p.consumeSemicolon()
	return &ast.PropertyDecl{Position: start, Name: name, Shared: shared, Value: val}
}

// parseConstructorDecl parses `constructor(params) [from Parent(args)] { body }`.
func (p *Parser) parseConstructorDecl() *ast.ConstructorDecl {
	start := p.curToken.Pos
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	params := p.parseFunctionParams()

	var parentName *ast.Identifier
	var parentArgs []ast.Expression
	if p.peekTokenIs(lexer.FROM) {
		p.nextToken()
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		parentName = &ast.Identifier{Position: p.curToken.Pos, Name: p.curToken.Literal}
		if !p.expectPeek(lexer.LPAREN) {
			return nil
		}
		parentArgs = p.parseCallArguments()
	}

	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlockStatements()

	return &ast.ConstructorDecl{
		Position:   start,
		Params:     params,
		ParentName: parentName,
		ParentArgs: parentArgs,
		Body:       body,
	}
}
