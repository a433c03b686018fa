package parser

import (
	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/lexer"
)

// parseFunctionExpr parses `fn(params) [-> ReturnType] { body }`. Currying
// of multi-parameter functions into a Lambda1 chain happens during name
// analysis (which assigns the node's final Type); the AST node itself
// keeps the flat parameter list the source text wrote.
func (p *Parser) parseFunctionExpr() ast.Expression {
	start := p.curToken.Pos
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	params := p.parseFunctionParams()

	var returns ast.Type
	if p.peekTokenIs(lexer.ARROW) {
		p.nextToken()
		p.nextToken()
		returns = p.parseTypeExpr()
	}

	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlockStatements()

	return &ast.FunctionExpr{Position: start, Params: params, Returns: returns, Body: body}
}

// parseFunctionParams parses `(a: T, b: T)` starting with curToken on '('
// and leaving curToken on the matching ')'.
func (p *Parser) parseFunctionParams() []*ast.Identifier {
	var params []*ast.Identifier
	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		return params
	}
	p.nextToken()
	params = append(params, p.parseFunctionParam())
	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		params = append(params, p.parseFunctionParam())
	}
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return params
}

func (p *Parser) parseFunctionParam() *ast.Identifier {
	id := &ast.Identifier{Position: p.curToken.Pos, Name: p.curToken.Literal}
	if p.peekTokenIs(lexer.COLON) {
		p.nextToken()
		p.nextToken()
		id.Type = p.parseTypeExpr()
	}
	return id
}

// parseBlockStatements parses statements up to and including the closing
// '}'. curToken enters on '{' and exits on '}'.
func (p *Parser) parseBlockStatements() []ast.Statement {
	var stmts []ast.Statement
	p.nextToken()
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			stmts = append(stmts, stmt)
		}
		p.nextToken()
	}
	return stmts
}
