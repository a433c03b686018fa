package parser

import (
	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/diag"
	"github.com/swarmlang/swarm/internal/lexer"
)

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.WHILE:
		return p.parseWhileStatement()
	case lexer.ENUMERATE:
		return p.parseEnumerateStatement()
	case lexer.WITH:
		return p.parseWithStatement()
	case lexer.CONTINUE:
		start := p.curToken.Pos
		p.consumeSemicolon()
		return &ast.ContinueStatement{Position: start}
	case lexer.BREAK:
		start := p.curToken.Pos
		p.consumeSemicolon()
		return &ast.BreakStatement{Position: start}
	case lexer.RETURN:
		return p.parseReturnStatement()
	case lexer.TYPE:
		return p.parseTypeBody()
	default:
		return p.parseSimpleStatement()
	}
}

// consumeSemicolon advances onto a trailing ';' if present, leaving
// curToken on the statement's last real token otherwise. The caller's
// enclosing loop always issues the next nextToken().
func (p *Parser) consumeSemicolon() {
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
}

func (p *Parser) parseIfStatement() ast.Statement {
	start := p.curToken.Pos
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlockStatements()
	return &ast.IfStatement{Position: start, Cond: cond, Then: body}
}

func (p *Parser) parseWhileStatement() ast.Statement {
	start := p.curToken.Pos
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlockStatements()
	return &ast.WhileStatement{Position: start, Cond: cond, Body: body}
}

func (p *Parser) parseEnumerateStatement() ast.Statement {
	start := p.curToken.Pos
	p.nextToken()
	target := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.AS) {
		return nil
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	valueID := &ast.Identifier{Position: p.curToken.Pos, Name: p.curToken.Literal}

	var indexID *ast.Identifier
	if p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		indexID = &ast.Identifier{Position: p.curToken.Pos, Name: p.curToken.Literal}
	}

	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlockStatements()
	return &ast.EnumerateStatement{Position: start, Target: target, ValueId: valueID, IndexId: indexID, Body: body}
}

func (p *Parser) parseWithStatement() ast.Statement {
	start := p.curToken.Pos
	p.nextToken()
	resource := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.AS) {
		return nil
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	id := &ast.Identifier{Position: p.curToken.Pos, Name: p.curToken.Literal}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlockStatements()
	return &ast.WithStatement{Position: start, Resource: resource, Id: id, Body: body}
}

func (p *Parser) parseReturnStatement() ast.Statement {
	start := p.curToken.Pos
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
		return &ast.ReturnStatement{Position: start}
	}
	p.nextToken()
	val := p.parseExpression(LOWEST)
	p.consumeSemicolon()
	return &ast.ReturnStatement{Position: start, Value: val}
}

// compoundAssignOps desugar `x op= v` into `x = x op v`.
var compoundAssignOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.PLUS_EQ:    ast.OpAdd,
	lexer.MINUS_EQ:   ast.OpSubtract,
	lexer.STAR_EQ:    ast.OpMultiply,
	lexer.SLASH_EQ:   ast.OpDivide,
	lexer.CARET_EQ:   ast.OpPower,
	lexer.PERCENT_EQ: ast.OpModulus,
	lexer.AND_EQ:     ast.OpAnd,
	lexer.OR_EQ:      ast.OpOr,
}

// parseSimpleStatement handles variable declarations and expression
// statements (including assignment), which the grammar cannot tell apart
// until it has scanned a full left-hand side: `x: T = v;`, `x = v;`,
// `a.b = v;`, `f(x);` all begin identically at the token level.
func (p *Parser) parseSimpleStatement() ast.Statement {
	start := p.curToken.Pos
	shared := false
	if p.curTokenIs(lexer.SHARED) {
		shared = true
		p.nextToken()
	}

	if p.curTokenIs(lexer.IDENT) && p.peekTokenIs(lexer.COLON) {
		id := &ast.Identifier{Position: p.curToken.Pos, Name: p.curToken.Literal}
		p.nextToken() // ':'
		p.nextToken() // first type token
		declaredType := p.parseTypeExpr()

		if p.peekTokenIs(lexer.ASSIGN) {
			p.nextToken() // '='
			p.nextToken() // value start
			val := p.parseExpression(LOWEST)
			p.consumeSemicolon()
			id.Type = declaredType
			return &ast.VariableDecl{Position: start, Id: id, Value: val, Shared: shared}
		}
		p.consumeSemicolon()
		return &ast.UninitializedVariableDecl{Position: start, Id: id, DeclaredType: declaredType, Shared: shared}
	}

	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}

	if op, ok := compoundAssignOps[p.peekToken.Type]; ok {
		p.nextToken() // the compound operator
		p.nextToken() // value start
		val := p.parseExpression(LOWEST)
		p.consumeSemicolon()
		combined := &ast.BinaryExpr{Position: start, Op: op, Left: expr, Right: val}
		if id, ok := expr.(*ast.Identifier); ok {
			return &ast.VariableDecl{Position: start, Id: id, Value: combined, Shared: shared}
		}
		if shared {
			p.diags.Add(diag.ParseErrorf(start, p.source, "`shared` is only valid on a variable declaration"))
		}
		return &ast.ExpressionStatement{Position: start, Expr: &ast.AssignExpr{Position: start, Dest: expr, Value: combined}}
	}

	if p.peekTokenIs(lexer.ASSIGN) {
		p.nextToken() // '='
		p.nextToken() // value start
		val := p.parseExpression(LOWEST)
		p.consumeSemicolon()

		if id, ok := expr.(*ast.Identifier); ok {
			return &ast.VariableDecl{Position: start, Id: id, Value: val, Shared: shared}
		}
		if shared {
			p.diags.Add(diag.ParseErrorf(start, p.source, "`shared` is only valid on a variable declaration"))
		}
		return &ast.ExpressionStatement{Position: start, Expr: &ast.AssignExpr{Position: start, Dest: expr, Value: val}}
	}

	p.consumeSemicolon()
	return &ast.ExpressionStatement{Position: start, Expr: expr}
}
