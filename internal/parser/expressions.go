package parser

import (
	"strconv"

	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/diag"
	"github.com/swarmlang/swarm/internal/lexer"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken.Type)
		return nil
	}
	left := prefix()

	for !p.peekTokenIs(lexer.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Position: p.curToken.Pos, Name: p.curToken.Literal}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	tok := p.curToken
	v, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		p.diags.Add(diag.ParseErrorf(tok.Pos, p.source, "invalid number literal %q", tok.Literal))
		return nil
	}
	return &ast.NumberLiteral{Position: tok.Pos, Value: v}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Position: p.curToken.Pos, Value: p.curToken.Literal}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Position: p.curToken.Pos, Value: p.curTokenIs(lexer.TRUE)}
}

func (p *Parser) parseUnaryExpr() ast.Expression {
	tok := p.curToken
	op := ast.OpNegative
	if tok.Type == lexer.NOT {
		op = ast.OpNot
	}
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	return &ast.UnaryExpr{Position: tok.Pos, Op: op, Operand: operand}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseEnumerationLiteral() ast.Expression {
	start := p.curToken.Pos
	lit := &ast.EnumerationLiteral{Position: start}
	if p.peekTokenIs(lexer.RBRACKET) {
		p.nextToken()
		return lit
	}
	p.nextToken()
	lit.Elements = append(lit.Elements, p.parseExpression(LOWEST))
	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		lit.Elements = append(lit.Elements, p.parseExpression(LOWEST))
	}
	if !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	return lit
}

func (p *Parser) parseMapLiteral() ast.Expression {
	start := p.curToken.Pos
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	lit := &ast.MapLiteral{Position: start}
	if p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()
		return lit
	}
	p.nextToken()
	lit.Entries = append(lit.Entries, p.parseMapEntry())
	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		lit.Entries = append(lit.Entries, p.parseMapEntry())
	}
	if !p.expectPeek(lexer.RBRACE) {
		return nil
	}
	return lit
}

func (p *Parser) parseMapEntry() *ast.MapEntry {
	start := p.curToken.Pos
	if !p.curTokenIs(lexer.IDENT) {
		p.diags.Add(diag.ParseErrorf(start, p.source, "expected map key identifier, got %v", p.curToken.Type))
		return nil
	}
	key := &ast.Identifier{Position: start, Name: p.curToken.Literal}
	if !p.expectPeek(lexer.COLON) {
		return nil
	}
	p.nextToken()
	value := p.parseExpression(LOWEST)
	return &ast.MapEntry{Position: start, Key: key, Value: value}
}

func (p *Parser) parseBinaryExpr(left ast.Expression) ast.Expression {
	tok := p.curToken
	op := binaryOpFor(tok.Type)
	prec := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(prec)
	return &ast.BinaryExpr{Position: tok.Pos, Op: op, Left: left, Right: right}
}

func binaryOpFor(t lexer.TokenType) ast.BinaryOp {
	switch t {
	case lexer.AND:
		return ast.OpAnd
	case lexer.OR:
		return ast.OpOr
	case lexer.EQ:
		return ast.OpEquals
	case lexer.NOT_EQ:
		return ast.OpNotEquals
	case lexer.PLUS:
		return ast.OpAdd
	case lexer.MINUS:
		return ast.OpSubtract
	case lexer.STAR:
		return ast.OpMultiply
	case lexer.SLASH:
		return ast.OpDivide
	case lexer.PERCENT:
		return ast.OpModulus
	case lexer.CARET:
		return ast.OpPower
	default:
		return ast.OpAdd
	}
}

func (p *Parser) parseNumericComparison(left ast.Expression) ast.Expression {
	tok := p.curToken
	var op ast.CompareOp
	switch tok.Type {
	case lexer.LT:
		op = ast.CmpLt
	case lexer.LTE:
		op = ast.CmpLte
	case lexer.GT:
		op = ast.CmpGt
	case lexer.GTE:
		op = ast.CmpGte
	}
	prec := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(prec)
	return &ast.NumericComparisonExpr{Position: tok.Pos, Op: op, Left: left, Right: right}
}

func (p *Parser) parseEnumerableAccess(left ast.Expression) ast.Expression {
	start := p.curToken.Pos
	p.nextToken()
	index := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	return &ast.EnumerableAccess{Position: start, Path: left, Index: index}
}

func (p *Parser) parseDotAccess(left ast.Expression) ast.Expression {
	start := p.curToken.Pos
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	name := &ast.Identifier{Position: p.curToken.Pos, Name: p.curToken.Literal}
	return &ast.DotAccess{Position: start, Path: left, Name: name}
}

func (p *Parser) parseCallExpr(left ast.Expression) ast.Expression {
	start := p.curToken.Pos
	call := &ast.CallExpr{Position: start, Callee: left}
	call.Args = p.parseCallArguments()
	return call
}

func (p *Parser) parseCallArguments() []ast.Expression {
	var args []ast.Expression
	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		return args
	}
	p.nextToken()
	args = append(args, p.parseExpression(LOWEST))
	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		args = append(args, p.parseExpression(LOWEST))
	}
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return args
}

func (p *Parser) parseDeferCallExpr() ast.Expression {
	start := p.curToken.Pos
	p.nextToken()
	inner := p.parseExpression(LOWEST)
	call, ok := inner.(*ast.CallExpr)
	if !ok {
		p.diags.Add(diag.ParseErrorf(start, p.source, "defer must be followed by a call expression"))
		return nil
	}
	return &ast.DeferCallExpr{Position: start, Call: call}
}
