// Package parser implements a recursive-descent/Pratt parser for Swarm
// source text, producing the AST defined in internal/ast.
package parser

import (
	"github.com/swarmlang/swarm/internal/ast"
	"github.com/swarmlang/swarm/internal/diag"
	"github.com/swarmlang/swarm/internal/lexer"
)

// Precedence levels, lowest to highest.
const (
	_ int = iota
	LOWEST
	OR_PREC
	AND_PREC
	EQUALS
	LESSGREATER
	SUM
	PRODUCT
	POWER
	PREFIX
	CALL
	INDEX
	MEMBER
)

var precedences = map[lexer.TokenType]int{
	lexer.OR:       OR_PREC,
	lexer.AND:      AND_PREC,
	lexer.EQ:       EQUALS,
	lexer.NOT_EQ:   EQUALS,
	lexer.LT:       LESSGREATER,
	lexer.GT:       LESSGREATER,
	lexer.LTE:      LESSGREATER,
	lexer.GTE:      LESSGREATER,
	lexer.PLUS:     SUM,
	lexer.MINUS:    SUM,
	lexer.STAR:     PRODUCT,
	lexer.SLASH:    PRODUCT,
	lexer.PERCENT:  PRODUCT,
	lexer.CARET:    POWER,
	lexer.LPAREN:   CALL,
	lexer.LBRACKET: INDEX,
	lexer.DOT:      MEMBER,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser consumes a token stream and builds an AST, accumulating
// diag.Diagnostic ParseErrors rather than aborting on the first one so a
// single `compile` invocation reports every syntax error it can find.
type Parser struct {
	l      *lexer.Lexer
	source string
	file   string

	curToken  lexer.Token
	peekToken lexer.Token

	diags *diag.Diagnostics

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

// New creates a Parser reading from l.
func New(l *lexer.Lexer, file, source string) *Parser {
	p := &Parser{l: l, file: file, source: source, diags: &diag.Diagnostics{}}

	p.prefixParseFns = map[lexer.TokenType]prefixParseFn{
		lexer.IDENT:    p.parseIdentifier,
		lexer.NUMBER:   p.parseNumberLiteral,
		lexer.STRING:   p.parseStringLiteral,
		lexer.TRUE:     p.parseBooleanLiteral,
		lexer.FALSE:    p.parseBooleanLiteral,
		lexer.NOT:      p.parseUnaryExpr,
		lexer.MINUS:    p.parseUnaryExpr,
		lexer.LPAREN:   p.parseGroupedExpression,
		lexer.LBRACKET: p.parseEnumerationLiteral,
		lexer.MAP:      p.parseMapLiteral,
		lexer.FN:       p.parseFunctionExpr,
		lexer.DEFER:    p.parseDeferCallExpr,
	}
	p.infixParseFns = map[lexer.TokenType]infixParseFn{
		lexer.OR:       p.parseBinaryExpr,
		lexer.AND:      p.parseBinaryExpr,
		lexer.EQ:       p.parseBinaryExpr,
		lexer.NOT_EQ:   p.parseBinaryExpr,
		lexer.PLUS:     p.parseBinaryExpr,
		lexer.MINUS:    p.parseBinaryExpr,
		lexer.STAR:     p.parseBinaryExpr,
		lexer.SLASH:    p.parseBinaryExpr,
		lexer.PERCENT:  p.parseBinaryExpr,
		lexer.CARET:    p.parseBinaryExpr,
		lexer.LT:       p.parseNumericComparison,
		lexer.GT:       p.parseNumericComparison,
		lexer.LTE:      p.parseNumericComparison,
		lexer.GTE:      p.parseNumericComparison,
		lexer.LPAREN:   p.parseCallExpr,
		lexer.LBRACKET: p.parseEnumerableAccess,
		lexer.DOT:      p.parseDotAccess,
	}

	p.nextToken()
	p.nextToken()
	return p
}

// Diagnostics returns the accumulated ParseErrors.
func (p *Parser) Diagnostics() *diag.Diagnostics { return p.diags }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t lexer.TokenType) {
	p.diags.Add(diag.ParseErrorf(p.peekToken.Pos, p.source,
		"expected next token to be %v, got %v (%q) instead", t, p.peekToken.Type, p.peekToken.Literal))
}

func (p *Parser) noPrefixParseFnError(t lexer.TokenType) {
	p.diags.Add(diag.ParseErrorf(p.curToken.Pos, p.source, "no prefix parse function for %v found", t))
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

// ParseProgram parses an entire source unit.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}

	for p.curTokenIs(lexer.INCLUDE) || p.curTokenIs(lexer.USE) {
		if p.curTokenIs(lexer.INCLUDE) {
			if inc := p.parseIncludeStatement(); inc != nil {
				prog.Includes = append(prog.Includes, inc)
			}
		} else {
			if use := p.parseUseStatement(); use != nil {
				prog.Uses = append(prog.Uses, use)
			}
		}
	}

	for !p.curTokenIs(lexer.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		p.nextToken()
	}
	return prog
}

func (p *Parser) parseIncludeStatement() *ast.IncludeStatement {
	start := p.curToken.Pos
	if !p.expectPeek(lexer.STRING) {
		return nil
	}
	path := p.curToken.Literal
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	p.nextToken()
	return &ast.IncludeStatement{Position: start, Path: path}
}

func (p *Parser) parseUseStatement() *ast.UseStatement {
	start := p.curToken.Pos
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	name := p.curToken.Literal
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	p.nextToken()
	return &ast.UseStatement{Position: start, Name: name}
}
