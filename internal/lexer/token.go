// Package lexer tokenizes Swarm source text for the parser.
package lexer

import "github.com/swarmlang/swarm/internal/ast"

// TokenType identifies the lexical class of a Token.
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	IDENT
	NUMBER
	STRING
	TRUE
	FALSE

	// Keywords
	ENUMERATE
	SHARED
	AS
	WITH
	MAP
	ENUMERABLE
	IF
	WHILE
	CONTINUE
	BREAK
	RETURN
	FN
	OF
	TYPE
	INCLUDE
	CONSTRUCTOR
	FROM
	DEFER
	USE

	// Primitive type names
	STRING_TYPE
	NUMBER_TYPE
	BOOL_TYPE
	VOID_TYPE

	// Punctuation
	LBRACE
	RBRACE
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	LT
	GT
	SEMICOLON
	COLON
	COMMA
	ASSIGN
	DOT
	ARROW
	MINUSMINUS

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	CARET
	PERCENT
	AND
	OR
	NOT
	EQ
	NOT_EQ
	LTE
	GTE
	PLUS_EQ
	MINUS_EQ
	STAR_EQ
	SLASH_EQ
	CARET_EQ
	PERCENT_EQ
	AND_EQ
	OR_EQ
)

var keywords = map[string]TokenType{
	"enumerate":   ENUMERATE,
	"shared":      SHARED,
	"as":          AS,
	"with":        WITH,
	"map":         MAP,
	"enumerable":  ENUMERABLE,
	"if":          IF,
	"while":       WHILE,
	"true":        TRUE,
	"false":       FALSE,
	"continue":    CONTINUE,
	"break":       BREAK,
	"return":      RETURN,
	"fn":          FN,
	"of":          OF,
	"type":        TYPE,
	"include":     INCLUDE,
	"constructor": CONSTRUCTOR,
	"from":        FROM,
	"defer":       DEFER,
	"use":         USE,
	"string":      STRING_TYPE,
	"number":      NUMBER_TYPE,
	"bool":        BOOL_TYPE,
	"void":        VOID_TYPE,
}

var tokenNames = []string{
	ILLEGAL: "ILLEGAL", EOF: "EOF",
	IDENT: "IDENT", NUMBER: "NUMBER", STRING: "STRING", TRUE: "TRUE", FALSE: "FALSE",
	ENUMERATE: "ENUMERATE", SHARED: "SHARED", AS: "AS", WITH: "WITH", MAP: "MAP",
	ENUMERABLE: "ENUMERABLE", IF: "IF", WHILE: "WHILE", CONTINUE: "CONTINUE",
	BREAK: "BREAK", RETURN: "RETURN", FN: "FN", OF: "OF", TYPE: "TYPE",
	INCLUDE: "INCLUDE", CONSTRUCTOR: "CONSTRUCTOR", FROM: "FROM", DEFER: "DEFER", USE: "USE",
	STRING_TYPE: "STRING_TYPE", NUMBER_TYPE: "NUMBER_TYPE", BOOL_TYPE: "BOOL_TYPE", VOID_TYPE: "VOID_TYPE",
	LBRACE: "LBRACE", RBRACE: "RBRACE", LPAREN: "LPAREN", RPAREN: "RPAREN",
	LBRACKET: "LBRACKET", RBRACKET: "RBRACKET", LT: "LT", GT: "GT",
	SEMICOLON: "SEMICOLON", COLON: "COLON", COMMA: "COMMA", ASSIGN: "ASSIGN",
	DOT: "DOT", ARROW: "ARROW", MINUSMINUS: "MINUSMINUS",
	PLUS: "PLUS", MINUS: "MINUS", STAR: "STAR", SLASH: "SLASH", CARET: "CARET",
	PERCENT: "PERCENT", AND: "AND", OR: "OR", NOT: "NOT", EQ: "EQ", NOT_EQ: "NOT_EQ",
	LTE: "LTE", GTE: "GTE", PLUS_EQ: "PLUS_EQ", MINUS_EQ: "MINUS_EQ",
	STAR_EQ: "STAR_EQ", SLASH_EQ: "SLASH_EQ", CARET_EQ: "CARET_EQ",
	PERCENT_EQ: "PERCENT_EQ", AND_EQ: "AND_EQ", OR_EQ: "OR_EQ",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return "UNKNOWN"
}

// LookupIdent classifies ident as a keyword TokenType, or IDENT if it isn't
// one.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Token is one lexical unit: its class, literal text, and source position.
type Token struct {
	Type    TokenType
	Literal string
	Pos     ast.Position
}
