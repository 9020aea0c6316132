// Package token describes the source positions the front end attaches to
// every AST node.
package token

import "fmt"

// TokenType classifies the lexeme a token was built from.
type TokenType string

const (
	ILLEGAL TokenType = "ILLEGAL"
	IDENT   TokenType = "IDENT"
	INT     TokenType = "INT"
	TRUE    TokenType = "TRUE"
	FALSE   TokenType = "FALSE"

	LET    TokenType = "LET"
	MUT    TokenType = "MUT"
	FN     TokenType = "FN"
	STRUCT TokenType = "STRUCT"
	IF     TokenType = "IF"
	FOR    TokenType = "FOR"
	ASSERT TokenType = "ASSERT"
	AS     TokenType = "AS"

	AMPERSAND TokenType = "&"
	ASTERISK  TokenType = "*"
	ASSIGN    TokenType = "="
	LBRACKET  TokenType = "["
	LPAREN    TokenType = "("
	LBRACE    TokenType = "{"
	DOT       TokenType = "."
	PIPE      TokenType = "|"
	OPERATOR  TokenType = "OPERATOR"
)

// Token is a lexeme with its position in the source file.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int
	Column  int
	File    string
}

// Position renders the token location as file:line:col, omitting parts
// that are unknown.
func (t Token) Position() string {
	switch {
	case t.File != "" && t.Line > 0:
		return fmt.Sprintf("%s:%d:%d", t.File, t.Line, t.Column)
	case t.Line > 0:
		return fmt.Sprintf("%d:%d", t.Line, t.Column)
	case t.File != "":
		return t.File
	}
	return ""
}

// IsZero reports whether the token carries no position at all.
func (t Token) IsZero() bool {
	return t.Line == 0 && t.Column == 0 && t.File == "" && t.Lexeme == ""
}
