/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package formula

// TokenType identifies the type of a lexed token
type TokenType int

const (
	TOKEN_EOF TokenType = iota
	TOKEN_NUMBER
	TOKEN_IDENT
	TOKEN_PLUS
	TOKEN_MINUS
	TOKEN_STAR
	TOKEN_SLASH
	TOKEN_PERCENT
	TOKEN_POWER
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_COMMA
)

// Token is a single lexed token
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}
