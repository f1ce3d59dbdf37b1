/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// delimiters are the characters that terminate a field-name token. Field
// names coming from spreadsheet headers are not identifier-shaped, so the
// lexer cannot assume letter/digit/underscore syntax: a token is any run of
// characters between operator/punctuation delimiters, trimmed of surrounding
// whitespace. Two operands are never adjacent in this grammar, so a name may
// even contain internal spaces ("ad spend usd").
const delimiters = "+-*/%(),"

// Lexer tokenizes a formula string
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new lexer for the given input
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

func (l *Lexer) ch() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peek() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.ch() {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	startPos := l.pos
	switch l.ch() {
	case 0:
		return Token{Type: TOKEN_EOF, Pos: startPos}, nil
	case '+':
		l.pos++
		return Token{Type: TOKEN_PLUS, Value: "+", Pos: startPos}, nil
	case '-':
		l.pos++
		return Token{Type: TOKEN_MINUS, Value: "-", Pos: startPos}, nil
	case '*':
		l.pos++
		if l.ch() == '*' {
			l.pos++
			return Token{Type: TOKEN_POWER, Value: "**", Pos: startPos}, nil
		}
		return Token{Type: TOKEN_STAR, Value: "*", Pos: startPos}, nil
	case '/':
		l.pos++
		return Token{Type: TOKEN_SLASH, Value: "/", Pos: startPos}, nil
	case '%':
		l.pos++
		return Token{Type: TOKEN_PERCENT, Value: "%", Pos: startPos}, nil
	case '(':
		l.pos++
		return Token{Type: TOKEN_LPAREN, Value: "(", Pos: startPos}, nil
	case ')':
		l.pos++
		return Token{Type: TOKEN_RPAREN, Value: ")", Pos: startPos}, nil
	case ',':
		l.pos++
		return Token{Type: TOKEN_COMMA, Value: ",", Pos: startPos}, nil
	}

	return l.readWord(startPos)
}

// readWord reads a run of non-delimiter characters and classifies it as a
// number literal if it parses as one, otherwise as a field-name token.
func (l *Lexer) readWord(startPos int) (Token, error) {
	end := l.pos
	for end < len(l.input) && !strings.ContainsRune(delimiters, rune(l.input[end])) {
		end++
	}
	word := strings.TrimSpace(l.input[l.pos:end])
	l.pos = end

	if word == "" {
		return Token{}, fmt.Errorf("unexpected character %q at position %d", l.input[startPos], startPos)
	}
	if _, err := strconv.ParseFloat(word, 64); err == nil {
		return Token{Type: TOKEN_NUMBER, Value: word, Pos: startPos}, nil
	}
	return Token{Type: TOKEN_IDENT, Value: word, Pos: startPos}, nil
}
