/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package formula

import (
	"fmt"
	"strconv"
)

// Parser parses tokens into an AST
type Parser struct {
	lexer *Lexer
	cur   Token
}

// NewParser creates a new parser
func NewParser(input string) *Parser {
	return &Parser{lexer: NewLexer(input)}
}

func (p *Parser) advance() error {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

// Parse parses the input and returns the AST
func (p *Parser) Parse() (Node, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TOKEN_EOF {
		return nil, fmt.Errorf("unexpected token %q at position %d", p.cur.Value, p.cur.Pos)
	}
	return node, nil
}

// Precedence (low to high): +/-, */ // %, ** (right associative), unary -,
// function calls and parentheses.

func (p *Parser) parseExpr() (Node, error) {
	return p.parseAddSub()
}

func (p *Parser) parseAddSub() (Node, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}

	for p.cur.Type == TOKEN_PLUS || p.cur.Type == TOKEN_MINUS {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMulDiv() (Node, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}

	for p.cur.Type == TOKEN_STAR || p.cur.Type == TOKEN_SLASH || p.cur.Type == TOKEN_PERCENT {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePower() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	// Power is right-associative
	if p.cur.Type == TOKEN_POWER {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseUnary() (Node, error) {
	if p.cur.Type == TOKEN_MINUS {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: op, Expr: expr}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Node, error) {
	switch p.cur.Type {
	case TOKEN_NUMBER:
		val, err := strconv.ParseFloat(p.cur.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number: %s", p.cur.Value)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &NumberLit{Value: val}, nil

	case TOKEN_IDENT:
		name := p.cur.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type == TOKEN_LPAREN {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &CallExpr{Func: name, Args: args}, nil
		}
		return &Ident{Name: name}, nil

	case TOKEN_LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TOKEN_RPAREN {
			return nil, fmt.Errorf("expected ')' after expression")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr, nil

	case TOKEN_EOF:
		return nil, fmt.Errorf("unexpected end of expression")

	default:
		return nil, fmt.Errorf("unexpected token: %v", p.cur.Value)
	}
}

func (p *Parser) parseArgs() ([]Node, error) {
	// Skip '('
	if err := p.advance(); err != nil {
		return nil, err
	}

	var args []Node
	if p.cur.Type != TOKEN_RPAREN {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		for p.cur.Type == TOKEN_COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
	}

	if p.cur.Type != TOKEN_RPAREN {
		return nil, fmt.Errorf("expected ')' after arguments")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	return args, nil
}
