/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package formula

// Node is the interface for all AST nodes
type Node interface {
	node()
}

// NumberLit represents a numeric literal
type NumberLit struct {
	Value float64
}

func (n *NumberLit) node() {}

// Ident represents a field reference
type Ident struct {
	Name string
}

func (n *Ident) node() {}

// BinaryOp represents a binary arithmetic operation
type BinaryOp struct {
	Op    TokenType
	Left  Node
	Right Node
}

func (n *BinaryOp) node() {}

// UnaryOp represents unary minus
type UnaryOp struct {
	Op   TokenType
	Expr Node
}

func (n *UnaryOp) node() {}

// CallExpr represents a built-in function call
type CallExpr struct {
	Func string
	Args []Node
}

func (n *CallExpr) node() {}
