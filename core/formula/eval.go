/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package formula

import (
	"fmt"
	"math"
)

// FieldGetter resolves a field reference to its numeric value. Row evaluation
// coerces record values; aggregate evaluation reads bucket sums.
type FieldGetter func(name string) (float64, error)

// Evaluator evaluates a compiled AST against a field getter
type Evaluator struct {
	getField FieldGetter
}

// NewEvaluator creates an evaluator bound to a field getter
func NewEvaluator(getField FieldGetter) *Evaluator {
	return &Evaluator{getField: getField}
}

// Eval evaluates the AST and returns the numeric result
func (e *Evaluator) Eval(node Node) (float64, error) {
	switch n := node.(type) {
	case *NumberLit:
		return n.Value, nil

	case *Ident:
		return e.getField(n.Name)

	case *UnaryOp:
		v, err := e.Eval(n.Expr)
		if err != nil {
			return 0, err
		}
		return -v, nil

	case *BinaryOp:
		return e.evalBinary(n)

	case *CallExpr:
		return e.evalCall(n)
	}

	return 0, fmt.Errorf("unknown node type %T", node)
}

func (e *Evaluator) evalBinary(n *BinaryOp) (float64, error) {
	left, err := e.Eval(n.Left)
	if err != nil {
		return 0, err
	}
	right, err := e.Eval(n.Right)
	if err != nil {
		return 0, err
	}

	switch n.Op {
	case TOKEN_PLUS:
		return left + right, nil
	case TOKEN_MINUS:
		return left - right, nil
	case TOKEN_STAR:
		return left * right, nil
	case TOKEN_SLASH:
		return left / right, nil
	case TOKEN_PERCENT:
		return math.Mod(left, right), nil
	case TOKEN_POWER:
		return math.Pow(left, right), nil
	}
	return 0, fmt.Errorf("unknown operator %v", n.Op)
}

func (e *Evaluator) evalCall(n *CallExpr) (float64, error) {
	switch n.Func {
	case "IFERROR":
		return e.evalIferror(n.Args)
	case "DIV":
		return e.evalDiv(n.Args)
	}
	return 0, fmt.Errorf("unknown function %q", n.Func)
}

// evalIferror returns the first argument, or the fallback (default 0) when
// evaluating it fails or yields a non-finite value.
func (e *Evaluator) evalIferror(args []Node) (float64, error) {
	if len(args) < 1 || len(args) > 2 {
		return 0, fmt.Errorf("IFERROR expects 1 or 2 arguments, got %d", len(args))
	}
	v, err := e.Eval(args[0])
	if err == nil && isFinite(v) {
		return v, nil
	}
	if len(args) == 2 {
		return e.Eval(args[1])
	}
	return 0, nil
}

// evalDiv divides the first argument by the second. A non-finite quotient
// resolves to the third argument when given, and is an evaluation error
// otherwise so that an enclosing IFERROR (explicit or global) catches it.
func (e *Evaluator) evalDiv(args []Node) (float64, error) {
	if len(args) < 2 || len(args) > 3 {
		return 0, fmt.Errorf("DIV expects 2 or 3 arguments, got %d", len(args))
	}
	a, err := e.Eval(args[0])
	if err != nil {
		return 0, err
	}
	b, err := e.Eval(args[1])
	if err != nil {
		return 0, err
	}
	q := a / b
	if isFinite(q) {
		return q, nil
	}
	if len(args) == 3 {
		return e.Eval(args[2])
	}
	return 0, fmt.Errorf("division result is not finite")
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
