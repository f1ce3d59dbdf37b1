/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors

Package formula compiles user-supplied metric expressions into safe
evaluators. An expression is written against field names (raw or computed)
plus the built-ins IFERROR(value, fallback) and DIV(a, b, fallback); field
names may contain any characters other than operators, parentheses, commas
and whitespace. Expressions are parsed into an AST and interpreted - no
dynamic code generation, untrusted input cannot escape the evaluator.

Every expression yields two evaluators: a row evaluator that reads record
fields through numeric coercion, and an aggregate evaluator that reads the
sums of the referenced fields' aggregation buckets.
*/
package formula

import (
	"fmt"

	"github.com/pivora/pivora/core/records"
)

// Options is the global error-fallback policy. When enabled, the entire
// expression result is wrapped as IFERROR(result, FallbackValue) whether or
// not the author used IFERROR explicitly.
type Options struct {
	FallbackEnabled bool
	FallbackValue   float64
}

// Expression is a compiled formula ready for evaluation
type Expression struct {
	source string
	ast    Node
}

// Compile parses an expression string
func Compile(source string) (*Expression, error) {
	if source == "" {
		return nil, fmt.Errorf("empty expression")
	}
	parser := NewParser(source)
	ast, err := parser.Parse()
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return &Expression{source: source, ast: ast}, nil
}

// Source returns the original expression source
func (e *Expression) Source() string {
	return e.source
}

// Variables returns the field names the expression references, in first-use
// order. Built-in function names are not variables. This is how
// computed-on-computed formulas resolve without a declaration step.
func (e *Expression) Variables() []string {
	seen := make(map[string]bool)
	var names []string
	var walk func(Node)
	walk = func(node Node) {
		switch n := node.(type) {
		case *Ident:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case *UnaryOp:
			walk(n.Expr)
		case *BinaryOp:
			walk(n.Left)
			walk(n.Right)
		case *CallExpr:
			for _, arg := range n.Args {
				walk(arg)
			}
		}
	}
	walk(e.ast)
	return names
}

// EvalRow evaluates the expression against a single record. Referenced
// fields are coerced to numbers; a missing field is an error. The returned
// error is the "fail soft" signal: callers store null for the row value and
// keep rendering.
func (e *Expression) EvalRow(rec records.Record, opts Options) (float64, error) {
	getter := func(name string) (float64, error) {
		v, ok := rec.Field(name)
		if !ok {
			return 0, fmt.Errorf("unknown field %q", name)
		}
		return records.Coerce(v), nil
	}
	return e.eval(getter, opts)
}

// EvalAggregate evaluates the expression over aggregated data. The sum
// accessor maps any referenced field name to the sum of that field's bucket
// at the current hierarchy node and column key. Failures resolve to 0.
func (e *Expression) EvalAggregate(sum func(name string) float64, opts Options) float64 {
	getter := func(name string) (float64, error) {
		return sum(name), nil
	}
	v, err := e.eval(getter, opts)
	if err != nil {
		return 0
	}
	return v
}

func (e *Expression) eval(getter FieldGetter, opts Options) (float64, error) {
	v, err := NewEvaluator(getter).Eval(e.ast)
	if opts.FallbackEnabled {
		if err != nil || !isFinite(v) {
			return opts.FallbackValue, nil
		}
		return v, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}
