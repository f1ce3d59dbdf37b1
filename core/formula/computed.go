/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package formula

import "github.com/pivora/pivora/core/records"

// Def is a named computed-field definition. A computed field, once defined,
// is addressable like any raw field: inside other formulas, as a grouping
// field, or as a metric.
type Def struct {
	Name       string
	Expression string
	expr       *Expression // nil when the source failed to compile
}

// NewDef compiles a computed-field definition. A definition that fails to
// compile is kept: it evaluates to null per row and 0 per aggregate, so one
// bad formula never aborts a recompute.
func NewDef(name, expression string) Def {
	expr, err := Compile(expression)
	if err != nil {
		return Def{Name: name, Expression: expression}
	}
	return Def{Name: name, Expression: expression, expr: expr}
}

// Engine applies computed-field definitions to record sets
type Engine struct {
	defs []Def
	opts Options
}

// NewEngine creates an engine for the given definitions and fallback policy
func NewEngine(defs []Def, opts Options) *Engine {
	return &Engine{defs: defs, opts: opts}
}

// Options returns the engine's fallback policy
func (e *Engine) Options() Options {
	return e.opts
}

// Defs returns the engine's definitions in declaration order
func (e *Engine) Defs() []Def {
	return e.defs
}

// Lookup returns the expression for a computed field name. When a name is
// defined more than once the later definition wins.
func (e *Engine) Lookup(name string) (*Expression, bool) {
	for i := len(e.defs) - 1; i >= 0; i-- {
		if e.defs[i].Name == name {
			return e.defs[i].expr, e.defs[i].expr != nil
		}
	}
	return nil, false
}

// Apply evaluates every definition against every record, in declaration
// order, and returns a new record set with the derived fields set. Later
// definitions see the fields produced by earlier ones, and a repeated name
// overwrites the earlier value. A failed evaluation stores nil. The input
// records are never mutated; with no definitions the input is returned as-is.
func (e *Engine) Apply(recs []records.Record) []records.Record {
	if len(e.defs) == 0 || len(recs) == 0 {
		return recs
	}
	out := make([]records.Record, len(recs))
	for i, rec := range recs {
		row := rec.Clone()
		for _, def := range e.defs {
			if def.expr == nil {
				row[def.Name] = nil
				continue
			}
			v, err := def.expr.EvalRow(row, e.opts)
			if err != nil {
				row[def.Name] = nil
				continue
			}
			row[def.Name] = v
		}
		out[i] = row
	}
	return out
}
