/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package formula

import (
	"testing"

	"github.com/pivora/pivora/core/records"
)

func TestArithmetic(t *testing.T) {
	tests := []struct {
		expr     string
		expected float64
	}{
		{"1 + 2", 3},
		{"10 - 3", 7},
		{"4 * 5", 20},
		{"20 / 4", 5},
		{"7 % 3", 1},
		{"2 ** 3", 8},
		{"(1 + 2) * 3", 9},
		{"-5", -5},
		{"--5", 5},
		{"2 + 3 * 4", 14},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			compiled, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("compile error: %v", err)
			}
			got, err := compiled.EvalRow(records.Record{}, Options{})
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestFieldReferences(t *testing.T) {
	rec := records.Record{
		"price":       "1.234,5",
		"qty":         2.0,
		"Выручка":     100.0,
		"ad spend $":  25.0,
		"orders-2024": 4.0,
	}

	tests := []struct {
		expr     string
		expected float64
	}{
		{"price * qty", 2469},
		{"Выручка / qty", 50},
		{"ad spend $ * 2", 50},
		{"qty + 1", 3},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			compiled, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("compile error: %v", err)
			}
			got, err := compiled.EvalRow(rec, Options{})
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestBuiltins(t *testing.T) {
	rec := records.Record{"a": 10.0, "b": 0.0, "c": 2.0}

	tests := []struct {
		expr     string
		expected float64
	}{
		{"IFERROR(DIV(a,b),-1)", -1},
		{"IFERROR(DIV(a,c),-1)", 5},
		{"DIV(a,b,7)", 7},
		{"DIV(a,c)", 5},
		{"IFERROR(a/b)", 0},
		{"IFERROR(a/b, 99)", 99},
		{"IFERROR(a/c, 99)", 5},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			compiled, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("compile error: %v", err)
			}
			got, err := compiled.EvalRow(rec, Options{})
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	rec := records.Record{"a": 10.0}

	// Missing field is an error without the global policy...
	compiled, err := Compile("a + nosuch")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if _, err := compiled.EvalRow(rec, Options{}); err == nil {
		t.Error("expected error for unknown field")
	}

	// ...and resolves to the fallback value with it.
	opts := Options{FallbackEnabled: true, FallbackValue: -1}
	got, err := compiled.EvalRow(rec, opts)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if got != -1 {
		t.Errorf("expected -1, got %v", got)
	}

	// Bare DIV by zero is caught by the global policy too.
	compiled, err = Compile("DIV(a, 0)")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	got, err = compiled.EvalRow(rec, opts)
	if err != nil || got != -1 {
		t.Errorf("expected -1, got %v (err %v)", got, err)
	}

	// Unknown functions error out instead of executing anything.
	compiled, err = Compile("system(a)")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if _, err := compiled.EvalRow(rec, Options{}); err == nil {
		t.Error("expected error for unknown function")
	}
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{"", "1 +", "(1", "a b", "DIV(1)", "IFERROR()"} {
		t.Run(src, func(t *testing.T) {
			compiled, err := Compile(src)
			if err != nil {
				return
			}
			// Arity errors surface at evaluation time.
			if _, err := compiled.EvalRow(records.Record{"a": 1.0, "b": 2.0}, Options{}); err == nil {
				t.Errorf("expected compile or eval error for %q", src)
			}
		})
	}
}

func TestVariables(t *testing.T) {
	tests := []struct {
		expr     string
		expected []string
	}{
		{"a + b * a", []string{"a", "b"}},
		{"IFERROR(DIV(revenue, orders), 0)", []string{"revenue", "orders"}},
		{"1 + 2", nil},
		{"margin / Выручка", []string{"margin", "Выручка"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			compiled, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("compile error: %v", err)
			}
			got := compiled.Variables()
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("expected %v, got %v", tt.expected, got)
				}
			}
		})
	}
}

func TestAggregateEval(t *testing.T) {
	sums := map[string]float64{"revenue": 300, "orders": 20}
	accessor := func(name string) float64 { return sums[name] }

	compiled, err := Compile("IFERROR(DIV(revenue, orders), 0)")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if got := compiled.EvalAggregate(accessor, Options{}); got != 15 {
		t.Errorf("expected 15, got %v", got)
	}

	// Unreferenced names read back as zero-valued buckets.
	compiled, err = Compile("IFERROR(DIV(revenue, nothing), -1)")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if got := compiled.EvalAggregate(accessor, Options{}); got != -1 {
		t.Errorf("expected -1, got %v", got)
	}
}

func TestEngineApply(t *testing.T) {
	recs := []records.Record{
		{"a": 10.0, "b": 2.0},
		{"a": 6.0, "b": 0.0},
	}
	defs := []Def{
		NewDef("ratio", "DIV(a, b)"),
		NewDef("double", "ratio * 2"),
	}
	engine := NewEngine(defs, Options{})

	out := engine.Apply(recs)
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	if out[0]["ratio"] != 5.0 || out[0]["double"] != 10.0 {
		t.Errorf("row 0: got ratio=%v double=%v", out[0]["ratio"], out[0]["double"])
	}
	// Division by zero: null ratio, and the dependent formula fails too.
	if out[1]["ratio"] != nil {
		t.Errorf("row 1: expected nil ratio, got %v", out[1]["ratio"])
	}
	// nil coerces to 0 for the dependent formula, so double = 0.
	if out[1]["double"] != 0.0 {
		t.Errorf("row 1: expected double 0, got %v", out[1]["double"])
	}

	// Inputs are not mutated.
	if _, ok := recs[0]["ratio"]; ok {
		t.Error("Apply mutated its input records")
	}
}

func TestEngineRedefinition(t *testing.T) {
	defs := []Def{
		NewDef("x", "1"),
		NewDef("x", "2"),
	}
	engine := NewEngine(defs, Options{})
	out := engine.Apply([]records.Record{{"a": 0.0}})
	if out[0]["x"] != 2.0 {
		t.Errorf("later definition should win, got %v", out[0]["x"])
	}

	expr, ok := engine.Lookup("x")
	if !ok || expr.Source() != "2" {
		t.Errorf("Lookup should return the later definition")
	}
}

func TestEngineNoOp(t *testing.T) {
	recs := []records.Record{{"a": 1.0}}
	engine := NewEngine(nil, Options{})
	if out := engine.Apply(recs); len(out) != 1 || &out[0] != &recs[0] {
		// Same backing slice: no definitions means input returned unchanged.
		t.Error("Apply with no defs should return the input unchanged")
	}
	if out := NewEngine([]Def{NewDef("x", "1")}, Options{}).Apply(nil); out != nil {
		t.Error("Apply with no records should return nil")
	}
}
