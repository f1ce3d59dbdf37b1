/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package filter

import (
	"encoding/json"
	"testing"

	"github.com/pivora/pivora/core/records"
)

// parse decodes a JSON filter the way it arrives from the query API.
func parse(t *testing.T, src string) Tree {
	t.Helper()
	var tree Tree
	if err := json.Unmarshal([]byte(src), &tree); err != nil {
		t.Fatalf("bad filter literal %s: %v", src, err)
	}
	return tree
}

func TestMatchesEmptyFilter(t *testing.T) {
	rec := records.Record{"a": 1.0}
	if !Matches(rec, nil) {
		t.Error("nil filter should match")
	}
	if !Matches(rec, Tree{}) {
		t.Error("empty filter should match")
	}
}

func TestMatchesOperators(t *testing.T) {
	rec := records.Record{
		"region": "North",
		"amount": 150.0,
		"status": "open",
		"count":  "7",
	}

	tests := []struct {
		name     string
		filter   string
		expected bool
	}{
		{"literal equality", `{"region":"North"}`, true},
		{"literal inequality", `{"region":"South"}`, false},
		{"numeric equality across types", `{"amount":150}`, true},
		{"numeric string equality", `{"count":7}`, true},
		{"$eq", `{"region":{"$eq":"North"}}`, true},
		{"$gt true", `{"amount":{"$gt":100}}`, true},
		{"$gt false", `{"amount":{"$gt":150}}`, false},
		{"$gte boundary", `{"amount":{"$gte":150}}`, true},
		{"$lt", `{"amount":{"$lt":200}}`, true},
		{"$lte boundary", `{"amount":{"$lte":150}}`, true},
		{"range ANDed", `{"amount":{"$gt":100,"$lt":200}}`, true},
		{"range excluded", `{"amount":{"$gt":100,"$lt":140}}`, false},
		{"$in hit", `{"region":{"$in":["North","South"]}}`, true},
		{"$in miss", `{"region":{"$in":["East","West"]}}`, false},
		{"$regex", `{"region":{"$regex":"^Nor"}}`, true},
		{"$regex case-insensitive", `{"region":{"$regex":"^nor","$options":"i"}}`, true},
		{"$regex invalid pattern", `{"region":{"$regex":"["}}`, false},
		{"unknown operator", `{"region":{"$near":"North"}}`, false},
		{"missing field equality", `{"nosuch":"x"}`, false},
		{"coerced comparison on string field", `{"count":{"$gt":5}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(rec, parse(t, tt.filter)); got != tt.expected {
				t.Errorf("Matches(%s) = %v, want %v", tt.filter, got, tt.expected)
			}
		})
	}
}

func TestMatchesCombinators(t *testing.T) {
	tests := []struct {
		name     string
		rec      records.Record
		filter   string
		expected bool
	}{
		{"$and inside range", records.Record{"a": 3.0},
			`{"$and":[{"a":{"$gt":1}},{"a":{"$lt":5}}]}`, true},
		{"$and outside range", records.Record{"a": 6.0},
			`{"$and":[{"a":{"$gt":1}},{"a":{"$lt":5}}]}`, false},
		{"$or first", records.Record{"a": 0.0, "b": 9.0},
			`{"$or":[{"b":{"$gt":5}},{"a":{"$gt":5}}]}`, true},
		{"$or none", records.Record{"a": 0.0, "b": 0.0},
			`{"$or":[{"b":{"$gt":5}},{"a":{"$gt":5}}]}`, false},
		{"combinator beside field condition", records.Record{"a": 3.0, "s": "x"},
			`{"s":"x","$and":[{"a":{"$gte":3}}]}`, true},
		{"nested combinators", records.Record{"a": 3.0, "s": "x"},
			`{"$or":[{"$and":[{"a":{"$gt":1}},{"s":"x"}]},{"a":{"$gt":100}}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.rec, parse(t, tt.filter)); got != tt.expected {
				t.Errorf("Matches(%s) = %v, want %v", tt.filter, got, tt.expected)
			}
		})
	}
}

func TestRecordsDimensionFilter(t *testing.T) {
	recs := []records.Record{
		{"region": "North", "amount": 10.0},
		{"region": "South", "amount": 20.0},
		{"region": "north-east", "amount": 30.0},
	}

	out := Records(recs, map[string]string{"region": "nor"}, nil)
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	for _, rec := range out {
		if rec.Number("amount") == 20 {
			t.Error("South should have been filtered out")
		}
	}

	// Empty filters pass the input through untouched.
	if got := Records(recs, nil, nil); len(got) != 3 {
		t.Errorf("expected passthrough, got %d records", len(got))
	}
}

func TestRecordsMetricFilter(t *testing.T) {
	recs := []records.Record{
		{"v": 5.0},
		{"v": 15.0},
		{"v": 25.0},
	}
	min, max := 10.0, 20.0

	out := Records(recs, nil, map[string]MetricBounds{"v": {Min: &min, Max: &max}})
	if len(out) != 1 || out[0].Number("v") != 15 {
		t.Errorf("expected only v=15, got %v", out)
	}

	// Inclusive bounds.
	min2 := 15.0
	out = Records(recs, nil, map[string]MetricBounds{"v": {Min: &min2}})
	if len(out) != 2 {
		t.Errorf("min bound should be inclusive, got %d records", len(out))
	}
}
