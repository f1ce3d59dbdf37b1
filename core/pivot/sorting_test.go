/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package pivot

import (
	"reflect"
	"testing"

	"github.com/pivora/pivora/core/records"
)

func TestSortFlatDescending(t *testing.T) {
	recs := []records.Record{
		{"g": "A", "v": 10.0},
		{"g": "B", "v": 30.0},
		{"g": "C", "v": 20.0},
	}
	layout := Layout{RowFields: []string{"g"}, Metrics: []Metric{{Field: "v", Agg: AggSum}}}
	p := BuildPivot(recs, layout, nil, false)

	sorted := SortRows(p.DataRows, 1, Descending)
	prev := records.Coerce(sorted[0].Cells[1])
	for _, r := range sorted[1:] {
		v := records.Coerce(r.Cells[1])
		if v > prev {
			t.Fatalf("sequence not non-increasing: %v", sorted)
		}
		prev = v
	}
	if sorted[0].Cells[0] != "B" || sorted[2].Cells[0] != "A" {
		t.Errorf("order = %v %v %v", sorted[0].Cells[0], sorted[1].Cells[0], sorted[2].Cells[0])
	}

	// Input order untouched.
	if p.DataRows[0].Cells[0] != "A" {
		t.Error("SortRows mutated its input")
	}
}

func TestSortGroupedKeepsStructure(t *testing.T) {
	recs := []records.Record{
		{"g1": "X", "g2": "a", "v": 1.0},
		{"g1": "X", "g2": "b", "v": 2.0},
		{"g1": "Y", "g2": "a", "v": 30.0},
		{"g1": "Y", "g2": "b", "v": 4.0},
	}
	layout := Layout{RowFields: []string{"g1", "g2"}, Metrics: []Metric{{Field: "v", Agg: AggSum}}}
	p := BuildPivot(recs, layout, nil, true)

	sorted := SortRows(p.DataRows, 2, Descending)

	// Y (sum 34) outranks X (sum 3); within Y the leaves are flat-sorted
	// descending; each group's subtotal trails its leaves.
	var shape []string
	for _, r := range sorted {
		if r.IsSubtotal {
			shape = append(shape, "sub:"+r.Path[0])
		} else {
			shape = append(shape, r.Path[0]+"/"+r.Path[1])
		}
	}
	want := []string{"Y/a", "Y/b", "sub:Y", "X/b", "X/a", "sub:X"}
	if !reflect.DeepEqual(shape, want) {
		t.Errorf("shape = %v, want %v", shape, want)
	}
}

func TestSortPreservesGrandTotal(t *testing.T) {
	recs := []records.Record{
		{"g": "A", "v": 1.0},
		{"g": "B", "v": 2.0},
	}
	layout := Layout{RowFields: []string{"g"}, Metrics: []Metric{{Field: "v", Agg: AggSum}}}
	p := BuildPivot(recs, layout, nil, false)

	withTotal := append(append([]Row{}, p.DataRows...), p.Summary)
	sorted := SortRows(withTotal, 1, Descending)
	last := sorted[len(sorted)-1]
	if !last.IsSubtotal || last.Cells[0] != GrandTotalLabel {
		t.Errorf("grand total not preserved at end: %v", last)
	}
}

func TestSortEmptyAndBadColumn(t *testing.T) {
	if got := SortRows(nil, 0, Ascending); len(got) != 0 {
		t.Error("sorting nothing should yield nothing")
	}

	rows := []Row{
		{Cells: []any{"A", 1.0}, Path: []string{"A"}},
		{Cells: []any{"B", 2.0}, Path: []string{"B"}},
	}
	// Out-of-range column index: every value reads 0, order is stable.
	sorted := SortRows(rows, 99, Ascending)
	if sorted[0].Cells[0] != "A" || sorted[1].Cells[0] != "B" {
		t.Errorf("stable order lost: %v", sorted)
	}
}
