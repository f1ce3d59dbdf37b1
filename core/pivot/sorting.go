/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package pivot

import (
	"sort"

	"github.com/pivora/pivora/core/records"
)

// Direction of a column sort.
type Direction string

// Sort directions.
const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortRows reorders materialized rows by the numeric value of one output
// column while preserving the group structure.
//
// With at most one row-field level the leaf rows are sorted flat. With
// deeper hierarchies, leaves are first sorted flat, then partitioned by
// their first-level path segment; partitions are ordered by the sum of the
// chosen column over their members, leaves keep their flat-sort order
// within a partition, and each partition's subtotal rows follow its leaves.
// Deeper levels are not re-sorted independently; only the top level is
// reordered. A grand-total row stays at the end regardless. The input
// slice is left untouched.
func SortRows(rows []Row, columnIndex int, dir Direction) []Row {
	if len(rows) == 0 {
		return rows
	}

	var leaves, subtotals, totals []Row
	depth := 0
	for _, r := range rows {
		switch {
		case r.IsSubtotal && len(r.Path) == 0:
			totals = append(totals, r)
		case r.IsSubtotal:
			subtotals = append(subtotals, r)
		default:
			leaves = append(leaves, r)
			if len(r.Path) > depth {
				depth = len(r.Path)
			}
		}
	}

	value := func(r Row) float64 {
		if columnIndex < 0 || columnIndex >= len(r.Cells) {
			return 0
		}
		return records.Coerce(r.Cells[columnIndex])
	}
	less := func(a, b float64) bool {
		if dir == Descending {
			return a > b
		}
		return a < b
	}

	sorted := append([]Row{}, leaves...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(value(sorted[i]), value(sorted[j]))
	})

	if depth <= 1 {
		out := append(sorted, subtotals...)
		return append(out, totals...)
	}

	// Partition by first-level segment, ordered by each partition's sum of
	// the chosen column.
	sums := make(map[string]float64)
	var order []string
	for _, r := range sorted {
		seg := r.Path[0]
		if _, ok := sums[seg]; !ok {
			order = append(order, seg)
		}
		sums[seg] += value(r)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return less(sums[order[i]], sums[order[j]])
	})

	out := make([]Row, 0, len(rows))
	attached := make(map[int]bool)
	for _, seg := range order {
		for _, r := range sorted {
			if r.Path[0] == seg {
				out = append(out, r)
			}
		}
		for i, r := range subtotals {
			if r.Path[0] == seg {
				out = append(out, r)
				attached[i] = true
			}
		}
	}
	// Subtotals whose group lost all leaves to filtering keep their place
	// at the end rather than disappearing.
	for i, r := range subtotals {
		if !attached[i] {
			out = append(out, r)
		}
	}
	return append(out, totals...)
}
