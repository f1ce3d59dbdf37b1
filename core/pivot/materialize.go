/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package pivot

import "sort"

// GrandTotalLabel is the first cell of the summary row.
const GrandTotalLabel = "Total"

// Row is one materialized output row: the row-field label cells followed by
// one metric cell per (column key x metric) combination.
type Row struct {
	Cells      []any    `json:"cells"`
	Depth      int      `json:"depth"`
	IsSubtotal bool     `json:"isSubtotal"`
	Path       []string `json:"path"`
}

// Result is the materialized pivot body. Summary is the grand-total row,
// returned separately so callers decide whether to append it.
type Result struct {
	DataRows []Row `json:"dataRows"`
	Summary  Row   `json:"summaryRow"`
}

// Materialize flattens the hierarchy into ordered rows. Children are walked
// in ascending lexicographic key order (plain string compare, no locale).
// With subtotals enabled and more than one row field, every internal child
// that itself has children gets one subtotal row immediately after its
// subtree, computed by combining all of its descendant leaf buckets.
func (t *Tree) Materialize(subtotals bool) Result {
	res := Result{DataRows: []Row{}}
	if t.Empty() {
		res.Summary = t.summaryRow()
		return res
	}

	emitSubtotals := subtotals && len(t.layout.RowFields) > 1
	var walk func(n *Node, path []string)
	walk = func(n *Node, path []string) {
		if n.IsLeaf() {
			res.DataRows = append(res.DataRows, t.leafRow(n, path))
			return
		}
		keys := make([]string, 0, len(n.Children))
		for key := range n.Children {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			child := n.Children[key]
			childPath := append(append([]string{}, path...), key)
			walk(child, childPath)
			if emitSubtotals && !child.IsLeaf() && len(child.Children) > 0 {
				res.DataRows = append(res.DataRows, t.subtotalRow(child, childPath))
			}
		}
	}
	walk(t.Root, nil)

	res.Summary = t.summaryRow()
	return res
}

// leafRow builds the data row for one leaf: path labels padded to the full
// row-field depth, then metric values column-key-major, metric-minor.
func (t *Tree) leafRow(n *Node, path []string) Row {
	cells := t.labelCells(path)
	for _, colKey := range t.ColumnKeys {
		for _, m := range t.layout.Metrics {
			cells = append(cells, t.MetricValue(n, colKey, m))
		}
	}
	return Row{Cells: cells, Depth: len(path), Path: path}
}

// subtotalRow summarizes one internal node by combining its descendant leaf
// buckets, so subtotal metrics reduce raw accumulators rather than
// re-aggregating displayed values.
func (t *Tree) subtotalRow(n *Node, path []string) Row {
	combined := summed(n)
	cells := t.labelCells(path)
	for _, colKey := range t.ColumnKeys {
		for _, m := range t.layout.Metrics {
			cells = append(cells, t.metricFromBuckets(combined[colKey], m))
		}
	}
	return Row{Cells: cells, Depth: len(path), IsSubtotal: true, Path: path}
}

// summaryRow is the grand total over the entire tree, labeled in its first
// cell.
func (t *Tree) summaryRow() Row {
	combined := summed(t.Root)
	cells := make([]any, 0, len(t.layout.RowFields))
	for i := range t.layout.RowFields {
		if i == 0 {
			cells = append(cells, GrandTotalLabel)
		} else {
			cells = append(cells, "")
		}
	}
	if len(t.layout.RowFields) == 0 {
		cells = append(cells, GrandTotalLabel)
	}
	for _, colKey := range t.ColumnKeys {
		for _, m := range t.layout.Metrics {
			cells = append(cells, t.metricFromBuckets(combined[colKey], m))
		}
	}
	return Row{Cells: cells, IsSubtotal: true}
}

// labelCells pads a node path with empty strings to the row-field count.
func (t *Tree) labelCells(path []string) []any {
	cells := make([]any, 0, len(t.layout.RowFields)+len(t.ColumnKeys)*len(t.layout.Metrics))
	for i := range t.layout.RowFields {
		if i < len(path) {
			cells = append(cells, path[i])
		} else {
			cells = append(cells, "")
		}
	}
	return cells
}
