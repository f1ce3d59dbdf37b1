/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package pivot

import (
	"fmt"
	"strings"

	"github.com/pivora/pivora/core/formula"
	"github.com/pivora/pivora/core/records"
)

// HeaderColumn describes one metric column of the output: which column-key
// tuple it belongs to and which metric it carries.
type HeaderColumn struct {
	ColumnKey string     `json:"columnKey"`
	Parts     []string   `json:"parts"`
	Field     string     `json:"field"`
	Agg       Aggregator `json:"agg"`
	Label     string     `json:"label"`
}

// Header describes the full output row shape: the row-label columns
// followed by the metric columns, column-key-major.
type Header struct {
	RowFields []string       `json:"rowFields"`
	Columns   []HeaderColumn `json:"columns"`
}

// Pivot is a fully built pivot: header descriptor, ordered data rows, the
// grand-total row, and the column axis the cells are laid out on.
type Pivot struct {
	Header     Header   `json:"header"`
	DataRows   []Row    `json:"dataRows"`
	Summary    Row      `json:"summaryRow"`
	ColumnKeys []string `json:"columnKeys"`
	Metrics    []Metric `json:"metrics"`
}

// BuildPivot runs the aggregation pipeline over an already filtered record
// set: build the hierarchy, materialize rows (with subtotals if requested),
// and describe the header. The computed-field engine may be nil.
func BuildPivot(recs []records.Record, layout Layout, engine *formula.Engine, subtotals bool) *Pivot {
	tree := Build(recs, layout, engine)
	res := tree.Materialize(subtotals)
	norm := tree.Layout()

	return &Pivot{
		Header:     buildHeader(norm, tree.ColumnKeys),
		DataRows:   res.DataRows,
		Summary:    res.Summary,
		ColumnKeys: tree.ColumnKeys,
		Metrics:    norm.Metrics,
	}
}

// Sort returns a copy of the pivot with rows reordered by one output
// column. The summary row is unaffected.
func (p *Pivot) Sort(columnIndex int, dir Direction) *Pivot {
	sorted := *p
	sorted.DataRows = SortRows(p.DataRows, columnIndex, dir)
	return &sorted
}

func buildHeader(layout Layout, columnKeys []string) Header {
	h := Header{RowFields: layout.RowFields}
	for _, key := range columnKeys {
		parts := SplitColumnKey(key)
		prefix := strings.Join(parts, " / ")
		for _, m := range layout.Metrics {
			label := fmt.Sprintf("%s (%s)", m.Field, m.Agg)
			if prefix != "" {
				label = prefix + " · " + label
			}
			h.Columns = append(h.Columns, HeaderColumn{
				ColumnKey: key,
				Parts:     parts,
				Field:     m.Field,
				Agg:       m.Agg,
				Label:     label,
			})
		}
	}
	return h
}
