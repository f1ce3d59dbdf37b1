/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package rendering turns built pivots into terminal output.
package rendering

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pivora/pivora/core/format"
	"github.com/pivora/pivora/core/pivot"
	"github.com/pivora/pivora/core/records"
)

// TableRenderer renders pivots as ASCII tables. Formats maps
// "field|aggregator" keys to display specs; columns without an entry use
// the default spec.
type TableRenderer struct {
	formats map[string]format.Spec
}

// NewTableRenderer creates a renderer with per-column format specs.
// A nil map renders every column with the default spec.
func NewTableRenderer(formats map[string]format.Spec) *TableRenderer {
	return &TableRenderer{formats: formats}
}

// Render writes the pivot as an ASCII table: header, data rows, then the
// grand-total row after a separator. Subtotal rows keep their label cells
// as the level they summarize.
func (r *TableRenderer) Render(w io.Writer, p *pivot.Pivot) error {
	header := r.headerCells(p)
	rows := make([][]string, 0, len(p.DataRows)+1)
	for _, row := range p.DataRows {
		rows = append(rows, r.rowCells(p, row))
	}
	summary := r.rowCells(p, p.Summary)

	widths := columnWidths(header, rows, summary)

	var sb strings.Builder
	writeBorder(&sb, widths)
	writeRow(&sb, header, widths)
	writeBorder(&sb, widths)
	for _, cells := range rows {
		writeRow(&sb, cells, widths)
	}
	writeBorder(&sb, widths)
	writeRow(&sb, summary, widths)
	writeBorder(&sb, widths)

	_, err := io.WriteString(w, sb.String())
	return err
}

// headerCells is the row-field names followed by the metric column labels.
func (r *TableRenderer) headerCells(p *pivot.Pivot) []string {
	cells := make([]string, 0, len(p.Header.RowFields)+len(p.Header.Columns))
	cells = append(cells, p.Header.RowFields...)
	if len(p.Header.RowFields) == 0 {
		// Rowless pivots still carry one label cell in every row.
		cells = append(cells, "")
	}
	for _, col := range p.Header.Columns {
		cells = append(cells, col.Label)
	}
	return cells
}

func (r *TableRenderer) rowCells(p *pivot.Pivot, row pivot.Row) []string {
	// The summary row of a rowless pivot carries a label cell its data
	// rows do not, so derive the label count from the row itself.
	labelCount := len(row.Cells) - len(p.Header.Columns)
	if labelCount < 0 {
		labelCount = 0
	}
	cells := make([]string, 0, len(row.Cells))
	for i, cell := range row.Cells {
		if i < labelCount {
			cells = append(cells, fmt.Sprintf("%v", cell))
			continue
		}
		col := p.Header.Columns[i-labelCount]
		spec, ok := r.formats[format.Key(col.Field, string(col.Agg))]
		if !ok {
			spec = format.DefaultSpec()
		}
		cells = append(cells, format.Format(records.Coerce(cell), string(col.Agg), spec))
	}
	// Rowless data rows have no label cell at all; pad so values line up
	// under the header.
	if labelCount == 0 && len(p.Header.RowFields) == 0 {
		cells = append([]string{""}, cells...)
	}
	return cells
}

func columnWidths(header []string, rows [][]string, summary []string) []int {
	widths := make([]int, len(header))
	grow := func(cells []string) {
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	grow(header)
	for _, cells := range rows {
		grow(cells)
	}
	grow(summary)
	return widths
}

func writeBorder(sb *strings.Builder, widths []int) {
	for _, w := range widths {
		sb.WriteString("+")
		sb.WriteString(strings.Repeat("-", w+2))
	}
	sb.WriteString("+\n")
}

func writeRow(sb *strings.Builder, cells []string, widths []int) {
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		pad := w - utf8.RuneCountInString(cell)
		sb.WriteString("| ")
		sb.WriteString(cell)
		sb.WriteString(strings.Repeat(" ", pad+1))
	}
	sb.WriteString("|\n")
}
