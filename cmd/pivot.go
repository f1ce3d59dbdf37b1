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

package cmd

import (
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pivora/pivora/core/csvimport"
	"github.com/pivora/pivora/core/formula"
	"github.com/pivora/pivora/core/pivot"
	"github.com/pivora/pivora/core/rendering"
)

var pivotCmd = &cobra.Command{
	Use:   "pivot <data file>",
	Short: "Build one pivot table and print it.",
	Long: `Build a pivot table from a CSV/TSV file and print it as ASCII.

Metrics are given as field:aggregator, e.g. --metric revenue:sum.
Computed fields are given as name=expression, e.g.
--computed "aov=IFERROR(DIV(revenue, orders), 0)".`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)

		content, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("failed to read %s: %v", args[0], err)
		}
		imported, err := csvimport.Import(content, csvimport.ImportOptions{
			StartRow: getInt(cmd, "start-row"),
		})
		if err != nil {
			log.Fatalf("failed to parse %s: %v", args[0], err)
		}

		layout := pivot.Layout{
			RowFields: getStringSlice(cmd, "rows"),
			ColFields: getStringSlice(cmd, "cols"),
		}
		for _, spec := range getStringArray(cmd, "metric") {
			layout.Metrics = append(layout.Metrics, parseMetric(spec))
		}
		if len(layout.Metrics) == 0 {
			log.Fatal("at least one --metric is required")
		}

		recs := imported.Records
		var engine *formula.Engine
		if computed := getStringArray(cmd, "computed"); len(computed) > 0 {
			defs := make([]formula.Def, 0, len(computed))
			for _, spec := range computed {
				name, expr, ok := strings.Cut(spec, "=")
				if !ok {
					log.Fatalf("invalid computed field %q, want name=expression", spec)
				}
				defs = append(defs, formula.NewDef(strings.TrimSpace(name), expr))
			}
			engine = formula.NewEngine(defs, formula.Options{})
			recs = engine.Apply(recs)
		}

		p := pivot.BuildPivot(recs, layout, engine, getFlag(cmd, "subtotals"))
		if sortSpec := getString(cmd, "sort"); sortSpec != "" {
			index, dir := parseSort(sortSpec)
			p = p.Sort(index, dir)
		}

		if err := rendering.NewTableRenderer(nil).Render(os.Stdout, p); err != nil {
			log.Fatalf("failed to render: %v", err)
		}
	},
}

// parseMetric splits "field:agg", defaulting to sum. The split is on the
// last colon so field names may carry colons.
func parseMetric(spec string) pivot.Metric {
	if i := strings.LastIndex(spec, ":"); i >= 0 {
		return pivot.Metric{Field: spec[:i], Agg: pivot.Aggregator(spec[i+1:])}
	}
	return pivot.Metric{Field: spec, Agg: pivot.AggSum}
}

// parseSort splits "column:direction", e.g. "1:desc".
func parseSort(spec string) (int, pivot.Direction) {
	column, dir, _ := strings.Cut(spec, ":")
	index, err := strconv.Atoi(column)
	if err != nil {
		log.Fatalf("invalid sort column %q", column)
	}
	if dir == string(pivot.Descending) {
		return index, pivot.Descending
	}
	return index, pivot.Ascending
}

func init() {
	pivotCmd.Flags().StringSlice("rows", nil, "row fields, outermost first")
	pivotCmd.Flags().StringSlice("cols", nil, "column fields, outermost first")
	pivotCmd.Flags().StringArray("metric", nil, "metric as field:aggregator (sum, avg, count, min, max)")
	pivotCmd.Flags().StringArray("computed", nil, "computed field as name=expression")
	pivotCmd.Flags().Bool("subtotals", false, "emit per-group subtotal rows")
	pivotCmd.Flags().String("sort", "", "sort as columnIndex:direction, e.g. 1:desc")
	pivotCmd.Flags().Int("start-row", 0, "1-based header row of the input file")
	rootCmd.AddCommand(pivotCmd)
}
