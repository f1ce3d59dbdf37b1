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

// Package pivot implements the aggregation core: hierarchical group-by over
// dynamic records, bucket accumulation per column key, materialization into
// ordered rows with subtotals and a grand total, and hierarchy-preserving
// sorting. Every build is a full pass over the record set; trees and rows
// are derived state, rebuilt on each call and never mutated in place.
package pivot

// Aggregator is the reduction applied to a bucket to produce a metric value.
type Aggregator string

// Supported aggregators.
const (
	AggSum   Aggregator = "sum"
	AggAvg   Aggregator = "avg"
	AggCount Aggregator = "count"
	AggMin   Aggregator = "min"
	AggMax   Aggregator = "max"
)

// Metric is one (field, aggregator) pair of a layout. The field may be a
// raw field or a computed-field name.
type Metric struct {
	Field string     `json:"field"`
	Agg   Aggregator `json:"agg"`
}

// Layout is the user-authored pivot shape: row grouping fields, column
// grouping fields, and the ordered metric list.
type Layout struct {
	RowFields []string `json:"rowFields"`
	ColFields []string `json:"colFields"`
	Metrics   []Metric `json:"metrics"`
}

// normalized returns a copy of the layout with repeated row/column fields
// dropped (first occurrence wins). A field may still appear in both lists
// and in the metric list.
func (l Layout) normalized() Layout {
	out := Layout{
		RowFields: dedupe(l.RowFields),
		ColFields: dedupe(l.ColFields),
		Metrics:   make([]Metric, len(l.Metrics)),
	}
	copy(out.Metrics, l.Metrics)
	return out
}

func dedupe(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
