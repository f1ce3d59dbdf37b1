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

package rendering

import (
	"strings"
	"testing"

	"github.com/pivora/pivora/core/format"
	"github.com/pivora/pivora/core/pivot"
	"github.com/pivora/pivora/core/records"
)

func testPivot() *pivot.Pivot {
	recs := []records.Record{
		{"region": "North", "revenue": 100.0},
		{"region": "North", "revenue": 50.0},
		{"region": "South", "revenue": 200.0},
	}
	layout := pivot.Layout{
		RowFields: []string{"region"},
		Metrics:   []pivot.Metric{{Field: "revenue", Agg: pivot.AggSum}},
	}
	return pivot.BuildPivot(recs, layout, nil, false)
}

func TestRender(t *testing.T) {
	var sb strings.Builder
	if err := NewTableRenderer(nil).Render(&sb, testPivot()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"region",
		"revenue (sum)",
		"North",
		"150.00",
		"South",
		"200.00",
		"Total",
		"350.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// Header, 2 data rows, summary, plus 4 borders.
	if len(lines) != 8 {
		t.Errorf("got %d lines, want 8:\n%s", len(lines), out)
	}
	width := len(lines[0])
	for i, line := range lines {
		if len(line) != width {
			t.Errorf("line %d has width %d, want %d:\n%s", i, len(line), width, out)
		}
	}
}

func TestRenderWithFormats(t *testing.T) {
	formats := map[string]format.Spec{
		format.Key("revenue", "sum"): {
			Decimals:           0,
			ThousandsSeparator: false,
			CurrencySymbol:     "$",
			CurrencyPosition:   "prefix",
		},
	}
	var sb strings.Builder
	if err := NewTableRenderer(formats).Render(&sb, testPivot()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "$150") {
		t.Errorf("output missing formatted cell $150:\n%s", out)
	}
	if strings.Contains(out, "150.00") {
		t.Errorf("output still carries the default format:\n%s", out)
	}
}
