/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package filter

import (
	"fmt"
	"strings"

	"github.com/pivora/pivora/core/records"
)

// MetricBounds is an inclusive numeric range for a metric filter. A nil
// bound is open.
type MetricBounds struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Records returns the records matching every dimension and metric filter.
// Dimension filters are case-insensitive substring matches on the field's
// display value; metric filters coerce the field to a number and test the
// inclusive bounds. All filters are ANDed in a single pass. Empty filter
// maps pass everything through; the input slice is never mutated.
func Records(recs []records.Record, dims map[string]string, metrics map[string]MetricBounds) []records.Record {
	if len(dims) == 0 && len(metrics) == 0 {
		return recs
	}

	needles := make(map[string]string, len(dims))
	for field, substr := range dims {
		if substr != "" {
			needles[field] = strings.ToLower(substr)
		}
	}

	out := make([]records.Record, 0, len(recs))
	for _, rec := range recs {
		if matchDims(rec, needles) && matchMetrics(rec, metrics) {
			out = append(out, rec)
		}
	}
	return out
}

func matchDims(rec records.Record, needles map[string]string) bool {
	for field, needle := range needles {
		v, _ := rec.Field(field)
		if v == nil {
			return false
		}
		if !strings.Contains(strings.ToLower(fmt.Sprintf("%v", v)), needle) {
			return false
		}
	}
	return true
}

func matchMetrics(rec records.Record, metrics map[string]MetricBounds) bool {
	for field, bounds := range metrics {
		v := rec.Number(field)
		if bounds.Min != nil && v < *bounds.Min {
			return false
		}
		if bounds.Max != nil && v > *bounds.Max {
			return false
		}
	}
	return true
}
