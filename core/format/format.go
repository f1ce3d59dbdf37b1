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

// Package format renders aggregated metric values for display.
package format

import (
	"math"
	"strconv"
	"strings"
)

// Currency positions.
const (
	PositionPrefix = "prefix"
	PositionSuffix = "suffix"
)

// Spec is the per-metric display configuration. Specs are keyed by
// "field|aggregator" in the pivot configuration.
type Spec struct {
	Decimals           int    `json:"decimals"`
	ThousandsSeparator bool   `json:"thousandsSeparator"`
	CurrencySymbol     string `json:"currencySymbol"`
	CurrencyPosition   string `json:"currencyPosition"`
}

// DefaultSpec returns the default display configuration: two decimals,
// thousands separators, no currency.
func DefaultSpec() Spec {
	return Spec{
		Decimals:           2,
		ThousandsSeparator: true,
		CurrencyPosition:   PositionPrefix,
	}
}

// Key builds the FormatSpec map key for a metric.
func Key(field, aggregator string) string {
	return field + "|" + aggregator
}

// Format renders a numeric aggregate under a display spec. The count
// aggregator renders as a bare rounded integer; non-finite input renders
// as an empty string.
func Format(value float64, aggregator string, spec Spec) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ""
	}
	if aggregator == "count" {
		return strconv.FormatInt(int64(math.Round(value)), 10)
	}

	decimals := spec.Decimals
	if decimals < 0 {
		decimals = 0
	}
	s := strconv.FormatFloat(value, 'f', decimals, 64)
	if spec.ThousandsSeparator {
		s = groupThousands(s)
	}
	switch {
	case spec.CurrencySymbol == "":
	case spec.CurrencyPosition == PositionSuffix:
		s += spec.CurrencySymbol
	default:
		s = spec.CurrencySymbol + s
	}
	return s
}

// groupThousands inserts comma separators into the integer part of a
// fixed-point decimal string.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart = s[:dot]
		fracPart = s[dot:]
	}
	if len(intPart) <= 3 {
		return sign + intPart + fracPart
	}

	var sb strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		sb.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(intPart[i : i+3])
	}
	return sign + sb.String() + fracPart
}
