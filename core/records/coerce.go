/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package records

import (
	"math"
	"strconv"
	"strings"
)

// Coerce converts a heterogeneous raw value to a finite float64.
// Unparsable, empty, nil or non-finite input yields 0; Coerce never panics.
//
// Strings are parsed locale-aware: when both ',' and '.' occur, whichever is
// rightmost is the decimal separator and the other is stripped as a thousands
// separator; a lone ',' is treated as a European decimal separator.
func Coerce(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		return coerceString(n)
	default:
		return 0
	}
}

func coerceString(s string) float64 {
	// Non-breaking spaces show up as thousands separators in pasted data.
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = stripWhitespace(s)

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			// "1.234,56": dot groups thousands, comma is the decimal mark.
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// "1,234.56": comma groups thousands.
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		// "1234,56": European decimal notation.
		s = strings.ReplaceAll(s, ",", ".")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func stripWhitespace(s string) string {
	if !strings.ContainsAny(s, " \t") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r == ' ' || r == '\t' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
