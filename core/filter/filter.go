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

// Package filter evaluates structural record filters.
//
// The query-time filter grammar is a document-store style tree: a mapping
// from field name to condition, where a condition is either a literal
// (equality) or an object of $-operators, plus $and/$or combinators holding
// sub-filters. Filters arrive as decoded JSON (map[string]any), are never
// compiled, and fail safe: an unknown operator or invalid regex makes the
// affected clause false, never an error.
package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pivora/pivora/core/records"
)

// Tree is a structural filter as decoded from JSON
type Tree = map[string]any

// Matches reports whether a record satisfies a filter tree. An empty or nil
// filter matches everything. Field conditions and combinators at the same
// level are ANDed.
func Matches(rec records.Record, tree Tree) bool {
	if len(tree) == 0 {
		return true
	}
	for key, cond := range tree {
		switch key {
		case "$and":
			subs, ok := asFilterList(cond)
			if !ok {
				return false
			}
			for _, sub := range subs {
				if !Matches(rec, sub) {
					return false
				}
			}
		case "$or":
			subs, ok := asFilterList(cond)
			if !ok || len(subs) == 0 {
				return false
			}
			matched := false
			for _, sub := range subs {
				if Matches(rec, sub) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		default:
			if !matchField(rec, key, cond) {
				return false
			}
		}
	}
	return true
}

// matchField evaluates one field condition. A literal condition is equality;
// an operator object ANDs all of its operators.
func matchField(rec records.Record, field string, cond any) bool {
	value, _ := rec.Field(field)

	ops, isOps := cond.(map[string]any)
	if !isOps {
		return equals(value, cond)
	}

	for op, operand := range ops {
		switch op {
		case "$eq":
			if !equals(value, operand) {
				return false
			}
		case "$gt":
			if !(records.Coerce(value) > records.Coerce(operand)) {
				return false
			}
		case "$gte":
			if !(records.Coerce(value) >= records.Coerce(operand)) {
				return false
			}
		case "$lt":
			if !(records.Coerce(value) < records.Coerce(operand)) {
				return false
			}
		case "$lte":
			if !(records.Coerce(value) <= records.Coerce(operand)) {
				return false
			}
		case "$in":
			if !matchIn(value, operand) {
				return false
			}
		case "$regex":
			if !matchRegex(value, operand, ops["$options"]) {
				return false
			}
		case "$options":
			// Consumed together with $regex.
		default:
			// Unknown operator: the clause fails, the predicate survives.
			return false
		}
	}
	return true
}

// equals compares a record value and a filter literal. Values of different
// dynamic types (a float64 record value against an int filter literal, or a
// numeric string against a number) compare equal when they represent the
// same number.
func equals(value, literal any) bool {
	if value == nil || literal == nil {
		return value == nil && literal == nil
	}
	if fmt.Sprintf("%v", value) == fmt.Sprintf("%v", literal) {
		return true
	}
	if isNumeric(value) && isNumeric(literal) {
		return records.Coerce(value) == records.Coerce(literal)
	}
	return false
}

func isNumeric(v any) bool {
	switch n := v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return err == nil
	default:
		return false
	}
}

func matchIn(value, operand any) bool {
	list, ok := operand.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if equals(value, item) {
			return true
		}
	}
	return false
}

func matchRegex(value, pattern, options any) bool {
	pat, ok := pattern.(string)
	if !ok {
		return false
	}
	if opts, ok := options.(string); ok && opts != "" {
		flags := ""
		for _, f := range opts {
			switch f {
			case 'i', 'm', 's':
				flags += string(f)
			}
		}
		if flags != "" {
			pat = "(?" + flags + ")" + pat
		}
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return false
	}
	return re.MatchString(fmt.Sprintf("%v", value))
}

func asFilterList(v any) ([]Tree, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	subs := make([]Tree, 0, len(list))
	for _, item := range list {
		sub, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		subs = append(subs, sub)
	}
	return subs, true
}
