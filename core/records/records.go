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

// Package records defines the dynamic row model shared by all pipeline stages.
// A Record is a loosely-typed mapping from field name to raw value; the field
// set is discovered at runtime from the first record of a dataset.
package records

import "sort"

// Record is a single row of a dataset. Values are whatever the loader
// produced: float64, string, bool, nil, or absent entirely.
type Record map[string]any

// Field returns the raw value for a field and whether it is present.
// A nil stored value is reported as present; only a missing key is not.
func (r Record) Field(name string) (any, bool) {
	v, ok := r[name]
	return v, ok
}

// Number returns the field value coerced to a float64 per Coerce rules.
// Missing fields coerce to 0.
func (r Record) Number(name string) float64 {
	v, ok := r[name]
	if !ok {
		return 0
	}
	return Coerce(v)
}

// Clone returns a shallow copy of the record. Pipeline stages that add
// derived fields operate on clones so callers never see their inputs mutated.
func (r Record) Clone() Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Fields returns the field set of a dataset, discovered from its first
// record and sorted for stable iteration. All records of a dataset are
// assumed to share the same field set.
func Fields(recs []Record) []string {
	if len(recs) == 0 {
		return nil
	}
	names := make([]string, 0, len(recs[0]))
	for name := range recs[0] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
