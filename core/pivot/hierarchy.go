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

// columnKeySep joins column-field values into a column key. A control
// character cannot occur in cell data, so the join is unambiguous.
const columnKeySep = "\x1f"

// Node is one level of the grouping hierarchy. Internal nodes have one
// child per distinct row-field value at their depth; leaf nodes (at full
// row-field depth) hold the aggregation buckets per column key.
type Node struct {
	Children map[string]*Node
	Buckets  map[string]map[string]*Bucket // columnKey -> field -> bucket
}

func newInternal() *Node {
	return &Node{Children: make(map[string]*Node)}
}

func newLeaf() *Node {
	return &Node{Buckets: make(map[string]map[string]*Bucket)}
}

// IsLeaf reports whether the node carries buckets.
func (n *Node) IsLeaf() bool {
	return n.Buckets != nil
}

// Tree is a fully built grouping hierarchy plus the global column axis.
// The column-key set and its first-seen order are recorded once for the
// whole dataset so every leaf exposes the same columns, with missing
// buckets reading back as zeros.
type Tree struct {
	Root       *Node
	ColumnKeys []string

	layout Layout
	engine *formula.Engine
	rows   int
}

// Build groups a record set into a hierarchy tree. The computed-field
// engine resolves metrics that name computed fields; it may be nil when no
// computed fields are defined. The record set is only read, never changed.
func Build(recs []records.Record, layout Layout, engine *formula.Engine) *Tree {
	layout = layout.normalized()
	t := &Tree{layout: layout, engine: engine, rows: len(recs)}
	if len(layout.RowFields) == 0 {
		t.Root = newLeaf()
	} else {
		t.Root = newInternal()
	}

	seenKeys := make(map[string]bool)
	for _, rec := range recs {
		colKey := t.columnKey(rec)
		if !seenKeys[colKey] {
			seenKeys[colKey] = true
			t.ColumnKeys = append(t.ColumnKeys, colKey)
		}

		node := t.Root
		for depth, field := range layout.RowFields {
			key := cellLabel(rec, field)
			child, ok := node.Children[key]
			if !ok {
				if depth == len(layout.RowFields)-1 {
					child = newLeaf()
				} else {
					child = newInternal()
				}
				node.Children[key] = child
			}
			node = child
		}

		buckets := node.Buckets[colKey]
		if buckets == nil {
			buckets = make(map[string]*Bucket)
			node.Buckets[colKey] = buckets
		}
		for field, raw := range rec {
			b := buckets[field]
			if b == nil {
				b = NewBucket()
				buckets[field] = b
			}
			b.Add(records.Coerce(raw))
		}
	}
	return t
}

// Layout returns the normalized layout the tree was built with.
func (t *Tree) Layout() Layout {
	return t.layout
}

// Empty reports whether the tree was built from zero records.
func (t *Tree) Empty() bool {
	return t.rows == 0
}

// columnKey computes the joined column-field value tuple for a record.
// With no column fields every record lands on the single empty key.
func (t *Tree) columnKey(rec records.Record) string {
	if len(t.layout.ColFields) == 0 {
		return ""
	}
	parts := make([]string, len(t.layout.ColFields))
	for i, field := range t.layout.ColFields {
		parts[i] = cellLabel(rec, field)
	}
	return strings.Join(parts, columnKeySep)
}

// SplitColumnKey splits a joined column key back into its value tuple.
func SplitColumnKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, columnKeySep)
}

// cellLabel renders a field value as a grouping label. Missing and nil
// values group under the empty label.
func cellLabel(rec records.Record, field string) string {
	v, ok := rec.Field(field)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// MetricValue resolves a metric for one node and column key. A metric
// naming a computed field is evaluated by the field's aggregate evaluator
// over bucket sums; anything else reduces the field's own bucket.
func (t *Tree) MetricValue(n *Node, colKey string, m Metric) float64 {
	return t.metricFromBuckets(n.Buckets[colKey], m)
}

func (t *Tree) metricFromBuckets(buckets map[string]*Bucket, m Metric) float64 {
	if t.engine != nil {
		if expr, ok := t.engine.Lookup(m.Field); ok {
			sum := func(name string) float64 {
				if b := buckets[name]; b != nil {
					return b.Sum
				}
				return 0
			}
			return expr.EvalAggregate(sum, t.engine.Options())
		}
	}
	return buckets[m.Field].Value(m.Agg)
}

// summed recursively combines every descendant leaf bucket of a subtree,
// keyed the same way leaf buckets are. Used for subtotal and grand-total
// rows.
func summed(n *Node) map[string]map[string]*Bucket {
	acc := make(map[string]map[string]*Bucket)
	sumSubtree(n, acc)
	return acc
}

func sumSubtree(n *Node, acc map[string]map[string]*Bucket) {
	if n.IsLeaf() {
		for colKey, fields := range n.Buckets {
			dst := acc[colKey]
			if dst == nil {
				dst = make(map[string]*Bucket)
				acc[colKey] = dst
			}
			for field, b := range fields {
				into := dst[field]
				if into == nil {
					into = NewBucket()
					dst[field] = into
				}
				into.Combine(b)
			}
		}
		return
	}
	for _, child := range n.Children {
		sumSubtree(child, acc)
	}
}
