/*
SPDX-License-Identifier: Apache-2.0

Copyright 2025 The Pivora Authors
*/

package pivot

import "math"

// Bucket is the accumulator for one field within one (leaf node, column key)
// pair. Subtotal and grand-total values are produced by combining descendant
// leaf buckets, never by re-aggregating already-reduced values.
type Bucket struct {
	Sum   float64
	Count int64
	Min   float64
	Max   float64
}

// NewBucket creates an empty bucket. Min and Max start at the infinities and
// read back as 0 while the bucket has no values.
func NewBucket() *Bucket {
	return &Bucket{
		Min: math.Inf(1),
		Max: math.Inf(-1),
	}
}

// Add accumulates a single coerced value.
func (b *Bucket) Add(v float64) {
	b.Sum += v
	b.Count++
	if v < b.Min {
		b.Min = v
	}
	if v > b.Max {
		b.Max = v
	}
}

// Combine merges another bucket into this one, for summing a subtree.
func (b *Bucket) Combine(other *Bucket) {
	if other == nil || other.Count == 0 {
		return
	}
	b.Sum += other.Sum
	b.Count += other.Count
	if other.Min < b.Min {
		b.Min = other.Min
	}
	if other.Max > b.Max {
		b.Max = other.Max
	}
}

// Value reduces the bucket under an aggregator. Empty buckets yield 0 for
// every aggregator.
func (b *Bucket) Value(agg Aggregator) float64 {
	if b == nil {
		return 0
	}
	switch agg {
	case AggSum:
		return b.Sum
	case AggCount:
		return float64(b.Count)
	case AggAvg:
		if b.Count == 0 {
			return 0
		}
		return b.Sum / float64(b.Count)
	case AggMin:
		if b.Count == 0 {
			return 0
		}
		return b.Min
	case AggMax:
		if b.Count == 0 {
			return 0
		}
		return b.Max
	default:
		return 0
	}
}
