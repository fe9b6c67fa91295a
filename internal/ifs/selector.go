// Package ifs implements the flame iteration: the weighted selector "F"
// and the per work-item sample iterator that plots into an accumulation
// buffer.
package ifs

import (
	"github.com/gogpu/flame/internal/rng"
	"github.com/gogpu/flame/internal/variation"
)

// Table is the selector's view of a variation set: ids, colors and the
// running prefix sums of the weights.
//
// Kernels build one Table per work-group and share it between the group's
// work-items.
type Table struct {
	IDs        []variation.ID
	Colors     [][3]float32
	Thresholds []float32
	Total      float32
}

// NewTable builds a selector table from parallel slices. All three slices
// must have the same length.
func NewTable(ids []variation.ID, colors [][3]float32, weights []float32) *Table {
	t := &Table{}
	t.Reset(ids, colors, weights)
	return t
}

// Reset rebuilds the table in place, reusing its slices when possible.
func (t *Table) Reset(ids []variation.ID, colors [][3]float32, weights []float32) {
	n := len(ids)
	t.IDs = append(t.IDs[:0], ids...)
	t.Colors = append(t.Colors[:0], colors[:n]...)
	t.Thresholds = t.Thresholds[:0]
	var total float32
	for _, w := range weights[:n] {
		total += w
		t.Thresholds = append(t.Thresholds, total)
	}
	t.Total = total
}

// Len returns the number of variations.
func (t *Table) Len() int { return len(t.IDs) }

// Select maps a uniform draw u in [0, 1] to a variation index: the smallest
// r whose prefix sum exceeds u*Total. When nothing exceeds it (u == 1 or
// rounding drift) the last index is returned.
func (t *Table) Select(u float32) int {
	target := u * t.Total
	for r, th := range t.Thresholds {
		if target < th {
			return r
		}
	}
	return len(t.Thresholds) - 1
}

// Step is one application of F: pick a weighted-random variation, blend the
// running color halfway toward its color and transform p with it.
//
// The blend is an exponentially weighted average biased toward recent picks;
// it is not normalized by the iteration count.
func (t *Table) Step(p *variation.Point, c *[3]float32, seed *uint32) {
	r := t.Select(rng.Next(seed))
	col := t.Colors[r]
	c[0] = 0.5 * (c[0] + col[0])
	c[1] = 0.5 * (c[1] + col[1])
	c[2] = 0.5 * (c[2] + col[2])
	if id := t.IDs[r]; id != variation.Linear {
		*p = variation.Apply(id, *p, seed)
	}
}
