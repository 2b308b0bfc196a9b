// Package blockaligned splits a range at block boundaries.
//
// Each ideal equal-size cut is moved to the nearest block start inside the
// range, so no block is decompressed by more than one worker. When the range
// holds fewer block starts than workers, fewer ranges are returned.
package blockaligned

import (
	"sort"

	"github.com/discochess/xzra/internal/partition"
)

// Strategy implements block-aligned partitioning.
type Strategy struct{}

// Ensure Strategy implements partition.Strategy.
var _ partition.Strategy = (*Strategy)(nil)

// New creates a new block-aligned strategy.
func New() *Strategy {
	return &Strategy{}
}

// Name returns the strategy name.
func (s *Strategy) Name() string {
	return "blockaligned"
}

// Ranges partitions [lo, hi) with cuts snapped to entries of bounds.
func (s *Strategy) Ranges(lo, hi int64, n int, bounds []int64) []partition.Range {
	if hi <= lo {
		return nil
	}
	if n < 1 {
		n = 1
	}

	// Block starts strictly inside the range are the only legal cuts.
	first := sort.Search(len(bounds), func(i int) bool { return bounds[i] > lo })
	last := sort.Search(len(bounds), func(i int) bool { return bounds[i] >= hi })
	inner := bounds[first:last]
	if len(inner) == 0 || n == 1 {
		return []partition.Range{{Offset: lo, Length: hi - lo}}
	}

	total := hi - lo
	cuts := make([]int64, 0, n-1)
	for k := 1; k < n; k++ {
		ideal := lo + total*int64(k)/int64(n)
		c := nearest(inner, ideal)
		if len(cuts) > 0 && cuts[len(cuts)-1] >= c {
			continue
		}
		cuts = append(cuts, c)
	}
	return partition.FromCuts(lo, hi, cuts)
}

// nearest returns the element of the sorted, non-empty xs closest to x,
// preferring the lower one on ties.
func nearest(xs []int64, x int64) int64 {
	i := sort.Search(len(xs), func(i int) bool { return xs[i] >= x })
	switch {
	case i == 0:
		return xs[0]
	case i == len(xs):
		return xs[len(xs)-1]
	case xs[i]-x < x-xs[i-1]:
		return xs[i]
	}
	return xs[i-1]
}
