// Package uniform splits a range into equally sized pieces.
//
// It ignores block layout, so a block spanning a cut is decompressed by
// both neighbouring workers. Used as the baseline in benchmarks.
package uniform

import "github.com/discochess/xzra/internal/partition"

// Strategy implements equal-size partitioning.
type Strategy struct{}

// Ensure Strategy implements partition.Strategy.
var _ partition.Strategy = (*Strategy)(nil)

// New creates a new uniform strategy.
func New() *Strategy {
	return &Strategy{}
}

// Name returns the strategy name.
func (s *Strategy) Name() string {
	return "uniform"
}

// Ranges splits [lo, hi) into n pieces whose lengths differ by at most one
// byte; the first pieces take the remainder.
func (s *Strategy) Ranges(lo, hi int64, n int, _ []int64) []partition.Range {
	total := hi - lo
	if total <= 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if int64(n) > total {
		n = int(total)
	}
	q, rem := total/int64(n), total%int64(n)
	ranges := make([]partition.Range, 0, n)
	off := lo
	for i := 0; i < n; i++ {
		length := q
		if int64(i) < rem {
			length++
		}
		ranges = append(ranges, partition.Range{Offset: off, Length: length})
		off += length
	}
	return ranges
}
