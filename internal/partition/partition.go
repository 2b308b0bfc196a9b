// Package partition defines how an uncompressed byte range is split between
// parallel workers.
package partition

// Range is a contiguous span of uncompressed bytes.
type Range struct {
	Offset int64
	Length int64
}

// End returns the offset just past the range.
func (r Range) End() int64 { return r.Offset + r.Length }

// Strategy splits [lo, hi) into at most n contiguous, non-empty, disjoint
// ranges that cover it in order.
type Strategy interface {
	// Name returns a human-readable name for this strategy.
	Name() string

	// Ranges partitions [lo, hi). bounds lists the uncompressed start
	// offsets of the file's non-empty blocks in ascending order; strategies
	// that ignore block layout may ignore it.
	Ranges(lo, hi int64, n int, bounds []int64) []Range
}

// FromCuts turns ascending interior cut points into ranges over [lo, hi).
// Cuts outside (lo, hi) and duplicates are dropped.
func FromCuts(lo, hi int64, cuts []int64) []Range {
	ranges := make([]Range, 0, len(cuts)+1)
	start := lo
	for _, c := range cuts {
		if c <= start || c >= hi {
			continue
		}
		ranges = append(ranges, Range{Offset: start, Length: c - start})
		start = c
	}
	if hi > start {
		ranges = append(ranges, Range{Offset: start, Length: hi - start})
	}
	return ranges
}
