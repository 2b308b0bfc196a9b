// Package simulation measures how partition strategies split reads over a
// block layout.
package simulation

import (
	"math/rand/v2"
	"sort"

	"github.com/discochess/xzra/internal/partition"
)

// Layout is the block structure of one file: the uncompressed start offsets
// of its non-empty blocks and the total uncompressed size.
type Layout struct {
	Starts []int64
	Size   int64
}

// Overlapping returns the indexes [first, last] of the blocks that overlap
// [lo, hi). ok is false for an empty range.
func (l Layout) Overlapping(lo, hi int64) (first, last int, ok bool) {
	if hi <= lo || len(l.Starts) == 0 {
		return 0, 0, false
	}
	first = sort.Search(len(l.Starts), func(i int) bool { return l.Starts[i] > lo }) - 1
	last = sort.Search(len(l.Starts), func(i int) bool { return l.Starts[i] >= hi }) - 1
	first = max(first, 0)
	if last < first {
		return 0, 0, false
	}
	return first, last, true
}

// Request is one read of Length bytes at Offset.
type Request struct {
	Offset int64
	Length int64
}

// GenerateRequests returns count reads over l whose lengths are uniform in
// [minLen, maxLen], clipped to the file. The same seed yields the same
// requests.
func GenerateRequests(l Layout, count int, minLen, maxLen int64, seed uint64) []Request {
	if l.Size <= 0 || count <= 0 {
		return nil
	}
	minLen = max(1, min(minLen, l.Size))
	maxLen = max(minLen, min(maxLen, l.Size))
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	reqs := make([]Request, 0, count)
	for i := 0; i < count; i++ {
		length := minLen + rng.Int64N(maxLen-minLen+1)
		off := rng.Int64N(l.Size - length + 1)
		reqs = append(reqs, Request{Offset: off, Length: length})
	}
	return reqs
}

// Simulator partitions requests with several strategies and counts the
// block decompressions each split causes.
type Simulator struct {
	layout     Layout
	workers    int
	strategies []partition.Strategy
}

// NewSimulator creates a new Simulator splitting every request between
// workers with each of strategies.
func NewSimulator(layout Layout, workers int, strategies ...partition.Strategy) *Simulator {
	return &Simulator{
		layout:     layout,
		workers:    max(1, workers),
		strategies: strategies,
	}
}

// SimulateRequest partitions one request with every strategy.
func (s *Simulator) SimulateRequest(req Request) map[string]*RequestResult {
	results := make(map[string]*RequestResult, len(s.strategies))

	lo, hi := req.Offset, req.Offset+req.Length
	var needed int
	if first, last, ok := s.layout.Overlapping(lo, hi); ok {
		needed = last - first + 1
	}

	for _, strategy := range s.strategies {
		ranges := strategy.Ranges(lo, hi, s.workers, s.layout.Starts)
		result := &RequestResult{
			StrategyName: strategy.Name(),
			Ranges:       ranges,
		}

		var longest int64
		for _, rg := range ranges {
			first, last, ok := s.layout.Overlapping(rg.Offset, rg.End())
			if !ok {
				continue
			}
			for b := first; b <= last; b++ {
				result.BlockAccess = append(result.BlockAccess, b)
			}
			result.Decodes += last - first + 1
			longest = max(longest, rg.Length)
		}
		result.Redundant = result.Decodes - needed
		if len(ranges) > 0 {
			mean := float64(req.Length) / float64(len(ranges))
			result.Imbalance = float64(longest) / mean
		}

		results[strategy.Name()] = result
	}

	return results
}

// SimulateRequests simulates every request and aggregates the results.
func (s *Simulator) SimulateRequests(reqs []Request) map[string]*AggregateResult {
	results := make(map[string]*AggregateResult, len(s.strategies))

	for _, strategy := range s.strategies {
		results[strategy.Name()] = &AggregateResult{
			StrategyName:        strategy.Name(),
			BlockHits:           make(map[int]int),
			RedundantPerRequest: make([]int, 0, len(reqs)),
		}
	}

	for _, req := range reqs {
		reqResults := s.SimulateRequest(req)
		for name, rr := range reqResults {
			agg := results[name]
			agg.Requests++
			agg.TotalDecodes += rr.Decodes
			agg.TotalRedundant += rr.Redundant
			agg.RedundantPerRequest = append(agg.RedundantPerRequest, rr.Redundant)
			agg.Imbalance = append(agg.Imbalance, rr.Imbalance)

			for _, b := range rr.BlockAccess {
				agg.BlockHits[b]++
			}
		}
	}

	for _, agg := range results {
		agg.UniqueBlocks = len(agg.BlockHits)
		if agg.Requests > 0 {
			agg.AvgRedundantPerRequest = float64(agg.TotalRedundant) / float64(agg.Requests)
		}
	}

	return results
}

// RequestResult describes how one strategy split one request.
type RequestResult struct {
	StrategyName string
	Ranges       []partition.Range
	BlockAccess  []int   // Block indexes decoded, worker by worker.
	Decodes      int     // Block decompressions across all workers.
	Redundant    int     // Decodes beyond one per overlapped block.
	Imbalance    float64 // Longest range over mean range length.
}

// AggregateResult contains aggregated results across many requests.
type AggregateResult struct {
	StrategyName           string
	Requests               int
	TotalDecodes           int
	TotalRedundant         int
	UniqueBlocks           int
	AvgRedundantPerRequest float64
	BlockHits              map[int]int // Block index -> decode count.
	RedundantPerRequest    []int       // For statistical analysis.
	Imbalance              []float64

	// WallSeconds holds measured LoadParallel times, one per request, when
	// the simulation was backed by a real file.
	WallSeconds []float64
}
