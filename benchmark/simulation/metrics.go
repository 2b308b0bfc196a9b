package simulation

import (
	"sort"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Wall times are recorded in microseconds, up to one hour, to three
// significant figures.
const (
	wallLowest  = 1
	wallHighest = 3600 * 1e6
	wallSigFigs = 3
)

// Metrics contains computed metrics from simulation results.
type Metrics struct {
	// Core metrics.
	Requests               int
	TotalDecodes           int
	TotalRedundant         int
	UniqueBlocks           int
	AvgRedundantPerRequest float64

	// Distribution metrics.
	MedianRedundant float64
	P90Redundant    float64
	P99Redundant    float64
	MinRedundant    int
	MaxRedundant    int

	// Balance and locality.
	AvgImbalance        float64
	DecodeConcentration float64 // Gini coefficient of per-block decodes.

	// Wall time, zero unless measured.
	MedianWallSeconds float64
	P90WallSeconds    float64
	P99WallSeconds    float64
	MaxWallSeconds    float64
}

// ComputeMetrics computes detailed metrics from aggregate results.
func ComputeMetrics(result *AggregateResult) *Metrics {
	m := &Metrics{
		Requests:               result.Requests,
		TotalDecodes:           result.TotalDecodes,
		TotalRedundant:         result.TotalRedundant,
		UniqueBlocks:           result.UniqueBlocks,
		AvgRedundantPerRequest: result.AvgRedundantPerRequest,
	}

	if len(result.RedundantPerRequest) > 0 {
		sorted := make([]int, len(result.RedundantPerRequest))
		copy(sorted, result.RedundantPerRequest)
		sort.Ints(sorted)

		m.MinRedundant = sorted[0]
		m.MaxRedundant = sorted[len(sorted)-1]
		m.MedianRedundant = percentile(sorted, 50)
		m.P90Redundant = percentile(sorted, 90)
		m.P99Redundant = percentile(sorted, 99)
	}

	if len(result.Imbalance) > 0 {
		var sum float64
		for _, v := range result.Imbalance {
			sum += v
		}
		m.AvgImbalance = sum / float64(len(result.Imbalance))
	}

	if len(result.BlockHits) > 0 {
		m.DecodeConcentration = computeGini(result.BlockHits)
	}

	if len(result.WallSeconds) > 0 {
		h := wallHistogram(result.WallSeconds)
		m.MedianWallSeconds = float64(h.ValueAtQuantile(50)) / 1e6
		m.P90WallSeconds = float64(h.ValueAtQuantile(90)) / 1e6
		m.P99WallSeconds = float64(h.ValueAtQuantile(99)) / 1e6
		m.MaxWallSeconds = float64(h.Max()) / 1e6
	}

	return m
}

func percentile(sorted []int, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p / 100)
	return float64(sorted[idx])
}

// wallHistogram records durations in seconds, clamped to the
// histogram's range.
func wallHistogram(seconds []float64) *hdrhistogram.Histogram {
	h := hdrhistogram.New(wallLowest, wallHighest, wallSigFigs)
	for _, s := range seconds {
		us := int64(s * 1e6)
		us = min(max(us, wallLowest), wallHighest)
		_ = h.RecordValue(us)
	}
	return h
}

func computeGini(hits map[int]int) float64 {
	if len(hits) == 0 {
		return 0
	}

	values := make([]int, 0, len(hits))
	for _, v := range hits {
		values = append(values, v)
	}
	sort.Ints(values)

	n := float64(len(values))
	var sum, cumulativeSum float64
	for i, v := range values {
		sum += float64(v)
		cumulativeSum += float64(i+1) * float64(v)
	}

	if sum == 0 {
		return 0
	}

	return (2*cumulativeSum)/(n*sum) - (n+1)/n
}

// MetricsComparison holds the differences between two strategies' metrics.
type MetricsComparison struct {
	Strategy1 string
	Strategy2 string

	RedundantDiff     float64 // Positive means Strategy1 decodes more.
	RedundantDiffPct  float64
	ImbalanceDiff     float64
	ConcentrationDiff float64
}

// Compare compares two metrics and returns the differences.
func Compare(m1, m2 *Metrics, name1, name2 string) *MetricsComparison {
	return &MetricsComparison{
		Strategy1:         name1,
		Strategy2:         name2,
		RedundantDiff:     m1.AvgRedundantPerRequest - m2.AvgRedundantPerRequest,
		RedundantDiffPct:  safeDiffPct(m1.AvgRedundantPerRequest, m2.AvgRedundantPerRequest),
		ImbalanceDiff:     m1.AvgImbalance - m2.AvgImbalance,
		ConcentrationDiff: m1.DecodeConcentration - m2.DecodeConcentration,
	}
}

func safeDiffPct(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a - b) / b * 100
}
