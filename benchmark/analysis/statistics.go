// Package analysis provides statistical analysis for benchmark results.
package analysis

import (
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// significance is the p-value below which a difference counts.
const significance = 0.05

// MannWhitneyResult contains the result of a Mann-Whitney U test.
type MannWhitneyResult struct {
	U           float64 // Smaller of the two U statistics.
	Z           float64 // Normal approximation, tie corrected.
	PValue      float64 // Two-tailed.
	Significant bool    // PValue < 0.05.
}

// MannWhitneyU tests whether two samples of per-request observations come
// from different distributions. Decode counts tie heavily, so the variance
// uses the tie correction.
func MannWhitneyU(sample1, sample2 []float64) *MannWhitneyResult {
	if len(sample1) == 0 || len(sample2) == 0 {
		return &MannWhitneyResult{}
	}
	n1, n2 := float64(len(sample1)), float64(len(sample2))
	n := n1 + n2

	ranks, ties := midRanks(slices.Concat(sample1, sample2))
	r1 := floats.Sum(ranks[:len(sample1)])

	u1 := r1 - n1*(n1+1)/2
	u := math.Min(u1, n1*n2-u1)

	mu := n1 * n2 / 2
	variance := n1 * n2 / 12 * ((n + 1) - ties/(n*(n-1)))
	var z float64
	if variance > 0 {
		z = (u - mu) / math.Sqrt(variance)
	}
	p := 2 * distuv.UnitNormal.CDF(-math.Abs(z))

	return &MannWhitneyResult{
		U:           u,
		Z:           z,
		PValue:      p,
		Significant: p < significance,
	}
}

// midRanks returns the 1-based rank of every value in x, in x's order,
// with tied values sharing the mean of their ranks. ties is the sum of
// t³-t over every group of t tied values.
func midRanks(x []float64) (ranks []float64, ties float64) {
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return x[order[a]] < x[order[b]] })

	ranks = make([]float64, len(x))
	for lo := 0; lo < len(order); {
		hi := lo + 1
		for hi < len(order) && x[order[hi]] == x[order[lo]] {
			hi++
		}
		mid := float64(lo+hi+1) / 2
		for _, i := range order[lo:hi] {
			ranks[i] = mid
		}
		t := float64(hi - lo)
		ties += t*t*t - t
		lo = hi
	}
	return ranks, ties
}

// EffectSize contains effect size metrics.
type EffectSize struct {
	CohensD        float64 // (mean1 - mean2) / pooled standard deviation.
	Interpretation string  // "negligible", "small", "medium", "large" or "undefined".
}

// ComputeEffectSize computes Cohen's d. It is undefined with fewer than
// three observations in total.
func ComputeEffectSize(sample1, sample2 []float64) *EffectSize {
	if len(sample1) == 0 || len(sample2) == 0 || len(sample1)+len(sample2) < 3 {
		return &EffectSize{Interpretation: "undefined"}
	}

	mean1, var1 := stat.MeanVariance(sample1, nil)
	mean2, var2 := stat.MeanVariance(sample2, nil)
	if len(sample1) == 1 {
		var1 = 0
	}
	if len(sample2) == 1 {
		var2 = 0
	}
	n1, n2 := float64(len(sample1)), float64(len(sample2))
	pooled := math.Sqrt(((n1-1)*var1 + (n2-1)*var2) / (n1 + n2 - 2))

	var d float64
	if pooled > 0 {
		d = (mean1 - mean2) / pooled
	}
	return &EffectSize{CohensD: d, Interpretation: interpretCohensD(math.Abs(d))}
}

func interpretCohensD(d float64) string {
	switch {
	case d < 0.2:
		return "negligible"
	case d < 0.5:
		return "small"
	case d < 0.8:
		return "medium"
	default:
		return "large"
	}
}

// BootstrapResult is a bootstrap confidence interval for the mean difference.
type BootstrapResult struct {
	MeanDiff   float64
	LowerBound float64
	UpperBound float64
	Confidence float64 // e.g. 0.95.
}

// BootstrapConfidenceInterval estimates a percentile confidence interval
// for mean(sample1) - mean(sample2). The resampling is seeded, so the same
// inputs always give the same interval.
func BootstrapConfidenceInterval(sample1, sample2 []float64, iterations int, confidence float64) *BootstrapResult {
	if len(sample1) == 0 || len(sample2) == 0 || iterations <= 0 {
		return &BootstrapResult{Confidence: confidence}
	}

	rng := rand.New(rand.NewPCG(1, 2))
	buf1 := make([]float64, len(sample1))
	buf2 := make([]float64, len(sample2))
	diffs := make([]float64, iterations)
	for i := range diffs {
		resample(rng, buf1, sample1)
		resample(rng, buf2, sample2)
		diffs[i] = stat.Mean(buf1, nil) - stat.Mean(buf2, nil)
	}
	sort.Float64s(diffs)

	tail := min(max((1-confidence)/2, 0), 0.5)
	return &BootstrapResult{
		MeanDiff:   stat.Mean(sample1, nil) - stat.Mean(sample2, nil),
		LowerBound: stat.Quantile(tail, stat.Empirical, diffs, nil),
		UpperBound: stat.Quantile(1-tail, stat.Empirical, diffs, nil),
		Confidence: confidence,
	}
}

// resample fills dst with values drawn from sample with replacement.
func resample(rng *rand.Rand, dst, sample []float64) {
	for i := range dst {
		dst[i] = sample[rng.IntN(len(sample))]
	}
}

// DescriptiveStats contains basic descriptive statistics.
type DescriptiveStats struct {
	N      int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
	P25    float64
	P75    float64
}

// Describe computes descriptive statistics for a sample.
func Describe(sample []float64) *DescriptiveStats {
	if len(sample) == 0 {
		return &DescriptiveStats{}
	}
	sorted := slices.Clone(sample)
	sort.Float64s(sorted)

	d := &DescriptiveStats{
		N:      len(sample),
		Mean:   stat.Mean(sample, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		P25:    stat.Quantile(0.25, stat.Empirical, sorted, nil),
		P75:    stat.Quantile(0.75, stat.Empirical, sorted, nil),
	}
	if len(sample) > 1 {
		d.StdDev = stat.StdDev(sample, nil)
	}
	return d
}
