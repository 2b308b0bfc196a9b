package analysis

import (
	"fmt"

	"github.com/discochess/xzra/benchmark/simulation"
)

// Sample extracts one observation per request from a result.
type Sample struct {
	Name string // e.g. "redundant decodes/request".
	Unit string
	Get  func(*simulation.AggregateResult) []float64
}

// Samples compared by the benchmark. Lower is better for both.
var (
	RedundantDecodes = Sample{
		Name: "redundant decodes/request",
		Unit: "decodes",
		Get: func(r *simulation.AggregateResult) []float64 {
			return intsToFloats(r.RedundantPerRequest)
		},
	}
	WallTime = Sample{
		Name: "wall time/request",
		Unit: "ms",
		Get: func(r *simulation.AggregateResult) []float64 {
			ms := make([]float64, len(r.WallSeconds))
			for i, s := range r.WallSeconds {
				ms[i] = s * 1000
			}
			return ms
		},
	}
)

// StrategyComparison contains a full statistical comparison between two
// strategies on one sample.
type StrategyComparison struct {
	Metric          string
	Unit            string
	Strategy1       string
	Strategy2       string
	Stats1          *DescriptiveStats
	Stats2          *DescriptiveStats
	MannWhitney     *MannWhitneyResult
	EffectSize      *EffectSize
	BootstrapCI     *BootstrapResult
	Winner          string // Strategy with the lower mean, or "tie".
	WinnerConfident bool   // True if statistically significant.
}

// CompareStrategies performs a full statistical comparison between two
// strategies.
func CompareStrategies(
	result1, result2 *simulation.AggregateResult,
	sample Sample,
	bootstrapIterations int,
	confidence float64,
) *StrategyComparison {
	sample1 := sample.Get(result1)
	sample2 := sample.Get(result2)

	mw := MannWhitneyU(sample1, sample2)
	es := ComputeEffectSize(sample1, sample2)
	bs := BootstrapConfidenceInterval(sample1, sample2, bootstrapIterations, confidence)

	stats1 := Describe(sample1)
	stats2 := Describe(sample2)

	winner, confident := "tie", false
	switch {
	case stats1.Mean < stats2.Mean:
		winner, confident = result1.StrategyName, mw.Significant
	case stats2.Mean < stats1.Mean:
		winner, confident = result2.StrategyName, mw.Significant
	}

	return &StrategyComparison{
		Metric:          sample.Name,
		Unit:            sample.Unit,
		Strategy1:       result1.StrategyName,
		Strategy2:       result2.StrategyName,
		Stats1:          stats1,
		Stats2:          stats2,
		MannWhitney:     mw,
		EffectSize:      es,
		BootstrapCI:     bs,
		Winner:          winner,
		WinnerConfident: confident,
	}
}

// Summary returns a human-readable summary of the comparison.
func (c *StrategyComparison) Summary() string {
	sig := "not statistically significant"
	if c.MannWhitney.Significant {
		sig = fmt.Sprintf("statistically significant (p=%.4f)", c.MannWhitney.PValue)
	}

	return fmt.Sprintf(
		"%s vs %s (%s):\n"+
			"  %s: mean=%.3f, median=%.3f, std=%.3f\n"+
			"  %s: mean=%.3f, median=%.3f, std=%.3f\n"+
			"  Difference: %.3f %s (%.1f%%)\n"+
			"  Effect size: %.2f (%s)\n"+
			"  Result: %s, %s",
		c.Strategy1, c.Strategy2, c.Metric,
		c.Strategy1, c.Stats1.Mean, c.Stats1.Median, c.Stats1.StdDev,
		c.Strategy2, c.Stats2.Mean, c.Stats2.Median, c.Stats2.StdDev,
		c.Stats1.Mean-c.Stats2.Mean, c.Unit,
		safePctDiff(c.Stats1.Mean, c.Stats2.Mean),
		c.EffectSize.CohensD, c.EffectSize.Interpretation,
		c.Winner, sig,
	)
}

func intsToFloats(ints []int) []float64 {
	floats := make([]float64, len(ints))
	for i, v := range ints {
		floats[i] = float64(v)
	}
	return floats
}

func safePctDiff(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a - b) / b * 100
}

// MultiStrategyComparison compares multiple strategies against a baseline.
type MultiStrategyComparison struct {
	Baseline    string
	Comparisons []*StrategyComparison
}

// CompareAll compares every strategy against the baseline on sample.
// It returns nil if the baseline has no result.
func CompareAll(
	results map[string]*simulation.AggregateResult,
	baseline string,
	sample Sample,
	bootstrapIterations int,
	confidence float64,
) *MultiStrategyComparison {
	baseResult, ok := results[baseline]
	if !ok {
		return nil
	}

	multi := &MultiStrategyComparison{
		Baseline: baseline,
	}

	for name, result := range results {
		if name == baseline {
			continue
		}
		comp := CompareStrategies(baseResult, result, sample, bootstrapIterations, confidence)
		multi.Comparisons = append(multi.Comparisons, comp)
	}

	return multi
}
