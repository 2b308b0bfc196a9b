// Package reporting provides report generation for benchmark results.
package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/discochess/xzra/benchmark/analysis"
	"github.com/discochess/xzra/benchmark/simulation"
)

// Methodology describes how a benchmark was run.
type Methodology struct {
	File     string
	Blocks   int
	Size     int64
	Requests int
	Workers  int
	Measured bool // Wall times were recorded.
}

// MarkdownReport generates benchmark reports in Markdown format.
type MarkdownReport struct {
	w   io.Writer
	now func() time.Time
}

// NewMarkdownReport creates a new Markdown report writer.
func NewMarkdownReport(w io.Writer) *MarkdownReport {
	return &MarkdownReport{w: w, now: time.Now}
}

// WriteHeader writes the report header.
func (r *MarkdownReport) WriteHeader(title string) {
	fmt.Fprintf(r.w, "# %s\n\n", title)
	fmt.Fprintf(r.w, "Generated: %s\n\n", r.now().Format(time.RFC3339))
}

// WriteMethodology writes the methodology section.
func (r *MarkdownReport) WriteMethodology(m Methodology) {
	fmt.Fprintln(r.w, "## Methodology")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **File:** `%s` (%d blocks, %d bytes uncompressed)\n", m.File, m.Blocks, m.Size)
	fmt.Fprintf(r.w, "- **Requests:** %d random ranges\n", m.Requests)
	fmt.Fprintf(r.w, "- **Workers:** %d\n", m.Workers)
	fmt.Fprintln(r.w, "- **Metric:** Redundant block decompressions per request (lower is better)")
	if m.Measured {
		fmt.Fprintln(r.w, "- **Timing:** LoadParallel wall time per request")
	}
	fmt.Fprintln(r.w, "- **Statistical tests:** Mann-Whitney U (non-parametric), Cohen's d effect size")
	fmt.Fprintln(r.w)
}

// WriteSummaryTable writes the summary comparison table, one row per
// strategy in name order.
func (r *MarkdownReport) WriteSummaryTable(results map[string]*simulation.AggregateResult) {
	fmt.Fprintln(r.w, "## Summary")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Strategy | Avg Redundant | P90 Redundant | Decodes | Avg Imbalance | Median Wall (ms) |")
	fmt.Fprintln(r.w, "|----------|---------------|---------------|---------|---------------|------------------|")

	for _, name := range sortedNames(results) {
		m := simulation.ComputeMetrics(results[name])
		fmt.Fprintf(r.w, "| %s | %.2f | %.0f | %d | %.2f | %.3f |\n",
			name, m.AvgRedundantPerRequest, m.P90Redundant,
			m.TotalDecodes, m.AvgImbalance, m.MedianWallSeconds*1000)
	}
	fmt.Fprintln(r.w)
}

// WriteComparison writes a detailed comparison section.
func (r *MarkdownReport) WriteComparison(comp *analysis.StrategyComparison) {
	fmt.Fprintf(r.w, "## %s vs %s: %s\n\n", comp.Strategy1, comp.Strategy2, comp.Metric)

	fmt.Fprintln(r.w, "### Descriptive Statistics")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Metric | "+comp.Strategy1+" | "+comp.Strategy2+" |")
	fmt.Fprintln(r.w, "|--------|"+strings.Repeat("-", len(comp.Strategy1)+2)+"|"+strings.Repeat("-", len(comp.Strategy2)+2)+"|")
	fmt.Fprintf(r.w, "| Mean | %.3f | %.3f |\n", comp.Stats1.Mean, comp.Stats2.Mean)
	fmt.Fprintf(r.w, "| Median | %.3f | %.3f |\n", comp.Stats1.Median, comp.Stats2.Median)
	fmt.Fprintf(r.w, "| Std Dev | %.3f | %.3f |\n", comp.Stats1.StdDev, comp.Stats2.StdDev)
	fmt.Fprintf(r.w, "| Min | %.3f | %.3f |\n", comp.Stats1.Min, comp.Stats2.Min)
	fmt.Fprintf(r.w, "| Max | %.3f | %.3f |\n", comp.Stats1.Max, comp.Stats2.Max)
	fmt.Fprintln(r.w)

	fmt.Fprintln(r.w, "### Statistical Analysis")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Mann-Whitney U:** %.2f (z=%.2f, p=%.4f)\n",
		comp.MannWhitney.U, comp.MannWhitney.Z, comp.MannWhitney.PValue)
	fmt.Fprintf(r.w, "- **Effect size (Cohen's d):** %.2f (%s)\n",
		comp.EffectSize.CohensD, comp.EffectSize.Interpretation)
	fmt.Fprintf(r.w, "- **%.0f%% CI for mean difference:** [%.3f, %.3f] %s\n",
		comp.BootstrapCI.Confidence*100, comp.BootstrapCI.LowerBound, comp.BootstrapCI.UpperBound, comp.Unit)
	fmt.Fprintln(r.w)

	fmt.Fprintln(r.w, "### Conclusion")
	fmt.Fprintln(r.w)
	if comp.WinnerConfident {
		fmt.Fprintf(r.w, "**%s** shows statistically significant improvement over %s ",
			comp.Winner, otherStrategy(comp.Winner, comp.Strategy1, comp.Strategy2))
		fmt.Fprintf(r.w, "(p < 0.05, effect size: %s).\n", comp.EffectSize.Interpretation)
	} else {
		fmt.Fprintln(r.w, "No statistically significant difference detected between strategies (p >= 0.05).")
	}
	fmt.Fprintln(r.w)
}

func otherStrategy(winner, s1, s2 string) string {
	if winner == s1 {
		return s2
	}
	return s1
}

// WriteDistributionChart writes an ASCII histogram of data.
func (r *MarkdownReport) WriteDistributionChart(name string, data []int) {
	fmt.Fprintf(r.w, "### %s Distribution\n\n", name)
	fmt.Fprintln(r.w, "```")

	lo, hist := makeHistogram(data, 10)
	maxCount := 0
	for _, b := range hist {
		maxCount = max(maxCount, b.count)
	}

	width := 40
	for _, b := range hist {
		barLen := 0
		if maxCount > 0 {
			barLen = b.count * width / maxCount
		}
		bar := strings.Repeat("█", barLen)
		fmt.Fprintf(r.w, "%4d-%4d │ %s %d\n", lo+b.from, lo+b.to, bar, b.count)
	}

	fmt.Fprintln(r.w, "```")
	fmt.Fprintln(r.w)
}

type bucket struct {
	from, to int // Inclusive, relative to the minimum.
	count    int
}

// makeHistogram buckets data into at most n equal-width integer buckets.
// It returns the minimum value and the buckets.
func makeHistogram(data []int, n int) (int, []bucket) {
	if len(data) == 0 {
		return 0, nil
	}

	lo, hi := data[0], data[0]
	for _, v := range data {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	span := hi - lo + 1
	width := (span + n - 1) / n
	buckets := make([]bucket, (span+width-1)/width)
	for i := range buckets {
		buckets[i].from = i * width
		buckets[i].to = (i+1)*width - 1
	}
	for _, v := range data {
		buckets[(v-lo)/width].count++
	}

	return lo, buckets
}

// WriteFooter writes the report footer.
func (r *MarkdownReport) WriteFooter() {
	fmt.Fprintln(r.w, "---")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "*Report generated by xzra-bench*")
}

func sortedNames(results map[string]*simulation.AggregateResult) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
