package reporting

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/discochess/xzra/benchmark/analysis"
	"github.com/discochess/xzra/benchmark/simulation"
)

func TestMakeHistogram(t *testing.T) {
	tests := []struct {
		name       string
		data       []int
		wantLo     int
		wantCounts []int
	}{
		{name: "empty", data: nil, wantLo: 0, wantCounts: nil},
		{name: "single value", data: []int{3, 3}, wantLo: 3, wantCounts: []int{2}},
		{name: "unit buckets", data: []int{0, 0, 1, 5, 9}, wantLo: 0, wantCounts: []int{2, 1, 0, 0, 0, 1, 0, 0, 0, 1}},
		{name: "wide buckets", data: []int{10, 12, 29}, wantLo: 10, wantCounts: []int{1, 1, 0, 0, 0, 0, 0, 0, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, buckets := makeHistogram(tt.data, 10)
			if lo != tt.wantLo {
				t.Errorf("lo = %d, want %d", lo, tt.wantLo)
			}
			if len(buckets) != len(tt.wantCounts) {
				t.Fatalf("len(buckets) = %d, want %d", len(buckets), len(tt.wantCounts))
			}
			for i, b := range buckets {
				if b.count != tt.wantCounts[i] {
					t.Errorf("bucket %d count = %d, want %d", i, b.count, tt.wantCounts[i])
				}
			}
		})
	}
}

func TestMarkdownReport(t *testing.T) {
	results := map[string]*simulation.AggregateResult{
		"uniform": {
			StrategyName:        "uniform",
			Requests:            4,
			TotalDecodes:        10,
			TotalRedundant:      4,
			RedundantPerRequest: []int{1, 1, 1, 1},
		},
		"blockaligned": {
			StrategyName:        "blockaligned",
			Requests:            4,
			TotalDecodes:        6,
			RedundantPerRequest: []int{0, 0, 0, 0},
		},
	}
	comp := analysis.CompareStrategies(results["uniform"], results["blockaligned"], analysis.RedundantDecodes, 100, 0.95)

	var buf bytes.Buffer
	report := NewMarkdownReport(&buf)
	report.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	report.WriteHeader("Partition Benchmark")
	report.WriteMethodology(Methodology{File: "data.xz", Blocks: 5, Size: 1000, Requests: 4, Workers: 2})
	report.WriteSummaryTable(results)
	report.WriteComparison(comp)
	report.WriteDistributionChart("uniform", results["uniform"].RedundantPerRequest)
	report.WriteFooter()

	out := buf.String()
	for _, want := range []string{
		"# Partition Benchmark",
		"Generated: 2024-01-02T03:04:05Z",
		"`data.xz` (5 blocks, 1000 bytes uncompressed)",
		"| blockaligned | 0.00 |",
		"## uniform vs blockaligned: redundant decodes/request",
		"95% CI for mean difference",
		"*Report generated by xzra-bench*",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	// Rows are sorted by strategy name.
	if strings.Index(out, "| blockaligned |") > strings.Index(out, "| uniform |") {
		t.Error("summary rows not in name order")
	}
}
