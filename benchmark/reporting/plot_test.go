package reporting

import (
	"strings"
	"testing"
)

func TestPlotSeries(t *testing.T) {
	if got := PlotSeries("empty", nil); got != "" {
		t.Errorf("PlotSeries(nil) = %q, want empty", got)
	}

	series := make([]float64, 50)
	for i := range series {
		series[i] = float64(i % 7)
	}
	out := PlotSeries("redundant decodes", series)
	if !strings.Contains(out, "redundant decodes") {
		t.Errorf("plot missing caption:\n%s", out)
	}
	lines := strings.Split(out, "\n")
	// Chart rows plus the caption line.
	if len(lines) != plotHeight+2 {
		t.Errorf("plot has %d lines, want %d:\n%s", len(lines), plotHeight+2, out)
	}
}
