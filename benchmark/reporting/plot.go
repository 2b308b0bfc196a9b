package reporting

import (
	"github.com/guptarohit/asciigraph"
)

const (
	plotHeight   = 8
	plotMaxWidth = 64
)

// PlotSeries renders series as a terminal line chart. Series longer than
// the chart width are resampled. It returns "" for an empty series.
func PlotSeries(caption string, series []float64) string {
	if len(series) == 0 {
		return ""
	}
	opts := []asciigraph.Option{
		asciigraph.Height(plotHeight),
		asciigraph.Caption(caption),
	}
	if len(series) > plotMaxWidth {
		opts = append(opts, asciigraph.Width(plotMaxWidth))
	}
	return asciigraph.Plot(series, opts...)
}
