// Package main provides the xzra-bench CLI tool for comparing partition
// strategies on real xz files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/discochess/xzra"
	"github.com/discochess/xzra/benchmark/analysis"
	"github.com/discochess/xzra/benchmark/reporting"
	"github.com/discochess/xzra/benchmark/simulation"
	"github.com/discochess/xzra/internal/partition"
)

var (
	dataFile      string
	strategyNames []string
	workers       int
	requests      int
	minLength     int64
	maxLength     int64
	seed          uint64
	measure       bool
	outputFormat  string
	outputFile    string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "xzra-bench",
	Short: "Benchmark partition strategies for parallel loads",
	Long: `xzra-bench compares how partition strategies split parallel loads.

It generates random ranges over the block layout of an xz file, splits each
range between workers with every strategy, and counts the blocks that more
than one worker has to decompress. With --measure it also times real
LoadParallel calls.

Examples:
  # Compare the default strategies
  xzra-bench run --file data.xz

  # Time real loads with 8 workers
  xzra-bench run --file data.xz --workers 8 --measure

  # Output as markdown report
  xzra-bench run --file data.xz --format markdown --output report.md`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark",
	RunE:  runBenchmark,
}

func init() {
	runCmd.Flags().StringVarP(&dataFile, "file", "f", "", "xz file: local path, s3://bucket/key or gs://bucket/object")
	runCmd.Flags().StringSliceVarP(&strategyNames, "strategies", "s", []string{"uniform", "blockaligned"}, "strategies to compare")
	runCmd.Flags().IntVarP(&workers, "workers", "w", 4, "workers per load")
	runCmd.Flags().IntVarP(&requests, "requests", "n", 200, "number of random ranges")
	runCmd.Flags().Int64Var(&minLength, "min-length", 1<<10, "shortest range in bytes")
	runCmd.Flags().Int64Var(&maxLength, "max-length", 1<<22, "longest range in bytes")
	runCmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	runCmd.Flags().BoolVar(&measure, "measure", false, "time real LoadParallel calls")
	runCmd.Flags().StringVar(&outputFormat, "format", "text", "output format: text, markdown")
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	runCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(runCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	open := func() (*xzra.Reader, error) {
		return xzra.OpenURL(ctx, dataFile)
	}

	r, err := open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", dataFile, err)
	}
	layout := simulation.LayoutOf(r)
	blocks := r.BlockCount()
	r.Close()

	if len(layout.Starts) == 0 {
		return fmt.Errorf("%s holds no data", dataFile)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "%s: %d blocks, %d bytes uncompressed\n", dataFile, blocks, layout.Size)
	}

	strategies := make([]partition.Strategy, 0, len(strategyNames))
	for _, name := range strategyNames {
		s, err := xzra.PartitionStrategy(strings.ToLower(name))
		if err != nil {
			return err
		}
		strategies = append(strategies, s)
	}

	reqs := simulation.GenerateRequests(layout, requests, minLength, maxLength, seed)

	if verbose {
		fmt.Fprintln(os.Stderr, "Running simulation...")
	}
	sim := simulation.NewSimulator(layout, workers, strategies...)
	results := sim.SimulateRequests(reqs)

	if measure {
		for _, s := range strategies {
			if verbose {
				fmt.Fprintf(os.Stderr, "Timing %d loads with %s...\n", len(reqs), s.Name())
			}
			if err := simulation.Measure(ctx, open, reqs, workers, s, results[s.Name()]); err != nil {
				return err
			}
		}
	}

	// Statistical comparison of the first two strategies.
	var comparisons []*analysis.StrategyComparison
	if len(strategies) >= 2 {
		r1, r2 := results[strategies[0].Name()], results[strategies[1].Name()]
		comparisons = append(comparisons, analysis.CompareStrategies(r1, r2, analysis.RedundantDecodes, 10000, 0.95))
		if measure {
			comparisons = append(comparisons, analysis.CompareStrategies(r1, r2, analysis.WallTime, 10000, 0.95))
		}
	}

	var output io.Writer = cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	m := reporting.Methodology{
		File:     dataFile,
		Blocks:   blocks,
		Size:     layout.Size,
		Requests: len(reqs),
		Workers:  workers,
		Measured: measure,
	}
	switch outputFormat {
	case "markdown":
		return writeMarkdownReport(output, m, strategies, results, comparisons)
	default:
		return writeTextReport(output, m, strategies, results, comparisons)
	}
}

func writeTextReport(w io.Writer, m reporting.Methodology, strategies []partition.Strategy, results map[string]*simulation.AggregateResult, comps []*analysis.StrategyComparison) error {
	fmt.Fprintf(w, "xzra Partition Strategy Benchmark\n")
	fmt.Fprintf(w, "=================================\n\n")
	fmt.Fprintf(w, "File: %s\n", m.File)
	fmt.Fprintf(w, "Blocks: %d\n", m.Blocks)
	fmt.Fprintf(w, "Uncompressed: %d bytes\n", m.Size)
	fmt.Fprintf(w, "Requests: %d\n", m.Requests)
	fmt.Fprintf(w, "Workers: %d\n\n", m.Workers)

	fmt.Fprintf(w, "Results:\n")
	fmt.Fprintf(w, "--------\n\n")

	for _, s := range strategies {
		metrics := simulation.ComputeMetrics(results[s.Name()])
		fmt.Fprintf(w, "%s:\n", s.Name())
		fmt.Fprintf(w, "  Avg redundant/request: %.2f\n", metrics.AvgRedundantPerRequest)
		fmt.Fprintf(w, "  Median redundant:      %.0f\n", metrics.MedianRedundant)
		fmt.Fprintf(w, "  P90 redundant:         %.0f\n", metrics.P90Redundant)
		fmt.Fprintf(w, "  Total decodes:         %d\n", metrics.TotalDecodes)
		fmt.Fprintf(w, "  Avg imbalance:         %.2f\n", metrics.AvgImbalance)
		if m.Measured {
			fmt.Fprintf(w, "  Median wall time:      %.3fms\n", metrics.MedianWallSeconds*1000)
			fmt.Fprintf(w, "  P90 wall time:         %.3fms\n", metrics.P90WallSeconds*1000)
			fmt.Fprintf(w, "  P99 wall time:         %.3fms\n", metrics.P99WallSeconds*1000)
		}
		if len(results[s.Name()].RedundantPerRequest) > 1 {
			fmt.Fprintln(w)
			series := analysis.RedundantDecodes.Get(results[s.Name()])
			fmt.Fprintln(w, reporting.PlotSeries("redundant decodes by request", series))
		}
		fmt.Fprintln(w)
	}

	if len(comps) > 0 {
		fmt.Fprintf(w, "Statistical Analysis:\n")
		fmt.Fprintf(w, "---------------------\n\n")
		for _, c := range comps {
			fmt.Fprintln(w, c.Summary())
			fmt.Fprintln(w)
		}
	}

	return nil
}

func writeMarkdownReport(w io.Writer, m reporting.Methodology, strategies []partition.Strategy, results map[string]*simulation.AggregateResult, comps []*analysis.StrategyComparison) error {
	report := reporting.NewMarkdownReport(w)
	report.WriteHeader("xzra Partition Strategy Benchmark")
	report.WriteMethodology(m)
	report.WriteSummaryTable(results)

	for _, c := range comps {
		report.WriteComparison(c)
	}
	for _, s := range strategies {
		report.WriteDistributionChart(s.Name(), results[s.Name()].RedundantPerRequest)
	}

	report.WriteFooter()
	return nil
}
