package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discochess/xzra"
	"github.com/discochess/xzra/internal/stats"
	statsprom "github.com/discochess/xzra/internal/stats/prometheus"
)

var (
	// Global flags.
	verbose     bool
	metricsAddr string
	cacheBlocks int
	chunkSize   int

	// Set up in PersistentPreRunE.
	logger    = zap.NewNop()
	collector stats.Collector = stats.NewNoop()
)

var rootCmd = &cobra.Command{
	Use:   "xzra",
	Short: "Random-access reads over xz files",
	Long: `xzra reads byte ranges out of xz files without decompressing them
from the start. It builds the block index from the end of the file, then
decodes only the blocks a range touches.

Files written with many blocks (xz -T, or xzra compress) give the best
access times; single-block files still work but every read decodes the
whole block.

Examples:
  # Show the stream and block layout
  xzra info data.xz

  # Extract 1 MiB at offset 100 MiB using 4 workers
  xzra cat data.xz --offset 104857600 --length 1048576 --workers 4

  # Repack a gzip file for random access
  xzra compress data.gz data.xz --block-size 4MiB --threads 8`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			l, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			logger = l
		}
		if metricsAddr != "" {
			return serveMetrics(cmd.Context(), metricsAddr)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.PersistentFlags().IntVar(&cacheBlocks, "cache-blocks", 0, "number of decompressed blocks to cache per reader")
	rootCmd.PersistentFlags().IntVar(&chunkSize, "chunk-size", 0, "bytes read from the source per request (0 for the default)")
}

// serveMetrics exposes the collector's metrics over HTTP until ctx ends.
func serveMetrics(ctx context.Context, addr string) error {
	registry := prometheus.NewRegistry()
	collector = statsprom.New(registry)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	if ctx != nil {
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
	}
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return nil
}

// readerOptions returns the reader options selected by global flags.
func readerOptions() []xzra.Option {
	opts := []xzra.Option{
		xzra.WithLogger(logger),
		xzra.WithStats(collector),
	}
	if cacheBlocks > 0 {
		opts = append(opts, xzra.WithCacheBlocks(cacheBlocks))
	}
	if chunkSize > 0 {
		opts = append(opts, xzra.WithChunkSize(chunkSize))
	}
	return opts
}

// openReader opens a local path or object URL with the global options.
func openReader(ctx context.Context, path string) (*xzra.Reader, error) {
	return xzra.OpenURL(ctx, path, readerOptions()...)
}
