// Package xzrafx provides an fx module for an xz random-access reader.
package xzrafx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/xzra"
	"github.com/discochess/xzra/internal/stats"
	"github.com/discochess/xzra/internal/stats/logger"
)

// Config holds configuration for the reader.
type Config struct {
	// URL names the file: a local path, file://, s3:// or gs:// URL.
	URL string

	// CacheBlocks is the number of decoded blocks the shared reader keeps
	// in memory. Default is 64; negative disables the cache.
	CacheBlocks int

	// ChunkSize is the compressed read size. Zero keeps the library default.
	ChunkSize int
}

// Module provides a *xzra.Reader for Config.URL and an xzra.OpenFunc that
// opens further readers on the same file for LoadParallel.
// Requires a *zap.Logger to be provided.
//
// The provided Reader is shared by everything that depends on it and must
// only be used from one goroutine at a time. Components that load
// concurrently call Open for a Reader of their own and close it when done.
var Module = fx.Module("xzra",
	fx.Provide(
		newStatsCollector,
		newReader,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("xzra.stats"))
}

// Params holds dependencies for creating the reader.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided reader and opener.
type Result struct {
	fx.Out

	Reader *xzra.Reader  // Shared; one goroutine at a time.
	Open   xzra.OpenFunc // Each call returns a new Reader owned by the caller.
}

func newReader(p Params) (Result, error) {
	cacheBlocks := p.Config.CacheBlocks
	if cacheBlocks == 0 {
		cacheBlocks = 64
	}

	opts := []xzra.Option{
		xzra.WithStats(p.Collector),
		xzra.WithLogger(p.Logger.Named("xzra")),
	}
	if p.Config.ChunkSize > 0 {
		opts = append(opts, xzra.WithChunkSize(p.Config.ChunkSize))
	}

	// Remote reads stop when the app stops.
	ctx, cancel := context.WithCancel(context.Background())

	reader, err := xzra.OpenURL(ctx, p.Config.URL, append(opts, xzra.WithCacheBlocks(max(cacheBlocks, 0)))...)
	if err != nil {
		cancel()
		return Result{}, err
	}

	open := func() (*xzra.Reader, error) {
		return xzra.OpenURL(ctx, p.Config.URL, opts...)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			defer cancel()
			return reader.Close()
		},
	})

	return Result{Reader: reader, Open: open}, nil
}
