// Package memxzrafx provides an fx module for a reader over an in-memory
// xz file. Useful for testing.
package memxzrafx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/xzra"
	"github.com/discochess/xzra/internal/source/memsource"
	"github.com/discochess/xzra/internal/stats"
	"github.com/discochess/xzra/internal/stats/logger"
)

// Data is the compressed file served by the module.
type Data []byte

// Module provides a *xzra.Reader over the supplied Data.
// Requires a *zap.Logger and Data to be provided.
var Module = fx.Module("memxzra",
	fx.Provide(
		newStatsCollector,
		newMemSource,
		newReader,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("xzra.stats"))
}

func newMemSource(data Data) *memsource.Source {
	return memsource.New(data)
}

// Params holds dependencies for creating the reader.
type Params struct {
	fx.In

	Data      Data
	Logger    *zap.Logger
	Collector stats.Collector
	Source    *memsource.Source
	Lifecycle fx.Lifecycle
}

// Result holds the provided reader and source.
type Result struct {
	fx.Out

	Reader *xzra.Reader
	Open   xzra.OpenFunc
	Source *memsource.Source // Exposed for test assertions
}

func newReader(p Params) (Result, error) {
	opts := []xzra.Option{
		xzra.WithStats(p.Collector),
		xzra.WithLogger(p.Logger.Named("xzra")),
	}

	reader, err := xzra.NewReader(p.Source, opts...)
	if err != nil {
		return Result{}, err
	}

	open := func() (*xzra.Reader, error) {
		return xzra.NewReader(memsource.New(p.Data), opts...)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return reader.Close()
		},
	})

	return Result{
		Reader: reader,
		Open:   open,
		Source: p.Source,
	}, nil
}
