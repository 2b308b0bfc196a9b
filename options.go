package xzra

import (
	"go.uber.org/zap"

	"github.com/discochess/xzra/internal/blockcache"
	"github.com/discochess/xzra/internal/blockcache/memory"
	"github.com/discochess/xzra/internal/blockcache/strategy/lru"
	"github.com/discochess/xzra/internal/chunk"
	"github.com/discochess/xzra/internal/stats"
)

// Option configures a Reader.
type Option interface {
	apply(*options)
}

// options holds the reader configuration.
type options struct {
	chunkSize    int
	maxBlockSize int64
	cache        blockcache.Backend
	cacheBlocks  int
	stats        stats.Collector
	logger       *zap.Logger
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		chunkSize:    chunk.DefaultSize,
		maxBlockSize: 1 << 30, // 1 GiB
		stats:        stats.NewNoop(),
		logger:       zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithChunkSize sets how many compressed bytes are fetched from the source
// per read. It is rounded up to a multiple of four, with a minimum of 64.
// Default is 4096, or RemoteChunkSize for s3:// and gs:// URLs.
func WithChunkSize(n int) Option {
	return optionFunc(func(o *options) {
		o.chunkSize = max(64, (n+3)&^3)
	})
}

// WithMaxBlockSize limits the uncompressed size of a block the reader is
// willing to allocate for. Larger blocks fail with ErrFormat.
// Default is 1 GiB.
func WithMaxBlockSize(n int64) Option {
	return optionFunc(func(o *options) {
		o.maxBlockSize = n
	})
}

// WithCacheBlocks keeps up to n decompressed blocks in an LRU cache private
// to the reader. Zero disables caching, which is the default.
func WithCacheBlocks(n int) Option {
	return optionFunc(func(o *options) {
		o.cacheBlocks = n
	})
}

// WithBlockCache uses the given cache backend. A backend may be shared by
// readers of the same file, for example the workers of LoadParallel.
func WithBlockCache(b blockcache.Backend) Option {
	return optionFunc(func(o *options) {
		o.cache = b
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// NewBlockCache returns an LRU block cache backend holding up to n blocks,
// reporting hits and misses to collector (which may be nil).
func NewBlockCache(n int, collector stats.Collector) (blockcache.Backend, error) {
	strategy, err := lru.New(n)
	if err != nil {
		return nil, err
	}
	return memory.New(strategy, collector), nil
}
