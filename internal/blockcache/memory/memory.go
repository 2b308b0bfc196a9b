// Package memory implements an in-memory block cache backend.
package memory

import (
	"sync/atomic"

	"github.com/discochess/xzra/internal/blockcache"
	"github.com/discochess/xzra/internal/blockcache/strategy"
	"github.com/discochess/xzra/internal/stats"
)

// Compile-time check that Backend implements blockcache.Backend.
var _ blockcache.Backend = (*Backend)(nil)

// Backend is a thread-safe in-memory cache backend, as long as its
// strategy is.
type Backend struct {
	strategy  strategy.Strategy
	collector stats.Collector

	hits   atomic.Int64
	misses atomic.Int64
	bytes  atomic.Int64
}

// New creates a new memory backend with the given eviction strategy.
// The collector is optional; if nil, a no-op collector is used.
func New(s strategy.Strategy, collector stats.Collector) *Backend {
	if collector == nil {
		collector = stats.NewNoop()
	}
	return &Backend{
		strategy:  s,
		collector: collector,
	}
}

// Get retrieves a block from the cache.
func (b *Backend) Get(block int) ([]byte, bool) {
	val, ok := b.strategy.Get(block)
	if ok {
		b.hits.Add(1)
		b.collector.IncCounter(stats.MetricCacheHits, 1)
		return val, true
	}
	b.misses.Add(1)
	b.collector.IncCounter(stats.MetricCacheMisses, 1)
	return nil, false
}

// Set stores a block in the cache.
func (b *Backend) Set(block int, data []byte) {
	b.strategy.Add(block, data)
	b.bytes.Add(int64(len(data)))
	b.collector.SetGauge(stats.MetricCacheSize, int64(b.strategy.Len()))
}

// Stats returns current cache statistics.
func (b *Backend) Stats() blockcache.Stats {
	return blockcache.Stats{
		Hits:   b.hits.Load(),
		Misses: b.misses.Load(),
		Size:   b.strategy.Len(),
	}
}

// BytesStored returns the total size of all blocks ever stored, evicted
// ones included.
func (b *Backend) BytesStored() int64 {
	return b.bytes.Load()
}
