// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Reader metrics.
	MetricReadersOpened     = "xzra_readers_opened_total"
	MetricBlocksDecoded     = "xzra_blocks_decoded_total"
	MetricBytesDecompressed = "xzra_bytes_decompressed_total"
	MetricBytesLoaded       = "xzra_bytes_loaded_total"
	MetricLoadSeconds       = "xzra_load_seconds"

	// Writer metrics.
	MetricBlocksEncoded = "xzra_blocks_encoded_total"

	// Cache metrics.
	MetricCacheHits   = "xzra_cache_hits_total"
	MetricCacheMisses = "xzra_cache_misses_total"
	MetricCacheSize   = "xzra_cache_size"
)

// Help returns the description of a known metric, or the name itself.
func Help(name string) string {
	if h, ok := help[name]; ok {
		return h
	}
	return name
}

var help = map[string]string{
	MetricReadersOpened:     "Readers whose index was built successfully.",
	MetricBlocksDecoded:     "Blocks decompressed, cache hits excluded.",
	MetricBytesDecompressed: "Uncompressed bytes produced by block decompression.",
	MetricBytesLoaded:       "Bytes copied into caller buffers by Load.",
	MetricLoadSeconds:       "Wall time of Load calls.",
	MetricBlocksEncoded:     "Blocks compressed by the parallel writer.",
	MetricCacheHits:         "Block cache hits.",
	MetricCacheMisses:       "Block cache misses.",
	MetricCacheSize:         "Blocks currently held by the block cache.",
}

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
