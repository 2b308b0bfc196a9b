// Package blockcache keeps recently decompressed blocks so repeated loads
// from the same region skip decompression.
package blockcache

// Backend defines the interface for cache storage backends.
// Keys are 1-based block numbers, so a Backend must only be shared between
// readers of the same file.
type Backend interface {
	// Get retrieves a cached block. Returns nil, false if not found.
	Get(block int) ([]byte, bool)

	// Set stores a block in the cache. The backend takes ownership of data.
	Set(block int, data []byte)

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats contains cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int // Current number of entries
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}
