package blockcache

// Cache fronts block decompression with a Backend.
type Cache struct {
	backend Backend
}

// New creates a cache over backend. A nil backend disables caching.
func New(backend Backend) *Cache {
	return &Cache{backend: backend}
}

// Fetch fills dst with the decompressed contents of block. On a hit the
// cached bytes are copied into dst; on a miss decode fills dst and a
// private copy is stored. dst must already have the block's length.
func (c *Cache) Fetch(block int, dst []byte, decode func(dst []byte) error) (hit bool, err error) {
	if c == nil || c.backend == nil {
		return false, decode(dst)
	}

	// Check cache first.
	if data, ok := c.backend.Get(block); ok && len(data) == len(dst) {
		copy(dst, data)
		return true, nil
	}

	// Cache miss - decompress.
	if err := decode(dst); err != nil {
		return false, err
	}

	c.backend.Set(block, append([]byte(nil), dst...))
	return false, nil
}

// Stats returns cache statistics, or zero stats when caching is disabled.
func (c *Cache) Stats() Stats {
	if c == nil || c.backend == nil {
		return Stats{}
	}
	return c.backend.Stats()
}
