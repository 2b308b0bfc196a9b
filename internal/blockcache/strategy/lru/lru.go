// Package lru implements an LRU cache eviction strategy.
package lru

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/discochess/xzra/internal/blockcache/strategy"
)

// Compile-time check that Strategy implements strategy.Strategy.
var _ strategy.Strategy = (*Strategy)(nil)

// Strategy evicts the least recently used block once capacity blocks are
// cached. It is safe for concurrent use.
type Strategy struct {
	cache *lru.Cache[int, []byte]
}

// New creates a new LRU strategy holding at most capacity blocks.
func New(capacity int) (*Strategy, error) {
	c, err := lru.New[int, []byte](capacity)
	if err != nil {
		return nil, err
	}
	return &Strategy{cache: c}, nil
}

// Get retrieves a block and marks it recently used.
func (s *Strategy) Get(block int) ([]byte, bool) {
	return s.cache.Get(block)
}

// Add caches a block and reports whether an eviction occurred.
func (s *Strategy) Add(block int, value []byte) bool {
	return s.cache.Add(block, value)
}

// Len returns the number of cached blocks.
func (s *Strategy) Len() int {
	return s.cache.Len()
}
