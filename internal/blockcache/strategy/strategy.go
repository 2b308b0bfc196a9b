// Package strategy defines cache eviction strategy interfaces.
package strategy

// Strategy maps block numbers to decompressed block data and decides what
// to evict.
type Strategy interface {
	Get(block int) ([]byte, bool)
	Add(block int, value []byte) bool
	Len() int
}
