// Package gzipcodec provides a gzip input codec.
package gzipcodec

import (
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/discochess/xzra/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

var magic = []byte{0x1f, 0x8b}

// Codec implements gzip decompression. Concatenated members are read as
// one input, as gunzip does.
type Codec struct{}

// New returns a new gzip codec.
func New() *Codec {
	return &Codec{}
}

// Reader wraps r to decompress gzip data.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// Extension returns "gz".
func (c *Codec) Extension() string {
	return "gz"
}

// Magic returns the gzip member header ID bytes.
func (c *Codec) Magic() []byte {
	return magic
}
