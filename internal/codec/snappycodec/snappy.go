// Package snappycodec provides an input codec for the snappy framing
// format.
package snappycodec

import (
	"io"

	"github.com/golang/snappy"

	"github.com/discochess/xzra/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// magic is the start of the stream identifier chunk.
var magic = []byte("\xff\x06\x00\x00sN")

// Codec implements snappy framed-stream decompression. Raw block-format
// snappy has no framing and is not accepted.
type Codec struct{}

// New returns a new snappy codec.
func New() *Codec {
	return &Codec{}
}

// Reader wraps r to decompress a snappy stream.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(snappy.NewReader(r)), nil
}

// Extension returns "sz".
func (c *Codec) Extension() string {
	return "sz"
}

// Magic returns the first bytes of the stream identifier.
func (c *Codec) Magic() []byte {
	return magic
}
