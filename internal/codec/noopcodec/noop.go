// Package noopcodec passes uncompressed input through unchanged.
package noopcodec

import (
	"io"

	"github.com/discochess/xzra/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec implements no compression.
type Codec struct{}

// New returns a new no-op codec.
func New() *Codec {
	return &Codec{}
}

// Reader returns r as a ReadCloser whose Close does not close r.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

// Extension returns empty string.
func (c *Codec) Extension() string {
	return ""
}

// Magic returns nil; plain input has no signature.
func (c *Codec) Magic() []byte {
	return nil
}
