// Package xzcodec reads existing xz files sequentially, so they can be
// repacked with a block layout suited to random access.
package xzcodec

import (
	"io"

	"github.com/ulikunitz/xz"

	"github.com/discochess/xzra/internal/codec"
	"github.com/discochess/xzra/internal/xzformat"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

var magic = xzformat.StreamHeaderMagic()

// Codec implements xz decompression over all concatenated streams.
type Codec struct {
	dictCap int
}

// New returns a new xz codec. dictCap bounds the dictionary the decoder
// will allocate; 0 keeps the library default.
func New(dictCap int) *Codec {
	return &Codec{dictCap: dictCap}
}

// Reader wraps r to decompress xz data.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.ReaderConfig{DictCap: c.dictCap}.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}

// Extension returns "xz".
func (c *Codec) Extension() string {
	return "xz"
}

// Magic returns the first bytes of the xz stream header.
func (c *Codec) Magic() []byte {
	return magic
}
