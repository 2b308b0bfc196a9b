// Package zstdcodec provides a zstd input codec.
package zstdcodec

import (
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/discochess/xzra/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

var magic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Codec implements zstd decompression.
type Codec struct {
	maxWindow uint64
}

// New returns a new zstd codec. A maxWindow of 0 keeps the decoder's
// default limit; larger values allow frames made with --long.
func New(maxWindow uint64) *Codec {
	return &Codec{maxWindow: maxWindow}
}

// Reader wraps r to decompress zstd data.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	var opts []zstd.DOption
	if c.maxWindow > 0 {
		opts = append(opts, zstd.WithDecoderMaxWindow(c.maxWindow))
	}
	decoder, err := zstd.NewReader(r, opts...)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

// Extension returns "zst".
func (c *Codec) Extension() string {
	return "zst"
}

// Magic returns the zstd frame magic number.
func (c *Codec) Magic() []byte {
	return magic
}
