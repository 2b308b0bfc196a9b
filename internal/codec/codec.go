// Package codec decodes the compressed inputs the packer accepts.
package codec

import (
	"bytes"
	"io"
	"strings"
)

// MagicSize is the number of leading bytes Detect needs to see.
const MagicSize = 6

// Codec provides decompression for one input format.
type Codec interface {
	// Reader wraps r to decompress data read from it.
	Reader(r io.Reader) (io.ReadCloser, error)
	// Extension returns the file extension without dot (e.g., "zst", "gz").
	// Returns empty string for uncompressed input.
	Extension() string
	// Magic returns the bytes every input of this format starts with, or
	// nil when the format has none.
	Magic() []byte
}

// Detect picks the codec for an input called name whose first bytes are
// header. A matching magic number wins over the name's extension. It
// returns nil if no codec matches.
func Detect(name string, header []byte, codecs ...Codec) Codec {
	for _, c := range codecs {
		if m := c.Magic(); len(m) > 0 && bytes.HasPrefix(header, m) {
			return c
		}
	}
	for _, c := range codecs {
		if ext := c.Extension(); ext != "" && strings.HasSuffix(name, "."+ext) {
			return c
		}
	}
	return nil
}
