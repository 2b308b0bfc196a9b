// Package index holds the block map of an xz file: where every block of
// every concatenated stream lives, compressed and uncompressed.
package index

import (
	"sort"

	"github.com/discochess/xzra/internal/xzformat"
)

// Stream describes one stream of a possibly concatenated file.
type Stream struct {
	// Number is the 1-based position of the stream in the file.
	Number int
	// CompressedOffset is the file offset of the stream header.
	CompressedOffset int64
	// UncompressedOffset is the offset of the stream's first byte in the
	// concatenated uncompressed data.
	UncompressedOffset int64
	// CompressedSize spans the stream header through the stream footer.
	CompressedSize   int64
	UncompressedSize int64
	Check            xzformat.Check
	// Padding is the number of zero bytes following the stream.
	Padding int64
	// IndexSize is the encoded size of the stream's index.
	IndexSize int64
	// FirstBlock is the position in Index.Blocks of the stream's first block.
	FirstBlock int
	BlockCount int
}

// Block describes one block.
type Block struct {
	// Number is the 1-based position of the block in the file.
	Number int
	// StreamNumber is the 1-based number of the stream holding the block.
	StreamNumber int
	// CompressedOffset is the file offset of the block header.
	CompressedOffset int64
	// UncompressedOffset is the offset of the block's first byte in the
	// concatenated uncompressed data.
	UncompressedOffset int64
	// UnpaddedSize covers header, compressed data and check.
	UnpaddedSize int64
	// TotalSize is UnpaddedSize plus block padding.
	TotalSize        int64
	UncompressedSize int64
	Check            xzformat.Check
}

// UncompressedEnd returns the offset just past the block's last byte.
func (b Block) UncompressedEnd() int64 {
	return b.UncompressedOffset + b.UncompressedSize
}

// Index is the immutable block map produced by Build.
type Index struct {
	blocks   []Block
	streams  []Stream
	fileSize int64
	size     int64
}

// Blocks returns every block, empty ones included, in file order. The
// slice must not be modified.
func (ix *Index) Blocks() []Block { return ix.blocks }

// Streams returns every stream in file order. The slice must not be
// modified.
func (ix *Index) Streams() []Stream { return ix.streams }

// BlockCount returns the number of index records across all streams.
func (ix *Index) BlockCount() int { return len(ix.blocks) }

// StreamCount returns the number of concatenated streams.
func (ix *Index) StreamCount() int { return len(ix.streams) }

// FileSize returns the compressed size of the file the index describes.
func (ix *Index) FileSize() int64 { return ix.fileSize }

// UncompressedSize returns the total decoded size of all streams.
func (ix *Index) UncompressedSize() int64 { return ix.size }

// Locate returns the position in Blocks of the non-empty block holding the
// uncompressed offset off.
func (ix *Index) Locate(off int64) (int, error) {
	if off < 0 || off >= ix.size {
		return 0, xzformat.ErrLocate
	}
	i := sort.Search(len(ix.blocks), func(i int) bool {
		return ix.blocks[i].UncompressedEnd() > off
	})
	if i == len(ix.blocks) {
		return 0, xzformat.Internalf("no block covers offset %d of %d", off, ix.size)
	}
	return i, nil
}

// Cursor walks the non-empty blocks of an index in order.
type Cursor struct {
	ix   *Index
	next int
	cur  int
}

// Cursor returns a cursor positioned before the first non-empty block at
// or after position from.
func (ix *Index) Cursor(from int) *Cursor {
	return &Cursor{ix: ix, next: from, cur: -1}
}

// Next advances to the next non-empty block and reports whether there is
// one.
func (c *Cursor) Next() bool {
	for c.next < len(c.ix.blocks) {
		i := c.next
		c.next++
		if c.ix.blocks[i].UncompressedSize > 0 {
			c.cur = i
			return true
		}
	}
	c.cur = -1
	return false
}

// Block returns the current block. It must only be called after Next
// returned true.
func (c *Cursor) Block() Block {
	return c.ix.blocks[c.cur]
}
