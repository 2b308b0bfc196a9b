package xzra

import (
	"bytes"
	"errors"
	"fmt"
	"hash"
	"io"

	"go.uber.org/zap"

	"github.com/discochess/xzra/internal/chunk"
	"github.com/discochess/xzra/internal/index"
	"github.com/discochess/xzra/internal/stats"
	"github.com/discochess/xzra/internal/xzformat"
)

// Check identifies the integrity check of a stream's blocks.
type Check = xzformat.Check

// Check kinds that can be verified and written.
const (
	CheckNone   = xzformat.CheckNone
	CheckCRC32  = xzformat.CheckCRC32
	CheckCRC64  = xzformat.CheckCRC64
	CheckSHA256 = xzformat.CheckSHA256
)

// ParseCheck returns the check named s: "none", "crc32", "crc64" or
// "sha256", or the form printed by Check.String.
func ParseCheck(s string) (Check, error) {
	return xzformat.ParseCheck(s)
}

// Block describes one block of a file. It is a value and stays valid while
// the Reader that produced it is open.
type Block struct {
	r *Reader
	b index.Block
}

// Number returns the 1-based position of the block in the file.
func (b Block) Number() int { return b.b.Number }

// StreamNumber returns the 1-based number of the stream holding the block.
func (b Block) StreamNumber() int { return b.b.StreamNumber }

// Check returns the integrity check kind of the block's stream.
func (b Block) Check() Check { return b.b.Check }

// CompressedOffset returns the file offset of the block header.
func (b Block) CompressedOffset() int64 { return b.b.CompressedOffset }

// UncompressedOffset returns the offset of the block's first byte in the
// uncompressed data.
func (b Block) UncompressedOffset() int64 { return b.b.UncompressedOffset }

// TotalSize returns the on-disk size of the block, including header,
// padding and check.
func (b Block) TotalSize() int64 { return b.b.TotalSize }

// UnpaddedSize returns TotalSize without block padding.
func (b Block) UnpaddedSize() int64 { return b.b.UnpaddedSize }

// UncompressedSize returns the number of bytes the block decodes to.
func (b Block) UncompressedSize() int64 { return b.b.UncompressedSize }

// UncompressedEnd returns the offset just past the block's last byte.
func (b Block) UncompressedEnd() int64 { return b.b.UncompressedEnd() }

// Decompress decodes the block and verifies its check. dst is used as the
// output buffer if it has enough capacity; the result has exactly
// UncompressedSize bytes.
func (b Block) Decompress(dst []byte) ([]byte, error) {
	if b.r == nil {
		return nil, xzformat.Internalf("zero Block")
	}
	if b.r.closed {
		return nil, ErrClosed
	}
	s := newScratch(b.r.opts.chunkSize)
	s.data = dst
	return b.r.decompress(b.b, s)
}

func (b Block) String() string {
	return fmt.Sprintf("block %d (stream %d): compressed [%d, +%d), uncompressed [%d, %d)",
		b.b.Number, b.b.StreamNumber, b.b.CompressedOffset, b.b.TotalSize,
		b.b.UncompressedOffset, b.b.UncompressedEnd())
}

// scratch holds the buffers of one Load, Verify or Decompress call. It is
// never stored on the Reader.
type scratch struct {
	chunk  []byte
	data   []byte
	header []byte
	tail   []byte
}

func newScratch(chunkSize int) *scratch {
	return &scratch{chunk: make([]byte, chunkSize)}
}

// grow returns s.data resized to n bytes, reallocating only when the
// capacity is too small.
func (s *scratch) grow(n int) []byte {
	if cap(s.data) < n {
		s.data = make([]byte, n)
	}
	s.data = s.data[:n]
	return s.data
}

// decompress returns the contents of b in s.data, from the cache when
// possible.
func (r *Reader) decompress(b index.Block, s *scratch) ([]byte, error) {
	if b.UncompressedSize > r.opts.maxBlockSize {
		return nil, xzformat.Formatf("block %d decodes to %d bytes, limit is %d",
			b.Number, b.UncompressedSize, r.opts.maxBlockSize)
	}
	dst := s.grow(int(b.UncompressedSize))
	_, err := r.cache.Fetch(b.Number, dst, func(dst []byte) error {
		return r.decodeInto(b, s, dst)
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// decode decompresses b without consulting the cache.
func (r *Reader) decode(b index.Block, s *scratch) ([]byte, error) {
	if b.UncompressedSize > r.opts.maxBlockSize {
		return nil, xzformat.Formatf("block %d decodes to %d bytes, limit is %d",
			b.Number, b.UncompressedSize, r.opts.maxBlockSize)
	}
	dst := s.grow(int(b.UncompressedSize))
	if err := r.decodeInto(b, s, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

func (r *Reader) decodeInto(b index.Block, s *scratch, dst []byte) error {
	if err := r.decodeBlock(b, s, dst); err != nil {
		r.opts.logger.Debug("block decode failed",
			zap.Int("block", b.Number),
			zap.Int("stream", b.StreamNumber),
			zap.Int64("compressedOffset", b.CompressedOffset),
			zap.Error(err),
		)
		return fmt.Errorf("block %d: %w", b.Number, err)
	}
	r.opts.stats.IncCounter(stats.MetricBlocksDecoded, 1)
	r.opts.stats.IncCounter(stats.MetricBytesDecompressed, int64(len(dst)))
	return nil
}

// decodeBlock reads, decodes and verifies one block into dst, which has
// exactly b.UncompressedSize bytes.
func (r *Reader) decodeBlock(b index.Block, s *scratch, dst []byte) error {
	var first [1]byte
	if err := readFull(r.src, first[:], b.CompressedOffset); err != nil {
		return err
	}
	headerSize, err := xzformat.BlockHeaderSize(first[0])
	if err != nil {
		return err
	}
	checkSize := int64(b.Check.Size())
	compressedSize := b.UnpaddedSize - int64(headerSize) - checkSize
	if compressedSize <= 0 {
		return xzformat.Corruptf("header of %d bytes and %d-byte check exceed unpadded size %d",
			headerSize, checkSize, b.UnpaddedSize)
	}

	if cap(s.header) < headerSize {
		s.header = make([]byte, headerSize)
	}
	raw := s.header[:headerSize]
	raw[0] = first[0]
	if err := readFull(r.src, raw[1:], b.CompressedOffset+1); err != nil {
		return err
	}
	h, err := xzformat.DecodeBlockHeader(raw)
	if err != nil {
		return err
	}
	if h.CompressedSize >= 0 && h.CompressedSize != compressedSize {
		return xzformat.Corruptf("header declares %d compressed bytes, index implies %d", h.CompressedSize, compressedSize)
	}
	if h.UncompressedSize >= 0 && h.UncompressedSize != b.UncompressedSize {
		return xzformat.Corruptf("header declares %d uncompressed bytes, index records %d", h.UncompressedSize, b.UncompressedSize)
	}

	dataOffset := b.CompressedOffset + int64(headerSize)
	cr := chunk.NewReader(r.src, dataOffset, compressedSize, s.chunk)
	dec, err := h.Filters.NewReader(cr, b.UncompressedSize)
	if err != nil {
		return err
	}
	sum := b.Check.NewHash()
	if sum != nil {
		dec = io.TeeReader(dec, sum)
	}
	if err := chunk.Drain(dec, dst); err != nil {
		return err
	}
	if left := cr.Remaining(); left != 0 {
		return xzformat.Corruptf("decoder left %d of %d compressed bytes unread", left, compressedSize)
	}

	return r.verifyTail(b, s, dataOffset+compressedSize, checkSize, sum)
}

// verifyTail checks the block padding and the stored check value that
// follow the compressed data at off.
func (r *Reader) verifyTail(b index.Block, s *scratch, off, checkSize int64, sum hash.Hash) error {
	padding := b.TotalSize - b.UnpaddedSize
	n := int(padding + checkSize)
	if n == 0 {
		return nil
	}
	if cap(s.tail) < n {
		s.tail = make([]byte, n)
	}
	tail := s.tail[:n]
	if err := readFull(r.src, tail, off); err != nil {
		return err
	}
	for _, c := range tail[:padding] {
		if c != 0 {
			return xzformat.Corruptf("non-zero block padding")
		}
	}
	stored := tail[padding:]
	if sum == nil {
		if checkSize > 0 {
			r.opts.logger.Debug("skipping unsupported check",
				zap.Int("block", b.Number),
				zap.Stringer("check", b.Check),
			)
		}
		return nil
	}
	if got := sum.Sum(nil); !bytes.Equal(got, stored) {
		return xzformat.Corruptf("%s mismatch: computed %x, stored %x", b.Check, got, stored)
	}
	return nil
}

// readFull reads len(p) bytes at off, classifying any failure as ErrIO.
func readFull(src io.ReaderAt, p []byte, off int64) error {
	n, err := src.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return xzformat.IOError(fmt.Sprintf("read %d bytes at offset %d", len(p), off), err)
}
