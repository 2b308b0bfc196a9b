package xzformat

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

const (
	indexIndicator  = 0x00
	minUnpaddedSize = 5
	maxUnpaddedSize = MaxVLI &^ 3
	recordsPrealloc = 1 << 10
	indexCRCSize    = 4
)

// Record is one entry of an index: the sizes of a single block.
type Record struct {
	// UnpaddedSize covers the block header, compressed data and check,
	// excluding block padding.
	UnpaddedSize int64
	// UncompressedSize is the number of bytes the block decodes to.
	UncompressedSize int64
}

// TotalSize is the number of bytes the block occupies on disk.
func (r Record) TotalSize() int64 {
	return Pad4(r.UnpaddedSize)
}

// IndexRecord is a decoded stream index.
type IndexRecord struct {
	Records []Record
	// Size is the encoded size of the index, equal to the footer's
	// backward size for a well-formed stream.
	Size int64
}

// BlocksSize returns the sum of the on-disk sizes of all blocks.
func (ix *IndexRecord) BlocksSize() int64 {
	var n int64
	for _, r := range ix.Records {
		n += r.TotalSize()
	}
	return n
}

// UncompressedSize returns the sum of the uncompressed block sizes.
func (ix *IndexRecord) UncompressedSize() int64 {
	var n int64
	for _, r := range ix.Records {
		n += r.UncompressedSize
	}
	return n
}

// StreamSize returns the on-disk size of the stream the index belongs to,
// from the start of the stream header to the end of the footer.
func (ix *IndexRecord) StreamSize() int64 {
	return StreamHeaderSize + ix.BlocksSize() + ix.Size + StreamFooterSize
}

// Pad4 rounds n up to a multiple of four.
func Pad4(n int64) int64 {
	return (n + 3) &^ 3
}

// crcByteReader feeds every byte it hands out into a running CRC32.
type crcByteReader struct {
	r   io.ByteReader
	crc uint32
	n   int64
}

func (c *crcByteReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err != nil {
		return 0, err
	}
	one := [1]byte{b}
	c.crc = crc32.Update(c.crc, crc32.IEEETable, one[:])
	c.n++
	return b, nil
}

// DecodeIndex reads an index record from r. Every structural problem,
// including a truncated record or sizes whose sum exceeds MaxVLI, is
// reported as ErrCorrupt; failures of r other than io.EOF and
// io.ErrUnexpectedEOF are returned as they are.
func DecodeIndex(r io.ByteReader) (*IndexRecord, error) {
	cr := &crcByteReader{r: r}
	b, err := cr.ReadByte()
	if err != nil {
		return nil, indexReadError(err)
	}
	if b != indexIndicator {
		return nil, Corruptf("index indicator %#02x, want 0x00", b)
	}
	count, _, err := ReadVLI(cr)
	if err != nil {
		return nil, indexReadError(err)
	}
	ix := &IndexRecord{Records: make([]Record, 0, min(count, recordsPrealloc))}
	var blocksSize, totalUncompressed int64
	for i := uint64(0); i < count; i++ {
		unpadded, _, err := ReadVLI(cr)
		if err != nil {
			return nil, indexReadError(err)
		}
		if unpadded < minUnpaddedSize || unpadded > maxUnpaddedSize {
			return nil, Corruptf("index record %d: unpadded size %d out of range", i, unpadded)
		}
		uncompressed, _, err := ReadVLI(cr)
		if err != nil {
			return nil, indexReadError(err)
		}
		if uncompressed > MaxVLI {
			return nil, Corruptf("index record %d: uncompressed size %d out of range", i, uncompressed)
		}
		rec := Record{UnpaddedSize: int64(unpadded), UncompressedSize: int64(uncompressed)}
		if rec.TotalSize() > MaxVLI-blocksSize {
			return nil, Corruptf("index record %d: total block size overflows", i)
		}
		if rec.UncompressedSize > MaxVLI-totalUncompressed {
			return nil, Corruptf("index record %d: total uncompressed size overflows", i)
		}
		blocksSize += rec.TotalSize()
		totalUncompressed += rec.UncompressedSize
		ix.Records = append(ix.Records, rec)
	}
	for cr.n%4 != 0 {
		b, err := cr.ReadByte()
		if err != nil {
			return nil, indexReadError(err)
		}
		if b != 0 {
			return nil, Corruptf("non-zero index padding")
		}
	}
	var stored [indexCRCSize]byte
	for i := range stored {
		if stored[i], err = r.ReadByte(); err != nil {
			return nil, indexReadError(err)
		}
	}
	if want := binary.LittleEndian.Uint32(stored[:]); cr.crc != want {
		return nil, Corruptf("index CRC32 %#08x, want %#08x", cr.crc, want)
	}
	ix.Size = cr.n + indexCRCSize
	if blocksSize > MaxVLI-StreamHeaderSize-StreamFooterSize-ix.Size {
		return nil, Corruptf("stream size overflows")
	}
	return ix, nil
}

func indexReadError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Corruptf("truncated index")
	}
	return err
}

// AppendIndex appends the encoding of an index with the given records.
func AppendIndex(dst []byte, records []Record) []byte {
	start := len(dst)
	dst = append(dst, indexIndicator)
	dst = AppendVLI(dst, uint64(len(records)))
	for _, r := range records {
		dst = AppendVLI(dst, uint64(r.UnpaddedSize))
		dst = AppendVLI(dst, uint64(r.UncompressedSize))
	}
	for (len(dst)-start)%4 != 0 {
		dst = append(dst, 0)
	}
	return binary.LittleEndian.AppendUint32(dst, crc32.ChecksumIEEE(dst[start:]))
}
