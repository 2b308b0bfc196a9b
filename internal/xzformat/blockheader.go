package xzformat

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
)

const (
	maxBlockHeaderSize = 1024

	flagFilterCount      = 0x03
	flagReserved         = 0x3c
	flagCompressedSize   = 0x40
	flagUncompressedSize = 0x80
)

// BlockHeader is a decoded block header.
type BlockHeader struct {
	// Size is the encoded size of the header in bytes.
	Size int
	// CompressedSize is the size of the compressed data, or -1 when the
	// header does not declare it.
	CompressedSize int64
	// UncompressedSize is the decoded size, or -1 when not declared.
	UncompressedSize int64
	Filters          FilterChain
}

// BlockHeaderSize returns the full header size announced by the first
// header byte. A zero byte marks the start of the index, not a block.
func BlockHeaderSize(first byte) (int, error) {
	if first == indexIndicator {
		return 0, Corruptf("found index indicator where a block header was expected")
	}
	return (int(first) + 1) * 4, nil
}

// DecodeBlockHeader parses a complete block header. b must hold exactly the
// number of bytes announced by its first byte.
func DecodeBlockHeader(b []byte) (*BlockHeader, error) {
	if len(b) == 0 {
		return nil, Corruptf("empty block header")
	}
	size, err := BlockHeaderSize(b[0])
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, Internalf("block header buffer has %d bytes, header declares %d", len(b), size)
	}
	want := binary.LittleEndian.Uint32(b[size-4:])
	if got := crc32.ChecksumIEEE(b[:size-4]); got != want {
		return nil, Corruptf("block header CRC32 %#08x, want %#08x", got, want)
	}

	flags := b[1]
	if flags&flagReserved != 0 {
		return nil, Formatf("reserved block flags set (%#02x)", flags)
	}
	h := &BlockHeader{Size: size, CompressedSize: -1, UncompressedSize: -1}
	r := bytes.NewReader(b[2 : size-4])
	if flags&flagCompressedSize != 0 {
		v, _, err := ReadVLI(r)
		if err != nil {
			return nil, headerFieldError("compressed size", err)
		}
		if v == 0 || v > MaxVLI {
			return nil, Corruptf("block header compressed size %d out of range", v)
		}
		h.CompressedSize = int64(v)
	}
	if flags&flagUncompressedSize != 0 {
		v, _, err := ReadVLI(r)
		if err != nil {
			return nil, headerFieldError("uncompressed size", err)
		}
		if v > MaxVLI {
			return nil, Corruptf("block header uncompressed size %d out of range", v)
		}
		h.UncompressedSize = int64(v)
	}
	for i := 0; i < int(flags&flagFilterCount)+1; i++ {
		id, _, err := ReadVLI(r)
		if err != nil {
			return nil, headerFieldError("filter id", err)
		}
		n, _, err := ReadVLI(r)
		if err != nil {
			return nil, headerFieldError("filter properties size", err)
		}
		if n > uint64(r.Len()) {
			return nil, Corruptf("filter properties overrun the block header")
		}
		props := make([]byte, n)
		if _, err := io.ReadFull(r, props); err != nil {
			return nil, headerFieldError("filter properties", err)
		}
		if err := h.Filters.Add(Filter{ID: FilterID(id), Props: props}); err != nil {
			return nil, err
		}
	}
	for r.Len() > 0 {
		if c, _ := r.ReadByte(); c != 0 {
			return nil, Formatf("non-zero block header padding")
		}
	}
	if err := h.Filters.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func headerFieldError(field string, err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return Corruptf("block header truncated in %s", field)
	}
	return err
}

// AppendBlockHeader appends the encoding of h to dst. Negative sizes are
// left out of the header. h.Size is ignored and computed.
func AppendBlockHeader(dst []byte, h *BlockHeader) ([]byte, error) {
	if h.Filters.Len() == 0 {
		return dst, Internalf("block header without filters")
	}
	start := len(dst)
	dst = append(dst, 0, byte(h.Filters.Len()-1))
	if h.CompressedSize >= 0 {
		dst[start+1] |= flagCompressedSize
		dst = AppendVLI(dst, uint64(h.CompressedSize))
	}
	if h.UncompressedSize >= 0 {
		dst[start+1] |= flagUncompressedSize
		dst = AppendVLI(dst, uint64(h.UncompressedSize))
	}
	for i := 0; i < h.Filters.Len(); i++ {
		f := h.Filters.At(i)
		dst = AppendVLI(dst, uint64(f.ID))
		dst = AppendVLI(dst, uint64(len(f.Props)))
		dst = append(dst, f.Props...)
	}
	for (len(dst)-start)%4 != 0 {
		dst = append(dst, 0)
	}
	size := len(dst) - start + 4
	if size > maxBlockHeaderSize {
		return dst[:start], Internalf("block header of %d bytes exceeds %d", size, maxBlockHeaderSize)
	}
	dst[start] = byte(size/4 - 1)
	return binary.LittleEndian.AppendUint32(dst, crc32.ChecksumIEEE(dst[start:])), nil
}
