package xzformat

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// Sizes of the fixed stream framing.
const (
	StreamHeaderSize = 12
	StreamFooterSize = 12
)

var (
	headerMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	footerMagic = []byte{'Y', 'Z'}
)

// StreamFlags are the two flag bytes repeated in a stream's header and
// footer. Only the check kind is defined; every other bit is reserved.
type StreamFlags struct {
	Check Check
}

func decodeStreamFlags(b []byte) (StreamFlags, error) {
	if b[0] != 0 || b[1]&0xf0 != 0 {
		return StreamFlags{}, Formatf("reserved stream flags set (%#02x %#02x)", b[0], b[1])
	}
	return StreamFlags{Check: Check(b[1])}, nil
}

func (f StreamFlags) append(dst []byte) []byte {
	return append(dst, 0, byte(f.Check))
}

// StreamHeaderMagic returns a copy of the six bytes every stream starts with.
func StreamHeaderMagic() []byte {
	return bytes.Clone(headerMagic)
}

// HasStreamHeaderMagic reports whether b starts with the stream header magic.
func HasStreamHeaderMagic(b []byte) bool {
	return bytes.HasPrefix(b, headerMagic)
}

// DecodeStreamHeader parses the 12-byte stream header in b.
func DecodeStreamHeader(b []byte) (StreamFlags, error) {
	if len(b) < StreamHeaderSize {
		return StreamFlags{}, Formatf("stream header needs %d bytes, have %d", StreamHeaderSize, len(b))
	}
	if !HasStreamHeaderMagic(b) {
		return StreamFlags{}, Formatf("missing stream header magic")
	}
	want := binary.LittleEndian.Uint32(b[8:12])
	if got := crc32.ChecksumIEEE(b[6:8]); got != want {
		return StreamFlags{}, Corruptf("stream header CRC32 %#08x, want %#08x", got, want)
	}
	return decodeStreamFlags(b[6:8])
}

// AppendStreamHeader appends an encoded stream header to dst.
func AppendStreamHeader(dst []byte, f StreamFlags) []byte {
	dst = append(dst, headerMagic...)
	start := len(dst)
	dst = f.append(dst)
	return binary.LittleEndian.AppendUint32(dst, crc32.ChecksumIEEE(dst[start:]))
}

// StreamFooter is the decoded 12-byte stream footer.
type StreamFooter struct {
	Flags StreamFlags
	// BackwardSize is the real size of the index record in bytes.
	BackwardSize int64
}

// DecodeStreamFooter parses the 12-byte stream footer in b.
func DecodeStreamFooter(b []byte) (StreamFooter, error) {
	if len(b) < StreamFooterSize {
		return StreamFooter{}, Formatf("stream footer needs %d bytes, have %d", StreamFooterSize, len(b))
	}
	if !bytes.Equal(b[10:12], footerMagic) {
		return StreamFooter{}, Formatf("missing stream footer magic")
	}
	want := binary.LittleEndian.Uint32(b[0:4])
	if got := crc32.ChecksumIEEE(b[4:10]); got != want {
		return StreamFooter{}, Corruptf("stream footer CRC32 %#08x, want %#08x", got, want)
	}
	flags, err := decodeStreamFlags(b[8:10])
	if err != nil {
		return StreamFooter{}, err
	}
	stored := int64(binary.LittleEndian.Uint32(b[4:8]))
	return StreamFooter{Flags: flags, BackwardSize: (stored + 1) * 4}, nil
}

// AppendStreamFooter appends an encoded stream footer to dst. The backward
// size must be a positive multiple of four that fits the 32-bit field.
func AppendStreamFooter(dst []byte, f StreamFooter) ([]byte, error) {
	if f.BackwardSize < 4 || f.BackwardSize%4 != 0 || f.BackwardSize/4-1 > 0xffffffff {
		return dst, Internalf("invalid backward size %d", f.BackwardSize)
	}
	var body [6]byte
	binary.LittleEndian.PutUint32(body[0:4], uint32(f.BackwardSize/4-1))
	f.Flags.append(body[4:4])
	dst = binary.LittleEndian.AppendUint32(dst, crc32.ChecksumIEEE(body[:]))
	dst = append(dst, body[:]...)
	return append(dst, footerMagic...), nil
}
