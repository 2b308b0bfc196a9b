package xzformat

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"hash/crc64"
)

// Check identifies the integrity check stored after every block of a stream.
type Check byte

// Check kinds defined by the format. IDs 0x02-0x03, 0x05-0x09 and 0x0B-0x0F
// are reserved; their sizes are known, so blocks using them can still be
// navigated, but their values cannot be verified.
const (
	CheckNone   Check = 0x00
	CheckCRC32  Check = 0x01
	CheckCRC64  Check = 0x04
	CheckSHA256 Check = 0x0A

	maxCheckID = 0x0F
)

var checkSizes = [maxCheckID + 1]int{0, 4, 4, 4, 8, 8, 8, 16, 16, 16, 32, 32, 32, 64, 64, 64}

var crc64Table = crc64.MakeTable(crc64.ECMA)

// Valid reports whether c is a check ID the format defines at all.
func (c Check) Valid() bool {
	return c <= maxCheckID
}

// Supported reports whether values of this check kind can be verified.
func (c Check) Supported() bool {
	switch c {
	case CheckNone, CheckCRC32, CheckCRC64, CheckSHA256:
		return true
	}
	return false
}

// Size returns the number of bytes the check value occupies on disk.
func (c Check) Size() int {
	if !c.Valid() {
		return 0
	}
	return checkSizes[c]
}

// NewHash returns a hash producing the on-disk encoding of the check, or
// nil when c is CheckNone or not supported.
func (c Check) NewHash() hash.Hash {
	switch c {
	case CheckCRC32:
		return crc32LE{crc32.NewIEEE()}
	case CheckCRC64:
		return crc64LE{crc64.New(crc64Table)}
	case CheckSHA256:
		return sha256.New()
	}
	return nil
}

func (c Check) String() string {
	switch c {
	case CheckNone:
		return "None"
	case CheckCRC32:
		return "CRC32"
	case CheckCRC64:
		return "CRC64"
	case CheckSHA256:
		return "SHA-256"
	}
	return fmt.Sprintf("Check-%d", byte(c))
}

// ParseCheck maps a check name as printed by String (case-sensitive, or the
// lowercase forms used on command lines) back to a Check.
func ParseCheck(s string) (Check, error) {
	switch s {
	case "None", "none":
		return CheckNone, nil
	case "CRC32", "crc32":
		return CheckCRC32, nil
	case "CRC64", "crc64":
		return CheckCRC64, nil
	case "SHA-256", "sha256", "sha-256":
		return CheckSHA256, nil
	}
	return 0, Formatf("unknown check %q", s)
}

// crc32LE stores CRC32 values little-endian, as the container does.
type crc32LE struct {
	hash.Hash32
}

func (h crc32LE) Sum(b []byte) []byte {
	return binary.LittleEndian.AppendUint32(b, h.Sum32())
}

// crc64LE stores CRC64 values little-endian, as the container does.
type crc64LE struct {
	hash.Hash64
}

func (h crc64LE) Sum(b []byte) []byte {
	return binary.LittleEndian.AppendUint64(b, h.Sum64())
}
