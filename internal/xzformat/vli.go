package xzformat

import "io"

// MaxVLI is the largest value a variable-length integer may encode.
const MaxVLI = 1<<63 - 1

// maxVLIBytes is the longest valid encoding of a VLI.
const maxVLIBytes = 9

// ReadVLI decodes one variable-length integer from r. It returns the value
// and the number of bytes consumed. Encodings longer than necessary are
// rejected, as the format requires.
func ReadVLI(r io.ByteReader) (x uint64, n int, err error) {
	for n < maxVLIBytes {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, n, err
		}
		x |= uint64(b&0x7f) << (7 * n)
		n++
		if b&0x80 == 0 {
			if b == 0 && n > 1 {
				return 0, n, Corruptf("variable-length integer is not minimally encoded")
			}
			return x, n, nil
		}
	}
	return 0, n, Corruptf("variable-length integer longer than %d bytes", maxVLIBytes)
}

// AppendVLI appends the encoding of x to dst.
func AppendVLI(dst []byte, x uint64) []byte {
	for x >= 0x80 {
		dst = append(dst, byte(x)|0x80)
		x >>= 7
	}
	return append(dst, byte(x))
}

// SizeVLI returns the encoded length of x.
func SizeVLI(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}
