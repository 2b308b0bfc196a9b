// Package chunk feeds compressed bytes from a random-access source to a
// streaming decoder in fixed-size pieces.
//
// A Reader owns one scratch buffer and only refills it after the decoder
// has taken every byte it was given, so the bytes fetched from the source
// are exactly the bytes the decoder consumed, rounded up to one chunk.
package chunk

import (
	"errors"
	"fmt"
	"io"

	"github.com/discochess/xzra/internal/xzformat"
)

// DefaultSize is the default scratch buffer size. It is a multiple of four
// so backward scans stay word aligned.
const DefaultSize = 4096

// maxEmptyReads bounds how often Drain retries a decoder that returns
// neither data nor an error.
const maxEmptyReads = 100

// Reader is an io.Reader and io.ByteReader over n bytes of src starting at
// a given offset.
type Reader struct {
	src       io.ReaderAt
	next      int64 // source offset of the next refill
	remaining int64 // bytes of the window not yet fetched
	buf       []byte
	r, w      int // unread part of buf
	consumed  int64
}

var (
	_ io.Reader     = (*Reader)(nil)
	_ io.ByteReader = (*Reader)(nil)
)

// NewReader returns a Reader over src[off:off+n]. buf is used as the
// scratch buffer; if it is empty a buffer of DefaultSize is allocated.
func NewReader(src io.ReaderAt, off, n int64, buf []byte) *Reader {
	if len(buf) == 0 {
		buf = make([]byte, DefaultSize)
	}
	return &Reader{src: src, next: off, remaining: n, buf: buf}
}

// Consumed returns the number of bytes handed to the decoder so far.
func (r *Reader) Consumed() int64 { return r.consumed }

// Offset returns the source offset of the next byte the decoder will see.
func (r *Reader) Offset() int64 { return r.next - int64(r.w-r.r) }

// Remaining returns the number of window bytes not yet handed out.
func (r *Reader) Remaining() int64 { return r.remaining + int64(r.w-r.r) }

func (r *Reader) fill() error {
	if r.remaining == 0 {
		return io.EOF
	}
	k := int(min(int64(len(r.buf)), r.remaining))
	n, err := r.src.ReadAt(r.buf[:k], r.next)
	if n < k {
		if err == nil || errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: source ended at offset %d", io.ErrUnexpectedEOF, r.next+int64(n))
		}
		return xzformat.IOError(fmt.Sprintf("read %d bytes at offset %d", k, r.next), err)
	}
	r.next += int64(k)
	r.remaining -= int64(k)
	r.r, r.w = 0, k
	return nil
}

func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.r == r.w {
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.buf[r.r:r.w])
	r.r += n
	r.consumed += int64(n)
	return n, nil
}

func (r *Reader) ReadByte() (byte, error) {
	if r.r == r.w {
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	b := r.buf[r.r]
	r.r++
	r.consumed++
	return b, nil
}

// Drain runs dec until it has produced exactly len(dst) bytes into dst and
// then reported io.EOF. A decoder that stops early, produces more, or fails
// yields an ErrCorrupt error carrying the decoder's message; failures of
// the underlying source keep their ErrIO class.
func Drain(dec io.Reader, dst []byte) error {
	n, err := io.ReadFull(dec, dst)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return xzformat.Corruptf("decoder stopped after %d of %d bytes", n, len(dst))
		}
		return decodeError(err)
	}
	var extra [1]byte
	for i := 0; i < maxEmptyReads; i++ {
		n, err := dec.Read(extra[:])
		if n > 0 {
			return xzformat.Corruptf("decoder produced more than %d bytes", len(dst))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return xzformat.Corruptf("compressed data truncated")
			}
			return decodeError(err)
		}
	}
	return xzformat.Corruptf("decoder made no progress after %d bytes", len(dst))
}

func decodeError(err error) error {
	if errors.Is(err, xzformat.ErrIO) || errors.Is(err, xzformat.ErrCorrupt) || errors.Is(err, xzformat.ErrFormat) {
		return err
	}
	return fmt.Errorf("%w: decoder: %w", xzformat.ErrCorrupt, err)
}
