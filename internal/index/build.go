package index

import (
	"errors"
	"fmt"
	"io"

	"github.com/discochess/xzra/internal/chunk"
	"github.com/discochess/xzra/internal/xzformat"
)

type phase int

const (
	phaseSkipPadding phase = iota
	phaseDecodeFooter
	phaseDecodeIndex
	phaseCombine
	phaseAdvance
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseSkipPadding:
		return "skip-padding"
	case phaseDecodeFooter:
		return "decode-footer"
	case phaseDecodeIndex:
		return "decode-index"
	case phaseCombine:
		return "combine"
	case phaseAdvance:
		return "advance"
	case phaseDone:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// stream is a stream found by the backward scan, before global offsets are
// known.
type stream struct {
	start   int64
	flags   xzformat.StreamFlags
	record  *xzformat.IndexRecord
	padding int64
}

type builder struct {
	src   io.ReaderAt
	buf   []byte
	phase phase

	pos     int64 // end of the bytes not yet attributed to a stream
	padding int64
	footer  xzformat.StreamFooter
	current stream
	found   []stream // last stream first
}

// Build scans src, which holds size bytes, from its end and returns the
// combined index of every concatenated stream. buf is the scratch buffer
// for reads; it is rounded down to a multiple of four, and replaced by a
// buffer of chunk.DefaultSize when too small.
func Build(src io.ReaderAt, size int64, buf []byte) (*Index, error) {
	if size%4 != 0 {
		return nil, xzformat.Formatf("file size %d is not a multiple of four", size)
	}
	if len(buf) < xzformat.StreamFooterSize {
		buf = make([]byte, chunk.DefaultSize)
	}
	b := &builder{src: src, buf: buf[:len(buf)&^3], pos: size}
	for b.phase != phaseDone {
		var err error
		switch b.phase {
		case phaseSkipPadding:
			err = b.skipPadding()
		case phaseDecodeFooter:
			err = b.decodeFooter()
		case phaseDecodeIndex:
			err = b.decodeIndex()
		case phaseCombine:
			err = b.combine()
		case phaseAdvance:
			b.advance()
		}
		if err != nil {
			return nil, fmt.Errorf("index %s at offset %d: %w", b.phase, b.pos, err)
		}
	}
	return b.finish(size)
}

func (b *builder) skipPadding() error {
	b.padding = 0
	for b.pos > 0 {
		n := min(int64(len(b.buf)), b.pos)
		window := b.buf[:n]
		if err := readFull(b.src, window, b.pos-n); err != nil {
			return err
		}
		i := n
		for i >= 4 && window[i-4] == 0 && window[i-3] == 0 && window[i-2] == 0 && window[i-1] == 0 {
			i -= 4
		}
		b.padding += n - i
		b.pos -= n - i
		if i > 0 {
			break
		}
	}
	if b.pos == 0 {
		return xzformat.Formatf("padding is not allowed at the start")
	}
	if b.pos < xzformat.StreamHeaderSize+xzformat.StreamFooterSize {
		return xzformat.Formatf("%d bytes cannot hold a stream", b.pos)
	}
	b.phase = phaseDecodeFooter
	return nil
}

func (b *builder) decodeFooter() error {
	raw := b.buf[:xzformat.StreamFooterSize]
	if err := readFull(b.src, raw, b.pos-xzformat.StreamFooterSize); err != nil {
		return err
	}
	footer, err := xzformat.DecodeStreamFooter(raw)
	if err != nil {
		return err
	}
	if b.pos-xzformat.StreamFooterSize-footer.BackwardSize < xzformat.StreamHeaderSize {
		return xzformat.Corruptf("backward size %d points before the start of the file", footer.BackwardSize)
	}
	b.footer = footer
	b.phase = phaseDecodeIndex
	return nil
}

func (b *builder) decodeIndex() error {
	footerPos := b.pos - xzformat.StreamFooterSize
	indexPos := footerPos - b.footer.BackwardSize
	cr := chunk.NewReader(b.src, indexPos, b.footer.BackwardSize, b.buf)
	record, err := xzformat.DecodeIndex(cr)
	if err != nil {
		return err
	}
	if record.Size != b.footer.BackwardSize {
		return xzformat.Corruptf("index is %d bytes, footer declares %d", record.Size, b.footer.BackwardSize)
	}
	start := b.pos - record.StreamSize()
	if start < 0 || start >= b.pos {
		return xzformat.Corruptf("index describes %d bytes, only %d precede the footer", record.StreamSize(), b.pos)
	}

	raw := b.buf[:xzformat.StreamHeaderSize]
	if err := readFull(b.src, raw, start); err != nil {
		return err
	}
	flags, err := xzformat.DecodeStreamHeader(raw)
	if err != nil {
		if errors.Is(err, xzformat.ErrFormat) {
			return xzformat.Corruptf("no valid stream header at offset %d: %v", start, err)
		}
		return err
	}
	if flags != b.footer.Flags {
		return xzformat.Corruptf("stream header flags %+v do not match footer flags %+v", flags, b.footer.Flags)
	}
	b.current = stream{start: start, flags: flags, record: record, padding: b.padding}
	b.phase = phaseCombine
	return nil
}

func (b *builder) combine() error {
	if len(b.found) > 0 {
		later := b.found[len(b.found)-1]
		end := b.current.start + b.current.record.StreamSize() + b.current.padding
		if end != later.start {
			return xzformat.Internalf("stream ends at %d, next stream starts at %d", end, later.start)
		}
	}
	b.found = append(b.found, b.current)
	b.phase = phaseAdvance
	return nil
}

func (b *builder) advance() {
	b.pos = b.current.start
	b.current = stream{}
	if b.pos == 0 {
		b.phase = phaseDone
		return
	}
	b.phase = phaseSkipPadding
}

func (b *builder) finish(size int64) (*Index, error) {
	ix := &Index{fileSize: size, streams: make([]Stream, 0, len(b.found))}
	var blocks int
	for _, s := range b.found {
		blocks += len(s.record.Records)
	}
	ix.blocks = make([]Block, 0, blocks)
	for i := len(b.found) - 1; i >= 0; i-- {
		s := b.found[i]
		st := Stream{
			Number:             len(ix.streams) + 1,
			CompressedOffset:   s.start,
			UncompressedOffset: ix.size,
			CompressedSize:     s.record.StreamSize(),
			Check:              s.flags.Check,
			Padding:            s.padding,
			IndexSize:          s.record.Size,
			FirstBlock:         len(ix.blocks),
			BlockCount:         len(s.record.Records),
		}
		coff := s.start + xzformat.StreamHeaderSize
		for _, r := range s.record.Records {
			if r.UncompressedSize > xzformat.MaxVLI-ix.size {
				return nil, xzformat.Corruptf("uncompressed size overflows")
			}
			ix.blocks = append(ix.blocks, Block{
				Number:             len(ix.blocks) + 1,
				StreamNumber:       st.Number,
				CompressedOffset:   coff,
				UncompressedOffset: ix.size,
				UnpaddedSize:       r.UnpaddedSize,
				TotalSize:          r.TotalSize(),
				UncompressedSize:   r.UncompressedSize,
				Check:              s.flags.Check,
			})
			coff += r.TotalSize()
			ix.size += r.UncompressedSize
			st.UncompressedSize += r.UncompressedSize
		}
		ix.streams = append(ix.streams, st)
	}
	return ix, nil
}

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
