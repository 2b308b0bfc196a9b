// Package encode writes single-stream xz files whose blocks are compressed
// concurrently.
//
// Input is cut into blocks of a fixed uncompressed size. Each block is
// compressed by its own LZMA2 encoder on a bounded set of goroutines, and
// finished blocks are written in input order. Block headers record both
// sizes, so every block can later be located and decoded on its own.
package encode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
	"golang.org/x/sync/errgroup"

	"github.com/discochess/xzra/internal/stats"
	"github.com/discochess/xzra/internal/xzformat"
)

// ErrClosed is returned by Write and Close after Close.
var ErrClosed = errors.New("encode: writer closed")

// Config holds the encoder parameters.
type Config struct {
	// DictCap is the LZMA2 dictionary capacity in bytes.
	DictCap int
	// Matcher is the LZMA match finder.
	Matcher lzma.MatchAlgorithm
	// BlockSize is the uncompressed size of every block but the last.
	BlockSize int
	// Threads bounds the number of blocks compressed at once.
	Threads int
	// Check is written after every block.
	Check xzformat.Check
	// Stats receives MetricBlocksEncoded. Optional.
	Stats stats.Collector
}

func (c *Config) verify() error {
	if c.DictCap < lzma.MinDictCap || int64(c.DictCap) > lzma.MaxDictCap {
		return fmt.Errorf("dictionary capacity %d out of range", c.DictCap)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("block size %d must be positive", c.BlockSize)
	}
	if c.Threads < 1 {
		return fmt.Errorf("thread count %d must be positive", c.Threads)
	}
	if !c.Check.Supported() {
		return fmt.Errorf("unsupported check %s", c.Check)
	}
	if c.Stats == nil {
		c.Stats = stats.NewNoop()
	}
	return nil
}

// job is one block on its way through the pipeline.
type job struct {
	input []byte
	out   []byte // encoded block: header, data, padding, check
	rec   xzformat.Record
	done  chan struct{}
	err   error
}

// Writer compresses written data into an xz stream.
type Writer struct {
	w   io.Writer
	cfg Config

	pending  []byte
	inflight []*job
	g        errgroup.Group
	records  []xzformat.Record
	err      error
	closed   bool
}

// NewWriter writes the stream header to w and returns a Writer.
func NewWriter(w io.Writer, cfg Config) (*Writer, error) {
	if err := cfg.verify(); err != nil {
		return nil, err
	}
	ew := &Writer{w: w, cfg: cfg, pending: make([]byte, 0, cfg.BlockSize)}
	ew.g.SetLimit(cfg.Threads)
	header := xzformat.AppendStreamHeader(nil, xzformat.StreamFlags{Check: cfg.Check})
	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("writing stream header: %w", err)
	}
	return ew, nil
}

// Write buffers p, starting the compression of every block it completes.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if w.err != nil {
		return 0, w.err
	}
	n := 0
	for len(p) > 0 {
		k := min(len(p), w.cfg.BlockSize-len(w.pending))
		w.pending = append(w.pending, p[:k]...)
		p = p[k:]
		n += k
		if len(w.pending) == w.cfg.BlockSize {
			if err := w.submit(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// submit hands the pending block to a goroutine and writes out finished
// blocks while more than Threads are in flight.
func (w *Writer) submit() error {
	j := &job{input: w.pending, done: make(chan struct{})}
	w.pending = make([]byte, 0, w.cfg.BlockSize)
	w.inflight = append(w.inflight, j)
	w.g.Go(func() error {
		defer close(j.done)
		j.err = w.encode(j)
		return nil
	})
	for len(w.inflight) > w.cfg.Threads {
		if err := w.emitOldest(); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) emitOldest() error {
	j := w.inflight[0]
	<-j.done
	w.inflight = w.inflight[1:]
	if j.err != nil {
		w.err = j.err
		return w.err
	}
	if _, err := w.w.Write(j.out); err != nil {
		w.err = fmt.Errorf("writing block %d: %w", len(w.records)+1, err)
		return w.err
	}
	w.records = append(w.records, j.rec)
	w.cfg.Stats.IncCounter(stats.MetricBlocksEncoded, 1)
	return nil
}

// encode compresses j.input into a complete block.
func (w *Writer) encode(j *job) error {
	var data bytes.Buffer
	lw, err := lzma.Writer2Config{
		DictCap: w.cfg.DictCap,
		Matcher: w.cfg.Matcher,
	}.NewWriter2(&data)
	if err != nil {
		return fmt.Errorf("creating lzma2 encoder: %w", err)
	}
	if _, err := lw.Write(j.input); err != nil {
		return fmt.Errorf("compressing block: %w", err)
	}
	if err := lw.Close(); err != nil {
		return fmt.Errorf("finishing block: %w", err)
	}

	h := &xzformat.BlockHeader{
		CompressedSize:   int64(data.Len()),
		UncompressedSize: int64(len(j.input)),
		Filters:          xzformat.NewLZMA2Chain(int64(w.cfg.DictCap)),
	}
	out, err := xzformat.AppendBlockHeader(make([]byte, 0, 64+data.Len()), h)
	if err != nil {
		return err
	}
	headerSize := len(out)
	out = append(out, data.Bytes()...)
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	if sum := w.cfg.Check.NewHash(); sum != nil {
		sum.Write(j.input)
		out = sum.Sum(out)
	}

	j.out = out
	j.rec = xzformat.Record{
		UnpaddedSize:     int64(headerSize+data.Len()) + int64(w.cfg.Check.Size()),
		UncompressedSize: int64(len(j.input)),
	}
	j.input = nil
	return nil
}

// Close compresses any buffered data, waits for all blocks and writes the
// index and stream footer. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	err := w.err
	if err == nil && len(w.pending) > 0 {
		err = w.submit()
	}
	w.g.Wait()
	for err == nil && len(w.inflight) > 0 {
		err = w.emitOldest()
	}
	if err != nil {
		return err
	}

	idx := xzformat.AppendIndex(nil, w.records)
	footer, err := xzformat.AppendStreamFooter(idx, xzformat.StreamFooter{
		Flags:        xzformat.StreamFlags{Check: w.cfg.Check},
		BackwardSize: int64(len(idx)),
	})
	if err != nil {
		return err
	}
	if _, err := w.w.Write(footer); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// Blocks returns the number of blocks written so far.
func (w *Writer) Blocks() int {
	return len(w.records)
}
