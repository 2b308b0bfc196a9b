package xzra

import (
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
	"go.uber.org/zap"

	"github.com/discochess/xzra/internal/encode"
	"github.com/discochess/xzra/internal/stats"
	"github.com/discochess/xzra/internal/xzformat"
)

// DefaultPreset is the compression preset used when none is given.
const DefaultPreset = 6

// presetDictCaps maps presets 0-9 to LZMA2 dictionary sizes.
var presetDictCaps = [10]int{
	256 << 10,
	1 << 20, 2 << 20, 4 << 20, 4 << 20,
	8 << 20, 8 << 20, 16 << 20, 32 << 20, 64 << 20,
}

// WriterOption configures a Writer.
type WriterOption interface {
	applyWriter(*writerOptions)
}

type writerOptions struct {
	preset    int
	blockSize int64
	threads   int
	check     Check
	stats     stats.Collector
	logger    *zap.Logger
}

func defaultWriterOptions() writerOptions {
	return writerOptions{
		preset:  DefaultPreset,
		threads: 1,
		check:   CheckCRC64,
		stats:   stats.NewNoop(),
		logger:  zap.NewNop(),
	}
}

type writerOptionFunc func(*writerOptions)

// Compile-time check that writerOptionFunc implements WriterOption.
var _ WriterOption = writerOptionFunc(nil)

func (f writerOptionFunc) applyWriter(o *writerOptions) { f(o) }

// WithPreset sets the compression preset, 0 (fastest) to 9 (smallest).
// Default is 6.
func WithPreset(p int) WriterOption {
	return writerOptionFunc(func(o *writerOptions) {
		o.preset = p
	})
}

// WithBlockSize sets the uncompressed size of each block. Smaller blocks
// make random access cheaper and compression slightly worse. With one
// thread the default is a single block; with more threads it is three
// times the dictionary size, and at least 1 MiB.
func WithBlockSize(n int64) WriterOption {
	return writerOptionFunc(func(o *writerOptions) {
		o.blockSize = n
	})
}

// WithThreads sets how many blocks are compressed concurrently.
// Default is 1.
func WithThreads(n int) WriterOption {
	return writerOptionFunc(func(o *writerOptions) {
		o.threads = n
	})
}

// WithCheck sets the integrity check stored after each block.
// Default is CheckCRC64.
func WithCheck(c Check) WriterOption {
	return writerOptionFunc(func(o *writerOptions) {
		o.check = c
	})
}

// WithWriterStats sets the stats collector for the parallel encoder.
func WithWriterStats(c stats.Collector) WriterOption {
	return writerOptionFunc(func(o *writerOptions) {
		o.stats = c
	})
}

// WithWriterLogger sets the writer's logger.
func WithWriterLogger(l *zap.Logger) WriterOption {
	return writerOptionFunc(func(o *writerOptions) {
		o.logger = l
	})
}

// Writer compresses data into a single-stream xz file.
type Writer struct {
	w      io.WriteCloser
	file   *os.File
	closed bool
}

// Create creates or truncates the file at path and returns a Writer to it.
// Closing the Writer closes the file.
func Create(path string, opts ...WriterOption) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	w, err := NewWriter(f, opts...)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	w.file = f
	return w, nil
}

// NewWriter returns a Writer compressing into w. Closing the Writer does
// not close w.
func NewWriter(w io.Writer, opts ...WriterOption) (*Writer, error) {
	cfg := defaultWriterOptions()
	for _, opt := range opts {
		opt.applyWriter(&cfg)
	}
	if cfg.preset < 0 || cfg.preset > 9 {
		return nil, xzformat.Formatf("preset %d out of range [0, 9]", cfg.preset)
	}
	if !cfg.check.Supported() {
		return nil, xzformat.Formatf("unsupported check %s", cfg.check)
	}
	if cfg.blockSize < 0 {
		return nil, xzformat.Formatf("negative block size %d", cfg.blockSize)
	}
	dictCap := presetDictCaps[cfg.preset]
	matcher := lzma.BinaryTree
	if cfg.preset <= 3 {
		matcher = lzma.HashTable4
	}

	if cfg.threads <= 1 {
		cfg.logger.Debug("creating single-threaded writer",
			zap.Int("preset", cfg.preset),
			zap.Int64("blockSize", cfg.blockSize),
		)
		xw, err := xz.WriterConfig{
			DictCap:    dictCap,
			BlockSize:  cfg.blockSize,
			CheckSum:   byte(cfg.check),
			NoCheckSum: cfg.check == CheckNone,
			Matcher:    matcher,
		}.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("creating xz writer: %w", err)
		}
		return &Writer{w: xw}, nil
	}

	blockSize := cfg.blockSize
	if blockSize == 0 {
		blockSize = max(3*int64(dictCap), 1<<20)
	}
	if blockSize > 1<<31 {
		return nil, xzformat.Formatf("block size %d too large for the parallel encoder", blockSize)
	}
	cfg.logger.Debug("creating parallel writer",
		zap.Int("preset", cfg.preset),
		zap.Int64("blockSize", blockSize),
		zap.Int("threads", cfg.threads),
	)
	ew, err := encode.NewWriter(w, encode.Config{
		DictCap:   dictCap,
		Matcher:   matcher,
		BlockSize: int(blockSize),
		Threads:   cfg.threads,
		Check:     cfg.check,
		Stats:     cfg.stats,
	})
	if err != nil {
		return nil, fmt.Errorf("creating parallel writer: %w", err)
	}
	return &Writer{w: ew}, nil
}

// Write compresses p.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	return w.w.Write(p)
}

// Close flushes all data, writes the index and footer and, for writers
// from Create, closes the file.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	err := w.w.Close()
	if w.file != nil {
		if cerr := w.file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%w: %w", ErrIO, cerr)
		}
	}
	return err
}
