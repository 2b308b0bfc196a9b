// Package xzra provides random access to the uncompressed contents of xz
// files.
//
// A Reader decodes only the index at the end of each stream when it is
// opened. Load then decompresses just the blocks overlapping the requested
// range, so files written with many blocks (xz -T0, or xzra.Writer) can be
// read at arbitrary offsets, and from several goroutines with one Reader
// each.
//
// Example usage:
//
//	r, err := xzra.Open("/path/to/data.xz")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	buf := make([]byte, 4096)
//	if err := r.Load(1<<20, buf); err != nil {
//	    log.Fatal(err)
//	}
package xzra

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/xzra/internal/blockcache"
	"github.com/discochess/xzra/internal/index"
	"github.com/discochess/xzra/internal/source"
	"github.com/discochess/xzra/internal/source/filesource"
	"github.com/discochess/xzra/internal/source/gcssource"
	"github.com/discochess/xzra/internal/source/s3source"
	"github.com/discochess/xzra/internal/stats"
	"github.com/discochess/xzra/internal/xzformat"
)

// Source is a random-access view of one compressed file. It must allow
// concurrent ReadAt calls if it is shared between readers.
type Source = source.Source

// StreamInfo summarizes one stream of a file.
type StreamInfo = index.Stream

// Reader serves reads at arbitrary uncompressed offsets of one xz file.
// A Reader is not safe for concurrent use; open one Reader per goroutine.
type Reader struct {
	src    Source
	ix     *index.Index
	cache  *blockcache.Cache
	opts   options
	closed bool
}

// Open opens the xz file at path.
func Open(path string, opts ...Option) (*Reader, error) {
	src, err := filesource.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return NewReader(src, opts...)
}

// RemoteChunkSize is the default chunk size for object storage, where
// every read is a ranged request.
const RemoteChunkSize = 1 << 20

// OpenURL opens an xz file named by a URL: s3://bucket/key,
// gs://bucket/object, file:///path or a plain local path. ctx is used for
// every read of a remote object.
func OpenURL(ctx context.Context, rawURL string, opts ...Option) (*Reader, error) {
	src, err := openSource(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return NewReader(src, urlOptions(rawURL, opts)...)
}

// urlOptions puts the remote chunk size ahead of opts so that an explicit
// WithChunkSize still wins.
func urlOptions(rawURL string, opts []Option) []Option {
	if !strings.HasPrefix(rawURL, "s3://") && !strings.HasPrefix(rawURL, "gs://") {
		return opts
	}
	return append([]Option{WithChunkSize(RemoteChunkSize)}, opts...)
}

func openSource(ctx context.Context, rawURL string) (Source, error) {
	if !strings.Contains(rawURL, "://") {
		return filesource.Open(rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", rawURL, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	switch u.Scheme {
	case "file":
		return filesource.Open(u.Path)
	case "s3":
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("invalid S3 URL %q, want s3://bucket/key", rawURL)
		}
		return s3source.New(ctx, u.Host, key)
	case "gs":
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("invalid GCS URL %q, want gs://bucket/object", rawURL)
		}
		return gcssource.New(ctx, u.Host, key)
	}
	return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
}

// NewReader builds the index of the file held by src. On success the Reader
// owns src and closes it in Close; on failure src is closed before
// NewReader returns.
func NewReader(src Source, opts ...Option) (*Reader, error) {
	if src == nil {
		return nil, ErrNoSource
	}
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	r, err := newReader(src, cfg)
	if err != nil {
		if cerr := src.Close(); cerr != nil {
			cfg.logger.Debug("closing source after failed open", zap.Error(cerr))
		}
		return nil, err
	}
	return r, nil
}

func newReader(src Source, cfg options) (*Reader, error) {
	if err := checkStreamHeader(src); err != nil {
		return nil, err
	}
	ix, err := index.Build(src, src.Size(), make([]byte, cfg.chunkSize))
	if err != nil {
		return nil, err
	}

	backend := cfg.cache
	if backend == nil && cfg.cacheBlocks > 0 {
		backend, err = NewBlockCache(cfg.cacheBlocks, cfg.stats)
		if err != nil {
			return nil, fmt.Errorf("creating block cache: %w", err)
		}
	}

	r := &Reader{
		src:   src,
		ix:    ix,
		cache: blockcache.New(backend),
		opts:  cfg,
	}

	cfg.stats.IncCounter(stats.MetricReadersOpened, 1)
	cfg.logger.Debug("index built",
		zap.Int64("size", ix.FileSize()),
		zap.Int64("uncompressedSize", ix.UncompressedSize()),
		zap.Int("streams", ix.StreamCount()),
		zap.Int("blocks", ix.BlockCount()),
	)
	return r, nil
}

// checkStreamHeader rejects sources that do not start with a valid stream
// header before the backward scan runs.
func checkStreamHeader(src Source) error {
	if src.Size() < xzformat.StreamHeaderSize {
		return xzformat.Formatf("%d bytes is too small for an xz file", src.Size())
	}
	var raw [xzformat.StreamHeaderSize]byte
	if err := readFull(src, raw[:], 0); err != nil {
		return err
	}
	if _, err := xzformat.DecodeStreamHeader(raw[:]); err != nil {
		return fmt.Errorf("stream header: %w", err)
	}
	return nil
}

// Size returns the compressed size of the file in bytes.
func (r *Reader) Size() int64 {
	return r.ix.FileSize()
}

// UncompressedSize returns the total uncompressed size of all streams.
func (r *Reader) UncompressedSize() int64 {
	return r.ix.UncompressedSize()
}

// BlockCount returns the number of blocks in the file, empty ones included.
func (r *Reader) BlockCount() int {
	return r.ix.BlockCount()
}

// StreamCount returns the number of concatenated streams.
func (r *Reader) StreamCount() int {
	return r.ix.StreamCount()
}

// Streams returns a summary of every stream, in file order.
func (r *Reader) Streams() []StreamInfo {
	return append([]StreamInfo(nil), r.ix.Streams()...)
}

// Blocks returns a cursor over the non-empty blocks of the file.
func (r *Reader) Blocks() *Cursor {
	return &Cursor{r: r, c: r.ix.Cursor(0)}
}

// Locate returns the block holding the uncompressed offset off.
func (r *Reader) Locate(off int64) (Block, error) {
	if r.closed {
		return Block{}, ErrClosed
	}
	i, err := r.ix.Locate(off)
	if err != nil {
		if errors.Is(err, ErrLocate) {
			return Block{}, fmt.Errorf("%w: offset %d, uncompressed size %d", ErrLocate, off, r.ix.UncompressedSize())
		}
		return Block{}, err
	}
	return Block{r: r, b: r.ix.Blocks()[i]}, nil
}

// Load fills out with the uncompressed bytes starting at off. Every block
// overlapping the range is decompressed once, into a scratch buffer that
// lives only for this call. On error the contents of out are undefined.
func (r *Reader) Load(off int64, out []byte) error {
	if r.closed {
		return ErrClosed
	}
	if len(out) == 0 {
		return nil
	}
	end := off + int64(len(out))
	if off < 0 || end > r.ix.UncompressedSize() || end < off {
		return fmt.Errorf("%w: range [%d, %d) outside [0, %d)", ErrLocate, off, end, r.ix.UncompressedSize())
	}

	start := time.Now()
	first, err := r.ix.Locate(off)
	if err != nil {
		return err
	}

	s := newScratch(r.opts.chunkSize)
	cur := r.ix.Cursor(first)
	for cur.Next() {
		b := cur.Block()
		if b.UncompressedOffset >= end {
			break
		}
		data, err := r.decompress(b, s)
		if err != nil {
			return err
		}
		lo := max(off, b.UncompressedOffset)
		hi := min(end, b.UncompressedEnd())
		copy(out[lo-off:hi-off], data[lo-b.UncompressedOffset:hi-b.UncompressedOffset])
	}

	r.opts.stats.IncCounter(stats.MetricBytesLoaded, int64(len(out)))
	r.opts.stats.ObserveHistogram(stats.MetricLoadSeconds, time.Since(start).Seconds())
	return nil
}

// Verify decompresses every block, empty ones included, and checks its
// integrity. It returns the first error found.
func (r *Reader) Verify() error {
	if r.closed {
		return ErrClosed
	}
	s := newScratch(r.opts.chunkSize)
	for _, b := range r.ix.Blocks() {
		if _, err := r.decode(b, s); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the source. Calls after the first return ErrClosed.
func (r *Reader) Close() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("closing source: %w", err)
	}
	return nil
}

// CacheStats returns block cache statistics; all zero when no cache is
// configured.
func (r *Reader) CacheStats() blockcache.Stats {
	return r.cache.Stats()
}

// blockStarts returns the uncompressed start offsets of non-empty blocks.
func (r *Reader) blockStarts() []int64 {
	starts := make([]int64, 0, r.ix.BlockCount())
	for _, b := range r.ix.Blocks() {
		if b.UncompressedSize > 0 {
			starts = append(starts, b.UncompressedOffset)
		}
	}
	return starts
}
