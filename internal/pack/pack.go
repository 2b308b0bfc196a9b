// Package pack turns plain or compressed inputs into xz files laid out for
// random access: many blocks, each decodable on its own.
package pack

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/discochess/xzra"
	"github.com/discochess/xzra/internal/codec"
	"github.com/discochess/xzra/internal/codec/gzipcodec"
	"github.com/discochess/xzra/internal/codec/noopcodec"
	"github.com/discochess/xzra/internal/codec/snappycodec"
	"github.com/discochess/xzra/internal/codec/xzcodec"
	"github.com/discochess/xzra/internal/codec/zstdcodec"
)

const (
	// DefaultBlockSize is the block size used when none is given. Small
	// enough that a random read decodes little, large enough to keep the
	// ratio close to a single-block file.
	DefaultBlockSize = 4 << 20

	// progressInterval is how much input is read between progress reports.
	progressInterval = 4 << 20
)

// Packer compresses inputs into random-access xz files.
type Packer struct {
	preset       int
	blockSize    int64
	threads      int
	check        xzra.Check
	zstdWindow   uint64
	manifest     bool
	tempDir      string
	progress     ProgressFunc
	logger       *zap.Logger
	downloader   *Downloader
	openUploader func(ctx context.Context, dst string) (Uploader, string, error)
}

// Option configures the Packer.
type Option func(*Packer)

// WithPreset sets the xz preset, 0 to 9.
func WithPreset(p int) Option {
	return func(pk *Packer) { pk.preset = p }
}

// WithBlockSize sets the uncompressed block size.
func WithBlockSize(n int64) Option {
	return func(pk *Packer) { pk.blockSize = n }
}

// WithThreads sets the number of blocks compressed at once.
func WithThreads(n int) Option {
	return func(pk *Packer) { pk.threads = n }
}

// WithCheck sets the integrity check stored with every block.
func WithCheck(c xzra.Check) Option {
	return func(pk *Packer) { pk.check = c }
}

// WithZstdMaxWindow raises the window limit for zstd inputs made with --long.
func WithZstdMaxWindow(n uint64) Option {
	return func(pk *Packer) { pk.zstdWindow = n }
}

// WithManifest stores a JSON manifest next to the output.
func WithManifest(enabled bool) Option {
	return func(pk *Packer) { pk.manifest = enabled }
}

// WithTempDir sets the directory for downloads and remote outputs.
func WithTempDir(dir string) Option {
	return func(pk *Packer) { pk.tempDir = dir }
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(pk *Packer) { pk.progress = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(pk *Packer) { pk.logger = l }
}

// WithDownloader sets the downloader used for http(s) inputs.
func WithDownloader(d *Downloader) Option {
	return func(pk *Packer) { pk.downloader = d }
}

// New creates a Packer with the given options.
func New(opts ...Option) *Packer {
	pk := &Packer{
		preset:       xzra.DefaultPreset,
		blockSize:    DefaultBlockSize,
		threads:      1,
		check:        xzra.CheckCRC64,
		logger:       zap.NewNop(),
		openUploader: NewUploader,
	}
	for _, opt := range opts {
		opt(pk)
	}
	if pk.downloader == nil {
		pk.downloader = NewDownloader()
	}
	return pk
}

// Pack compresses src into dst. src is a local path or an http(s) URL and
// may be plain, gzip, zstd, xz or framed snappy; dst is a local path or a
// gs:// or s3:// object. The output is reopened and its size checked
// before it is moved into place.
func (pk *Packer) Pack(ctx context.Context, src, dst string) (*Manifest, error) {
	start := time.Now()

	work, err := os.MkdirTemp(pk.tempDir, "xzra-pack-")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(work)

	input := src
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		input = filepath.Join(work, "input-"+path.Base(src))
		pk.logger.Info("downloading input", zap.String("url", src))
		pk.report(Progress{Phase: PhaseDownload, StartTime: start})
		if err := pk.downloader.DownloadToFile(ctx, src, input, pk.progress); err != nil {
			return nil, fmt.Errorf("downloading %s: %w", src, err)
		}
	}

	var out *os.File
	if IsRemote(dst) {
		out, err = os.CreateTemp(work, "output-*.xz")
	} else {
		out, err = os.CreateTemp(filepath.Dir(dst), ".xzra-pack-*")
	}
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	tmpPath := out.Name()
	defer os.Remove(tmpPath)

	m, err := pk.compress(ctx, input, out, start)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing output: %w", cerr)
	}
	if err != nil {
		return nil, err
	}
	m.Source = src

	if err := inspect(tmpPath, m); err != nil {
		return nil, err
	}

	if IsRemote(dst) {
		if err := pk.upload(ctx, tmpPath, dst, m, work); err != nil {
			return nil, err
		}
	} else {
		if err := os.Rename(tmpPath, dst); err != nil {
			return nil, fmt.Errorf("moving output into place: %w", err)
		}
		if pk.manifest {
			if err := WriteManifest(dst+".json", m); err != nil {
				return nil, err
			}
		}
	}

	pk.logger.Info("packed",
		zap.String("source", src),
		zap.String("destination", dst),
		zap.Int("blocks", m.Blocks),
		zap.Int64("uncompressedSize", m.UncompressedSize),
		zap.Int64("compressedSize", m.CompressedSize),
		zap.Duration("elapsed", time.Since(start)),
	)
	pk.report(Progress{
		Phase:        PhaseDone,
		BytesRead:    m.UncompressedSize,
		BytesWritten: m.CompressedSize,
		StartTime:    start,
	})
	return m, nil
}

// compress decodes the input at path and writes it to out as xz.
func (pk *Packer) compress(ctx context.Context, path string, out io.Writer, start time.Time) (*Manifest, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	br := bufio.NewReaderSize(in, 1<<20)
	head, err := br.Peek(codec.MagicSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	c := codec.Detect(path, head, gzipcodec.New(), zstdcodec.New(pk.zstdWindow), xzcodec.New(0), snappycodec.New())
	if c == nil {
		c = noopcodec.New()
	}
	pk.logger.Debug("input codec", zap.String("path", path), zap.String("codec", c.Extension()))

	rc, err := c.Reader(br)
	if err != nil {
		return nil, fmt.Errorf("opening %s decoder: %w", codecName(c), err)
	}
	defer rc.Close()

	var read, written atomic.Int64
	w, err := xzra.NewWriter(newProgressWriter(out, &written),
		xzra.WithPreset(pk.preset),
		xzra.WithBlockSize(pk.blockSize),
		xzra.WithThreads(pk.threads),
		xzra.WithCheck(pk.check),
		xzra.WithWriterLogger(pk.logger),
	)
	if err != nil {
		return nil, err
	}

	sum := xxhash.New()
	r := newProgressReader(io.TeeReader(rc, sum), &read)
	buf := make([]byte, 1<<20)
	var next int64 = progressInterval
	for {
		if err := ctx.Err(); err != nil {
			w.Close()
			return nil, err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				w.Close()
				return nil, fmt.Errorf("compressing: %w", err)
			}
		}
		if read.Load() >= next {
			next += progressInterval
			pk.report(Progress{Phase: PhaseCompress, BytesRead: read.Load(), BytesWritten: written.Load(), StartTime: start})
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			w.Close()
			return nil, fmt.Errorf("reading %s input: %w", codecName(c), rerr)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finishing output: %w", err)
	}
	pk.report(Progress{Phase: PhaseCompress, BytesRead: read.Load(), BytesWritten: written.Load(), StartTime: start})

	return &Manifest{
		Version:          ManifestVersion,
		Codec:            c.Extension(),
		Preset:           pk.preset,
		BlockSize:        pk.blockSize,
		Threads:          pk.threads,
		Check:            pk.check.String(),
		Checksum:         fmt.Sprintf("xxh64:%016x", sum.Sum64()),
		UncompressedSize: read.Load(),
		CompressedSize:   written.Load(),
		BuiltAt:          time.Now().UTC(),
	}, nil
}

// inspect reopens the finished file, fills in its layout and checks that
// it holds as many bytes as were read.
func inspect(path string, m *Manifest) error {
	r, err := xzra.Open(path)
	if err != nil {
		return fmt.Errorf("reopening output: %w", err)
	}
	defer r.Close()

	if r.UncompressedSize() != m.UncompressedSize {
		return fmt.Errorf("%w: output holds %d bytes, input had %d",
			xzra.ErrInternal, r.UncompressedSize(), m.UncompressedSize)
	}
	if r.Size() != m.CompressedSize {
		return fmt.Errorf("%w: output is %d bytes, writer produced %d",
			xzra.ErrInternal, r.Size(), m.CompressedSize)
	}
	m.Streams = r.StreamCount()
	m.Blocks = r.BlockCount()
	return nil
}

func (pk *Packer) upload(ctx context.Context, localPath, dst string, m *Manifest, work string) error {
	up, key, err := pk.openUploader(ctx, dst)
	if err != nil {
		return err
	}
	defer up.Close()

	pk.report(Progress{Phase: PhaseUpload, BytesWritten: m.CompressedSize})
	if err := up.Upload(ctx, localPath, key); err != nil {
		return err
	}
	if !pk.manifest {
		return nil
	}
	manifestPath := filepath.Join(work, "manifest.json")
	if err := WriteManifest(manifestPath, m); err != nil {
		return err
	}
	return up.Upload(ctx, manifestPath, key+".json")
}

func (pk *Packer) report(p Progress) {
	if pk.progress != nil {
		pk.progress(p)
	}
}

func codecName(c codec.Codec) string {
	if ext := c.Extension(); ext != "" {
		return ext
	}
	return "plain"
}
