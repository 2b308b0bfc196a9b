package micro

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/discochess/xzra"
)

// dataFile returns the file to benchmark: $DATA_FILE, or the multi-block
// test fixture.
func dataFile() string {
	if path := os.Getenv("DATA_FILE"); path != "" {
		return path
	}
	return "../../testdata/corpus-mt.txt.xz"
}

func openReader(b *testing.B, opts ...xzra.Option) *xzra.Reader {
	b.Helper()
	r, err := xzra.Open(dataFile(), opts...)
	if err != nil {
		b.Fatalf("opening reader: %v", err)
	}
	return r
}

// BenchmarkOpen measures index construction.
func BenchmarkOpen(b *testing.B) {
	path := dataFile()
	for i := 0; i < b.N; i++ {
		r, err := xzra.Open(path)
		if err != nil {
			b.Fatalf("opening reader: %v", err)
		}
		r.Close()
	}
}

// BenchmarkLoad_ColdCache measures a small read that decompresses one block
// every time.
func BenchmarkLoad_ColdCache(b *testing.B) {
	r := openReader(b)
	defer r.Close()

	out := make([]byte, 4096)
	off := r.UncompressedSize() / 2

	b.SetBytes(int64(len(out)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := r.Load(off, out); err != nil {
			b.Fatalf("load error: %v", err)
		}
	}
}

// BenchmarkLoad_WarmCache measures the same read served from the block
// cache.
func BenchmarkLoad_WarmCache(b *testing.B) {
	r := openReader(b, xzra.WithCacheBlocks(16))
	defer r.Close()

	out := make([]byte, 4096)
	off := r.UncompressedSize() / 2

	// Warm up the cache.
	if err := r.Load(off, out); err != nil {
		b.Fatalf("load error: %v", err)
	}

	b.SetBytes(int64(len(out)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := r.Load(off, out); err != nil {
			b.Fatalf("load error: %v", err)
		}
	}
}

// BenchmarkLoadParallel measures a whole-file load per strategy and worker
// count.
func BenchmarkLoadParallel(b *testing.B) {
	path := dataFile()
	open := func() (*xzra.Reader, error) { return xzra.Open(path) }

	r := openReader(b)
	size := r.UncompressedSize()
	r.Close()

	out := make([]byte, size)
	ctx := context.Background()

	for _, name := range []string{"uniform", "blockaligned"} {
		strategy, err := xzra.PartitionStrategy(name)
		if err != nil {
			b.Fatalf("strategy: %v", err)
		}
		for _, workers := range []int{1, 2, 4} {
			b.Run(fmt.Sprintf("%s/workers=%d", name, workers), func(b *testing.B) {
				b.SetBytes(size)
				for i := 0; i < b.N; i++ {
					if err := xzra.LoadParallel(ctx, open, 0, out, workers, xzra.WithPartition(strategy)); err != nil {
						b.Fatalf("load error: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkStreamingDecompress is the sequential baseline: the whole file
// through a streaming xz reader.
func BenchmarkStreamingDecompress(b *testing.B) {
	data, err := os.ReadFile(dataFile())
	if err != nil {
		b.Fatalf("reading file: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		zr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			b.Fatalf("creating reader: %v", err)
		}
		n, err := io.Copy(io.Discard, zr)
		if err != nil {
			b.Fatalf("decode error: %v", err)
		}
		b.SetBytes(n)
	}
}

func TestDataFileOpens(t *testing.T) {
	r, err := xzra.Open("../../testdata/corpus-mt.txt.xz")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()
	if r.BlockCount() != 5 {
		t.Errorf("BlockCount() = %d, want 5", r.BlockCount())
	}
}
