package pack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"

	"github.com/discochess/xzra"
)

func corpus(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../../testdata/corpus.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	return data
}

func loadAll(t *testing.T, path string) []byte {
	t.Helper()
	r, err := xzra.Open(path)
	if err != nil {
		t.Fatalf("xzra.Open() error = %v", err)
	}
	defer r.Close()
	out := make([]byte, r.UncompressedSize())
	if err := r.Load(0, out); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return out
}

func writeGzip(t *testing.T, path string, data []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("gzip Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip Close() error = %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func writeSnappy(t *testing.T, path string, data []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := snappy.NewBufferedWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("snappy Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("snappy Close() error = %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestPack_Inputs(t *testing.T) {
	want := corpus(t)
	dir := t.TempDir()

	plain := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(plain, want, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	gz := filepath.Join(dir, "input.gz")
	writeGzip(t, gz, want)
	sz := filepath.Join(dir, "input.bin")
	writeSnappy(t, sz, want)
	wantSum := fmt.Sprintf("xxh64:%016x", xxhash.Sum64(want))

	tests := []struct {
		name      string
		src       string
		codec     string
		blockSize int64
		blocks    int
	}{
		{"plain", plain, "", 32768, 5},
		{"gzip", gz, "gz", 50000, 3},
		{"snappy", sz, "sz", 100000, 2},
		{"xz", "../../testdata/corpus-mt.txt.xz", "xz", 65536, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := filepath.Join(dir, tt.name+".xz")
			pk := New(WithPreset(0), WithBlockSize(tt.blockSize), WithThreads(2), WithTempDir(dir))

			m, err := pk.Pack(context.Background(), tt.src, dst)
			if err != nil {
				t.Fatalf("Pack() error = %v", err)
			}
			if m.Codec != tt.codec {
				t.Errorf("Codec = %q, want %q", m.Codec, tt.codec)
			}
			if m.Blocks != tt.blocks || m.Streams != 1 {
				t.Errorf("Blocks = %d, Streams = %d; want %d, 1", m.Blocks, m.Streams, tt.blocks)
			}
			if m.Checksum != wantSum {
				t.Errorf("Checksum = %q, want %q", m.Checksum, wantSum)
			}
			if m.UncompressedSize != int64(len(want)) {
				t.Errorf("UncompressedSize = %d, want %d", m.UncompressedSize, len(want))
			}
			if m.Ratio() <= 0 || m.Ratio() >= 1 {
				t.Errorf("Ratio() = %v, want in (0, 1)", m.Ratio())
			}
			if !bytes.Equal(loadAll(t, dst), want) {
				t.Error("packed output does not decode to the input")
			}
			if _, err := os.Stat(dst + ".json"); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("manifest written without WithManifest: %v", err)
			}
		})
	}
}

func TestPack_Manifest(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.xz")

	var mu sync.Mutex
	var phases []string
	progress := func(p Progress) {
		mu.Lock()
		phases = append(phases, p.Phase)
		mu.Unlock()
	}

	m, err := New(WithPreset(1), WithManifest(true), WithCheck(xzra.CheckSHA256), WithProgress(progress)).
		Pack(context.Background(), "../../testdata/corpus.txt", dst)
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	got, err := ReadManifest(dst + ".json")
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if got.Check != "SHA-256" || got.Blocks != m.Blocks || got.CompressedSize != m.CompressedSize {
		t.Errorf("ReadManifest() = %+v, want %+v", got, m)
	}
	if got.Source != "../../testdata/corpus.txt" {
		t.Errorf("Source = %q", got.Source)
	}
	if len(phases) == 0 || phases[len(phases)-1] != PhaseDone {
		t.Errorf("phases = %v, want last %q", phases, PhaseDone)
	}
}

func TestPack_Download(t *testing.T) {
	want := corpus(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "corpus.txt", time.Time{}, bytes.NewReader(want))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dst := filepath.Join(dir, "remote.xz")
	var downloaded int64
	progress := func(p Progress) {
		if p.Phase == PhaseDownload {
			downloaded = p.BytesDownloaded
		}
	}

	_, err := New(WithPreset(0), WithProgress(progress), WithTempDir(dir)).
		Pack(context.Background(), srv.URL+"/corpus.txt", dst)
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if downloaded != int64(len(want)) {
		t.Errorf("downloaded %d bytes, want %d", downloaded, len(want))
	}
	if !bytes.Equal(loadAll(t, dst), want) {
		t.Error("packed output does not decode to the download")
	}
}

func TestDownloader_Resume(t *testing.T) {
	want := corpus(t)
	var mu sync.Mutex
	var ranges []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ranges = append(ranges, r.Header.Get("Range"))
		mu.Unlock()
		http.ServeContent(w, r, "corpus.txt", time.Time{}, bytes.NewReader(want))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "partial")
	if err := os.WriteFile(dest, want[:1000], 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := NewDownloader().DownloadToFile(context.Background(), srv.URL, dest, nil); err != nil {
		t.Fatalf("DownloadToFile() error = %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("resumed file has %d bytes, want %d", len(got), len(want))
	}
	mu.Lock()
	defer mu.Unlock()
	if len(ranges) != 1 || ranges[0] != "bytes=1000-" {
		t.Errorf("Range headers = %q, want [bytes=1000-]", ranges)
	}
}

func TestDownloader_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := NewDownloader().DownloadToFile(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x"), nil)
	if err == nil {
		t.Error("DownloadToFile() error = nil for 404")
	}
}

type fakeUploader struct {
	objects map[string][]byte
	closed  bool
}

func (u *fakeUploader) Upload(_ context.Context, localPath, key string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	u.objects[key] = data
	return nil
}

func (u *fakeUploader) Close() error {
	u.closed = true
	return nil
}

func TestPack_RemoteDestination(t *testing.T) {
	up := &fakeUploader{objects: make(map[string][]byte)}
	pk := New(WithPreset(0), WithBlockSize(65536), WithManifest(true), WithTempDir(t.TempDir()))
	pk.openUploader = func(ctx context.Context, dst string) (Uploader, string, error) {
		_, _, key, err := ParseObjectURL(dst)
		return up, key, err
	}

	m, err := pk.Pack(context.Background(), "../../testdata/corpus.txt", "gs://bucket/packs/corpus.xz")
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	data, ok := up.objects["packs/corpus.xz"]
	if !ok {
		t.Fatalf("uploaded keys = %v, want packs/corpus.xz", up.objects)
	}
	if int64(len(data)) != m.CompressedSize {
		t.Errorf("uploaded %d bytes, manifest says %d", len(data), m.CompressedSize)
	}
	if _, ok := up.objects["packs/corpus.xz.json"]; !ok {
		t.Error("manifest was not uploaded")
	}
	if !up.closed {
		t.Error("uploader was not closed")
	}
}

func TestPack_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dst := filepath.Join(t.TempDir(), "out.xz")

	if _, err := New(WithPreset(0)).Pack(ctx, "../../testdata/corpus.txt", dst); !errors.Is(err, context.Canceled) {
		t.Errorf("Pack() error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(dst); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("output exists after cancellation: %v", err)
	}
}

func TestParseObjectURL(t *testing.T) {
	tests := []struct {
		in                  string
		scheme, bucket, key string
		wantErr             bool
	}{
		{in: "gs://bucket/file.xz", scheme: "gs", bucket: "bucket", key: "file.xz"},
		{in: "s3://bucket/a/b/file.xz", scheme: "s3", bucket: "bucket", key: "a/b/file.xz"},
		{in: "gs://bucket/", wantErr: true},
		{in: "gs:///file.xz", wantErr: true},
		{in: "https://host/file.xz", wantErr: true},
		{in: "/local/file.xz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			scheme, bucket, key, err := ParseObjectURL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseObjectURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if scheme != tt.scheme || bucket != tt.bucket || key != tt.key {
				t.Errorf("ParseObjectURL() = %q, %q, %q", scheme, bucket, key)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1 << 20, "1.0 MiB"},
		{5 << 30, "5.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m 30s"},
		{3*time.Hour + 5*time.Minute, "3h 5m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProgressReaderWriter(t *testing.T) {
	var read, written atomic.Int64
	var buf bytes.Buffer

	w := newProgressWriter(&buf, &written)
	w.Write([]byte("hello"))
	w.Write([]byte(", world"))
	if written.Load() != 12 {
		t.Errorf("written = %d, want 12", written.Load())
	}

	r := newProgressReader(&buf, &read)
	p := make([]byte, 5)
	r.Read(p)
	if read.Load() != 5 {
		t.Errorf("read = %d, want 5", read.Load())
	}
}
