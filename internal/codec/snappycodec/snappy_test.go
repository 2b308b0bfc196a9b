package snappycodec

import (
	"bytes"
	"io"
	"testing"

	"github.com/golang/snappy"

	"github.com/discochess/xzra/internal/codec"
)

func snappyData(t *testing.T, p []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := snappy.NewBufferedWriter(&buf)
	if _, err := w.Write(p); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestCodec_Reader(t *testing.T) {
	c := New()
	original := bytes.Repeat([]byte("0123456789abcdef"), 20000)

	reader, err := c.Reader(bytes.NewReader(snappyData(t, original)))
	if err != nil {
		t.Fatalf("Reader() error = %v", err)
	}
	defer reader.Close()

	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Error("Reader() returned wrong data")
	}
}

func TestCodec_Detect(t *testing.T) {
	data := snappyData(t, []byte("hello"))
	if got := codec.Detect("input.bin", data[:codec.MagicSize], New()); got == nil {
		t.Error("Detect() = nil, want the snappy codec by magic")
	}
	if got := codec.Detect("input.sz", []byte("plain!"), New()); got == nil {
		t.Error("Detect() = nil, want the snappy codec by extension")
	}
}

func TestCodec_Reader_InvalidData(t *testing.T) {
	reader, err := New().Reader(bytes.NewReader([]byte("not snappy data")))
	if err != nil {
		t.Fatalf("Reader() error = %v", err)
	}
	if _, err := io.ReadAll(reader); err == nil {
		t.Error("ReadAll() expected error for invalid snappy data, got nil")
	}
}
