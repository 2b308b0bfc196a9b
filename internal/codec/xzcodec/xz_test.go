package xzcodec

import (
	"bytes"
	"io"
	"os"
	"testing"
)

func TestCodec_Reader(t *testing.T) {
	want, err := os.ReadFile("../../../testdata/corpus.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	for _, name := range []string{"corpus-mt.txt.xz", "concat.txt.xz"} {
		t.Run(name, func(t *testing.T) {
			f, err := os.Open("../../../testdata/" + name)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer f.Close()

			c := New(0)
			head := make([]byte, 6)
			if _, err := f.ReadAt(head, 0); err != nil {
				t.Fatalf("ReadAt() error = %v", err)
			}
			if !bytes.Equal(head, c.Magic()) {
				t.Errorf("file starts with %x, Magic() = %x", head, c.Magic())
			}

			reader, err := c.Reader(f)
			if err != nil {
				t.Fatalf("Reader() error = %v", err)
			}
			defer reader.Close()
			got, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Error("Reader() returned wrong data")
			}
		})
	}
}
