package xzformat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"testing"
	"testing/iotest"

	"github.com/ulikunitz/xz/lzma"
)

func fixHeaderCRC(raw []byte) []byte {
	n := len(raw) - 4
	binary.LittleEndian.PutUint32(raw[n:], crc32.ChecksumIEEE(raw[:n]))
	return raw
}

func chainOf(t *testing.T, filters ...Filter) FilterChain {
	t.Helper()
	var c FilterChain
	for _, f := range filters {
		if err := c.Add(f); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	return c
}

func TestFilterChain_Validate(t *testing.T) {
	lzma2 := Filter{ID: FilterLZMA2, Props: []byte{0x16}}
	delta := Filter{ID: FilterDelta, Props: []byte{0x00}}

	tests := []struct {
		name    string
		filters []Filter
		wantErr bool
	}{
		{"lzma2 only", []Filter{lzma2}, false},
		{"delta then lzma2", []Filter{delta, lzma2}, false},
		{"empty", nil, true},
		{"lzma2 not last", []Filter{lzma2, delta}, true},
		{"delta last", []Filter{delta}, true},
		{"x86", []Filter{{ID: FilterX86}, lzma2}, true},
		{"arm64", []Filter{{ID: FilterARM64}, lzma2}, true},
		{"unknown", []Filter{{ID: 0x4000}, lzma2}, true},
		{"bad dict", []Filter{{ID: FilterLZMA2, Props: []byte{41}}}, true},
		{"delta props", []Filter{{ID: FilterDelta}, lzma2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := chainOf(t, tt.filters...)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrFormat) {
				t.Errorf("Validate() error = %v, want ErrFormat", err)
			}
		})
	}
}

func TestFilterChain_TooMany(t *testing.T) {
	var c FilterChain
	for i := 0; i < MaxFilters; i++ {
		if err := c.Add(Filter{ID: FilterDelta, Props: []byte{0}}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if err := c.Add(Filter{ID: FilterLZMA2}); !errors.Is(err, ErrFormat) {
		t.Errorf("Add() error = %v, want ErrFormat", err)
	}
}

func TestFilterChain_AddCopiesProps(t *testing.T) {
	props := []byte{0x16}
	c := chainOf(t, Filter{ID: FilterLZMA2, Props: props})
	props[0] = 0xff
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v after caller mutated props", err)
	}
}

// lzma2Encode compresses data into a raw LZMA2 stream.
func lzma2Encode(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := lzma.Writer2Config{DictCap: 1 << 16}.NewWriter2(&buf)
	if err != nil {
		t.Fatalf("NewWriter2() error = %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestFilterChain_NewReader_Delta(t *testing.T) {
	const dist = 3
	plain := make([]byte, 10000)
	for i := range plain {
		plain[i] = byte(i*7 + i/13)
	}
	// Delta-encode: each byte minus the byte dist positions earlier.
	encoded := make([]byte, len(plain))
	for i := range plain {
		var prev byte
		if i >= dist {
			prev = plain[i-dist]
		}
		encoded[i] = plain[i] - prev
	}

	c := chainOf(t,
		Filter{ID: FilterDelta, Props: []byte{dist - 1}},
		Filter{ID: FilterLZMA2, Props: []byte{lzma.EncodeDictCap(1 << 16)}},
	)
	r, err := c.NewReader(bytes.NewReader(lzma2Encode(t, encoded)), int64(len(plain)))
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	// Small reads exercise the history across Read calls.
	got, err := io.ReadAll(iotest.OneByteReader(r))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Error("delta decode does not reproduce the input")
	}
}
