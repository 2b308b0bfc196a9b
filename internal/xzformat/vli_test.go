package xzformat

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestVLI_RoundTrip(t *testing.T) {
	tests := []uint64{0, 1, 0x7f, 0x80, 0x3fff, 0x4000, 1 << 32, MaxVLI}

	for _, x := range tests {
		enc := AppendVLI(nil, x)
		if len(enc) != SizeVLI(x) {
			t.Errorf("SizeVLI(%d) = %d, encoding has %d bytes", x, SizeVLI(x), len(enc))
		}
		got, n, err := ReadVLI(bytes.NewReader(enc))
		if err != nil {
			t.Fatalf("ReadVLI(%x) error = %v", enc, err)
		}
		if got != x || n != len(enc) {
			t.Errorf("ReadVLI(%x) = %d, %d; want %d, %d", enc, got, n, x, len(enc))
		}
	}
}

func TestReadVLI_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{"non-minimal", []byte{0x80, 0x00}, ErrCorrupt},
		{"ten bytes", bytes.Repeat([]byte{0xff}, 10), ErrCorrupt},
		{"truncated", []byte{0x80}, io.ErrUnexpectedEOF},
		{"empty", nil, io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadVLI(bytes.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadVLI() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
