package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"os"
	"testing"

	"github.com/discochess/xzra/internal/xzformat"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../testdata/" + name)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	return data
}

func build(t *testing.T, data []byte, chunkSize int) (*Index, error) {
	t.Helper()
	return Build(bytes.NewReader(data), int64(len(data)), make([]byte, chunkSize))
}

func TestBuild_Fixtures(t *testing.T) {
	tests := []struct {
		fixture string
		blocks  int
		check   xzformat.Check
	}{
		{"corpus.txt.xz", 1, xzformat.CheckCRC64},
		{"corpus-mt.txt.xz", 5, xzformat.CheckCRC64},
		{"corpus-delta.txt.xz", 8, xzformat.CheckSHA256},
		{"corpus-crc32.txt.xz", 3, xzformat.CheckCRC32},
		{"corpus-none.txt.xz", 1, xzformat.CheckNone},
	}

	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			data := readFixture(t, tt.fixture)
			ix, err := build(t, data, 4096)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if ix.BlockCount() != tt.blocks {
				t.Errorf("BlockCount() = %d, want %d", ix.BlockCount(), tt.blocks)
			}
			if ix.StreamCount() != 1 {
				t.Errorf("StreamCount() = %d, want 1", ix.StreamCount())
			}
			if ix.UncompressedSize() != 147251 {
				t.Errorf("UncompressedSize() = %d, want 147251", ix.UncompressedSize())
			}
			if ix.FileSize() != int64(len(data)) {
				t.Errorf("FileSize() = %d, want %d", ix.FileSize(), len(data))
			}
			checkContiguous(t, ix)
			for _, b := range ix.Blocks() {
				if b.Check != tt.check {
					t.Errorf("block %d Check = %v, want %v", b.Number, b.Check, tt.check)
				}
			}
		})
	}
}

// checkContiguous verifies that blocks tile both the compressed streams and
// the uncompressed data.
func checkContiguous(t *testing.T, ix *Index) {
	t.Helper()
	var uoff int64
	for _, s := range ix.Streams() {
		coff := s.CompressedOffset + xzformat.StreamHeaderSize
		for _, b := range ix.Blocks()[s.FirstBlock : s.FirstBlock+s.BlockCount] {
			if b.CompressedOffset != coff {
				t.Errorf("block %d CompressedOffset = %d, want %d", b.Number, b.CompressedOffset, coff)
			}
			if b.UncompressedOffset != uoff {
				t.Errorf("block %d UncompressedOffset = %d, want %d", b.Number, b.UncompressedOffset, uoff)
			}
			coff += b.TotalSize
			uoff = b.UncompressedEnd()
		}
	}
	if uoff != ix.UncompressedSize() {
		t.Errorf("blocks end at %d, UncompressedSize() = %d", uoff, ix.UncompressedSize())
	}
}

func TestBuild_MultiBlockLayout(t *testing.T) {
	ix, err := build(t, readFixture(t, "corpus-mt.txt.xz"), 4096)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	wantOffsets := []int64{12, 8304, 16628, 24956, 33232}
	for i, b := range ix.Blocks() {
		if b.CompressedOffset != wantOffsets[i] {
			t.Errorf("block %d CompressedOffset = %d, want %d", b.Number, b.CompressedOffset, wantOffsets[i])
		}
		if b.Number != i+1 || b.StreamNumber != 1 {
			t.Errorf("block %d numbered (%d, %d), want (%d, 1)", i, b.Number, b.StreamNumber, i+1)
		}
	}
	last := ix.Blocks()[4]
	if last.UncompressedOffset != 4*32768 || last.UncompressedSize != 16179 {
		t.Errorf("last block = [%d, +%d), want [131072, +16179)", last.UncompressedOffset, last.UncompressedSize)
	}
}

func TestBuild_ConcatenatedStreams(t *testing.T) {
	data := readFixture(t, "concat.txt.xz")

	// Small chunks force the padding scan and index decode across refills.
	for _, chunkSize := range []int{16, 64, 4096} {
		ix, err := build(t, data, chunkSize)
		if err != nil {
			t.Fatalf("Build(chunk %d) error = %v", chunkSize, err)
		}
		if ix.StreamCount() != 2 {
			t.Fatalf("StreamCount() = %d, want 2", ix.StreamCount())
		}
		if ix.BlockCount() != 4 {
			t.Errorf("BlockCount() = %d, want 4", ix.BlockCount())
		}
		first, second := ix.Streams()[0], ix.Streams()[1]
		if first.Padding != 8 || second.Padding != 0 {
			t.Errorf("Padding = %d, %d; want 8, 0", first.Padding, second.Padding)
		}
		if first.UncompressedSize != 70000 || second.UncompressedSize != 77251 {
			t.Errorf("UncompressedSize = %d, %d; want 70000, 77251", first.UncompressedSize, second.UncompressedSize)
		}
		if second.CompressedOffset != 18280 || second.UncompressedOffset != 70000 {
			t.Errorf("second stream at (%d, %d), want (18280, 70000)", second.CompressedOffset, second.UncompressedOffset)
		}
		if b := ix.Blocks()[3]; b.CompressedOffset != 18292 || b.StreamNumber != 2 {
			t.Errorf("block 4 = offset %d stream %d, want offset 18292 stream 2", b.CompressedOffset, b.StreamNumber)
		}
		checkContiguous(t, ix)
	}
}

func TestBuild_EmptyStream(t *testing.T) {
	ix, err := build(t, readFixture(t, "empty.xz"), 4096)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if ix.BlockCount() != 0 || ix.UncompressedSize() != 0 {
		t.Errorf("BlockCount() = %d, UncompressedSize() = %d; want 0, 0", ix.BlockCount(), ix.UncompressedSize())
	}
	if _, err := ix.Locate(0); !errors.Is(err, xzformat.ErrLocate) {
		t.Errorf("Locate(0) error = %v, want ErrLocate", err)
	}
}

func TestBuild_Errors(t *testing.T) {
	corpus := readFixture(t, "corpus.txt.xz")
	wrapped := craftStream(t, []xzformat.Record{
		{UnpaddedSize: xzformat.MaxVLI &^ 3},
		{UnpaddedSize: xzformat.MaxVLI - 51},
	})
	wrapped = append(wrapped, 0, 0, 0, 0)
	wrapped = append(wrapped, craftStream(t, nil)...)

	tests := []struct {
		name    string
		data    func() []byte
		wantErr error
	}{
		{
			name:    "padding at start",
			data:    func() []byte { return append(make([]byte, 4), corpus...) },
			wantErr: xzformat.ErrFormat,
		},
		{
			name:    "only padding",
			data:    func() []byte { return make([]byte, 64) },
			wantErr: xzformat.ErrFormat,
		},
		{
			name:    "size not multiple of four",
			data:    func() []byte { return append(append([]byte(nil), corpus...), 0) },
			wantErr: xzformat.ErrFormat,
		},
		{
			name: "footer crc",
			data: func() []byte {
				b := append([]byte(nil), corpus...)
				b[len(b)-12] ^= 0x01
				return b
			},
			wantErr: xzformat.ErrCorrupt,
		},
		{
			name: "footer magic",
			data: func() []byte {
				b := append([]byte(nil), corpus...)
				b[len(b)-1] = 'X'
				return b
			},
			wantErr: xzformat.ErrFormat,
		},
		{
			name: "index crc",
			data: func() []byte {
				b := append([]byte(nil), corpus...)
				b[len(b)-13] ^= 0x01
				return b
			},
			wantErr: xzformat.ErrCorrupt,
		},
		{
			name: "backward size too large",
			data: func() []byte {
				b := append([]byte(nil), corpus...)
				setBackwardSize(b, int64(len(b)))
				return b
			},
			wantErr: xzformat.ErrCorrupt,
		},
		{
			// Two block sizes that wrap int64 would place the stream after
			// its own footer.
			name:    "index sizes wrap",
			data:    func() []byte { return wrapped },
			wantErr: xzformat.ErrCorrupt,
		},
		{
			name: "header flags differ from footer",
			data: func() []byte {
				b := append([]byte(nil), corpus...)
				b[7] = byte(xzformat.CheckCRC32)
				binary.LittleEndian.PutUint32(b[8:12], crc32.ChecksumIEEE(b[6:8]))
				return b
			},
			wantErr: xzformat.ErrCorrupt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := build(t, tt.data(), 4096)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
			if ix != nil {
				t.Error("Build() returned an index alongside an error")
			}
		})
	}
}

// craftStream encodes a stream with no block data and an index holding
// records.
func craftStream(t *testing.T, records []xzformat.Record) []byte {
	t.Helper()
	flags := xzformat.StreamFlags{Check: xzformat.CheckCRC64}
	b := xzformat.AppendStreamHeader(nil, flags)
	index := xzformat.AppendIndex(nil, records)
	b = append(b, index...)
	b, err := xzformat.AppendStreamFooter(b, xzformat.StreamFooter{Flags: flags, BackwardSize: int64(len(index))})
	if err != nil {
		t.Fatalf("AppendStreamFooter() error = %v", err)
	}
	return b
}

// setBackwardSize rewrites the footer of b to declare size bytes of index.
func setBackwardSize(b []byte, size int64) {
	footer := b[len(b)-12:]
	binary.LittleEndian.PutUint32(footer[4:8], uint32(size/4-1))
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(footer[4:10]))
}

func TestIndex_LocateAndCursor(t *testing.T) {
	ix, err := build(t, readFixture(t, "corpus-mt.txt.xz"), 4096)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		off  int64
		want int
	}{
		{0, 0},
		{32767, 0},
		{32768, 1},
		{100000, 3},
		{147250, 4},
	}
	for _, tt := range tests {
		got, err := ix.Locate(tt.off)
		if err != nil {
			t.Fatalf("Locate(%d) error = %v", tt.off, err)
		}
		if got != tt.want {
			t.Errorf("Locate(%d) = %d, want %d", tt.off, got, tt.want)
		}
	}
	for _, off := range []int64{-1, 147251} {
		if _, err := ix.Locate(off); !errors.Is(err, xzformat.ErrLocate) {
			t.Errorf("Locate(%d) error = %v, want ErrLocate", off, err)
		}
	}

	c := ix.Cursor(2)
	var numbers []int
	for c.Next() {
		numbers = append(numbers, c.Block().Number)
	}
	if len(numbers) != 3 || numbers[0] != 3 || numbers[2] != 5 {
		t.Errorf("cursor from 2 visited %v, want [3 4 5]", numbers)
	}
}

func TestCursor_SkipsEmptyBlocks(t *testing.T) {
	ix := &Index{
		blocks: []Block{
			{Number: 1, UncompressedOffset: 0, UncompressedSize: 10},
			{Number: 2, UncompressedOffset: 10, UncompressedSize: 0},
			{Number: 3, UncompressedOffset: 10, UncompressedSize: 5},
			{Number: 4, UncompressedOffset: 15, UncompressedSize: 0},
		},
		size: 15,
	}

	var numbers []int
	for c := ix.Cursor(0); c.Next(); {
		numbers = append(numbers, c.Block().Number)
	}
	if len(numbers) != 2 || numbers[0] != 1 || numbers[1] != 3 {
		t.Errorf("cursor visited %v, want [1 3]", numbers)
	}

	if got, err := ix.Locate(10); err != nil || got != 2 {
		t.Errorf("Locate(10) = %d, %v; want 2, nil", got, err)
	}
}
