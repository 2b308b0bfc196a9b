package xzformat

import (
	"fmt"
	"io"
	"strings"

	"github.com/ulikunitz/xz/lzma"
)

// MaxFilters is the longest filter chain a block may declare.
const MaxFilters = 4

// FilterID is the registered identifier of a filter.
type FilterID uint64

// Filter IDs known to the format. Only Delta and LZMA2 can be decoded.
const (
	FilterDelta    FilterID = 0x03
	FilterX86      FilterID = 0x04
	FilterPowerPC  FilterID = 0x05
	FilterIA64     FilterID = 0x06
	FilterARM      FilterID = 0x07
	FilterARMThumb FilterID = 0x08
	FilterSPARC    FilterID = 0x09
	FilterARM64    FilterID = 0x0a
	FilterRISCV    FilterID = 0x0b
	FilterLZMA2    FilterID = 0x21
)

var filterNames = map[FilterID]string{
	FilterDelta:    "delta",
	FilterX86:      "x86",
	FilterPowerPC:  "powerpc",
	FilterIA64:     "ia64",
	FilterARM:      "arm",
	FilterARMThumb: "armthumb",
	FilterSPARC:    "sparc",
	FilterARM64:    "arm64",
	FilterRISCV:    "riscv",
	FilterLZMA2:    "lzma2",
}

func (id FilterID) String() string {
	if name, ok := filterNames[id]; ok {
		return name
	}
	return fmt.Sprintf("filter-%#x", uint64(id))
}

// Filter is one entry of a chain: an ID and its encoded properties.
type Filter struct {
	ID    FilterID
	Props []byte
}

// FilterChain is the ordered list of filters a block was encoded with. The
// first filter is the one applied last when decoding. A FilterChain owns
// copies of its property bytes.
type FilterChain struct {
	filters [MaxFilters]Filter
	n       int
}

// NewLZMA2Chain returns the single-filter chain the writer emits.
func NewLZMA2Chain(dictCap int64) FilterChain {
	var c FilterChain
	c.filters[0] = Filter{ID: FilterLZMA2, Props: []byte{lzma.EncodeDictCap(dictCap)}}
	c.n = 1
	return c
}

// Add appends f to the chain.
func (c *FilterChain) Add(f Filter) error {
	if c.n == MaxFilters {
		return Formatf("more than %d filters", MaxFilters)
	}
	c.filters[c.n] = Filter{ID: f.ID, Props: append([]byte(nil), f.Props...)}
	c.n++
	return nil
}

// Len returns the number of filters in the chain.
func (c *FilterChain) Len() int { return c.n }

// At returns the i-th filter.
func (c *FilterChain) At(i int) Filter { return c.filters[i] }

// Validate checks that the chain can be decoded: it ends in exactly one
// LZMA2 filter and all other filters are Delta filters with valid properties.
func (c *FilterChain) Validate() error {
	if c.n == 0 {
		return Formatf("empty filter chain")
	}
	for i, f := range c.filters[:c.n] {
		last := i == c.n-1
		switch f.ID {
		case FilterLZMA2:
			if !last {
				return Formatf("lzma2 must be the last filter")
			}
			if len(f.Props) != 1 {
				return Formatf("lzma2 properties have %d bytes, want 1", len(f.Props))
			}
			if _, err := lzma.DecodeDictCap(f.Props[0]); err != nil {
				return Formatf("lzma2 properties: %v", err)
			}
		case FilterDelta:
			if last {
				return Formatf("delta cannot be the last filter")
			}
			if len(f.Props) != 1 {
				return Formatf("delta properties have %d bytes, want 1", len(f.Props))
			}
		default:
			if _, known := filterNames[f.ID]; known {
				return Formatf("unsupported filter %s", f.ID)
			}
			return Formatf("unknown filter id %#x", uint64(f.ID))
		}
	}
	return nil
}

// DictCap returns the dictionary capacity declared by the chain's LZMA2
// filter. The chain must be valid.
func (c *FilterChain) DictCap() int64 {
	f := c.filters[c.n-1]
	d, _ := lzma.DecodeDictCap(f.Props[0])
	return d
}

// NewReader returns a reader decoding the compressed data in r through the
// chain. sizeHint, when non-negative, bounds the dictionary allocated for
// LZMA2: a block never references further back than its own length.
func (c *FilterChain) NewReader(r io.Reader, sizeHint int64) (io.Reader, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	dictCap := c.DictCap()
	if sizeHint >= 0 {
		dictCap = min(dictCap, sizeHint)
	}
	dictCap = max(dictCap, lzma.MinDictCap)
	lr, err := lzma.Reader2Config{DictCap: int(dictCap)}.NewReader2(r)
	if err != nil {
		return nil, Formatf("lzma2 decoder: %v", err)
	}
	var rd io.Reader = lr
	for i := c.n - 2; i >= 0; i-- {
		rd = newDeltaReader(rd, int(c.filters[i].Props[0])+1)
	}
	return rd, nil
}

func (c *FilterChain) String() string {
	parts := make([]string, 0, c.n)
	for _, f := range c.filters[:c.n] {
		switch {
		case f.ID == FilterDelta && len(f.Props) == 1:
			parts = append(parts, fmt.Sprintf("delta:dist=%d", int(f.Props[0])+1))
		case f.ID == FilterLZMA2 && len(f.Props) == 1:
			d, err := lzma.DecodeDictCap(f.Props[0])
			if err != nil {
				parts = append(parts, "lzma2")
				continue
			}
			parts = append(parts, "lzma2:dict="+formatDict(d))
		default:
			parts = append(parts, f.ID.String())
		}
	}
	return strings.Join(parts, " ")
}

func formatDict(d int64) string {
	switch {
	case d%(1<<30) == 0:
		return fmt.Sprintf("%dGiB", d>>30)
	case d%(1<<20) == 0:
		return fmt.Sprintf("%dMiB", d>>20)
	case d%(1<<10) == 0:
		return fmt.Sprintf("%dKiB", d>>10)
	}
	return fmt.Sprintf("%dB", d)
}

// deltaReader undoes the delta filter: every byte is the sum of the decoded
// byte and the output byte dist positions earlier.
type deltaReader struct {
	r    io.Reader
	dist int
	hist [256]byte
	pos  byte
}

func newDeltaReader(r io.Reader, dist int) *deltaReader {
	return &deltaReader{r: r, dist: dist}
}

func (d *deltaReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	for i := 0; i < n; i++ {
		p[i] += d.hist[(d.dist+int(d.pos))&0xff]
		d.hist[d.pos] = p[i]
		d.pos--
	}
	return n, err
}
