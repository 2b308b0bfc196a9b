// Package memsource provides an in-memory source, mostly for tests.
package memsource

import (
	"bytes"
	"sync/atomic"

	"github.com/discochess/xzra/internal/source"
)

// Compile-time check that Source implements source.Source.
var _ source.Source = (*Source)(nil)

// Source serves reads from a byte slice and counts them.
type Source struct {
	r *bytes.Reader

	reads     atomic.Int64
	bytesRead atomic.Int64
	closed    atomic.Bool
}

// New creates a source over a copy of data, so caller mutations do not
// affect it.
func New(data []byte) *Source {
	return &Source{r: bytes.NewReader(bytes.Clone(data))}
}

// ReadAt reads from the in-memory data.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	n, err := s.r.ReadAt(p, off)
	s.reads.Add(1)
	s.bytesRead.Add(int64(n))
	return n, err
}

// Size returns the length of the data.
func (s *Source) Size() int64 {
	return s.r.Size()
}

// Reads returns the number of ReadAt calls served.
func (s *Source) Reads() int64 {
	return s.reads.Load()
}

// BytesRead returns the total number of bytes returned by ReadAt.
func (s *Source) BytesRead() int64 {
	return s.bytesRead.Load()
}

// Closed reports whether Close has been called.
func (s *Source) Closed() bool {
	return s.closed.Load()
}

// Close marks the source closed. Reads keep working.
func (s *Source) Close() error {
	s.closed.Store(true)
	return nil
}
