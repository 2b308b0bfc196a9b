// Package source defines where the bytes of a compressed file come from.
package source

import (
	"errors"
	"io"
)

// ErrNotFound is returned when the object behind a source does not exist.
var ErrNotFound = errors.New("source: object not found")

// Source is a random-access view of one compressed file.
// Implementations must allow concurrent ReadAt calls.
type Source interface {
	io.ReaderAt

	// Size returns the length of the file in bytes.
	Size() int64

	// Close releases any resources held by the source.
	Close() error
}
