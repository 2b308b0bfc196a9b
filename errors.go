package xzra

import (
	"errors"

	"github.com/discochess/xzra/internal/xzformat"
)

// Error classes. Every error returned by a Reader, Block or Writer wraps
// one of them; use errors.Is to branch.
var (
	// ErrFormat indicates input that is not an xz file or uses options
	// that are not supported, such as BCJ filters.
	ErrFormat = xzformat.ErrFormat

	// ErrCorrupt indicates a checksum mismatch or structurally invalid data.
	ErrCorrupt = xzformat.ErrCorrupt

	// ErrIO indicates a failure of the underlying source.
	ErrIO = xzformat.ErrIO

	// ErrLocate indicates an uncompressed offset or range outside the file.
	ErrLocate = xzformat.ErrLocate

	// ErrInternal indicates a broken invariant inside the library.
	ErrInternal = xzformat.ErrInternal
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrClosed indicates the reader or writer has been closed.
	ErrClosed = errors.New("xzra: closed")

	// ErrNoSource indicates no source was provided.
	ErrNoSource = errors.New("xzra: no source provided")
)
