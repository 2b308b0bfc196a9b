// Package xzformat implements the parts of the xz container format needed
// to navigate a file without decompressing it: stream headers and footers,
// the index record, block headers, integrity checks and the decode side of
// filter chains. The LZMA2 bit stream itself is handled by
// github.com/ulikunitz/xz/lzma.
package xzformat

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package and the packages
// built on top of it wraps exactly one of these, so callers can branch with
// errors.Is.
var (
	// ErrFormat indicates data that is not an xz container or uses options
	// this implementation does not support.
	ErrFormat = errors.New("xzra: unsupported or unrecognized format")

	// ErrCorrupt indicates a checksum mismatch or structurally invalid data.
	ErrCorrupt = errors.New("xzra: corrupt data")

	// ErrIO indicates a failure of the underlying byte source.
	ErrIO = errors.New("xzra: i/o error")

	// ErrLocate indicates an uncompressed offset outside the container.
	ErrLocate = errors.New("xzra: offset out of range")

	// ErrInternal indicates a broken invariant. It is a bug, not bad input.
	ErrInternal = errors.New("xzra: internal error")
)

// Formatf returns an ErrFormat error with the given detail.
func Formatf(format string, args ...any) error {
	return classify(ErrFormat, format, args...)
}

// Corruptf returns an ErrCorrupt error with the given detail.
func Corruptf(format string, args ...any) error {
	return classify(ErrCorrupt, format, args...)
}

// Internalf returns an ErrInternal error with the given detail.
func Internalf(format string, args ...any) error {
	return classify(ErrInternal, format, args...)
}

// IOError wraps a source failure in ErrIO, keeping the cause reachable.
func IOError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}

func classify(class error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", class, fmt.Sprintf(format, args...))
}
