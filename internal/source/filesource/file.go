// Package filesource implements a local file source.
package filesource

import (
	"fmt"
	"os"

	"github.com/discochess/xzra/internal/source"
)

// Compile-time check that Source implements source.Source.
var _ source.Source = (*Source)(nil)

// Source reads from a file on the local filesystem.
type Source struct {
	f    *os.File
	size int64
}

// Open opens the file at path. Errors keep the underlying *fs.PathError
// reachable, and a missing file also matches source.ErrNotFound.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %w", source.ErrNotFound, err)
		}
		return nil, fmt.Errorf("opening file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &Source{f: f, size: info.Size()}, nil
}

// ReadAt reads len(p) bytes starting at off.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

// Size returns the file size observed when the file was opened.
func (s *Source) Size() int64 {
	return s.size
}

// Name returns the path the source was opened with.
func (s *Source) Name() string {
	return s.f.Name()
}

// Close closes the file.
func (s *Source) Close() error {
	return s.f.Close()
}
