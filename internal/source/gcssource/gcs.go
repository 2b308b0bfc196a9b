// Package gcssource implements a source backed by a Google Cloud Storage
// object, read with range readers.
package gcssource

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/discochess/xzra/internal/source"
)

// Compile-time check that Source implements source.Source.
var _ source.Source = (*Source)(nil)

// object is the part of *storage.ObjectHandle the source needs.
type object interface {
	Attrs(ctx context.Context) (*storage.ObjectAttrs, error)
	NewRangeReader(ctx context.Context, offset, length int64) (io.ReadCloser, error)
}

// handle adapts *storage.ObjectHandle, whose NewRangeReader returns a
// concrete *storage.Reader, to object.
type handle struct {
	h *storage.ObjectHandle
}

func (h handle) Attrs(ctx context.Context) (*storage.ObjectAttrs, error) {
	return h.h.Attrs(ctx)
}

func (h handle) NewRangeReader(ctx context.Context, offset, length int64) (io.ReadCloser, error) {
	return h.h.NewRangeReader(ctx, offset, length)
}

// Source reads one GCS object.
type Source struct {
	ctx    context.Context
	client *storage.Client
	obj    object
	size   int64
}

// New creates a source for gs://bucket/name.
func New(ctx context.Context, bucket, name string) (*Source, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	s, err := newSource(ctx, handle{client.Bucket(bucket).Object(name)})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("gs://%s/%s: %w", bucket, name, err)
	}
	s.client = client
	return s, nil
}

func newSource(ctx context.Context, obj object) (*Source, error) {
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, source.ErrNotFound
		}
		return nil, fmt.Errorf("reading object attributes: %w", err)
	}
	return &Source{ctx: ctx, obj: obj, size: attrs.Size}, nil
}

// ReadAt reads bytes [off, off+len(p)) through one range reader.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off >= s.size {
		return 0, io.EOF
	}
	want := min(int64(len(p)), s.size-off)

	reader, err := s.obj.NewRangeReader(s.ctx, off, want)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return 0, source.ErrNotFound
		}
		return 0, fmt.Errorf("creating range reader: %w", err)
	}
	defer reader.Close()

	n, err := io.ReadFull(reader, p[:want])
	if err != nil {
		return n, fmt.Errorf("reading object range: %w", err)
	}
	if want < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the object size.
func (s *Source) Size() int64 {
	return s.size
}

// Close releases resources.
func (s *Source) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
