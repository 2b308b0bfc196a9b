// Package s3source implements a source backed by an AWS S3 object, read
// with ranged GET requests.
package s3source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/discochess/xzra/internal/source"
)

// Compile-time check that Source implements source.Source.
var _ source.Source = (*Source)(nil)

// API is the subset of *s3.Client the source uses.
type API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Compile-time check that the SDK client satisfies API.
var _ API = (*s3.Client)(nil)

// Source reads one S3 object.
type Source struct {
	ctx    context.Context
	client API
	bucket string
	key    string
	size   int64
}

// New creates a source for s3://bucket/key. The object's size is fetched
// once with HeadObject. ctx is used for every later read, since ReadAt
// takes no context.
func New(ctx context.Context, bucket, key string, opts ...Option) (*Source, error) {
	s := &Source{ctx: ctx, bucket: bucket, key: key}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.client == nil {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		s.client = s3.NewFromConfig(cfg)
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		var nsk *types.NoSuchKey
		if errors.As(err, &nf) || errors.As(err, &nsk) {
			return nil, fmt.Errorf("s3://%s/%s: %w", bucket, key, source.ErrNotFound)
		}
		return nil, fmt.Errorf("head object: %w", err)
	}
	s.size = aws.ToInt64(head.ContentLength)

	return s, nil
}

// Option configures a Source.
type Option func(*Source) error

// WithClient uses the given client instead of one built from the default
// AWS configuration.
func WithClient(c API) Option {
	return func(s *Source) error {
		s.client = c
		return nil
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(s *Source) error {
		cfg, err := config.LoadDefaultConfig(s.ctx, config.WithRegion(region))
		if err != nil {
			return fmt.Errorf("loading AWS config with region: %w", err)
		}
		s.client = s3.NewFromConfig(cfg)
		return nil
	}
}

// WithEndpoint sets a custom endpoint (for S3-compatible services like MinIO).
func WithEndpoint(endpoint string) Option {
	return func(s *Source) error {
		cfg, err := config.LoadDefaultConfig(s.ctx)
		if err != nil {
			return fmt.Errorf("loading AWS config for endpoint: %w", err)
		}
		s.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
		return nil
	}
}

// ReadAt fetches bytes [off, off+len(p)) with a single ranged GET.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off >= s.size {
		return 0, io.EOF
	}
	want := min(int64(len(p)), s.size-off)

	result, err := s.client.GetObject(s.ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(byteRange(off, want)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return 0, source.ErrNotFound
		}
		return 0, fmt.Errorf("get object range: %w", err)
	}
	defer result.Body.Close()

	n, err := io.ReadFull(result.Body, p[:want])
	if err != nil {
		return n, fmt.Errorf("reading object body: %w", err)
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
	// S3 client doesn't need explicit closing.
	return nil
}

// byteRange formats an HTTP Range header value for length bytes at off.
func byteRange(off, length int64) string {
	return fmt.Sprintf("bytes=%d-%d", off, off+length-1)
}
