package pack

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader copies finished local files to one object storage bucket.
type Uploader interface {
	// Upload stores the file at localPath under key.
	Upload(ctx context.Context, localPath, key string) error
	// Close releases resources.
	Close() error
}

// IsRemote reports whether dst names an object storage location.
func IsRemote(dst string) bool {
	return strings.HasPrefix(dst, "gs://") || strings.HasPrefix(dst, "s3://")
}

// ParseObjectURL splits "gs://bucket/key" or "s3://bucket/key" into its
// parts.
func ParseObjectURL(raw string) (scheme, bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid object URL %q: %w", raw, err)
	}
	if u.Scheme != "gs" && u.Scheme != "s3" {
		return "", "", "", fmt.Errorf("invalid object URL %q: scheme must be gs or s3", raw)
	}
	if u.Host == "" {
		return "", "", "", fmt.Errorf("invalid object URL %q: missing bucket name", raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", "", fmt.Errorf("invalid object URL %q: missing object name", raw)
	}
	return u.Scheme, u.Host, key, nil
}

// NewUploader returns an uploader for the bucket named in dst, and the
// object key dst points at.
func NewUploader(ctx context.Context, dst string) (Uploader, string, error) {
	scheme, bucket, key, err := ParseObjectURL(dst)
	if err != nil {
		return nil, "", err
	}
	if scheme == "gs" {
		u, err := newGCSUploader(ctx, bucket)
		return u, key, err
	}
	u, err := newS3Uploader(ctx, bucket)
	return u, key, err
}

// gcsUploader uploads to Google Cloud Storage.
type gcsUploader struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

func newGCSUploader(ctx context.Context, bucket string) (*gcsUploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}
	return &gcsUploader{client: client, bucket: client.Bucket(bucket)}, nil
}

func (u *gcsUploader) Upload(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := u.bucket.Object(key).NewWriter(ctx)
	writer.ContentType = contentType(key)
	if _, err := io.Copy(writer, file); err != nil {
		writer.Close()
		return fmt.Errorf("uploading gs://%s/%s: %w", u.bucket.BucketName(), key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finishing gs://%s/%s: %w", u.bucket.BucketName(), key, err)
	}
	return nil
}

func (u *gcsUploader) Close() error {
	return u.client.Close()
}

// putObjectAPI is the part of *s3.Client the S3 uploader needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Uploader uploads to AWS S3 with single PutObject calls.
type s3Uploader struct {
	client putObjectAPI
	bucket string
}

func newS3Uploader(ctx context.Context, bucket string) (*s3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &s3Uploader{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (u *s3Uploader) Upload(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return err
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(key)),
	})
	if err != nil {
		return fmt.Errorf("uploading s3://%s/%s: %w", u.bucket, key, err)
	}
	return nil
}

func (u *s3Uploader) Close() error {
	return nil
}

func contentType(key string) string {
	if strings.HasSuffix(key, ".json") {
		return "application/json"
	}
	return "application/x-xz"
}
