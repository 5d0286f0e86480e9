package archive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
)

// S3Storage writes action-log archive objects to a dedicated bucket.
type S3Storage struct {
	client *minio.Client
	bucket string

	ensureOnce sync.Once
	ensureErr  error
}

func NewS3Storage(client *minio.Client, bucket string) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: strings.TrimSpace(bucket),
	}
}

func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if s.bucket == "" {
		return fmt.Errorf("s3 bucket is empty")
	}

	s.ensureOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.ensureErr = err
			return
		}
		if exists {
			return
		}
		s.ensureErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	})

	if s.ensureErr != nil {
		return fmt.Errorf("ensure s3 bucket %q: %w", s.bucket, s.ensureErr)
	}

	return nil
}

// PutArchive stores one JSON-lines object.
func (s *S3Storage) PutArchive(ctx context.Context, key string, body io.Reader, size int64) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if key == "" || body == nil || size <= 0 {
		return fmt.Errorf("invalid archive payload")
	}

	if err := s.EnsureBucket(ctx); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: "application/x-ndjson",
	})
	if err != nil {
		return fmt.Errorf("put archive object to s3: %w", err)
	}

	return nil
}
