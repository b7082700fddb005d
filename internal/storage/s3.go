package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store reads resumes from an Amazon S3 (or compatible) bucket.
type S3Store struct {
	client     *s3.Client
	downloader *manager.Downloader
	bucket     string
	maxBytes   int64
}

// NewS3Store returns a store for bucket. Objects larger than maxBytes are rejected
// before download; maxBytes <= 0 disables the check.
func NewS3Store(client *s3.Client, bucket string, maxBytes int64) *S3Store {
	return &S3Store{
		client:     client,
		downloader: manager.NewDownloader(client),
		bucket:     bucket,
		maxBytes:   maxBytes,
	}
}

func (s *S3Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	if s.bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return nil, fmt.Errorf("object key is required")
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translateError(key, err)
	}

	size := aws.ToInt64(head.ContentLength)
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrObjectTooLarge, key, size, s.maxBytes)
	}

	buf := manager.NewWriteAtBuffer(make([]byte, 0, size))
	n, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translateError(key, err)
	}
	return buf.Bytes()[:n], nil
}

func translateError(key string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return fmt.Errorf("fetch %s: %w", key, err)
}

var _ ResumeStore = (*S3Store)(nil)
