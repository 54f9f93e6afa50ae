package store

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/edgequery/edgequery/pkg/config"
	errs "github.com/edgequery/edgequery/pkg/errors"
)

// S3 serves blobs from an S3-compatible object store.
type S3 struct {
	client *minio.Client
	bucket string
}

// NewS3 creates the S3 backend.
func NewS3(cfg config.S3Config) (*S3, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

// Fetch returns the object stored under key.
func (s *S3) Fetch(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", errs.ErrStoreUnavailable, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: reading %s: %v", errs.ErrStoreUnavailable, key, err)
	}
	return data, nil
}
