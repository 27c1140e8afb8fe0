package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/pkg/log"
	"buswatch.io/buswatch/pkg/options"
)

// MediaStore serves vehicle and stop imagery from an S3-compatible bucket.
// The hub never proxies the bytes; clients follow short-lived presigned
// URLs straight to the object store.
type MediaStore struct {
	client     *minio.Client
	bucketName string
}

var _ core.MediaStore = (*MediaStore)(nil)

// NewMediaStore creates the store from S3 options.
func NewMediaStore(opts *options.S3Options) (*MediaStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MediaStore{
		client:     client,
		bucketName: opts.BucketName,
	}, nil
}

// CheckBucket ensures the media bucket exists. Startup check only; the
// bucket is created automatically for development convenience.
func (m *MediaStore) CheckBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("Bucket does not exist, creating...", "bucket", m.bucketName)
		if err := m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// PresignedURL returns a temporary download link for an object key.
func (m *MediaStore) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	presigned, err := m.client.PresignedGetObject(ctx, m.bucketName, objectKey, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned url: %w", err)
	}
	return presigned.String(), nil
}
