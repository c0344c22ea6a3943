package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/samber/oops"
)

// MinioStorage implements ObjectStorage on a MinIO/S3 bucket
type MinioStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// MinioConfig holds the connection settings for the image bucket
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the externally reachable base URL of the bucket.
	// Empty means the client endpoint URL is used.
	PublicURL string
}

// NewMinioStorage connects to MinIO and ensures the bucket exists
func NewMinioStorage(ctx context.Context, cfg MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, oops.With("endpoint", cfg.Endpoint, "context", "creating minio client").Wrap(err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, oops.With("bucket", cfg.Bucket, "context", "checking bucket").Wrap(err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, oops.With("bucket", cfg.Bucket, "context", "creating bucket").Wrap(err)
		}
		slog.Info("Created image bucket", "bucket", cfg.Bucket)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = client.EndpointURL().String()
	}

	return &MinioStorage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

func (s *MinioStorage) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := fmt.Sprintf("ads/%s%s", uuid.New().String(), path.Ext(name))

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", oops.With("bucket", s.bucket, "key", key, "context", "uploading object").Wrap(err)
	}

	slog.Debug("Uploaded image", "bucket", s.bucket, "key", key, "size_bytes", len(data))
	return key, nil
}

func (s *MinioStorage) PublicURL(storagePath string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, storagePath)
}

func (s *MinioStorage) Remove(ctx context.Context, storagePath string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, storagePath, minio.RemoveObjectOptions{}); err != nil {
		return oops.With("bucket", s.bucket, "key", storagePath).Wrap(err)
	}
	return nil
}
