package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinioConfig contains the connection settings for an S3-compatible endpoint.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// MinioStore implements ObjectStore on top of MinIO or any S3-compatible service.
type MinioStore struct {
	client *minio.Client
	logger zerolog.Logger
}

// NewMinioStore constructs a MinIO-backed object store.
func NewMinioStore(cfg MinioConfig, logger zerolog.Logger) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio endpoint and credentials must be provided")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	return &MinioStore{
		client: client,
		logger: logger.With().Str("component", "minio_store").Logger(),
	}, nil
}

// EnsureBuckets creates any missing bucket.
func (s *MinioStore) EnsureBuckets(ctx context.Context, buckets ...string) error {
	for _, bucket := range buckets {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %q: %w", bucket, err)
		}
		if exists {
			continue
		}
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		s.logger.Info().Str("bucket", bucket).Msg("bucket created")
	}
	return nil
}

// Download reads the whole object into memory.
func (s *MinioStore) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.translate(bucket, key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, s.translate(bucket, key, err)
	}
	return data, nil
}

// Upload stores the object; size may be -1 when unknown.
func (s *MinioStore) Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	info, err := s.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}

	s.logger.Debug().Str("bucket", bucket).Str("key", key).Int64("size", info.Size).Msg("object stored")
	return nil
}

func (s *MinioStore) translate(bucket, key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%s/%s: %w", bucket, key, ErrObjectNotFound)
	default:
		return fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
}
