// Package minio stores persisted vector indexes in an S3-compatible bucket.
package minio

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/whoiskiwi/PatentSearch/internal/config"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// MinIOAPI is the subset of the MinIO client the index store calls.
// GetObject returns a plain ReadCloser so tests can fake object bodies.
type MinIOAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// clientAdapter narrows *minio.Client to MinIOAPI.
type clientAdapter struct {
	*minio.Client
}

func (a clientAdapter) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.Client.GetObject(ctx, bucketName, objectName, opts)
}

// NewClient builds a MinIO client from configuration. No request is made
// until the first call.
func NewClient(cfg config.MinIOConfig, log logging.Logger) (MinIOAPI, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to create minio client").WithDetail(cfg.Endpoint)
	}
	logging.OrNop(log).Info("MinIO client created",
		logging.String("endpoint", cfg.Endpoint),
		logging.Bool("ssl", cfg.UseSSL))
	return clientAdapter{client}, nil
}

// EnsureBucket creates bucket when it does not exist.
func EnsureBucket(ctx context.Context, api MinIOAPI, bucket, region string, log logging.Logger) error {
	exists, err := api.BucketExists(ctx, bucket)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorage, "failed to check bucket").WithDetail(bucket)
	}
	if exists {
		return nil
	}
	if err := api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorage, "failed to create bucket").WithDetail(bucket)
	}
	logging.OrNop(log).Info("Created bucket", logging.String("bucket", bucket))
	return nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return true
	}
	return false
}
