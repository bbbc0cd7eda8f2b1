package minio

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	"github.com/whoiskiwi/PatentSearch/internal/intelligence/vectorindex"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

const indexContentType = "application/octet-stream"

// IndexStore keeps one persisted vector index as a single object.
type IndexStore struct {
	api    MinIOAPI
	bucket string
	key    string
	logger logging.Logger
}

var _ vectorindex.Store = (*IndexStore)(nil)

// NewIndexStore stores the index at bucket/key.
func NewIndexStore(api MinIOAPI, bucket, key string, log logging.Logger) *IndexStore {
	return &IndexStore{api: api, bucket: bucket, key: key, logger: logging.OrNop(log)}
}

func (s *IndexStore) Location() string { return "minio://" + s.bucket + "/" + s.key }

// Open returns vectorindex.ErrNotExist when the object or its bucket is missing.
func (s *IndexStore) Open(ctx context.Context) (io.ReadCloser, error) {
	if _, err := s.api.StatObject(ctx, s.bucket, s.key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, vectorindex.ErrNotExist
		}
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to stat index object").WithDetail(s.Location())
	}
	body, err := s.api.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "failed to get index object").WithDetail(s.Location())
	}
	return body, nil
}

func (s *IndexStore) Save(ctx context.Context, r io.Reader, size int64) error {
	info, err := s.api.PutObject(ctx, s.bucket, s.key, r, size, minio.PutObjectOptions{
		ContentType: indexContentType,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeIndexPersist, "failed to upload index object").WithDetail(s.Location())
	}
	s.logger.Info("Uploaded index object",
		logging.String("location", s.Location()),
		logging.Int64("size", info.Size),
		logging.String("etag", info.ETag))
	return nil
}
