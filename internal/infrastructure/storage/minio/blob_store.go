package minio

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

const blobContentType = "application/octet-stream"

// BlobStore keeps each blob as the object Prefix+key. PutObject replaces an
// object in a single request, so readers see the old or the new body.
type BlobStore struct {
	client *MinIOClient
}

func NewBlobStore(client *MinIOClient) *BlobStore {
	return &BlobStore{client: client}
}

func (s *BlobStore) Name() string { return "minio" }

func (s *BlobStore) object(key string) string {
	return s.client.config.Prefix + key
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.client.isClosed() {
		return nil, ErrMinIOClientClosed
	}
	return s.client.client.ReadObject(ctx, s.client.config.Bucket, s.object(key))
}

func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	if s.client.isClosed() {
		return ErrMinIOClientClosed
	}
	info, err := s.client.client.PutObject(ctx, s.client.config.Bucket, s.object(key),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: blobContentType})
	if err != nil {
		return errors.Wrap(err, errors.CodeStorageFailure, "minio put failed").WithDetail(key)
	}
	s.client.logger.Debug("blob uploaded", logging.String("key", key), logging.String("etag", info.ETag))
	return nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if s.client.isClosed() {
		return ErrMinIOClientClosed
	}
	if err := s.client.client.RemoveObject(ctx, s.client.config.Bucket, s.object(key), minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.CodeStorageFailure, "minio remove failed").WithDetail(key)
	}
	return nil
}

func (s *BlobStore) Keys(ctx context.Context) ([]string, error) {
	if s.client.isClosed() {
		return nil, ErrMinIOClientClosed
	}
	prefix := s.client.config.Prefix
	var keys []string
	for obj := range s.client.client.ListObjects(ctx, s.client.config.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.CodeStorageFailure, "minio list failed")
		}
		keys = append(keys, strings.TrimPrefix(obj.Key, prefix))
	}
	sort.Strings(keys)
	return keys, nil
}
