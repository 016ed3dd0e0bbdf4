package redis

import (
	"context"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// BlobStore keeps each blob under KeyPrefix+key. A single SET replaces the
// value, so readers never see a partial blob.
type BlobStore struct {
	client *Client
	prefix string
	logger logging.Logger
}

func NewBlobStore(client *Client) *BlobStore {
	return &BlobStore{
		client: client,
		prefix: client.config.KeyPrefix,
		logger: client.logger.Named("blobstore"),
	}
}

func (s *BlobStore) Name() string { return "redis" }

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.client.isClosed() {
		return nil, ErrClientClosed
	}
	data, err := s.client.rdb.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, errors.New(errors.CodeBlobNotFound, "blob not found").WithDetail(key)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageFailure, "redis get failed").WithDetail(key)
	}
	return data, nil
}

func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	if s.client.isClosed() {
		return ErrClientClosed
	}
	if err := s.client.rdb.Set(ctx, s.prefix+key, data, s.client.config.TTL).Err(); err != nil {
		return errors.Wrap(err, errors.CodeStorageFailure, "redis set failed").WithDetail(key)
	}
	s.logger.Debug("blob stored", logging.String("key", key), logging.Int("bytes", len(data)))
	return nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if s.client.isClosed() {
		return ErrClientClosed
	}
	if err := s.client.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Wrap(err, errors.CodeStorageFailure, "redis del failed").WithDetail(key)
	}
	return nil
}

// Keys scans the prefix and returns keys with the prefix stripped.
func (s *BlobStore) Keys(ctx context.Context) ([]string, error) {
	if s.client.isClosed() {
		return nil, ErrClientClosed
	}
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.client.rdb.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeStorageFailure, "redis scan failed")
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, s.prefix))
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(keys)
	return keys, nil
}
