package app

import (
	"context"
	"os"

	"github.com/BlackCockder/IBEX-Mapper/internal/application/basiscache"
	"github.com/BlackCockder/IBEX-Mapper/internal/config"
	rediscache "github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/database/redis"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/storage/filesystem"
	miniostore "github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/storage/minio"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// Backend is the blob store selected by cache.backend together with the
// client that owns its connection, if any.
type Backend struct {
	Store basiscache.BlobStore

	redis *rediscache.Client
	minio *miniostore.MinIOClient
	dir   string
}

// OpenBackend connects the configured cache backend. Redis and MinIO are
// contacted once so a misconfigured endpoint fails at startup.
func OpenBackend(cfg config.CacheSection, log logging.Logger) (*Backend, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	switch cfg.Backend {
	case config.BackendMemory:
		return &Backend{Store: basiscache.NewMemoryStore()}, nil

	case config.BackendFilesystem:
		store, err := filesystem.NewBlobStore(cfg.Dir, log)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: store, dir: store.Dir()}, nil

	case config.BackendRedis:
		redisCfg := cfg.Redis
		client, err := rediscache.NewClient(&redisCfg, log)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: rediscache.NewBlobStore(client), redis: client}, nil

	case config.BackendMinIO:
		minioCfg := cfg.MinIO
		client, err := miniostore.NewMinIOClient(&minioCfg, log)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: miniostore.NewBlobStore(client), minio: client}, nil
	}
	return nil, errors.New(errors.CodeConfigInvalid, "unknown cache backend").WithDetail(cfg.Backend)
}

// Name returns the store name.
func (b *Backend) Name() string { return b.Store.Name() }

// Ping checks that the backend is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	switch {
	case b.redis != nil:
		return b.redis.Ping(ctx)
	case b.minio != nil:
		return b.minio.HealthCheck(ctx)
	case b.dir != "":
		info, err := os.Stat(b.dir)
		if err != nil {
			return errors.Wrap(err, errors.CodeStorageFailure, "cache directory unavailable").WithDetail(b.dir)
		}
		if !info.IsDir() {
			return errors.New(errors.CodeStorageFailure, "cache path is not a directory").WithDetail(b.dir)
		}
	}
	return nil
}

// Close releases the backend connection.
func (b *Backend) Close() error {
	switch {
	case b.redis != nil:
		return b.redis.Close()
	case b.minio != nil:
		return b.minio.Close()
	}
	return nil
}
