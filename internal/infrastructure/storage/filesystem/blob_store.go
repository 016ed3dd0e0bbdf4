// Package filesystem stores basis blobs and the feature catalog on local
// disk. Every write goes to a temporary file in the target directory that is
// then renamed over the destination, so readers never observe a partial file.
package filesystem

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// BlobStore keeps one file per key under a directory.
type BlobStore struct {
	dir    string
	logger logging.Logger
}

// NewBlobStore creates dir if needed.
func NewBlobStore(dir string, log logging.Logger) (*BlobStore, error) {
	if dir == "" {
		return nil, errors.New(errors.CodeConfigInvalid, "cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageFailure, "failed to create cache directory").WithDetail(dir)
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &BlobStore{dir: dir, logger: log.Named("blobstore.filesystem")}, nil
}

// Dir returns the backing directory.
func (s *BlobStore) Dir() string { return s.dir }

func (s *BlobStore) Name() string { return "filesystem" }

func (s *BlobStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", errors.New(errors.CodeInvalidParam, "invalid blob key").WithDetail(key)
	}
	return filepath.Join(s.dir, key), nil
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCancelled, "blob read cancelled")
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.New(errors.CodeBlobNotFound, "blob not found").WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.CodeStorageFailure, "failed to read blob").WithDetail(key)
	}
	return data, nil
}

func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.CodeCancelled, "blob write cancelled")
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := writeAtomic(p, data, 0o644); err != nil {
		return errors.Wrap(err, errors.CodeStorageFailure, "failed to write blob").WithDetail(key)
	}
	s.logger.Debug("blob written", logging.String("key", key), logging.Int("bytes", len(data)))
	return nil
}

func (s *BlobStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, errors.CodeStorageFailure, "failed to delete blob").WithDetail(key)
	}
	return nil
}

// Keys lists regular files in the directory, skipping in-flight temp files.
func (s *BlobStore) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageFailure, "failed to list cache directory")
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		keys = append(keys, e.Name())
	}
	sort.Strings(keys)
	return keys, nil
}

const tempPrefix = ".tmp-"

// writeAtomic writes data to a temp file beside path, syncs it and renames
// it over path.
func writeAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), tempPrefix+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
