package filesystem

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BlackCockder/IBEX-Mapper/internal/domain/features"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// CatalogStore persists the feature catalog as an indented JSON document.
type CatalogStore struct {
	path    string
	logger  logging.Logger
	palette features.Palette
	scale   features.HeatmapScale
}

// CatalogOption configures a CatalogStore.
type CatalogOption func(*CatalogStore)

// WithInitialStyle sets the palette and scale reported while the features
// file does not exist yet.
func WithInitialStyle(p features.Palette, s features.HeatmapScale) CatalogOption {
	return func(c *CatalogStore) {
		if p != "" {
			c.palette = p
		}
		c.scale = s
	}
}

var _ features.Repository = (*CatalogStore)(nil)

// NewCatalogStore returns a store for path. The file is created on first Save.
func NewCatalogStore(path string, log logging.Logger, opts ...CatalogOption) (*CatalogStore, error) {
	if path == "" {
		return nil, errors.New(errors.CodeConfigInvalid, "features file is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &CatalogStore{path: path, logger: log.Named("catalog"), palette: features.DefaultPalette}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *CatalogStore) Path() string { return s.path }

func (s *CatalogStore) Load(_ context.Context) (*features.Catalog, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		c := features.NewCatalog()
		c.Palette, c.HeatmapScale = s.palette, s.scale
		return c, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageFailure, "failed to read features file").WithDetail(s.path)
	}
	var c features.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "features file is not valid JSON").WithDetail(s.path)
	}
	c.Normalize()
	return &c, nil
}

func (s *CatalogStore) Save(_ context.Context, catalog *features.Catalog) error {
	data, err := json.MarshalIndent(catalog, "", "    ")
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "failed to encode features")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, errors.CodeStorageFailure, "failed to create features directory")
	}
	if err := writeAtomic(s.path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(err, errors.CodeStorageFailure, "failed to write features file").WithDetail(s.path)
	}
	s.logger.Debug("features saved", logging.String("path", s.path))
	return nil
}
