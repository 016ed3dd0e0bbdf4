// Package app assembles the mapper runtime from configuration: logger,
// metrics, the basis cache on its configured backend, the feature catalog
// and the render engine. Both binaries build on it.
package app

import (
	"path/filepath"

	"github.com/BlackCockder/IBEX-Mapper/internal/application/basiscache"
	"github.com/BlackCockder/IBEX-Mapper/internal/application/mapping"
	"github.com/BlackCockder/IBEX-Mapper/internal/config"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/features"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/prometheus"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/storage/filesystem"
)

// App holds the wired components.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.MapperMetrics
	Backend   *Backend
	Cache     *basiscache.Cache
	Catalog   *filesystem.CatalogStore
	Features  features.Service
	Engine    *mapping.Engine
	// Outputs receives exported scenes under render.output_dir.
	Outputs *filesystem.BlobStore
}

// Option adjusts construction.
type Option func(*options)

type options struct {
	logger  logging.Logger
	backend *Backend
}

// WithLogger replaces the logger built from the log section.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBackend supplies an already opened backend instead of dialing
// cache.backend.
func WithBackend(b *Backend) Option {
	return func(o *options) { o.backend = b }
}

// New wires an App from cfg. cfg must already be validated.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	log := o.logger
	if log == nil {
		var err error
		log, err = logging.NewLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
	}

	var collector prometheus.MetricsCollector = prometheus.NoopCollector{}
	if cfg.Monitoring.Enabled {
		c, err := prometheus.NewMetricsCollector(cfg.Monitoring.Prometheus, log)
		if err != nil {
			return nil, err
		}
		collector = c
	}
	metrics := prometheus.NewMapperMetrics(collector)

	backend := o.backend
	if backend == nil {
		var err error
		backend, err = OpenBackend(cfg.Cache, log)
		if err != nil {
			return nil, err
		}
	}

	palette, _ := features.ParsePalette(cfg.Render.Palette)
	catalog, err := filesystem.NewCatalogStore(cfg.Render.FeaturesFile, log,
		filesystem.WithInitialStyle(palette, cfg.Render.HeatmapScale))
	if err != nil {
		backend.Close()
		return nil, err
	}
	outputs, err := filesystem.NewBlobStore(filepath.Clean(cfg.Render.OutputDir), log)
	if err != nil {
		backend.Close()
		return nil, err
	}

	cache := basiscache.New(backend.Store,
		basiscache.WithLogger(log),
		basiscache.WithMetrics(metrics),
		basiscache.WithWorkers(cfg.Cache.Workers),
		basiscache.WithMaxEntries(cfg.Cache.MaxEntries),
	)
	svc := features.NewService(catalog, log)
	engine := mapping.NewEngine(cache,
		mapping.WithFeatures(svc),
		mapping.WithLogger(log),
		mapping.WithMetrics(metrics),
		mapping.WithRenderSection(cfg.Render),
	)

	log.Debug("runtime assembled",
		logging.String("cache_backend", backend.Name()),
		logging.String("features_file", catalog.Path()),
		logging.String("output_dir", outputs.Dir()),
	)

	return &App{
		Config:    cfg,
		Logger:    log,
		Collector: collector,
		Metrics:   metrics,
		Backend:   backend,
		Cache:     cache,
		Catalog:   catalog,
		Features:  svc,
		Engine:    engine,
		Outputs:   outputs,
	}, nil
}

// Close releases the backend and flushes the logger.
func (a *App) Close() error {
	err := a.Backend.Close()
	_ = a.Logger.Sync()
	return err
}
