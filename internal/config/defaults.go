package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/BlackCockder/IBEX-Mapper/internal/domain/features"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/resample"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultMapAccuracy = 360
	DefaultMaxLToCache = 15
	DefaultMaxAccuracy = 720
	DefaultMaxLLimit   = 30

	DefaultGraticuleStep = resample.DefaultGraticuleStep
	DefaultOutputDir     = "output"
	DefaultFeaturesFile  = "features.json"

	DefaultCacheBackend = BackendFilesystem
	DefaultCacheDir     = "cache"
	DefaultCacheEntries = 4

	DefaultServerHost  = "0.0.0.0"
	DefaultServerPort  = 8080
	DefaultServerMode  = "release"
	DefaultMaxBodySize = 8 << 20

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "ibex"
)

// DefaultMapSection is the baseline restored by "config reset": no rotation,
// negative values kept, anchors at the origin and the north pole.
func DefaultMapSection() MapSection {
	return MapSection{
		MapAccuracy:         DefaultMapAccuracy,
		MaxLToCache:         DefaultMaxLToCache,
		Rotate:              false,
		CentralPoint:        sphere.GeoPoint{Lon: 0, Lat: 0},
		MeridianPoint:       sphere.GeoPoint{Lon: 0, Lat: 90},
		AllowNegativeValues: true,
		MaxAccuracy:         DefaultMaxAccuracy,
		MaxLLimit:           DefaultMaxLLimit,
	}
}

// Default returns a fully-populated Config that passes Validate.
func Default() *Config {
	cfg := &Config{Map: DefaultMapSection()}
	cfg.Monitoring.Enabled = true
	cfg.Monitoring.Prometheus.EnableGoMetrics = true
	cfg.Monitoring.Prometheus.EnableProcessMetrics = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with its default. Fields
// already set are left unchanged so explicit configuration always wins.
//
// Booleans cannot be told apart from "unset" here; file and environment
// loading get their boolean defaults from registerDefaults instead.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Map ───────────────────────────────────────────────────────────────────
	if cfg.Map.MapAccuracy == 0 {
		cfg.Map.MapAccuracy = DefaultMapAccuracy
	}
	if cfg.Map.MaxLToCache == 0 {
		cfg.Map.MaxLToCache = DefaultMaxLToCache
	}
	if cfg.Map.MaxAccuracy == 0 {
		cfg.Map.MaxAccuracy = DefaultMaxAccuracy
	}
	if cfg.Map.MaxLLimit == 0 {
		cfg.Map.MaxLLimit = DefaultMaxLLimit
	}

	// ── Render ────────────────────────────────────────────────────────────────
	if cfg.Render.Palette == "" {
		cfg.Render.Palette = string(features.DefaultPalette)
	}
	if cfg.Render.GraticuleStep == 0 {
		cfg.Render.GraticuleStep = DefaultGraticuleStep
	}
	if cfg.Render.OutputDir == "" {
		cfg.Render.OutputDir = DefaultOutputDir
	}
	if cfg.Render.FeaturesFile == "" {
		cfg.Render.FeaturesFile = DefaultFeaturesFile
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultCacheBackend
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = DefaultCacheDir
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheEntries
	}
	if cfg.Cache.Redis.KeyPrefix == "" {
		cfg.Cache.Redis.KeyPrefix = "ibex:basis:"
	}
	if cfg.Cache.MinIO.Bucket == "" {
		cfg.Cache.MinIO.Bucket = "ibex-basis"
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// Cold renders evaluate a full basis set.
		cfg.Server.WriteTimeout = 10 * time.Minute
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Monitoring ────────────────────────────────────────────────────────────
	if cfg.Monitoring.Path == "" {
		cfg.Monitoring.Path = DefaultMetricsPath
	}
	if cfg.Monitoring.Prometheus.Namespace == "" {
		cfg.Monitoring.Prometheus.Namespace = DefaultMetricsNamespace
	}
}

// registerDefaults seeds v with every key of Default(). AutomaticEnv only
// resolves keys viper already knows, so this is also what makes IBEX_*
// overrides reach Unmarshal.
func registerDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("map.map_accuracy", d.Map.MapAccuracy)
	v.SetDefault("map.max_l_to_cache", d.Map.MaxLToCache)
	v.SetDefault("map.rotate", d.Map.Rotate)
	v.SetDefault("map.central_point.lon", d.Map.CentralPoint.Lon)
	v.SetDefault("map.central_point.lat", d.Map.CentralPoint.Lat)
	v.SetDefault("map.meridian_point.lon", d.Map.MeridianPoint.Lon)
	v.SetDefault("map.meridian_point.lat", d.Map.MeridianPoint.Lat)
	v.SetDefault("map.allow_negative_values", d.Map.AllowNegativeValues)
	v.SetDefault("map.max_accuracy", d.Map.MaxAccuracy)
	v.SetDefault("map.max_l_limit", d.Map.MaxLLimit)

	v.SetDefault("render.palette", d.Render.Palette)
	v.SetDefault("render.heatmap_scale.min", d.Render.HeatmapScale.Min)
	v.SetDefault("render.heatmap_scale.max", d.Render.HeatmapScale.Max)
	v.SetDefault("render.graticule_step", d.Render.GraticuleStep)
	v.SetDefault("render.features_file", d.Render.FeaturesFile)
	v.SetDefault("render.output_dir", d.Render.OutputDir)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.workers", d.Cache.Workers)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.redis.mode", "standalone")
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.key_prefix", d.Cache.Redis.KeyPrefix)
	v.SetDefault("cache.redis.ttl", time.Duration(0))
	v.SetDefault("cache.minio.endpoint", "")
	v.SetDefault("cache.minio.access_key_id", "")
	v.SetDefault("cache.minio.secret_access_key", "")
	v.SetDefault("cache.minio.use_ssl", false)
	v.SetDefault("cache.minio.region", "")
	v.SetDefault("cache.minio.bucket", d.Cache.MinIO.Bucket)
	v.SetDefault("cache.minio.prefix", "")

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)
	v.SetDefault("server.cors_allowed_origins", d.Server.CORSAllowedOrigins)
	v.SetDefault("server.rate_limit_rps", d.Server.RateLimitRPS)
	v.SetDefault("server.rate_limit_burst", d.Server.RateLimitBurst)
	v.SetDefault("server.grpc_port", d.Server.GRPCPort)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("monitoring.enabled", d.Monitoring.Enabled)
	v.SetDefault("monitoring.path", d.Monitoring.Path)
	v.SetDefault("monitoring.prometheus.namespace", d.Monitoring.Prometheus.Namespace)
	v.SetDefault("monitoring.prometheus.enable_go_metrics", d.Monitoring.Prometheus.EnableGoMetrics)
	v.SetDefault("monitoring.prometheus.enable_process_metrics", d.Monitoring.Prometheus.EnableProcessMetrics)
}

// DefaultPath is where the CLI looks for its configuration file when none is
// given: ibex.yaml in the working directory.
func DefaultPath() string {
	return filepath.Join(".", "ibex.yaml")
}
