// Package config defines the typed configuration of the mapper: the map
// section consumed by the render pipeline plus the render, cache, server,
// log and monitoring sections. Loading lives in loader.go, persistence in
// store.go.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BlackCockder/IBEX-Mapper/internal/domain/features"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
	rediscache "github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/database/redis"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/prometheus"
	miniostore "github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/storage/minio"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// Cache backends.
const (
	BackendFilesystem = "filesystem"
	BackendMemory     = "memory"
	BackendRedis      = "redis"
	BackendMinIO      = "minio"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// MapSection holds the settings every render reads.
type MapSection struct {
	MapAccuracy         int             `mapstructure:"map_accuracy" json:"map_accuracy"`
	MaxLToCache         int             `mapstructure:"max_l_to_cache" json:"max_l_to_cache"`
	Rotate              bool            `mapstructure:"rotate" json:"rotate"`
	CentralPoint        sphere.GeoPoint `mapstructure:"central_point" json:"central_point"`
	MeridianPoint       sphere.GeoPoint `mapstructure:"meridian_point" json:"meridian_point"`
	AllowNegativeValues bool            `mapstructure:"allow_negative_values" json:"allow_negative_values"`

	// Ceilings for map_accuracy and max_l_to_cache, including per-request
	// overrides. Zero means the default ceiling.
	MaxAccuracy int `mapstructure:"max_accuracy" json:"max_accuracy"`
	MaxLLimit   int `mapstructure:"max_l_limit" json:"max_l_limit"`
}

// RenderSection holds scene cosmetics and output locations.
type RenderSection struct {
	Palette       string                `mapstructure:"palette" json:"palette"`
	HeatmapScale  features.HeatmapScale `mapstructure:"heatmap_scale" json:"heatmap_scale"`
	GraticuleStep float64               `mapstructure:"graticule_step" json:"graticule_step"`
	FeaturesFile  string                `mapstructure:"features_file" json:"features_file"`
	OutputDir     string                `mapstructure:"output_dir" json:"output_dir"`
}

// CacheSection selects and configures the basis blob backend.
type CacheSection struct {
	Backend    string                 `mapstructure:"backend" json:"backend"` // filesystem | memory | redis | minio
	Dir        string                 `mapstructure:"dir" json:"dir"`
	Workers    int                    `mapstructure:"workers" json:"workers"`
	MaxEntries int                    `mapstructure:"max_entries" json:"max_entries"` // basis sets kept in memory
	Redis      rediscache.RedisConfig `mapstructure:"redis" json:"redis"`
	MinIO      miniostore.MinIOConfig `mapstructure:"minio" json:"minio"`
}

// ServerSection holds HTTP server tunables.
type ServerSection struct {
	Host            string        `mapstructure:"host" json:"host"`
	Port            int           `mapstructure:"port" json:"port"`
	Mode            string        `mapstructure:"mode" json:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size" json:"max_body_size"`

	// CORSAllowedOrigins is a comma-separated origin list; empty disables CORS.
	CORSAllowedOrigins string `mapstructure:"cors_allowed_origins" json:"cors_allowed_origins"`
	// RateLimitRPS caps requests per second per client; 0 disables limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`
	// GRPCPort serves the gRPC health protocol; 0 disables it.
	GRPCPort int `mapstructure:"grpc_port" json:"grpc_port"`
}

// Addr returns host:port for net/http.
func (s ServerSection) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GRPCAddr returns host:grpc_port.
func (s ServerSection) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.GRPCPort)
}

// MonitoringSection controls the Prometheus registry.
type MonitoringSection struct {
	Enabled    bool                       `mapstructure:"enabled" json:"enabled"`
	Path       string                     `mapstructure:"path" json:"path"`
	Prometheus prometheus.CollectorConfig `mapstructure:"prometheus" json:"prometheus"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure. Each component reads its
// settings from the relevant section.
type Config struct {
	Map        MapSection        `mapstructure:"map" json:"map"`
	Render     RenderSection     `mapstructure:"render" json:"render"`
	Cache      CacheSection      `mapstructure:"cache" json:"cache"`
	Server     ServerSection     `mapstructure:"server" json:"server"`
	Log        logging.LogConfig `mapstructure:"log" json:"log"`
	Monitoring MonitoringSection `mapstructure:"monitoring" json:"monitoring"`
}

// MapConfig builds the validated render settings from the map section.
func (c *Config) MapConfig() (MapConfig, error) {
	return NewMapBuilder().FromSection(c.Map).Build()
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first problem found as a CONFIG_001 error. Map section errors
// keep their own MAP_* codes so callers can tell them apart.
func (c *Config) Validate() error {
	if _, err := c.MapConfig(); err != nil {
		return err
	}

	// Render
	if _, err := features.ParsePalette(c.Render.Palette); err != nil {
		return invalidf("render.palette %q is invalid", c.Render.Palette)
	}
	if err := c.Render.HeatmapScale.Validate(); err != nil {
		return errors.Wrap(err, errors.CodeConfigInvalid, "config: render.heatmap_scale is invalid")
	}
	if c.Render.GraticuleStep <= 0 || c.Render.GraticuleStep > 90 {
		return invalidf("render.graticule_step %g is out of range (0, 90]", c.Render.GraticuleStep)
	}

	// Cache
	switch c.Cache.Backend {
	case BackendMemory:
	case BackendFilesystem:
		if c.Cache.Dir == "" {
			return invalidf("cache.dir is required for the filesystem backend")
		}
	case BackendRedis:
		if c.Cache.Redis.Addr == "" && len(c.Cache.Redis.ClusterAddrs) == 0 && len(c.Cache.Redis.SentinelAddrs) == 0 {
			return invalidf("cache.redis.addr is required for the redis backend")
		}
	case BackendMinIO:
		if c.Cache.MinIO.Endpoint == "" {
			return invalidf("cache.minio.endpoint is required for the minio backend")
		}
	default:
		return invalidf("cache.backend %q is invalid; expected filesystem|memory|redis|minio", c.Cache.Backend)
	}
	if c.Cache.Workers < 0 {
		return invalidf("cache.workers must be ≥ 0, got %d", c.Cache.Workers)
	}
	if c.Cache.MaxEntries < 0 {
		return invalidf("cache.max_entries must be ≥ 0, got %d", c.Cache.MaxEntries)
	}

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalidf("server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 || c.Server.GRPCPort == c.Server.Port {
		return invalidf("server.grpc_port %d must be 0 or a free port in [1, 65535] other than server.port", c.Server.GRPCPort)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return invalidf("server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return invalidf("server rate limit must be ≥ 0, got rps=%g burst=%d", c.Server.RateLimitRPS, c.Server.RateLimitBurst)
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalidf("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalidf("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Monitoring
	if c.Monitoring.Enabled && c.Monitoring.Prometheus.Namespace == "" {
		return invalidf("monitoring.prometheus.namespace is required when monitoring is enabled")
	}

	return nil
}

func invalidf(format string, args ...interface{}) error {
	return errors.Newf(errors.CodeConfigInvalid, "config: "+format, args...)
}
