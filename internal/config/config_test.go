package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlackCockder/IBEX-Mapper/internal/config"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

func TestConfig_Validate_Default(t *testing.T) {
	t.Parallel()
	assert.NoError(t, config.Default().Validate())
}

func TestConfig_Validate_MapErrorsKeepTheirCodes(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Map.MapAccuracy = 0
	assert.True(t, errors.IsCode(cfg.Validate(), errors.CodeNonPositiveDimension))

	cfg = config.Default()
	cfg.Map.CentralPoint = sphere.GeoPoint{Lon: 200, Lat: 0}
	assert.True(t, errors.IsCode(cfg.Validate(), errors.CodeMalformedGeoPoint))
}

func TestConfig_Validate_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*config.Config)
		key    string
	}{
		{"palette", func(c *config.Config) { c.Render.Palette = "rainbow" }, "render.palette"},
		{"scale", func(c *config.Config) { c.Render.HeatmapScale.Min, c.Render.HeatmapScale.Max = 5, 1 }, "render.heatmap_scale"},
		{"graticule", func(c *config.Config) { c.Render.GraticuleStep = -1 }, "render.graticule_step"},
		{"backend", func(c *config.Config) { c.Cache.Backend = "tape" }, "cache.backend"},
		{"cache dir", func(c *config.Config) { c.Cache.Dir = "" }, "cache.dir"},
		{"redis addr", func(c *config.Config) { c.Cache.Backend = config.BackendRedis }, "cache.redis.addr"},
		{"minio endpoint", func(c *config.Config) { c.Cache.Backend = config.BackendMinIO }, "cache.minio.endpoint"},
		{"workers", func(c *config.Config) { c.Cache.Workers = -2 }, "cache.workers"},
		{"max entries", func(c *config.Config) { c.Cache.MaxEntries = -1 }, "cache.max_entries"},
		{"port", func(c *config.Config) { c.Server.Port = 70000 }, "server.port"},
		{"grpc port clash", func(c *config.Config) { c.Server.GRPCPort = c.Server.Port }, "server.grpc_port"},
		{"mode", func(c *config.Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"log level", func(c *config.Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"namespace", func(c *config.Config) { c.Monitoring.Prometheus.Namespace = "" }, "monitoring.prometheus.namespace"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeConfigInvalid), "got %v", err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestConfig_Validate_MemoryBackendNeedsNoDir(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Cache.Backend = config.BackendMemory
	cfg.Cache.Dir = ""
	assert.NoError(t, cfg.Validate())
}

func TestServerSection_Addr(t *testing.T) {
	t.Parallel()
	s := config.ServerSection{Host: "127.0.0.1", Port: 9000}
	assert.Equal(t, "127.0.0.1:9000", s.Addr())
}
