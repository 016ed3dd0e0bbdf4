package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlackCockder/IBEX-Mapper/internal/testutil"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

const validConfigYAML = `
map:
  map_accuracy: 440
  max_l_to_cache: 12
  rotate: true
  central_point:
    lon: -70
    lat: 0
  meridian_point:
    lon: -90
    lat: 10
  allow_negative_values: false
render:
  palette: viridis
  heatmap_scale:
    min: 0
    max: 2.5
  graticule_step: 15
cache:
  backend: redis
  redis:
    addr: "localhost:6379"
    ttl: 24h
server:
  port: 8081
log:
  level: debug
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ibex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 440, cfg.Map.MapAccuracy)
	assert.Equal(t, 12, cfg.Map.MaxLToCache)
	assert.True(t, cfg.Map.Rotate)
	assert.Equal(t, -70.0, cfg.Map.CentralPoint.Lon)
	assert.Equal(t, 10.0, cfg.Map.MeridianPoint.Lat)
	assert.False(t, cfg.Map.AllowNegativeValues)
	assert.Equal(t, "viridis", cfg.Render.Palette)
	assert.Equal(t, 2.5, cfg.Render.HeatmapScale.Max)
	assert.Equal(t, 15.0, cfg.Render.GraticuleStep)
	assert.Equal(t, BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.Redis.TTL)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)

	// unset keys fall back to defaults
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, DefaultOutputDir, cfg.Render.OutputDir)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsCode(err, errors.CodeConfigLoad))
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "map: [")
	_, err := Load(path)
	assert.True(t, errors.IsCode(err, errors.CodeConfigLoad))
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	path := createTempConfigFile(t, "server:\n  port: 0\n")
	cfg, err := Load(path)
	require.NoError(t, err, "zero port falls back to the default")
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)

	path = createTempConfigFile(t, "map:\n  max_l_to_cache: -3\n")
	_, err = Load(path)
	assert.True(t, errors.IsCode(err, errors.CodeNonPositiveDimension))
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("IBEX_SERVER_PORT", "9999")
	t.Setenv("IBEX_MAP_ROTATE", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.False(t, cfg.Map.Rotate)
}

func TestLoad_EnvOverride_NestedKey(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("IBEX_MAP_CENTRAL_POINT_LAT", "45.5")
	t.Setenv("IBEX_CACHE_REDIS_ADDR", "redis:6380")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45.5, cfg.Map.CentralPoint.Lat)
	assert.Equal(t, "redis:6380", cfg.Cache.Redis.Addr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IBEX_MAP_MAP_ACCURACY", "90")
	t.Setenv("IBEX_CACHE_BACKEND", "memory")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Map.MapAccuracy)
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
	assert.True(t, cfg.Map.AllowNegativeValues, "boolean defaults come from viper")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultMapAccuracy, cfg.Map.MapAccuracy)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("IBEX_LOG_LEVEL=warn\n"), 0o644))
	t.Setenv("IBEX_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("IBEX_LOG_LEVEL"))

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "absent.env")))
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("IBEX_SERVER_MODE=debug\n"), 0o644))
	t.Setenv("IBEX_SERVER_MODE", "test")

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "test", os.Getenv("IBEX_SERVER_MODE"))
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}

func TestWatch_ReloadsAndRejects(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	log := testutil.NewMockLogger()

	var accuracy atomic.Int64
	require.NoError(t, Watch(path, log, func(cfg *Config) {
		accuracy.Store(int64(cfg.Map.MapAccuracy))
	}))

	require.NoError(t, os.WriteFile(path, []byte("map:\n  map_accuracy: 180\n"), 0o644))
	assert.Eventually(t, func() bool { return accuracy.Load() == 180 }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("map:\n  map_accuracy: -1\n"), 0o644))
	assert.Eventually(t, func() bool { return log.HasMessage("warn", "config change rejected") }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, int64(180), accuracy.Load())
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "missing.yaml"), nil, func(*Config) {})
	assert.True(t, errors.IsCode(err, errors.CodeConfigLoad))
}
