package app_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlackCockder/IBEX-Mapper/internal/app"
	"github.com/BlackCockder/IBEX-Mapper/internal/config"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/features"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
	"github.com/BlackCockder/IBEX-Mapper/internal/testutil"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Cache.Backend = config.BackendFilesystem
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	cfg.Render.FeaturesFile = filepath.Join(dir, "features.json")
	cfg.Render.OutputDir = filepath.Join(dir, "output")
	cfg.Map.MapAccuracy = 12
	cfg.Map.MaxLToCache = 2
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestOpenBackend_Memory(t *testing.T) {
	t.Parallel()
	b, err := app.OpenBackend(config.CacheSection{Backend: config.BackendMemory}, nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", b.Name())
	assert.NoError(t, b.Ping(context.Background()))
	assert.NoError(t, b.Close())
}

func TestOpenBackend_Filesystem(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "blobs")
	b, err := app.OpenBackend(config.CacheSection{Backend: config.BackendFilesystem, Dir: dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, "filesystem", b.Name())
	assert.NoError(t, b.Ping(context.Background()))

	require.NoError(t, os.RemoveAll(dir))
	err = b.Ping(context.Background())
	assert.True(t, errors.IsCode(err, errors.CodeStorageFailure))
}

func TestOpenBackend_Redis(t *testing.T) {
	t.Parallel()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.Default().Cache
	cfg.Backend = config.BackendRedis
	cfg.Redis.Addr = mr.Addr()

	b, err := app.OpenBackend(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "redis", b.Name())
	assert.NoError(t, b.Ping(context.Background()))

	require.NoError(t, b.Store.Put(context.Background(), "DPI4L1.basis", []byte{1, 2}))
	assert.True(t, mr.Exists("ibex:basis:DPI4L1.basis"))

	require.NoError(t, b.Close())
	assert.Error(t, b.Ping(context.Background()))
}

func TestOpenBackend_Unknown(t *testing.T) {
	t.Parallel()
	_, err := app.OpenBackend(config.CacheSection{Backend: "tape"}, nil)
	assert.True(t, errors.IsCode(err, errors.CodeConfigInvalid))
}

func TestNew_RenderAndExport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := app.New(cfg, app.WithLogger(testutil.NewMockLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NoError(t, a.Features.AddPoint(ctx, features.Point{Name: "nose", Coordinates: sphere.GeoPoint{Lon: -105, Lat: 5}}))
	_, err = os.Stat(cfg.Render.FeaturesFile)
	require.NoError(t, err, "catalog is persisted to the features file")

	mc, err := cfg.MapConfig()
	require.NoError(t, err)
	scene, err := a.Engine.GenerateFromReader(ctx, "demo", strings.NewReader(testutil.FullTableText(2, 1)), mc)
	require.NoError(t, err)
	require.Len(t, scene.Points, 1)

	key, err := a.Engine.Export(ctx, scene, a.Outputs)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.Render.OutputDir, key))
	assert.NoError(t, err)

	keys, err := a.Cache.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"DPI12L2.basis"}, keys)
}

func TestNew_MonitoringDisabled(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Monitoring.Enabled = false

	backend, err := app.OpenBackend(config.CacheSection{Backend: config.BackendMemory}, nil)
	require.NoError(t, err)
	a, err := app.New(cfg, app.WithLogger(testutil.NewMockLogger()), app.WithBackend(backend))
	require.NoError(t, err)
	assert.Equal(t, "memory", a.Backend.Name())
	assert.NotNil(t, a.Metrics)
}
