package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultMapAccuracy, cfg.Map.MapAccuracy)
	assert.Equal(t, DefaultMaxLToCache, cfg.Map.MaxLToCache)
	assert.Equal(t, "magma", cfg.Render.Palette)
	assert.Equal(t, 30.0, cfg.Render.GraticuleStep)
	assert.Equal(t, BackendFilesystem, cfg.Cache.Backend)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "ibex", cfg.Monitoring.Prometheus.Namespace)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Map.MapAccuracy = 440
	cfg.Server.Port = 9999
	ApplyDefaults(cfg)

	assert.Equal(t, 440, cfg.Map.MapAccuracy)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestDefault_MapSection(t *testing.T) {
	d := Default()
	assert.False(t, d.Map.Rotate)
	assert.True(t, d.Map.AllowNegativeValues)
	assert.Equal(t, 90.0, d.Map.MeridianPoint.Lat)
}

func TestRegisterDefaults_CoversEveryField(t *testing.T) {
	v := newViper()
	cfg := &Config{}
	assert.NoError(t, v.Unmarshal(cfg))
	assert.Equal(t, Default().Map, cfg.Map)
	assert.Equal(t, Default().Render, cfg.Render)
	assert.Equal(t, Default().Server, cfg.Server)
}
