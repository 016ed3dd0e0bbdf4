package config

import (
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "IBEX"

// newViper builds a pre-configured Viper instance: YAML file type, IBEX_ env
// prefix, automatic env binding, and a key replacer that maps "." → "_" so
// that nested keys like "map.map_accuracy" resolve to IBEX_MAP_MAP_ACCURACY.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)
	return v
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped; with no arguments ".env" is tried.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, errors.CodeConfigLoad, "config: failed to load env file %q", f)
		}
	}
	return nil
}

// Load reads the YAML file at configPath, merges any IBEX_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, errors.CodeConfigLoad, "config: failed to read config file %q", configPath)
	}

	return unmarshalAndFinalize(v)
}

// LoadOrDefault behaves like Load when configPath exists and like
// LoadFromEnv otherwise, so a first run works without a file.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return LoadFromEnv()
	}
	return Load(configPath)
}

// LoadFromEnv builds a Config entirely from IBEX_* environment variables and
// defaults, with no config file required.
//
//	IBEX_<SECTION>_<FIELD>   e.g.  IBEX_MAP_ROTATE, IBEX_CACHE_BACKEND
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigLoad, "config: failed to unmarshal configuration")
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed Config
// whenever the file is modified on disk. A change that fails to parse or
// validate is logged and skipped so the running process keeps its last good
// configuration.
//
// Watch is non-blocking; viper runs the fsnotify loop in its own goroutine.
func Watch(configPath string, log logging.Logger, onChange func(*Config)) error {
	if log == nil {
		log = logging.NewNopLogger()
	}
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, errors.CodeConfigLoad, "config: failed to read config file %q", configPath)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			log.Warn("config change rejected", logging.String("file", e.Name), logging.Err(err))
			return
		}
		log.Info("config reloaded", logging.String("file", e.Name), logging.String("op", e.Op.String()))
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is a convenience wrapper around Load that panics on any error.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic("config: MustLoad failed: " + err.Error())
	}
	return cfg
}
