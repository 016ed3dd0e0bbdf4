package config

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// Store is a persisted, editable configuration file. It backs the
// "config show|set|reset" commands; every successful edit is validated and
// written back before it becomes visible.
type Store struct {
	mu     sync.RWMutex
	path   string
	v      *viper.Viper
	cfg    *Config
	logger logging.Logger
}

// OpenStore loads path if it exists and starts from defaults otherwise. The
// file is not created until the first Set, Reset or Save.
func OpenStore(path string, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if path == "" {
		path = DefaultPath()
	}
	v := newViper()
	v.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, errors.CodeConfigLoad, "config: failed to read config file %q", path)
		}
	}
	cfg, err := unmarshalAndFinalize(v)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, v: v, cfg: cfg, logger: log.Named("config")}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Config returns a copy of the current configuration.
func (s *Store) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := *s.cfg
	return &c
}

// Keys lists every settable key in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.v.AllKeys()
	sort.Strings(keys)
	return keys
}

// Get returns the effective value of key.
func (s *Store) Get(key string) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.known(key) {
		return nil, unknownKey(key)
	}
	return s.v.Get(key), nil
}

// Set parses raw into the type of key's current value, validates the whole
// configuration with the change applied and persists it. On any failure the
// previous value stays in effect.
func (s *Store) Set(key, raw string) error {
	return s.SetMany(map[string]string{key: raw})
}

// SetMany applies several edits as one validated change.
func (s *Store) SetMany(edits map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := make(map[string]interface{}, len(edits))
	for key, raw := range edits {
		if !s.known(key) {
			return unknownKey(key)
		}
		value, err := coerce(s.v.Get(key), raw)
		if err != nil {
			return errors.Wrapf(err, errors.CodeConfigInvalid, "config: cannot parse %q for %s", raw, key)
		}
		values[key] = value
	}

	previous := make(map[string]interface{}, len(values))
	for key, value := range values {
		previous[key] = s.v.Get(key)
		s.v.Set(key, value)
	}

	cfg, err := unmarshalAndFinalize(s.v)
	if err != nil {
		for key, old := range previous {
			s.v.Set(key, old)
		}
		return err
	}
	if err := s.write(); err != nil {
		for key, old := range previous {
			s.v.Set(key, old)
		}
		return err
	}
	s.cfg = cfg
	for key := range edits {
		s.logger.Info("config updated", logging.String("key", key), logging.Any("value", s.v.Get(key)))
	}
	return nil
}

// Reset restores every default and persists the result.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := newViper()
	v.SetConfigFile(s.path)
	cfg, err := unmarshalAndFinalize(v)
	if err != nil {
		return err
	}
	old := s.v
	s.v = v
	if err := s.write(); err != nil {
		s.v = old
		return err
	}
	s.cfg = cfg
	s.logger.Info("config reset to defaults", logging.String("path", s.path))
	return nil
}

// Save writes the current state to the backing file.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

func (s *Store) write() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, errors.CodeConfigLoad, "config: cannot create %q", dir)
		}
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return errors.Wrapf(err, errors.CodeConfigLoad, "config: failed to write %q", s.path)
	}
	return nil
}

func (s *Store) known(key string) bool {
	return s.v.IsSet(key) || s.v.InConfig(key)
}

// coerce converts raw to the dynamic type of current. Whole-number floats
// read back from YAML arrive as ints, so integer keys also accept decimals.
func coerce(current interface{}, raw string) (interface{}, error) {
	switch current.(type) {
	case bool:
		return cast.ToBoolE(raw)
	case int, int64:
		if i, err := cast.ToInt64E(raw); err == nil {
			return i, nil
		}
		return cast.ToFloat64E(raw)
	case float64:
		return cast.ToFloat64E(raw)
	case time.Duration:
		return cast.ToDurationE(raw)
	case []string:
		return cast.ToStringSliceE(raw)
	default:
		return raw, nil
	}
}

func unknownKey(key string) error {
	return errors.New(errors.CodeConfigInvalid, "config: unknown key").WithDetail(key)
}
