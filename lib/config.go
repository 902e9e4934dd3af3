package lib

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/GreenledgerHQ/cerberus/lib/store"
	"sigs.k8s.io/yaml"

	_ "github.com/GreenledgerHQ/cerberus/lib/store/all"
)

var (
	ErrNoStoreBackend      = errors.New("lib: no store backend defined")
	ErrUnknownStoreBackend = errors.New("lib: unknown store backend")
)

// StoreConfig selects and configures a store backend by registry name.
// Parameters is handed to the backend's factory as-is.
type StoreConfig struct {
	Backend    string          `json:"backend"`
	Parameters json.RawMessage `json:"parameters"`
}

func (s StoreConfig) Valid() error {
	var errs []error

	if len(s.Backend) == 0 {
		errs = append(errs, ErrNoStoreBackend)
	}

	fac, ok := store.Get(s.Backend)
	switch ok {
	case true:
		if err := fac.Valid(s.Parameters); err != nil {
			errs = append(errs, err)
		}
	case false:
		errs = append(errs, fmt.Errorf("%w: %q (have: %v)", ErrUnknownStoreBackend, s.Backend, store.Backends()))
	}

	if len(errs) != 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Config is the on-disk service configuration. Written as YAML; parsed
// through sigs.k8s.io/yaml so store parameters land as raw JSON for the
// factories.
type Config struct {
	Store StoreConfig `json:"store"`
}

func (c Config) Valid() error {
	return c.Store.Valid()
}

// DefaultConfig is what the daemon runs with when no config file is given:
// challenge state in process memory.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{Backend: "memory"},
	}
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(fname string) (Config, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return Config{}, fmt.Errorf("lib: can't read config file %s: %w", fname, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("lib: can't parse config file %s: %w", fname, err)
	}

	if err := config.Valid(); err != nil {
		return Config{}, fmt.Errorf("lib: config file %s is invalid: %w", fname, err)
	}

	return config, nil
}
