package lib

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/GreenledgerHQ/cerberus/lib/store/bbolt"
	"github.com/GreenledgerHQ/cerberus/lib/store/valkey"
)

func TestStoreConfigValid(t *testing.T) {
	for _, tt := range []struct {
		name  string
		input StoreConfig
		err   error
	}{
		{
			name:  "no backend",
			input: StoreConfig{},
			err:   ErrNoStoreBackend,
		},
		{
			name:  "unknown backend",
			input: StoreConfig{Backend: "punchcards"},
			err:   ErrUnknownStoreBackend,
		},
		{
			name:  "memory backend",
			input: StoreConfig{Backend: "memory"},
		},
		{
			name: "bbolt backend",
			input: StoreConfig{
				Backend:    "bbolt",
				Parameters: json.RawMessage(`{"path": "` + filepath.Join(t.TempDir(), "db") + `"}`),
			},
		},
		{
			name: "valkey backend",
			input: StoreConfig{
				Backend:    "valkey",
				Parameters: json.RawMessage(`{"url": "redis://valkey:6379/0"}`),
			},
		},
		{
			name: "valkey backend no URL",
			input: StoreConfig{
				Backend:    "valkey",
				Parameters: json.RawMessage(`{}`),
			},
			err: valkey.ErrNoURL,
		},
		{
			name: "bbolt backend no path",
			input: StoreConfig{
				Backend:    "bbolt",
				Parameters: json.RawMessage(`{}`),
			},
			err: bbolt.ErrMissingPath,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.input.Valid(); !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Error("wrong error")
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		fname := filepath.Join(t.TempDir(), "cerberus.yaml")
		doc := "store:\n  backend: memory\n"
		if err := os.WriteFile(fname, []byte(doc), 0600); err != nil {
			t.Fatal(err)
		}

		config, err := LoadConfig(fname)
		if err != nil {
			t.Fatal(err)
		}

		if config.Store.Backend != "memory" {
			t.Errorf("wanted memory backend, got: %q", config.Store.Backend)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("wanted missing file to fail")
		}
	})

	t.Run("invalid backend", func(t *testing.T) {
		fname := filepath.Join(t.TempDir(), "cerberus.yaml")
		doc := "store:\n  backend: punchcards\n"
		if err := os.WriteFile(fname, []byte(doc), 0600); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadConfig(fname); !errors.Is(err, ErrUnknownStoreBackend) {
			t.Errorf("wanted ErrUnknownStoreBackend, got: %v", err)
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	if err := DefaultConfig().Valid(); err != nil {
		t.Fatal(err)
	}
}
