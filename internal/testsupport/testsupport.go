// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"mediaharvest/internal/config"
	"mediaharvest/internal/records"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.SourcesFile = filepath.Join(base, "sources.yaml")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithPublishMode sets the global publish mode on the test config.
func WithPublishMode(mode string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Publish.Mode = mode
	}
}

// WithMinYear sets the year-splitting lower bound on the test config.
func WithMinYear(year int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Harvest.MinYear = year
	}
}

// MustOpenStore opens a record store for the config and closes it with the
// test.
func MustOpenStore(t testing.TB, cfg *config.Config) *records.Store {
	t.Helper()

	store, err := records.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}
