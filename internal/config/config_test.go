package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, resolved, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved == "" {
		t.Fatal("resolved path is empty")
	}
	if cfg.Publish.Mode != "manual" {
		t.Fatalf("publish mode = %q", cfg.Publish.Mode)
	}
	if cfg.Harvest.PageRetries != 3 {
		t.Fatalf("page retries = %d", cfg.Harvest.PageRetries)
	}
	if cfg.FetchTimeoutDuration() != 60*time.Second {
		t.Fatalf("fetch timeout = %v", cfg.FetchTimeoutDuration())
	}
	if len(cfg.Eligibility.ProtectedReasons) == 0 {
		t.Fatal("protected reasons not defaulted")
	}
}

func TestLoadNormalizesValues(t *testing.T) {
	path := writeConfig(t, `[publish]
mode = " AUTO "
allowed_extensions = [".JPG", "png "]

[logging]
level = "DEBUG"
`)

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Publish.Mode != "auto" {
		t.Fatalf("mode = %q", cfg.Publish.Mode)
	}
	if cfg.Publish.AllowedExtensions[0] != "jpg" || cfg.Publish.AllowedExtensions[1] != "png" {
		t.Fatalf("extensions = %v", cfg.Publish.AllowedExtensions)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "bad publish mode",
			content: "[publish]\nmode = \"sometimes\"\n",
			wantErr: "publish.mode",
		},
		{
			name:    "auto_from_date needs from_year",
			content: "[publish]\nmode = \"auto_from_date\"\n",
			wantErr: "publish.from_year",
		},
		{
			name:    "threshold beyond hash width",
			content: "[dedup]\nperceptual_threshold = 65\n",
			wantErr: "perceptual_threshold",
		},
		{
			name:    "min year out of range",
			content: "[harvest]\nmin_year = 1500\n",
			wantErr: "min_year",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, _, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAutoFromDateWithYear(t *testing.T) {
	path := writeConfig(t, `[publish]
mode = "auto_from_date"
from_year = 1990
`)
	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Publish.FromYear != 1990 {
		t.Fatalf("from_year = %d", cfg.Publish.FromYear)
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataDir = "/tmp/mh"
	if got := cfg.DatabasePath(); got != filepath.Join("/tmp/mh", "records.db") {
		t.Fatalf("database path = %q", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	if got := ExpandPath("~/data"); got != filepath.Join(home, "data") {
		t.Fatalf("expand = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute path changed: %q", got)
	}
}
