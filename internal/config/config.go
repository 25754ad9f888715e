package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory, file, and bind address configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	LogDir      string `toml:"log_dir"`
	SourcesFile string `toml:"sources_file"`
	APIBind     string `toml:"api_bind"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Harvest contains timing and retry configuration for harvest loops.
type Harvest struct {
	PollInterval     int    `toml:"poll_interval"`     // seconds between daemon scheduling passes
	FetchTimeout     int    `toml:"fetch_timeout"`     // seconds per page or asset fetch
	PageRetries      int    `toml:"page_retries"`      // bounded retries per page before it is abandoned
	MinYear          int    `toml:"min_year"`          // lower bound for the year-splitting fallback
	ProgressInterval int    `toml:"progress_interval"` // items between progress log lines
	UserAgent        string `toml:"user_agent"`        // sent on page and asset fetches
}

// Dedup contains near-duplicate detection tuning.
type Dedup struct {
	PerceptualThreshold int     `toml:"perceptual_threshold"` // max hamming distance treated as similar
	CandidateLimit      int     `toml:"candidate_limit"`      // bound on the perceptual comparison set
	SubjectSimilarity   float64 `toml:"subject_similarity"`   // min cosine similarity for candidate scoping
}

// Publish contains the upload mode policy configuration.
type Publish struct {
	Mode              string   `toml:"mode"` // disabled, manual, auto, auto_from_date
	FromYear          int      `toml:"from_year"`
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// Eligibility contains the ignore rule configuration.
type Eligibility struct {
	ForbiddenCategories []string `toml:"forbidden_categories"`
	PeopleCategories    []string `toml:"people_categories"`
	PersonTypeTags      []string `toml:"person_type_tags"`
	CourtesyMarkers     []string `toml:"courtesy_markers"`
	CourtesyAllowList   []string `toml:"courtesy_allow_list"`
	MinContentLength    int      `toml:"min_content_length"`
	ProtectedReasons    []string `toml:"protected_reasons"`
}

// Config is the root configuration document.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Logging     Logging     `toml:"logging"`
	Harvest     Harvest     `toml:"harvest"`
	Dedup       Dedup       `toml:"dedup"`
	Publish     Publish     `toml:"publish"`
	Eligibility Eligibility `toml:"eligibility"`
}

// DefaultPath returns the expected config file location.
func DefaultPath() string {
	return filepath.Join(configHome(), "mediaharvest", "config.toml")
}

func configHome() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return xdg
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config")
}

// Load reads configuration from path, falling back to DefaultPath when path
// is empty. A missing file yields the defaults rather than an error; the
// resolved path is returned so callers can report where config came from.
func Load(path string) (*Config, string, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		resolved = DefaultPath()
	}
	resolved = ExpandPath(resolved)

	cfg := Default()
	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, resolved, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// defaults apply
	default:
		return nil, resolved, fmt.Errorf("read config %s: %w", resolved, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, resolved, err
	}
	return &cfg, resolved, nil
}

// WriteSample writes the embedded sample configuration to path.
// It refuses to overwrite an existing file.
func WriteSample(path string) error {
	resolved := ExpandPath(strings.TrimSpace(path))
	if resolved == "" {
		resolved = DefaultPath()
	}
	if _, err := os.Stat(resolved); err == nil {
		return fmt.Errorf("config file already exists at %s", resolved)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the data and log directories when absent.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the record store location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "records.db")
}
