package sources

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition describes one configured source in the sources YAML document.
type Definition struct {
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`
	URL         string   `yaml:"url"`
	Enabled     bool     `yaml:"enabled"`
	MinYear     int      `yaml:"min_year"`
	UploadMode  string   `yaml:"upload_mode"` // optional per-source override
	SubSources  []string `yaml:"sub_sources"` // accounts of a federated source
	PageSize    int      `yaml:"page_size"`
	UserAgent   string   `yaml:"user_agent"`
	Description string   `yaml:"description"`
}

type definitionsDoc struct {
	Sources []Definition `yaml:"sources"`
}

// LoadDefinitions reads source definitions from a YAML file. A missing file
// yields an empty set rather than an error so a fresh install can start.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sources file %s: %w", path, err)
	}

	var doc definitionsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(doc.Sources))
	for i := range doc.Sources {
		def := &doc.Sources[i]
		def.Name = strings.TrimSpace(def.Name)
		def.Kind = strings.ToLower(strings.TrimSpace(def.Kind))
		if def.Name == "" {
			return nil, fmt.Errorf("sources file %s: source %d has no name", path, i)
		}
		if _, dup := seen[def.Name]; dup {
			return nil, fmt.Errorf("sources file %s: duplicate source %q", path, def.Name)
		}
		seen[def.Name] = struct{}{}
		if def.PageSize <= 0 {
			def.PageSize = 50
		}
	}
	return doc.Sources, nil
}
