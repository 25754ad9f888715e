package sources

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDefinitions(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}
	return path
}

func TestLoadDefinitionsMissingFile(t *testing.T) {
	defs, err := LoadDefinitions(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(defs) != 0 {
		t.Fatalf("defs = %+v", defs)
	}
}

func TestLoadDefinitions(t *testing.T) {
	path := writeDefinitions(t, `sources:
  - name: harbour-archive
    kind: RSS
    url: https://feeds.example/harbour.xml
    enabled: true
    min_year: 1990
    upload_mode: auto
    page_size: 25
  - name: museum
    kind: rss
    url: https://feeds.example/museum.xml
    enabled: false
`)

	defs, err := LoadDefinitions(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("defs = %+v", defs)
	}
	if defs[0].Kind != "rss" {
		t.Fatalf("kind not lowercased: %q", defs[0].Kind)
	}
	if defs[0].PageSize != 25 {
		t.Fatalf("page size = %d", defs[0].PageSize)
	}
	if defs[1].PageSize != 50 {
		t.Fatalf("default page size = %d", defs[1].PageSize)
	}
}

func TestLoadDefinitionsRejectsDuplicateNames(t *testing.T) {
	path := writeDefinitions(t, `sources:
  - name: archive
    kind: rss
    url: https://feeds.example/a.xml
  - name: archive
    kind: rss
    url: https://feeds.example/b.xml
`)
	if _, err := LoadDefinitions(path); err == nil {
		t.Fatal("expected duplicate-name error")
	}
}

func TestLoadDefinitionsRejectsUnnamedSource(t *testing.T) {
	path := writeDefinitions(t, `sources:
  - kind: rss
    url: https://feeds.example/a.xml
`)
	if _, err := LoadDefinitions(path); err == nil {
		t.Fatal("expected missing-name error")
	}
}
