package sources

import (
	"fmt"
	"net/http"
	"sort"
	"time"
)

// Registry holds the adapters built from the loaded definitions.
type Registry struct {
	adapters    map[string]Adapter
	definitions map[string]Definition
}

// NewRegistry builds adapters for every enabled definition. Unknown kinds
// are rejected rather than skipped so configuration mistakes surface early.
func NewRegistry(defs []Definition, fetchTimeout time.Duration) (*Registry, error) {
	client := &http.Client{Timeout: fetchTimeout}
	reg := &Registry{
		adapters:    make(map[string]Adapter, len(defs)),
		definitions: make(map[string]Definition, len(defs)),
	}
	for _, def := range defs {
		reg.definitions[def.Name] = def
		if !def.Enabled {
			continue
		}
		adapter, err := buildAdapter(def, client)
		if err != nil {
			return nil, err
		}
		reg.adapters[def.Name] = adapter
	}
	return reg, nil
}

func buildAdapter(def Definition, client *http.Client) (Adapter, error) {
	switch def.Kind {
	case "rss", "atom":
		return NewRSSAdapter(def, client), nil
	default:
		return nil, fmt.Errorf("source %s: unsupported kind %q", def.Name, def.Kind)
	}
}

// Adapter returns the adapter for a source name.
func (r *Registry) Adapter(name string) (Adapter, bool) {
	adapter, ok := r.adapters[name]
	return adapter, ok
}

// Definition returns the definition for a source name.
func (r *Registry) Definition(name string) (Definition, bool) {
	def, ok := r.definitions[name]
	return def, ok
}

// Names returns the enabled source names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
