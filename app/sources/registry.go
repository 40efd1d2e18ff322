// Package sources holds the category to feed-URL registry, loaded from a
// YAML file and cached behind a lock so API reloads and fetch workers can
// share it.
package sources

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultCategory is the fallback used when a recipient has no valid
// category preference. The registry refuses to load without it.
const DefaultCategory = "general"

type registryFile struct {
	Categories map[string][]string `yaml:"categories"`
}

type Registry struct {
	path       string
	mu         sync.RWMutex
	categories map[string][]string
}

func NewRegistry(path string) *Registry {
	return &Registry{
		path:       path,
		categories: make(map[string][]string),
	}
}

// Load reads and validates the registry file. Returns an error on a missing
// file, empty configuration, or a configuration without the fallback
// category; these are startup-fatal conditions for the caller.
func (r *Registry) Load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to read sources file %s: %w", r.path, err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse sources file %s: %w", r.path, err)
	}

	if err := validate(file.Categories); err != nil {
		return fmt.Errorf("invalid sources file %s: %w", r.path, err)
	}

	r.mu.Lock()
	r.categories = file.Categories
	r.mu.Unlock()

	slog.Info("Sources registry loaded", "file", r.path, "categories", len(file.Categories))
	return nil
}

func validate(categories map[string][]string) error {
	if len(categories) == 0 {
		return fmt.Errorf("no categories configured")
	}
	if _, ok := categories[DefaultCategory]; !ok {
		return fmt.Errorf("fallback category %q is not configured", DefaultCategory)
	}
	for name, urls := range categories {
		if len(urls) == 0 {
			return fmt.Errorf("category %q has no source URLs", name)
		}
	}
	return nil
}

// Has reports whether a category is configured.
func (r *Registry) Has(category string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.categories[category]
	return ok
}

// URLs returns the source URLs for a category, in configuration order.
func (r *Registry) URLs(category string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	urls, ok := r.categories[category]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	out := make([]string, len(urls))
	copy(out, urls)
	return out, nil
}

// Categories lists the configured category names, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.categories))
	for name := range r.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of configured categories.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.categories)
}
