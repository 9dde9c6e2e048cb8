package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"borrow_analytics/models"

	"gopkg.in/yaml.v3"
)

// Mapping is the category table: item codes first, base item names as a
// fallback for codes the table does not list.
type Mapping struct {
	Codes map[string]string `yaml:"codes"`
	Names map[string]string `yaml:"names"`
}

func LoadMapping(path string) (Mapping, error) {
	var m Mapping
	b, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read mapping: %w", err)
	}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	return m, nil
}

// Resolver maps items to categories and remembers the codes it could not map.
type Resolver struct {
	mu       sync.Mutex
	codes    map[string]string
	names    map[string]string
	unmapped map[string]struct{}
}

func NewResolver(m Mapping) *Resolver {
	r := &Resolver{
		codes:    make(map[string]string, len(m.Codes)),
		names:    make(map[string]string, len(m.Names)),
		unmapped: make(map[string]struct{}),
	}
	for k, v := range m.Codes {
		r.codes[codeKey(k)] = strings.TrimSpace(v)
	}
	for k, v := range m.Names {
		r.names[nameKey(k)] = strings.TrimSpace(v)
	}
	return r
}

func codeKey(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }
func nameKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Resolve returns the category for code, or "Unmapped". Unmapped codes are
// collected for reporting; they never block ingestion.
func (r *Resolver) Resolve(code, baseName string) string {
	if c, ok := r.Lookup(code, baseName); ok {
		return c
	}
	if k := codeKey(code); k != "" {
		r.mu.Lock()
		r.unmapped[k] = struct{}{}
		r.mu.Unlock()
	}
	return models.UnmappedCategory
}

// Lookup is Resolve without the side effect.
func (r *Resolver) Lookup(code, baseName string) (string, bool) {
	if c, ok := r.codes[codeKey(code)]; ok && c != "" {
		return c, true
	}
	if baseName != "" {
		if c, ok := r.names[nameKey(baseName)]; ok && c != "" {
			return c, true
		}
	}
	return "", false
}

// Unmapped lists every code seen without a category, sorted.
func (r *Resolver) Unmapped() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.unmapped))
	for k := range r.unmapped {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Resolver) Len() int { return len(r.codes) }
