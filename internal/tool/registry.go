// Package tool holds the analysis tool registry and the bounded
// parallel executor that runs the applicable subset for one review.
package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/language"
)

// AnalyzeFunc is a tool's evaluation capability: a pure function of the
// review context. It must not retain the context after returning.
type AnalyzeFunc func(ctx context.Context, rctx *domain.ReviewContext) (domain.ToolResult, error)

// Descriptor describes one registered analysis tool. Descriptors are
// registered once at process start and immutable thereafter.
type Descriptor struct {
	Name     string
	Version  string
	Category domain.Category

	// Languages is the supported-language set. Empty means the tool
	// applies to every language.
	Languages []string

	Analyze AnalyzeFunc
}

func (d Descriptor) key() string {
	return d.Name + "@" + d.Version
}

// supports reports whether the descriptor's language set intersects the
// profile's non-zero-weight languages.
func (d Descriptor) supports(profile language.Profile) bool {
	if len(d.Languages) == 0 {
		return len(profile) > 0
	}
	for _, lang := range d.Languages {
		if profile.Has(lang) {
			return true
		}
	}
	return false
}

// Options filters which registered tools are eligible to run.
type Options struct {
	EnabledTools       []string
	DisabledTools      []string
	EnabledCategories  []string
	DisabledCategories []string
}

// Registry holds tool descriptors and selects the applicable subset for
// a language profile. Registration happens at startup; reads are
// concurrent-safe afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Descriptor

	enabledTools       map[string]bool
	disabledTools      map[string]bool
	enabledCategories  map[string]bool
	disabledCategories map[string]bool
}

// NewRegistry creates an empty registry with the given filter options.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		tools:              make(map[string]Descriptor),
		enabledTools:       toSet(opts.EnabledTools),
		disabledTools:      toSet(opts.DisabledTools),
		enabledCategories:  toSet(opts.EnabledCategories),
		disabledCategories: toSet(opts.DisabledCategories),
	}
}

func toSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// Register adds a descriptor. Duplicate (name, version) pairs are
// rejected.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if d.Version == "" {
		return fmt.Errorf("tool %s: version is required", d.Name)
	}
	if d.Analyze == nil {
		return fmt.Errorf("tool %s: analyze function is required", d.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[d.key()]; exists {
		return fmt.Errorf("tool %s version %s already registered", d.Name, d.Version)
	}
	r.tools[d.key()] = d
	return nil
}

// All returns every registered descriptor sorted by name then version.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	sortDescriptors(out)
	return out
}

// Applicable returns the registered descriptors whose language set
// intersects the profile's non-zero-weight languages, after applying
// the enable/disable filters. Tools outside the intersection are never
// invoked and never appear in results.
func (r *Registry) Applicable(profile language.Profile) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		if !r.eligible(d) {
			continue
		}
		if !d.supports(profile) {
			continue
		}
		out = append(out, d)
	}
	sortDescriptors(out)
	return out
}

func (r *Registry) eligible(d Descriptor) bool {
	if r.disabledTools[d.Name] {
		return false
	}
	if r.disabledCategories[string(d.Category)] {
		return false
	}
	if r.enabledTools != nil && !r.enabledTools[d.Name] {
		return false
	}
	if r.enabledCategories != nil && !r.enabledCategories[string(d.Category)] {
		return false
	}
	return true
}

func sortDescriptors(ds []Descriptor) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].Name != ds[j].Name {
			return ds[i].Name < ds[j].Name
		}
		return ds[i].Version < ds[j].Version
	})
}
