// Package resolver maps project configuration to the filesystem directories
// a build depends on and the resolved values injected into it. Exactly three
// resolver variants exist: components, css, and data. A fresh set is
// constructed at the start of every build and discarded afterwards; the
// directory lists are retained by the watch composer for the lifetime of a
// watch session.
package resolver

import (
	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/errors"
	"github.com/loomkit/loom/internal/paths"
)

// Resolver names as they appear in the registry.
const (
	NameComponents = "components"
	NameCSS        = "css"
	NameData       = "data"
)

// Resolver is the capability shared by all variants.
type Resolver interface {
	// Name returns the registry key for this resolver.
	Name() string
	// Directories returns the absolute directories this resolver depends
	// on. Side-effect-free and callable repeatedly.
	Directories() []string
}

// Registry is the per-build mapping from resolver name to instance.
type Registry struct {
	Components *ComponentResolver
	CSS        *CSSResolver
	Data       *DataResolver
}

// NewRegistry constructs all three resolver variants from the current
// configuration and paths. Construction of any variant failing aborts the
// whole build; there is no partial-registry state.
func NewRegistry(cfg config.Config, p paths.Paths) (*Registry, error) {
	components, err := NewComponentResolver(cfg, p)
	if err != nil {
		return nil, err
	}
	css, err := NewCSSResolver(cfg, p)
	if err != nil {
		return nil, err
	}
	data, err := NewDataResolver(cfg, p)
	if err != nil {
		return nil, err
	}
	return &Registry{Components: components, CSS: css, Data: data}, nil
}

// ByName returns the resolver registered under name.
func (r *Registry) ByName(name string) (Resolver, error) {
	switch name {
	case NameComponents:
		return r.Components, nil
	case NameCSS:
		return r.CSS, nil
	case NameData:
		return r.Data, nil
	}
	return nil, errors.New(errors.CategoryInternal, errors.SeverityError, "unknown resolver: "+name)
}

// All returns every resolver in registry order.
func (r *Registry) All() []Resolver {
	return []Resolver{r.Components, r.CSS, r.Data}
}

// Directories returns the union of every resolver's dependency directories.
func (r *Registry) Directories() []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, res := range r.All() {
		for _, d := range res.Directories() {
			if !seen[d] {
				seen[d] = true
				dirs = append(dirs, d)
			}
		}
	}
	return dirs
}
